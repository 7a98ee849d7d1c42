package model

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// TransitionKind identifies an enter or exit transition.
type TransitionKind string

const (
	TransitionEnter TransitionKind = "ENTER"
	TransitionExit  TransitionKind = "EXIT"
)

// Valid reports whether k is a known transition kind.
func (k TransitionKind) Valid() bool {
	return k == TransitionEnter || k == TransitionExit
}

// Action is a lifecycle control carried on a notification.
type Action string

const (
	ActionNone   Action = ""
	ActionStop   Action = "STOP"
	ActionSnooze Action = "SNOOZE"
)

// TransitionEvent is a single enter/exit signal for one geofence.
type TransitionEvent struct {
	GeofenceID string         `json:"geofence_id"`
	Kind       TransitionKind `json:"kind"`
}

// Signal is the payload delivered on the transition push channel. It carries
// either a control action or a transition for one or more geofences.
type Signal struct {
	Action      Action         `json:"action,omitempty"`
	Kind        TransitionKind `json:"kind,omitempty"`
	GeofenceIDs []string       `json:"geofence_ids,omitempty"`
	ErrorCode   int            `json:"error_code,omitempty"`
}

// Events validates the signal and expands it into one event per geofence.
func (s Signal) Events() ([]TransitionEvent, error) {
	if s.ErrorCode != 0 {
		return nil, eris.Wrapf(ErrGeofenceEvent, "error code %d", s.ErrorCode)
	}
	if !s.Kind.Valid() {
		return nil, eris.Wrapf(ErrGeofenceEvent, "invalid transition %q", s.Kind)
	}
	if len(s.GeofenceIDs) == 0 {
		return nil, eris.Wrap(ErrGeofenceEvent, "no triggering geofences")
	}
	events := make([]TransitionEvent, 0, len(s.GeofenceIDs))
	for _, id := range s.GeofenceIDs {
		events = append(events, TransitionEvent{GeofenceID: id, Kind: s.Kind})
	}
	return events, nil
}

// Notification is a user-facing alert handed to the notification sink.
type Notification struct {
	ID      int32    `json:"id"`
	Title   string   `json:"title"`
	Body    string   `json:"body"`
	Actions []Action `json:"actions"`
}

// NewTransitionNotification builds the notification for a transition event.
func NewTransitionNotification(ev TransitionEvent) Notification {
	n := Notification{
		ID:      NotificationID(ev.GeofenceID),
		Actions: []Action{ActionStop, ActionSnooze},
	}
	if ev.Kind == TransitionEnter {
		n.Title = "Geofence Entered"
		n.Body = fmt.Sprintf("You have entered the geofenced area: %s", ev.GeofenceID)
	} else {
		n.Title = "Geofence Exited"
		n.Body = fmt.Sprintf("You have exited the geofenced area: %s", ev.GeofenceID)
	}
	return n
}

// NotificationID hashes a geofence id the same way the mobile platform does
// (31-based rolling hash over UTF-16 code units, 32-bit overflow), so that
// repeated transitions for one geofence replace the same notification.
func NotificationID(geofenceID string) int32 {
	var h int32
	for _, r := range geofenceID {
		if r >= 0x10000 {
			r -= 0x10000
			h = 31*h + int32(0xD800+(r>>10))
			h = 31*h + int32(0xDC00+(r&0x3FF))
			continue
		}
		h = 31*h + int32(r)
	}
	return h
}
