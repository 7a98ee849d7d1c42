package model

import (
	"math"
	"strconv"

	"github.com/rotisserie/eris"
)

// Geofence is a circular region persisted by the store. ID 0 means the
// record has not been assigned an id and must never be registered.
type Geofence struct {
	ID        int64   `json:"id" yaml:"id,omitempty"`
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
	Radius    float64 `json:"radius" yaml:"radius"`
}

// RequestID is the identifier the registration service knows this geofence by.
func (g Geofence) RequestID() string {
	return strconv.FormatInt(g.ID, 10)
}

// Center returns the geofence center as a Position.
func (g Geofence) Center() Position {
	return Position{Latitude: g.Latitude, Longitude: g.Longitude}
}

// ValidateGeofence checks coordinate ranges and radius.
func ValidateGeofence(lat, lon, radius float64) error {
	switch {
	case !finite(lat) || !finite(lon) || !finite(radius):
		return eris.Wrapf(ErrInvalidGeofence, "non-finite value in (%v, %v, %v)", lat, lon, radius)
	case lat < -90 || lat > 90:
		return eris.Wrapf(ErrInvalidGeofence, "latitude %v out of range", lat)
	case lon < -180 || lon > 180:
		return eris.Wrapf(ErrInvalidGeofence, "longitude %v out of range", lon)
	case !(radius > 0):
		return eris.Wrapf(ErrInvalidGeofence, "radius %v must be positive", radius)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// GeofenceSet is an immutable snapshot of the store. Version increases with
// every mutation.
type GeofenceSet struct {
	Version   uint64     `json:"version"`
	Geofences []Geofence `json:"geofences"`
}

// Len returns the number of geofences in the snapshot.
func (s GeofenceSet) Len() int { return len(s.Geofences) }

// Find returns the geofence with the given id.
func (s GeofenceSet) Find(id int64) (Geofence, bool) {
	for _, g := range s.Geofences {
		if g.ID == id {
			return g, true
		}
	}
	return Geofence{}, false
}

// Position is a sampled or reported device location.
type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// MembershipResult is the outcome of evaluating a position against geofences.
type MembershipResult struct {
	Found          bool      `json:"found"`
	Geofence       *Geofence `json:"geofence,omitempty"`
	DistanceMeters *float64  `json:"distance_meters,omitempty"`
}

// CheckResult is what a manual "check now" reports back to the caller.
type CheckResult struct {
	Status     string            `json:"status"`
	Inside     *bool             `json:"inside,omitempty"`
	Position   *Position         `json:"position,omitempty"`
	Membership *MembershipResult `json:"membership,omitempty"`
}
