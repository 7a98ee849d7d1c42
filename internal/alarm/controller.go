// Package alarm routes geofence transitions to user-facing effects and owns
// the alarm playback state.
package alarm

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/geoalarm/internal/model"
)

const (
	DefaultRepeatInterval = 5 * time.Second
	DefaultSnoozeDelay    = 60 * time.Second
)

// Notifier renders user-facing notifications.
type Notifier interface {
	Notify(ctx context.Context, n model.Notification) error
}

// Player plays and stops the alarm sound.
type Player interface {
	Play(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Vibrator runs a single vibration pattern.
type Vibrator interface {
	Vibrate(ctx context.Context) error
}

// Controller owns the alarm-active flag, the repeating playback timer and the
// snooze timer. Every timer firing re-checks state under the lock and is
// ignored if a later Start, Stop or Snooze superseded it.
type Controller struct {
	player         Player
	repeatInterval time.Duration
	snoozeDelay    time.Duration

	mu       sync.Mutex
	gate     func() bool
	active   bool
	sounding bool
	gen      uint64
	repeat   *time.Timer
	snooze   *time.Timer

	inflight sync.WaitGroup
}

// NewController creates a Controller. Non-positive durations use the
// defaults.
func NewController(player Player, repeatInterval, snoozeDelay time.Duration) *Controller {
	if repeatInterval <= 0 {
		repeatInterval = DefaultRepeatInterval
	}
	if snoozeDelay <= 0 {
		snoozeDelay = DefaultSnoozeDelay
	}
	return &Controller{player: player, repeatInterval: repeatInterval, snoozeDelay: snoozeDelay}
}

// Start plays the alarm and marks it active. With repeat set, playback is
// re-triggered every repeat interval until Stop or Snooze.
func (c *Controller) Start(ctx context.Context, repeat bool) {
	c.mu.Lock()
	c.cancelTimersLocked()
	c.gen++
	c.active = true
	c.sounding = true
	if repeat {
		c.armRepeatLocked(c.gen)
	}
	c.mu.Unlock()

	c.play(ctx)
}

// Stop clears the active flag, cancels both timers and silences playback.
// Calling it with nothing active does nothing.
func (c *Controller) Stop(ctx context.Context) {
	c.mu.Lock()
	wasSounding := c.stopLocked()
	c.mu.Unlock()

	if wasSounding {
		if err := c.player.Stop(ctx); err != nil {
			zap.L().Warn("alarm: stop playback", zap.Error(err))
		}
	}
}

// SetGate installs a check consulted before every timer-driven playback.
// When it reports false the snooze resumption is dropped and repeats stay
// silent.
func (c *Controller) SetGate(gate func() bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gate = gate
}

// Snooze stops the alarm and schedules one playback after delay, replacing
// any snooze already pending. Snoozing an idle controller only clears state.
// A non-positive delay uses the default.
func (c *Controller) Snooze(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		delay = c.snoozeDelay
	}

	c.mu.Lock()
	wasSounding := c.stopLocked()
	if !wasSounding {
		c.mu.Unlock()
		zap.L().Debug("alarm: snooze with nothing sounding")
		return
	}
	gen := c.gen
	c.inflight.Add(1)
	c.snooze = time.AfterFunc(delay, func() {
		defer c.inflight.Done()
		c.mu.Lock()
		if c.gen != gen {
			c.mu.Unlock()
			return
		}
		c.snooze = nil
		if !c.allowedLocked() {
			c.mu.Unlock()
			zap.L().Info("alarm: snooze elapsed, sound disabled")
			return
		}
		c.active = true
		c.sounding = true
		c.mu.Unlock()
		zap.L().Info("alarm: snooze elapsed")
		c.play(context.Background())
	})
	c.mu.Unlock()

	if err := c.player.Stop(ctx); err != nil {
		zap.L().Warn("alarm: stop playback", zap.Error(err))
	}
	zap.L().Info("alarm: snoozed", zap.Duration("delay", delay))
}

// Active reports whether the alarm is currently active.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// SnoozePending reports whether a snooze resumption is scheduled.
func (c *Controller) SnoozePending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snooze != nil
}

// Close cancels pending timers and waits for running timer callbacks.
func (c *Controller) Close() {
	c.mu.Lock()
	c.gen++
	c.active = false
	c.cancelTimersLocked()
	c.mu.Unlock()
	c.inflight.Wait()
}

// stopLocked resets state and reports whether anything was audible or
// scheduled.
func (c *Controller) stopLocked() bool {
	was := c.sounding || c.repeat != nil || c.snooze != nil
	c.gen++
	c.active = false
	c.sounding = false
	c.cancelTimersLocked()
	return was
}

func (c *Controller) allowedLocked() bool {
	return c.gate == nil || c.gate()
}

func (c *Controller) cancelTimersLocked() {
	if c.repeat != nil {
		if c.repeat.Stop() {
			c.inflight.Done()
		}
		c.repeat = nil
	}
	if c.snooze != nil {
		if c.snooze.Stop() {
			c.inflight.Done()
		}
		c.snooze = nil
	}
}

func (c *Controller) armRepeatLocked(gen uint64) {
	c.inflight.Add(1)
	c.repeat = time.AfterFunc(c.repeatInterval, func() {
		defer c.inflight.Done()
		c.mu.Lock()
		if !c.active || c.gen != gen {
			c.mu.Unlock()
			return
		}
		c.armRepeatLocked(gen)
		allowed := c.allowedLocked()
		c.mu.Unlock()
		if allowed {
			c.play(context.Background())
		}
	})
}

func (c *Controller) play(ctx context.Context) {
	if err := c.player.Play(ctx); err != nil {
		zap.L().Warn("alarm: start playback", zap.Error(err))
	}
}
