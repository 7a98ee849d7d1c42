package alarm

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/geoalarm/internal/capability"
	"github.com/sells-group/geoalarm/internal/model"
	"github.com/sells-group/geoalarm/internal/monitoring"
)

// Router dispatches transition signals to the notification and effect sinks.
type Router struct {
	controller *Controller
	notifier   Notifier
	vibrator   Vibrator
	caps       capability.Reader
	settings   *SettingsStore
	metrics    *monitoring.Metrics
}

// NewRouter creates a Router and gates the controller's timer-driven
// playback on the sound setting. metrics may be nil.
func NewRouter(
	controller *Controller,
	notifier Notifier,
	vibrator Vibrator,
	caps capability.Reader,
	settings *SettingsStore,
	metrics *monitoring.Metrics,
) *Router {
	controller.SetGate(func() bool { return settings.Load().SoundEnabled })
	return &Router{
		controller: controller,
		notifier:   notifier,
		vibrator:   vibrator,
		caps:       caps,
		settings:   settings,
		metrics:    metrics,
	}
}

// Controller returns the alarm controller driven by this router.
func (r *Router) Controller() *Controller {
	return r.controller
}

// Handle processes one signal. STOP and SNOOZE are always honoured. Any
// other signal is dropped without effect while notifications are disallowed.
// A malformed signal is logged and its ErrGeofenceEvent returned.
func (r *Router) Handle(ctx context.Context, sig model.Signal) error {
	switch sig.Action {
	case model.ActionStop:
		r.controller.Stop(ctx)
		r.metrics.IncTransition("STOP", "handled")
		return nil
	case model.ActionSnooze:
		r.controller.Snooze(ctx, 0)
		r.metrics.IncTransition("SNOOZE", "handled")
		return nil
	}

	if !r.notificationsAllowed() {
		zap.L().Debug("alarm: notifications disabled, dropping signal", zap.String("kind", string(sig.Kind)))
		r.metrics.IncTransition(string(sig.Kind), "dropped")
		return nil
	}

	events, err := sig.Events()
	if err != nil {
		zap.L().Warn("alarm: malformed geofence event", zap.Error(err))
		r.metrics.IncTransition(string(sig.Kind), "malformed")
		return err
	}

	for _, ev := range events {
		r.dispatch(ctx, ev)
	}
	return nil
}

func (r *Router) dispatch(ctx context.Context, ev model.TransitionEvent) {
	log := zap.L().With(zap.String("geofence_id", ev.GeofenceID), zap.String("kind", string(ev.Kind)))
	log.Info("alarm: geofence transition")

	n := model.NewTransitionNotification(ev)
	if err := r.notifier.Notify(ctx, n); err != nil {
		log.Warn("alarm: send notification", zap.Error(err))
	}
	r.metrics.IncTransition(string(ev.Kind), "handled")

	if ev.Kind == model.TransitionEnter {
		r.Ring(ctx)
	}
}

// Ring raises the entry effect: sound and vibration, each only when enabled.
func (r *Router) Ring(ctx context.Context) {
	s := r.settings.Load()
	if s.SoundEnabled {
		r.controller.Start(ctx, s.Repeat)
	} else {
		zap.L().Debug("alarm: sound disabled in settings")
	}
	if s.VibrationEnabled {
		if err := r.vibrator.Vibrate(ctx); err != nil {
			zap.L().Warn("alarm: vibrate", zap.Error(err))
		}
	} else {
		zap.L().Debug("alarm: vibration disabled in settings")
	}
}

func (r *Router) notificationsAllowed() bool {
	return r.caps.Current().Notifications && r.settings.Load().NotificationsEnabled
}
