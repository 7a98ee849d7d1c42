// Package registry keeps the platform's monitored geofences in step with the
// store and the granted capabilities.
package registry

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/geoalarm/internal/model"
	"github.com/sells-group/geoalarm/internal/monitoring"
	"github.com/sells-group/geoalarm/pkg/geofencing"
)

// Syncer reconciles platform registrations against (GeofenceSet,
// Capabilities) updates. It never retries on its own; the next update
// reconciles again.
type Syncer struct {
	client  geofencing.Client
	metrics *monitoring.Metrics
}

// NewSyncer creates a Syncer. metrics may be nil.
func NewSyncer(client geofencing.Client, metrics *monitoring.Metrics) *Syncer {
	return &Syncer{client: client, metrics: metrics}
}

// Registrations translates a snapshot into platform registrations, dropping
// geofences that were never assigned an id.
func Registrations(set model.GeofenceSet) []geofencing.Registration {
	regs := make([]geofencing.Registration, 0, set.Len())
	for _, g := range set.Geofences {
		if g.ID == 0 {
			continue
		}
		regs = append(regs, geofencing.Registration{
			RequestID:        g.RequestID(),
			Latitude:         g.Latitude,
			Longitude:        g.Longitude,
			RadiusMeters:     g.Radius,
			Triggers:         []geofencing.Trigger{geofencing.TriggerEnter, geofencing.TriggerExit},
			ExpirationMillis: geofencing.NeverExpire,
			InitialTrigger:   geofencing.TriggerEnter,
		})
	}
	return regs
}

// Reconcile applies one combined update: unregister everything when
// monitoring is not permitted or nothing is registrable, otherwise replace
// the registered set.
func (s *Syncer) Reconcile(ctx context.Context, set model.GeofenceSet, caps model.Capabilities) error {
	log := zap.L().With(zap.Uint64("version", set.Version), zap.Int("geofences", set.Len()))

	var regs []geofencing.Registration
	if caps.CanRegister() {
		regs = Registrations(set)
	}

	start := time.Now()
	if len(regs) == 0 {
		err := s.client.UnregisterAll(ctx)
		s.metrics.ObserveReconcileLatency(time.Since(start))
		if err != nil {
			s.metrics.IncReconciliation("failed")
			log.Warn("registry: unregister failed", zap.Error(err))
			return eris.Wrapf(model.ErrRegistration, "registry: unregister all: %v", err)
		}
		s.metrics.IncReconciliation("unregistered")
		log.Debug("registry: geofences unregistered", zap.Bool("can_register", caps.CanRegister()))
		return nil
	}

	err := s.client.RegisterAll(ctx, regs)
	s.metrics.ObserveReconcileLatency(time.Since(start))
	if err != nil {
		s.metrics.IncReconciliation("failed")
		log.Warn("registry: register failed", zap.Error(err))
		return eris.Wrapf(model.ErrRegistration, "registry: register %d geofences: %v", len(regs), err)
	}
	s.metrics.IncReconciliation("registered")
	log.Info("registry: geofences registered", zap.Int("registered", len(regs)))
	return nil
}

// Run combines the latest snapshot and capabilities and reconciles on every
// change until ctx ends or either stream closes. Nothing is reconciled until
// both streams have delivered a value.
func (s *Syncer) Run(ctx context.Context, sets <-chan model.GeofenceSet, caps <-chan model.Capabilities) error {
	var (
		set     model.GeofenceSet
		cur     model.Capabilities
		haveSet bool
		haveCap bool
	)
	for {
		select {
		case <-ctx.Done():
			return nil
		case v, ok := <-sets:
			if !ok {
				return nil
			}
			set, haveSet = v, true
		case v, ok := <-caps:
			if !ok {
				return nil
			}
			cur, haveCap = v, true
		}
		if !haveSet || !haveCap {
			continue
		}
		// Failures are logged and counted inside Reconcile.
		_ = s.Reconcile(ctx, set, cur)
	}
}
