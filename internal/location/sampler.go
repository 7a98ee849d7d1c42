// Package location samples the device position with fallback to the last
// known fix.
package location

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/geoalarm/internal/capability"
	"github.com/sells-group/geoalarm/internal/model"
	"github.com/sells-group/geoalarm/internal/monitoring"
	"github.com/sells-group/geoalarm/pkg/locator"
)

// Sampler produces a single best-effort position.
type Sampler struct {
	provider locator.Client
	caps     capability.Reader
	metrics  *monitoring.Metrics
}

// NewSampler creates a Sampler. metrics may be nil.
func NewSampler(provider locator.Client, caps capability.Reader, metrics *monitoring.Metrics) *Sampler {
	return &Sampler{provider: provider, caps: caps, metrics: metrics}
}

// Sample returns the current position. Without fine location it fails with
// ErrPermissionDenied before touching the provider. A missing or failed
// current fix falls back to the last known fix; if neither is available, or
// the provider refuses access, it fails with ErrLocationUnavailable.
func (s *Sampler) Sample(ctx context.Context) (model.Position, error) {
	if !s.caps.Current().FineLocation {
		s.metrics.IncLocationSample("denied")
		return model.Position{}, eris.Wrap(model.ErrPermissionDenied, "location: fine location not granted")
	}

	pos, err := s.provider.CurrentPosition(ctx, locator.AccuracyHigh)
	switch {
	case err == nil && pos != nil:
		s.metrics.IncLocationSample("current")
		return *pos, nil
	case err != nil && eris.Is(err, locator.ErrSecurity):
		return s.unavailable(err)
	case err != nil:
		if ctx.Err() != nil {
			return model.Position{}, ctx.Err()
		}
		zap.L().Debug("location: current position failed, using last known", zap.Error(err))
	}

	pos, err = s.provider.LastKnownPosition(ctx)
	switch {
	case err != nil:
		return s.unavailable(err)
	case pos == nil:
		return s.unavailable(nil)
	}
	s.metrics.IncLocationSample("last_known")
	return *pos, nil
}

func (s *Sampler) unavailable(cause error) (model.Position, error) {
	s.metrics.IncLocationSample("unavailable")
	if cause != nil {
		zap.L().Warn("location: no position available", zap.Error(cause))
		return model.Position{}, eris.Wrapf(model.ErrLocationUnavailable, "location: %v", cause)
	}
	return model.Position{}, eris.Wrap(model.ErrLocationUnavailable, "location: no fix")
}
