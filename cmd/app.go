package main

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/geoalarm/internal/alarm"
	"github.com/sells-group/geoalarm/internal/capability"
	"github.com/sells-group/geoalarm/internal/config"
	"github.com/sells-group/geoalarm/internal/db"
	"github.com/sells-group/geoalarm/internal/engine"
	"github.com/sells-group/geoalarm/internal/location"
	"github.com/sells-group/geoalarm/internal/model"
	"github.com/sells-group/geoalarm/internal/monitoring"
	"github.com/sells-group/geoalarm/internal/registry"
	"github.com/sells-group/geoalarm/internal/resilience"
	"github.com/sells-group/geoalarm/internal/store"
	"github.com/sells-group/geoalarm/pkg/geofencing"
	"github.com/sells-group/geoalarm/pkg/locator"
)

// appEnv holds every component the commands need.
type appEnv struct {
	Registry     *prometheus.Registry
	Metrics      *monitoring.Metrics
	Store        *store.GeofenceStore
	Capabilities *capability.Source
	Settings     *alarm.SettingsStore
	Controller   *alarm.Controller
	Router       *alarm.Router
	Syncer       *registry.Syncer
	Engine       *engine.Engine
}

// Close releases resources held by the environment.
func (a *appEnv) Close() {
	if a.Controller != nil {
		a.Controller.Close()
	}
	if a.Capabilities != nil {
		a.Capabilities.Close()
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			zap.L().Warn("close store", zap.Error(err))
		}
	}
}

// envOptions adjust how initApp builds the environment.
type envOptions struct {
	// Locator replaces the configured location provider.
	Locator locator.Client
}

// initApp validates cfg for mode and wires the components. Callers should
// defer env.Close().
func initApp(ctx context.Context, c *config.Config, mode string, opts envOptions) (*appEnv, error) {
	if err := c.Validate(mode); err != nil {
		return nil, err
	}

	env := &appEnv{Registry: prometheus.NewRegistry()}
	env.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	env.Metrics = monitoring.NewMetrics(env.Registry)

	repo, err := initRepository(ctx, c.Store)
	if err != nil {
		return nil, err
	}
	st, err := store.New(ctx, repo)
	if err != nil {
		_ = repo.Close()
		return nil, err
	}
	env.Store = st

	env.Capabilities = capability.NewSource(model.Capabilities{
		FineLocation:       c.Capabilities.FineLocation,
		BackgroundLocation: c.Capabilities.BackgroundLocation,
		Notifications:      c.Capabilities.Notifications,
		BackgroundRequired: c.Platform.BackgroundRequired(),
	})

	sink := monitoring.NewEffectSink(c.Notify, env.Metrics)
	env.Settings = alarm.NewSettingsStore(alarm.SettingsFromConfig(c.Alarm))
	env.Controller = alarm.NewController(sink,
		time.Duration(c.Alarm.RepeatIntervalMs)*time.Millisecond,
		time.Duration(c.Alarm.SnoozeDelayMs)*time.Millisecond,
	)
	env.Router = alarm.NewRouter(env.Controller, sink, sink, env.Capabilities, env.Settings, env.Metrics)
	env.Syncer = registry.NewSyncer(initGeofencing(c.Geofencing), env.Metrics)

	loc := opts.Locator
	if loc == nil {
		loc = initLocator(c.Location)
	}
	sampler := location.NewSampler(loc, env.Capabilities, env.Metrics)
	env.Engine = engine.New(env.Store, sampler, env.Capabilities, env.Router, engine.WithMetrics(env.Metrics))

	return env, nil
}

func initRepository(ctx context.Context, c config.StoreConfig) (store.Repository, error) {
	switch c.Driver {
	case "sqlite":
		return store.NewSQLite(c.Path)
	case "postgres":
		return store.NewPostgres(ctx, c.DatabaseURL, &db.PoolConfig{
			MaxConns: c.MaxConns,
			MinConns: c.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", c.Driver)
	}
}

func initGeofencing(c config.GeofencingConfig) geofencing.Client {
	if c.BaseURL == "" {
		zap.L().Info("no geofencing service configured, registrations are not forwarded")
		return geofencing.NopClient{}
	}
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerFromConfig("geofencing", c.BreakerThreshold, c.BreakerResetSecs))
	opts := []geofencing.Option{geofencing.WithBreaker(cb)}
	if c.TimeoutSecs > 0 {
		opts = append(opts, geofencing.WithHTTPClient(httpClient(c.TimeoutSecs)))
	}
	return geofencing.NewClient(c.BaseURL, opts...)
}

func initLocator(c config.LocationConfig) locator.Client {
	if c.BaseURL == "" {
		zap.L().Info("no location provider configured")
		return locator.StaticClient{}
	}
	retry := resilience.DefaultRetryConfig()
	if c.MaxRetries >= 0 {
		retry.MaxAttempts = c.MaxRetries + 1
	}
	opts := []locator.Option{
		locator.WithRateLimit(c.RatePerSec, c.Burst),
		locator.WithRetry(retry),
	}
	if c.TimeoutSecs > 0 {
		opts = append(opts, locator.WithHTTPClient(httpClient(c.TimeoutSecs)))
	}
	return locator.NewClient(c.BaseURL, opts...)
}
