// Package engine implements the user-facing geofence operations on top of
// the store, the location sampler and the alarm router.
package engine

import (
	"context"
	"errors"
	"io"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/geoalarm/internal/capability"
	"github.com/sells-group/geoalarm/internal/geo"
	"github.com/sells-group/geoalarm/internal/model"
	"github.com/sells-group/geoalarm/internal/monitoring"
	"github.com/sells-group/geoalarm/internal/store"
)

// Sampler produces a single position.
type Sampler interface {
	Sample(ctx context.Context) (model.Position, error)
}

// Ringer raises the entry effect.
type Ringer interface {
	Ring(ctx context.Context)
}

// Engine wires the components behind the user-facing operations.
type Engine struct {
	store   store.Store
	sampler Sampler
	caps    capability.Reader
	ringer  Ringer
	metrics *monitoring.Metrics
	printer *message.Printer
}

// Option configures the engine.
type Option func(*Engine)

// WithLanguage selects the language of status messages.
func WithLanguage(tag language.Tag) Option {
	return func(e *Engine) {
		e.printer = newPrinter(tag)
	}
}

// WithMetrics records check outcomes on m.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// New creates an Engine.
func New(st store.Store, sampler Sampler, caps capability.Reader, ringer Ringer, opts ...Option) *Engine {
	e := &Engine{
		store:   st,
		sampler: sampler,
		caps:    caps,
		ringer:  ringer,
		printer: newPrinter(language.English),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// SaveResult is the outcome of saving a geofence. Inside is set when the
// device position could be checked against the new geofence.
type SaveResult struct {
	Geofence model.Geofence `json:"geofence"`
	Inside   *bool          `json:"inside,omitempty"`
}

// SaveGeofence validates and stores a geofence, then checks whether the
// device is already inside it and rings if so. The check never fails the
// save.
func (e *Engine) SaveGeofence(ctx context.Context, lat, lon, radius float64) (SaveResult, error) {
	id, err := e.store.Insert(ctx, lat, lon, radius)
	if err != nil {
		return SaveResult{}, eris.Wrap(err, "engine: save geofence")
	}
	g := model.Geofence{ID: id, Latitude: lat, Longitude: lon, Radius: radius}
	res := SaveResult{Geofence: g}
	log := zap.L().With(zap.Int64("geofence_id", id))
	log.Info("engine: geofence saved", zap.Float64("radius", radius))

	if !e.caps.Current().FineLocation {
		log.Warn("engine: fine location not granted, skipping inside check")
		return res, nil
	}
	pos, err := e.sampler.Sample(ctx)
	if err != nil {
		log.Warn("engine: could not sample location for inside check", zap.Error(err))
		return res, nil
	}

	inside, dist := geo.Contains(pos, g)
	res.Inside = &inside
	log.Debug("engine: distance to new geofence", zap.Float64("distance_m", dist))
	if inside {
		log.Info("engine: inside newly saved geofence, ringing")
		e.ringer.Ring(ctx)
	}
	return res, nil
}

// CheckNow samples the position and evaluates it against every stored
// geofence, ringing on a hit. Failures are reported through the status.
func (e *Engine) CheckNow(ctx context.Context) model.CheckResult {
	pos, err := e.sampler.Sample(ctx)
	if err != nil {
		switch {
		case eris.Is(err, model.ErrPermissionDenied):
			e.metrics.IncCheck("denied")
			return model.CheckResult{Status: e.printer.Sprintf(msgNoPermission)}
		case eris.Is(err, model.ErrLocationUnavailable):
			e.metrics.IncCheck("unavailable")
			return model.CheckResult{Status: e.printer.Sprintf(msgNoLocation)}
		default:
			e.metrics.IncCheck("error")
			return model.CheckResult{Status: e.printer.Sprintf(msgCheckFailed, err.Error())}
		}
	}

	set, err := e.store.List(ctx)
	if err != nil {
		e.metrics.IncCheck("error")
		return model.CheckResult{Status: e.printer.Sprintf(msgCheckFailed, err.Error()), Position: &pos}
	}
	if set.Len() == 0 {
		e.metrics.IncCheck("no_geofences")
		return model.CheckResult{Status: e.printer.Sprintf(msgNoGeofences), Position: &pos}
	}

	m := geo.Evaluate(pos, set)
	res := model.CheckResult{Inside: &m.Found, Position: &pos, Membership: &m}
	if !m.Found {
		e.metrics.IncCheck("outside")
		res.Status = e.printer.Sprintf(msgOutside)
		return res
	}

	e.metrics.IncCheck("inside")
	g := m.Geofence
	res.Status = e.printer.Sprintf(msgInside, g.Latitude, g.Longitude, strconv.Itoa(int(g.Radius)))
	zap.L().Info("engine: inside geofence", zap.Int64("geofence_id", g.ID), zap.Float64("distance_m", *m.DistanceMeters))
	e.ringer.Ring(ctx)
	return res
}

// PinResult is the outcome of pinning the current location.
type PinResult struct {
	Status   string          `json:"status"`
	Position *model.Position `json:"position,omitempty"`
}

// PinCurrentLocation samples the position so a caller can pin it.
func (e *Engine) PinCurrentLocation(ctx context.Context) PinResult {
	pos, err := e.sampler.Sample(ctx)
	if err != nil {
		zap.L().Warn("engine: pin current location", zap.Error(err))
		return PinResult{Status: e.printer.Sprintf(msgNoLocation)}
	}
	return PinResult{Status: e.printer.Sprintf(msgPinned), Position: &pos}
}

// DeleteGeofence removes one geofence.
func (e *Engine) DeleteGeofence(ctx context.Context, id int64) error {
	return eris.Wrapf(e.store.Delete(ctx, id), "engine: delete geofence %d", id)
}

// ClearGeofences removes every geofence.
func (e *Engine) ClearGeofences(ctx context.Context) error {
	return eris.Wrap(e.store.Clear(ctx), "engine: clear geofences")
}

// ListGeofences returns the current snapshot.
func (e *Engine) ListGeofences(ctx context.Context) (model.GeofenceSet, error) {
	set, err := e.store.List(ctx)
	return set, eris.Wrap(err, "engine: list geofences")
}

// ImportFile is the YAML layout accepted by ImportGeofences.
type ImportFile struct {
	Geofences []model.Geofence `yaml:"geofences"`
}

// ImportGeofences reads geofences from YAML and inserts them in file order.
// Every entry is validated before anything is inserted. Ids in the file are
// ignored; the store assigns new ones.
func (e *Engine) ImportGeofences(ctx context.Context, r io.Reader) ([]int64, error) {
	var f ImportFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, eris.Wrapf(model.ErrInvalidGeofence, "engine: decode import: %v", err)
	}
	for i, g := range f.Geofences {
		if err := model.ValidateGeofence(g.Latitude, g.Longitude, g.Radius); err != nil {
			return nil, eris.Wrapf(err, "engine: import entry %d", i)
		}
	}

	ids := make([]int64, 0, len(f.Geofences))
	for i, g := range f.Geofences {
		id, err := e.store.Insert(ctx, g.Latitude, g.Longitude, g.Radius)
		if err != nil {
			return ids, eris.Wrapf(err, "engine: import entry %d", i)
		}
		ids = append(ids, id)
	}
	zap.L().Info("engine: geofences imported", zap.Int("count", len(ids)))
	return ids, nil
}
