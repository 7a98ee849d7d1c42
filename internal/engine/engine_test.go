package engine

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/geoalarm/internal/capability"
	"github.com/sells-group/geoalarm/internal/model"
	"github.com/sells-group/geoalarm/internal/store"
)

type fakeSampler struct {
	pos model.Position
	err error
}

func (f *fakeSampler) Sample(context.Context) (model.Position, error) {
	return f.pos, f.err
}

type countingRinger struct {
	mu    sync.Mutex
	rings int
}

func (r *countingRinger) Ring(context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rings++
}

func (r *countingRinger) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rings
}

type fixture struct {
	engine  *Engine
	store   *store.GeofenceStore
	sampler *fakeSampler
	caps    *capability.Source
	ringer  *countingRinger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "engine.db"))
	require.NoError(t, err)
	st, err := store.New(context.Background(), repo)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck

	f := &fixture{
		store:   st,
		sampler: &fakeSampler{pos: model.Position{Latitude: 37.4219, Longitude: -122.084}},
		caps:    capability.NewSource(model.Capabilities{FineLocation: true, BackgroundLocation: true, Notifications: true}),
		ringer:  &countingRinger{},
	}
	t.Cleanup(f.caps.Close)
	f.engine = New(st, f.sampler, f.caps, f.ringer)
	return f
}

func TestSaveGeofence_InsideRings(t *testing.T) {
	f := newFixture(t)

	res, err := f.engine.SaveGeofence(context.Background(), 37.4219, -122.084, 200)
	require.NoError(t, err)
	assert.NotZero(t, res.Geofence.ID)
	require.NotNil(t, res.Inside)
	assert.True(t, *res.Inside)
	assert.Equal(t, 1, f.ringer.count())
}

func TestSaveGeofence_OutsideDoesNotRing(t *testing.T) {
	f := newFixture(t)

	res, err := f.engine.SaveGeofence(context.Background(), 40.7128, -74.006, 100)
	require.NoError(t, err)
	require.NotNil(t, res.Inside)
	assert.False(t, *res.Inside)
	assert.Zero(t, f.ringer.count())
}

func TestSaveGeofence_NoFineLocationSkipsCheck(t *testing.T) {
	f := newFixture(t)
	f.caps.Set(model.Capabilities{})

	res, err := f.engine.SaveGeofence(context.Background(), 37.4219, -122.084, 200)
	require.NoError(t, err)
	assert.Nil(t, res.Inside)
	assert.Zero(t, f.ringer.count())

	set, err := f.engine.ListGeofences(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, set.Len())
}

func TestSaveGeofence_SampleFailureStillSaves(t *testing.T) {
	f := newFixture(t)
	f.sampler.err = eris.Wrap(model.ErrLocationUnavailable, "no fix")

	res, err := f.engine.SaveGeofence(context.Background(), 37.4219, -122.084, 200)
	require.NoError(t, err)
	assert.NotZero(t, res.Geofence.ID)
	assert.Nil(t, res.Inside)
	assert.Zero(t, f.ringer.count())
}

func TestSaveGeofence_Invalid(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.SaveGeofence(context.Background(), 91, 0, 100)
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrInvalidGeofence))

	_, err = f.engine.SaveGeofence(context.Background(), 0, 0, 0)
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrInvalidGeofence))

	_, err = f.engine.SaveGeofence(context.Background(), math.NaN(), 0, 10)
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrInvalidGeofence))
	assert.False(t, eris.Is(err, model.ErrPersistence))
}

func TestImportGeofences_NaNRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc := "geofences:\n  - {latitude: .nan, longitude: 0, radius: 10}\n"
	_, err := f.engine.ImportGeofences(ctx, strings.NewReader(doc))
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrInvalidGeofence))

	set, err := f.engine.ListGeofences(ctx)
	require.NoError(t, err)
	assert.Zero(t, set.Len())
}

func TestCheckNow_Inside(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.store.Insert(ctx, 37.4219, -122.084, 1500.7)
	require.NoError(t, err)

	res := f.engine.CheckNow(ctx)
	assert.Equal(t, "You are inside geofence at Lat 37.4219, Lon -122.0840 (radius 1500m)", res.Status)
	require.NotNil(t, res.Inside)
	assert.True(t, *res.Inside)
	require.NotNil(t, res.Membership)
	require.NotNil(t, res.Membership.Geofence)
	assert.Equal(t, 1, f.ringer.count())
}

func TestCheckNow_FirstHitWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first, err := f.store.Insert(ctx, 37.4219, -122.084, 500)
	require.NoError(t, err)
	_, err = f.store.Insert(ctx, 37.4220, -122.084, 500)
	require.NoError(t, err)

	res := f.engine.CheckNow(ctx)
	require.NotNil(t, res.Membership)
	require.NotNil(t, res.Membership.Geofence)
	assert.Equal(t, first, res.Membership.Geofence.ID)
	assert.Equal(t, 1, f.ringer.count())
}

func TestCheckNow_Outside(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.store.Insert(ctx, 40.7128, -74.006, 100)
	require.NoError(t, err)

	res := f.engine.CheckNow(ctx)
	assert.Equal(t, "You are not inside any geofence.", res.Status)
	require.NotNil(t, res.Inside)
	assert.False(t, *res.Inside)
	assert.Zero(t, f.ringer.count())
}

func TestCheckNow_NoGeofences(t *testing.T) {
	f := newFixture(t)

	res := f.engine.CheckNow(context.Background())
	assert.Equal(t, "No geofences saved.", res.Status)
	assert.Nil(t, res.Inside)
	assert.NotNil(t, res.Position)
}

func TestCheckNow_SamplerFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"unavailable", eris.Wrap(model.ErrLocationUnavailable, "no fix"), "Could not get current location."},
		{"denied", eris.Wrap(model.ErrPermissionDenied, "no fine location"), "Location permission not granted."},
		{"other", errors.New("boom"), "Error checking geofence: boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.sampler.err = tt.err

			res := f.engine.CheckNow(context.Background())
			assert.Equal(t, tt.want, res.Status)
			assert.Nil(t, res.Position)
			assert.Zero(t, f.ringer.count())
		})
	}
}

func TestPinCurrentLocation(t *testing.T) {
	f := newFixture(t)

	res := f.engine.PinCurrentLocation(context.Background())
	assert.Equal(t, "Pinned your current location.", res.Status)
	require.NotNil(t, res.Position)
	assert.InDelta(t, 37.4219, res.Position.Latitude, 1e-9)

	f.sampler.err = eris.Wrap(model.ErrLocationUnavailable, "no fix")
	res = f.engine.PinCurrentLocation(context.Background())
	assert.Equal(t, "Could not get current location.", res.Status)
	assert.Nil(t, res.Position)
}

func TestDeleteAndClear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id1, err := f.store.Insert(ctx, 1, 1, 10)
	require.NoError(t, err)
	_, err = f.store.Insert(ctx, 2, 2, 10)
	require.NoError(t, err)

	require.NoError(t, f.engine.DeleteGeofence(ctx, id1))
	set, err := f.engine.ListGeofences(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, set.Len())
	_, found := set.Find(id1)
	assert.False(t, found)

	require.NoError(t, f.engine.DeleteGeofence(ctx, 9999))

	require.NoError(t, f.engine.ClearGeofences(ctx))
	set, err = f.engine.ListGeofences(ctx)
	require.NoError(t, err)
	assert.Zero(t, set.Len())
}

func TestImportGeofences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc := `
geofences:
  - latitude: 37.4219
    longitude: -122.084
    radius: 200
  - id: 42
    latitude: 51.5074
    longitude: -0.1278
    radius: 1000
`
	ids, err := f.engine.ImportGeofences(ctx, strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Less(t, ids[0], ids[1])
	assert.NotEqual(t, int64(42), ids[1])

	set, err := f.engine.ListGeofences(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, set.Len())
	assert.InDelta(t, 51.5074, set.Geofences[1].Latitude, 1e-9)
}

func TestImportGeofences_InvalidEntryInsertsNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc := `
geofences:
  - latitude: 10
    longitude: 10
    radius: 50
  - latitude: 10
    longitude: 200
    radius: 50
`
	_, err := f.engine.ImportGeofences(ctx, strings.NewReader(doc))
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrInvalidGeofence))

	set, err := f.engine.ListGeofences(ctx)
	require.NoError(t, err)
	assert.Zero(t, set.Len())
}

func TestImportGeofences_Malformed(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.ImportGeofences(context.Background(), strings.NewReader("geofences: [unclosed"))
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrInvalidGeofence))
}

func TestImportGeofences_Empty(t *testing.T) {
	f := newFixture(t)

	ids, err := f.engine.ImportGeofences(context.Background(), strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, ids)
}
