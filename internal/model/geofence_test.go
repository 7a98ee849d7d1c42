package model

import (
	"math"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

func TestValidateGeofence(t *testing.T) {
	tests := []struct {
		name    string
		lat     float64
		lon     float64
		radius  float64
		wantErr bool
	}{
		{name: "valid", lat: 37.0, lon: -122.0, radius: 200},
		{name: "poles and antimeridian", lat: -90, lon: 180, radius: 1},
		{name: "latitude too high", lat: 90.5, lon: 0, radius: 10, wantErr: true},
		{name: "longitude too low", lat: 0, lon: -180.1, radius: 10, wantErr: true},
		{name: "zero radius", lat: 0, lon: 0, radius: 0, wantErr: true},
		{name: "negative radius", lat: 0, lon: 0, radius: -5, wantErr: true},
		{name: "NaN latitude", lat: math.NaN(), lon: 0, radius: 10, wantErr: true},
		{name: "NaN longitude", lat: 0, lon: math.NaN(), radius: 10, wantErr: true},
		{name: "NaN radius", lat: 0, lon: 0, radius: math.NaN(), wantErr: true},
		{name: "infinite radius", lat: 0, lon: 0, radius: math.Inf(1), wantErr: true},
		{name: "infinite longitude", lat: 0, lon: math.Inf(-1), radius: 10, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateGeofence(tt.lat, tt.lon, tt.radius)
			if tt.wantErr {
				assert.True(t, eris.Is(err, ErrInvalidGeofence))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestGeofence_RequestID(t *testing.T) {
	assert.Equal(t, "42", Geofence{ID: 42}.RequestID())
}

func TestGeofenceSet_Find(t *testing.T) {
	set := GeofenceSet{Geofences: []Geofence{{ID: 1}, {ID: 7, Radius: 50}}}

	g, ok := set.Find(7)
	assert.True(t, ok)
	assert.Equal(t, 50.0, g.Radius)

	_, ok = set.Find(3)
	assert.False(t, ok)
}

func TestCapabilities_CanRegister(t *testing.T) {
	tests := []struct {
		name string
		caps Capabilities
		want bool
	}{
		{name: "nothing granted", caps: Capabilities{BackgroundRequired: true}, want: false},
		{name: "fine only, background required", caps: Capabilities{FineLocation: true, BackgroundRequired: true}, want: false},
		{name: "fine and background", caps: Capabilities{FineLocation: true, BackgroundLocation: true, BackgroundRequired: true}, want: true},
		{name: "fine only, background not required", caps: Capabilities{FineLocation: true}, want: true},
		{name: "background without fine", caps: Capabilities{BackgroundLocation: true}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.caps.CanRegister())
		})
	}
}
