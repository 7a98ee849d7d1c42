package geo

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/geoalarm/internal/model"
)

func TestFeatureCollection_Points(t *testing.T) {
	set := model.GeofenceSet{Geofences: []model.Geofence{
		{ID: 4, Latitude: 37.0, Longitude: -122.0, Radius: 200},
	}}

	fc := FeatureCollection(set, 0)
	require.Len(t, fc.Features, 1)
	f := fc.Features[0]
	assert.Equal(t, "4", f.ID)

	pt, ok := f.Geometry.(*geom.Point)
	require.True(t, ok)
	assert.Equal(t, -122.0, pt.X())
	assert.Equal(t, 37.0, pt.Y())
	assert.Equal(t, 200.0, f.Properties["radius_m"])

	raw, err := json.Marshal(fc)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"type":"FeatureCollection"`)
	assert.Contains(t, string(raw), `"coordinates":[-122,37]`)
}

func TestFeatureCollection_Circles(t *testing.T) {
	g := model.Geofence{ID: 1, Latitude: 37.0, Longitude: -122.0, Radius: 200}
	fc := FeatureCollection(model.GeofenceSet{Geofences: []model.Geofence{g}}, 16)
	require.Len(t, fc.Features, 1)

	poly, ok := fc.Features[0].Geometry.(*geom.Polygon)
	require.True(t, ok)
	ring := poly.LinearRing(0)
	require.Equal(t, 17, ring.NumCoords())
	assert.Equal(t, ring.Coord(0), ring.Coord(16), "ring is closed")

	for i := 0; i < 16; i++ {
		c := ring.Coord(i)
		d := Distance(g.Center(), model.Position{Latitude: c.Y(), Longitude: c.X()})
		assert.InDelta(t, 200, d, 2)
	}
}

func TestFeatureCollection_Empty(t *testing.T) {
	fc := FeatureCollection(model.GeofenceSet{}, 0)
	assert.Empty(t, fc.Features)
}
