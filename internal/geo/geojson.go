package geo

import (
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/geoalarm/internal/model"
)

const srid = 4326

// FeatureCollection renders a snapshot as GeoJSON. With circleSegments > 0
// each geofence becomes a polygon approximating its circle; otherwise it is
// a point carrying the radius as a property.
func FeatureCollection(set model.GeofenceSet, circleSegments int) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, set.Len())}
	for _, g := range set.Geofences {
		var geometry geom.T
		if circleSegments > 0 {
			geometry = circlePolygon(g, circleSegments)
		} else {
			geometry = geom.NewPointFlat(geom.XY, []float64{g.Longitude, g.Latitude}).SetSRID(srid)
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       g.RequestID(),
			Geometry: geometry,
			Properties: map[string]any{
				"radius_m":  g.Radius,
				"latitude":  g.Latitude,
				"longitude": g.Longitude,
			},
		})
	}
	return fc
}

func circlePolygon(g model.Geofence, segments int) *geom.Polygon {
	if segments < 3 {
		segments = 3
	}
	flat := make([]float64, 0, 2*(segments+1))
	for i := 0; i < segments; i++ {
		p := destination(g.Center(), 360*float64(i)/float64(segments), g.Radius)
		flat = append(flat, p.Longitude, p.Latitude)
	}
	// Close the ring.
	flat = append(flat, flat[0], flat[1])
	return geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)}).SetSRID(srid)
}
