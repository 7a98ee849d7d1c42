// Package geo provides geodesic distance and geofence membership evaluation.
package geo

import "github.com/sells-group/geoalarm/internal/model"

// Evaluate returns the first geofence, in snapshot order, whose center lies
// within its radius of pos. Overlapping geofences resolve to the earliest
// one, not the nearest.
func Evaluate(pos model.Position, set model.GeofenceSet) model.MembershipResult {
	for i := range set.Geofences {
		g := set.Geofences[i]
		if inside, d := Contains(pos, g); inside {
			return model.MembershipResult{Found: true, Geofence: &g, DistanceMeters: &d}
		}
	}
	return model.MembershipResult{}
}

// Contains reports whether pos is inside g (distance <= radius) along with
// the distance to its center.
func Contains(pos model.Position, g model.Geofence) (bool, float64) {
	d := Distance(pos, g.Center())
	return d <= g.Radius, d
}
