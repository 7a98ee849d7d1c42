package geo

import (
	"math"

	"github.com/sells-group/geoalarm/internal/model"
)

// WGS84 ellipsoid parameters.
const (
	wgs84A = 6378137.0
	wgs84F = 1 / 298.257223563
	wgs84B = (1 - wgs84F) * wgs84A

	earthRadiusMeters = 6371000

	vincentyMaxIter   = 20
	vincentyTolerance = 1e-12
)

// Distance returns the geodesic distance in meters between two positions on
// the WGS84 ellipsoid. Nearly antipodal pairs, where the iteration does not
// converge, fall back to the great-circle distance.
func Distance(a, b model.Position) float64 {
	if d, ok := vincenty(a.Latitude, a.Longitude, b.Latitude, b.Longitude); ok {
		return d
	}
	return haversine(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
}

func vincenty(lat1, lon1, lat2, lon2 float64) (float64, bool) {
	L := toRad(lon2 - lon1)
	u1 := math.Atan((1 - wgs84F) * math.Tan(toRad(lat1)))
	u2 := math.Atan((1 - wgs84F) * math.Tan(toRad(lat2)))
	sinU1, cosU1 := math.Sincos(u1)
	sinU2, cosU2 := math.Sincos(u2)

	lambda := L
	for i := 0; i < vincentyMaxIter; i++ {
		sinL, cosL := math.Sincos(lambda)
		sinSigma := math.Hypot(cosU2*sinL, cosU1*sinU2-sinU1*cosU2*cosL)
		if sinSigma == 0 {
			return 0, true
		}
		cosSigma := sinU1*sinU2 + cosU1*cosU2*cosL
		sigma := math.Atan2(sinSigma, cosSigma)
		sinAlpha := cosU1 * cosU2 * sinL / sinSigma
		cos2Alpha := 1 - sinAlpha*sinAlpha

		// Equatorial lines have cos2Alpha == 0.
		cos2SigmaM := 0.0
		if cos2Alpha != 0 {
			cos2SigmaM = cosSigma - 2*sinU1*sinU2/cos2Alpha
		}

		c := wgs84F / 16 * cos2Alpha * (4 + wgs84F*(4-3*cos2Alpha))
		prev := lambda
		lambda = L + (1-c)*wgs84F*sinAlpha*
			(sigma+c*sinSigma*(cos2SigmaM+c*cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)))

		if math.IsNaN(lambda) {
			return 0, false
		}
		if math.Abs(lambda-prev) < vincentyTolerance {
			uSq := cos2Alpha * (wgs84A*wgs84A - wgs84B*wgs84B) / (wgs84B * wgs84B)
			A := 1 + uSq/16384*(4096+uSq*(-768+uSq*(320-175*uSq)))
			B := uSq / 1024 * (256 + uSq*(-128+uSq*(74-47*uSq)))
			deltaSigma := B * sinSigma * (cos2SigmaM + B/4*(cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)-
				B/6*cos2SigmaM*(-3+4*sinSigma*sinSigma)*(-3+4*cos2SigmaM*cos2SigmaM)))
			return wgs84B * A * (sigma - deltaSigma), true
		}
	}
	return 0, false
}

func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// destination returns the point reached by travelling meters along bearing
// (degrees clockwise from north) on a sphere.
func destination(p model.Position, bearing, meters float64) model.Position {
	delta := meters / earthRadiusMeters
	theta := toRad(bearing)
	phi1 := toRad(p.Latitude)
	lambda1 := toRad(p.Longitude)

	sinPhi2 := math.Sin(phi1)*math.Cos(delta) + math.Cos(phi1)*math.Sin(delta)*math.Cos(theta)
	phi2 := math.Asin(sinPhi2)
	lambda2 := lambda1 + math.Atan2(
		math.Sin(theta)*math.Sin(delta)*math.Cos(phi1),
		math.Cos(delta)-math.Sin(phi1)*sinPhi2,
	)

	lon := math.Mod(toDeg(lambda2)+540, 360) - 180
	return model.Position{Latitude: toDeg(phi2), Longitude: lon}
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

func toDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}
