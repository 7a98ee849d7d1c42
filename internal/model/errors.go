package model

import "github.com/rotisserie/eris"

// Error taxonomy shared by every component. Wrap with eris and test with eris.Is.
var (
	ErrPermissionDenied    = eris.New("permission denied")
	ErrLocationUnavailable = eris.New("location unavailable")
	ErrPersistence         = eris.New("persistence failure")
	ErrRegistration        = eris.New("geofence registration failure")
	ErrGeofenceEvent       = eris.New("geofence event error")
	ErrInvalidGeofence     = eris.New("invalid geofence")
)
