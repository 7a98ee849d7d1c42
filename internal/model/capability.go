package model

// Capabilities is the permission state granted by the surrounding platform.
type Capabilities struct {
	FineLocation       bool `json:"fine_location" mapstructure:"fine_location"`
	BackgroundLocation bool `json:"background_location" mapstructure:"background_location"`
	Notifications      bool `json:"notifications" mapstructure:"notifications"`

	// BackgroundRequired is false on platform versions that grant background
	// access together with fine location.
	BackgroundRequired bool `json:"background_required" mapstructure:"background_required"`
}

// CanRegister reports whether geofences may be registered for monitoring.
func (c Capabilities) CanRegister() bool {
	return c.FineLocation && (c.BackgroundLocation || !c.BackgroundRequired)
}
