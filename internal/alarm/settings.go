package alarm

import (
	"sync/atomic"

	"github.com/sells-group/geoalarm/internal/config"
)

// Settings are the user toggles consulted before every effect.
type Settings struct {
	SoundEnabled         bool `json:"sound_enabled"`
	VibrationEnabled     bool `json:"vibration_enabled"`
	NotificationsEnabled bool `json:"notifications_enabled"`
	Repeat               bool `json:"repeat"`
}

// DefaultSettings enables every effect.
func DefaultSettings() Settings {
	return Settings{SoundEnabled: true, VibrationEnabled: true, NotificationsEnabled: true}
}

// SettingsFromConfig extracts the user toggles from the alarm config section.
func SettingsFromConfig(cfg config.AlarmConfig) Settings {
	return Settings{
		SoundEnabled:         cfg.SoundEnabled,
		VibrationEnabled:     cfg.VibrationEnabled,
		NotificationsEnabled: cfg.NotificationsEnabled,
		Repeat:               cfg.Repeat,
	}
}

// SettingsStore holds the current settings. Safe for concurrent use.
type SettingsStore struct {
	v atomic.Pointer[Settings]
}

// NewSettingsStore returns a store holding s.
func NewSettingsStore(s Settings) *SettingsStore {
	st := &SettingsStore{}
	st.Store(s)
	return st
}

// Load returns the current settings.
func (st *SettingsStore) Load() Settings {
	return *st.v.Load()
}

// Store replaces the settings.
func (st *SettingsStore) Store(s Settings) {
	st.v.Store(&s)
}
