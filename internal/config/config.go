package config

import (
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store        StoreConfig        `yaml:"store" mapstructure:"store"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Geofencing   GeofencingConfig   `yaml:"geofencing" mapstructure:"geofencing"`
	Location     LocationConfig     `yaml:"location" mapstructure:"location"`
	Notify       NotifyConfig       `yaml:"notify" mapstructure:"notify"`
	Alarm        AlarmConfig        `yaml:"alarm" mapstructure:"alarm"`
	Capabilities CapabilitiesConfig `yaml:"capabilities" mapstructure:"capabilities"`
	Platform     PlatformConfig     `yaml:"platform" mapstructure:"platform"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// GeofencingConfig points at the platform geofence registration service.
// An empty BaseURL disables registration.
type GeofencingConfig struct {
	BaseURL          string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs      int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	BreakerThreshold int    `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerResetSecs int    `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// LocationConfig points at the platform location provider.
type LocationConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	Burst       int     `yaml:"burst" mapstructure:"burst"`
	MaxRetries  int     `yaml:"max_retries" mapstructure:"max_retries"`
}

// NotifyConfig configures the effect sink webhook.
type NotifyConfig struct {
	WebhookURL  string `yaml:"webhook_url" mapstructure:"webhook_url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// AlarmConfig holds the user settings and timings for the alarm.
type AlarmConfig struct {
	SoundEnabled         bool `yaml:"sound_enabled" mapstructure:"sound_enabled"`
	VibrationEnabled     bool `yaml:"vibration_enabled" mapstructure:"vibration_enabled"`
	NotificationsEnabled bool `yaml:"notifications_enabled" mapstructure:"notifications_enabled"`
	Repeat               bool `yaml:"repeat" mapstructure:"repeat"`
	RepeatIntervalMs     int  `yaml:"repeat_interval_ms" mapstructure:"repeat_interval_ms"`
	SnoozeDelayMs        int  `yaml:"snooze_delay_ms" mapstructure:"snooze_delay_ms"`
}

// CapabilitiesConfig is the permission state assumed at startup.
type CapabilitiesConfig struct {
	FineLocation       bool `yaml:"fine_location" mapstructure:"fine_location"`
	BackgroundLocation bool `yaml:"background_location" mapstructure:"background_location"`
	Notifications      bool `yaml:"notifications" mapstructure:"notifications"`
}

// PlatformConfig describes the host platform.
type PlatformConfig struct {
	APILevel int `yaml:"api_level" mapstructure:"api_level"`
}

// BackgroundLocationAPILevel is the first platform level that grants
// background location separately from fine location.
const BackgroundLocationAPILevel = 29

// BackgroundRequired reports whether background location must be granted
// explicitly on this platform.
func (p PlatformConfig) BackgroundRequired() bool {
	return p.APILevel >= BackgroundLocationAPILevel
}

// NewViper returns a viper instance with file lookup, environment binding
// and defaults applied.
func NewViper() *viper.Viper {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("GEOALARM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "geoalarm.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("geofencing.timeout_secs", 10)
	v.SetDefault("geofencing.breaker_threshold", 5)
	v.SetDefault("geofencing.breaker_reset_secs", 30)
	v.SetDefault("location.timeout_secs", 15)
	v.SetDefault("location.rate_per_sec", 2.0)
	v.SetDefault("location.burst", 2)
	v.SetDefault("location.max_retries", 2)
	v.SetDefault("notify.timeout_secs", 10)
	v.SetDefault("alarm.sound_enabled", true)
	v.SetDefault("alarm.vibration_enabled", true)
	v.SetDefault("alarm.notifications_enabled", true)
	v.SetDefault("alarm.repeat", false)
	v.SetDefault("alarm.repeat_interval_ms", 5000)
	v.SetDefault("alarm.snooze_delay_ms", 60000)
	v.SetDefault("capabilities.fine_location", true)
	v.SetDefault("capabilities.background_location", true)
	v.SetDefault("capabilities.notifications", true)
	v.SetDefault("platform.api_level", 34)

	return v
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	return LoadWithViper(NewViper())
}

// LoadWithViper reads configuration through an already configured viper.
func LoadWithViper(v *viper.Viper) (*Config, error) {
	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// WatchSettings calls onChange with the alarm section every time the config
// file changes. It reports false when no config file is in use.
func WatchSettings(v *viper.Viper, onChange func(AlarmConfig)) bool {
	if v.ConfigFileUsed() == "" {
		return false
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		var alarm AlarmConfig
		if err := v.UnmarshalKey("alarm", &alarm); err != nil {
			zap.L().Warn("config: reload alarm settings", zap.String("file", e.Name), zap.Error(err))
			return
		}
		zap.L().Info("config: alarm settings reloaded",
			zap.String("file", e.Name),
			zap.Bool("sound_enabled", alarm.SoundEnabled),
			zap.Bool("vibration_enabled", alarm.VibrationEnabled),
			zap.Bool("notifications_enabled", alarm.NotificationsEnabled),
		)
		onChange(alarm)
	})
	v.WatchConfig()
	return true
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
