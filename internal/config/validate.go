package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Validate checks the fields required by the given run mode ("serve" or
// "cli") and returns every problem found at once.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch c.Store.Driver {
	case "sqlite":
		if c.Store.Path == "" {
			problems = append(problems, "store.path is required for sqlite")
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required for postgres")
		}
	default:
		problems = append(problems, fmt.Sprintf("store.driver %q must be sqlite or postgres", c.Store.Driver))
	}

	if c.Alarm.RepeatIntervalMs <= 0 {
		problems = append(problems, "alarm.repeat_interval_ms must be > 0")
	}
	if c.Alarm.SnoozeDelayMs <= 0 {
		problems = append(problems, "alarm.snooze_delay_ms must be > 0")
	}
	if c.Location.RatePerSec < 0 {
		problems = append(problems, "location.rate_per_sec must be >= 0")
	}

	switch mode {
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			problems = append(problems, "server.port must be > 0 and <= 65535")
		}
	case "cli":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}
