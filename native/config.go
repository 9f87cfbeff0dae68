package native

import (
	"errors"
	"fmt"
)

// Config selects and tunes a Library implementation.
type Config struct {
	// UseSimulation selects the pure-Go engine even when cgo bindings
	// are compiled in.
	UseSimulation bool

	// StatsIntervalMs is the default stats callback period for sessions
	// created without an explicit interval.
	StatsIntervalMs int
}

// Validation bounds for Config.
const (
	// MinStatsIntervalMs is the smallest stats period librist accepts.
	MinStatsIntervalMs = 1
	// MaxStatsIntervalMs caps the period at one hour.
	MaxStatsIntervalMs = 3600000
	// DefaultStatsIntervalMs matches the one second period librist
	// applications conventionally use.
	DefaultStatsIntervalMs = 1000
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid native config")

// Validate checks the configuration bounds.
func (c *Config) Validate() error {
	if c.StatsIntervalMs < MinStatsIntervalMs || c.StatsIntervalMs > MaxStatsIntervalMs {
		return fmt.Errorf("%w: stats interval %dms outside [%d, %d]",
			ErrInvalidConfig, c.StatsIntervalMs, MinStatsIntervalMs, MaxStatsIntervalMs)
	}
	return nil
}
