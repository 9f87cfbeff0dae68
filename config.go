package rist

import (
	"sync"
	"time"

	"github.com/opd-ai/rist/native"
	"github.com/opd-ai/rist/native/factory"
)

// Config carries the session settings that are not part of the wire
// protocol.
type Config struct {
	// Library is the engine the session runs on. Nil selects the
	// process default from DefaultLibrary.
	Library native.Library

	// StatsInterval is the period of the stats callback.
	StatsInterval time.Duration

	// FlowID is the sender flow id. Zero lets the engine choose one.
	// Receivers ignore it.
	FlowID uint32
}

// NewConfig returns the default session configuration.
func NewConfig() *Config {
	lib, interval := defaultLibrary()
	return &Config{
		Library:       lib,
		StatsInterval: interval,
	}
}

var (
	defaultOnce     sync.Once
	defaultLib      native.Library
	defaultInterval time.Duration
)

func defaultLibrary() (native.Library, time.Duration) {
	defaultOnce.Do(func() {
		lib, cfg := factory.NewLibrary(factory.DefaultConfig())
		defaultLib = lib
		defaultInterval = time.Duration(cfg.StatsIntervalMs) * time.Millisecond
	})
	return defaultLib, defaultInterval
}

// DefaultLibrary returns the engine shared by sessions created without an
// explicit Library. It is chosen once per process.
func DefaultLibrary() native.Library {
	lib, _ := defaultLibrary()
	return lib
}

// resolve fills unset fields with defaults and returns the effective
// library and stats interval in milliseconds.
func (c *Config) resolve() (native.Library, int, uint32) {
	if c == nil {
		c = &Config{}
	}
	lib := c.Library
	interval := c.StatsInterval
	if lib == nil || interval <= 0 {
		defLib, defInterval := defaultLibrary()
		if lib == nil {
			lib = defLib
		}
		if interval <= 0 {
			interval = defInterval
		}
	}

	ms := interval.Milliseconds()
	switch {
	case ms < native.MinStatsIntervalMs:
		ms = native.MinStatsIntervalMs
	case ms > native.MaxStatsIntervalMs:
		ms = native.MaxStatsIntervalMs
	}
	return lib, int(ms), c.FlowID
}
