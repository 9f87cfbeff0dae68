package factory

import (
	"os"
	"strconv"

	"github.com/opd-ai/rist/native"
	"github.com/opd-ai/rist/native/sim"
	"github.com/sirupsen/logrus"
)

// DefaultConfig returns the configuration used when the caller supplies
// none: the native engine when it is compiled in, a one second stats
// period, and any RIST_* environment overrides applied.
func DefaultConfig() native.Config {
	cfg := native.Config{
		UseSimulation:   !nativeAvailable,
		StatsIntervalMs: native.DefaultStatsIntervalMs,
	}
	applyEnvironmentOverrides(&cfg)
	return cfg
}

// NewLibrary returns the implementation selected by cfg together with the
// effective configuration. An invalid configuration is logged and its
// stats interval reset to the default rather than rejected.
func NewLibrary(cfg native.Config) (native.Library, native.Config) {
	if err := cfg.Validate(); err != nil {
		logrus.WithFields(logrus.Fields{
			"function":    "NewLibrary",
			"error":       err.Error(),
			"using_value": native.DefaultStatsIntervalMs,
		}).Warn("Invalid native configuration, using default stats interval")
		cfg.StatsIntervalMs = native.DefaultStatsIntervalMs
	}

	if !cfg.UseSimulation && !nativeAvailable {
		logrus.WithFields(logrus.Fields{
			"function": "NewLibrary",
		}).Warn("librist bindings not compiled in, falling back to simulation")
		cfg.UseSimulation = true
	}

	logrus.WithFields(logrus.Fields{
		"function":          "NewLibrary",
		"use_simulation":    cfg.UseSimulation,
		"stats_interval_ms": cfg.StatsIntervalMs,
	}).Info("Creating native library")

	if cfg.UseSimulation {
		return sim.New(), cfg
	}
	return newNative(), cfg
}

// NativeAvailable reports whether the librist bindings were compiled in.
func NativeAvailable() bool {
	return nativeAvailable
}

func applyEnvironmentOverrides(cfg *native.Config) {
	parseSimulationSetting(cfg)
	parseStatsIntervalSetting(cfg)
}

func parseSimulationSetting(cfg *native.Config) {
	raw := os.Getenv("RIST_USE_SIMULATION")
	if raw == "" {
		return
	}
	useSim, err := strconv.ParseBool(raw)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":    "parseSimulationSetting",
			"env_var":     "RIST_USE_SIMULATION",
			"value":       raw,
			"error":       err.Error(),
			"using_value": cfg.UseSimulation,
		}).Warn("Failed to parse RIST_USE_SIMULATION environment variable, using default")
		return
	}
	cfg.UseSimulation = useSim
}

func parseStatsIntervalSetting(cfg *native.Config) {
	raw := os.Getenv("RIST_STATS_INTERVAL_MS")
	if raw == "" {
		return
	}
	interval, err := strconv.Atoi(raw)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":    "parseStatsIntervalSetting",
			"env_var":     "RIST_STATS_INTERVAL_MS",
			"value":       raw,
			"error":       err.Error(),
			"using_value": cfg.StatsIntervalMs,
		}).Warn("Failed to parse RIST_STATS_INTERVAL_MS environment variable, using default")
		return
	}
	if interval < native.MinStatsIntervalMs || interval > native.MaxStatsIntervalMs {
		logrus.WithFields(logrus.Fields{
			"function":    "parseStatsIntervalSetting",
			"env_var":     "RIST_STATS_INTERVAL_MS",
			"value":       interval,
			"min":         native.MinStatsIntervalMs,
			"max":         native.MaxStatsIntervalMs,
			"using_value": cfg.StatsIntervalMs,
		}).Warn("RIST_STATS_INTERVAL_MS value out of bounds, using default")
		return
	}
	cfg.StatsIntervalMs = interval
}
