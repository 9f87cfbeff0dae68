package rist

import (
	"testing"
	"time"

	"github.com/opd-ai/rist/native"
	"github.com/opd-ai/rist/native/sim"
	"github.com/stretchr/testify/assert"
)

func TestConfigResolve(t *testing.T) {
	eng := sim.New()

	lib, ms, flow := (&Config{Library: eng, StatsInterval: 250 * time.Millisecond, FlowID: 8}).resolve()
	assert.Same(t, eng, lib)
	assert.Equal(t, 250, ms)
	assert.Equal(t, uint32(8), flow)

	_, ms, _ = (&Config{Library: eng, StatsInterval: time.Microsecond}).resolve()
	assert.Equal(t, native.MinStatsIntervalMs, ms)

	_, ms, _ = (&Config{Library: eng, StatsInterval: 48 * time.Hour}).resolve()
	assert.Equal(t, native.MaxStatsIntervalMs, ms)
}

func TestNewConfigDefaults(t *testing.T) {
	t.Setenv("RIST_USE_SIMULATION", "true")

	cfg := NewConfig()
	assert.NotNil(t, cfg.Library)
	assert.Same(t, DefaultLibrary(), cfg.Library)
	assert.Positive(t, cfg.StatsInterval)
	assert.Zero(t, cfg.FlowID)

	lib, ms, _ := (*Config)(nil).resolve()
	assert.Same(t, DefaultLibrary(), lib)
	assert.Equal(t, int(cfg.StatsInterval.Milliseconds()), ms)
}
