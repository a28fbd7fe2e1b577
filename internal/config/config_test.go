package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
addr: ":9000"
confidence_threshold: 0.6
max_green_time: 60
tick_interval: 200ms
lane_deadline: 150ms
camera_sources:
  - /tmp/a
  - /tmp/b
  - /tmp/c
  - /tmp/d
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, 0.6, cfg.ConfidenceThreshold)
	assert.Equal(t, 60, cfg.MaxGreenTime)
	assert.Equal(t, 200*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, []string{"/tmp/a", "/tmp/b", "/tmp/c", "/tmp/d"}, cfg.CameraSources)
	// Untouched fields keep their defaults.
	assert.Equal(t, Default().YellowDuration, cfg.YellowDuration)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"wrong lane count", func(c *Config) { c.CameraSources = []string{"one"} }},
		{"confidence above one", func(c *Config) { c.ConfidenceThreshold = 1.5 }},
		{"negative confidence", func(c *Config) { c.ConfidenceThreshold = -0.1 }},
		{"max below min green", func(c *Config) { c.MinGreenTime = 20; c.MaxGreenTime = 10 }},
		{"zero yellow", func(c *Config) { c.YellowDuration = 0 }},
		{"zero priority", func(c *Config) { c.EmergencyPriorityTime = 0 }},
		{"zero stride", func(c *Config) { c.ProcessEveryNFrames = 0 }},
		{"deadline beyond tick", func(c *Config) { c.LaneDeadline = c.TickInterval + time.Millisecond }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestStoreApply(t *testing.T) {
	store, err := NewStore(Default())
	require.NoError(t, err)

	conf := 0.7
	yellow := 3
	next, err := store.Apply(Update{ConfidenceThreshold: &conf, YellowDuration: &yellow})
	require.NoError(t, err)
	assert.Equal(t, 0.7, next.ConfidenceThreshold)
	assert.Equal(t, 3, next.YellowDuration)
	assert.Equal(t, 0.7, store.Current().ConfidenceThreshold)
	// Untouched fields survive the update.
	assert.Equal(t, Default().MaxGreenTime, next.MaxGreenTime)
}

func TestStoreApplyRejectedKeepsPrevious(t *testing.T) {
	store, err := NewStore(Default())
	require.NoError(t, err)
	before := store.Current()

	bad := 7.0
	_, err = store.Apply(Update{ConfidenceThreshold: &bad})
	require.Error(t, err)
	assert.Same(t, before, store.Current())
}

func TestStoreSnapshotIsolation(t *testing.T) {
	store, err := NewStore(Default())
	require.NoError(t, err)

	held := store.Current()
	conf := 0.9
	_, err = store.Apply(Update{ConfidenceThreshold: &conf})
	require.NoError(t, err)

	// A snapshot taken before the update is unaffected by it.
	assert.Equal(t, Default().ConfidenceThreshold, held.ConfidenceThreshold)
}

func TestStoreApplyCrossFieldValidation(t *testing.T) {
	store, err := NewStore(Default())
	require.NoError(t, err)

	// min above the current max must be rejected as a pair.
	min := Default().MaxGreenTime + 1
	_, err = store.Apply(Update{MinGreenTime: &min})
	assert.Error(t, err)
}
