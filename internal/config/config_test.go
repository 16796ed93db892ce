package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, Validate(cfg))

	assert.Equal(t, int64(500), cfg.Window.VolumeWindowMs)
	assert.Equal(t, int64(10), cfg.Window.RateWindowSec)
	assert.Equal(t, 5, cfg.Feature.LagDepth)
	assert.Equal(t, 5, cfg.Feature.RollingWindow)
	assert.Equal(t, 4000.0, cfg.Label.TPSThreshold)
	assert.Equal(t, 3.5, cfg.Label.PriceMoveThreshold)
	assert.Equal(t, 10, cfg.Label.FutureWindow)
	assert.Equal(t, 100, cfg.Model.Trees)
	assert.Equal(t, int64(42), cfg.Model.Seed)
	assert.Equal(t, 0.3, cfg.Model.TestFraction)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
window:
  volumeWindowMs: 250
label:
  tpsThreshold: 2500
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, int64(250), cfg.Window.VolumeWindowMs)
	assert.Equal(t, 2500.0, cfg.Label.TPSThreshold)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Untouched keys keep their defaults.
	assert.Equal(t, int64(10), cfg.Window.RateWindowSec)
	assert.Equal(t, 10, cfg.Label.FutureWindow)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("window:\n  volumeWindowMs: -1\n"), 0644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "volumeWindowMs")
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero volume window", func(c *Config) { c.Window.VolumeWindowMs = 0 }},
		{"zero rate window", func(c *Config) { c.Window.RateWindowSec = 0 }},
		{"zero lag depth", func(c *Config) { c.Feature.LagDepth = 0 }},
		{"rolling window of one", func(c *Config) { c.Feature.RollingWindow = 1 }},
		{"zero future window", func(c *Config) { c.Label.FutureWindow = 0 }},
		{"negative tps threshold", func(c *Config) { c.Label.TPSThreshold = -1 }},
		{"zero trees", func(c *Config) { c.Model.Trees = 0 }},
		{"negative depth", func(c *Config) { c.Model.MaxDepth = -1 }},
		{"test fraction one", func(c *Config) { c.Model.TestFraction = 1 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			assert.Error(t, Validate(cfg))
		})
	}
}
