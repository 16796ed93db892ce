// Package config holds the explicit pipeline configuration. Every stage
// takes its parameters from here; there are no mutable package-level
// knobs anywhere in the pipeline.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ferranfont/AI-random-forest/internal/logging"
)

// WindowConfig configures the rolling window feature engine.
type WindowConfig struct {
	// VolumeWindowMs is the trailing volume window (T-window, T] in ms.
	VolumeWindowMs int64 `yaml:"volumeWindowMs"`
	// RateWindowSec is the trailing tick-rate window in seconds.
	RateWindowSec int64 `yaml:"rateWindowSec"`
}

// FeatureConfig configures the temporal feature builder.
type FeatureConfig struct {
	// LagDepth is the number of factor_tps lags (lag 1..LagDepth).
	LagDepth int `yaml:"lagDepth"`
	// RollingWindow is the row count for rolling mean/std and price velocity.
	RollingWindow int `yaml:"rollingWindow"`
}

// LabelConfig configures the initiation label heuristic.
type LabelConfig struct {
	// TPSThreshold: factor_tps must exceed this (strict) to label.
	TPSThreshold float64 `yaml:"tpsThreshold"`
	// PriceMoveThreshold: max future move must reach this (inclusive).
	PriceMoveThreshold float64 `yaml:"priceMoveThreshold"`
	// FutureWindow is the forward row window, starting after the current row.
	FutureWindow int `yaml:"futureWindow"`
}

// ModelConfig configures the random forest trainer.
type ModelConfig struct {
	Trees        int     `yaml:"trees"`
	MaxDepth     int     `yaml:"maxDepth"` // 0 = unlimited
	Seed         int64   `yaml:"seed"`
	TestFraction float64 `yaml:"testFraction"`
}

// Config is the full pipeline configuration.
type Config struct {
	Window  WindowConfig   `yaml:"window"`
	Feature FeatureConfig  `yaml:"feature"`
	Label   LabelConfig    `yaml:"label"`
	Model   ModelConfig    `yaml:"model"`
	Logging logging.Config `yaml:"logging"`
}

// Default returns the documented defaults: 500ms volume window, 10s rate
// window, lag depth 5, thresholds 4000 / 3.5, forward window 10.
func Default() Config {
	return Config{
		Window: WindowConfig{
			VolumeWindowMs: 500,
			RateWindowSec:  10,
		},
		Feature: FeatureConfig{
			LagDepth:      5,
			RollingWindow: 5,
		},
		Label: LabelConfig{
			TPSThreshold:       4000,
			PriceMoveThreshold: 3.5,
			FutureWindow:       10,
		},
		Model: ModelConfig{
			Trees:        100,
			MaxDepth:     0,
			Seed:         42,
			TestFraction: 0.3,
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load reads YAML config from path on top of the defaults and validates.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate ensures the configuration is internally consistent.
func Validate(cfg Config) error {
	if cfg.Window.VolumeWindowMs <= 0 {
		return errors.New("window.volumeWindowMs must be > 0")
	}
	if cfg.Window.RateWindowSec <= 0 {
		return errors.New("window.rateWindowSec must be > 0")
	}
	if cfg.Feature.LagDepth <= 0 {
		return errors.New("feature.lagDepth must be > 0")
	}
	if cfg.Feature.RollingWindow < 2 {
		return errors.New("feature.rollingWindow must be >= 2")
	}
	if cfg.Label.FutureWindow <= 0 {
		return errors.New("label.futureWindow must be > 0")
	}
	if cfg.Label.TPSThreshold < 0 {
		return errors.New("label.tpsThreshold must be >= 0")
	}
	if cfg.Label.PriceMoveThreshold < 0 {
		return errors.New("label.priceMoveThreshold must be >= 0")
	}
	if cfg.Model.Trees <= 0 {
		return errors.New("model.trees must be > 0")
	}
	if cfg.Model.MaxDepth < 0 {
		return errors.New("model.maxDepth must be >= 0")
	}
	if cfg.Model.TestFraction <= 0 || cfg.Model.TestFraction >= 1 {
		return errors.New("model.testFraction must be in (0, 1)")
	}
	return nil
}
