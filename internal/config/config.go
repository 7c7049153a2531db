// Package config loads and validates host-level configuration for processes
// embedding the reactive kernel: which concurrency mode to construct the
// System with, whether to wire OpenTelemetry metrics, and the metrics
// namespace. It carries no sizing hints for the listener registry.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/konall/korhah/core/reactive"
	"github.com/konall/korhah/errs"
)

// Mode mirrors reactive.Mode in string form, as read from YAML/env.
type Mode string

const (
	ModeShareable    Mode = "shareable"
	ModeSingleThread Mode = "single-thread"
)

// Metrics configures the optional OTel metrics exporter (see
// internal/telemetry).
type Metrics struct {
	Enabled    bool   `yaml:"enabled"`
	Endpoint   string `yaml:"endpoint"`
	ExportName string `yaml:"exportName"`
}

// Config is the full configuration tree for a host process.
type Config struct {
	Mode      Mode    `yaml:"mode"`
	Namespace string  `yaml:"namespace"`
	Metrics   Metrics `yaml:"metrics"`
}

// Default returns the configuration a bare host gets with no file or
// environment overrides: Shareable mode, metrics disabled.
func Default() Config {
	return Config{
		Mode:      ModeShareable,
		Namespace: "",
		Metrics: Metrics{
			Enabled:    false,
			Endpoint:   "",
			ExportName: "korhah",
		},
	}
}

// Load reads YAML configuration from path (if non-empty and present),
// layers KORHAH_-prefixed environment overrides on top, and validates the
// result. A missing path is not an error — Load falls back to Default.
func Load(path string) (Config, error) {
	cfg := Default()

	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, errs.New("config.Load", errs.CodeInvalid, errs.WithMessage("parsing "+path), errs.WithCause(err))
			}
		case os.IsNotExist(err):
			// fall through to defaults + env
		default:
			return Config{}, errs.New("config.Load", errs.CodeInvalid, errs.WithMessage("reading "+path), errs.WithCause(err))
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("KORHAH_MODE")); v != "" {
		cfg.Mode = Mode(strings.ToLower(v))
	}
	if v := strings.TrimSpace(os.Getenv("KORHAH_NAMESPACE")); v != "" {
		cfg.Namespace = v
	}
	if v := strings.TrimSpace(os.Getenv("KORHAH_METRICS_ENABLED")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Metrics.Enabled = b
		}
	}
	if v := strings.TrimSpace(os.Getenv("KORHAH_METRICS_ENDPOINT")); v != "" {
		cfg.Metrics.Endpoint = v
	}
}

// Validate rejects configurations that can't be turned into a working
// System.
func (c Config) Validate() error {
	switch c.Mode {
	case ModeShareable, ModeSingleThread:
	default:
		return errs.New("config.Validate", errs.CodeInvalid, errs.WithMessage(fmt.Sprintf("unknown mode %q", c.Mode)))
	}
	if c.Metrics.Enabled && strings.TrimSpace(c.Metrics.Endpoint) == "" {
		return errs.New("config.Validate", errs.CodeInvalid, errs.WithMessage("metrics.enabled requires metrics.endpoint"))
	}
	return nil
}

// ReactiveMode converts the configured Mode to its reactive.Mode
// counterpart, defaulting to ModeShareable for any value Validate would
// already have rejected.
func (c Config) ReactiveMode() reactive.Mode {
	if c.Mode == ModeSingleThread {
		return reactive.ModeSingleThread
	}
	return reactive.ModeShareable
}
