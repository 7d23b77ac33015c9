package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
//
// Out-of-range precision is only warned about, never rejected: the tracker
// clamps it at runtime, and a reload must not take the server down over a
// knob that has a defined clamping behavior.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" || cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
	}

	if cfg.Tracker.Scorer != "" && !cfg.Tracker.Scorer.IsValid() {
		errs = append(errs, fmt.Errorf("tracker.scorer %q is invalid; valid values: levenshtein, jaro-winkler", cfg.Tracker.Scorer))
	}

	if cfg.Tracker.DebounceMS < 0 {
		errs = append(errs, fmt.Errorf("tracker.debounce_ms %d must not be negative", cfg.Tracker.DebounceMS))
	}
	if cfg.Tracker.SliceBudgetMS < 0 {
		errs = append(errs, fmt.Errorf("tracker.slice_budget_ms %d must not be negative", cfg.Tracker.SliceBudgetMS))
	}
	if cfg.Tracker.StatsWindow < 0 {
		errs = append(errs, fmt.Errorf("tracker.stats_window %d must not be negative", cfg.Tracker.StatsWindow))
	}

	if p := cfg.Tracker.Precision; p != 0 && (p < 50 || p > 95) {
		slog.Warn("tracker.precision is outside [50, 95] and will be clamped", "precision", p)
	}

	return errors.Join(errs...)
}
