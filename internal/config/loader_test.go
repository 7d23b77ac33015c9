package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MrWong99/cuefollow/internal/config"
)

const validYAML = `
server:
  listen_addr: ":8080"
  log_level: debug
tracker:
  precision: 70
  debounce_ms: 150
  slice_budget_ms: 5
  scorer: jaro-winkler
  stats_window: 200
`

func TestLoadFromReader_Valid(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q, want %q", cfg.Server.ListenAddr, ":8080")
	}
	if cfg.Server.LogLevel != config.LogDebug {
		t.Errorf("LogLevel = %q, want debug", cfg.Server.LogLevel)
	}
	if cfg.Tracker.Precision != 70 {
		t.Errorf("Precision = %d, want 70", cfg.Tracker.Precision)
	}
	if cfg.Tracker.DebounceMS != 150 {
		t.Errorf("DebounceMS = %d, want 150", cfg.Tracker.DebounceMS)
	}
	if cfg.Tracker.Scorer != config.ScorerJaroWinkler {
		t.Errorf("Scorer = %q, want jaro-winkler", cfg.Tracker.Scorer)
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	t.Parallel()

	_, err := config.LoadFromReader(strings.NewReader("server:\n  listen_adr: \":8080\"\n"))
	if err == nil {
		t.Fatal("expected an error for a misspelled field")
	}
}

func TestLoadFromReader_InvalidValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "bad log level",
			yaml: "server:\n  log_level: verbose\n",
			want: "server.log_level",
		},
		{
			name: "bad scorer",
			yaml: "tracker:\n  scorer: soundex\n",
			want: "tracker.scorer",
		},
		{
			name: "negative debounce",
			yaml: "tracker:\n  debounce_ms: -1\n",
			want: "tracker.debounce_ms",
		},
		{
			name: "tls missing key",
			yaml: "server:\n  tls:\n    cert_file: cert.pem\n",
			want: "server.tls",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := config.LoadFromReader(strings.NewReader(tt.yaml))
			if err == nil {
				t.Fatal("expected a validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestValidate_OutOfRangePrecisionAccepted(t *testing.T) {
	t.Parallel()

	// Precision outside [50, 95] is clamped at runtime, so validation must
	// warn but not fail.
	cfg := &config.Config{}
	cfg.Tracker.Precision = 120
	if err := config.Validate(cfg); err != nil {
		t.Errorf("Validate: %v, want nil for clampable precision", err)
	}
}

func TestLoad_File(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(validYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Tracker.StatsWindow != 200 {
		t.Errorf("StatsWindow = %d, want 200", cfg.Tracker.StatsWindow)
	}
}

func TestLoad_MalformedYAMLPrefixedOnce(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := config.Load(path)
	if err == nil {
		t.Fatal("expected an error for malformed yaml")
	}
	if got := strings.Count(err.Error(), "config:"); got != 1 {
		t.Errorf("error %q carries the package prefix %d times, want once", err, got)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error %v does not wrap os.ErrNotExist", err)
	}
}
