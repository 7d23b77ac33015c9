// Package config provides the configuration schema, loader, and file watcher
// for the cuefollow server.
package config

// LogLevel controls log verbosity for the cuefollow server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Scorer selects the similarity scorer used by the segment search.
type Scorer string

const (
	// ScorerLevenshtein uses normalized edit distance. This is the default
	// and the scale the acceptance thresholds are tuned for.
	ScorerLevenshtein Scorer = "levenshtein"

	// ScorerJaroWinkler uses prefix-weighted Jaro-Winkler similarity.
	ScorerJaroWinkler Scorer = "jaro-winkler"
)

// IsValid reports whether s is a recognised scorer name.
func (s Scorer) IsValid() bool {
	return s == ScorerLevenshtein || s == ScorerJaroWinkler
}

// Config is the root configuration structure for cuefollow.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Tracker TrackerConfig `yaml:"tracker"`
}

// ServerConfig holds network and logging settings for the cuefollow server.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// TLS configures TLS for the server. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	// CertFile is the path to the PEM-encoded TLS certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded TLS private key.
	KeyFile string `yaml:"key_file"`
}

// TrackerConfig holds the per-session defaults for tracking engines created
// by the server. Changing them at runtime (via the file watcher) affects
// sessions created afterwards; live sessions keep their settings except for
// precision, which clients adjust over their own connection.
type TrackerConfig struct {
	// Precision is the initial similarity precision in [50, 95]. Values
	// outside the range are clamped by the tracker, not rejected.
	Precision int `yaml:"precision"`

	// DebounceMS is the debounce delay in milliseconds between the last
	// submitted batch and the start of a drain session. 0 means the built-in
	// default (100ms).
	DebounceMS int `yaml:"debounce_ms"`

	// SliceBudgetMS is the cooperative time-slice budget in milliseconds for
	// one drain slice. 0 means the built-in default (5ms).
	SliceBudgetMS int `yaml:"slice_budget_ms"`

	// Scorer selects the similarity scorer. Empty means "levenshtein".
	Scorer Scorer `yaml:"scorer"`

	// StatsWindow is the number of latency samples retained for the /statsz
	// percentile snapshot. 0 means the built-in default (100).
	StatsWindow int `yaml:"stats_window"`
}
