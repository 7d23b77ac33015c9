package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked.
type ConfigDiff struct {
	// Fields lists the dotted names of changed hot-reloadable fields, in
	// schema order. Empty when nothing reloadable changed.
	Fields []string

	LogLevelChanged bool
	NewLogLevel     LogLevel

	TrackerChanged bool
	NewTracker     TrackerConfig
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart: the log level
// and the tracker session defaults. Listen address and TLS changes require a
// restart and are deliberately ignored here.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
		d.Fields = append(d.Fields, "server.log_level")
	}

	if old.Tracker.Precision != new.Tracker.Precision {
		d.Fields = append(d.Fields, "tracker.precision")
	}
	if old.Tracker.DebounceMS != new.Tracker.DebounceMS {
		d.Fields = append(d.Fields, "tracker.debounce_ms")
	}
	if old.Tracker.SliceBudgetMS != new.Tracker.SliceBudgetMS {
		d.Fields = append(d.Fields, "tracker.slice_budget_ms")
	}
	if old.Tracker.Scorer != new.Tracker.Scorer {
		d.Fields = append(d.Fields, "tracker.scorer")
	}
	if old.Tracker.StatsWindow != new.Tracker.StatsWindow {
		d.Fields = append(d.Fields, "tracker.stats_window")
	}

	if old.Tracker != new.Tracker {
		d.TrackerChanged = true
		d.NewTracker = new.Tracker
	}

	return d
}
