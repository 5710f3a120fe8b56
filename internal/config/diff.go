package config

import "reflect"

// ConfigDiff describes what changed between two configs.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// ThresholdChanged, ClassifierChanged and LexiconChanged require the
	// router to be rebuilt.
	ThresholdChanged  bool
	NewThreshold      float64
	ClassifierChanged bool
	LexiconChanged    bool

	// BatchChanged is applied to the next batch request.
	BatchChanged bool

	// RestartRequired names changed settings that only take effect after a
	// restart (listen address, TLS, MCP mount).
	RestartRequired []string
}

// NeedsRebuild reports whether the router must be rebuilt to apply d.
func (d ConfigDiff) NeedsRebuild() bool {
	return d.ThresholdChanged || d.ClassifierChanged || d.LexiconChanged
}

// Empty reports whether d records no change at all.
func (d ConfigDiff) Empty() bool {
	return !d.LogLevelChanged && !d.NeedsRebuild() && !d.BatchChanged && len(d.RestartRequired) == 0
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if ot, nt := old.Classifier.EffectiveThreshold(), new.Classifier.EffectiveThreshold(); ot != nt {
		d.ThresholdChanged = true
		d.NewThreshold = nt
	}
	if old.Classifier.Serialize != new.Classifier.Serialize ||
		old.Classifier.CircuitBreaker != new.Classifier.CircuitBreaker ||
		!reflect.DeepEqual(old.Classifier.Primary, new.Classifier.Primary) ||
		!reflect.DeepEqual(old.Classifier.Fallbacks, new.Classifier.Fallbacks) {
		d.ClassifierChanged = true
	}
	if !reflect.DeepEqual(old.Lexicon, new.Lexicon) {
		d.LexiconChanged = true
	}
	if old.Batch != new.Batch {
		d.BatchChanged = true
	}

	if old.Server.ListenAddr != new.Server.ListenAddr {
		d.RestartRequired = append(d.RestartRequired, "server.listen_addr")
	}
	if !reflect.DeepEqual(old.Server.TLS, new.Server.TLS) {
		d.RestartRequired = append(d.RestartRequired, "server.tls")
	}
	if old.Server.MCPEnabled != new.Server.MCPEnabled {
		d.RestartRequired = append(d.RestartRequired, "server.mcp_enabled")
	}
	if old.Server.RequestTimeout != new.Server.RequestTimeout {
		d.RestartRequired = append(d.RestartRequired, "server.request_timeout")
	}
	return d
}
