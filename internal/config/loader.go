package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidClassifierNames lists the classifier backends that ship with lidroute.
// Used by [Validate] to warn about unrecognised names.
var ValidClassifierNames = []string{"lingua", "whatlang", "fasttext"}

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults applied.
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

// LoadFromReader decodes a YAML config from r, validates it and applies
// defaults. An empty document yields the default configuration.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.RequestTimeout < 0 {
		errs = append(errs, fmt.Errorf("server.request_timeout %v must not be negative", cfg.Server.RequestTimeout))
	}
	if tls := cfg.Server.TLS; tls != nil && (tls.CertFile == "" || tls.KeyFile == "") {
		errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
	}

	// Classifier
	c := cfg.Classifier
	if c.Threshold != nil && (*c.Threshold < 0 || *c.Threshold > 1) {
		errs = append(errs, fmt.Errorf("classifier.threshold %v is out of range [0, 1]", *c.Threshold))
	}
	errs = append(errs, validateEntry("classifier.primary", c.Primary)...)
	if c.Primary.Name == "" && len(c.Fallbacks) > 0 {
		errs = append(errs, errors.New("classifier.fallbacks requires classifier.primary"))
	}
	seen := map[string]string{}
	if c.Primary.Name != "" {
		seen[entryKey(c.Primary)] = "classifier.primary"
	}
	for i, fb := range c.Fallbacks {
		prefix := fmt.Sprintf("classifier.fallbacks[%d]", i)
		if fb.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
			continue
		}
		errs = append(errs, validateEntry(prefix, fb)...)
		if prev, dup := seen[entryKey(fb)]; dup {
			errs = append(errs, fmt.Errorf("%s duplicates %s", prefix, prev))
		}
		seen[entryKey(fb)] = prefix
	}
	if cb := c.CircuitBreaker; cb.MaxFailures < 0 || cb.ResetTimeout < 0 || cb.HalfOpenMax < 0 {
		errs = append(errs, errors.New("classifier.circuit_breaker values must not be negative"))
	}

	// Lexicon
	if r := cfg.Lexicon.Redis; r != nil {
		if r.Addr == "" {
			errs = append(errs, errors.New("lexicon.redis.addr is required when lexicon.redis is set"))
		}
		if r.DB < 0 {
			errs = append(errs, fmt.Errorf("lexicon.redis.db %d must not be negative", r.DB))
		}
	}

	// Batch
	if cfg.Batch.MaxConcurrency < 0 {
		errs = append(errs, fmt.Errorf("batch.max_concurrency %d must not be negative", cfg.Batch.MaxConcurrency))
	}
	if cfg.Batch.MaxItems < 0 {
		errs = append(errs, fmt.Errorf("batch.max_items %d must not be negative", cfg.Batch.MaxItems))
	}

	return errors.Join(errs...)
}

// validateEntry checks one classifier entry and warns about unknown names.
func validateEntry(prefix string, e ProviderEntry) []error {
	if e.Name == "" {
		return nil
	}
	var errs []error
	if e.Name == "fasttext" && e.BaseURL == "" {
		errs = append(errs, fmt.Errorf("%s: fasttext requires base_url", prefix))
	}
	if !slices.Contains(ValidClassifierNames, e.Name) {
		slog.Warn("unknown classifier name, may be a typo or a third-party backend",
			"field", prefix,
			"name", e.Name,
			"known", ValidClassifierNames,
		)
	}
	return errs
}

// entryKey identifies a backend for duplicate detection.
func entryKey(e ProviderEntry) string {
	return e.Name + "|" + e.BaseURL + "|" + e.Model
}
