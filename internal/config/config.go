// Package config provides the configuration schema, loader, classifier
// registry and file watcher for the lidroute server.
package config

import (
	"log/slog"
	"time"
)

// LogLevel controls log verbosity for the lidroute server.
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

// SlogLevel maps l to the corresponding [slog.Level]. Unknown or empty levels
// map to [slog.LevelInfo].
func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Defaults applied by [Config.ApplyDefaults].
const (
	DefaultListenAddr     = ":8080"
	DefaultRequestTimeout = 5 * time.Second
	DefaultThreshold      = 0.8
	DefaultMaxConcurrency = 8
	DefaultMaxItems       = 256
)

// Config is the root configuration structure for lidroute.
type Config struct {
	// Server holds HTTP server and logging settings.
	Server ServerConfig `yaml:"server"`

	// Classifier selects the language identification backends.
	Classifier ClassifierConfig `yaml:"classifier"`

	// Lexicon lists external sources merged over the built-in tables.
	Lexicon LexiconConfig `yaml:"lexicon"`

	// Batch bounds the batch routing endpoint.
	Batch BatchConfig `yaml:"batch"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the HTTP server binds to (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity. Valid values: debug, info, warn, error.
	LogLevel LogLevel `yaml:"log_level"`

	// RequestTimeout bounds each routing request. Zero means
	// [DefaultRequestTimeout].
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// MCPEnabled mounts the MCP tool server at /mcp.
	MCPEnabled bool `yaml:"mcp_enabled"`

	// TLS configures HTTPS. Nil means plain HTTP.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds paths to TLS certificate and key files.
type TLSConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// ClassifierConfig configures language identification.
type ClassifierConfig struct {
	// Threshold is the minimum probability required to trust a prediction.
	// Nil means [DefaultThreshold].
	Threshold *float64 `yaml:"threshold"`

	// Serialize forces classifier calls to run one at a time. Enable it for
	// backends that are not safe for concurrent use.
	Serialize bool `yaml:"serialize"`

	// Primary is the preferred backend. An empty name runs without a
	// classifier; every request is then reported as "Model not loaded".
	Primary ProviderEntry `yaml:"primary"`

	// Fallbacks are tried in order when the primary fails.
	Fallbacks []ProviderEntry `yaml:"fallbacks"`

	// CircuitBreaker tunes the per-backend breakers used with fallbacks.
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// EffectiveThreshold returns the configured threshold or [DefaultThreshold].
func (c ClassifierConfig) EffectiveThreshold() float64 {
	if c.Threshold == nil {
		return DefaultThreshold
	}
	return *c.Threshold
}

// CircuitBreakerConfig tunes the breaker placed in front of each backend.
type CircuitBreakerConfig struct {
	MaxFailures  int           `yaml:"max_failures"`
	ResetTimeout time.Duration `yaml:"reset_timeout"`
	HalfOpenMax  int           `yaml:"half_open_max"`
}

// ProviderEntry is the common configuration block for a classifier backend.
type ProviderEntry struct {
	// Name selects the backend (e.g., "lingua", "whatlang", "fasttext").
	Name string `yaml:"name"`

	// BaseURL is the endpoint of remote backends such as fasttext.
	BaseURL string `yaml:"base_url"`

	// Model is a backend-specific model identifier.
	Model string `yaml:"model"`

	// Options holds backend-specific settings not covered by the fields above.
	Options map[string]any `yaml:"options"`
}

// LexiconConfig lists external lexicon sources. Sources are merged over the
// built-in tables in the order file, postgres, redis.
type LexiconConfig struct {
	// File is an optional YAML lexicon document.
	File string `yaml:"file"`

	// PostgresDSN is an optional PostgreSQL connection string.
	PostgresDSN string `yaml:"postgres_dsn"`

	// Redis is an optional Redis source.
	Redis *RedisConfig `yaml:"redis"`

	// StrictSources makes any source failure fatal. When false, failing
	// sources are logged and skipped.
	StrictSources bool `yaml:"strict_sources"`
}

// RedisConfig holds the connection settings of a Redis lexicon source.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// BatchConfig bounds batch routing.
type BatchConfig struct {
	// MaxConcurrency caps the number of inputs processed at once.
	MaxConcurrency int `yaml:"max_concurrency"`

	// MaxItems caps the number of inputs in one batch request.
	MaxItems int `yaml:"max_items"`
}

// ApplyDefaults fills unset fields with their defaults.
func (c *Config) ApplyDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = DefaultListenAddr
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = LogInfo
	}
	if c.Server.RequestTimeout == 0 {
		c.Server.RequestTimeout = DefaultRequestTimeout
	}
	if c.Batch.MaxConcurrency == 0 {
		c.Batch.MaxConcurrency = DefaultMaxConcurrency
	}
	if c.Batch.MaxItems == 0 {
		c.Batch.MaxItems = DefaultMaxItems
	}
}
