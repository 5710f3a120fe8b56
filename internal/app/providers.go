package app

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/MrWong99/lidroute/internal/config"
	"github.com/MrWong99/lidroute/internal/langid"
	"github.com/MrWong99/lidroute/internal/resilience"
	provider "github.com/MrWong99/lidroute/pkg/provider/langid"
	"github.com/MrWong99/lidroute/pkg/provider/langid/fasttext"
	"github.com/MrWong99/lidroute/pkg/provider/langid/lingua"
	"github.com/MrWong99/lidroute/pkg/provider/langid/whatlang"
)

// RegisterBuiltinClassifiers wires the classifier backends that ship with
// lidroute into reg.
//
// Recognised options:
//
//	lingua:   languages ([]string), min_relative_distance (float), preload (bool)
//	whatlang: whitelist ([]string of ISO 639-3 codes)
//	fasttext: top_k (int), timeout (duration string)
func RegisterBuiltinClassifiers(reg *config.Registry) {
	reg.RegisterClassifier("lingua", func(entry config.ProviderEntry) (provider.Classifier, error) {
		var opts []lingua.Option
		if langs := entry.OptStrings("languages"); len(langs) > 0 {
			opts = append(opts, lingua.WithLanguages(langs...))
		}
		if d, ok := entry.OptFloat("min_relative_distance"); ok {
			opts = append(opts, lingua.WithMinimumRelativeDistance(d))
		}
		if entry.OptBool("preload") {
			opts = append(opts, lingua.WithPreloadedModels())
		}
		return lingua.New(opts...)
	})

	reg.RegisterClassifier("whatlang", func(entry config.ProviderEntry) (provider.Classifier, error) {
		var opts []whatlang.Option
		if wl := entry.OptStrings("whitelist"); len(wl) > 0 {
			opts = append(opts, whatlang.WithWhitelist(wl...))
		}
		return whatlang.New(opts...), nil
	})

	reg.RegisterClassifier("fasttext", func(entry config.ProviderEntry) (provider.Classifier, error) {
		var opts []fasttext.Option
		if entry.Model != "" {
			opts = append(opts, fasttext.WithModel(entry.Model))
		}
		if k, ok := entry.OptInt("top_k"); ok {
			opts = append(opts, fasttext.WithTopK(k))
		}
		if raw := entry.OptString("timeout"); raw != "" {
			d, err := time.ParseDuration(raw)
			if err != nil {
				return nil, fmt.Errorf("fasttext: invalid timeout %q: %w", raw, err)
			}
			opts = append(opts, fasttext.WithHTTPClient(&http.Client{Timeout: d}))
		}
		return fasttext.New(entry.BaseURL, opts...)
	})

	for _, name := range reg.ClassifierNames() {
		slog.Debug("registered classifier", "name", name)
	}
}

// Classifier is a built classifier chain together with the pieces callers
// need for naming and health checks.
type Classifier struct {
	// Classifier is what the identifier calls. Nil when none is configured.
	Classifier provider.Classifier

	// Name labels the chain in logs and metrics ("lingua", "fasttext+2").
	Name string

	// Backends holds every constructed backend, primary first, keyed by the
	// configured name.
	Backends []NamedClassifier
}

// NamedClassifier pairs a backend with its configured name.
type NamedClassifier struct {
	Name       string
	Classifier provider.Classifier
}

// BuildClassifier instantiates the classifier chain described by cfg. With
// fallbacks configured, the backends are composed through a
// [resilience.ClassifierFallback]. With Serialize set, the chain is wrapped
// with [langid.Serialize].
//
// An empty primary name yields a zero [Classifier] and no error.
func BuildClassifier(cfg config.ClassifierConfig, reg *config.Registry) (Classifier, error) {
	if cfg.Primary.Name == "" {
		return Classifier{}, nil
	}

	primary, err := reg.CreateClassifier(cfg.Primary)
	if err != nil {
		return Classifier{}, fmt.Errorf("app: classifier primary: %w", err)
	}
	out := Classifier{
		Classifier: primary,
		Name:       cfg.Primary.Name,
		Backends:   []NamedClassifier{{Name: cfg.Primary.Name, Classifier: primary}},
	}

	if len(cfg.Fallbacks) > 0 {
		fb := resilience.NewClassifierFallback(primary, cfg.Primary.Name, resilience.FallbackConfig{
			CircuitBreaker: resilience.CircuitBreakerConfig{
				MaxFailures:  cfg.CircuitBreaker.MaxFailures,
				ResetTimeout: cfg.CircuitBreaker.ResetTimeout,
				HalfOpenMax:  cfg.CircuitBreaker.HalfOpenMax,
			},
		})
		var errs []error
		for i, entry := range cfg.Fallbacks {
			c, err := reg.CreateClassifier(entry)
			if err != nil {
				errs = append(errs, fmt.Errorf("app: classifier fallback %d: %w", i, err))
				continue
			}
			fb.AddFallback(entry.Name, c)
			out.Backends = append(out.Backends, NamedClassifier{Name: entry.Name, Classifier: c})
		}
		if err := errors.Join(errs...); err != nil {
			return Classifier{}, err
		}
		out.Classifier = fb
		out.Name = fmt.Sprintf("%s+%d", cfg.Primary.Name, len(cfg.Fallbacks))
	}

	if cfg.Serialize {
		out.Classifier = langid.Serialize(out.Classifier)
	}
	return out, nil
}
