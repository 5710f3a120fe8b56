package config

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/MrWong99/lidroute/pkg/provider/langid"
)

// ErrProviderNotRegistered is returned by [Registry.CreateClassifier] when no
// factory has been registered under the requested name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// ClassifierFactory builds a classifier from its configuration entry.
type ClassifierFactory func(ProviderEntry) (langid.Classifier, error)

// Registry maps classifier names to their constructor functions. It is safe
// for concurrent use.
type Registry struct {
	mu          sync.RWMutex
	classifiers map[string]ClassifierFactory
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{classifiers: make(map[string]ClassifierFactory)}
}

// RegisterClassifier registers a classifier factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterClassifier(name string, factory ClassifierFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.classifiers[name] = factory
}

// CreateClassifier instantiates the classifier registered under entry.Name.
// Returns [ErrProviderNotRegistered] if no factory has been registered for
// that name.
func (r *Registry) CreateClassifier(entry ProviderEntry) (langid.Classifier, error) {
	r.mu.RLock()
	factory, ok := r.classifiers[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: classifier/%q", ErrProviderNotRegistered, entry.Name)
	}
	c, err := factory(entry)
	if err != nil {
		return nil, fmt.Errorf("config: create classifier %q: %w", entry.Name, err)
	}
	return c, nil
}

// ClassifierNames returns the registered names, sorted.
func (r *Registry) ClassifierNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.classifiers))
}

// OptString returns the string option key, or "" when it is missing or not a
// string.
func (e ProviderEntry) OptString(key string) string {
	s, _ := e.Options[key].(string)
	return s
}

// OptFloat returns the numeric option key. YAML integers are accepted.
func (e ProviderEntry) OptFloat(key string) (float64, bool) {
	switch v := e.Options[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

// OptInt returns the integer option key.
func (e ProviderEntry) OptInt(key string) (int, bool) {
	v, ok := e.Options[key].(int)
	return v, ok
}

// OptBool returns the boolean option key.
func (e ProviderEntry) OptBool(key string) bool {
	b, _ := e.Options[key].(bool)
	return b
}

// OptStrings returns the string-list option key. Non-string items are
// skipped.
func (e ProviderEntry) OptStrings(key string) []string {
	raw, ok := e.Options[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
