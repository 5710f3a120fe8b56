package resilience

import (
	"context"
	"errors"

	"github.com/MrWong99/lidroute/pkg/provider/langid"
)

// errEmptyRanking makes an empty prediction list count as a backend failure so
// that the next classifier gets a chance.
var errEmptyRanking = errors.New("resilience: classifier returned no prediction")

// ClassifierFallback implements [langid.Classifier] with failover across
// several classifier backends, each behind its own circuit breaker.
type ClassifierFallback struct {
	group *FallbackGroup[langid.Classifier]
}

// Compile-time interface assertion.
var _ langid.Classifier = (*ClassifierFallback)(nil)

// NewClassifierFallback creates a [ClassifierFallback] with primary as the
// preferred backend.
func NewClassifierFallback(primary langid.Classifier, primaryName string, cfg FallbackConfig) *ClassifierFallback {
	return &ClassifierFallback{group: NewFallbackGroup(primary, primaryName, cfg)}
}

// AddFallback registers an additional classifier.
func (f *ClassifierFallback) AddFallback(name string, c langid.Classifier) {
	f.group.AddFallback(name, c)
}

// Status reports the breaker state of each backend.
func (f *ClassifierFallback) Status() []EntryStatus {
	return f.group.Status()
}

// Predict returns the ranking of the first healthy backend that produces a
// non-empty one.
func (f *ClassifierFallback) Predict(ctx context.Context, text string) ([]langid.Prediction, error) {
	return ExecuteWithResult(ctx, f.group, func(c langid.Classifier) ([]langid.Prediction, error) {
		preds, err := c.Predict(ctx, text)
		if err != nil {
			return nil, err
		}
		if len(preds) == 0 {
			return nil, errEmptyRanking
		}
		return preds, nil
	})
}
