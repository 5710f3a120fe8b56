// Package langid defines the Classifier interface for language identification
// backends.
//
// A classifier wraps an opaque single-label model (a fastText LID model served
// over HTTP, an in-process n-gram detector, and so on) and exposes one
// capability: given a piece of text, return a ranked list of candidate labels
// with their probabilities. Thresholding, display names and routing policy are
// NOT the classifier's concern; they live in internal/langid.
//
// Labels may carry a model-specific prefix (fastText emits "__label__hi");
// callers strip it with [StripLabel].
//
// Implementations should be safe for concurrent read-only use. Backends that
// are not must be wrapped with internal/langid.Serialized.
package langid

import (
	"context"
	"strings"
)

// LabelPrefix is the prefix fastText-style models put in front of every label.
const LabelPrefix = "__label__"

// Prediction is a single (label, probability) pair.
type Prediction struct {
	// Label is the predicted language label, possibly with a model prefix.
	Label string `json:"label"`

	// Probability is the model's probability for Label in [0, 1].
	Probability float64 `json:"probability"`
}

// Classifier predicts the language of a text.
type Classifier interface {
	// Predict returns candidate labels ranked by descending probability. The
	// slice may be empty when the backend has no opinion. Predict must respect
	// context cancellation for backends that block on I/O.
	Predict(ctx context.Context, text string) ([]Prediction, error)
}

// StripLabel removes the model prefix from label and lower-cases the result.
func StripLabel(label string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(label), LabelPrefix))
}
