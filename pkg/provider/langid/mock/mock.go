// Package mock provides a test double for the langid.Classifier interface.
//
// Example:
//
//	c := &mock.Classifier{
//	    Predictions: []langid.Prediction{{Label: "__label__hi", Probability: 0.93}},
//	}
//	preds, _ := c.Predict(ctx, "नमस्ते आज का मौसम")
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/lidroute/pkg/provider/langid"
)

// Classifier is a mock implementation of langid.Classifier.
type Classifier struct {
	mu sync.Mutex

	// Predictions is returned by every Predict call unless PredictFunc is set.
	Predictions []langid.Prediction

	// PredictErr, if non-nil, is returned as the error from Predict.
	PredictErr error

	// PredictFunc, if set, overrides Predictions and PredictErr.
	PredictFunc func(ctx context.Context, text string) ([]langid.Prediction, error)

	// PanicWith, if non-nil, makes Predict panic with this value.
	PanicWith any

	// Calls records the text of every Predict call.
	Calls []string
}

// Predict records the call and returns the configured response.
func (c *Classifier) Predict(ctx context.Context, text string) ([]langid.Prediction, error) {
	c.mu.Lock()
	c.Calls = append(c.Calls, text)
	fn, preds, err, p := c.PredictFunc, c.Predictions, c.PredictErr, c.PanicWith
	c.mu.Unlock()

	if p != nil {
		panic(p)
	}
	if fn != nil {
		return fn(ctx, text)
	}
	if err != nil {
		return nil, err
	}
	out := make([]langid.Prediction, len(preds))
	copy(out, preds)
	return out, nil
}

// CallCount returns the number of Predict calls recorded so far.
func (c *Classifier) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Calls)
}
