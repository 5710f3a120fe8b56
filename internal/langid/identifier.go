// Package langid turns raw classifier predictions into routing decisions.
//
// The [Identifier] owns exactly one [langid.Classifier] (or none) and applies
// the routing policy on top of it:
//
//   - text shorter than five runes after trimming is never classified;
//   - a missing classifier yields an "error" identification;
//   - predictions under the confidence threshold keep their best-guess code
//     but route to "nlu_fallback";
//   - confident predictions route to a dedicated service for hi/kn/te, to the
//     shared Indic service for the other registry languages, and to
//     "nlu_other" for everything else.
//
// Classifier failures, including panics, are converted into an identification
// result and never reach the caller. Detect performs no retries; resilience is
// layered around the classifier (see internal/resilience), not inside Detect.
package langid

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"github.com/MrWong99/lidroute/internal/observe"
	provider "github.com/MrWong99/lidroute/pkg/provider/langid"
	"github.com/MrWong99/lidroute/pkg/types"
)

const (
	// DefaultThreshold is the minimum probability required to trust a
	// prediction.
	DefaultThreshold = 0.8

	// MinTextRunes is the minimum trimmed length, in runes, of classifiable
	// text.
	MinTextRunes = 5
)

// errNoPrediction is reported when the classifier returns an empty ranking.
var errNoPrediction = errors.New("classifier returned no prediction")

// errInvalidProbability is reported when the top prediction carries a NaN
// probability.
var errInvalidProbability = errors.New("invalid probability")

// Option is a functional option for configuring an [Identifier].
type Option func(*Identifier)

// WithThreshold sets the confidence threshold. Values outside [0, 1] are
// ignored.
func WithThreshold(t float64) Option {
	return func(id *Identifier) {
		if t >= 0 && t <= 1 {
			id.threshold = t
		}
	}
}

// WithMetrics records detection metrics to m instead of
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(id *Identifier) {
		if m != nil {
			id.metrics = m
		}
	}
}

// WithClassifierName sets the name used in metric attributes and logs.
func WithClassifierName(name string) Option {
	return func(id *Identifier) {
		id.name = name
	}
}

// Identifier applies thresholding and routing to classifier predictions. It
// holds no per-call state and is safe for concurrent use as long as its
// classifier is.
type Identifier struct {
	classifier provider.Classifier
	threshold  float64
	name       string
	metrics    *observe.Metrics
}

// New returns an Identifier for c. A nil c is allowed: every classifiable
// input then yields a "Model not loaded" identification.
func New(c provider.Classifier, opts ...Option) *Identifier {
	id := &Identifier{
		classifier: c,
		threshold:  DefaultThreshold,
		name:       "classifier",
	}
	for _, o := range opts {
		o(id)
	}
	if id.metrics == nil {
		id.metrics = observe.DefaultMetrics()
	}
	return id
}

// Threshold returns the configured confidence threshold.
func (id *Identifier) Threshold() float64 {
	return id.threshold
}

// Loaded reports whether a classifier is configured.
func (id *Identifier) Loaded() bool {
	return id.classifier != nil
}

// Detect identifies the language of text. Every branch is terminal and the
// returned RouteKey is always one of [types.RouteKeys].
func (id *Identifier) Detect(ctx context.Context, text string) types.Identification {
	if !utf8.ValidString(text) {
		return types.Unknown()
	}
	trimmed := strings.TrimSpace(text)
	if utf8.RuneCountInString(trimmed) < MinTextRunes {
		return types.Unknown()
	}
	if id.classifier == nil {
		return types.ModelNotLoaded()
	}

	ctx, span := observe.StartSpan(ctx, observe.SpanDetect)
	defer span.End()

	start := time.Now()
	preds, err := id.predict(ctx, trimmed)
	id.metrics.DetectDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("classifier", id.name)))

	switch {
	case err != nil:
	case len(preds) == 0:
		err = errNoPrediction
	case math.IsNaN(preds[0].Probability):
		err = errInvalidProbability
	}
	if err != nil {
		id.metrics.RecordClassifierRequest(ctx, id.name, "error")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		observe.Logger(ctx).Warn("language detection failed", "classifier", id.name, "err", err)
		return types.DetectionFailed(err.Error())
	}
	id.metrics.RecordClassifierRequest(ctx, id.name, "ok")

	top := preds[0]
	code := provider.StripLabel(top.Label)
	conf := clamp(top.Probability)
	span.SetAttributes(observe.DetectionAttrs(code, conf)...)

	if conf < id.threshold {
		return types.Identification{
			Code:       code,
			Name:       types.NameLowConfidence,
			Confidence: conf,
			RouteKey:   types.RouteFallback,
		}
	}

	return types.Identification{
		Code:       code,
		Name:       Name(code),
		Confidence: conf,
		RouteKey:   Route(code),
	}
}

// predict calls the classifier and converts a panic into an error.
func (id *Identifier) predict(ctx context.Context, text string) (preds []provider.Prediction, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("classifier panic: %v", r)
		}
	}()
	return id.classifier.Predict(ctx, text)
}

// clamp bounds p to [0, 1].
func clamp(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}

// Serialized wraps a classifier whose Predict is not safe for concurrent use
// so that calls into it are made one at a time.
type Serialized struct {
	mu    sync.Mutex
	inner provider.Classifier
}

// Compile-time check.
var _ provider.Classifier = (*Serialized)(nil)

// Serialize wraps c. A nil c returns nil.
func Serialize(c provider.Classifier) provider.Classifier {
	if c == nil {
		return nil
	}
	return &Serialized{inner: c}
}

// Predict forwards to the wrapped classifier under a mutex.
func (s *Serialized) Predict(ctx context.Context, text string) ([]provider.Prediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Predict(ctx, text)
}
