// Package lingua provides an in-process langid.Classifier backed by
// github.com/pemistahl/lingua-go.
//
// Lingua computes a confidence value for every language the detector was built
// with; Predict returns them ranked, which maps directly onto the ranked
// (label, probability) contract of langid.Classifier. Labels are lower-case
// ISO 639-1 codes ("hi", "te", "en").
//
// Lingua ships models for Bengali, Gujarati, Hindi, Marathi, Punjabi, Tamil,
// Telugu and Urdu among the Indic languages. Codes without a lingua model are
// rejected by [New].
package lingua

import (
	"context"
	"errors"
	"fmt"
	"strings"

	linguago "github.com/pemistahl/lingua-go"

	"github.com/MrWong99/lidroute/pkg/provider/langid"
)

// DefaultLanguages is the language set used when none is configured: every
// Indic language lingua supports plus English, so that Latin-script English
// input is not forced onto an Indic label.
var DefaultLanguages = []string{"hi", "bn", "gu", "mr", "pa", "ta", "te", "ur", "en"}

// Compile-time assertion that Classifier implements langid.Classifier.
var _ langid.Classifier = (*Classifier)(nil)

// Option is a functional option for configuring a Classifier.
type Option func(*options)

type options struct {
	languages   []string
	minDistance float64
	preload     bool
}

// WithLanguages restricts detection to the given ISO 639-1 codes.
func WithLanguages(codes ...string) Option {
	return func(o *options) {
		o.languages = codes
	}
}

// WithMinimumRelativeDistance sets lingua's minimum relative distance between
// the top two languages. Values in [0, 0.99].
func WithMinimumRelativeDistance(d float64) Option {
	return func(o *options) {
		o.minDistance = d
	}
}

// WithPreloadedModels loads every language model at construction instead of
// lazily on first use. Construction then becomes the only blocking step.
func WithPreloadedModels() Option {
	return func(o *options) {
		o.preload = true
	}
}

// Classifier wraps a lingua LanguageDetector. The detector is read-only after
// construction and safe for concurrent use.
type Classifier struct {
	detector linguago.LanguageDetector
}

// New builds a lingua detector for the configured languages.
func New(opts ...Option) (*Classifier, error) {
	o := options{languages: DefaultLanguages}
	for _, opt := range opts {
		opt(&o)
	}

	langs, err := resolveLanguages(o.languages)
	if err != nil {
		return nil, err
	}
	if len(langs) < 2 {
		return nil, errors.New("lingua: at least two languages are required")
	}
	if o.minDistance < 0 || o.minDistance > 0.99 {
		return nil, fmt.Errorf("lingua: minimum relative distance %.2f is out of range [0, 0.99]", o.minDistance)
	}

	b := linguago.NewLanguageDetectorBuilder().
		FromLanguages(langs...).
		WithMinimumRelativeDistance(o.minDistance)
	if o.preload {
		b = b.WithPreloadedLanguageModels()
	}
	return &Classifier{detector: b.Build()}, nil
}

// Predict returns lingua's confidence values, highest first.
func (c *Classifier) Predict(ctx context.Context, text string) ([]langid.Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("lingua: %w", err)
	}
	values := c.detector.ComputeLanguageConfidenceValues(text)
	preds := make([]langid.Prediction, 0, len(values))
	for _, v := range values {
		preds = append(preds, langid.Prediction{
			Label:       strings.ToLower(v.Language().IsoCode639_1().String()),
			Probability: v.Value(),
		})
	}
	return preds, nil
}

// resolveLanguages maps ISO 639-1 codes onto lingua languages.
func resolveLanguages(codes []string) ([]linguago.Language, error) {
	var errs []error
	langs := make([]linguago.Language, 0, len(codes))
	seen := make(map[linguago.Language]bool, len(codes))
	for _, code := range codes {
		iso := linguago.GetIsoCode639_1FromValue(strings.ToUpper(strings.TrimSpace(code)))
		lang := linguago.GetLanguageFromIsoCode639_1(iso)
		if lang == linguago.Unknown {
			errs = append(errs, fmt.Errorf("lingua: no model for language %q", code))
			continue
		}
		if !seen[lang] {
			seen[lang] = true
			langs = append(langs, lang)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return langs, nil
}
