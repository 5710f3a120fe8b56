// Package whatlang provides an in-process langid.Classifier backed by
// github.com/abadojack/whatlanggo.
//
// whatlanggo is a trigram detector that reports a single language with a
// reliability-based confidence, so Predict always returns at most one
// prediction. Its Indic coverage includes Kannada, Malayalam and Odia, which
// lingua lacks; this makes it a useful fallback classifier.
package whatlang

import (
	"context"
	"fmt"

	"github.com/abadojack/whatlanggo"

	"github.com/MrWong99/lidroute/pkg/provider/langid"
)

// iso6391 maps whatlanggo languages onto the two-letter codes used by the
// router's language registry.
var iso6391 = map[whatlanggo.Lang]string{
	whatlanggo.Hin: "hi",
	whatlanggo.Kan: "kn",
	whatlanggo.Tel: "te",
	whatlanggo.Tam: "ta",
	whatlanggo.Mal: "ml",
	whatlanggo.Mar: "mr",
	whatlanggo.Guj: "gu",
	whatlanggo.Ben: "bn",
	whatlanggo.Pan: "pa",
	whatlanggo.Ori: "or",
	whatlanggo.Urd: "ur",
	whatlanggo.Eng: "en",
}

// Compile-time assertion that Classifier implements langid.Classifier.
var _ langid.Classifier = (*Classifier)(nil)

// Option is a functional option for configuring a Classifier.
type Option func(*Classifier)

// WithWhitelist restricts detection to the given ISO 639-3 codes ("hin",
// "kan", ...). Unknown codes are ignored.
func WithWhitelist(codes ...string) Option {
	return func(c *Classifier) {
		wl := make(map[whatlanggo.Lang]bool, len(codes))
		for _, code := range codes {
			if l := whatlanggo.CodeToLang(code); l != -1 {
				wl[l] = true
			}
		}
		if len(wl) > 0 {
			c.opts.Whitelist = wl
		}
	}
}

// Classifier wraps whatlanggo. It holds only immutable options and is safe
// for concurrent use.
type Classifier struct {
	opts whatlanggo.Options
}

// New returns a Classifier configured with opts.
func New(opts ...Option) *Classifier {
	c := &Classifier{}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Predict returns whatlanggo's single best guess.
func (c *Classifier) Predict(ctx context.Context, text string) ([]langid.Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("whatlang: %w", err)
	}
	info := whatlanggo.DetectWithOptions(text, c.opts)
	if info.Lang == -1 {
		return nil, nil
	}
	label, ok := iso6391[info.Lang]
	if !ok {
		label = whatlanggo.LangToString(info.Lang)
	}
	return []langid.Prediction{{Label: label, Probability: info.Confidence}}, nil
}
