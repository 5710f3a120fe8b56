package validation

import "unicode/utf8"

// Option is a functional option for configuring a [Pipeline].
type Option func(*Pipeline)

// WithMembershipHook replaces the default [KeepAll] lexicon policy.
func WithMembershipHook(h MembershipHook) Option {
	return func(p *Pipeline) {
		if h != nil {
			p.hook = h
		}
	}
}

// Pipeline composes Normalize → SpellCorrector → DictionaryValidator for one
// fixed language. It is pure, synchronous and safe for concurrent use.
type Pipeline struct {
	code      string
	hook      MembershipHook
	corrector SpellCorrector
	validator DictionaryValidator
}

// NewPipeline builds the pipeline for bundle.Code.
func NewPipeline(bundle Bundle, opts ...Option) *Pipeline {
	p := &Pipeline{code: bundle.Code, hook: KeepAll}
	for _, o := range opts {
		o(p)
	}
	p.corrector = NewSpellCorrector(bundle)
	p.validator = NewDictionaryValidator(bundle, p.hook)
	return p
}

// Code returns the language this pipeline serves.
func (p *Pipeline) Code() string {
	return p.code
}

// Process returns the cleaned form of text. Empty input or input that is not
// valid UTF-8 returns "" without touching any per-language table.
func (p *Pipeline) Process(text string) string {
	if text == "" || !utf8.ValidString(text) {
		return ""
	}
	normalized := Normalize(text)
	corrected := p.corrector.Correct(normalized)
	return p.validator.Validate(corrected)
}

// Validator exposes the pipeline's dictionary validator for diagnostics.
func (p *Pipeline) Validator() DictionaryValidator {
	return p.validator
}

// NewPipelines builds one pipeline per code from reg, in the order given.
func NewPipelines(reg *Registry, codes []string, opts ...Option) []*Pipeline {
	out := make([]*Pipeline, 0, len(codes))
	for _, c := range codes {
		out = append(out, NewPipeline(reg.Bundle(c), opts...))
	}
	return out
}
