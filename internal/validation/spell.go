package validation

import "strings"

// SpellCorrector replaces tokens found in a typo table with their canonical
// form. It is a pure function of its input and the bundle.
type SpellCorrector struct {
	bundle Bundle
}

// NewSpellCorrector returns a SpellCorrector for bundle.
func NewSpellCorrector(bundle Bundle) SpellCorrector {
	return SpellCorrector{bundle: bundle}
}

// Correct splits text on whitespace, lower-cases each token and looks it up in
// the typo table. Tokens are lower-cased with strings.ToLower, not full
// Unicode case folding. Hits are replaced, misses are kept as written. Tokens are
// rejoined with single spaces.
func (c SpellCorrector) Correct(text string) string {
	tokens := tokenize(text)
	for i, tok := range tokens {
		if canon, ok := c.bundle.Lookup(tok); ok {
			tokens[i] = canon
		}
	}
	return strings.Join(tokens, " ")
}
