// Package validation implements the per-language text validation stage that
// runs before routing.
//
// A [Pipeline] is built for exactly one language and applies three steps:
//
//  1. [Normalize]: whitespace collapsing and NFKD compatibility decomposition,
//     so that visually equivalent code-point sequences compare equal.
//  2. [SpellCorrector]: substitution of known misspellings (typically
//     romanised spellings typed on a Latin keyboard) with canonical words,
//     driven by a fixed per-language typo table.
//  3. [DictionaryValidator]: a per-token lexicon membership check whose
//     outcome is decided by a pluggable [MembershipHook]. The default hook
//     keeps every token, assuming out-of-lexicon words are proper nouns.
//
// Tables and lexicons live in immutable [Bundle] values held by a [Registry].
// Everything in this package is read-only after construction and safe for
// concurrent use.
package validation

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Normalize applies NFKD, then collapses every run of whitespace to a single
// space and trims both ends. NFKD can introduce spaces (U+00A8 becomes a
// space plus U+0308), so it runs first. Text that is not valid UTF-8 yields "".
//
// Normalize is idempotent: normalizing its own output returns it unchanged.
func Normalize(text string) string {
	if !utf8.ValidString(text) {
		return ""
	}
	return strings.Join(strings.Fields(norm.NFKD.String(text)), " ")
}

// tokenize splits text on unicode whitespace.
func tokenize(text string) []string {
	return strings.Fields(text)
}
