package validation

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// MembershipHook decides what happens to a token after its lexicon check.
// It returns the token to emit (possibly rewritten) and whether to keep it.
type MembershipHook func(lang, token string, known bool) (string, bool)

// KeepAll keeps every token. Out-of-lexicon tokens are assumed to be proper
// nouns and pass through unchanged.
func KeepAll(_, token string, _ bool) (string, bool) {
	return token, true
}

// DropUnknown removes tokens that are not in the lexicon.
func DropUnknown(_, token string, known bool) (string, bool) {
	return token, known
}

// DictionaryValidator checks tokens against a language lexicon.
type DictionaryValidator struct {
	bundle Bundle
	hook   MembershipHook
}

// NewDictionaryValidator returns a validator for bundle. A nil hook means
// [KeepAll].
func NewDictionaryValidator(bundle Bundle, hook MembershipHook) DictionaryValidator {
	if hook == nil {
		hook = KeepAll
	}
	return DictionaryValidator{bundle: bundle, hook: hook}
}

// Check reports whether token is a known word.
func (v DictionaryValidator) Check(token string) bool {
	return v.bundle.lexicon.Contains(token)
}

// Validate passes every token through the membership hook and rejoins the
// kept tokens with single spaces.
func (v DictionaryValidator) Validate(text string) string {
	tokens := tokenize(text)
	out := tokens[:0]
	for _, tok := range tokens {
		if t, keep := v.hook(v.bundle.Code, tok, v.Check(tok)); keep {
			out = append(out, t)
		}
	}
	return strings.TrimSpace(strings.Join(out, " "))
}

// Suggest returns every lexicon word that contains token with its last rune
// removed, or token with its first rune removed, as a substring. Known tokens
// and empty tokens yield nil. The result has no defined order.
func (v DictionaryValidator) Suggest(token string) []string {
	if token == "" || v.Check(token) {
		return nil
	}
	r := []rune(token)
	head, tail := string(r[:len(r)-1]), string(r[1:])

	var out []string
	for _, w := range v.bundle.lexicon.surface {
		if strings.Contains(w, head) || strings.Contains(w, tail) {
			out = append(out, w)
		}
	}
	return out
}

// Closest returns the candidate with the highest Jaro-Winkler similarity to
// token, or "" when candidates is empty. It is a diagnostic aid only.
func Closest(token string, candidates []string) (string, float64) {
	best, bestScore := "", 0.0
	lower := strings.ToLower(token)
	for _, c := range candidates {
		s := matchr.JaroWinkler(lower, strings.ToLower(c), false)
		if best == "" || s > bestScore {
			best, bestScore = c, s
		}
	}
	return best, bestScore
}

// TokenReport is the diagnostic view of a single token.
type TokenReport struct {
	Token       string   `json:"token"`
	Known       bool     `json:"known"`
	Suggestions []string `json:"suggestions,omitempty"`
	Closest     string   `json:"closest,omitempty"`
	Similarity  float64  `json:"similarity,omitempty"`

	// Respelling is the canonical form of the typo-table entry that sounds
	// most like a romanized token the corrector did not recognise.
	Respelling string `json:"respelling,omitempty"`
}

var inspectMatcher = NewPhoneticMatcher()

// Inspect returns a report for each whitespace-separated token of text.
func (v DictionaryValidator) Inspect(text string) []TokenReport {
	tokens := tokenize(text)
	reports := make([]TokenReport, 0, len(tokens))
	for _, tok := range tokens {
		rep := TokenReport{Token: tok, Known: v.Check(tok)}
		if !rep.Known {
			rep.Suggestions = v.Suggest(tok)
			rep.Closest, rep.Similarity = Closest(tok, rep.Suggestions)
			rep.Respelling, _, _ = inspectMatcher.Respell(tok, v.bundle.typos)
		}
		reports = append(reports, rep)
	}
	return reports
}
