package validation

import (
	"slices"
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.70
	defaultFuzzyThreshold    = 0.85
)

// PhoneticOption is a functional option for configuring a [PhoneticMatcher].
type PhoneticOption func(*PhoneticMatcher)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score a candidate that
// shares a Double Metaphone code with the token must reach. Default: 0.70.
func WithPhoneticThreshold(threshold float64) PhoneticOption {
	return func(m *PhoneticMatcher) {
		m.phoneticThreshold = threshold
	}
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score for candidates
// without a phonetic match. Default: 0.85.
func WithFuzzyThreshold(threshold float64) PhoneticOption {
	return func(m *PhoneticMatcher) {
		m.fuzzyThreshold = threshold
	}
}

// PhoneticMatcher finds the romanized typo-table key that sounds most like an
// unknown Latin-script token. It is read-only after construction.
//
// Candidates whose Double Metaphone codes overlap the token's are preferred
// and ranked by Jaro-Winkler similarity. When none qualifies, a stricter pure
// Jaro-Winkler pass is used.
type PhoneticMatcher struct {
	phoneticThreshold float64
	fuzzyThreshold    float64
}

// NewPhoneticMatcher returns a matcher with the supplied options applied.
func NewPhoneticMatcher(opts ...PhoneticOption) *PhoneticMatcher {
	m := &PhoneticMatcher{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Match returns the candidate closest to token. When matched is false,
// best is "" and score is 0.
func (m *PhoneticMatcher) Match(token string, candidates []string) (best string, score float64, matched bool) {
	token = strings.ToLower(strings.TrimSpace(token))
	if token == "" || len(candidates) == 0 {
		return "", 0, false
	}
	tokenCodes := metaphoneCodes(token)

	phonetic := false
	for _, c := range candidates {
		lc := strings.ToLower(c)
		if lc == "" {
			continue
		}
		s := matchr.JaroWinkler(token, lc, false)
		if codesOverlap(tokenCodes, metaphoneCodes(lc)) {
			if s >= m.phoneticThreshold && (!phonetic || s > score) {
				best, score, phonetic = c, s, true
			}
		} else if !phonetic && s >= m.fuzzyThreshold && s > score {
			best, score = c, s
		}
	}
	return best, score, best != ""
}

// Respell matches a Latin-script token against the keys of table and
// returns the canonical form of the best key.
func (m *PhoneticMatcher) Respell(token string, table TypoTable) (canonical string, score float64, ok bool) {
	if !isLatin(token) || len(table) == 0 {
		return "", 0, false
	}
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	// Sorted so ties resolve the same way on every call.
	slices.Sort(keys)
	key, score, ok := m.Match(token, keys)
	if !ok {
		return "", 0, false
	}
	return table[key], score, true
}

// metaphoneCodes returns the non-empty Double Metaphone codes of s.
func metaphoneCodes(s string) []string {
	p, alt := matchr.DoubleMetaphone(s)
	var out []string
	if p != "" {
		out = append(out, p)
	}
	if alt != "" && alt != p {
		out = append(out, alt)
	}
	return out
}

func codesOverlap(a, b []string) bool {
	for _, c := range a {
		if slices.Contains(b, c) {
			return true
		}
	}
	return false
}

// isLatin reports whether s consists of ASCII letters only.
func isLatin(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
