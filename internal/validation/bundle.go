package validation

import (
	"maps"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// TypoTable maps a case-folded misspelling to its canonical form.
type TypoTable map[string]string

// foldKey is the typo-table key for token: lower-cased, then NFKD, matching
// the form tokens have after [Normalize].
func foldKey(token string) string {
	return norm.NFKD.String(strings.ToLower(strings.TrimSpace(token)))
}

// Lexicon is the set of known words for one language. Membership is checked
// on NFKD-normalised forms so that lexicon entries match normalised input;
// the original surface forms are kept for suggestions.
type Lexicon struct {
	keys    map[string]struct{}
	surface []string
}

// NewLexicon builds a Lexicon from words. Duplicates and blank entries are
// dropped.
func NewLexicon(words ...string) Lexicon {
	l := Lexicon{keys: make(map[string]struct{}, len(words))}
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		k := norm.NFKD.String(w)
		if _, dup := l.keys[k]; dup {
			continue
		}
		l.keys[k] = struct{}{}
		l.surface = append(l.surface, w)
	}
	return l
}

// Contains reports whether word is in the lexicon.
func (l Lexicon) Contains(word string) bool {
	_, ok := l.keys[norm.NFKD.String(word)]
	return ok
}

// Words returns a copy of the lexicon's surface forms in insertion order.
func (l Lexicon) Words() []string {
	return slices.Clone(l.surface)
}

// Len returns the number of distinct words.
func (l Lexicon) Len() int {
	return len(l.surface)
}

// Bundle is the immutable configuration for one language: its typo table and
// lexicon. A Bundle is never modified after it is placed in a [Registry].
type Bundle struct {
	Code    string
	typos   TypoTable
	lexicon Lexicon
}

// NewBundle creates a Bundle for code. Typo keys are folded with [foldKey]; the maps
// are copied so later changes to the arguments do not leak in.
func NewBundle(code string, typos map[string]string, words []string) Bundle {
	t := make(TypoTable, len(typos))
	for k, v := range typos {
		k = foldKey(k)
		if k == "" {
			continue
		}
		t[k] = v
	}
	return Bundle{Code: code, typos: t, lexicon: NewLexicon(words...)}
}

// Lookup returns the canonical form for token. Case and composition do not
// matter.
func (b Bundle) Lookup(token string) (string, bool) {
	v, ok := b.typos[foldKey(token)]
	return v, ok
}

// Typos returns a copy of the typo table.
func (b Bundle) Typos() TypoTable {
	return maps.Clone(b.typos)
}

// Lexicon returns the bundle's lexicon.
func (b Bundle) Lexicon() Lexicon {
	return b.lexicon
}

// Merge returns a new Bundle holding b's entries overlaid with the given
// typos and words. b itself is unchanged.
func (b Bundle) Merge(typos map[string]string, words []string) Bundle {
	merged := maps.Clone(b.typos)
	if merged == nil {
		merged = make(TypoTable, len(typos))
	}
	for k, v := range typos {
		merged[foldKey(k)] = v
	}
	all := append(b.lexicon.Words(), words...)
	return NewBundle(b.Code, merged, all)
}

// Registry maps language codes to bundles. Unknown codes resolve to an empty
// bundle, so spell correction becomes the identity transform and every token
// is out of lexicon.
type Registry struct {
	bundles map[string]Bundle
}

// NewRegistry builds a Registry from bundles. Later bundles with the same code
// replace earlier ones.
func NewRegistry(bundles ...Bundle) *Registry {
	r := &Registry{bundles: make(map[string]Bundle, len(bundles))}
	for _, b := range bundles {
		r.bundles[b.Code] = b
	}
	return r
}

// Bundle returns the bundle for code, or an empty bundle when code is unknown.
func (r *Registry) Bundle(code string) Bundle {
	if b, ok := r.bundles[code]; ok {
		return b
	}
	return Bundle{Code: code}
}

// Has reports whether code has a registered bundle.
func (r *Registry) Has(code string) bool {
	_, ok := r.bundles[code]
	return ok
}

// Codes returns the registered codes, sorted.
func (r *Registry) Codes() []string {
	return slices.Sorted(maps.Keys(r.bundles))
}

// Overlay is a set of additional entries for one language, as loaded from an
// external lexicon source.
type Overlay struct {
	Typos map[string]string
	Words []string
}

// WithOverlays returns a new Registry in which every overlay is merged over
// the matching bundle. Overlays for codes without a bundle create one.
func (r *Registry) WithOverlays(overlays map[string]Overlay) *Registry {
	out := &Registry{bundles: maps.Clone(r.bundles)}
	for code, ov := range overlays {
		base, ok := out.bundles[code]
		if !ok {
			base = Bundle{Code: code}
		}
		out.bundles[code] = base.Merge(ov.Typos, ov.Words)
	}
	return out
}
