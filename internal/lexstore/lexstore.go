// Package lexstore loads additional typo-table and lexicon entries from
// external sources and merges them into the built-in validation bundles.
//
// Sources are read once per router build: at startup and on every config
// reload. A live router never observes a source change.
package lexstore

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/MrWong99/lidroute/internal/validation"
)

// Source provides per-language overlays.
type Source interface {
	// Name identifies the source in logs and health checks.
	Name() string

	// Load returns the overlays held by the source, keyed by language code.
	Load(ctx context.Context) (map[string]validation.Overlay, error)
}

// Merge folds src into dst and returns dst. Typo entries from src replace
// entries with the same misspelling; words are appended. A nil dst is
// allocated.
func Merge(dst, src map[string]validation.Overlay) map[string]validation.Overlay {
	if dst == nil {
		dst = make(map[string]validation.Overlay, len(src))
	}
	for code, ov := range src {
		code = strings.ToLower(strings.TrimSpace(code))
		cur := dst[code]
		if len(ov.Typos) > 0 {
			if cur.Typos == nil {
				cur.Typos = make(map[string]string, len(ov.Typos))
			}
			maps.Copy(cur.Typos, ov.Typos)
		}
		cur.Words = append(cur.Words, ov.Words...)
		dst[code] = cur
	}
	return dst
}

// LoadAll loads every source in order and merges the results, so later
// sources win on conflicting typo entries. A failing source is skipped and
// its error is included in the joined error returned alongside the overlays
// of the sources that succeeded.
func LoadAll(ctx context.Context, sources ...Source) (map[string]validation.Overlay, error) {
	var (
		merged map[string]validation.Overlay
		errs   []error
	)
	for _, s := range sources {
		ov, err := s.Load(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("lexstore: load %s: %w", s.Name(), err))
			continue
		}
		merged = Merge(merged, ov)
	}
	return merged, errors.Join(errs...)
}

// FromRegistry converts the bundles of reg into overlays, e.g. to seed a
// store with the built-in tables.
func FromRegistry(reg *validation.Registry) map[string]validation.Overlay {
	out := make(map[string]validation.Overlay)
	for _, code := range reg.Codes() {
		b := reg.Bundle(code)
		out[code] = validation.Overlay{
			Typos: b.Typos(),
			Words: b.Lexicon().Words(),
		}
	}
	return out
}

// Codes returns the language codes present in overlays, sorted.
func Codes(overlays map[string]validation.Overlay) []string {
	return slices.Sorted(maps.Keys(overlays))
}
