package validation

import (
	"slices"
	"testing"
)

func TestRegistry_UnknownCodeIsEmpty(t *testing.T) {
	t.Parallel()

	reg := DefaultRegistry()
	b := reg.Bundle("ta")
	if reg.Has("ta") {
		t.Error("Has(ta) = true, want false")
	}
	if len(b.Typos()) != 0 || b.Lexicon().Len() != 0 {
		t.Errorf("unknown bundle not empty: %d typos, %d words", len(b.Typos()), b.Lexicon().Len())
	}
}

func TestRegistry_Codes(t *testing.T) {
	t.Parallel()

	got := DefaultRegistry().Codes()
	want := []string{"hi", "kn", "te"}
	if !slices.Equal(got, want) {
		t.Errorf("Codes() = %v, want %v", got, want)
	}
}

func TestRegistry_WithOverlays(t *testing.T) {
	t.Parallel()

	base := DefaultRegistry()
	over := base.WithOverlays(map[string]Overlay{
		"hi": {Typos: map[string]string{"Dilli": "दिल्ली"}, Words: []string{"दिल्ली"}},
		"ta": {Typos: map[string]string{"vanakkam": "வணக்கம்"}},
	})

	if _, ok := over.Bundle("hi").Lookup("dilli"); !ok {
		t.Error("overlay typo missing from hi bundle")
	}
	if _, ok := over.Bundle("hi").Lookup("mausm"); !ok {
		t.Error("overlay dropped base typo")
	}
	if !over.Bundle("hi").Lexicon().Contains("दिल्ली") {
		t.Error("overlay word missing from hi lexicon")
	}
	if !over.Has("ta") {
		t.Error("overlay for new code did not create a bundle")
	}

	// Base registry is untouched.
	if _, ok := base.Bundle("hi").Lookup("dilli"); ok {
		t.Error("overlay leaked into base registry")
	}
}

func TestNewLexicon_Dedup(t *testing.T) {
	t.Parallel()

	l := NewLexicon("a", " a ", "", "b")
	if l.Len() != 2 {
		t.Errorf("Len() = %d, want 2", l.Len())
	}
	if !slices.Equal(l.Words(), []string{"a", "b"}) {
		t.Errorf("Words() = %v", l.Words())
	}
}
