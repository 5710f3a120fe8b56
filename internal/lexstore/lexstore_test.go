package lexstore

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/MrWong99/lidroute/internal/validation"
)

type staticSource struct {
	name string
	ov   map[string]validation.Overlay
	err  error
}

func (s staticSource) Name() string { return s.name }

func (s staticSource) Load(context.Context) (map[string]validation.Overlay, error) {
	return s.ov, s.err
}

func TestMerge(t *testing.T) {
	t.Parallel()

	dst := Merge(nil, map[string]validation.Overlay{
		"hi": {Typos: map[string]string{"kl": "कल"}, Words: []string{"कल"}},
	})
	dst = Merge(dst, map[string]validation.Overlay{
		" HI ": {Typos: map[string]string{"kl": "काल", "aaj": "आज"}, Words: []string{"आज"}},
		"ta":   {Words: []string{"வணக்கம்"}},
	})

	if got := dst["hi"].Typos["kl"]; got != "काल" {
		t.Errorf("later source should win: kl = %q", got)
	}
	if got := dst["hi"].Typos["aaj"]; got != "आज" {
		t.Errorf("aaj = %q", got)
	}
	if !slices.Equal(dst["hi"].Words, []string{"कल", "आज"}) {
		t.Errorf("hi words = %v", dst["hi"].Words)
	}
	if got := Codes(dst); !slices.Equal(got, []string{"hi", "ta"}) {
		t.Errorf("Codes() = %v", got)
	}
}

func TestLoadAll_PartialFailure(t *testing.T) {
	t.Parallel()

	ok := staticSource{name: "ok", ov: map[string]validation.Overlay{"kn": {Words: []string{"ಇದು"}}}}
	bad := staticSource{name: "redis", err: errors.New("connection refused")}

	got, err := LoadAll(context.Background(), bad, ok)
	if err == nil {
		t.Fatal("expected error from failing source")
	}
	if !strings.Contains(err.Error(), "redis") {
		t.Errorf("error %q should name the failing source", err)
	}
	if len(got["kn"].Words) != 1 {
		t.Errorf("overlays from healthy sources should be kept, got %v", got)
	}
}

func TestLoadAll_NoSources(t *testing.T) {
	t.Parallel()

	got, err := LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %v, want empty", got)
	}
}

func TestFromRegistry(t *testing.T) {
	t.Parallel()

	ov := FromRegistry(validation.DefaultRegistry())
	if got := Codes(ov); !slices.Equal(got, []string{"hi", "kn", "te"}) {
		t.Fatalf("codes = %v", got)
	}
	if ov["hi"].Typos["mausm"] != "मौसम" {
		t.Errorf("hi typos = %v", ov["hi"].Typos)
	}

	reg := validation.NewRegistry().WithOverlays(ov)
	if !reg.Bundle("te").Lexicon().Contains("ఈరోజు") {
		t.Error("overlays should rebuild the te lexicon")
	}
}
