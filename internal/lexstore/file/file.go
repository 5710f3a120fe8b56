// Package file reads lexicon overlays from a YAML document:
//
//	languages:
//	  hi:
//	    typos:
//	      mausm: मौसम
//	    words: [मौसम, कैसे]
package file

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/MrWong99/lidroute/internal/lexstore"
	"github.com/MrWong99/lidroute/internal/validation"
)

// Document is the on-disk layout of a lexicon file.
type Document struct {
	Languages map[string]Entry `yaml:"languages"`
}

// Entry holds the overlay for one language.
type Entry struct {
	Typos map[string]string `yaml:"typos,omitempty"`
	Words []string          `yaml:"words,omitempty"`
}

// Source is a [lexstore.Source] backed by a YAML file.
type Source struct {
	path string
}

// Compile-time interface check.
var _ lexstore.Source = (*Source)(nil)

// New returns a Source reading path. The file is not opened until Load.
func New(path string) *Source {
	return &Source{path: path}
}

// Name implements [lexstore.Source].
func (s *Source) Name() string {
	return "file:" + s.path
}

// Load implements [lexstore.Source].
func (s *Source) Load(_ context.Context) (map[string]validation.Overlay, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("lexicon file: read %q: %w", s.path, err)
	}
	return Parse(bytes.NewReader(data))
}

// Parse decodes a lexicon document from r. Unknown keys are rejected. An empty
// document yields no overlays.
func Parse(r io.Reader) (map[string]validation.Overlay, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]validation.Overlay{}, nil
		}
		return nil, fmt.Errorf("lexicon file: decode: %w", err)
	}

	out := make(map[string]validation.Overlay, len(doc.Languages))
	for code, e := range doc.Languages {
		if code == "" {
			return nil, errors.New("lexicon file: empty language code")
		}
		out[code] = validation.Overlay{Typos: e.Typos, Words: e.Words}
	}
	return out, nil
}

// Write encodes overlays as a lexicon document.
func Write(w io.Writer, overlays map[string]validation.Overlay) error {
	doc := Document{Languages: make(map[string]Entry, len(overlays))}
	for code, ov := range overlays {
		doc.Languages[code] = Entry{Typos: ov.Typos, Words: ov.Words}
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("lexicon file: encode: %w", err)
	}
	return enc.Close()
}
