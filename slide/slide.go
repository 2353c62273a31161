// Package slide defines the frames shown by the sign-in carousel and the
// immutable, ordered deck that holds them.
package slide

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrEmptyDeck is returned when a deck would contain no slides.
var ErrEmptyDeck = errors.New("slide: deck must contain at least one slide")

// ErrInvalidDescriptor is returned when a slide cannot be displayed.
var ErrInvalidDescriptor = errors.New("slide: invalid descriptor")

//go:embed default_deck.yaml
var defaultDeckYAML string

// Descriptor describes one carousel frame.
type Descriptor struct {
	ImageRef string `yaml:"image" json:"image"`
	Quote    string `yaml:"quote" json:"quote"`
	Author   string `yaml:"author" json:"author"`
}

// Validate checks that the descriptor references an image.
func (d Descriptor) Validate() error {
	if strings.TrimSpace(d.ImageRef) == "" {
		return fmt.Errorf("%w: empty image reference", ErrInvalidDescriptor)
	}

	if _, err := url.Parse(d.ImageRef); err != nil {
		return fmt.Errorf("%w: image reference %q: %v",
			ErrInvalidDescriptor, d.ImageRef, err)
	}

	return nil
}

// Deck is a fixed, ordered, non-empty list of slides. The zero value is not
// usable; create decks with NewDeck, ParseDeck, LoadDeck or DefaultDeck.
type Deck struct {
	slides []Descriptor
}

// NewDeck copies the given descriptors into a new deck.
func NewDeck(descriptors ...Descriptor) (Deck, error) {
	if len(descriptors) == 0 {
		return Deck{}, ErrEmptyDeck
	}

	for i, d := range descriptors {
		if err := d.Validate(); err != nil {
			return Deck{}, fmt.Errorf("slide %d: %w", i, err)
		}
	}

	slides := make([]Descriptor, len(descriptors))
	copy(slides, descriptors)

	return Deck{slides: slides}, nil
}

// MustNewDeck is NewDeck that panics on error.
func MustNewDeck(descriptors ...Descriptor) Deck {
	d, err := NewDeck(descriptors...)
	if err != nil {
		panic(err)
	}

	return d
}

// Len returns the number of slides.
func (d Deck) Len() int {
	return len(d.slides)
}

// At returns the slide at index i. It panics if i is out of range.
func (d Deck) At(i int) Descriptor {
	return d.slides[i]
}

// Slides returns a copy of all slides in order.
func (d Deck) Slides() []Descriptor {
	out := make([]Descriptor, len(d.slides))
	copy(out, d.slides)

	return out
}

// ImageRefs returns the image reference of every slide in order.
func (d Deck) ImageRefs() []string {
	refs := make([]string, 0, len(d.slides))
	for _, s := range d.slides {
		refs = append(refs, s.ImageRef)
	}

	return refs
}

type deckFile struct {
	Slides []Descriptor `yaml:"slides"`
}

// ParseDeck reads a YAML deck of the form
//
//	slides:
//	  - image: /images/a.jpg
//	    quote: ...
//	    author: ...
func ParseDeck(r io.Reader) (Deck, error) {
	var f deckFile

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return Deck{}, ErrEmptyDeck
		}

		return Deck{}, fmt.Errorf("slide: decode deck: %w", err)
	}

	return NewDeck(f.Slides...)
}

// LoadDeck reads a YAML deck from a file.
func LoadDeck(path string) (Deck, error) {
	f, err := os.Open(path)
	if err != nil {
		return Deck{}, fmt.Errorf("slide: open deck: %w", err)
	}
	defer f.Close()

	return ParseDeck(f)
}

// DefaultDeck returns the three slides shown on the sign-in screen.
func DefaultDeck() Deck {
	d, err := ParseDeck(strings.NewReader(defaultDeckYAML))
	if err != nil {
		panic(err)
	}

	return d
}

// WriteDeck encodes d in the format read by ParseDeck.
func WriteDeck(w io.Writer, d Deck) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(deckFile{Slides: d.slides}); err != nil {
		return fmt.Errorf("slide: encode deck: %w", err)
	}

	return enc.Close()
}
