// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"time"
	"unicode/utf8"
)

// Document is the ordered sentence sequence produced by one successful
// upload+process action. A Document is never mutated after creation; the
// next successful processing replaces it wholesale.
type Document struct {
	// ID is a UUID assigned when the document is created.
	ID string `json:"id" yaml:"id"`

	// Filename is the name of the uploaded file the sentences came from.
	Filename string `json:"filename" yaml:"filename"`

	// Sentences holds the sentence texts. A sentence is identified only by
	// its 0-based position in this slice.
	Sentences []string `json:"sentences" yaml:"sentences"`

	// CreatedAt is when the document was segmented.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Len returns the number of sentences, treating a nil document as empty.
func (d *Document) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Sentences)
}

// Characters returns the number of characters across all sentences, counted
// as if the sentences were concatenated without separators.
func (d *Document) Characters() int {
	if d == nil {
		return 0
	}
	n := 0
	for _, s := range d.Sentences {
		n += utf8.RuneCountInString(s)
	}
	return n
}

// Clone returns a deep copy of d.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	c := *d
	c.Sentences = append([]string(nil), d.Sentences...)
	return &c
}
