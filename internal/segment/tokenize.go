// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package segment

import (
	"fmt"
	"strings"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
)

// Tokenizer splits normalized text into sentences with the English Punkt
// model bundled with github.com/neurosnap/sentences.
type Tokenizer struct {
	punkt interface {
		Tokenize(text string) []*sentences.Sentence
	}
}

// NewTokenizer loads the English training data.
func NewTokenizer() (*Tokenizer, error) {
	t, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		return nil, fmt.Errorf("loading sentence tokenizer: %w", err)
	}
	return &Tokenizer{punkt: t}, nil
}

// Split returns the trimmed, non-empty sentences of text in order.
func (t *Tokenizer) Split(text string) []string {
	var out []string
	for _, s := range t.punkt.Tokenize(text) {
		if trimmed := strings.TrimSpace(s.Text); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Normalize flattens extracted text into one paragraph: words hyphenated
// across a line break are joined, remaining line breaks become spaces, and
// runs of whitespace collapse to a single space.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "-\n", "")
	text = strings.ReplaceAll(text, "\n", " ")
	return strings.Join(strings.Fields(text), " ")
}
