// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package session

import (
	"context"
	"errors"
	"time"

	"github.com/pdiddy/flavia/internal/annotation"
	"github.com/pdiddy/flavia/pkg/types"
)

// ErrNotFound is returned when a session id is unknown to the store.
var ErrNotFound = errors.New("session not found")

// State is everything one session knows. Document and Vector are replaced
// together; a nil Vector means no document has been processed yet.
type State struct {
	ID string `json:"id" yaml:"id"`

	// Filename and Upload hold the most recent upload, which becomes a
	// Document only when processed.
	Filename string `json:"filename" yaml:"filename"`
	Upload   []byte `json:"-" yaml:"-"`

	// Query is the free-text question the reader is highlighting against.
	Query string `json:"query" yaml:"query"`

	Document *types.Document   `json:"document,omitempty" yaml:"document,omitempty"`
	Vector   annotation.Vector `json:"vector,omitempty" yaml:"vector,omitempty"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// Clone returns a deep copy of s.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	c := *s
	if s.Upload != nil {
		c.Upload = append([]byte(nil), s.Upload...)
	}
	c.Document = s.Document.Clone()
	c.Vector = s.Vector.Clone()
	return &c
}

// HasDocument reports whether a document has been processed.
func (s *State) HasDocument() bool {
	return s.Document != nil && s.Vector != nil
}

// Store keeps session snapshots for as long as the session lives.
// Implementations must copy on Save and Load so that callers never share
// memory with the store.
type Store interface {
	Save(ctx context.Context, st *State) error
	Load(ctx context.Context, id string) (*State, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]string, error)
}
