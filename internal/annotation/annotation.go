// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package annotation holds the per-sentence relevance vector of a document.
// Every operation returns a new Vector; a Vector handed out is never
// modified afterwards, so callers may keep old vectors as snapshots.
package annotation

import (
	"errors"
	"fmt"

	"github.com/pdiddy/flavia/pkg/types"
)

// ErrIndexOutOfRange is returned when an index does not address an entry of
// the vector. It usually means the caller holds an index from an older
// document.
var ErrIndexOutOfRange = errors.New("annotation index out of range")

// Vector is the relevance of each sentence, aligned by index with the
// sentences of the current document.
type Vector []types.Relevance

// Entry is one judged sentence: its index and its non-unset value.
type Entry struct {
	Index int             `json:"index" yaml:"index"`
	Value types.Relevance `json:"value" yaml:"value"`
}

// Counts tallies the values of a vector.
type Counts struct {
	Accepted int `json:"accepted" yaml:"accepted"`
	Rejected int `json:"rejected" yaml:"rejected"`
	Unset    int `json:"unset" yaml:"unset"`
}

// Total returns the number of entries counted.
func (c Counts) Total() int {
	return c.Accepted + c.Rejected + c.Unset
}

// Reset returns a vector of n entries, all unset. A negative n yields an
// empty vector.
func Reset(n int) Vector {
	if n < 0 {
		n = 0
	}
	v := make(Vector, n)
	for i := range v {
		v[i] = types.RelevanceUnset
	}
	return v
}

// Set returns a copy of v with position index set to value. v itself is
// left untouched; on error the returned vector is v.
func Set(v Vector, index int, value types.Relevance) (Vector, error) {
	if index < 0 || index >= len(v) {
		return v, fmt.Errorf("%w: index %d, vector length %d", ErrIndexOutOfRange, index, len(v))
	}
	out := v.Clone()
	out[index] = value
	return out, nil
}

// Read lists the entries of v that are not unset, in index order.
func Read(v Vector) []Entry {
	var entries []Entry
	for i, r := range v {
		if r.IsSet() {
			entries = append(entries, Entry{Index: i, Value: r})
		}
	}
	return entries
}

// Tally counts accepted, rejected, and unset entries. Unknown values count
// as unset.
func Tally(v Vector) Counts {
	var c Counts
	for _, r := range v {
		switch r {
		case types.RelevanceAccepted:
			c.Accepted++
		case types.RelevanceRejected:
			c.Rejected++
		default:
			c.Unset++
		}
	}
	return c
}

// Clone returns a copy of v. The copy of a nil vector is nil.
func (v Vector) Clone() Vector {
	if v == nil {
		return nil
	}
	out := make(Vector, len(v))
	copy(out, v)
	return out
}

// At returns the value at index, or unset when index is out of range.
func (v Vector) At(index int) types.Relevance {
	if index < 0 || index >= len(v) {
		return types.RelevanceUnset
	}
	return v[index]
}
