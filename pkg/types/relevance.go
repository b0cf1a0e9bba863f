// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// Relevance is the tri-state judgement a reader assigns to one sentence.
type Relevance string

const (
	RelevanceUnset    Relevance = "unset"
	RelevanceAccepted Relevance = "accepted"
	RelevanceRejected Relevance = "rejected"
)

// Valid reports whether r is one of the three known values.
func (r Relevance) Valid() bool {
	switch r {
	case RelevanceUnset, RelevanceAccepted, RelevanceRejected:
		return true
	}
	return false
}

// IsSet reports whether r carries a judgement (accepted or rejected).
func (r Relevance) IsSet() bool {
	return r == RelevanceAccepted || r == RelevanceRejected
}

// Next returns the display value a row moves to when clicked. The cycle
// only visits unset once: unset -> accepted -> rejected -> accepted.
func (r Relevance) Next() Relevance {
	if r == RelevanceAccepted {
		return RelevanceRejected
	}
	return RelevanceAccepted
}

// ParseRelevance converts a wire string into a Relevance. The empty string
// is read as unset.
func ParseRelevance(s string) (Relevance, error) {
	if s == "" {
		return RelevanceUnset, nil
	}
	r := Relevance(s)
	if !r.Valid() {
		return RelevanceUnset, fmt.Errorf("unknown relevance %q: use unset, accepted, or rejected", s)
	}
	return r, nil
}
