// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package reconcile merges UI events into the annotation vector of a
// session. Events arrive one at a time and carry their own identity, so the
// result depends only on the current vector and the event itself.
package reconcile

import (
	"fmt"

	"github.com/pdiddy/flavia/internal/annotation"
)

// Outcome says what Apply did with an event.
type Outcome string

const (
	// OutcomeReset means a new all-unset vector replaced the current one.
	OutcomeReset Outcome = "reset"
	// OutcomeSet means one entry of the current vector changed.
	OutcomeSet Outcome = "set"
	// OutcomePassthrough means the current vector was re-emitted unchanged.
	OutcomePassthrough Outcome = "passthrough"
	// OutcomeIgnored means the event produced no state.
	OutcomeIgnored Outcome = "ignored"
	// OutcomeFailed means the event was rejected with an error.
	OutcomeFailed Outcome = "failed"
)

// Apply returns the vector that results from ev given current. A nil
// current means no document has been loaded yet.
//
//   - DocumentChanged with a positive count resets to that many unset entries.
//   - SentenceToggled with an accepted or rejected value sets one entry of
//     an existing vector. An index outside the vector fails with
//     annotation.ErrIndexOutOfRange and leaves current as it was.
//   - RedrawCompleted passes an existing vector through unchanged.
//   - Everything else is ignored and current is returned as-is.
//
// The returned vector is never current itself when it differs from it, so
// callers may hold on to current as a snapshot.
func Apply(current annotation.Vector, ev Event) (annotation.Vector, Outcome, error) {
	switch e := ev.(type) {
	case DocumentChanged:
		if e.Count > 0 {
			return annotation.Reset(e.Count), OutcomeReset, nil
		}

	case SentenceToggled:
		if current == nil || !e.Value.IsSet() {
			break
		}
		next, err := annotation.Set(current, e.Index, e.Value)
		if err != nil {
			return current, OutcomeFailed, fmt.Errorf("toggling sentence %d: %w", e.Index, err)
		}
		return next, OutcomeSet, nil

	case RedrawCompleted:
		if current != nil {
			return current, OutcomePassthrough, nil
		}
	}

	return current, OutcomeIgnored, nil
}

// Replay applies events in order starting from current and returns the
// final vector. It stops at the first error.
func Replay(current annotation.Vector, events ...Event) (annotation.Vector, error) {
	v := current
	for _, ev := range events {
		next, _, err := Apply(v, ev)
		if err != nil {
			return v, err
		}
		v = next
	}
	return v, nil
}
