// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reconcile

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pdiddy/flavia/pkg/types"
)

// ErrUnknownEvent is returned by Decode for envelopes whose kind is not one
// of the known event kinds, or whose required fields are missing.
var ErrUnknownEvent = errors.New("unknown event")

// Kind names an event variant on the wire.
type Kind string

const (
	KindDocumentChanged Kind = "document_changed"
	KindSentenceToggled Kind = "sentence_toggled"
	KindRedrawCompleted Kind = "redraw_completed"
)

// Event is one UI-originated update. The concrete type says what happened;
// nothing downstream inspects payload shape to find out.
type Event interface {
	Kind() Kind
	isEvent()
}

// DocumentChanged reports that a new document with Count sentences has
// replaced the previous one.
type DocumentChanged struct {
	Count int
}

// SentenceToggled reports that the row at Index now displays Value.
type SentenceToggled struct {
	Index int
	Value types.Relevance
}

// RedrawCompleted is fired by the UI after it has re-materialized a row with
// no initial value. It never carries an annotation change.
type RedrawCompleted struct {
	Row int
}

func (DocumentChanged) Kind() Kind { return KindDocumentChanged }
func (SentenceToggled) Kind() Kind { return KindSentenceToggled }
func (RedrawCompleted) Kind() Kind { return KindRedrawCompleted }

func (DocumentChanged) isEvent() {}
func (SentenceToggled) isEvent() {}
func (RedrawCompleted) isEvent() {}

// ToggleFromClicks maps the click count of a row to a toggle event: odd
// counts accept, even non-zero counts reject, and zero carries no value.
func ToggleFromClicks(index, clicks int) SentenceToggled {
	ev := SentenceToggled{Index: index, Value: types.RelevanceUnset}
	switch {
	case clicks <= 0:
	case clicks%2 == 1:
		ev.Value = types.RelevanceAccepted
	default:
		ev.Value = types.RelevanceRejected
	}
	return ev
}

// Next returns the toggle a click produces on the row at index while it
// shows current.
func Next(index int, current types.Relevance) SentenceToggled {
	return SentenceToggled{Index: index, Value: current.Next()}
}

// envelope is the JSON form of an event.
type envelope struct {
	Kind   Kind    `json:"kind"`
	Count  *int    `json:"count,omitempty"`
	Index  *int    `json:"index,omitempty"`
	Value  *string `json:"value,omitempty"`
	Clicks *int    `json:"clicks,omitempty"`
	Row    int     `json:"row,omitempty"`
}

// Decode parses a JSON event envelope into its concrete variant.
//
//	{"kind": "document_changed", "count": 12}
//	{"kind": "sentence_toggled", "index": 3, "value": "accepted"}
//	{"kind": "sentence_toggled", "index": 3, "clicks": 2}
//	{"kind": "redraw_completed", "row": 0}
//
// A toggle with a null value and no click count decodes to an unset value,
// which Apply ignores.
func Decode(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decoding event: %w", err)
	}

	switch env.Kind {
	case KindDocumentChanged:
		if env.Count == nil {
			return nil, fmt.Errorf("%w: %s without count", ErrUnknownEvent, env.Kind)
		}
		return DocumentChanged{Count: *env.Count}, nil

	case KindSentenceToggled:
		if env.Index == nil {
			return nil, fmt.Errorf("%w: %s without index", ErrUnknownEvent, env.Kind)
		}
		if env.Clicks != nil {
			return ToggleFromClicks(*env.Index, *env.Clicks), nil
		}
		value := types.RelevanceUnset
		if env.Value != nil {
			v, err := types.ParseRelevance(*env.Value)
			if err != nil {
				return nil, fmt.Errorf("decoding %s: %w", env.Kind, err)
			}
			value = v
		}
		return SentenceToggled{Index: *env.Index, Value: value}, nil

	case KindRedrawCompleted:
		return RedrawCompleted{Row: env.Row}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Kind)
}
