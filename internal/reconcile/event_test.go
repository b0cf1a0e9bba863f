// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Event
		wantErr error
	}{
		{
			name:  "document changed",
			input: `{"kind":"document_changed","count":12}`,
			want:  DocumentChanged{Count: 12},
		},
		{
			name:  "toggle with value",
			input: `{"kind":"sentence_toggled","index":3,"value":"rejected"}`,
			want:  SentenceToggled{Index: 3, Value: rejected},
		},
		{
			name:  "toggle with clicks",
			input: `{"kind":"sentence_toggled","index":3,"clicks":5}`,
			want:  SentenceToggled{Index: 3, Value: accepted},
		},
		{
			name:  "toggle with null value",
			input: `{"kind":"sentence_toggled","index":0,"value":null}`,
			want:  SentenceToggled{Index: 0, Value: unset},
		},
		{
			name:  "redraw",
			input: `{"kind":"redraw_completed"}`,
			want:  RedrawCompleted{},
		},
		{
			name:    "unknown kind",
			input:   `{"kind":"highlight_row"}`,
			wantErr: ErrUnknownEvent,
		},
		{
			name:    "toggle without index",
			input:   `{"kind":"sentence_toggled","value":"accepted"}`,
			wantErr: ErrUnknownEvent,
		},
		{
			name:    "document changed without count",
			input:   `{"kind":"document_changed"}`,
			wantErr: ErrUnknownEvent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.input))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeRejectsBadInput(t *testing.T) {
	_, err := Decode([]byte(`not json`))
	assert.Error(t, err)

	_, err = Decode([]byte(`{"kind":"sentence_toggled","index":1,"value":"maybe"}`))
	assert.Error(t, err)
}

func TestNextFollowsClickCycle(t *testing.T) {
	// Clicking a row repeatedly walks the same values as its click count.
	value := unset
	for clicks := 1; clicks <= 4; clicks++ {
		ev := Next(3, value)
		assert.Equal(t, ToggleFromClicks(3, clicks), ev, "click %d", clicks)
		value = ev.Value
	}
}
