// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/flavia/internal/session"
)

var _ session.Observer = (*Collector)(nil)

func scrape(t *testing.T, c *Collector) string {
	t.Helper()
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestCollectorRecordsActivity(t *testing.T) {
	c := New()

	c.SessionsChanged(1)
	c.SessionsChanged(1)
	c.SessionsChanged(-1)
	c.EventApplied("sentence_toggled", "set")
	c.EventApplied("sentence_toggled", "set")
	c.EventApplied("redraw_completed", "passthrough")
	c.DocumentProcessed(42, nil)
	c.DocumentProcessed(0, errors.New("no text"))
	c.ExportServed("csv", false)
	c.ExportServed("txt", true)

	body := scrape(t, c)
	for _, line := range []string{
		`flavia_active_sessions 1`,
		`flavia_events_total{kind="sentence_toggled",outcome="set"} 2`,
		`flavia_events_total{kind="redraw_completed",outcome="passthrough"} 1`,
		`flavia_documents_processed_total{result="ok"} 1`,
		`flavia_documents_processed_total{result="failed"} 1`,
		`flavia_document_sentences_count 1`,
		`flavia_document_sentences_sum 42`,
		`flavia_exports_total{empty="false",format="csv"} 1`,
		`flavia_exports_total{empty="true",format="txt"} 1`,
	} {
		assert.Contains(t, body, line)
	}
	assert.Contains(t, body, "go_goroutines")
}

func TestCollectorsAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.SessionsChanged(3)

	assert.Contains(t, scrape(t, a), "flavia_active_sessions 3")
	assert.Contains(t, scrape(t, b), "flavia_active_sessions 0")
}
