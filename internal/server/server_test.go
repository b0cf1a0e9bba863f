// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/flavia/internal/metrics"
	"github.com/pdiddy/flavia/internal/segment"
	"github.com/pdiddy/flavia/internal/session"
	"github.com/pdiddy/flavia/internal/store"
	"github.com/pdiddy/flavia/pkg/types"
)

const paperText = "The cat sat on the mat. The dog chased the ball. Birds sang in the morning."

type testServer struct {
	*httptest.Server
	metrics *metrics.Collector
}

func newTestServer(t *testing.T, opts ...Option) *testServer {
	t.Helper()
	seg, err := segment.New(context.Background(), types.SegmenterConfig{Backend: types.BackendPlain})
	require.NoError(t, err)

	m := metrics.New()
	mgr := session.NewManager(store.NewMemory(), seg, session.WithObserver(m))
	srv, err := New(mgr, append([]Option{WithMetrics(m)}, opts...)...)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testServer{Server: ts, metrics: m}
}

func (ts *testServer) do(t *testing.T, method, path string, body io.Reader, contentType string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, ts.URL+path, body)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (ts *testServer) postJSON(t *testing.T, path, body string) *http.Response {
	t.Helper()
	return ts.do(t, http.MethodPost, path, strings.NewReader(body), "application/json")
}

func (ts *testServer) upload(t *testing.T, id, filename string, content []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return ts.do(t, http.MethodPost, "/api/sessions/"+id+"/upload", &buf, mw.FormDataContentType())
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}

func (ts *testServer) createSession(t *testing.T) string {
	t.Helper()
	resp := ts.do(t, http.MethodPost, "/api/sessions", nil, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[sessionResponse](t, resp).ID
}

// processedSession creates a session holding paperText as its document.
func (ts *testServer) processedSession(t *testing.T) string {
	t.Helper()
	id := ts.createSession(t)
	require.Equal(t, http.StatusOK, ts.upload(t, id, "paper.txt", []byte(paperText)).StatusCode)
	resp := ts.do(t, http.MethodPost, "/api/sessions/"+id+"/process", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 3, decode[sessionResponse](t, resp).Sentences)
	return id
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.do(t, http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]string{"status": "ok"}, decode[map[string]string](t, resp))
}

func TestFullFlow(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession(t)

	resp := ts.upload(t, id, "paper.txt", []byte(paperText))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	st := decode[sessionResponse](t, resp)
	assert.Equal(t, "paper.txt", st.Filename)
	assert.Zero(t, st.Sentences, "upload alone produces no document")

	resp = ts.do(t, http.MethodPost, "/api/sessions/"+id+"/process", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	st = decode[sessionResponse](t, resp)
	assert.Equal(t, 3, st.Sentences)
	assert.NotEmpty(t, st.DocumentID)
	assert.Equal(t, 3, st.Counts.Unset)

	// The UI fires a redraw after rendering the rows; nothing is judged yet.
	resp = ts.postJSON(t, "/api/sessions/"+id+"/events", `{"kind":"redraw_completed","row":0}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ev := decode[eventResponse](t, resp)
	assert.Equal(t, "passthrough", string(ev.Outcome))
	assert.Empty(t, ev.Entries)

	for _, body := range []string{
		`{"kind":"sentence_toggled","index":0,"value":"accepted"}`,
		`{"kind":"sentence_toggled","index":1,"clicks":2}`,
		`{"kind":"sentence_toggled","index":2,"value":"accepted"}`,
	} {
		resp = ts.postJSON(t, "/api/sessions/"+id+"/events", body)
		require.Equal(t, http.StatusOK, resp.StatusCode, body)
	}
	ev = decode[eventResponse](t, resp)
	assert.Len(t, ev.Entries, 3)

	resp = ts.do(t, http.MethodPut, "/api/sessions/"+id+"/query", strings.NewReader(`{"query":"animals"}`), "application/json")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "animals", decode[sessionResponse](t, resp).Query)

	resp = ts.do(t, http.MethodGet, "/api/sessions/"+id+"/sentences", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sentences := decode[sentencesResponse](t, resp)
	require.Len(t, sentences.Rows, 3)
	assert.Equal(t, "lightgreen", sentences.Rows[0].Cue)
	assert.Equal(t, "lightpink", sentences.Rows[1].Cue)
	assert.Equal(t, types.RelevanceAccepted, sentences.Rows[1].Next)

	resp = ts.do(t, http.MethodGet, "/api/sessions/"+id+"/export/txt", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `attachment; filename="summary.txt"`, resp.Header.Get("Content-Disposition"))
	assert.Equal(t, "The cat sat on the mat.\n\nBirds sang in the morning.", readBody(t, resp))

	resp = ts.do(t, http.MethodGet, "/api/sessions/"+id+"/export/csv", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `attachment; filename="summary.csv"`, resp.Header.Get("Content-Disposition"))
	assert.Equal(t, "sentence,text,relevant\n"+
		"0,The cat sat on the mat.,accepted\n"+
		"1,The dog chased the ball.,rejected\n"+
		"2,Birds sang in the morning.,accepted\n", readBody(t, resp))

	resp = ts.do(t, http.MethodGet, "/api/sessions/"+id+"/export/json", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), `"query": "animals"`)

	resp = ts.do(t, http.MethodDelete, "/api/sessions/"+id, nil, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = ts.do(t, http.MethodGet, "/api/sessions/"+id, nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListSessions(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodGet, "/api/sessions", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `{"sessions":[]}`, strings.TrimSpace(readBody(t, resp)))

	a := ts.createSession(t)
	b := ts.createSession(t)
	resp = ts.do(t, http.MethodGet, "/api/sessions", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.ElementsMatch(t, []string{a, b}, decode[listResponse](t, resp).Sessions)
}

func TestEntries(t *testing.T) {
	ts := newTestServer(t)
	id := ts.processedSession(t)

	resp := ts.do(t, http.MethodGet, "/api/sessions/"+id+"/entries", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `{"entries":[]}`, strings.TrimSpace(readBody(t, resp)))

	for _, body := range []string{
		`{"kind":"sentence_toggled","index":2,"value":"accepted"}`,
		`{"kind":"sentence_toggled","index":0,"value":"rejected"}`,
	} {
		require.Equal(t, http.StatusOK, ts.postJSON(t, "/api/sessions/"+id+"/events", body).StatusCode, body)
	}
	resp = ts.do(t, http.MethodGet, "/api/sessions/"+id+"/entries", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	entries := decode[entriesResponse](t, resp).Entries
	require.Len(t, entries, 2)
	assert.Equal(t, 0, entries[0].Index)
	assert.Equal(t, types.RelevanceRejected, entries[0].Value)
	assert.Equal(t, 2, entries[1].Index)
	assert.Equal(t, types.RelevanceAccepted, entries[1].Value)

	resp = ts.do(t, http.MethodGet, "/api/sessions/missing/entries", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestEventErrors(t *testing.T) {
	ts := newTestServer(t)
	id := ts.processedSession(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{"kind":`, http.StatusBadRequest},
		{"unknown kind", `{"kind":"row_hovered"}`, http.StatusBadRequest},
		{"bad value", `{"kind":"sentence_toggled","index":0,"value":"maybe"}`, http.StatusBadRequest},
		{"index out of range", `{"kind":"sentence_toggled","index":10,"value":"accepted"}`, http.StatusConflict},
		{"document mismatch", `{"kind":"document_changed","count":7}`, http.StatusConflict},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := ts.postJSON(t, "/api/sessions/"+id+"/events", tc.body)
			assert.Equal(t, tc.want, resp.StatusCode)
			assert.NotEmpty(t, decode[errorResponse](t, resp).Error)
		})
	}

	// None of the rejected events changed the session.
	resp := ts.do(t, http.MethodGet, "/api/sessions/"+id, nil, "")
	assert.Equal(t, 3, decode[sessionResponse](t, resp).Counts.Unset)
}

func TestProcessErrors(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession(t)

	resp := ts.do(t, http.MethodPost, "/api/sessions/"+id+"/process", nil, "")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, "process without upload")

	require.Equal(t, http.StatusOK, ts.upload(t, id, "broken.pdf", []byte{0xff, 0xfe, 0x00, 0x81}).StatusCode)
	resp = ts.do(t, http.MethodPost, "/api/sessions/"+id+"/process", nil, "")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, "extraction failure")

	resp = ts.do(t, http.MethodPost, "/api/sessions/missing/process", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUploadErrors(t *testing.T) {
	ts := newTestServer(t, WithMaxUploadBytes(1024))
	id := ts.createSession(t)

	resp := ts.do(t, http.MethodPost, "/api/sessions/"+id+"/upload", strings.NewReader("plain body"), "text/plain")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.upload(t, id, "huge.txt", bytes.Repeat([]byte("a"), 4096))
	assert.Contains(t, []int{http.StatusRequestEntityTooLarge, http.StatusBadRequest}, resp.StatusCode)
}

func TestExportEmptyAndBadFormat(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession(t)

	// No document yet: the download still happens, with no content.
	resp := ts.do(t, http.MethodGet, "/api/sessions/"+id+"/export/csv", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `attachment; filename="summary.csv"`, resp.Header.Get("Content-Disposition"))
	assert.Empty(t, readBody(t, resp))

	resp = ts.do(t, http.MethodGet, "/api/sessions/"+id+"/export/docx", nil, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	metricsBody := readBody(t, ts.do(t, http.MethodGet, "/metrics", nil, ""))
	assert.Contains(t, metricsBody, `flavia_exports_total{empty="true",format="csv"} 1`)
}

func TestPages(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodGet, "/", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "FLAVIA - Baseline")

	// Posting the landing form creates a session and follows the redirect.
	resp = ts.do(t, http.MethodPost, "/sessions", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Request.URL.Path, "/sessions/"))
	assert.Contains(t, readBody(t, resp), "Process Paper")

	id := ts.processedSession(t)
	resp = ts.postJSON(t, "/api/sessions/"+id+"/events", `{"kind":"sentence_toggled","index":1,"value":"accepted"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/sessions/"+id, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := readBody(t, resp)
	assert.Contains(t, page, "Sentences: 3")
	assert.Contains(t, page, "<li>The dog chased the ball.</li>")

	resp = ts.do(t, http.MethodGet, "/sessions/unknown", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/", resp.Request.URL.Path, "unknown sessions go back to the landing page")
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.processedSession(t)

	body := readBody(t, ts.do(t, http.MethodGet, "/metrics", nil, ""))
	assert.Contains(t, body, "flavia_active_sessions 1")
	assert.Contains(t, body, `flavia_documents_processed_total{result="ok"} 1`)
	assert.Contains(t, body, `flavia_events_total{kind="document_changed",outcome="reset"} 1`)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusFor(session.ErrNotFound))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(segment.ErrExtraction))
	assert.Equal(t, http.StatusInternalServerError, statusFor(io.ErrUnexpectedEOF))
	assert.Equal(t, http.StatusRequestEntityTooLarge, statusFor(&http.MaxBytesError{Limit: 1}))
}
