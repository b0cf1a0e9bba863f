// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pdiddy/flavia/internal/annotation"
	"github.com/pdiddy/flavia/internal/export"
	"github.com/pdiddy/flavia/internal/reconcile"
	"github.com/pdiddy/flavia/internal/render"
	"github.com/pdiddy/flavia/internal/session"
)

// sessionResponse is the JSON view of a session.
type sessionResponse struct {
	ID         string            `json:"id"`
	Filename   string            `json:"filename,omitempty"`
	Query      string            `json:"query"`
	DocumentID string            `json:"document_id,omitempty"`
	Sentences  int               `json:"sentences"`
	Characters int               `json:"characters"`
	Counts     annotation.Counts `json:"counts"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

func newSessionResponse(st *session.State) sessionResponse {
	resp := sessionResponse{
		ID:        st.ID,
		Filename:  st.Filename,
		Query:     st.Query,
		Counts:    annotation.Tally(st.Vector),
		CreatedAt: st.CreatedAt,
		UpdatedAt: st.UpdatedAt,
	}
	if st.HasDocument() {
		resp.DocumentID = st.Document.ID
		resp.Sentences = st.Document.Len()
		resp.Characters = st.Document.Characters()
	}
	return resp
}

type eventResponse struct {
	Outcome reconcile.Outcome  `json:"outcome"`
	Entries []annotation.Entry `json:"entries"`
}

type sentencesResponse struct {
	Rows   []render.Row      `json:"rows"`
	Counts annotation.Counts `json:"counts"`
}

type listResponse struct {
	Sessions []string `json:"sessions"`
}

type entriesResponse struct {
	Entries []annotation.Entry `json:"entries"`
}

type queryRequest struct {
	Query string `json:"query"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.writeHTML(w, r, func(b *bytes.Buffer) error { return s.renderer.Index(b) })
}

// handleNewPage creates a session from the landing page form and redirects
// to its page.
func (s *Server) handleNewPage(w http.ResponseWriter, r *http.Request) {
	st, err := s.manager.Create(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	http.Redirect(w, r, "/sessions/"+st.ID, http.StatusSeeOther)
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	st, err := s.manager.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, session.ErrNotFound) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	page := render.NewPage(st)
	s.writeHTML(w, r, func(b *bytes.Buffer) error { return s.renderer.Session(b, page) })
}

// writeHTML renders into a buffer first so a template error never leaves a
// half-written page.
func (s *Server) writeHTML(w http.ResponseWriter, r *http.Request, fn func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := fn(&buf); err != nil {
		s.writeError(w, r, fmt.Errorf("rendering page: %w", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	st, err := s.manager.Create(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/sessions/"+st.ID)
	writeJSON(w, http.StatusCreated, newSessionResponse(st))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	ids, err := s.manager.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, listResponse{Sessions: ids})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	st, err := s.manager.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(st))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.Close(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleUpload stores the multipart "file" field as the pending upload.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if !errors.As(err, &tooLarge) {
			err = fmt.Errorf("%w: reading file field: %w", errBadRequest, err)
		}
		s.writeError(w, r, err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("reading upload: %w", err))
		return
	}

	st, err := s.manager.Upload(r.Context(), chi.URLParam(r, "id"), header.Filename, data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(st))
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	st, err := s.manager.Process(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(st))
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEventBytes)).Decode(&req); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: decoding query: %w", errBadRequest, err))
		return
	}
	st, err := s.manager.SetQuery(r.Context(), chi.URLParam(r, "id"), req.Query)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(st))
}

// handleEvent decodes one event envelope and hands it to the session.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxEventBytes))
	if err != nil {
		s.writeError(w, r, fmt.Errorf("reading event: %w", err))
		return
	}
	ev, err := reconcile.Decode(data)
	if err != nil {
		if !errors.Is(err, reconcile.ErrUnknownEvent) {
			err = fmt.Errorf("%w: %w", errBadRequest, err)
		}
		s.writeError(w, r, err)
		return
	}

	st, outcome, err := s.manager.Dispatch(r.Context(), chi.URLParam(r, "id"), ev)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	entries := annotation.Read(st.Vector)
	if entries == nil {
		entries = []annotation.Entry{}
	}
	writeJSON(w, http.StatusOK, eventResponse{Outcome: outcome, Entries: entries})
}

func (s *Server) handleSentences(w http.ResponseWriter, r *http.Request) {
	st, err := s.manager.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rows := render.Rows(st.Document, st.Vector)
	if rows == nil {
		rows = []render.Row{}
	}
	writeJSON(w, http.StatusOK, sentencesResponse{Rows: rows, Counts: annotation.Tally(st.Vector)})
}

// handleEntries lists the judged sentences of a session in index order.
func (s *Server) handleEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := s.manager.Entries(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []annotation.Entry{}
	}
	writeJSON(w, http.StatusOK, entriesResponse{Entries: entries})
}

// handleExport serves the summary download. An empty export is still a
// download, with empty content.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	st, err := s.manager.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	file, err := export.Render(format, st.Document, st.Vector, st.Query)
	empty := errors.Is(err, export.ErrEmptyExport)
	switch {
	case empty:
		s.logger.Info("serving empty export", "session_id", id, "format", string(format))
	case err != nil:
		s.writeError(w, r, err)
		return
	}
	if s.metrics != nil {
		s.metrics.ExportServed(string(format), empty)
	}

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Content)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.Content)
}
