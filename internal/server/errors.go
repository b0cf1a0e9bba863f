// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pdiddy/flavia/internal/annotation"
	"github.com/pdiddy/flavia/internal/export"
	"github.com/pdiddy/flavia/internal/reconcile"
	"github.com/pdiddy/flavia/internal/segment"
	"github.com/pdiddy/flavia/internal/session"
)

// errBadRequest marks malformed request bodies.
var errBadRequest = errors.New("bad request")

// statusFor maps a handler error to its HTTP status.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, segment.ErrExtraction), errors.Is(err, session.ErrNoUpload):
		return http.StatusUnprocessableEntity
	case errors.Is(err, annotation.ErrIndexOutOfRange), errors.Is(err, session.ErrDocumentMismatch):
		return http.StatusConflict
	case errors.Is(err, reconcile.ErrUnknownEvent), errors.Is(err, export.ErrFormat), errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError responds with the status for err and a JSON error body.
// Server errors are logged; client errors are left to the request log.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		s.logger.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
