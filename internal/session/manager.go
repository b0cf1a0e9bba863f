// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package session owns per-session state: the pending upload, the current
// document, and its annotation vector. All mutation goes through Manager,
// which serializes work on a session behind that session's own lock and
// hands events to the reconciler one at a time.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/flavia/internal/annotation"
	"github.com/pdiddy/flavia/internal/logging"
	"github.com/pdiddy/flavia/internal/reconcile"
	"github.com/pdiddy/flavia/internal/segment"
	"github.com/pdiddy/flavia/pkg/types"
)

var (
	// ErrNoUpload is returned by Process when nothing has been uploaded.
	ErrNoUpload = errors.New("no upload to process")

	// ErrDocumentMismatch is returned when a DocumentChanged event names a
	// sentence count other than the current document's.
	ErrDocumentMismatch = errors.New("event does not match current document")
)

// Observer is notified of session activity. The metrics package provides
// the production implementation.
type Observer interface {
	EventApplied(kind, outcome string)
	DocumentProcessed(sentences int, err error)
	SessionsChanged(delta int)
}

type nopObserver struct{}

func (nopObserver) EventApplied(string, string)  {}
func (nopObserver) DocumentProcessed(int, error) {}
func (nopObserver) SessionsChanged(int)          {}

// lockEntry is a session mutex with a reference count so that the lock map
// does not grow with every session ever seen.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager coordinates access to sessions in a Store.
type Manager struct {
	store     Store
	segmenter segment.Segmenter

	mu    sync.Mutex
	locks map[string]*lockEntry

	logger   *slog.Logger
	observer Observer
	now      func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithObserver sets the activity observer.
func WithObserver(o Observer) Option {
	return func(m *Manager) { m.observer = o }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a Manager over store, using seg to process uploads.
func NewManager(store Store, seg segment.Segmenter, opts ...Option) *Manager {
	m := &Manager{
		store:     store,
		segmenter: seg,
		locks:     make(map[string]*lockEntry),
		logger:    logging.NewNop(),
		observer:  nopObserver{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) acquire(id string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.locks[id]
	if !ok {
		entry = &lockEntry{}
		m.locks[id] = entry
	}
	entry.refs++
	return entry
}

func (m *Manager) release(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.locks[id]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, id)
	}
}

// withLock runs fn while holding the lock of session id.
func (m *Manager) withLock(id string, fn func() error) error {
	entry := m.acquire(id)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(id)
	}()
	return fn()
}

// update loads session id, lets fn modify it, and saves the result. When fn
// fails nothing is saved and the session keeps its previous state.
func (m *Manager) update(ctx context.Context, id string, fn func(st *State) error) (*State, error) {
	var out *State
	err := m.withLock(id, func() error {
		st, err := m.store.Load(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(st); err != nil {
			return err
		}
		st.UpdatedAt = m.now()
		if err := m.store.Save(ctx, st); err != nil {
			return fmt.Errorf("saving session %s: %w", id, err)
		}
		out = st
		return nil
	})
	return out, err
}

// Create starts a new, empty session.
func (m *Manager) Create(ctx context.Context) (*State, error) {
	now := m.now()
	st := &State{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now}
	if err := m.store.Save(ctx, st); err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	m.observer.SessionsChanged(1)
	m.logger.Info("session created", "session_id", st.ID)
	return st, nil
}

// Get returns a snapshot of session id.
func (m *Manager) Get(ctx context.Context, id string) (*State, error) {
	var st *State
	err := m.withLock(id, func() error {
		var err error
		st, err = m.store.Load(ctx, id)
		return err
	})
	return st, err
}

// List returns the ids of all live sessions.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Close tears session id down and forgets its document and annotations.
func (m *Manager) Close(ctx context.Context, id string) error {
	err := m.withLock(id, func() error {
		if _, err := m.store.Load(ctx, id); err != nil {
			return err
		}
		return m.store.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	m.observer.SessionsChanged(-1)
	m.logger.Info("session closed", "session_id", id)
	return nil
}

// Upload records a file as the session's pending upload. The current
// document is untouched until Process succeeds.
func (m *Manager) Upload(ctx context.Context, id, filename string, data []byte) (*State, error) {
	return m.update(ctx, id, func(st *State) error {
		st.Filename = filename
		st.Upload = append([]byte(nil), data...)
		m.logger.Debug("upload received", "session_id", id, "filename", filename, "bytes", len(data))
		return nil
	})
}

// SetQuery stores the query text shown alongside the summary.
func (m *Manager) SetQuery(ctx context.Context, id, query string) (*State, error) {
	return m.update(ctx, id, func(st *State) error {
		st.Query = query
		return nil
	})
}

// Process segments the pending upload into a new Document and resets the
// annotation vector to match it. If segmentation fails the session keeps
// its previous document and annotations.
func (m *Manager) Process(ctx context.Context, id string) (*State, error) {
	return m.update(ctx, id, func(st *State) error {
		if len(st.Upload) == 0 {
			return ErrNoUpload
		}

		sentences, err := m.segmenter.Segment(ctx, st.Upload)
		m.observer.DocumentProcessed(len(sentences), err)
		if err != nil {
			m.logger.Warn("processing upload failed", "session_id", id, "filename", st.Filename, "error", err)
			return fmt.Errorf("processing %s: %w", st.Filename, err)
		}

		doc := &types.Document{
			ID:        uuid.NewString(),
			Filename:  st.Filename,
			Sentences: sentences,
			CreatedAt: m.now(),
		}
		ev := reconcile.DocumentChanged{Count: len(sentences)}
		vec, outcome, err := reconcile.Apply(st.Vector, ev)
		m.observer.EventApplied(string(ev.Kind()), string(outcome))
		if err != nil {
			return err
		}

		st.Document = doc
		st.Vector = vec
		m.logger.Info("document processed",
			"session_id", id,
			"document_id", doc.ID,
			"filename", doc.Filename,
			"sentences", doc.Len(),
			"characters", doc.Characters())
		return nil
	})
}

// Dispatch applies one UI event to session id. A failed event leaves the
// session unchanged; the returned outcome says what the reconciler did.
func (m *Manager) Dispatch(ctx context.Context, id string, ev reconcile.Event) (*State, reconcile.Outcome, error) {
	var outcome reconcile.Outcome
	st, err := m.update(ctx, id, func(st *State) error {
		if dc, ok := ev.(reconcile.DocumentChanged); ok {
			switch {
			case st.Document == nil:
				// Without a document there is nothing for a vector to align with.
				outcome = reconcile.OutcomeIgnored
				return nil
			case dc.Count != st.Document.Len():
				outcome = reconcile.OutcomeFailed
				return fmt.Errorf("%w: event has %d sentences, document has %d",
					ErrDocumentMismatch, dc.Count, st.Document.Len())
			}
		}

		vec, out, err := reconcile.Apply(st.Vector, ev)
		outcome = out
		if err != nil {
			return err
		}
		st.Vector = vec
		return nil
	})
	if outcome == "" {
		outcome = reconcile.OutcomeFailed
	}
	m.observer.EventApplied(string(ev.Kind()), string(outcome))

	logAttrs := []any{"session_id", id, "kind", ev.Kind(), "outcome", outcome}
	if err != nil {
		m.logger.Warn("event rejected", append(logAttrs, "error", err)...)
		return nil, outcome, err
	}
	m.logger.Debug("event applied", logAttrs...)
	return st, outcome, nil
}

// Entries returns the judged sentences of session id.
func (m *Manager) Entries(ctx context.Context, id string) ([]annotation.Entry, error) {
	st, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return annotation.Read(st.Vector), nil
}

// Sweep closes sessions idle for longer than ttl and returns how many it
// removed.
func (m *Manager) Sweep(ctx context.Context, ttl time.Duration) (int, error) {
	ids, err := m.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing sessions: %w", err)
	}

	cutoff := m.now().Add(-ttl)
	removed := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		var expired bool
		err := m.withLock(id, func() error {
			st, err := m.store.Load(ctx, id)
			if err != nil {
				return err
			}
			if st.UpdatedAt.After(cutoff) {
				return nil
			}
			expired = true
			return m.store.Delete(ctx, id)
		})
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return removed, fmt.Errorf("sweeping session %s: %w", id, err)
		}
		if expired {
			removed++
			m.observer.SessionsChanged(-1)
			m.logger.Info("session expired", "session_id", id)
		}
	}
	return removed, nil
}
