// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store provides session.Store implementations: an in-memory map
// and a SQLite database. Both keep state only while a session lives; a
// deleted session leaves nothing behind.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/pdiddy/flavia/internal/session"
)

// Memory implements session.Store with a map. Safe for concurrent use.
type Memory struct {
	mu   sync.RWMutex
	data map[string]*session.State
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]*session.State)}
}

// Save stores a copy of st.
func (m *Memory) Save(_ context.Context, st *session.State) error {
	c := st.Clone()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[st.ID] = c
	return nil
}

// Load returns a copy of the stored state.
func (m *Memory) Load(_ context.Context, id string) (*session.State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.data[id]
	if !ok {
		return nil, session.ErrNotFound
	}
	return st.Clone(), nil
}

// Delete removes the session. Deleting an unknown id is not an error.
func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, id)
	return nil
}

// List returns the stored session ids in sorted order.
func (m *Memory) List(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.data))
	for id := range m.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Close is a no-op, present so both stores share a shutdown path.
func (m *Memory) Close() error { return nil }
