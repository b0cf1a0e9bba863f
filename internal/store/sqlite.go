// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/flavia/internal/annotation"
	"github.com/pdiddy/flavia/internal/session"
	"github.com/pdiddy/flavia/pkg/types"
)

// memoryDSN is a private in-memory database that disappears with the process.
const memoryDSN = ":memory:"

// SQLite implements session.Store on a SQLite database. Sessions are rows
// in three tables: the session itself, its sentences, and its annotations.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at dsn and creates the schema
// if it does not exist. An empty dsn opens an in-memory database.
func OpenSQLite(ctx context.Context, dsn string) (*SQLite, error) {
	if dsn == "" {
		dsn = memoryDSN
	}
	if !isMemory(dsn) && !strings.HasPrefix(dsn, "file:") {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// An in-memory database lives only as long as its connection.
	db.SetMaxOpenConns(1)

	s := &SQLite{db: db}
	if err := s.createSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

func isMemory(dsn string) bool {
	return dsn == memoryDSN || strings.Contains(dsn, "mode=memory")
}

// Close releases the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) createSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			filename TEXT NOT NULL DEFAULT '',
			upload BLOB,
			query TEXT NOT NULL DEFAULT '',
			document_id TEXT NOT NULL DEFAULT '',
			document_filename TEXT NOT NULL DEFAULT '',
			document_created_at TEXT NOT NULL DEFAULT '',
			has_vector INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sentences (
			session_id TEXT NOT NULL,
			idx INTEGER NOT NULL,
			text TEXT NOT NULL,
			PRIMARY KEY (session_id, idx)
		)`,
		`CREATE TABLE IF NOT EXISTS annotations (
			session_id TEXT NOT NULL,
			idx INTEGER NOT NULL,
			value TEXT NOT NULL,
			PRIMARY KEY (session_id, idx)
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Save writes st in one transaction. Sentences are rewritten only when the
// document changed since the last save.
func (s *SQLite) Save(ctx context.Context, st *session.State) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var storedDocID string
	err = tx.QueryRowContext(ctx, `SELECT document_id FROM sessions WHERE id = ?`, st.ID).Scan(&storedDocID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("reading stored document id: %w", err)
	}

	var (
		docID, docFilename, docCreated string
		sentences                      []string
	)
	if st.Document != nil {
		docID = st.Document.ID
		sentences = st.Document.Sentences
		docFilename = st.Document.Filename
		docCreated = formatTime(st.Document.CreatedAt)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (id, filename, upload, query, document_id, document_filename,
			document_created_at, has_vector, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			filename=excluded.filename, upload=excluded.upload, query=excluded.query,
			document_id=excluded.document_id, document_filename=excluded.document_filename,
			document_created_at=excluded.document_created_at, has_vector=excluded.has_vector,
			created_at=excluded.created_at, updated_at=excluded.updated_at`,
		st.ID, st.Filename, st.Upload, st.Query, docID, docFilename, docCreated,
		boolInt(st.Vector != nil), formatTime(st.CreatedAt), formatTime(st.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upserting session: %w", err)
	}

	if docID != storedDocID || docID == "" {
		if err := replaceRows(ctx, tx, "sentences", "text", st.ID, sentences); err != nil {
			return err
		}
	}

	values := make([]string, len(st.Vector))
	for i, r := range st.Vector {
		values[i] = string(r)
	}
	if err := replaceRows(ctx, tx, "annotations", "value", st.ID, values); err != nil {
		return err
	}

	return tx.Commit()
}

// replaceRows deletes the rows of table for sessionID and inserts one row
// per value, indexed by position.
func replaceRows(ctx context.Context, tx *sql.Tx, table, column, sessionID string, values []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("clearing %s: %w", table, err)
	}
	if len(values) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO `+table+` (session_id, idx, `+column+`) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing %s insert: %w", table, err)
	}
	defer stmt.Close()

	for i, v := range values {
		if _, err := stmt.ExecContext(ctx, sessionID, i, v); err != nil {
			return fmt.Errorf("inserting %s row %d: %w", table, i, err)
		}
	}
	return nil
}

// Load reads session id back into a State.
func (s *SQLite) Load(ctx context.Context, id string) (*session.State, error) {
	var (
		st                             session.State
		docID, docFilename, docCreated string
		hasVector                      int
		createdAt, updatedAt           string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, filename, upload, query, document_id, document_filename,
			document_created_at, has_vector, created_at, updated_at
		 FROM sessions WHERE id = ?`, id,
	).Scan(&st.ID, &st.Filename, &st.Upload, &st.Query, &docID, &docFilename,
		&docCreated, &hasVector, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", id, err)
	}
	st.CreatedAt = parseTime(createdAt)
	st.UpdatedAt = parseTime(updatedAt)

	if docID != "" {
		sentences, err := s.column(ctx, "sentences", "text", id)
		if err != nil {
			return nil, err
		}
		st.Document = &types.Document{
			ID:        docID,
			Filename:  docFilename,
			Sentences: sentences,
			CreatedAt: parseTime(docCreated),
		}
	}

	if hasVector != 0 {
		values, err := s.column(ctx, "annotations", "value", id)
		if err != nil {
			return nil, err
		}
		st.Vector = make(annotation.Vector, len(values))
		for i, v := range values {
			st.Vector[i] = types.Relevance(v)
		}
	}

	return &st, nil
}

// column returns column of table for sessionID ordered by index.
func (s *SQLite) column(ctx context.Context, table, column, sessionID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+column+` FROM `+table+` WHERE session_id = ? ORDER BY idx`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", table, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", table, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Delete removes every row belonging to session id.
func (s *SQLite) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"annotations", "sentences", "sessions"} {
		col := "session_id"
		if table == "sessions" {
			col = "id"
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE `+col+` = ?`, id); err != nil {
			return fmt.Errorf("deleting from %s: %w", table, err)
		}
	}
	return tx.Commit()
}

// List returns all session ids in sorted order.
func (s *SQLite) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM sessions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning session id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
