// Package sqlite provides a SQLite-backed session store. Each row holds the
// same JSON document the file store writes.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/tatianab/waystation/internal/logging"
	"github.com/tatianab/waystation/internal/models"
)

const schema = `CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	snapshot   TEXT NOT NULL,
	updated_at INTEGER NOT NULL
)`

// Store persists sessions in SQLite.
type Store struct {
	sqlDB *sql.DB
}

// Open opens the database at path and creates the sessions table.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create sessions table: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Get loads a session. A row that no longer decodes is logged and reported
// as absent.
func (s *Store) Get(ctx context.Context, id string) (*models.GameState, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	var snapshot string
	err := s.sqlDB.QueryRowContext(ctx, `SELECT snapshot FROM sessions WHERE id = ?`, id).Scan(&snapshot)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get session: %w", err)
	}

	st, err := models.DecodeDocument([]byte(snapshot))
	if err != nil {
		logging.Warn("discarding unreadable session row", err, logging.Fields{"session": id})
		return nil, false, nil
	}
	st.ID = id
	return st, true, nil
}

// Put upserts the persisted form of st.
func (s *Store) Put(ctx context.Context, id string, st *models.GameState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := models.EncodeDocument(st)
	if err != nil {
		return fmt.Errorf("encode game state: %w", err)
	}
	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO sessions (id, snapshot, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET snapshot = excluded.snapshot, updated_at = excluded.updated_at`,
		id, string(data), time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

func (s *Store) NewID() string {
	return uuid.NewString()
}
