package session

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

const identityKey = "session_id"

// SQLiteIdentityStore persists the identity in a small key/value table.
type SQLiteIdentityStore struct {
	db *sql.DB
}

var _ IdentityStore = &SQLiteIdentityStore{}

func NewSQLiteIdentityStore(dsn string) (*SQLiteIdentityStore, error) {
	if dsn == "" {
		return nil, errors.New("sqlite identity store: empty dsn")
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite identity store: open")
	}
	s := &SQLiteIdentityStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteIdentityStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS chat_session (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at_ms INTEGER NOT NULL
		)`)
	if err != nil {
		return errors.Wrap(err, "sqlite identity store: migrate")
	}
	return nil
}

func (s *SQLiteIdentityStore) Load(ctx context.Context) (string, error) {
	if s == nil || s.db == nil {
		return "", errors.New("sqlite identity store: db is nil")
	}
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM chat_session WHERE key = ?`, identityKey).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", errors.Wrap(err, "sqlite identity store: load")
	}
	return id, nil
}

func (s *SQLiteIdentityStore) Save(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return errors.New("sqlite identity store: db is nil")
	}
	if id == "" {
		return errors.New("sqlite identity store: empty id")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_session (key, value, updated_at_ms) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at_ms = excluded.updated_at_ms`,
		identityKey, id, time.Now().UnixMilli())
	if err != nil {
		return errors.Wrap(err, "sqlite identity store: save")
	}
	return nil
}

func (s *SQLiteIdentityStore) Delete(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("sqlite identity store: db is nil")
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chat_session WHERE key = ?`, identityKey); err != nil {
		return errors.Wrap(err, "sqlite identity store: delete")
	}
	return nil
}

func (s *SQLiteIdentityStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
