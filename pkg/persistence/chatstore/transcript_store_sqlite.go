package chatstore

import (
	"context"
	"database/sql"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/go-go-golems/wizchat/pkg/history"
	"github.com/go-go-golems/wizchat/pkg/store"
)

type SQLiteTranscriptStore struct {
	db *sql.DB
}

var _ TranscriptStore = &SQLiteTranscriptStore{}

func NewSQLiteTranscriptStore(dsn string) (*SQLiteTranscriptStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("sqlite transcript store: empty dsn")
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite transcript store: open")
	}
	s := &SQLiteTranscriptStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteTranscriptStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteTranscriptStore) migrate() error {
	if s == nil || s.db == nil {
		return errors.New("sqlite transcript store: db is nil")
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS transcript_messages (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			message_id TEXT NOT NULL,
			type TEXT NOT NULL,
			role TEXT NOT NULL,
			body TEXT NOT NULL DEFAULT '',
			metadata_json TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL DEFAULT '',
			updated_at_ms INTEGER NOT NULL,
			UNIQUE (session_id, message_id)
		);`,
		`CREATE INDEX IF NOT EXISTS transcript_messages_by_session ON transcript_messages(session_id, seq DESC);`,
	}
	for _, st := range stmts {
		if _, err := s.db.Exec(st); err != nil {
			return errors.Wrap(err, "sqlite transcript store: migrate")
		}
	}
	return nil
}

func (s *SQLiteTranscriptStore) Upsert(ctx context.Context, sessionID string, msg store.Message) error {
	if s == nil || s.db == nil {
		return errors.New("sqlite transcript store: db is nil")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return errors.New("sqlite transcript store: sessionID is empty")
	}
	if msg.ID == "" {
		return errors.New("sqlite transcript store: message id is empty")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transcript_messages(session_id, message_id, type, role, body, metadata_json, created_at, updated_at_ms)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, message_id) DO UPDATE SET
			type = excluded.type,
			role = excluded.role,
			body = excluded.body,
			metadata_json = excluded.metadata_json,
			updated_at_ms = excluded.updated_at_ms
	`, sessionID, msg.ID, string(msg.Type), string(msg.Role), msg.Body, string(msg.Metadata), msg.CreatedAt, time.Now().UnixMilli())
	if err != nil {
		return errors.Wrap(err, "sqlite transcript store: upsert")
	}
	return nil
}

func (s *SQLiteTranscriptStore) List(ctx context.Context, sessionID string, offset, limit int) ([]history.Record, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("sqlite transcript store: db is nil")
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT message_id, type, role, body, metadata_json, created_at
		FROM transcript_messages
		WHERE session_id = ?
		ORDER BY seq DESC
		LIMIT ? OFFSET ?
	`, sessionID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite transcript store: query")
	}
	defer func() { _ = rows.Close() }()

	var out []history.Record
	for rows.Next() {
		var rec history.Record
		var meta string
		if err := rows.Scan(&rec.ID, &rec.Type, &rec.Role, &rec.Body, &meta, &rec.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "sqlite transcript store: scan")
		}
		if meta != "" {
			rec.Metadata = []byte(meta)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "sqlite transcript store: rows")
	}
	return out, nil
}

func (s *SQLiteTranscriptStore) DeleteSession(ctx context.Context, sessionID string) error {
	if s == nil || s.db == nil {
		return errors.New("sqlite transcript store: db is nil")
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM transcript_messages WHERE session_id = ?`, sessionID); err != nil {
		return errors.Wrap(err, "sqlite transcript store: delete session")
	}
	return nil
}
