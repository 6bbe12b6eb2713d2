// Package store is the transcript store adapter: an ordered
// append-only log of messages keyed by session id.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ilam0602/glg-mobile-messages-ws/internal/database"
	"github.com/ilam0602/glg-mobile-messages-ws/internal/model/chat"
)

// TranscriptStore is the durable log the relay core writes every
// exchanged message to. History returns messages in ascending
// timestamp order; Latest returns nil without error for an empty
// session.
type TranscriptStore interface {
	Append(ctx context.Context, msg chat.Message) error
	History(ctx context.Context, sessionID string) ([]chat.Message, error)
	Latest(ctx context.Context, sessionID string) (*chat.Message, error)
}

const schema = `
CREATE TABLE IF NOT EXISTS chat_messages (
	session_id TEXT NOT NULL,
	body       TEXT NOT NULL,
	ts         BIGINT NOT NULL,
	sender     TEXT NOT NULL,
	owner_uid  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chat_messages_session_ts
	ON chat_messages (session_id, ts);
`

// SQLStore persists transcripts through sqlx. Queries use ? binds and
// Rebind so the same code runs on Postgres and the embedded sqlite
// driver.
type SQLStore struct {
	db *database.DB
}

func NewSQLStore(db *database.DB) *SQLStore {
	return &SQLStore{db: db}
}

// EnsureSchema bootstraps the message table. Safe to call on every
// startup.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure transcript schema: %w", err)
	}
	return nil
}

func (s *SQLStore) Append(ctx context.Context, msg chat.Message) error {
	query := s.db.Rebind(`
		INSERT INTO chat_messages (session_id, body, ts, sender, owner_uid)
		VALUES (?, ?, ?, ?, ?)
	`)
	if _, err := s.db.ExecContext(ctx, query, msg.SessionID, msg.Body, msg.Timestamp, msg.Sender, msg.OwnerUID); err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

func (s *SQLStore) History(ctx context.Context, sessionID string) ([]chat.Message, error) {
	var msgs []chat.Message
	query := s.db.Rebind(`
		SELECT session_id, body, ts, sender, owner_uid
		FROM chat_messages
		WHERE session_id = ?
		ORDER BY ts ASC
	`)
	if err := s.db.SelectContext(ctx, &msgs, query, sessionID); err != nil {
		return nil, fmt.Errorf("load transcript: %w", err)
	}
	return msgs, nil
}

func (s *SQLStore) Latest(ctx context.Context, sessionID string) (*chat.Message, error) {
	var msg chat.Message
	query := s.db.Rebind(`
		SELECT session_id, body, ts, sender, owner_uid
		FROM chat_messages
		WHERE session_id = ?
		ORDER BY ts DESC
		LIMIT 1
	`)
	err := s.db.GetContext(ctx, &msg, query, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load latest message: %w", err)
	}
	return &msg, nil
}
