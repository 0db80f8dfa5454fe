// Package inbox stores messages pushed to mobile clients, backed by
// SQLite so history survives restarts. New subscribers receive the
// stored history as their initial snapshot.
package inbox

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"ibridge/internal/domain/events"
	"ibridge/internal/domain/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id         TEXT PRIMARY KEY,
	sender     TEXT NOT NULL,
	body       TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_created_at ON messages(created_at);
`

// historyLimit caps the snapshot sent to a fresh subscriber.
const historyLimit = 200

// Store is the SQLite-backed message inbox. Mutations publish into the
// hub so connected clients track the inbox live.
type Store struct {
	db  *sql.DB
	hub ports.EventHub
}

// Open creates the inbox store at dbPath, creating parent directories
// and the schema as needed. hub may be nil for a silent store.
func Open(dbPath string, hub ports.EventHub) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create inbox dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open inbox database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			log.Warn().Err(err).Str("pragma", pragma).Msg("failed to set pragma")
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create inbox schema: %w", err)
	}

	log.Debug().Str("path", dbPath).Msg("inbox store opened")
	return &Store{db: db, hub: hub}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Add stores a message and publishes message and inbox_updated events.
func (s *Store) Add(sender, body string) (events.MessagePayload, error) {
	msg := events.MessagePayload{
		ID:        uuid.NewString(),
		Sender:    sender,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.db.Exec(
		"INSERT INTO messages (id, sender, body, created_at) VALUES (?, ?, ?, ?)",
		msg.ID, msg.Sender, msg.Body, msg.CreatedAt,
	)
	if err != nil {
		return events.MessagePayload{}, fmt.Errorf("failed to store message: %w", err)
	}

	if s.hub != nil {
		s.hub.Publish(events.NewMessageEvent(msg))
		if count, err := s.Count(); err == nil {
			s.hub.Publish(events.NewInboxUpdatedEvent(count))
		}
	}
	return msg, nil
}

// Clear removes all messages and publishes messages_cleared.
func (s *Store) Clear() error {
	if _, err := s.db.Exec("DELETE FROM messages"); err != nil {
		return fmt.Errorf("failed to clear inbox: %w", err)
	}
	if s.hub != nil {
		s.hub.Publish(events.NewMessagesClearedEvent())
	}
	return nil
}

// Count returns the number of stored messages.
func (s *Store) Count() (int, error) {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM messages").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}

// History returns the most recent messages in chronological order.
func (s *Store) History() ([]events.MessagePayload, error) {
	rows, err := s.db.Query(
		"SELECT id, sender, body, created_at FROM messages ORDER BY created_at DESC LIMIT ?",
		historyLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var msgs []events.MessagePayload
	for rows.Next() {
		var m events.MessagePayload
		if err := rows.Scan(&m.ID, &m.Sender, &m.Body, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Newest-first from the query; the snapshot is chronological.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// HistoryEvent builds the initial snapshot event for a fresh subscriber.
func (s *Store) HistoryEvent() *events.BaseEvent {
	msgs, err := s.History()
	if err != nil {
		log.Warn().Err(err).Msg("failed to load inbox history")
	}
	return events.NewHistoryEvent(msgs)
}
