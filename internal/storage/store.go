package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const defaultBusyTimeout = 5000

// Default replay windows. The reconnect window is wider than the
// return-to-general window so a client that was away for a while still
// catches up in one pass.
const (
	DefaultSinceLimit   = 30
	DefaultRecentLimit  = 19
	DefaultHistoryLimit = 20
)

// Store wraps the SQLite handle and exposes the history operations the
// router needs. Both tables are append-only; ids come from AUTOINCREMENT
// and double as the replay offset for the general stream.
type Store struct {
	db *sql.DB
}

// GeneralMessage is a row in the messages table.
type GeneralMessage struct {
	ID      int64
	Content string
	Author  string
}

// PrivateMessage is a row in the private_messages table.
type PrivateMessage struct {
	ID        int64
	Content   string
	Sender    string
	Receiver  string
	RoomID    string
	CreatedAt time.Time
}

// NewStore initializes the SQLite database at the provided path. Call Close when done.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = "relaychat.db"
	}
	dsn := buildDSN(path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", defaultBusyTimeout)); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying DB connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func buildDSN(path string) string {
	switch {
	case strings.HasPrefix(path, "sqlite://"):
		path = path[len("sqlite://"):]
	case strings.HasPrefix(path, "file:"), strings.HasPrefix(path, ":memory:"):
		// already in a form sqlite understands
	default:
		path = "file:" + path
	}
	separator := "?"
	if strings.Contains(path, "?") {
		separator = "&"
	}
	return fmt.Sprintf("%s%s_pragma=busy_timeout=%d&_pragma=foreign_keys=ON", path, separator, defaultBusyTimeout)
}

// Migrate runs the schema creation statements.
func (s *Store) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			content TEXT NOT NULL,
			author TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS private_messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			content TEXT NOT NULL,
			sender TEXT NOT NULL,
			receiver TEXT NOT NULL,
			room_id TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE INDEX IF NOT EXISTS idx_private_messages_room ON private_messages(room_id, id);`,
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	for _, stmt := range statements {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// AppendGeneral persists a general message and returns its assigned id.
// No id was durably assigned when an error comes back, so the caller must
// not announce one.
func (s *Store) AppendGeneral(ctx context.Context, content, author string) (int64, error) {
	result, err := s.db.ExecContext(ctx, `INSERT INTO messages(content, author) VALUES(?, ?)`, content, author)
	if err != nil {
		return 0, fmt.Errorf("append general: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("append general: %w", err)
	}
	return id, nil
}

// AppendPrivate persists a private message and returns its assigned id.
func (s *Store) AppendPrivate(ctx context.Context, content, sender, receiver, roomID string) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO private_messages(content, sender, receiver, room_id) VALUES(?, ?, ?, ?)`,
		content, sender, receiver, roomID)
	if err != nil {
		return 0, fmt.Errorf("append private: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("append private: %w", err)
	}
	return id, nil
}

// GeneralSince returns the newest messages with id > offset, capped at
// limit, reordered oldest-first for replay.
func (s *Store) GeneralSince(ctx context.Context, offset int64, limit int) ([]GeneralMessage, error) {
	if limit <= 0 {
		limit = DefaultSinceLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content, author FROM messages WHERE id > ? ORDER BY id DESC LIMIT ?`,
		offset, limit)
	if err != nil {
		return nil, fmt.Errorf("general since: %w", err)
	}
	messages, err := scanGeneral(rows)
	if err != nil {
		return nil, err
	}
	reverse(messages)
	return messages, nil
}

// GeneralRecent returns the most recent limit messages, oldest-first. Used
// when a connection returns to the general room without an offset context.
func (s *Store) GeneralRecent(ctx context.Context, limit int) ([]GeneralMessage, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, content, author FROM (
			SELECT id, content, author FROM messages ORDER BY id DESC LIMIT ?
		) sub ORDER BY id ASC
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("general recent: %w", err)
	}
	return scanGeneral(rows)
}

// PrivateHistory returns the oldest limit messages for a private room in
// chronological order.
func (s *Store) PrivateHistory(ctx context.Context, roomID string, limit int) ([]PrivateMessage, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content, sender, receiver, room_id, created_at FROM private_messages WHERE room_id = ? ORDER BY id ASC LIMIT ?`,
		roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("private history: %w", err)
	}
	defer rows.Close()

	var messages []PrivateMessage
	for rows.Next() {
		var msg PrivateMessage
		if err := rows.Scan(&msg.ID, &msg.Content, &msg.Sender, &msg.Receiver, &msg.RoomID, &msg.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func scanGeneral(rows *sql.Rows) ([]GeneralMessage, error) {
	defer rows.Close()
	var messages []GeneralMessage
	for rows.Next() {
		var msg GeneralMessage
		if err := rows.Scan(&msg.ID, &msg.Content, &msg.Author); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func reverse(messages []GeneralMessage) {
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
}
