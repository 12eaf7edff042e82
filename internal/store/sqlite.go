package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/elazargur/llm-council/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed session store.
func NewSQLite(dbPath string) (Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		title TEXT NOT NULL,
		message_count INTEGER NOT NULL DEFAULT 0,
		messages_json TEXT NOT NULL DEFAULT '[]',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_owner_created ON sessions(owner, created_at DESC);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ListSessions returns session summaries for an owner, newest first.
func (s *SQLiteStore) ListSessions(ctx context.Context, owner string) ([]domain.SessionSummary, error) {
	query := `
		SELECT id, title, message_count, created_at
		FROM sessions WHERE owner = ?
		ORDER BY created_at DESC, id`

	rows, err := s.db.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	summaries := []domain.SessionSummary{}
	for rows.Next() {
		var sum domain.SessionSummary
		var createdAt int64
		if err := rows.Scan(&sum.ID, &sum.Title, &sum.MessageCount, &createdAt); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		sum.CreatedAt = time.Unix(createdAt, 0).UTC()
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session rows: %w", err)
	}
	return summaries, nil
}

// CreateSession creates an empty session with the default title.
func (s *SQLiteStore) CreateSession(ctx context.Context, owner string) (*domain.Session, error) {
	session := &domain.Session{
		SessionSummary: domain.SessionSummary{
			ID:        uuid.NewString(),
			Title:     domain.DefaultSessionTitle,
			CreatedAt: time.Now().UTC(),
		},
		Messages: []domain.Message{},
	}

	query := `
		INSERT INTO sessions (id, owner, title, message_count, messages_json, created_at, updated_at)
		VALUES (?, ?, ?, 0, '[]', ?, ?)`

	now := session.CreatedAt.Unix()
	if _, err := s.db.ExecContext(ctx, query, session.ID, owner, session.Title, now, now); err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return session, nil
}

// GetSession retrieves a session with its full message sequence.
func (s *SQLiteStore) GetSession(ctx context.Context, owner, id string) (*domain.Session, error) {
	query := `
		SELECT id, title, message_count, messages_json, created_at
		FROM sessions WHERE owner = ? AND id = ?`

	row := s.db.QueryRowContext(ctx, query, owner, id)

	var session domain.Session
	var messagesJSON string
	var createdAt int64
	err := row.Scan(&session.ID, &session.Title, &session.MessageCount, &messagesJSON, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}

	session.CreatedAt = time.Unix(createdAt, 0).UTC()
	if err := json.Unmarshal([]byte(messagesJSON), &session.Messages); err != nil {
		return nil, fmt.Errorf("decode session messages: %w", err)
	}
	return &session, nil
}

// DeleteSession removes a session.
func (s *SQLiteStore) DeleteSession(ctx context.Context, owner, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE owner = ? AND id = ?`, owner, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete session result: %w", err)
	}
	if affected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// AppendTurn appends a user/assistant message pair atomically.
func (s *SQLiteStore) AppendTurn(ctx context.Context, owner, id string, user, assistant domain.Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append turn: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	row := tx.QueryRowContext(ctx,
		`SELECT title, messages_json FROM sessions WHERE owner = ? AND id = ?`, owner, id)

	var title, messagesJSON string
	err = row.Scan(&title, &messagesJSON)
	if err == sql.ErrNoRows {
		return ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("scan session row: %w", err)
	}

	var messages []domain.Message
	if err := json.Unmarshal([]byte(messagesJSON), &messages); err != nil {
		return fmt.Errorf("decode session messages: %w", err)
	}
	messages = append(messages, user, assistant)

	encoded, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("encode session messages: %w", err)
	}

	if title == domain.DefaultSessionTitle && user.Content != "" {
		title = domain.DeriveTitle(user.Content)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE sessions
		SET title = ?, message_count = ?, messages_json = ?, updated_at = ?
		WHERE owner = ? AND id = ?`,
		title, len(messages), string(encoded), time.Now().Unix(), owner, id)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append turn: %w", err)
	}
	return nil
}
