// Package store provides session persistence interfaces and implementations.
package store

import (
	"context"
	"errors"

	"github.com/elazargur/llm-council/internal/domain"
)

// ErrSessionNotFound is returned when a session id does not exist for the
// requesting owner.
var ErrSessionNotFound = errors.New("session not found")

// Store defines the interface for persisting council sessions. Sessions are
// scoped per owner (the authenticated email); one owner never sees another's.
type Store interface {
	// ListSessions returns session summaries for an owner, newest first.
	ListSessions(ctx context.Context, owner string) ([]domain.SessionSummary, error)

	// CreateSession creates an empty session with the default title.
	CreateSession(ctx context.Context, owner string) (*domain.Session, error)

	// GetSession retrieves a session with its full message sequence.
	GetSession(ctx context.Context, owner, id string) (*domain.Session, error)

	// DeleteSession removes a session.
	DeleteSession(ctx context.Context, owner, id string) error

	// AppendTurn appends a user/assistant message pair to a session,
	// retitling it from the user content when the title is still the
	// default.
	AppendTurn(ctx context.Context, owner, id string, user, assistant domain.Message) error

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
