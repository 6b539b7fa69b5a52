package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrSessionNotFound is returned when no session matches the lookup
var ErrSessionNotFound = errors.New("session not found")

// DefaultSessionTTL bounds how long an established session stays valid
const DefaultSessionTTL = 24 * time.Hour

// Session is one established authentication session
type Session struct {
	ID            string    `json:"id"`
	UID           string    `json:"uid"`
	Ticket        string    `json:"ticket,omitempty"`
	EstablishedAt time.Time `json:"established_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// SessionStore persists authentication sessions
type SessionStore interface {
	// Create persists a new session
	Create(ctx context.Context, session *Session) error

	// Get retrieves a session by ID; ErrSessionNotFound when absent
	Get(ctx context.Context, id string) (*Session, error)

	// Delete removes a session by ID; absent sessions are not an error
	Delete(ctx context.Context, id string) error

	// DeleteByTicket removes every session established from the given
	// service ticket, returning how many were removed. Used by single
	// logout; only sessions stored with their ticket can match.
	DeleteByTicket(ctx context.Context, ticket string) (int64, error)

	// DeleteExpired removes sessions past their expiry, returning how
	// many were removed
	DeleteExpired(ctx context.Context) (int64, error)
}

// PostgresSessionStore implements SessionStore on the janus_sessions table
type PostgresSessionStore struct {
	db *sql.DB
}

// NewPostgresSessionStore creates a Postgres-backed session store
func NewPostgresSessionStore(db *sql.DB) *PostgresSessionStore {
	return &PostgresSessionStore{db: db}
}

func (s *PostgresSessionStore) Create(ctx context.Context, session *Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO janus_sessions (id, uid, ticket, established_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		session.ID, session.UID, session.Ticket, session.EstablishedAt, session.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	return nil
}

func (s *PostgresSessionStore) Get(ctx context.Context, id string) (*Session, error) {
	var session Session
	err := s.db.QueryRowContext(ctx,
		`SELECT id, uid, ticket, established_at, expires_at
		 FROM janus_sessions WHERE id = $1`, id,
	).Scan(&session.ID, &session.UID, &session.Ticket, &session.EstablishedAt, &session.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}
	return &session, nil
}

func (s *PostgresSessionStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM janus_sessions WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

func (s *PostgresSessionStore) DeleteByTicket(ctx context.Context, ticket string) (int64, error) {
	if ticket == "" {
		return 0, nil
	}
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM janus_sessions WHERE ticket = $1", ticket)
	if err != nil {
		return 0, fmt.Errorf("deleting sessions by ticket: %w", err)
	}
	return result.RowsAffected()
}

func (s *PostgresSessionStore) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM janus_sessions WHERE expires_at < NOW()")
	if err != nil {
		return 0, fmt.Errorf("deleting expired sessions: %w", err)
	}
	return result.RowsAffected()
}
