package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// DBStore implements Recorder against PostgreSQL
type DBStore struct {
	db *sql.DB
}

// NewDBStore creates a database-backed audit store
func NewDBStore(db *sql.DB) (*DBStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	store := &DBStore{db: db}
	if err := store.ensureTable(); err != nil {
		return nil, fmt.Errorf("failed to ensure janus_audit table: %w", err)
	}
	return store, nil
}

// ensureTable creates the janus_audit table if it doesn't exist
func (s *DBStore) ensureTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS janus_audit (
		id BIGSERIAL PRIMARY KEY,
		event_type VARCHAR(50) NOT NULL,
		principal VARCHAR(255),
		remote_addr VARCHAR(45),
		detail TEXT,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_janus_audit_created_at ON janus_audit(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_janus_audit_event_type ON janus_audit(event_type);
	CREATE INDEX IF NOT EXISTS idx_janus_audit_principal ON janus_audit(principal);
	`

	_, err := s.db.Exec(query)
	return err
}

// Record inserts one audit event
func (s *DBStore) Record(ctx context.Context, event *Event) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO janus_audit (event_type, principal, remote_addr, detail, created_at)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		string(event.Type), event.Principal, event.RemoteAddr, event.Detail, event.CreatedAt,
	).Scan(&event.ID)
	if err != nil {
		return fmt.Errorf("inserting audit event: %w", err)
	}
	return nil
}

// Recent returns the newest events, most recent first
func (s *DBStore) Recent(ctx context.Context, limit int) ([]*Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, event_type, principal, remote_addr, detail, created_at
		 FROM janus_audit ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying audit events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		event := &Event{}
		var eventType string
		if err := rows.Scan(&event.ID, &eventType, &event.Principal, &event.RemoteAddr, &event.Detail, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning audit event: %w", err)
		}
		event.Type = EventType(eventType)
		events = append(events, event)
	}
	return events, rows.Err()
}

// CleanupBefore deletes events older than cutoff and reports how many
// rows were removed
func (s *DBStore) CleanupBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM janus_audit WHERE created_at < $1", cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting audit events: %w", err)
	}
	return result.RowsAffected()
}
