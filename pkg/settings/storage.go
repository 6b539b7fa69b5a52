package settings

import (
	"context"
	"database/sql"
	"fmt"
)

// Store provides access to persisted configuration key/value pairs
type Store interface {
	// Get retrieves one key; found is false when the key is absent
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// Set writes one key, inserting or replacing
	Set(ctx context.Context, key, value string) error

	// All retrieves every stored key/value pair
	All(ctx context.Context) (map[string]string, error)

	// Delete removes one key; absent keys are not an error
	Delete(ctx context.Context, key string) error
}

// DBStore implements Store using PostgreSQL
type DBStore struct {
	db *sql.DB
}

// NewDBStore creates a database-backed settings store
func NewDBStore(db *sql.DB) *DBStore {
	return &DBStore{db: db}
}

func (s *DBStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM janus_settings WHERE key = $1", key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading setting %s: %w", key, err)
	}
	return value, true, nil
}

func (s *DBStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO janus_settings (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("writing setting %s: %w", key, err)
	}
	return nil
}

func (s *DBStore) All(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM janus_settings")
	if err != nil {
		return nil, fmt.Errorf("listing settings: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scanning setting row: %w", err)
		}
		values[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating settings: %w", err)
	}
	return values, nil
}

func (s *DBStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM janus_settings WHERE key = $1", key)
	if err != nil {
		return fmt.Errorf("deleting setting %s: %w", key, err)
	}
	return nil
}
