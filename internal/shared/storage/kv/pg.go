package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"resume-review/internal/shared/auth"
)

// PGStore persists entries in the kv_entries table.
type PGStore struct {
	DB *sql.DB
}

// Get returns the value stored under key for the context's owner.
func (s *PGStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.DB.QueryRowContext(ctx,
		`SELECT value FROM kv_entries WHERE owner = $1 AND key = $2`,
		auth.OwnerFromContext(ctx), key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("kv get %s: %w", key, err)
	}
	if value == "" {
		return "", ErrNotFound
	}
	return value, nil
}

// Set upserts value under key.
func (s *PGStore) Set(ctx context.Context, key, value string) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO kv_entries (owner, key, value)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (owner, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		auth.OwnerFromContext(ctx), key, value,
	)
	if err != nil {
		return fmt.Errorf("kv set %s: %w", key, err)
	}
	return nil
}

// List returns the owner's keys with the given prefix.
func (s *PGStore) List(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT key FROM kv_entries WHERE owner = $1 AND key LIKE $2 ORDER BY key`,
		auth.OwnerFromContext(ctx), escapeLike(prefix)+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("kv list %s: %w", prefix, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("kv list scan: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("kv list rows: %w", err)
	}
	return keys, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

var _ Store = (*PGStore)(nil)
