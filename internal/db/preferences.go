package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// GetPreference returns the raw JSON stored under key, or ErrNotFound.
func (d *DB) GetPreference(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := d.Pool.QueryRow(ctx, `SELECT value FROM preferences WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get preference %s: %w", key, err)
	}
	return value, nil
}

// PutPreference upserts the JSON value under key.
func (d *DB) PutPreference(ctx context.Context, key string, value []byte) error {
	query := `
        INSERT INTO preferences (key, value, updated_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`
	if _, err := d.Pool.Exec(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to put preference %s: %w", key, err)
	}
	return nil
}
