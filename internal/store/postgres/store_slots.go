package postgres

import (
	"context"
	"errors"
	"fmt"

	"nebula-backend/internal/store"

	"github.com/jackc/pgx/v5"
)

const getSlot = `-- name: GetSlot :one
SELECT value FROM storage_slots WHERE owner = $1 AND key = $2;
`

// GetSlot returns the raw value stored under (owner, key).
func (s *PostgresStore) GetSlot(ctx context.Context, owner, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRow(ctx, getSlot, owner, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("database error reading slot %s: %w", key, err)
	}
	return value, nil
}

const putSlot = `-- name: PutSlot :exec
INSERT INTO storage_slots (owner, key, value, updated_at)
VALUES ($1, $2, $3, NOW())
ON CONFLICT (owner, key) DO UPDATE
SET value = EXCLUDED.value, updated_at = NOW();
`

// PutSlot replaces the value stored under (owner, key).
func (s *PostgresStore) PutSlot(ctx context.Context, owner, key string, value []byte) error {
	if _, err := s.db.Exec(ctx, putSlot, owner, key, value); err != nil {
		s.log.Error().Err(err).Str("owner", owner).Str("key", key).Msg("failed to write slot")
		return fmt.Errorf("database error writing slot %s: %w", key, err)
	}
	return nil
}

const deleteSlot = `-- name: DeleteSlot :exec
DELETE FROM storage_slots WHERE owner = $1 AND key = $2;
`

// DeleteSlot removes (owner, key). Deleting a missing slot is not an error.
func (s *PostgresStore) DeleteSlot(ctx context.Context, owner, key string) error {
	if _, err := s.db.Exec(ctx, deleteSlot, owner, key); err != nil {
		return fmt.Errorf("database error deleting slot %s: %w", key, err)
	}
	return nil
}
