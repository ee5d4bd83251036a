package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/harvestline/backend/internal/platform/idemkey"
)

// IdempotencyKeyRepository implements idemkey.Store using PostgreSQL
type IdempotencyKeyRepository struct {
	q querier
}

// GetForUpdate loads a key and locks it until the transaction ends
func (r *IdempotencyKeyRepository) GetForUpdate(ctx context.Context, userID uuid.UUID, scope, key string) (*idemkey.Key, error) {
	query := `
		SELECT id, user_id, scope, key, request_hash, status, response, error, created_at, updated_at
		FROM idempotency_keys
		WHERE user_id = $1 AND scope = $2 AND key = $3
		FOR UPDATE
	`

	var k idemkey.Key
	var response []byte
	err := r.q.QueryRow(ctx, query, userID, scope, key).Scan(
		&k.ID,
		&k.UserID,
		&k.Scope,
		&k.Key,
		&k.RequestHash,
		&k.Status,
		&response,
		&k.Error,
		&k.CreatedAt,
		&k.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, idemkey.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get idempotency key: %w", err)
	}
	k.Response = response
	return &k, nil
}

// Insert claims a key. When a concurrent transaction holds the same key the
// statement waits for it and then reports idemkey.ErrDuplicate.
func (r *IdempotencyKeyRepository) Insert(ctx context.Context, k *idemkey.Key) error {
	query := `
		INSERT INTO idempotency_keys (id, user_id, scope, key, request_hash, status, response, error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT ON CONSTRAINT uq_idempotency_keys DO NOTHING
	`
	tag, err := r.q.Exec(ctx, query,
		k.ID,
		k.UserID,
		k.Scope,
		k.Key,
		k.RequestHash,
		string(k.Status),
		nullJSON(k.Response),
		k.Error,
		k.CreatedAt,
		k.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert idempotency key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return idemkey.ErrDuplicate
	}
	return nil
}

// Update stores the outcome of a key
func (r *IdempotencyKeyRepository) Update(ctx context.Context, k *idemkey.Key) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE idempotency_keys
		SET request_hash = $4, status = $5, response = $6, error = $7, updated_at = $8
		WHERE user_id = $1 AND scope = $2 AND key = $3`,
		k.UserID,
		k.Scope,
		k.Key,
		k.RequestHash,
		string(k.Status),
		nullJSON(k.Response),
		k.Error,
		k.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update idempotency key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return idemkey.ErrNotFound
	}
	return nil
}

func nullJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
