package idemkey

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an idempotency key
type Status string

const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

var (
	ErrNotFound  = errors.New("idempotency key not found")
	ErrDuplicate = errors.New("idempotency key already exists")
)

// Key records the outcome of one (user, scope, key) request
type Key struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Scope       string
	Key         string
	RequestHash string
	Status      Status
	Response    json.RawMessage
	Error       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Store defines idempotency key persistence; (UserID, Scope, Key) is unique
type Store interface {
	// GetForUpdate returns the key row locked until the transaction ends, or ErrNotFound
	GetForUpdate(ctx context.Context, userID uuid.UUID, scope, key string) (*Key, error)

	// Insert creates the row or returns ErrDuplicate when the triple exists
	Insert(ctx context.Context, k *Key) error

	// Update stores status, response and error of an existing row
	Update(ctx context.Context, k *Key) error
}
