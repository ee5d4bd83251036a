package user

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store defines user persistence
type Store interface {
	// Create creates a new user; a duplicate email returns ErrUserAlreadyExists
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)

	// GetByEmail retrieves a user by email
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetForUpdate retrieves a user and locks the row until the transaction ends
	GetForUpdate(ctx context.Context, id uuid.UUID) (*User, error)

	// UpdateWalletBalance stores a new cached balance. Only called inside a
	// unit of work that also writes the matching ledger entry.
	UpdateWalletBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error

	// UpdateFlags stores role, KYC, frozen and disabled flags
	UpdateFlags(ctx context.Context, id uuid.UUID, flags Flags) error

	// TouchLastLogin records a successful login
	TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}
