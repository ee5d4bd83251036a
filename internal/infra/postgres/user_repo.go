package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/harvestline/backend/internal/platform/user"
)

// UserRepository implements user.Store using PostgreSQL
type UserRepository struct {
	q querier
}

const userColumns = `id, email, password_hash, role, wallet_balance, kyc_status, wallet_frozen, disabled, created_at, updated_at, last_login_at`

func scanUser(row pgx.Row) (*user.User, error) {
	var u user.User
	var lastLoginAt sql.NullTime

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.Role,
		&u.WalletBalance,
		&u.KYCStatus,
		&u.WalletFrozen,
		&u.Disabled,
		&u.CreatedAt,
		&u.UpdatedAt,
		&lastLoginAt,
	)
	if err != nil {
		return nil, err
	}

	if lastLoginAt.Valid {
		u.LastLoginAt = &lastLoginAt.Time
	}
	return &u, nil
}

// Create creates a new user in the database
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	if err := u.Validate(); err != nil {
		return fmt.Errorf("invalid user: %w", err)
	}

	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.q.Exec(ctx, query,
		u.ID,
		u.Email,
		u.PasswordHash,
		string(u.Role),
		u.WalletBalance,
		string(u.KYCStatus),
		u.WalletFrozen,
		u.Disabled,
		u.CreatedAt,
		u.UpdatedAt,
		u.LastLoginAt,
	)
	if err != nil {
		if uniqueViolation(err, "users_email_key") {
			return user.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	u, err := scanUser(r.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, r.lookupError(err)
	}
	return u, nil
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	u, err := scanUser(r.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		return nil, r.lookupError(err)
	}
	return u, nil
}

// GetForUpdate retrieves a user and holds its row lock until the transaction ends
func (r *UserRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*user.User, error) {
	u, err := scanUser(r.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, r.lookupError(err)
	}
	return u, nil
}

func (r *UserRepository) lookupError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return user.ErrUserNotFound
	}
	return fmt.Errorf("failed to get user: %w", err)
}

// UpdateWalletBalance stores the cached wallet balance
func (r *UserRepository) UpdateWalletBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
	query := `UPDATE users SET wallet_balance = $2, updated_at = $3 WHERE id = $1`
	return r.update(ctx, query, id, balance, time.Now().UTC())
}

// UpdateFlags stores role, KYC, frozen and disabled flags
func (r *UserRepository) UpdateFlags(ctx context.Context, id uuid.UUID, flags user.Flags) error {
	query := `
		UPDATE users
		SET role = $2, kyc_status = $3, wallet_frozen = $4, disabled = $5, updated_at = $6
		WHERE id = $1
	`
	return r.update(ctx, query, id,
		string(flags.Role),
		string(flags.KYCStatus),
		flags.WalletFrozen,
		flags.Disabled,
		time.Now().UTC(),
	)
}

// TouchLastLogin records a successful login
func (r *UserRepository) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.update(ctx, `UPDATE users SET last_login_at = $2 WHERE id = $1`, id, at)
}

func (r *UserRepository) update(ctx context.Context, query string, id uuid.UUID, args ...any) error {
	tag, err := r.q.Exec(ctx, query, append([]any{id}, args...)...)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrUserNotFound
	}
	return nil
}
