package user

import (
	"context"

	"github.com/google/uuid"

	apperrors "github.com/harvestline/backend/internal/shared/errors"
)

var ErrNotAdmin = apperrors.Forbidden("administrator role required")

// Principal is the authenticated caller
type Principal struct {
	UserID uuid.UUID
	Role   Role
}

// IsAdmin reports whether the principal claims the ADMIN role
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// CanAudit reports whether the principal may read ledger-wide reports
func (p Principal) CanAudit() bool {
	return p.Role == RoleAdmin || p.Role == RoleAuditor
}

// RequireAdmin loads id through store and checks it is an active ADMIN.
// The stored role is authoritative over any role claimed by a token.
func RequireAdmin(ctx context.Context, store Store, id uuid.UUID) (*User, error) {
	u, err := store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Role != RoleAdmin {
		return nil, ErrNotAdmin
	}
	if err := u.EnsureActive(); err != nil {
		return nil, err
	}
	return u, nil
}
