package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/harvestline/backend/internal/platform/user"
)

// UserLookup loads the stored user behind a principal
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
}

// RequireRole admits only active users whose stored role is one of roles.
// The token's role claim is not trusted here; roles can change after a
// token is issued.
func RequireRole(users UserLookup, roles ...user.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := GetPrincipal(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			u, err := users.GetByID(r.Context(), p.UserID)
			if err != nil {
				if errors.Is(err, user.ErrUserNotFound) {
					writeError(w, http.StatusUnauthorized, "unknown user")
					return
				}
				writeError(w, http.StatusInternalServerError, "failed to load user")
				return
			}
			if u.Disabled {
				writeError(w, http.StatusForbidden, "user account is disabled")
				return
			}

			for _, role := range roles {
				if u.Role == role {
					ctx := WithPrincipal(r.Context(), user.Principal{UserID: u.ID, Role: u.Role})
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}
			writeError(w, http.StatusForbidden, "insufficient role")
		})
	}
}
