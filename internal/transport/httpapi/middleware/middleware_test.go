package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/harvestline/backend/internal/platform/user"
)

const testSecret = "test-secret-key-minimum-32-characters-long"

type mockUserLookup struct {
	mock.Mock
}

func (m *mockUserLookup) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	args := m.Called(ctx, id)
	if u := args.Get(0); u != nil {
		return u.(*user.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func principalEcho(t *testing.T, seen *user.Principal) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := GetPrincipal(r.Context())
		require.True(t, ok)
		*seen = p
		w.WriteHeader(http.StatusNoContent)
	})
}

// =============================================================================
// JWT
// =============================================================================

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService(testSecret)
	id := uuid.New()

	tok, err := svc.GenerateToken(id, "a@example.com", user.RoleAuditor)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(tok)
	require.NoError(t, err)
	assert.Equal(t, id, claims.UserID)
	assert.Equal(t, user.RoleAuditor, claims.Role)
}

func TestJWTService_RejectsForeignAndMalformedTokens(t *testing.T) {
	svc := NewJWTService(testSecret)

	other, err := NewJWTService("another-secret-key-of-at-least-32-chars").GenerateToken(uuid.New(), "a@example.com", user.RoleAdmin)
	require.NoError(t, err)
	_, err = svc.ValidateToken(other)
	assert.Error(t, err)

	noRole := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		UserID:           uuid.New(),
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
	signed, err := noRole.SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = svc.ValidateToken(signed)
	assert.Error(t, err)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		UserID:           uuid.New(),
		Role:             user.RoleUser,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))},
	})
	signed, err = expired.SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = svc.ValidateToken(signed)
	assert.Error(t, err)
}

func TestJWTMiddleware(t *testing.T) {
	svc := NewJWTService(testSecret)
	id := uuid.New()
	tok, err := svc.GenerateToken(id, "a@example.com", user.RoleUser)
	require.NoError(t, err)

	var seen user.Principal
	h := JWTMiddleware(svc)(principalEcho(t, &seen))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + tok, http.StatusUnauthorized},
		{"garbage token", "Bearer abc.def.ghi", http.StatusUnauthorized},
		{"valid", "Bearer " + tok, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
	assert.Equal(t, user.Principal{UserID: id, Role: user.RoleUser}, seen)
}

// =============================================================================
// Roles
// =============================================================================

func TestRequireRole(t *testing.T) {
	admin := &user.User{ID: uuid.New(), Role: user.RoleAdmin}
	demoted := &user.User{ID: uuid.New(), Role: user.RoleUser}
	disabled := &user.User{ID: uuid.New(), Role: user.RoleAdmin, Disabled: true}
	missing := uuid.New()
	broken := uuid.New()

	users := new(mockUserLookup)
	users.On("GetByID", mock.Anything, admin.ID).Return(admin, nil)
	users.On("GetByID", mock.Anything, demoted.ID).Return(demoted, nil)
	users.On("GetByID", mock.Anything, disabled.ID).Return(disabled, nil)
	users.On("GetByID", mock.Anything, missing).Return(nil, user.ErrUserNotFound)
	users.On("GetByID", mock.Anything, broken).Return(nil, errors.New("connection reset"))

	tests := []struct {
		name  string
		claim user.Principal
		want  int
	}{
		{"stored admin", user.Principal{UserID: admin.ID, Role: user.RoleUser}, http.StatusNoContent},
		{"role claim not trusted", user.Principal{UserID: demoted.ID, Role: user.RoleAdmin}, http.StatusForbidden},
		{"disabled", user.Principal{UserID: disabled.ID, Role: user.RoleAdmin}, http.StatusForbidden},
		{"unknown user", user.Principal{UserID: missing, Role: user.RoleAdmin}, http.StatusUnauthorized},
		{"lookup failure", user.Principal{UserID: broken, Role: user.RoleAdmin}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen user.Principal
			h := RequireRole(users, user.RoleAdmin)(principalEcho(t, &seen))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req = req.WithContext(WithPrincipal(req.Context(), tt.claim))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusNoContent {
				assert.Equal(t, user.RoleAdmin, seen.Role)
			}
		})
	}

	t.Run("no principal", func(t *testing.T) {
		h := RequireRole(users, user.RoleAdmin)(http.NotFoundHandler())
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

// =============================================================================
// Rate limiting
// =============================================================================

func TestRateLimiter_PerClientBurst(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	call := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, call("10.0.0.1:5000"))
	assert.Equal(t, http.StatusOK, call("10.0.0.1:5001"))
	assert.Equal(t, http.StatusTooManyRequests, call("10.0.0.1:5002"))
	assert.Equal(t, http.StatusOK, call("10.0.0.2:5000"))
}

func TestRateLimiter_EvictsIdleVisitors(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	for i := 0; i <= 1024; i++ {
		rl.getVisitor(uuid.NewString())
	}
	require.Len(t, rl.visitors, 1025)

	now = now.Add(time.Hour)
	rl.getVisitor("fresh")
	assert.Len(t, rl.visitors, 1)
}
