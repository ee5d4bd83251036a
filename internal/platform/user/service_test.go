package user_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harvestline/backend/internal/infra/memory"
	"github.com/harvestline/backend/internal/platform/user"
)

func newService() *user.Service {
	return user.NewService(memory.New().Users(), nil)
}

func TestService_Register(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"valid registration", "user@example.com", "SecureP@ssw0rd", nil},
		{"minimum valid password length", "user2@example.com", "12345678", nil},
		{"password too short", "user@example.com", "short", user.ErrPasswordTooShort},
		{"invalid email", "not-an-email", "SecureP@ssw0rd", user.ErrInvalidEmail},
		{"empty email", "", "SecureP@ssw0rd", user.ErrInvalidEmail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := newService().Register(context.Background(), tt.email, tt.password)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, user.RoleUser, u.Role)
			assert.Equal(t, user.KYCPending, u.KYCStatus)
			assert.True(t, u.WalletBalance.IsZero())
			assert.NotEqual(t, tt.password, u.PasswordHash)
		})
	}
}

func TestService_RegisterDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	_, err := svc.Register(ctx, "Dup@Example.com", "SecureP@ssw0rd")
	require.NoError(t, err)

	_, err = svc.Register(ctx, " dup@example.com", "SecureP@ssw0rd")
	assert.ErrorIs(t, err, user.ErrUserAlreadyExists)
}

func TestService_Login(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	registered, err := svc.Register(ctx, "login@example.com", "SecureP@ssw0rd")
	require.NoError(t, err)

	u, err := svc.Login(ctx, "LOGIN@example.com", "SecureP@ssw0rd")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, u.ID)
	assert.NotNil(t, u.LastLoginAt)

	_, err = svc.Login(ctx, "login@example.com", "wrong-password")
	assert.ErrorIs(t, err, user.ErrInvalidPassword)

	// Unknown users get the same error as a bad password
	_, err = svc.Login(ctx, "nobody@example.com", "SecureP@ssw0rd")
	assert.ErrorIs(t, err, user.ErrInvalidPassword)

	_, err = svc.UpdateFlags(ctx, u.ID, user.Flags{Role: user.RoleUser, KYCStatus: user.KYCPending, Disabled: true})
	require.NoError(t, err)
	_, err = svc.Login(ctx, "login@example.com", "SecureP@ssw0rd")
	assert.ErrorIs(t, err, user.ErrUserDisabled)
}

func TestService_EnsureAdmin(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	first, err := svc.EnsureAdmin(ctx, "root@example.com", "SecureP@ssw0rd")
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, first.Role)
	assert.Equal(t, user.KYCApproved, first.KYCStatus)

	again, err := svc.EnsureAdmin(ctx, "root@example.com", "another-password")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
}

func TestService_UpdateFlags(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	u, err := svc.Register(ctx, "flags@example.com", "SecureP@ssw0rd")
	require.NoError(t, err)

	updated, err := svc.UpdateFlags(ctx, u.ID, user.Flags{Role: user.RoleAuditor, KYCStatus: user.KYCApproved, WalletFrozen: true})
	require.NoError(t, err)
	assert.Equal(t, user.RoleAuditor, updated.Role)
	assert.Equal(t, user.KYCApproved, updated.KYCStatus)
	assert.True(t, updated.WalletFrozen)
	assert.ErrorIs(t, updated.EnsureCanMoveFunds(), user.ErrWalletFrozen)

	_, err = svc.UpdateFlags(ctx, u.ID, user.Flags{Role: "ROOT", KYCStatus: user.KYCApproved})
	assert.ErrorIs(t, err, user.ErrInvalidRole)

	_, err = svc.UpdateFlags(ctx, u.ID, user.Flags{Role: user.RoleUser, KYCStatus: "MAYBE"})
	assert.ErrorIs(t, err, user.ErrInvalidKYCStatus)

	_, err = svc.UpdateFlags(ctx, uuid.New(), user.Flags{Role: user.RoleUser, KYCStatus: user.KYCApproved})
	assert.ErrorIs(t, err, user.ErrUserNotFound)
}

func TestRequireAdmin(t *testing.T) {
	ctx := context.Background()
	store := memory.New().Users()
	svc := user.NewService(store, nil)

	admin, err := svc.EnsureAdmin(ctx, "admin@example.com", "SecureP@ssw0rd")
	require.NoError(t, err)
	plain, err := svc.Register(ctx, "plain@example.com", "SecureP@ssw0rd")
	require.NoError(t, err)

	_, err = user.RequireAdmin(ctx, store, admin.ID)
	assert.NoError(t, err)

	_, err = user.RequireAdmin(ctx, store, plain.ID)
	assert.ErrorIs(t, err, user.ErrNotAdmin)
}
