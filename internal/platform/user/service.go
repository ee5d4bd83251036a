package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harvestline/backend/pkg/logger"
)

// Service handles registration, authentication and administrator flag changes
type Service struct {
	store  Store
	logger *logger.Logger
	now    func() time.Time
}

// NewService creates a new user service
func NewService(store Store, log *logger.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger.OrDiscard(log).WithComponent("user"),
		now:    time.Now,
	}
}

// Register creates a USER with an empty wallet and pending KYC
func (s *Service) Register(ctx context.Context, email, password string) (*User, error) {
	return s.create(ctx, email, password, RoleUser, KYCPending)
}

// EnsureAdmin creates an administrator with the given credentials unless a
// user with that email already exists. Used to bootstrap a fresh database.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) (*User, error) {
	existing, err := s.store.GetByEmail(ctx, normalizeEmail(email))
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("failed to look up admin: %w", err)
	}
	return s.create(ctx, email, password, RoleAdmin, KYCApproved)
}

func (s *Service) create(ctx context.Context, email, password string, role Role, kyc KYCStatus) (*User, error) {
	now := s.now().UTC()
	u := &User{
		ID:            uuid.New(),
		Email:         normalizeEmail(email),
		Role:          role,
		WalletBalance: decimal.Zero,
		KYCStatus:     kyc,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := u.ValidateEmail(); err != nil {
		return nil, err
	}
	if err := u.SetPassword(password); err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, u); err != nil {
		if errors.Is(err, ErrUserAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user registered", "user_id", u.ID, "role", u.Role)
	return u, nil
}

// Login authenticates a user with email and password
func (s *Service) Login(ctx context.Context, email, password string) (*User, error) {
	u, err := s.store.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// Don't reveal that the user doesn't exist
			return nil, ErrInvalidPassword
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := u.CheckPassword(password); err != nil {
		return nil, err
	}
	if err := u.EnsureActive(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if err := s.store.TouchLastLogin(ctx, u.ID, now); err != nil {
		s.logger.WithError(err).Warn("failed to update last login", "user_id", u.ID)
	} else {
		u.LastLoginAt = &now
	}

	return u, nil
}

// GetByID retrieves a user by ID
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.store.GetByID(ctx, id)
}

// WalletBalance returns the cached wallet balance of a user
func (s *Service) WalletBalance(ctx context.Context, id uuid.UUID) (decimal.Decimal, error) {
	u, err := s.store.GetByID(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	return u.WalletBalance, nil
}

// UpdateFlags replaces a user's role, KYC status, frozen and disabled flags
func (s *Service) UpdateFlags(ctx context.Context, id uuid.UUID, flags Flags) (*User, error) {
	if err := flags.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.UpdateFlags(ctx, id, flags); err != nil {
		return nil, err
	}

	s.logger.Info("user flags updated",
		"user_id", id,
		"role", flags.Role,
		"kyc_status", flags.KYCStatus,
		"wallet_frozen", flags.WalletFrozen,
		"disabled", flags.Disabled,
	)
	return s.store.GetByID(ctx, id)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
