package user

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// Role is the principal's authorization role
type Role string

const (
	RoleUser    Role = "USER"
	RoleAdmin   Role = "ADMIN"
	RoleAuditor Role = "AUDITOR"
)

// IsValid checks if the role is valid
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAdmin || r == RoleAuditor
}

// KYCStatus is the state of identity verification
type KYCStatus string

const (
	KYCPending  KYCStatus = "PENDING"
	KYCApproved KYCStatus = "APPROVED"
	KYCRejected KYCStatus = "REJECTED"
)

// IsValid checks if the KYC status is valid
func (s KYCStatus) IsValid() bool {
	return s == KYCPending || s == KYCApproved || s == KYCRejected
}

// User represents a user account and its cached wallet balance.
// WalletBalance mirrors the credit balance of the user's ledger wallet and is
// only changed together with a ledger entry.
type User struct {
	ID            uuid.UUID
	Email         string
	PasswordHash  string
	Role          Role
	WalletBalance decimal.Decimal
	KYCStatus     KYCStatus
	WalletFrozen  bool
	Disabled      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
	LastLoginAt   *time.Time
}

// Flags are the administrator-controlled attributes of a user
type Flags struct {
	Role         Role
	KYCStatus    KYCStatus
	WalletFrozen bool
	Disabled     bool
}

// Validate checks the flag values
func (f Flags) Validate() error {
	if !f.Role.IsValid() {
		return ErrInvalidRole
	}
	if !f.KYCStatus.IsValid() {
		return ErrInvalidKYCStatus
	}
	return nil
}

// Flags returns the user's current flags
func (u *User) Flags() Flags {
	return Flags{
		Role:         u.Role,
		KYCStatus:    u.KYCStatus,
		WalletFrozen: u.WalletFrozen,
		Disabled:     u.Disabled,
	}
}

// Validate validates the user
func (u *User) Validate() error {
	if err := u.ValidateEmail(); err != nil {
		return err
	}

	if u.PasswordHash == "" {
		return ErrInvalidPasswordHash
	}

	return u.Flags().Validate()
}

// ValidateEmail validates only the email field
func (u *User) ValidateEmail() error {
	if u.Email == "" || !emailRegex.MatchString(u.Email) {
		return ErrInvalidEmail
	}
	return nil
}

// SetPassword hashes and sets the user's password
func (u *User) SetPassword(password string) error {
	if len(password) < 8 {
		return ErrPasswordTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword checks if the provided password matches the stored hash
func (u *User) CheckPassword(password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrInvalidPassword
		}
		return fmt.Errorf("failed to check password: %w", err)
	}
	return nil
}

// EnsureActive rejects disabled users
func (u *User) EnsureActive() error {
	if u.Disabled {
		return ErrUserDisabled
	}
	return nil
}

// EnsureCanMoveFunds rejects disabled users and frozen wallets
func (u *User) EnsureCanMoveFunds() error {
	if err := u.EnsureActive(); err != nil {
		return err
	}
	if u.WalletFrozen {
		return ErrWalletFrozen
	}
	return nil
}

// EnsureKYC rejects users whose identity verification is not approved
func (u *User) EnsureKYC() error {
	if u.KYCStatus != KYCApproved {
		return ErrKYCNotApproved
	}
	return nil
}

// simplified RFC 5322
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
