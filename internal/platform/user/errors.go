package user

import apperrors "github.com/harvestline/backend/internal/shared/errors"

// Registration and authentication errors
var (
	ErrInvalidEmail        = apperrors.Validation("INVALID_EMAIL", "invalid email address")
	ErrInvalidPassword     = apperrors.New(apperrors.KindForbidden, "INVALID_CREDENTIALS", "invalid email or password")
	ErrInvalidPasswordHash = apperrors.Validation("INVALID_PASSWORD_HASH", "invalid password hash")
	ErrPasswordTooShort    = apperrors.Validation("PASSWORD_TOO_SHORT", "password must be at least 8 characters")
	ErrUserAlreadyExists   = apperrors.DomainGuard("USER_EXISTS", "user with this email already exists")
	ErrInvalidRole         = apperrors.Validation("INVALID_ROLE", "invalid role")
	ErrInvalidKYCStatus    = apperrors.Validation("INVALID_KYC_STATUS", "invalid KYC status")
)

// Lookup errors
var (
	ErrUserNotFound = apperrors.New(apperrors.KindNotFound, "USER_NOT_FOUND", "user not found")
)

// Money-movement guards
var (
	ErrUserDisabled        = apperrors.DomainGuard("USER_DISABLED", "user account is disabled")
	ErrWalletFrozen        = apperrors.DomainGuard("WALLET_FROZEN", "wallet is frozen")
	ErrKYCNotApproved      = apperrors.DomainGuard("KYC_NOT_APPROVED", "KYC verification is not approved")
	ErrInsufficientBalance = apperrors.DomainGuard("INSUFFICIENT_BALANCE", "insufficient wallet balance")
)
