package wallet

import apperrors "github.com/harvestline/backend/internal/shared/errors"

var (
	ErrInvalidUser       = apperrors.Validation("INVALID_USER", "user id is required")
	ErrInvalidAmount     = apperrors.Validation("INVALID_AMOUNT", "amount must be a positive USD amount with at most two decimals")
	ErrInvalidAdjustment = apperrors.Validation("INVALID_ADJUSTMENT", "adjustment must be a non-zero USD amount with at most two decimals")
	ErrReasonRequired    = apperrors.Validation("REASON_REQUIRED", "a reason is required")
	ErrNegativeBalance   = apperrors.DomainGuard("NEGATIVE_BALANCE", "adjustment would make the wallet balance negative")
)
