package commodity

import apperrors "github.com/harvestline/backend/internal/shared/errors"

var (
	ErrCommodityNotFound = apperrors.New(apperrors.KindNotFound, "COMMODITY_NOT_FOUND", "commodity not found")
	ErrInvalidCommodity  = apperrors.Validation("INVALID_COMMODITY", "invalid commodity")
	ErrInvalidStatus     = apperrors.Validation("INVALID_COMMODITY_STATUS", "invalid commodity status")
	ErrInvalidTransition = apperrors.DomainGuard("INVALID_STATUS_TRANSITION", "commodity cannot move to the requested status")
)

// Investment guards
var (
	ErrNotFunding   = apperrors.DomainGuard("COMMODITY_NOT_FUNDING", "commodity is not open for investment")
	ErrBelowMinimum = apperrors.DomainGuard("BELOW_MIN_INVESTMENT", "amount is below the minimum investment")
	ErrExceedsCap   = apperrors.DomainGuard("EXCEEDS_FUNDING_CAP", "investment exceeds the remaining funding amount")
)
