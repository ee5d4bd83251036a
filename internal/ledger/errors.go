package ledger

import apperrors "github.com/harvestline/backend/internal/shared/errors"

// Account errors
var (
	ErrInvalidAccountKey  = apperrors.Invariant("INVALID_ACCOUNT_KEY", "invalid account key")
	ErrInvalidAccountType = apperrors.Invariant("INVALID_ACCOUNT_TYPE", "invalid account type")
	ErrAccountConflict    = apperrors.Invariant("ACCOUNT_CONFLICT", "account key already bound to a different type or currency")
	ErrAccountNotFound    = apperrors.New(apperrors.KindNotFound, "ACCOUNT_NOT_FOUND", "ledger account not found")
)

// Entry errors
var (
	ErrEmptyEntry       = apperrors.Invariant("EMPTY_ENTRY", "ledger entry has no lines")
	ErrUnbalancedEntry  = apperrors.Invariant("UNBALANCED_ENTRY", "ledger entry debits and credits do not balance")
	ErrInvalidEntryType = apperrors.Invariant("INVALID_ENTRY_TYPE", "invalid entry type")
	ErrInvalidLine      = apperrors.Invariant("INVALID_LINE", "invalid ledger line")
	ErrInvalidMetadata  = apperrors.Invariant("INVALID_METADATA", "invalid entry metadata")
	ErrEntryNotFound    = apperrors.New(apperrors.KindNotFound, "ENTRY_NOT_FOUND", "ledger entry not found")
)

// Reconciliation errors
var (
	ErrBalanceMismatch = apperrors.Invariant("BALANCE_MISMATCH", "wallet balance does not match ledger")
)
