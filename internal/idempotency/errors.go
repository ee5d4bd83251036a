package idempotency

import apperrors "github.com/harvestline/backend/internal/shared/errors"

var (
	ErrInvalidKey        = apperrors.Validation("INVALID_IDEMPOTENCY_KEY", "idempotency key must be 1 to 255 printable characters")
	ErrKeyReuse          = apperrors.IdempotencyConflict("IDEMPOTENCY_KEY_REUSE", "idempotency key was already used with a different request")
	ErrRequestInProgress = apperrors.IdempotencyConflict("IDEMPOTENCY_KEY_IN_PROGRESS", "a request with this idempotency key is still in progress")
)
