package approval

import apperrors "github.com/harvestline/backend/internal/shared/errors"

var (
	ErrSelfApprovalForbidden = apperrors.ApprovalState("SELF_APPROVAL_FORBIDDEN", "a request cannot be approved by the admin who raised it")
	ErrAlreadyDecided        = apperrors.ApprovalState("APPROVAL_ALREADY_DECIDED", "approval request has already been decided")
	ErrActionFailed          = apperrors.ApprovalState("APPROVAL_ACTION_FAILED", "approved action could not be executed; request left pending")
	ErrNoHandler             = apperrors.Internal("no handler registered for approval action", nil)
)
