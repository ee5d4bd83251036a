package adminreq

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	apperrors "github.com/harvestline/backend/internal/shared/errors"
)

// Action is the operation an approval request would execute
type Action string

const (
	ActionWalletAdjustment  Action = "WALLET_ADJUSTMENT"
	ActionDistributePayouts Action = "DISTRIBUTE_PAYOUTS"
)

// Status is the approval state; APPROVED and REJECTED are terminal
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

var (
	ErrRequestNotFound = apperrors.New(apperrors.KindNotFound, "APPROVAL_REQUEST_NOT_FOUND", "approval request not found")
	ErrInvalidPayload  = apperrors.Validation("INVALID_APPROVAL_PAYLOAD", "approval payload does not match its action")
)

// WalletAdjustment is everything needed to re-run an admin wallet adjustment
type WalletAdjustment struct {
	TargetUserID uuid.UUID       `json:"target_user_id"`
	Amount       decimal.Decimal `json:"amount"`
	Reason       string          `json:"reason"`
}

// DistributePayouts is everything needed to re-run a payout distribution
type DistributePayouts struct {
	CommodityID uuid.UUID       `json:"commodity_id"`
	TotalPayout decimal.Decimal `json:"total_payout"`
	MarkSettled bool            `json:"mark_settled"`
	Force       bool            `json:"force"`
}

// Payload is a tagged union: exactly one field is set, matching the action
type Payload struct {
	WalletAdjustment  *WalletAdjustment  `json:"wallet_adjustment,omitempty"`
	DistributePayouts *DistributePayouts `json:"distribute_payouts,omitempty"`
}

// Validate checks that the payload carries exactly the variant for action
func (p Payload) Validate(action Action) error {
	switch action {
	case ActionWalletAdjustment:
		if p.WalletAdjustment == nil || p.DistributePayouts != nil {
			return ErrInvalidPayload
		}
	case ActionDistributePayouts:
		if p.DistributePayouts == nil || p.WalletAdjustment != nil {
			return ErrInvalidPayload
		}
	default:
		return ErrInvalidPayload.Explain("unknown action %q", action)
	}
	return nil
}

// Request is a persisted two-person approval request
type Request struct {
	ID          uuid.UUID
	Action      Action
	Status      Status
	EntityType  string
	EntityID    uuid.UUID
	RequestedBy uuid.UUID
	DecidedBy   *uuid.UUID
	DecidedAt   *time.Time
	Payload     Payload
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Filter defines filters for listing requests
type Filter struct {
	Status *Status
	Action *Action
	Limit  int
}

// Store defines approval request persistence
type Store interface {
	Create(ctx context.Context, r *Request) error
	GetByID(ctx context.Context, id uuid.UUID) (*Request, error)

	// GetForUpdate retrieves a request and locks the row until the transaction ends
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Request, error)

	// Decide stores the terminal status of a PENDING request
	Decide(ctx context.Context, id uuid.UUID, status Status, decidedBy uuid.UUID, at time.Time) error

	List(ctx context.Context, filter Filter) ([]*Request, error)
}
