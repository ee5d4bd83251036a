package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/harvestline/backend/internal/module/wallet"
	"github.com/harvestline/backend/internal/platform/adminreq"
	"github.com/harvestline/backend/internal/platform/user"
	"github.com/harvestline/backend/internal/settlement"
	"github.com/harvestline/backend/pkg/logger"
)

// AdjusterInterface applies or submits admin wallet adjustments
type AdjusterInterface interface {
	AdjustWallet(ctx context.Context, in wallet.AdjustInput) (*wallet.AdjustResult, error)
}

// SettlementInterface distributes payouts
type SettlementInterface interface {
	DistributePayouts(ctx context.Context, req settlement.DistributeRequest) (*settlement.DistributeResult, error)
}

// ApprovalGateInterface decides pending approval requests
type ApprovalGateInterface interface {
	Approve(ctx context.Context, approverID, requestID uuid.UUID) (*adminreq.Request, error)
	Reject(ctx context.Context, actorID, requestID uuid.UUID) (*adminreq.Request, error)
	Get(ctx context.Context, id uuid.UUID) (*adminreq.Request, error)
	ListPending(ctx context.Context, limit int) ([]*adminreq.Request, error)
}

// FlagUpdater changes a user's administrative flags
type FlagUpdater interface {
	UpdateFlags(ctx context.Context, id uuid.UUID, flags user.Flags) (*user.User, error)
}

// AdminHandler handles administrator HTTP requests
type AdminHandler struct {
	wallet     AdjusterInterface
	settlement SettlementInterface
	approvals  ApprovalGateInterface
	users      FlagUpdater
	logger     *logger.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(
	adjuster AdjusterInterface,
	settlementEngine SettlementInterface,
	approvals ApprovalGateInterface,
	users FlagUpdater,
	log *logger.Logger,
) *AdminHandler {
	return &AdminHandler{
		wallet:     adjuster,
		settlement: settlementEngine,
		approvals:  approvals,
		users:      users,
		logger:     logger.OrDiscard(log).WithComponent("admin_handler"),
	}
}

// AdjustWalletRequest is the body of POST /admin/users/{id}/wallet-adjustments.
// Amount is signed.
type AdjustWalletRequest struct {
	Amount string `json:"amount"`
	Reason string `json:"reason"`
}

// DistributePayoutsRequest is the body of POST /admin/commodities/{id}/payouts
type DistributePayoutsRequest struct {
	TotalPayout string `json:"total_payout"`
	MarkSettled bool   `json:"mark_settled"`
	Force       bool   `json:"force"`
}

// UpdateFlagsRequest is the body of PUT /admin/users/{id}/flags
type UpdateFlagsRequest struct {
	Role         string `json:"role"`
	KYCStatus    string `json:"kyc_status"`
	WalletFrozen bool   `json:"wallet_frozen"`
	Disabled     bool   `json:"disabled"`
}

// ApprovalResponse represents an approval request
type ApprovalResponse struct {
	ID          string           `json:"id"`
	Action      string           `json:"action"`
	Status      string           `json:"status"`
	EntityType  string           `json:"entity_type"`
	EntityID    string           `json:"entity_id"`
	RequestedBy string           `json:"requested_by"`
	DecidedBy   *uuid.UUID       `json:"decided_by,omitempty"`
	DecidedAt   *time.Time       `json:"decided_at,omitempty"`
	Payload     adminreq.Payload `json:"payload"`
	CreatedAt   time.Time        `json:"created_at"`
}

func newApprovalResponse(req *adminreq.Request) ApprovalResponse {
	return ApprovalResponse{
		ID:          req.ID.String(),
		Action:      string(req.Action),
		Status:      string(req.Status),
		EntityType:  req.EntityType,
		EntityID:    req.EntityID.String(),
		RequestedBy: req.RequestedBy.String(),
		DecidedBy:   req.DecidedBy,
		DecidedAt:   req.DecidedAt,
		Payload:     req.Payload,
		CreatedAt:   req.CreatedAt,
	}
}

// AdjustWallet handles POST /admin/users/{id}/wallet-adjustments
func (h *AdminHandler) AdjustWallet(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	target, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req AdjustWalletRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	amount, ok := parseAmount(w, "amount", req.Amount)
	if !ok {
		return
	}

	res, err := h.wallet.AdjustWallet(r.Context(), wallet.AdjustInput{
		ActorID:        p.UserID,
		TargetUserID:   target,
		Amount:         amount,
		Reason:         req.Reason,
		IdempotencyKey: r.Header.Get(IdempotencyKeyHeader),
	})
	if err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}
	respondJSON(w, res, acceptedOr(res.RequiresApproval, http.StatusCreated))
}

// DistributePayouts handles POST /admin/commodities/{id}/payouts
func (h *AdminHandler) DistributePayouts(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	commodityID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req DistributePayoutsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	total, ok := parseAmount(w, "total_payout", req.TotalPayout)
	if !ok {
		return
	}

	res, err := h.settlement.DistributePayouts(r.Context(), settlement.DistributeRequest{
		ActorID:        p.UserID,
		CommodityID:    commodityID,
		TotalPayout:    total,
		MarkSettled:    req.MarkSettled,
		Force:          req.Force,
		IdempotencyKey: r.Header.Get(IdempotencyKeyHeader),
	})
	if err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}
	respondJSON(w, res, acceptedOr(res.RequiresApproval, http.StatusCreated))
}

// ListApprovals handles GET /admin/approvals
func (h *AdminHandler) ListApprovals(w http.ResponseWriter, r *http.Request) {
	list, err := h.approvals.ListPending(r.Context(), queryInt(r, "limit", 50))
	if err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}
	out := make([]ApprovalResponse, 0, len(list))
	for _, req := range list {
		out = append(out, newApprovalResponse(req))
	}
	respondJSON(w, out, http.StatusOK)
}

// GetApproval handles GET /admin/approvals/{id}
func (h *AdminHandler) GetApproval(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	req, err := h.approvals.Get(r.Context(), id)
	if err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}
	respondJSON(w, newApprovalResponse(req), http.StatusOK)
}

// Approve handles POST /admin/approvals/{id}/approve
func (h *AdminHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.approvals.Approve)
}

// Reject handles POST /admin/approvals/{id}/reject
func (h *AdminHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.approvals.Reject)
}

func (h *AdminHandler) decide(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, actorID, requestID uuid.UUID) (*adminreq.Request, error)) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	req, err := fn(r.Context(), p.UserID, id)
	if err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}
	respondJSON(w, newApprovalResponse(req), http.StatusOK)
}

// UpdateFlags handles PUT /admin/users/{id}/flags
func (h *AdminHandler) UpdateFlags(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req UpdateFlagsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	u, err := h.users.UpdateFlags(r.Context(), id, user.Flags{
		Role:         user.Role(req.Role),
		KYCStatus:    user.KYCStatus(req.KYCStatus),
		WalletFrozen: req.WalletFrozen,
		Disabled:     req.Disabled,
	})
	if err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}
	respondJSON(w, newUserInfo(u), http.StatusOK)
}

func acceptedOr(pending bool, status int) int {
	if pending {
		return http.StatusAccepted
	}
	return status
}
