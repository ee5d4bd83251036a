package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harvestline/backend/internal/module/investing"
	"github.com/harvestline/backend/internal/platform/investment"
	"github.com/harvestline/backend/pkg/logger"
)

// InvestingServiceInterface defines the investment operations
type InvestingServiceInterface interface {
	Invest(ctx context.Context, in investing.InvestInput) (*investing.Result, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*investment.Investment, error)
}

// InvestmentHandler handles investment HTTP requests
type InvestmentHandler struct {
	investing InvestingServiceInterface
	logger    *logger.Logger
}

// NewInvestmentHandler creates a new investment handler
func NewInvestmentHandler(svc InvestingServiceInterface, log *logger.Logger) *InvestmentHandler {
	return &InvestmentHandler{
		investing: svc,
		logger:    logger.OrDiscard(log).WithComponent("investment_handler"),
	}
}

// InvestRequest is the body of POST /investments
type InvestRequest struct {
	CommodityID string `json:"commodity_id"`
	Amount      string `json:"amount"`
	AckRisk     bool   `json:"ack_risk"`
	AckTerms    bool   `json:"ack_terms"`
}

// InvestmentResponse represents one investment
type InvestmentResponse struct {
	ID              string           `json:"id"`
	CommodityID     string           `json:"commodity_id"`
	Amount          decimal.Decimal  `json:"amount"`
	Percentage      decimal.Decimal  `json:"percentage"`
	ProjectedReturn decimal.Decimal  `json:"projected_return"`
	ActualReturn    *decimal.Decimal `json:"actual_return,omitempty"`
	Status          string           `json:"status"`
	CreatedAt       time.Time        `json:"created_at"`
	SettledAt       *time.Time       `json:"settled_at,omitempty"`
}

// Invest handles POST /investments
func (h *InvestmentHandler) Invest(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req InvestRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	commodityID, err := uuid.Parse(req.CommodityID)
	if err != nil {
		respondError(w, "invalid commodity_id", http.StatusBadRequest)
		return
	}
	amount, ok := parseAmount(w, "amount", req.Amount)
	if !ok {
		return
	}

	res, err := h.investing.Invest(r.Context(), investing.InvestInput{
		UserID:         p.UserID,
		CommodityID:    commodityID,
		Amount:         amount,
		AckRisk:        req.AckRisk,
		AckTerms:       req.AckTerms,
		IdempotencyKey: r.Header.Get(IdempotencyKeyHeader),
	})
	if err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}
	respondJSON(w, res, http.StatusCreated)
}

// ListMine handles GET /investments
func (h *InvestmentHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	list, err := h.investing.ListByUser(r.Context(), p.UserID)
	if err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}

	out := make([]InvestmentResponse, 0, len(list))
	for _, inv := range list {
		out = append(out, InvestmentResponse{
			ID:              inv.ID.String(),
			CommodityID:     inv.CommodityID.String(),
			Amount:          inv.Amount,
			Percentage:      inv.Percentage,
			ProjectedReturn: inv.ProjectedReturn,
			ActualReturn:    inv.ActualReturn,
			Status:          string(inv.Status),
			CreatedAt:       inv.CreatedAt,
			SettledAt:       inv.SettledAt,
		})
	}
	respondJSON(w, out, http.StatusOK)
}
