package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harvestline/backend/internal/platform/commodity"
	"github.com/harvestline/backend/pkg/logger"
)

// CommodityServiceInterface defines the deal catalogue operations
type CommodityServiceInterface interface {
	Create(ctx context.Context, in commodity.CreateInput) (*commodity.Commodity, error)
	Get(ctx context.Context, id uuid.UUID) (*commodity.Commodity, error)
	List(ctx context.Context, filter commodity.Filter) ([]*commodity.Commodity, error)
	Transition(ctx context.Context, id uuid.UUID, next commodity.Status) (*commodity.Commodity, error)
}

// CommodityHandler handles commodity HTTP requests
type CommodityHandler struct {
	commodities CommodityServiceInterface
	logger      *logger.Logger
}

// NewCommodityHandler creates a new commodity handler
func NewCommodityHandler(svc CommodityServiceInterface, log *logger.Logger) *CommodityHandler {
	return &CommodityHandler{
		commodities: svc,
		logger:      logger.OrDiscard(log).WithComponent("commodity_handler"),
	}
}

// CreateCommodityRequest is the body of POST /admin/commodities
type CreateCommodityRequest struct {
	Name           string `json:"name"`
	AmountRequired string `json:"amount_required"`
	MinInvestment  string `json:"min_investment"`
	APY            string `json:"apy"`
	DurationDays   int    `json:"duration_days"`
}

// TransitionRequest is the body of POST /admin/commodities/{id}/status
type TransitionRequest struct {
	Status string `json:"status"`
}

// CommodityResponse represents a deal
type CommodityResponse struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Status         string          `json:"status"`
	AmountRequired decimal.Decimal `json:"amount_required"`
	CurrentAmount  decimal.Decimal `json:"current_amount"`
	MinInvestment  decimal.Decimal `json:"min_investment"`
	APY            decimal.Decimal `json:"apy"`
	DurationDays   int             `json:"duration_days"`
	CreatedAt      time.Time       `json:"created_at"`
}

func newCommodityResponse(c *commodity.Commodity) CommodityResponse {
	return CommodityResponse{
		ID:             c.ID.String(),
		Name:           c.Name,
		Status:         string(c.Status),
		AmountRequired: c.AmountRequired,
		CurrentAmount:  c.CurrentAmount,
		MinInvestment:  c.MinInvestment,
		APY:            c.APY,
		DurationDays:   c.DurationDays,
		CreatedAt:      c.CreatedAt,
	}
}

// List handles GET /commodities
func (h *CommodityHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := commodity.Filter{
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}
	if s := r.URL.Query().Get("status"); s != "" {
		status := commodity.Status(s)
		filter.Status = &status
	}

	list, err := h.commodities.List(r.Context(), filter)
	if err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}
	out := make([]CommodityResponse, 0, len(list))
	for _, c := range list {
		out = append(out, newCommodityResponse(c))
	}
	respondJSON(w, out, http.StatusOK)
}

// Get handles GET /commodities/{id}
func (h *CommodityHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	c, err := h.commodities.Get(r.Context(), id)
	if err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}
	respondJSON(w, newCommodityResponse(c), http.StatusOK)
}

// Create handles POST /admin/commodities
func (h *CommodityHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateCommodityRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	required, ok := parseAmount(w, "amount_required", req.AmountRequired)
	if !ok {
		return
	}
	minInvestment := decimal.Zero
	if req.MinInvestment != "" {
		if minInvestment, ok = parseAmount(w, "min_investment", req.MinInvestment); !ok {
			return
		}
	}
	apy, ok := parsePercent(w, "apy", req.APY)
	if !ok {
		return
	}

	c, err := h.commodities.Create(r.Context(), commodity.CreateInput{
		Name:           req.Name,
		AmountRequired: required,
		MinInvestment:  minInvestment,
		APY:            apy,
		DurationDays:   req.DurationDays,
	})
	if err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}
	respondJSON(w, newCommodityResponse(c), http.StatusCreated)
}

// Transition handles POST /admin/commodities/{id}/status
func (h *CommodityHandler) Transition(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req TransitionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	c, err := h.commodities.Transition(r.Context(), id, commodity.Status(req.Status))
	if err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}
	respondJSON(w, newCommodityResponse(c), http.StatusOK)
}
