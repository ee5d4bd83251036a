package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harvestline/backend/internal/ledger"
	apperrors "github.com/harvestline/backend/internal/shared/errors"
	"github.com/harvestline/backend/pkg/logger"
)

// LedgerServiceInterface defines the ledger read operations
type LedgerServiceInterface interface {
	GetEntry(ctx context.Context, id uuid.UUID) (*ledger.Entry, error)
	ListEntries(ctx context.Context, filter ledger.EntryFilter) ([]*ledger.Entry, error)
	TrialBalance(ctx context.Context) (*ledger.TrialBalance, error)
	ReconcileWallet(ctx context.Context, userID uuid.UUID) error
}

// LedgerHandler serves ledger reports to administrators and auditors
type LedgerHandler struct {
	ledger LedgerServiceInterface
	logger *logger.Logger
}

// NewLedgerHandler creates a new ledger handler
func NewLedgerHandler(svc LedgerServiceInterface, log *logger.Logger) *LedgerHandler {
	return &LedgerHandler{
		ledger: svc,
		logger: logger.OrDiscard(log).WithComponent("ledger_handler"),
	}
}

// AccountBalanceResponse is one trial balance row
type AccountBalanceResponse struct {
	Key     string          `json:"key"`
	Type    string          `json:"type"`
	Debit   decimal.Decimal `json:"debit"`
	Credit  decimal.Decimal `json:"credit"`
	Balance decimal.Decimal `json:"balance"`
}

// TrialBalanceResponse is the ledger-wide trial balance
type TrialBalanceResponse struct {
	Accounts    []AccountBalanceResponse `json:"accounts"`
	TotalDebit  decimal.Decimal          `json:"total_debit"`
	TotalCredit decimal.Decimal          `json:"total_credit"`
	Balanced    bool                     `json:"balanced"`
}

// LineResponse is one entry line
type LineResponse struct {
	AccountID string          `json:"account_id"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
}

// EntryResponse is one ledger entry
type EntryResponse struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Description   string          `json:"description"`
	Currency      string          `json:"currency"`
	UserID        *uuid.UUID      `json:"user_id,omitempty"`
	CommodityID   *uuid.UUID      `json:"commodity_id,omitempty"`
	TransactionID *uuid.UUID      `json:"transaction_id,omitempty"`
	Metadata      ledger.Metadata `json:"metadata"`
	Lines         []LineResponse  `json:"lines"`
	CreatedAt     time.Time       `json:"created_at"`
}

func newEntryResponse(e *ledger.Entry) EntryResponse {
	lines := make([]LineResponse, 0, len(e.Lines))
	for _, l := range e.Lines {
		lines = append(lines, LineResponse{AccountID: l.AccountID.String(), Debit: l.Debit, Credit: l.Credit})
	}
	return EntryResponse{
		ID:            e.ID.String(),
		Type:          string(e.Type),
		Description:   e.Description,
		Currency:      e.Currency,
		UserID:        e.UserID,
		CommodityID:   e.CommodityID,
		TransactionID: e.TransactionID,
		Metadata:      e.Metadata,
		Lines:         lines,
		CreatedAt:     e.CreatedAt,
	}
}

// GetTrialBalance handles GET /admin/ledger/trial-balance
func (h *LedgerHandler) GetTrialBalance(w http.ResponseWriter, r *http.Request) {
	tb, err := h.ledger.TrialBalance(r.Context())
	if err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}

	accounts := make([]AccountBalanceResponse, 0, len(tb.Accounts))
	for _, b := range tb.Accounts {
		accounts = append(accounts, AccountBalanceResponse{
			Key:     b.Account.Key,
			Type:    string(b.Account.Type),
			Debit:   b.Debit,
			Credit:  b.Credit,
			Balance: b.Normal(),
		})
	}
	respondJSON(w, TrialBalanceResponse{
		Accounts:    accounts,
		TotalDebit:  tb.TotalDebit,
		TotalCredit: tb.TotalCredit,
		Balanced:    tb.IsBalanced(),
	}, http.StatusOK)
}

// ListEntries handles GET /admin/ledger/entries
func (h *LedgerHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	filter := ledger.EntryFilter{
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}
	q := r.URL.Query()
	if v := q.Get("user_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			respondError(w, "invalid user_id", http.StatusBadRequest)
			return
		}
		filter.UserID = &id
	}
	if v := q.Get("commodity_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			respondError(w, "invalid commodity_id", http.StatusBadRequest)
			return
		}
		filter.CommodityID = &id
	}
	if v := q.Get("type"); v != "" {
		t := ledger.EntryType(v)
		filter.Type = &t
	}

	entries, err := h.ledger.ListEntries(r.Context(), filter)
	if err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}
	out := make([]EntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, newEntryResponse(e))
	}
	respondJSON(w, out, http.StatusOK)
}

// GetEntry handles GET /admin/ledger/entries/{id}
func (h *LedgerHandler) GetEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	e, err := h.ledger.GetEntry(r.Context(), id)
	if err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}
	respondJSON(w, newEntryResponse(e), http.StatusOK)
}

// ReconcileWallet handles GET /admin/ledger/reconcile/{id}
func (h *LedgerHandler) ReconcileWallet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.ledger.ReconcileWallet(r.Context(), id); err != nil {
		if errors.Is(err, ledger.ErrBalanceMismatch) {
			h.logger.WithContext(r.Context()).Error("wallet does not reconcile", "user_id", id, "error", err)
			respondJSON(w, ErrorResponse{Error: apperrors.GetAppError(err).Message, Code: ledger.ErrBalanceMismatch.Code}, http.StatusConflict)
			return
		}
		respondAppError(w, r, h.logger, err)
		return
	}
	respondJSON(w, map[string]string{"status": "reconciled"}, http.StatusOK)
}
