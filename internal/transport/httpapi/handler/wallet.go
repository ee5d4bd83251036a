package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harvestline/backend/internal/module/wallet"
	"github.com/harvestline/backend/internal/platform/transaction"
	"github.com/harvestline/backend/pkg/logger"
)

// WalletServiceInterface defines the wallet money movements
type WalletServiceInterface interface {
	Deposit(ctx context.Context, in wallet.DepositInput) (*wallet.Result, error)
	Withdraw(ctx context.Context, in wallet.WithdrawInput) (*wallet.Result, error)
}

// BalanceReader reads the cached wallet balance
type BalanceReader interface {
	WalletBalance(ctx context.Context, id uuid.UUID) (decimal.Decimal, error)
}

// TransactionLister lists transaction records
type TransactionLister interface {
	List(ctx context.Context, filter transaction.Filter) ([]*transaction.Transaction, error)
}

// WalletHandler handles wallet-related HTTP requests
type WalletHandler struct {
	wallet       WalletServiceInterface
	balances     BalanceReader
	transactions TransactionLister
	logger       *logger.Logger
}

// NewWalletHandler creates a new wallet handler
func NewWalletHandler(svc WalletServiceInterface, balances BalanceReader, transactions TransactionLister, log *logger.Logger) *WalletHandler {
	return &WalletHandler{
		wallet:       svc,
		balances:     balances,
		transactions: transactions,
		logger:       logger.OrDiscard(log).WithComponent("wallet_handler"),
	}
}

// AmountRequest is the body of deposit and withdrawal requests
type AmountRequest struct {
	Amount string `json:"amount"`
}

// BalanceResponse represents the caller's wallet balance
type BalanceResponse struct {
	UserID  string          `json:"user_id"`
	Balance decimal.Decimal `json:"balance"`
}

// TransactionResponse represents one transaction record
type TransactionResponse struct {
	ID            string               `json:"id"`
	Type          string               `json:"type"`
	Status        string               `json:"status"`
	Amount        decimal.Decimal      `json:"amount"`
	Description   string               `json:"description"`
	CommodityID   *uuid.UUID           `json:"commodity_id,omitempty"`
	LedgerEntryID *uuid.UUID           `json:"ledger_entry_id,omitempty"`
	Metadata      transaction.Metadata `json:"metadata"`
	CreatedAt     time.Time            `json:"created_at"`
}

func newTransactionResponse(t *transaction.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:            t.ID.String(),
		Type:          string(t.Type),
		Status:        string(t.Status),
		Amount:        t.Amount,
		Description:   t.Description,
		CommodityID:   t.CommodityID,
		LedgerEntryID: t.LedgerEntryID,
		Metadata:      t.Metadata,
		CreatedAt:     t.CreatedAt,
	}
}

func (h *WalletHandler) readAmount(w http.ResponseWriter, r *http.Request) (decimal.Decimal, bool) {
	var req AmountRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return decimal.Zero, false
	}
	return parseAmount(w, "amount", req.Amount)
}

// Deposit handles POST /wallet/deposits
func (h *WalletHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	amount, ok := h.readAmount(w, r)
	if !ok {
		return
	}

	res, err := h.wallet.Deposit(r.Context(), wallet.DepositInput{
		UserID:         p.UserID,
		Amount:         amount,
		IdempotencyKey: r.Header.Get(IdempotencyKeyHeader),
	})
	if err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}
	respondJSON(w, res, http.StatusCreated)
}

// Withdraw handles POST /wallet/withdrawals
func (h *WalletHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	amount, ok := h.readAmount(w, r)
	if !ok {
		return
	}

	res, err := h.wallet.Withdraw(r.Context(), wallet.WithdrawInput{
		UserID:         p.UserID,
		Amount:         amount,
		IdempotencyKey: r.Header.Get(IdempotencyKeyHeader),
	})
	if err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}
	respondJSON(w, res, http.StatusCreated)
}

// GetBalance handles GET /wallet
func (h *WalletHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	balance, err := h.balances.WalletBalance(r.Context(), p.UserID)
	if err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}
	respondJSON(w, BalanceResponse{UserID: p.UserID.String(), Balance: balance}, http.StatusOK)
}

// GetTransactions handles GET /wallet/transactions
func (h *WalletHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	filter := transaction.Filter{
		UserID: &p.UserID,
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	if t := r.URL.Query().Get("type"); t != "" {
		typ := transaction.Type(t)
		filter.Type = &typ
	}

	list, err := h.transactions.List(r.Context(), filter)
	if err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}

	out := make([]TransactionResponse, 0, len(list))
	for _, t := range list {
		out = append(out, newTransactionResponse(t))
	}
	respondJSON(w, out, http.StatusOK)
}
