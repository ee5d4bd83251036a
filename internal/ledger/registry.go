package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/harvestline/backend/pkg/money"
)

// Registry resolves accounts by their derived key, creating them on first use
type Registry struct {
	currency string
	now      func() time.Time
}

// NewRegistry creates a registry for the platform currency
func NewRegistry() *Registry {
	return &Registry{
		currency: money.Currency,
		now:      time.Now,
	}
}

// Resolve returns the account for spec.Key, creating it if it does not exist.
//
// Creation is a single atomic upsert on the key, so concurrent callers always
// converge on one row. Type and currency are immutable once created; a stored
// row that disagrees with the request is reported as ErrAccountConflict.
func (r *Registry) Resolve(ctx context.Context, store Store, spec AccountSpec) (*Account, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	candidate := &Account{
		ID:               uuid.New(),
		Key:              spec.Key,
		Name:             spec.Name,
		Type:             spec.Type,
		Currency:         r.currency,
		OwnerUserID:      spec.OwnerUserID,
		OwnerCommodityID: spec.OwnerCommodityID,
		CreatedAt:        r.now().UTC(),
	}
	if candidate.Name == "" {
		candidate.Name = spec.Key
	}

	account, err := store.UpsertAccount(ctx, candidate)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert account %s: %w", spec.Key, err)
	}

	if account.Type != spec.Type || account.Currency != r.currency {
		return nil, ErrAccountConflict.Explain(
			"account %s exists as %s/%s, requested %s/%s",
			account.Key, account.Type, account.Currency, spec.Type, r.currency,
		)
	}

	return account, nil
}
