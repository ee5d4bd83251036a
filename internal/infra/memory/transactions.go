package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/harvestline/backend/internal/platform/transaction"
)

type transactionStore struct{ v view }

func copyTransaction(t *transaction.Transaction) *transaction.Transaction {
	c := *t
	return &c
}

func (s transactionStore) Create(_ context.Context, t *transaction.Transaction) error {
	st, release := s.v.acquire()
	defer release()

	// one PAYOUT per user and commodity
	if t.Type == transaction.TypePayout && t.CommodityID != nil {
		key := payoutKey{commodityID: *t.CommodityID, userID: t.UserID}
		if _, ok := st.payouts[key]; ok {
			return transaction.ErrDuplicatePayout
		}
		st.payouts[key] = t.ID
	}

	st.transactions[t.ID] = copyTransaction(t)
	st.txOrder = append(st.txOrder, t.ID)
	return nil
}

func (s transactionStore) GetByID(_ context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	st, release := s.v.acquire()
	defer release()

	t, ok := st.transactions[id]
	if !ok {
		return nil, transaction.ErrTransactionNotFound
	}
	return copyTransaction(t), nil
}

func (s transactionStore) List(_ context.Context, filter transaction.Filter) ([]*transaction.Transaction, error) {
	st, release := s.v.acquire()
	defer release()

	var out []*transaction.Transaction
	for i := len(st.txOrder) - 1; i >= 0; i-- {
		t := st.transactions[st.txOrder[i]]
		if filter.UserID != nil && t.UserID != *filter.UserID {
			continue
		}
		if filter.CommodityID != nil && (t.CommodityID == nil || *t.CommodityID != *filter.CommodityID) {
			continue
		}
		if filter.Type != nil && t.Type != *filter.Type {
			continue
		}
		out = append(out, copyTransaction(t))
	}
	return paginate(out, filter.Offset, filter.Limit), nil
}

func (s transactionStore) Complete(_ context.Context, id uuid.UUID, ledgerEntryID uuid.UUID) error {
	st, release := s.v.acquire()
	defer release()

	t, ok := st.transactions[id]
	if !ok || t.Status != transaction.StatusPending {
		return transaction.ErrTransactionNotFound.Explain("no pending transaction %s", id)
	}
	next := copyTransaction(t)
	next.Status = transaction.StatusCompleted
	next.LedgerEntryID = &ledgerEntryID
	next.UpdatedAt = time.Now().UTC()
	st.transactions[id] = next
	return nil
}

func (s transactionStore) ExistsForCommodity(_ context.Context, commodityID uuid.UUID, typ transaction.Type) (bool, error) {
	st, release := s.v.acquire()
	defer release()

	for _, t := range st.transactions {
		if t.Type == typ && t.CommodityID != nil && *t.CommodityID == commodityID {
			return true, nil
		}
	}
	return false, nil
}
