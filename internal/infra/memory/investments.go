package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harvestline/backend/internal/platform/investment"
)

type investmentStore struct{ v view }

func copyInvestment(inv *investment.Investment) *investment.Investment {
	c := *inv
	return &c
}

func (s investmentStore) Create(_ context.Context, inv *investment.Investment) error {
	st, release := s.v.acquire()
	defer release()

	st.investments[inv.ID] = copyInvestment(inv)
	st.invOrder = append(st.invOrder, inv.ID)
	return nil
}

func (s investmentStore) GetByID(_ context.Context, id uuid.UUID) (*investment.Investment, error) {
	st, release := s.v.acquire()
	defer release()

	inv, ok := st.investments[id]
	if !ok {
		return nil, investment.ErrInvestmentNotFound
	}
	return copyInvestment(inv), nil
}

func (s investmentStore) list(match func(*investment.Investment) bool) []*investment.Investment {
	st, release := s.v.acquire()
	defer release()

	var out []*investment.Investment
	for _, id := range st.invOrder {
		if inv := st.investments[id]; match(inv) {
			out = append(out, copyInvestment(inv))
		}
	}
	return out
}

func (s investmentStore) ListByUser(_ context.Context, userID uuid.UUID) ([]*investment.Investment, error) {
	return s.list(func(inv *investment.Investment) bool { return inv.UserID == userID }), nil
}

func (s investmentStore) ListByCommodityForUpdate(_ context.Context, commodityID uuid.UUID) ([]*investment.Investment, error) {
	return s.list(func(inv *investment.Investment) bool { return inv.CommodityID == commodityID }), nil
}

func (s investmentStore) MarkSettled(_ context.Context, id uuid.UUID, actualReturn decimal.Decimal, at time.Time) error {
	st, release := s.v.acquire()
	defer release()

	inv, ok := st.investments[id]
	if !ok || inv.Status != investment.StatusActive {
		return investment.ErrInvestmentNotFound.Explain("no active investment %s", id)
	}
	next := copyInvestment(inv)
	next.ActualReturn = &actualReturn
	next.Status = investment.StatusSettled
	next.SettledAt = &at
	st.investments[id] = next
	return nil
}
