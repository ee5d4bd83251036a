package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harvestline/backend/internal/platform/commodity"
)

type commodityStore struct{ v view }

func copyCommodity(c *commodity.Commodity) *commodity.Commodity {
	cp := *c
	return &cp
}

func (s commodityStore) Create(_ context.Context, c *commodity.Commodity) error {
	st, release := s.v.acquire()
	defer release()

	st.commodities[c.ID] = copyCommodity(c)
	return nil
}

func (s commodityStore) GetByID(_ context.Context, id uuid.UUID) (*commodity.Commodity, error) {
	st, release := s.v.acquire()
	defer release()

	c, ok := st.commodities[id]
	if !ok {
		return nil, commodity.ErrCommodityNotFound
	}
	return copyCommodity(c), nil
}

func (s commodityStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*commodity.Commodity, error) {
	return s.GetByID(ctx, id)
}

func (s commodityStore) List(_ context.Context, filter commodity.Filter) ([]*commodity.Commodity, error) {
	st, release := s.v.acquire()
	defer release()

	out := make([]*commodity.Commodity, 0, len(st.commodities))
	for _, c := range st.commodities {
		if filter.Status != nil && c.Status != *filter.Status {
			continue
		}
		out = append(out, copyCommodity(c))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return paginate(out, filter.Offset, filter.Limit), nil
}

func (s commodityStore) UpdateFunding(_ context.Context, id uuid.UUID, currentAmount decimal.Decimal, status commodity.Status) error {
	st, release := s.v.acquire()
	defer release()

	c, ok := st.commodities[id]
	if !ok {
		return commodity.ErrCommodityNotFound
	}
	next := copyCommodity(c)
	next.CurrentAmount = currentAmount
	next.Status = status
	next.UpdatedAt = time.Now().UTC()
	st.commodities[id] = next
	return nil
}

func (s commodityStore) CompareAndSetStatus(_ context.Context, id uuid.UUID, from, to commodity.Status) (bool, error) {
	st, release := s.v.acquire()
	defer release()

	c, ok := st.commodities[id]
	if !ok {
		return false, commodity.ErrCommodityNotFound
	}
	if c.Status != from {
		return false, nil
	}
	next := copyCommodity(c)
	next.Status = to
	next.UpdatedAt = time.Now().UTC()
	st.commodities[id] = next
	return true, nil
}
