package investing_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harvestline/backend/internal/app"
	"github.com/harvestline/backend/internal/infra/memory"
	"github.com/harvestline/backend/internal/platform/commodity"
	"github.com/harvestline/backend/internal/platform/user"
	"github.com/harvestline/backend/internal/settlement"
	"github.com/harvestline/backend/internal/uow"
	"github.com/harvestline/backend/testutil/fixture"
)

// lockLog records the row locks taken inside units of work
type lockLog struct {
	mu    sync.Mutex
	locks []string
}

func (l *lockLog) add(kind string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.locks = append(l.locks, kind)
}

func (l *lockLog) take() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.locks
	l.locks = nil
	return out
}

type loggedUsers struct {
	user.Store
	log *lockLog
}

func (s loggedUsers) GetForUpdate(ctx context.Context, id uuid.UUID) (*user.User, error) {
	s.log.add("user")
	return s.Store.GetForUpdate(ctx, id)
}

type loggedCommodities struct {
	commodity.Store
	log *lockLog
}

func (s loggedCommodities) GetForUpdate(ctx context.Context, id uuid.UUID) (*commodity.Commodity, error) {
	s.log.add("commodity")
	return s.Store.GetForUpdate(ctx, id)
}

type loggedUnit struct {
	uow.UnitOfWork
	log *lockLog
}

func (u loggedUnit) Users() user.Store { return loggedUsers{u.UnitOfWork.Users(), u.log} }

func (u loggedUnit) Commodities() commodity.Store {
	return loggedCommodities{u.UnitOfWork.Commodities(), u.log}
}

type loggedBackend struct {
	app.Backend
	log *lockLog
}

func (b loggedBackend) WithinTx(ctx context.Context, fn uow.Work) error {
	return b.Backend.WithinTx(ctx, func(ctx context.Context, tx uow.UnitOfWork) error {
		return fn(ctx, loggedUnit{tx, b.log})
	})
}

func TestLockOrder_CommodityBeforeUser(t *testing.T) {
	log := &lockLog{}
	f := fixture.NewWithBackend(t, loggedBackend{memory.New(), log}, app.Options{})
	admin, alice := f.Admin(), f.Investor()
	f.Fund(alice, "500")
	c := f.Commodity("1000")
	log.take()

	_, err := f.App.Investing.Invest(f.Ctx, input(f, alice, c.ID, "300"))
	require.NoError(t, err)
	assert.Equal(t, []string{"commodity", "user"}, log.take())

	// A forced distribution on a deal still funding takes the same order
	_, err = f.App.Settlement.DistributePayouts(f.Ctx, settlement.DistributeRequest{
		ActorID:     admin,
		CommodityID: c.ID,
		TotalPayout: f.Dollars("330"),
		Force:       true,
	})
	require.NoError(t, err)

	locks := log.take()
	require.NotEmpty(t, locks)
	assert.Equal(t, "commodity", locks[0])
	assert.Contains(t, locks, "user")
}
