package idempotency_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harvestline/backend/internal/idempotency"
	"github.com/harvestline/backend/internal/infra/memory"
	"github.com/harvestline/backend/internal/platform/idemkey"
	apperrors "github.com/harvestline/backend/internal/shared/errors"
	"github.com/harvestline/backend/internal/uow"
)

type depositResult struct {
	TransactionID uuid.UUID       `json:"transaction_id"`
	NewBalance    decimal.Decimal `json:"new_balance"`
}

var errInsufficient = apperrors.DomainGuard("INSUFFICIENT_BALANCE", "insufficient wallet balance")

func request(t *testing.T, userID uuid.UUID, key string, payload any) idempotency.Request {
	t.Helper()
	hash, err := idempotency.HashRequest(payload)
	require.NoError(t, err)
	return idempotency.Request{UserID: userID, Scope: "wallet.deposit", Key: key, RequestHash: hash}
}

// countingOp returns a fresh result on every call and counts invocations
func countingOp(calls *int32) func(context.Context, uow.UnitOfWork) (depositResult, error) {
	return func(context.Context, uow.UnitOfWork) (depositResult, error) {
		n := atomic.AddInt32(calls, 1)
		return depositResult{TransactionID: uuid.New(), NewBalance: decimal.NewFromInt(int64(n) * 100)}, nil
	}
}

func TestDo_ReplaysCompletedResponse(t *testing.T) {
	ctx := context.Background()
	exec := idempotency.NewExecutor(memory.New(), nil)
	req := request(t, uuid.New(), "key-1", map[string]string{"amount": "100"})

	var calls int32
	first, outcome, err := idempotency.Do(ctx, exec, req, countingOp(&calls))
	require.NoError(t, err)
	assert.Equal(t, idempotency.OutcomeExecuted, outcome)

	second, outcome, err := idempotency.Do(ctx, exec, req, countingOp(&calls))
	require.NoError(t, err)
	assert.Equal(t, idempotency.OutcomeReplayed, outcome)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), calls)
}

func TestDo_KeyReuseWithDifferentPayload(t *testing.T) {
	ctx := context.Background()
	exec := idempotency.NewExecutor(memory.New(), nil)
	userID := uuid.New()

	var calls int32
	_, _, err := idempotency.Do(ctx, exec, request(t, userID, "key-1", map[string]string{"amount": "100"}), countingOp(&calls))
	require.NoError(t, err)

	_, _, err = idempotency.Do(ctx, exec, request(t, userID, "key-1", map[string]string{"amount": "200"}), countingOp(&calls))
	assert.ErrorIs(t, err, idempotency.ErrKeyReuse)
	assert.Equal(t, apperrors.KindIdempotencyConflict, apperrors.KindOf(err))
	assert.Equal(t, int32(1), calls)
}

func TestDo_KeysAreScopedPerUser(t *testing.T) {
	ctx := context.Background()
	exec := idempotency.NewExecutor(memory.New(), nil)

	var calls int32
	_, _, err := idempotency.Do(ctx, exec, request(t, uuid.New(), "shared", "a"), countingOp(&calls))
	require.NoError(t, err)
	_, outcome, err := idempotency.Do(ctx, exec, request(t, uuid.New(), "shared", "a"), countingOp(&calls))
	require.NoError(t, err)

	assert.Equal(t, idempotency.OutcomeExecuted, outcome)
	assert.Equal(t, int32(2), calls)
}

func TestDo_FailureIsRetryable(t *testing.T) {
	ctx := context.Background()
	db := memory.New()
	exec := idempotency.NewExecutor(db, nil)
	req := request(t, uuid.New(), "key-1", "withdraw 50")

	_, _, err := idempotency.Do(ctx, exec, req, func(context.Context, uow.UnitOfWork) (depositResult, error) {
		return depositResult{}, errInsufficient
	})
	require.ErrorIs(t, err, errInsufficient)

	err = db.WithinTx(ctx, func(ctx context.Context, tx uow.UnitOfWork) error {
		row, err := tx.IdempotencyKeys().GetForUpdate(ctx, req.UserID, req.Scope, req.Key)
		require.NoError(t, err)
		assert.Equal(t, idemkey.StatusFailed, row.Status)
		assert.Contains(t, row.Error, "insufficient")
		return nil
	})
	require.NoError(t, err)

	var calls int32
	_, outcome, err := idempotency.Do(ctx, exec, req, countingOp(&calls))
	require.NoError(t, err)
	assert.Equal(t, idempotency.OutcomeExecuted, outcome)
	assert.Equal(t, int32(1), calls)
}

func TestDo_FailureRollsBackOperationWrites(t *testing.T) {
	ctx := context.Background()
	db := memory.New()
	exec := idempotency.NewExecutor(db, nil)
	req := request(t, uuid.New(), "key-1", "x")

	probeUser := uuid.New()

	_, _, err := idempotency.Do(ctx, exec, req, func(ctx context.Context, tx uow.UnitOfWork) (depositResult, error) {
		probe := &idemkey.Key{ID: uuid.New(), UserID: probeUser, Scope: "probe", Key: "probe", RequestHash: "h", Status: idemkey.StatusCompleted}
		require.NoError(t, tx.IdempotencyKeys().Insert(ctx, probe))
		return depositResult{}, errInsufficient
	})
	require.Error(t, err)

	err = db.WithinTx(ctx, func(ctx context.Context, tx uow.UnitOfWork) error {
		_, err := tx.IdempotencyKeys().GetForUpdate(ctx, probeUser, "probe", "probe")
		assert.ErrorIs(t, err, idemkey.ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestDo_WithoutKeyAlwaysExecutes(t *testing.T) {
	ctx := context.Background()
	exec := idempotency.NewExecutor(memory.New(), nil)
	req := idempotency.Request{UserID: uuid.New(), Scope: "wallet.deposit"}

	var calls int32
	for i := 0; i < 3; i++ {
		_, outcome, err := idempotency.Do(ctx, exec, req, countingOp(&calls))
		require.NoError(t, err)
		assert.Equal(t, idempotency.OutcomeExecuted, outcome)
	}
	assert.Equal(t, int32(3), calls)
}

func TestDo_InvalidKey(t *testing.T) {
	exec := idempotency.NewExecutor(memory.New(), nil)
	req := idempotency.Request{UserID: uuid.New(), Scope: "s", Key: "bad\nkey", RequestHash: "h"}

	var calls int32
	_, _, err := idempotency.Do(context.Background(), exec, req, countingOp(&calls))
	assert.ErrorIs(t, err, idempotency.ErrInvalidKey)
	assert.Zero(t, calls)
}

func TestDo_ConcurrentSameKeyExecutesOnce(t *testing.T) {
	ctx := context.Background()
	exec := idempotency.NewExecutor(memory.New(), nil)
	req := request(t, uuid.New(), "key-1", "deposit 100")

	var calls int32
	const workers = 16
	results := make([]depositResult, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _, errs[i] = idempotency.Do(ctx, exec, req, countingOp(&calls))
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0], results[i])
	}
	assert.Equal(t, int32(1), calls)
}

// racingRunner makes the first key insert fail as if another request had
// committed the same key in between lookup and insert
type racingRunner struct {
	uow.Runner
	raced atomic.Bool
}

func (r *racingRunner) WithinTx(ctx context.Context, fn uow.Work) error {
	return r.Runner.WithinTx(ctx, func(ctx context.Context, tx uow.UnitOfWork) error {
		return fn(ctx, racingUoW{UnitOfWork: tx, runner: r})
	})
}

type racingUoW struct {
	uow.UnitOfWork
	runner *racingRunner
}

func (u racingUoW) IdempotencyKeys() idemkey.Store {
	return racingKeys{Store: u.UnitOfWork.IdempotencyKeys(), runner: u.runner}
}

type racingKeys struct {
	idemkey.Store
	runner *racingRunner
}

func (k racingKeys) Insert(ctx context.Context, key *idemkey.Key) error {
	if k.runner.raced.CompareAndSwap(false, true) {
		return idemkey.ErrDuplicate
	}
	return k.Store.Insert(ctx, key)
}

func TestDo_RetriesAfterLosingInsertRace(t *testing.T) {
	runner := &racingRunner{Runner: memory.New()}
	exec := idempotency.NewExecutor(runner, nil)

	var calls int32
	_, outcome, err := idempotency.Do(context.Background(), exec, request(t, uuid.New(), "k", "p"), countingOp(&calls))
	require.NoError(t, err)

	assert.True(t, runner.raced.Load())
	assert.Equal(t, idempotency.OutcomeExecuted, outcome)
	assert.Equal(t, int32(1), calls)
}

type mapCache struct {
	mu      sync.Mutex
	entries map[string]idempotency.CachedResponse
}

func (c *mapCache) id(req idempotency.Request) string {
	return req.UserID.String() + "|" + req.Scope + "|" + req.Key
}

func (c *mapCache) Get(_ context.Context, req idempotency.Request) (*idempotency.CachedResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if resp, ok := c.entries[c.id(req)]; ok {
		return &resp, nil
	}
	return nil, nil
}

func (c *mapCache) Set(_ context.Context, req idempotency.Request, resp idempotency.CachedResponse) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = make(map[string]idempotency.CachedResponse)
	}
	c.entries[c.id(req)] = resp
	return nil
}

func TestDo_ResponseCache(t *testing.T) {
	ctx := context.Background()
	cache := &mapCache{}
	exec := idempotency.NewExecutor(memory.New(), nil, idempotency.WithCache(cache))
	userID := uuid.New()
	req := request(t, userID, "key-1", "p1")

	var calls int32
	first, _, err := idempotency.Do(ctx, exec, req, countingOp(&calls))
	require.NoError(t, err)
	require.Len(t, cache.entries, 1)

	second, outcome, err := idempotency.Do(ctx, exec, req, countingOp(&calls))
	require.NoError(t, err)
	assert.Equal(t, idempotency.OutcomeReplayed, outcome)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), calls)

	_, _, err = idempotency.Do(ctx, exec, request(t, userID, "key-1", "p2"), countingOp(&calls))
	assert.ErrorIs(t, err, idempotency.ErrKeyReuse)
}

func TestHashRequest(t *testing.T) {
	type payload struct {
		Amount string `json:"amount"`
		Target string `json:"target"`
	}

	a, err := idempotency.HashRequest(payload{Amount: "1", Target: "x"})
	require.NoError(t, err)
	b, err := idempotency.HashRequest(payload{Amount: "1", Target: "x"})
	require.NoError(t, err)
	c, err := idempotency.HashRequest(payload{Amount: "2", Target: "x"})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}
