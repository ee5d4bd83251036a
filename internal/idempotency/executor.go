// Package idempotency runs money-moving operations at most once per
// (user, scope, key) triple.
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/harvestline/backend/internal/platform/idemkey"
	"github.com/harvestline/backend/internal/uow"
	"github.com/harvestline/backend/pkg/logger"
)

// Outcome tells whether the operation ran or a stored response was returned
type Outcome string

const (
	OutcomeExecuted Outcome = "executed"
	OutcomeReplayed Outcome = "replayed"
)

const maxKeyLength = 255

// Request identifies one idempotent call. An empty Key disables deduplication.
type Request struct {
	UserID      uuid.UUID
	Scope       string
	Key         string
	RequestHash string
}

// Validate checks the key format
func (r Request) Validate() error {
	if r.Key == "" {
		return nil
	}
	if len(r.Key) > maxKeyLength {
		return ErrInvalidKey
	}
	for _, c := range r.Key {
		if !unicode.IsPrint(c) {
			return ErrInvalidKey
		}
	}
	if r.Scope == "" || r.RequestHash == "" {
		return ErrInvalidKey.Explain("idempotent requests need a scope and a request hash")
	}
	return nil
}

// CachedResponse is a completed response kept outside the database
type CachedResponse struct {
	RequestHash string          `json:"request_hash"`
	Response    json.RawMessage `json:"response"`
}

// ResponseCache is a read-through cache of completed responses. Misses return
// (nil, nil). The database stays the source of truth.
type ResponseCache interface {
	Get(ctx context.Context, req Request) (*CachedResponse, error)
	Set(ctx context.Context, req Request, resp CachedResponse) error
}

// Recorder receives outcome counts
type Recorder interface {
	Idempotency(scope, outcome string)
}

// Executor owns the unit-of-work runner used for idempotent operations
type Executor struct {
	runner      uow.Runner
	cache       ResponseCache
	recorder    Recorder
	logger      *logger.Logger
	maxAttempts int
	now         func() time.Time
}

// Option configures an Executor
type Option func(*Executor)

// WithCache adds a response cache
func WithCache(c ResponseCache) Option {
	return func(e *Executor) { e.cache = c }
}

// WithRecorder adds an outcome recorder
func WithRecorder(r Recorder) Option {
	return func(e *Executor) { e.recorder = r }
}

// NewExecutor creates an executor
func NewExecutor(runner uow.Runner, log *logger.Logger, opts ...Option) *Executor {
	e := &Executor{
		runner:      runner,
		logger:      logger.OrDiscard(log).WithComponent("idempotency"),
		maxAttempts: 3,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// errRaced signals that another request inserted the same key first
var errRaced = errors.New("idempotency key inserted concurrently")

// Do runs op at most once for req.
//
//  1. A COMPLETED row with the same request hash returns its stored response;
//     op is not called.
//  2. A row with a different request hash fails with ErrKeyReuse.
//  3. Otherwise an IN_PROGRESS row is written and op runs in the same unit of
//     work; the row becomes COMPLETED with op's response when it commits.
//
// Only successes are stored. A failed op rolls back with its key row, then the
// failure is recorded as FAILED in its own write; a FAILED key may be retried
// with the same payload. Losing the insert race restarts at step 1.
//
// The returned value is always decoded from the stored JSON, so a replay is
// indistinguishable from the first response.
func Do[T any](ctx context.Context, e *Executor, req Request, op func(ctx context.Context, tx uow.UnitOfWork) (T, error)) (T, Outcome, error) {
	var zero T

	if err := req.Validate(); err != nil {
		return zero, "", err
	}

	if req.Key == "" {
		var result T
		err := e.runner.WithinTx(ctx, func(ctx context.Context, tx uow.UnitOfWork) error {
			var err error
			result, err = op(ctx, tx)
			return err
		})
		if err != nil {
			return zero, "", err
		}
		return result, OutcomeExecuted, nil
	}

	ctx = context.WithValue(ctx, logger.IdempotencyKeyKey, req.Key)
	log := e.logger.WithContext(ctx).WithField("scope", req.Scope)

	if cached, ok := e.cached(ctx, req, log); ok {
		if cached.RequestHash != req.RequestHash {
			e.record(req.Scope, "conflict")
			return zero, "", ErrKeyReuse
		}
		var out T
		if err := json.Unmarshal(cached.Response, &out); err == nil {
			e.record(req.Scope, string(OutcomeReplayed))
			return out, OutcomeReplayed, nil
		}
		log.Warn("discarding undecodable cached response")
	}

	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		var (
			stored json.RawMessage
			replay bool
			opErr  error
		)

		err := e.runner.WithinTx(ctx, func(ctx context.Context, tx uow.UnitOfWork) error {
			keys := tx.IdempotencyKeys()

			row, err := keys.GetForUpdate(ctx, req.UserID, req.Scope, req.Key)
			switch {
			case errors.Is(err, idemkey.ErrNotFound):
				now := e.now().UTC()
				row = &idemkey.Key{
					ID:          uuid.New(),
					UserID:      req.UserID,
					Scope:       req.Scope,
					Key:         req.Key,
					RequestHash: req.RequestHash,
					Status:      idemkey.StatusInProgress,
					CreatedAt:   now,
					UpdatedAt:   now,
				}
				if err := keys.Insert(ctx, row); err != nil {
					if errors.Is(err, idemkey.ErrDuplicate) {
						return errRaced
					}
					return fmt.Errorf("failed to insert idempotency key: %w", err)
				}
			case err != nil:
				return fmt.Errorf("failed to look up idempotency key: %w", err)
			default:
				if row.RequestHash != req.RequestHash {
					return ErrKeyReuse
				}
				switch row.Status {
				case idemkey.StatusCompleted:
					stored, replay = row.Response, true
					return nil
				case idemkey.StatusInProgress:
					return ErrRequestInProgress
				case idemkey.StatusFailed:
					row.Status = idemkey.StatusInProgress
					row.Error = ""
					row.UpdatedAt = e.now().UTC()
					if err := keys.Update(ctx, row); err != nil {
						return fmt.Errorf("failed to reopen idempotency key: %w", err)
					}
				}
			}

			result, err := op(ctx, tx)
			if err != nil {
				opErr = err
				return err
			}

			body, err := json.Marshal(result)
			if err != nil {
				return fmt.Errorf("failed to encode idempotent response: %w", err)
			}
			row.Status = idemkey.StatusCompleted
			row.Response = body
			row.UpdatedAt = e.now().UTC()
			if err := keys.Update(ctx, row); err != nil {
				return fmt.Errorf("failed to complete idempotency key: %w", err)
			}
			stored = body
			return nil
		})

		switch {
		case errors.Is(err, errRaced):
			log.Debug("lost idempotency key insert race, retrying", "attempt", attempt)
			continue
		case errors.Is(err, ErrKeyReuse):
			e.record(req.Scope, "conflict")
			return zero, "", err
		case opErr != nil:
			e.record(req.Scope, "failed")
			e.recordFailure(ctx, req, opErr, log)
			return zero, "", err
		case err != nil:
			return zero, "", err
		}

		var out T
		if err := json.Unmarshal(stored, &out); err != nil {
			return zero, "", fmt.Errorf("failed to decode idempotent response: %w", err)
		}

		outcome := OutcomeExecuted
		if replay {
			outcome = OutcomeReplayed
			log.Info("replayed idempotent response")
		}
		e.record(req.Scope, string(outcome))
		e.fill(ctx, req, stored, log)
		return out, outcome, nil
	}

	return zero, "", ErrRequestInProgress.Explain("idempotency key contended for %d attempts", e.maxAttempts)
}

// recordFailure marks the key FAILED after its unit of work rolled back
func (e *Executor) recordFailure(ctx context.Context, req Request, cause error, log *logger.Logger) {
	err := e.runner.WithinTx(ctx, func(ctx context.Context, tx uow.UnitOfWork) error {
		keys := tx.IdempotencyKeys()
		now := e.now().UTC()

		row, err := keys.GetForUpdate(ctx, req.UserID, req.Scope, req.Key)
		switch {
		case errors.Is(err, idemkey.ErrNotFound):
			return keys.Insert(ctx, &idemkey.Key{
				ID:          uuid.New(),
				UserID:      req.UserID,
				Scope:       req.Scope,
				Key:         req.Key,
				RequestHash: req.RequestHash,
				Status:      idemkey.StatusFailed,
				Error:       cause.Error(),
				CreatedAt:   now,
				UpdatedAt:   now,
			})
		case err != nil:
			return err
		case row.Status == idemkey.StatusCompleted:
			// a concurrent retry succeeded meanwhile
			return nil
		default:
			row.Status = idemkey.StatusFailed
			row.Error = cause.Error()
			row.UpdatedAt = now
			return keys.Update(ctx, row)
		}
	})
	if err != nil {
		log.WithError(err).Warn("failed to record idempotency failure")
	}
}

func (e *Executor) cached(ctx context.Context, req Request, log *logger.Logger) (*CachedResponse, bool) {
	if e.cache == nil {
		return nil, false
	}
	resp, err := e.cache.Get(ctx, req)
	if err != nil {
		log.WithError(err).Warn("idempotency cache lookup failed")
		return nil, false
	}
	return resp, resp != nil
}

func (e *Executor) fill(ctx context.Context, req Request, body json.RawMessage, log *logger.Logger) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Set(ctx, req, CachedResponse{RequestHash: req.RequestHash, Response: body}); err != nil {
		log.WithError(err).Warn("idempotency cache fill failed")
	}
}

func (e *Executor) record(scope, outcome string) {
	if e.recorder != nil {
		e.recorder.Idempotency(scope, outcome)
	}
}
