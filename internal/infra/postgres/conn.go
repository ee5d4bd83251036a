// Package postgres implements every store port on PostgreSQL through pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/harvestline/backend/internal/ledger"
	"github.com/harvestline/backend/internal/platform/adminreq"
	"github.com/harvestline/backend/internal/platform/audit"
	"github.com/harvestline/backend/internal/platform/commodity"
	"github.com/harvestline/backend/internal/platform/idemkey"
	"github.com/harvestline/backend/internal/platform/investment"
	"github.com/harvestline/backend/internal/platform/transaction"
	"github.com/harvestline/backend/internal/platform/user"
	"github.com/harvestline/backend/internal/uow"
)

// DB wraps a pgxpool connection pool
type DB struct {
	*pgxpool.Pool
}

// Config holds database configuration
type Config struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// NewPool creates a new database connection pool
func NewPool(ctx context.Context, cfg Config) (*DB, error) {
	config, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	config.MaxConns = 25
	if cfg.MaxConns > 0 {
		config.MaxConns = cfg.MaxConns
	}
	config.MinConns = 2
	if cfg.MinConns > 0 {
		config.MinConns = cfg.MinConns
	}
	config.MaxConnLifetime = time.Hour
	if cfg.MaxConnLifetime > 0 {
		config.MaxConnLifetime = cfg.MaxConnLifetime
	}
	config.MaxConnIdleTime = 30 * time.Minute
	if cfg.MaxConnIdleTime > 0 {
		config.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// NewDB wraps an existing pool
func NewDB(pool *pgxpool.Pool) *DB {
	return &DB{Pool: pool}
}

// Close closes the database connection pool
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// Health checks the database connection health
func (db *DB) Health(ctx context.Context) error {
	return db.Ping(ctx)
}

var _ uow.Runner = (*DB)(nil)

// WithinTx runs fn in one READ COMMITTED transaction. Row locks taken by the
// stores' GetForUpdate methods serialize conflicting units of work; unique
// indexes catch the rest.
func (db *DB) WithinTx(ctx context.Context, fn uow.Work) (err error) {
	tx, err := db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				err = fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
			}
		}
	}()

	if err = fn(ctx, &unitOfWork{q: tx}); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// querier is satisfied by both the pool and an open transaction
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type unitOfWork struct {
	q querier
}

func (u *unitOfWork) Ledger() ledger.Store            { return &LedgerRepository{q: u.q} }
func (u *unitOfWork) Users() user.Store               { return &UserRepository{q: u.q} }
func (u *unitOfWork) Commodities() commodity.Store    { return &CommodityRepository{q: u.q} }
func (u *unitOfWork) Investments() investment.Store   { return &InvestmentRepository{q: u.q} }
func (u *unitOfWork) Transactions() transaction.Store { return &TransactionRepository{q: u.q} }
func (u *unitOfWork) IdempotencyKeys() idemkey.Store  { return &IdempotencyKeyRepository{q: u.q} }
func (u *unitOfWork) Approvals() adminreq.Store       { return &ApprovalRepository{q: u.q} }
func (u *unitOfWork) Audit() audit.Sink               { return &AuditRepository{q: u.q} }

// Repositories on the pool; each statement commits on its own. Row locks
// taken through them are released immediately.

func (db *DB) Ledger() ledger.Store            { return &LedgerRepository{q: db.Pool} }
func (db *DB) Users() user.Store               { return &UserRepository{q: db.Pool} }
func (db *DB) Commodities() commodity.Store    { return &CommodityRepository{q: db.Pool} }
func (db *DB) Investments() investment.Store   { return &InvestmentRepository{q: db.Pool} }
func (db *DB) Transactions() transaction.Store { return &TransactionRepository{q: db.Pool} }
func (db *DB) Approvals() adminreq.Store       { return &ApprovalRepository{q: db.Pool} }
func (db *DB) Audit() audit.Sink               { return &AuditRepository{q: db.Pool} }

// uniqueViolation reports whether err is a unique constraint violation,
// optionally on the named constraint or index
func uniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
