// Package app wires the ledger core services on top of a storage backend.
package app

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/harvestline/backend/internal/approval"
	"github.com/harvestline/backend/internal/idempotency"
	"github.com/harvestline/backend/internal/infra/memory"
	"github.com/harvestline/backend/internal/infra/metrics"
	"github.com/harvestline/backend/internal/ledger"
	"github.com/harvestline/backend/internal/module/investing"
	"github.com/harvestline/backend/internal/module/wallet"
	"github.com/harvestline/backend/internal/platform/adminreq"
	"github.com/harvestline/backend/internal/platform/audit"
	"github.com/harvestline/backend/internal/platform/commodity"
	"github.com/harvestline/backend/internal/platform/investment"
	"github.com/harvestline/backend/internal/platform/transaction"
	"github.com/harvestline/backend/internal/platform/user"
	"github.com/harvestline/backend/internal/settlement"
	"github.com/harvestline/backend/internal/uow"
	"github.com/harvestline/backend/pkg/logger"
)

// Backend is a storage driver: a unit-of-work runner plus stores usable
// outside a unit of work
type Backend interface {
	uow.Runner
	Ledger() ledger.Store
	Users() user.Store
	Commodities() commodity.Store
	Investments() investment.Store
	Transactions() transaction.Store
	Approvals() adminreq.Store
	Audit() audit.Sink
}

// Options configure New. Zero thresholds fall back to the defaults.
type Options struct {
	WalletAdjustmentThreshold decimal.Decimal
	PayoutThreshold           decimal.Decimal
	Cache                     idempotency.ResponseCache
	Metrics                   *metrics.Recorder
	Logger                    *logger.Logger
}

// Default approval thresholds in USD
var (
	DefaultWalletAdjustmentThreshold = decimal.NewFromInt(10000)
	DefaultPayoutThreshold           = decimal.NewFromInt(100000)
)

// Application holds the wired services
type Application struct {
	Backend     Backend
	Metrics     *metrics.Recorder
	Users       *user.Service
	Commodities *commodity.Service
	Ledger      *ledger.Service
	Executor    *idempotency.Executor
	Approvals   *approval.Gate
	Wallet      *wallet.Service
	Investing   *investing.Service
	Settlement  *settlement.Engine
}

// New builds an application on backend. A nil backend uses a fresh
// in-memory store.
func New(backend Backend, opts Options) (*Application, error) {
	if backend == nil {
		backend = memory.New()
	}
	if opts.WalletAdjustmentThreshold.IsZero() {
		opts.WalletAdjustmentThreshold = DefaultWalletAdjustmentThreshold
	}
	if opts.PayoutThreshold.IsZero() {
		opts.PayoutThreshold = DefaultPayoutThreshold
	}
	log := logger.OrDiscard(opts.Logger)
	rec := opts.Metrics

	users := user.NewService(backend.Users(), log)

	execOpts := []idempotency.Option{idempotency.WithRecorder(rec)}
	if opts.Cache != nil {
		execOpts = append(execOpts, idempotency.WithCache(opts.Cache))
	}
	exec := idempotency.NewExecutor(backend, log, execOpts...)

	writer := ledger.NewWriter(ledger.NewRegistry(), rec)
	gate := approval.NewGate(backend, backend.Approvals(), approval.NewRegistry(), rec, log)

	walletSvc, err := wallet.NewService(exec, gate, writer, opts.WalletAdjustmentThreshold, rec, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create wallet service: %w", err)
	}
	engine, err := settlement.NewEngine(exec, gate, writer, backend.Transactions(), opts.PayoutThreshold, rec, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create settlement engine: %w", err)
	}

	return &Application{
		Backend:     backend,
		Metrics:     rec,
		Users:       users,
		Commodities: commodity.NewService(backend.Commodities(), log),
		Ledger:      ledger.NewService(backend.Ledger(), users),
		Executor:    exec,
		Approvals:   gate,
		Wallet:      walletSvc,
		Investing:   investing.NewService(exec, writer, backend.Investments(), rec, log),
		Settlement:  engine,
	}, nil
}
