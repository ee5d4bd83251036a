// Package uow defines the unit of work: the atomic boundary inside which every
// read and write of one business operation happens.
package uow

import (
	"context"

	"github.com/harvestline/backend/internal/ledger"
	"github.com/harvestline/backend/internal/platform/adminreq"
	"github.com/harvestline/backend/internal/platform/audit"
	"github.com/harvestline/backend/internal/platform/commodity"
	"github.com/harvestline/backend/internal/platform/idemkey"
	"github.com/harvestline/backend/internal/platform/investment"
	"github.com/harvestline/backend/internal/platform/transaction"
	"github.com/harvestline/backend/internal/platform/user"
)

// UnitOfWork exposes stores bound to one open transaction. A UnitOfWork is
// only valid inside the function passed to Runner.WithinTx.
type UnitOfWork interface {
	Ledger() ledger.Store
	Users() user.Store
	Commodities() commodity.Store
	Investments() investment.Store
	Transactions() transaction.Store
	IdempotencyKeys() idemkey.Store
	Approvals() adminreq.Store
	Audit() audit.Sink
}

// Work is the body of a unit of work
type Work func(ctx context.Context, tx UnitOfWork) error

// Runner opens units of work. WithinTx commits when fn returns nil and rolls
// back every write made through tx otherwise.
type Runner interface {
	WithinTx(ctx context.Context, fn Work) error
}
