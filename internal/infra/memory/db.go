// Package memory is an in-process implementation of every store port.
//
// Units of work are serialized by one mutex and run against a copy-on-write
// snapshot of the state: commit swaps the snapshot in, rollback drops it.
// Records are copied on the way in and out so callers never alias stored rows.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

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

type idemKeyID struct {
	userID uuid.UUID
	scope  string
	key    string
}

type payoutKey struct {
	commodityID uuid.UUID
	userID      uuid.UUID
}

type totals struct {
	debit  decimal.Decimal
	credit decimal.Decimal
}

type state struct {
	accounts     map[string]*ledger.Account
	accountKeys  map[uuid.UUID]string
	entries      []*ledger.Entry
	totals       map[uuid.UUID]totals
	users        map[uuid.UUID]*user.User
	emails       map[string]uuid.UUID
	commodities  map[uuid.UUID]*commodity.Commodity
	investments  map[uuid.UUID]*investment.Investment
	invOrder     []uuid.UUID
	transactions map[uuid.UUID]*transaction.Transaction
	txOrder      []uuid.UUID
	payouts      map[payoutKey]uuid.UUID
	idemKeys     map[idemKeyID]*idemkey.Key
	approvals    map[uuid.UUID]*adminreq.Request
	approvalSeq  []uuid.UUID
	audit        []*audit.Record
}

func newState() *state {
	return &state{
		accounts:     make(map[string]*ledger.Account),
		accountKeys:  make(map[uuid.UUID]string),
		totals:       make(map[uuid.UUID]totals),
		users:        make(map[uuid.UUID]*user.User),
		emails:       make(map[string]uuid.UUID),
		commodities:  make(map[uuid.UUID]*commodity.Commodity),
		investments:  make(map[uuid.UUID]*investment.Investment),
		transactions: make(map[uuid.UUID]*transaction.Transaction),
		payouts:      make(map[payoutKey]uuid.UUID),
		idemKeys:     make(map[idemKeyID]*idemkey.Key),
		approvals:    make(map[uuid.UUID]*adminreq.Request),
	}
}

// snapshot returns a copy that can be mutated without affecting s. Stored
// records are never modified in place, so copying the containers is enough.
func (s *state) snapshot() *state {
	return &state{
		accounts:     copyMap(s.accounts),
		accountKeys:  copyMap(s.accountKeys),
		entries:      s.entries[:len(s.entries):len(s.entries)],
		totals:       copyMap(s.totals),
		users:        copyMap(s.users),
		emails:       copyMap(s.emails),
		commodities:  copyMap(s.commodities),
		investments:  copyMap(s.investments),
		invOrder:     s.invOrder[:len(s.invOrder):len(s.invOrder)],
		transactions: copyMap(s.transactions),
		txOrder:      s.txOrder[:len(s.txOrder):len(s.txOrder)],
		payouts:      copyMap(s.payouts),
		idemKeys:     copyMap(s.idemKeys),
		approvals:    copyMap(s.approvals),
		approvalSeq:  s.approvalSeq[:len(s.approvalSeq):len(s.approvalSeq)],
		audit:        s.audit[:len(s.audit):len(s.audit)],
	}
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// DB holds the committed state
type DB struct {
	mu    sync.Mutex
	state *state
}

// New creates an empty database
func New() *DB {
	return &DB{state: newState()}
}

var _ uow.Runner = (*DB)(nil)

// WithinTx runs fn against a private snapshot and publishes it only when fn
// returns nil. Units of work never overlap.
func (db *DB) WithinTx(ctx context.Context, fn uow.Work) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	work := db.state.snapshot()
	if err := fn(ctx, &unitOfWork{v: view{st: work}}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	db.state = work
	return nil
}

// view reads and writes either a transaction's snapshot or, when db is set,
// the committed state under the lock for the duration of one call
type view struct {
	db *DB
	st *state
}

func (v view) acquire() (*state, func()) {
	if v.db == nil {
		return v.st, func() {}
	}
	v.db.mu.Lock()
	return v.db.state, v.db.mu.Unlock
}

type unitOfWork struct {
	v view
}

func (u *unitOfWork) Ledger() ledger.Store            { return ledgerStore{u.v} }
func (u *unitOfWork) Users() user.Store               { return userStore{u.v} }
func (u *unitOfWork) Commodities() commodity.Store    { return commodityStore{u.v} }
func (u *unitOfWork) Investments() investment.Store   { return investmentStore{u.v} }
func (u *unitOfWork) Transactions() transaction.Store { return transactionStore{u.v} }
func (u *unitOfWork) IdempotencyKeys() idemkey.Store  { return idemKeyStore{u.v} }
func (u *unitOfWork) Approvals() adminreq.Store       { return approvalStore{u.v} }
func (u *unitOfWork) Audit() audit.Sink               { return auditSink{u.v} }

// Stores outside a unit of work. Each call is atomic on its own. They must not
// be used from inside WithinTx.

func (db *DB) Ledger() ledger.Store            { return ledgerStore{view{db: db}} }
func (db *DB) Users() user.Store               { return userStore{view{db: db}} }
func (db *DB) Commodities() commodity.Store    { return commodityStore{view{db: db}} }
func (db *DB) Investments() investment.Store   { return investmentStore{view{db: db}} }
func (db *DB) Transactions() transaction.Store { return transactionStore{view{db: db}} }
func (db *DB) Approvals() adminreq.Store       { return approvalStore{view{db: db}} }
func (db *DB) Audit() audit.Sink               { return auditSink{view{db: db}} }
