package ledger

import (
	"context"

	"github.com/google/uuid"
)

// Store defines ledger persistence. Implementations bound to a unit of work
// run every call inside that unit's transaction.
type Store interface {
	// UpsertAccount inserts the account or returns the existing row for its key,
	// atomically. Existing rows are never modified.
	UpsertAccount(ctx context.Context, account *Account) (*Account, error)
	GetAccountByKey(ctx context.Context, key string) (*Account, error)

	// InsertEntry persists an entry and all of its lines. Entries are immutable:
	// there is no update or delete.
	InsertEntry(ctx context.Context, entry *Entry) error
	GetEntry(ctx context.Context, id uuid.UUID) (*Entry, error)
	ListEntries(ctx context.Context, filter EntryFilter) ([]*Entry, error)

	// Balance operations
	AccountBalance(ctx context.Context, accountID uuid.UUID) (*AccountBalance, error)
	AccountBalances(ctx context.Context) ([]*AccountBalance, error)
}
