package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harvestline/backend/pkg/money"
)

// Posting is a line to be written against an account that may not exist yet
type Posting struct {
	Account AccountSpec
	Debit   decimal.Decimal
	Credit  decimal.Decimal
}

// Debit builds a debit posting
func Debit(account AccountSpec, amount decimal.Decimal) Posting {
	return Posting{Account: account, Debit: amount, Credit: decimal.Zero}
}

// Credit builds a credit posting
func Credit(account AccountSpec, amount decimal.Decimal) Posting {
	return Posting{Account: account, Debit: decimal.Zero, Credit: amount}
}

// EntryMeta carries the descriptive fields of an entry
type EntryMeta struct {
	Type          EntryType
	Description   string
	UserID        *uuid.UUID
	CommodityID   *uuid.UUID
	TransactionID *uuid.UUID
	Metadata      Metadata
}

// EntryObserver is notified after an entry is handed to the store
type EntryObserver interface {
	EntryWritten(entryType string)
}

// Writer creates balanced entries. It never updates or deletes an entry.
type Writer struct {
	registry *Registry
	observer EntryObserver
	now      func() time.Time
}

// NewWriter creates a writer; observer may be nil
func NewWriter(registry *Registry, observer EntryObserver) *Writer {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Writer{
		registry: registry,
		observer: observer,
		now:      time.Now,
	}
}

// Write validates postings, resolves their accounts and persists one entry
// with one line per posting. store must belong to the caller's unit of work so
// the entry commits or rolls back with the caller's other mutations.
func (w *Writer) Write(ctx context.Context, store Store, meta EntryMeta, postings []Posting) (*Entry, error) {
	if err := Check(meta, postings); err != nil {
		return nil, err
	}

	accounts, err := w.resolveAll(ctx, store, postings)
	if err != nil {
		return nil, err
	}

	entry := &Entry{
		ID:            uuid.New(),
		Type:          meta.Type,
		Description:   meta.Description,
		Currency:      money.Currency,
		UserID:        meta.UserID,
		CommodityID:   meta.CommodityID,
		TransactionID: meta.TransactionID,
		Metadata:      meta.Metadata,
		CreatedAt:     w.now().UTC(),
		Lines:         make([]*Line, 0, len(postings)),
	}
	for _, p := range postings {
		entry.Lines = append(entry.Lines, &Line{
			EntryID:   entry.ID,
			AccountID: accounts[p.Account.Key].ID,
			Debit:     p.Debit,
			Credit:    p.Credit,
		})
	}

	// Re-check on the built entry; it is what gets persisted
	if !entry.IsBalanced() {
		return nil, ErrUnbalancedEntry
	}

	if err := store.InsertEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to insert ledger entry: %w", err)
	}

	if w.observer != nil {
		w.observer.EntryWritten(string(entry.Type))
	}

	return entry, nil
}

// Check validates an entry without touching storage.
//
// Rules:
//   - at least one posting
//   - debit and credit are non-negative, whole cents, and exactly one is non-zero
//   - Σdebit == Σcredit, compared exactly
//   - entry type is known and its metadata carries the fields the type requires
func Check(meta EntryMeta, postings []Posting) error {
	if !meta.Type.IsValid() {
		return ErrInvalidEntryType.Explain("invalid entry type %q", meta.Type)
	}
	if err := meta.Metadata.Validate(meta.Type); err != nil {
		return err
	}
	if len(postings) == 0 {
		return ErrEmptyEntry
	}

	debit, credit := decimal.Zero, decimal.Zero
	for i, p := range postings {
		if err := checkPosting(p); err != nil {
			return ErrInvalidLine.Explain("line %d (%s): %v", i, p.Account.Key, err)
		}
		debit = debit.Add(p.Debit)
		credit = credit.Add(p.Credit)
	}

	if !debit.Equal(credit) {
		return ErrUnbalancedEntry.Explain("debits %s != credits %s", debit.String(), credit.String())
	}

	return nil
}

func checkPosting(p Posting) error {
	if p.Account.Key == "" {
		return fmt.Errorf("missing account")
	}
	if p.Debit.IsNegative() || p.Credit.IsNegative() {
		return fmt.Errorf("amounts must be non-negative")
	}
	if p.Debit.IsZero() == p.Credit.IsZero() {
		return fmt.Errorf("exactly one of debit and credit must be non-zero")
	}
	if err := money.ValidateUSD(p.Debit); err != nil {
		return err
	}
	return money.ValidateUSD(p.Credit)
}

// resolveAll resolves each distinct account once, in key order, so concurrent
// writers touching the same accounts lock them in the same sequence
func (w *Writer) resolveAll(ctx context.Context, store Store, postings []Posting) (map[string]*Account, error) {
	specs := make(map[string]AccountSpec, len(postings))
	for _, p := range postings {
		if prev, ok := specs[p.Account.Key]; ok && prev.Type != p.Account.Type {
			return nil, ErrAccountConflict.Explain("account %s posted with types %s and %s", p.Account.Key, prev.Type, p.Account.Type)
		}
		specs[p.Account.Key] = p.Account
	}

	keys := make([]string, 0, len(specs))
	for k := range specs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	accounts := make(map[string]*Account, len(keys))
	for _, k := range keys {
		account, err := w.registry.Resolve(ctx, store, specs[k])
		if err != nil {
			return nil, err
		}
		accounts[k] = account
	}

	return accounts, nil
}
