package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/harvestline/backend/internal/ledger"
)

// LedgerRepository implements ledger.Store using PostgreSQL
type LedgerRepository struct {
	q querier
}

const accountColumns = `id, key, name, type, currency, owner_user_id, owner_commodity_id, created_at`

func scanAccount(row pgx.Row) (*ledger.Account, error) {
	var a ledger.Account
	err := row.Scan(
		&a.ID,
		&a.Key,
		&a.Name,
		&a.Type,
		&a.Currency,
		&a.OwnerUserID,
		&a.OwnerCommodityID,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// UpsertAccount inserts the account or returns the row already bound to its key.
// The no-op update makes RETURNING yield the existing row on conflict.
func (r *LedgerRepository) UpsertAccount(ctx context.Context, account *ledger.Account) (*ledger.Account, error) {
	query := `
		INSERT INTO ledger_accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (key) DO UPDATE SET key = EXCLUDED.key
		RETURNING ` + accountColumns

	a, err := scanAccount(r.q.QueryRow(ctx, query,
		account.ID,
		account.Key,
		account.Name,
		string(account.Type),
		account.Currency,
		account.OwnerUserID,
		account.OwnerCommodityID,
		account.CreatedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert account %s: %w", account.Key, err)
	}
	return a, nil
}

// GetAccountByKey retrieves an account by its derived key
func (r *LedgerRepository) GetAccountByKey(ctx context.Context, key string) (*ledger.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM ledger_accounts WHERE key = $1`

	a, err := scanAccount(r.q.QueryRow(ctx, query, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return a, nil
}

// InsertEntry inserts the entry header and its lines in one batch
func (r *LedgerRepository) InsertEntry(ctx context.Context, entry *ledger.Entry) error {
	metadataJSON, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	batch := &pgx.Batch{}
	batch.Queue(`
		INSERT INTO ledger_entries (id, type, description, currency, user_id, commodity_id, transaction_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.ID,
		string(entry.Type),
		entry.Description,
		entry.Currency,
		entry.UserID,
		entry.CommodityID,
		entry.TransactionID,
		metadataJSON,
		entry.CreatedAt,
	)
	for i, line := range entry.Lines {
		batch.Queue(`
			INSERT INTO ledger_lines (entry_id, line_no, account_id, debit, credit)
			VALUES ($1, $2, $3, $4, $5)`,
			entry.ID,
			i+1,
			line.AccountID,
			line.Debit,
			line.Credit,
		)
	}

	br := r.q.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("failed to insert entry %s: %w", entry.ID, err)
		}
	}
	return br.Close()
}

const entryColumns = `id, type, description, currency, user_id, commodity_id, transaction_id, metadata, created_at`

func scanEntry(row pgx.Row) (*ledger.Entry, error) {
	var e ledger.Entry
	var metadataJSON []byte
	err := row.Scan(
		&e.ID,
		&e.Type,
		&e.Description,
		&e.Currency,
		&e.UserID,
		&e.CommodityID,
		&e.TransactionID,
		&metadataJSON,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &e.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	return &e, nil
}

// GetEntry retrieves an entry with its lines
func (r *LedgerRepository) GetEntry(ctx context.Context, id uuid.UUID) (*ledger.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE id = $1`

	e, err := scanEntry(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}
	if err := r.loadLines(ctx, []*ledger.Entry{e}); err != nil {
		return nil, err
	}
	return e, nil
}

// ListEntries returns entries newest first
func (r *LedgerRepository) ListEntries(ctx context.Context, filter ledger.EntryFilter) ([]*ledger.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE 1=1`
	args := []any{}

	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		query += fmt.Sprintf(" AND user_id = $%d", len(args))
	}
	if filter.CommodityID != nil {
		args = append(args, *filter.CommodityID)
		query += fmt.Sprintf(" AND commodity_id = $%d", len(args))
	}
	if filter.Type != nil {
		args = append(args, string(*filter.Type))
		query += fmt.Sprintf(" AND type = $%d", len(args))
	}
	query += " ORDER BY created_at DESC, id"
	query, args = withPage(query, args, filter.Limit, filter.Offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	var entries []*ledger.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entries: %w", err)
	}

	if err := r.loadLines(ctx, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *LedgerRepository) loadLines(ctx context.Context, entries []*ledger.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	ids := make([]string, len(entries))
	byID := make(map[uuid.UUID]*ledger.Entry, len(entries))
	for i, e := range entries {
		ids[i] = e.ID.String()
		byID[e.ID] = e
	}

	rows, err := r.q.Query(ctx, `
		SELECT entry_id, account_id, debit, credit
		FROM ledger_lines
		WHERE entry_id = ANY($1::uuid[])
		ORDER BY entry_id, line_no`, ids)
	if err != nil {
		return fmt.Errorf("failed to load lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l ledger.Line
		if err := rows.Scan(&l.EntryID, &l.AccountID, &l.Debit, &l.Credit); err != nil {
			return fmt.Errorf("failed to scan line: %w", err)
		}
		if e, ok := byID[l.EntryID]; ok {
			e.Lines = append(e.Lines, &l)
		}
	}
	return rows.Err()
}

const balanceQuery = `
	SELECT a.id, a.key, a.name, a.type, a.currency, a.owner_user_id, a.owner_commodity_id, a.created_at,
	       COALESCE(SUM(l.debit), 0), COALESCE(SUM(l.credit), 0)
	FROM ledger_accounts a
	LEFT JOIN ledger_lines l ON l.account_id = a.id`

func scanBalance(row pgx.Row) (*ledger.AccountBalance, error) {
	var a ledger.Account
	var b ledger.AccountBalance
	err := row.Scan(
		&a.ID,
		&a.Key,
		&a.Name,
		&a.Type,
		&a.Currency,
		&a.OwnerUserID,
		&a.OwnerCommodityID,
		&a.CreatedAt,
		&b.Debit,
		&b.Credit,
	)
	if err != nil {
		return nil, err
	}
	b.Account = &a
	return &b, nil
}

// AccountBalance sums every line posted to one account
func (r *LedgerRepository) AccountBalance(ctx context.Context, accountID uuid.UUID) (*ledger.AccountBalance, error) {
	query := balanceQuery + ` WHERE a.id = $1 GROUP BY a.id`

	b, err := scanBalance(r.q.QueryRow(ctx, query, accountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	return b, nil
}

// AccountBalances returns the totals of every account ordered by key
func (r *LedgerRepository) AccountBalances(ctx context.Context) ([]*ledger.AccountBalance, error) {
	query := balanceQuery + ` GROUP BY a.id ORDER BY a.key`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query balances: %w", err)
	}
	defer rows.Close()

	var balances []*ledger.AccountBalance
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

// withPage appends LIMIT and OFFSET placeholders when set
func withPage(query string, args []any, limit, offset int) (string, []any) {
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if offset > 0 {
		args = append(args, offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return query, args
}
