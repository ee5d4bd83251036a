package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/harvestline/backend/internal/platform/transaction"
)

// TransactionRepository implements transaction.Store using PostgreSQL
type TransactionRepository struct {
	q querier
}

const transactionColumns = `id, user_id, commodity_id, type, amount, status, description, metadata, ledger_entry_id, created_at, updated_at`

func scanTransaction(row pgx.Row) (*transaction.Transaction, error) {
	var t transaction.Transaction
	var metadataJSON []byte
	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.CommodityID,
		&t.Type,
		&t.Amount,
		&t.Status,
		&t.Description,
		&metadataJSON,
		&t.LedgerEntryID,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &t.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	return &t, nil
}

// Create inserts a transaction; a second payout for the same investor and
// commodity returns transaction.ErrDuplicatePayout
func (r *TransactionRepository) Create(ctx context.Context, t *transaction.Transaction) error {
	metadataJSON, err := json.Marshal(t.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = r.q.Exec(ctx, query,
		t.ID,
		t.UserID,
		t.CommodityID,
		string(t.Type),
		t.Amount,
		string(t.Status),
		t.Description,
		metadataJSON,
		t.LedgerEntryID,
		t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil {
		if uniqueViolation(err, "uq_transactions_payout") {
			return transaction.ErrDuplicatePayout
		}
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// GetByID retrieves a transaction by ID
func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	t, err := scanTransaction(r.q.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transaction.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return t, nil
}

// List returns transactions newest first
func (r *TransactionRepository) List(ctx context.Context, filter transaction.Filter) ([]*transaction.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE 1=1`
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
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var out []*transaction.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Complete links a pending transaction to its ledger entry
func (r *TransactionRepository) Complete(ctx context.Context, id uuid.UUID, ledgerEntryID uuid.UUID) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE transactions SET status = $2, ledger_entry_id = $3, updated_at = $4
		WHERE id = $1 AND status = $5`,
		id,
		string(transaction.StatusCompleted),
		ledgerEntryID,
		time.Now().UTC(),
		string(transaction.StatusPending),
	)
	if err != nil {
		return fmt.Errorf("failed to complete transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return transaction.ErrTransactionNotFound.Explain("no pending transaction %s", id)
	}
	return nil
}

// ExistsForCommodity reports whether any transaction of type t references the commodity
func (r *TransactionRepository) ExistsForCommodity(ctx context.Context, commodityID uuid.UUID, t transaction.Type) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM transactions WHERE commodity_id = $1 AND type = $2)`,
		commodityID, string(t)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check transactions: %w", err)
	}
	return exists, nil
}
