package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/harvestline/backend/internal/platform/commodity"
)

// CommodityRepository implements commodity.Store using PostgreSQL
type CommodityRepository struct {
	q querier
}

const commodityColumns = `id, name, status, amount_required, current_amount, min_investment, apy, duration_days, created_at, updated_at`

func scanCommodity(row pgx.Row) (*commodity.Commodity, error) {
	var c commodity.Commodity
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Status,
		&c.AmountRequired,
		&c.CurrentAmount,
		&c.MinInvestment,
		&c.APY,
		&c.DurationDays,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts a commodity
func (r *CommodityRepository) Create(ctx context.Context, c *commodity.Commodity) error {
	query := `
		INSERT INTO commodities (` + commodityColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.q.Exec(ctx, query,
		c.ID,
		c.Name,
		string(c.Status),
		c.AmountRequired,
		c.CurrentAmount,
		c.MinInvestment,
		c.APY,
		c.DurationDays,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create commodity: %w", err)
	}
	return nil
}

// GetByID retrieves a commodity by ID
func (r *CommodityRepository) GetByID(ctx context.Context, id uuid.UUID) (*commodity.Commodity, error) {
	return r.get(ctx, `SELECT `+commodityColumns+` FROM commodities WHERE id = $1`, id)
}

// GetForUpdate retrieves a commodity and holds its row lock until the transaction ends
func (r *CommodityRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*commodity.Commodity, error) {
	return r.get(ctx, `SELECT `+commodityColumns+` FROM commodities WHERE id = $1 FOR UPDATE`, id)
}

func (r *CommodityRepository) get(ctx context.Context, query string, id uuid.UUID) (*commodity.Commodity, error) {
	c, err := scanCommodity(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, commodity.ErrCommodityNotFound
		}
		return nil, fmt.Errorf("failed to get commodity: %w", err)
	}
	return c, nil
}

// List returns commodities newest first
func (r *CommodityRepository) List(ctx context.Context, filter commodity.Filter) ([]*commodity.Commodity, error) {
	query := `SELECT ` + commodityColumns + ` FROM commodities`
	args := []any{}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		query += ` WHERE status = $1`
	}
	query += ` ORDER BY created_at DESC, id`
	query, args = withPage(query, args, filter.Limit, filter.Offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list commodities: %w", err)
	}
	defer rows.Close()

	var out []*commodity.Commodity
	for rows.Next() {
		c, err := scanCommodity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan commodity: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateFunding stores the subscribed amount and resulting status
func (r *CommodityRepository) UpdateFunding(ctx context.Context, id uuid.UUID, currentAmount decimal.Decimal, status commodity.Status) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE commodities SET current_amount = $2, status = $3, updated_at = $4
		WHERE id = $1`,
		id, currentAmount, string(status), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update commodity funding: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return commodity.ErrCommodityNotFound
	}
	return nil
}

// CompareAndSetStatus moves the commodity from one status to the next atomically
func (r *CommodityRepository) CompareAndSetStatus(ctx context.Context, id uuid.UUID, from, next commodity.Status) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE commodities SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2`,
		id, string(from), string(next), time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("failed to update commodity status: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	var exists bool
	if err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM commodities WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check commodity: %w", err)
	}
	if !exists {
		return false, commodity.ErrCommodityNotFound
	}
	return false, nil
}
