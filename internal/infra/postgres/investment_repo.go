package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/harvestline/backend/internal/platform/investment"
)

// InvestmentRepository implements investment.Store using PostgreSQL
type InvestmentRepository struct {
	q querier
}

const investmentColumns = `id, user_id, commodity_id, amount, percentage, projected_return, actual_return, status, created_at, settled_at`

func scanInvestment(row pgx.Row) (*investment.Investment, error) {
	var inv investment.Investment
	var actual decimal.NullDecimal
	err := row.Scan(
		&inv.ID,
		&inv.UserID,
		&inv.CommodityID,
		&inv.Amount,
		&inv.Percentage,
		&inv.ProjectedReturn,
		&actual,
		&inv.Status,
		&inv.CreatedAt,
		&inv.SettledAt,
	)
	if err != nil {
		return nil, err
	}
	if actual.Valid {
		inv.ActualReturn = &actual.Decimal
	}
	return &inv, nil
}

// Create inserts an investment
func (r *InvestmentRepository) Create(ctx context.Context, inv *investment.Investment) error {
	query := `
		INSERT INTO investments (` + investmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	actual := decimal.NullDecimal{}
	if inv.ActualReturn != nil {
		actual = decimal.NewNullDecimal(*inv.ActualReturn)
	}
	_, err := r.q.Exec(ctx, query,
		inv.ID,
		inv.UserID,
		inv.CommodityID,
		inv.Amount,
		inv.Percentage,
		inv.ProjectedReturn,
		actual,
		string(inv.Status),
		inv.CreatedAt,
		inv.SettledAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create investment: %w", err)
	}
	return nil
}

// GetByID retrieves an investment by ID
func (r *InvestmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*investment.Investment, error) {
	inv, err := scanInvestment(r.q.QueryRow(ctx, `SELECT `+investmentColumns+` FROM investments WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, investment.ErrInvestmentNotFound
		}
		return nil, fmt.Errorf("failed to get investment: %w", err)
	}
	return inv, nil
}

// ListByUser returns a user's investments oldest first
func (r *InvestmentRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*investment.Investment, error) {
	return r.list(ctx, `
		SELECT `+investmentColumns+` FROM investments
		WHERE user_id = $1 ORDER BY created_at, id`, userID)
}

// ListByCommodityForUpdate returns and locks every investment in a commodity
func (r *InvestmentRepository) ListByCommodityForUpdate(ctx context.Context, commodityID uuid.UUID) ([]*investment.Investment, error) {
	return r.list(ctx, `
		SELECT `+investmentColumns+` FROM investments
		WHERE commodity_id = $1 ORDER BY created_at, id FOR UPDATE`, commodityID)
}

func (r *InvestmentRepository) list(ctx context.Context, query string, arg uuid.UUID) ([]*investment.Investment, error) {
	rows, err := r.q.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list investments: %w", err)
	}
	defer rows.Close()

	var out []*investment.Investment
	for rows.Next() {
		inv, err := scanInvestment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan investment: %w", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// MarkSettled records the realized return of an active investment
func (r *InvestmentRepository) MarkSettled(ctx context.Context, id uuid.UUID, actualReturn decimal.Decimal, at time.Time) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE investments SET actual_return = $2, status = $3, settled_at = $4
		WHERE id = $1 AND status = $5`,
		id, actualReturn, string(investment.StatusSettled), at, string(investment.StatusActive))
	if err != nil {
		return fmt.Errorf("failed to settle investment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return investment.ErrInvestmentNotFound.Explain("no active investment %s", id)
	}
	return nil
}
