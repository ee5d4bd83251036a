package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/harvestline/backend/internal/platform/adminreq"
)

// ApprovalRepository implements adminreq.Store using PostgreSQL
type ApprovalRepository struct {
	q querier
}

const approvalColumns = `id, action, status, entity_type, entity_id, requested_by, decided_by, decided_at, payload, created_at, updated_at`

func scanApproval(row pgx.Row) (*adminreq.Request, error) {
	var r adminreq.Request
	var payloadJSON []byte
	err := row.Scan(
		&r.ID,
		&r.Action,
		&r.Status,
		&r.EntityType,
		&r.EntityID,
		&r.RequestedBy,
		&r.DecidedBy,
		&r.DecidedAt,
		&payloadJSON,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payloadJSON, &r.Payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return &r, nil
}

// Create inserts a pending request
func (r *ApprovalRepository) Create(ctx context.Context, req *adminreq.Request) error {
	payloadJSON, err := json.Marshal(req.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	query := `
		INSERT INTO admin_requests (` + approvalColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = r.q.Exec(ctx, query,
		req.ID,
		string(req.Action),
		string(req.Status),
		req.EntityType,
		req.EntityID,
		req.RequestedBy,
		req.DecidedBy,
		req.DecidedAt,
		payloadJSON,
		req.CreatedAt,
		req.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create approval request: %w", err)
	}
	return nil
}

// GetByID retrieves a request by ID
func (r *ApprovalRepository) GetByID(ctx context.Context, id uuid.UUID) (*adminreq.Request, error) {
	return r.get(ctx, `SELECT `+approvalColumns+` FROM admin_requests WHERE id = $1`, id)
}

// GetForUpdate retrieves a request and holds its row lock until the transaction ends
func (r *ApprovalRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*adminreq.Request, error) {
	return r.get(ctx, `SELECT `+approvalColumns+` FROM admin_requests WHERE id = $1 FOR UPDATE`, id)
}

func (r *ApprovalRepository) get(ctx context.Context, query string, id uuid.UUID) (*adminreq.Request, error) {
	req, err := scanApproval(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, adminreq.ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to get approval request: %w", err)
	}
	return req, nil
}

// Decide moves a pending request to its final status
func (r *ApprovalRepository) Decide(ctx context.Context, id uuid.UUID, status adminreq.Status, decidedBy uuid.UUID, at time.Time) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE admin_requests
		SET status = $2, decided_by = $3, decided_at = $4, updated_at = $4
		WHERE id = $1 AND status = $5`,
		id, string(status), decidedBy, at, string(adminreq.StatusPending))
	if err != nil {
		return fmt.Errorf("failed to decide approval request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return adminreq.ErrRequestNotFound.Explain("no pending approval request %s", id)
	}
	return nil
}

// List returns requests oldest first
func (r *ApprovalRepository) List(ctx context.Context, filter adminreq.Filter) ([]*adminreq.Request, error) {
	query := `SELECT ` + approvalColumns + ` FROM admin_requests WHERE 1=1`
	args := []any{}

	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.Action != nil {
		args = append(args, string(*filter.Action))
		query += fmt.Sprintf(" AND action = $%d", len(args))
	}
	query += " ORDER BY created_at, id"
	query, args = withPage(query, args, filter.Limit, 0)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list approval requests: %w", err)
	}
	defer rows.Close()

	var out []*adminreq.Request
	for rows.Next() {
		req, err := scanApproval(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan approval request: %w", err)
		}
		out = append(out, req)
	}
	return out, rows.Err()
}
