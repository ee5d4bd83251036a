package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/harvestline/backend/internal/platform/audit"
)

// AuditRepository implements audit.Sink using PostgreSQL
type AuditRepository struct {
	q querier
}

// Append writes one audit record
func (r *AuditRepository) Append(ctx context.Context, rec *audit.Record) error {
	changesJSON, err := json.Marshal(rec.Changes)
	if err != nil {
		return fmt.Errorf("failed to marshal changes: %w", err)
	}

	_, err = r.q.Exec(ctx, `
		INSERT INTO audit_log (id, actor_user_id, action, entity_type, entity_id, changes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID,
		rec.ActorUserID,
		string(rec.Action),
		rec.EntityType,
		rec.EntityID,
		changesJSON,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append audit record: %w", err)
	}
	return nil
}

// List returns records newest first
func (r *AuditRepository) List(ctx context.Context, filter audit.Filter) ([]*audit.Record, error) {
	query := `
		SELECT id, actor_user_id, action, entity_type, entity_id, changes, created_at
		FROM audit_log WHERE 1=1`
	args := []any{}

	if filter.EntityType != "" {
		args = append(args, filter.EntityType)
		query += fmt.Sprintf(" AND entity_type = $%d", len(args))
	}
	if filter.EntityID != nil {
		args = append(args, *filter.EntityID)
		query += fmt.Sprintf(" AND entity_id = $%d", len(args))
	}
	if filter.Action != nil {
		args = append(args, string(*filter.Action))
		query += fmt.Sprintf(" AND action = $%d", len(args))
	}
	query += " ORDER BY created_at DESC, id"
	query, args = withPage(query, args, filter.Limit, 0)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit records: %w", err)
	}
	defer rows.Close()

	var out []*audit.Record
	for rows.Next() {
		var rec audit.Record
		var changesJSON []byte
		if err := rows.Scan(
			&rec.ID,
			&rec.ActorUserID,
			&rec.Action,
			&rec.EntityType,
			&rec.EntityID,
			&changesJSON,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit record: %w", err)
		}
		if err := json.Unmarshal(changesJSON, &rec.Changes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal changes: %w", err)
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}
