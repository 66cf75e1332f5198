package repository

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"

	"github.com/mgaray/debtbase/internal/core"
	"github.com/mgaray/debtbase/internal/domain"
)

type auditRepository struct {
	db core.DBTX
}

// NewAuditRepository creates the append-only audit_entry repository.
func NewAuditRepository(db core.DBTX) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) AppendBatch(ctx context.Context, entries []domain.AuditEntry) error {
	if len(entries) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(`
			INSERT INTO audit_entry (table_name, business_key, field, old_value, new_value,
				job_id, action, actor, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			e.TableName, e.BusinessKey, e.Field, e.OldValue, e.NewValue,
			e.JobID, e.Action, e.Actor, e.CreatedAt)
	}

	br := r.db.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("append audit entry: %w", err)
		}
	}
	return nil
}

func (r *auditRepository) List(ctx context.Context, filter AuditFilter) ([]domain.AuditEntry, error) {
	query := `SELECT id, table_name, business_key, field, old_value, new_value,
		job_id, action, actor, created_at
		FROM audit_entry WHERE 1=1`
	var args []any

	if filter.BusinessKey != "" {
		args = append(args, filter.BusinessKey)
		query += ` AND business_key = $` + strconv.Itoa(len(args))
	}
	if filter.JobID != nil {
		args = append(args, *filter.JobID)
		query += ` AND job_id = $` + strconv.Itoa(len(args))
	}
	if filter.Actor != "" {
		args = append(args, filter.Actor)
		query += ` AND actor = $` + strconv.Itoa(len(args))
	}

	query += ` ORDER BY id DESC`

	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = 200
	}
	args = append(args, limit)
	query += ` LIMIT $` + strconv.Itoa(len(args))
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		err := rows.Scan(&e.ID, &e.TableName, &e.BusinessKey, &e.Field,
			&e.OldValue, &e.NewValue, &e.JobID, &e.Action, &e.Actor, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return entries, nil
}
