package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mgaray/debtbase/internal/core"
	"github.com/mgaray/debtbase/internal/domain"
)

type stagingRepository struct {
	db core.DBTX
}

// NewStagingRepository creates the staging_row repository.
func NewStagingRepository(db core.DBTX) StagingRepository {
	return &stagingRepository{db: db}
}

// Upsert relies on the unique constraint on (job_id, business_key): a
// second staging of the same key fully replaces the first.
func (r *stagingRepository) Upsert(ctx context.Context, change domain.StagedChange) error {
	payload, err := json.Marshal(change.Payload)
	if err != nil {
		return fmt.Errorf("marshal staging payload: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO staging_row (job_id, business_key, op, payload, errors, can_apply, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (job_id, business_key) DO UPDATE SET
			op = EXCLUDED.op,
			payload = EXCLUDED.payload,
			errors = EXCLUDED.errors,
			can_apply = EXCLUDED.can_apply,
			created_at = EXCLUDED.created_at`,
		change.JobID, change.BusinessKey, change.Op, payload,
		change.Errors, change.CanApply, change.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert staging row: %w", err)
	}
	return nil
}

func (r *stagingRepository) DeleteForJob(ctx context.Context, jobID uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM staging_row WHERE job_id = $1`, jobID); err != nil {
		return fmt.Errorf("delete staging rows: %w", err)
	}
	return nil
}

func (r *stagingRepository) ListForJob(ctx context.Context, jobID uuid.UUID) ([]domain.StagedChange, error) {
	return r.list(ctx, jobID, false)
}

func (r *stagingRepository) ListApplicable(ctx context.Context, jobID uuid.UUID) ([]domain.StagedChange, error) {
	return r.list(ctx, jobID, true)
}

func (r *stagingRepository) list(ctx context.Context, jobID uuid.UUID, applicableOnly bool) ([]domain.StagedChange, error) {
	query := `SELECT job_id, business_key, op, payload, errors, can_apply, created_at
		FROM staging_row WHERE job_id = $1`
	if applicableOnly {
		query += ` AND can_apply`
	}
	query += ` ORDER BY business_key`

	rows, err := r.db.Query(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("list staging rows: %w", err)
	}
	defer rows.Close()

	var changes []domain.StagedChange
	for rows.Next() {
		change, err := scanStagedChange(rows)
		if err != nil {
			return nil, err
		}
		changes = append(changes, change)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list staging rows: %w", err)
	}
	return changes, nil
}

func scanStagedChange(rows pgx.Rows) (domain.StagedChange, error) {
	var change domain.StagedChange
	var payload []byte
	err := rows.Scan(&change.JobID, &change.BusinessKey, &change.Op,
		&payload, &change.Errors, &change.CanApply, &change.CreatedAt)
	if err != nil {
		return domain.StagedChange{}, fmt.Errorf("scan staging row: %w", err)
	}
	if err := json.Unmarshal(payload, &change.Payload); err != nil {
		return domain.StagedChange{}, fmt.Errorf("unmarshal staging payload: %w", err)
	}
	return change, nil
}

// Summary re-aggregates the counters straight from the staged rows.
// Commit compares this against the counters stored on the job to detect
// staging drift.
func (r *stagingRepository) Summary(ctx context.Context, jobID uuid.UUID) (domain.JobSummary, error) {
	var s domain.JobSummary
	err := r.db.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE can_apply),
			COUNT(*) FILTER (WHERE NOT can_apply),
			COUNT(*) FILTER (WHERE op = $2),
			COUNT(*) FILTER (WHERE op = $3),
			COUNT(*) FILTER (WHERE op = $4),
			COUNT(*) FILTER (WHERE op = $5)
		FROM staging_row WHERE job_id = $1`,
		jobID, domain.OpUpdate, domain.OpInsert, domain.OpDelete, domain.OpNoChange,
	).Scan(&s.Total, &s.OK, &s.ConErrores, &s.Updates, &s.Inserts, &s.Deletes, &s.NoChange)
	if err != nil {
		return domain.JobSummary{}, fmt.Errorf("staging summary: %w", err)
	}
	return s, nil
}
