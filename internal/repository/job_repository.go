package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mgaray/debtbase/internal/core"
	"github.com/mgaray/debtbase/internal/domain"
)

type jobRepository struct {
	db core.DBTX
}

// NewJobRepository creates the bulk_job repository.
func NewJobRepository(db core.DBTX) JobRepository {
	return &jobRepository{db: db}
}

const jobColumns = `id, filename, content_hash, created_by, status,
	total, ok, con_errores, updates, inserts, deletes, nochange,
	created_at, committed_at`

func (r *jobRepository) Create(ctx context.Context, job domain.BulkJob) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO bulk_job (id, filename, content_hash, created_by, status,
			total, ok, con_errores, updates, inserts, deletes, nochange, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		job.ID, job.Filename, job.ContentHash, job.CreatedBy, job.Status,
		job.Summary.Total, job.Summary.OK, job.Summary.ConErrores,
		job.Summary.Updates, job.Summary.Inserts, job.Summary.Deletes,
		job.Summary.NoChange, job.CreatedAt)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (r *jobRepository) Get(ctx context.Context, id uuid.UUID) (domain.BulkJob, error) {
	return r.get(ctx, id, "")
}

// GetForUpdate locks the job row so concurrent commits of the same job
// serialize on it.
func (r *jobRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (domain.BulkJob, error) {
	return r.get(ctx, id, " FOR UPDATE")
}

func (r *jobRepository) get(ctx context.Context, id uuid.UUID, suffix string) (domain.BulkJob, error) {
	query := `SELECT ` + jobColumns + ` FROM bulk_job WHERE id = $1` + suffix

	var job domain.BulkJob
	err := r.db.QueryRow(ctx, query, id).Scan(
		&job.ID, &job.Filename, &job.ContentHash, &job.CreatedBy, &job.Status,
		&job.Summary.Total, &job.Summary.OK, &job.Summary.ConErrores,
		&job.Summary.Updates, &job.Summary.Inserts, &job.Summary.Deletes,
		&job.Summary.NoChange, &job.CreatedAt, &job.CommittedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.BulkJob{}, core.ErrJobNotFound
	}
	if err != nil {
		return domain.BulkJob{}, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

func (r *jobRepository) UpdateSummary(ctx context.Context, id uuid.UUID, summary domain.JobSummary) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE bulk_job SET total = $2, ok = $3, con_errores = $4,
			updates = $5, inserts = $6, deletes = $7, nochange = $8
		WHERE id = $1`,
		id, summary.Total, summary.OK, summary.ConErrores,
		summary.Updates, summary.Inserts, summary.Deletes, summary.NoChange)
	if err != nil {
		return fmt.Errorf("update job summary: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrJobNotFound
	}
	return nil
}

func (r *jobRepository) SetStatus(ctx context.Context, id uuid.UUID, status domain.JobStatus, committedAt *time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE bulk_job SET status = $2, committed_at = $3 WHERE id = $1`,
		id, status, committedAt)
	if err != nil {
		return fmt.Errorf("set job status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrJobNotFound
	}
	return nil
}
