// Package bulk orchestrates the two-phase import pipeline: a validate
// pass that parses, classifies and stages every row of an uploaded
// file, and a commit pass that re-validates the staged rows and applies
// them to the live registry in a single transaction.
package bulk

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mgaray/debtbase/internal/domain"
	"github.com/mgaray/debtbase/internal/repository"
)

// Config carries the administrative toggles for the pipeline. It is
// threaded explicitly through the service; nothing here is process-wide
// mutable state.
type Config struct {
	AllowInserts   bool
	AllowDeletes   bool
	ValidateTaxIDs bool
	PreviewRows    int
}

// TxRunner runs a function inside a database transaction, handing it a
// Store bound to that transaction. The transaction commits when fn
// returns nil and rolls back otherwise.
type TxRunner interface {
	InTx(ctx context.Context, fn func(store *repository.Store) error) error
}

// PoolRunner is the production TxRunner over a pgx pool.
type PoolRunner struct {
	Pool *pgxpool.Pool
}

func (p PoolRunner) InTx(ctx context.Context, fn func(store *repository.Store) error) error {
	tx, err := p.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(repository.NewStore(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Service is the bulk import pipeline.
type Service struct {
	store *repository.Store
	tx    TxRunner
	cfg   Config
	now   func() time.Time
}

// NewService wires the pipeline over a pgx pool.
func NewService(pool *pgxpool.Pool, cfg Config) *Service {
	return &Service{
		store: repository.NewStore(pool),
		tx:    PoolRunner{Pool: pool},
		cfg:   cfg,
		now:   time.Now,
	}
}

// newServiceWith is the seam used by tests: any store and TxRunner,
// with a fixed clock.
func newServiceWith(store *repository.Store, tx TxRunner, cfg Config, now func() time.Time) *Service {
	return &Service{store: store, tx: tx, cfg: cfg, now: now}
}

// GetJob returns a job with its stored summary.
func (s *Service) GetJob(ctx context.Context, id uuid.UUID) (domain.BulkJob, error) {
	return s.store.Jobs.Get(ctx, id)
}

// StagedRows returns every staged row of a job, for review.
func (s *Service) StagedRows(ctx context.Context, id uuid.UUID) ([]domain.StagedChange, error) {
	if _, err := s.store.Jobs.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.store.Staging.ListForJob(ctx, id)
}

// AuditLog queries the audit trail.
func (s *Service) AuditLog(ctx context.Context, filter repository.AuditFilter) ([]domain.AuditEntry, error) {
	return s.store.Audit.List(ctx, filter)
}
