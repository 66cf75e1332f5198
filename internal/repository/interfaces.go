// Package repository persists jobs, staged rows, live records, audit
// entries and the sequential key counter in Postgres. Every repository
// operates on a core.DBTX so the same code runs against the pool during
// validation and against a pgx.Tx during commit.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mgaray/debtbase/internal/core"
	"github.com/mgaray/debtbase/internal/domain"
)

// RecordRepository reads and writes the live db_bia table.
type RecordRepository interface {
	// FetchByKeys returns the current records for the given business
	// keys. Missing keys are simply absent from the map.
	FetchByKeys(ctx context.Context, keys []string) (map[string]*domain.DebtRecord, error)
	GetByKey(ctx context.Context, key string) (*domain.DebtRecord, error)
	// UpdateBatch applies per-row column updates in one round trip.
	// It returns how many rows actually matched.
	UpdateBatch(ctx context.Context, updates []RecordUpdate) (int64, error)
	InsertBatch(ctx context.Context, rows []RecordInsert) error
	DeleteByKeys(ctx context.Context, keys []string) (int64, error)
	// MaxNumericKey is the highest numeric business key currently in
	// the table, 0 when the table has none. Used by the allocator to
	// heal after manual edits.
	MaxNumericKey(ctx context.Context) (int64, error)
	// HasResolvedConflict reports whether a record other than
	// excludeKey already holds a resolved estado for (dni, entidad).
	HasResolvedConflict(ctx context.Context, dni string, entidadID int64, excludeKey string) (bool, error)
}

// RecordUpdate is one staged UPDATE: the target key plus the columns to
// set. A nil value sets the column to NULL.
type RecordUpdate struct {
	Key    string
	Fields map[string]*string
}

// RecordInsert is one staged INSERT with its allocated business key.
type RecordInsert struct {
	Key    string
	Fields map[string]*string
}

// EntityRepository reads the issuing-entity catalogue.
type EntityRepository interface {
	ListAll(ctx context.Context) ([]domain.Entidad, error)
}

// JobRepository tracks bulk job lifecycle.
type JobRepository interface {
	Create(ctx context.Context, job domain.BulkJob) error
	Get(ctx context.Context, id uuid.UUID) (domain.BulkJob, error)
	// GetForUpdate locks the job row for the duration of the
	// enclosing transaction so concurrent commits serialize.
	GetForUpdate(ctx context.Context, id uuid.UUID) (domain.BulkJob, error)
	UpdateSummary(ctx context.Context, id uuid.UUID, summary domain.JobSummary) error
	SetStatus(ctx context.Context, id uuid.UUID, status domain.JobStatus, committedAt *time.Time) error
}

// StagingRepository holds one staged decision per (job, business key).
type StagingRepository interface {
	// Upsert overwrites any previous staging of the same key within
	// the job. Uniqueness is enforced by the table constraint.
	Upsert(ctx context.Context, change domain.StagedChange) error
	DeleteForJob(ctx context.Context, jobID uuid.UUID) error
	ListForJob(ctx context.Context, jobID uuid.UUID) ([]domain.StagedChange, error)
	ListApplicable(ctx context.Context, jobID uuid.UUID) ([]domain.StagedChange, error)
	Summary(ctx context.Context, jobID uuid.UUID) (domain.JobSummary, error)
}

// AuditRepository appends to and queries the immutable audit trail.
type AuditRepository interface {
	AppendBatch(ctx context.Context, entries []domain.AuditEntry) error
	List(ctx context.Context, filter AuditFilter) ([]domain.AuditEntry, error)
}

// AuditFilter narrows audit queries. Zero values mean "any".
type AuditFilter struct {
	BusinessKey string
	JobID       *uuid.UUID
	Actor       string
	Limit       int
	Offset      int
}

// CounterRepository issues contiguous blocks of sequential business
// keys under mutual exclusion.
type CounterRepository interface {
	// AllocateBlock returns n consecutive keys, locking the counter
	// row for the transaction. tableMax is evaluated after the lock
	// is held and lets the counter self-heal when rows were inserted
	// outside the pipeline. n == 0 returns an empty slice without
	// touching the counter.
	AllocateBlock(ctx context.Context, n int, tableMax func(context.Context) (int64, error)) ([]int64, error)
}

// Store bundles the repositories over a shared DBTX. WithTx rebinds the
// whole bundle to a transaction.
type Store struct {
	DB       core.DBTX
	Records  RecordRepository
	Entities EntityRepository
	Jobs     JobRepository
	Staging  StagingRepository
	Audit    AuditRepository
	Counter  CounterRepository
}

// NewStore wires the Postgres repositories over db.
func NewStore(db core.DBTX) *Store {
	return &Store{
		DB:       db,
		Records:  NewRecordRepository(db),
		Entities: NewEntityRepository(db),
		Jobs:     NewJobRepository(db),
		Staging:  NewStagingRepository(db),
		Audit:    NewAuditRepository(db),
		Counter:  NewCounterRepository(db),
	}
}

// WithTx returns a Store whose repositories all run on tx.
func (s *Store) WithTx(tx core.DBTX) *Store {
	return NewStore(tx)
}
