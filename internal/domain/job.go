package domain

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus is the lifecycle state of a bulk job. A job is created in
// StatusReady at validate time and moves to StatusCommitted only through
// a successful commit; it is never reopened.
type JobStatus string

const (
	StatusReady     JobStatus = "ready_to_commit"
	StatusCommitted JobStatus = "committed"
	StatusCancelled JobStatus = "cancelled"
	StatusFailed    JobStatus = "failed"
)

// JobSummary holds the per-operation counters computed during the
// validate phase. Field names match the JSON stored on the job row.
type JobSummary struct {
	Total      int `json:"total"`
	OK         int `json:"ok"`
	ConErrores int `json:"con_errores"`
	Updates    int `json:"updates"`
	Inserts    int `json:"inserts"`
	Deletes    int `json:"deletes"`
	NoChange   int `json:"nochange"`
}

// Count registers one staged row in the summary.
func (s *JobSummary) Count(op Operation, canApply bool) {
	s.Total++
	switch op {
	case OpUpdate:
		s.Updates++
	case OpInsert:
		s.Inserts++
	case OpDelete:
		s.Deletes++
	case OpNoChange:
		s.NoChange++
	}
	if canApply {
		s.OK++
	} else {
		s.ConErrores++
	}
}

// BulkJob is one import attempt. The live registry is a separate
// aggregate; the job only references it through its staged changes.
type BulkJob struct {
	ID          uuid.UUID  `json:"id"`
	Filename    string     `json:"filename"`
	ContentHash string     `json:"content_hash"`
	CreatedBy   string     `json:"created_by"`
	Status      JobStatus  `json:"status"`
	Summary     JobSummary `json:"resumen"`
	CreatedAt   time.Time  `json:"created_at"`
	CommittedAt *time.Time `json:"committed_at,omitempty"`
}
