package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction is the kind of mutation an audit entry records.
type AuditAction string

const (
	AuditInsert AuditAction = "INSERT"
	AuditUpdate AuditAction = "UPDATE"
	AuditDelete AuditAction = "DELETE"
)

// WholeRowField marks an audit entry that covers an entire row rather
// than a single column (used for deletes).
const WholeRowField = "*"

// AuditEntry is one historical fact about a field-level mutation.
// Entries are append-only; no component ever updates or deletes them.
// JobID is nil for mutations that originate outside bulk jobs.
type AuditEntry struct {
	ID          int64       `json:"id"`
	TableName   string      `json:"table_name"`
	BusinessKey string      `json:"clave"`
	Field       string      `json:"campo"`
	OldValue    *string     `json:"valor_anterior"`
	NewValue    *string     `json:"valor_nuevo"`
	JobID       *uuid.UUID  `json:"job_id,omitempty"`
	Action      AuditAction `json:"accion"`
	Actor       string      `json:"actor"`
	CreatedAt   time.Time   `json:"created_at"`
}
