package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Operation classifies a staged row.
type Operation string

const (
	OpInsert   Operation = "INSERT"
	OpUpdate   Operation = "UPDATE"
	OpDelete   Operation = "DELETE"
	OpNoChange Operation = "NOCHANGE"
)

// ParseOperation interprets an operation hint from an uploaded file.
// Unrecognized values are treated as absent, per the file contract.
func ParseOperation(s string) (Operation, bool) {
	switch Operation(strings.ToUpper(strings.TrimSpace(s))) {
	case OpInsert:
		return OpInsert, true
	case OpUpdate:
		return OpUpdate, true
	case OpDelete:
		return OpDelete, true
	case OpNoChange:
		return OpNoChange, true
	}
	return "", false
}

// Mutating reports whether the operation changes the live table.
func (o Operation) Mutating() bool {
	return o == OpInsert || o == OpUpdate || o == OpDelete
}

// PlaceholderKey builds the synthetic staging key used for insert rows
// that arrive without a business key. The real key is assigned at commit
// time from the sequential allocator.
func PlaceholderKey(line int) string {
	return fmt.Sprintf("(auto:%d)", line)
}

// IsPlaceholderKey reports whether a staged business key is synthetic.
func IsPlaceholderKey(key string) bool {
	return strings.HasPrefix(key, "(auto:")
}

// PlaceholderLine recovers the file line a placeholder key was built
// from, so allocated keys can follow the file's row order.
func PlaceholderLine(key string) (int, bool) {
	if !IsPlaceholderKey(key) || !strings.HasSuffix(key, ")") {
		return 0, false
	}
	n, err := strconv.Atoi(key[len("(auto:") : len(key)-1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// FieldChange is one entry of a staged row's changeset.
type FieldChange struct {
	Old *string `json:"old"`
	New *string `json:"new"`
}

// StagedChange is one proposed change, keyed by (job, business key).
// can_apply=true implies Errors is empty and Op is mutating. Rows are
// fully re-derived on every validate pass for the same job.
type StagedChange struct {
	JobID       uuid.UUID          `json:"job_id"`
	BusinessKey string             `json:"clave"`
	Op          Operation          `json:"op"`
	Payload     map[string]*string `json:"payload"`
	Errors      []string           `json:"errores"`
	CanApply    bool               `json:"can_apply"`
	CreatedAt   time.Time          `json:"created_at"`
}
