package core

import (
	"github.com/mgaray/debtbase/internal/domain"
)

// DiffInput is one row's proposed state against whatever the table
// currently holds for its key.
type DiffInput struct {
	Proposed     map[string]Value   // coerced editable fields present in the file
	Existing     *domain.DebtRecord // nil when the key is not in the table
	Hint         domain.Operation   // "" when the file carries no recognized hint
	AllowInserts bool
	AllowDeletes bool
}

// DiffResult classifies the row and carries its per-field changeset.
type DiffResult struct {
	Op      domain.Operation
	Changes map[string]domain.FieldChange
	Errors  []string
}

// Diff is pure with respect to storage: it only compares. Entity fields
// compare by resolved id, which coercion already guarantees.
func Diff(in DiffInput) DiffResult {
	if in.Existing == nil {
		return diffAbsent(in)
	}

	if in.Hint == domain.OpDelete {
		res := DiffResult{Op: domain.OpDelete, Changes: map[string]domain.FieldChange{}}
		if !in.AllowDeletes {
			// Still a DELETE for the summary; the error keeps it
			// from ever being applicable.
			res.Errors = []string{"DELETE deshabilitado por configuración"}
		}
		return res
	}

	changes := map[string]domain.FieldChange{}
	for name, v := range in.Proposed {
		old, hasOld := in.Existing.FieldValue(name)
		newVal := v.Ptr()

		if !v.Valid {
			// A blank cell means "leave as is", never "clear".
			continue
		}
		if hasOld && old == v.Str {
			continue
		}
		var oldPtr *string
		if hasOld {
			o := old
			oldPtr = &o
		}
		changes[name] = domain.FieldChange{Old: oldPtr, New: newVal}
	}

	if len(changes) == 0 {
		// An explicit UPDATE hint with an empty changeset loses to the
		// inferred classification.
		return DiffResult{Op: domain.OpNoChange, Changes: changes}
	}
	return DiffResult{Op: domain.OpUpdate, Changes: changes}
}

func diffAbsent(in DiffInput) DiffResult {
	if in.Hint == domain.OpDelete {
		return DiffResult{Op: domain.OpNoChange,
			Errors: []string{"DELETE: el registro no existe"}}
	}
	if !in.AllowInserts {
		return DiffResult{Op: domain.OpNoChange,
			Errors: []string{"INSERT deshabilitado por configuración"}}
	}

	changes := map[string]domain.FieldChange{}
	for name, v := range in.Proposed {
		if !v.Valid {
			continue
		}
		changes[name] = domain.FieldChange{New: v.Ptr()}
	}
	if len(changes) == 0 {
		return DiffResult{Op: domain.OpNoChange, Changes: changes,
			Errors: []string{"INSERT sin datos"}}
	}
	return DiffResult{Op: domain.OpInsert, Changes: changes}
}
