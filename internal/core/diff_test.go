package core

import (
	"testing"

	"github.com/mgaray/debtbase/internal/domain"
)

func TestDiffClassification(t *testing.T) {
	rec := existingRecord(map[string]string{"saldo": "1500.00", "estado": "activo"})

	tests := []struct {
		name       string
		in         DiffInput
		wantOp     domain.Operation
		wantFields []string
		wantErr    string
	}{
		{
			name: "absent key becomes insert",
			in: DiffInput{
				Proposed:     values(map[string]string{"dni": "30111222"}),
				AllowInserts: true,
			},
			wantOp:     domain.OpInsert,
			wantFields: []string{"dni"},
		},
		{
			name: "absent key with inserts disabled",
			in: DiffInput{
				Proposed: values(map[string]string{"dni": "30111222"}),
			},
			wantOp:  domain.OpNoChange,
			wantErr: "INSERT deshabilitado",
		},
		{
			name: "absent key with no valid data",
			in: DiffInput{
				Proposed:     map[string]Value{"dni": Null},
				AllowInserts: true,
			},
			wantOp:  domain.OpNoChange,
			wantErr: "INSERT sin datos",
		},
		{
			name: "delete hint on missing record",
			in: DiffInput{
				Hint:         domain.OpDelete,
				AllowDeletes: true,
			},
			wantOp:  domain.OpNoChange,
			wantErr: "no existe",
		},
		{
			name: "changed field becomes update",
			in: DiffInput{
				Proposed: values(map[string]string{"saldo": "1800.00"}),
				Existing: rec,
			},
			wantOp:     domain.OpUpdate,
			wantFields: []string{"saldo"},
		},
		{
			name: "equal values become nochange",
			in: DiffInput{
				Proposed: values(map[string]string{"saldo": "1500.00", "estado": "activo"}),
				Existing: rec,
			},
			wantOp: domain.OpNoChange,
		},
		{
			name: "update hint with empty changeset still nochange",
			in: DiffInput{
				Proposed: values(map[string]string{"saldo": "1500.00"}),
				Existing: rec,
				Hint:     domain.OpUpdate,
			},
			wantOp: domain.OpNoChange,
		},
		{
			name: "blank cell means leave as is",
			in: DiffInput{
				Proposed: map[string]Value{"saldo": Null, "estado": String("cancelado")},
				Existing: rec,
			},
			wantOp:     domain.OpUpdate,
			wantFields: []string{"estado"},
		},
		{
			name: "delete hint on present record",
			in: DiffInput{
				Existing:     rec,
				Hint:         domain.OpDelete,
				AllowDeletes: true,
			},
			wantOp: domain.OpDelete,
		},
		{
			name: "delete hint with deletes disabled keeps the op",
			in: DiffInput{
				Existing: rec,
				Hint:     domain.OpDelete,
			},
			wantOp:  domain.OpDelete,
			wantErr: "DELETE deshabilitado",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff(tt.in)
			if got.Op != tt.wantOp {
				t.Fatalf("Op = %s, want %s", got.Op, tt.wantOp)
			}
			if tt.wantErr != "" {
				if !hasError(got.Errors, tt.wantErr) {
					t.Fatalf("Errors = %v, want one containing %q", got.Errors, tt.wantErr)
				}
			} else if len(got.Errors) != 0 {
				t.Fatalf("unexpected errors: %v", got.Errors)
			}
			if tt.wantFields != nil {
				if len(got.Changes) != len(tt.wantFields) {
					t.Fatalf("Changes = %v, want fields %v", got.Changes, tt.wantFields)
				}
				for _, f := range tt.wantFields {
					if _, ok := got.Changes[f]; !ok {
						t.Errorf("missing change for %s", f)
					}
				}
			}
		})
	}
}

func TestDiffChangeValues(t *testing.T) {
	rec := existingRecord(map[string]string{"saldo": "1500.00"})

	got := Diff(DiffInput{
		Proposed: values(map[string]string{"saldo": "1800.00", "tel1": "1155667788"}),
		Existing: rec,
	})
	if got.Op != domain.OpUpdate {
		t.Fatalf("Op = %s, want UPDATE", got.Op)
	}

	saldo, ok := got.Changes["saldo"]
	if !ok || saldo.Old == nil || *saldo.Old != "1500.00" || saldo.New == nil || *saldo.New != "1800.00" {
		t.Errorf("saldo change = %+v", saldo)
	}

	// tel1 has no stored value: Old stays nil.
	tel, ok := got.Changes["tel1"]
	if !ok || tel.Old != nil || tel.New == nil || *tel.New != "1155667788" {
		t.Errorf("tel1 change = %+v", tel)
	}
}
