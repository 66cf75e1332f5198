package core

import (
	"strings"
	"testing"
)

func testCoercer(validateTaxIDs bool) *Coercer {
	lookup := NewEntityLookup(map[int64]string{
		1: "Banco Norte",
		7: "Cooperativa Sur",
	})
	return NewCoercer(Fields(), lookup, validateTaxIDs)
}

func mustSpec(t *testing.T, name string) *FieldSpec {
	t.Helper()
	spec, ok := Fields().Get(name)
	if !ok {
		t.Fatalf("unknown field %q", name)
	}
	return spec
}

func TestCoerce(t *testing.T) {
	c := testCoercer(false)

	tests := []struct {
		name    string
		field   string
		in      Value
		want    Value
		wantErr string
	}{
		{name: "null passes through", field: "dni", in: Null, want: Null},
		{name: "text passthrough", field: "nombre_apellido", in: String("Pérez, Juan"), want: String("Pérez, Juan")},
		{name: "dni strips separators", field: "dni", in: String("12.345.678"), want: String("12345678")},
		{name: "dni rejects letters only", field: "dni", in: String("abc"), wantErr: "dni"},
		{name: "decimal accepts comma", field: "saldo", in: String("1234,56"), want: String("1234.56")},
		{name: "decimal rejects garbage", field: "saldo", in: String("12x"), wantErr: "saldo"},
		{name: "date canonical", field: "fecha_deuda", in: String("2023-05-01"), want: String("2023-05-01")},
		{name: "date dd/mm/yyyy", field: "fecha_deuda", in: String("01/05/2023"), want: String("2023-05-01")},
		{name: "date invalid", field: "fecha_deuda", in: String("mañana"), wantErr: "fecha_deuda"},
		{name: "integer", field: "cuotas", in: String("12"), want: String("12")},
		{name: "integer invalid", field: "cuotas", in: String("12.5"), wantErr: "cuotas"},
		{name: "email lowercased", field: "mail1", in: String("Juan@Example.COM"), want: String("juan@example.com")},
		{name: "email invalid", field: "mail1", in: String("no-es-mail"), wantErr: "mail1"},
		{name: "enum matches case-insensitive", field: "estado", in: String("Activo"), want: String("activo")},
		{name: "enum rejects unknown", field: "estado", in: String("pendiente"), wantErr: "estado"},
		{name: "entity by id", field: "entidad", in: String("7"), want: String("7")},
		{name: "entity by name", field: "entidad", in: String("Banco Norte"), want: String("1")},
		{name: "entity unknown id", field: "entidad", in: String("99"), wantErr: "entidad"},
		{name: "entity unknown name", field: "entidad", in: String("Banco Fantasma"), wantErr: "entidad"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, errMsg := c.Coerce(mustSpec(t, tt.field), tt.in)
			if tt.wantErr != "" {
				if errMsg == "" || !strings.Contains(errMsg, tt.wantErr) {
					t.Fatalf("Coerce() error = %q, want containing %q", errMsg, tt.wantErr)
				}
				return
			}
			if errMsg != "" {
				t.Fatalf("Coerce() unexpected error %q", errMsg)
			}
			if got != tt.want {
				t.Errorf("Coerce() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCoerceTaxID(t *testing.T) {
	strict := testCoercer(true)
	lax := testCoercer(false)
	spec := mustSpec(t, "cuit")

	// 20-24731538-2 carries the correct check digit; changing it breaks
	// the mod-11 checksum.
	if _, errMsg := strict.Coerce(spec, String("20-24731538-2")); errMsg != "" {
		t.Errorf("valid CUIT rejected: %q", errMsg)
	}
	if _, errMsg := strict.Coerce(spec, String("20-24731538-3")); errMsg == "" {
		t.Error("invalid CUIT accepted with checksum enabled")
	}
	if _, errMsg := lax.Coerce(spec, String("20-24731538-3")); errMsg != "" {
		t.Errorf("checksum applied while disabled: %q", errMsg)
	}
}

func TestValidCUIT(t *testing.T) {
	tests := []struct {
		digits string
		want   bool
	}{
		{"20247315382", true},
		{"20247315383", false},
		{"123", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ValidCUIT(tt.digits); got != tt.want {
			t.Errorf("ValidCUIT(%q) = %v, want %v", tt.digits, got, tt.want)
		}
	}
}
