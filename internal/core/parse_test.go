package core

import (
	"bytes"
	"errors"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/mgaray/debtbase/internal/domain"
)

func TestParseFileCSV(t *testing.T) {
	payload := []byte("id_pago_unico,DNI,Nombre Apellido,__op\n" +
		"1001,12345678,Pérez Juan,UPDATE\n" +
		"\n" +
		"1002,87654321,García Ana,\n")

	pf, err := ParseFile("carga.csv", payload)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}

	if len(pf.Columns) != 4 {
		t.Fatalf("Columns = %d, want 4", len(pf.Columns))
	}
	if pf.Columns[0].Field != domain.BusinessKeyField {
		t.Errorf("column 0 resolved to %q", pf.Columns[0].Field)
	}
	if pf.Columns[1].Field != "dni" || pf.Columns[2].Field != "nombre_apellido" {
		t.Errorf("header aliases not resolved: %+v", pf.Columns[1:3])
	}
	if !pf.Columns[3].IsOp {
		t.Error("__op column not recognized")
	}
	if len(pf.Unknown) != 0 {
		t.Errorf("Unknown = %v", pf.Unknown)
	}

	if len(pf.Rows) != 2 {
		t.Fatalf("Rows = %d, want 2 (blank row skipped)", len(pf.Rows))
	}
	first := pf.Rows[0]
	if first.Line != 2 {
		t.Errorf("first row Line = %d, want 2", first.Line)
	}
	if first.Hint != domain.OpUpdate {
		t.Errorf("first row Hint = %q", first.Hint)
	}
	if first.Cells["dni"] != "12345678" {
		t.Errorf("dni cell = %v", first.Cells["dni"])
	}
	second := pf.Rows[1]
	if second.Line != 4 {
		t.Errorf("second row Line = %d, want 4", second.Line)
	}
	if second.Hint != "" {
		t.Errorf("empty hint parsed as %q", second.Hint)
	}
}

func TestParseFileBOM(t *testing.T) {
	payload := append([]byte{0xEF, 0xBB, 0xBF}, []byte("id_pago_unico,dni\n1001,12345678\n")...)

	pf, err := ParseFile("carga.csv", payload)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if pf.Columns[0].Field != domain.BusinessKeyField {
		t.Errorf("BOM not stripped, column 0 = %+v", pf.Columns[0])
	}
}

func TestParseFileExcel(t *testing.T) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if err := f.SetSheetRow("Sheet1", "A1", &[]string{"id_pago_unico", "dni", "__op"}); err != nil {
		t.Fatalf("write header: %v", err)
	}
	if err := f.SetSheetRow("Sheet1", "A2", &[]string{"1001", "12345678", "DELETE"}); err != nil {
		t.Fatalf("write row: %v", err)
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	// Misnamed .xls uploads carry the same payload.
	for _, name := range []string{"carga.xlsx", "carga.xls"} {
		t.Run(name, func(t *testing.T) {
			pf, err := ParseFile(name, buf.Bytes())
			if err != nil {
				t.Fatalf("ParseFile: %v", err)
			}
			if len(pf.Rows) != 1 {
				t.Fatalf("Rows = %d, want 1", len(pf.Rows))
			}
			row := pf.Rows[0]
			if row.Hint != domain.OpDelete {
				t.Errorf("Hint = %q", row.Hint)
			}
			if row.Cells["dni"] != "12345678" {
				t.Errorf("dni cell = %v", row.Cells["dni"])
			}
		})
	}
}

func TestParseFileMessyHeaders(t *testing.T) {
	payload := []byte("Business_Key,SALDO ACTUALIZADO,Teléfono Extra\n1001,100.50,x\n")

	pf, err := ParseFile("carga.csv", payload)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if pf.Columns[0].Field != domain.BusinessKeyField {
		t.Errorf("business_key alias not resolved: %+v", pf.Columns[0])
	}
	if pf.Columns[1].Field != "saldo_actualizado" {
		t.Errorf("spaced header not resolved: %+v", pf.Columns[1])
	}
	if len(pf.Unknown) != 1 || pf.Unknown[0] != "Teléfono Extra" {
		t.Errorf("Unknown = %v", pf.Unknown)
	}
}

func TestParseFileErrors(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		payload  string
		wantErr  error
	}{
		{name: "empty file", filename: "carga.csv", payload: "", wantErr: ErrEmptyFile},
		{name: "only blank rows", filename: "carga.csv", payload: "\n , ,\n", wantErr: ErrEmptyFile},
		{name: "missing key column", filename: "carga.csv", payload: "dni,saldo\n1,2\n", wantErr: ErrMissingKeyColumn},
		{name: "unsupported extension", filename: "carga.txt", payload: "a,b\n", wantErr: ErrUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFile(tt.filename, []byte(tt.payload))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ParseFile err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNormalizeHeader(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"ID Pago Único", "idpagounico"},
		{"Nombre_Apellido", "nombreapellido"},
		{"  saldo-actualizado  ", "saldoactualizado"},
		{"TELÉFONO.1", "telefono1"},
	}
	for _, tt := range tests {
		if got := NormalizeHeader(tt.in); got != tt.want {
			t.Errorf("NormalizeHeader(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
