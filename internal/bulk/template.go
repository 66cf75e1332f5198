package bulk

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/mgaray/debtbase/internal/core"
)

const templateSheet = "datos"

// Template builds the empty XLSX upload template: one header per known
// field plus the operation hint column, with a comment row describing
// the expected formats.
func Template() ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	idx, err := f.NewSheet(templateSheet)
	if err != nil {
		return nil, fmt.Errorf("template sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("template sheet: %w", err)
	}

	headers := make([]string, 0, len(core.Fields().Specs())+1)
	hints := make([]string, 0, cap(headers))
	for _, spec := range core.Fields().Specs() {
		headers = append(headers, spec.Name)
		hints = append(hints, fieldHint(spec))
	}
	headers = append(headers, core.OpColumn)
	hints = append(hints, "UPDATE | INSERT | DELETE | NOCHANGE (opcional)")

	if err := f.SetSheetRow(templateSheet, "A1", &headers); err != nil {
		return nil, fmt.Errorf("template headers: %w", err)
	}
	if err := f.SetSheetRow(templateSheet, "A2", &hints); err != nil {
		return nil, fmt.Errorf("template hints: %w", err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("template write: %w", err)
	}
	return buf.Bytes(), nil
}

func fieldHint(spec core.FieldSpec) string {
	switch spec.Type {
	case core.FieldDate:
		return "YYYY-MM-DD"
	case core.FieldDecimal:
		return "decimal, punto como separador"
	case core.FieldInteger:
		return "entero"
	case core.FieldEmail:
		return "email"
	case core.FieldEntityRef:
		return "id numérico o nombre de entidad"
	case core.FieldEnum:
		return "uno de los valores permitidos"
	case core.FieldIdentifier, core.FieldTaxID:
		return "solo dígitos"
	default:
		return "texto"
	}
}
