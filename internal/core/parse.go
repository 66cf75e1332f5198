package core

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/mgaray/debtbase/internal/domain"
)

var byteOrderMark = []byte{0xEF, 0xBB, 0xBF}

// ParsedColumn is one header cell after resolution against the field
// registry. Field is empty when the header matched nothing.
type ParsedColumn struct {
	Header string
	Field  string
	IsOp   bool
}

// ParsedRow is one data row keyed by resolved field name. Line is the
// 1-based position in the file, header included, so error messages can
// point at the spreadsheet row the user sees.
type ParsedRow struct {
	Line  int
	Cells map[string]Cell
	Hint  domain.Operation
}

// ParsedFile is the tabular input after header resolution. Unknown
// holds the raw headers that matched no field; they become row-level
// validation errors downstream, never a file-level failure.
type ParsedFile struct {
	Columns []ParsedColumn
	Unknown []string
	Rows    []ParsedRow
}

// ParseFile reads a CSV or XLSX payload into resolved rows. The key
// column (or an accepted alias) must be present; everything else is
// best-effort.
func ParseFile(filename string, payload []byte) (*ParsedFile, error) {
	records, err := readTable(filename, payload)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrEmptyFile
	}

	headerIdx := -1
	for idx, row := range records {
		if !rowIsBlank(row) {
			headerIdx = idx
			break
		}
	}
	if headerIdx == -1 {
		return nil, ErrEmptyFile
	}

	pf := &ParsedFile{}
	hasKey := false
	for _, raw := range records[headerIdx] {
		col := ParsedColumn{Header: strings.TrimSpace(raw)}
		norm := NormalizeHeader(col.Header)
		switch {
		case norm == NormalizeHeader(OpColumn):
			col.IsOp = true
		default:
			if spec, ok := Fields().Resolve(col.Header); ok {
				col.Field = spec.Name
				if spec.Name == domain.BusinessKeyField {
					hasKey = true
				}
			} else if col.Header != "" {
				pf.Unknown = append(pf.Unknown, col.Header)
			}
		}
		pf.Columns = append(pf.Columns, col)
	}
	if !hasKey {
		return nil, ErrMissingKeyColumn
	}

	for idx := headerIdx + 1; idx < len(records); idx++ {
		row := records[idx]
		if rowIsBlank(row) {
			continue
		}
		parsed := ParsedRow{Line: idx + 1, Cells: map[string]Cell{}}
		for c, col := range pf.Columns {
			if c >= len(row) {
				break
			}
			cell := row[c]
			if col.IsOp {
				if op, ok := domain.ParseOperation(cell); ok {
					parsed.Hint = op
				}
				continue
			}
			if col.Field == "" {
				continue
			}
			parsed.Cells[col.Field] = cell
		}
		pf.Rows = append(pf.Rows, parsed)
	}

	return pf, nil
}

func readTable(filename string, payload []byte) ([][]string, error) {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".csv":
		return readCSV(payload)
	case ".xlsx", ".xls":
		// .xls uploads are accepted as long as the payload is the
		// modern format; exporters routinely misname them.
		return readExcel(payload)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

func readCSV(payload []byte) ([][]string, error) {
	reader := bufio.NewReader(bytes.NewReader(payload))
	if prefix, err := reader.Peek(len(byteOrderMark)); err == nil && bytes.Equal(prefix, byteOrderMark) {
		_, _ = reader.Discard(len(byteOrderMark))
	}

	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return records, nil
}

func readExcel(payload []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read xlsx rows: %w", err)
	}
	return rows, nil
}

func rowIsBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
