package core

// normalize.go converts raw spreadsheet scalars into canonical values
// before any typing or validation happens. Spreadsheets hand identifiers
// back as floats ("12345.0"), pad cells with whitespace and mix date
// representations; normalization undoes all of that so the rest of the
// pipeline only ever sees null or a canonical string.
//
// Normalization never fails and is idempotent: feeding a normalized
// value back in returns it unchanged.

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the canonical date form used throughout the pipeline.
const DateLayout = "2006-01-02"

// integralFloatRegex matches numeric strings that spreadsheet float
// coercion produces for integer identifiers: "12345.0", "12345.000".
var integralFloatRegex = regexp.MustCompile(`^[+-]?\d+\.0*$`)

// NormalizeCell converts one raw cell to its canonical form.
// Missing markers, NaN and blank-after-trim strings become null.
func NormalizeCell(raw Cell) Value {
	switch v := raw.(type) {
	case nil:
		return Null
	case Value:
		// Already normalized; pass through untouched.
		return v
	case string:
		return normalizeString(v)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Null
		}
		if v == math.Trunc(v) && math.Abs(v) < 1e15 {
			return String(strconv.FormatInt(int64(v), 10))
		}
		return String(strconv.FormatFloat(v, 'f', -1, 64))
	case bool:
		return String(strconv.FormatBool(v))
	case int:
		return String(strconv.Itoa(v))
	case int64:
		return String(strconv.FormatInt(v, 10))
	case time.Time:
		return String(v.Format(DateLayout))
	default:
		return Null
	}
}

func normalizeString(s string) Value {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") {
		return Null
	}
	// Undo spreadsheet float coercion of integer identifiers.
	if integralFloatRegex.MatchString(s) {
		s = s[:strings.IndexByte(s, '.')]
		if s == "" || s == "+" || s == "-" {
			return String("0")
		}
		s = strings.TrimPrefix(s, "+")
	}
	// Collapse datetime strings to their date part.
	if t, ok := parseTemporal(s); ok {
		return String(t.Format(DateLayout))
	}
	return String(s)
}

// temporalLayouts are the datetime forms collapsed to YYYY-MM-DD during
// normalization. Plain dates in other layouts stay as-is here; the
// coercer owns per-field date parsing.
var temporalLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

func parseTemporal(s string) (time.Time, bool) {
	for _, layout := range temporalLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// NormalizeRow normalizes every cell of a raw row.
func NormalizeRow(raw map[string]Cell) map[string]Value {
	out := make(map[string]Value, len(raw))
	for k, v := range raw {
		out[strings.TrimSpace(k)] = NormalizeCell(v)
	}
	return out
}

// NormalizeBusinessKey canonicalizes the business key: null for blanks,
// "123.0" collapses to "123", surrounding whitespace dropped.
func NormalizeBusinessKey(raw Cell) Value {
	return NormalizeCell(raw)
}

// IsBlankRow reports whether every cell of a raw row normalizes to null.
// Fully blank rows are skipped before staging.
func IsBlankRow(raw map[string]Cell) bool {
	for _, v := range raw {
		if NormalizeCell(v).Valid {
			return false
		}
	}
	return true
}
