package core

// coerce.go converts normalized values into each field's semantic type.
// Coercion failures are field-qualified error strings collected on the
// row, never errors that abort the file.

import (
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// EntityLookup resolves issuing entity references for one validate or
// commit call. It is rebuilt from the entities table at the start of
// each call and discarded afterwards, never cached across requests.
type EntityLookup struct {
	byID   map[int64]string // id -> nombre
	byName map[string]int64 // normalized nombre -> id
}

// NewEntityLookup builds a lookup over the given entities.
func NewEntityLookup(entities map[int64]string) *EntityLookup {
	l := &EntityLookup{
		byID:   make(map[int64]string, len(entities)),
		byName: make(map[string]int64, len(entities)),
	}
	for id, nombre := range entities {
		l.byID[id] = nombre
		l.byName[strings.ToLower(strings.TrimSpace(nombre))] = id
	}
	return l
}

// ByID returns the entity name for an id.
func (l *EntityLookup) ByID(id int64) (string, bool) {
	n, ok := l.byID[id]
	return n, ok
}

// ByName resolves a case-insensitive exact name match.
func (l *EntityLookup) ByName(name string) (int64, bool) {
	id, ok := l.byName[strings.ToLower(strings.TrimSpace(name))]
	return id, ok
}

// Display renders an entity reference the way previews show it.
func (l *EntityLookup) Display(id int64) string {
	if nombre, ok := l.byID[id]; ok {
		return fmt.Sprintf("%d · %s", id, nombre)
	}
	return strconv.FormatInt(id, 10)
}

// Coercer turns normalized values into canonical typed strings according
// to the field registry.
type Coercer struct {
	registry       *Registry
	entities       *EntityLookup
	validateTaxIDs bool
}

// NewCoercer builds a coercer bound to a per-call entity lookup.
func NewCoercer(reg *Registry, entities *EntityLookup, validateTaxIDs bool) *Coercer {
	return &Coercer{registry: reg, entities: entities, validateTaxIDs: validateTaxIDs}
}

// dateLayouts are the accepted input date forms, canonical first.
var dateLayouts = []string{
	DateLayout,
	"2006/01/02",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"01/02/2006",
	"20060102",
}

// Coerce converts one normalized value to the field's semantic type,
// returning the canonical string and a field-qualified error message.
// Null always coerces to null (for the entity reference it clears it).
func (c *Coercer) Coerce(spec *FieldSpec, v Value) (Value, string) {
	if !v.Valid {
		return Null, ""
	}

	switch spec.Type {
	case FieldText:
		return v, ""

	case FieldEntityRef:
		return c.coerceEntity(v)

	case FieldIdentifier:
		digits := digitsOnly(v.Str)
		if digits == "" {
			return Null, fmt.Sprintf("%s: se esperaban dígitos, se recibió %q", spec.Name, v.Str)
		}
		return String(digits), ""

	case FieldTaxID:
		digits := digitsOnly(v.Str)
		if digits == "" {
			return Null, fmt.Sprintf("%s: se esperaban dígitos, se recibió %q", spec.Name, v.Str)
		}
		if c.validateTaxIDs && !ValidCUIT(digits) {
			return Null, fmt.Sprintf("%s: CUIT inválido %q", spec.Name, digits)
		}
		return String(digits), ""

	case FieldDecimal:
		d, err := decimal.NewFromString(strings.ReplaceAll(v.Str, ",", "."))
		if err != nil {
			return Null, fmt.Sprintf("%s: número inválido %q", spec.Name, v.Str)
		}
		return String(d.String()), ""

	case FieldDate:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, v.Str); err == nil {
				return String(t.Format(DateLayout)), ""
			}
		}
		return Null, fmt.Sprintf("%s: fecha inválida %q (use YYYY-MM-DD)", spec.Name, v.Str)

	case FieldInteger:
		n, err := strconv.ParseInt(v.Str, 10, 64)
		if err != nil {
			return Null, fmt.Sprintf("%s: entero inválido %q", spec.Name, v.Str)
		}
		return String(strconv.FormatInt(n, 10)), ""

	case FieldEmail:
		if _, err := mail.ParseAddress(v.Str); err != nil {
			return Null, fmt.Sprintf("%s: email inválido %q", spec.Name, v.Str)
		}
		return String(strings.ToLower(v.Str)), ""

	case FieldEnum:
		needle := strings.ToLower(strings.TrimSpace(v.Str))
		for _, ev := range spec.EnumValues {
			if needle == ev {
				return String(ev), ""
			}
		}
		return Null, fmt.Sprintf("%s: valor %q fuera del conjunto permitido", spec.Name, v.Str)
	}

	return v, ""
}

// coerceEntity resolves an entity reference. All-digit input is treated
// as an id; anything else as a case-insensitive name.
func (c *Coercer) coerceEntity(v Value) (Value, string) {
	s := strings.TrimSpace(v.Str)
	if isAllDigits(s) {
		id, _ := strconv.ParseInt(s, 10, 64)
		if _, ok := c.entities.ByID(id); !ok {
			return Null, "entidad: id inexistente"
		}
		return String(strconv.FormatInt(id, 10)), ""
	}
	id, ok := c.entities.ByName(s)
	if !ok {
		return Null, "entidad: no encontrada por nombre"
	}
	return String(strconv.FormatInt(id, 10)), ""
}

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// cuitWeights are the mod-11 weights for the CUIT check digit.
var cuitWeights = [10]int{5, 4, 3, 2, 7, 6, 5, 4, 3, 2}

// ValidCUIT verifies the standard 11-digit CUIT checksum. Input must be
// digits only.
func ValidCUIT(digits string) bool {
	if len(digits) != 11 {
		return false
	}
	sum := 0
	for i := 0; i < 10; i++ {
		sum += int(digits[i]-'0') * cuitWeights[i]
	}
	check := 11 - sum%11
	switch check {
	case 11:
		check = 0
	case 10:
		check = 9
	}
	return check == int(digits[10]-'0')
}
