package core

// rules.go applies the domain invariants to a normalized, coerced row.
// The same function runs in both phases: staged rows can go stale
// between validate and commit, so commit re-runs every rule against the
// then-current record.

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mgaray/debtbase/internal/domain"
)

// ConflictFn answers the soft-uniqueness question: does any record other
// than excludeKey already hold a resolved estado for (dni, entidad)?
type ConflictFn func(ctx context.Context, dni string, entidadID int64, excludeKey string) (bool, error)

// RuleInput carries everything one validation needs.
type RuleInput struct {
	Op        domain.Operation
	Key       string                    // business key ("" for keyless inserts)
	Proposed  map[string]Value          // coerced editable fields present in the file
	Submitted map[string]Value          // normalized values as submitted, including immutable columns
	Existing  *domain.DebtRecord        // nil for inserts
	Today     time.Time
	Conflict  ConflictFn
}

// Validate checks every business rule and returns the accumulated
// human-readable error list. An empty list means the row is applicable.
func Validate(ctx context.Context, in RuleInput) ([]string, error) {
	var errs []string

	if in.Existing != nil {
		errs = append(errs, checkImmutable(in)...)
	}

	if in.Op == domain.OpInsert {
		errs = append(errs, checkInsertRequired(in)...)
	}

	errs = append(errs, checkDates(in)...)
	errs = append(errs, checkAmounts(in)...)
	errs = append(errs, checkEstado(in)...)

	softErrs, err := checkSoftUniqueness(ctx, in)
	if err != nil {
		return nil, err
	}
	errs = append(errs, softErrs...)

	return errs, nil
}

// checkImmutable rejects edits to the business key and fecha_apertura
// on existing records. A blank cell or a value equal to the stored one
// is a no-op, not an edit attempt.
func checkImmutable(in RuleInput) []string {
	var errs []string
	for _, name := range []string{domain.BusinessKeyField, "fecha_apertura"} {
		v, present := in.Submitted[name]
		if !present || !v.Valid {
			continue
		}
		if name == domain.BusinessKeyField {
			if in.Key == "" || v.Str == in.Key {
				continue
			}
		} else if stored, ok := in.Existing.FieldValue(name); ok && stored == v.Str {
			continue
		}
		errs = append(errs, fmt.Sprintf("%s: campo no editable", name))
	}
	return errs
}

func checkInsertRequired(in RuleInput) []string {
	var errs []string
	for _, spec := range Fields().Specs() {
		if !spec.InsertRequired {
			continue
		}
		if v, ok := in.Proposed[spec.Name]; !ok || !v.Valid || v.Str == "" {
			errs = append(errs, fmt.Sprintf("%s: obligatorio para INSERT", spec.Name))
		}
	}
	return errs
}

// effective returns the value the record would hold after applying the
// row: the proposed value if the file supplies the column, otherwise the
// stored one.
func effective(in RuleInput, name string) (string, bool) {
	if v, ok := in.Proposed[name]; ok {
		if !v.Valid {
			return "", false
		}
		return v.Str, true
	}
	return in.Existing.FieldValue(name)
}

func checkDates(in RuleInput) []string {
	var errs []string
	today := in.Today

	apertura, hasApertura := parseEffectiveDate(in, "fecha_apertura")
	deuda, hasDeuda := parseEffectiveDate(in, "fecha_deuda")

	if hasApertura && hasDeuda && !deuda.Before(apertura) {
		errs = append(errs, "fecha_deuda: debe ser anterior a fecha_apertura")
	}
	if hasApertura && apertura.After(today) {
		errs = append(errs, "fecha_apertura: no puede ser futura")
	}
	if hasDeuda && deuda.After(today) {
		errs = append(errs, "fecha_deuda: no puede ser futura")
	}
	return errs
}

func parseEffectiveDate(in RuleInput, name string) (time.Time, bool) {
	s, ok := effective(in, name)
	if !ok || s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func checkAmounts(in RuleInput) []string {
	var errs []string

	for _, spec := range Fields().Specs() {
		if !spec.Monetary {
			continue
		}
		v, ok := in.Proposed[spec.Name]
		if !ok || !v.Valid {
			continue
		}
		d, err := decimal.NewFromString(v.Str)
		if err != nil {
			continue // coercion already reported it
		}
		if d.IsNegative() {
			errs = append(errs, fmt.Sprintf("%s: no puede ser negativo", spec.Name))
		}
	}

	if v, ok := in.Proposed["interes_diario"]; ok && v.Valid {
		if d, err := decimal.NewFromString(v.Str); err == nil {
			if d.IsNegative() || d.GreaterThan(decimal.NewFromInt(1)) {
				errs = append(errs, "interes_diario: debe estar entre 0 y 1")
			}
		}
	}

	actualizado, okA := effectiveDecimal(in, "saldo_actualizado")
	exigible, okE := effectiveDecimal(in, "saldo_exigible")
	if okA && okE && actualizado.LessThan(exigible) {
		errs = append(errs, "saldo_actualizado: no puede ser menor que saldo_exigible")
	}

	return errs
}

func effectiveDecimal(in RuleInput, name string) (decimal.Decimal, bool) {
	s, ok := effective(in, name)
	if !ok || s == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// checkEstado enforces the estado/sub_estado state machine. Enum
// membership is already guaranteed by coercion; what remains is the
// conditional legality of sub_estado under the effective estado.
func checkEstado(in RuleInput) []string {
	subEstado, hasSub := effective(in, "sub_estado")
	if !hasSub || subEstado == "" || subEstado == SubEstadoComodin {
		return nil
	}

	estado, hasEstado := effective(in, "estado")
	if !hasEstado || estado == "" {
		return []string{"sub_estado: requiere un estado"}
	}

	for _, allowed := range SubEstadosPorEstado[estado] {
		if subEstado == allowed {
			return nil
		}
	}
	return []string{fmt.Sprintf("sub_estado: %q no es válido bajo estado %q", subEstado, estado)}
}

// checkSoftUniqueness applies the resolved-status rule: for a given
// (dni, entidad) pair at most one record may carry estado "cancelado" or
// "incobrable". The record being updated is excluded by its own key so
// it never conflicts with itself.
func checkSoftUniqueness(ctx context.Context, in RuleInput) ([]string, error) {
	if in.Conflict == nil {
		return nil, nil
	}

	estado, ok := effective(in, "estado")
	if !ok || !isResolvedEstado(estado) {
		return nil, nil
	}

	dni, ok := effective(in, "dni")
	if !ok || dni == "" {
		return nil, nil
	}
	entRaw, ok := effective(in, "entidad")
	if !ok || entRaw == "" {
		return nil, nil
	}
	entidadID, err := strconv.ParseInt(entRaw, 10, 64)
	if err != nil {
		return nil, nil
	}

	conflict, err := in.Conflict(ctx, dni, entidadID, in.Key)
	if err != nil {
		return nil, err
	}
	if conflict {
		return []string{fmt.Sprintf(
			"estado: ya existe un registro %s para dni %s y entidad %d", estado, dni, entidadID)}, nil
	}
	return nil, nil
}

func isResolvedEstado(estado string) bool {
	for _, e := range EstadosResueltos {
		if estado == e {
			return true
		}
	}
	return false
}
