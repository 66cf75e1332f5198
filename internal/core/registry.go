package core

// registry.go declares the typed field registry for the live record.
// Coercion and validation dispatch on this registry instead of any kind
// of reflective attribute access; it is built once at package init.

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/mgaray/debtbase/internal/domain"
)

// OpColumn is the optional per-row operation hint column.
const OpColumn = "__op"

// BusinessKeyAlias is accepted in file headers in place of the business
// key column name.
const BusinessKeyAlias = "business_key"

// EstadoValues is the closed status enumeration.
var EstadoValues = []string{
	"activo", "plan de pago", "judicializado", "cancelado", "incobrable",
}

// SubEstadosPorEstado maps each estado to its legal sub-estados.
// SubEstadoComodin is additionally valid under any estado.
var SubEstadosPorEstado = map[string][]string{
	"activo":        {"en gestion", "sin contacto", "promesa de pago"},
	"plan de pago":  {"al dia", "atrasado"},
	"judicializado": {"demandado", "sentencia"},
	"cancelado":     {"total", "con quita"},
	"incobrable":    {"fallecido", "quiebra"},
}

// SubEstadoComodin is the escape sub-estado, legal regardless of estado.
const SubEstadoComodin = "en revision"

// EstadosResueltos are the two statuses subject to the soft uniqueness
// rule: at most one record per (dni, entidad) may carry one of them.
var EstadosResueltos = []string{"cancelado", "incobrable"}

func allSubEstados() []string {
	seen := map[string]bool{SubEstadoComodin: true}
	out := []string{SubEstadoComodin}
	for _, subs := range SubEstadosPorEstado {
		for _, s := range subs {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}

// fieldSpecs lists every column of db_bia in table order. The business
// key and fecha_apertura are carried for completeness but are not
// editable through the bulk pipeline.
var fieldSpecs = []FieldSpec{
	{Name: domain.BusinessKeyField, Type: FieldIdentifier},
	{Name: "creditos", Type: FieldText, Editable: true},
	{Name: "propietario", Type: FieldText, Editable: true},
	{Name: "entidadoriginal", Type: FieldText, Editable: true},
	{Name: "entidadinterna", Type: FieldText, Editable: true},
	{Name: "entidad", Type: FieldEntityRef, Editable: true},
	{Name: "grupo", Type: FieldText, Editable: true},
	{Name: "tramo", Type: FieldText, Editable: true},
	{Name: "comision", Type: FieldDecimal, Editable: true, Monetary: true},
	{Name: "dni", Type: FieldIdentifier, Editable: true, InsertRequired: true},
	{Name: "cuit", Type: FieldTaxID, Editable: true, InsertRequired: true},
	{Name: "nombre_apellido", Type: FieldText, Editable: true, InsertRequired: true},
	{Name: "fecha_apertura", Type: FieldDate},
	{Name: "fecha_deuda", Type: FieldDate, Editable: true},
	{Name: "saldo_capital", Type: FieldDecimal, Editable: true, Monetary: true},
	{Name: "saldo_exigible", Type: FieldDecimal, Editable: true, Monetary: true},
	{Name: "interes_diario", Type: FieldDecimal, Editable: true},
	{Name: "interes_total", Type: FieldDecimal, Editable: true, Monetary: true},
	{Name: "saldo_actualizado", Type: FieldDecimal, Editable: true, Monetary: true},
	{Name: "cancel_min", Type: FieldText, Editable: true},
	{Name: "cod_rp", Type: FieldText, Editable: true},
	{Name: "agencia", Type: FieldText, Editable: true},
	{Name: "estado", Type: FieldEnum, Editable: true, EnumValues: EstadoValues},
	{Name: "sub_estado", Type: FieldEnum, Editable: true, EnumValues: allSubEstados()},
	{Name: "tel1", Type: FieldText, Editable: true},
	{Name: "tel2", Type: FieldText, Editable: true},
	{Name: "tel3", Type: FieldText, Editable: true},
	{Name: "tel4", Type: FieldText, Editable: true},
	{Name: "tel5", Type: FieldText, Editable: true},
	{Name: "mail1", Type: FieldEmail, Editable: true},
	{Name: "mail2", Type: FieldEmail, Editable: true},
	{Name: "mail3", Type: FieldEmail, Editable: true},
	{Name: "provincia", Type: FieldText, Editable: true},
	{Name: "pago_acumulado", Type: FieldDecimal, Editable: true, Monetary: true},
	{Name: "ultima_fecha_pago", Type: FieldDate, Editable: true},
	{Name: "fecha_plan", Type: FieldDate, Editable: true},
	{Name: "anticipo", Type: FieldDecimal, Editable: true, Monetary: true},
	{Name: "cuotas", Type: FieldInteger, Editable: true},
	{Name: "importe", Type: FieldDecimal, Editable: true, Monetary: true},
	{Name: "total_plan", Type: FieldDecimal, Editable: true, Monetary: true},
	{Name: "saldo", Type: FieldDecimal, Editable: true, Monetary: true},
}

// Registry resolves column names (including messy spreadsheet headers)
// to field specs.
type Registry struct {
	specs   []FieldSpec
	byName  map[string]*FieldSpec
	byAlias map[string]*FieldSpec // normalized header form -> spec
}

var registry = buildRegistry(fieldSpecs)

// Fields returns the shared registry for the live record.
func Fields() *Registry { return registry }

func buildRegistry(specs []FieldSpec) *Registry {
	r := &Registry{
		specs:   specs,
		byName:  make(map[string]*FieldSpec, len(specs)),
		byAlias: make(map[string]*FieldSpec, len(specs)),
	}
	for i := range r.specs {
		spec := &r.specs[i]
		r.byName[spec.Name] = spec
		r.byAlias[NormalizeHeader(spec.Name)] = spec
	}
	r.byAlias[NormalizeHeader(BusinessKeyAlias)] = r.byName[domain.BusinessKeyField]
	return r
}

// Get looks a spec up by exact field name.
func (r *Registry) Get(name string) (*FieldSpec, bool) {
	spec, ok := r.byName[name]
	return spec, ok
}

// Resolve matches a raw file header against the registry, tolerating
// case, accents, spacing and punctuation differences.
func (r *Registry) Resolve(header string) (*FieldSpec, bool) {
	spec, ok := r.byAlias[NormalizeHeader(header)]
	return spec, ok
}

// Specs returns the registry's specs in table order.
func (r *Registry) Specs() []FieldSpec { return r.specs }

// EditableNames returns the names of bulk-editable columns in order.
func (r *Registry) EditableNames() []string {
	var out []string
	for _, spec := range r.specs {
		if spec.Editable {
			out = append(out, spec.Name)
		}
	}
	return out
}

var headerStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeHeader reduces a column header to its matching form: accents
// stripped, punctuation and spaces removed, lowercased.
func NormalizeHeader(h string) string {
	h = strings.TrimSpace(h)
	if stripped, _, err := transform.String(headerStripper, h); err == nil {
		h = stripped
	}
	var b strings.Builder
	b.Grow(len(h))
	for _, r := range h {
		switch r {
		case '.', '-', '_', ',', ';', ':', '/', '\\', ' ':
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
