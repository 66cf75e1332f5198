// Package domain defines the persisted aggregates of the debt registry:
// the live record table, issuing entities, bulk jobs, staged changes and
// the audit trail.
package domain

import "time"

// RecordTable is the physical name of the live registry table. Audit
// entries reference it by this name.
const RecordTable = "db_bia"

// BusinessKeyField is the user-facing unique identifier column.
// "business_key" is accepted as an alias in uploaded files.
const BusinessKeyField = "id_pago_unico"

// DebtRecord is one row of the live registry. Every field except the
// business key is independently nullable, which the pgx layer models as
// empty-string-invalid via the Fields map: a field absent from Fields is
// NULL in the table.
//
// The pipeline treats records as a business key, an optional issuing
// entity reference and a bag of scalar fields keyed by column name, all
// carried in canonical string form (dates as YYYY-MM-DD, decimals as
// plain decimal strings, entity refs as the numeric entity id).
type DebtRecord struct {
	BusinessKey string            `json:"id_pago_unico"`
	EntidadID   *int64            `json:"entidad_id,omitempty"`
	Fields      map[string]string `json:"campos"`
}

// FieldValue returns the stored canonical value for a column and whether
// it is non-NULL. The entity reference is reported as its numeric id.
func (r *DebtRecord) FieldValue(name string) (string, bool) {
	if r == nil {
		return "", false
	}
	v, ok := r.Fields[name]
	return v, ok
}

// Entidad is an issuing entity, the organizational owner of a debt
// record. Bulk rows may reference it by numeric id or by name.
type Entidad struct {
	ID          int64     `json:"id"`
	Nombre      string    `json:"nombre"`
	Responsable string    `json:"responsable"`
	Cargo       string    `json:"cargo"`
	CreatedAt   time.Time `json:"created_at"`
}
