// Package core implements the bulk import/modification pipeline for the
// debt registry: normalize, coerce, validate, diff, stage and commit.
// This package has no HTTP dependencies and is driven by the web layer.
package core

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
	SendBatch(context.Context, *pgx.Batch) pgx.BatchResults
}

// FieldType is the semantic type of a registry column.
type FieldType int

const (
	FieldText FieldType = iota
	FieldDecimal
	FieldDate
	FieldInteger
	FieldEmail
	FieldIdentifier // digits-only identifiers (dni)
	FieldTaxID      // cuit: digits plus optional checksum validation
	FieldEntityRef  // issuing entity, resolved by id or name
	FieldEnum
)

// FieldSpec describes one column of the live record for the pipeline.
type FieldSpec struct {
	Name           string
	Type           FieldType
	Editable       bool     // false for the business key and fecha_apertura
	InsertRequired bool     // must be non-empty for INSERT rows
	Monetary       bool     // subject to the >= 0 rule
	EnumValues     []string // closed value set for FieldEnum
}

// Cell is one raw spreadsheet value as handed over by the parser:
// string, float64, bool, time.Time or nil.
type Cell any

// Value is a normalized cell: either null (Valid=false) or a canonical
// string. Dates are YYYY-MM-DD, integral floats are collapsed to their
// integer form.
type Value struct {
	Str   string
	Valid bool
}

// Null is the normalized form of a missing or blank cell.
var Null = Value{}

// String wraps a non-null normalized value.
func String(s string) Value { return Value{Str: s, Valid: true} }

// Ptr returns the value as a nullable string pointer, the form used in
// staged payloads and audit entries.
func (v Value) Ptr() *string {
	if !v.Valid {
		return nil
	}
	s := v.Str
	return &s
}
