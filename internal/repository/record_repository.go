package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/mgaray/debtbase/internal/core"
	"github.com/mgaray/debtbase/internal/domain"
)

type recordRepository struct {
	db core.DBTX
}

// NewRecordRepository creates the db_bia repository.
func NewRecordRepository(db core.DBTX) RecordRepository {
	return &recordRepository{db: db}
}

// selectList casts every column to text so records come back in the
// same canonical string form the pipeline diffs against.
func selectList() string {
	specs := core.Fields().Specs()
	cols := make([]string, len(specs))
	for i, spec := range specs {
		cols[i] = spec.Name + "::text"
	}
	return strings.Join(cols, ", ")
}

func scanRecord(rows pgx.Rows) (*domain.DebtRecord, error) {
	specs := core.Fields().Specs()
	values := make([]*string, len(specs))
	dest := make([]any, len(specs))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, err
	}

	rec := &domain.DebtRecord{Fields: make(map[string]string, len(specs))}
	for i, spec := range specs {
		if values[i] == nil {
			continue
		}
		rec.Fields[spec.Name] = canonicalStored(spec, *values[i])
	}
	rec.BusinessKey = rec.Fields[domain.BusinessKeyField]
	if raw, ok := rec.Fields["entidad"]; ok {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			rec.EntidadID = &id
		}
	}
	return rec, nil
}

// canonicalStored collapses Postgres' textual rendering to the
// pipeline's canonical form, so "100.50" and "100.5" never diff.
func canonicalStored(spec core.FieldSpec, s string) string {
	if spec.Type == core.FieldDecimal {
		if d, err := decimal.NewFromString(s); err == nil {
			return d.String()
		}
	}
	return s
}

func (r *recordRepository) FetchByKeys(ctx context.Context, keys []string) (map[string]*domain.DebtRecord, error) {
	result := make(map[string]*domain.DebtRecord, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = ANY($1)`,
		selectList(), domain.RecordTable, domain.BusinessKeyField)
	rows, err := r.db.Query(ctx, query, keys)
	if err != nil {
		return nil, fmt.Errorf("fetch records by keys: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		result[rec.BusinessKey] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch records by keys: %w", err)
	}
	return result, nil
}

func (r *recordRepository) GetByKey(ctx context.Context, key string) (*domain.DebtRecord, error) {
	recs, err := r.FetchByKeys(ctx, []string{key})
	if err != nil {
		return nil, err
	}
	rec, ok := recs[key]
	if !ok {
		return nil, core.ErrRecordNotFound
	}
	return rec, nil
}

func (r *recordRepository) UpdateBatch(ctx context.Context, updates []RecordUpdate) (int64, error) {
	if len(updates) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, u := range updates {
		set := make([]string, 0, len(u.Fields))
		args := make([]any, 0, len(u.Fields)+1)
		for _, spec := range core.Fields().Specs() {
			val, ok := u.Fields[spec.Name]
			if !ok {
				continue
			}
			set = append(set, fmt.Sprintf("%s = $%d", spec.Name, len(args)+1))
			args = append(args, val)
		}
		if len(set) == 0 {
			continue
		}
		args = append(args, u.Key)
		query := fmt.Sprintf(`UPDATE %s SET %s, updated_at = now() WHERE %s = $%d`,
			domain.RecordTable, strings.Join(set, ", "), domain.BusinessKeyField, len(args))
		batch.Queue(query, args...)
	}

	br := r.db.SendBatch(ctx, batch)
	defer br.Close()

	var matched int64
	for i := 0; i < batch.Len(); i++ {
		tag, err := br.Exec()
		if err != nil {
			return matched, fmt.Errorf("update record: %w", err)
		}
		matched += tag.RowsAffected()
	}
	return matched, nil
}

func (r *recordRepository) InsertBatch(ctx context.Context, inserts []RecordInsert) error {
	if len(inserts) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, ins := range inserts {
		cols := []string{domain.BusinessKeyField}
		args := []any{ins.Key}
		for _, spec := range core.Fields().Specs() {
			if spec.Name == domain.BusinessKeyField {
				continue
			}
			val, ok := ins.Fields[spec.Name]
			if !ok {
				continue
			}
			cols = append(cols, spec.Name)
			args = append(args, val)
		}
		placeholders := make([]string, len(args))
		for i := range placeholders {
			placeholders[i] = "$" + strconv.Itoa(i+1)
		}
		query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
			domain.RecordTable, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
		batch.Queue(query, args...)
	}

	br := r.db.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert record: %w", err)
		}
	}
	return nil
}

func (r *recordRepository) DeleteByKeys(ctx context.Context, keys []string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = ANY($1)`,
		domain.RecordTable, domain.BusinessKeyField)
	tag, err := r.db.Exec(ctx, query, keys)
	if err != nil {
		return 0, fmt.Errorf("delete records: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *recordRepository) MaxNumericKey(ctx context.Context) (int64, error) {
	query := fmt.Sprintf(
		`SELECT COALESCE(MAX(%s::bigint), 0) FROM %s WHERE %s ~ '^[0-9]+$'`,
		domain.BusinessKeyField, domain.RecordTable, domain.BusinessKeyField)

	var max int64
	if err := r.db.QueryRow(ctx, query).Scan(&max); err != nil {
		return 0, fmt.Errorf("max numeric key: %w", err)
	}
	return max, nil
}

func (r *recordRepository) HasResolvedConflict(ctx context.Context, dni string, entidadID int64, excludeKey string) (bool, error) {
	query := fmt.Sprintf(
		`SELECT EXISTS (
			SELECT 1 FROM %s
			WHERE dni = $1 AND entidad = $2 AND estado = ANY($3) AND %s <> $4
		)`, domain.RecordTable, domain.BusinessKeyField)

	var exists bool
	err := r.db.QueryRow(ctx, query, dni, entidadID, core.EstadosResueltos, excludeKey).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("resolved conflict check: %w", err)
	}
	return exists, nil
}
