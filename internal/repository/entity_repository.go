package repository

import (
	"context"
	"fmt"

	"github.com/mgaray/debtbase/internal/core"
	"github.com/mgaray/debtbase/internal/domain"
)

type entityRepository struct {
	db core.DBTX
}

// NewEntityRepository creates the entidades catalogue repository.
func NewEntityRepository(db core.DBTX) EntityRepository {
	return &entityRepository{db: db}
}

// ListAll returns the full catalogue. Callers build a transient lookup
// map per validate/commit call and discard it afterwards.
func (r *entityRepository) ListAll(ctx context.Context) ([]domain.Entidad, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, nombre, responsable, cargo, created_at FROM entidades ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list entidades: %w", err)
	}
	defer rows.Close()

	var entities []domain.Entidad
	for rows.Next() {
		var e domain.Entidad
		if err := rows.Scan(&e.ID, &e.Nombre, &e.Responsable, &e.Cargo, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan entidad: %w", err)
		}
		entities = append(entities, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list entidades: %w", err)
	}
	return entities, nil
}
