package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mgaray/debtbase/internal/core"
	"github.com/mgaray/debtbase/internal/domain"
)

type counterRepository struct {
	db core.DBTX
}

// NewCounterRepository creates the sequential_counter repository.
func NewCounterRepository(db core.DBTX) CounterRepository {
	return &counterRepository{db: db}
}

// AllocateBlock reserves n consecutive business keys. The counter row
// is locked FOR UPDATE, so concurrent allocations serialize and blocks
// never overlap. The starting point is the greater of the stored
// counter and the live table maximum, which heals the counter after
// rows were added to the table by hand; tableMax runs only once the
// lock is held so a concurrent insert cannot slip between the read and
// the allocation. Must run inside the commit transaction.
func (r *counterRepository) AllocateBlock(ctx context.Context, n int, tableMax func(context.Context) (int64, error)) ([]int64, error) {
	if n == 0 {
		return []int64{}, nil
	}
	if n < 0 {
		return nil, fmt.Errorf("allocate block: negative count %d", n)
	}

	var current int64
	err := r.db.QueryRow(ctx,
		`SELECT last_value FROM sequential_counter WHERE table_name = $1 FOR UPDATE`,
		domain.RecordTable).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		// First allocation ever: seed the row, then lock it.
		_, err = r.db.Exec(ctx,
			`INSERT INTO sequential_counter (table_name, last_value) VALUES ($1, 0)
			ON CONFLICT (table_name) DO NOTHING`, domain.RecordTable)
		if err != nil {
			return nil, fmt.Errorf("seed counter: %w", err)
		}
		err = r.db.QueryRow(ctx,
			`SELECT last_value FROM sequential_counter WHERE table_name = $1 FOR UPDATE`,
			domain.RecordTable).Scan(&current)
	}
	if err != nil {
		return nil, fmt.Errorf("lock counter: %w", err)
	}

	liveMax, err := tableMax(ctx)
	if err != nil {
		return nil, fmt.Errorf("table max: %w", err)
	}
	if liveMax > current {
		current = liveMax
	}

	keys := make([]int64, n)
	for i := range keys {
		keys[i] = current + int64(i) + 1
	}

	_, err = r.db.Exec(ctx,
		`UPDATE sequential_counter SET last_value = $2, updated_at = now() WHERE table_name = $1`,
		domain.RecordTable, keys[n-1])
	if err != nil {
		return nil, fmt.Errorf("advance counter: %w", err)
	}
	return keys, nil
}
