package typeregistry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
)

// Repository handles database operations for the type tables
type Repository struct {
	db bun.IDB
}

// NewRepository creates a new type registry repository
func NewRepository(db bun.IDB) *Repository {
	return &Repository{db: db}
}

// FindByName returns the row named name, or nil if there is none.
func (r *Repository) FindByName(ctx context.Context, table Table, name string) (*TypeRecord, error) {
	var rec TypeRecord
	err := r.db.NewSelect().
		Model(&rec).
		ModelTableExpr("? AS t", bun.Ident(table)).
		Where("t.name = ?", name).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find %s %q: %w", table, name, err)
	}
	return &rec, nil
}

// InsertIfAbsent inserts rec unless a row with the same name exists, then
// reads back whichever row won. created reports whether rec was the winner.
func (r *Repository) InsertIfAbsent(ctx context.Context, table Table, rec TypeRecord) (_ *TypeRecord, created bool, err error) {
	res, err := r.db.NewInsert().
		Model(&rec).
		ModelTableExpr("?", bun.Ident(table)).
		On("CONFLICT (name) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("insert %s %q: %w", table, rec.Name, err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 1 {
		return &rec, true, nil
	}

	stored, err := r.FindByName(ctx, table, rec.Name)
	if err != nil {
		return nil, false, err
	}
	if stored == nil {
		return nil, false, fmt.Errorf("insert %s %q: row vanished after conflict", table, rec.Name)
	}
	return stored, false, nil
}

// List returns every row of table ordered by id.
func (r *Repository) List(ctx context.Context, table Table) ([]TypeRecord, error) {
	var recs []TypeRecord
	err := r.db.NewSelect().
		Model(&recs).
		ModelTableExpr("? AS t", bun.Ident(table)).
		OrderExpr("t.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	return recs, nil
}
