package ids

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// DefaultSequence is the name of the counter every table draws ids from.
const DefaultSequence = "global_sequence"

// Sequence is a durable counter that hands out n fresh values per call.
// Implementations must never return a value twice.
type Sequence interface {
	Next(ctx context.Context, db bun.IDB, n int) ([]int64, error)
}

// SequenceFor picks the counter implementation for the handle's dialect.
func SequenceFor(db bun.IDB) Sequence {
	if db.Dialect().Name() == dialect.PG {
		return PGSequence{Name: DefaultSequence}
	}
	return TableSequence{Table: DefaultSequence, Key: "global"}
}

// PGSequence draws values from a Postgres SEQUENCE. nextval is atomic
// and non-transactional, so the values of a batch are unique but may be
// interleaved with other callers' values.
type PGSequence struct {
	Name string
}

func (s PGSequence) Next(ctx context.Context, db bun.IDB, n int) ([]int64, error) {
	values := make([]int64, 0, n)
	err := db.NewRaw("SELECT nextval(?) FROM generate_series(1, ?)", s.Name, n).
		Scan(ctx, &values)
	if err != nil {
		return nil, fmt.Errorf("nextval %s: %w", s.Name, err)
	}
	if len(values) != n {
		return nil, fmt.Errorf("nextval %s: got %d values, want %d", s.Name, len(values), n)
	}
	return values, nil
}

// TableSequence emulates a sequence with a single counter row. SQLite
// serializes writers, so one UPDATE reserves a contiguous block.
type TableSequence struct {
	Table string
	Key   string
}

func (s TableSequence) Next(ctx context.Context, db bun.IDB, n int) ([]int64, error) {
	var last int64
	err := db.NewRaw("UPDATE ? SET value = value + ? WHERE name = ? RETURNING value",
		bun.Ident(s.Table), n, s.Key).
		Scan(ctx, &last)
	if err != nil {
		return nil, fmt.Errorf("advance %s: %w", s.Table, err)
	}

	values := make([]int64, n)
	for i := range values {
		values[i] = last - int64(n) + int64(i) + 1
	}
	return values, nil
}
