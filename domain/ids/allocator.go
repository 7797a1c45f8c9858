// Package ids allocates identifiers from the global sequence shared by every
// entity and relation table.
package ids

import (
	"context"
	"log/slog"

	"github.com/uptrace/bun"

	"github.com/adsharma/truth-serum/pkg/apperror"
	"github.com/adsharma/truth-serum/pkg/logger"
	"github.com/adsharma/truth-serum/pkg/metrics"
)

// Allocator issues batches of globally unique identifiers.
//
// Callers must not assume a batch is contiguous. Allocation runs on its
// own statement outside any caller transaction, so ids handed out to a
// batch that later rolls back are burnt rather than reissued.
type Allocator struct {
	db  bun.IDB
	seq Sequence
	log *slog.Logger
}

// NewAllocator creates an allocator backed by the dialect's default sequence.
func NewAllocator(db bun.IDB, log *slog.Logger) *Allocator {
	return NewAllocatorWithSequence(db, SequenceFor(db), log)
}

// NewAllocatorWithSequence creates an allocator over an explicit counter.
func NewAllocatorWithSequence(db bun.IDB, seq Sequence, log *slog.Logger) *Allocator {
	return &Allocator{
		db:  db,
		seq: seq,
		log: log.With(logger.Scope("ids.allocator")),
	}
}

// Allocate returns n distinct identifiers never returned before.
// Allocate(0) returns an empty slice without touching storage.
func (a *Allocator) Allocate(ctx context.Context, n int) ([]int64, error) {
	if n < 0 {
		return nil, apperror.NewInvalidArgument("allocate: n must be >= 0, got %d", n)
	}
	if n == 0 {
		return []int64{}, nil
	}

	values, err := a.seq.Next(ctx, a.db, n)
	if err != nil {
		metrics.AllocationFailures.Inc()
		a.log.Error("id allocation failed", slog.Int("n", n), logger.Error(err))
		return nil, apperror.ErrAllocation.WithInternal(err)
	}

	metrics.IDsAllocated.Add(float64(n))
	a.log.Debug("ids allocated", slog.Int("n", n), slog.Int64("first", values[0]))
	return values, nil
}

// Next returns a single identifier.
func (a *Allocator) Next(ctx context.Context) (int64, error) {
	values, err := a.Allocate(ctx, 1)
	if err != nil {
		return 0, err
	}
	return values[0], nil
}
