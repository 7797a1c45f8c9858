package ids_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/adsharma/truth-serum/domain/ids"
	dbtest "github.com/adsharma/truth-serum/internal/testutil"
	"github.com/adsharma/truth-serum/pkg/apperror"
	"github.com/adsharma/truth-serum/pkg/metrics"
)

func TestAllocate_ReturnsDistinctValues(t *testing.T) {
	db := dbtest.NewTestDB(t)
	alloc := ids.NewAllocator(db.DB, dbtest.Logger())
	ctx := context.Background()

	seen := make(map[int64]bool)
	for _, n := range []int{1, 5, 0, 10, 3} {
		values, err := alloc.Allocate(ctx, n)
		require.NoError(t, err)
		require.Len(t, values, n)

		for _, v := range values {
			assert.False(t, seen[v], "id %d returned twice", v)
			assert.Positive(t, v)
			seen[v] = true
		}
	}
	assert.Len(t, seen, 19)
}

func TestAllocate_ZeroDoesNotTouchStorage(t *testing.T) {
	db := dbtest.NewTestDB(t)
	counter := dbtest.CountQueries(db.DB)
	alloc := ids.NewAllocator(db.DB, dbtest.Logger())

	values, err := alloc.Allocate(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, values)
	assert.Zero(t, counter.Total())
}

func TestAllocate_NegativeIsInvalid(t *testing.T) {
	db := dbtest.NewTestDB(t)
	alloc := ids.NewAllocator(db.DB, dbtest.Logger())

	_, err := alloc.Allocate(context.Background(), -1)
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)
}

func TestAllocate_SurvivesCallerRollback(t *testing.T) {
	db := dbtest.NewTestDB(t)
	alloc := ids.NewAllocator(db.DB, dbtest.Logger())
	ctx := context.Background()

	first, err := alloc.Allocate(ctx, 3)
	require.NoError(t, err)

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	second, err := alloc.Allocate(ctx, 3)
	require.NoError(t, err)
	assert.Greater(t, second[0], first[2])
}

func TestAllocate_ConcurrentCallersNeverCollide(t *testing.T) {
	db := dbtest.NewTestDB(t)
	alloc := ids.NewAllocator(db.DB, dbtest.Logger())
	ctx := context.Background()

	const workers, perWorker = 8, 25
	var (
		mu   sync.Mutex
		all  []int64
		wg   sync.WaitGroup
		errs = make(chan error, workers)
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				v, err := alloc.Allocate(ctx, 2)
				if err != nil {
					errs <- err
					return
				}
				mu.Lock()
				all = append(all, v...)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	seen := make(map[int64]bool, len(all))
	for _, v := range all {
		require.False(t, seen[v], "id %d returned twice", v)
		seen[v] = true
	}
	assert.Len(t, seen, workers*perWorker*2)
}

type brokenSequence struct{}

func (brokenSequence) Next(context.Context, bun.IDB, int) ([]int64, error) {
	return nil, errors.New("connection refused")
}

func TestAllocate_FailureIsAllocationError(t *testing.T) {
	db := dbtest.NewTestDB(t)
	alloc := ids.NewAllocatorWithSequence(db.DB, brokenSequence{}, dbtest.Logger())
	before := testutil.ToFloat64(metrics.AllocationFailures)

	_, err := alloc.Allocate(context.Background(), 4)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrAllocation)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.AllocationFailures))
}

func TestAllocate_MissingCounterFails(t *testing.T) {
	db := dbtest.NewTestDB(t)
	_, err := db.NewRaw("DELETE FROM global_sequence").Exec(context.Background())
	require.NoError(t, err)

	alloc := ids.NewAllocator(db.DB, dbtest.Logger())
	_, err = alloc.Allocate(context.Background(), 1)
	assert.ErrorIs(t, err, apperror.ErrAllocation)
}

func TestNext(t *testing.T) {
	db := dbtest.NewTestDB(t)
	alloc := ids.NewAllocator(db.DB, dbtest.Logger())
	ctx := context.Background()

	a, err := alloc.Next(ctx)
	require.NoError(t, err)
	b, err := alloc.Next(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestAllocate_PostgresSequence(t *testing.T) {
	db := dbtest.NewPostgresTestDB(t)
	ctx := context.Background()

	assert.Equal(t, ids.PGSequence{Name: ids.DefaultSequence}, ids.SequenceFor(db.DB))

	a := ids.NewAllocator(db.DB, dbtest.Logger())
	b := ids.NewAllocator(db.DB, dbtest.Logger())

	seen := make(map[int64]bool)
	for _, alloc := range []*ids.Allocator{a, b, a} {
		values, err := alloc.Allocate(ctx, 4)
		require.NoError(t, err)
		require.Len(t, values, 4)
		for _, v := range values {
			assert.False(t, seen[v], "id %d returned twice", v)
			seen[v] = true
		}
	}
	assert.Len(t, seen, 12)

	// nextval is not rolled back with the caller's transaction
	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	inTx, err := ids.SequenceFor(db.DB).Next(ctx, tx, 2)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	after, err := a.Next(ctx)
	require.NoError(t, err)
	assert.Greater(t, after, inTx[1])
}
