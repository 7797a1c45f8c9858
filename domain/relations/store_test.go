package relations_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adsharma/truth-serum/domain/relations"
	"github.com/adsharma/truth-serum/internal/database"
	"github.com/adsharma/truth-serum/internal/testutil"
	"github.com/adsharma/truth-serum/pkg/apperror"
)

var fixedNow = time.Date(2024, time.March, 5, 17, 42, 0, 0, time.FixedZone("PST", -8*3600))

func newStore(t *testing.T) (*relations.Store, context.Context) {
	t.Helper()
	return newStoreOn(t, testutil.NewTestDB(t))
}

func newStoreOn(t *testing.T, db *database.DB) (*relations.Store, context.Context) {
	t.Helper()
	store := relations.NewStore(db.DB, testutil.Logger())
	store.SetClock(func() time.Time { return fixedNow })
	return store, context.Background()
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T { return &v }

func TestInsert_AppliesDefaults(t *testing.T) {
	store, ctx := newStore(t)

	_, err := store.Insert(ctx, relations.Params{Src: 1, RType: 2, Dst: 3})
	require.NoError(t, err)

	rels, err := store.Find(ctx, relations.Filter{Src: ptr(int64(1))})
	require.NoError(t, err)
	require.Len(t, rels, 1)

	got := rels[0]
	assert.Equal(t, int64(2), got.RType)
	assert.Equal(t, int64(3), got.Dst)
	assert.True(t, day(2024, time.March, 5).Equal(got.Start), "start is the calendar day of insertion, got %s", got.Start)
	require.NotNil(t, got.End)
	assert.True(t, relations.Infinity.Equal(got.End.UTC()))
	assert.Equal(t, 1.0, got.Probability)
	assert.Equal(t, relations.GroundTruth, got.Viewpoint)
}

func TestInsert_ExplicitValues(t *testing.T) {
	store, ctx := newStore(t)

	rel, err := store.Insert(ctx, relations.Params{
		Src:         10,
		RType:       20,
		Dst:         30,
		Start:       ptr(time.Date(1990, time.May, 1, 13, 0, 0, 0, time.UTC)),
		End:         ptr(day(2000, time.January, 1)),
		Probability: ptr(0.25),
		Viewpoint:   ptr(int64(77)),
	})
	require.NoError(t, err)
	assert.Equal(t, day(1990, time.May, 1), rel.Start)

	rels, err := store.Find(ctx, relations.Filter{Viewpoint: ptr(int64(77))})
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, 0.25, rels[0].Probability)
	assert.True(t, day(2000, time.January, 1).Equal(rels[0].End.UTC()))
}

func TestInsert_Validation(t *testing.T) {
	store, ctx := newStore(t)

	tests := []struct {
		name   string
		params relations.Params
	}{
		{"probability above one", relations.Params{Src: 1, RType: 2, Dst: 3, Probability: ptr(1.5)}},
		{"negative probability", relations.Params{Src: 1, RType: 2, Dst: 3, Probability: ptr(-0.1)}},
		{"end before start", relations.Params{
			Src: 1, RType: 2, Dst: 3,
			Start: ptr(day(2020, time.June, 1)),
			End:   ptr(day(2019, time.June, 1)),
		}},
		{"empty window", relations.Params{
			Src: 1, RType: 2, Dst: 3,
			Start: ptr(day(2020, time.June, 1)),
			End:   ptr(day(2020, time.June, 1)),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Insert(ctx, tt.params)
			assert.ErrorIs(t, err, apperror.ErrInvalidArgument)
		})
	}
}

func TestInsert_DuplicateKey(t *testing.T) {
	store, ctx := newStore(t)
	p := relations.Params{Src: 1, RType: 2, Dst: 3}

	_, err := store.Insert(ctx, p)
	require.NoError(t, err)

	_, err = store.Insert(ctx, p)
	assert.ErrorIs(t, err, apperror.ErrDuplicateRelation)
}

func TestAsOf_PicksVersionValidOnDay(t *testing.T) {
	store, ctx := newStore(t)

	// Resided in city 100 until 2010, then city 200.
	_, err := store.Insert(ctx, relations.Params{
		Src: 1, RType: 5, Dst: 100,
		Start: ptr(day(2001, time.January, 1)),
		End:   ptr(day(2010, time.July, 1)),
	})
	require.NoError(t, err)
	_, err = store.Insert(ctx, relations.Params{
		Src: 1, RType: 5, Dst: 200,
		Start: ptr(day(2010, time.July, 1)),
	})
	require.NoError(t, err)

	tests := []struct {
		on   time.Time
		want int64
	}{
		{day(2005, time.March, 3), 100},
		{day(2010, time.June, 30), 100},
		{day(2010, time.July, 1), 200},
		{day(2024, time.January, 1), 200},
	}
	for _, tt := range tests {
		t.Run(tt.on.Format(time.DateOnly), func(t *testing.T) {
			rel, err := store.AsOf(ctx, 1, 5, tt.on)
			require.NoError(t, err)
			assert.Equal(t, tt.want, rel.Dst)
		})
	}

	_, err = store.AsOf(ctx, 1, 5, day(1999, time.January, 1))
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestSameTripleDifferentStart_Coexist(t *testing.T) {
	store, ctx := newStore(t)

	for _, start := range []time.Time{day(2001, time.January, 1), day(2015, time.January, 1)} {
		_, err := store.Insert(ctx, relations.Params{Src: 1, RType: 2, Dst: 3, Start: ptr(start)})
		require.NoError(t, err)
	}

	rels, err := store.Find(ctx, relations.Filter{Src: ptr(int64(1)), Dst: ptr(int64(3))})
	require.NoError(t, err)
	assert.Len(t, rels, 2)

	valid, err := store.Find(ctx, relations.Filter{ValidOn: ptr(day(2005, time.January, 1))})
	require.NoError(t, err)
	assert.Len(t, valid, 1)
}

func TestTypeRelations(t *testing.T) {
	db := testutil.NewTestDB(t)
	store := relations.NewStore(db.DB, testutil.Logger())
	ctx := context.Background()

	err := store.InsertTypeRelations(ctx, db.DB, []relations.TypeRelation{
		{Src: 11, RType: 1, Dst: 9},
		{Src: 12, RType: 1, Dst: 9},
	})
	require.NoError(t, err)

	edges, err := store.TypesOf(ctx, 11)
	require.NoError(t, err)
	assert.Equal(t, []relations.TypeRelation{{Src: 11, RType: 1, Dst: 9}}, edges)

	instances, err := store.InstancesOf(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, []int64{11, 12}, instances)

	err = store.InsertTypeRelation(ctx, db.DB, relations.TypeRelation{Src: 11, RType: 1, Dst: 9})
	assert.ErrorIs(t, err, apperror.ErrDuplicateRelation)
}

func TestInsertAll_RollsBackWithTransaction(t *testing.T) {
	db := testutil.NewTestDB(t)
	store := relations.NewStore(db.DB, testutil.Logger())
	ctx := context.Background()

	rel, err := store.Build(relations.Params{Src: 1, RType: 2, Dst: 3})
	require.NoError(t, err)

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, store.InsertAll(ctx, tx, []relations.Relation{rel}))
	require.NoError(t, tx.Rollback())

	assert.Zero(t, testutil.CountRows(t, db.DB, "relations"))
}

func TestValidOn(t *testing.T) {
	end := day(2020, time.January, 1)
	rel := relations.Relation{Start: day(2010, time.January, 1), End: &end}

	assert.False(t, rel.ValidOn(day(2009, time.December, 31)))
	assert.True(t, rel.ValidOn(day(2010, time.January, 1)))
	assert.True(t, rel.ValidOn(time.Date(2019, time.December, 31, 23, 0, 0, 0, time.UTC)))
	assert.False(t, rel.ValidOn(end))
}

func TestDay_KeepsCallerCalendarDate(t *testing.T) {
	cet := time.FixedZone("CET", 3600)
	pst := time.FixedZone("PST", -8*3600)

	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{"midnight east of UTC", time.Date(2020, time.January, 1, 0, 0, 0, 0, cet), day(2020, time.January, 1)},
		{"evening west of UTC", time.Date(2020, time.January, 1, 23, 30, 0, 0, pst), day(2020, time.January, 1)},
		{"utc", time.Date(2020, time.January, 1, 12, 0, 0, 0, time.UTC), day(2020, time.January, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := relations.Day(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestBuild_StartKeepsCallerCalendarDate(t *testing.T) {
	store, _ := newStore(t)

	start := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.FixedZone("CET", 3600))
	rel, err := store.Build(relations.Params{Src: 1, RType: 2, Dst: 3, Start: &start})
	require.NoError(t, err)
	assert.Equal(t, day(2020, time.January, 1), rel.Start)
}

func TestPostgres_DatesRoundTrip(t *testing.T) {
	store, ctx := newStoreOn(t, testutil.NewPostgresTestDB(t))

	_, err := store.Insert(ctx, relations.Params{Src: 1, RType: 2, Dst: 3})
	require.NoError(t, err)
	_, err = store.Insert(ctx, relations.Params{
		Src: 1, RType: 5, Dst: 100,
		Start: ptr(day(2001, time.January, 1)),
		End:   ptr(day(2010, time.July, 1)),
	})
	require.NoError(t, err)
	_, err = store.Insert(ctx, relations.Params{
		Src: 1, RType: 5, Dst: 200,
		Start: ptr(day(2010, time.July, 1)),
	})
	require.NoError(t, err)

	defaults, err := store.Find(ctx, relations.Filter{RType: ptr(int64(2))})
	require.NoError(t, err)
	require.Len(t, defaults, 1)
	assert.True(t, day(2024, time.March, 5).Equal(defaults[0].Start), "got %s", defaults[0].Start)
	require.NotNil(t, defaults[0].End)
	assert.True(t, relations.Infinity.Equal(defaults[0].End.UTC()))

	rel, err := store.AsOf(ctx, 1, 5, day(2010, time.June, 30))
	require.NoError(t, err)
	assert.Equal(t, int64(100), rel.Dst)
	assert.True(t, day(2010, time.July, 1).Equal(rel.End.UTC()))

	rel, err = store.AsOf(ctx, 1, 5, day(2010, time.July, 1))
	require.NoError(t, err)
	assert.Equal(t, int64(200), rel.Dst)

	_, err = store.Insert(ctx, relations.Params{Src: 1, RType: 2, Dst: 3, Start: ptr(day(2024, time.March, 5))})
	assert.ErrorIs(t, err, apperror.ErrDuplicateRelation)
}
