// Package relations persists time-scoped, viewpoint-scoped edges between
// entity ids, including the instance-of edges that reify entity types.
package relations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/uptrace/bun"

	"github.com/adsharma/truth-serum/pkg/apperror"
	"github.com/adsharma/truth-serum/pkg/logger"
	"github.com/adsharma/truth-serum/pkg/metrics"
	"github.com/adsharma/truth-serum/pkg/sqlutil"
)

// batchSize bounds rows per INSERT so SQLite stays under its bind limit.
const batchSize = 500

// Store reads and writes relations and type_relations.
type Store struct {
	db  bun.IDB
	now func() time.Time
	log *slog.Logger
}

// NewStore creates a store that stamps default start dates with the
// current wall clock.
func NewStore(db bun.IDB, log *slog.Logger) *Store {
	return &Store{
		db:  db,
		now: time.Now,
		log: log.With(logger.Scope("relations")),
	}
}

// SetClock overrides the clock used for default start dates.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// Today returns the current calendar day of the store's clock.
func (s *Store) Today() time.Time {
	return Day(s.now())
}

// Build applies defaults to p and validates it.
func (s *Store) Build(p Params) (Relation, error) {
	end := Infinity
	rel := Relation{
		Src:         p.Src,
		RType:       p.RType,
		Dst:         p.Dst,
		Start:       s.Today(),
		End:         &end,
		Probability: 1.0,
		Viewpoint:   GroundTruth,
	}
	if p.Start != nil {
		rel.Start = Day(*p.Start)
	}
	if p.End != nil {
		end = Day(*p.End)
	}
	if p.Probability != nil {
		rel.Probability = *p.Probability
	}
	if p.Viewpoint != nil {
		rel.Viewpoint = *p.Viewpoint
	}

	if err := validate(&rel); err != nil {
		return Relation{}, err
	}
	return rel, nil
}

func validate(rel *Relation) error {
	if math.IsNaN(rel.Probability) || rel.Probability < 0 || rel.Probability > 1 {
		return apperror.NewInvalidArgument("probability %v outside [0, 1]", rel.Probability)
	}
	if rel.End != nil && !rel.End.After(rel.Start) {
		return apperror.NewInvalidArgument("end %s must be after start %s",
			rel.End.Format(time.DateOnly), rel.Start.Format(time.DateOnly))
	}
	return nil
}

// Insert stores exactly one relation. Re-inserting a stored
// (src, rtype, dst, start) key fails with ErrDuplicateRelation.
func (s *Store) Insert(ctx context.Context, p Params) (*Relation, error) {
	rel, err := s.Build(p)
	if err != nil {
		return nil, err
	}
	if err := s.InsertAll(ctx, s.db, []Relation{rel}); err != nil {
		return nil, err
	}
	return &rel, nil
}

// InsertAll stores rels through db, which may be a transaction. Rows are
// validated but not defaulted; build them with Build.
func (s *Store) InsertAll(ctx context.Context, db bun.IDB, rels []Relation) error {
	for i := range rels {
		if err := validate(&rels[i]); err != nil {
			return err
		}
	}

	for start := 0; start < len(rels); start += batchSize {
		end := min(start+batchSize, len(rels))
		chunk := rels[start:end]
		if _, err := db.NewInsert().Model(&chunk).Exec(ctx); err != nil {
			return classify(err, "relations")
		}
	}

	metrics.RelationsInserted.WithLabelValues("relations").Add(float64(len(rels)))
	return nil
}

// InsertTypeRelations stores instance-of edges through db.
func (s *Store) InsertTypeRelations(ctx context.Context, db bun.IDB, rels []TypeRelation) error {
	for start := 0; start < len(rels); start += batchSize {
		end := min(start+batchSize, len(rels))
		chunk := rels[start:end]
		if _, err := db.NewInsert().Model(&chunk).Exec(ctx); err != nil {
			return classify(err, "type_relations")
		}
	}

	metrics.RelationsInserted.WithLabelValues("type_relations").Add(float64(len(rels)))
	return nil
}

// InsertTypeRelation stores a single instance-of edge.
func (s *Store) InsertTypeRelation(ctx context.Context, db bun.IDB, rel TypeRelation) error {
	return s.InsertTypeRelations(ctx, db, []TypeRelation{rel})
}

func classify(err error, table string) error {
	if sqlutil.IsUniqueViolation(err) {
		return apperror.ErrDuplicateRelation.WithInternal(err)
	}
	return apperror.ErrDatabase.WithInternal(fmt.Errorf("insert %s: %w", table, err))
}

// AsOf returns the ground-truth relation from src of type rtype valid on
// day, that is start <= day < end.
func (s *Store) AsOf(ctx context.Context, src, rtype int64, day time.Time) (*Relation, error) {
	day = Day(day)
	var rel Relation
	err := s.db.NewSelect().
		Model(&rel).
		Where("r.src = ?", src).
		Where("r.rtype = ?", rtype).
		Where("r.viewpoint = ?", GroundTruth).
		Where("r.start <= ?", day).
		Where("(r.? IS NULL OR r.? > ?)", bun.Ident("end"), bun.Ident("end"), day).
		OrderExpr("r.start DESC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("relation", fmt.Sprintf("%d-%d@%s", src, rtype, day.Format(time.DateOnly)))
	}
	if err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return &rel, nil
}

// Find returns relations matching f ordered by key.
func (s *Store) Find(ctx context.Context, f Filter) ([]Relation, error) {
	var rels []Relation
	q := s.db.NewSelect().Model(&rels)
	if f.Src != nil {
		q = q.Where("r.src = ?", *f.Src)
	}
	if f.RType != nil {
		q = q.Where("r.rtype = ?", *f.RType)
	}
	if f.Dst != nil {
		q = q.Where("r.dst = ?", *f.Dst)
	}
	if f.Viewpoint != nil {
		q = q.Where("r.viewpoint = ?", *f.Viewpoint)
	}
	if f.ValidOn != nil {
		day := Day(*f.ValidOn)
		q = q.Where("r.start <= ?", day).
			Where("(r.? IS NULL OR r.? > ?)", bun.Ident("end"), bun.Ident("end"), day)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	err := q.OrderExpr("r.src, r.rtype, r.dst, r.start").Scan(ctx)
	if err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return rels, nil
}

// TypesOf returns the instance-of edges whose source is id.
func (s *Store) TypesOf(ctx context.Context, id int64) ([]TypeRelation, error) {
	var rels []TypeRelation
	err := s.db.NewSelect().
		Model(&rels).
		Where("tr.src = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return rels, nil
}

// InstancesOf returns the ids of entities whose type edge points at typeID.
func (s *Store) InstancesOf(ctx context.Context, typeID int64) ([]int64, error) {
	var idsOut []int64
	err := s.db.NewSelect().
		Model((*TypeRelation)(nil)).
		Column("tr.src").
		Where("tr.dst = ?", typeID).
		OrderExpr("tr.src").
		Scan(ctx, &idsOut)
	if err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return idsOut, nil
}
