// Package graph implements the bulk write paths of the knowledge graph:
// every entity is written together with its instance-of edge, and every
// batch commits as one transaction.
package graph

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/adsharma/truth-serum/domain/ids"
	"github.com/adsharma/truth-serum/domain/relations"
	"github.com/adsharma/truth-serum/domain/schema"
	"github.com/adsharma/truth-serum/internal/database"
	"github.com/adsharma/truth-serum/pkg/apperror"
	"github.com/adsharma/truth-serum/pkg/logger"
	"github.com/adsharma/truth-serum/pkg/metrics"
)

// Service writes entities and relations.
//
// Every write resolves types and allocates ids before opening its
// transaction, so no statement runs outside the transaction while it is
// open.
type Service struct {
	db      bun.IDB
	alloc   *ids.Allocator
	catalog *schema.Catalog
	store   *relations.Store
	log     *slog.Logger
}

// NewService creates a new graph service
func NewService(
	db bun.IDB,
	alloc *ids.Allocator,
	catalog *schema.Catalog,
	store *relations.Store,
	log *slog.Logger,
) *Service {
	return &Service{
		db:      db,
		alloc:   alloc,
		catalog: catalog,
		store:   store,
		log:     log.With(logger.Scope("graph")),
	}
}

// SaveGraph persists, for each pair, a left entity, a right entity and one
// relation of kind relation from left to right. It allocates exactly
// 2*len(pairs) ids and commits everything in one transaction. It returns
// the number of pairs written.
func (s *Service) SaveGraph(ctx context.Context, pairs []Pair, left, right, relation string) (int, error) {
	leftKind, err := s.catalog.Kind(left)
	if err != nil {
		return 0, err
	}
	rightKind, err := s.catalog.Kind(right)
	if err != nil {
		return 0, err
	}
	if _, err := s.catalog.RelationKind(relation); err != nil {
		return 0, err
	}

	lefts := make([]schema.Entity, len(pairs))
	rights := make([]schema.Entity, len(pairs))
	for i, p := range pairs {
		if lefts[i], err = leftKind.Build(p.Left...); err != nil {
			return 0, fmt.Errorf("row %d: %w", i, err)
		}
		if rights[i], err = rightKind.Build(p.Right...); err != nil {
			return 0, fmt.Errorf("row %d: %w", i, err)
		}
	}
	return s.SavePairs(ctx, lefts, rights, relation)
}

// SavePairs is SaveGraph over entities the caller already built. lefts[i]
// is related to rights[i]; each side must hold a single kind. On success
// every entity carries its new id; on failure every id is reset to zero.
func (s *Service) SavePairs(ctx context.Context, lefts, rights []schema.Entity, relation string) (int, error) {
	relKind, err := s.catalog.RelationKind(relation)
	if err != nil {
		return 0, err
	}
	if len(lefts) != len(rights) {
		return 0, apperror.NewInvalidArgument("%d left entities but %d right entities", len(lefts), len(rights))
	}
	if len(lefts) == 0 {
		return 0, nil
	}
	leftKind, err := s.kindOfAll(lefts)
	if err != nil {
		return 0, err
	}
	rightKind, err := s.kindOfAll(rights)
	if err != nil {
		return 0, err
	}

	if err := s.catalog.Prepare(ctx, leftKind); err != nil {
		return 0, err
	}
	if err := s.catalog.Prepare(ctx, rightKind); err != nil {
		return 0, err
	}
	rtype, err := relKind.EnsureType(ctx)
	if err != nil {
		return 0, err
	}

	n := len(lefts)
	idList, err := s.alloc.Allocate(ctx, 2*n)
	if err != nil {
		return 0, err
	}

	committed := false
	defer func() {
		if !committed {
			clearIDs(lefts)
			clearIDs(rights)
		}
	}()

	edges := make([]relations.TypeRelation, 0, 2*n)
	rels := make([]relations.Relation, n)
	for i := 0; i < n; i++ {
		lefts[i].SetEntityID(idList[2*i])
		rights[i].SetEntityID(idList[2*i+1])

		leftEdge, err := leftKind.TypeEdge(idList[2*i])
		if err != nil {
			return 0, err
		}
		rightEdge, err := rightKind.TypeEdge(idList[2*i+1])
		if err != nil {
			return 0, err
		}
		edges = append(edges, leftEdge, rightEdge)

		rels[i], err = s.store.Build(relations.Params{
			Src:   idList[2*i],
			RType: rtype.ID,
			Dst:   idList[2*i+1],
		})
		if err != nil {
			return 0, err
		}
	}

	batch := uuid.NewString()
	start := time.Now()
	err = s.inTx(ctx, func(tx bun.IDB) error {
		if err := leftKind.Insert(ctx, tx, lefts); err != nil {
			return err
		}
		if err := rightKind.Insert(ctx, tx, rights); err != nil {
			return err
		}
		if err := s.store.InsertTypeRelations(ctx, tx, edges); err != nil {
			return err
		}
		return s.store.InsertAll(ctx, tx, rels)
	})
	if err != nil {
		s.log.Error("save graph failed",
			slog.String("batch", batch),
			slog.String("left", leftKind.Name),
			slog.String("right", rightKind.Name),
			slog.String("relation", relation),
			slog.Int("rows", n),
			logger.Error(err))
		return 0, err
	}
	committed = true

	metrics.RowsSaved.WithLabelValues("save_graph", leftKind.Name).Add(float64(n))
	metrics.RowsSaved.WithLabelValues("save_graph", rightKind.Name).Add(float64(n))
	s.log.Info("saved graph",
		slog.String("batch", batch),
		slog.String("relation", relation),
		slog.Int("rows", n),
		slog.Duration("took", time.Since(start)))

	return n, nil
}

// kindOfAll returns the kind shared by every entity.
func (s *Service) kindOfAll(entities []schema.Entity) (*schema.Kind, error) {
	k, err := s.catalog.KindOf(entities[0])
	if err != nil {
		return nil, err
	}
	for i, e := range entities[1:] {
		other, err := s.catalog.KindOf(e)
		if err != nil {
			return nil, err
		}
		if other != k {
			return nil, apperror.NewInvalidArgument("entity %d is a %s, want %s", i+1, other.Name, k.Name)
		}
	}
	return k, nil
}

// SaveObjs persists one entity of kind per row, allocating exactly
// len(rows) ids, in one transaction. Relations can be wired later with
// Relate.
func (s *Service) SaveObjs(ctx context.Context, rows []Row, kind string) (int, error) {
	k, err := s.catalog.Kind(kind)
	if err != nil {
		return 0, err
	}

	entities := make([]schema.Entity, len(rows))
	for i, row := range rows {
		if entities[i], err = k.Build(row...); err != nil {
			return 0, fmt.Errorf("row %d: %w", i, err)
		}
	}

	if err := s.saveEntities(ctx, k, entities); err != nil {
		return 0, err
	}
	metrics.RowsSaved.WithLabelValues("save_objs", kind).Add(float64(len(rows)))
	return len(rows), nil
}

// Create persists e with a fresh id and its instance-of edge. The id is
// set on e and returned.
func (s *Service) Create(ctx context.Context, e schema.Entity) (int64, error) {
	k, err := s.catalog.KindOf(e)
	if err != nil {
		return 0, err
	}
	if err := s.saveEntities(ctx, k, []schema.Entity{e}); err != nil {
		return 0, err
	}
	metrics.RowsSaved.WithLabelValues("create", k.Name).Inc()
	return e.EntityID(), nil
}

func (s *Service) saveEntities(ctx context.Context, k *schema.Kind, entities []schema.Entity) error {
	if len(entities) == 0 {
		return nil
	}
	if err := s.catalog.Prepare(ctx, k); err != nil {
		return err
	}

	idList, err := s.alloc.Allocate(ctx, len(entities))
	if err != nil {
		return err
	}

	committed := false
	defer func() {
		if !committed {
			clearIDs(entities)
		}
	}()

	edges := make([]relations.TypeRelation, len(entities))
	for i, e := range entities {
		e.SetEntityID(idList[i])
		if edges[i], err = k.TypeEdge(idList[i]); err != nil {
			return err
		}
	}

	err = s.inTx(ctx, func(tx bun.IDB) error {
		if err := k.Insert(ctx, tx, entities); err != nil {
			return err
		}
		return s.store.InsertTypeRelations(ctx, tx, edges)
	})
	if err != nil {
		s.log.Error("save entities failed",
			slog.String("kind", k.Name),
			slog.Int("rows", len(entities)),
			logger.Error(err))
		return err
	}
	committed = true

	s.log.Debug("saved entities", slog.String("kind", k.Name), slog.Int("rows", len(entities)))
	return nil
}

// Relate inserts one relation of kind relation. p.RType is overwritten
// with the relation kind's property type id.
func (s *Service) Relate(ctx context.Context, relation string, p relations.Params) (*relations.Relation, error) {
	relKind, err := s.catalog.RelationKind(relation)
	if err != nil {
		return nil, err
	}
	rtype, err := relKind.EnsureType(ctx)
	if err != nil {
		return nil, err
	}

	p.RType = rtype.ID
	return s.store.Insert(ctx, p)
}

// clearIDs undoes SetEntityID on entities whose batch did not commit, so
// no caller sees an id that was never persisted.
func clearIDs(entities []schema.Entity) {
	for _, e := range entities {
		e.SetEntityID(0)
	}
}

func (s *Service) inTx(ctx context.Context, fn func(tx bun.IDB) error) error {
	tx, err := database.BeginSafeTx(ctx, s.db)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
