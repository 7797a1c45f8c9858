// Package importer loads foreign datasets into the graph. Foreign ids are
// remapped onto the global sequence and foreign-key columns become
// relations, all in one transaction.
package importer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jinzhu/inflection"
	"github.com/uptrace/bun"

	"github.com/adsharma/truth-serum/domain/ids"
	"github.com/adsharma/truth-serum/domain/relations"
	"github.com/adsharma/truth-serum/domain/schema"
	"github.com/adsharma/truth-serum/internal/database"
	"github.com/adsharma/truth-serum/pkg/apperror"
	"github.com/adsharma/truth-serum/pkg/logger"
	"github.com/adsharma/truth-serum/pkg/metrics"
)

// ForeignIDColumn holds each foreign row's primary key.
const ForeignIDColumn = "id"

type Importer struct {
	db      bun.IDB
	alloc   *ids.Allocator
	catalog *schema.Catalog
	store   *relations.Store
	log     *slog.Logger
}

func NewImporter(
	db bun.IDB,
	alloc *ids.Allocator,
	catalog *schema.Catalog,
	store *relations.Store,
	log *slog.Logger,
) *Importer {
	return &Importer{
		db:      db,
		alloc:   alloc,
		catalog: catalog,
		store:   store,
		log:     log.With(logger.Scope("importer")),
	}
}

// TargetTable returns the table a foreign-key column refers to.
func (l Link) TargetTable() string {
	if l.Target != "" {
		return l.Target
	}
	return inflection.Plural(strings.TrimSuffix(l.Column, "_id"))
}

type preparedSource struct {
	src      Source
	kind     *schema.Kind
	entities []schema.Entity
	foreign  []string
}

// Import writes plan. Nothing is visible unless every row, type edge and
// relation commits.
func (im *Importer) Import(ctx context.Context, plan Plan) (*Result, error) {
	prepared, err := im.prepare(plan)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, p := range prepared {
		if err := im.catalog.Prepare(ctx, p.kind); err != nil {
			return nil, err
		}
		total += len(p.entities)
	}
	rtypes := make(map[string]int64, len(plan.Links))
	for _, l := range plan.Links {
		rk, err := im.catalog.RelationKind(l.Relation)
		if err != nil {
			return nil, err
		}
		rec, err := rk.EnsureType(ctx)
		if err != nil {
			return nil, err
		}
		rtypes[l.Relation] = rec.ID
	}

	allocated, err := im.alloc.Allocate(ctx, total)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Batch:    uuid.NewString(),
		Entities: make(map[string]int, len(prepared)),
		IDs:      make(map[string]map[string]int64, len(prepared)),
	}

	// First pass: every foreign id gets a global id.
	var edges []relations.TypeRelation
	next := 0
	for _, p := range prepared {
		idMap := make(map[string]int64, len(p.entities))
		for i, e := range p.entities {
			id := allocated[next]
			next++
			e.SetEntityID(id)
			idMap[p.foreign[i]] = id

			edge, err := p.kind.TypeEdge(id)
			if err != nil {
				return nil, err
			}
			edges = append(edges, edge)
		}
		res.IDs[p.src.Table] = idMap
		res.Entities[p.src.Kind] += len(p.entities)
	}

	// Second pass: foreign keys become relations.
	var rels []relations.Relation
	for _, l := range plan.Links {
		target := res.IDs[l.TargetTable()]
		for _, p := range prepared {
			if p.src.Table != l.Table {
				continue
			}
			for i, row := range p.src.Rows {
				ref := strings.TrimSpace(row[l.Column])
				if ref == "" {
					continue
				}
				dst, ok := target[ref]
				if !ok {
					res.Unresolved++
					im.log.Debug("unresolved foreign key",
						slog.String("table", l.Table),
						slog.String("column", l.Column),
						slog.String("value", ref))
					continue
				}
				rel, err := im.store.Build(relations.Params{
					Src:   p.entities[i].EntityID(),
					RType: rtypes[l.Relation],
					Dst:   dst,
				})
				if err != nil {
					return nil, err
				}
				rels = append(rels, rel)
			}
		}
	}
	res.Relations = len(rels)

	tx, err := database.BeginSafeTx(ctx, im.db)
	if err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, p := range prepared {
		if err := p.kind.Insert(ctx, tx, p.entities); err != nil {
			return nil, fmt.Errorf("import %s: %w", p.src.Table, err)
		}
	}
	if err := im.store.InsertTypeRelations(ctx, tx, edges); err != nil {
		return nil, err
	}
	if err := im.store.InsertAll(ctx, tx, rels); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}

	for kind, n := range res.Entities {
		metrics.RowsSaved.WithLabelValues("import", kind).Add(float64(n))
	}
	im.log.Info("import committed",
		slog.String("batch", res.Batch),
		slog.Int("entities", total),
		slog.Int("relations", res.Relations),
		slog.Int("unresolved", res.Unresolved))
	return res, nil
}

// prepare validates plan and builds every entity without touching storage.
func (im *Importer) prepare(plan Plan) ([]*preparedSource, error) {
	byTable := make(map[string]*preparedSource, len(plan.Sources))
	out := make([]*preparedSource, 0, len(plan.Sources))

	for _, src := range plan.Sources {
		if _, dup := byTable[src.Table]; dup {
			return nil, apperror.NewInvalidArgument("table %q appears twice", src.Table)
		}
		k, err := im.catalog.Kind(src.Kind)
		if err != nil {
			return nil, err
		}

		fields := make(map[string]bool, len(k.Fields))
		for _, name := range k.FieldNames() {
			fields[name] = true
		}

		p := &preparedSource{src: src, kind: k}
		seen := make(map[string]bool, len(src.Rows))
		for i, row := range src.Rows {
			fid := strings.TrimSpace(row[ForeignIDColumn])
			if fid == "" {
				return nil, apperror.NewInvalidArgument("%s row %d has no %s", src.Table, i, ForeignIDColumn)
			}
			if seen[fid] {
				return nil, apperror.NewInvalidArgument("%s has duplicate %s %s", src.Table, ForeignIDColumn, fid)
			}
			seen[fid] = true

			values := make(map[string]any)
			for col, v := range row {
				if renamed, ok := src.Columns[col]; ok {
					col = renamed
				}
				if fields[col] {
					values[col] = v
				}
			}
			e, err := k.BuildFromMap(values)
			if err != nil {
				return nil, fmt.Errorf("%s row %d: %w", src.Table, i, err)
			}
			p.entities = append(p.entities, e)
			p.foreign = append(p.foreign, fid)
		}

		byTable[src.Table] = p
		out = append(out, p)
	}

	for _, l := range plan.Links {
		if _, ok := byTable[l.Table]; !ok {
			return nil, apperror.NewInvalidArgument("link %s.%s: unknown table", l.Table, l.Column)
		}
		if _, ok := byTable[l.TargetTable()]; !ok {
			return nil, apperror.NewInvalidArgument("link %s.%s: target table %q is not imported",
				l.Table, l.Column, l.TargetTable())
		}
		if _, err := im.catalog.RelationKind(l.Relation); err != nil {
			return nil, err
		}
	}
	return out, nil
}
