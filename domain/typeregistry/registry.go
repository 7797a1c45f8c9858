package typeregistry

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/adsharma/truth-serum/domain/ids"
	"github.com/adsharma/truth-serum/pkg/apperror"
	"github.com/adsharma/truth-serum/pkg/logger"
	"github.com/adsharma/truth-serum/pkg/metrics"
)

// Registry resolves type names to persisted records, creating them on
// first use. Resolved records are cached for the life of the process and
// never invalidated.
type Registry struct {
	repo  *Repository
	alloc *ids.Allocator
	log   *slog.Logger

	mu    sync.RWMutex
	cache map[Table]map[string]TypeRecord
}

// NewRegistry creates a registry with an empty cache.
func NewRegistry(repo *Repository, alloc *ids.Allocator, log *slog.Logger) *Registry {
	return &Registry{
		repo:  repo,
		alloc: alloc,
		log:   log.With(logger.Scope("typeregistry")),
		cache: map[Table]map[string]TypeRecord{
			ObjectTypes:   {},
			PropertyTypes: {},
		},
	}
}

// ResolveObjectType returns the object type named name.
func (r *Registry) ResolveObjectType(ctx context.Context, name string) (TypeRecord, error) {
	return r.Resolve(ctx, ObjectTypes, name)
}

// ResolvePropertyType returns the property type named name.
func (r *Registry) ResolvePropertyType(ctx context.Context, name string) (TypeRecord, error) {
	return r.Resolve(ctx, PropertyTypes, name)
}

// Resolve returns the record named name in table, creating it if absent.
//
// Creation allocates an id and inserts with ON CONFLICT DO NOTHING, so two
// callers racing on an unseen name converge on one row; the loser's id is
// discarded.
func (r *Registry) Resolve(ctx context.Context, table Table, name string) (TypeRecord, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return TypeRecord{}, apperror.NewInvalidArgument("type name must not be empty")
	}
	if _, ok := r.cache[table]; !ok {
		return TypeRecord{}, apperror.NewInvalidArgument("unknown type table %q", table)
	}

	if rec, ok := r.Cached(table, name); ok {
		metrics.TypeResolutions.WithLabelValues(table.String(), "cache").Inc()
		return rec, nil
	}

	found, err := r.repo.FindByName(ctx, table, name)
	if err != nil {
		return TypeRecord{}, apperror.ErrDatabase.WithInternal(err)
	}
	if found != nil {
		metrics.TypeResolutions.WithLabelValues(table.String(), "found").Inc()
		return r.store(table, *found), nil
	}

	id, err := r.alloc.Next(ctx)
	if err != nil {
		return TypeRecord{}, err
	}

	rec, created, err := r.repo.InsertIfAbsent(ctx, table, TypeRecord{ID: id, Name: name})
	if err != nil {
		return TypeRecord{}, apperror.ErrDatabase.WithInternal(err)
	}

	outcome := "created"
	if !created {
		outcome = "found"
		r.log.Debug("lost type registration race",
			slog.String("table", table.String()),
			slog.String("name", name),
			slog.Int64("discarded_id", id))
	} else {
		r.log.Info("registered type",
			slog.String("table", table.String()),
			slog.String("name", name),
			slog.Int64("id", rec.ID))
	}
	metrics.TypeResolutions.WithLabelValues(table.String(), outcome).Inc()

	return r.store(table, *rec), nil
}

// Cached returns a previously resolved record without touching storage.
func (r *Registry) Cached(table Table, name string) (TypeRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.cache[table][name]
	return rec, ok
}

// List returns the stored rows of table.
func (r *Registry) List(ctx context.Context, table Table) ([]TypeRecord, error) {
	return r.repo.List(ctx, table)
}

func (r *Registry) store(table Table, rec TypeRecord) TypeRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.cache[table][rec.Name]; ok {
		return existing
	}
	r.cache[table][rec.Name] = rec
	return rec
}
