package schema

import (
	"context"
	"sync"

	"github.com/adsharma/truth-serum/domain/typeregistry"
)

// RelationKind is the descriptor of a relation or property kind. It has
// no payload and no instance-of edge of its own; it only reifies its name
// as a property type.
type RelationKind struct {
	Name string

	catalog *Catalog

	mu  sync.Mutex
	rec *typeregistry.TypeRecord
}

// EnsureType resolves the kind's property type, caching it on the
// descriptor.
func (r *RelationKind) EnsureType(ctx context.Context) (typeregistry.TypeRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rec != nil {
		return *r.rec, nil
	}
	rec, err := r.catalog.registry.ResolvePropertyType(ctx, r.Name)
	if err != nil {
		return typeregistry.TypeRecord{}, err
	}
	r.rec = &rec
	return rec, nil
}

// Resolved returns the cached property type, if EnsureType has run.
func (r *RelationKind) Resolved() (typeregistry.TypeRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rec == nil {
		return typeregistry.TypeRecord{}, false
	}
	return *r.rec, true
}
