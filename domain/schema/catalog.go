package schema

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/uptrace/bun"

	"github.com/adsharma/truth-serum/domain/relations"
	"github.com/adsharma/truth-serum/domain/typeregistry"
	"github.com/adsharma/truth-serum/pkg/apperror"
	"github.com/adsharma/truth-serum/pkg/logger"
)

// Catalog is the startup registration table of entity and relation kinds.
type Catalog struct {
	db       bun.IDB
	registry *typeregistry.Registry
	store    *relations.Store
	log      *slog.Logger

	mu            sync.RWMutex
	kinds         map[string]*Kind
	byType        map[reflect.Type]*Kind
	kindOrder     []string
	relationKinds map[string]*RelationKind
	relationOrder []string

	instanceOf *RelationKind
}

// NewCatalog creates a catalog whose instance-of relation kind is named
// instanceOfName.
func NewCatalog(
	db bun.IDB,
	registry *typeregistry.Registry,
	store *relations.Store,
	log *slog.Logger,
	instanceOfName string,
) *Catalog {
	c := &Catalog{
		db:            db,
		registry:      registry,
		store:         store,
		log:           log.With(logger.Scope("schema.catalog")),
		kinds:         make(map[string]*Kind),
		byType:        make(map[reflect.Type]*Kind),
		relationKinds: make(map[string]*RelationKind),
	}
	c.instanceOf = c.RegisterRelation(instanceOfName)
	return c
}

// Register adds the entity kind T under name. It fails if the name or
// the Go type is already registered.
func Register[T any, PT interface {
	*T
	Entity
}](c *Catalog, name string) (*Kind, error) {
	return c.register(name, reflect.TypeOf((*T)(nil)).Elem())
}

func (c *Catalog) register(name string, typ reflect.Type) (*Kind, error) {
	if name == "" {
		return nil, apperror.NewInvalidArgument("kind name must not be empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.kinds[name]; ok {
		return nil, fmt.Errorf("kind %s already registered", name)
	}
	if other, ok := c.byType[typ]; ok {
		return nil, fmt.Errorf("type %s already registered as %s", typ, other.Name)
	}

	k, err := newKind(c, name, typ)
	if err != nil {
		return nil, err
	}
	c.kinds[name] = k
	c.byType[typ] = k
	c.kindOrder = append(c.kindOrder, name)

	c.log.Debug("registered kind",
		slog.String("kind", name),
		slog.String("table", k.Table),
		slog.Any("fields", k.FieldNames()))
	return k, nil
}

// RegisterRelation adds a relation kind, returning the existing
// descriptor if name is already registered.
func (c *Catalog) RegisterRelation(name string) *RelationKind {
	c.mu.Lock()
	defer c.mu.Unlock()

	if rk, ok := c.relationKinds[name]; ok {
		return rk
	}
	rk := &RelationKind{Name: name, catalog: c}
	c.relationKinds[name] = rk
	c.relationOrder = append(c.relationOrder, name)
	return rk
}

// Kind returns the entity kind registered under name.
func (c *Catalog) Kind(name string) (*Kind, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	k, ok := c.kinds[name]
	if !ok {
		return nil, apperror.NewUnknownKind(name)
	}
	return k, nil
}

// KindOf returns the kind e is an instance of.
func (c *Catalog) KindOf(e Entity) (*Kind, error) {
	typ := reflect.TypeOf(e)
	if typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	k, ok := c.byType[typ]
	if !ok {
		return nil, apperror.NewUnknownKind(typ.String())
	}
	return k, nil
}

// RelationKind returns the relation kind registered under name.
func (c *Catalog) RelationKind(name string) (*RelationKind, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rk, ok := c.relationKinds[name]
	if !ok {
		return nil, apperror.NewUnknownKind(name)
	}
	return rk, nil
}

// DB returns the storage handle the catalog reads through.
func (c *Catalog) DB() bun.IDB {
	return c.db
}

// InstanceOf returns the relation kind linking entities to their types.
func (c *Catalog) InstanceOf() *RelationKind {
	return c.instanceOf
}

// Kinds returns the entity kinds in registration order.
func (c *Catalog) Kinds() []*Kind {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Kind, len(c.kindOrder))
	for i, name := range c.kindOrder {
		out[i] = c.kinds[name]
	}
	return out
}

// RelationKinds returns the relation kinds in registration order.
func (c *Catalog) RelationKinds() []*RelationKind {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*RelationKind, len(c.relationOrder))
	for i, name := range c.relationOrder {
		out[i] = c.relationKinds[name]
	}
	return out
}

// Prepare resolves everything a write of kind k needs before a
// transaction is opened: the kind's object type and the instance-of
// property type.
func (c *Catalog) Prepare(ctx context.Context, k *Kind) error {
	if _, err := c.instanceOf.EnsureType(ctx); err != nil {
		return err
	}
	_, err := k.EnsureType(ctx)
	return err
}

// CreateTables creates the table of every registered kind if missing.
func (c *Catalog) CreateTables(ctx context.Context) error {
	for _, k := range c.Kinds() {
		if err := k.createTable(ctx, c.db); err != nil {
			return err
		}
	}
	return nil
}

// Bootstrap registers the type of every kind and relation kind.
func (c *Catalog) Bootstrap(ctx context.Context) error {
	for _, rk := range c.RelationKinds() {
		if _, err := rk.EnsureType(ctx); err != nil {
			return fmt.Errorf("bootstrap relation kind %s: %w", rk.Name, err)
		}
	}
	for _, k := range c.Kinds() {
		if _, err := k.EnsureType(ctx); err != nil {
			return fmt.Errorf("bootstrap kind %s: %w", k.Name, err)
		}
	}

	c.log.Info("catalog bootstrapped",
		slog.Int("kinds", len(c.Kinds())),
		slog.Int("relation_kinds", len(c.RelationKinds())))
	return nil
}
