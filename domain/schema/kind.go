package schema

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"sync"

	"github.com/uptrace/bun"
	bunschema "github.com/uptrace/bun/schema"

	"github.com/adsharma/truth-serum/domain/relations"
	"github.com/adsharma/truth-serum/domain/typeregistry"
	"github.com/adsharma/truth-serum/pkg/apperror"
)

const insertBatchSize = 500

// Field describes one declared column of a kind.
type Field struct {
	Name    string `json:"name" yaml:"name"`
	GoType  string `json:"goType" yaml:"goType"`
	Default string `json:"default,omitempty" yaml:"default,omitempty"`
	NotNull bool   `json:"notNull" yaml:"notNull"`
}

// Kind is the registered descriptor of one entity kind. The resolved
// object type is cached on the descriptor and shared by all instances.
type Kind struct {
	Name       string
	Table      string
	Fields     []Field
	PrimaryKey []string

	typ     reflect.Type
	table   *bunschema.Table
	catalog *Catalog

	mu      sync.Mutex
	typeRec *typeregistry.TypeRecord
}

func newKind(c *Catalog, name string, typ reflect.Type) (*Kind, error) {
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("kind %s: %s is not a struct", name, typ)
	}
	if !reflect.PointerTo(typ).Implements(reflect.TypeOf((*Entity)(nil)).Elem()) {
		return nil, fmt.Errorf("kind %s: *%s does not implement Entity", name, typ)
	}

	table := c.db.Dialect().Tables().Get(typ)
	if len(table.PKs) != 1 || table.PKs[0].Name != "id" {
		return nil, fmt.Errorf("kind %s: primary key must be the embedded Node id", name)
	}

	k := &Kind{
		Name:    name,
		Table:   table.Name,
		typ:     typ,
		table:   table,
		catalog: c,
	}
	for _, pk := range table.PKs {
		k.PrimaryKey = append(k.PrimaryKey, pk.Name)
	}
	for _, f := range table.DataFields {
		k.Fields = append(k.Fields, Field{
			Name:    f.Name,
			GoType:  f.IndirectType.String(),
			Default: f.SQLDefault,
			NotNull: f.NotNull,
		})
	}
	return k, nil
}

// FieldNames returns the declared column names in declaration order.
func (k *Kind) FieldNames() []string {
	names := make([]string, len(k.Fields))
	for i, f := range k.Fields {
		names[i] = f.Name
	}
	return names
}

// New returns a zero instance of the kind.
func (k *Kind) New() Entity {
	return reflect.New(k.typ).Interface().(Entity)
}

// Build returns an instance whose declared fields are set positionally
// from values. Strings are parsed into the field's type.
func (k *Kind) Build(values ...any) (Entity, error) {
	if len(values) != len(k.table.DataFields) {
		return nil, apperror.NewInvalidArgument("kind %s takes %d values, got %d",
			k.Name, len(k.table.DataFields), len(values))
	}

	e := k.New()
	strct := reflect.ValueOf(e).Elem()
	for i, f := range k.table.DataFields {
		if err := setField(f, strct, values[i]); err != nil {
			return nil, apperror.NewInvalidArgument("kind %s field %s: %v", k.Name, f.Name, err)
		}
	}
	return e, nil
}

// BuildFromMap returns an instance with the named fields set. Unknown
// names are rejected; omitted fields keep their zero value.
func (k *Kind) BuildFromMap(values map[string]any) (Entity, error) {
	e := k.New()
	strct := reflect.ValueOf(e).Elem()
	for name, v := range values {
		f, ok := k.table.FieldMap[name]
		if !ok || f.IsPK {
			return nil, apperror.NewInvalidArgument("kind %s has no field %q", k.Name, name)
		}
		if err := setField(f, strct, v); err != nil {
			return nil, apperror.NewInvalidArgument("kind %s field %s: %v", k.Name, name, err)
		}
	}
	return e, nil
}

func setField(f *bunschema.Field, strct reflect.Value, v any) error {
	switch f.IndirectType.Kind() {
	case reflect.Float32, reflect.Float64:
		switch n := v.(type) {
		case int:
			v = float64(n)
		case int64:
			v = float64(n)
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		switch n := v.(type) {
		case int:
			v = int64(n)
		case int32:
			v = int64(n)
		case float64:
			v = strconv.FormatFloat(n, 'f', -1, 64)
		}
	}
	return f.ScanValue(strct, v)
}

// Values returns the declared field values of e keyed by column name.
func (k *Kind) Values(e Entity) map[string]any {
	strct := reflect.ValueOf(e).Elem()
	out := make(map[string]any, len(k.table.DataFields))
	for _, f := range k.table.DataFields {
		out[f.Name] = f.Value(strct).Interface()
	}
	return out
}

// EnsureType resolves the kind's object type, caching it on the
// descriptor so later calls never reach the registry.
func (k *Kind) EnsureType(ctx context.Context) (typeregistry.TypeRecord, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.typeRec != nil {
		return *k.typeRec, nil
	}
	rec, err := k.catalog.registry.ResolveObjectType(ctx, k.Name)
	if err != nil {
		return typeregistry.TypeRecord{}, err
	}
	k.typeRec = &rec
	return rec, nil
}

// TypeEdge returns the instance-of edge for id. EnsureType must have
// succeeded on the kind and on the catalog's instance-of relation kind.
func (k *Kind) TypeEdge(id int64) (relations.TypeRelation, error) {
	k.mu.Lock()
	rec := k.typeRec
	k.mu.Unlock()
	if rec == nil {
		return relations.TypeRelation{}, fmt.Errorf("kind %s: type not resolved", k.Name)
	}

	instanceOf, ok := k.catalog.instanceOf.Resolved()
	if !ok {
		return relations.TypeRelation{}, fmt.Errorf("relation kind %s not resolved", k.catalog.instanceOf.Name)
	}
	return relations.TypeRelation{Src: id, RType: instanceOf.ID, Dst: rec.ID}, nil
}

// ReifyInstance writes the instance-of edge for id through db.
func (k *Kind) ReifyInstance(ctx context.Context, db bun.IDB, id int64) error {
	edge, err := k.TypeEdge(id)
	if err != nil {
		return err
	}
	return k.catalog.store.InsertTypeRelation(ctx, db, edge)
}

// Insert writes entity rows through db. Every entity must be an instance
// of the kind with a non-zero id.
func (k *Kind) Insert(ctx context.Context, db bun.IDB, entities []Entity) error {
	ptrType := reflect.PointerTo(k.typ)
	rows := reflect.MakeSlice(reflect.SliceOf(ptrType), 0, len(entities))
	for _, e := range entities {
		v := reflect.ValueOf(e)
		if v.Type() != ptrType {
			return apperror.NewInvalidArgument("kind %s cannot store %T", k.Name, e)
		}
		if e.EntityID() == 0 {
			return apperror.NewInvalidArgument("kind %s: entity has no id", k.Name)
		}
		rows = reflect.Append(rows, v)
	}

	for start := 0; start < rows.Len(); start += insertBatchSize {
		end := min(start+insertBatchSize, rows.Len())
		chunk := reflect.New(rows.Type())
		chunk.Elem().Set(rows.Slice(start, end))

		if _, err := db.NewInsert().Model(chunk.Interface()).Exec(ctx); err != nil {
			return apperror.ErrDatabase.WithInternal(fmt.Errorf("insert %s: %w", k.Table, err))
		}
	}
	return nil
}

// Get loads the entity with id.
func (k *Kind) Get(ctx context.Context, id int64) (Entity, error) {
	e := k.New()
	e.SetEntityID(id)
	err := k.catalog.db.NewSelect().
		Model(e).
		WherePK().
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound(k.Name, strconv.FormatInt(id, 10))
	}
	if err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return e, nil
}

// List returns up to limit entities ordered by id. limit <= 0 means all.
func (k *Kind) List(ctx context.Context, limit int) ([]Entity, error) {
	rows := reflect.New(reflect.SliceOf(reflect.PointerTo(k.typ)))
	q := k.catalog.db.NewSelect().
		Model(rows.Interface()).
		OrderExpr("?.id ASC", k.table.SQLAlias)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}

	slice := rows.Elem()
	out := make([]Entity, slice.Len())
	for i := range out {
		out[i] = slice.Index(i).Interface().(Entity)
	}
	return out, nil
}

// Count returns the number of stored entities.
func (k *Kind) Count(ctx context.Context) (int, error) {
	n, err := k.catalog.db.NewSelect().Model(k.New()).Count(ctx)
	if err != nil {
		return 0, apperror.ErrDatabase.WithInternal(err)
	}
	return n, nil
}

func (k *Kind) createTable(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateTable().
		Model(k.New()).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create table %s: %w", k.Table, err)
	}
	return nil
}
