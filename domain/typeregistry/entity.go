package typeregistry

import (
	"github.com/uptrace/bun"
)

// Table names one of the two type tables.
type Table string

const (
	// ObjectTypes holds one row per entity kind.
	ObjectTypes Table = "object_types"
	// PropertyTypes holds one row per relation or property kind.
	PropertyTypes Table = "property_types"
)

func (t Table) String() string {
	return string(t)
}

// TypeRecord is a row of object_types or property_types. The table is
// chosen per query, the shape is shared.
type TypeRecord struct {
	bun.BaseModel `bun:"table:object_types,alias:t"`

	ID   int64  `bun:"id,pk" json:"id" yaml:"id"`
	Name string `bun:"name,notnull" json:"name" yaml:"name"`
}
