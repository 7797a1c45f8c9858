// Package schema is the entity model: every entity kind is a bun model
// embedding Node, registered once at startup in a Catalog that records its
// field layout and reifies its type on persistence.
package schema

// Entity is implemented by every persisted entity kind.
type Entity interface {
	EntityID() int64
	SetEntityID(id int64)
}

// Node carries the global id. Entity structs embed it.
type Node struct {
	ID int64 `bun:"id,pk" json:"id" yaml:"id"`
}

func (n *Node) EntityID() int64 {
	return n.ID
}

func (n *Node) SetEntityID(id int64) {
	n.ID = id
}
