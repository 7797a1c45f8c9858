package kinds

import (
	"github.com/uptrace/bun"

	"github.com/adsharma/truth-serum/domain/schema"
)

// Viewpoint is an observer whose id scopes the relations it asserts.
type Viewpoint struct {
	bun.BaseModel `bun:"table:viewpoints,alias:vp"`
	schema.Node

	Name        string `bun:"name,notnull" json:"name" yaml:"name"`
	Description string `bun:"description" json:"description" yaml:"description"`
}

// Ideas records a claim and where it came from.
type Ideas struct {
	bun.BaseModel `bun:"table:ideas,alias:ia"`
	schema.Node

	Title string `bun:"title,notnull" json:"title" yaml:"title"`
	// Either a URL or "<llm> <version> <prompt>".
	Source      string `bun:"source" json:"source" yaml:"source"`
	Description string `bun:"description" json:"description" yaml:"description"`
}
