package kinds

import (
	"github.com/uptrace/bun"

	"github.com/adsharma/truth-serum/domain/schema"
)

type Building struct {
	bun.BaseModel `bun:"table:buildings,alias:bu"`
	schema.Node

	Name string `bun:"name,notnull" json:"name" yaml:"name"`
}

type Monument struct {
	bun.BaseModel `bun:"table:monuments,alias:mo"`
	schema.Node

	Name string `bun:"name,notnull" json:"name" yaml:"name"`
}

const (
	LocatedAtRelation        = "LocatedAtRelation"
	BuiltDateRelation        = "BuiltDateRelation"
	MonumentBuildingRelation = "MonumentBuildingRelation"
	ArchitectOfRelation      = "ArchitectOfRelation"
	BuiltByRelation          = "BuiltByRelation"
)
