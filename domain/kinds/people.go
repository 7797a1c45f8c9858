package kinds

import (
	"github.com/uptrace/bun"

	"github.com/adsharma/truth-serum/domain/schema"
)

type Person struct {
	bun.BaseModel `bun:"table:people,alias:pe"`
	schema.Node

	Name string `bun:"name,notnull" json:"name" yaml:"name"`
}

type Organization struct {
	bun.BaseModel `bun:"table:organizations,alias:og"`
	schema.Node

	Name string `bun:"name,notnull" json:"name" yaml:"name"`
}

const (
	BirthDateRelation   = "BirthDateRelation"
	BirthPlaceRelation  = "BirthPlaceRelation"
	ResidesInRelation   = "ResidesInRelation"
	DeathDateRelation   = "DeathDateRelation"
	FoundedDateRelation = "FoundedDateRelation"
	MemberOfRelation    = "MemberOfRelation"
	FounderOfRelation   = "FounderOfRelation"
)
