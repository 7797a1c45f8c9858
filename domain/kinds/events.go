package kinds

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/adsharma/truth-serum/domain/schema"
)

type Event struct {
	bun.BaseModel `bun:"table:events,alias:ev"`
	schema.Node

	Name string `bun:"name,notnull" json:"name" yaml:"name"`
}

// Date reifies a calendar day so that relations can point at it.
type Date struct {
	bun.BaseModel `bun:"table:dates,alias:dt"`
	schema.Node

	Date time.Time `bun:"date,type:date,notnull" json:"date" yaml:"date"`
}

type Conference struct {
	bun.BaseModel `bun:"table:conferences,alias:cf"`
	schema.Node

	Name string `bun:"name,notnull" json:"name" yaml:"name"`
}

const (
	EventStartDateRelation  = "EventStartDateRelation"
	EventEndDateRelation    = "EventEndDateRelation"
	ConferenceEventRelation = "ConferenceEventRelation"
	OrganizedByRelation     = "OrganizedByRelation"
	AttendeeOfRelation      = "AttendeeOfRelation"
)
