package relations

import (
	"time"

	"github.com/uptrace/bun"
)

// Infinity is the open end of a validity window.
var Infinity = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)

// GroundTruth is the viewpoint of facts not asserted by any observer.
const GroundTruth int64 = 0

// Relation is a directed, typed edge valid over [Start, End).
type Relation struct {
	bun.BaseModel `bun:"table:relations,alias:r"`

	Src         int64      `bun:"src,pk" json:"src"`
	RType       int64      `bun:"rtype,pk" json:"rtype"`
	Dst         int64      `bun:"dst,pk" json:"dst"`
	Start       time.Time  `bun:"start,pk" json:"start"`
	End         *time.Time `bun:"end" json:"end,omitempty"`
	Probability float64    `bun:"probability,notnull" json:"probability"`
	Viewpoint   int64      `bun:"viewpoint,notnull" json:"viewpoint"`
}

// ValidOn reports whether the relation holds on day.
func (r *Relation) ValidOn(day time.Time) bool {
	day = Day(day)
	if day.Before(r.Start) {
		return false
	}
	return r.End == nil || day.Before(*r.End)
}

// TypeRelation links an entity id to its object type through the
// instance-of property type.
type TypeRelation struct {
	bun.BaseModel `bun:"table:type_relations,alias:tr"`

	Src   int64 `bun:"src,pk" json:"src"`
	RType int64 `bun:"rtype,pk" json:"rtype"`
	Dst   int64 `bun:"dst,pk" json:"dst"`
}

// Params describes a relation to insert. Nil fields take defaults: Start
// is today, End is Infinity, Probability is 1 and Viewpoint is GroundTruth.
type Params struct {
	Src         int64
	RType       int64
	Dst         int64
	Start       *time.Time
	End         *time.Time
	Probability *float64
	Viewpoint   *int64
}

// Filter narrows Find. Zero-valued fields match everything.
type Filter struct {
	Src       *int64
	RType     *int64
	Dst       *int64
	Viewpoint *int64
	ValidOn   *time.Time
	Limit     int
}

// Day returns the calendar date of t, read in t's own location, as UTC
// midnight. 2020-01-01 00:00 CET is 2020-01-01, not 2019-12-31.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
