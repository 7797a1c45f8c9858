// Package metrics holds the prometheus collectors for the graph core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IDsAllocated counts identifiers handed out by the global allocator.
	IDsAllocated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kg_ids_allocated_total",
		Help: "Total number of global identifiers allocated",
	})

	AllocationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kg_id_allocation_failures_total",
		Help: "Total number of failed allocation calls",
	})

	// TypeResolutions counts registry lookups by table and outcome
	// (cache, found, created).
	TypeResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kg_type_resolutions_total",
		Help: "Type registry resolutions by table and outcome",
	}, []string{"table", "outcome"})

	// RowsSaved counts rows committed by bulk operations, per kind.
	RowsSaved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kg_rows_saved_total",
		Help: "Rows committed by bulk save operations",
	}, []string{"operation", "kind"})

	RelationsInserted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kg_relations_inserted_total",
		Help: "Relation rows inserted, by table",
	}, []string{"table"})
)
