// Package tracing records bus transactions flowing through a fabric into
// trace files for later inspection.
package tracing

import "github.com/chiplab/busfabric/timing"

// A Task is one traced unit of work, typically a single bus transaction.
type Task struct {
	ID         string              `json:"id"`
	Kind       string              `json:"kind"`
	What       string              `json:"what"`
	Where      string              `json:"where"`
	StartCycle timing.VTimeInCycle `json:"start_cycle"`
	EndCycle   timing.VTimeInCycle `json:"end_cycle"`
	Detail     any                 `json:"detail,omitempty"`
}

// TraceWriter persists tasks to a backend.
type TraceWriter interface {
	// Init prepares the backend. Must be called before the first Write.
	Init()

	// Write buffers one task for persistence.
	Write(task Task)

	// Flush forces all buffered tasks to the backend.
	Flush()
}
