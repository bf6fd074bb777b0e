// Package history turns a raw window of vehicle telemetry into the cleaned,
// annotated and distance-augmented event sequence shown in the history table,
// exported as a file and replayed on the map.
//
// Every stage is a pure function returning a new slice. Process runs them in
// order: Filter, Clean, AnnotateMileage, Rollup (optional), AnnotateStartStop,
// AggregateDistance and Sequence.
package history

import (
	"time"

	"github.com/banshee-data/vehicle.history/internal/telemetry"
)

// Event is a sample after pipeline annotation.
type Event struct {
	telemetry.Sample

	// DeltaMiles is the odometer increase since the previous anchored sample.
	DeltaMiles *float64 `json:"deltaMiles"`
	// SegmentMiles is the distance accumulated under the active distance mode.
	SegmentMiles *float64 `json:"segmentMiles"`

	RolledUpCount int           `json:"rolledUpCount"`
	RolledUpUntil time.Time     `json:"rolledUpUntil,omitzero"`
	IdleDuration  time.Duration `json:"idleDuration,omitempty"`

	Status telemetry.Status `json:"status"`
}

// NewEvent wraps s with no annotations and a rollup count of one.
func NewEvent(s telemetry.Sample) Event {
	return Event{Sample: s, RolledUpCount: 1}
}

// RolledUp reports whether e stands for more than one sample.
func (e Event) RolledUp() bool {
	return e.RolledUpCount > 1
}

// LastTimestamp is the time of the last sample e covers.
func (e Event) LastTimestamp() time.Time {
	if e.RolledUpUntil.IsZero() {
		return e.Timestamp
	}
	return e.RolledUpUntil
}

// Color is the row colour: idle for rolled-up periods, otherwise by status.
func (e Event) Color() string {
	return e.Status.Color(e.RolledUp())
}

func wrap(samples []telemetry.Sample) []Event {
	out := make([]Event, len(samples))
	for i, s := range samples {
		out[i] = NewEvent(s)
	}
	return out
}
