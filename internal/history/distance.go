package history

import "github.com/banshee-data/vehicle.history/internal/telemetry"

// AggregateDistance sets SegmentMiles under mode. Each event carries the
// deltas accumulated since the last boundary including its own, and the
// accumulator resets after every boundary event, so a boundary row shows the
// closing total of its segment. SegmentMiles stays nil until a defined delta
// has been seen in the current segment. The window start is an implicit
// boundary.
func AggregateDistance(events []Event, mode DistanceMode) []Event {
	out := make([]Event, len(events))
	copy(out, events)

	isBoundary := startStopBoundary
	if mode == ModeIgnition {
		isBoundary = ignitionBoundary()
	}

	var (
		acc     float64
		defined bool
	)
	for i := range out {
		if d := out[i].DeltaMiles; d != nil {
			acc += *d
			defined = true
		}
		out[i].SegmentMiles = nil
		if defined {
			out[i].SegmentMiles = telemetry.Float(acc)
		}
		if isBoundary(out[i]) {
			acc, defined = 0, false
		}
	}
	return out
}

func startStopBoundary(e Event) bool {
	return e.Status.IsBoundary()
}

// ignitionBoundary returns a predicate matching ignition events that change
// the known ignition state. The first ignition event in a window is always a
// boundary.
func ignitionBoundary() func(Event) bool {
	var on, known bool
	return func(e Event) bool {
		if !e.Command.IsIgnition() {
			return false
		}
		state := e.Command == telemetry.KindIgnitionOn
		changed := !known || state != on
		on, known = state, true
		return changed
	}
}
