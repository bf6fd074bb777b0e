package history

import "github.com/banshee-data/vehicle.history/internal/telemetry"

// AnnotateStartStop sets each event's Status. An event moving after a stopped
// one is a Start, an event stopped after a moving one is a Stop, and other
// events are Moving or Stopped. A device override always wins. The sequence
// length never changes.
func AnnotateStartStop(events []Event, stationaryMPH float64) []Event {
	out := make([]Event, len(events))
	copy(out, events)
	for i := range out {
		moving := isMoving(out[i], stationaryMPH)
		v := telemetry.StatusStopped
		if moving {
			v = telemetry.StatusMoving
		}
		if i > 0 {
			prev := isMoving(out[i-1], stationaryMPH)
			switch {
			case moving && !prev:
				v = telemetry.StatusStart
			case !moving && prev:
				v = telemetry.StatusStop
			}
		}
		out[i].Status = telemetry.Derived(v)
		if st, ok := telemetry.FromOverride(out[i].Override); ok {
			out[i].Status = st
		}
	}
	return out
}

// isMoving classifies e from its command and speed. Rolled-up events are
// stationary periods by construction.
func isMoving(e Event, stationaryMPH float64) bool {
	if e.RolledUp() {
		return false
	}
	switch e.Command {
	case telemetry.KindIgnitionOff, telemetry.KindPark:
		return false
	}
	return e.SpeedMPH > stationaryMPH
}
