package history

import "github.com/banshee-data/vehicle.history/internal/telemetry"

// Rollup collapses maximal runs of consecutive uninteresting events that share
// a command kind into one representative event. The representative keeps the
// first event's ID, position and time, sums the run's deltas and counts, and
// records when the run ended. Runs of one pass through unchanged, so applying
// Rollup to its own output is a no-op.
func Rollup(events []Event, stationaryMPH float64) []Event {
	out := make([]Event, 0, len(events))
	for i := 0; i < len(events); {
		kind, ok := rollupClass(events[i], stationaryMPH)
		j := i + 1
		if ok {
			for j < len(events) {
				k, ok := rollupClass(events[j], stationaryMPH)
				if !ok || k != kind {
					break
				}
				j++
			}
		}
		if j-i == 1 {
			out = append(out, events[i])
		} else {
			out = append(out, collapse(events[i:j]))
		}
		i = j
	}
	return out
}

// rollupClass returns the run class of e and whether e may be rolled up at
// all. Overrides and ignition events always break a run.
func rollupClass(e Event, stationaryMPH float64) (telemetry.Kind, bool) {
	if e.Override != telemetry.OverrideNone {
		return 0, false
	}
	switch e.Command {
	case telemetry.KindUpdate, telemetry.KindIdle, telemetry.KindPark, telemetry.KindUnknown:
	default:
		return 0, false
	}
	if e.SpeedMPH > stationaryMPH {
		return 0, false
	}
	return e.Command, true
}

func collapse(run []Event) Event {
	rep := run[0]
	rep.RolledUpCount = 0
	var (
		total   float64
		defined bool
	)
	for _, e := range run {
		rep.RolledUpCount += e.RolledUpCount
		if e.DeltaMiles != nil {
			total += *e.DeltaMiles
			defined = true
		}
	}
	rep.DeltaMiles = nil
	if defined {
		rep.DeltaMiles = telemetry.Float(total)
	}
	rep.RolledUpUntil = run[len(run)-1].LastTimestamp()
	rep.IdleDuration = rep.RolledUpUntil.Sub(rep.Timestamp)
	return rep
}
