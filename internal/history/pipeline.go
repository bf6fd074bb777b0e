package history

import (
	"github.com/jinzhu/copier"

	"github.com/banshee-data/vehicle.history/internal/monitoring"
	"github.com/banshee-data/vehicle.history/internal/telemetry"
)

// Result is the output of one recomputation.
type Result struct {
	Events  []Event    `json:"events"`
	Stats   CleanStats `json:"stats"`
	Options Options    `json:"-"`
}

// Empty reports the "no data" condition: nothing survived the pipeline.
func (r Result) Empty() bool {
	return len(r.Events) == 0
}

// Process runs the whole pipeline over a window of samples. The input is deep
// copied first, so the result never shares memory with the caller's samples.
//
// In raw mode only the filter, the optional rollup and the sequencer run, and
// Stats is left zero.
func Process(samples []telemetry.Sample, opts Options) Result {
	res := Result{Options: opts, Events: []Event{}}
	if len(samples) == 0 {
		return res
	}

	filtered := Filter(cloneSamples(samples), opts.Verbose)

	var events []Event
	if opts.RawData {
		events = wrap(filtered)
		for i := range events {
			if st, ok := telemetry.FromOverride(events[i].Override); ok {
				events[i].Status = st
			}
		}
		if opts.Rollup {
			events = Rollup(events, opts.StationarySpeedMPH)
		}
	} else {
		var cleaned []telemetry.Sample
		cleaned, res.Stats = Clean(filtered)
		events = AnnotateMileage(cleaned)
		if opts.Rollup {
			events = Rollup(events, opts.StationarySpeedMPH)
		}
		events = AnnotateStartStop(events, opts.StationarySpeedMPH)
		events = AggregateDistance(events, opts.DistanceMode)
	}

	res.Events = Sequence(events, opts.ReverseOrder)
	return res
}

// Recompute is Process without the statistics.
func Recompute(samples []telemetry.Sample, opts Options) []Event {
	return Process(samples, opts).Events
}

func cloneSamples(samples []telemetry.Sample) []telemetry.Sample {
	var out []telemetry.Sample
	if err := copier.CopyWithOption(&out, &samples, copier.Option{DeepCopy: true}); err != nil {
		monitoring.Logf("history: deep copy of %d samples failed, using shallow copy: %v", len(samples), err)
		return append([]telemetry.Sample(nil), samples...)
	}
	return out
}
