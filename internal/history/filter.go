package history

import "github.com/banshee-data/vehicle.history/internal/telemetry"

// Filter drops verbose-only samples unless showVerbose is set. Retained
// samples keep their order and are not modified.
func Filter(samples []telemetry.Sample, showVerbose bool) []telemetry.Sample {
	out := make([]telemetry.Sample, 0, len(samples))
	for _, s := range samples {
		if s.Verbose && !showVerbose {
			continue
		}
		out = append(out, s)
	}
	return out
}
