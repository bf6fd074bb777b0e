package history

import (
	"math"

	"github.com/banshee-data/vehicle.history/internal/telemetry"
)

// AnnotateMileage wraps samples as events and sets DeltaMiles to the odometer
// increase since the nearest earlier sample with a reading. Negative deltas
// from rollover or noise clamp to zero. The first anchored sample and samples
// without a reading get nil and do not become anchors.
func AnnotateMileage(samples []telemetry.Sample) []Event {
	out := wrap(samples)
	var anchor *float64
	for i := range out {
		if !out[i].HasOdometer() {
			continue
		}
		cur := *out[i].OdometerMiles
		if anchor != nil {
			out[i].DeltaMiles = telemetry.Float(math.Max(0, cur-*anchor))
		}
		anchor = telemetry.Float(cur)
	}
	return out
}
