package history

import (
	"time"

	"github.com/banshee-data/vehicle.history/internal/monitoring"
	"github.com/banshee-data/vehicle.history/internal/telemetry"
)

// CleanStats counts what the cleaner dropped or repaired.
type CleanStats struct {
	Input       int `json:"input"`
	Kept        int `json:"kept"`
	MissingKey  int `json:"missing_key"`
	DuplicateID int `json:"duplicate_id"`
	OutOfOrder  int `json:"out_of_order"`

	RepairedOdometer int `json:"repaired_odometer"`
	RepairedPosition int `json:"repaired_position"`
}

// Dropped is the number of input samples not retained.
func (s CleanStats) Dropped() int {
	return s.Input - s.Kept
}

// Clean removes transport artefacts from a filtered window. It drops samples
// without an ID or timestamp, samples whose ID was already retained, and
// samples whose timestamp regresses relative to the last retained sample (the
// later arrival is the one dropped). Equal timestamps keep arrival order.
//
// Unusable readings are normalised to missing: a NaN or infinite odometer and
// an out-of-range or (0,0) position become nil. Nothing is fabricated.
func Clean(samples []telemetry.Sample) ([]telemetry.Sample, CleanStats) {
	stats := CleanStats{Input: len(samples)}
	out := make([]telemetry.Sample, 0, len(samples))
	seen := make(map[string]struct{}, len(samples))

	for i, s := range samples {
		if s.ID == "" || s.Timestamp.IsZero() {
			stats.MissingKey++
			monitoring.Diagf("clean: dropped sample %d without id or timestamp", i)
			continue
		}
		if _, dup := seen[s.ID]; dup {
			stats.DuplicateID++
			monitoring.Diagf("clean: dropped duplicate sample id=%s", s.ID)
			continue
		}
		if n := len(out); n > 0 && s.Timestamp.Before(out[n-1].Timestamp) {
			stats.OutOfOrder++
			monitoring.Diagf("clean: dropped out-of-order sample id=%s at %s (last kept %s)",
				s.ID, s.Timestamp.Format(time.RFC3339), out[n-1].Timestamp.Format(time.RFC3339))
			continue
		}

		if s.OdometerMiles != nil && !s.HasOdometer() {
			s.OdometerMiles = nil
			stats.RepairedOdometer++
		}
		if s.Position != nil && !s.Position.Valid() {
			s.Position = nil
			stats.RepairedPosition++
		}

		seen[s.ID] = struct{}{}
		out = append(out, s)
	}

	stats.Kept = len(out)
	if stats.Dropped() > 0 {
		monitoring.Logf("history: cleaner kept %d of %d samples (%d duplicate, %d out of order, %d missing key)",
			stats.Kept, stats.Input, stats.DuplicateID, stats.OutOfOrder, stats.MissingKey)
	}
	return out, stats
}
