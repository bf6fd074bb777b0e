package history

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/vehicle.history/internal/telemetry"
)

// Summary is the footer shown under the history table.
type Summary struct {
	Events       int           `json:"events"`
	Samples      int           `json:"samples"`
	TotalMiles   float64       `json:"total_miles"`
	MeanSpeedMPH float64       `json:"mean_speed_mph"`
	MaxSpeedMPH  float64       `json:"max_speed_mph"`
	Starts       int           `json:"starts"`
	Stops        int           `json:"stops"`
	Idle         time.Duration `json:"idle"`
	First        time.Time     `json:"first,omitzero"`
	Last         time.Time     `json:"last,omitzero"`
}

// Summarize totals a processed sequence in either order.
func Summarize(events []Event) Summary {
	s := Summary{Events: len(events)}
	if len(events) == 0 {
		return s
	}

	var deltas []float64
	speeds := make([]float64, 0, len(events))
	for _, e := range events {
		s.Samples += e.RolledUpCount
		if e.DeltaMiles != nil {
			deltas = append(deltas, *e.DeltaMiles)
		}
		if !e.RolledUp() {
			speeds = append(speeds, e.SpeedMPH)
		}
		switch e.Status.Value {
		case telemetry.StatusStart:
			s.Starts++
		case telemetry.StatusStop:
			s.Stops++
		}
		s.Idle += e.IdleDuration

		if s.First.IsZero() || e.Timestamp.Before(s.First) {
			s.First = e.Timestamp
		}
		if last := e.LastTimestamp(); last.After(s.Last) {
			s.Last = last
		}
	}

	if len(deltas) > 0 {
		s.TotalMiles = floats.Sum(deltas)
	}
	if len(speeds) > 0 {
		s.MeanSpeedMPH = stat.Mean(speeds, nil)
		s.MaxSpeedMPH = floats.Max(speeds)
	}
	return s
}

// Empty reports the "no data" condition.
func (s Summary) Empty() bool {
	return s.Events == 0
}

// Message is the table footer text.
func (s Summary) Message() string {
	if s.Empty() {
		return "No data for the selected period"
	}
	if s.Samples != s.Events {
		return fmt.Sprintf("Showing %d events (%d samples)", s.Events, s.Samples)
	}
	return fmt.Sprintf("Showing %d events", s.Events)
}
