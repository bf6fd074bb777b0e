package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/banshee-data/vehicle.history/internal/telemetry"
)

func TestSummarize(t *testing.T) {
	opts := DefaultOptions()
	opts.Rollup = true
	in := append(trip(),
		sample("s7", 6, telemetry.KindUpdate, odo(6), 0),
		sample("s8", 9, telemetry.KindUpdate, odo(6), 0),
	)
	events := Recompute(in, opts)

	s := Summarize(events)

	assert.Equal(t, 6, s.Events)
	assert.Equal(t, 8, s.Samples)
	assert.InDelta(t, 6.0, s.TotalMiles, 1e-9)
	assert.Equal(t, 1, s.Starts)
	assert.Equal(t, 1, s.Stops)
	assert.Equal(t, 4*time.Minute, s.Idle)
	assert.Equal(t, 30.0, s.MaxSpeedMPH)
	assert.InDelta(t, 18.0, s.MeanSpeedMPH, 1e-9)
	assert.Equal(t, base, s.First)
	assert.Equal(t, base.Add(9*time.Minute), s.Last)
	assert.Equal(t, "Showing 6 events (8 samples)", s.Message())

	reversed := Summarize(Sequence(events, true))
	assert.Equal(t, s, reversed)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	assert.True(t, s.Empty())
	assert.Equal(t, "No data for the selected period", s.Message())
}
