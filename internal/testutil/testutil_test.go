package testutil

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/vehicle.history/internal/telemetry"
)

func TestAssertStatusCode(t *testing.T) {
	t.Parallel()
	AssertStatusCode(t, http.StatusOK, http.StatusOK)

	ok := t.Run("status mismatch", func(t *testing.T) {
		AssertStatusCode(t, http.StatusOK, http.StatusBadRequest)
	})
	if ok {
		t.Fatal("expected subtest to fail on mismatched status code")
	}
}

func TestNewTestRequest(t *testing.T) {
	req := NewTestRequest(http.MethodGet, "/debug/")
	assert.Equal(t, "127.0.0.1:40000", req.RemoteAddr)
	assert.Equal(t, "/debug/", req.URL.Path)
}

func TestDrive(t *testing.T) {
	samples := Drive()
	require.Len(t, samples, 9)

	assert.Equal(t, telemetry.KindIgnitionOn, samples[0].Command)
	assert.Equal(t, telemetry.KindIgnitionOff, samples[8].Command)
	assert.Equal(t, DriveStart, samples[0].Timestamp)

	seen := map[string]bool{}
	for i, s := range samples {
		assert.False(t, seen[s.ID], "duplicate id %s", s.ID)
		seen[s.ID] = true
		assert.True(t, s.HasPosition())
		if i > 0 {
			assert.True(t, s.Timestamp.After(samples[i-1].Timestamp))
			assert.GreaterOrEqual(t, *s.OdometerMiles, *samples[i-1].OdometerMiles)
		}
	}
	assert.InDelta(t, 1003.0, *samples[8].OdometerMiles, 1e-9)
}
