// Package testutil provides shared test helpers and telemetry fixtures.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/banshee-data/vehicle.history/internal/telemetry"
)

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t testing.TB, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// NewTestRequest creates a test HTTP request from a loopback address, so
// routes guarded by tsweb debug access accept it.
func NewTestRequest(method, path string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = "127.0.0.1:40000"
	return req
}

// DriveStart is the timestamp of the first sample of Drive.
var DriveStart = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

// Drive returns a short trip in arrival order: ignition on, a stationary
// warm up, two moving legs split by a stop at lights, a park and ignition
// off. Samples are one minute apart and the odometer advances one mile per
// moving sample.
func Drive() []telemetry.Sample {
	type leg struct {
		cmd   telemetry.Kind
		speed float64
		miles float64
	}
	legs := []leg{
		{telemetry.KindIgnitionOn, 0, 0},
		{telemetry.KindUpdate, 0, 0},
		{telemetry.KindUpdate, 30, 1},
		{telemetry.KindUpdate, 32, 1},
		{telemetry.KindIdle, 0, 0},
		{telemetry.KindIdle, 0, 0},
		{telemetry.KindUpdate, 25, 1},
		{telemetry.KindPark, 0, 0},
		{telemetry.KindIgnitionOff, 0, 0},
	}

	samples := make([]telemetry.Sample, 0, len(legs))
	odometer := 1000.0
	lat, lon := 51.5000, -0.1200
	for i, l := range legs {
		odometer += l.miles
		lat += l.miles * 0.01
		lon += l.miles * 0.01
		samples = append(samples, telemetry.Sample{
			ID:            "s" + string(rune('0'+i)),
			Timestamp:     DriveStart.Add(time.Duration(i) * time.Minute),
			Position:      &telemetry.Position{Lat: lat, Lon: lon},
			OdometerMiles: telemetry.Float(odometer),
			SpeedMPH:      l.speed,
			Command:       l.cmd,
			GPSAccuracy:   5,
			Online:        true,
		})
	}
	return samples
}
