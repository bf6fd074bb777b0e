package db

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/vehicle.history/internal/monitoring"
	"github.com/banshee-data/vehicle.history/internal/telemetry"
)

var base = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func init() {
	monitoring.SetLogger(nil)
}

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewDB_AppliesMigrations(t *testing.T) {
	db := setupTestDB(t)

	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.False(t, dirty)

	latest, err := LatestMigrationVersion()
	require.NoError(t, err)
	assert.Equal(t, latest, version)

	var name string
	err = db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name='vehicle_samples'`).Scan(&name)
	require.NoError(t, err)

	require.NoError(t, db.MigrateUp(), "re-running up is a no-op")
}

func TestMigrateDownAndUp(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, db.MigrateDown())
	version, _, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE name='vehicle_samples'`).Scan(&count))
	assert.Zero(t, count)

	require.NoError(t, db.MigrateUp())
}

func TestRunMigrateCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.db")
	var out bytes.Buffer

	require.NoError(t, RunMigrateCommand([]string{"up"}, path, &out))
	assert.Contains(t, out.String(), "Current version: 1")

	out.Reset()
	require.NoError(t, RunMigrateCommand([]string{"status"}, path, &out))
	assert.Contains(t, out.String(), "Latest available: 1")

	assert.Error(t, RunMigrateCommand(nil, path, &out))
	assert.Error(t, RunMigrateCommand([]string{"sideways"}, path, &out))
	assert.Error(t, RunMigrateCommand([]string{"force"}, path, &out))
	assert.Error(t, RunMigrateCommand([]string{"force", "x"}, path, &out))
}

func TestInsertAndQuerySamples(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	in := []telemetry.Sample{
		{
			ID:             "a",
			Timestamp:      base,
			Position:       &telemetry.Position{Lat: 51.501, Lon: -0.142},
			OdometerMiles:  telemetry.Float(1200.5),
			SpeedMPH:       12.5,
			Heading:        telemetry.Float(270),
			Command:        telemetry.KindIgnitionOn,
			Override:       telemetry.OverrideStart,
			EngineHours:    telemetry.Float(33.25),
			GPSAccuracy:    4,
			BatteryPercent: telemetry.Float(87),
			Online:         true,
		},
		// arrives late: must come back after "a" in arrival order
		{ID: "c", Timestamp: base.Add(2 * time.Minute), Command: telemetry.KindUpdate, Verbose: true, Buffered: true},
		{ID: "b", Timestamp: base.Add(time.Minute), Command: telemetry.KindIdle, OdometerMiles: telemetry.Float(math.NaN())},
		{Timestamp: base.Add(3 * time.Minute), Command: telemetry.KindPark},
	}

	n, err := db.InsertSamples(ctx, "acme", "truck-7", in)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	_, err = db.InsertSamples(ctx, "acme", "van-1", in[:1])
	require.NoError(t, err)

	got, err := db.SamplesInRange(ctx, "acme", "truck-7", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, got, 4)

	if diff := cmp.Diff(in[0], got[0]); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"a", "c", "b"}, []string{got[0].ID, got[1].ID, got[2].ID})
	assert.True(t, got[1].Verbose)
	assert.True(t, got[1].Buffered)
	assert.Nil(t, got[1].Position)
	assert.Nil(t, got[2].OdometerMiles, "NaN is stored as missing")
	assert.Equal(t, telemetry.KindIdle, got[2].Command)
	assert.NotEmpty(t, got[3].ID, "missing IDs are assigned")
	assert.Equal(t, telemetry.KindPark, got[3].Command)

	window, err := db.SamplesInRange(ctx, "acme", "truck-7", base.Add(time.Minute), base.Add(3*time.Minute))
	require.NoError(t, err)
	assert.Len(t, window, 2)

	empty, err := db.SamplesInRange(ctx, "acme", "truck-7", base.Add(time.Hour), time.Time{})
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestInsertSamples_RequiresIDs(t *testing.T) {
	db := setupTestDB(t)
	_, err := db.InsertSamples(context.Background(), "", "v", nil)
	assert.Error(t, err)
}

func TestVehicleSpanAndVehicles(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_, _, err := db.VehicleSpan(ctx, "acme", "ghost")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = db.InsertSamples(ctx, "acme", "truck-7", []telemetry.Sample{
		{ID: "a", Timestamp: base},
		{ID: "b", Timestamp: base.Add(time.Hour)},
	})
	require.NoError(t, err)
	_, err = db.InsertSamples(ctx, "acme", "van-1", []telemetry.Sample{{ID: "x", Timestamp: base}})
	require.NoError(t, err)

	first, last, err := db.VehicleSpan(ctx, "acme", "truck-7")
	require.NoError(t, err)
	assert.Equal(t, base, first)
	assert.Equal(t, base.Add(time.Hour), last)

	vehicles, err := db.Vehicles(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, []VehicleCount{
		{OrgID: "acme", VehicleID: "truck-7", Samples: 2, Last: base.Add(time.Hour)},
		{OrgID: "acme", VehicleID: "van-1", Samples: 1, Last: base},
	}, vehicles)

	none, err := db.Vehicles(ctx, "other")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestAdminRoutes(t *testing.T) {
	db := setupTestDB(t)
	_, err := db.InsertSamples(context.Background(), "acme", "truck-7", []telemetry.Sample{{ID: "a", Timestamp: base}})
	require.NoError(t, err)

	mux := http.NewServeMux()
	require.NoError(t, db.AttachAdminRoutes(mux))

	req := httptest.NewRequest(http.MethodGet, "/debug/backup", nil)
	req.RemoteAddr = "127.0.0.1:12345"
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/gzip", rec.Header().Get("Content-Type"))
	zr, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)
	data, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("SQLite format 3")))
}
