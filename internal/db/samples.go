package db

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/vehicle.history/internal/telemetry"
)

const sampleColumns = `sample_id, recorded_unix, lat, lon, odometer_miles, speed_mph, heading,
	command, status_override, verbose, engine_hours, gps_accuracy, battery_percent, buffered, online`

// InsertSamples appends samples for a vehicle in one transaction, in the
// order given. Samples without an ID get a random UUID. It returns the number
// of rows written.
func (db *DB) InsertSamples(ctx context.Context, orgID, vehicleID string, samples []telemetry.Sample) (int, error) {
	if orgID == "" || vehicleID == "" {
		return 0, fmt.Errorf("org and vehicle IDs are required")
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO vehicle_samples (org_id, vehicle_id, `+sampleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, s := range samples {
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		var lat, lon sql.NullFloat64
		if s.Position != nil {
			lat = sql.NullFloat64{Float64: s.Position.Lat, Valid: true}
			lon = sql.NullFloat64{Float64: s.Position.Lon, Valid: true}
		}
		_, err := stmt.ExecContext(ctx, orgID, vehicleID,
			s.ID, unixSeconds(s.Timestamp), lat, lon, nullable(s.OdometerMiles), s.SpeedMPH, nullable(s.Heading),
			s.Command.String(), s.Override.String(), s.Verbose, nullable(s.EngineHours), s.GPSAccuracy,
			nullable(s.BatteryPercent), s.Buffered, s.Online)
		if err != nil {
			return 0, fmt.Errorf("failed to insert sample %d (%s): %w", i, s.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit samples: %w", err)
	}
	return len(samples), nil
}

// SamplesInRange returns a vehicle's samples recorded in [start, end) in
// arrival order, so duplicates and late deliveries reach the cleaner as the
// device sent them. A zero start or end leaves that side open.
func (db *DB) SamplesInRange(ctx context.Context, orgID, vehicleID string, start, end time.Time) ([]telemetry.Sample, error) {
	query := `SELECT ` + sampleColumns + ` FROM vehicle_samples WHERE org_id = ? AND vehicle_id = ?`
	args := []interface{}{orgID, vehicleID}
	if !start.IsZero() {
		query += ` AND recorded_unix >= ?`
		args = append(args, unixSeconds(start))
	}
	if !end.IsZero() {
		query += ` AND recorded_unix < ?`
		args = append(args, unixSeconds(end))
	}
	query += ` ORDER BY rowid`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}
	defer rows.Close()

	samples := []telemetry.Sample{}
	for rows.Next() {
		var (
			s                           telemetry.Sample
			recorded                    float64
			lat, lon, odometer, heading sql.NullFloat64
			engineHours, battery        sql.NullFloat64
			command, override           string
		)
		if err := rows.Scan(&s.ID, &recorded, &lat, &lon, &odometer, &s.SpeedMPH, &heading,
			&command, &override, &s.Verbose, &engineHours, &s.GPSAccuracy, &battery, &s.Buffered, &s.Online); err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		s.Timestamp = fromUnixSeconds(recorded)
		if lat.Valid && lon.Valid {
			s.Position = &telemetry.Position{Lat: lat.Float64, Lon: lon.Float64}
		}
		s.OdometerMiles = pointer(odometer)
		s.Heading = pointer(heading)
		s.EngineHours = pointer(engineHours)
		s.BatteryPercent = pointer(battery)
		s.Command = telemetry.ParseKind(command)
		s.Override, _ = telemetry.ParseOverride(override)
		samples = append(samples, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read samples: %w", err)
	}
	return samples, nil
}

// VehicleSpan returns the first and last recorded time of a vehicle's
// samples, or ErrNotFound when it has none.
func (db *DB) VehicleSpan(ctx context.Context, orgID, vehicleID string) (first, last time.Time, err error) {
	var lo, hi sql.NullFloat64
	err = db.QueryRowContext(ctx,
		`SELECT MIN(recorded_unix), MAX(recorded_unix) FROM vehicle_samples WHERE org_id = ? AND vehicle_id = ?`,
		orgID, vehicleID).Scan(&lo, &hi)
	if err != nil {
		return first, last, fmt.Errorf("failed to query vehicle span: %w", err)
	}
	if !lo.Valid {
		return first, last, fmt.Errorf("vehicle %s/%s: %w", orgID, vehicleID, ErrNotFound)
	}
	return fromUnixSeconds(lo.Float64), fromUnixSeconds(hi.Float64), nil
}

// VehicleCount is the number of samples stored for one vehicle.
type VehicleCount struct {
	OrgID     string    `json:"org_id"`
	VehicleID string    `json:"vehicle_id"`
	Samples   int       `json:"samples"`
	Last      time.Time `json:"last"`
}

// Vehicles lists the vehicles of an organisation with their sample counts.
func (db *DB) Vehicles(ctx context.Context, orgID string) ([]VehicleCount, error) {
	rows, err := db.QueryContext(ctx, `SELECT vehicle_id, COUNT(*), MAX(recorded_unix)
		FROM vehicle_samples WHERE org_id = ? GROUP BY vehicle_id ORDER BY vehicle_id`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to query vehicles: %w", err)
	}
	defer rows.Close()

	out := []VehicleCount{}
	for rows.Next() {
		v := VehicleCount{OrgID: orgID}
		var last float64
		if err := rows.Scan(&v.VehicleID, &v.Samples, &last); err != nil {
			return nil, fmt.Errorf("failed to scan vehicle: %w", err)
		}
		v.Last = fromUnixSeconds(last)
		out = append(out, v)
	}
	return out, rows.Err()
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixMicro()) / 1e6
}

// fromUnixSeconds rounds to whole microseconds, the precision a REAL column
// keeps for current epoch values.
func fromUnixSeconds(v float64) time.Time {
	return time.UnixMicro(int64(math.Round(v * 1e6))).UTC()
}

func nullable(v *float64) sql.NullFloat64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func pointer(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}
