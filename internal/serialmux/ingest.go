package serialmux

import (
	"context"
	"fmt"
	"time"

	"github.com/banshee-data/vehicle.history/internal/monitoring"
	"github.com/banshee-data/vehicle.history/internal/telemetry"
)

// SampleWriter persists samples for one vehicle. *db.DB implements it.
type SampleWriter interface {
	InsertSamples(ctx context.Context, orgID, vehicleID string, samples []telemetry.Sample) (int, error)
}

// IngestStats counts what an Ingester did with the lines it consumed.
type IngestStats struct {
	Lines   int `json:"lines"`
	Samples int `json:"samples"`
	Written int `json:"written"`
	Skipped int `json:"skipped"`
}

// Ingester batches sample lines and writes them per vehicle. Lines are stored
// in arrival order without cleaning; the history pipeline cleans on read.
type Ingester struct {
	Writer         SampleWriter
	OrgID          string
	DefaultVehicle string
	BatchSize      int
	FlushInterval  time.Duration

	batches map[string][]telemetry.Sample
	stats   IngestStats
}

// Run consumes lines until the channel closes or ctx ends, flushing whatever
// is buffered before returning.
func (in *Ingester) Run(ctx context.Context, lines <-chan string) (IngestStats, error) {
	if in.BatchSize <= 0 {
		in.BatchSize = 100
	}
	if in.FlushInterval <= 0 {
		in.FlushInterval = 2 * time.Second
	}
	in.batches = make(map[string][]telemetry.Sample)

	ticker := time.NewTicker(in.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// flush with a fresh context so buffered samples are not lost
			if err := in.flushAll(context.Background()); err != nil {
				return in.stats, err
			}
			return in.stats, ctx.Err()

		case <-ticker.C:
			if err := in.flushAll(ctx); err != nil {
				return in.stats, err
			}

		case line, ok := <-lines:
			if !ok {
				return in.stats, in.flushAll(ctx)
			}
			if err := in.handle(ctx, line); err != nil {
				return in.stats, err
			}
		}
	}
}

func (in *Ingester) handle(ctx context.Context, line string) error {
	in.stats.Lines++
	switch ClassifyLine(line) {
	case LineTypeSample:
	case LineTypeAck:
		monitoring.Logf("serial: %s", line)
		return nil
	default:
		in.stats.Skipped++
		monitoring.Diagf("serial: skipped line %q", line)
		return nil
	}

	ds, err := ParseSampleLine(line)
	if err != nil {
		in.stats.Skipped++
		monitoring.Diagf("serial: %v", err)
		return nil
	}
	vehicle := ds.VehicleID
	if vehicle == "" {
		vehicle = in.DefaultVehicle
	}
	if vehicle == "" {
		in.stats.Skipped++
		monitoring.Diagf("serial: sample %s has no vehicle", ds.ID)
		return nil
	}

	in.stats.Samples++
	in.batches[vehicle] = append(in.batches[vehicle], ds.Sample)
	if len(in.batches[vehicle]) >= in.BatchSize {
		return in.flush(ctx, vehicle)
	}
	return nil
}

func (in *Ingester) flushAll(ctx context.Context) error {
	for vehicle := range in.batches {
		if err := in.flush(ctx, vehicle); err != nil {
			return err
		}
	}
	return nil
}

func (in *Ingester) flush(ctx context.Context, vehicle string) error {
	batch := in.batches[vehicle]
	if len(batch) == 0 {
		return nil
	}
	n, err := in.Writer.InsertSamples(ctx, in.OrgID, vehicle, batch)
	if err != nil {
		return fmt.Errorf("failed to store %d samples for %s: %w", len(batch), vehicle, err)
	}
	in.stats.Written += n
	delete(in.batches, vehicle)
	return nil
}
