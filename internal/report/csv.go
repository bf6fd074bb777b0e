package report

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/banshee-data/vehicle.history/internal/history"
	"github.com/banshee-data/vehicle.history/internal/units"
)

// Row is one line of the CSV export. Missing readings are empty cells.
type Row struct {
	ID        string `csv:"ID"`
	Time      string `csv:"Time"`
	Until     string `csv:"Until"`
	Command   string `csv:"Command"`
	Status    string `csv:"Status"`
	Speed     string `csv:"Speed"`
	Delta     string `csv:"Distance"`
	Segment   string `csv:"Segment Distance"`
	Odometer  string `csv:"Odometer"`
	Latitude  string `csv:"Latitude"`
	Longitude string `csv:"Longitude"`
	Heading   string `csv:"Heading"`
	Idle      string `csv:"Idle"`
	Samples   int    `csv:"Samples"`
	Units     string `csv:"Units"`
}

// Rows converts events to export rows in the order given.
func Rows(events []history.Event, s Settings) []Row {
	unit := s.unit()
	rows := make([]Row, 0, len(events))
	for _, e := range events {
		r := Row{
			ID:       e.ID,
			Time:     s.formatTime(e.Timestamp),
			Command:  e.Command.String(),
			Status:   e.Status.String(),
			Speed:    formatFloat(units.ConvertSpeed(e.SpeedMPH, unit), 1),
			Delta:    s.distance(e.DeltaMiles),
			Segment:  s.distance(e.SegmentMiles),
			Odometer: s.distance(e.OdometerMiles),
			Samples:  e.RolledUpCount,
			Units:    fmt.Sprintf("%s/%s", units.DistanceLabel(unit), units.SpeedLabel(unit)),
		}
		if e.RolledUp() {
			r.Until = s.formatTime(e.RolledUpUntil)
			r.Idle = e.IdleDuration.String()
		}
		if e.Heading != nil {
			r.Heading = formatFloat(*e.Heading, 0)
		}
		if s.ShowLatLong && e.HasPosition() {
			r.Latitude = formatFloat(e.Position.Lat, 6)
			r.Longitude = formatFloat(e.Position.Lon, 6)
		}
		rows = append(rows, r)
	}
	return rows
}

// WriteCSV writes events as CSV with a header row.
func WriteCSV(w io.Writer, events []history.Event, s Settings) error {
	rows := Rows(events, s)
	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}
