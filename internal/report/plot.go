package report

import (
	"fmt"
	"image/color"
	"io"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/vehicle.history/internal/history"
	"github.com/banshee-data/vehicle.history/internal/units"
)

// CumulativeDistance returns (unix seconds, distance) points in time order.
// Events without a delta add nothing but still contribute a point.
func CumulativeDistance(events []history.Event, unit string) plotter.XYs {
	ordered := make([]history.Event, len(events))
	copy(ordered, events)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	pts := make(plotter.XYs, 0, len(ordered))
	total := 0.0
	for _, e := range ordered {
		if e.DeltaMiles != nil {
			total += units.ConvertDistance(*e.DeltaMiles, unit)
		}
		pts = append(pts, plotter.XY{X: float64(e.Timestamp.Unix()), Y: total})
	}
	return pts
}

// WritePNG plots cumulative distance over time.
func WritePNG(w io.Writer, title string, events []history.Event, s Settings, width, height vg.Length) error {
	if len(events) == 0 {
		return ErrNoData
	}
	unit := s.unit()

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Time"
	p.Y.Label.Text = units.DistanceLabel(unit)
	p.X.Tick.Marker = plot.TimeTicks{Format: "Jan 2 15:04", Time: plot.UnixTimeIn(s.location())}
	p.Add(plotter.NewGrid())

	line, err := plotter.NewLine(CumulativeDistance(events, unit))
	if err != nil {
		return fmt.Errorf("failed to build distance line: %w", err)
	}
	line.Color = color.RGBA{R: 0x33, G: 0x7A, B: 0xB7, A: 0xFF}
	line.Width = vg.Points(1.5)
	p.Add(line)

	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return fmt.Errorf("failed to prepare plot: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write plot: %w", err)
	}
	return nil
}
