package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/vehicle.history/internal/history"
	"github.com/banshee-data/vehicle.history/internal/units"
)

// Segment is one closed distance segment of a history.
type Segment struct {
	Label string
	Miles float64
}

// Segments lists the distance closed at each boundary event, plus the open
// segment at the end of the sequence when it has a defined distance.
func Segments(events []history.Event, s Settings) []Segment {
	var out []Segment
	for i, e := range events {
		if e.SegmentMiles == nil {
			continue
		}
		if e.Status.IsBoundary() || i == len(events)-1 {
			out = append(out, Segment{
				Label: s.formatTime(e.Timestamp) + " " + e.Status.String(),
				Miles: *e.SegmentMiles,
			})
		}
	}
	return out
}

// WriteChart renders a bar chart of segment distances as a standalone HTML
// page.
func WriteChart(w io.Writer, title string, events []history.Event, s Settings) error {
	segments := Segments(events, s)
	unit := s.unit()

	labels := make([]string, 0, len(segments))
	data := make([]opts.BarData, 0, len(segments))
	for _, seg := range segments {
		labels = append(labels, seg.Label)
		data = append(data, opts.BarData{Value: units.ConvertDistance(seg.Miles, unit)})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "1200px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: history.Summarize(events).Message()}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: units.DistanceLabel(unit)}),
	)
	bar.SetXAxis(labels).AddSeries("Segment distance", data)

	if err := bar.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}
