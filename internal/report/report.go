// Package report renders a processed vehicle history as downloadable files:
// CSV rows, an HTML segment chart and a PNG distance plot.
package report

import (
	"errors"
	"strconv"
	"time"

	"github.com/banshee-data/vehicle.history/internal/history"
	"github.com/banshee-data/vehicle.history/internal/units"
)

// ErrNoData is returned by renderers that cannot draw an empty history.
var ErrNoData = errors.New("no events to render")

// timeLayout is how timestamps appear in files.
const timeLayout = "2006-01-02 15:04:05 -07:00"

// Settings carries the presentation choices of an export.
type Settings struct {
	Location    *time.Location
	Units       string
	ShowLatLong bool
}

// SettingsFor extracts the presentation choices from an export request.
func SettingsFor(r history.ExportRequest) Settings {
	return Settings{Location: r.Location(), Units: r.Units, ShowLatLong: r.ShowLatLong}
}

func (s Settings) location() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

func (s Settings) unit() string {
	if s.Units == "" {
		return units.MPH
	}
	return s.Units
}

func (s Settings) formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(s.location()).Format(timeLayout)
}

func (s Settings) distance(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(units.ConvertDistance(*v, s.unit()), 3)
}

func formatFloat(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}
