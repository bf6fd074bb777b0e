package history

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/vehicle.history/internal/telemetry"
	"github.com/banshee-data/vehicle.history/internal/units"
)

// DefaultStationarySpeedMPH is the speed at or below which a sample counts as
// stationary for rollup and start/stop classification.
const DefaultStationarySpeedMPH = 1.0

// ErrUnknownMode is returned when a distance mode string is not recognised.
var ErrUnknownMode = errors.New("unknown distance mode")

// DistanceMode selects how segment mileage is accumulated.
type DistanceMode int

const (
	// ModeStartStop resets the segment at every Start/Stop boundary.
	ModeStartStop DistanceMode = iota
	// ModeIgnition resets the segment at every ignition state change.
	ModeIgnition
)

// ParseDistanceMode parses the calculateDistanceBetween query value. An empty
// string selects ModeStartStop.
func ParseDistanceMode(s string) (DistanceMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "start":
		return ModeStartStop, nil
	case "ignition":
		return ModeIgnition, nil
	default:
		return ModeStartStop, fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

func (m DistanceMode) String() string {
	if m == ModeIgnition {
		return "ignition"
	}
	return "start"
}

// Options is the immutable record of everything that affects a recomputation.
// Highlight flags are display-only and never change the pipeline output.
type Options struct {
	Verbose      bool
	Rollup       bool
	ReverseOrder bool
	RawData      bool
	DistanceMode DistanceMode

	HighlightIgnition bool
	HighlightStarts   bool

	StationarySpeedMPH float64
}

// DefaultOptions returns the pipeline options with every transform off. Export
// queries start from these with rollup enabled, see DecodeQuery.
func DefaultOptions() Options {
	return Options{
		DistanceMode:       ModeStartStop,
		StationarySpeedMPH: DefaultStationarySpeedMPH,
	}
}

// Highlighted reports whether e should be drawn highlighted under o.
func (o Options) Highlighted(e Event) bool {
	if o.HighlightIgnition && e.Command == telemetry.KindIgnitionOn {
		return true
	}
	if o.HighlightStarts && e.Override == telemetry.OverrideStart {
		return true
	}
	return false
}

// Export formats accepted by the export endpoint.
const (
	FormatJSON  = "json"
	FormatCSV   = "csv"
	FormatChart = "chart"
)

// ExportRequest is the full parameter set of a history export. It carries the
// pipeline options plus the window and presentation settings.
type ExportRequest struct {
	Options     Options
	Format      string
	Start       time.Time
	End         time.Time
	ShowLatLong bool
	TZOffset    string
	Units       string
}

// EncodeQuery renders r as export query parameters. Booleans are the literals
// "true" and "false" so a preview and its export agree.
func EncodeQuery(r ExportRequest) url.Values {
	q := url.Values{}
	format := r.Format
	if format == "" {
		format = FormatJSON
	}
	q.Set("format", format)
	q.Set("latlong", strconv.FormatBool(r.ShowLatLong))
	q.Set("rollupStationaryEvents", strconv.FormatBool(r.Options.Rollup))
	q.Set("verbose", strconv.FormatBool(r.Options.Verbose))
	q.Set("raw", strconv.FormatBool(r.Options.RawData))
	if !r.Start.IsZero() {
		q.Set("startDate", r.Start.UTC().Format(time.RFC3339Nano))
	}
	if !r.End.IsZero() {
		q.Set("endDate", r.End.UTC().Format(time.RFC3339Nano))
	}
	q.Set("calculateDistanceBetween", r.Options.DistanceMode.String())
	q.Set("reverse", strconv.FormatBool(r.Options.ReverseOrder))
	if r.TZOffset != "" {
		q.Set("tzOffset", r.TZOffset)
	}
	if r.Units != "" {
		q.Set("units", r.Units)
	}
	return q
}

// DecodeQuery parses export query parameters. Missing parameters keep their
// defaults, and stationary events are rolled up unless
// rollupStationaryEvents is "false". Malformed parameters are reported as
// errors.
func DecodeQuery(q url.Values) (ExportRequest, error) {
	r := ExportRequest{
		Options: DefaultOptions(),
		Format:  FormatJSON,
		Units:   units.MPH,
	}
	r.Options.Rollup = true

	switch f := strings.ToLower(q.Get("format")); f {
	case "", FormatJSON:
	case FormatCSV, "excel":
		r.Format = FormatCSV
	case FormatChart:
		r.Format = FormatChart
	default:
		return r, fmt.Errorf("unsupported format %q", f)
	}

	var err error
	flags := []struct {
		name string
		dst  *bool
	}{
		{"latlong", &r.ShowLatLong},
		{"rollupStationaryEvents", &r.Options.Rollup},
		{"verbose", &r.Options.Verbose},
		{"raw", &r.Options.RawData},
		{"reverse", &r.Options.ReverseOrder},
	}
	for _, f := range flags {
		if *f.dst, err = parseFlag(q, f.name, *f.dst); err != nil {
			return r, err
		}
	}

	if r.Options.DistanceMode, err = ParseDistanceMode(q.Get("calculateDistanceBetween")); err != nil {
		return r, err
	}

	if r.Start, err = parseDate(q, "startDate"); err != nil {
		return r, err
	}
	if r.End, err = parseDate(q, "endDate"); err != nil {
		return r, err
	}
	if !r.Start.IsZero() && !r.End.IsZero() && r.End.Before(r.Start) {
		return r, fmt.Errorf("endDate %s is before startDate %s", r.End.Format(time.RFC3339), r.Start.Format(time.RFC3339))
	}

	if tz := q.Get("tzOffset"); tz != "" {
		if _, err := units.LocationFor(tz); err != nil {
			return r, fmt.Errorf("invalid tzOffset: %w", err)
		}
		r.TZOffset = tz
	}

	if u := q.Get("units"); u != "" {
		if !units.IsValid(u) {
			return r, fmt.Errorf("invalid units %q, expected one of: %s", u, units.GetValidUnitsString())
		}
		r.Units = u
	}

	return r, nil
}

// ExportURL builds the export link for a vehicle under base, for example
// "/api/organizations/acme/vehiclehistory/truck-7?format=csv&...".
func ExportURL(base, orgID, vehicleID string, r ExportRequest) string {
	path := strings.TrimRight(base, "/") + "/api/organizations/" + url.PathEscape(orgID) +
		"/vehiclehistory/" + url.PathEscape(vehicleID)
	return path + "?" + EncodeQuery(r).Encode()
}

// Location returns the time zone export timestamps are rendered in.
func (r ExportRequest) Location() *time.Location {
	if r.TZOffset == "" {
		return time.UTC
	}
	loc, err := units.LocationFor(r.TZOffset)
	if err != nil {
		return time.UTC
	}
	return loc
}

func parseFlag(q url.Values, name string, def bool) (bool, error) {
	switch v := q.Get(name); v {
	case "":
		return def, nil
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, fmt.Errorf("%s must be \"true\" or \"false\", got %q", name, v)
	}
}

func parseDate(q url.Values, name string) (time.Time, error) {
	v := q.Get(name)
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q: %w", name, v, err)
	}
	return t, nil
}
