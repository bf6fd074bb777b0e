package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"strconv"
	"sync"

	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/vehicle.history/internal/api"
	"github.com/banshee-data/vehicle.history/internal/db"
	"github.com/banshee-data/vehicle.history/internal/feed"
	"github.com/banshee-data/vehicle.history/internal/history"
	"github.com/banshee-data/vehicle.history/internal/httputil"
	"github.com/banshee-data/vehicle.history/internal/monitoring"
	"github.com/banshee-data/vehicle.history/internal/playback"
	"github.com/banshee-data/vehicle.history/internal/report"
	"github.com/banshee-data/vehicle.history/internal/serialmux"
	"github.com/banshee-data/vehicle.history/internal/telemetry"
	"github.com/banshee-data/vehicle.history/internal/timeutil"
)

// historyFlags are the window and view flags shared by export, plot and
// replay. They are turned into export query parameters so the command line
// and the HTTP endpoint validate the same way.
type historyFlags struct {
	dbPath, cfgPath        string
	org, vehicle           string
	start, end             string
	mode, tz, units        string
	rollup, verbose, raw   bool
	reverse, latlong, diag bool
}

func (h *historyFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&h.dbPath, "db", defaultDBFile, "Path to the sqlite database")
	fs.StringVar(&h.cfgPath, "config", "", "Pipeline config JSON (defaults built in)")
	fs.StringVar(&h.org, "org", "", "Organization ID")
	fs.StringVar(&h.vehicle, "vehicle", "", "Vehicle ID")
	fs.StringVar(&h.start, "start", "", "Window start, RFC 3339 (open when empty)")
	fs.StringVar(&h.end, "end", "", "Window end, RFC 3339, exclusive (open when empty)")
	fs.StringVar(&h.mode, "mode", "start", "Distance mode: start or ignition")
	fs.StringVar(&h.tz, "tz", "", "Time zone for timestamps: ±HH:MM, minutes or an IANA name")
	fs.StringVar(&h.units, "units", "", "Units: mph or kph (config default when empty)")
	fs.BoolVar(&h.rollup, "rollup", false, "Roll up stationary events")
	fs.BoolVar(&h.verbose, "verbose", false, "Include verbose samples")
	fs.BoolVar(&h.raw, "raw", false, "Skip cleaning and distance annotation")
	fs.BoolVar(&h.reverse, "reverse", false, "Newest first")
	fs.BoolVar(&h.latlong, "latlong", false, "Include positions")
	fs.BoolVar(&h.diag, "diag", false, "Log per-sample diagnostics")
}

func (h *historyFlags) query(format string) url.Values {
	q := url.Values{}
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set("format", format)
	set("startDate", h.start)
	set("endDate", h.end)
	set("calculateDistanceBetween", h.mode)
	set("tzOffset", h.tz)
	set("units", h.units)
	q.Set("rollupStationaryEvents", strconv.FormatBool(h.rollup))
	q.Set("verbose", strconv.FormatBool(h.verbose))
	q.Set("raw", strconv.FormatBool(h.raw))
	q.Set("reverse", strconv.FormatBool(h.reverse))
	q.Set("latlong", strconv.FormatBool(h.latlong))
	return q
}

// request validates the flags and applies the config defaults.
func (h *historyFlags) request(format string) (history.ExportRequest, error) {
	req, err := history.DecodeQuery(h.query(format))
	if err != nil {
		return req, err
	}
	cfg, err := loadConfig(h.cfgPath)
	if err != nil {
		return req, err
	}
	req.Options.StationarySpeedMPH = cfg.GetStationarySpeedMPH()
	if h.units == "" {
		req.Units = cfg.GetUnits()
	}
	return req, nil
}

func (h *historyFlags) samples(ctx context.Context, req history.ExportRequest) ([]telemetry.Sample, error) {
	if h.vehicle == "" {
		return nil, errors.New("-vehicle is required")
	}
	database, err := db.NewDB(h.dbPath)
	if err != nil {
		return nil, err
	}
	defer database.Close()
	return database.SamplesInRange(ctx, h.org, h.vehicle, req.Start, req.End)
}

// output opens path for writing, or returns out for "" and "-".
func output(path string, out io.Writer) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return out, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	return f, f.Close, nil
}

func runExport(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	var h historyFlags
	h.register(fs)
	format := fs.String("format", history.FormatCSV, "Output format: csv, json or chart")
	server := fs.String("server", "", "Fetch from a running server at this base URL instead of the database")
	outPath := fs.String("o", "", "Output file (stdout when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	monitoring.SetDiagnostics(h.diag)

	req, err := h.request(*format)
	if err != nil {
		return err
	}
	w, closeOut, err := output(*outPath, out)
	if err != nil {
		return err
	}

	if *server != "" {
		if h.vehicle == "" {
			closeOut()
			return errors.New("-vehicle is required")
		}
		link := history.ExportURL(*server, h.org, h.vehicle, req)
		body, _, err := httputil.Fetch(ctx, httputil.NewStandardClient(nil), link)
		if err != nil {
			closeOut()
			return err
		}
		if _, err := w.Write(body); err != nil {
			closeOut()
			return err
		}
		return closeOut()
	}

	samples, err := h.samples(ctx, req)
	if err != nil {
		closeOut()
		return err
	}
	res := history.Process(samples, req.Options)
	settings := report.SettingsFor(req)

	switch req.Format {
	case history.FormatCSV:
		err = report.WriteCSV(w, res.Events, settings)
	case history.FormatChart:
		err = report.WriteChart(w, h.vehicle, res.Events, settings)
	default:
		summary := history.Summarize(res.Events)
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		err = enc.Encode(api.HistoryResponse{
			OrgID:     h.org,
			VehicleID: h.vehicle,
			Start:     req.Start,
			End:       req.End,
			Events:    api.PresentEvents(res.Events, req.ShowLatLong),
			Summary:   summary,
			Stats:     res.Stats,
			NoData:    res.Empty(),
			Message:   summary.Message(),
		})
	}
	if err != nil {
		closeOut()
		return err
	}
	return closeOut()
}

func runPlot(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("plot", flag.ContinueOnError)
	var h historyFlags
	h.register(fs)
	outPath := fs.String("o", "", "Output PNG (<vehicle>.png when empty)")
	width := fs.Float64("width", 10, "Width in inches")
	height := fs.Float64("height", 4, "Height in inches")
	if err := fs.Parse(args); err != nil {
		return err
	}
	monitoring.SetDiagnostics(h.diag)

	req, err := h.request(history.FormatJSON)
	if err != nil {
		return err
	}
	samples, err := h.samples(ctx, req)
	if err != nil {
		return err
	}
	res := history.Process(samples, req.Options)

	path := *outPath
	if path == "" {
		path = h.vehicle + ".png"
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := report.WritePNG(f, h.vehicle, res.Events, report.SettingsFor(req), vg.Length(*width)*vg.Inch, vg.Length(*height)*vg.Inch); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(out, "wrote %s (%s)\n", path, history.Summarize(res.Events).Message())
	return nil
}

func runIngest(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	dbPath := fs.String("db", defaultDBFile, "Path to the sqlite database")
	file := fs.String("file", "", "NDJSON file to ingest, - for stdin")
	port := fs.String("port", "", "Serial port of a telematics unit")
	baud := fs.Int("baud", serialmux.DefaultBaudRate, "Serial baud rate")
	org := fs.String("org", "", "Organization the samples belong to")
	vehicle := fs.String("vehicle", "", "Vehicle ID for samples that carry none")
	batch := fs.Int("batch", 500, "Samples per database write")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if (*file == "") == (*port == "") {
		return errors.New("exactly one of -file or -port is required")
	}

	database, err := db.NewDB(*dbPath)
	if err != nil {
		return err
	}
	defer database.Close()

	in := &serialmux.Ingester{Writer: database, OrgID: *org, DefaultVehicle: *vehicle, BatchSize: *batch}

	var lines <-chan string
	if *file != "" {
		r := io.Reader(os.Stdin)
		if *file != "-" {
			f, err := os.Open(*file)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", *file, err)
			}
			defer f.Close()
			r = f
		}
		lines = scanLines(ctx, r)
	} else {
		m, err := openMux(*port, serialmux.PortOptions{BaudRate: *baud})
		if err != nil {
			return err
		}
		defer m.Close()
		id, c := m.Subscribe()
		defer m.Unsubscribe(id)
		go func() {
			if err := m.Monitor(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("failed to monitor serial port: %v", err)
			}
		}()
		lines = c
	}

	stats, err := in.Run(ctx, lines)
	fmt.Fprintf(out, "read %d lines, stored %d samples, skipped %d\n", stats.Lines, stats.Written, stats.Skipped)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// scanLines feeds the lines of r into a channel closed at EOF. Every line is
// delivered, unlike a serial mux subscription that drops lines for a slow
// reader.
func scanLines(ctx context.Context, r io.Reader) <-chan string {
	c := make(chan string, 64)
	go func() {
		defer close(c)
		scan := bufio.NewScanner(r)
		scan.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scan.Scan() {
			select {
			case c <- scan.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scan.Err(); err != nil {
			log.Printf("failed to read input: %v", err)
		}
	}()
	return c
}

// replayPrinter writes one line per positioned step and signals when
// playback stops.
type replayPrinter struct {
	out  io.Writer
	done chan struct{}
	once sync.Once

	mu      sync.Mutex
	playing bool
	marker  *playback.Marker
	printed int
}

func (p *replayPrinter) listener() playback.Listener {
	return playback.ListenerFuncs{
		OnMarker: func(m playback.Marker) {
			p.mu.Lock()
			p.marker = &m
			p.mu.Unlock()
		},
		OnProgress: func(pr playback.Progress) {
			p.mu.Lock()
			if !p.playing {
				p.mu.Unlock()
				return
			}
			m := p.marker
			repeat := pr.Index == p.printed
			p.printed = pr.Index
			p.mu.Unlock()
			if m == nil || m.Index != pr.Index || repeat {
				return
			}
			fmt.Fprintf(p.out, "[%d/%d] %s %-7s %.5f,%.5f bearing %3.0f leg %.0fm\n",
				pr.Index+1, pr.Total, m.Timestamp.Format("2006-01-02 15:04:05"), m.Status,
				m.Position.Lat, m.Position.Lon, m.Bearing, m.LegMeters)
		},
		OnState: func(s playback.State) {
			p.mu.Lock()
			if s == playback.Playing {
				p.playing = true
			}
			p.mu.Unlock()
			if s == playback.Stopped {
				p.once.Do(func() { close(p.done) })
			}
		},
	}
}

func runReplay(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("replay", flag.ContinueOnError)
	var h historyFlags
	h.register(fs)
	file := fs.String("file", "", "Replay an NDJSON capture instead of the database")
	level := fs.Int("level", 2, "Speed level 0 (slowest) to 9 (fastest)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	monitoring.SetDiagnostics(h.diag)

	req, err := h.request(history.FormatJSON)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(h.cfgPath)
	if err != nil {
		return err
	}

	var samples []telemetry.Sample
	if *file != "" {
		samples, err = readCapture(*file)
	} else {
		samples, err = h.samples(ctx, req)
	}
	if err != nil {
		return err
	}

	printer := &replayPrinter{out: out, done: make(chan struct{}), printed: -1}
	player := playback.NewController(playback.OptionsFromConfig(cfg, timeutil.RealClock{}, printer.listener()))
	player.SetSpeed(*level)

	store := feed.NewStore(req.Options)
	defer store.Close()
	store.Attach(player)
	vehicle := h.vehicle
	if vehicle == "" {
		vehicle = *file
	}
	store.Update(feed.State{
		VehicleID:  vehicle,
		History:    samples,
		Start:      req.Start,
		End:        req.End,
		Verbose:    req.Options.Verbose,
		AutoUpdate: true,
	})

	snap := store.Current()
	fmt.Fprintln(out, snap.Summary.Message())
	if !player.Play() {
		return nil
	}
	select {
	case <-printer.done:
	case <-ctx.Done():
		player.Stop()
	}
	return nil
}

// readCapture loads the samples of an NDJSON capture, skipping other lines.
func readCapture(path string) ([]telemetry.Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var samples []telemetry.Sample
	scan := bufio.NewScanner(f)
	scan.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scan.Scan() {
		if serialmux.ClassifyLine(scan.Text()) != serialmux.LineTypeSample {
			continue
		}
		ds, err := serialmux.ParseSampleLine(scan.Text())
		if err != nil {
			continue
		}
		samples = append(samples, ds.Sample)
	}
	if err := scan.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return samples, nil
}
