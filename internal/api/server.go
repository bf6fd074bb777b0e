// Package api serves vehicle history exports and the playback controls over
// HTTP.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/vehicle.history/internal/config"
	"github.com/banshee-data/vehicle.history/internal/db"
	"github.com/banshee-data/vehicle.history/internal/feed"
	"github.com/banshee-data/vehicle.history/internal/history"
	"github.com/banshee-data/vehicle.history/internal/httputil"
	"github.com/banshee-data/vehicle.history/internal/monitoring"
	"github.com/banshee-data/vehicle.history/internal/playback"
	"github.com/banshee-data/vehicle.history/internal/serialmux"
	"github.com/banshee-data/vehicle.history/internal/telemetry"
	"github.com/banshee-data/vehicle.history/internal/timeutil"
)

// ANSI escape codes for request logs
const (
	colorCyan      = "\033[36m"
	colorReset     = "\033[0m"
	colorYellow    = "\033[33m"
	colorBoldGreen = "\033[1;32m"
	colorBoldRed   = "\033[1;31m"
)

// SampleStore is the read side of the sample database. *db.DB implements it.
type SampleStore interface {
	SamplesInRange(ctx context.Context, orgID, vehicleID string, start, end time.Time) ([]telemetry.Sample, error)
	VehicleSpan(ctx context.Context, orgID, vehicleID string) (first, last time.Time, err error)
	Vehicles(ctx context.Context, orgID string) ([]db.VehicleCount, error)
}

type Server struct {
	m     serialmux.SerialMuxInterface
	store SampleStore
	cfg   *config.PipelineConfig

	feed   *feed.Store
	player *playback.Controller
	marker *markerTracker
}

// NewServer wires the export handlers to store and a playback controller
// driven by clock. A nil cfg uses the built-in defaults.
func NewServer(m serialmux.SerialMuxInterface, store SampleStore, cfg *config.PipelineConfig, clock timeutil.Clock) *Server {
	if cfg == nil {
		cfg = config.DefaultPipelineConfig()
	}
	if m == nil {
		m = serialmux.NewDisabledSerialMux()
	}
	s := &Server{
		m:      m,
		store:  store,
		cfg:    cfg,
		marker: &markerTracker{},
	}
	s.player = playback.NewController(playback.OptionsFromConfig(cfg, clock, s.marker.listener()))
	s.feed = feed.NewStore(s.defaultOptions())
	s.feed.Attach(s.player)
	return s
}

// Feed returns the store that drives the playback controller.
func (s *Server) Feed() *feed.Store { return s.feed }

// Player returns the playback controller.
func (s *Server) Player() *playback.Controller { return s.player }

func (s *Server) defaultOptions() history.Options {
	opts := history.DefaultOptions()
	opts.StationarySpeedMPH = s.cfg.GetStationarySpeedMPH()
	return opts
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	code := strconv.Itoa(statusCode)
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + code + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + code + colorReset
	case statusCode >= 400:
		return colorBoldRed + code + colorReset
	default:
		return code
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/organizations/{orgID}/vehicles", s.listVehicles)
	mux.HandleFunc("GET /api/organizations/{orgID}/vehiclehistory/{vehicleID}", s.vehicleHistory)
	mux.HandleFunc("GET /api/organizations/{orgID}/vehiclehistory/{vehicleID}/plot.png", s.vehicleHistoryPlot)

	mux.HandleFunc("GET /api/playback", s.playbackStatus)
	mux.HandleFunc("POST /api/playback/load", s.playbackLoad)
	mux.HandleFunc("POST /api/playback/{action}", s.playbackAction)

	mux.HandleFunc("GET /api/config", s.showConfig)
	mux.HandleFunc("POST /api/command", s.sendCommand)
	return mux
}

func (s *Server) sendCommand(w http.ResponseWriter, r *http.Request) {
	command := r.FormValue("command")
	if command == "" {
		httputil.BadRequest(w, "missing command")
		return
	}
	if err := s.m.SendCommand(command); err != nil {
		httputil.InternalServerError(w, "failed to send command")
		return
	}
	httputil.WriteJSONOK(w, map[string]string{"sent": command})
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	ladder := s.cfg.GetSpeedLadder()
	ms := make([]int64, len(ladder))
	for i, d := range ladder {
		ms[i] = d.Milliseconds()
	}
	httputil.WriteJSONOK(w, map[string]any{
		"units":                 s.cfg.GetUnits(),
		"stationary_speed_mph":  s.cfg.GetStationarySpeedMPH(),
		"default_tick_interval": s.cfg.GetDefaultTickInterval().String(),
		"speed_ladder_ms":       ms,
		"default_speed_level":   s.cfg.GetDefaultSpeedLevel(),
	})
}
