package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/vehicle.history/internal/db"
	"github.com/banshee-data/vehicle.history/internal/history"
	"github.com/banshee-data/vehicle.history/internal/httputil"
	"github.com/banshee-data/vehicle.history/internal/monitoring"
	"github.com/banshee-data/vehicle.history/internal/report"
	"github.com/banshee-data/vehicle.history/internal/telemetry"
)

// HistoryResponse is the JSON form of a vehicle history export.
type HistoryResponse struct {
	OrgID     string             `json:"org_id"`
	VehicleID string             `json:"vehicle_id"`
	Start     time.Time          `json:"start,omitzero"`
	End       time.Time          `json:"end,omitzero"`
	Events    []history.Event    `json:"events"`
	Summary   history.Summary    `json:"summary"`
	Stats     history.CleanStats `json:"stats"`
	NoData    bool               `json:"no_data"`
	Message   string             `json:"message"`
	ExportURL string             `json:"export_url"`
}

func (s *Server) listVehicles(w http.ResponseWriter, r *http.Request) {
	vehicles, err := s.store.Vehicles(r.Context(), r.PathValue("orgID"))
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to list vehicles: %v", err))
		return
	}
	httputil.WriteJSONOK(w, vehicles)
}

// decodeRequest parses the export parameters and applies server defaults.
func (s *Server) decodeRequest(q url.Values) (history.ExportRequest, error) {
	req, err := history.DecodeQuery(q)
	if err != nil {
		return req, err
	}
	req.Options.StationarySpeedMPH = s.cfg.GetStationarySpeedMPH()
	if q.Get("units") == "" {
		req.Units = s.cfg.GetUnits()
	}
	return req, nil
}

// window reads the requested samples, [Start, End). A missing bound leaves
// that side open and is then filled in with the vehicle's first or last
// sample time for display; a vehicle with no samples is reported as not
// found.
func (s *Server) window(r *http.Request, orgID, vehicleID string, req *history.ExportRequest) ([]telemetry.Sample, int, error) {
	samples, err := s.store.SamplesInRange(r.Context(), orgID, vehicleID, req.Start, req.End)
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}
	if !req.Start.IsZero() && !req.End.IsZero() {
		return samples, http.StatusOK, nil
	}

	first, last, err := s.store.VehicleSpan(r.Context(), orgID, vehicleID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, http.StatusNotFound, fmt.Errorf("no samples for vehicle %s", vehicleID)
	}
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}
	if req.Start.IsZero() {
		req.Start = first
	}
	if req.End.IsZero() {
		req.End = last
	}
	return samples, http.StatusOK, nil
}

// load reads the requested window and runs the pipeline over it.
func (s *Server) load(r *http.Request, orgID, vehicleID string, req *history.ExportRequest) (history.Result, int, error) {
	samples, status, err := s.window(r, orgID, vehicleID, req)
	if err != nil {
		return history.Result{}, status, err
	}
	res := history.Process(samples, req.Options)
	if res.Stats.Dropped() > 0 {
		monitoring.Logf("history %s/%s: dropped %d of %d samples", orgID, vehicleID, res.Stats.Dropped(), res.Stats.Input)
	}
	return res, http.StatusOK, nil
}

func (s *Server) vehicleHistory(w http.ResponseWriter, r *http.Request) {
	orgID, vehicleID := r.PathValue("orgID"), r.PathValue("vehicleID")
	req, err := s.decodeRequest(r.URL.Query())
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	// open bounds stay open in the export link
	csvReq := req
	csvReq.Format = history.FormatCSV

	res, status, err := s.load(r, orgID, vehicleID, &req)
	if err != nil {
		httputil.WriteJSONError(w, status, err.Error())
		return
	}

	settings := report.SettingsFor(req)
	switch req.Format {
	case history.FormatCSV:
		httputil.Attachment(w, "text/csv", vehicleID+"-history.csv")
		if err := report.WriteCSV(w, res.Events, settings); err != nil {
			monitoring.Logf("csv export %s/%s: %v", orgID, vehicleID, err)
		}

	case history.FormatChart:
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := report.WriteChart(w, vehicleID, res.Events, settings); err != nil {
			monitoring.Logf("chart export %s/%s: %v", orgID, vehicleID, err)
		}

	default:
		summary := history.Summarize(res.Events)
		httputil.WriteJSONOK(w, HistoryResponse{
			OrgID:     orgID,
			VehicleID: vehicleID,
			Start:     req.Start,
			End:       req.End,
			Events:    PresentEvents(res.Events, req.ShowLatLong),
			Summary:   summary,
			Stats:     res.Stats,
			NoData:    res.Empty(),
			Message:   summary.Message(),
			ExportURL: history.ExportURL("", orgID, vehicleID, csvReq),
		})
	}
}

func (s *Server) vehicleHistoryPlot(w http.ResponseWriter, r *http.Request) {
	orgID, vehicleID := r.PathValue("orgID"), r.PathValue("vehicleID")
	req, err := s.decodeRequest(r.URL.Query())
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	res, status, err := s.load(r, orgID, vehicleID, &req)
	if err != nil {
		httputil.WriteJSONError(w, status, err.Error())
		return
	}
	if res.Empty() {
		httputil.NotFound(w, "no events in the selected period")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if err := report.WritePNG(w, vehicleID, res.Events, report.SettingsFor(req), 10*vg.Inch, 4*vg.Inch); err != nil {
		monitoring.Logf("plot %s/%s: %v", orgID, vehicleID, err)
	}
}

// PresentEvents hides positions unless lat/long display was requested.
func PresentEvents(events []history.Event, showLatLong bool) []history.Event {
	if showLatLong {
		return events
	}
	out := make([]history.Event, len(events))
	for i, e := range events {
		e.Position = nil
		out[i] = e
	}
	return out
}
