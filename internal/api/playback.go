package api

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/banshee-data/vehicle.history/internal/feed"
	"github.com/banshee-data/vehicle.history/internal/httputil"
	"github.com/banshee-data/vehicle.history/internal/playback"
)

// markerTracker remembers the last marker the controller published.
type markerTracker struct {
	mu     sync.Mutex
	marker *playback.Marker
}

func (t *markerTracker) listener() playback.Listener {
	return playback.ListenerFuncs{
		OnMarker: func(m playback.Marker) {
			t.mu.Lock()
			t.marker = &m
			t.mu.Unlock()
		},
	}
}

func (t *markerTracker) last() *playback.Marker {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.marker
}

// PlaybackStatus is the JSON view of the playback controller.
type PlaybackStatus struct {
	State      string            `json:"state"`
	Progress   playback.Progress `json:"progress"`
	SelectedID string            `json:"selected_id,omitempty"`
	IntervalMs int64             `json:"interval_ms"`
	Level      int               `json:"level"`
	Marker     *playback.Marker  `json:"marker,omitempty"`
	VehicleID  string            `json:"vehicle_id,omitempty"`
	Message    string            `json:"message"`
	Changed    *bool             `json:"changed,omitempty"`
}

func (s *Server) status() PlaybackStatus {
	snap := s.feed.Current()
	return PlaybackStatus{
		State:      s.player.State().String(),
		Progress:   s.player.Progress(),
		SelectedID: s.player.SelectedID(),
		IntervalMs: s.player.Interval().Milliseconds(),
		Level:      s.player.Level(),
		Marker:     s.marker.last(),
		VehicleID:  snap.VehicleID,
		Message:    snap.Summary.Message(),
	}
}

func (s *Server) playbackStatus(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, s.status())
}

// playbackLoad loads a vehicle window into the feed. It takes the export
// query parameters plus org and vehicle.
func (s *Server) playbackLoad(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	orgID, vehicleID := q.Get("org"), q.Get("vehicle")
	if vehicleID == "" {
		httputil.BadRequest(w, "missing vehicle")
		return
	}
	req, err := s.decodeRequest(q)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	samples, status, err := s.window(r, orgID, vehicleID, &req)
	if err != nil {
		httputil.WriteJSONError(w, status, err.Error())
		return
	}

	changed := s.feed.Replace(feed.State{
		VehicleID:   orgID + "/" + vehicleID,
		History:     samples,
		Start:       req.Start,
		End:         req.End,
		Verbose:     req.Options.Verbose,
		ShowLatLong: req.ShowLatLong,
		AutoUpdate:  true,
	}, req.Options)
	st := s.status()
	st.Changed = &changed
	httputil.WriteJSONOK(w, st)
}

func (s *Server) playbackAction(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ok := true
	switch action := r.PathValue("action"); action {
	case "play":
		ok = s.player.Play()
	case "pause":
		ok = s.player.Pause()
	case "stop":
		ok = s.player.Stop()
	case "seek":
		i, err := strconv.Atoi(q.Get("index"))
		if err != nil {
			httputil.BadRequest(w, "index must be an integer")
			return
		}
		s.player.Seek(i)
	case "select":
		ok = s.player.Select(q.Get("id"))
	case "speed":
		level, err := strconv.Atoi(q.Get("level"))
		if err != nil {
			httputil.BadRequest(w, "level must be an integer")
			return
		}
		s.player.SetSpeed(level)
	case "refresh":
		s.feed.Refresh()
	default:
		httputil.NotFound(w, fmt.Sprintf("unknown playback action %q", action))
		return
	}

	if !ok {
		httputil.WriteJSON(w, http.StatusConflict, s.status())
		return
	}
	httputil.WriteJSONOK(w, s.status())
}
