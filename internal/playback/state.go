// Package playback animates a processed history sequence on a map. A
// Controller is a small state machine (Stopped, Playing, Paused) driven by a
// cancellable tick from a timeutil.Clock.
package playback

import (
	"math"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/banshee-data/vehicle.history/internal/telemetry"
)

// State is the controller's animation state.
type State int

const (
	Stopped State = iota
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "stopped"
	}
}

// Marker is the map marker position published for the current event.
type Marker struct {
	EventID   string             `json:"event_id"`
	Index     int                `json:"index"`
	Position  telemetry.Position `json:"position"`
	Bearing   float64            `json:"bearing"`    // degrees clockwise from north
	LegMeters float64            `json:"leg_meters"` // distance from the previous fix
	Timestamp time.Time          `json:"timestamp"`
	Status    telemetry.Status   `json:"status"`
	Color     string             `json:"color"`
}

// Progress is the animation position within the sequence.
type Progress struct {
	Index    int     `json:"index"`
	Total    int     `json:"total"`
	Fraction float64 `json:"fraction"` // 0..1
}

func progressOf(index, total int) Progress {
	p := Progress{Index: index, Total: total}
	if total > 1 {
		p.Fraction = float64(index) / float64(total-1)
	}
	return p
}

// Listener receives controller output. Calls are made without the controller
// lock held, so a listener may call back into the controller.
type Listener interface {
	MarkerMoved(Marker)
	ProgressChanged(Progress)
	StateChanged(State)
	Selected(eventID string)
}

// ListenerFuncs adapts optional functions to a Listener.
type ListenerFuncs struct {
	OnMarker   func(Marker)
	OnProgress func(Progress)
	OnState    func(State)
	OnSelect   func(string)
}

func (l ListenerFuncs) MarkerMoved(m Marker) {
	if l.OnMarker != nil {
		l.OnMarker(m)
	}
}

func (l ListenerFuncs) ProgressChanged(p Progress) {
	if l.OnProgress != nil {
		l.OnProgress(p)
	}
}

func (l ListenerFuncs) StateChanged(s State) {
	if l.OnState != nil {
		l.OnState(s)
	}
}

func (l ListenerFuncs) Selected(id string) {
	if l.OnSelect != nil {
		l.OnSelect(id)
	}
}

// bearing returns the initial great-circle bearing from a to b in [0, 360).
func bearing(a, b telemetry.Position) float64 {
	deg := geo.Bearing(orb.Point{a.Lon, a.Lat}, orb.Point{b.Lon, b.Lat})
	return math.Mod(deg+360, 360)
}

func legMeters(a, b telemetry.Position) float64 {
	return geo.Distance(orb.Point{a.Lon, a.Lat}, orb.Point{b.Lon, b.Lat})
}
