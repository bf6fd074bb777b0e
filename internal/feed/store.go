// Package feed is the notifier that decides when the history pipeline runs.
// It holds the selected vehicle's window and the view options, recomputes when
// an input actually changes, and hands every new sequence to its sinks and
// subscribers.
package feed

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/vehicle.history/internal/history"
	"github.com/banshee-data/vehicle.history/internal/monitoring"
	"github.com/banshee-data/vehicle.history/internal/telemetry"
)

// State is the input supplied for the selected vehicle.
type State struct {
	VehicleID   string
	History     []telemetry.Sample
	Start       time.Time
	End         time.Time
	Verbose     bool
	ShowLatLong bool
	AutoUpdate  bool
}

// Snapshot is one published recomputation.
type Snapshot struct {
	Seq         uint64          `json:"seq"`
	VehicleID   string          `json:"vehicle_id"`
	Start       time.Time       `json:"start"`
	End         time.Time       `json:"end"`
	ShowLatLong bool            `json:"show_lat_long"`
	Options     history.Options `json:"-"`
	Result      history.Result  `json:"result"`
	Summary     history.Summary `json:"summary"`
}

// Sink consumes each new sequence. The playback controller is a Sink.
type Sink interface {
	Load(events []history.Event)
}

// Selector is implemented by sinks that track a selected event.
type Selector interface {
	Select(id string) bool
	SelectedID() string
}

// Store recomputes the history sequence when its inputs change. Sinks and
// subscribers see recomputations one at a time in sequence order, so a sink
// must not call back into Update, SetOptions, Replace or Refresh.
type Store struct {
	// deliverMu orders recomputation and delivery; it is taken before mu.
	deliverMu sync.Mutex

	mu          sync.Mutex
	opts        history.Options
	state       State
	fingerprint string
	current     Snapshot
	seq         uint64
	sinks       []Sink

	subscriberMu sync.Mutex
	subscribers  map[string]chan Snapshot
}

// NewStore returns a store using opts for every recomputation.
func NewStore(opts history.Options) *Store {
	return &Store{
		opts:        opts,
		subscribers: make(map[string]chan Snapshot),
	}
}

// Attach adds a sink that receives every new sequence.
func (s *Store) Attach(sink Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sinks = append(s.sinks, sink)
}

// Current returns the latest snapshot.
func (s *Store) Current() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Options returns the options used for recomputation.
func (s *Store) Options() history.Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opts
}

// Update supplies a new input state. It recomputes and publishes only when
// AutoUpdate is set and the inputs differ from the last recomputation, and
// reports whether it did.
func (s *Store) Update(st State) bool {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	return s.recompute(false)
}

// SetOptions replaces the view options and recomputes if they changed the
// pipeline inputs.
func (s *Store) SetOptions(opts history.Options) bool {
	s.mu.Lock()
	s.opts = opts
	s.mu.Unlock()
	return s.recompute(false)
}

// Replace supplies a new input state together with new view options and
// recomputes at most once.
func (s *Store) Replace(st State, opts history.Options) bool {
	s.mu.Lock()
	s.state = st
	s.opts = opts
	s.mu.Unlock()
	return s.recompute(false)
}

// Refresh recomputes unconditionally, as the Refresh button does.
func (s *Store) Refresh() bool {
	return s.recompute(true)
}

func (s *Store) recompute(force bool) bool {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	s.mu.Lock()
	st := s.state
	if !st.AutoUpdate && !force {
		s.mu.Unlock()
		return false
	}
	opts := s.opts
	opts.Verbose = st.Verbose
	fp := fingerprint(st, opts)
	if fp == s.fingerprint && !force {
		s.mu.Unlock()
		return false
	}
	vehicleChanged := st.VehicleID != s.current.VehicleID || s.seq == 0

	res := history.Process(st.History, opts)
	s.seq++
	s.fingerprint = fp
	s.current = Snapshot{
		Seq:         s.seq,
		VehicleID:   st.VehicleID,
		Start:       st.Start,
		End:         st.End,
		ShowLatLong: st.ShowLatLong,
		Options:     opts,
		Result:      res,
		Summary:     history.Summarize(res.Events),
	}
	snap := s.current
	sinks := append([]Sink(nil), s.sinks...)
	s.mu.Unlock()

	monitoring.Logf("feed: vehicle %s recomputed: %s", snap.VehicleID, snap.Summary.Message())

	for _, sink := range sinks {
		sink.Load(snap.Result.Events)
		if sel, ok := sink.(Selector); ok && vehicleChanged {
			selectFirstPositioned(sel, snap.Result.Events)
		}
	}
	s.publish(snap)
	return true
}

// selectFirstPositioned selects the first event with a position, as happens
// when a different vehicle is picked.
func selectFirstPositioned(sel Selector, events []history.Event) {
	for _, e := range events {
		if e.HasPosition() {
			if sel.SelectedID() != e.ID {
				sel.Select(e.ID)
			}
			return
		}
	}
}

// Subscribe returns a channel receiving every new snapshot. Slow subscribers
// only see the most recent one.
func (s *Store) Subscribe() (string, chan Snapshot) {
	id := uuid.NewString()
	ch := make(chan Snapshot, 1)
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	s.subscribers[id] = ch
	return id, ch
}

// Unsubscribe closes and removes a subscription.
func (s *Store) Unsubscribe(id string) {
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	if ch, ok := s.subscribers[id]; ok {
		close(ch)
		delete(s.subscribers, id)
	}
}

// Close removes every subscription.
func (s *Store) Close() {
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	for id, ch := range s.subscribers {
		close(ch)
		delete(s.subscribers, id)
	}
}

func (s *Store) publish(snap Snapshot) {
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	for _, ch := range s.subscribers {
		// replace a stale undelivered snapshot
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

// fingerprint hashes every input that affects a recomputation.
func fingerprint(st State, opts history.Options) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%d|%d|%t|%+v\n", st.VehicleID, st.Start.UnixNano(), st.End.UnixNano(), st.ShowLatLong, opts)
	for _, x := range st.History {
		fmt.Fprintf(h, "%s|%d|%s|%s|%g|%s|%s|%s|%t|%s|%d|%s|%t|%t\n",
			x.ID, x.Timestamp.UnixNano(), position(x.Position), number(x.OdometerMiles), x.SpeedMPH,
			number(x.Heading), x.Command, x.Override, x.Verbose, number(x.EngineHours),
			x.GPSAccuracy, number(x.BatteryPercent), x.Buffered, x.Online)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func number(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}

func position(p *telemetry.Position) string {
	if p == nil {
		return "-"
	}
	return number(&p.Lat) + "," + number(&p.Lon)
}
