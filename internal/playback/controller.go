package playback

import (
	"sync"
	"time"

	"github.com/banshee-data/vehicle.history/internal/config"
	"github.com/banshee-data/vehicle.history/internal/history"
	"github.com/banshee-data/vehicle.history/internal/monitoring"
	"github.com/banshee-data/vehicle.history/internal/timeutil"
)

// Options configures a Controller. Zero values select the defaults of
// config.DefaultPipelineConfig.
type Options struct {
	Clock           timeutil.Clock
	Listener        Listener
	Ladder          []time.Duration // slowest first
	DefaultInterval time.Duration

	// DefaultLevel is the ladder level selected at start. A negative level
	// starts at DefaultInterval.
	DefaultLevel int
}

// OptionsFromConfig builds controller options from a pipeline config.
func OptionsFromConfig(cfg *config.PipelineConfig, clock timeutil.Clock, l Listener) Options {
	return Options{
		Clock:           clock,
		Listener:        l,
		Ladder:          cfg.GetSpeedLadder(),
		DefaultInterval: cfg.GetDefaultTickInterval(),
		DefaultLevel:    cfg.GetDefaultSpeedLevel(),
	}
}

// Controller steps through a history sequence one event per tick.
//
// Every scheduled tick carries the generation it was scheduled under. Pause,
// Stop, Seek, speed changes and Load bump the generation, so a tick belonging
// to a superseded schedule or sequence does nothing when it fires. The next
// tick is scheduled only after the listener has handled the current one;
// a reschedule requested while a tick is being delivered is deferred until
// the delivery returns.
type Controller struct {
	mu sync.Mutex

	clock    timeutil.Clock
	listener Listener

	ladder          []time.Duration
	defaultInterval time.Duration
	interval        time.Duration
	level           int

	events   []history.Event
	index    int
	state    State
	selected string

	timer timeutil.Timer
	gen   uint64

	ticking     bool // a tick's notes are being delivered
	rescheduled bool // a schedule was requested while ticking
}

// NewController returns a stopped controller with an empty sequence.
func NewController(opts Options) *Controller {
	def := config.DefaultPipelineConfig()
	c := &Controller{
		clock:           opts.Clock,
		listener:        opts.Listener,
		ladder:          opts.Ladder,
		defaultInterval: opts.DefaultInterval,
	}
	if c.clock == nil {
		c.clock = timeutil.RealClock{}
	}
	if c.listener == nil {
		c.listener = ListenerFuncs{}
	}
	if len(c.ladder) == 0 {
		c.ladder = def.GetSpeedLadder()
	}
	if c.defaultInterval <= 0 {
		c.defaultInterval = def.GetDefaultTickInterval()
	}
	c.level = -1
	c.interval = c.defaultInterval
	if opts.DefaultLevel >= 0 && opts.DefaultLevel < len(c.ladder) {
		c.level = opts.DefaultLevel
		c.interval = c.ladder[opts.DefaultLevel]
	}
	return c
}

// note is a deferred listener call, run after the lock is released.
type note func(Listener)

func (c *Controller) emit(notes []note) {
	for _, n := range notes {
		n(c.listener)
	}
}

// State returns the current animation state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsPlayable reports whether Play would start the animation.
func (c *Controller) IsPlayable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state != Playing && len(c.events) > 0
}

// IsPausable reports whether Pause would take effect.
func (c *Controller) IsPausable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == Playing
}

// IsStoppable reports whether Stop would take effect.
func (c *Controller) IsStoppable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state != Stopped
}

// Index returns the index of the current event.
func (c *Controller) Index() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index
}

// Len returns the length of the loaded sequence.
func (c *Controller) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

// Progress returns the current progress.
func (c *Controller) Progress() Progress {
	c.mu.Lock()
	defer c.mu.Unlock()
	return progressOf(c.index, len(c.events))
}

// Current returns the current event, if any.
func (c *Controller) Current() (history.Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.events) == 0 {
		return history.Event{}, false
	}
	return c.events[c.index], true
}

// SelectedID returns the selected event ID, or "" when nothing is selected.
func (c *Controller) SelectedID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected
}

// Interval returns the current tick interval.
func (c *Controller) Interval() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interval
}

// Level returns the current speed level, or -1 when a custom or default
// interval is in use.
func (c *Controller) Level() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.level
}

// Play starts or resumes the animation. It is a no-op returning false when
// already playing or when the sequence is empty. Playing from the end of a
// finished run starts again from the beginning.
func (c *Controller) Play() bool {
	c.mu.Lock()
	if c.state == Playing || len(c.events) == 0 {
		c.mu.Unlock()
		return false
	}
	if c.state == Stopped && c.index >= len(c.events)-1 {
		c.index = 0
	}
	c.state = Playing
	notes := []note{stateNote(Playing)}
	notes = append(notes, c.positionNotesLocked()...)
	c.scheduleLocked()
	c.mu.Unlock()

	c.emit(notes)
	return true
}

// Pause halts a playing animation at the current event.
func (c *Controller) Pause() bool {
	c.mu.Lock()
	if c.state != Playing {
		c.mu.Unlock()
		return false
	}
	c.cancelLocked()
	c.state = Paused
	c.mu.Unlock()

	c.emit([]note{stateNote(Paused)})
	return true
}

// Stop halts the animation and rewinds to the first event.
func (c *Controller) Stop() bool {
	c.mu.Lock()
	if c.state == Stopped {
		c.mu.Unlock()
		return false
	}
	c.cancelLocked()
	c.state = Stopped
	c.index = 0
	notes := []note{stateNote(Stopped)}
	notes = append(notes, c.positionNotesLocked()...)
	c.mu.Unlock()

	c.emit(notes)
	return true
}

// Seek moves to index i, clamped to the sequence, without changing state.
func (c *Controller) Seek(i int) {
	c.mu.Lock()
	if len(c.events) == 0 {
		c.mu.Unlock()
		return
	}
	c.index = clamp(i, len(c.events))
	notes := c.positionNotesLocked()
	c.rescheduleLocked()
	c.mu.Unlock()

	c.emit(notes)
}

// Select marks the event with the given ID as selected and moves the marker
// to it, pausing a playing animation. Selecting the selected event again
// clears the selection. It reports false when the ID is not in the sequence.
func (c *Controller) Select(id string) bool {
	c.mu.Lock()
	i := c.indexOfLocked(id)
	if i < 0 {
		c.mu.Unlock()
		return false
	}
	if id == c.selected {
		c.selected = ""
		c.mu.Unlock()
		c.emit([]note{selectNote("")})
		return true
	}

	var notes []note
	if c.state == Playing {
		c.cancelLocked()
		c.state = Paused
		notes = append(notes, stateNote(Paused))
	}
	c.selected = id
	c.index = i
	notes = append(notes, c.positionNotesLocked()...)
	notes = append(notes, selectNote(id))
	c.mu.Unlock()

	c.emit(notes)
	return true
}

// SetSpeed selects a level of the speed ladder. A level outside the ladder
// selects the default interval.
func (c *Controller) SetSpeed(level int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if level < 0 || level >= len(c.ladder) {
		c.level = -1
		c.interval = c.defaultInterval
	} else {
		c.level = level
		c.interval = c.ladder[level]
	}
	c.rescheduleLocked()
}

// SetInterval sets a custom tick interval. Zero or negative selects the
// default interval.
func (c *Controller) SetInterval(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.level = -1
	c.interval = d
	if d <= 0 {
		c.interval = c.defaultInterval
	}
	c.rescheduleLocked()
}

// Load replaces the sequence after a recomputation. The current position is
// re-anchored to the event with the nearest timestamp, falling back to
// clamping the index. Playing and Paused are kept; an empty sequence stops
// the animation. Any pending tick for the old sequence is cancelled.
func (c *Controller) Load(events []history.Event) {
	c.mu.Lock()
	prev, prevIndex := c.events, c.index
	c.events = events
	c.cancelLocked()

	var notes []note
	if len(events) == 0 {
		c.index = 0
		c.selected = ""
		if c.state != Stopped {
			c.state = Stopped
			notes = append(notes, stateNote(Stopped))
		}
		notes = append(notes, progressNote(progressOf(0, 0)))
		c.mu.Unlock()
		c.emit(notes)
		return
	}

	c.index = clamp(prevIndex, len(events))
	if prevIndex < len(prev) && !prev[prevIndex].Timestamp.IsZero() {
		c.index = nearest(events, prev[prevIndex].Timestamp, c.index)
	}
	if c.selected != "" && c.indexOfLocked(c.selected) < 0 {
		c.selected = ""
	}
	monitoring.Diagf("playback: loaded %d events, re-anchored %d -> %d (%s)", len(events), prevIndex, c.index, c.state)

	notes = append(notes, c.positionNotesLocked()...)
	if c.state == Playing {
		c.scheduleLocked()
	}
	c.mu.Unlock()

	c.emit(notes)
}

func (c *Controller) tick(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.state != Playing {
		c.mu.Unlock()
		return
	}
	c.timer = nil

	var notes []note
	next := c.nextPositionedLocked(c.index + 1)
	if next < 0 {
		c.index = len(c.events) - 1
	} else {
		c.index = next
		notes = append(notes, c.positionNotesLocked()...)
	}
	if c.index >= len(c.events)-1 {
		c.state = Stopped
		c.gen++
		if next < 0 {
			notes = append(notes, progressNote(progressOf(c.index, len(c.events))))
		}
		notes = append(notes, stateNote(Stopped))
	}
	c.ticking = true
	c.mu.Unlock()

	c.emit(notes)

	c.mu.Lock()
	c.ticking = false
	resume := c.rescheduled || gen == c.gen
	c.rescheduled = false
	if resume && c.state == Playing {
		c.scheduleLocked()
	}
	c.mu.Unlock()
}

// scheduleLocked arms the next tick. While a tick is being delivered it only
// cancels the pending schedule and leaves arming to the delivering tick.
func (c *Controller) scheduleLocked() {
	c.cancelLocked()
	if c.ticking {
		c.rescheduled = true
		return
	}
	gen := c.gen
	c.timer = c.clock.AfterFunc(c.interval, func() { c.tick(gen) })
}

func (c *Controller) rescheduleLocked() {
	if c.state == Playing {
		c.scheduleLocked()
	}
}

// cancelLocked invalidates any pending tick. Calling it twice is harmless.
func (c *Controller) cancelLocked() {
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// positionNotesLocked publishes the marker, when the current event has a
// position, and the progress.
func (c *Controller) positionNotesLocked() []note {
	var notes []note
	if m, ok := c.markerLocked(c.index); ok {
		notes = append(notes, markerNote(m))
	}
	return append(notes, progressNote(progressOf(c.index, len(c.events))))
}

func (c *Controller) markerLocked(i int) (Marker, bool) {
	if i < 0 || i >= len(c.events) || !c.events[i].HasPosition() {
		return Marker{}, false
	}
	e := c.events[i]
	m := Marker{
		EventID:   e.ID,
		Index:     i,
		Position:  *e.Position,
		Timestamp: e.Timestamp,
		Status:    e.Status,
		Color:     e.Color(),
	}
	if p := c.prevPositionedLocked(i - 1); p >= 0 {
		from := *c.events[p].Position
		m.Bearing = bearing(from, m.Position)
		m.LegMeters = legMeters(from, m.Position)
	}
	if e.Heading != nil {
		m.Bearing = *e.Heading
	}
	return m, true
}

func (c *Controller) nextPositionedLocked(from int) int {
	for i := from; i < len(c.events); i++ {
		if c.events[i].HasPosition() {
			return i
		}
	}
	return -1
}

func (c *Controller) prevPositionedLocked(from int) int {
	for i := from; i >= 0; i-- {
		if c.events[i].HasPosition() {
			return i
		}
	}
	return -1
}

func (c *Controller) indexOfLocked(id string) int {
	for i, e := range c.events {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// nearest returns the index of the event closest in time to t. Ties keep the
// earlier index; fallback is returned when no event has a timestamp.
func nearest(events []history.Event, t time.Time, fallback int) int {
	best, bestGap := -1, time.Duration(0)
	for i, e := range events {
		if e.Timestamp.IsZero() {
			continue
		}
		gap := e.Timestamp.Sub(t)
		if gap < 0 {
			gap = -gap
		}
		if best < 0 || gap < bestGap {
			best, bestGap = i, gap
		}
	}
	if best < 0 {
		return fallback
	}
	return best
}

func clamp(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func stateNote(s State) note       { return func(l Listener) { l.StateChanged(s) } }
func markerNote(m Marker) note     { return func(l Listener) { l.MarkerMoved(m) } }
func progressNote(p Progress) note { return func(l Listener) { l.ProgressChanged(p) } }
func selectNote(id string) note    { return func(l Listener) { l.Selected(id) } }
