// Package timeutil provides a testable abstraction over the timers that drive
// playback.
package timeutil

import (
	"sort"
	"sync"
	"time"
)

// Clock provides an abstraction over time operations for testability.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// Since returns the duration since t.
	Since(t time.Time) time.Duration

	// NewTimer creates a new Timer that will send the current time
	// on its channel after at least duration d.
	NewTimer(d time.Duration) Timer

	// AfterFunc waits for the duration to elapse and then calls f in its own
	// goroutine (RealClock) or synchronously from Advance (MockClock). The
	// returned Timer cancels the call with Stop.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer represents a single event timer.
type Timer interface {
	// C returns the channel on which the time is delivered. It is nil for
	// timers created by AfterFunc.
	C() <-chan time.Time

	// Stop prevents the Timer from firing. It reports whether the call
	// stopped the timer, so calling it twice is harmless.
	Stop() bool

	// Reset changes the timer to expire after duration d.
	Reset(d time.Duration) bool
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// Since returns the time elapsed since t.
func (RealClock) Since(t time.Time) time.Duration {
	return time.Since(t)
}

// NewTimer creates a new Timer.
func (RealClock) NewTimer(d time.Duration) Timer {
	return &realTimer{timer: time.NewTimer(d)}
}

// AfterFunc calls f in its own goroutine after d.
func (RealClock) AfterFunc(d time.Duration, f func()) Timer {
	return &realTimer{timer: time.AfterFunc(d, f)}
}

type realTimer struct {
	timer *time.Timer
}

func (t *realTimer) C() <-chan time.Time { return t.timer.C }
func (t *realTimer) Stop() bool          { return t.timer.Stop() }
func (t *realTimer) Reset(d time.Duration) bool {
	return t.timer.Reset(d)
}

// MockClock is a manually controlled clock for testing. Timers only fire from
// Advance, in deadline order, so tests see a deterministic sequence of ticks.
type MockClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*MockTimer
	seq    uint64
}

// NewMockClock creates a new MockClock set to the given time.
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{now: t}
}

// Now returns the mocked current time.
func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set sets the mock clock to a specific time without firing timers.
func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Since returns the duration since t.
func (c *MockClock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}

// NewTimer creates a new MockTimer delivering on its channel.
func (c *MockClock) NewTimer(d time.Duration) Timer {
	return c.addTimer(d, nil)
}

// AfterFunc creates a MockTimer that calls f when Advance passes its deadline.
func (c *MockClock) AfterFunc(d time.Duration, f func()) Timer {
	return c.addTimer(d, f)
}

func (c *MockClock) addTimer(d time.Duration, f func()) *MockTimer {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	t := &MockTimer{
		clock:    c,
		fn:       f,
		deadline: c.now.Add(d),
		active:   true,
		seq:      c.seq,
	}
	if f == nil {
		t.ch = make(chan time.Time, 1)
	}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward by d, firing every timer whose deadline is
// reached. Timers scheduled by a callback during Advance also fire if their
// deadline falls inside the advanced window.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		next := c.nextDueLocked(target)
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		if next.deadline.After(c.now) {
			c.now = next.deadline
		}
		now := c.now
		next.active = false
		c.mu.Unlock()

		// fire without holding the lock so callbacks may schedule new timers
		if next.fn != nil {
			next.fn()
		} else {
			select {
			case next.ch <- now:
			default:
			}
		}
	}
}

// nextDueLocked returns the earliest active timer due at or before target and
// prunes inactive timers.
func (c *MockClock) nextDueLocked(target time.Time) *MockTimer {
	live := c.timers[:0]
	for _, t := range c.timers {
		if t.active {
			live = append(live, t)
		}
	}
	c.timers = live
	sort.SliceStable(c.timers, func(i, j int) bool {
		if c.timers[i].deadline.Equal(c.timers[j].deadline) {
			return c.timers[i].seq < c.timers[j].seq
		}
		return c.timers[i].deadline.Before(c.timers[j].deadline)
	})
	if len(c.timers) == 0 || c.timers[0].deadline.After(target) {
		return nil
	}
	return c.timers[0]
}

// Pending returns the number of timers that have not fired or been stopped.
func (c *MockClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if t.active {
			n++
		}
	}
	return n
}

// MockTimer is a manually controlled timer for testing.
type MockTimer struct {
	clock    *MockClock
	ch       chan time.Time
	fn       func()
	deadline time.Time
	active   bool
	seq      uint64
}

// C returns the timer channel.
func (t *MockTimer) C() <-chan time.Time {
	return t.ch
}

// Stop prevents the timer from firing.
func (t *MockTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	wasActive := t.active
	t.active = false
	return wasActive
}

// Reset changes the timer to expire d after the clock's current time.
func (t *MockTimer) Reset(d time.Duration) bool {
	c := t.clock
	c.mu.Lock()
	defer c.mu.Unlock()
	wasActive := t.active
	t.deadline = c.now.Add(d)
	if !wasActive {
		c.seq++
		t.seq = c.seq
		t.active = true
		if !c.trackedLocked(t) {
			c.timers = append(c.timers, t)
		}
	}
	return wasActive
}

func (c *MockClock) trackedLocked(t *MockTimer) bool {
	for _, x := range c.timers {
		if x == t {
			return true
		}
	}
	return false
}
