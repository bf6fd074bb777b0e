package timeutil

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestRealClock_Now(t *testing.T) {
	clock := RealClock{}
	before := time.Now()
	now := clock.Now()
	after := time.Now()

	if now.Before(before) || now.After(after) {
		t.Errorf("Now() = %v, expected between %v and %v", now, before, after)
	}
}

func TestRealClock_Since(t *testing.T) {
	clock := RealClock{}
	past := time.Now().Add(-time.Second)
	if d := clock.Since(past); d < time.Second {
		t.Errorf("Since() returned %v, expected >= 1s", d)
	}
}

func TestRealClock_NewTimer(t *testing.T) {
	clock := RealClock{}
	timer := clock.NewTimer(10 * time.Millisecond)
	defer timer.Stop()

	select {
	case <-timer.C():
	case <-time.After(time.Second):
		t.Error("timer did not fire")
	}
}

func TestRealClock_AfterFunc(t *testing.T) {
	clock := RealClock{}
	done := make(chan struct{})
	clock.AfterFunc(5*time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("AfterFunc callback did not run")
	}
}

func TestRealClock_AfterFuncStop(t *testing.T) {
	clock := RealClock{}
	var fired atomic.Bool
	timer := clock.AfterFunc(50*time.Millisecond, func() { fired.Store(true) })
	if !timer.Stop() {
		t.Fatal("Stop() on pending timer should report true")
	}
	if timer.Stop() {
		t.Error("second Stop() should report false")
	}
	time.Sleep(80 * time.Millisecond)
	if fired.Load() {
		t.Error("stopped timer fired")
	}
}

func TestMockClock_NowAndSet(t *testing.T) {
	fixedTime := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
	clock := NewMockClock(fixedTime)
	if !clock.Now().Equal(fixedTime) {
		t.Errorf("got %v, want %v", clock.Now(), fixedTime)
	}

	newTime := fixedTime.Add(time.Hour)
	clock.Set(newTime)
	if !clock.Now().Equal(newTime) {
		t.Errorf("got %v, want %v", clock.Now(), newTime)
	}
	if d := clock.Since(fixedTime); d != time.Hour {
		t.Errorf("Since() = %v, want 1h", d)
	}
}

func TestMockClock_TimerFiresOnAdvance(t *testing.T) {
	clock := NewMockClock(time.Unix(0, 0))
	timer := clock.NewTimer(10 * time.Millisecond)

	clock.Advance(5 * time.Millisecond)
	select {
	case <-timer.C():
		t.Fatal("timer fired early")
	default:
	}

	clock.Advance(5 * time.Millisecond)
	select {
	case got := <-timer.C():
		if !got.Equal(time.Unix(0, 0).Add(10 * time.Millisecond)) {
			t.Errorf("fired at %v", got)
		}
	default:
		t.Fatal("timer did not fire")
	}
}

func TestMockClock_AfterFuncChainsWithinAdvance(t *testing.T) {
	clock := NewMockClock(time.Unix(0, 0))
	var fires []time.Duration
	var schedule func()
	schedule = func() {
		clock.AfterFunc(10*time.Millisecond, func() {
			fires = append(fires, clock.Since(time.Unix(0, 0)))
			schedule()
		})
	}
	schedule()

	clock.Advance(35 * time.Millisecond)

	want := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 30 * time.Millisecond}
	if len(fires) != len(want) {
		t.Fatalf("fires = %v, want %v", fires, want)
	}
	for i := range want {
		if fires[i] != want[i] {
			t.Errorf("fire %d at %v, want %v", i, fires[i], want[i])
		}
	}
	if clock.Since(time.Unix(0, 0)) != 35*time.Millisecond {
		t.Errorf("clock should end at target, got %v", clock.Now())
	}
	if clock.Pending() != 1 {
		t.Errorf("Pending() = %d, want 1", clock.Pending())
	}
}

func TestMockClock_StopAndReset(t *testing.T) {
	clock := NewMockClock(time.Unix(0, 0))
	calls := 0
	timer := clock.AfterFunc(10*time.Millisecond, func() { calls++ })

	if !timer.Stop() {
		t.Error("Stop() should report true for an active timer")
	}
	if timer.Stop() {
		t.Error("second Stop() should report false")
	}
	clock.Advance(20 * time.Millisecond)
	if calls != 0 {
		t.Fatalf("stopped timer fired %d times", calls)
	}

	if timer.Reset(5 * time.Millisecond) {
		t.Error("Reset() of a stopped timer should report false")
	}
	clock.Advance(5 * time.Millisecond)
	if calls != 1 {
		t.Fatalf("reset timer fired %d times, want 1", calls)
	}
	if clock.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", clock.Pending())
	}
}

func TestMockClock_SameDeadlineFiresInScheduleOrder(t *testing.T) {
	clock := NewMockClock(time.Unix(0, 0))
	var order []int
	clock.AfterFunc(time.Millisecond, func() { order = append(order, 1) })
	clock.AfterFunc(time.Millisecond, func() { order = append(order, 2) })
	clock.Advance(time.Millisecond)

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("order = %v, want [1 2]", order)
	}
}
