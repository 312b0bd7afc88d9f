package session

import (
	"os"
	"sync"
	"testing"
	"time"
)

type fakeSignaler struct {
	mu         sync.Mutex
	interrupts []int
	terminates []int

	// onInterrupt, when set, runs on each Interrupt so tests can simulate
	// the worker reacting (e.g. releasing the lock).
	onInterrupt func(pid int)
}

func (s *fakeSignaler) Interrupt(pid int) error {
	s.mu.Lock()
	s.interrupts = append(s.interrupts, pid)
	cb := s.onInterrupt
	s.mu.Unlock()
	if cb != nil {
		cb(pid)
	}
	return nil
}

func (s *fakeSignaler) Terminate(pid int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.terminates = append(s.terminates, pid)
	return nil
}

func newTestController(t *testing.T, probe Probe) (*Controller, *fakeSignaler) {
	t.Helper()
	sig := &fakeSignaler{}
	c := &Controller{
		lock:        NewLock(t.TempDir(), KindListen, probe),
		signal:      sig,
		stopTimeout: 200 * time.Millisecond,
		poll:        10 * time.Millisecond,
	}
	return c, sig
}

func TestToggleStartsWhenIdle(t *testing.T) {
	c, sig := newTestController(t, aliveProbe)

	outcome, err := c.Toggle()
	if err != nil {
		t.Fatal(err)
	}
	if outcome != Started {
		t.Fatalf("outcome = %v, want started", outcome)
	}
	if len(sig.interrupts) != 0 {
		t.Fatal("no signal should be sent when starting fresh")
	}
	if err := c.Release(); err != nil {
		t.Fatal(err)
	}
}

func TestToggleSignalsLiveHolder(t *testing.T) {
	c, sig := newTestController(t, aliveProbe)
	if _, err := c.Toggle(); err != nil {
		t.Fatal(err)
	}

	outcome, err := c.Toggle()
	if err != nil {
		t.Fatal(err)
	}
	if outcome != Stopped {
		t.Fatalf("outcome = %v, want stopped", outcome)
	}
	if len(sig.interrupts) != 1 || sig.interrupts[0] != os.Getpid() {
		t.Fatalf("interrupts = %v, want one interrupt to the holder", sig.interrupts)
	}
}

func TestToggleReclaimsStaleAndStarts(t *testing.T) {
	c, _ := newTestController(t, deadProbe)
	if err := os.WriteFile(c.lock.Path(), []byte("424242\n"), 0644); err != nil {
		t.Fatal(err)
	}

	outcome, err := c.Toggle()
	if err != nil {
		t.Fatal(err)
	}
	if outcome != Started {
		t.Fatalf("outcome = %v, want started after stale reclaim", outcome)
	}
}

func TestStopBackgroundNothingRunning(t *testing.T) {
	c, sig := newTestController(t, aliveProbe)
	if err := c.StopBackground(); err != nil {
		t.Fatal(err)
	}
	if len(sig.interrupts) != 0 {
		t.Fatal("nothing to signal when no session runs")
	}
}

func TestStopBackgroundGraceful(t *testing.T) {
	c, sig := newTestController(t, aliveProbe)
	if err := os.WriteFile(c.lock.Path(), []byte("4242\n"), 0644); err != nil {
		t.Fatal(err)
	}
	sig.onInterrupt = func(pid int) {
		os.Remove(c.lock.Path()) // worker exits and releases
	}

	if err := c.StopBackground(); err != nil {
		t.Fatal(err)
	}
	if len(sig.terminates) != 0 {
		t.Fatal("graceful stop must not escalate")
	}
}

func TestStopBackgroundEscalatesThenFails(t *testing.T) {
	// Holder never reacts to any signal: bounded wait, escalation, then a
	// reported failure instead of hanging forever.
	c, sig := newTestController(t, aliveProbe)
	if err := os.WriteFile(c.lock.Path(), []byte("4242\n"), 0644); err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	err := c.StopBackground()
	if err == nil {
		t.Fatal("expected failure when the worker never exits")
	}
	if time.Since(start) > 2*time.Second {
		t.Fatal("stop-wait not bounded")
	}
	if len(sig.interrupts) != 1 || len(sig.terminates) != 1 {
		t.Fatalf("signals = %d interrupts, %d terminates; want 1 and 1", len(sig.interrupts), len(sig.terminates))
	}
}

func TestStartBackgroundRefusesWhenRunning(t *testing.T) {
	c, _ := newTestController(t, aliveProbe)
	if err := os.WriteFile(c.lock.Path(), []byte("4242\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := c.StartBackground([]string{"true"}); err == nil {
		t.Fatal("expected error while a live session holds the lock")
	}
}
