package session

import (
	"fmt"
	"os"
	"os/exec"
	"time"

	"talkat/log"
)

type Outcome int

const (
	// Started means this invocation took the lock and is now the active
	// session for its kind.
	Started Outcome = iota
	// Stopped means a live session was already running and has been asked
	// to finish its in-flight utterance and exit.
	Stopped
)

func (o Outcome) String() string {
	if o == Started {
		return "started"
	}
	return "stopped"
}

// Signaler delivers stop requests to a holder process. Interrupt asks for a
// graceful stop (finish the current utterance), Terminate for an urgent one.
type Signaler interface {
	Interrupt(pid int) error
	Terminate(pid int) error
}

type osSignaler struct{}

func (osSignaler) Interrupt(pid int) error { return signalProcess(pid, os.Interrupt) }
func (osSignaler) Terminate(pid int) error { return signalProcess(pid, terminateSignal()) }

func signalProcess(pid int, sig os.Signal) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return p.Signal(sig)
}

// Controller decides start-vs-stop for repeated invocations of one session
// kind and manages detached background workers.
type Controller struct {
	lock        *Lock
	signal      Signaler
	stopTimeout time.Duration
	poll        time.Duration
}

func NewController(dir string, kind Kind, stopTimeout time.Duration) *Controller {
	return &Controller{
		lock:        NewLock(dir, kind, nil),
		signal:      osSignaler{},
		stopTimeout: stopTimeout,
		poll:        50 * time.Millisecond,
	}
}

func (c *Controller) Lock() *Lock { return c.lock }

// Toggle implements the single-command start/stop model. If no live session
// holds the lock, this process acquires it and returns Started; the caller
// then runs the session and must call Release when done. If a live holder
// exists, it is sent a graceful stop and Toggle returns Stopped.
//
// A holder that vanishes between the liveness check and the signal is not an
// error; its stale file is reclaimed on the next invocation.
func (c *Controller) Toggle() (Outcome, error) {
	acquired, holder, err := c.lock.Acquire(os.Getpid())
	if err != nil {
		return Stopped, err
	}
	if acquired {
		return Started, nil
	}

	if err := c.signal.Interrupt(holder); err != nil {
		log.Warnf("signal pid %d failed (already gone?): %v", holder, err)
	}
	return Stopped, nil
}

// Release gives the lock back after a Started session finishes.
func (c *Controller) Release() error {
	return c.lock.Release(os.Getpid())
}

// StartBackground spawns argv as a detached worker in its own session, so
// closing the launching terminal does not kill it. The worker acquires the
// lock itself under the same discipline; if a live session already exists
// nothing is spawned.
func (c *Controller) StartBackground(argv []string) error {
	if pid, held := c.lock.Holder(); held {
		return fmt.Errorf("already running (pid %d)", pid)
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.SysProcAttr = detachedProcAttr()
	cmd.Stdout = nil
	cmd.Stderr = nil
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("spawn background worker: %w", err)
	}
	log.Infof("started background worker pid=%d", cmd.Process.Pid)

	// Let the child outlive us without leaving a zombie reaped by no one.
	go cmd.Wait()
	return nil
}

// StopBackground asks the live holder to stop and waits, bounded, for the
// lock to clear. If the graceful signal does not work within the stop
// timeout it escalates to Terminate, and reports failure if the worker still
// will not exit.
func (c *Controller) StopBackground() error {
	pid, held := c.lock.Holder()
	if !held {
		return nil
	}

	if err := c.signal.Interrupt(pid); err != nil {
		log.Warnf("interrupt pid %d failed: %v", pid, err)
	}
	if c.waitForRelease(c.stopTimeout) {
		return nil
	}

	log.Warnf("pid %d ignored graceful stop, terminating", pid)
	if err := c.signal.Terminate(pid); err != nil {
		log.Warnf("terminate pid %d failed: %v", pid, err)
	}
	if c.waitForRelease(c.stopTimeout / 2) {
		return nil
	}
	return fmt.Errorf("session pid %d did not stop within %v", pid, c.stopTimeout)
}

// ToggleBackground starts a worker when none runs, stops it otherwise.
func (c *Controller) ToggleBackground(argv []string) (Outcome, error) {
	if _, held := c.lock.Holder(); held {
		return Stopped, c.StopBackground()
	}
	return Started, c.StartBackground(argv)
}

func (c *Controller) waitForRelease(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if _, held := c.lock.Holder(); !held {
			return true
		}
		time.Sleep(c.poll)
	}
	_, held := c.lock.Holder()
	return !held
}
