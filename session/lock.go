// Package session makes each session kind a mutually exclusive, restartable
// unit of work: a pid-file lock answers "is one already running", and the
// controller turns repeated identical invocations into toggle semantics.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

// Kind names one lock scope. Kinds are fully independent: a long dictation
// session and a short listen session may run at the same time.
type Kind string

const (
	KindListen Kind = "listen"
	KindLong   Kind = "long"
)

// Probe reports whether pid is a live process that belongs to us. Injectable
// so tests can fake liveness without spawning anything.
type Probe func(pid int) bool

// Lock is a pid-file with atomic create-if-absent acquisition. At most one
// live holder exists per kind; a file whose pid is dead is stale and gets
// reclaimed on the next acquire.
type Lock struct {
	path  string
	probe Probe
}

func NewLock(dir string, kind Kind, probe Probe) *Lock {
	if probe == nil {
		probe = liveOwnProcess
	}
	return &Lock{
		path:  filepath.Join(dir, string(kind)+".pid"),
		probe: probe,
	}
}

func (l *Lock) Path() string { return l.path }

// Acquire tries to take the lock for pid. It returns acquired=true on
// success, or acquired=false with the live holder's pid. Stale files are
// removed and the create retried, so reclamation is race-safe: when two
// callers reclaim at once, the O_EXCL create lets exactly one win and the
// other observes the winner as holder.
func (l *Lock) Acquire(pid int) (acquired bool, holder int, err error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return false, 0, fmt.Errorf("create runtime dir: %w", err)
	}

	for attempt := 0; attempt < 3; attempt++ {
		f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			_, werr := fmt.Fprintf(f, "%d\n", pid)
			cerr := f.Close()
			if werr != nil || cerr != nil {
				os.Remove(l.path)
				return false, 0, fmt.Errorf("write pid file: %w", errors.Join(werr, cerr))
			}
			return true, 0, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return false, 0, fmt.Errorf("create pid file: %w", err)
		}

		holder, herr := l.readHolder()
		if herr == nil && l.probe(holder) {
			return false, holder, nil
		}
		// Dead holder or unreadable file: stale either way. Remove and
		// retry the exclusive create.
		if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return false, 0, fmt.Errorf("reclaim stale pid file: %w", err)
		}
	}
	return false, 0, fmt.Errorf("pid file %s kept reappearing", l.path)
}

// Holder returns the current live holder, or held=false when the lock is
// free or stale.
func (l *Lock) Holder() (pid int, held bool) {
	pid, err := l.readHolder()
	if err != nil {
		return 0, false
	}
	return pid, l.probe(pid)
}

// Release removes the lock, but only when it still holds pid. A lock the
// holder lost to reclamation must not clobber the new owner's file.
func (l *Lock) Release(pid int) error {
	current, err := l.readHolder()
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if current != pid {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove pid file: %w", err)
	}
	return nil
}

func (l *Lock) readHolder() (int, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("malformed pid file %s: %w", l.path, err)
	}
	return pid, nil
}

// liveOwnProcess checks that pid exists and runs one of our binaries, so a
// recycled pid from an unrelated process does not look like a live session.
func liveOwnProcess(pid int) bool {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return false
	}
	if cmdline, err := p.Cmdline(); err == nil && strings.Contains(cmdline, "talkat") {
		return true
	}
	name, err := p.Name()
	return err == nil && strings.Contains(strings.ToLower(name), "talkat")
}
