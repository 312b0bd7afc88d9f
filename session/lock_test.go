package session

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func deadProbe(int) bool  { return false }
func aliveProbe(int) bool { return true }

func TestAcquireReleaseCycle(t *testing.T) {
	l := NewLock(t.TempDir(), KindListen, aliveProbe)

	acquired, _, err := l.Acquire(100)
	if err != nil {
		t.Fatal(err)
	}
	if !acquired {
		t.Fatal("first acquire should succeed")
	}

	acquired, holder, err := l.Acquire(200)
	if err != nil {
		t.Fatal(err)
	}
	if acquired {
		t.Fatal("second acquire should observe the holder")
	}
	if holder != 100 {
		t.Fatalf("holder = %d, want 100", holder)
	}

	if err := l.Release(100); err != nil {
		t.Fatal(err)
	}
	acquired, _, err = l.Acquire(200)
	if err != nil {
		t.Fatal(err)
	}
	if !acquired {
		t.Fatal("acquire after release should succeed")
	}
}

func TestStaleReclaimIsIdempotent(t *testing.T) {
	// A pid file referencing a dead process always yields a successful
	// acquire, no matter how many stale attempts came before.
	dir := t.TempDir()
	l := NewLock(dir, KindListen, deadProbe)

	for i := 0; i < 5; i++ {
		if err := os.WriteFile(l.Path(), []byte("424242\n"), 0644); err != nil {
			t.Fatal(err)
		}
		acquired, _, err := l.Acquire(100)
		if err != nil {
			t.Fatalf("attempt %d: %v", i, err)
		}
		if !acquired {
			t.Fatalf("attempt %d: stale lock not reclaimed", i)
		}
		if err := l.Release(100); err != nil {
			t.Fatal(err)
		}
	}
}

func TestMalformedPidFileReclaimed(t *testing.T) {
	l := NewLock(t.TempDir(), KindLong, aliveProbe)
	if err := os.WriteFile(l.Path(), []byte("not a pid"), 0644); err != nil {
		t.Fatal(err)
	}
	acquired, _, err := l.Acquire(100)
	if err != nil {
		t.Fatal(err)
	}
	if !acquired {
		t.Fatal("malformed pid file should be treated as stale")
	}
}

func TestReleaseIgnoresForeignHolder(t *testing.T) {
	l := NewLock(t.TempDir(), KindListen, aliveProbe)
	if _, _, err := l.Acquire(100); err != nil {
		t.Fatal(err)
	}

	if err := l.Release(999); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(l.Path()); err != nil {
		t.Fatal("release with the wrong pid must not remove the file")
	}

	if err := l.Release(100); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(l.Path()); !os.IsNotExist(err) {
		t.Fatal("release by the holder should remove the file")
	}
}

func TestReleaseMissingFileIsNoop(t *testing.T) {
	l := NewLock(t.TempDir(), KindListen, aliveProbe)
	if err := l.Release(100); err != nil {
		t.Fatal(err)
	}
}

func TestConcurrentAcquireExactlyOneWins(t *testing.T) {
	dir := t.TempDir()

	const contenders = 8
	var wg sync.WaitGroup
	wins := make(chan int, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(pid int) {
			defer wg.Done()
			l := NewLock(dir, KindListen, aliveProbe)
			acquired, _, err := l.Acquire(pid)
			if err != nil {
				t.Error(err)
				return
			}
			if acquired {
				wins <- pid
			}
		}(1000 + i)
	}
	wg.Wait()
	close(wins)

	var winners []int
	for pid := range wins {
		winners = append(winners, pid)
	}
	if len(winners) != 1 {
		t.Fatalf("%d contenders acquired the lock, want exactly 1 (winners: %v)", len(winners), winners)
	}
}

func TestKindsAreIndependent(t *testing.T) {
	dir := t.TempDir()
	listen := NewLock(dir, KindListen, aliveProbe)
	long := NewLock(dir, KindLong, aliveProbe)

	if acquired, _, _ := listen.Acquire(100); !acquired {
		t.Fatal("listen acquire failed")
	}
	if acquired, _, _ := long.Acquire(200); !acquired {
		t.Fatal("long acquire should not be blocked by the listen lock")
	}
}

func TestLockPathPerKind(t *testing.T) {
	dir := t.TempDir()
	l := NewLock(dir, KindLong, nil)
	if got, want := l.Path(), filepath.Join(dir, "long.pid"); got != want {
		t.Fatalf("path = %q, want %q", got, want)
	}
}
