package output

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileSink appends each utterance to a per-day transcript file, one
// timestamped line per utterance.
type FileSink struct {
	dir string
	now func() time.Time
}

func NewFileSink(dir string) *FileSink {
	return &FileSink{dir: dir, now: time.Now}
}

func (s *FileSink) Emit(text string) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create transcript dir: %w", err)
	}

	t := s.now()
	path := filepath.Join(s.dir, t.Format("2006-01-02")+".txt")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open transcript file: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "%s\t%s\n", t.Format("15:04:05"), text); err != nil {
		return fmt.Errorf("append transcript: %w", err)
	}
	return nil
}

// SessionFileSink collects one long dictation session into a single file
// named after the session's start time, one line per utterance.
type SessionFileSink struct {
	path string
}

func NewSessionFileSink(dir string) *SessionFileSink {
	name := time.Now().Format("20060102_150405") + "_long.txt"
	return &SessionFileSink{path: filepath.Join(dir, name)}
}

func (s *SessionFileSink) Path() string { return s.path }

func (s *SessionFileSink) Emit(text string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create transcript dir: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open session transcript: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintln(f, text); err != nil {
		return fmt.Errorf("append session transcript: %w", err)
	}
	return nil
}
