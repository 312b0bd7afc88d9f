// Package output routes recognized text to its destination: the focused
// window, the clipboard, or a transcript file. Sinks are applied in
// utterance order by the session runner; none of them reorder.
package output

import "fmt"

type Mode string

const (
	ModeType      Mode = "type"
	ModeClipboard Mode = "clipboard"
	ModeFile      Mode = "file"
)

type Sink interface {
	Emit(text string) error
}

// NewSink builds the sink for a mode. dir is only used by ModeFile.
func NewSink(mode Mode, dir string) (Sink, error) {
	switch mode {
	case ModeType:
		return &Typer{}, nil
	case ModeClipboard:
		return clipboardSink{}, nil
	case ModeFile:
		return NewFileSink(dir), nil
	}
	return nil, fmt.Errorf("unknown output mode %q", mode)
}

// Multi fans one utterance out to several sinks. The first failure is
// returned but later sinks still run; a broken clipboard should not stop
// the transcript file.
type Multi []Sink

func (m Multi) Emit(text string) error {
	var first error
	for _, s := range m {
		if err := s.Emit(text); err != nil && first == nil {
			first = err
		}
	}
	return first
}
