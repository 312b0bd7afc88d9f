package output

import (
	"fmt"
	"time"

	cb "github.com/atotto/clipboard"
)

// Typer injects text into the focused window by staging it on the clipboard
// and sending the platform paste chord, then restoring whatever the
// clipboard held before. Much faster than simulating one keystroke per
// character, and it survives non-ASCII text.
type Typer struct{}

func (t *Typer) Emit(text string) error {
	previous, prevErr := cb.ReadAll()

	if err := cb.WriteAll(text); err != nil {
		return fmt.Errorf("staging text on clipboard: %w", err)
	}
	if err := sendPasteChord(); err != nil {
		return fmt.Errorf("sending paste chord: %w", err)
	}

	// The paste is asynchronous in the target app; restoring too early
	// pastes the old clipboard instead.
	time.Sleep(150 * time.Millisecond)
	if prevErr == nil && previous != "" {
		cb.WriteAll(previous)
	}
	return nil
}
