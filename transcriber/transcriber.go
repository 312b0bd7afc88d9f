// Package transcriber delivers finalized utterances to the local model
// server and returns the recognized text.
package transcriber

import (
	"context"
	"errors"
)

// ErrUnavailable means the server could not be reached at all. The
// utterance is lost; stale audio is not worth retrying once the speaker has
// moved on.
var ErrUnavailable = errors.New("transcription server unavailable")

// ErrTimeout means the server accepted the request but did not answer in
// time. Reported separately from ErrUnavailable so the user can tell a down
// server from an overloaded one.
var ErrTimeout = errors.New("transcription timed out")

type Request struct {
	Audio      []byte
	SampleRate int
	Encoding   string // "pcm16" or "flac"
}

type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type Result struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments,omitempty"`
}

type Client interface {
	Name() string
	Transcribe(ctx context.Context, req Request) (Result, error)
}
