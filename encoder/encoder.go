// Package encoder prepares a finalized utterance's PCM audio for transport.
// The transcription server accepts raw PCM16 or FLAC; FLAC roughly halves
// the payload at the cost of a little CPU per utterance.
package encoder

import "fmt"

const (
	SampleRate    = 16000
	Channels      = 1
	BitsPerSample = 16
	BlockSize     = 4096
)

type Encoder interface {
	// Encode transforms a complete little-endian PCM16 utterance into the
	// wire payload. Safe to call once per utterance; encoders are stateless
	// between calls.
	Encode(pcm []byte) ([]byte, error)
	// Name is the encoding label sent to the server.
	Name() string
}

func New(name string) (Encoder, error) {
	switch name {
	case "pcm16":
		return pcmEncoder{}, nil
	case "flac":
		return flacEncoder{}, nil
	}
	return nil, fmt.Errorf("unknown encoding %q", name)
}

type pcmEncoder struct{}

func (pcmEncoder) Encode(pcm []byte) ([]byte, error) { return pcm, nil }
func (pcmEncoder) Name() string                      { return "pcm16" }
