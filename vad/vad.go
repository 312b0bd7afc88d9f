// Package vad turns a continuous stream of PCM16 frames into discrete
// utterance segments using an energy threshold against a calibrated noise
// floor. The detector is a plain state machine owned by one capture loop;
// it is not safe for concurrent use and does not need to be.
package vad

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

type State int

const (
	Idle State = iota
	Speaking
	TrailingSilence
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Speaking:
		return "speaking"
	case TrailingSilence:
		return "trailing-silence"
	}
	return "unknown"
}

type EventKind int

const (
	// Continue means the frame was absorbed and no segment boundary was hit.
	Continue EventKind = iota
	// UtteranceReady carries a finalized segment: pre-roll plus everything
	// collected up to the silence timeout or the max-duration cutoff.
	UtteranceReady
	// TimedOut fires when no speech was ever detected within the no-speech
	// window. The caller reports it and ends the session; it is not an error.
	TimedOut
)

type Event struct {
	Kind      EventKind
	Utterance []byte // PCM16, set only for UtteranceReady
}

type Config struct {
	Threshold      float64 // RMS energy; a frame exactly at threshold counts as speech
	FrameDuration  time.Duration
	PreRoll        time.Duration
	SilenceTimeout time.Duration
	MaxUtterance   time.Duration
	// NoSpeechTimeout bounds how long the detector idles before giving up.
	// Zero disables the timeout (long dictation sessions run indefinitely).
	NoSpeechTimeout time.Duration
	// TrimTrailingSilence drops the final silence run from the utterance
	// before it is handed to transcription.
	TrimTrailingSilence bool
}

// Detector is the speech/silence state machine. Feed frames in capture
// order; every call returns exactly one event.
type Detector struct {
	cfg Config

	preRollFrames  int
	silenceFrames  int
	maxFrames      int
	noSpeechFrames int

	state     State
	preRoll   *ring
	utterance []byte

	utteranceFrames int
	silenceRun      int
	speechLen       int // utterance length before the current silence run
	idleFrames      int
	everSpoke       bool
	timedOut        bool
}

func Open(cfg Config) (*Detector, error) {
	if cfg.Threshold <= 0 {
		return nil, fmt.Errorf("threshold must be positive, got %.1f", cfg.Threshold)
	}
	if cfg.FrameDuration <= 0 {
		return nil, fmt.Errorf("frame duration must be positive, got %v", cfg.FrameDuration)
	}
	if cfg.SilenceTimeout < cfg.FrameDuration {
		return nil, fmt.Errorf("silence timeout %v shorter than one frame %v", cfg.SilenceTimeout, cfg.FrameDuration)
	}
	if cfg.MaxUtterance <= 0 {
		return nil, fmt.Errorf("max utterance duration must be positive, got %v", cfg.MaxUtterance)
	}

	d := &Detector{
		cfg:           cfg,
		preRollFrames: int(cfg.PreRoll / cfg.FrameDuration),
		silenceFrames: int(cfg.SilenceTimeout / cfg.FrameDuration),
		maxFrames:     int(cfg.MaxUtterance / cfg.FrameDuration),
	}
	if cfg.NoSpeechTimeout > 0 {
		d.noSpeechFrames = int(cfg.NoSpeechTimeout / cfg.FrameDuration)
	}
	d.preRoll = newRing(d.preRollFrames)
	return d, nil
}

func (d *Detector) State() State { return d.state }

// Feed consumes one frame. Frames must arrive in capture order and all be
// the same size the capture session produces.
func (d *Detector) Feed(frame []byte) Event {
	speech := Energy(frame) >= d.cfg.Threshold

	switch d.state {
	case Idle:
		if speech {
			d.beginUtterance(frame)
			return d.checkMaxDuration()
		}
		d.preRoll.push(frame)
		d.idleFrames++
		if d.noSpeechFrames > 0 && !d.everSpoke && !d.timedOut && d.idleFrames >= d.noSpeechFrames {
			d.timedOut = true
			return Event{Kind: TimedOut}
		}
		return Event{Kind: Continue}

	case Speaking:
		d.append(frame)
		if !speech {
			d.state = TrailingSilence
			d.silenceRun = 1
			d.speechLen = len(d.utterance) - len(frame)
		}
		return d.checkMaxDuration()

	case TrailingSilence:
		d.append(frame)
		if speech {
			d.state = Speaking
			d.silenceRun = 0
			return d.checkMaxDuration()
		}
		d.silenceRun++
		if d.silenceRun >= d.silenceFrames {
			return Event{Kind: UtteranceReady, Utterance: d.finalize()}
		}
		return d.checkMaxDuration()
	}

	return Event{Kind: Continue}
}

// Flush finalizes whatever is in progress, for graceful stops where the
// buffered audio should be transcribed rather than thrown away. Returns
// false when nothing was being collected.
func (d *Detector) Flush() ([]byte, bool) {
	if d.state == Idle {
		return nil, false
	}
	return d.finalize(), true
}

func (d *Detector) beginUtterance(frame []byte) {
	d.state = Speaking
	d.everSpoke = true
	d.utterance = d.preRoll.bytes()
	d.append(frame)
}

func (d *Detector) append(frame []byte) {
	d.utterance = append(d.utterance, frame...)
	d.utteranceFrames++
}

func (d *Detector) checkMaxDuration() Event {
	if d.utteranceFrames >= d.maxFrames {
		return Event{Kind: UtteranceReady, Utterance: d.finalize()}
	}
	return Event{Kind: Continue}
}

func (d *Detector) finalize() []byte {
	u := d.utterance
	if d.cfg.TrimTrailingSilence && d.state == TrailingSilence {
		u = u[:d.speechLen]
	}

	d.state = Idle
	d.preRoll = newRing(d.preRollFrames)
	d.utterance = nil
	d.utteranceFrames = 0
	d.silenceRun = 0
	d.speechLen = 0
	d.idleFrames = 0
	return u
}

// Energy returns the RMS amplitude of a little-endian PCM16 frame on the
// raw sample scale (0..32767). An empty frame has zero energy.
func Energy(frame []byte) float64 {
	n := len(frame) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		s := float64(int16(binary.LittleEndian.Uint16(frame[i*2:])))
		sum += s * s
	}
	return math.Sqrt(sum / float64(n))
}

// ring holds the most recent n frames of pre-speech audio. A zero-capacity
// ring stores nothing, for sessions configured without pre-roll.
type ring struct {
	frames [][]byte
	next   int
	full   bool
}

func newRing(n int) *ring {
	return &ring{frames: make([][]byte, n)}
}

func (r *ring) push(frame []byte) {
	if len(r.frames) == 0 {
		return
	}
	cp := make([]byte, len(frame))
	copy(cp, frame)
	r.frames[r.next] = cp
	r.next++
	if r.next == len(r.frames) {
		r.next = 0
		r.full = true
	}
}

// bytes returns the buffered frames oldest-first, concatenated.
func (r *ring) bytes() []byte {
	var out []byte
	if r.full {
		for i := r.next; i < len(r.frames); i++ {
			out = append(out, r.frames[i]...)
		}
	}
	for i := 0; i < r.next; i++ {
		out = append(out, r.frames[i]...)
	}
	return out
}
