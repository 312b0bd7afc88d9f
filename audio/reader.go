package audio

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrCaptureFailed wraps any capture backend failure. Device errors are fatal
// to the session that hit them; there is no retry at this layer.
var ErrCaptureFailed = errors.New("audio capture failed")

// FrameReader adapts a callback-driven CaptureDevice into a pull-based frame
// stream of fixed-size PCM16 frames. One reader owns one capture session;
// Close always releases the device, on every exit path.
type FrameReader struct {
	capture    CaptureDevice
	frameBytes int

	mu      sync.Mutex
	pending []byte

	frames chan []byte
	errCh  chan error

	closeOnce sync.Once
	overruns  int
}

// NewFrameReader wires the reader to capture and starts the device. Each
// frame returned by Next holds exactly frameSamples mono PCM16 samples.
func NewFrameReader(capture CaptureDevice, frameSamples int) (*FrameReader, error) {
	r := &FrameReader{
		capture:    capture,
		frameBytes: frameSamples * BytesPerSample,
		frames:     make(chan []byte, 64),
		errCh:      make(chan error, 1),
	}
	capture.SetCallback(r.push)
	if er, ok := capture.(ErrorReporter); ok {
		er.SetErrorCallback(r.fail)
	}
	if err := capture.Start(); err != nil {
		capture.ClearCallback()
		return nil, errors.Join(ErrCaptureFailed, err)
	}
	return r, nil
}

func (r *FrameReader) push(data []byte, _ uint32) {
	r.mu.Lock()
	r.pending = append(r.pending, data...)
	var full [][]byte
	for len(r.pending) >= r.frameBytes {
		frame := make([]byte, r.frameBytes)
		copy(frame, r.pending[:r.frameBytes])
		r.pending = r.pending[r.frameBytes:]
		full = append(full, frame)
	}
	r.mu.Unlock()

	for _, frame := range full {
		select {
		case r.frames <- frame:
		default:
			// Consumer fell behind the hardware cadence; drop rather than
			// block the audio thread.
			r.mu.Lock()
			r.overruns++
			r.mu.Unlock()
		}
	}
}

func (r *FrameReader) fail(err error) {
	select {
	case r.errCh <- errors.Join(ErrCaptureFailed, err):
	default:
	}
}

// Next blocks until a full frame is available, the stream fails, or ctx is
// done. Cancellation is how a session stops pulling frames.
func (r *FrameReader) Next(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case err := <-r.errCh:
		return nil, err
	case frame := <-r.frames:
		return frame, nil
	}
}

// Overruns reports how many frames were dropped because the consumer lagged.
func (r *FrameReader) Overruns() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.overruns
}

// FrameDuration returns the wall-clock duration of one frame.
func (r *FrameReader) FrameDuration() time.Duration {
	samples := r.frameBytes / BytesPerSample
	return time.Duration(samples) * time.Second / time.Duration(SampleRate)
}

// Close stops the device and detaches the callback. Safe to call more than
// once and after Next returned an error.
func (r *FrameReader) Close() {
	r.closeOnce.Do(func() {
		r.capture.Stop()
		r.capture.ClearCallback()
	})
}
