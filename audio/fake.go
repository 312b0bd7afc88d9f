package audio

import (
	"sync"
	"time"
)

// FakeContext hands out FakeCapture devices fed from an in-memory script.
// Used by the vad and session tests so no sound hardware is needed.
type FakeContext struct {
	Script   [][]byte
	FailWith error
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) { return nil, nil }
func (f *FakeContext) Close()                         {}

func (f *FakeContext) NewCapture(_ *DeviceInfo, _ CaptureConfig) (CaptureDevice, error) {
	return &FakeCapture{Script: f.Script, FailWith: f.FailWith}, nil
}

// FakeCapture replays Script through the data callback as fast as the
// consumer drains it, then feeds silence until Stop. If FailWith is set the
// error callback fires after the script instead of the silence loop.
type FakeCapture struct {
	Script   [][]byte
	FailWith error

	mu    sync.Mutex
	cb    DataCallback
	onErr func(error)

	stopCh   chan struct{}
	feedDone chan struct{}
}

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

func (f *FakeCapture) SetErrorCallback(cb func(error)) {
	f.mu.Lock()
	f.onErr = cb
	f.mu.Unlock()
}

func (f *FakeCapture) DeviceName() string { return "fake" }

func (f *FakeCapture) callback() DataCallback {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cb
}

func (f *FakeCapture) Start() error {
	f.stopCh = make(chan struct{})
	f.feedDone = make(chan struct{})

	go func() {
		defer close(f.feedDone)

		for _, chunk := range f.Script {
			select {
			case <-f.stopCh:
				return
			default:
			}
			if cb := f.callback(); cb != nil {
				cb(chunk, uint32(len(chunk)/BytesPerSample))
			}
		}

		if f.FailWith != nil {
			f.mu.Lock()
			onErr := f.onErr
			f.mu.Unlock()
			if onErr != nil {
				onErr(f.FailWith)
			}
			return
		}

		silence := make([]byte, 320*BytesPerSample)
		for {
			select {
			case <-f.stopCh:
				return
			case <-time.After(time.Millisecond):
			}
			if cb := f.callback(); cb != nil {
				cb(silence, 320)
			}
		}
	}()

	return nil
}

func (f *FakeCapture) Stop() {
	if f.stopCh == nil {
		return
	}
	select {
	case <-f.stopCh:
	default:
		close(f.stopCh)
	}
	<-f.feedDone
}

func (f *FakeCapture) Close() { f.Stop() }
