package audio

// Capture format shared by every backend. The transcription server and the
// VAD both assume 16 kHz mono PCM16, so there is no reason to make these
// configurable per device.
const (
	SampleRate     = 16000
	Channels       = 1
	BytesPerSample = 2
)

type DataCallback func(data []byte, frameCount uint32)

type CaptureConfig struct {
	SampleRate uint32
	Channels   uint32
}

type DeviceInfo struct {
	ID   string // opaque platform-specific identifier
	Name string
}

type Context interface {
	Devices() ([]DeviceInfo, error)
	NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error)
	Close()
}

type CaptureDevice interface {
	Start() error
	Stop()
	Close()
	SetCallback(cb DataCallback)
	ClearCallback()
	DeviceName() string
}

// ErrorReporter is implemented by capture backends that can surface a stream
// failure after Start has returned.
type ErrorReporter interface {
	SetErrorCallback(cb func(error))
}
