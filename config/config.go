package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from either a Go duration
// string ("3s", "300ms") or a bare number of seconds, which is what older
// config files contain.
type Duration time.Duration

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		dur, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(dur)
		return nil
	}
	var secs float64
	if err := value.Decode(&secs); err != nil {
		return fmt.Errorf("invalid duration value %q", value.Value)
	}
	*d = Duration(time.Duration(secs * float64(time.Second)))
	return nil
}

// Config holds every tunable the capture pipeline and session controller
// consume. Values are resolved as code defaults overlaid by the YAML config
// file; the calibrate command persists its result back through Save.
type Config struct {
	// Voice activity detection
	SilenceThreshold    float64  `yaml:"silence_threshold"`
	SilenceDuration     Duration `yaml:"silence_duration"`
	PreSpeechPadding    Duration `yaml:"pre_speech_padding"`
	NoSpeechTimeout     Duration `yaml:"no_speech_timeout"`
	MaxRecordingTime    Duration `yaml:"max_recording_duration"`
	LongModeMaxTime     Duration `yaml:"long_mode_max_duration"`
	TrimTrailingSilence bool     `yaml:"trim_trailing_silence"`

	// Calibration bounds
	ThresholdMin      float64 `yaml:"silence_threshold_min"`
	ThresholdMax      float64 `yaml:"silence_threshold_max"`
	ThresholdFallback float64 `yaml:"silence_threshold_fallback"`

	// Transcription service
	ServerURL   string   `yaml:"server_url"`
	HTTPTimeout Duration `yaml:"http_timeout"`
	Encoding    string   `yaml:"encoding"` // "pcm16" or "flac"

	// Session controller
	RuntimeDir  string   `yaml:"runtime_dir"`
	StopTimeout Duration `yaml:"process_stop_timeout"`

	// Output
	TranscriptDir   string `yaml:"transcript_dir"`
	SaveTranscripts bool   `yaml:"save_transcripts"`
	ClipboardOnLong bool   `yaml:"clipboard_on_long"`

	// Audio device ("" = system default)
	Device string `yaml:"device"`
}

// Default returns the code defaults. Paths are resolved lazily so a missing
// home directory only fails commands that actually touch those paths.
func Default() Config {
	return Config{
		SilenceThreshold:  200,
		SilenceDuration:   Duration(3 * time.Second),
		PreSpeechPadding:  Duration(300 * time.Millisecond),
		NoSpeechTimeout:   Duration(30 * time.Second),
		MaxRecordingTime:  Duration(30 * time.Second),
		LongModeMaxTime:   Duration(10 * time.Minute),
		ThresholdMin:      50,
		ThresholdMax:      5000,
		ThresholdFallback: 500,
		ServerURL:         "http://127.0.0.1:5555",
		HTTPTimeout:       Duration(120 * time.Second),
		Encoding:          "pcm16",
		RuntimeDir:        defaultRuntimeDir(),
		StopTimeout:       Duration(5 * time.Second),
		TranscriptDir:     defaultTranscriptDir(),
		SaveTranscripts:   true,
		ClipboardOnLong:   true,
	}
}

// DefaultPath returns the config file location, honoring XDG_CONFIG_HOME.
func DefaultPath() string {
	if env := os.Getenv("TALKAT_CONFIG"); env != "" {
		return env
	}
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml"
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "talkat", "config.yaml")
}

func defaultRuntimeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "talkat")
	}
	return filepath.Join(home, ".cache", "talkat")
}

func defaultTranscriptDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "talkat", "transcripts")
	}
	return filepath.Join(home, ".local", "share", "talkat", "transcripts")
}

// Load reads the YAML config at path overlaid on the code defaults. A missing
// file is not an error; a malformed or invalid one is.
func Load(path string) (Config, error) {
	cfg := Default()
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err = loadFromReader(f, cfg)
	if err != nil {
		return cfg, fmt.Errorf("config: %q: %w", path, err)
	}
	return cfg, nil
}

func loadFromReader(r io.Reader, cfg Config) (Config, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return cfg, cfg.Validate()
		}
		return cfg, fmt.Errorf("decode yaml: %w", err)
	}
	return cfg, cfg.Validate()
}

// ErrInvalid tags every configuration validation failure, so callers can
// tell a bad config from an I/O problem.
var ErrInvalid = errors.New("invalid configuration")

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error listing every failure found; malformed values are rejected
// outright rather than clamped to a default.
func (c Config) Validate() error {
	var errs []error

	if c.SilenceThreshold < 0 {
		errs = append(errs, fmt.Errorf("silence_threshold %.1f must not be negative", c.SilenceThreshold))
	}
	if c.SilenceDuration <= 0 {
		errs = append(errs, fmt.Errorf("silence_duration %v must be positive", c.SilenceDuration))
	}
	if c.PreSpeechPadding < 0 {
		errs = append(errs, fmt.Errorf("pre_speech_padding %v must not be negative", c.PreSpeechPadding))
	}
	if c.MaxRecordingTime <= 0 {
		errs = append(errs, fmt.Errorf("max_recording_duration %v must be positive", c.MaxRecordingTime))
	}
	if c.LongModeMaxTime <= 0 {
		errs = append(errs, fmt.Errorf("long_mode_max_duration %v must be positive", c.LongModeMaxTime))
	}
	if c.NoSpeechTimeout <= 0 {
		errs = append(errs, fmt.Errorf("no_speech_timeout %v must be positive", c.NoSpeechTimeout))
	}
	if c.NoSpeechTimeout < c.SilenceDuration {
		errs = append(errs, fmt.Errorf("no_speech_timeout %v must not be shorter than silence_duration %v", c.NoSpeechTimeout, c.SilenceDuration))
	}
	if c.ThresholdMin < 0 || c.ThresholdMax <= 0 || c.ThresholdMin > c.ThresholdMax {
		errs = append(errs, fmt.Errorf("silence_threshold_min %.1f / silence_threshold_max %.1f form an invalid range", c.ThresholdMin, c.ThresholdMax))
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, fmt.Errorf("http_timeout %v must be positive", c.HTTPTimeout))
	}
	if c.StopTimeout <= 0 {
		errs = append(errs, fmt.Errorf("process_stop_timeout %v must be positive", c.StopTimeout))
	}
	if c.ServerURL == "" {
		errs = append(errs, errors.New("server_url is required"))
	}
	switch c.Encoding {
	case "pcm16", "flac":
	default:
		errs = append(errs, fmt.Errorf("encoding %q is invalid; valid values: pcm16, flac", c.Encoding))
	}

	if len(errs) == 0 {
		return nil
	}
	return errors.Join(append([]error{ErrInvalid}, errs...)...)
}

// Save writes cfg to path, creating parent directories. Used by calibrate to
// persist the measured threshold.
func Save(path string, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("config: create dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("config: write: %w", err)
	}
	return os.Rename(tmp, path)
}
