package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SilenceThreshold != 200 {
		t.Errorf("silence_threshold = %.1f, want 200", cfg.SilenceThreshold)
	}
	if cfg.SilenceDuration != Duration(3*time.Second) {
		t.Errorf("silence_duration = %v, want 3s", cfg.SilenceDuration)
	}
	if !cfg.SaveTranscripts {
		t.Error("save_transcripts should default to true")
	}
}

func TestLoadOverlaysFileValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "silence_threshold: 340.5\nsilence_duration: 2s\nencoding: flac\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SilenceThreshold != 340.5 {
		t.Errorf("silence_threshold = %.1f, want 340.5", cfg.SilenceThreshold)
	}
	if cfg.SilenceDuration != Duration(2*time.Second) {
		t.Errorf("silence_duration = %v, want 2s", cfg.SilenceDuration)
	}
	if cfg.Encoding != "flac" {
		t.Errorf("encoding = %q, want flac", cfg.Encoding)
	}
	// untouched fields keep defaults
	if cfg.MaxRecordingTime != Duration(30*time.Second) {
		t.Errorf("max_recording_duration = %v, want 30s", cfg.MaxRecordingTime)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("silence_treshold: 100\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for misspelled key")
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.SilenceThreshold = -1
	cfg.SilenceDuration = 0
	cfg.Encoding = "opus"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
	msg := err.Error()
	for _, want := range []string{"silence_threshold", "silence_duration", "encoding"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q missing %q", msg, want)
		}
	}
}

func TestValidateNoSpeechShorterThanSilence(t *testing.T) {
	cfg := Default()
	cfg.NoSpeechTimeout = Duration(time.Second)
	cfg.SilenceDuration = Duration(3 * time.Second)
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when no_speech_timeout < silence_duration")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	cfg := Default()
	cfg.SilenceThreshold = 412
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.SilenceThreshold != 412 {
		t.Errorf("silence_threshold = %.1f, want 412", got.SilenceThreshold)
	}
}

func TestSaveRejectsInvalid(t *testing.T) {
	cfg := Default()
	cfg.ServerURL = ""
	if err := Save(filepath.Join(t.TempDir(), "config.yaml"), cfg); err == nil {
		t.Fatal("expected error saving invalid config")
	}
}
