package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"talkat/audio"
	"talkat/config"
	"talkat/encoder"
	"talkat/log"
	"talkat/output"
	"talkat/transcriber"
	"talkat/vad"
)

const frameSamples = 320 // 20ms at 16kHz

// Runner owns one capture session: pull frames, segment them, transcribe
// each utterance, hand the text to the sink, in strict capture order.
type Runner struct {
	Config  config.Config
	Capture audio.CaptureDevice
	Client  transcriber.Client
	Encoder encoder.Encoder
	Sink    output.Sink

	// Urgent is set when the second, impatient stop signal arrives: skip
	// finalizing the in-flight utterance and just get out.
	Urgent atomic.Bool

	// Utterances counts segments successfully transcribed this session.
	Utterances int
}

// Listen runs a short session: capture until the first utterance finalizes
// (or the no-speech window expires), transcribe it, emit it, done.
func (r *Runner) Listen(ctx context.Context) error {
	_, err := r.run(ctx, false)
	return err
}

// Dictate runs a continuous session until ctx is canceled. Transcription
// failures drop that one utterance and keep listening. Returns everything
// recognized, in order.
func (r *Runner) Dictate(ctx context.Context) (string, error) {
	texts, err := r.run(ctx, true)
	return strings.Join(texts, " "), err
}

func (r *Runner) run(ctx context.Context, continuous bool) ([]string, error) {
	reader, err := audio.NewFrameReader(r.Capture, frameSamples)
	if err != nil {
		return nil, err
	}
	defer func() {
		reader.Close()
		if n := reader.Overruns(); n > 0 {
			log.Warnf("%d frames dropped to overruns", n)
		}
	}()

	det, err := vad.Open(r.vadConfig(continuous))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalid, err)
	}

	var texts []string
	emit := func(utterance []byte) error {
		text, err := r.transcribe(utterance)
		if err != nil {
			if continuous {
				log.Warnf("utterance dropped: %v", err)
				return nil
			}
			return err
		}
		r.Utterances++
		if text == "" {
			return nil
		}
		texts = append(texts, text)
		if r.Sink != nil {
			if err := r.Sink.Emit(text); err != nil {
				log.Warnf("output sink: %v", err)
			}
		}
		return nil
	}

	for {
		frame, err := reader.Next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				// Graceful stop: whatever is buffered counts as a complete
				// utterance, unless the urgent path was taken.
				if !r.Urgent.Load() {
					if utterance, ok := det.Flush(); ok {
						if eerr := emit(utterance); eerr != nil {
							return texts, eerr
						}
					}
				}
				return texts, nil
			}
			return texts, err
		}

		switch ev := det.Feed(frame); ev.Kind {
		case vad.UtteranceReady:
			if err := emit(ev.Utterance); err != nil {
				return texts, err
			}
			if !continuous {
				return texts, nil
			}
		case vad.TimedOut:
			log.Info("no speech detected")
			return texts, ErrNoSpeech
		}
	}
}

// ErrNoSpeech means the short session's no-speech window expired before any
// utterance started. Reported to the user, but the session ends cleanly.
var ErrNoSpeech = errors.New("no speech detected")

func (r *Runner) vadConfig(continuous bool) vad.Config {
	cfg := vad.Config{
		Threshold:           r.Config.SilenceThreshold,
		FrameDuration:       20 * time.Millisecond,
		PreRoll:             time.Duration(r.Config.PreSpeechPadding),
		SilenceTimeout:      time.Duration(r.Config.SilenceDuration),
		MaxUtterance:        time.Duration(r.Config.MaxRecordingTime),
		NoSpeechTimeout:     time.Duration(r.Config.NoSpeechTimeout),
		TrimTrailingSilence: r.Config.TrimTrailingSilence,
	}
	if continuous {
		// Long dictation waits for speech indefinitely and allows much
		// longer stretches per utterance.
		cfg.NoSpeechTimeout = 0
		cfg.MaxUtterance = time.Duration(r.Config.LongModeMaxTime)
	}
	return cfg
}

// transcribe runs outside the session context on purpose: a gracefully
// stopped session still wants its final utterance transcribed.
func (r *Runner) transcribe(utterance []byte) (string, error) {
	payload, err := r.Encoder.Encode(utterance)
	if err != nil {
		return "", fmt.Errorf("encoding utterance: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.Config.HTTPTimeout))
	defer cancel()

	start := time.Now()
	res, err := r.Client.Transcribe(ctx, transcriber.Request{
		Audio:      payload,
		SampleRate: audio.SampleRate,
		Encoding:   r.Encoder.Name(),
	})
	if err != nil {
		return "", err
	}

	frames := len(utterance) / (frameSamples * audio.BytesPerSample)
	audioS := float64(len(utterance)) / float64(audio.SampleRate*audio.BytesPerSample)
	log.Utterance(audioS, frames, float64(time.Since(start).Milliseconds()), r.Client.Name())
	if res.Text != "" {
		log.TranscriptionText(res.Text)
	}
	return res.Text, nil
}
