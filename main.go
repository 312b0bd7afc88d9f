package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"talkat/audio"
	"talkat/config"
	"talkat/encoder"
	"talkat/log"
	"talkat/notify"
	"talkat/output"
	"talkat/session"
	"talkat/transcriber"
)

var version = "dev"

func usage() {
	fmt.Fprintf(os.Stderr, `talkat - local voice dictation

Usage: talkat [flags] <command>

Commands:
  listen       toggle a short dictation: record one utterance, type it out
  long         run a continuous dictation session in the foreground
  start-long   start a continuous session in the background
  stop-long    stop the background session
  toggle-long  start or stop the background session
  calibrate    measure ambient noise and save the speech threshold
  devices      pick the microphone to use

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	configFlag := flag.String("config", "", "Config file path (default: XDG config dir)")
	deviceFlag := flag.String("device", "", "Use named microphone device")
	thresholdFlag := flag.Float64("threshold", 0, "Override the calibrated energy threshold")
	logPathFlag := flag.String("logpath", "", "Log directory override")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	flag.Usage = usage
	flag.Parse()

	if *versionFlag {
		fmt.Println("talkat " + version)
		return
	}

	logDir, err := log.ResolveDir(*logPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "resolving log dir: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logDir)
	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "initializing logs: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	configPath := *configFlag
	if configPath == "" {
		configPath = config.DefaultPath()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *deviceFlag != "" {
		cfg.Device = *deviceFlag
	}
	if *thresholdFlag > 0 {
		cfg.SilenceThreshold = *thresholdFlag
	}

	cmd := "listen"
	if flag.NArg() > 0 {
		cmd = flag.Arg(0)
	}

	if err := dispatch(cmd, cfg, configPath); err != nil {
		log.Errorf("%s: %v", cmd, err)
		fmt.Fprintf(os.Stderr, "talkat %s: %v\n", cmd, err)
		os.Exit(1)
	}
}

func dispatch(cmd string, cfg config.Config, configPath string) error {
	switch cmd {
	case "listen":
		return runToggleSession(cfg, session.KindListen, false)
	case "long":
		return runToggleSession(cfg, session.KindLong, true)
	case "start-long":
		return longController(cfg).StartBackground(longWorkerArgv())
	case "stop-long":
		return longController(cfg).StopBackground()
	case "toggle-long":
		outcome, err := longController(cfg).ToggleBackground(longWorkerArgv())
		if err == nil {
			fmt.Println("long dictation " + outcome.String())
		}
		return err
	case "calibrate":
		audioCtx, device, err := openAudio(cfg)
		if err != nil {
			return err
		}
		defer audioCtx.Close()
		return runCalibrate(cfg, configPath, device, audioCtx)
	case "devices":
		return runDevicePicker(cfg, configPath)
	default:
		usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func longController(cfg config.Config) *session.Controller {
	return session.NewController(cfg.RuntimeDir, session.KindLong, time.Duration(cfg.StopTimeout))
}

// longWorkerArgv is the command the background spawn runs: this same binary
// in foreground long mode.
func longWorkerArgv() []string {
	exe, err := os.Executable()
	if err != nil {
		exe = "talkat"
	}
	return []string{exe, "long"}
}

func openAudio(cfg config.Config) (audio.Context, *audio.DeviceInfo, error) {
	audioCtx, err := audio.NewContext()
	if err != nil {
		return nil, nil, fmt.Errorf("opening audio backend: %w", err)
	}
	device, err := resolveDevice(audioCtx, cfg.Device)
	if err != nil {
		audioCtx.Close()
		return nil, nil, err
	}
	return audioCtx, device, nil
}

// runToggleSession is the heart of the toggle model: take the session lock
// and record, or tell the live holder to stop.
func runToggleSession(cfg config.Config, kind session.Kind, continuous bool) error {
	ctrl := session.NewController(cfg.RuntimeDir, kind, time.Duration(cfg.StopTimeout))
	outcome, err := ctrl.Toggle()
	if err != nil {
		return err
	}
	if outcome == session.Stopped {
		fmt.Println("stopping active session")
		return nil
	}
	defer func() {
		if err := ctrl.Release(); err != nil {
			log.Warnf("releasing session lock: %v", err)
		}
	}()

	if cfg.SilenceThreshold == 0 {
		// Never calibrated; better to run on the fallback than refuse.
		log.Infof("no calibrated threshold, using fallback %.0f (run 'talkat calibrate')", cfg.ThresholdFallback)
		cfg.SilenceThreshold = cfg.ThresholdFallback
	}

	audioCtx, device, err := openAudio(cfg)
	if err != nil {
		return err
	}
	defer audioCtx.Close()

	capture, err := audioCtx.NewCapture(device, audio.CaptureConfig{
		SampleRate: audio.SampleRate,
		Channels:   audio.Channels,
	})
	if err != nil {
		return fmt.Errorf("opening capture device: %w", err)
	}
	defer capture.Close()

	enc, err := encoder.New(cfg.Encoding)
	if err != nil {
		return err
	}

	sink := output.Multi{&output.Typer{}}
	if cfg.SaveTranscripts {
		if continuous {
			sink = append(sink, output.NewSessionFileSink(cfg.TranscriptDir))
		} else {
			sink = append(sink, output.NewFileSink(cfg.TranscriptDir))
		}
	}

	runner := &Runner{
		Config:  cfg,
		Capture: capture,
		Client:  transcriber.NewServer(cfg.ServerURL, time.Duration(cfg.HTTPTimeout)),
		Encoder: enc,
		Sink:    sink,
	}

	// SIGINT asks for a graceful stop: finish the in-flight utterance.
	// SIGTERM is the impatient path: drop it and exit.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		for s := range sigCh {
			if s == syscall.SIGTERM {
				runner.Urgent.Store(true)
			}
			cancel()
		}
	}()

	log.SessionStart(string(kind), runner.Client.Name(), cfg.SilenceThreshold)
	log.Infof("recording on %s", capture.DeviceName())
	notify.Send("talkat", "Listening...")
	defer func() { log.SessionEnd(string(kind), runner.Utterances) }()

	if continuous {
		text, err := runner.Dictate(ctx)
		if cfg.ClipboardOnLong && text != "" {
			if cerr := output.CopyToClipboard(text); cerr != nil {
				log.Warnf("clipboard copy: %v", cerr)
			} else {
				notify.Send("talkat", "Dictation copied to clipboard")
			}
		}
		return err
	}

	err = runner.Listen(ctx)
	if errors.Is(err, ErrNoSpeech) {
		notify.Send("talkat", "No speech detected")
		return nil
	}
	return err
}

func runDevicePicker(cfg config.Config, configPath string) error {
	audioCtx, err := audio.NewContext()
	if err != nil {
		return fmt.Errorf("opening audio backend: %w", err)
	}
	defer audioCtx.Close()

	device, err := pickDevice(audioCtx)
	if err != nil {
		return err
	}
	cfg.Device = device.Name
	if err := config.Save(configPath, cfg); err != nil {
		return err
	}
	fmt.Printf("saved device %q to %s\n", device.Name, configPath)
	return nil
}
