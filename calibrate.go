package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"talkat/audio"
	"talkat/config"
	"talkat/log"
	"talkat/notify"
	"talkat/vad"
)

const calibrationDuration = 3 * time.Second

var (
	calTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	calBarStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	calResultStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	calDimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// runCalibrate samples ambient noise, derives the speech threshold, and
// persists it into the config file for every later session.
func runCalibrate(cfg config.Config, configPath string, device *audio.DeviceInfo, audioCtx audio.Context) error {
	capture, err := audioCtx.NewCapture(device, audio.CaptureConfig{
		SampleRate: audio.SampleRate,
		Channels:   audio.Channels,
	})
	if err != nil {
		return fmt.Errorf("opening capture device: %w", err)
	}
	defer capture.Close()

	reader, err := audio.NewFrameReader(capture, frameSamples)
	if err != nil {
		return err
	}
	defer reader.Close()

	fmt.Println(calTitleStyle.Render("Calibrating microphone"))
	fmt.Println(calDimStyle.Render("Stay silent for " + calibrationDuration.String() + "; background noise is being measured."))
	fmt.Println()

	ctx, cancel := context.WithTimeout(context.Background(), calibrationDuration+5*time.Second)
	defer cancel()

	stats, err := vad.Calibrate(ctx, reader, calibrationDuration, func(done, total int) {
		width := 30
		filled := done * width / total
		bar := calBarStyle.Render(strings.Repeat("█", filled)) + strings.Repeat("░", width-filled)
		fmt.Printf("\r  %s %3d%%", bar, done*100/total)
	})
	fmt.Println()
	if err != nil {
		return fmt.Errorf("calibration failed: %w", err)
	}

	threshold := stats.Threshold(cfg.ThresholdMin, cfg.ThresholdMax)
	log.Calibration(stats.P50, stats.P90, stats.P95, stats.Max, threshold)

	fmt.Println()
	fmt.Printf("  noise floor p50=%.1f p90=%.1f p95=%.1f max=%.1f\n", stats.P50, stats.P90, stats.P95, stats.Max)
	fmt.Println("  " + calResultStyle.Render(fmt.Sprintf("threshold: %.1f", threshold)))
	if threshold != stats.P95 {
		fmt.Println("  " + calDimStyle.Render(fmt.Sprintf("(clamped into %.0f..%.0f)", cfg.ThresholdMin, cfg.ThresholdMax)))
	}

	cfg.SilenceThreshold = threshold
	if err := config.Save(configPath, cfg); err != nil {
		return fmt.Errorf("saving threshold: %w", err)
	}
	fmt.Println(calDimStyle.Render("  saved to " + configPath))

	notify.Send("talkat", fmt.Sprintf("Calibrated: threshold %.0f", threshold))
	return nil
}
