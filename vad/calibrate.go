package vad

import (
	"context"
	"sort"
	"time"
)

// FrameSource is the slice of audio.FrameReader the calibrator needs.
type FrameSource interface {
	Next(ctx context.Context) ([]byte, error)
	FrameDuration() time.Duration
}

// Stats summarizes the ambient-noise energies observed during calibration.
type Stats struct {
	P50 float64
	P90 float64
	P95 float64
	Max float64
}

// Threshold derives the speech threshold from the noise floor: the 95th
// percentile sits above almost all ambient frames, and the clamp keeps a
// dead-quiet or wildly noisy room from producing an unusable value. The
// caller must stay silent while sampling runs; nothing here can verify that.
func (s Stats) Threshold(min, max float64) float64 {
	t := s.P95
	if t < min {
		t = min
	}
	if t > max {
		t = max
	}
	return t
}

// Calibrate samples ambient audio for the given duration and computes the
// energy distribution. progress, if non-nil, is called after every frame
// with the count of frames sampled so far out of the total.
func Calibrate(ctx context.Context, src FrameSource, duration time.Duration, progress func(done, total int)) (Stats, error) {
	total := int(duration / src.FrameDuration())
	if total < 1 {
		total = 1
	}

	energies := make([]float64, 0, total)
	for len(energies) < total {
		frame, err := src.Next(ctx)
		if err != nil {
			return Stats{}, err
		}
		energies = append(energies, Energy(frame))
		if progress != nil {
			progress(len(energies), total)
		}
	}

	sort.Float64s(energies)
	return Stats{
		P50: percentile(energies, 0.50),
		P90: percentile(energies, 0.90),
		P95: percentile(energies, 0.95),
		Max: energies[len(energies)-1],
	}, nil
}

// percentile expects sorted input.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(p * float64(len(sorted)))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
