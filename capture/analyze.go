package capture

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/go-audio/wav"
)

var (
	ErrTooShort  = errors.New("recording too short")
	ErrTooSilent = errors.New("recording contains no speech")
)

const analyzeWindow = 1024 // samples per RMS window, ~64ms at 16kHz

// Analyze re-reads a finished recording and decides whether it is worth
// sending to a transcriber. Returns ErrTooShort or ErrTooSilent when not.
func Analyze(path string, minDuration time.Duration, silenceThreshold float64) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening recording: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return fmt.Errorf("recording %s is not a valid wav file", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return fmt.Errorf("reading recording: %w", err)
	}

	duration := time.Duration(float64(len(buf.Data)) / float64(buf.Format.SampleRate) * float64(time.Second))
	if duration < minDuration {
		return fmt.Errorf("%w: %.2fs", ErrTooShort, duration.Seconds())
	}

	if maxWindowedRMS(buf.Data) < silenceThreshold {
		return ErrTooSilent
	}
	return nil
}

func maxWindowedRMS(data []int) float64 {
	var max float64
	for start := 0; start < len(data); start += analyzeWindow {
		end := start + analyzeWindow
		if end > len(data) {
			end = len(data)
		}
		var sumSquares float64
		for _, s := range data[start:end] {
			n := float64(s) / 32768.0
			sumSquares += n * n
		}
		rms := math.Sqrt(sumSquares / float64(end-start))
		if rms > max {
			max = rms
		}
	}
	return max
}
