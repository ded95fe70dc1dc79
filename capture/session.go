// Package capture owns one recording attempt: it streams microphone PCM into
// a WAV backing file, tracks loudness for UI feedback, and raises auto-stop
// events for silent starts and over-long recordings.
package capture

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/google/uuid"

	"murmur/audio"
)

const (
	SampleRate    = 16000
	Channels      = 1
	BitsPerSample = 16

	// Level smoothing for the UI bar: higher = jumpier, lower = laggier.
	smoothingFactor = 0.2
)

// StopReason distinguishes why a session ended without an explicit stop.
type StopReason int

const (
	ReasonNone StopReason = iota
	ReasonSilentStart
	ReasonMaxDuration
)

type Config struct {
	SilenceThreshold  float64       // RMS below this counts as silence
	SilentStartWindow time.Duration // 0 disables the silent-start check
	MaxDuration       time.Duration // 0 disables the length cap
	OnLevel           func(level float64)
}

// Summary is returned by Stop with the final facts about the attempt.
type Summary struct {
	Duration      time.Duration
	PeakRMS       float64
	SoundDetected bool
}

// Session is one live capture. At most one Session may own a device at a
// time; the coordinator enforces that.
type Session struct {
	dev  audio.CaptureDevice
	path string
	cfg  Config

	file *os.File
	enc  *wav.Encoder

	mu            sync.Mutex
	stopped       bool
	frames        uint64
	peakRMS       float64
	smoothed      float64
	soundDetected bool
	writeErr      error
	capSignalled  bool

	graceTimer *time.Timer
	autoStop   chan StopReason
	startedAt  time.Time
}

// TempPath returns a fresh recording path under the OS temp directory.
func TempPath() string {
	return filepath.Join(os.TempDir(), "murmur-"+uuid.NewString()+".wav")
}

func NewSession(dev audio.CaptureDevice, path string, cfg Config) *Session {
	return &Session{
		dev:      dev,
		path:     path,
		cfg:      cfg,
		autoStop: make(chan StopReason, 1),
	}
}

func (s *Session) Path() string { return s.path }

// AutoStop signals at most once when the session decides to end itself:
// silent start within the grace window, or the duration cap.
func (s *Session) AutoStop() <-chan StopReason { return s.autoStop }

func (s *Session) Start() error {
	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("creating recording file: %w", err)
	}
	s.file = f
	s.enc = wav.NewEncoder(f, SampleRate, BitsPerSample, Channels, 1)
	s.startedAt = time.Now()

	if s.cfg.SilentStartWindow > 0 {
		s.graceTimer = time.AfterFunc(s.cfg.SilentStartWindow, s.onGraceElapsed)
	}

	s.dev.SetCallback(s.onData)
	if err := s.dev.Start(); err != nil {
		s.dev.ClearCallback()
		if s.graceTimer != nil {
			s.graceTimer.Stop()
		}
		s.enc.Close()
		f.Close()
		return fmt.Errorf("starting capture on %s: %w", s.dev.DeviceName(), err)
	}
	return nil
}

func (s *Session) onGraceElapsed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || s.soundDetected {
		return
	}
	s.signal(ReasonSilentStart)
}

// signal must be called with s.mu held.
func (s *Session) signal(reason StopReason) {
	select {
	case s.autoStop <- reason:
	default:
	}
}

func (s *Session) onData(data []byte, frameCount uint32) {
	if len(data) < 2 {
		return
	}

	n := len(data) / 2
	samples := make([]int, n)
	var sumSquares float64
	for i := 0; i < n; i++ {
		sample := int16(binary.LittleEndian.Uint16(data[i*2:]))
		samples[i] = int(sample)
		normalized := float64(sample) / 32768.0
		sumSquares += normalized * normalized
	}
	rms := math.Sqrt(sumSquares / float64(n))

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}

	if s.writeErr == nil {
		buf := &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: Channels, SampleRate: SampleRate},
			Data:           samples,
			SourceBitDepth: BitsPerSample,
		}
		if err := s.enc.Write(buf); err != nil {
			s.writeErr = err
		}
	}

	s.frames += uint64(frameCount)
	if rms > s.peakRMS {
		s.peakRMS = rms
	}
	if !s.soundDetected && rms >= s.cfg.SilenceThreshold {
		s.soundDetected = true
		if s.graceTimer != nil {
			s.graceTimer.Stop()
		}
	}
	if s.cfg.MaxDuration > 0 && !s.capSignalled {
		maxFrames := uint64(s.cfg.MaxDuration.Seconds() * SampleRate)
		if s.frames >= maxFrames {
			s.capSignalled = true
			s.signal(ReasonMaxDuration)
		}
	}

	// Level bar: dB-normalized then exponentially smoothed, matching the
	// 0..1 contract of the presentation sink.
	db := 20 * math.Log10(math.Max(1e-10, rms))
	level := math.Min(1.0, math.Max(0.0, (db+60)/60))
	s.smoothed = smoothingFactor*level + (1-smoothingFactor)*s.smoothed
	onLevel := s.cfg.OnLevel
	smoothed := s.smoothed
	s.mu.Unlock()

	if onLevel != nil {
		onLevel(smoothed)
	}
}

// Stop halts capture, flushes and closes the WAV file, and reports the final
// duration and peak loudness. Safe to call once.
func (s *Session) Stop() (Summary, error) {
	s.dev.Stop()
	s.dev.ClearCallback()

	s.mu.Lock()
	s.stopped = true
	if s.graceTimer != nil {
		s.graceTimer.Stop()
	}
	frames := s.frames
	summary := Summary{
		Duration:      time.Duration(float64(frames) / SampleRate * float64(time.Second)),
		PeakRMS:       s.peakRMS,
		SoundDetected: s.soundDetected,
	}
	writeErr := s.writeErr
	s.mu.Unlock()

	if err := s.enc.Close(); err != nil && writeErr == nil {
		writeErr = err
	}
	if err := s.file.Close(); err != nil && writeErr == nil {
		writeErr = err
	}
	if writeErr != nil {
		return summary, fmt.Errorf("finalizing recording: %w", writeErr)
	}
	return summary, nil
}
