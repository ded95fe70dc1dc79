package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"murmur/audio"
	"murmur/capture"
	"murmur/cleaner"
	"murmur/history"
	"murmur/log"
	"murmur/transcriber"
)

// Status is the coordinator's externally visible state. It is owned and
// mutated only by the Coordinator; everyone else observes it through
// Sink.StatusChanged.
type Status int

const (
	StatusIdle Status = iota
	StatusRecording
	StatusProcessing
	StatusTranscribing
	StatusCleaning
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRecording:
		return "recording"
	case StatusProcessing:
		return "processing"
	case StatusTranscribing:
		return "transcribing"
	case StatusCleaning:
		return "cleaning"
	case StatusError:
		return "error"
	}
	return "unknown"
}

// DeviceOpener opens the capture device for a new attempt. Implementations
// handle preferred-device fallback; an error here means no device at all.
type DeviceOpener func() (audio.CaptureDevice, string, error)

type CoordinatorConfig struct {
	SilenceThreshold   float64
	SilentStartWindow  time.Duration // 0 disables the silent-start check
	MinDuration        time.Duration
	MaxDuration        time.Duration // 0 disables the length cap
	LowercaseThreshold int           // 0 disables the short-transcript rule
}

// Coordinator sequences the recording/transcription lifecycle: toggle events
// start and stop capture sessions, finished recordings run through a single
// background pipeline, and cancellation is honored cooperatively at
// checkpoints.
type Coordinator struct {
	mu     sync.Mutex
	status Status

	sink       Sink
	trans      transcriber.Transcriber
	clean      cleaner.Cleaner // nil disables the cleaning stage
	hist       *history.History
	openDevice DeviceOpener
	cfg        CoordinatorConfig

	// cancelled is the shared cancellation token: set from any goroutine,
	// reset only when a new attempt or retry begins.
	cancelled atomic.Bool

	session     *capture.Session
	device      audio.CaptureDevice
	sessionDone chan struct{} // closed when the live session is stopped

	lastRecording  string
	pipelineActive bool
	pipelineDone   chan struct{}
}

func NewCoordinator(sink Sink, trans transcriber.Transcriber, clean cleaner.Cleaner, hist *history.History, open DeviceOpener, cfg CoordinatorConfig) *Coordinator {
	return &Coordinator{
		status:     StatusIdle,
		sink:       sink,
		trans:      trans,
		clean:      clean,
		hist:       hist,
		openDevice: open,
		cfg:        cfg,
	}
}

func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// LastRecording returns the path of the most recently finalized recording,
// or "" when there is nothing to retry.
func (c *Coordinator) LastRecording() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastRecording
}

// setStatus must be called with c.mu held. Exactly one sink callback per
// transition.
func (c *Coordinator) setStatus(s Status, message string) {
	log.StatusChange(c.status.String(), s.String())
	c.status = s
	c.sink.StatusChanged(s, message)
}

// Toggle is the single entry point for every toggle source (hotkey, tray).
// It starts recording from Idle or Error, stops a live recording, and is a
// no-op while a pipeline from a previous attempt still runs.
func (c *Coordinator) Toggle() {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.status {
	case StatusRecording:
		c.stopAndProcess()
	case StatusIdle, StatusError:
		c.startRecording()
	default:
		// pipeline active with no live recording; refuse the start
	}
}

// Cancel discards a live recording immediately, or marks the cancellation
// token so an active pipeline unwinds at its next checkpoint.
func (c *Coordinator) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelled.Store(true)
	if c.status == StatusRecording && c.session != nil {
		c.closeSession()
		c.setStatus(StatusIdle, "")
	}
}

// startRecording must be called with c.mu held.
func (c *Coordinator) startRecording() {
	if c.pipelineActive {
		return
	}

	c.cancelled.Store(false)
	c.lastRecording = ""

	dev, deviceName, err := c.openDevice()
	if err != nil {
		log.Errorf("opening capture device: %v", err)
		c.setStatus(StatusError, "microphone unavailable")
		return
	}

	session := capture.NewSession(dev, capture.TempPath(), capture.Config{
		SilenceThreshold:  c.cfg.SilenceThreshold,
		SilentStartWindow: c.cfg.SilentStartWindow,
		MaxDuration:       c.cfg.MaxDuration,
		OnLevel:           c.sink.LevelChanged,
	})
	if err := session.Start(); err != nil {
		dev.Close()
		log.Errorf("starting capture: %v", err)
		c.setStatus(StatusError, "could not start recording")
		return
	}

	c.session = session
	c.device = dev
	c.sessionDone = make(chan struct{})
	log.AttemptStart(c.trans.Name(), deviceName)
	c.setStatus(StatusRecording, "")

	go c.watchAutoStop(session, c.sessionDone)
}

// watchAutoStop reacts to the session's self-stop events: a silent start
// aborts the attempt, the duration cap routes into the normal stop path
// with a warning.
func (c *Coordinator) watchAutoStop(session *capture.Session, done <-chan struct{}) {
	select {
	case <-done:
		return
	case reason := <-session.AutoStop():
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.session != session || c.status != StatusRecording {
			return
		}
		switch reason {
		case capture.ReasonSilentStart:
			c.closeSession()
			c.setStatus(StatusError, "no audio detected")
		case capture.ReasonMaxDuration:
			c.sink.ShowWarning("recording reached the maximum length and was stopped", 5*time.Second)
			c.stopAndProcess()
		}
	}
}

// closeSession stops the live session and discards its outcome. Must be
// called with c.mu held.
func (c *Coordinator) closeSession() {
	close(c.sessionDone)
	if _, err := c.session.Stop(); err != nil {
		log.Warnf("closing discarded session: %v", err)
	}
	c.device.Close()
	c.session = nil
	c.device = nil
}

// stopAndProcess finalizes the live session and hands it to the pipeline
// worker. Must be called with c.mu held and status Recording.
func (c *Coordinator) stopAndProcess() {
	session := c.session
	device := c.device
	c.session = nil
	c.device = nil
	close(c.sessionDone)

	summary, err := session.Stop()
	device.Close()
	if err != nil {
		log.Errorf("finalizing recording: %v", err)
		c.setStatus(StatusError, "could not save recording")
		return
	}
	log.AttemptEnd("stopped", summary.Duration.Seconds())

	c.lastRecording = session.Path()
	c.setStatus(StatusProcessing, "")
	c.startPipeline(session.Path(), false)
}

// startPipeline claims the single worker slot. Must be called with c.mu
// held.
func (c *Coordinator) startPipeline(path string, retryDelivery bool) {
	c.pipelineActive = true
	c.pipelineDone = make(chan struct{})
	go c.runPipeline(path, retryDelivery, c.pipelineDone)
}

// RetryLast re-runs the pipeline on the stored recording. Unlike the
// primary path, a successful retry only copies the text to the clipboard:
// focus has likely moved since the recording, so pasting is unsafe.
func (c *Coordinator) RetryLast() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pipelineActive || c.status == StatusRecording {
		return
	}
	if c.lastRecording == "" {
		return
	}

	c.cancelled.Store(false)
	c.setStatus(StatusProcessing, "")
	c.startPipeline(c.lastRecording, true)
}

// runPipeline is the background processing task: validity check,
// transcription, optional cleaning, delivery. Checkpoints honor the
// cancellation token; panics terminate in StatusError, never propagate.
func (c *Coordinator) runPipeline(path string, retryDelivery bool, done chan struct{}) {
	defer close(done)
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("pipeline panic: %v", r)
			c.finishPipeline(StatusError, "internal error")
		}
	}()

	if err := capture.Analyze(path, c.cfg.MinDuration, c.cfg.SilenceThreshold); err != nil {
		switch {
		case errors.Is(err, capture.ErrTooShort):
			c.finishPipeline(StatusError, "recording too short")
		case errors.Is(err, capture.ErrTooSilent):
			c.finishPipeline(StatusError, "no speech detected")
		default:
			log.Errorf("analyzing recording: %v", err)
			c.finishPipeline(StatusError, "could not read recording")
		}
		return
	}

	// checkpoint: after the validity check
	if c.checkCancelled() {
		return
	}

	c.transition(StatusTranscribing, "")
	text, err := c.trans.Transcribe(context.Background(), path)

	// checkpoint: after transcription returns, before committing
	if c.checkCancelled() {
		return
	}
	if err != nil {
		log.Errorf("transcription: %v", err)
		if errors.Is(err, transcriber.ErrTimeout) {
			c.sink.ShowErrorWithRetry("transcription request timed out")
			c.finishPipeline(StatusError, "request timed out")
		} else {
			c.sink.ShowErrorWithRetry("transcription failed")
			c.finishPipeline(StatusError, "transcription failed")
		}
		return
	}

	raw := strings.TrimSpace(text)
	if raw == "" {
		c.finishPipeline(StatusError, "no speech detected")
		return
	}

	final := raw
	if c.clean != nil {
		c.transition(StatusCleaning, "")
		cleaned, err := c.clean.Clean(context.Background(), raw)

		// checkpoint: after cleaning returns
		if c.checkCancelled() {
			return
		}
		if err != nil {
			log.Warnf("cleaning failed, delivering raw transcription: %v", err)
			c.sink.ShowWarning("cleaning failed, using raw transcription", 5*time.Second)
		} else {
			final = cleaned
		}
	}

	final = applyShortTranscriptRule(final, c.cfg.LowercaseThreshold)

	if retryDelivery {
		if err := c.sink.CopyText(final); err != nil {
			log.Errorf("copying text: %v", err)
			c.finishPipeline(StatusError, "could not copy text")
			return
		}
	} else {
		if err := c.sink.InsertText(final); err != nil {
			// paste injection can fail (focus lost, uinput denied); fall
			// back to the clipboard so the text is not lost
			log.Errorf("inserting text: %v", err)
			if copyErr := c.sink.CopyText(final); copyErr != nil {
				log.Errorf("clipboard fallback: %v", copyErr)
				c.finishPipeline(StatusError, "could not deliver text")
				return
			}
			c.sink.ShowWarning("could not paste, text copied to clipboard instead", 5*time.Second)
		}
	}

	c.hist.Add(final)
	log.TranscriptionText(final)
	c.finishPipeline(StatusIdle, "")
}

// checkCancelled observes the cancellation token at a checkpoint. When set,
// the pipeline unwinds to Idle with no further side effects.
func (c *Coordinator) checkCancelled() bool {
	if !c.cancelled.Load() {
		return false
	}
	c.finishPipeline(StatusIdle, "")
	return true
}

func (c *Coordinator) transition(s Status, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setStatus(s, message)
}

func (c *Coordinator) finishPipeline(s Status, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pipelineActive = false
	c.setStatus(s, message)
}

// WaitIdle blocks until any active pipeline task finishes. Intended for
// shutdown and tests.
func (c *Coordinator) WaitIdle(timeout time.Duration) error {
	c.mu.Lock()
	done := c.pipelineDone
	active := c.pipelineActive
	c.mu.Unlock()

	if !active || done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("pipeline still active after %v", timeout)
	}
}
