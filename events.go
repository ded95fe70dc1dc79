package main

import "time"

// Sink abstracts the display layer so both the Bubble Tea TUI and the
// headless tray mode receive the same recording/transcription events. All
// methods are called from coordinator or worker goroutines; implementations
// marshal onto their own render loop and must not block.
type Sink interface {
	StatusChanged(status Status, message string)
	LevelChanged(level float64)
	// InsertText pastes the transcript into the focused application.
	InsertText(text string) error
	// CopyText places the transcript on the clipboard without pasting.
	CopyText(text string) error
	ShowWarning(message string, duration time.Duration)
	ShowErrorWithRetry(message string)
}
