// Package clipboard delivers text into the focused application: copy,
// synthetic paste keystroke, then restore of whatever the clipboard held.
package clipboard

import (
	"fmt"
	"time"

	cb "github.com/atotto/clipboard"
)

const restoreDelay = 100 * time.Millisecond

func Read() (string, error) {
	return cb.ReadAll()
}

func Copy(text string) error {
	return cb.WriteAll(text)
}

// Insert pastes text at the cursor of the focused window. The previous
// clipboard content is restored after a short delay so the paste keystroke
// lands first.
func Insert(text string) error {
	previous, readErr := cb.ReadAll()

	if err := cb.WriteAll(text); err != nil {
		return fmt.Errorf("copying text for paste: %w", err)
	}
	if err := sendPaste(); err != nil {
		return fmt.Errorf("sending paste keystroke: %w", err)
	}

	if readErr == nil {
		time.AfterFunc(restoreDelay, func() {
			cb.WriteAll(previous)
		})
	}
	return nil
}
