// Package notify shows desktop notifications for warnings and errors when
// the terminal indicator is not in view.
package notify

import (
	"github.com/gen2brain/beeep"

	"murmur/log"
)

const appName = "murmur"

var disabled bool

func Disable() { disabled = true }

func Warning(message string) {
	if disabled {
		return
	}
	if err := beeep.Notify(appName, message, ""); err != nil {
		log.Warnf("desktop notification failed: %v", err)
	}
}

func Error(message string) {
	if disabled {
		return
	}
	if err := beeep.Alert(appName, message, ""); err != nil {
		log.Warnf("desktop notification failed: %v", err)
	}
}
