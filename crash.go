package main

import (
	"os"
	"path/filepath"
	"runtime/debug"

	"murmur/log"
)

// initCrashLog routes fatal panic output to a file next to the diagnostics
// log, so crashes in background mode are not lost with the terminal.
func initCrashLog() {
	dir, err := log.ResolveDir("")
	if err != nil {
		return
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return
	}
	f, err := os.OpenFile(filepath.Join(dir, "crash.txt"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	debug.SetCrashOutput(f, debug.CrashOptions{})
}
