// Package tray puts the app in the system tray: toggle recording, copy or
// retry the last transcription, and a submenu of recent transcripts.
package tray

import (
	"sync"
	"sync/atomic"
	"time"

	"fyne.io/systray"

	"murmur/history"
)

const (
	maxRecentItems = 10
	tooltipIdle    = "murmur – voice typing"
)

type Callbacks struct {
	OnToggle     func()
	OnCopyLast   func()
	OnRetryLast  func()
	OnCopyRecent func(text string)
	OnQuit       func()
}

var (
	quitCh    = make(chan struct{})
	closeOnce sync.Once
	cb        Callbacks
	ready     chan struct{}

	mToggle *systray.MenuItem
	mCopy   *systray.MenuItem
	mRetry  *systray.MenuItem
	mRecent *systray.MenuItem

	recentMu    sync.Mutex
	recentItems []*systray.MenuItem
	recentTexts []string

	recording bool
)

// Run starts the tray loop in the background and returns a channel closed
// when the tray exits.
func Run(c Callbacks) <-chan struct{} {
	cb = c
	ready = make(chan struct{})
	go systray.Run(onReady, onExit)
	return quitCh
}

func Quit() {
	systray.Quit()
}

func onReady() {
	systray.SetTemplateIcon(iconIdle, iconIdle)
	systray.SetTooltip(tooltipIdle)

	mToggle = systray.AddMenuItem("Start recording", "Toggle recording (Ctrl+Shift+Space)")
	systray.AddSeparator()

	mCopy = systray.AddMenuItem("Copy last transcription", "Copy the most recent transcript to the clipboard")
	mCopy.Disable()
	mRetry = systray.AddMenuItem("Retry last transcription", "Transcribe the last recording again")
	mRetry.Disable()

	mRecent = systray.AddMenuItem("Recent transcriptions", "")
	mRecent.Disable()
	for i := 0; i < maxRecentItems; i++ {
		item := mRecent.AddSubMenuItem("", "")
		item.Hide()
		recentItems = append(recentItems, item)
		go recentClickLoop(item, i)
	}

	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Quit murmur")

	go clickLoop(mToggle, func() { call(cb.OnToggle) })
	go clickLoop(mCopy, func() { call(cb.OnCopyLast) })
	go clickLoop(mRetry, func() { call(cb.OnRetryLast) })
	go func() {
		<-mQuit.ClickedCh
		call(cb.OnQuit)
		systray.Quit()
	}()

	close(ready)
}

func onExit() {
	closeOnce.Do(func() { close(quitCh) })
}

func call(fn func()) {
	if fn != nil {
		fn()
	}
}

func clickLoop(item *systray.MenuItem, fn func()) {
	for range item.ClickedCh {
		fn()
	}
}

func recentClickLoop(item *systray.MenuItem, idx int) {
	for range item.ClickedCh {
		recentMu.Lock()
		var text string
		if idx < len(recentTexts) {
			text = recentTexts[idx]
		}
		recentMu.Unlock()
		if text != "" && cb.OnCopyRecent != nil {
			cb.OnCopyRecent(text)
		}
	}
}

var (
	readyWait = 2 * time.Second
	absent    atomic.Bool
)

// waitReady waits briefly for the tray host. On desktops with no tray the
// first call times out and later updates are dropped immediately, so status
// callers never park on a missing tray.
func waitReady() bool {
	if ready == nil {
		return false
	}
	select {
	case <-ready:
		return true
	default:
	}
	if absent.Load() {
		return false
	}
	select {
	case <-ready:
		return true
	case <-time.After(readyWait):
		absent.Store(true)
		return false
	}
}

// SetRecording flips the icon and the toggle item between idle and
// recording states.
func SetRecording(rec bool) {
	if !waitReady() {
		return
	}
	recording = rec
	if rec {
		systray.SetIcon(iconRecording)
		mToggle.SetTitle("Stop recording")
	} else {
		systray.SetTemplateIcon(iconIdle, iconIdle)
		mToggle.SetTitle("Start recording")
	}
}

// SetWarning shows the warning icon while recording (max duration close,
// silent input). Cleared by the next SetRecording call.
func SetWarning(on bool) {
	if !waitReady() || !recording {
		return
	}
	if on {
		systray.SetIcon(iconWarning)
	} else {
		systray.SetIcon(iconRecording)
	}
}

// SetError surfaces an error through the tooltip for a short while.
func SetError(msg string) {
	if !waitReady() {
		return
	}
	systray.SetTooltip("murmur – " + msg)
	go func() {
		time.Sleep(10 * time.Second)
		systray.SetTooltip(tooltipIdle)
	}()
}

// SetRecent rebuilds the recents submenu, most recent first.
func SetRecent(texts []string) {
	if !waitReady() {
		return
	}
	recentMu.Lock()
	defer recentMu.Unlock()

	if len(texts) > maxRecentItems {
		texts = texts[:maxRecentItems]
	}
	recentTexts = append([]string(nil), texts...)

	for i, item := range recentItems {
		if i < len(texts) {
			item.SetTitle(history.Preview(texts[i]))
			item.Show()
		} else {
			item.Hide()
		}
	}
	if len(texts) > 0 {
		mRecent.Enable()
		mCopy.Enable()
	}
}

// EnableRetry controls the retry item; it is only valid while the last
// recording file is still around.
func EnableRetry(on bool) {
	if !waitReady() {
		return
	}
	if on {
		mRetry.Enable()
	} else {
		mRetry.Disable()
	}
}
