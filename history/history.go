// Package history keeps the most recent delivered transcripts for the tray's
// "Recent transcriptions" submenu and the copy-last action.
package history

import (
	"strings"
	"sync"
	"unicode/utf8"
)

const (
	DefaultLimit = 10

	previewRunes = 40
)

type History struct {
	mu    sync.Mutex
	limit int
	items []string // most recent first
}

func New(limit int) *History {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &History{limit: limit}
}

// Add records a delivered transcript at the front. Re-delivering the current
// front entry does not duplicate it.
func (h *History) Add(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.items) > 0 && h.items[0] == text {
		return
	}
	h.items = append([]string{text}, h.items...)
	if len(h.items) > h.limit {
		h.items = h.items[:h.limit]
	}
}

// Recent returns a copy of the stored transcripts, most recent first.
func (h *History) Recent() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.items...)
}

// Last returns the most recent transcript, or "" when empty.
func (h *History) Last() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.items) == 0 {
		return ""
	}
	return h.items[0]
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.items)
}

// Preview shortens a transcript to a single menu-item label.
func Preview(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= previewRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:previewRunes]) + "…"
}
