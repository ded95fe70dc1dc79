package main

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// applyShortTranscriptRule lowercases the first letter and strips one
// trailing sentence terminator from short transcripts. Dictated fragments
// like "yes" usually continue an existing sentence, where "Yes." reads
// wrong.
func applyShortTranscriptRule(text string, threshold int) string {
	if threshold <= 0 {
		return text
	}
	if wordCount(text) > threshold {
		return text
	}

	if last, size := utf8.DecodeLastRuneInString(text); size > 0 {
		switch last {
		case '.', '!', '?':
			text = text[:len(text)-size]
		}
	}

	first, size := utf8.DecodeRuneInString(text)
	if size > 0 && unicode.IsUpper(first) {
		text = string(unicode.ToLower(first)) + text[size:]
	}
	return text
}

func wordCount(text string) int {
	return len(strings.Fields(text))
}
