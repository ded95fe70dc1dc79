package main

import "testing"

func TestApplyShortTranscriptRule(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		threshold int
		want      string
	}{
		{"short with period", "Hello there.", 4, "hello there"},
		{"short with exclamation", "Stop!", 4, "stop"},
		{"short with question", "Really?", 4, "really"},
		{"short without terminator", "Hello there", 4, "hello there"},
		{"at threshold", "One two three four.", 4, "one two three four"},
		{"over threshold unchanged", "This is a longer sentence here.", 4, "This is a longer sentence here."},
		{"only one terminator stripped", "Wait..", 4, "wait."},
		{"disabled by zero threshold", "Hello.", 0, "Hello."},
		{"already lowercase", "okay.", 4, "okay"},
		{"unicode first letter", "Überall.", 4, "überall"},
		{"empty", "", 4, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := applyShortTranscriptRule(tt.in, tt.threshold)
			if got != tt.want {
				t.Errorf("applyShortTranscriptRule(%q, %d) = %q, want %q", tt.in, tt.threshold, got, tt.want)
			}
		})
	}
}

func TestWordCount(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"   ", 0},
		{"one", 1},
		{"one two", 2},
		{"  spaced   out  words ", 3},
	}
	for _, tt := range tests {
		if got := wordCount(tt.in); got != tt.want {
			t.Errorf("wordCount(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
