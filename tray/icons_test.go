package tray

import (
	"bytes"
	"image/png"
	"testing"
)

func TestDotIconsAreValidPNG(t *testing.T) {
	for name, data := range map[string][]byte{
		"idle":      iconIdle,
		"recording": iconRecording,
		"warning":   iconWarning,
	} {
		t.Run(name, func(t *testing.T) {
			if len(data) == 0 {
				t.Fatal("icon is empty")
			}
			img, err := png.Decode(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("decoding: %v", err)
			}
			b := img.Bounds()
			if b.Dx() != 22 || b.Dy() != 22 {
				t.Errorf("bounds = %v, want 22x22", b)
			}
		})
	}
}
