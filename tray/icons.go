package tray

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
)

// Icons are drawn at init rather than embedded: a filled dot reads fine at
// tray size on every platform and keeps binary assets out of the tree.
var (
	iconIdle      = dotIcon(color.NRGBA{R: 0x9a, G: 0x9a, B: 0x9a, A: 0xff})
	iconRecording = dotIcon(color.NRGBA{R: 0xe5, G: 0x3e, B: 0x3e, A: 0xff})
	iconWarning   = dotIcon(color.NRGBA{R: 0xe5, G: 0xa5, B: 0x0a, A: 0xff})
)

func dotIcon(c color.NRGBA) []byte {
	const size = 22
	const r = size/2 - 2

	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	cx, cy := size/2, size/2
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy <= r*r {
				img.SetNRGBA(x, y, c)
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil
	}
	return buf.Bytes()
}
