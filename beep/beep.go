// Package beep plays short audible cues for record start, record stop and
// errors, so the app is usable without looking at the indicator.
package beep

import "math"

var disabled bool

func Disable() { disabled = true }

const (
	sampleRate = 44100

	// Start beep: high pitch, short
	startFreq   = 1200
	startVolume = 0.5
	startDecay  = 60

	// End beep: medium pitch, slightly longer
	endFreq   = 900
	endVolume = 0.5
	endDecay  = 40

	// Error beep: low pitch double-beep
	errorFreq   = 350
	errorVolume = 0.6
	errorDecay  = 30
)

// generateTick synthesizes a mono sine tick with an exponential decay
// envelope. Platform backends interleave or convert as their sink needs.
func generateTick(freq, duration, volume, decay float64) []int16 {
	n := int(sampleRate * duration)
	samples := make([]int16, n)
	for i := 0; i < n; i++ {
		t := float64(i) / sampleRate
		envelope := math.Exp(-t * decay)
		samples[i] = int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * envelope)
	}
	return samples
}

func generateDoubleBeep(freq, beepDur, gapDur, volume, decay float64) []int16 {
	beep := generateTick(freq, beepDur, volume, decay)
	gap := make([]int16, int(sampleRate*gapDur))
	result := make([]int16, 0, len(beep)*2+len(gap))
	result = append(result, beep...)
	result = append(result, gap...)
	result = append(result, beep...)
	return result
}
