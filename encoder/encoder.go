// Package encoder re-encodes finished recordings as FLAC to shrink upload
// payloads. FLAC is lossless, so transcription quality is unaffected.
package encoder

const (
	SampleRate    = 16000
	Channels      = 1
	BitsPerSample = 16
	BlockSize     = 4096
)
