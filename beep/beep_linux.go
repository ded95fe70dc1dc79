//go:build linux

package beep

import (
	"sync"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"
)

var (
	startSamples []int16
	endSamples   []int16
	errorSamples []int16
	soundOnce    sync.Once
)

func initSound() {
	// 200ms tails give the PulseAudio buffer time to fill before drain
	startSamples = generateTick(startFreq, 0.2, startVolume, startDecay)
	endSamples = generateTick(endFreq, 0.2, endVolume, endDecay)
	errorSamples = generateDoubleBeep(errorFreq, 0.08, 0.05, errorVolume, errorDecay)
}

func playSamples(mono []int16) {
	if disabled || len(mono) == 0 {
		return
	}
	c, err := pulse.NewClient()
	if err != nil {
		return
	}
	defer c.Close()

	// interleave to stereo to match the output sink format
	samples := make([]int16, len(mono)*2)
	for i, s := range mono {
		samples[i*2] = s
		samples[i*2+1] = s
	}

	pos := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		if pos >= len(samples) {
			return 0, pulse.EndOfData
		}
		n := copy(buf, samples[pos:])
		pos += n
		return n, nil
	})
	stream, err := c.NewPlayback(reader,
		pulse.PlaybackStereo,
		pulse.PlaybackSampleRate(sampleRate),
		pulse.PlaybackLatency(0.1),
		pulse.PlaybackRawOption(func(p *proto.CreatePlaybackStream) {
			p.ChannelVolumes = proto.ChannelVolumes{uint32(proto.VolumeNorm), uint32(proto.VolumeNorm)}
		}),
	)
	if err != nil {
		return
	}
	stream.Start()
	stream.Drain()
	stream.Stop()
	stream.Close()
}

func Init() {
	soundOnce.Do(initSound)
}

func PlayStart() {
	soundOnce.Do(initSound)
	go playSamples(startSamples)
}

func PlayEnd() {
	soundOnce.Do(initSound)
	go playSamples(endSamples)
}

func PlayError() {
	soundOnce.Do(initSound)
	go playSamples(errorSamples)
}
