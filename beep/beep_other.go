//go:build !linux

package beep

import (
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

var (
	malgoCtx     *malgo.AllocatedContext
	device       *malgo.Device
	startSamples []byte
	endSamples   []byte
	errorSamples []byte
	soundOnce    sync.Once

	// Playback state, accessed atomically from the device callback
	playing sync.Mutex
	playBuf atomic.Pointer[[]byte]
	playPos atomic.Uint32
)

func toBytes(mono []int16) []byte {
	buf := make([]byte, len(mono)*2)
	for i, s := range mono {
		buf[i*2] = byte(s)
		buf[i*2+1] = byte(s >> 8)
	}
	return buf
}

func initDevice() error {
	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.Playback.Format = malgo.FormatS16
	config.Playback.Channels = 1
	config.SampleRate = sampleRate

	callbacks := malgo.DeviceCallbacks{
		Data: dataCallback,
	}

	var err error
	device, err = malgo.InitDevice(malgoCtx.Context, config, callbacks)
	return err
}

func initSound() {
	var err error
	malgoCtx, err = malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return
	}

	startSamples = toBytes(generateTick(startFreq, 0.03, startVolume, startDecay))
	endSamples = toBytes(generateTick(endFreq, 0.05, endVolume, endDecay))
	errorSamples = toBytes(generateDoubleBeep(errorFreq, 0.08, 0.05, errorVolume, errorDecay))

	if err := initDevice(); err != nil {
		malgoCtx.Uninit()
		malgoCtx = nil
		return
	}
}

func dataCallback(pOutput, _ []byte, frameCount uint32) {
	samples := playBuf.Load()
	if samples == nil || len(*samples) == 0 {
		for i := range pOutput {
			pOutput[i] = 0
		}
		return
	}

	pos := playPos.Load()
	total := uint32(len(*samples))
	bytesToWrite := frameCount * 2
	remaining := total - pos

	if remaining == 0 {
		playBuf.Store(nil)
		for i := range pOutput {
			pOutput[i] = 0
		}
		return
	}

	if bytesToWrite > remaining {
		bytesToWrite = remaining
	}

	copy(pOutput[:bytesToWrite], (*samples)[pos:pos+bytesToWrite])
	playPos.Store(pos + bytesToWrite)

	for i := bytesToWrite; i < frameCount*2; i++ {
		pOutput[i] = 0
	}
}

func playBytes(samples []byte) {
	if disabled || malgoCtx == nil || len(samples) == 0 {
		return
	}

	playing.Lock()
	defer playing.Unlock()

	if device == nil {
		return
	}

	// Stop first to ensure clean state; handles sleep/wake stale devices
	device.Stop()

	playPos.Store(0)
	playBuf.Store(&samples)

	if err := device.Start(); err != nil {
		device.Uninit()
		if err := initDevice(); err != nil {
			device = nil
			return
		}
		device.Start()
	}
}

func Init() {
	soundOnce.Do(initSound)
}

func PlayStart() {
	soundOnce.Do(initSound)
	go playBytes(startSamples)
}

func PlayEnd() {
	soundOnce.Do(initSound)
	go playBytes(endSamples)
}

func PlayError() {
	soundOnce.Do(initSound)
	go playBytes(errorSamples)
}
