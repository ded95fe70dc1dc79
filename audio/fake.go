package audio

import (
	"encoding/binary"
	"math"
	"sync"
)

const fakeChunkFrames = 1024

// FakeContext serves synthetic PCM to capture sessions in tests.
type FakeContext struct {
	pcm     []byte
	devices []DeviceInfo
	openErr error
}

func NewFakeContext(pcm []byte) *FakeContext {
	return &FakeContext{pcm: pcm}
}

// SetDevices overrides the enumerated device list.
func (f *FakeContext) SetDevices(devices []DeviceInfo) { f.devices = devices }

// FailOpen makes NewCapture return err, for device-fallback tests.
func (f *FakeContext) FailOpen(err error) { f.openErr = err }

func (f *FakeContext) Devices() ([]DeviceInfo, error) { return f.devices, nil }
func (f *FakeContext) Close()                         {}

func (f *FakeContext) NewCapture(device *DeviceInfo, _ CaptureConfig) (CaptureDevice, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	name := "fake"
	if device != nil {
		name = device.Name
	}
	return &FakeCapture{pcm: f.pcm, name: name}, nil
}

// FakeCapture replays its PCM through the callback as fast as possible on
// Start. That mirrors a real device closely enough for session tests
// without any timing dependence.
type FakeCapture struct {
	pcm  []byte
	name string

	mu       sync.Mutex
	cb       DataCallback
	stopCh   chan struct{}
	feedDone chan struct{}
}

func NewFakeCapture(name string, pcm []byte) *FakeCapture {
	return &FakeCapture{pcm: pcm, name: name}
}

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

func (f *FakeCapture) DeviceName() string { return f.name }

func (f *FakeCapture) Start() error {
	f.stopCh = make(chan struct{})
	f.feedDone = make(chan struct{})

	go func() {
		defer close(f.feedDone)
		chunkBytes := fakeChunkFrames * 2
		pos := 0
		for pos < len(f.pcm) {
			select {
			case <-f.stopCh:
				return
			default:
			}
			end := pos + chunkBytes
			if end > len(f.pcm) {
				end = len(f.pcm)
			}
			f.mu.Lock()
			cb := f.cb
			f.mu.Unlock()
			if cb != nil {
				chunk := make([]byte, end-pos)
				copy(chunk, f.pcm[pos:end])
				cb(chunk, uint32(len(chunk)/2))
			}
			pos = end
		}
	}()
	return nil
}

func (f *FakeCapture) Stop() {
	select {
	case <-f.stopCh:
	default:
		close(f.stopCh)
	}
	<-f.feedDone
}

func (f *FakeCapture) Close() {}

// Drained reports when the whole PCM buffer has been delivered.
func (f *FakeCapture) Drained() <-chan struct{} { return f.feedDone }

// TonePCM generates s16le mono PCM of a sine tone at the given amplitude
// (0..1), for synthetic "speech" in tests.
func TonePCM(sampleRate int, duration float64, freq, amplitude float64) []byte {
	n := int(float64(sampleRate) * duration)
	pcm := make([]byte, n*2)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(sampleRate)
		s := int16(math.Sin(2*math.Pi*freq*t) * amplitude * 32767)
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(s))
	}
	return pcm
}

// SilencePCM generates s16le mono PCM of pure silence.
func SilencePCM(sampleRate int, duration float64) []byte {
	n := int(float64(sampleRate) * duration)
	return make([]byte, n*2)
}
