package audio

import (
	"encoding/binary"
	"strings"
)

// DataCallback receives raw s16le PCM from the capture backend.
// It runs on the backend's audio thread and must not block.
type DataCallback func(data []byte, frameCount uint32)

// Many consumer microphones deliver very quiet signal at the default input
// volume, well under any usable silence threshold. The defaults below bring
// speech into range on such hardware.
const (
	DefaultGain         = 8
	DefaultSourceVolume = 3.0
)

type CaptureConfig struct {
	SampleRate uint32
	Channels   uint32

	// Gain is the software amplification applied to captured samples,
	// clipped at the int16 range. Zero means DefaultGain.
	Gain int

	// SourceVolume scales the backend input volume where the backend
	// supports it. Zero means DefaultSourceVolume.
	SourceVolume float64
}

func (c CaptureConfig) gain() int32 {
	if c.Gain <= 0 {
		return DefaultGain
	}
	return int32(c.Gain)
}

func (c CaptureConfig) sourceVolume() float64 {
	if c.SourceVolume <= 0 {
		return DefaultSourceVolume
	}
	return c.SourceVolume
}

// amplifyPCM converts int16 samples to little-endian bytes, applying a
// software gain clipped at the int16 range.
func amplifyPCM(buf []int16, gain int32) []byte {
	data := make([]byte, len(buf)*2)
	for i, s := range buf {
		v := int32(s) * gain
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		binary.LittleEndian.PutUint16(data[i*2:], uint16(int16(v)))
	}
	return data
}

type DeviceInfo struct {
	ID   string // opaque backend-specific identifier
	Name string
}

// Context enumerates capture devices and opens capture streams.
// A nil *DeviceInfo means the system default input.
type Context interface {
	Devices() ([]DeviceInfo, error)
	NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error)
	Close()
}

type CaptureDevice interface {
	Start() error
	Stop()
	Close()
	SetCallback(cb DataCallback)
	ClearCallback()
	DeviceName() string
}

// ResolveByName finds an enumerated capture device by its display name.
// Returns nil when the name is empty or no device matches, which callers
// treat as "use the system default".
func ResolveByName(ctx Context, name string) *DeviceInfo {
	if name == "" {
		return nil
	}
	devices, err := ctx.Devices()
	if err != nil {
		return nil
	}
	for i := range devices {
		if devices[i].Name == name {
			return &devices[i]
		}
	}
	return nil
}

var btKeywords = []string{
	"airpods", "beats", "bose", "wh-1000", "wf-1000",
	"sony wh-", "sony wf-",
	"jabra", "galaxy buds", "pixel buds", "powerbeats",
	"jbl ", "sennheiser momentum", "plantronics",
	"tozo", "anker soundcore", "skullcandy",
	"bluetooth", " bt ", " bt)", " bt]",
}

// IsBluetooth guesses from the device name whether the input is a Bluetooth
// headset, which typically drops to a low-quality telephony profile while
// capturing.
func IsBluetooth(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range btKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
