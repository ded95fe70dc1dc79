package capture

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"murmur/audio"
)

func writeWAV(t *testing.T, path string, data []int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	enc := wav.NewEncoder(f, SampleRate, BitsPerSample, Channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: Channels, SampleRate: SampleRate},
		Data:           data,
		SourceBitDepth: BitsPerSample,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
}

func pcmToInts(pcm []byte) []int {
	out := make([]int, len(pcm)/2)
	for i := range out {
		out[i] = int(int16(uint16(pcm[i*2]) | uint16(pcm[i*2+1])<<8))
	}
	return out
}

func TestSessionWritesRecording(t *testing.T) {
	pcm := audio.TonePCM(SampleRate, 2.0, 440, 0.5)
	dev := audio.NewFakeCapture("fake-mic", pcm)
	path := filepath.Join(t.TempDir(), "rec.wav")

	s := NewSession(dev, path, Config{SilenceThreshold: 0.01})
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	<-dev.Drained()
	summary, err := s.Stop()
	if err != nil {
		t.Fatal(err)
	}

	if got, want := summary.Duration, 2*time.Second; got < want-100*time.Millisecond || got > want+100*time.Millisecond {
		t.Errorf("duration = %v, want ~%v", got, want)
	}
	if !summary.SoundDetected {
		t.Error("expected sound to be detected on a loud tone")
	}
	if summary.PeakRMS < 0.2 {
		t.Errorf("peak RMS = %f, want >= 0.2 for a 0.5 amplitude tone", summary.PeakRMS)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		t.Fatal("recording is not a valid wav file")
	}
	dur, err := dec.Duration()
	if err != nil {
		t.Fatal(err)
	}
	if dur < 1900*time.Millisecond {
		t.Errorf("wav duration = %v, want ~2s", dur)
	}
}

func TestSessionSilentStartAutoStop(t *testing.T) {
	pcm := audio.SilencePCM(SampleRate, 10.0)
	dev := audio.NewFakeCapture("fake-mic", pcm)
	path := filepath.Join(t.TempDir(), "rec.wav")

	s := NewSession(dev, path, Config{
		SilenceThreshold:  0.01,
		SilentStartWindow: 50 * time.Millisecond,
	})
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	select {
	case reason := <-s.AutoStop():
		if reason != ReasonSilentStart {
			t.Errorf("reason = %v, want ReasonSilentStart", reason)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected silent-start auto-stop")
	}
	if _, err := s.Stop(); err != nil {
		t.Fatal(err)
	}
}

func TestSessionSoundCancelsSilentStart(t *testing.T) {
	pcm := audio.TonePCM(SampleRate, 1.0, 440, 0.5)
	dev := audio.NewFakeCapture("fake-mic", pcm)
	path := filepath.Join(t.TempDir(), "rec.wav")

	s := NewSession(dev, path, Config{
		SilenceThreshold:  0.01,
		SilentStartWindow: 200 * time.Millisecond,
	})
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	<-dev.Drained()

	select {
	case reason := <-s.AutoStop():
		t.Fatalf("unexpected auto-stop %v after sound was detected", reason)
	case <-time.After(400 * time.Millisecond):
	}
	if _, err := s.Stop(); err != nil {
		t.Fatal(err)
	}
}

func TestSessionMaxDurationAutoStop(t *testing.T) {
	pcm := audio.TonePCM(SampleRate, 3.0, 440, 0.5)
	dev := audio.NewFakeCapture("fake-mic", pcm)
	path := filepath.Join(t.TempDir(), "rec.wav")

	s := NewSession(dev, path, Config{
		SilenceThreshold: 0.01,
		MaxDuration:      time.Second,
	})
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	select {
	case reason := <-s.AutoStop():
		if reason != ReasonMaxDuration {
			t.Errorf("reason = %v, want ReasonMaxDuration", reason)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("expected max-duration auto-stop")
	}
	if _, err := s.Stop(); err != nil {
		t.Fatal(err)
	}
}

func TestSessionLevelCallback(t *testing.T) {
	pcm := audio.TonePCM(SampleRate, 1.0, 440, 0.5)
	dev := audio.NewFakeCapture("fake-mic", pcm)
	path := filepath.Join(t.TempDir(), "rec.wav")

	levels := make(chan float64, 1024)
	s := NewSession(dev, path, Config{
		SilenceThreshold: 0.01,
		OnLevel: func(level float64) {
			select {
			case levels <- level:
			default:
			}
		},
	})
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	<-dev.Drained()
	if _, err := s.Stop(); err != nil {
		t.Fatal(err)
	}

	var count int
	var last float64
	for {
		select {
		case l := <-levels:
			if l < 0 || l > 1 {
				t.Fatalf("level %f out of [0,1]", l)
			}
			last = l
			count++
			continue
		default:
		}
		break
	}
	if count == 0 {
		t.Fatal("no level callbacks received")
	}
	if last < 0.1 {
		t.Errorf("smoothed level settled at %f, want clearly above silence for a loud tone", last)
	}
}

func TestAnalyze(t *testing.T) {
	dir := t.TempDir()

	short := filepath.Join(dir, "short.wav")
	writeWAV(t, short, pcmToInts(audio.TonePCM(SampleRate, 0.3, 440, 0.5)))

	silent := filepath.Join(dir, "silent.wav")
	writeWAV(t, silent, pcmToInts(audio.SilencePCM(SampleRate, 2.0)))

	good := filepath.Join(dir, "good.wav")
	writeWAV(t, good, pcmToInts(audio.TonePCM(SampleRate, 2.0, 440, 0.5)))

	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{"too short", short, ErrTooShort},
		{"too silent", silent, ErrTooSilent},
		{"valid", good, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Analyze(tt.path, time.Second, 0.01)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Analyze() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Analyze() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAnalyzeMissingFile(t *testing.T) {
	if err := Analyze(filepath.Join(t.TempDir(), "nope.wav"), time.Second, 0.01); err == nil {
		t.Fatal("expected error for missing file")
	}
}
