package transcriber

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func writeTestWAV(t *testing.T, path string, seconds float64) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	n := int(16000 * seconds)
	samples := make([]int, n)
	for i := range samples {
		samples[i] = (i % 400) * 40
	}
	enc := wav.NewEncoder(f, 16000, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: 16000},
		Data:           samples,
		SourceBitDepth: 16,
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

func TestNewClosedSet(t *testing.T) {
	tests := []struct {
		provider string
		opts     Options
		wantName string
		wantErr  bool
	}{
		{"openai", Options{APIKey: "k"}, "openai", false},
		{"groq", Options{APIKey: "k"}, "groq", false},
		{"fake", Options{}, "fake", false},
		{"openai", Options{}, "", true},
		{"groq", Options{}, "", true},
		{"whisper-local", Options{APIKey: "k"}, "", true},
		{"", Options{}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.provider+"/"+tt.opts.APIKey, func(t *testing.T) {
			tr, err := New(tt.provider, tt.opts)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("New(%q) succeeded, want error", tt.provider)
				}
				return
			}
			if err != nil {
				t.Fatalf("New(%q): %v", tt.provider, err)
			}
			if tr.Name() != tt.wantName {
				t.Errorf("Name() = %q, want %q", tr.Name(), tt.wantName)
			}
		})
	}
}

func TestNewUnknownProviderMessage(t *testing.T) {
	_, err := New("deepgram", Options{APIKey: "k"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "deepgram") {
		t.Errorf("error should name the bad provider, got: %v", err)
	}
}

func TestPrepareUpload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rec.wav")
	writeTestWAV(t, path, 0.5)

	t.Run("wav passthrough", func(t *testing.T) {
		u, err := prepareUpload(path, "wav")
		if err != nil {
			t.Fatal(err)
		}
		if u.format != "wav" {
			t.Errorf("format = %q, want wav", u.format)
		}
		if len(u.data) != u.rawBytes {
			t.Errorf("wav upload should be the raw file, got %d vs %d bytes", len(u.data), u.rawBytes)
		}
	})

	t.Run("flac reencode", func(t *testing.T) {
		u, err := prepareUpload(path, "flac")
		if err != nil {
			t.Fatal(err)
		}
		if u.format != "flac" {
			t.Errorf("format = %q, want flac", u.format)
		}
		if len(u.data) < 4 || string(u.data[:4]) != "fLaC" {
			t.Error("upload does not start with FLAC magic")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := prepareUpload(filepath.Join(t.TempDir(), "nope.wav"), "wav"); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestGroqTranscribe(t *testing.T) {
	var gotAuth, gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "HEAD" {
			return
		}
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
		}
		if got := r.FormValue("model"); got != "whisper-large-v3-turbo" {
			t.Errorf("model = %q", got)
		}
		w.Write([]byte(`{"text": "hello from groq", "duration": 0.5}`))
	}))
	defer srv.Close()

	g := newGroq(Options{APIKey: "test-key"})
	g.apiURL = srv.URL

	path := filepath.Join(t.TempDir(), "rec.wav")
	writeTestWAV(t, path, 0.5)

	text, err := g.Transcribe(context.Background(), path)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "hello from groq" {
		t.Errorf("text = %q", text)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if !strings.HasPrefix(gotContentType, "multipart/form-data") {
		t.Errorf("Content-Type = %q", gotContentType)
	}
}

func TestOpenAITranscribeAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "HEAD" {
			return
		}
		w.WriteHeader(429)
		w.Write([]byte(`{"error": "rate limited"}`))
	}))
	defer srv.Close()

	o := newOpenAI(Options{APIKey: "test-key"})
	o.apiURL = srv.URL

	path := filepath.Join(t.TempDir(), "rec.wav")
	writeTestWAV(t, path, 0.5)

	_, err := o.Transcribe(context.Background(), path)
	if err == nil {
		t.Fatal("expected error on 429")
	}
	if errors.Is(err, ErrTimeout) {
		t.Error("API error should not look like a timeout")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("error should carry the status code, got: %v", err)
	}
}

func TestTranscribeTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "HEAD" {
			return
		}
		time.Sleep(500 * time.Millisecond)
		w.Write([]byte(`{"text": "too late"}`))
	}))
	defer srv.Close()

	g := newGroq(Options{APIKey: "test-key", Timeout: 50 * time.Millisecond})
	g.apiURL = srv.URL

	path := filepath.Join(t.TempDir(), "rec.wav")
	writeTestWAV(t, path, 0.5)

	_, err := g.Transcribe(context.Background(), path)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
}

func TestFakeRecordsCalls(t *testing.T) {
	f := &Fake{Text: "hi"}
	text, err := f.Transcribe(context.Background(), "/tmp/a.wav")
	if err != nil {
		t.Fatal(err)
	}
	if text != "hi" {
		t.Errorf("text = %q", text)
	}
	if calls := f.Calls(); len(calls) != 1 || calls[0] != "/tmp/a.wav" {
		t.Errorf("Calls() = %v", calls)
	}
}

func TestFakeHonorsCancellation(t *testing.T) {
	f := &Fake{Text: "hi", Delay: time.Second}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.Transcribe(ctx, "/tmp/a.wav"); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func TestFirstNonEmpty(t *testing.T) {
	h := http.Header{}
	h.Set("X-Rate-Limit", "100")

	if got := firstNonEmpty(h, "X-Missing", "X-Rate-Limit"); got != "100" {
		t.Errorf("got %q, want %q", got, "100")
	}
	if got := firstNonEmpty(h, "X-A", "X-B"); got != "?" {
		t.Errorf("got %q, want %q", got, "?")
	}
}
