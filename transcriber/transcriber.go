// Package transcriber turns finished recordings into text via hosted
// speech-to-text APIs. Providers form a closed set; unknown names are
// configuration errors, not fallbacks.
package transcriber

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"murmur/encoder"
)

// MaxUploadBytes is the providers' request size limit. Oversized recordings
// are rejected before any network traffic.
const MaxUploadBytes = 25 << 20

const defaultTimeout = 60 * time.Second

// ErrTimeout marks a transcription that ran out of time rather than failed.
// Callers distinguish it with errors.Is to word the user-facing message.
var ErrTimeout = errors.New("transcription timed out")

type Transcriber interface {
	Name() string
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

type Options struct {
	APIKey   string
	Model    string        // empty selects the provider default
	Language string        // BCP-47 hint, empty lets the provider detect
	Format   string        // upload format: "flac" (default) or "wav"
	Timeout  time.Duration // 0 selects the default client timeout
}

// New builds a transcriber for the given provider name. The set of names is
// closed: anything but openai, groq or fake is an error.
func New(provider string, opts Options) (Transcriber, error) {
	switch provider {
	case "openai":
		if opts.APIKey == "" {
			return nil, fmt.Errorf("openai transcriber requires an API key (set OPENAI_API_KEY)")
		}
		return newOpenAI(opts), nil
	case "groq":
		if opts.APIKey == "" {
			return nil, fmt.Errorf("groq transcriber requires an API key (set GROQ_API_KEY)")
		}
		return newGroq(opts), nil
	case "fake":
		return &Fake{Text: "fake transcription"}, nil
	default:
		return nil, fmt.Errorf("unknown transcriber %q (valid: openai, groq, fake)", provider)
	}
}

func firstNonEmpty(h http.Header, keys ...string) string {
	for _, k := range keys {
		if v := h.Get(k); v != "" {
			return v
		}
	}
	return "?"
}

// upload is a recording prepared for the wire.
type upload struct {
	data         []byte
	format       string
	rawBytes     int
	encodeTimeMs float64
}

// prepareUpload reads the recording and re-encodes it when the configured
// format asks for FLAC, then enforces the size limit.
func prepareUpload(path, format string) (*upload, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading recording: %w", err)
	}

	u := &upload{data: raw, format: "wav", rawBytes: len(raw)}
	if format != "wav" {
		start := time.Now()
		flacData, err := encoder.EncodeWAVFile(path)
		if err != nil {
			return nil, fmt.Errorf("re-encoding recording: %w", err)
		}
		u.data = flacData
		u.format = "flac"
		u.encodeTimeMs = float64(time.Since(start).Milliseconds())
	}

	if len(u.data) > MaxUploadBytes {
		return nil, fmt.Errorf("recording is %d bytes, over the %d byte upload limit", len(u.data), MaxUploadBytes)
	}
	return u, nil
}

// classify turns transport-level timeouts into ErrTimeout so callers can
// tell a slow provider from a broken one.
func classify(err error, provider string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", provider, ErrTimeout)
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%s: %w", provider, ErrTimeout)
	}
	return fmt.Errorf("%s: %w", provider, err)
}
