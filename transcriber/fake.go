package transcriber

import (
	"context"
	"sync"
	"time"
)

// Fake is an in-process transcriber for tests and the -doctor dry run.
type Fake struct {
	Text  string
	Err   error
	Delay time.Duration

	mu    sync.Mutex
	paths []string
}

func (f *Fake) Name() string { return "fake" }

func (f *Fake) Transcribe(ctx context.Context, audioPath string) (string, error) {
	f.mu.Lock()
	f.paths = append(f.paths, audioPath)
	f.mu.Unlock()

	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
			return "", classify(ctx.Err(), "fake")
		}
	}
	if f.Err != nil {
		return "", f.Err
	}
	return f.Text, nil
}

// Calls returns the audio paths passed to Transcribe, in order.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.paths...)
}
