package cleaner

import (
	"context"
	"sync"
	"time"
)

// Fake is an in-process cleaner for tests.
type Fake struct {
	Result string
	Err    error
	Delay  time.Duration

	mu    sync.Mutex
	texts []string
}

func (f *Fake) Clean(ctx context.Context, text string) (string, error) {
	f.mu.Lock()
	f.texts = append(f.texts, text)
	f.mu.Unlock()

	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.Err != nil {
		return "", f.Err
	}
	if f.Result != "" {
		return f.Result, nil
	}
	return text, nil
}

// Calls returns the texts passed to Clean, in order.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}
