// Package cleaner rewrites raw transcripts through a chat-completion model:
// punctuation, obvious mis-hearings, filler words. It is best-effort; any
// failure means the caller falls back to the raw transcript.
package cleaner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrTimeout marks a cleaning attempt that ran out of time.
var ErrTimeout = errors.New("cleaning timed out")

const (
	defaultModel   = "gpt-4o-mini"
	defaultTimeout = 10 * time.Second

	systemPrompt = "You clean up raw voice-typing transcripts. Fix punctuation, " +
		"capitalization and obvious transcription mistakes, and remove filler " +
		"words. Keep the speaker's wording and meaning. Reply with the cleaned " +
		"text only, no commentary."
)

type Cleaner interface {
	Clean(ctx context.Context, text string) (string, error)
}

type OpenAI struct {
	client  *http.Client
	apiURL  string
	apiKey  string
	model   string
	timeout time.Duration
}

func New(apiKey, model string, timeout time.Duration) (*OpenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("cleaner requires an API key (set OPENAI_API_KEY)")
	}
	if model == "" {
		model = defaultModel
	}
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &OpenAI{
		client:  &http.Client{},
		apiURL:  "https://api.openai.com/v1/chat/completions",
		apiKey:  apiKey,
		model:   model,
		timeout: timeout,
	}, nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *OpenAI) Clean(ctx context.Context, text string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: text},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", ErrTimeout
		}
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			return "", ErrTimeout
		}
		return "", fmt.Errorf("cleaning request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading cleaning response: %w", err)
	}
	if resp.StatusCode != 200 {
		return "", fmt.Errorf("cleaning API error %d: %s", resp.StatusCode, string(body))
	}

	var cResp chatResponse
	if err := json.Unmarshal(body, &cResp); err != nil {
		return "", fmt.Errorf("cleaning response parse error: %w", err)
	}
	if len(cResp.Choices) == 0 {
		return "", fmt.Errorf("cleaning response has no choices")
	}

	cleaned := strings.TrimSpace(cResp.Choices[0].Message.Content)
	if cleaned == "" {
		return "", fmt.Errorf("cleaning returned empty text")
	}
	return cleaned, nil
}
