package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"time"

	"murmur/log"
)

const defaultGroqModel = "whisper-large-v3-turbo"

type Groq struct {
	client  *TracedClient
	apiURL  string
	apiKey  string
	model   string
	lang    string
	format  string
	timeout time.Duration
}

func newGroq(opts Options) *Groq {
	g := &Groq{
		client:  NewTracedClient(),
		apiURL:  "https://api.groq.com/openai/v1/audio/transcriptions",
		apiKey:  opts.APIKey,
		model:   opts.Model,
		lang:    opts.Language,
		format:  opts.Format,
		timeout: opts.Timeout,
	}
	if g.model == "" {
		g.model = defaultGroqModel
	}
	if g.timeout == 0 {
		g.timeout = defaultTimeout
	}
	go g.client.Warm(g.apiURL)
	return g
}

func (g *Groq) Name() string { return "groq" }

type groqResponse struct {
	Text     string  `json:"text"`
	Duration float64 `json:"duration"`
	Segments []struct {
		Text         string  `json:"text"`
		NoSpeechProb float64 `json:"no_speech_prob"`
		AvgLogProb   float64 `json:"avg_logprob"`
	} `json:"segments"`
}

func (g *Groq) Transcribe(ctx context.Context, audioPath string) (string, error) {
	u, err := prepareUpload(audioPath, g.format)
	if err != nil {
		return "", fmt.Errorf("groq: %w", err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "audio."+u.format)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(u.data); err != nil {
		return "", err
	}

	writer.WriteField("model", g.model)
	writer.WriteField("response_format", "verbose_json")
	if g.lang != "" {
		writer.WriteField("language", g.lang)
	}
	writer.Close()

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "POST", g.apiURL, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := g.client.Do(req)
	if err != nil {
		return "", classify(err, "groq")
	}
	if resp.StatusCode != 200 {
		return "", fmt.Errorf("groq API error %d: %s", resp.StatusCode, string(resp.Body))
	}

	var gResp groqResponse
	if err := json.Unmarshal(resp.Body, &gResp); err != nil {
		return "", fmt.Errorf("groq response parse error: %w", err)
	}

	// surface low per-segment confidence in the diagnostics log
	var worstNoSpeech float64
	for _, seg := range gResp.Segments {
		if seg.NoSpeechProb > worstNoSpeech {
			worstNoSpeech = seg.NoSpeechProb
		}
	}
	if worstNoSpeech > 0.5 {
		log.Warnf("groq: segment no_speech_prob %.2f, transcript may be unreliable", worstNoSpeech)
	}

	logUpload(u, "groq", resp.Metrics, gResp.Duration)

	return gResp.Text, nil
}
