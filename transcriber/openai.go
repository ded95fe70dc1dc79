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

const defaultOpenAIModel = "gpt-4o-transcribe"

type OpenAI struct {
	client  *TracedClient
	apiURL  string
	apiKey  string
	model   string
	lang    string
	format  string
	timeout time.Duration
}

func newOpenAI(opts Options) *OpenAI {
	o := &OpenAI{
		client:  NewTracedClient(),
		apiURL:  "https://api.openai.com/v1/audio/transcriptions",
		apiKey:  opts.APIKey,
		model:   opts.Model,
		lang:    opts.Language,
		format:  opts.Format,
		timeout: opts.Timeout,
	}
	if o.model == "" {
		o.model = defaultOpenAIModel
	}
	if o.timeout == 0 {
		o.timeout = defaultTimeout
	}
	go o.client.Warm(o.apiURL)
	return o
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Transcribe(ctx context.Context, audioPath string) (string, error) {
	u, err := prepareUpload(audioPath, o.format)
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
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

	writer.WriteField("model", o.model)
	writer.WriteField("response_format", "json")
	if o.lang != "" {
		writer.WriteField("language", o.lang)
	}
	writer.Close()

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "POST", o.apiURL, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := o.client.Do(req)
	if err != nil {
		return "", classify(err, "openai")
	}
	if resp.StatusCode != 200 {
		return "", fmt.Errorf("openai API error %d: %s", resp.StatusCode, string(resp.Body))
	}

	var oResp struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(resp.Body, &oResp); err != nil {
		return "", fmt.Errorf("openai response parse error: %w", err)
	}

	logUpload(u, "openai", resp.Metrics, 0)
	remaining := firstNonEmpty(resp.Header, "x-ratelimit-remaining-requests")
	limit := firstNonEmpty(resp.Header, "x-ratelimit-limit-requests")
	log.Infof("openai rate limit: %s/%s", remaining, limit)

	return oResp.Text, nil
}

func logUpload(u *upload, provider string, m *NetworkMetrics, audioS float64) {
	log.TranscriptionMetrics(log.Metrics{
		AudioLengthS:   audioS,
		RawSizeKB:      float64(u.rawBytes) / 1024,
		UploadSizeKB:   float64(len(u.data)) / 1024,
		CompressionPct: (1 - float64(len(u.data))/float64(u.rawBytes)) * 100,
		EncodeTimeMs:   u.encodeTimeMs,
		DNSTimeMs:      float64(m.DNS.Milliseconds()),
		TLSTimeMs:      float64(m.TLS.Milliseconds()),
		TTFBMs:         float64(m.TTFB.Milliseconds()),
		TotalTimeMs:    float64(m.Total.Milliseconds()),
	}, u.format, provider, m.ConnReused, m.TLSProtocol)
}
