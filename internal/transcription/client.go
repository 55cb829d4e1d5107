package transcription

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"interview-insights-go/internal/logger"
)

// Client is the speech/analysis capability the adapter talks to. Injected as
// a dependency so workers own the lifecycle and tests can stub it.
type Client interface {
	Transcribe(ctx context.Context, req Request) (string, error)
}

// Request is one sub-range transcription call.
type Request struct {
	AudioWAV    []byte
	MimeType    string
	Language    string
	Diarization bool
	Prompt      string
}

// ServiceError wraps gateway failures; Transient marks retry eligibility.
type ServiceError struct {
	Msg       string
	Transient bool
	Err       error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transcription service: %s: %v", e.Msg, e.Err)
	}
	return "transcription service: " + e.Msg
}

func (e *ServiceError) Unwrap() error { return e.Err }

// GatewayClient calls an OpenAI-style chat-completions gateway that accepts
// inline base64 audio and returns the model's text content.
type GatewayClient struct {
	URL        string
	APIKey     string
	Model      string
	HTTPClient *http.Client
	MaxElapsed time.Duration
}

func NewGatewayClient(url, apiKey, model string) *GatewayClient {
	return &GatewayClient{
		URL:        url,
		APIKey:     apiKey,
		Model:      model,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
		MaxElapsed: 90 * time.Second,
	}
}

type gatewayMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type gatewayRequest struct {
	Model       string           `json:"model"`
	Messages    []gatewayMessage `json:"messages"`
	Audio       string           `json:"audio"`
	MimeType    string           `json:"mime_type"`
	Language    string           `json:"language,omitempty"`
	Diarization bool             `json:"diarization"`
	Temperature float64          `json:"temperature"`
}

func (c *GatewayClient) Transcribe(ctx context.Context, req Request) (string, error) {
	log := logger.New().WithField("component", "transcription.gateway")

	if c.URL == "" || c.APIKey == "" {
		return "", &ServiceError{Msg: "gateway not configured"}
	}

	body := gatewayRequest{
		Model:       c.Model,
		Messages:    []gatewayMessage{{Role: "user", Content: req.Prompt}},
		Audio:       base64.StdEncoding.EncodeToString(req.AudioWAV),
		MimeType:    req.MimeType,
		Language:    req.Language,
		Diarization: req.Diarization,
		Temperature: 0.0,
	}
	data, _ := json.Marshal(body)

	var content string
	var lastErr error

	op := func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(data))
		if err != nil {
			return backoff.Permanent(err)
		}
		httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := c.HTTPClient.Do(httpReq)
		if err != nil {
			lastErr = &ServiceError{Msg: "request failed", Transient: true, Err: err}
			log.WithError(err).Warn("gateway request failed")
			return lastErr
		}
		defer resp.Body.Close()

		respBody, _ := io.ReadAll(resp.Body)
		if resp.StatusCode >= 500 {
			lastErr = &ServiceError{Msg: fmt.Sprintf("server error %d", resp.StatusCode), Transient: true}
			return lastErr
		}
		if resp.StatusCode >= 400 {
			lastErr = &ServiceError{Msg: fmt.Sprintf("client error %d: %s", resp.StatusCode, truncate(respBody, 200))}
			return backoff.Permanent(lastErr)
		}

		inner := contentFromChoices(respBody)
		if inner == "" {
			// non-standard body; hand the raw text downstream and let the
			// parser's fallback deal with it
			inner = string(respBody)
		}
		content = inner
		lastErr = nil
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = c.MaxElapsed
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		if lastErr != nil {
			return "", lastErr
		}
		return "", &ServiceError{Msg: "gateway call failed", Transient: true, Err: err}
	}
	return content, nil
}

// contentFromChoices reads openai-style choices[0].message.content.
func contentFromChoices(body []byte) string {
	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil || len(parsed.Choices) == 0 {
		return ""
	}
	return parsed.Choices[0].Message.Content
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
