package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Adapter calls an OpenAI-compatible chat completions endpoint
// (OpenRouter, or Ollama's /v1).
type Adapter struct {
	key         string
	model       string
	endpoint    string
	temperature float64
	retries     uint64
	client      *http.Client
}

type Options struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	Retries     int
	HTTPClient  *http.Client
}

const (
	defaultModel   = "llama3.2:3b"
	requestTimeout = 5 * time.Minute
	openRouterPath = "/api/v1/chat/completions"
)

func New(o Options) *Adapter {
	if o.Model == "" {
		o.Model = defaultModel
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: requestTimeout}
	}
	return &Adapter{
		key:         o.APIKey,
		model:       o.Model,
		endpoint:    chatEndpoint(normalizeBaseURL(o.BaseURL)),
		temperature: o.Temperature,
		retries:     uint64(max(o.Retries, 0)),
		client:      o.HTTPClient,
	}
}

func (a *Adapter) Model() string { return a.model }

// chatEndpoint appends /chat/completions to a base URL carrying a path
// (".../v1") and uses the OpenRouter path otherwise.
func chatEndpoint(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Path == "" || u.Path == "/" {
		return baseURL + openRouterPath
	}
	return baseURL + "/chat/completions"
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("openrouter status %d: %s", e.code, e.body)
}

// Complete sends one system+user exchange and returns the assistant text.
// Network errors, 429 and 5xx are retried with exponential backoff while
// ctx allows.
func (a *Adapter) Complete(ctx context.Context, system, user string) (string, error) {
	payload := map[string]any{
		"model":       a.model,
		"stream":      false,
		"temperature": a.temperature,
		"messages": []map[string]any{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	var content string
	attempt := func() error {
		c, err := a.do(ctx, body)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(fmt.Errorf("openrouter (model=%s): %w", a.model, ctx.Err()))
			}
			var se *statusError
			if errors.As(err, &se) && se.code != http.StatusTooManyRequests && se.code < 500 {
				return backoff.Permanent(err)
			}
			return err
		}
		content = c
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxInterval = 10 * time.Second
	bo.MaxElapsedTime = 0
	if err := backoff.Retry(attempt, backoff.WithContext(backoff.WithMaxRetries(bo, a.retries), ctx)); err != nil {
		return "", err
	}
	return content, nil
}

func (a *Adapter) do(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	if a.key != "" {
		req.Header.Set("Authorization", "Bearer "+a.key)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", errors.New(redactSecrets(err.Error(), a.key))
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rb, readErr := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if readErr != nil {
			return "", &statusError{code: resp.StatusCode, body: fmt.Sprintf("read body failed: %v", readErr)}
		}
		return "", &statusError{code: resp.StatusCode, body: truncate(redactSecrets(string(rb), a.key), 400)}
	}

	var raw struct {
		Choices []struct {
			Message struct {
				Content any `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return "", backoff.Permanent(fmt.Errorf("decode response: %w", err))
	}
	if len(raw.Choices) == 0 {
		return "", backoff.Permanent(errors.New("openrouter: no choices"))
	}
	s, err := messageContentToString(raw.Choices[0].Message.Content)
	if err != nil {
		return "", backoff.Permanent(err)
	}
	return s, nil
}

func messageContentToString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		if strings.TrimSpace(x) == "" {
			return "", errors.New("openrouter: empty content")
		}
		return x, nil
	case []any:
		// Some providers return an array of {type,text} parts.
		var b strings.Builder
		for _, it := range x {
			m, ok := it.(map[string]any)
			if !ok {
				continue
			}
			if t, ok := m["text"].(string); ok {
				b.WriteString(t)
			}
		}
		s := b.String()
		if strings.TrimSpace(s) == "" {
			return "", errors.New("openrouter: empty content")
		}
		return s, nil
	default:
		return "", fmt.Errorf("openrouter: unexpected content type %T", v)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var (
	bearerTokenRE = regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9._-]+\b`)
	authHeaderRE  = regexp.MustCompile(`(?i)(authorization\s*[:=]\s*)([^\n\r,;]+)`)
	apiKeyFieldRE = regexp.MustCompile(`(?i)(api[_-]?key\s*[:=]\s*)([^\n\r,;]+)`)
)

func redactSecrets(s, apiKey string) string {
	if s == "" {
		return s
	}
	out := s
	if apiKey != "" {
		out = strings.ReplaceAll(out, apiKey, "[REDACTED]")
	}
	out = bearerTokenRE.ReplaceAllString(out, "Bearer [REDACTED]")
	out = authHeaderRE.ReplaceAllString(out, "${1}[REDACTED]")
	out = apiKeyFieldRE.ReplaceAllString(out, "${1}[REDACTED]")
	return out
}
