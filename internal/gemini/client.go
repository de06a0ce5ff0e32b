package gemini

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

	"interview-mailer/internal/config"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com"

// LocalTestReply is returned when GEMINI_LOCAL_TEST is set, so the pipeline
// can run without the external provider. It deliberately contains a
// placeholder token to exercise the sanitizer.
const LocalTestReply = "Hello {name},\n\nThank you for your time. We will be in touch shortly regarding next steps."

var (
	ErrMissingKey   = errors.New("missing GEMINI_API_KEY")
	ErrUnauthorized = errors.New("gemini: unauthorized")
	ErrRateLimited  = errors.New("gemini: rate limited")
	ErrUnavailable  = errors.New("gemini: service unavailable")
)

// Client is a minimal generateContent API wrapper.
type Client struct {
	baseURL   string
	apiKey    string
	model     string
	localTest bool
	client    *http.Client
}

func NewClient(cfg config.Config) *Client {
	baseURL := cfg.GeminiBaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.GeminiTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:   baseURL,
		apiKey:    cfg.GeminiAPIKey,
		model:     cfg.GeminiModel,
		localTest: cfg.GeminiLocalTest,
		client:    &http.Client{Timeout: timeout},
	}
}

// Generate sends a single prompt and returns the first candidate's text.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c.localTest {
		return LocalTestReply, nil
	}
	if c.apiKey == "" {
		return "", ErrMissingKey
	}

	payload := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-goog-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", ErrUnauthorized
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", ErrRateLimited
	case resp.StatusCode >= 500:
		return "", ErrUnavailable
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		errorBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("gemini error: %s - %s", resp.Status, string(errorBody))
	}

	var response generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("decode gemini response: %w", err)
	}
	if len(response.Candidates) == 0 {
		return "", errors.New("no candidates in gemini response")
	}
	parts := response.Candidates[0].Content.Parts
	if len(parts) == 0 {
		return "", errors.New("no content parts in gemini response")
	}
	return strings.TrimSpace(parts[0].Text), nil
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []candidate `json:"candidates"`
}

type candidate struct {
	Content content `json:"content"`
}
