// Package vision talks to the Gemini generateContent API to obtain a
// structured quality assessment of a preview image.
package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"lumina-backend/internal/models"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-2.5-flash"
	defaultTimeout = 60 * time.Second
)

var (
	// ErrEmptyResponse means the model returned no usable text.
	ErrEmptyResponse = errors.New("vision: empty response")
	defaultBackoffs  = []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}
)

type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

type Client struct {
	baseURL    string
	apiKey     string
	model      string
	maxRetries int
	backoffs   []time.Duration
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithBackoffs overrides the delays between retries.
func WithBackoffs(backoffs ...time.Duration) Option {
	return func(c *Client) {
		if len(backoffs) > 0 {
			c.backoffs = backoffs
		}
	}
}

func NewClient(cfg Config, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &Client{
		baseURL:    strings.TrimSuffix(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		model:      strings.TrimSpace(cfg.Model),
		maxRetries: cfg.MaxRetries,
		backoffs:   defaultBackoffs,
		httpClient: &http.Client{Timeout: timeout},
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.model == "" {
		c.model = defaultModel
	}
	if c.maxRetries <= 0 {
		c.maxRetries = 3
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generationConfig struct {
	ResponseMimeType string  `json:"responseMimeType"`
	Temperature      float64 `json:"temperature"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("vision request failed: status %d, body: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// Temporary reports whether retrying the request may succeed.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// Analyze sends image to the model and decodes its assessment.
func (c *Client) Analyze(ctx context.Context, image []byte, mimeType string) (*models.VisionAnalysis, error) {
	if c.apiKey == "" {
		return nil, errors.New("vision: api key required")
	}
	if len(image) == 0 {
		return nil, errors.New("vision: image required")
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(image)
	}

	reqBody := generateRequest{
		Contents: []content{{
			Role: "user",
			Parts: []part{
				{Text: AnalysisPrompt},
				{InlineData: &inlineData{MimeType: mimeType, Data: base64.StdEncoding.EncodeToString(image)}},
			},
		}},
		GenerationConfig: generationConfig{ResponseMimeType: "application/json"},
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var text string
	err = c.RetryWithBackoff(ctx, func() error {
		var callErr error
		text, callErr = c.generate(ctx, jsonData)
		return callErr
	}, c.maxRetries)
	if err != nil {
		return nil, err
	}
	return DecodeAnalysis(text)
}

func (c *Client) generate(ctx context.Context, body []byte) (string, error) {
	url := c.baseURL + "/models/" + c.model + ":generateContent"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-goog-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var result generateResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if result.PromptFeedback != nil && result.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%w: blocked (%s)", ErrEmptyResponse, result.PromptFeedback.BlockReason)
	}
	for _, cand := range result.Candidates {
		var sb strings.Builder
		for _, p := range cand.Content.Parts {
			sb.WriteString(p.Text)
		}
		if text := strings.TrimSpace(sb.String()); text != "" {
			return text, nil
		}
	}
	return "", ErrEmptyResponse
}

// DecodeAnalysis parses the model text into a VisionAnalysis. Markdown code
// fences around the JSON are tolerated.
func DecodeAnalysis(text string) (*models.VisionAnalysis, error) {
	cleaned := stripCodeFence(text)
	if cleaned == "" {
		return nil, ErrEmptyResponse
	}
	var blocks map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &blocks); err != nil {
		return nil, fmt.Errorf("failed to decode analysis: %w", err)
	}
	return &models.VisionAnalysis{
		Keywords:      decodeBlock[[]string](blocks, "keywords"),
		Analysis:      decodeBlock[*models.AnalysisNotes](blocks, "analysis"),
		Technical:     decodeBlock[*models.TechnicalScores](blocks, "technical"),
		ColorAnalysis: decodeBlock[*models.ColorAnalysis](blocks, "color_analysis"),
		Composition:   decodeBlock[*models.CompositionScores](blocks, "composition"),
		Aesthetic:     decodeBlock[*models.AestheticScores](blocks, "aesthetic"),
	}, nil
}

// decodeBlock decodes one top-level block, dropping it when malformed.
func decodeBlock[T any](blocks map[string]json.RawMessage, key string) T {
	var v T
	raw, ok := blocks[key]
	if !ok {
		return v
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		var zero T
		return zero
	}
	return v
}

func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimPrefix(text, "json")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

// RetryWithBackoff runs fn up to maxRetries times, sleeping between attempts.
// Only transport failures, 429 and 5xx responses are retried.
func (c *Client) RetryWithBackoff(ctx context.Context, fn func() error, maxRetries int) error {
	var lastErr error
	for i := 0; i < maxRetries; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable(err) || i == maxRetries-1 {
			break
		}

		delay := c.backoffs[len(c.backoffs)-1]
		if i < len(c.backoffs) {
			delay = c.backoffs[i]
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("vision retry aborted: %w", ctx.Err())
		case <-timer.C:
		}
	}
	if !retryable(lastErr) {
		return lastErr
	}
	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}

func retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	return !errors.Is(err, ErrEmptyResponse)
}
