package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/drugfactsio/backend/internal/domain/providers"
	"github.com/drugfactsio/backend/pkg/config"
	apperrors "github.com/drugfactsio/backend/pkg/errors"
)

const (
	defaultBaseURL    = "https://api.anthropic.com"
	defaultAPIVersion = "2023-06-01"
	defaultModel      = "claude-3-5-sonnet-20241022"
	defaultMaxTokens  = 2500
)

// Client implements the Anthropic content provider over the Messages API.
type Client struct {
	apiKey     string
	model      string
	maxTokens  int
	baseURL    string
	apiVersion string
	httpClient *http.Client
	limiter    *tokenBucket
}

// NewClient creates a new Anthropic client.
func NewClient(cfg *config.AnthropicConfig) (*Client, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, errors.New("anthropic api key is required")
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	limiter := newTokenBucket(cfg.RateLimitRPM, cfg.RateLimitBurst)

	return &Client{
		apiKey:     cfg.APIKey,
		model:      model,
		maxTokens:  maxTokens,
		baseURL:    defaultBaseURL,
		apiVersion: defaultAPIVersion,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		limiter: limiter,
	}, nil
}

// WithBaseURL overrides the API base URL. Used by tests.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = strings.TrimSuffix(baseURL, "/")
	return c
}

// Model returns the configured model identifier
func (c *Client) Model() string {
	return c.model
}

// Close stops the rate limiter's refill goroutine.
func (c *Client) Close() {
	if c.limiter != nil {
		c.limiter.Close()
	}
}

type messagesRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	System      string    `json:"system,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	ID         string `json:"id"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Content    []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type apiErrorEnvelope struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete generates a completion for the request.
func (c *Client) Complete(ctx context.Context, req providers.CompletionRequest) (*providers.CompletionResult, error) {
	if c.limiter != nil {
		waitStart := time.Now()
		if err := c.limiter.Wait(ctx); err != nil {
			recordAnthropicMetric(ctx, c.model, 0, 0, err)
			return nil, err
		}
		recordAnthropicRateLimitWait(ctx, c.model, time.Since(waitStart))
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	apiReq := messagesRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages: []message{
			{Role: "user", Content: req.UserPrompt},
		},
	}
	if req.SystemPrompt != "" {
		apiReq.System = req.SystemPrompt
	}
	// Temperature 0.0 is valid (deterministic); only negative means unset.
	if req.Temperature >= 0 {
		apiReq.Temperature = &req.Temperature
	}

	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", c.apiVersion)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		recordAnthropicMetric(ctx, c.model, 0, time.Since(start), err)
		return nil, apperrors.NewExternalError("anthropic request failed", err, true)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := c.classifyError(resp)
		recordAnthropicMetric(ctx, c.model, resp.StatusCode, time.Since(start), apiErr)
		return nil, apiErr
	}

	var envelope messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		recordAnthropicMetric(ctx, c.model, resp.StatusCode, time.Since(start), err)
		return nil, apperrors.NewExternalError("failed to decode anthropic response", err, false)
	}

	var builder strings.Builder
	for _, block := range envelope.Content {
		if block.Type == "text" {
			builder.WriteString(block.Text)
		}
	}

	text := builder.String()
	if text == "" {
		err := errors.New("anthropic response missing text content")
		recordAnthropicMetric(ctx, c.model, resp.StatusCode, time.Since(start), err)
		return nil, apperrors.NewExternalError("anthropic response missing text content", err, false)
	}

	recordAnthropicMetric(ctx, c.model, resp.StatusCode, time.Since(start), nil)
	return &providers.CompletionResult{
		Text:         text,
		Model:        envelope.Model,
		InputTokens:  envelope.Usage.InputTokens,
		OutputTokens: envelope.Usage.OutputTokens,
	}, nil
}

// classifyError maps HTTP failures onto the application error taxonomy.
// 429 carries a suggested retry-after; 5xx and overloaded responses are
// retryable; remaining 4xx are terminal.
func (c *Client) classifyError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var envelope apiErrorEnvelope
	detail := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		detail = envelope.Error.Message
	}

	cause := fmt.Errorf("anthropic API error (status %d, type %s): %s", resp.StatusCode, envelope.Error.Type, detail)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || envelope.Error.Type == "rate_limit_error":
		retryAfter := 30 * time.Second
		if header := resp.Header.Get("Retry-After"); header != "" {
			if secs, err := strconv.Atoi(header); err == nil {
				retryAfter = time.Duration(secs) * time.Second
			}
		}
		return apperrors.NewRateLimitedError(detail, retryAfter)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return apperrors.NewUnauthorizedError(detail)
	case resp.StatusCode >= 500 || envelope.Error.Type == "overloaded_error":
		return apperrors.NewExternalError("anthropic service error", cause, true)
	default:
		return apperrors.NewExternalError("anthropic request rejected", cause, false)
	}
}
