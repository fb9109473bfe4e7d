package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drugfactsio/backend/internal/domain/providers"
	"github.com/drugfactsio/backend/pkg/config"
	apperrors "github.com/drugfactsio/backend/pkg/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(&config.AnthropicConfig{
		APIKey:         "test-key",
		Model:          "claude-3-5-sonnet-20241022",
		MaxTokens:      2500,
		RateLimitRPM:   -1,
		RateLimitBurst: 0,
	})
	require.NoError(t, err)

	return client.WithBaseURL(server.URL), server
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient(&config.AnthropicConfig{})
	assert.Error(t, err)

	_, err = NewClient(nil)
	assert.Error(t, err)
}

func TestCompleteSuccess(t *testing.T) {
	var captured struct {
		apiKey  string
		version string
		body    messagesRequest
	}

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		captured.apiKey = r.Header.Get("x-api-key")
		captured.version = r.Header.Get("anthropic-version")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured.body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_01",
			"model": "claude-3-5-sonnet-20241022",
			"stop_reason": "end_turn",
			"content": [{"type": "text", "text": "{\"title\": \"Lipitor\"}"}],
			"usage": {"input_tokens": 812, "output_tokens": 344}
		}`))
	})

	result, err := client.Complete(context.Background(), providers.CompletionRequest{
		SystemPrompt: "system prompt",
		UserPrompt:   "user prompt",
		Temperature:  0.2,
	})
	require.NoError(t, err)

	assert.Equal(t, `{"title": "Lipitor"}`, result.Text)
	assert.Equal(t, "claude-3-5-sonnet-20241022", result.Model)
	assert.Equal(t, 812, result.InputTokens)
	assert.Equal(t, 344, result.OutputTokens)

	assert.Equal(t, "test-key", captured.apiKey)
	assert.Equal(t, defaultAPIVersion, captured.version)
	assert.Equal(t, "system prompt", captured.body.System)
	require.Len(t, captured.body.Messages, 1)
	assert.Equal(t, "user", captured.body.Messages[0].Role)
	assert.Equal(t, 2500, captured.body.MaxTokens)
	require.NotNil(t, captured.body.Temperature)
	assert.InDelta(t, 0.2, *captured.body.Temperature, 0.001)
}

func TestCompleteConcatenatesTextBlocks(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"content": [
				{"type": "text", "text": "first "},
				{"type": "tool_use", "text": "ignored"},
				{"type": "text", "text": "second"}
			],
			"usage": {"input_tokens": 1, "output_tokens": 1}
		}`))
	})

	result, err := client.Complete(context.Background(), providers.CompletionRequest{UserPrompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "first second", result.Text)
}

func TestCompleteMissingText(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"content": [], "usage": {"input_tokens": 1, "output_tokens": 0}}`))
	})

	_, err := client.Complete(context.Background(), providers.CompletionRequest{UserPrompt: "p"})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExternal))
}

func TestCompleteRateLimited(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "12")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"type": "rate_limit_error", "message": "rate limited"}}`))
	})

	_, err := client.Complete(context.Background(), providers.CompletionRequest{UserPrompt: "p"})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeRateLimited))

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.True(t, appErr.Retryable)
	assert.Equal(t, 12*time.Second, appErr.RetryAfter)
}

func TestCompleteUnauthorized(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"type": "authentication_error", "message": "invalid key"}}`))
	})

	_, err := client.Complete(context.Background(), providers.CompletionRequest{UserPrompt: "p"})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnauthorized))
}

func TestCompleteServerErrorRetryable(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": {"type": "api_error", "message": "internal"}}`))
	})

	_, err := client.Complete(context.Background(), providers.CompletionRequest{UserPrompt: "p"})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrorTypeExternal, appErr.Type)
	assert.True(t, appErr.Retryable)
}

func TestCompleteBadRequestTerminal(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"type": "invalid_request_error", "message": "bad prompt"}}`))
	})

	_, err := client.Complete(context.Background(), providers.CompletionRequest{UserPrompt: "p"})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrorTypeExternal, appErr.Type)
	assert.False(t, appErr.Retryable)
}

func TestTokenBucketCloseStopsRefill(t *testing.T) {
	bucket := newTokenBucketWithRate(60000, 1)

	require.NoError(t, bucket.Wait(context.Background()))
	bucket.Close()

	// A tick may have raced Close; let the loop settle, then drain any
	// residual token so only post-Close refills could unblock Wait.
	time.Sleep(20 * time.Millisecond)
	for {
		select {
		case <-bucket.tokens:
			continue
		default:
		}
		break
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, bucket.Wait(ctx), context.DeadlineExceeded)
}
