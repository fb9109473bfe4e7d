package providers

import "context"

// CompletionRequest is a single prompt sent to the AI service
type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Temperature  float64
}

// CompletionResult is the raw generated text. Callers must treat Text as
// untrusted, possibly-malformed JSON.
type CompletionResult struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
}

// ContentProvider defines the interface for the AI completion service
type ContentProvider interface {
	// Complete generates a completion for the request
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error)

	// Model returns the model identifier completions are generated with
	Model() string
}
