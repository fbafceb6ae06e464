// Package llm provides LLM client interfaces and implementations.
package llm

import (
	"context"
	"fmt"
)

// CompletionRequest represents a completion request.
type CompletionRequest struct {
	Model       string
	System      string
	Messages    []ChatMessage
	MaxTokens   int
	Temperature float64
	// Functions the model may call instead of answering in text.
	Functions []FunctionDecl
	// JSON asks for a JSON object as the text answer.
	JSON bool
}

// ChatMessage represents a chat message for LLM.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// FunctionDecl declares a callable function with a JSON schema for its arguments.
type FunctionDecl struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// FunctionCall is a function invocation returned by the model.
type FunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// CompletionResponse represents a completion response.
type CompletionResponse struct {
	Content      string
	FunctionCall *FunctionCall
	Model        string
	TokensIn     int
	TokensOut    int
	StopReason   string
	LatencyMs    int64
}

// Client is the interface for LLM providers.
type Client interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Name returns the provider name.
	Name() string
}

// Provider is the type of LLM provider.
type Provider string

const (
	ProviderNone      Provider = ""
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	ProviderGemini    Provider = "gemini"
)

// NewClient creates a new LLM client based on provider. ProviderNone yields
// a nil client; the assistant then runs on its deterministic paths only.
func NewClient(ctx context.Context, provider Provider, apiKey, model string) (Client, error) {
	switch provider {
	case ProviderNone:
		return nil, nil
	case ProviderAnthropic:
		return NewAnthropicClient(apiKey, model)
	case ProviderOpenAI:
		return NewOpenAIClient(apiKey, model)
	case ProviderGemini:
		return NewGeminiClient(ctx, apiKey, model)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", provider)
	}
}
