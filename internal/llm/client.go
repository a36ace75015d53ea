// Package llm provides the chat-completion client interface, its provider
// implementations and the model selector.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotConfigured is returned by a client created without credentials.
var ErrNotConfigured = errors.New("LLM provider is not configured")

// CompletionRequest represents a completion request.
type CompletionRequest struct {
	Model       string
	Messages    []ChatMessage
	MaxTokens   int
	Temperature float64
}

// ChatMessage represents a chat message for LLM.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionResponse represents a completion response.
type CompletionResponse struct {
	Content    string
	Model      string
	TokensIn   int
	TokensOut  int
	StopReason string
	LatencyMs  int64
}

// Client is the interface for LLM providers. Calls are synchronous: one
// request, one full reply.
type Client interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Name returns the provider name.
	Name() string
}

// Provider is the type of LLM provider.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

// Options configures NewClient.
type Options struct {
	APIKey    string
	BaseURL   string
	MaxTokens int
}

// NewClient creates a new LLM client based on provider.
func NewClient(provider Provider, opts Options) (Client, error) {
	switch provider {
	case ProviderOpenAI:
		c, err := NewOpenAIClient(opts.APIKey, opts.BaseURL, opts.MaxTokens)
		if err != nil {
			return nil, err
		}
		return c, nil
	case ProviderAnthropic:
		c, err := NewAnthropicClient(opts.APIKey, opts.MaxTokens)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", provider)
	}
}

// NewUnconfiguredClient returns a client whose every completion fails with
// ErrNotConfigured, so the rest of the dashboard can run without an API key.
func NewUnconfiguredClient(provider Provider) Client {
	return unconfiguredClient{provider: provider}
}

type unconfiguredClient struct {
	provider Provider
}

func (c unconfiguredClient) Complete(context.Context, *CompletionRequest) (*CompletionResponse, error) {
	return nil, fmt.Errorf("%w: %s", ErrNotConfigured, c.provider)
}

func (c unconfiguredClient) Name() string {
	return string(c.provider)
}
