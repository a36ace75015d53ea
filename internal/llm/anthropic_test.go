package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type anthropicBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type capturedAnthropicRequest struct {
	Model       string           `json:"model"`
	MaxTokens   int              `json:"max_tokens"`
	System      []anthropicBlock `json:"system"`
	Temperature *float64         `json:"temperature"`
	Messages    []struct {
		Role    string           `json:"role"`
		Content []anthropicBlock `json:"content"`
	} `json:"messages"`
}

func newAnthropicStub(t *testing.T, status int, captured *capturedAnthropicRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(captured))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"bad model"}}`))
			return
		}
		w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-3-5-sonnet-20241022",
			"content": [
				{"type": "text", "text": "Hello "},
				{"type": "text", "text": "there"}
			],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 20, "output_tokens": 4}
		}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestAnthropicClient(t *testing.T, srv *httptest.Server) *AnthropicClient {
	t.Helper()
	client, err := NewAnthropicClient("test-key", 0, option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	require.NoError(t, err)
	return client
}

func TestAnthropicClient_Complete(t *testing.T) {
	var captured capturedAnthropicRequest
	client := newTestAnthropicClient(t, newAnthropicStub(t, http.StatusOK, &captured))

	resp, err := client.Complete(context.Background(), &CompletionRequest{
		Model: "claude-3-5-sonnet-20241022",
		Messages: []ChatMessage{
			{Role: "system", Content: "You are a helpful assistant."},
			{Role: "user", Content: "hi"},
			{Role: "assistant", Content: "hello"},
			{Role: "user", Content: "cases in France?"},
		},
		Temperature: 0.4,
	})
	require.NoError(t, err)

	assert.Equal(t, "Hello there", resp.Content, "text blocks are concatenated")
	assert.Equal(t, "claude-3-5-sonnet-20241022", resp.Model)
	assert.Equal(t, 20, resp.TokensIn)
	assert.Equal(t, 4, resp.TokensOut)
	assert.Equal(t, "end_turn", resp.StopReason)

	assert.Equal(t, "claude-3-5-sonnet-20241022", captured.Model)
	assert.Equal(t, 4096, captured.MaxTokens)
	require.Len(t, captured.System, 1)
	assert.Equal(t, "You are a helpful assistant.", captured.System[0].Text)
	require.Len(t, captured.Messages, 3)
	assert.Equal(t, "user", captured.Messages[0].Role)
	assert.Equal(t, "assistant", captured.Messages[1].Role)
	require.Len(t, captured.Messages[2].Content, 1)
	assert.Equal(t, "cases in France?", captured.Messages[2].Content[0].Text)
	require.NotNil(t, captured.Temperature)
	assert.InDelta(t, 0.4, *captured.Temperature, 1e-6)
}

func TestAnthropicClient_ClampsTemperature(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"above range", 1.7, 1.0},
		{"upper bound", 1.0, 1.0},
		{"zero", 0, 0},
		{"negative", -0.5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured capturedAnthropicRequest
			client := newTestAnthropicClient(t, newAnthropicStub(t, http.StatusOK, &captured))

			_, err := client.Complete(context.Background(), &CompletionRequest{
				Messages:    []ChatMessage{{Role: "user", Content: "hi"}},
				Temperature: tt.in,
			})
			require.NoError(t, err)

			require.NotNil(t, captured.Temperature)
			assert.InDelta(t, tt.want, *captured.Temperature, 1e-6)
			assert.Equal(t, "claude-3-5-haiku-20241022", captured.Model, "default model")
			assert.Empty(t, captured.System)
		})
	}
}

func TestAnthropicClient_Error(t *testing.T) {
	var captured capturedAnthropicRequest
	client := newTestAnthropicClient(t, newAnthropicStub(t, http.StatusBadRequest, &captured))

	_, err := client.Complete(context.Background(), &CompletionRequest{
		Messages: []ChatMessage{{Role: "user", Content: "hi"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}
