package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature *float64      `json:"temperature"`
}

func newOpenAIStub(t *testing.T, status int, captured *capturedRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(captured))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			w.Write([]byte(`{"error":{"message":"upstream exploded","type":"server_error"}}`))
			return
		}
		w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-4-0613",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "Hello there"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 3, "total_tokens": 15}
		}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIClient_Complete(t *testing.T) {
	var captured capturedRequest
	srv := newOpenAIStub(t, http.StatusOK, &captured)

	client, err := NewOpenAIClient("test-key", srv.URL+"/v1", 0)
	require.NoError(t, err)

	resp, err := client.Complete(context.Background(), &CompletionRequest{
		Model: "gpt-4",
		Messages: []ChatMessage{
			{Role: "system", Content: "You are a helpful assistant."},
			{Role: "user", Content: "hi"},
		},
		Temperature: 0.7,
	})
	require.NoError(t, err)

	assert.Equal(t, "Hello there", resp.Content)
	assert.Equal(t, "gpt-4-0613", resp.Model)
	assert.Equal(t, 12, resp.TokensIn)
	assert.Equal(t, 3, resp.TokensOut)
	assert.Equal(t, "stop", resp.StopReason)

	assert.Equal(t, "gpt-4", captured.Model)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	require.NotNil(t, captured.Temperature)
	assert.InDelta(t, 0.7, *captured.Temperature, 1e-6)
}

func TestOpenAIClient_ZeroTemperatureIsSent(t *testing.T) {
	var captured capturedRequest
	srv := newOpenAIStub(t, http.StatusOK, &captured)

	client, err := NewOpenAIClient("test-key", srv.URL+"/v1", 0)
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), &CompletionRequest{
		Model:    "gpt-3.5-turbo",
		Messages: []ChatMessage{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)

	require.NotNil(t, captured.Temperature, "temperature must not be omitted")
	assert.InDelta(t, 0, *captured.Temperature, 1e-6)
}

func TestOpenAIClient_Error(t *testing.T) {
	var captured capturedRequest
	srv := newOpenAIStub(t, http.StatusInternalServerError, &captured)

	client, err := NewOpenAIClient("test-key", srv.URL+"/v1", 0)
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), &CompletionRequest{
		Messages: []ChatMessage{{Role: "user", Content: "hi"}},
	})
	assert.Error(t, err)
}

func TestNewClient(t *testing.T) {
	_, err := NewClient(ProviderOpenAI, Options{})
	assert.Error(t, err, "missing key")

	c, err := NewClient(ProviderOpenAI, Options{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "openai", c.Name())

	c, err = NewClient(ProviderAnthropic, Options{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", c.Name())

	_, err = NewClient(Provider("other"), Options{APIKey: "k"})
	assert.Error(t, err)
}

func TestUnconfiguredClient(t *testing.T) {
	c := NewUnconfiguredClient(ProviderAnthropic)
	assert.Equal(t, "anthropic", c.Name())

	_, err := c.Complete(context.Background(), &CompletionRequest{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}
