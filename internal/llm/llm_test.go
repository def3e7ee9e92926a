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

func newTestServer(t *testing.T, handler func(req map[string]any) (int, string)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		status, body := handler(req)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIClient_Complete(t *testing.T) {
	var captured map[string]any
	srv := newTestServer(t, func(req map[string]any) (int, string) {
		captured = req
		return http.StatusOK, `{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Spend less on dining."},"finish_reason":"stop"}]}`
	})

	c := NewOpenAIClient(Config{APIKey: "test-key", Model: "gpt-4", BaseURL: srv.URL + "/", Temperature: 0.7, MaxTokens: 500})
	reply, err := c.Complete(context.Background(), "You are a financial advisor chatbot.", "How do I save?")
	require.NoError(t, err)
	assert.Equal(t, "Spend less on dining.", reply)

	assert.Equal(t, "gpt-4", captured["model"])
	assert.EqualValues(t, 500, captured["max_tokens"])
	assert.InDelta(t, 0.7, captured["temperature"], 1e-6)

	msgs, ok := captured["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "user", msgs[1].(map[string]any)["role"])
	assert.Equal(t, "How do I save?", msgs[1].(map[string]any)["content"])
}

func TestOpenAIClient_EmptyChoices(t *testing.T) {
	srv := newTestServer(t, func(map[string]any) (int, string) {
		return http.StatusOK, `{"id":"c1","object":"chat.completion","choices":[]}`
	})

	c := NewOpenAIClient(Config{APIKey: "test-key", BaseURL: srv.URL})
	_, err := c.Complete(context.Background(), "s", "u")
	assert.ErrorIs(t, err, ErrEmptyReply)
}

func TestOpenAIClient_ProviderError(t *testing.T) {
	srv := newTestServer(t, func(map[string]any) (int, string) {
		return http.StatusUnauthorized, `{"error":{"message":"bad key","type":"invalid_request_error"}}`
	})

	c := NewOpenAIClient(Config{APIKey: "test-key", BaseURL: srv.URL})
	_, err := c.Complete(context.Background(), "s", "u")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat completion")
}

func TestOpenAIClient_NotConfigured(t *testing.T) {
	c := NewOpenAIClient(Config{})
	_, err := c.Complete(context.Background(), "s", "u")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
