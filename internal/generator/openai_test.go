package generator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIClient_ChatCompletion(t *testing.T) {
	var gotRequest chatCompletionRequest
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-api-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotRequest))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices": [{"message": {"content": "generated content"}}]}`))
	}))
	defer testServer.Close()

	client := NewOpenAIClient(testServer.URL, "test-api-key", testServer.Client())

	content, err := client.ChatCompletion(context.Background(), ChatParams{
		Model: modelFast,
		Messages: []ChatMessage{
			{Role: "system", Content: "system prompt"},
			{Role: "user", Content: "user prompt"},
		},
		Temperature:  0.7,
		JSONResponse: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "generated content", content)

	assert.Equal(t, modelFast, gotRequest.Model)
	assert.Equal(t, 0.7, gotRequest.Temperature)
	require.NotNil(t, gotRequest.ResponseFormat)
	assert.Equal(t, "json_object", gotRequest.ResponseFormat.Type)
	require.Len(t, gotRequest.Messages, 2)
	assert.Equal(t, "system", gotRequest.Messages[0].Role)
}

func TestOpenAIClient_ChatCompletion_APIError(t *testing.T) {
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "rate limited", "type": "rate_limit"}}`, http.StatusTooManyRequests)
	}))
	defer testServer.Close()

	client := NewOpenAIClient(testServer.URL, "test-api-key", testServer.Client())
	_, err := client.ChatCompletion(context.Background(), ChatParams{Model: modelFast})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestOpenAIClient_ChatCompletion_NoChoices(t *testing.T) {
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices": []}`))
	}))
	defer testServer.Close()

	client := NewOpenAIClient(testServer.URL, "test-api-key", testServer.Client())
	_, err := client.ChatCompletion(context.Background(), ChatParams{Model: modelFast})
	require.Error(t, err)
}

func TestOpenAIClient_ChatCompletion_NoAPIKey(t *testing.T) {
	client := NewOpenAIClient("not-needed", "", nil)
	_, err := client.ChatCompletion(context.Background(), ChatParams{Model: modelFast})
	require.ErrorIs(t, err, ErrAPIKeyMissing)
}
