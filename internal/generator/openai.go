// Package generator produces the weekly practice content: journaling topics,
// speaking prompt words, the shadowing script and the weekly speaking prompt.
// Content comes from the OpenAI chat completions API, with fallbacks for
// initial generation when the API is unavailable.
package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/jhkim-dev/speakpath/internal/telemetry/tracing"
)

const DefaultOpenAIBaseURL = "https://api.openai.com/v1"

var ErrAPIKeyMissing = errors.New("openai api key not set")

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatParams is one chat completion request.
type ChatParams struct {
	Model       string
	Messages    []ChatMessage
	Temperature float64
	MaxTokens   int
	// JSONResponse asks the API to return a JSON object.
	JSONResponse bool
}

// ChatClient is implemented by the OpenAI client and by test fakes.
type ChatClient interface {
	ChatCompletion(ctx context.Context, params ChatParams) (string, error)
}

type OpenAIClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ ChatClient = (*OpenAIClient)(nil)

func NewOpenAIClient(baseURL, apiKey string, httpClient *http.Client) *OpenAIClient {
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	return &OpenAIClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

type chatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []ChatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (c *OpenAIClient) ChatCompletion(ctx context.Context, params ChatParams) (_ string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "openai.chatCompletion")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if c.apiKey == "" {
		return "", ErrAPIKeyMissing
	}

	reqPayload := chatCompletionRequest{
		Model:       params.Model,
		Messages:    params.Messages,
		Temperature: params.Temperature,
		MaxTokens:   params.MaxTokens,
	}
	if params.JSONResponse {
		reqPayload.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	body, err := json.Marshal(reqPayload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read openai response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openai api error (%d): %s", resp.StatusCode, respBytes)
	}

	var chatResp chatCompletionResponse
	if err := json.Unmarshal(respBytes, &chatResp); err != nil {
		return "", fmt.Errorf("decode openai response: %w", err)
	}
	if chatResp.Error != nil {
		return "", fmt.Errorf("openai: %s", chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}

	return chatResp.Choices[0].Message.Content, nil
}
