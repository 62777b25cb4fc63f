package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/sigengine/pkg/retrier"
)

const (
	defaultTimeout    = 60 * time.Second
	defaultMaxRetries = 2
	defaultRetryDelay = 2 * time.Second
	defaultMaxTokens  = 512
)

// LLMClient sends a single-turn chat to a language model.
type LLMClient interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// OpenAICompatibleClient talks to any /chat/completions endpoint that follows
// the OpenAI wire format.
type OpenAICompatibleClient struct {
	apiURL     string
	apiKey     string
	model      string
	httpClient *http.Client
	retrier    *retrier.Retrier
}

// NewOpenAICompatibleClient creates a new client for OpenAI-compatible APIs.
func NewOpenAICompatibleClient(apiURL, apiKey, model string) *OpenAICompatibleClient {
	return &OpenAICompatibleClient{
		apiURL: apiURL,
		apiKey: apiKey,
		model:  model,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		retrier: retrier.New(
			retrier.WithMaxRetries(defaultMaxRetries),
			retrier.WithInitialInterval(defaultRetryDelay),
			retrier.WithRetryIf(func(err error) bool { return !errors.Is(err, errNotRetryable) }),
		),
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *OpenAICompatibleClient) WithHTTPClient(hc *http.Client) *OpenAICompatibleClient {
	c.httpClient = hc
	return c
}

// WithRetrier replaces the retry policy.
func (c *OpenAICompatibleClient) WithRetrier(r *retrier.Retrier) *OpenAICompatibleClient {
	c.retrier = r
	return c
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	ID      string    `json:"id"`
	Model   string    `json:"model"`
	Choices []choice  `json:"choices"`
	Usage   usage     `json:"usage"`
	Error   *apiError `json:"error,omitempty"`
}

type choice struct {
	Index        int     `json:"index"`
	Message      message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

var errNotRetryable = errors.New("not retryable")

// Complete sends the prompts and returns the content of the first choice.
func (c *OpenAICompatibleClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if c.apiKey == "" {
		return "", errors.New("LLM API key is empty")
	}

	reqBody := chatRequest{
		Model: c.model,
		Messages: []message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature:    0.0, // deterministic answers
		MaxTokens:      defaultMaxTokens,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	content, err := retrier.DoWithData(c.retrier, ctx, func(ctx context.Context) (string, error) {
		return c.sendRequest(ctx, reqBody)
	})
	if err != nil {
		return "", errors.Wrap(err, "llm request failed")
	}
	return content, nil
}

func (c *OpenAICompatibleClient) sendRequest(ctx context.Context, reqBody chatRequest) (string, error) {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", errors.Wrap(errNotRetryable, err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", errors.Wrap(errNotRetryable, err.Error())
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "HTTP request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "failed to read response body")
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return "", errors.Errorf("LLM API returned status %d: %s", resp.StatusCode, string(body))
	default:
		return "", errors.Wrapf(errNotRetryable, "LLM API returned status %d: %s", resp.StatusCode, string(body))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", errors.Wrap(errNotRetryable, "failed to unmarshal response: "+err.Error())
	}

	if chatResp.Error != nil {
		return "", errors.Errorf("LLM API error: %s (type: %s, code: %s)",
			chatResp.Error.Message, chatResp.Error.Type, chatResp.Error.Code)
	}

	if len(chatResp.Choices) == 0 {
		return "", errors.New("LLM API returned no choices")
	}

	return chatResp.Choices[0].Message.Content, nil
}
