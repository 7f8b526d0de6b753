package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// OpenAIClient talks to any endpoint implementing the OpenAI chat
// completions API. The llama provider uses it against a local server.
type OpenAIClient struct {
	http     *resty.Client
	provider string
	opts     Options
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

type chatError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// NewOpenAIClient creates a chat completions client for any OpenAI compatible
// endpoint
func NewOpenAIClient(provider, baseURL, apiKey string, opts Options, timeout time.Duration) *OpenAIClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}

	return &OpenAIClient{http: client, provider: provider, opts: opts}
}

func (c *OpenAIClient) Provider() string  { return c.provider }
func (c *OpenAIClient) ModelName() string { return c.opts.Model }

// Generate posts the conversation to /chat/completions
func (c *OpenAIClient) Generate(ctx context.Context, messages []Message) (*Response, error) {
	var result chatResponse
	var apiErr chatError

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(chatRequest{
			Model:       c.opts.Model,
			Messages:    messages,
			Temperature: c.opts.Temperature,
			MaxTokens:   c.opts.MaxTokens,
		}).
		SetResult(&result).
		SetError(&apiErr).
		Post("/chat/completions")
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", c.provider, err)
	}
	if resp.IsError() {
		msg := apiErr.Error.Message
		if msg == "" {
			msg = resp.Status()
		}
		return nil, fmt.Errorf("%s returned %d: %s", c.provider, resp.StatusCode(), msg)
	}
	if len(result.Choices) == 0 {
		return nil, errors.New("no choices in completion response")
	}

	model := result.Model
	if model == "" {
		model = c.opts.Model
	}
	return &Response{
		Content: result.Choices[0].Message.Content,
		Model:   model,
		Usage: Usage{
			PromptTokens:     result.Usage.PromptTokens,
			CompletionTokens: result.Usage.CompletionTokens,
		},
	}, nil
}
