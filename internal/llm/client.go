// Package llm wraps the language-model API behind a single-method
// interface so the intent parser and summary generator can be tested
// against fakes.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"

	"github.com/askwx/askwx/internal/resilience"
)

// Completer issues one system+user prompt and returns the raw model output.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// OpenAIClient is the production Completer.
type OpenAIClient struct {
	client  *openai.Client
	model   string
	backoff resilience.Config
	circuit *gobreaker.CircuitBreaker
}

// NewOpenAIClient builds the client with its own HTTP timeout; model calls
// run longer than the weather/geoip fetches and get a separate budget.
func NewOpenAIClient(apiKey, model string, timeout time.Duration, backoff resilience.Config) *OpenAIClient {
	conf := openai.DefaultConfig(apiKey)
	conf.HTTPClient = &http.Client{Timeout: timeout}

	return &OpenAIClient{
		client:  openai.NewClientWithConfig(conf),
		model:   model,
		backoff: backoff,
		circuit: resilience.NewBreaker("openai"),
	}
}

// Complete sends the prompt, retrying transient failures (network, timeout,
// 429, 5xx). Client-side errors (bad request, bad credentials) are permanent.
func (c *OpenAIClient) Complete(ctx context.Context, system, user string) (string, error) {
	return resilience.Do(ctx, c.backoff, c.circuit, func() (string, error) {
		resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       c.model,
			Temperature: 0,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: system},
				{Role: openai.ChatMessageRoleUser, Content: user},
			},
		})
		if err != nil {
			if !isTransient(err) {
				return "", resilience.Permanent(err)
			}
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", resilience.Permanent(fmt.Errorf("model returned no choices"))
		}
		return resp.Choices[0].Message.Content, nil
	})
}

func isTransient(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == 429 || reqErr.HTTPStatusCode >= 500
	}
	// Transport-level failures (connection reset, timeout) surface as plain
	// errors and are worth retrying.
	return true
}
