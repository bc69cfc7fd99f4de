// Package llm is the single chokepoint for outbound calls to the generative
// model backend. It normalizes transport errors and exposes a strict-JSON
// extraction helper for agent contracts that demand structured output.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Message roles accepted by the chat backend.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrNoCredential is returned when no usable API key is configured.
var ErrNoCredential = errors.New("llm: no API key configured")

// ErrEmptyResponse is returned when the backend answers without content.
var ErrEmptyResponse = errors.New("llm: empty response from backend")

// Message is one turn of a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options tune a single chat completion call.
type Options struct {
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// DefaultOptions mirror the backend defaults used for specialist drafting.
func DefaultOptions() Options {
	return Options{
		Temperature: 0.2,
		MaxTokens:   1200,
		Timeout:     30 * time.Second,
	}
}

// Client is the outbound chat-completion contract.
type Client interface {
	// ChatComplete sends the messages and returns the assistant text.
	ChatComplete(ctx context.Context, messages []Message, opts Options) (string, error)
	// Available reports whether the client can reach a real backend.
	Available() bool
}

// OpenAIClient talks to any OpenAI-compatible endpoint, including GLM's
// /api/paas/v4 surface.
type OpenAIClient struct {
	client *openai.Client
	model  string
	apiKey string
}

var _ Client = (*OpenAIClient)(nil)

// NewOpenAIClient builds a client for the given endpoint. baseURL may be
// empty for the upstream OpenAI default.
func NewOpenAIClient(apiKey, baseURL, model string) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		apiKey: apiKey,
	}
}

// Available reports whether a credential is configured.
func (c *OpenAIClient) Available() bool {
	return c.apiKey != ""
}

// ChatComplete performs one non-streaming chat completion call.
func (c *OpenAIClient) ChatComplete(ctx context.Context, messages []Message, opts Options) (string, error) {
	if !c.Available() {
		return "", ErrNoCredential
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	apiMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		apiMessages[i] = openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    apiMessages,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}

	return resp.Choices[0].Message.Content, nil
}
