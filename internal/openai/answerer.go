package openai

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultChatModel is the OpenAI model used for answer generation
	DefaultChatModel = "gpt-4o-mini"
	// DefaultMaxTokens bounds the generated answer length
	DefaultMaxTokens = 500
)

// ChatMessage is one message in a chat completion request
type ChatMessage struct {
	Role    string
	Content string
}

// ChatAPI defines the interface for chat completion calls
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ChatConfig configures the chat client
type ChatConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

// ChatClient wraps the OpenAI chat completion API for answer generation
type ChatClient struct {
	api       ChatAPI
	model     string
	maxTokens int
}

// NewChatClient creates a new ChatClient with explicit configuration.
func NewChatClient(cfg ChatConfig) *ChatClient {
	model := cfg.Model
	if model == "" {
		model = DefaultChatModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}

	return &ChatClient{
		api:       openai.NewClientWithConfig(apiCfg),
		model:     model,
		maxTokens: maxTokens,
	}
}

// Complete runs a chat completion over the given messages and returns
// the generated text. Context cancellation and deadlines are honored by
// the underlying HTTP client.
func (c *ChatClient) Complete(ctx context.Context, messages []ChatMessage, temperature float64) (string, error) {
	if len(messages) == 0 {
		return "", errors.New("messages cannot be empty")
	}

	reqMessages := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		reqMessages = append(reqMessages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    reqMessages,
		Temperature: float32(temperature),
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no completion choices returned")
	}

	return resp.Choices[0].Message.Content, nil
}
