package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/edchat-io/edchat/internal/config"
	"github.com/sashabaranov/go-openai"
)

// ErrNoAPIKey is returned when inference is requested without credentials.
var ErrNoAPIKey = errors.New("llm: api key not configured")

// ErrEmptyCompletion is returned when the upstream answers with no choices.
var ErrEmptyCompletion = errors.New("llm: empty completion")

// OpenAIGenerator calls an OpenAI-compatible chat completion endpoint.
type OpenAIGenerator struct {
	client *openai.Client
	cfg    config.LLMConfig
}

// NewOpenAIGenerator constructs a generator from configuration. A custom
// base URL points the client at any compatible provider.
func NewOpenAIGenerator(cfg config.LLMConfig) *OpenAIGenerator {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(clientConfig),
		cfg:    cfg,
	}
}

// Generate runs one chat completion and returns the assistant text.
func (g *OpenAIGenerator) Generate(ctx context.Context, messages []openai.ChatCompletionMessage) (string, error) {
	if g.cfg.APIKey == "" {
		return "", ErrNoAPIKey
	}

	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	resp, errCreate := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    g.cfg.Model,
		Messages: messages,
	})
	if errCreate != nil {
		return "", fmt.Errorf("llm: chat completion: %w", errCreate)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}
