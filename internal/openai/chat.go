package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloo-solutions/pawdocs/internal/domain"
	openai "github.com/sashabaranov/go-openai"
)

const (
	DefaultChatBaseURL = "https://openrouter.ai/api/v1"
	DefaultMaxTokens   = 1024
	DefaultTemperature = 0.3
)

// DefaultChatModels are tried in this order.
var DefaultChatModels = []string{
	"tngtech/deepseek-r1t2-chimera:free",
	"perplexity/llama-3.1-sonar-small-chat",
	"google/gemma-2-9b-it",
}

var ErrEmptyCompletion = errors.New("completion contained no text")

type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ChatGenerator answers a prompt with one chat model.
type ChatGenerator struct {
	api         ChatAPI
	model       string
	maxTokens   int
	temperature float32
}

func NewChatGenerator(api ChatAPI, model string) *ChatGenerator {
	return &ChatGenerator{
		api:         api,
		model:       model,
		maxTokens:   DefaultMaxTokens,
		temperature: DefaultTemperature,
	}
}

// NewChatGenerators builds one generator per model, all sharing a client.
func NewChatGenerators(apiKey, baseURL string, models []string) []*ChatGenerator {
	if baseURL == "" {
		baseURL = DefaultChatBaseURL
	}
	if len(models) == 0 {
		models = DefaultChatModels
	}
	client := newAPIClient(apiKey, baseURL)

	gens := make([]*ChatGenerator, 0, len(models))
	for _, m := range models {
		if m = strings.TrimSpace(m); m != "" {
			gens = append(gens, NewChatGenerator(client, m))
		}
	}
	return gens
}

func (g *ChatGenerator) Name() string {
	return g.model
}

func (g *ChatGenerator) Generate(ctx context.Context, p domain.Prompt) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if p.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: p.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: p.User,
	})

	resp, err := g.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    messages,
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion with %s: %w", g.model, err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}
