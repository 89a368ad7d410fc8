package openai

import (
	"context"
	"errors"
	"testing"

	"github.com/cloo-solutions/pawdocs/internal/domain"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockChatAPI struct {
	mock.Mock
}

func (m *MockChatAPI) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(openai.ChatCompletionResponse), args.Error(1)
}

func completion(text string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: text}},
		},
	}
}

func TestChatGenerator_Generate(t *testing.T) {
	mockAPI := new(MockChatAPI)
	gen := NewChatGenerator(mockAPI, "google/gemma-2-9b-it")

	ctx := context.Background()
	mockAPI.On("CreateChatCompletion", ctx, mock.MatchedBy(func(req openai.ChatCompletionRequest) bool {
		return req.Model == "google/gemma-2-9b-it" &&
			req.MaxTokens == 1024 &&
			req.Temperature == float32(0.3) &&
			len(req.Messages) == 2 &&
			req.Messages[0].Role == openai.ChatMessageRoleSystem &&
			req.Messages[0].Content == "be helpful" &&
			req.Messages[1].Role == openai.ChatMessageRoleUser &&
			req.Messages[1].Content == "how often do I deworm?"
	})).Return(completion("  Every three months.  "), nil)

	text, err := gen.Generate(ctx, domain.Prompt{System: "be helpful", User: "how often do I deworm?"})

	require.NoError(t, err)
	assert.Equal(t, "Every three months.", text)
	assert.Equal(t, "google/gemma-2-9b-it", gen.Name())
	mockAPI.AssertExpectations(t)
}

func TestChatGenerator_Generate_Error(t *testing.T) {
	mockAPI := new(MockChatAPI)
	gen := NewChatGenerator(mockAPI, "m")

	apiErr := errors.New("429 too many requests")
	mockAPI.On("CreateChatCompletion", mock.Anything, mock.Anything).Return(openai.ChatCompletionResponse{}, apiErr)

	_, err := gen.Generate(context.Background(), domain.Prompt{User: "q"})

	assert.ErrorIs(t, err, apiErr)
}

func TestChatGenerator_Generate_Empty(t *testing.T) {
	tests := []struct {
		name string
		resp openai.ChatCompletionResponse
	}{
		{"no choices", openai.ChatCompletionResponse{}},
		{"blank content", completion("   ")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockAPI := new(MockChatAPI)
			mockAPI.On("CreateChatCompletion", mock.Anything, mock.Anything).Return(tt.resp, nil)
			gen := NewChatGenerator(mockAPI, "m")

			_, err := gen.Generate(context.Background(), domain.Prompt{User: "q"})

			assert.ErrorIs(t, err, ErrEmptyCompletion)
		})
	}
}

func TestNewChatGenerators(t *testing.T) {
	gens := NewChatGenerators("sk-or-test", "", []string{"a", " ", "b"})
	require.Len(t, gens, 2)
	assert.Equal(t, "a", gens[0].Name())
	assert.Equal(t, "b", gens[1].Name())

	gens = NewChatGenerators("sk-or-test", "", nil)
	require.Len(t, gens, len(DefaultChatModels))
	assert.Equal(t, "tngtech/deepseek-r1t2-chimera:free", gens[0].Name())
}
