package llm

import (
	"context"
	"math"
	"strings"

	"github.com/cockroachdb/errors"
	openai "github.com/sashabaranov/go-openai"
)

const defaultOpenAIModel = "gpt-4o"

// OpenAICompleter calls an OpenAI-compatible chat completions endpoint.
type OpenAICompleter struct {
	client *openai.Client
	model  string
}

// NewOpenAICompleter creates a completer backed by OpenAI chat completions.
func NewOpenAICompleter(apiKey, model, baseURL string) *OpenAICompleter {
	if model == "" {
		model = defaultOpenAIModel
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAICompleter{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (c *OpenAICompleter) Complete(ctx context.Context, req Request) (string, error) {
	model := c.model
	if req.Model != "" {
		model = req.Model
	}

	// temperature is omitempty on the wire; a zero value would select the server default
	temp := float32(req.Temperature)
	if temp == 0 {
		temp = math.SmallestNonzeroFloat32
	}

	var messages []openai.ChatCompletionMessage
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: temp,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", errors.Wrap(err, "openai completion")
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
