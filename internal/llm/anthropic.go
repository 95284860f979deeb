package llm

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cockroachdb/errors"
)

const defaultAnthropicModel = "claude-sonnet-4-6"

// AnthropicCompleter calls the Anthropic Messages API, or any compatible provider.
type AnthropicCompleter struct {
	client    *anthropic.Client
	model     string
	maxTokens int
}

// NewAnthropicCompleter creates a completer backed by Anthropic Claude.
func NewAnthropicCompleter(apiKey, model, baseURL string) *AnthropicCompleter {
	if model == "" {
		model = defaultAnthropicModel
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &AnthropicCompleter{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: 1024,
	}
}

func (c *AnthropicCompleter) Complete(ctx context.Context, req Request) (string, error) {
	model := c.model
	if req.Model != "" {
		model = req.Model
	}
	maxTokens := c.maxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.F(anthropic.Model(model)),
		MaxTokens:   anthropic.F(int64(maxTokens)),
		Temperature: anthropic.F(req.Temperature),
		Messages: anthropic.F([]anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		}),
	}
	if req.System != "" {
		params.System = anthropic.F([]anthropic.TextBlockParam{
			anthropic.NewTextBlock(req.System),
		})
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", errors.Wrap(err, "anthropic completion")
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if b, ok := block.AsUnion().(anthropic.TextBlock); ok {
			text.WriteString(b.Text)
		}
	}
	return strings.TrimSpace(text.String()), nil
}
