package tools

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/agentforge/agentforge/internal/llm"
)

const defaultChatbotSystem = "You are a helpful, concise assistant."

// Chatbot is the chatbot native tool.
type Chatbot struct {
	llm llm.Completer
}

// NewChatbot creates the chatbot tool.
func NewChatbot(c llm.Completer) *Chatbot {
	return &Chatbot{llm: c}
}

func (c *Chatbot) Run(ctx context.Context, args Args) (Output, error) {
	query := strings.TrimSpace(args.String("query"))
	if query == "" {
		return Output{}, errors.New("chatbot: query is required")
	}
	system := args.String("system")
	if system == "" {
		system = defaultChatbotSystem
	}

	resp, err := c.llm.Complete(ctx, llm.Request{
		System:      system,
		Prompt:      query,
		Model:       args.String("model"),
		Temperature: 0.2,
	})
	if err != nil {
		return Degradedf("Chatbot error: %s", err), nil
	}
	return Text(strings.TrimSpace(resp)), nil
}
