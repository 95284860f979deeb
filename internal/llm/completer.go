// Package llm provides the text-completion capability used by LLM-backed tools.
package llm

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
)

// Provider names accepted by New.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
)

// ErrNotConfigured is returned by the disabled completer.
var ErrNotConfigured = errors.New("language model is not configured")

// Request is a single system+user completion call.
type Request struct {
	System      string
	Prompt      string
	Model       string // optional per-call override
	Temperature float64
	MaxTokens   int
}

// Completer turns a prompt into text.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, req Request) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Options configures a provider client.
type Options struct {
	Provider  string
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

// New builds the completer for opts.Provider. A missing API key yields a
// completer that always fails with ErrNotConfigured so LLM tools still register.
func New(ctx context.Context, opts Options) (Completer, error) {
	if opts.APIKey == "" {
		return Disabled{}, nil
	}
	switch strings.ToLower(opts.Provider) {
	case "", ProviderAnthropic:
		return NewAnthropicCompleter(opts.APIKey, opts.Model, opts.BaseURL), nil
	case ProviderOpenAI:
		return NewOpenAICompleter(opts.APIKey, opts.Model, opts.BaseURL), nil
	case ProviderGemini:
		return NewGeminiCompleter(ctx, opts.APIKey, opts.Model)
	default:
		return nil, errors.Newf("unknown llm provider %q", opts.Provider)
	}
}

// Disabled is the completer used when no provider key is configured.
type Disabled struct{}

func (Disabled) Complete(context.Context, Request) (string, error) {
	return "", ErrNotConfigured
}
