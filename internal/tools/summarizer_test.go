package tools_test

import (
	"context"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentforge/agentforge/internal/llm"
	"github.com/agentforge/agentforge/internal/tools"
)

func TestSummarizer(t *testing.T) {
	var got llm.Request
	s := tools.NewSummarizer(llm.CompleterFunc(func(_ context.Context, req llm.Request) (string, error) {
		got = req
		return "  one two three four five  ", nil
	}))

	out, err := s.Run(context.Background(), tools.Args{"text": "Go 1.24 shipped.", "query": "what shipped?", "max_length": 3})
	require.NoError(t, err)
	assert.Equal(t, "one two three…", out.Content)
	assert.Contains(t, got.System, "Single-paragraph abstract.")
	assert.Contains(t, got.System, "'what shipped?'")
	assert.Contains(t, got.System, "hard cap 3 words.")
	assert.NotContains(t, got.System, "%!")
	assert.Contains(t, got.Prompt, "Go 1.24 shipped.")
}

func TestSummarizerLongTextUsesBullets(t *testing.T) {
	text := strings.Repeat("word ", 200)
	prompt := tools.SummaryPrompt(text, "", 240)
	assert.Contains(t, prompt, "TL;DR")
	assert.Contains(t, prompt, "about 12% of the original, hard cap 240 words.")
	assert.NotContains(t, prompt, "Additional Context")
}

func TestSummarizerEmptyText(t *testing.T) {
	s := tools.NewSummarizer(llm.Disabled{})
	out, err := s.Run(context.Background(), tools.Args{"text": "   "})
	require.NoError(t, err)
	assert.Empty(t, out.Content)

	_, err = s.Run(context.Background(), tools.Args{})
	assert.Error(t, err)
}

func TestSummarizerErrorBecomesContent(t *testing.T) {
	s := tools.NewSummarizer(llm.CompleterFunc(func(context.Context, llm.Request) (string, error) {
		return "", errors.New("timeout")
	}))
	out, err := s.Run(context.Background(), tools.Args{"text": "something"})
	require.NoError(t, err)
	assert.Equal(t, "Summarizer error: timeout", out.Content)
}

func TestCapWords(t *testing.T) {
	assert.Equal(t, "a b", tools.CapWords(" a b ", 5))
	assert.Equal(t, "a b…", tools.CapWords("a b c", 2))
	assert.Equal(t, "a b c", tools.CapWords("a b c", 0))
}

func TestChatbot(t *testing.T) {
	var got llm.Request
	c := tools.NewChatbot(llm.CompleterFunc(func(_ context.Context, req llm.Request) (string, error) {
		got = req
		return "Hi there\n", nil
	}))

	out, err := c.Run(context.Background(), tools.Args{"query": "hello", "model": "small"})
	require.NoError(t, err)
	assert.Equal(t, "Hi there", out.Content)
	assert.Equal(t, "You are a helpful, concise assistant.", got.System)
	assert.Equal(t, "small", got.Model)

	out, err = tools.NewChatbot(llm.Disabled{}).Run(context.Background(), tools.Args{"query": "hello"})
	require.NoError(t, err)
	assert.Equal(t, "Chatbot error: language model is not configured", out.Content)
}

func TestArgs(t *testing.T) {
	a := tools.Args{"s": "x", "n": float64(3), "i": 7, "nil": nil}
	assert.Equal(t, "x", a.String("s"))
	assert.Equal(t, "3", a.String("n"))
	assert.Equal(t, "", a.String("nil"))
	assert.Equal(t, 3, a.Int("n", 0))
	assert.Equal(t, 7, a.Int("i", 0))
	assert.Equal(t, 9, a.Int("s", 9))
	assert.Equal(t, tools.Args{"s": "x"}, a.Filter([]string{"s", "missing"}))
}

func TestBuiltins(t *testing.T) {
	specs := tools.Builtins(llm.Disabled{}, &fakeSearcher{})
	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.Name
	}
	assert.Equal(t, []string{"web_search", "calculator", "summarizer", "chatbot"}, names)
	assert.Equal(t, []string{"text", "max_length", "query"}, specs[2].ParamNames())
}
