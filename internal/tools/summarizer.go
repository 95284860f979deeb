package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/agentforge/agentforge/internal/llm"
)

// DefaultSummaryWords is the word cap used when max_length is not given.
const DefaultSummaryWords = 200

const summaryBase = `You are "ProSummarizer", a senior technical writer.
TASK
  - Produce a concise, executive-style summary of the material delimited by triple back-ticks.
  - Capture ONLY the core arguments, facts and conclusions; omit anecdotes, filler and marketing language.
  - Length target: about 12%% of the original, hard cap %d words.
  - Tone: neutral, professional, third-person.
  - Format: `

const summaryShortFormat = "Single-paragraph abstract."

const summaryLongFormat = `
      1. One-sentence headline.
      2. 3-to-5 key-point bullets, each at most 25 words.
      3. "TL;DR:" one-sentence wrap-up.`

const summaryConstraints = `

CONSTRAINTS
  - Do not add external knowledge.
  - Preserve all critical numbers, names, and dates.
  - Rewrite; never quote 20 or more words verbatim.
  - If the source text is under 150 words, return a single-paragraph abstract instead of bullets.
`

// Summarizer is the summarizer native tool.
type Summarizer struct {
	llm llm.Completer
}

// NewSummarizer creates the summarizer tool.
func NewSummarizer(c llm.Completer) *Summarizer {
	return &Summarizer{llm: c}
}

func (s *Summarizer) Run(ctx context.Context, args Args) (Output, error) {
	if _, ok := args["text"]; !ok {
		return Output{}, errors.New("summarizer: text is required")
	}
	text := strings.TrimSpace(args.String("text"))
	if text == "" {
		return Text(""), nil
	}

	maxWords := args.Int("max_length", DefaultSummaryWords)
	if maxWords <= 0 {
		maxWords = DefaultSummaryWords
	}
	resp, err := s.llm.Complete(ctx, llm.Request{
		System:      SummaryPrompt(text, args.String("query"), maxWords),
		Prompt:      "TEXT\n```\n" + text + "\n```",
		Temperature: 0.2,
		MaxTokens:   512,
	})
	if err != nil {
		return Degradedf("Summarizer error: %s", err), nil
	}
	return Text(CapWords(resp, maxWords)), nil
}

// SummaryPrompt builds the system prompt for text, capped at maxWords and
// tailored to query when set.
func SummaryPrompt(text, query string, maxWords int) string {
	var b strings.Builder
	fmt.Fprintf(&b, summaryBase, maxWords)
	if len(strings.Fields(text)) < 150 {
		b.WriteString(summaryShortFormat)
	} else {
		b.WriteString(summaryLongFormat)
	}
	b.WriteString(summaryConstraints)
	if query != "" {
		b.WriteString("\nAdditional Context: The user's query to address is: '" + query + "'.\n")
	}
	return b.String()
}

// CapWords truncates s to limit words, marking the cut with an ellipsis.
func CapWords(s string, limit int) string {
	s = strings.TrimSpace(s)
	words := strings.Fields(s)
	if limit <= 0 || len(words) <= limit {
		return s
	}
	return strings.Join(words[:limit], " ") + "…"
}
