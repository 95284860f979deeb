// Package agent runs a query through an ordered chain of registered tools and
// turns the run into a stream of progress events.
package agent

import (
	"context"
	"iter"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"

	"github.com/agentforge/agentforge/internal/registry"
	"github.com/agentforge/agentforge/internal/tools"
)

// AutoAttachNotice is reported when the summarizer is appended to a chain.
const AutoAttachNotice = "Auto-attached 'summarizer' to refine web search results."

// SummaryWords is the target length handed to the summarizer.
const SummaryWords = 240

// Invoker runs one registered tool.
type Invoker interface {
	Invoke(ctx context.Context, name string, args tools.Args) (tools.Output, error)
}

// State is the pipeline state after a step. It belongs to a single run.
type State struct {
	Query      string
	Tools      []string
	Cursor     int
	Context    string
	LastOutput string
}

// Done reports whether every tool has been visited.
func (s State) Done() bool { return s.Cursor >= len(s.Tools) }

// Result is the trimmed accumulated context.
func (s State) Result() string { return strings.TrimSpace(s.Context) }

// Prepare copies names and appends the summarizer when web_search is present
// without it. It reports whether the summarizer was attached.
func Prepare(names []string) ([]string, bool) {
	out := slices.Clone(names)
	if slices.Contains(out, tools.WebSearchName) && !slices.Contains(out, tools.SummarizerName) {
		return append(out, tools.SummarizerName), true
	}
	return out, false
}

// Pipeline walks a tool chain through an Invoker.
type Pipeline struct {
	invoker Invoker
}

// NewPipeline creates a pipeline over inv.
func NewPipeline(inv Invoker) *Pipeline {
	return &Pipeline{invoker: inv}
}

// Steps applies Prepare once and then yields the state after every step.
// When the summarizer was attached, a state carrying AutoAttachNotice is
// yielded before the first step. Tool failures never end the run; a non-nil
// error is yielded only when ctx ends, and is the last value.
func (p *Pipeline) Steps(ctx context.Context, query string, names []string) iter.Seq2[State, error] {
	return func(yield func(State, error) bool) {
		list, attached := Prepare(names)
		st := State{Query: strings.TrimSpace(query), Tools: list}

		if attached {
			st.LastOutput = AutoAttachNotice
			if !yield(st, nil) {
				return
			}
		}

		for !st.Done() {
			if err := ctx.Err(); err != nil {
				yield(st, err)
				return
			}
			st = p.step(ctx, st)
			if !yield(st, nil) {
				return
			}
		}
	}
}

// Run drives Steps to completion and returns the final state.
func (p *Pipeline) Run(ctx context.Context, query string, names []string) (State, error) {
	var last State
	for st, err := range p.Steps(ctx, query, names) {
		if err != nil {
			return st, err
		}
		last = st
	}
	return last, nil
}

func (p *Pipeline) step(ctx context.Context, st State) State {
	name := st.Tools[st.Cursor]
	st.Cursor++

	out, err := p.invoker.Invoke(ctx, name, stepInputs(name, st.Query, st.Context))
	switch {
	case errors.Is(err, registry.ErrUnknownTool):
		log.Warn().Str("tool", name).Msg("skipping unknown tool")
		st.LastOutput = "Skipping unknown tool: " + name
	case err != nil:
		log.Debug().Err(err).Str("tool", name).Msg("tool step failed")
		st.LastOutput = "Tool " + name + " error: " + err.Error()
	default:
		log.Debug().Str("tool", name).Bool("degraded", out.Degraded).Msg("tool step finished")
		st.Context += "\n[" + name + "]\n" + out.Content + "\n"
		st.LastOutput = out.Content
	}
	return st
}

// stepInputs shapes the inputs each tool role expects.
func stepInputs(name, query, context string) tools.Args {
	text := context
	if text == "" {
		text = query
	}
	switch name {
	case tools.WebSearchName:
		return tools.Args{"query": query}
	case tools.CalculatorName:
		return tools.Args{"expression": query}
	case tools.SummarizerName:
		return tools.Args{"text": strings.TrimSpace(text), "query": query, "max_length": SummaryWords}
	default:
		return tools.Args{"query": query, "text": text}
	}
}
