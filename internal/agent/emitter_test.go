package agent_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentforge/agentforge/internal/agent"
	"github.com/agentforge/agentforge/internal/llm"
	"github.com/agentforge/agentforge/internal/registry"
	"github.com/agentforge/agentforge/internal/tools"
)

func collect(e *agent.Emitter, ctx context.Context, query string, names []string) []agent.Event {
	var out []agent.Event
	for ev := range e.Stream(ctx, query, names) {
		out = append(out, ev)
	}
	return out
}

func types(events []agent.Event) []agent.EventType {
	out := make([]agent.EventType, len(events))
	for i, ev := range events {
		out[i] = ev.Type
	}
	return out
}

func TestIsGreeting(t *testing.T) {
	for _, q := range []string{"hi", "Hello", "  HEY ", "good morning", "Good Evening team", "yo what's up", "sup"} {
		assert.True(t, agent.IsGreeting(q), q)
	}
	for _, q := range []string{"history of rome", "hiking trails", "2+2", "", "goodbye", "say hi"} {
		assert.False(t, agent.IsGreeting(q), q)
	}
}

func TestStreamGreetingShortCircuit(t *testing.T) {
	inv := &fakeInvoker{}
	e := agent.NewEmitter(agent.NewPipeline(inv))

	events := collect(e, context.Background(), "hi", []string{"web_search", "calculator"})

	assert.Equal(t, []agent.EventType{agent.EventConnection, agent.EventMessage, agent.EventResult, agent.EventComplete}, types(events))
	assert.Equal(t, "connected", events[0].Status)
	assert.Equal(t, agent.GreetingReply, events[1].Content)
	assert.Equal(t, agent.GreetingReply, events[2].Content)
	assert.Empty(t, inv.calls)
}

func newRealRegistry(t *testing.T, completer llm.Completer, searcher tools.Searcher) *registry.Registry {
	t.Helper()
	reg := registry.New(nil, completer, registry.Options{})
	for _, spec := range tools.Builtins(completer, searcher) {
		require.NoError(t, reg.RegisterNative(spec))
	}
	return reg
}

type lines []string

func (l lines) Search(context.Context, string) ([]string, error) { return l, nil }

func TestStreamCalculator(t *testing.T) {
	reg := newRealRegistry(t, llm.Disabled{}, lines{})
	e := agent.NewEmitter(agent.NewPipeline(reg))

	events := collect(e, context.Background(), "2+2", []string{"calculator"})

	require.Equal(t, []agent.EventType{agent.EventConnection, agent.EventMessage, agent.EventResult, agent.EventComplete}, types(events))
	assert.Equal(t, "Result: 4", events[1].Content)
	assert.Equal(t, "[calculator]\nResult: 4", events[2].Content)
	assert.Contains(t, events[2].Content, events[1].Content)
}

func TestStreamWebSearchAttachesSummarizer(t *testing.T) {
	completer := llm.CompleterFunc(func(_ context.Context, req llm.Request) (string, error) {
		return "Paris is the capital of France.", nil
	})
	reg := newRealRegistry(t, completer, lines{"Answer: Paris", "Abstract: Capital of France."})
	e := agent.NewEmitter(agent.NewPipeline(reg))

	events := collect(e, context.Background(), "capital of france", []string{"web_search"})

	var messages []string
	var result string
	for _, ev := range events {
		switch ev.Type {
		case agent.EventMessage:
			messages = append(messages, ev.Content)
		case agent.EventResult:
			result = ev.Content
		}
	}

	require.GreaterOrEqual(t, len(messages), 3)
	assert.Equal(t, agent.AutoAttachNotice, messages[0])
	assert.Equal(t, "Answer: Paris\nAbstract: Capital of France.", messages[1])
	assert.Equal(t, "Paris is the capital of France.", messages[2])
	assert.Equal(t,
		"[web_search]\nAnswer: Paris\nAbstract: Capital of France.\n\n[summarizer]\nParis is the capital of France.",
		result)
	assert.Equal(t, agent.EventComplete, events[len(events)-1].Type)
}

func TestStreamFailingStepStillCompletes(t *testing.T) {
	inv := &fakeInvoker{outputs: map[string]string{"b": "ok"}, fail: map[string]error{"a": assert.AnError}}
	e := agent.NewEmitter(agent.NewPipeline(inv))

	events := collect(e, context.Background(), "query", []string{"a", "b"})

	assert.Equal(t, []agent.EventType{agent.EventConnection, agent.EventMessage, agent.EventMessage, agent.EventResult, agent.EventComplete}, types(events))
	assert.Equal(t, "Tool a error: "+assert.AnError.Error(), events[1].Content)
	assert.Equal(t, "[b]\nok", events[3].Content)
}

// panicky fails inside the producer.
type panicky struct{}

func (panicky) Invoke(context.Context, string, tools.Args) (tools.Output, error) {
	panic("registry corrupted")
}

func TestStreamProducerPanicBecomesErrorEvent(t *testing.T) {
	e := agent.NewEmitter(agent.NewPipeline(panicky{}))

	events := collect(e, context.Background(), "query", []string{"a", "b"})

	require.Equal(t, []agent.EventType{agent.EventConnection, agent.EventError}, types(events))
	assert.Equal(t, "registry corrupted", events[1].Message)
}

func TestStreamConsumerPanicPropagates(t *testing.T) {
	e := agent.NewEmitter(agent.NewPipeline(&fakeInvoker{}))
	assert.PanicsWithValue(t, "consumer", func() {
		for range e.Stream(context.Background(), "hi", nil) {
			panic("consumer")
		}
	})
}

func TestStreamStopsWhenConsumerStops(t *testing.T) {
	inv := &fakeInvoker{outputs: map[string]string{"a": "1", "b": "2"}}
	e := agent.NewEmitter(agent.NewPipeline(inv))

	for ev := range e.Stream(context.Background(), "query", []string{"a", "b"}) {
		if ev.Type == agent.EventMessage {
			break
		}
	}
	assert.Len(t, inv.calls, 1)
}

func TestStreamCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := agent.NewEmitter(agent.NewPipeline(&fakeInvoker{}))

	events := collect(e, ctx, "query", []string{"a"})
	require.Equal(t, []agent.EventType{agent.EventConnection, agent.EventError}, types(events))
	assert.Equal(t, context.Canceled.Error(), events[1].Message)
}

func TestEventJSON(t *testing.T) {
	ts := time.Unix(1700000000, 500000000)
	tests := []struct {
		ev   agent.Event
		want string
	}{
		{agent.Event{Type: agent.EventConnection, Status: "connected"}, `{"type":"connection","status":"connected"}`},
		{agent.Event{Type: agent.EventMessage, Content: "hi", Timestamp: ts}, `{"type":"message","content":"hi","timestamp":1700000000.5}`},
		{agent.Event{Type: agent.EventResult, Content: "", Timestamp: ts}, `{"type":"result","content":"","timestamp":1700000000.5}`},
		{agent.Event{Type: agent.EventError, Message: "boom", Timestamp: ts}, `{"type":"error","message":"boom","timestamp":1700000000.5}`},
		{agent.Event{Type: agent.EventComplete}, `{"type":"complete"}`},
	}
	for _, tt := range tests {
		data, err := json.Marshal(tt.ev)
		require.NoError(t, err)
		assert.JSONEq(t, tt.want, string(data))
	}
}
