package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// EventType discriminates stream events.
type EventType string

const (
	EventConnection EventType = "connection"
	EventMessage    EventType = "message"
	EventResult     EventType = "result"
	EventComplete   EventType = "complete"
	EventError      EventType = "error"
)

// GreetingReply answers a recognized greeting.
const GreetingReply = "Hello! How can I help you today?"

var greetings = []string{"hi", "hello", "hey", "hola", "yo", "sup", "good morning", "good afternoon", "good evening"}

// Event is one record of a run's stream.
type Event struct {
	Type      EventType
	Status    string // connection
	Content   string // message, result
	Message   string // error
	Timestamp time.Time
}

// MarshalJSON emits only the fields that belong to the event type.
func (e Event) MarshalJSON() ([]byte, error) {
	m := map[string]any{"type": e.Type}
	switch e.Type {
	case EventConnection:
		m["status"] = e.Status
	case EventMessage, EventResult:
		m["content"] = e.Content
		m["timestamp"] = unixSeconds(e.Timestamp)
	case EventError:
		m["message"] = e.Message
		m["timestamp"] = unixSeconds(e.Timestamp)
	}
	return json.Marshal(m)
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// IsGreeting reports whether query is small talk that needs no tools.
func IsGreeting(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	for _, g := range greetings {
		if q == g || strings.HasPrefix(q, g+" ") {
			return true
		}
	}
	return false
}

// Emitter turns pipeline runs into event streams.
type Emitter struct {
	pipeline *Pipeline
	now      func() time.Time
}

// NewEmitter creates an emitter over p.
func NewEmitter(p *Pipeline) *Emitter {
	return &Emitter{pipeline: p, now: time.Now}
}

// Stream yields connection, one message per non-empty step output, the
// result and complete. Greetings bypass the pipeline. A failure while
// producing events yields one error event and ends the stream.
func (e *Emitter) Stream(ctx context.Context, query string, names []string) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		// yielding distinguishes a consumer panic, which must propagate, from
		// a producer panic, which becomes an error event.
		yielding := false
		emit := func(ev Event) bool {
			if ev.Timestamp.IsZero() {
				ev.Timestamp = e.now()
			}
			yielding = true
			ok := yield(ev)
			yielding = false
			return ok
		}

		defer func() {
			p := recover()
			if p == nil {
				return
			}
			if yielding {
				panic(p)
			}
			log.Error().Interface("panic", p).Bytes("stack", debug.Stack()).Msg("agent stream failed")
			emit(Event{Type: EventError, Message: fmt.Sprint(p)})
		}()

		if !emit(Event{Type: EventConnection, Status: "connected"}) {
			return
		}

		if IsGreeting(query) {
			_ = emit(Event{Type: EventMessage, Content: GreetingReply}) &&
				emit(Event{Type: EventResult, Content: GreetingReply}) &&
				emit(Event{Type: EventComplete})
			return
		}

		var final State
		for st, err := range e.pipeline.Steps(ctx, query, names) {
			if err != nil {
				emit(Event{Type: EventError, Message: err.Error()})
				return
			}
			final = st
			if st.LastOutput == "" {
				continue
			}
			if !emit(Event{Type: EventMessage, Content: st.LastOutput}) {
				return
			}
		}

		_ = emit(Event{Type: EventResult, Content: final.Result()}) &&
			emit(Event{Type: EventComplete})
	}
}
