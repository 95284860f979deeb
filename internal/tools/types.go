// Package tools defines the Tool capability every registered tool exposes and
// ships the built-in native tools.
package tools

import (
	"context"
	"fmt"
)

// Args are the named inputs handed to a tool.
type Args map[string]any

// String returns the value of key rendered as text, or "" when absent.
func (a Args) String(key string) string {
	v, ok := a[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Int returns the value of key as an int, or def when absent or not numeric.
func (a Args) Int(key string, def int) int {
	switch v := a[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case float32:
		return int(v)
	}
	return def
}

// Filter returns a copy of a restricted to the given names.
func (a Args) Filter(names []string) Args {
	out := make(Args, len(names))
	for _, n := range names {
		if v, ok := a[n]; ok {
			out[n] = v
		}
	}
	return out
}

// Output is the single content value produced by a tool run.
// A degraded output carries a failure rendered as text; callers that only read
// Content treat both variants the same way.
type Output struct {
	Content  string `json:"content"`
	Degraded bool   `json:"degraded,omitempty"`
}

func (o Output) String() string { return o.Content }

// Text wraps content as a successful output.
func Text(content string) Output {
	return Output{Content: content}
}

// Degradedf renders a failure as output content.
func Degradedf(format string, args ...any) Output {
	return Output{Content: fmt.Sprintf(format, args...), Degraded: true}
}

// Tool is the uniform capability of every registered tool.
type Tool interface {
	Run(ctx context.Context, args Args) (Output, error)
}

// Param describes one declared input of a native tool.
type Param struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Required    bool   `json:"required,omitempty"`
}

// Spec describes a native tool: its declared input schema and a constructor.
// The constructor and Run both receive inputs filtered to Params.
type Spec struct {
	Name        string
	TypeName    string
	Description string
	Params      []Param
	New         func(args Args) (Tool, error)
}

// ParamNames returns the declared input names in order.
func (s Spec) ParamNames() []string {
	names := make([]string, len(s.Params))
	for i, p := range s.Params {
		names[i] = p.Name
	}
	return names
}

// Func adapts a plain function to the Tool capability.
type Func func(ctx context.Context, args Args) (Output, error)

func (f Func) Run(ctx context.Context, args Args) (Output, error) { return f(ctx, args) }
