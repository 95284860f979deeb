package registry

import (
	"context"

	"github.com/agentforge/agentforge/internal/tools"
)

// Descriptor describes how to invoke a registered tool. The set of cases is
// closed: Native, Function, LLMProxy and LLMCode.
type Descriptor interface {
	descriptor()
}

// FuncCall is the callable wrapped by a Function descriptor.
type FuncCall func(ctx context.Context, args tools.Args) (any, error)

// Native is a tool type constructed per invocation. Built-ins have no Source;
// types defined by interpreted source keep it for persistence.
type Native struct {
	Spec   tools.Spec
	Source string
}

// Function wraps a plain callable. PassThrough callables receive every input;
// others receive only Params.
type Function struct {
	Description string
	Params      []string
	PassThrough bool
	Call        FuncCall
	Source      string
}

// LLMProxy forwards its input to the language model under SystemPrompt.
type LLMProxy struct {
	Description  string
	Params       []string
	SystemPrompt string
}

// LLMCode asks the language model to emulate Code on the input. Code is never
// executed locally.
type LLMCode struct {
	Description string
	Code        string
}

func (Native) descriptor()   {}
func (Function) descriptor() {}
func (LLMProxy) descriptor() {}
func (LLMCode) descriptor()  {}

// Info is the enumeration view of one tool.
type Info struct {
	Name        string   `json:"name"`
	Class       string   `json:"class"`
	Description string   `json:"description"`
	Parameters  []string `json:"parameters"`
}

const functionClass = "function"

func describe(name string, d Descriptor) Info {
	info := Info{Name: name, Class: functionClass}
	switch d := d.(type) {
	case Native:
		info.Class = d.Spec.TypeName
		info.Description = d.Spec.Description
		info.Parameters = d.Spec.ParamNames()
	case Function:
		info.Description = d.Description
		info.Parameters = d.Params
	case LLMProxy:
		info.Description = d.Description
		info.Parameters = d.Params
	case LLMCode:
		info.Description = d.Description
		info.Parameters = []string{inputParam}
	}
	if info.Parameters == nil {
		info.Parameters = []string{}
	}
	return info
}
