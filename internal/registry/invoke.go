package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"

	"github.com/agentforge/agentforge/internal/llm"
	"github.com/agentforge/agentforge/internal/tools"
)

// Invoke runs the tool registered under name. Failures inside function and
// LLM-backed tools come back as degraded output; the returned error is
// reserved for unknown names and structural failures of native tools.
func (r *Registry) Invoke(ctx context.Context, name string, args tools.Args) (tools.Output, error) {
	d, ok := r.Lookup(name)
	if !ok {
		return tools.Output{}, errors.Wrapf(ErrUnknownTool, "%s", name)
	}
	if args == nil {
		args = tools.Args{}
	}

	switch d := d.(type) {
	case Native:
		return invokeNative(ctx, d, args)
	case Function:
		return r.invokeFunction(ctx, d, args), nil
	case LLMProxy:
		return r.complete(ctx, llm.Request{System: d.SystemPrompt, Prompt: primaryInput(args)}), nil
	case LLMCode:
		prompt, err := renderCodeRunnerPrompt(name, d.Description, d.Code, primaryInput(args))
		if err != nil {
			return tools.Degradedf("LLM tool error: %s", err), nil
		}
		return r.complete(ctx, llm.Request{System: codeRunnerSystemPrompt, Prompt: prompt}), nil
	}
	return tools.Output{}, errors.Newf("unsupported descriptor %T for %s", d, name)
}

func invokeNative(ctx context.Context, d Native, args tools.Args) (out tools.Output, err error) {
	defer func() {
		if p := recover(); p != nil {
			log.Error().Str("tool", d.Spec.Name).Interface("panic", p).Bytes("stack", debug.Stack()).Msg("native tool panicked")
			err = errors.Newf("panic: %v", p)
		}
	}()

	in := args
	if len(d.Spec.Params) > 0 {
		in = args.Filter(d.Spec.ParamNames())
	}
	tool, err := d.Spec.New(in)
	if err != nil {
		return tools.Output{}, err
	}
	return tool.Run(ctx, in)
}

func (r *Registry) invokeFunction(ctx context.Context, d Function, args tools.Args) tools.Output {
	in := args
	if !d.PassThrough {
		in = args.Filter(d.Params)
	}
	v, err := guard(ctx, r.opts.ToolTimeout, func(ctx context.Context) (any, error) {
		return d.Call(ctx, in)
	})
	if err != nil {
		return tools.Degradedf("Custom tool async execution error: %s", err)
	}
	return tools.Text(render(v))
}

func (r *Registry) complete(ctx context.Context, req llm.Request) tools.Output {
	ctx, cancel := context.WithTimeout(ctx, r.opts.LLMTimeout)
	defer cancel()

	req.Temperature = 0
	req.MaxTokens = r.opts.LLMMaxTokens
	text, err := r.llm.Complete(ctx, req)
	if err != nil {
		return tools.Degradedf("LLM tool error: %s", err)
	}
	return tools.Text(strings.TrimSpace(text))
}

// guard runs fn on its own goroutine under a per-call deadline and converts
// panics into errors. The caller blocks until fn returns or the deadline
// passes; a body that ignores its context is abandoned, not killed.
func guard(ctx context.Context, timeout time.Duration, fn func(context.Context) (any, error)) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		v   any
		err error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				log.Error().Interface("panic", p).Bytes("stack", debug.Stack()).Msg("tool body panicked")
				done <- result{err: errors.Newf("panic: %v", p)}
			}
		}()
		v, err := fn(ctx)
		done <- result{v: v, err: err}
	}()

	select {
	case res := <-done:
		return res.v, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// primaryInput prefers the "input" value, otherwise all inputs as JSON.
func primaryInput(args tools.Args) string {
	if v, ok := args[inputParam]; ok && v != nil {
		return render(v)
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Sprint(map[string]any(args))
	}
	return string(data)
}

func render(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case tools.Output:
		return v.Content
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprint(v)
}
