// Package registry holds the process-wide set of invokable tools, registered
// at boot or at runtime, and their persisted projection.
package registry

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"

	"github.com/agentforge/agentforge/internal/llm"
	"github.com/agentforge/agentforge/internal/store"
	"github.com/agentforge/agentforge/internal/tools"
)

// Default limits for outbound work done on behalf of a tool.
const (
	DefaultToolTimeout  = 30 * time.Second
	DefaultLLMTimeout   = 60 * time.Second
	DefaultLLMMaxTokens = 128
)

// Options tunes a Registry.
type Options struct {
	ToolTimeout  time.Duration
	LLMTimeout   time.Duration
	LLMMaxTokens int
}

// Registry maps tool names to descriptors. Registration and lookup hold the
// lock; tool bodies always run after it is released.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Descriptor
	order   []string

	store store.Store
	llm   llm.Completer
	opts  Options
}

// New creates an empty registry. st may be nil for a memory-only registry.
func New(st store.Store, completer llm.Completer, opts Options) *Registry {
	if opts.ToolTimeout <= 0 {
		opts.ToolTimeout = DefaultToolTimeout
	}
	if opts.LLMTimeout <= 0 {
		opts.LLMTimeout = DefaultLLMTimeout
	}
	if opts.LLMMaxTokens <= 0 {
		opts.LLMMaxTokens = DefaultLLMMaxTokens
	}
	if completer == nil {
		completer = llm.Disabled{}
	}
	return &Registry{
		entries: make(map[string]Descriptor),
		store:   st,
		llm:     completer,
		opts:    opts,
	}
}

// RegisterNative adds a built-in tool type. Natives are never persisted.
func (r *Registry) RegisterNative(spec tools.Spec) error {
	if err := validName(spec.Name); err != nil {
		return err
	}
	if spec.New == nil {
		return errors.Mark(errors.Newf("tool %s has no constructor", spec.Name), ErrValidationFailed)
	}
	r.put(spec.Name, Native{Spec: spec})
	return nil
}

// RegisterFunction adds a host callable. A nil params list passes every input
// through. Host callables are code, not data, and are never persisted.
func (r *Registry) RegisterFunction(name, description string, params []string, call FuncCall) error {
	if err := validName(name); err != nil {
		return err
	}
	if call == nil {
		return errors.Mark(errors.Newf("tool %s has no callable", name), ErrValidationFailed)
	}
	r.put(name, Function{
		Description: description,
		Params:      params,
		PassThrough: params == nil,
		Call:        call,
	})
	return nil
}

// RegisterSource evaluates Go source and registers the tool type or function
// it defines. The registry is unchanged when evaluation fails.
func (r *Registry) RegisterSource(ctx context.Context, name, source, description string) error {
	return r.registerSource(ctx, name, source, description, true)
}

func (r *Registry) registerSource(ctx context.Context, name, source, description string, persist bool) error {
	if err := validName(name); err != nil {
		return err
	}
	c, err := compileSource(name, source, description, r.opts.ToolTimeout)
	if err != nil {
		return err
	}

	var d Descriptor
	rec := store.Record{Name: name, Description: description, Code: source}
	if c.native != nil {
		d = *c.native
		rec.Kind = store.KindClass
		rec.Parameters = c.native.Spec.ParamNames()
	} else {
		d = *c.function
		rec.Kind = store.KindFunction
		rec.Parameters = c.function.Params
	}

	r.put(name, d)
	if persist {
		r.persist(ctx, rec)
	}
	return nil
}

// RegisterLLMProxy registers a tool answered by the language model. params
// defaults to ["input"].
func (r *Registry) RegisterLLMProxy(ctx context.Context, name, description string, params []string) error {
	return r.registerLLMProxy(ctx, name, description, params, true)
}

func (r *Registry) registerLLMProxy(ctx context.Context, name, description string, params []string, persist bool) error {
	if err := validName(name); err != nil {
		return err
	}
	if len(params) == 0 {
		params = []string{inputParam}
	}
	r.put(name, LLMProxy{
		Description:  description,
		Params:       params,
		SystemPrompt: proxySystemPrompt(name, description),
	})
	if persist {
		r.persist(ctx, store.Record{
			Name:        name,
			Kind:        store.KindFunction,
			Description: description,
			Parameters:  params,
			LLMProxy:    true,
		})
	}
	return nil
}

// RegisterLLMCode registers a tool whose behavior the language model emulates
// from code. The code is carried as text and never executed.
func (r *Registry) RegisterLLMCode(ctx context.Context, name, description, code string) error {
	return r.registerLLMCode(ctx, name, description, code, true)
}

func (r *Registry) registerLLMCode(ctx context.Context, name, description, code string, persist bool) error {
	if err := validName(name); err != nil {
		return err
	}
	if strings.TrimSpace(code) == "" {
		return errors.Mark(errors.New("code is required"), ErrValidationFailed)
	}
	if len(code) > MaxSourceBytes {
		return errors.Wrapf(ErrPayloadTooLarge, "code is %d bytes, limit is %d", len(code), MaxSourceBytes)
	}
	r.put(name, LLMCode{Description: description, Code: code})
	if persist {
		r.persist(ctx, store.Record{
			Name:        name,
			Kind:        store.KindFunction,
			Description: description,
			Parameters:  []string{inputParam},
			Code:        code,
			LLMCode:     true,
		})
	}
	return nil
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.entries[name]
	return d, ok
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// Enumerate lists every tool in registration order.
func (r *Registry) Enumerate() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Info, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, describe(name, r.entries[name]))
	}
	return out
}

// Rehydrate replays persisted records. Names already registered win, so
// built-ins registered first are never replaced. A record that fails is logged
// and skipped. It returns how many records were restored.
func (r *Registry) Rehydrate(ctx context.Context) (int, error) {
	if r.store == nil {
		return 0, nil
	}
	recs, err := r.store.Load(ctx)
	if err != nil {
		return 0, errors.Mark(errors.Wrap(err, "load persisted tools"), ErrPersistence)
	}

	restored := 0
	for _, rec := range recs {
		logger := log.With().Str("tool", rec.Name).Logger()
		if rec.Name == "" {
			continue
		}
		if r.Has(rec.Name) {
			logger.Debug().Msg("persisted tool shadowed by existing registration")
			continue
		}

		var err error
		switch {
		case rec.LLMProxy:
			err = r.registerLLMProxy(ctx, rec.Name, rec.Description, rec.Parameters, false)
		case rec.LLMCode:
			if rec.Code == "" {
				continue
			}
			err = r.registerLLMCode(ctx, rec.Name, rec.Description, rec.Code, false)
		default:
			if rec.Code == "" {
				continue
			}
			err = r.registerSource(ctx, rec.Name, rec.Code, rec.Description, false)
		}
		if err != nil {
			logger.Warn().Err(err).Msg("failed to rehydrate persisted tool")
			continue
		}
		restored++
	}
	log.Info().Int("restored", restored).Int("records", len(recs)).Msg("tool registry rehydrated")
	return restored, nil
}

func (r *Registry) put(name string, d Descriptor) {
	r.mu.Lock()
	if _, exists := r.entries[name]; !exists {
		r.order = append(r.order, name)
	}
	r.entries[name] = d
	r.mu.Unlock()

	log.Info().Str("tool", name).Str("kind", kindOf(d)).Msg("tool registered")
}

// persist upserts rec. Failures are logged; the in-memory registration stands.
func (r *Registry) persist(ctx context.Context, rec store.Record) {
	if r.store == nil {
		return
	}
	if err := r.store.Upsert(ctx, rec); err != nil {
		err = errors.Mark(err, ErrPersistence)
		log.Warn().Err(err).Str("tool", rec.Name).Msg("failed to persist tool")
	}
}

func validName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.Mark(errors.New("tool name is required"), ErrValidationFailed)
	}
	return nil
}

// Kind labels used in logs and audit records.
const (
	KindNative   = "native"
	KindFunction = "function"
	KindSource   = "source"
	KindLLMProxy = "llm_proxy"
	KindLLMCode  = "llm_code"
)

func kindOf(d Descriptor) string {
	switch d := d.(type) {
	case Native:
		if d.Source != "" {
			return KindSource
		}
		return KindNative
	case Function:
		if d.Source != "" {
			return KindSource
		}
		return KindFunction
	case LLMProxy:
		return KindLLMProxy
	case LLMCode:
		return KindLLMCode
	}
	return "unknown"
}
