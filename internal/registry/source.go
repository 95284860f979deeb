package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/cockroachdb/errors"
	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/agentforge/agentforge/internal/tools"
)

// MaxSourceBytes caps source text accepted for registration.
const MaxSourceBytes = 10_000

const defaultSnippetPackage = "tool"

// AllowedImports lists the standard library packages interpreted source may
// import. Anything touching the filesystem, processes or the network is absent.
var AllowedImports = map[string]bool{
	"bytes":           true,
	"context":         true,
	"crypto/md5":      true,
	"crypto/sha1":     true,
	"crypto/sha256":   true,
	"encoding/base64": true,
	"encoding/hex":    true,
	"encoding/json":   true,
	"errors":          true,
	"fmt":             true,
	"hash/crc32":      true,
	"html":            true,
	"math":            true,
	"net/url":         true,
	"regexp":          true,
	"sort":            true,
	"strconv":         true,
	"strings":         true,
	"time":            true,
	"unicode":         true,
	"unicode/utf8":    true,
}

var sandboxSymbols = func() interp.Exports {
	out := interp.Exports{}
	for key, syms := range stdlib.Symbols {
		// keys are "<import path>/<package name>"
		i := strings.LastIndex(key, "/")
		if i > 0 && AllowedImports[key[:i]] {
			out[key] = syms
		}
	}
	return out
}()

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// runFunc is the shape of a source-defined tool type's Run method.
type runFunc = func(context.Context, map[string]interface{}) (string, error)

type factoryFunc = func([]byte) (runFunc, error)

// snippet is what static inspection found in a piece of source.
type snippet struct {
	src     string
	pkg     string
	toolTyp *typeDecl
	funcs   []funcDecl
}

type typeDecl struct {
	name   string
	fields []string
}

type funcDecl struct {
	name   string
	params []string
}

// compiled is the outcome of evaluating source: exactly one of native or function is set.
type compiled struct {
	native   *Native
	function *Function
}

// parseSnippet inspects source without executing it. A missing package clause
// is supplied.
func parseSnippet(src string) (*snippet, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "snippet.go", src, parser.SkipObjectResolution)
	if err != nil && !strings.HasPrefix(strings.TrimSpace(src), "package ") {
		src = "package " + defaultSnippetPackage + "\n\n" + src
		file, err = parser.ParseFile(fset, "snippet.go", src, parser.SkipObjectResolution)
	}
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "parse source"), ErrValidationFailed)
	}

	s := &snippet{src: src, pkg: file.Name.Name}
	if s.pkg == "main" {
		return nil, errors.Mark(errors.New("source must not be package main"), ErrValidationFailed)
	}

	for _, imp := range file.Imports {
		path, _ := strconv.Unquote(imp.Path.Value)
		if !AllowedImports[path] {
			return nil, errors.Mark(errors.Newf("import %q is not allowed", path), ErrValidationFailed)
		}
	}

	structs := map[string][]string{}
	var typeOrder []string
	runners := map[string]bool{}

	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.GenDecl:
			for _, spec := range d.Specs {
				ts, ok := spec.(*ast.TypeSpec)
				if !ok {
					continue
				}
				typeOrder = append(typeOrder, ts.Name.Name)
				if st, ok := ts.Type.(*ast.StructType); ok {
					structs[ts.Name.Name] = structFields(st)
				}
			}
		case *ast.FuncDecl:
			if d.Recv != nil {
				if d.Name.Name == "Run" && len(d.Recv.List) == 1 && isRunSignature(d.Type) {
					runners[receiverName(d.Recv.List[0].Type)] = true
				}
				continue
			}
			name := d.Name.Name
			if name == "init" || name == "main" || name == "_" {
				continue
			}
			s.funcs = append(s.funcs, funcDecl{name: name, params: paramNames(d.Type)})
		}
	}

	for _, name := range typeOrder {
		if runners[name] {
			s.toolTyp = &typeDecl{name: name, fields: structs[name]}
			break
		}
	}
	return s, nil
}

// pickFunction prefers a function named like the tool, then the first exported
// one, then the first one.
func (s *snippet) pickFunction(toolName string) *funcDecl {
	want := normalizeName(toolName)
	for i := range s.funcs {
		if s.funcs[i].name == toolName || normalizeName(s.funcs[i].name) == want {
			return &s.funcs[i]
		}
	}
	for i := range s.funcs {
		if ast.IsExported(s.funcs[i].name) {
			return &s.funcs[i]
		}
	}
	if len(s.funcs) > 0 {
		return &s.funcs[0]
	}
	return nil
}

// compileSource evaluates src in a fresh interpreter and binds the preferred
// executable.
func compileSource(name, src, description string, timeout time.Duration) (*compiled, error) {
	if len(src) > MaxSourceBytes {
		return nil, errors.Wrapf(ErrPayloadTooLarge, "source is %d bytes, limit is %d", len(src), MaxSourceBytes)
	}
	s, err := parseSnippet(src)
	if err != nil {
		return nil, err
	}

	var fn *funcDecl
	if s.toolTyp == nil {
		if fn = s.pickFunction(name); fn == nil {
			return nil, ErrNoExecutableFound
		}
	}

	i := interp.New(interp.Options{Stdout: io.Discard, Stderr: io.Discard})
	if err := i.Use(sandboxSymbols); err != nil {
		return nil, errors.Wrap(err, "load interpreter symbols")
	}
	if _, err := i.Eval(s.src); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "evaluate source"), ErrValidationFailed)
	}

	if s.toolTyp != nil {
		native, err := bindType(i, name, description, s, timeout)
		if err != nil {
			return nil, err
		}
		native.Source = src
		return &compiled{native: native}, nil
	}

	v, err := i.Eval(s.pkg + "." + fn.name)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %s", fn.name)
	}
	function, err := bindFunction(v, fn.params)
	if err != nil {
		return nil, err
	}
	function.Description = description
	function.Source = src
	return &compiled{function: function}, nil
}

func bindType(i *interp.Interpreter, name, description string, s *snippet, timeout time.Duration) (*Native, error) {
	if _, err := i.Eval(`import (
	"context"
	"encoding/json"
)`); err != nil {
		return nil, errors.Wrap(err, "prepare interpreter")
	}

	v, err := i.Eval(fmt.Sprintf(`func(raw []byte) (func(context.Context, map[string]interface{}) (string, error), error) {
	t := &%s.%s{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, t); err != nil {
			return nil, err
		}
	}
	return t.Run, nil
}`, s.pkg, s.toolTyp.name))
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "%s.Run must be func(context.Context, map[string]any) (string, error)", s.toolTyp.name), ErrValidationFailed)
	}
	factory, ok := asFactory(v)
	if !ok {
		return nil, errors.Mark(errors.Newf("cannot bind %s", s.toolTyp.name), ErrValidationFailed)
	}

	params := make([]tools.Param, len(s.toolTyp.fields))
	for k, f := range s.toolTyp.fields {
		params[k] = tools.Param{Name: f}
	}

	return &Native{Spec: tools.Spec{
		Name:        name,
		TypeName:    s.toolTyp.name,
		Description: description,
		Params:      params,
		New: func(args tools.Args) (tools.Tool, error) {
			raw, err := json.Marshal(args)
			if err != nil {
				return nil, errors.Wrap(err, "encode constructor inputs")
			}
			run, err := factory(raw)
			if err != nil {
				return nil, errors.Wrap(err, "construct tool")
			}
			return &interpretedTool{run: run, timeout: timeout}, nil
		},
	}}, nil
}

// funcValue unwraps the pointer and interface layers the interpreter puts
// around evaluated expressions.
func funcValue(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) && !v.IsNil() {
		v = v.Elem()
	}
	return v
}

// asFactory binds the evaluated constructor literal. When the interpreter
// hands back a function of the right shape but a distinct type, it is
// called through reflection.
func asFactory(v reflect.Value) (factoryFunc, bool) {
	fv := funcValue(v)
	if !fv.IsValid() || fv.Kind() != reflect.Func {
		return nil, false
	}
	if f, ok := fv.Interface().(factoryFunc); ok {
		return f, true
	}
	if t := fv.Type(); t.NumIn() != 1 || t.NumOut() != 2 || t.Out(1) != errorType {
		return nil, false
	}
	return func(raw []byte) (runFunc, error) {
		out := fv.Call([]reflect.Value{reflect.ValueOf(raw)})
		if !out[1].IsNil() {
			return nil, out[1].Interface().(error)
		}
		return asRunFunc(out[0])
	}, true
}

func asRunFunc(v reflect.Value) (runFunc, error) {
	rv := funcValue(v)
	if !rv.IsValid() || rv.Kind() != reflect.Func {
		return nil, errors.New("constructor did not return a Run method")
	}
	if run, ok := rv.Interface().(runFunc); ok {
		return run, nil
	}
	return func(ctx context.Context, args map[string]interface{}) (string, error) {
		out := rv.Call([]reflect.Value{reflect.ValueOf(&ctx).Elem(), reflect.ValueOf(args)})
		if !out[1].IsNil() {
			return "", out[1].Interface().(error)
		}
		return fmt.Sprint(funcValue(out[0]).Interface()), nil
	}, nil
}

// bindFunction adapts an interpreted function value. Supported shapes are an
// optional leading context.Context followed by either named parameters or a
// single map[string]any, returning T or (T, error).
func bindFunction(fv reflect.Value, names []string) (*Function, error) {
	fv = funcValue(fv)
	if !fv.IsValid() || fv.Kind() != reflect.Func {
		return nil, ErrNoExecutableFound
	}
	t := fv.Type()
	if t.IsVariadic() {
		return nil, errors.Mark(errors.New("variadic functions are not supported"), ErrValidationFailed)
	}
	switch {
	case t.NumOut() == 1 && t.Out(0) != errorType:
	case t.NumOut() == 2 && t.Out(1) == errorType:
	default:
		return nil, errors.Mark(errors.New("function must return a value, optionally followed by an error"), ErrValidationFailed)
	}

	first := 0
	if t.NumIn() > 0 && t.In(0) == contextType {
		first = 1
	}
	in := make([]reflect.Type, 0, t.NumIn()-first)
	for k := first; k < t.NumIn(); k++ {
		in = append(in, t.In(k))
	}

	passThrough := len(in) == 1 && isArgsMap(in[0])
	params := make([]string, 0, len(in))
	if !passThrough {
		for k := range in {
			if k < len(names) {
				params = append(params, names[k])
			} else {
				params = append(params, fmt.Sprintf("arg%d", k))
			}
		}
	}

	call := func(ctx context.Context, args tools.Args) (any, error) {
		callArgs := make([]reflect.Value, 0, t.NumIn())
		if first == 1 {
			callArgs = append(callArgs, reflect.ValueOf(&ctx).Elem())
		}
		if passThrough {
			m := map[string]interface{}(args)
			if m == nil {
				m = map[string]interface{}{}
			}
			callArgs = append(callArgs, reflect.ValueOf(m).Convert(in[0]))
		} else {
			for k, p := range params {
				v, err := convertArg(args[p], in[k])
				if err != nil {
					return nil, errors.Wrapf(err, "argument %s", p)
				}
				callArgs = append(callArgs, v)
			}
		}

		out := fv.Call(callArgs)
		if len(out) == 2 && !out[1].IsNil() {
			return nil, out[1].Interface().(error)
		}
		return out[0].Interface(), nil
	}

	return &Function{Params: params, PassThrough: passThrough, Call: call}, nil
}

// interpretedTool runs a source-defined type's Run method.
type interpretedTool struct {
	run     runFunc
	timeout time.Duration
}

func (t *interpretedTool) Run(ctx context.Context, args tools.Args) (tools.Output, error) {
	v, err := guard(ctx, t.timeout, func(ctx context.Context) (any, error) {
		return t.run(ctx, map[string]interface{}(args))
	})
	if err != nil {
		return tools.Output{}, err
	}
	return tools.Text(v.(string)), nil
}

func convertArg(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(t) {
		return rv, nil
	}
	if t.Kind() == reflect.String {
		return reflect.ValueOf(fmt.Sprint(v)).Convert(t), nil
	}
	if isNumeric(t.Kind()) {
		if isNumeric(rv.Kind()) {
			return rv.Convert(t), nil
		}
		if s, ok := v.(string); ok {
			f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return reflect.Value{}, errors.Wrapf(err, "cannot use %q as %s", s, t)
			}
			return reflect.ValueOf(f).Convert(t), nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return reflect.Value{}, errors.Wrap(err, "encode argument")
	}
	ptr := reflect.New(t)
	if err := json.Unmarshal(data, ptr.Interface()); err != nil {
		return reflect.Value{}, errors.Wrapf(err, "cannot use %T as %s", v, t)
	}
	return ptr.Elem(), nil
}

func isNumeric(k reflect.Kind) bool {
	return (k >= reflect.Int && k <= reflect.Uint64) || k == reflect.Float32 || k == reflect.Float64
}

func isArgsMap(t reflect.Type) bool {
	return t.Kind() == reflect.Map && t.Key().Kind() == reflect.String && t.Elem().Kind() == reflect.Interface
}

func isRunSignature(ft *ast.FuncType) bool {
	return ft.Params != nil && ft.Params.NumFields() == 2 && ft.Results != nil && ft.Results.NumFields() == 2
}

func receiverName(expr ast.Expr) string {
	switch e := expr.(type) {
	case *ast.StarExpr:
		return receiverName(e.X)
	case *ast.Ident:
		return e.Name
	case *ast.IndexExpr:
		return receiverName(e.X)
	}
	return ""
}

// paramNames lists declared parameter names, skipping context.Context.
func paramNames(ft *ast.FuncType) []string {
	var names []string
	if ft.Params == nil {
		return names
	}
	for k, field := range ft.Params.List {
		if isContextExpr(field.Type) {
			continue
		}
		if len(field.Names) == 0 {
			names = append(names, fmt.Sprintf("arg%d", k))
			continue
		}
		for _, n := range field.Names {
			names = append(names, n.Name)
		}
	}
	return names
}

func isContextExpr(expr ast.Expr) bool {
	sel, ok := expr.(*ast.SelectorExpr)
	if !ok {
		return false
	}
	pkg, ok := sel.X.(*ast.Ident)
	return ok && pkg.Name == "context" && sel.Sel.Name == "Context"
}

// structFields returns the JSON names of exported fields.
func structFields(st *ast.StructType) []string {
	var fields []string
	for _, f := range st.Fields.List {
		tagName := ""
		if f.Tag != nil {
			tag, _ := strconv.Unquote(f.Tag.Value)
			tagName = strings.Split(reflect.StructTag(tag).Get("json"), ",")[0]
		}
		if tagName == "-" {
			continue
		}
		for _, n := range f.Names {
			if !n.IsExported() {
				continue
			}
			if tagName != "" {
				fields = append(fields, tagName)
			} else {
				fields = append(fields, n.Name)
			}
		}
	}
	return fields
}

// normalizeName folds case and drops underscores so word_count matches WordCount.
func normalizeName(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r == '_' {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
