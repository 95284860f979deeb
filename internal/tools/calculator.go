package tools

import (
	"context"
	"encoding/json"
	"go/scanner"
	"go/token"
	"math"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/agentforge/agentforge/internal/llm"
)

const calculatorSystemPrompt = "You are a strict calculator. Evaluate the given mathematical expression " +
	"exactly and return a pure JSON object {\"result\": <number>} with no extra text."

// Calculator is the calculator native tool. Plain arithmetic is evaluated
// locally; anything else is handed to the language model.
type Calculator struct {
	llm llm.Completer
}

// NewCalculator creates the calculator tool.
func NewCalculator(c llm.Completer) *Calculator {
	return &Calculator{llm: c}
}

func (c *Calculator) Run(ctx context.Context, args Args) (Output, error) {
	expr := strings.TrimSpace(args.String("expression"))
	if expr == "" {
		return Output{}, errors.New("calculator: expression is required")
	}

	v, err := Evaluate(expr)
	if err == nil {
		return Text("Result: " + FormatNumber(v)), nil
	}
	if errors.Is(err, errDivisionByZero) {
		return Degradedf("Calculator error: %s", err), nil
	}

	raw, err := c.llm.Complete(ctx, llm.Request{
		System:      calculatorSystemPrompt,
		Prompt:      "Expression: " + expr + "\nReturn JSON only.",
		Temperature: 0,
		MaxTokens:   64,
	})
	if err != nil {
		return Degradedf("Calculator error: %s", err), nil
	}

	var parsed struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil || parsed.Result == nil {
		return Text("Result: " + raw), nil
	}
	return Text("Result: " + strings.Trim(string(parsed.Result), `"`)), nil
}

var errDivisionByZero = errors.New("division by zero")

// Evaluate computes an arithmetic expression: numbers, parentheses, + - * / %,
// ^ or ** for powers, the constants pi and e, and a few math functions.
// Powers bind tighter than unary minus and group right to left.
func Evaluate(expr string) (float64, error) {
	expr = strings.NewReplacer("×", "*", "÷", "/").Replace(expr)
	toks, err := scanExpr(expr)
	if err != nil {
		return 0, err
	}
	p := &exprParser{toks: toks}
	v, err := p.sum()
	if err != nil {
		return 0, err
	}
	if p.peek().tok != token.EOF {
		return 0, errors.Newf("unexpected %q", p.peek().text())
	}
	return v, nil
}

type exprToken struct {
	tok token.Token
	lit string
}

func (t exprToken) text() string {
	if t.lit != "" {
		return t.lit
	}
	return t.tok.String()
}

func scanExpr(expr string) ([]exprToken, error) {
	fset := token.NewFileSet()
	file := fset.AddFile("expr", fset.Base(), len(expr))
	var scanErr error
	var sc scanner.Scanner
	sc.Init(file, []byte(expr), func(_ token.Position, msg string) {
		if scanErr == nil {
			scanErr = errors.Newf("parse expression: %s", msg)
		}
	}, 0)

	var toks []exprToken
	for {
		_, tok, lit := sc.Scan()
		if scanErr != nil {
			return nil, scanErr
		}
		switch {
		case tok == token.EOF:
			return append(toks, exprToken{tok: token.EOF}), nil
		case tok == token.SEMICOLON && lit == "\n":
			// inserted at end of input
		case tok == token.MUL && len(toks) > 0 && toks[len(toks)-1].tok == token.MUL && toks[len(toks)-1].lit == "":
			toks[len(toks)-1] = exprToken{tok: token.XOR}
		case tok == token.MUL:
			toks = append(toks, exprToken{tok: tok})
		default:
			toks = append(toks, exprToken{tok: tok, lit: lit})
		}
	}
}

// exprParser is a recursive-descent evaluator:
//
//	sum     = product { ("+" | "-") product }
//	product = unary { ("*" | "/" | "%") unary }
//	unary   = ("-" | "+") unary | power
//	power   = primary [ ("^" | "**") unary ]
//	primary = number | constant | name "(" args ")" | "(" sum ")"
type exprParser struct {
	toks []exprToken
	pos  int
}

func (p *exprParser) peek() exprToken { return p.toks[p.pos] }

func (p *exprParser) next() exprToken {
	t := p.toks[p.pos]
	if t.tok != token.EOF {
		p.pos++
	}
	return t
}

func (p *exprParser) expect(tok token.Token) error {
	if t := p.next(); t.tok != tok {
		return errors.Newf("expected %s, got %q", tok, t.text())
	}
	return nil
}

func (p *exprParser) sum() (float64, error) {
	x, err := p.product()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek().tok {
		case token.ADD, token.SUB:
			op := p.next().tok
			y, err := p.product()
			if err != nil {
				return 0, err
			}
			if op == token.ADD {
				x += y
			} else {
				x -= y
			}
		default:
			return x, nil
		}
	}
}

func (p *exprParser) product() (float64, error) {
	x, err := p.unary()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek().tok {
		case token.MUL, token.QUO, token.REM:
			op := p.next().tok
			y, err := p.unary()
			if err != nil {
				return 0, err
			}
			switch {
			case op == token.MUL:
				x *= y
			case y == 0:
				return 0, errDivisionByZero
			case op == token.QUO:
				x /= y
			default:
				x = math.Mod(x, y)
			}
		default:
			return x, nil
		}
	}
}

func (p *exprParser) unary() (float64, error) {
	switch p.peek().tok {
	case token.SUB:
		p.next()
		x, err := p.unary()
		return -x, err
	case token.ADD:
		p.next()
		return p.unary()
	}
	return p.power()
}

func (p *exprParser) power() (float64, error) {
	base, err := p.primary()
	if err != nil {
		return 0, err
	}
	if p.peek().tok != token.XOR {
		return base, nil
	}
	p.next()
	exp, err := p.unary()
	if err != nil {
		return 0, err
	}
	return math.Pow(base, exp), nil
}

func (p *exprParser) primary() (float64, error) {
	t := p.next()
	switch t.tok {
	case token.INT, token.FLOAT:
		return strconv.ParseFloat(t.lit, 64)
	case token.LPAREN:
		x, err := p.sum()
		if err != nil {
			return 0, err
		}
		return x, p.expect(token.RPAREN)
	case token.IDENT:
		if p.peek().tok == token.LPAREN {
			return p.call(t.lit)
		}
		switch strings.ToLower(t.lit) {
		case "pi":
			return math.Pi, nil
		case "e":
			return math.E, nil
		}
		return 0, errors.Newf("unknown identifier %q", t.lit)
	}
	return 0, errors.Newf("unexpected %q", t.text())
}

func (p *exprParser) call(name string) (float64, error) {
	fn, ok := mathFuncs[strings.ToLower(name)]
	if !ok {
		return 0, errors.Newf("unknown function %q", name)
	}
	p.next() // (
	var args []float64
	if p.peek().tok != token.RPAREN {
		for {
			v, err := p.sum()
			if err != nil {
				return 0, err
			}
			args = append(args, v)
			if p.peek().tok != token.COMMA {
				break
			}
			p.next()
		}
	}
	if err := p.expect(token.RPAREN); err != nil {
		return 0, err
	}
	return fn(args...)
}

var mathFuncs = map[string]func(...float64) (float64, error){
	"sqrt":  unary(math.Sqrt),
	"abs":   unary(math.Abs),
	"floor": unary(math.Floor),
	"ceil":  unary(math.Ceil),
	"round": unary(math.Round),
	"sin":   unary(math.Sin),
	"cos":   unary(math.Cos),
	"tan":   unary(math.Tan),
	"log":   unary(math.Log),
	"log10": unary(math.Log10),
	"exp":   unary(math.Exp),
	"pow": func(a ...float64) (float64, error) {
		if len(a) != 2 {
			return 0, errors.New("pow takes two arguments")
		}
		return math.Pow(a[0], a[1]), nil
	},
	"min": func(a ...float64) (float64, error) {
		if len(a) == 0 {
			return 0, errors.New("min needs arguments")
		}
		m := a[0]
		for _, x := range a[1:] {
			m = math.Min(m, x)
		}
		return m, nil
	},
	"max": func(a ...float64) (float64, error) {
		if len(a) == 0 {
			return 0, errors.New("max needs arguments")
		}
		m := a[0]
		for _, x := range a[1:] {
			m = math.Max(m, x)
		}
		return m, nil
	},
}

func unary(f func(float64) float64) func(...float64) (float64, error) {
	return func(a ...float64) (float64, error) {
		if len(a) != 1 {
			return 0, errors.New("function takes one argument")
		}
		return f(a[0]), nil
	}
}

// FormatNumber renders integral values without a fractional part.
func FormatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
