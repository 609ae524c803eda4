package cpp

import (
	"strconv"
	"strings"

	"github.com/jcorbin/cc0/internal/token"
)

// expandLine macro-expands a directive's argument tokens (used by
// #line and, after defined()-folding, by #if/#elif), per spec.md §4.3.
func (p *Processor) expandLine(toks []token.Token) []token.Token {
	return p.exp.ExpandSlice(toks)
}

// evalIfCond evaluates a `#if`/`#elif` controlling expression per
// spec.md §4.3/§8: `defined X` / `defined(X)` is resolved against the
// macro table *before* macro expansion (its operand must never itself
// be expanded), the remainder is macro-expanded, and the result is
// evaluated as an integer constant expression with any surviving
// identifier treated as 0.
func (p *Processor) evalIfCond(toks []token.Token, at token.Token) bool {
	if len(toks) == 0 {
		p.diag.Errorf(at, "#if with no expression")
		return false
	}
	folded := p.foldDefined(toks)
	expanded := p.expandLine(folded)
	ev := &exprEval{p: p, toks: expanded, at: at}
	v := ev.parseExpr(0)
	if ev.i < len(ev.toks) {
		p.diag.Errorf(at, "garbage after #if expression")
	}
	return v != 0
}

// foldDefined replaces every `defined NAME` or `defined(NAME)` with a
// synthetic IntLit 0 or 1, left-to-right over toks.
func (p *Processor) foldDefined(toks []token.Token) []token.Token {
	out := make([]token.Token, 0, len(toks))
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if t.Kind == token.Ident && t.Lit == p.definedID {
			j := i + 1
			paren := j < len(toks) && toks[j].Kind == token.Punct && p.strs.Text(toks[j].Lit) == "("
			if paren {
				j++
			}
			if j >= len(toks) || toks[j].Kind != token.Ident {
				p.diag.Errorf(at(toks, i, t), "defined expects an identifier")
				continue
			}
			name := toks[j]
			j++
			if paren {
				if j >= len(toks) || !(toks[j].Kind == token.Punct && p.strs.Text(toks[j].Lit) == ")") {
					p.diag.Errorf(at(toks, i, t), "missing ) after defined(%s", p.strs.Text(name.Lit))
				} else {
					j++
				}
			}
			v := int64(0)
			if p.Macros.Defined(name.Lit) {
				v = 1
			}
			out = append(out, p.intToken(v, t))
			i = j - 1
			continue
		}
		out = append(out, t)
	}
	return out
}

func at(toks []token.Token, i int, fallback token.Token) token.Token {
	if i < len(toks) {
		return toks[i]
	}
	return fallback
}

func (p *Processor) intToken(v int64, like token.Token) token.Token {
	return token.Token{
		Kind: token.IntLit, Pos: like.Pos,
		Lit: p.strs.Intern(strconv.FormatInt(v, 10)),
		Val: token.LitValue{Int: v},
	}
}

// exprEval is a small precedence-climbing evaluator for preprocessor
// constant expressions (spec.md §4.3): the usual C operators down to
// the ternary, over int64. Both operands of `&&`/`||` are always
// evaluated, and each division by zero is reported.
type exprEval struct {
	p    *Processor
	toks []token.Token
	i    int
	at   token.Token
}

func (e *exprEval) peek() (token.Token, bool) {
	if e.i < len(e.toks) {
		return e.toks[e.i], true
	}
	return token.Token{}, false
}

func (e *exprEval) op() string {
	t, ok := e.peek()
	if !ok || (t.Kind != token.Punct && t.Kind != token.Ident) {
		return ""
	}
	return e.p.strs.Text(t.Lit)
}

var binPrec = map[string]int{
	"||": 1,
	"&&": 2,
	"|":  3,
	"^":  4,
	"&":  5,
	"==": 6, "!=": 6,
	"<": 7, ">": 7, "<=": 7, ">=": 7,
	"<<": 8, ">>": 8,
	"+": 9, "-": 9,
	"*": 10, "/": 10, "%": 10,
}

// parseExpr parses left-to-right with precedence climbing starting at
// minPrec, then handles `? :` at the very top (precedence 0 call site).
func (e *exprEval) parseExpr(minPrec int) int64 {
	lhs := e.parseUnary()
	for {
		o := e.op()
		prec, ok := binPrec[o]
		if !ok || prec < minPrec {
			break
		}
		e.i++
		rhs := e.parseExpr(prec + 1)
		lhs = applyBin(o, lhs, rhs, e)
	}
	if minPrec == 0 {
		if o := e.op(); o == "?" {
			e.i++
			then := e.parseExpr(0)
			if o2 := e.op(); o2 == ":" {
				e.i++
			} else {
				e.p.diag.Errorf(e.at, "expected : in ?: expression")
			}
			els := e.parseExpr(0)
			if lhs != 0 {
				return then
			}
			return els
		}
	}
	return lhs
}

func applyBin(o string, a, b int64, e *exprEval) int64 {
	switch o {
	case "||":
		return b2i(a != 0 || b != 0)
	case "&&":
		return b2i(a != 0 && b != 0)
	case "|":
		return a | b
	case "^":
		return a ^ b
	case "&":
		return a & b
	case "==":
		return b2i(a == b)
	case "!=":
		return b2i(a != b)
	case "<":
		return b2i(a < b)
	case ">":
		return b2i(a > b)
	case "<=":
		return b2i(a <= b)
	case ">=":
		return b2i(a >= b)
	case "<<":
		return a << uint(b)
	case ">>":
		return a >> uint(b)
	case "+":
		return a + b
	case "-":
		return a - b
	case "*":
		return a * b
	case "/":
		if b == 0 {
			e.p.diag.Errorf(e.at, "division by zero in #if expression")
			return 0
		}
		return a / b
	case "%":
		if b == 0 {
			e.p.diag.Errorf(e.at, "division by zero in #if expression")
			return 0
		}
		return a % b
	}
	return 0
}

func b2i(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func (e *exprEval) parseUnary() int64 {
	o := e.op()
	switch o {
	case "!":
		e.i++
		return b2i(e.parseUnary() == 0)
	case "-":
		e.i++
		return -e.parseUnary()
	case "+":
		e.i++
		return e.parseUnary()
	case "~":
		e.i++
		return ^e.parseUnary()
	}
	return e.parsePrimary()
}

func (e *exprEval) parsePrimary() int64 {
	t, ok := e.peek()
	if !ok {
		e.p.diag.Errorf(e.at, "unexpected end of #if expression")
		return 0
	}
	switch t.Kind {
	case token.IntLit, token.CharLit:
		e.i++
		return t.Val.Int
	case token.Punct:
		if e.p.strs.Text(t.Lit) == "(" {
			e.i++
			v := e.parseExpr(0)
			if e.op() == ")" {
				e.i++
			} else {
				e.p.diag.Errorf(e.at, "expected ) in #if expression")
			}
			return v
		}
	case token.Ident:
		// any identifier surviving macro expansion (including keywords
		// like sizeof, which this integer-constant-expression subset
		// does not evaluate) is 0, per C99 6.10.1p4.
		e.i++
		if strings.HasPrefix(e.p.strs.Text(t.Lit), "__has_") {
			return 0
		}
		return 0
	}
	e.p.diag.Errorf(e.at, "invalid token in #if expression")
	e.i++
	return 0
}
