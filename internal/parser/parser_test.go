package parser_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcorbin/cc0/internal/diag"
	"github.com/jcorbin/cc0/internal/ir"
	"github.com/jcorbin/cc0/internal/lexer"
	"github.com/jcorbin/cc0/internal/parser"
	"github.com/jcorbin/cc0/internal/source"
	"github.com/jcorbin/cc0/internal/strtab"
	"github.com/jcorbin/cc0/internal/symtab"
	"github.com/jcorbin/cc0/internal/token"
	"github.com/jcorbin/cc0/internal/types"
)

// skipNewlines drops the lexer's Newline tokens, which only the
// preprocessor otherwise consumes.
type skipNewlines struct{ lx *lexer.Lexer }

func (s skipNewlines) Next() token.Token {
	for {
		if t := s.lx.Next(); t.Kind != token.Newline {
			return t
		}
	}
}

// newParser wires a bare lexer (minus its Newline tokens) as the parser's
// token source, skipping preprocessing -- fine for inputs with no
// directives/macros.
func newParser(t *testing.T, src string) (*parser.Parser, *strtab.Table, *diag.Bag) {
	t.Helper()
	var stack source.Stack
	stack.Push(source.File, "t.c", strings.NewReader(src))
	strs := &strtab.Table{}
	lx := lexer.New(&stack, strs, lexer.C99)
	bag := diag.NewBag(&stack, nil, false)
	in := types.NewInterner()
	p := parser.New(skipNewlines{lx}, strs, in, bag, parser.C99)
	return p, strs, bag
}

func countOps(def *ir.Def) int {
	n := 0
	def.Walk(func(b *ir.Block) { n += len(b.Ops) })
	return n
}

func TestParseSimpleFunctionReturningConstant(t *testing.T) {
	p, strs, bag := newParser(t, "int main(void) { return 0; }")
	res := p.Parse()
	require.Empty(t, bag.Diagnostics)
	require.Len(t, res.Defs, 1)
	assert.Equal(t, "main", strs.Text(res.Defs[0].Sym.Name))
}

func TestParseArithmeticExpressionProducesOps(t *testing.T) {
	p, _, bag := newParser(t, `
		int add(int a, int b) {
			int c;
			c = a + b * 2;
			return c;
		}
	`)
	res := p.Parse()
	require.Empty(t, bag.Diagnostics)
	require.Len(t, res.Defs, 1)
	def := res.Defs[0]
	assert.Greater(t, countOps(def), 0, "arithmetic and assignment should emit ops")

	var sawMul, sawAdd bool
	def.Walk(func(b *ir.Block) {
		for _, op := range b.Ops {
			switch op.Opcode {
			case ir.OpMul:
				sawMul = true
			case ir.OpAdd:
				sawAdd = true
			}
		}
	})
	assert.True(t, sawMul, "b * 2 should lower to OpMul")
	assert.True(t, sawAdd, "a + (b*2) should lower to OpAdd")
}

func TestParseIfElseBuildsTwoSuccessorBlock(t *testing.T) {
	p, _, bag := newParser(t, `
		int pick(int x) {
			if (x) {
				return 1;
			} else {
				return 2;
			}
		}
	`)
	res := p.Parse()
	require.Empty(t, bag.Diagnostics)
	require.Len(t, res.Defs, 1)
	def := res.Defs[0]

	var sawConditional bool
	def.Walk(func(b *ir.Block) {
		if b.Conditional() {
			sawConditional = true
		}
	})
	assert.True(t, sawConditional, "if/else should produce a two-successor block")
}

func TestParseWhileLoopBuildsBackEdge(t *testing.T) {
	p, _, bag := newParser(t, `
		int sum(int n) {
			int s;
			s = 0;
			while (n) {
				s = s + n;
				n = n - 1;
			}
			return s;
		}
	`)
	res := p.Parse()
	require.Empty(t, bag.Diagnostics)
	require.Len(t, res.Defs, 1)
	def := res.Defs[0]

	// a while loop's body must branch back to the condition block; Walk
	// must terminate (it would infinite-loop on an unguarded back edge).
	visits := 0
	def.Walk(func(*ir.Block) { visits++ })
	assert.Equal(t, len(def.Blocks)-1, visits, "every block but the unreachable tail after return visited exactly once")
}

func TestParseTentativeDefinition(t *testing.T) {
	p, strs, bag := newParser(t, "int counter;")
	res := p.Parse()
	require.Empty(t, bag.Diagnostics)
	require.Len(t, res.Tentative, 1)
	assert.Equal(t, "counter", strs.Text(res.Tentative[0].Name))
}

func TestParseGlobalWithInitializerIsNotTentative(t *testing.T) {
	p, _, bag := newParser(t, "int counter = 1 + 2;")
	res := p.Parse()
	require.Empty(t, bag.Diagnostics)
	assert.Empty(t, res.Tentative, "an initialized global is a definition, not tentative")
}

func TestParseExternUndefinedIsReported(t *testing.T) {
	p, strs, bag := newParser(t, `
		extern int g;
		int use(void) { return g; }
	`)
	res := p.Parse()
	require.Empty(t, bag.Diagnostics)
	require.Len(t, res.Undefined, 1)
	assert.Equal(t, "g", strs.Text(res.Undefined[0].Name))
}

func TestParseFileScopeArrayLengthConstantExpression(t *testing.T) {
	// a non-trivial (non-literal) file-scope constant expression, which
	// once crashed on a nil curDef outside any function body.
	p, _, bag := newParser(t, "int arr[2+3];")
	assert.NotPanics(t, func() { p.Parse() })
	assert.Empty(t, bag.Diagnostics)
}

func TestParseUndeclaredIdentifierReportsError(t *testing.T) {
	p, _, bag := newParser(t, `
		int f(void) {
			return undeclared_name;
		}
	`)
	p.Parse()
	assert.NotEmpty(t, bag.Diagnostics, "use of an undeclared identifier should be reported")
}

func TestParseBreakContinueInLoop(t *testing.T) {
	p, _, bag := newParser(t, `
		int f(int n) {
			int i;
			for (i = 0; i < n; i = i + 1) {
				if (i == 5) {
					break;
				}
				if (i == 2) {
					continue;
				}
			}
			return i;
		}
	`)
	res := p.Parse()
	require.Empty(t, bag.Diagnostics)
	require.Len(t, res.Defs, 1)
}

func TestParseSwitchStatement(t *testing.T) {
	p, _, bag := newParser(t, `
		int f(int x) {
			switch (x) {
			case 1:
				return 10;
			case 2:
				return 20;
			default:
				return 0;
			}
		}
	`)
	res := p.Parse()
	require.Empty(t, bag.Diagnostics)
	require.Len(t, res.Defs, 1)
}

func TestResetClearsStateBetweenTranslationUnits(t *testing.T) {
	p, strs, bag := newParser(t, "int first;")
	res1 := p.Parse()
	require.Empty(t, bag.Diagnostics)
	require.Len(t, res1.Tentative, 1)

	var stack source.Stack
	stack.Push(source.File, "u2.c", strings.NewReader("int second;"))
	lx := lexer.New(&stack, strs, lexer.C99)
	p.Reset(lx)

	res2 := p.Parse()
	require.Len(t, res2.Tentative, 1)
	assert.Equal(t, "second", strs.Text(res2.Tentative[0].Name))
	assert.NotEqual(t, res1.Tentative[0].Name, res2.Tentative[0].Name)
}

func TestParseRecordsSymbolKindForFileScopeStatic(t *testing.T) {
	p, _, bag := newParser(t, "static int hidden;")
	res := p.Parse()
	require.Empty(t, bag.Diagnostics)
	require.Len(t, res.Tentative, 1)
	assert.Equal(t, symtab.KindStatic, res.Tentative[0].Kind)
	assert.Equal(t, symtab.LinkInternal, res.Tentative[0].Linkage)
}

func TestIntegerLiteralTypingByDialect(t *testing.T) {
	build := func(lexd lexer.Dialect, std parser.Dialect) ir.Var {
		t.Helper()
		var stack source.Stack
		stack.Push(source.File, "t.c", strings.NewReader("long v = 0x80000000;"))
		strs := &strtab.Table{}
		lx := lexer.New(&stack, strs, lexd)
		bag := diag.NewBag(&stack, nil, false)
		p := parser.New(lx, strs, types.NewInterner(), bag, std)
		res := p.Parse()
		require.Empty(t, bag.Diagnostics)
		require.Len(t, res.Inits, 1)
		return res.Inits[0].Val
	}

	v99 := build(lexer.C99, parser.C99)
	assert.Same(t, types.LongType, v99.Type, "0x80000000 is a long in C99")

	v89 := build(lexer.C89, parser.C89)
	assert.Same(t, types.UIntType, v89.Type, "0x80000000 is an unsigned int in C89")
}

func TestGlobalInitializerRetained(t *testing.T) {
	p, strs, bag := newParser(t, "int a = 3; int b; double d = 1.5;")
	res := p.Parse()
	require.Empty(t, bag.Diagnostics)
	require.Len(t, res.Inits, 2, "only initialized objects contribute image values")
	assert.Equal(t, "a", strs.Text(res.Inits[0].Sym.Name))
	assert.Equal(t, int64(3), res.Inits[0].Val.ImmInt)
	assert.Equal(t, "d", strs.Text(res.Inits[1].Sym.Name))
	assert.Equal(t, 1.5, res.Inits[1].Val.ImmFloat)
	require.Len(t, res.Tentative, 1)
	assert.Equal(t, "b", strs.Text(res.Tentative[0].Name))
}
