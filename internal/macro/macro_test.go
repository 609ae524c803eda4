package macro_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcorbin/cc0/internal/lexer"
	"github.com/jcorbin/cc0/internal/macro"
	"github.com/jcorbin/cc0/internal/source"
	"github.com/jcorbin/cc0/internal/strtab"
	"github.com/jcorbin/cc0/internal/token"
)

func lexString(strs *strtab.Table, src string) *lexer.Lexer {
	var stk source.Stack
	stk.Push(source.File, "t.c", strings.NewReader(src))
	return lexer.New(&stk, strs, lexer.C99)
}

// litPieces tokenizes a replacement-list body into plain literal pieces,
// for tests that don't exercise params/stringize/paste.
func litPieces(t *testing.T, strs *strtab.Table, src string) []macro.Piece {
	t.Helper()
	lx := lexString(strs, src)
	var pieces []macro.Piece
	for {
		tok := lx.Next()
		if tok.Kind == token.EOF {
			return pieces
		}
		pieces = append(pieces, macro.Piece{Kind: macro.Lit, Tok: tok})
	}
}

func TestTableDefineRedefine(t *testing.T) {
	var strs strtab.Table
	var tbl macro.Table

	a := &macro.Macro{Name: strs.Intern("A"), Body: litPieces(t, &strs, "1")}
	prior, redefined := tbl.Define(a)
	assert.Nil(t, prior)
	assert.False(t, redefined)

	a2 := &macro.Macro{Name: strs.Intern("A"), Body: litPieces(t, &strs, "1")}
	prior, redefined = tbl.Define(a2)
	require.True(t, redefined)
	assert.True(t, prior.Equivalent(a2), "identical replacement lists are an allowed redefinition")

	a3 := &macro.Macro{Name: strs.Intern("A"), Body: litPieces(t, &strs, "2")}
	assert.False(t, a2.Equivalent(a3), "differing replacement lists are not equivalent")

	assert.True(t, tbl.Defined(strs.Intern("A")))
	tbl.Undef(strs.Intern("A"))
	assert.False(t, tbl.Defined(strs.Intern("A")))
	assert.Nil(t, tbl.Lookup(strs.Intern("A")))
}

func TestTableReset(t *testing.T) {
	var strs strtab.Table
	var tbl macro.Table
	tbl.Define(&macro.Macro{Name: strs.Intern("A")})
	tbl.Define(&macro.Macro{Name: strs.Intern("B")})
	tbl.Reset()
	assert.False(t, tbl.Defined(strs.Intern("A")))
	assert.False(t, tbl.Defined(strs.Intern("B")))
}

// expandAll runs src through the lexer and the expander and collects the
// spelling of every non-whitespace token.
func expandAll(t *testing.T, strs *strtab.Table, tbl *macro.Table, src string, b macro.Builtins) []string {
	t.Helper()
	lx := lexString(strs, src)
	ex := macro.NewExpander(lx, tbl, strs, b, nil)
	var out []string
	for {
		tok := ex.Next()
		if tok.Kind == token.EOF {
			break
		}
		if tok.Kind == token.Newline {
			continue
		}
		out = append(out, spell(strs, tok))
	}
	return out
}

func spell(strs *strtab.Table, tok token.Token) string {
	switch tok.Kind {
	case token.StringLit:
		return `"` + tok.Val.Str + `"`
	default:
		return strs.Text(tok.Lit)
	}
}

func TestExpandObjectLike(t *testing.T) {
	var strs strtab.Table
	var tbl macro.Table
	tbl.Define(&macro.Macro{Name: strs.Intern("N"), Body: litPieces(t, &strs, "42")})

	got := expandAll(t, &strs, &tbl, "x = N + N;", macro.Builtins{})
	assert.Equal(t, []string{"x", "=", "42", "+", "42", ";"}, got)
}

func TestExpandSelfReferenceDoesNotRecurse(t *testing.T) {
	var strs strtab.Table
	var tbl macro.Table
	name := strs.Intern("X")
	tbl.Define(&macro.Macro{Name: name, Body: litPieces(t, &strs, "X + 1")})

	got := expandAll(t, &strs, &tbl, "X", macro.Builtins{})
	assert.Equal(t, []string{"X", "+", "1"}, got)
}

func paramPiece(id int) macro.Piece { return macro.Piece{Kind: macro.Param, Param: id} }

func TestExpandFunctionLike(t *testing.T) {
	var strs strtab.Table
	var tbl macro.Table
	x := strs.Intern("x")
	plus := macro.Piece{Kind: macro.Lit, Tok: token.Token{Kind: token.Punct, Lit: strs.Intern("+")}}
	one := macro.Piece{Kind: macro.Lit, Tok: token.Token{Kind: token.IntLit, Lit: strs.Intern("1"), Val: token.LitValue{Int: 1}}}
	tbl.Define(&macro.Macro{
		Name: strs.Intern("INC"), FuncLike: true, Params: []strtab.ID{x},
		Body: []macro.Piece{paramPiece(0), plus, one},
	})

	got := expandAll(t, &strs, &tbl, "INC(5)", macro.Builtins{})
	assert.Equal(t, []string{"5", "+", "1"}, got)
}

func TestExpandFunctionLikeNotCalledWithoutParen(t *testing.T) {
	var strs strtab.Table
	var tbl macro.Table
	tbl.Define(&macro.Macro{Name: strs.Intern("F"), FuncLike: true})

	got := expandAll(t, &strs, &tbl, "F ;", macro.Builtins{})
	assert.Equal(t, []string{"F", ";"}, got)
}

func TestExpandArgumentIsPreExpanded(t *testing.T) {
	var strs strtab.Table
	var tbl macro.Table
	x := strs.Intern("x")
	tbl.Define(&macro.Macro{Name: strs.Intern("N"), Body: litPieces(t, &strs, "7")})
	tbl.Define(&macro.Macro{
		Name: strs.Intern("ID"), FuncLike: true, Params: []strtab.ID{x},
		Body: []macro.Piece{paramPiece(0)},
	})

	got := expandAll(t, &strs, &tbl, "ID(N)", macro.Builtins{})
	assert.Equal(t, []string{"7"}, got)
}

func TestExpandStringize(t *testing.T) {
	var strs strtab.Table
	var tbl macro.Table
	x := strs.Intern("x")
	tbl.Define(&macro.Macro{
		Name: strs.Intern("SQ"), FuncLike: true, Params: []strtab.ID{x},
		Body: []macro.Piece{{Kind: macro.Stringize, Param: 0}},
	})

	got := expandAll(t, &strs, &tbl, "SQ(hello world)", macro.Builtins{})
	assert.Equal(t, []string{`"hello world"`}, got)
}

func TestExpandPaste(t *testing.T) {
	var strs strtab.Table
	var tbl macro.Table
	a, b := strs.Intern("a"), strs.Intern("b")
	tbl.Define(&macro.Macro{
		Name: strs.Intern("CAT"), FuncLike: true, Params: []strtab.ID{a, b},
		Body: []macro.Piece{
			{Kind: macro.Param, Param: 0, PasteNext: true},
			{Kind: macro.Param, Param: 1, PastePrev: true},
		},
	})

	got := expandAll(t, &strs, &tbl, "CAT(foo, bar)", macro.Builtins{})
	assert.Equal(t, []string{"foobar"}, got)
}

func TestExpandVariadic(t *testing.T) {
	var strs strtab.Table
	var tbl macro.Table
	tbl.Define(&macro.Macro{
		Name: strs.Intern("LOG"), FuncLike: true, Variadic: true,
		Body: []macro.Piece{{Kind: macro.VAArgs}},
	})

	got := expandAll(t, &strs, &tbl, "LOG(1, 2, 3)", macro.Builtins{})
	assert.Equal(t, []string{"1", ",", "2", ",", "3"}, got)
}

func TestExpandBuiltinLine(t *testing.T) {
	var strs strtab.Table
	var tbl macro.Table
	got := expandAll(t, &strs, &tbl, "__LINE__", macro.Builtins{Line: func() int { return 7 }})
	assert.Equal(t, []string{"7"}, got)
}

func TestExpandBuiltinFile(t *testing.T) {
	var strs strtab.Table
	var tbl macro.Table
	got := expandAll(t, &strs, &tbl, "__FILE__", macro.Builtins{File: func() string { return "t.c" }})
	assert.Equal(t, []string{`"t.c"`}, got)
}
