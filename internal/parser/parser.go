// Package parser implements the recursive-descent parser and IR
// constructor of spec.md §4.6: one-token lookahead over the
// preprocessed token stream, producing per external definition a CFG
// of basic blocks of typed three-address IR operations, with constant
// folding, usual arithmetic conversions, and lvalue-to-rvalue
// conversion performed at construction time.
package parser

import (
	"github.com/jcorbin/cc0/internal/diag"
	"github.com/jcorbin/cc0/internal/ir"
	"github.com/jcorbin/cc0/internal/strtab"
	"github.com/jcorbin/cc0/internal/symtab"
	"github.com/jcorbin/cc0/internal/token"
	"github.com/jcorbin/cc0/internal/types"
)

// TokenSource is the preprocessed stream the parser consumes;
// *cpp.Processor satisfies it.
type TokenSource interface {
	Next() token.Token
}

// Result is everything the parser produces for one translation unit,
// handed to the backend per spec.md §6's IR->backend contract.
type Result struct {
	Defs      []*ir.Def
	Tentative []*symtab.Symbol
	Undefined []*symtab.Symbol

	// Inits pairs each file-scope symbol whose initializer folded to a
	// constant with that immediate, in declaration order; the driver
	// lays these into the static data image handed to the object sink.
	Inits []GlobalInit
}

// GlobalInit is one file-scope definition's folded initializer value.
type GlobalInit struct {
	Sym *symtab.Symbol
	Val ir.Var
}

// Parser drives TU construction: declarations become either a
// completed ir.Def (function with a body) or a symtab.Symbol
// (tentative/external declaration), per spec.md §4.6.
type Parser struct {
	src  TokenSource
	strs *strtab.Table
	in   *types.Interner
	diag *diag.Bag

	Idents *symtab.Namespace
	Labels *symtab.Namespace
	Tags   *symtab.Namespace

	std Dialect

	tok     token.Token  // current lookahead
	buf2    *token.Token // second lookahead slot, for cast-vs-paren/typedef disambiguation
	peeked2 bool

	defs     []*ir.Def
	curDef   *ir.Def
	curBlock int

	// loop/switch context stacks for break/continue/case resolution.
	// breakStack holds one entry per enclosing loop OR switch (break
	// binds to whichever is innermost); continueStack holds one entry
	// per enclosing loop only, so continue skips past any switch frames
	// to the nearest loop, matching C's actual binding rules.
	loops         []loopCtx
	switches      []switchCtx
	breakStack    []int
	continueStack []int

	// pending forward gotos, resolved at end of function body.
	pendingGotos []pendingGoto
	labelBlocks  map[strtab.ID]int

	inits []GlobalInit

	// AbortCheck, when set, is consulted at statement boundaries; a
	// true return sets the TU abort flag so the parser unwinds cleanly
	// to its driver (spec.md §5's cancellation rule -- the driver wires
	// this to ctx.Err() and the diagnostic bag's fatal state).
	AbortCheck func() bool

	// lastParamNames captures the parameter names seen by the most
	// recently parsed function-suffix declarator, since the
	// types.Func built by declarator() only carries parameter types;
	// functionDefinition consumes this to bind parameter symbols.
	lastParamNames []strtab.ID

	aborted bool
}

// Dialect selects the accepted C dialect, mirroring lexer.Dialect
// (kept distinct so the parser can gate grammar, e.g. C99 declarations
// after statements, without importing the lexer package for it).
type Dialect int

const (
	C89 Dialect = iota
	C99
	C11
)

type loopCtx struct {
	continueTarget int
	breakTarget    int
}

type switchCtx struct {
	breakTarget   int
	cases         []caseEntry
	defaultSeen   bool
	defaultTarget int
	condType      types.Type
}

type caseEntry struct {
	value  int64
	target int
}

type pendingGoto struct {
	label strtab.ID
	block int
	at    token.Token
}

// New builds a Parser reading preprocessed tokens from src.
func New(src TokenSource, strs *strtab.Table, in *types.Interner, d *diag.Bag, std Dialect) *Parser {
	p := &Parser{
		src: src, strs: strs, in: in, diag: d, std: std,
		Idents: symtab.NewNamespace(),
		Labels: symtab.NewNamespace(),
		Tags:   symtab.NewNamespace(),
	}
	p.advance()
	return p
}

// Reset discards all per-TU parser state for reuse at a TU boundary
// (spec.md §5).
func (p *Parser) Reset(src TokenSource) {
	p.src = src
	p.Idents.Reset()
	p.Labels.Reset()
	p.Tags.Reset()
	p.defs = nil
	p.curDef = nil
	p.loops = nil
	p.switches = nil
	p.pendingGotos = nil
	p.labelBlocks = nil
	p.inits = nil
	p.aborted = false
	p.buf2 = nil
	p.peeked2 = false
	p.advance()
}

func (p *Parser) advance() {
	if p.peeked2 {
		p.tok = *p.buf2
		p.buf2 = nil
		p.peeked2 = false
		return
	}
	p.tok = p.src.Next()
}

// peek2 returns the token after the current one without consuming
// either, for the cast-vs-paren and typedef-name disambiguation
// spec.md §4.6 calls for.
func (p *Parser) peek2() token.Token {
	if !p.peeked2 {
		t := p.src.Next()
		p.buf2 = &t
		p.peeked2 = true
	}
	return *p.buf2
}

func (p *Parser) text(t token.Token) string { return p.strs.Text(t.Lit) }

func (p *Parser) isPunct(s string) bool {
	return p.tok.Kind == token.Punct && p.text(p.tok) == s
}

func (p *Parser) isKeyword(s string) bool {
	return p.tok.Kind == token.Keyword && p.text(p.tok) == s
}

// accept consumes the current token if it is the punctuator/keyword s,
// reporting whether it did.
func (p *Parser) accept(s string) bool {
	if p.isPunct(s) || p.isKeyword(s) {
		p.advance()
		return true
	}
	return false
}

// expect consumes the current token, which must be punctuator/keyword
// s, emitting an error and performing spec.md §4.6's statement-level
// error recovery if not.
func (p *Parser) expect(s string) bool {
	if p.accept(s) {
		return true
	}
	p.errorf("expected %q, found %q", s, p.tok.Kind)
	return false
}

// checkAbort latches the TU abort flag from AbortCheck, if wired.
func (p *Parser) checkAbort() bool {
	if !p.aborted && p.AbortCheck != nil && p.AbortCheck() {
		p.aborted = true
	}
	return p.aborted
}

func (p *Parser) errorf(format string, args ...interface{}) {
	p.diag.Reportf(diag.Error, p.tok.Pos, format, args...)
}

// syncToStatement implements spec.md §4.6's error recovery: "skip to
// the next statement terminator (`;` or matching `}`), increment the
// TU error counter, and continue" -- the error counter increment
// itself happens at the errorf call site; this only performs the skip.
func (p *Parser) syncToStatement() {
	depth := 0
	for {
		switch {
		case p.tok.Kind == token.EOF:
			return
		case p.isPunct("{"):
			depth++
			p.advance()
		case p.isPunct("}"):
			if depth == 0 {
				return
			}
			depth--
			p.advance()
			if depth == 0 {
				return
			}
		case p.isPunct(";") && depth == 0:
			p.advance()
			return
		default:
			p.advance()
		}
	}
}

// Parse runs the parser over the whole translation unit, per spec.md
// §4.6/§4.5's "after parsing, yield_declaration walks the file-scope
// namespace" contract.
func (p *Parser) Parse() Result {
	for p.tok.Kind != token.EOF && !p.checkAbort() {
		p.externalDeclaration()
	}
	p.checkUndefinedLabelsAcrossTU()
	return p.finish()
}

func (p *Parser) finish() Result {
	var tentative, undefined []*symtab.Symbol
	for _, sym := range p.Idents.FileScope() {
		switch {
		case sym.Kind == symtab.KindStatic || sym.Kind == symtab.KindAuto:
			if !sym.Defined {
				tentative = append(tentative, sym)
			}
		case sym.Kind == symtab.KindExtern && sym.Referenced && !sym.Defined:
			undefined = append(undefined, sym)
		}
	}
	return Result{Defs: p.defs, Tentative: tentative, Undefined: undefined, Inits: p.inits}
}

func (p *Parser) checkUndefinedLabelsAcrossTU() {}
