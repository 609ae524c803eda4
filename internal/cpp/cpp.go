// Package cpp implements the preprocessor directive engine of spec.md
// §4.2/§4.3: it drives the input stack and the macro table and hands
// the macro expander a clean, directive-free token stream.
package cpp

import (
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/jcorbin/cc0/internal/lexer"
	"github.com/jcorbin/cc0/internal/macro"
	"github.com/jcorbin/cc0/internal/source"
	"github.com/jcorbin/cc0/internal/strtab"
	"github.com/jcorbin/cc0/internal/token"
)

// Diag receives directive-engine diagnostics. A Fatalf call does not
// itself stop processing; the caller decides whether to abort based on
// its own error/fatal state, matching internal/lexer.Error's
// Fatal-is-advisory shape.
type Diag interface {
	Warningf(pos token.Token, format string, args ...interface{})
	Errorf(pos token.Token, format string, args ...interface{})
	// Fatalf reports a diagnostic that aborts the TU: #error, or an
	// unterminated conditional at end of input.
	Fatalf(pos token.Token, format string, args ...interface{})
}

// Resolver finds and opens the file named by an #include directive.
// local is true for the `"..."` quote form (search the including
// file's directory first), false for the `<...>` angle form (search
// path list only). fromDir is the directory of the including frame.
type Resolver interface {
	Resolve(name string, local bool, fromDir string) (canonical string, r io.ReadCloser, err error)
}

// Processor combines the source stack, lexer, macro table, and macro
// expander into the single preprocessed token stream the parser reads
// from, per spec.md §4.3 ("emits a clean token stream").
type Processor struct {
	src     *source.Stack
	lx      *lexer.Lexer
	strs    *strtab.Table
	Macros  *macro.Table
	exp     *macro.Expander
	diag    Diag
	resolve Resolver
	dialect lexer.Dialect

	cond []condFrame

	pragmaOnce map[string]bool
	deps       []string
	depSeen    map[string]bool
	depMode    bool

	poundID, poundPoundID, definedID, vaArgsID strtab.ID

	lexErrs int // count of lexer errors already reported

	closers []io.Closer
}

type condState int

const (
	condTaken condState = iota
	condSkippingUntilElif
	condDone
)

type condFrame struct {
	state     condState
	sawElse   bool
	directive token.Token // for unterminated-condition diagnostics
}

// New builds a Processor whose root frame is already on src (the
// caller Pushes the primary file before calling New, matching
// source.Stack's own construction style).
func New(src *source.Stack, strs *strtab.Table, dialect lexer.Dialect, resolve Resolver, b macro.Builtins, d Diag) *Processor {
	p := &Processor{
		src: src, strs: strs, dialect: dialect, resolve: resolve, diag: d,
		Macros:       &macro.Table{},
		pragmaOnce:   make(map[string]bool),
		depSeen:      make(map[string]bool),
		poundID:      strs.Intern("#"),
		poundPoundID: strs.Intern("##"),
		definedID:    strs.Intern("defined"),
		vaArgsID:     strs.Intern("__VA_ARGS__"),
	}
	p.lx = lexer.New(src, strs, dialect)
	p.exp = macro.NewExpander(rawSource{p}, p.Macros, strs, b, macroDiag{d})
	return p
}

// SetDependencyMode enables recording of every successfully-opened
// #include path, per spec.md §4.3's "-M family" dependency mode.
func (p *Processor) SetDependencyMode(on bool) { p.depMode = on }

// Dependencies returns the recorded include paths in open order, once
// dependency mode is enabled.
func (p *Processor) Dependencies() []string { return p.deps }

// Next returns the next macro-expanded, directive-free token.
func (p *Processor) Next() token.Token { return p.exp.Next() }

// Close releases every opened #include file.
func (p *Processor) Close() error {
	var first error
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type rawSource struct{ p *Processor }

func (r rawSource) Next() token.Token { return r.p.nextRaw() }

func (p *Processor) skipping() bool {
	for _, c := range p.cond {
		if c.state != condTaken {
			return true
		}
	}
	return false
}

// nextRaw implements the directive-consuming loop: it reads tokens
// from the lexer, executing any `#`-introduced directive line in
// place, and returns the first token that belongs to ordinary program
// text (for the macro expander to work on).
func (p *Processor) nextRaw() token.Token {
	for {
		tok := p.lx.Next()
		errs := p.lx.Errors()
		for _, e := range errs[p.lexErrs:] {
			at := tok
			at.Pos = e.Pos
			if e.Fatal {
				p.diag.Fatalf(at, "%s", e.Message)
			} else {
				p.diag.Errorf(at, "%s", e.Message)
			}
		}
		p.lexErrs = len(errs)
		switch {
		case tok.Kind == token.EOF:
			if len(p.cond) > 0 {
				p.diag.Fatalf(tok, "unterminated conditional directive")
			}
			return tok
		case tok.Kind == token.Newline:
			continue
		case tok.StartsLine && isHash(tok, p.strs):
			p.handleDirective()
			continue
		case p.skipping():
			continue
		default:
			return tok
		}
	}
}

func isHash(tok token.Token, strs *strtab.Table) bool {
	return tok.Kind == token.Punct && strs.Text(tok.Lit) == "#"
}

// readLine collects every token up to (excluding) the terminating
// Newline or EOF, for directive parsing.
func (p *Processor) readLine() []token.Token {
	var toks []token.Token
	for {
		tok := p.lx.Next()
		if tok.Kind == token.Newline || tok.Kind == token.EOF {
			return toks
		}
		toks = append(toks, tok)
	}
}

func (p *Processor) handleDirective() {
	line := p.readLine()
	if len(line) == 0 {
		return // null directive, `#` alone on a line
	}
	name := line[0]
	skip := p.skipping()
	if name.Kind == token.IntLit {
		// GNU linemarker, `# <line> "<file>" <flags...>`, as -E output
		// carries; equivalent to #line with the flags ignored.
		if !skip {
			p.handleLine(line, name)
		}
		return
	}
	kw := ""
	if name.Kind == token.Ident || name.Kind == token.Keyword {
		kw = p.strs.Text(name.Lit)
	}

	switch kw {
	case "if":
		p.pushCond(p.evalIfCond(line[1:], name), name)
		return
	case "ifdef":
		p.pushCond(!skip && len(line) > 1 && p.Macros.Defined(line[1].Lit), name)
		return
	case "ifndef":
		p.pushCond(!skip && len(line) > 1 && !p.Macros.Defined(line[1].Lit), name)
		return
	case "elif":
		p.handleElif(line[1:], name)
		return
	case "else":
		p.handleElse(name)
		return
	case "endif":
		p.popCond(name)
		return
	}

	if skip {
		return
	}

	switch kw {
	case "define":
		p.handleDefine(line[1:], name)
	case "undef":
		if len(line) > 1 {
			p.Macros.Undef(line[1].Lit)
		}
	case "include":
		p.handleInclude(line[1:], name)
	case "line":
		p.handleLine(line[1:], name)
	case "pragma":
		p.handlePragma(line[1:], name)
	case "error":
		p.diag.Fatalf(name, "#error %s", spellLine(p.strs, line[1:]))
	default:
		p.diag.Warningf(name, "unknown directive #%s", kw)
	}
}

func (p *Processor) pushCond(taken bool, at token.Token) {
	st := condSkippingUntilElif
	if p.skippingOuter() {
		st = condDone // an already-skipped outer region never takes any branch
	} else if taken {
		st = condTaken
	}
	p.cond = append(p.cond, condFrame{state: st, directive: at})
}

// skippingOuter reports whether every already-open conditional frame
// (before pushing a new one) is in a non-taken state.
func (p *Processor) skippingOuter() bool { return p.skipping() }

func (p *Processor) handleElif(cond []token.Token, at token.Token) {
	if len(p.cond) == 0 {
		p.diag.Errorf(at, "#elif without #if")
		return
	}
	top := &p.cond[len(p.cond)-1]
	if top.sawElse {
		p.diag.Errorf(at, "#elif after #else")
		return
	}
	switch top.state {
	case condTaken:
		top.state = condDone
	case condSkippingUntilElif:
		outerSkip := false
		for _, c := range p.cond[:len(p.cond)-1] {
			if c.state != condTaken {
				outerSkip = true
				break
			}
		}
		if !outerSkip && p.evalIfCond(cond, at) {
			top.state = condTaken
		}
	}
}

func (p *Processor) handleElse(at token.Token) {
	if len(p.cond) == 0 {
		p.diag.Errorf(at, "#else without #if")
		return
	}
	top := &p.cond[len(p.cond)-1]
	if top.sawElse {
		p.diag.Errorf(at, "duplicate #else")
		return
	}
	top.sawElse = true
	switch top.state {
	case condTaken:
		top.state = condDone
	case condSkippingUntilElif:
		outerSkip := false
		for _, c := range p.cond[:len(p.cond)-1] {
			if c.state != condTaken {
				outerSkip = true
				break
			}
		}
		if !outerSkip {
			top.state = condTaken
		}
	}
}

func (p *Processor) popCond(at token.Token) {
	if len(p.cond) == 0 {
		p.diag.Errorf(at, "#endif without #if")
		return
	}
	p.cond = p.cond[:len(p.cond)-1]
}

func (p *Processor) handleDefine(rest []token.Token, at token.Token) {
	if len(rest) == 0 {
		p.diag.Errorf(at, "#define expects a macro name")
		return
	}
	name := rest[0]
	rest = rest[1:]

	m := &macro.Macro{Name: name.Lit, DefinedAt: name}
	if len(rest) > 0 && rest[0].Kind == token.Punct && p.strs.Text(rest[0].Lit) == "(" && !rest[0].SpaceBefore {
		m.FuncLike = true
		var err error
		rest, err = p.parseParams(m, rest[1:])
		if err != nil {
			p.diag.Errorf(at, "%s", err)
			return
		}
	}
	body, err := p.buildBody(m, rest)
	if err != nil {
		p.diag.Errorf(at, "%s", err)
		return
	}
	m.Body = body

	prior, redefined := p.Macros.Define(m)
	if redefined && prior != nil && !prior.Equivalent(m) {
		p.diag.Warningf(at, "%q redefined", p.strs.Text(name.Lit))
	}
}

func (p *Processor) parseParams(m *macro.Macro, toks []token.Token) ([]token.Token, error) {
	i := 0
	for {
		if i >= len(toks) {
			return nil, fmt.Errorf("unterminated macro parameter list")
		}
		if toks[i].Kind == token.Punct && p.strs.Text(toks[i].Lit) == ")" {
			return toks[i+1:], nil
		}
		if toks[i].Kind == token.Punct && p.strs.Text(toks[i].Lit) == "..." {
			m.Variadic = true
			i++
			if i >= len(toks) || p.strs.Text(toks[i].Lit) != ")" {
				return nil, fmt.Errorf("expected ) after ... in macro parameter list")
			}
			return toks[i+1:], nil
		}
		if toks[i].Kind != token.Ident {
			return nil, fmt.Errorf("expected parameter name in macro parameter list")
		}
		m.Params = append(m.Params, toks[i].Lit)
		i++
		if i < len(toks) && toks[i].Kind == token.Punct && p.strs.Text(toks[i].Lit) == "," {
			i++
			continue
		}
	}
}

// buildBody converts a raw replacement-list token slice into macro
// pieces, recognizing `#` (stringize), `##` (paste), and parameter
// references, per spec.md §4.2.
func (p *Processor) buildBody(m *macro.Macro, toks []token.Token) ([]macro.Piece, error) {
	paramIndex := func(id strtab.ID) (int, bool) {
		for i, pid := range m.Params {
			if pid == id {
				return i, true
			}
		}
		return 0, false
	}
	isVAArgs := func(id strtab.ID) bool { return m.Variadic && id == p.vaArgsID }

	var pieces []macro.Piece
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if m.FuncLike && t.Kind == token.Punct && t.Lit == p.poundID {
			if i+1 >= len(toks) {
				return nil, fmt.Errorf("# must be followed by a parameter name")
			}
			arg := toks[i+1]
			if idx, ok := paramIndex(arg.Lit); ok && arg.Kind == token.Ident {
				pieces = append(pieces, macro.Piece{Kind: macro.Stringize, Param: idx})
			} else if isVAArgs(arg.Lit) {
				pieces = append(pieces, macro.Piece{Kind: macro.Stringize, Param: len(m.Params)})
			} else {
				return nil, fmt.Errorf("# not followed by a macro parameter")
			}
			i++
			continue
		}
		if t.Kind == token.Punct && t.Lit == p.poundPoundID {
			if len(pieces) == 0 {
				return nil, fmt.Errorf("## may not begin a replacement list")
			}
			pieces[len(pieces)-1].PasteNext = true
			continue
		}

		var piece macro.Piece
		if idx, ok := paramIndex(t.Lit); ok && t.Kind == token.Ident {
			piece = macro.Piece{Kind: macro.Param, Param: idx}
		} else if isVAArgs(t.Lit) {
			piece = macro.Piece{Kind: macro.VAArgs}
		} else {
			piece = macro.Piece{Kind: macro.Lit, Tok: t}
		}
		if len(pieces) > 0 && pieces[len(pieces)-1].PasteNext {
			piece.PastePrev = true
		}
		pieces = append(pieces, piece)
	}
	if len(pieces) > 0 && pieces[len(pieces)-1].PasteNext {
		return nil, fmt.Errorf("## may not end a replacement list")
	}
	return pieces, nil
}

func (p *Processor) handleInclude(rest []token.Token, at token.Token) {
	name, local, ok := p.includeSpelling(rest)
	if !ok {
		p.diag.Errorf(at, "malformed #include")
		return
	}
	fromDir := ""
	if topName, _, has := p.src.Top(); has {
		fromDir = filepath.Dir(topName)
	}
	canonical, rc, err := p.resolve.Resolve(name, local, fromDir)
	if err != nil {
		p.diag.Errorf(at, "#include %s: %s", name, err)
		return
	}
	if p.pragmaOnce[canonical] {
		rc.Close()
		return
	}
	p.recordDep(canonical)
	p.closers = append(p.closers, rc)
	p.src.Push(source.File, canonical, rc)
}

// includeSpelling extracts the quoted or angle-bracketed header name.
// Angle form arrives as a run of Punct/Ident tokens (the lexer does not
// special-case `<...>`), so it is reassembled from spellings.
func (p *Processor) includeSpelling(toks []token.Token) (name string, local bool, ok bool) {
	if len(toks) == 0 {
		return "", false, false
	}
	if toks[0].Kind == token.StringLit {
		return toks[0].Val.Str, true, true
	}
	if toks[0].Kind == token.Punct && p.strs.Text(toks[0].Lit) == "<" {
		var sb strings.Builder
		for _, t := range toks[1:] {
			if t.Kind == token.Punct && p.strs.Text(t.Lit) == ">" {
				return sb.String(), false, true
			}
			if t.SpaceBefore && sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(p.strs.Text(t.Lit))
		}
	}
	return "", false, false
}

func (p *Processor) recordDep(canonical string) {
	if !p.depMode || p.depSeen[canonical] {
		return
	}
	p.depSeen[canonical] = true
	p.deps = append(p.deps, canonical)
}

func (p *Processor) handleLine(rest []token.Token, at token.Token) {
	rest = p.expandLine(rest)
	if len(rest) == 0 || rest[0].Kind != token.IntLit {
		p.diag.Errorf(at, "#line expects a line number")
		return
	}
	n := int(rest[0].Val.Int)
	name := ""
	if len(rest) > 1 && rest[1].Kind == token.StringLit {
		name = rest[1].Val.Str
	}
	topName, _, _ := p.src.Top()
	if name == "" {
		name = topName
	}
	if err := p.src.SetLineCurrent(n, name); err != nil {
		p.diag.Errorf(at, "%s", err)
		return
	}
	p.lx.SyncLocation()
}

func (p *Processor) handlePragma(rest []token.Token, at token.Token) {
	if len(rest) == 1 && rest[0].Kind == token.Ident && p.strs.Text(rest[0].Lit) == "once" {
		if topName, _, ok := p.src.Top(); ok {
			p.pragmaOnce[topName] = true
		}
		return
	}
	_ = at // unrecognized pragmas are silently passed over, per spec.md §4.3
}

func spellLine(strs *strtab.Table, toks []token.Token) string {
	var sb strings.Builder
	for i, t := range toks {
		if i > 0 && t.SpaceBefore {
			sb.WriteByte(' ')
		}
		if t.Kind == token.StringLit {
			sb.WriteByte('"')
			sb.WriteString(t.Val.Str)
			sb.WriteByte('"')
			continue
		}
		sb.WriteString(strs.Text(t.Lit))
	}
	return sb.String()
}

// macroDiag adapts cpp.Diag to macro.Diag so the expander's paste
// errors flow through the same diagnostic sink as directive errors.
type macroDiag struct{ d Diag }

func (m macroDiag) Warningf(tok token.Token, format string, args ...interface{}) {
	if m.d != nil {
		m.d.Warningf(tok, format, args...)
	}
}

func (m macroDiag) Errorf(tok token.Token, format string, args ...interface{}) {
	if m.d != nil {
		m.d.Errorf(tok, format, args...)
	}
}

// DirResolver resolves #include paths against a filesystem-style
// search path list, per spec.md §4.3.
type DirResolver struct {
	SearchPath []string
	Open       func(path string) (io.ReadCloser, error)
}

func (r DirResolver) Resolve(name string, local bool, fromDir string) (string, io.ReadCloser, error) {
	var dirs []string
	if local {
		dirs = append(dirs, fromDir)
	}
	dirs = append(dirs, r.SearchPath...)
	for _, d := range dirs {
		full := name
		if d != "" {
			full = path.Join(d, name)
		}
		if rc, err := r.Open(full); err == nil {
			return full, rc, nil
		}
	}
	return "", nil, fmt.Errorf("not found in search path")
}
