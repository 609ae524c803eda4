package macro

import (
	"strings"

	"github.com/jcorbin/cc0/internal/strtab"
	"github.com/jcorbin/cc0/internal/token"
)

// TokenSource yields the raw (un-macro-expanded) preprocessed token
// stream the Expander pulls from -- directive lines already stripped,
// per spec.md §4.2 ("the directive engine ... emits a clean token
// stream" that the macro layer then expands).
type TokenSource interface {
	Next() token.Token
}

// Builtins supplies the values behind the built-in expansions spec.md
// §4.2 lists (except __func__, which is a parser-level implicit local,
// not a macro).
type Builtins struct {
	File func() string
	Line func() int
	Date string
	Time string
	Std  string // __STDC_VERSION__ spelling, "" to omit (pre-C94)
}

// Diag receives non-fatal expansion diagnostics (bad paste, warning-level
// incompatible redefinition already reported by the caller of Define).
type Diag interface {
	Warningf(pos token.Token, format string, args ...interface{})
	Errorf(pos token.Token, format string, args ...interface{})
}

// Expander performs hideset-based macro expansion (spec.md §4.2) over an
// underlying clean token stream.
type Expander struct {
	src      TokenSource
	macros   *Table
	strs     *strtab.Table
	builtins Builtins
	diag     Diag

	pending []token.Token // rescan stack, last element next to emit

	fileID, lineID, dateID, timeID, stdcID, stdcVerID strtab.ID
}

// NewExpander builds an Expander reading raw tokens from src.
func NewExpander(src TokenSource, macros *Table, strs *strtab.Table, b Builtins, d Diag) *Expander {
	return &Expander{
		src: src, macros: macros, strs: strs, builtins: b, diag: d,
		fileID:    strs.Intern("__FILE__"),
		lineID:    strs.Intern("__LINE__"),
		dateID:    strs.Intern("__DATE__"),
		timeID:    strs.Intern("__TIME__"),
		stdcID:    strs.Intern("__STDC__"),
		stdcVerID: strs.Intern("__STDC_VERSION__"),
	}
}

func (ex *Expander) push(toks []token.Token) {
	for i := len(toks) - 1; i >= 0; i-- {
		ex.pending = append(ex.pending, toks[i])
	}
}

func (ex *Expander) read() token.Token {
	if n := len(ex.pending); n > 0 {
		tok := ex.pending[n-1]
		ex.pending = ex.pending[:n-1]
		return tok
	}
	return ex.src.Next()
}

func (ex *Expander) unread(tok token.Token) {
	ex.pending = append(ex.pending, tok)
}

// Next returns the next fully macro-expanded token.
func (ex *Expander) Next() token.Token {
	for {
		tok := ex.read()
		if tok.Kind != token.Ident {
			return tok
		}
		if builtin, ok := ex.expandBuiltin(tok); ok {
			return builtin
		}
		m := ex.macros.Lookup(tok.Lit)
		if m == nil || tok.Hideset.Has(tok.Lit) {
			return tok
		}
		if !m.FuncLike {
			body := ex.substituteObjectLike(m, tok)
			ex.push(body)
			continue
		}

		// function-like: only a call if immediately followed by '('
		next := ex.read()
		if !isPunct(next, ex.strs, "(") {
			ex.unread(next)
			return tok
		}
		args, closeParen := ex.collectArgs(m)
		body := ex.substituteFuncLike(m, tok, args, closeParen)
		ex.push(body)
	}
}

func (ex *Expander) expandBuiltin(tok token.Token) (token.Token, bool) {
	switch tok.Lit {
	case ex.fileID:
		if ex.builtins.File == nil {
			return token.Token{}, false
		}
		return ex.stringToken(ex.builtins.File(), tok), true
	case ex.lineID:
		if ex.builtins.Line == nil {
			return token.Token{}, false
		}
		t := tok
		t.Kind = token.IntLit
		t.Val = token.LitValue{Int: int64(ex.builtins.Line())}
		t.Lit = ex.strs.Intern(itoa(ex.builtins.Line()))
		return t, true
	case ex.dateID:
		if ex.builtins.Date == "" {
			return token.Token{}, false
		}
		return ex.stringToken(ex.builtins.Date, tok), true
	case ex.timeID:
		if ex.builtins.Time == "" {
			return token.Token{}, false
		}
		return ex.stringToken(ex.builtins.Time, tok), true
	case ex.stdcID:
		t := tok
		t.Kind = token.IntLit
		t.Val = token.LitValue{Int: 1}
		t.Lit = ex.strs.Intern("1")
		return t, true
	case ex.stdcVerID:
		if ex.builtins.Std == "" {
			return token.Token{}, false
		}
		t := tok
		t.Kind = token.IntLit
		t.Lit = ex.strs.Intern(ex.builtins.Std)
		t.Val = token.LitValue{Int: leadingDigits(ex.builtins.Std), Unsigned: false}
		return t, true
	}
	return token.Token{}, false
}

func (ex *Expander) stringToken(s string, like token.Token) token.Token {
	return token.Token{
		Kind: token.StringLit, Pos: like.Pos,
		Lit: ex.strs.Intern(s), Val: token.LitValue{Str: s},
		StartsLine: like.StartsLine, SpaceBefore: like.SpaceBefore,
	}
}

func isPunct(tok token.Token, strs *strtab.Table, spelling string) bool {
	return tok.Kind == token.Punct && strs.Text(tok.Lit) == spelling
}

// collectArgs reads a balanced-parenthesis argument list for a
// function-like macro call whose '(' has already been consumed. It
// returns each argument's raw (unexpanded) token list and the closing
// ')' token (whose hideset feeds the expansion's resulting hideset).
func (ex *Expander) collectArgs(m *Macro) (args [][]token.Token, close token.Token) {
	depth := 0
	var cur []token.Token
	nparams := len(m.Params)
	for {
		tok := ex.read()
		if tok.Kind == token.EOF {
			close = tok
			args = append(args, cur)
			return args, close
		}
		if isPunct(tok, ex.strs, "(") {
			depth++
			cur = append(cur, tok)
			continue
		}
		if isPunct(tok, ex.strs, ")") {
			if depth == 0 {
				args = append(args, cur)
				return args, tok
			}
			depth--
			cur = append(cur, tok)
			continue
		}
		if depth == 0 && isPunct(tok, ex.strs, ",") {
			// A top-level comma separates arguments, unless we are
			// already past the fixed parameters of a variadic macro, in
			// which case the rest is absorbed into __VA_ARGS__.
			if m.Variadic && len(args) >= nparams {
				cur = append(cur, tok)
				continue
			}
			args = append(args, cur)
			cur = nil
			continue
		}
		cur = append(cur, tok)
	}
}

// substituteObjectLike expands an object-like macro's body, adding the
// macro's own name to every produced token's hideset.
func (ex *Expander) substituteObjectLike(m *Macro, at token.Token) []token.Token {
	hs := at.Hideset.Add(m.Name)
	out := make([]token.Token, 0, len(m.Body))
	for _, p := range m.Body {
		t := p.Tok
		t.Hideset = hs
		t.Pos = at.Pos
		out = append(out, t)
	}
	return out
}

// substituteFuncLike performs argument pre-expansion, stringize, paste,
// and substitution for a function-like macro call per spec.md §4.2.
func (ex *Expander) substituteFuncLike(m *Macro, at token.Token, args [][]token.Token, close token.Token) []token.Token {
	hs := at.Hideset.Union(close.Hideset).Add(m.Name)

	getArg := func(i int) []token.Token {
		if i < 0 || i >= len(args) {
			return nil
		}
		return args[i]
	}
	// __VA_ARGS__ is modeled as parameter index len(Params).
	vaIndex := len(m.Params)
	expandedArg := make(map[int][]token.Token)
	expandOnce := func(i int) []token.Token {
		if toks, ok := expandedArg[i]; ok {
			return toks
		}
		sub := ex.expandTokenSlice(getArg(i))
		expandedArg[i] = sub
		return sub
	}

	// segments, with a paste-boundary flag recorded between segment i
	// and i+1.
	type segment struct {
		toks      []token.Token
		pasteNext bool
	}
	var segs []segment
	for _, p := range m.Body {
		var toks []token.Token
		switch p.Kind {
		case Lit:
			t := p.Tok
			toks = []token.Token{t}
		case Stringize:
			toks = []token.Token{ex.stringize(getArg(p.Param), at)}
		case VAArgs:
			if p.PasteNext || p.PastePrev {
				toks = append([]token.Token(nil), getArg(vaIndex)...)
			} else {
				toks = expandOnce(vaIndex)
			}
		case Param:
			if p.PasteNext || p.PastePrev {
				toks = append([]token.Token(nil), getArg(p.Param)...)
			} else {
				toks = expandOnce(p.Param)
			}
		}
		segs = append(segs, segment{toks: toks, pasteNext: p.PasteNext})
	}

	// linearize, executing ## at each marked boundary
	var out []token.Token
	for i := 0; i < len(segs); i++ {
		seg := segs[i]
		if len(out) > 0 && i > 0 && segs[i-1].pasteNext {
			// paste last emitted token with this segment's first token
			if len(seg.toks) == 0 {
				// placemarker: nothing to paste, boundary vanishes
			} else {
				last := out[len(out)-1]
				pasted, ok := ex.paste(last, seg.toks[0], at)
				if ok {
					out[len(out)-1] = pasted
					out = append(out, seg.toks[1:]...)
					continue
				}
				out = append(out, seg.toks...)
				continue
			}
		}
		out = append(out, seg.toks...)
	}

	for i := range out {
		out[i].Hideset = hs
		out[i].Pos = at.Pos
	}
	return out
}

// ExpandSlice fully macro-expands a standalone token slice, for callers
// outside this package that need macro expansion without an underlying
// TokenSource -- the directive engine's `#if`/`#line` argument lines
// (spec.md §4.3), which are expanded before being evaluated or spelled.
func (ex *Expander) ExpandSlice(toks []token.Token) []token.Token {
	return ex.expandTokenSlice(toks)
}

// expandTokenSlice runs full macro expansion over a standalone token
// slice (an already-collected macro argument), per spec.md §4.2
// ("each argument is expanded before substitution").
func (ex *Expander) expandTokenSlice(toks []token.Token) []token.Token {
	if len(toks) == 0 {
		return nil
	}
	sub := &sliceSource{toks: toks}
	nested := &Expander{
		src: sub, macros: ex.macros, strs: ex.strs, builtins: ex.builtins, diag: ex.diag,
		fileID: ex.fileID, lineID: ex.lineID, dateID: ex.dateID, timeID: ex.timeID,
		stdcID: ex.stdcID, stdcVerID: ex.stdcVerID,
	}
	var out []token.Token
	for {
		t := nested.Next()
		if t.Kind == token.EOF {
			return out
		}
		out = append(out, t)
	}
}

type sliceSource struct {
	toks []token.Token
	i    int
}

func (s *sliceSource) Next() token.Token {
	if s.i >= len(s.toks) {
		return token.Token{Kind: token.EOF}
	}
	t := s.toks[s.i]
	s.i++
	return t
}

// stringize implements `#` per spec.md §4.2: a single string literal
// encoding the unexpanded argument with whitespace normalized to single
// spaces.
func (ex *Expander) stringize(arg []token.Token, at token.Token) token.Token {
	var sb strings.Builder
	for i, t := range arg {
		if i > 0 && t.SpaceBefore {
			sb.WriteByte(' ')
		}
		sb.WriteString(ex.spelling(t))
	}
	return ex.stringToken(sb.String(), at)
}

func (ex *Expander) spelling(t token.Token) string {
	switch t.Kind {
	case token.StringLit:
		return `"` + escapeForStringize(t.Val.Str) + `"`
	case token.CharLit:
		return "'" + escapeForStringize(string(rune(t.Val.Int))) + "'"
	default:
		return ex.strs.Text(t.Lit)
	}
}

func escapeForStringize(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if r == '"' || r == '\\' {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// paste implements `##`: concatenate the spelling of a and b and
// re-tokenize the result, per spec.md §4.2. An invalid paste is an
// error, and the original two tokens are returned unmodified.
func (ex *Expander) paste(a, b token.Token, at token.Token) (token.Token, bool) {
	as, bs := ex.spelling(a), ex.spelling(b)
	combined := as + bs
	t, ok := retokenizeOne(combined, ex.strs)
	if !ok {
		if ex.diag != nil {
			ex.diag.Errorf(at, "invalid token paste: %q ## %q", as, bs)
		}
		return a, false
	}
	t.Pos = a.Pos
	t.StartsLine = a.StartsLine
	t.SpaceBefore = a.SpaceBefore
	return t, true
}

// leadingDigits parses the numeric value of a version spelling like
// "199901L", stopping at the suffix.
func leadingDigits(s string) int64 {
	var v int64
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		v = v*10 + int64(r-'0')
	}
	return v
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
