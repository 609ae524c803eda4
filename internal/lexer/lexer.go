// Package lexer turns a source.Stack's rune stream into the classified
// token.Token stream spec.md §4.1 describes: it classifies lexemes per
// the C lexical grammar, tracks start-of-line and preceded-by-whitespace
// flags, applies backslash-newline continuation and (optionally)
// trigraph elision, and never discards a line break itself -- it emits
// Newline tokens and leaves consuming them to the directive engine.
package lexer

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/jcorbin/cc0/internal/source"
	"github.com/jcorbin/cc0/internal/strtab"
	"github.com/jcorbin/cc0/internal/token"
)

// RuneSource is the input the lexer reads from; *source.Stack satisfies it.
type RuneSource interface {
	ReadRune() (rune, error)
	Location() source.Pos
}

// Error describes a lexical failure (spec.md §4.1's failure modes).
type Error struct {
	Pos     source.Pos
	Fatal   bool // unterminated literal, per spec.md §4.1
	Message string
}

func (e *Error) Error() string { return fmt.Sprintf("%v: %s", e.Pos, e.Message) }

type rpos struct {
	r   rune
	pos source.Pos
}

// Lexer is a single-use, single-threaded tokenizer over one RuneSource.
type Lexer struct {
	src       RuneSource
	Strings   *strtab.Table
	Dialect   Dialect
	Trigraphs bool

	queue []rpos // pushback stack, most-recent-last

	ch       rune
	pos      source.Pos
	atEOF    bool
	started  bool

	atLineStart bool
	sawSpace    bool
	// needAdvance defers reading past a newline until the next token is
	// asked for, so a directive can push a frame before that read happens.
	needAdvance bool

	errs []*Error
}

// New builds a Lexer reading from src, interning lexemes into strs.
func New(src RuneSource, strs *strtab.Table, dialect Dialect) *Lexer {
	lx := &Lexer{src: src, Strings: strs, Dialect: dialect, atLineStart: true}
	return lx
}

// Errors returns every lexical error accumulated so far, fatal ones
// (unterminated literals) included.
func (lx *Lexer) Errors() []*Error { return lx.errs }

var trigraphTable = map[rune]rune{
	'=': '#', '(': '[', ')': ']', '<': '{', '>': '}',
	'/': '\\', '\'': '^', '!': '|', '-': '~',
}

func (lx *Lexer) readRaw() (rune, source.Pos, error) {
	if n := len(lx.queue); n > 0 {
		e := lx.queue[n-1]
		lx.queue = lx.queue[:n-1]
		return e.r, e.pos, nil
	}
	r, err := lx.src.ReadRune()
	if err != nil {
		return 0, source.Pos{}, err
	}
	return r, lx.src.Location(), nil
}

func (lx *Lexer) unread(r rune, pos source.Pos) {
	lx.queue = append(lx.queue, rpos{r, pos})
}

func (lx *Lexer) nextPhysical() (rune, source.Pos, error) {
	r, pos, err := lx.readRaw()
	if err != nil {
		return 0, pos, err
	}
	if lx.Trigraphs && r == '?' {
		r2, pos2, err2 := lx.readRaw()
		if err2 == nil && r2 == '?' {
			r3, pos3, err3 := lx.readRaw()
			if err3 == nil {
				if repl, ok := trigraphTable[r3]; ok {
					return repl, pos, nil
				}
				lx.unread(r3, pos3)
			}
			lx.unread(r2, pos2)
		} else if err2 == nil {
			lx.unread(r2, pos2)
		}
	}
	return r, pos, nil
}

// nextLogical applies backslash-newline splicing: a line ending in an
// unescaped backslash is joined with the next, invisibly to everything
// above this layer.
func (lx *Lexer) nextLogical() (rune, source.Pos, error) {
	for {
		r, pos, err := lx.nextPhysical()
		if err != nil {
			return 0, pos, err
		}
		if r == '\\' {
			r2, pos2, err2 := lx.nextPhysical()
			if err2 == nil && r2 == '\n' {
				continue
			}
			if err2 == nil {
				lx.unread(r2, pos2)
			}
		}
		return r, pos, nil
	}
}

func (lx *Lexer) advance() {
	r, pos, err := lx.nextLogical()
	if err != nil {
		lx.atEOF = true
		lx.ch = 0
		return
	}
	lx.ch = r
	lx.pos = pos
}

// SyncLocation refreshes the buffered lookahead rune's recorded
// position from the source stack, after a #line directive rewrote the
// current frame's bookkeeping out from under it.
func (lx *Lexer) SyncLocation() {
	if lx.started && !lx.atEOF && len(lx.queue) == 0 {
		lx.pos = lx.src.Location()
	}
}

func (lx *Lexer) ensureStarted() {
	if !lx.started {
		lx.started = true
		lx.advance()
	}
}

// Next returns the next token, classifying it per spec.md §3-4.1.
// At end of input it returns a token.EOF token forever.
func (lx *Lexer) Next() token.Token {
	lx.ensureStarted()
	if lx.needAdvance {
		lx.needAdvance = false
		lx.advance()
	}

	startsLine := lx.atLineStart
	spaceBefore := lx.sawSpace
	lx.atLineStart = false
	lx.sawSpace = false

	for {
		if lx.atEOF {
			return token.Token{Kind: token.EOF, Pos: lx.pos, StartsLine: startsLine, SpaceBefore: spaceBefore}
		}

		switch {
		case lx.ch == '\n':
			pos := lx.pos
			lx.needAdvance = true
			lx.atLineStart = true
			return token.Token{Kind: token.Newline, Pos: pos, StartsLine: startsLine, SpaceBefore: spaceBefore}

		case lx.ch == ' ' || lx.ch == '\t' || lx.ch == '\v' || lx.ch == '\f' || lx.ch == '\r':
			lx.advance()
			spaceBefore = true
			continue

		case lx.ch == '/' :
			if consumed := lx.tryComment(); consumed {
				spaceBefore = true
				continue
			}
			return lx.lexPunct(startsLine, spaceBefore)

		case isIdentStart(lx.ch):
			return lx.lexIdent(startsLine, spaceBefore)

		case unicode.IsDigit(lx.ch):
			return lx.lexNumber(startsLine, spaceBefore)

		case lx.ch == '.':
			// could be '.', '...', or the start of a float like ".5"
			if pk, ok := lx.peekIsDigit(); ok && pk {
				return lx.lexNumber(startsLine, spaceBefore)
			}
			return lx.lexPunct(startsLine, spaceBefore)

		case lx.ch == '\'':
			return lx.lexChar(startsLine, spaceBefore)

		case lx.ch == '"':
			return lx.lexString(startsLine, spaceBefore)

		default:
			return lx.lexPunct(startsLine, spaceBefore)
		}
	}
}

// tryComment consumes a // or /* */ comment starting at lx.ch=='/', and
// reports whether one was found (and thus consumed).
func (lx *Lexer) tryComment() bool {
	r2, pos2, err2 := lx.nextLogical()
	if err2 != nil {
		return false
	}
	switch r2 {
	case '/':
		for !lx.atEOF && lx.ch != '\n' {
			lx.advance()
		}
		return true
	case '*':
		lx.advance() // prime ch to content after /*
		for {
			if lx.atEOF {
				lx.errs = append(lx.errs, &Error{Pos: lx.pos, Message: "unterminated comment"})
				return true
			}
			if lx.ch == '*' {
				lx.advance()
				if lx.ch == '/' {
					lx.advance()
					break
				}
				continue
			}
			lx.advance()
		}
		return true
	default:
		lx.unread(r2, pos2)
		return false
	}
}

func (lx *Lexer) peekIsDigit() (bool, bool) {
	r, pos, err := lx.nextLogical()
	if err != nil {
		return false, false
	}
	lx.unread(r, pos)
	return unicode.IsDigit(r), true
}

func isIdentStart(r rune) bool { return r == '_' || unicode.IsLetter(r) }
func isIdentCont(r rune) bool  { return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) }

func (lx *Lexer) lexIdent(startsLine, spaceBefore bool) token.Token {
	pos := lx.pos
	var sb strings.Builder
	for !lx.atEOF && isIdentCont(lx.ch) {
		sb.WriteRune(lx.ch)
		lx.advance()
	}
	s := sb.String()
	id := lx.Strings.Intern(s)
	kind := token.Ident
	if IsKeyword(s, lx.Dialect) {
		kind = token.Keyword
	}
	return token.Token{Kind: kind, Lit: id, Pos: pos, StartsLine: startsLine, SpaceBefore: spaceBefore}
}

func (lx *Lexer) lexNumber(startsLine, spaceBefore bool) token.Token {
	pos := lx.pos
	var sb strings.Builder
	isFloat := false
	isHex := false

	if lx.ch == '0' {
		sb.WriteRune(lx.ch)
		lx.advance()
		if !lx.atEOF && (lx.ch == 'x' || lx.ch == 'X') {
			isHex = true
			sb.WriteRune(lx.ch)
			lx.advance()
		}
	}

	for !lx.atEOF {
		c := lx.ch
		switch {
		case unicode.IsDigit(c), isHex && isHexDigit(c):
			sb.WriteRune(c)
			lx.advance()
		case c == '.' && !isFloat:
			isFloat = true
			sb.WriteRune(c)
			lx.advance()
		case (c == 'e' || c == 'E') && !isHex:
			sb.WriteRune(c)
			lx.advance()
			isFloat = true
			if !lx.atEOF && (lx.ch == '+' || lx.ch == '-') {
				sb.WriteRune(lx.ch)
				lx.advance()
			}
		case (c == 'p' || c == 'P') && isHex:
			sb.WriteRune(c)
			lx.advance()
			isFloat = true
			if !lx.atEOF && (lx.ch == '+' || lx.ch == '-') {
				sb.WriteRune(lx.ch)
				lx.advance()
			}
		default:
			goto suffixes
		}
	}
suffixes:
	var unsigned, isDouble bool
	isDouble = isFloat
	for !lx.atEOF {
		switch lx.ch {
		case 'u', 'U':
			unsigned = true
			sb.WriteRune(lx.ch)
			lx.advance()
			continue
		case 'l', 'L':
			sb.WriteRune(lx.ch)
			lx.advance()
			continue
		case 'f', 'F':
			if isFloat {
				isDouble = false
				sb.WriteRune(lx.ch)
				lx.advance()
				continue
			}
		}
		break
	}

	text := sb.String()
	lit := lx.Strings.Intern(text)
	tok := token.Token{Pos: pos, Lit: lit, StartsLine: startsLine, SpaceBefore: spaceBefore}
	if isFloat {
		tok.Kind = token.FloatLit
		clean := strings.TrimRight(text, "fFlL")
		f, _ := strconv.ParseFloat(clean, 64)
		tok.Val = token.LitValue{Float: f, IsDouble: isDouble}
	} else {
		tok.Kind = token.IntLit
		clean := strings.TrimRight(text, "uUlL")
		base := 10
		if isHex {
			base = 16
			clean = clean[2:]
		} else if len(clean) > 1 && clean[0] == '0' {
			base = 8
		}
		n, err := strconv.ParseUint(clean, base, 64)
		if err != nil {
			lx.errs = append(lx.errs, &Error{Pos: pos, Message: "invalid integer literal: " + text})
		}
		tok.Val = token.LitValue{Int: int64(n), Unsigned: unsigned}
	}
	return tok
}

func isHexDigit(r rune) bool {
	return unicode.IsDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

func (lx *Lexer) lexEscape() (rune, bool) {
	lx.advance() // consume backslash
	if lx.atEOF {
		return 0, false
	}
	r := lx.ch
	switch r {
	case 'n':
		lx.advance()
		return '\n', true
	case 't':
		lx.advance()
		return '\t', true
	case 'r':
		lx.advance()
		return '\r', true
	case '0':
		// octal escape, up to 3 digits
		var v rune
		for i := 0; i < 3 && !lx.atEOF && lx.ch >= '0' && lx.ch <= '7'; i++ {
			v = v*8 + (lx.ch - '0')
			lx.advance()
		}
		return v, true
	case 'x':
		lx.advance()
		var v rune
		for !lx.atEOF && isHexDigit(lx.ch) {
			d := lx.ch
			var n rune
			switch {
			case d >= '0' && d <= '9':
				n = d - '0'
			case d >= 'a' && d <= 'f':
				n = d - 'a' + 10
			default:
				n = d - 'A' + 10
			}
			v = v*16 + n
			lx.advance()
		}
		return v, true
	case '\\', '\'', '"', '?':
		lx.advance()
		return r, true
	case 'a':
		lx.advance()
		return 7, true
	case 'b':
		lx.advance()
		return 8, true
	case 'f':
		lx.advance()
		return 12, true
	case 'v':
		lx.advance()
		return 11, true
	default:
		lx.advance()
		lx.errs = append(lx.errs, &Error{Pos: lx.pos, Message: fmt.Sprintf("invalid escape \\%c", r)})
		return r, true
	}
}

func (lx *Lexer) lexChar(startsLine, spaceBefore bool) token.Token {
	pos := lx.pos
	lx.advance() // consume opening quote
	var v rune
	if !lx.atEOF && lx.ch == '\\' {
		v, _ = lx.lexEscape()
	} else if !lx.atEOF {
		v = lx.ch
		lx.advance()
	}
	if lx.atEOF || lx.ch != '\'' {
		lx.errs = append(lx.errs, &Error{Pos: pos, Fatal: true, Message: "unterminated character constant"})
	} else {
		lx.advance()
	}
	return token.Token{
		Kind: token.CharLit, Pos: pos,
		Val:         token.LitValue{Int: int64(v)},
		StartsLine:  startsLine,
		SpaceBefore: spaceBefore,
	}
}

func (lx *Lexer) lexString(startsLine, spaceBefore bool) token.Token {
	pos := lx.pos
	lx.advance() // consume opening quote
	var sb strings.Builder
	for {
		if lx.atEOF || lx.ch == '\n' {
			lx.errs = append(lx.errs, &Error{Pos: pos, Fatal: true, Message: "unterminated string literal"})
			break
		}
		if lx.ch == '"' {
			lx.advance()
			break
		}
		if lx.ch == '\\' {
			r, _ := lx.lexEscape()
			sb.WriteRune(r)
			continue
		}
		sb.WriteRune(lx.ch)
		lx.advance()
	}
	s := sb.String()
	return token.Token{
		Kind: token.StringLit, Pos: pos,
		Lit:         lx.Strings.Intern(s),
		Val:         token.LitValue{Str: s},
		StartsLine:  startsLine,
		SpaceBefore: spaceBefore,
	}
}

// puncts is tried longest-spelling-first.
var puncts = []string{
	"...", "<<=", ">>=",
	"->", "++", "--", "<<", ">>", "<=", ">=", "==", "!=", "&&", "||",
	"*=", "/=", "%=", "+=", "-=", "&=", "^=", "|=", "##",
	"[", "]", "(", ")", "{", "}", ".", "&", "*", "+", "-", "~", "!",
	"/", "%", "<", ">", "^", "|", "?", ":", ";", "=", ",", "#",
}

func (lx *Lexer) lexPunct(startsLine, spaceBefore bool) token.Token {
	pos := lx.pos

	// greedily match the longest punctuator starting here using a small
	// lookahead buffer, restoring anything not consumed; the buffer never
	// reaches past a newline.
	var lookahead []rpos
	lookahead = append(lookahead, rpos{lx.ch, lx.pos})
	for len(lookahead) < 3 && lookahead[len(lookahead)-1].r != '\n' {
		r, p, err := lx.nextLogical()
		if err != nil {
			break
		}
		lookahead = append(lookahead, rpos{r, p})
	}

	text := func(n int) string {
		var sb strings.Builder
		for i := 0; i < n && i < len(lookahead); i++ {
			sb.WriteRune(lookahead[i].r)
		}
		return sb.String()
	}

	for _, p := range puncts {
		if len(p) <= len(lookahead) && text(len(p)) == p {
			// push back everything past the matched+next char, then
			// make the first unconsumed char (if any) the new lx.ch
			for i := len(lookahead) - 1; i > len(p); i-- {
				lx.unread(lookahead[i].r, lookahead[i].pos)
			}
			if len(p) < len(lookahead) {
				lx.ch = lookahead[len(p)].r
				lx.pos = lookahead[len(p)].pos
			} else {
				lx.advance()
			}
			return token.Token{Kind: token.Punct, Lit: lx.Strings.Intern(p), Pos: pos, StartsLine: startsLine, SpaceBefore: spaceBefore}
		}
	}

	// unknown character: emit as an error token (spec.md §7) and move past it.
	bad := lookahead[0].r
	for i := len(lookahead) - 1; i >= 1; i-- {
		lx.unread(lookahead[i].r, lookahead[i].pos)
	}
	lx.advance()
	lx.errs = append(lx.errs, &Error{Pos: pos, Message: fmt.Sprintf("invalid character %q", bad)})
	return token.Token{Kind: token.Error, Pos: pos, StartsLine: startsLine, SpaceBefore: spaceBefore}
}
