package macro

import (
	"strings"

	"github.com/jcorbin/cc0/internal/lexer"
	"github.com/jcorbin/cc0/internal/source"
	"github.com/jcorbin/cc0/internal/strtab"
	"github.com/jcorbin/cc0/internal/token"
)

// retokenizeOne re-lexes s (the concatenated spelling of a `##` paste) and
// requires it to form exactly one preprocessing token, per the C
// standard's "undefined if not a valid preprocessing token" rule for
// pasted operands.
func retokenizeOne(s string, strs *strtab.Table) (token.Token, bool) {
	var stk source.Stack
	stk.Push(source.Synthetic, "<paste>", strings.NewReader(s))
	lx := lexer.New(&stk, strs, lexer.C11)
	tok := lx.Next()
	if len(lx.Errors()) > 0 {
		return token.Token{}, false
	}
	next := lx.Next()
	if next.Kind != token.EOF {
		return token.Token{}, false
	}
	return tok, true
}
