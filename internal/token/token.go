// Package token defines the lexical classification produced by the
// tokenizer (spec.md §3 "Token") and consumed by the macro expander,
// directive engine, and parser.
package token

import (
	"fmt"

	"github.com/jcorbin/cc0/internal/source"
	"github.com/jcorbin/cc0/internal/strtab"
)

// Kind classifies a Token.
type Kind int

// Token kinds. Keywords are reported as KeywordBase+offset via Keyword()
// rather than as one Kind per keyword, so the lexer stays small; the
// parser consults Lit through the keyword table when it needs to
// distinguish them.
const (
	Invalid Kind = iota
	EOF
	Newline // significant to the directive engine only

	Ident
	Keyword
	IntLit
	FloatLit
	CharLit
	StringLit

	Punct // Lit holds the punctuator spelling, interned

	Error // a lexical/parse error occupies this token's slot (spec.md §7)
)

func (k Kind) String() string {
	switch k {
	case Invalid:
		return "invalid"
	case EOF:
		return "eof"
	case Newline:
		return "newline"
	case Ident:
		return "ident"
	case Keyword:
		return "keyword"
	case IntLit:
		return "int-lit"
	case FloatLit:
		return "float-lit"
	case CharLit:
		return "char-lit"
	case StringLit:
		return "string-lit"
	case Punct:
		return "punct"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// LitValue carries the typed value of a literal token, set by the lexer
// and consulted by the evaluator for constant folding.
type LitValue struct {
	// Int is valid for IntLit and CharLit.
	Int int64
	// Unsigned marks an IntLit that carried an explicit 'u'/'U' suffix;
	// the lexer does not set it for an out-of-range value.
	Unsigned bool
	// Float is valid for FloatLit.
	Float float64
	// IsDouble distinguishes `1.0` (double) from `1.0f` (float) for FloatLit.
	IsDouble bool
	// Str holds the decoded bytes of a StringLit (escapes resolved).
	Str string
}

// Token is one lexeme: a kind, an interned spelling where applicable, a
// typed literal value where applicable, a source location, and the two
// preprocessor-visible flags spec.md §3 calls out.
type Token struct {
	Kind Kind
	Lit  strtab.ID
	Val  LitValue
	Pos  source.Pos

	StartsLine  bool
	SpaceBefore bool

	// Hideset holds the macro names (strtab IDs) this token must not
	// be re-expanded under, per spec.md §4.2/§9. nil for ordinary
	// lexer output; populated by the macro expander.
	Hideset Hideset
}

// Hideset is a small sorted set of macro name IDs, per spec.md §9
// ("implement hidesets as small sorted sets of macro identifiers").
type Hideset []strtab.ID

// Has reports whether id is a member of the hideset.
func (h Hideset) Has(id strtab.ID) bool {
	i := sortSearch(h, id)
	return i < len(h) && h[i] == id
}

// Union returns the sorted union of h and other, sharing no backing
// array with either when a merge is actually needed.
func (h Hideset) Union(other Hideset) Hideset {
	if len(h) == 0 {
		return other
	}
	if len(other) == 0 {
		return h
	}
	out := make(Hideset, 0, len(h)+len(other))
	i, j := 0, 0
	for i < len(h) && j < len(other) {
		switch {
		case h[i] < other[j]:
			out = append(out, h[i])
			i++
		case h[i] > other[j]:
			out = append(out, other[j])
			j++
		default:
			out = append(out, h[i])
			i++
			j++
		}
	}
	out = append(out, h[i:]...)
	out = append(out, other[j:]...)
	return out
}

// Add returns h with id inserted in sorted position, deduplicated.
func (h Hideset) Add(id strtab.ID) Hideset {
	i := sortSearch(h, id)
	if i < len(h) && h[i] == id {
		return h
	}
	out := make(Hideset, 0, len(h)+1)
	out = append(out, h[:i]...)
	out = append(out, id)
	out = append(out, h[i:]...)
	return out
}

func sortSearch(h Hideset, id strtab.ID) int {
	lo, hi := 0, len(h)
	for lo < hi {
		mid := (lo + hi) / 2
		if h[mid] < id {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}
