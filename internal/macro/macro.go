// Package macro implements the object-like and function-like macro
// table and expander described in spec.md §4.2: hideset-based
// re-expansion control, paste/stringize, and the small set of built-in
// expansions.
package macro

import (
	"github.com/jcorbin/cc0/internal/strtab"
	"github.com/jcorbin/cc0/internal/token"
)

// PieceKind distinguishes a literal replacement-list token from a
// reference to one of the macro's formal parameters.
type PieceKind int

const (
	// Lit is a literal token carried verbatim into the expansion.
	Lit PieceKind = iota
	// Param is a reference to parameter index N of a function-like macro.
	Param
	// Stringize is `# param` -- substitute the stringized unexpanded argument.
	Stringize
	// VAArgs is `__VA_ARGS__` in a variadic function-like macro.
	VAArgs
)

// Piece is one element of a macro's replacement list.
type Piece struct {
	Kind  PieceKind
	Tok   token.Token // valid when Kind == Lit
	Param int         // valid when Kind == Param or Stringize

	// PasteNext/PastePrev mark that this piece is adjacent to a ##
	// operator, so the expander must not pre-expand the argument
	// feeding it (spec.md §4.2).
	PasteNext bool
	PastePrev bool
}

// Macro is one `#define`d name.
type Macro struct {
	Name      strtab.ID
	FuncLike  bool
	Params    []strtab.ID // parameter names, function-like only
	Variadic  bool        // trailing `...`
	Body      []Piece
	DefinedAt token.Token // for redefinition diagnostics
}

// Equivalent reports whether m and other have token-equivalent
// replacement lists, per spec.md §4.2's redefinition rule ("permitted
// iff the replacement lists are token-equivalent").
func (m *Macro) Equivalent(other *Macro) bool {
	if m.FuncLike != other.FuncLike || m.Variadic != other.Variadic {
		return false
	}
	if len(m.Params) != len(other.Params) {
		return false
	}
	for i := range m.Params {
		if m.Params[i] != other.Params[i] {
			return false
		}
	}
	if len(m.Body) != len(other.Body) {
		return false
	}
	for i := range m.Body {
		a, b := m.Body[i], other.Body[i]
		if a.Kind != b.Kind || a.Param != b.Param || a.PasteNext != b.PasteNext || a.PastePrev != b.PastePrev {
			return false
		}
		if a.Kind == Lit {
			if a.Tok.Kind != b.Tok.Kind || a.Tok.Lit != b.Tok.Lit || a.Tok.Val != b.Tok.Val {
				return false
			}
		}
	}
	return true
}

// Table holds every currently-#define'd macro, keyed by interned name.
type Table struct {
	defs map[strtab.ID]*Macro
}

// Define installs m, returning an existing macro of the same name if one
// was already defined (so the caller can apply spec.md §4.2's
// equivalent-redefinition-is-ok-otherwise-warn rule).
func (t *Table) Define(m *Macro) (prior *Macro, redefined bool) {
	if t.defs == nil {
		t.defs = make(map[strtab.ID]*Macro)
	}
	prior, redefined = t.defs[m.Name]
	t.defs[m.Name] = m
	return prior, redefined
}

// Undef removes name's macro, if any.
func (t *Table) Undef(name strtab.ID) {
	delete(t.defs, name)
}

// Lookup returns name's macro, or nil if it is not currently defined.
func (t *Table) Lookup(name strtab.ID) *Macro {
	if t.defs == nil {
		return nil
	}
	return t.defs[name]
}

// Defined reports whether name is currently #define'd, for `defined(X)`
// in `#if` expressions.
func (t *Table) Defined(name strtab.ID) bool {
	_, ok := t.defs[name]
	return ok
}

// Reset discards every macro definition, for the per-TU reset of spec.md §5.
func (t *Table) Reset() {
	for k := range t.defs {
		delete(t.defs, k)
	}
}
