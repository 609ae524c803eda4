// Package backend defines the contract between the front/middle end
// and whatever consumes a finished translation unit. A Sink never sees
// source text or diagnostics: it receives ordered, already-optimized
// ir.Def values and, once the whole TU has been parsed, the
// file-scope symbols that never got a definition. This repo carries no
// x86-64/ELF/DWARF implementation (named collaborators, interfaces
// only) -- the reference sinks in this package's subpackages exist to
// exercise the contract and give golden tests something to diff
// against, not to produce a loadable object file.
package backend

import (
	"github.com/jcorbin/cc0/internal/ir"
	"github.com/jcorbin/cc0/internal/symtab"
)

// Sink consumes one translation unit's worth of IR, in the order the
// front end built it.
type Sink interface {
	// Define is called once per function with a body, in source order.
	Define(def *ir.Def) error

	// Finish is called exactly once, after every Define call, with the
	// file-scope symbols the TU never defined: tentative definitions
	// (declared, never initialized -- becomes a common/bss allocation)
	// and undefined externs (declared extern, referenced, never
	// defined anywhere in the TU -- the linker's problem, not this
	// one's).
	Finish(tentative []*symtab.Symbol, undefined []*symtab.Symbol) error
}

// Slot is the type symtab.Symbol.Slot is documented to hold: an opaque
// value a Sink assigns to a symbol (a stack offset, a label, a
// register) and later reads back. It is declared as an alias for
// interface{} here, rather than as symtab.Symbol's field type, because
// symtab must not import backend (Sink.Finish already takes
// []*symtab.Symbol the other way); the alias exists purely so sinks
// and their tests have a name for what they are storing.
type Slot = interface{}

// CodegenOpts carries the subset of cmd/cc's command-line surface that
// is meaningful to code generation but opaque to everything upstream
// of it: optimization level and the GCC-ish -f/-m toggles pass through
// untouched from flag parsing to whichever Sink is selected, per
// SPEC_FULL.md's CLI ownership note -- the front end never inspects
// these fields.
type CodegenOpts struct {
	OptLevel int

	PIC    bool
	Common bool
	SSE    bool

	Debug bool
}
