// Package dotsink implements a backend.Sink rendering each
// definition's control-flow graph as Graphviz dot, for the dot-graph
// debug mode -- a direct visual of what internal/parser built and
// internal/optimize simplified, one digraph per function.
package dotsink

import (
	"fmt"
	"io"

	"github.com/jcorbin/cc0/internal/ir"
	"github.com/jcorbin/cc0/internal/strtab"
	"github.com/jcorbin/cc0/internal/symtab"
)

// Sink writes one dot digraph per Define call.
type Sink struct {
	w    io.Writer
	strs *strtab.Table
}

// New builds a Sink writing through w.
func New(w io.Writer, strs *strtab.Table) *Sink {
	return &Sink{w: w, strs: strs}
}

// Define emits `digraph <name> { ... }` with one node per block,
// labeled with its ops, and one edge per successor.
func (s *Sink) Define(def *ir.Def) error {
	name := s.strs.Text(def.Sym.AsmName)
	fmt.Fprintf(s.w, "digraph %q {\n", name)
	def.Walk(func(b *ir.Block) {
		fmt.Fprintf(s.w, "  %q [shape=box label=%q];\n", b.Label, blockLabel(b))
		switch {
		case b.Conditional():
			fmt.Fprintf(s.w, "  %q -> %q [label=\"true\"];\n", b.Label, def.Block(b.Then).Label)
			fmt.Fprintf(s.w, "  %q -> %q [label=\"false\"];\n", b.Label, def.Block(b.Else).Label)
		case b.Then >= 0:
			fmt.Fprintf(s.w, "  %q -> %q;\n", b.Label, def.Block(b.Then).Label)
		}
	})
	fmt.Fprintln(s.w, "}")
	return nil
}

func blockLabel(b *ir.Block) string {
	out := b.Label + "\\n"
	for _, op := range b.Ops {
		out += fmt.Sprintf("%s %s, %s, %s\\n", op.Opcode, op.Dst, op.Src1, op.Src2)
	}
	return out
}

// Finish emits a comment noting the tentative/undefined symbols left
// over; dot has no natural node for "not a function", so these are
// not graphed, only listed.
func (s *Sink) Finish(tentative, undefined []*symtab.Symbol) error {
	for _, sym := range tentative {
		fmt.Fprintf(s.w, "// tentative: %s\n", s.strs.Text(sym.AsmName))
	}
	for _, sym := range undefined {
		fmt.Fprintf(s.w, "// undefined: %s\n", s.strs.Text(sym.AsmName))
	}
	return nil
}
