package diag

import (
	"fmt"
	"io"

	"github.com/kr/pretty"

	"github.com/jcorbin/cc0/internal/ir"
	"github.com/jcorbin/cc0/internal/symtab"
)

// Dump renders the finalized symbol table and CFG for inspection
// through github.com/kr/pretty, mirroring the teacher's dumper.go +
// vmDumper -- a `--dump` mode built over a pretty-printing library
// instead of a hand-rolled recursive printf tree, per SPEC_FULL.md §3.
func Dump(w io.Writer, idents, labels, tags *symtab.Namespace, defs []*ir.Def) {
	fmt.Fprintln(w, "=== symbols ===")
	dumpNamespace(w, "idents", idents)
	dumpNamespace(w, "labels", labels)
	dumpNamespace(w, "tags", tags)

	fmt.Fprintln(w, "=== definitions ===")
	for _, def := range defs {
		fmt.Fprintf(w, "--- %s ---\n", pretty.Sprint(def.Sym.Name))
		def.Walk(func(b *ir.Block) {
			fmt.Fprintf(w, "%s:\n", b.Label)
			for _, op := range b.Ops {
				fmt.Fprintf(w, "  %# v\n", pretty.Formatter(op))
			}
			if b.Conditional() {
				fmt.Fprintf(w, "  if %s then L%d else L%d\n", b.Term, b.Then, b.Else)
			} else if b.Then >= 0 {
				fmt.Fprintf(w, "  goto L%d\n", b.Then)
			} else {
				fmt.Fprintf(w, "  return %s\n", b.Term)
			}
		})
	}
}

func dumpNamespace(w io.Writer, name string, ns *symtab.Namespace) {
	fmt.Fprintf(w, "-- %s --\n", name)
	for _, sym := range ns.All() {
		fmt.Fprintf(w, "%# v\n", pretty.Formatter(sym))
	}
}
