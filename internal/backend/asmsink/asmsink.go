// Package asmsink implements a backend.Sink that renders each
// definition as readable pseudo-assembly text, the `-S` reference
// output. It makes no claim to x86-64 ABI correctness -- there is no
// register allocation, no calling convention, no encoding -- it is a
// textual rendering of the IR good enough to diff in golden tests and
// to read while debugging the front end, styled after the teacher's
// vmDumper (one line per block label, one line per op).
package asmsink

import (
	"fmt"
	"io"

	"github.com/jcorbin/cc0/internal/backend"
	"github.com/jcorbin/cc0/internal/flushio"
	"github.com/jcorbin/cc0/internal/ir"
	"github.com/jcorbin/cc0/internal/strtab"
	"github.com/jcorbin/cc0/internal/symtab"
)

// Sink writes pseudo-assembly to an underlying writer.
type Sink struct {
	w    flushio.WriteFlusher
	strs *strtab.Table
	opts backend.CodegenOpts
}

// New builds a Sink writing through w, naming symbols via strs.
func New(w io.Writer, strs *strtab.Table, opts backend.CodegenOpts) *Sink {
	return &Sink{w: flushio.NewWriteFlusher(w), strs: strs, opts: opts}
}

func (s *Sink) name(id strtab.ID) string { return s.strs.Text(id) }

// Define renders one function's CFG as a labeled block sequence.
func (s *Sink) Define(def *ir.Def) error {
	fmt.Fprintf(s.w, "\t.globl %s\n%s:\n", s.name(def.Sym.AsmName), s.name(def.Sym.AsmName))
	def.Walk(func(b *ir.Block) {
		fmt.Fprintf(s.w, "%s:\n", b.Label)
		for _, op := range b.Ops {
			fmt.Fprintf(s.w, "\t%s\n", s.formatOp(op))
		}
		switch {
		case b.Conditional():
			fmt.Fprintf(s.w, "\tbr %s, L%d, L%d\n", s.formatVar(b.Term), b.Then, b.Else)
		case b.Then >= 0:
			fmt.Fprintf(s.w, "\tjmp L%d\n", b.Then)
		default:
			fmt.Fprintf(s.w, "\tret %s\n", s.formatVar(b.Term))
		}
	})
	return s.w.Flush()
}

// Finish emits a `.comm`/`.bss`-style allocation per tentative symbol
// and an `.extern` note per referenced-but-undefined one.
func (s *Sink) Finish(tentative, undefined []*symtab.Symbol) error {
	for _, sym := range tentative {
		fmt.Fprintf(s.w, "\t.comm %s, %d, %d\n", s.name(sym.AsmName), sym.Type.Size(), sym.Type.Align())
	}
	for _, sym := range undefined {
		fmt.Fprintf(s.w, "\t.extern %s\n", s.name(sym.AsmName))
	}
	return s.w.Flush()
}

func (s *Sink) formatOp(op ir.Op) string {
	switch op.Opcode {
	case ir.OpCall:
		return fmt.Sprintf("%s = call %s(%s)", s.formatVar(op.Dst), s.formatCallee(op), s.formatArgs(op.Extra))
	case ir.OpParam:
		return fmt.Sprintf("param %s", s.formatVar(op.Src1))
	case ir.OpConv:
		return fmt.Sprintf("%s = conv.%d %s", s.formatVar(op.Dst), op.ConvOp, s.formatVar(op.Src1))
	case ir.OpNot, ir.OpNeg, ir.OpLNot, ir.OpAddrOf, ir.OpDeref, ir.OpLoad:
		return fmt.Sprintf("%s = %s %s", s.formatVar(op.Dst), op.Opcode, s.formatVar(op.Src1))
	case ir.OpStore:
		return fmt.Sprintf("store %s, %s", s.formatVar(op.Dst), s.formatVar(op.Src1))
	case ir.OpAlloca:
		return fmt.Sprintf("%s = alloca", s.formatVar(op.Dst))
	default:
		return fmt.Sprintf("%s = %s %s, %s", s.formatVar(op.Dst), op.Opcode, s.formatVar(op.Src1), s.formatVar(op.Src2))
	}
}

func (s *Sink) formatCallee(op ir.Op) string {
	if op.Callee != nil {
		return s.name(op.Callee.AsmName)
	}
	return s.formatVar(op.Src1)
}

func (s *Sink) formatArgs(args []ir.Var) string {
	out := ""
	for i, a := range args {
		if i > 0 {
			out += ", "
		}
		out += s.formatVar(a)
	}
	return out
}

func (s *Sink) formatVar(v ir.Var) string {
	switch v.Kind {
	case ir.VVoid:
		return "void"
	case ir.VImmediate:
		return v.String()
	case ir.VSymbol, ir.VIndirect, ir.VAddr:
		if v.Sym != nil {
			return s.name(v.Sym.AsmName)
		}
		return v.String()
	case ir.VString:
		return fmt.Sprintf("$str%d", v.Str)
	default:
		return v.String()
	}
}
