package optimize

import "github.com/jcorbin/cc0/internal/ir"

// deadCodeElim removes any op whose destination is a temporary not
// live after the op and which has no side effect, per spec.md §4.7:
// "no call, no store through pointer, no volatile operand".
func deadCodeElim(def *ir.Def, live *Sets) bool {
	changed := false
	def.Walk(func(b *ir.Block) {
		out := live.Out[b]
		kept := b.Ops[:0]
		for i, op := range b.Ops {
			if isDeadStore(op, b, i, out) {
				changed = true
				continue
			}
			kept = append(kept, op)
		}
		b.Ops = kept
	})
	return changed
}

func isDeadStore(op ir.Op, b *ir.Block, idx int, out symSet) bool {
	if op.HasSideEffect() {
		return false
	}
	if op.Dst.Kind != ir.VSymbol {
		return op.Dst.Kind == ir.VVoid && op.Opcode == ir.OpNop
	}
	sym := op.Dst.Sym
	if sym == nil {
		return false
	}
	return !LiveAfter(b, idx, out, sym)
}
