package optimize

import (
	"github.com/jcorbin/cc0/internal/ir"
	"github.com/jcorbin/cc0/internal/symtab"
)

// copyPropagate replaces, within a single block, uses of a temporary t
// by its source v if t was defined by a pure copy (an OpLoad whose
// source is itself a symbol or immediate) and v has not been
// re-assigned since, per spec.md §4.7.
func copyPropagate(def *ir.Def, _ *Sets) bool {
	changed := false
	def.Walk(func(b *ir.Block) {
		copies := make(map[*symtab.Symbol]ir.Var)
		for i := range b.Ops {
			op := &b.Ops[i]

			if v, did := trySubst(op.Src1, copies); did {
				op.Src1 = v
				changed = true
			}
			if v, did := trySubst(op.Src2, copies); did {
				op.Src2 = v
				changed = true
			}
			for j := range op.Extra {
				if v, did := trySubst(op.Extra[j], copies); did {
					op.Extra[j] = v
					changed = true
				}
			}

			if op.Dst.Kind == ir.VSymbol {
				invalidate(copies, op.Dst.Sym)
				if op.Opcode == ir.OpLoad && isCopySource(op.Src1) {
					copies[op.Dst.Sym] = op.Src1
				}
			}
		}
		if v, did := trySubst(b.Term, copies); did {
			b.Term = v
			changed = true
		}
	})
	return changed
}

func isCopySource(v ir.Var) bool {
	return v.Kind == ir.VSymbol || v.Kind == ir.VImmediate
}

func trySubst(v ir.Var, copies map[*symtab.Symbol]ir.Var) (ir.Var, bool) {
	if v.Kind != ir.VSymbol {
		return v, false
	}
	if src, ok := copies[v.Sym]; ok {
		return src, true
	}
	return v, false
}

// invalidate drops any copy mapping keyed by sym, and any mapping
// whose recorded source *is* sym (a later use must not see a value
// that has since been reassigned through that source).
func invalidate(copies map[*symtab.Symbol]ir.Var, sym *symtab.Symbol) {
	delete(copies, sym)
	for k, v := range copies {
		if v.Kind == ir.VSymbol && v.Sym == sym {
			delete(copies, k)
		}
	}
}
