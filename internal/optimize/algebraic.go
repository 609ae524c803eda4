package optimize

import "github.com/jcorbin/cc0/internal/ir"

// algebraicSimplify rewrites `x+0`, `x*1`, `x*0`, and comparison-with-
// itself into a copy or immediate, per spec.md §4.7.
func algebraicSimplify(def *ir.Def, _ *Sets) bool {
	changed := false
	def.Walk(func(b *ir.Block) {
		for i := range b.Ops {
			if simplify(&b.Ops[i]) {
				changed = true
			}
		}
	})
	return changed
}

func isZero(v ir.Var) bool  { return v.Kind == ir.VImmediate && v.ImmInt == 0 && v.ImmFloat == 0 }
func isOne(v ir.Var) bool   { return v.Kind == ir.VImmediate && ((v.ImmInt == 1 && v.ImmFloat == 0) || (v.ImmInt == 0 && v.ImmFloat == 1)) }
func sameVar(a, b ir.Var) bool {
	return a.Kind == b.Kind && a.Kind == ir.VSymbol && a.Sym == b.Sym
}

func simplify(op *ir.Op) bool {
	switch op.Opcode {
	case ir.OpAdd:
		if isZero(op.Src2) {
			*op = asCopy(op.Dst, op.Src1)
			return true
		}
		if isZero(op.Src1) {
			*op = asCopy(op.Dst, op.Src2)
			return true
		}
	case ir.OpSub:
		if isZero(op.Src2) {
			*op = asCopy(op.Dst, op.Src1)
			return true
		}
		if sameVar(op.Src1, op.Src2) {
			*op = asCopy(op.Dst, ir.ImmediateInt(op.Dst.Type, 0))
			return true
		}
	case ir.OpMul:
		if isOne(op.Src2) {
			*op = asCopy(op.Dst, op.Src1)
			return true
		}
		if isOne(op.Src1) {
			*op = asCopy(op.Dst, op.Src2)
			return true
		}
		if isZero(op.Src1) || isZero(op.Src2) {
			*op = asCopy(op.Dst, ir.ImmediateInt(op.Dst.Type, 0))
			return true
		}
	case ir.OpEq, ir.OpLe, ir.OpGe:
		if sameVar(op.Src1, op.Src2) {
			*op = asCopy(op.Dst, ir.ImmediateInt(op.Dst.Type, 1))
			return true
		}
	case ir.OpNe, ir.OpLt, ir.OpGt:
		if sameVar(op.Src1, op.Src2) {
			*op = asCopy(op.Dst, ir.ImmediateInt(op.Dst.Type, 0))
			return true
		}
	}
	return false
}

func asCopy(dst, src ir.Var) ir.Op {
	return ir.Op{Opcode: ir.OpLoad, Dst: dst, Src1: src}
}
