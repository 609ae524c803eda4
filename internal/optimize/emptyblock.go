package optimize

import "github.com/jcorbin/cc0/internal/ir"

// emptyBlockElim bypasses blocks with no ops and a single
// unconditional successor in every predecessor's successor list, per
// spec.md §4.7.
func emptyBlockElim(def *ir.Def, _ *Sets) bool {
	changed := false
	for i, b := range def.Blocks {
		if i == 0 || b == nil {
			continue // never retarget away from the entry block itself
		}
		if len(b.Ops) != 0 || b.Conditional() || b.Then < 0 {
			continue
		}
		target := b.Then
		if target == i {
			continue
		}
		for _, other := range def.Blocks {
			if other == nil || other == b {
				continue
			}
			if other.Then == i {
				other.Then = target
				changed = true
			}
			if other.Conditional() && other.Else == i {
				other.Else = target
				changed = true
			}
		}
	}
	return changed
}
