// Package optimize implements the machine-independent optimizer of
// spec.md §4.7: liveness, dead-code/dead-store elimination, copy
// propagation, algebraic simplification, and empty-block elimination,
// gated by optimization level and iterated to a fixed point.
package optimize

import "github.com/jcorbin/cc0/internal/ir"

// Level is the `-O{0,1,2,3}` optimization level of spec.md §6.
type Level int

const (
	O0 Level = iota
	O1
	O2
	O3
)

// pass is one optimizer pass, per spec.md §4.7: "each a function
// func(*ir.Def) (changed bool)"; passes needing cross-block liveness
// also receive the Sets computed fresh at the top of each round.
type pass struct {
	name string
	min  Level
	run  func(*ir.Def, *Sets) bool
}

var passes = []pass{
	{"dce", O1, deadCodeElim},
	{"copy-prop", O1, copyPropagate},
	{"algebraic", O2, algebraicSimplify},
	{"empty-block", O1, emptyBlockElim},
}

// maxIterations bounds the fixed-point loop per spec.md §4.7's
// "iterate ... until a fixed point or a bounded iteration cap".
const maxIterations = 16

// Run applies every pass gated by level to def, in the order spec.md
// §4.7 lists, looping until a full pass makes no change or the
// iteration cap is hit. Level O0 runs no passes at all.
func Run(def *ir.Def, level Level) {
	if level < O1 {
		return
	}
	for i := 0; i < maxIterations; i++ {
		live := Liveness(def)
		changed := false
		for _, p := range passes {
			if level < p.min {
				continue
			}
			if p.run(def, live) {
				changed = true
			}
		}
		if !changed {
			return
		}
	}
}
