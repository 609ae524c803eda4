package symtab

import (
	"fmt"

	"github.com/jcorbin/cc0/internal/strtab"
	"github.com/jcorbin/cc0/internal/types"
)

// TempAlloc allocates IR temporaries for one function definition and
// recycles them through a per-function free list, per spec.md §4.5
// ("Temporaries are allocated in the current function's scope and can
// be released back to a per-function free-list to reduce churn").
type TempAlloc struct {
	strs *strtab.Table
	ns   *Namespace
	next int
	free map[types.Type][]*Symbol
}

// NewTempAlloc builds an allocator whose temporaries are registered
// into ns (so they share the master-list stability guarantee every
// other symbol gets) and named through strs.
func NewTempAlloc(strs *strtab.Table, ns *Namespace) *TempAlloc {
	return &TempAlloc{strs: strs, ns: ns, free: make(map[types.Type][]*Symbol)}
}

// New returns a temporary of type t, reusing a freed one of the same
// type if available.
func (ta *TempAlloc) New(t types.Type) *Symbol {
	if pool := ta.free[t]; len(pool) > 0 {
		sym := pool[len(pool)-1]
		ta.free[t] = pool[:len(pool)-1]
		return sym
	}
	ta.next++
	name := ta.strs.Intern(fmt.Sprintf("%%t%d", ta.next))
	sym := &Symbol{Name: name, AsmName: name, Type: t, Kind: KindTemporary}
	ta.ns.Add(sym)
	return sym
}

// Release returns sym to the free list for its type, for reuse by a
// later New call within the same function.
func (ta *TempAlloc) Release(sym *Symbol) {
	ta.free[sym.Type] = append(ta.free[sym.Type], sym)
}
