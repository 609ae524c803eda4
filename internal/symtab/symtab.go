// Package symtab implements the three-namespace scoped symbol table of
// spec.md §4.5: an append-only master list per namespace (so symbol
// pointers are stable and safe to reference from the IR) plus a scope
// stack of name->symbol maps, per spec.md §3's "Namespace" record.
package symtab

import (
	"github.com/jcorbin/cc0/internal/strtab"
	"github.com/jcorbin/cc0/internal/types"
)

// Kind classifies what a Symbol denotes, per spec.md §3.
type Kind int

const (
	KindLabel Kind = iota
	KindTag
	KindTypedef
	KindEnumConst
	KindParam
	KindAuto
	KindStatic
	KindExtern
	KindTemporary
)

// Linkage, per spec.md §3.
type Linkage int

const (
	LinkNone Linkage = iota
	LinkInternal
	LinkExternal
)

// Storage is the C storage-class specifier that produced a Symbol.
type Storage int

const (
	StorageNone Storage = iota
	StorageAuto
	StorageStatic
	StorageExtern
	StorageRegister
	StorageTypedef
)

// Symbol is one named entity in a Namespace, per spec.md §3. Its
// address is stable for the lifetime of the owning Namespace: the IR
// holds `*Symbol` references directly.
type Symbol struct {
	Name    strtab.ID
	Type    types.Type
	Kind    Kind
	Linkage Linkage
	Storage Storage
	Depth   int // scope depth of definition

	// AsmName is the backend-visible name, distinct from Name for
	// static locals and other symbols the source name would collide
	// across inlined/duplicated scopes (SPEC_FULL.md §11, grounded on
	// original_source/src/parser/symtab.h's separate `label` field).
	AsmName strtab.ID

	// Slot is an opaque backend-assigned value (stack offset, label,
	// register); this package never interprets it. For an enumeration
	// constant the parser stores the constant's int64 value here.
	Slot interface{}

	Defined    bool
	Referenced bool
	Inlined    bool
}

type scope struct {
	byName map[strtab.ID]*Symbol
}

// Namespace is one of the three lookup partitions spec.md §4.5 names
// (ordinary identifiers, labels, tags); struct/union members are not a
// Namespace here, as spec.md's glossary notes -- they live on the
// owning types.Record.
type Namespace struct {
	all    []*Symbol
	scopes []scope
}

// NewNamespace builds a Namespace with its single (file) scope open.
func NewNamespace() *Namespace {
	ns := &Namespace{}
	ns.PushScope()
	return ns
}

// PushScope opens a new, empty innermost scope.
func (ns *Namespace) PushScope() { ns.scopes = append(ns.scopes, scope{byName: make(map[strtab.ID]*Symbol)}) }

// PopScope closes the innermost scope. Popping the outermost (file)
// scope is a no-op; callers are expected to balance pushes.
func (ns *Namespace) PopScope() {
	if len(ns.scopes) > 1 {
		ns.scopes = ns.scopes[:len(ns.scopes)-1]
	}
}

// Depth reports the current scope nesting depth (1 == file scope).
func (ns *Namespace) Depth() int { return len(ns.scopes) }

// Lookup searches inner-to-outer scopes for name, returning the
// innermost-scoped symbol or nil, per spec.md §8's testable property
// ("sym_lookup returns the innermost-scoped symbol with that name or
// null, and repeated lookups with no intervening scope changes return
// the same pointer").
func (ns *Namespace) Lookup(name strtab.ID) *Symbol {
	for i := len(ns.scopes) - 1; i >= 0; i-- {
		if sym, ok := ns.scopes[i].byName[name]; ok {
			return sym
		}
	}
	return nil
}

// LookupCurrent searches only the innermost scope, used by the parser
// to detect same-scope redeclaration vs. shadowing.
func (ns *Namespace) LookupCurrent(name strtab.ID) *Symbol {
	return ns.scopes[len(ns.scopes)-1].byName[name]
}

// Add inserts a brand-new symbol into the innermost scope and the
// master list. Re-declaration/completion of an existing symbol at the
// same scope is the caller's responsibility (the parser calls
// LookupCurrent first and mutates the existing *Symbol in place,
// matching spec.md §4.5's "sym_add either inserts ... or completes/
// compatibly re-declares" -- that merge logic is declaration-kind
// specific and lives in internal/parser, not here).
func (ns *Namespace) Add(sym *Symbol) {
	sym.Depth = len(ns.scopes)
	ns.all = append(ns.all, sym)
	ns.scopes[len(ns.scopes)-1].byName[sym.Name] = sym
}

// All returns every symbol ever added to ns, in declaration order,
// regardless of current scope -- the master list spec.md §3 requires
// ("an append-only list of all symbols regardless of scope").
func (ns *Namespace) All() []*Symbol { return ns.all }

// Reset discards every symbol and scope, re-opening a fresh file
// scope, for the per-TU reset of spec.md §5.
func (ns *Namespace) Reset() {
	ns.all = nil
	ns.scopes = ns.scopes[:0]
	ns.PushScope()
}

// FileScope walks the file-scope (depth-1) symbols in declaration
// order, for the post-parse tentative-definition yield of spec.md
// §4.5 ("yield_declaration walks the file-scope namespace in
// declaration order").
func (ns *Namespace) FileScope() []*Symbol {
	var out []*Symbol
	for _, sym := range ns.all {
		if sym.Depth == 1 {
			out = append(out, sym)
		}
	}
	return out
}
