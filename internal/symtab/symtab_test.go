package symtab_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcorbin/cc0/internal/strtab"
	"github.com/jcorbin/cc0/internal/symtab"
	"github.com/jcorbin/cc0/internal/types"
)

func TestLookupInnermostWins(t *testing.T) {
	var strs strtab.Table
	ns := symtab.NewNamespace()
	name := strs.Intern("x")

	outer := &symtab.Symbol{Name: name, Type: types.IntType, Kind: symtab.KindAuto}
	ns.Add(outer)

	ns.PushScope()
	inner := &symtab.Symbol{Name: name, Type: types.CharType, Kind: symtab.KindAuto}
	ns.Add(inner)

	got := ns.Lookup(name)
	assert.Same(t, inner, got, "innermost scope shadows")
	assert.Same(t, got, ns.Lookup(name), "repeated lookups return the same pointer")

	ns.PopScope()
	assert.Same(t, outer, ns.Lookup(name), "pop restores the outer binding")
}

func TestLookupCurrentOnlySeesInnermost(t *testing.T) {
	var strs strtab.Table
	ns := symtab.NewNamespace()
	name := strs.Intern("x")
	ns.Add(&symtab.Symbol{Name: name, Type: types.IntType})

	ns.PushScope()
	assert.Nil(t, ns.LookupCurrent(name), "outer binding invisible to LookupCurrent")
	assert.NotNil(t, ns.Lookup(name))
}

func TestMasterListIsAppendOnly(t *testing.T) {
	var strs strtab.Table
	ns := symtab.NewNamespace()

	a := &symtab.Symbol{Name: strs.Intern("a"), Type: types.IntType}
	ns.Add(a)
	ns.PushScope()
	b := &symtab.Symbol{Name: strs.Intern("b"), Type: types.IntType}
	ns.Add(b)
	ns.PopScope()

	all := ns.All()
	require.Len(t, all, 2, "popped scopes do not remove symbols from the master list")
	assert.Same(t, a, all[0])
	assert.Same(t, b, all[1])
}

func TestDepthTracksScopes(t *testing.T) {
	ns := symtab.NewNamespace()
	assert.Equal(t, 1, ns.Depth(), "file scope is depth 1")
	ns.PushScope()
	assert.Equal(t, 2, ns.Depth())
	ns.PopScope()
	assert.Equal(t, 1, ns.Depth())
	ns.PopScope()
	assert.Equal(t, 1, ns.Depth(), "the file scope cannot be popped")
}

func TestSymbolDepthRecordedAtAdd(t *testing.T) {
	var strs strtab.Table
	ns := symtab.NewNamespace()
	ns.PushScope()
	sym := &symtab.Symbol{Name: strs.Intern("local"), Type: types.IntType}
	ns.Add(sym)
	assert.Equal(t, 2, sym.Depth)
}

func TestFileScopeYieldsDeclarationOrder(t *testing.T) {
	var strs strtab.Table
	ns := symtab.NewNamespace()

	a := &symtab.Symbol{Name: strs.Intern("a"), Type: types.IntType}
	ns.Add(a)
	ns.PushScope()
	ns.Add(&symtab.Symbol{Name: strs.Intern("local"), Type: types.IntType})
	ns.PopScope()
	b := &symtab.Symbol{Name: strs.Intern("b"), Type: types.IntType}
	ns.Add(b)

	fs := ns.FileScope()
	require.Len(t, fs, 2)
	assert.Same(t, a, fs[0])
	assert.Same(t, b, fs[1])
}

func TestReset(t *testing.T) {
	var strs strtab.Table
	ns := symtab.NewNamespace()
	name := strs.Intern("x")
	ns.Add(&symtab.Symbol{Name: name, Type: types.IntType})
	ns.PushScope()

	ns.Reset()
	assert.Equal(t, 1, ns.Depth())
	assert.Empty(t, ns.All())
	assert.Nil(t, ns.Lookup(name))
}

func TestTempAllocReusesReleased(t *testing.T) {
	var strs strtab.Table
	ns := symtab.NewNamespace()
	ta := symtab.NewTempAlloc(&strs, ns)

	t1 := ta.New(types.IntType)
	require.Equal(t, symtab.KindTemporary, t1.Kind)
	t2 := ta.New(types.IntType)
	assert.NotSame(t, t1, t2)

	ta.Release(t1)
	t3 := ta.New(types.IntType)
	assert.Same(t, t1, t3, "released temporaries are recycled by type")

	t4 := ta.New(types.LongType)
	assert.NotSame(t, t1, t4, "the free list is per-type")

	assert.Len(t, ns.All(), 3, "recycled temporaries are not re-added to the master list")
}
