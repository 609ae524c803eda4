package strtab_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcorbin/cc0/internal/strtab"
)

func TestInternStable(t *testing.T) {
	var tab strtab.Table

	foo1 := tab.Intern("foo")
	bar := tab.Intern("bar")
	foo2 := tab.Intern("foo")

	require.NotZero(t, foo1)
	require.NotZero(t, bar)
	assert.Equal(t, foo1, foo2, "re-interning the same spelling must yield the same ID")
	assert.NotEqual(t, foo1, bar)

	assert.Equal(t, "foo", tab.Text(foo1))
	assert.Equal(t, "bar", tab.Text(bar))
	assert.Equal(t, strtab.ID(0), tab.Lookup("nope"))
	assert.Equal(t, "", tab.Text(strtab.ID(0)))
	assert.Equal(t, 2, tab.Len())
}

func TestReset(t *testing.T) {
	var tab strtab.Table
	tab.Intern("a")
	tab.Intern("b")
	require.Equal(t, 2, tab.Len())

	tab.Reset()
	assert.Equal(t, 0, tab.Len())
	assert.Equal(t, strtab.ID(0), tab.Lookup("a"))

	// handles are reassigned fresh after reset
	id := tab.Intern("a")
	assert.Equal(t, strtab.ID(1), id)
}
