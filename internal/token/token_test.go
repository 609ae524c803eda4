package token_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jcorbin/cc0/internal/strtab"
	"github.com/jcorbin/cc0/internal/token"
)

func TestHidesetAddHas(t *testing.T) {
	var strs strtab.Table
	a, b, c := strs.Intern("A"), strs.Intern("B"), strs.Intern("C")

	var h token.Hideset
	assert.False(t, h.Has(a))

	h = h.Add(b).Add(a).Add(c)
	assert.True(t, h.Has(a))
	assert.True(t, h.Has(b))
	assert.True(t, h.Has(c))

	// adding again is a no-op, and the set stays sorted
	h2 := h.Add(b)
	assert.Len(t, h2, 3)
	for i := 1; i < len(h2); i++ {
		assert.Less(t, uint32(h2[i-1]), uint32(h2[i]))
	}
}

func TestHidesetUnion(t *testing.T) {
	var strs strtab.Table
	a, b, c := strs.Intern("A"), strs.Intern("B"), strs.Intern("C")

	left := token.Hideset{}.Add(a).Add(b)
	right := token.Hideset{}.Add(b).Add(c)

	u := left.Union(right)
	assert.Len(t, u, 3)
	assert.True(t, u.Has(a))
	assert.True(t, u.Has(b))
	assert.True(t, u.Has(c))

	// union does not mutate its inputs
	assert.Len(t, left, 2)
	assert.Len(t, right, 2)
}
