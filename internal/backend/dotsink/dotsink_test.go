package dotsink_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcorbin/cc0/internal/backend/dotsink"
	"github.com/jcorbin/cc0/internal/ir"
	"github.com/jcorbin/cc0/internal/strtab"
	"github.com/jcorbin/cc0/internal/symtab"
	"github.com/jcorbin/cc0/internal/types"
)

func TestSinkDefine(t *testing.T) {
	strs := &strtab.Table{}
	name := strs.Intern("f")
	sym := &symtab.Symbol{Name: name, AsmName: name, Type: &types.Func{Ret: types.IntType}}
	def := ir.NewDef(sym, symtab.NewTempAlloc(strs, symtab.NewNamespace()))

	thenBlk := def.NewBlock()
	elseBlk := def.NewBlock()
	def.Block(0).Term = ir.ImmediateInt(types.IntType, 1)
	def.Block(0).Then, def.Block(0).Else = thenBlk, elseBlk
	def.Block(thenBlk).Term = ir.ImmediateInt(types.IntType, 0)
	def.Block(thenBlk).Then, def.Block(thenBlk).Else = -1, -1
	def.Block(elseBlk).Term = ir.ImmediateInt(types.IntType, 1)
	def.Block(elseBlk).Then, def.Block(elseBlk).Else = -1, -1

	var buf bytes.Buffer
	s := dotsink.New(&buf, strs)
	require.NoError(t, s.Define(def))

	out := buf.String()
	assert.Contains(t, out, `digraph "f"`)
	assert.Contains(t, out, `[label="true"]`)
	assert.Contains(t, out, `[label="false"]`)
}

func TestSinkFinish(t *testing.T) {
	strs := &strtab.Table{}
	var buf bytes.Buffer
	s := dotsink.New(&buf, strs)

	name := strs.Intern("g")
	sym := &symtab.Symbol{Name: name, AsmName: name, Type: types.IntType}
	require.NoError(t, s.Finish([]*symtab.Symbol{sym}, nil))
	assert.Contains(t, buf.String(), "// tentative: g")
}
