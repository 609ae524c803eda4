package objsink_test

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcorbin/cc0/internal/backend"
	"github.com/jcorbin/cc0/internal/backend/objsink"
	"github.com/jcorbin/cc0/internal/ir"
	"github.com/jcorbin/cc0/internal/strtab"
	"github.com/jcorbin/cc0/internal/symtab"
	"github.com/jcorbin/cc0/internal/types"
)

func readRecord(t *testing.T, r *bufio.Reader) (byte, []byte) {
	t.Helper()
	tag, err := r.ReadByte()
	require.NoError(t, err)
	var n uint32
	require.NoError(t, binary.Read(r, binary.LittleEndian, &n))
	payload := make([]byte, n)
	_, err = io.ReadFull(r, payload)
	require.NoError(t, err)
	return tag, payload
}

func TestSinkRoundTrip(t *testing.T) {
	strs := &strtab.Table{}
	name := strs.Intern("f")
	sym := &symtab.Symbol{Name: name, AsmName: name, Type: &types.Func{Ret: types.VoidType}}
	def := ir.NewDef(sym, symtab.NewTempAlloc(strs, symtab.NewNamespace()))
	def.Block(0).Term = ir.Void
	def.Block(0).Then, def.Block(0).Else = -1, -1

	var buf bytes.Buffer
	s := objsink.New(&buf, strs, backend.CodegenOpts{})
	require.NoError(t, s.Define(def))

	tentName := strs.Intern("counter")
	tent := &symtab.Symbol{Name: tentName, AsmName: tentName, Type: types.IntType}
	require.NoError(t, s.Finish([]*symtab.Symbol{tent}, nil))

	r := bufio.NewReader(&buf)
	tag, payload := readRecord(t, r)
	assert.Equal(t, objsink.TagDefine, tag)
	assert.Contains(t, string(payload), "func f")

	tag, payload = readRecord(t, r)
	assert.Equal(t, objsink.TagTentative, tag)
	assert.Equal(t, "counter 4 4", string(payload))
}
