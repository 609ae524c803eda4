// Package objsink implements a backend.Sink emitting a minimal
// length-prefixed record stream standing in for an object file (the
// `-c` / default reference output). It does not claim to be a real
// ELF/COFF/Mach-O writer; the format is a tag byte, a little-endian
// uint32 payload length, and the payload, modeled on
// db47h-ngaro/vm/image.go's binary.Read/Write use over a flat Cell
// image -- stable and simple enough for round-trip golden tests.
package objsink

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/jcorbin/cc0/internal/backend"
	"github.com/jcorbin/cc0/internal/ir"
	"github.com/jcorbin/cc0/internal/strtab"
	"github.com/jcorbin/cc0/internal/symtab"
)

// Record tags.
const (
	TagDefine    byte = 'D'
	TagData      byte = 'G'
	TagTentative byte = 'T'
	TagUndefined byte = 'U'
)

// Sink writes the record stream to an underlying writer.
type Sink struct {
	w    *bufio.Writer
	strs *strtab.Table
	opts backend.CodegenOpts
}

// New builds a Sink writing through w.
func New(w io.Writer, strs *strtab.Table, opts backend.CodegenOpts) *Sink {
	return &Sink{w: bufio.NewWriter(w), strs: strs, opts: opts}
}

func (s *Sink) writeRecord(tag byte, payload []byte) error {
	if err := s.w.WriteByte(tag); err != nil {
		return err
	}
	if err := binary.Write(s.w, binary.LittleEndian, uint32(len(payload))); err != nil {
		return err
	}
	_, err := s.w.Write(payload)
	return err
}

// Define serializes one function definition's block/op sequence as
// plain text, the way asmsink does, so the payload stays readable in
// a hex/strings dump while still being a length-delimited record.
func (s *Sink) Define(def *ir.Def) error {
	var buf []byte
	buf = append(buf, []byte(fmt.Sprintf("func %s\n", s.strs.Text(def.Sym.AsmName)))...)
	def.Walk(func(b *ir.Block) {
		buf = append(buf, []byte(fmt.Sprintf("%s:\n", b.Label))...)
		for _, op := range b.Ops {
			buf = append(buf, []byte(fmt.Sprintf("  %s %s %s %s\n", op.Opcode, op.Dst, op.Src1, op.Src2))...)
		}
		if b.Conditional() {
			buf = append(buf, []byte(fmt.Sprintf("  br %s %d %d\n", b.Term, b.Then, b.Else))...)
		} else if b.Then >= 0 {
			buf = append(buf, []byte(fmt.Sprintf("  jmp %d\n", b.Then))...)
		} else {
			buf = append(buf, []byte(fmt.Sprintf("  ret %s\n", b.Term))...)
		}
	})
	return s.writeRecord(TagDefine, buf)
}

// Global emits one initialized file-scope object: a NUL-terminated
// name, the little-endian uint32 image offset, then the image bytes.
// Called between the last Define and Finish.
func (s *Sink) Global(name string, offset uint, data []byte) error {
	payload := make([]byte, 0, len(name)+5+len(data))
	payload = append(payload, name...)
	payload = append(payload, 0)
	var off [4]byte
	binary.LittleEndian.PutUint32(off[:], uint32(offset))
	payload = append(payload, off[:]...)
	payload = append(payload, data...)
	return s.writeRecord(TagData, payload)
}

// Finish emits one record per tentative/undefined symbol, then flushes.
func (s *Sink) Finish(tentative, undefined []*symtab.Symbol) error {
	for _, sym := range tentative {
		payload := []byte(fmt.Sprintf("%s %d %d", s.strs.Text(sym.AsmName), sym.Type.Size(), sym.Type.Align()))
		if err := s.writeRecord(TagTentative, payload); err != nil {
			return err
		}
	}
	for _, sym := range undefined {
		if err := s.writeRecord(TagUndefined, []byte(s.strs.Text(sym.AsmName))); err != nil {
			return err
		}
	}
	return s.w.Flush()
}
