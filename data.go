package cc

import (
	"math"

	"github.com/jcorbin/cc0/internal/backend/objsink"
	"github.com/jcorbin/cc0/internal/ir"
	"github.com/jcorbin/cc0/internal/mem"
	"github.com/jcorbin/cc0/internal/parser"
	"github.com/jcorbin/cc0/internal/strtab"
	"github.com/jcorbin/cc0/internal/types"
)

// dataImage lays initialized file-scope objects into a paged byte
// image, one cell per byte at the symbol's aligned offset. Holes
// between objects stay unallocated and read back as zero, which is
// exactly the padding rule for static storage.
type dataImage struct {
	mem  mem.Ints
	next uint
	syms []dataSym
}

type dataSym struct {
	name string
	addr uint
	size int64
}

// buildDataImage lays every folded file-scope initializer into a fresh
// image, in declaration order.
func buildDataImage(strs *strtab.Table, inits []parser.GlobalInit) (*dataImage, error) {
	di := &dataImage{}
	for _, gi := range inits {
		if err := di.add(strs.Text(gi.Sym.AsmName), gi.Sym.Type, gi.Val); err != nil {
			return nil, err
		}
	}
	return di, nil
}

// add lays one object out at the next aligned offset; the declared
// type governs size and alignment, the immediate supplies the bits.
func (di *dataImage) add(name string, declared types.Type, v ir.Var) error {
	t := types.Unqualify(declared)
	size := t.Size()
	if size <= 0 {
		size = 8
	}
	align := uint(t.Align())
	if align == 0 {
		align = 1
	}
	addr := (di.next + align - 1) / align * align

	raw := encodeImmediate(t, v, size)
	cells := make([]int, size)
	for i := range raw {
		cells[i] = int(raw[i])
	}
	if err := di.mem.Stor(addr, cells...); err != nil {
		return err
	}
	di.syms = append(di.syms, dataSym{name: name, addr: addr, size: size})
	di.next = addr + uint(size)
	return nil
}

// encodeImmediate renders an immediate operand's value little-endian
// into size bytes, per the x86-64 target.
func encodeImmediate(t types.Type, v ir.Var, size int64) []byte {
	var bits uint64
	if types.IsFloat(t) {
		f := v.ImmFloat
		if !types.IsFloat(v.Type) {
			f = float64(v.ImmInt)
		}
		if size == 4 {
			bits = uint64(math.Float32bits(float32(f)))
		} else {
			bits = math.Float64bits(f)
		}
	} else {
		bits = uint64(v.ImmInt)
		if types.IsFloat(v.Type) {
			bits = uint64(int64(v.ImmFloat))
		}
	}
	raw := make([]byte, size)
	for i := int64(0); i < size && i < 8; i++ {
		raw[i] = byte(bits >> (8 * uint(i)))
	}
	return raw
}

// writeTo emits one object-sink data record per laid-out symbol,
// reading the bytes back out of the paged image.
func (di *dataImage) writeTo(s *objsink.Sink) error {
	for _, ds := range di.syms {
		cells := make([]int, ds.size)
		if err := di.mem.LoadInto(ds.addr, cells); err != nil {
			return err
		}
		data := make([]byte, ds.size)
		for i, c := range cells {
			data[i] = byte(c)
		}
		if err := s.Global(ds.name, ds.addr, data); err != nil {
			return err
		}
	}
	return nil
}
