package types

// Interner structurally interns composite types so that two handles
// obtained from the same Interner compare equal (by Go `==`, since
// both Type values are pointers) iff the underlying types are
// C-compatible, per spec.md §4.4 ("two handles equal iff the types
// are C-compatible") -- the same "hash content, compare by handle"
// discipline spec.md §9 calls out for string interning, lifted to
// composite types.
//
// Basic types never need interning through this table: callers share
// the package-level singletons (IntType, ...), which BasicOf returns.
// Struct/union/enum identity is by tag (spec.md §4.4: "two unnamed
// struct types are never equal"), so anonymous records/enums are
// deliberately NOT deduplicated -- each call to NewRecord/NewEnum
// returns a fresh, distinct Type.
type Interner struct {
	byKey map[string]Type
}

// NewInterner builds an empty Interner.
func NewInterner() *Interner { return &Interner{byKey: make(map[string]Type)} }

// Reset discards every interned type, for the per-TU reset of spec.md §5.
func (in *Interner) Reset() {
	for k := range in.byKey {
		delete(in.byKey, k)
	}
}

func (in *Interner) intern(t Type) Type {
	k := t.key()
	if existing, ok := in.byKey[k]; ok {
		return existing
	}
	in.byKey[k] = t
	return t
}

// Pointer returns the (interned) pointer-to-elem type.
func (in *Interner) Pointer(elem Type) Type { return in.intern(&Pointer{Elem: elem}) }

// Array returns the (interned) array-of-elem type with the given
// length; hasLen false models an incomplete array type (`T a[]`).
func (in *Interner) Array(elem Type, length int64, hasLen bool) Type {
	return in.intern(&Array{Elem: elem, Len: length, HasLen: hasLen})
}

// Func returns the (interned) function type.
func (in *Interner) Func(ret Type, params []Type, variadic, noProto bool) Type {
	return in.intern(&Func{Ret: ret, Params: params, Variadic: variadic, NoProto: noProto})
}

// Qualified returns the (interned) qualified wrapper around base,
// collapsing a qualified-of-qualified into the union of qualifiers on
// the same base, per C's rule that `const volatile T` is one type.
func (in *Interner) Qualified(base Type, c, v, r bool) Type {
	if !c && !v && !r {
		return base
	}
	if q, ok := base.(*Qualified); ok {
		return in.intern(&Qualified{Base: q.Base, Const: c || q.Const, Volatile: v || q.Volatile, Restrict: r || q.Restrict})
	}
	return in.intern(&Qualified{Base: base, Const: c, Volatile: v, Restrict: r})
}

// NewRecord allocates a fresh, never-deduplicated struct/union shell
// (spec.md §4.4: unnamed records are never equal, and even two
// same-tag struct definitions are distinct types until one completes
// the other via symtab's redeclaration rules -- that merge is symtab's
// job, not the type tree's).
func NewRecord(tag string, union bool) *Record { return &Record{Tag: tag, Union: union} }

// NewEnum allocates a fresh enum shell, completed later via SetComplete.
func NewEnum(tag string) *Enum {
	return &Enum{Tag: tag, Underlying: IntType.(*Basic)}
}

// Package-level basic-type singletons: basic types carry no structural
// state beyond their kind, so there is exactly one Type value per
// BasicKind for the whole process.
var (
	VoidType       Type = &Basic{BVoid}
	BoolType       Type = &Basic{BBool}
	CharType       Type = &Basic{BChar}
	SCharType      Type = &Basic{BSChar}
	UCharType      Type = &Basic{BUChar}
	ShortType      Type = &Basic{BShort}
	UShortType     Type = &Basic{BUShort}
	IntType        Type = &Basic{BInt}
	UIntType       Type = &Basic{BUInt}
	LongType       Type = &Basic{BLong}
	ULongType      Type = &Basic{BULong}
	LongLongType   Type = &Basic{BLongLong}
	ULongLongType  Type = &Basic{BULongLong}
	FloatType      Type = &Basic{BFloat}
	DoubleType     Type = &Basic{BDouble}
	LongDoubleType Type = &Basic{BLongDouble}

	// SizeType/PtrdiffType are the x86-64 System V choices for
	// `size_t`/`ptrdiff_t`, selected per spec.md §4.4.
	SizeType     Type = ULongType
	PtrdiffType  Type = LongType
)

// WCharType returns the basic type backing `wchar_t`, gated by
// `-fshort-wchar` per SPEC_FULL.md §12's decision: 16-bit unsigned
// short when enabled, else the x86-64 System V default of a signed
// 32-bit int.
func WCharType(shortWChar bool) Type {
	if shortWChar {
		return UShortType
	}
	return IntType
}

// BasicOf returns the package-level singleton for k.
func BasicOf(k BasicKind) Type {
	switch k {
	case BVoid:
		return VoidType
	case BBool:
		return BoolType
	case BChar:
		return CharType
	case BSChar:
		return SCharType
	case BUChar:
		return UCharType
	case BShort:
		return ShortType
	case BUShort:
		return UShortType
	case BInt:
		return IntType
	case BUInt:
		return UIntType
	case BLong:
		return LongType
	case BULong:
		return ULongType
	case BLongLong:
		return LongLongType
	case BULongLong:
		return ULongLongType
	case BFloat:
		return FloatType
	case BDouble:
		return DoubleType
	case BLongDouble:
		return LongDoubleType
	default:
		return IntType
	}
}
