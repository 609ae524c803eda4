package types

// ConvOp names the conversion, if any, the evaluator must emit to take
// an operand of one type to another, per spec.md §4.4's usual
// arithmetic conversions.
type ConvOp int

// Conversion opcodes, consumed by the IR constructor (internal/ir) when
// building a widen/narrow/signed-unsigned/int-float conversion op.
const (
	ConvNone ConvOp = iota
	ConvIntWiden
	ConvIntNarrow
	ConvIntSignedness
	ConvIntToFloat
	ConvFloatToInt
	ConvFloatWiden
	ConvFloatNarrow
	ConvPointer // array/function decay, or pointer<->integer per explicit cast
)

// IsArith reports whether t (after stripping qualifiers) is an
// arithmetic type (any Basic other than void).
func IsArith(t Type) bool {
	b, ok := Unqualify(t).(*Basic)
	return ok && b.BKind != BVoid
}

// IsInteger reports whether t is an integer arithmetic type.
func IsInteger(t Type) bool {
	b, ok := Unqualify(t).(*Basic)
	return ok && b.IsInteger()
}

// IsFloat reports whether t is a floating arithmetic type.
func IsFloat(t Type) bool {
	b, ok := Unqualify(t).(*Basic)
	return ok && b.IsFloat()
}

// IsPointer reports whether t (after stripping qualifiers) is a pointer.
func IsPointer(t Type) bool {
	_, ok := Unqualify(t).(*Pointer)
	return ok
}

// PointeeSize returns the element size pointer arithmetic on t scales
// by, per spec.md §4.4 ("pointer arithmetic scales the integer operand
// by the pointee size"). Pointer-to-void is treated as size 1, the
// common (GNU) extension the rest of the pack's C-shaped code assumes.
func PointeeSize(t Type) int64 {
	p, ok := Unqualify(t).(*Pointer)
	if !ok {
		return 1
	}
	if sz := p.Elem.Size(); sz > 0 {
		return sz
	}
	return 1
}

// IntPromote implements integer promotion (spec.md §4.4): every
// integer type narrower than int promotes to int (or unsigned int, if
// int cannot represent all its values); int and wider are unchanged.
func IntPromote(in *Interner, t Type) Type {
	b, ok := Unqualify(t).(*Basic)
	if !ok || !b.IsInteger() {
		return t
	}
	if intRank[b.BKind] < intRank[BInt] {
		return IntType
	}
	return t
}

// Decay implements array-to-pointer and function-to-pointer decay
// (spec.md §4.4), returning t unchanged for any other type.
func Decay(in *Interner, t Type) Type {
	switch u := Unqualify(t).(type) {
	case *Array:
		return in.Pointer(u.Elem)
	case *Func:
		return in.Pointer(t)
	default:
		return t
	}
}

// Convert computes the common type of two arithmetic operand types
// under the usual arithmetic conversions (spec.md §4.4), plus the
// per-side conversion opcode required to reach it. Both inputs must
// already be array/function-decayed and IsArith; callers handle
// pointer arithmetic (spec.md's separate "pointer arithmetic scales by
// pointee size" rule) themselves via PointeeSize.
func Convert(in *Interner, a, b Type) (common Type, ca, cb ConvOp) {
	pa, pb := IntPromote(in, a), IntPromote(in, b)
	ba, aok := Unqualify(pa).(*Basic)
	bb, bok := Unqualify(pb).(*Basic)
	if !aok || !bok {
		return pa, ConvNone, ConvNone
	}

	// float rank beats any integer rank.
	if ba.IsFloat() || bb.IsFloat() {
		return convertFloat(ba, bb, pa, pb, a, b)
	}

	ra, rb := intRank[ba.BKind], intRank[bb.BKind]
	switch {
	case ba.BKind == bb.BKind:
		return pa, convOpFor(a, pa), convOpFor(b, pb)
	case ra == rb:
		// same rank, different signedness: the unsigned one wins.
		if ba.IsUnsigned() {
			return pa, convOpFor(a, pa), ConvIntSignedness
		}
		return pb, ConvIntSignedness, convOpFor(b, pb)
	case ra > rb:
		return convertRankWinner(in, ba, bb, pa, a, b)
	default:
		common, cb2, ca2 := convertRankWinner(in, bb, ba, pb, b, a)
		return common, ca2, cb2
	}
}

// convertRankWinner handles the case where `winner` (basic kind wBK,
// already-promoted type winnerT) outranks `loser`; it returns the
// common type and the conversion ops for (a-side, b-side) assuming
// a's type is winnerT's original and b's is loser's original -- see
// call sites for the exact argument order.
func convertRankWinner(in *Interner, winner, loser *Basic, winnerT, origWinner, origLoser Type) (common Type, cWinnerSide, cLoserSide ConvOp) {
	if winner.IsUnsigned() || !loser.IsUnsigned() {
		return winnerT, convOpFor(origWinner, winnerT), ConvIntWiden
	}
	// winner is signed, loser is unsigned of lower rank: if winner's
	// type can represent every value of loser's (it is wider), convert
	// to signed winner; otherwise (long long vs unsigned long on this
	// target) both go to the unsigned type of winner's rank.
	if winner.Size() <= loser.Size() {
		u := BasicOf(winner.BKind + 1)
		return u, convOpFor(origWinner, u), convOpFor(origLoser, u)
	}
	return winnerT, convOpFor(origWinner, winnerT), ConvIntWiden
}

func convertFloat(ba, bb *Basic, pa, pb, origA, origB Type) (common Type, ca, cb ConvOp) {
	rank := func(k BasicKind) int {
		switch k {
		case BFloat:
			return 0
		case BDouble:
			return 1
		case BLongDouble:
			return 2
		default:
			return -1 // integer kind, ranks below any float
		}
	}
	ra, rbv := rank(ba.BKind), rank(bb.BKind)
	var winner Type
	switch {
	case ra >= 0 && (rbv < 0 || ra >= rbv):
		winner = pa
	default:
		winner = pb
	}
	ca = convFloatOp(origA, winner)
	cb = convFloatOp(origB, winner)
	return winner, ca, cb
}

func convFloatOp(from, to Type) ConvOp {
	if from == to {
		return ConvNone
	}
	if IsInteger(from) {
		return ConvIntToFloat
	}
	fb, _ := Unqualify(from).(*Basic)
	tb, _ := Unqualify(to).(*Basic)
	if fb == nil || tb == nil || fb.BKind == tb.BKind {
		return ConvNone
	}
	if fb.Size() < tb.Size() {
		return ConvFloatWiden
	}
	return ConvFloatNarrow
}

func convOpFor(from, to Type) ConvOp {
	if from == to {
		return ConvNone
	}
	fb, fok := Unqualify(from).(*Basic)
	tb, tok := Unqualify(to).(*Basic)
	if !fok || !tok {
		return ConvNone
	}
	if fb.IsFloat() != tb.IsFloat() {
		if tb.IsFloat() {
			return ConvIntToFloat
		}
		return ConvFloatToInt
	}
	if fb.IsFloat() {
		if fb.Size() < tb.Size() {
			return ConvFloatWiden
		}
		return ConvFloatNarrow
	}
	if fb.Size() < tb.Size() {
		return ConvIntWiden
	}
	if fb.Size() > tb.Size() {
		return ConvIntNarrow
	}
	if fb.IsUnsigned() != tb.IsUnsigned() {
		return ConvIntSignedness
	}
	return ConvNone
}

// Compatible reports whether a and b are the same C type, per spec.md
// §4.4's structural-but-handle-compared equality: once both are
// obtained from the same Interner (basic types always are, via the
// package singletons), this is pointer equality.
func Compatible(a, b Type) bool { return a == b }
