package parser

import (
	"strings"

	"github.com/jcorbin/cc0/internal/ir"
	"github.com/jcorbin/cc0/internal/symtab"
	"github.com/jcorbin/cc0/internal/token"
	"github.com/jcorbin/cc0/internal/types"
)

// emit appends op to the current block of the function under
// construction, per the three-address IR of spec.md §4.6.
func (p *Parser) emit(op ir.Op) {
	p.curDef.Emit(p.curBlock, op)
}

func (p *Parser) newTemp(t types.Type) ir.Var {
	sym := p.curDef.Temps.New(t)
	p.curDef.Locals = append(p.curDef.Locals, sym)
	return ir.SymRef(sym)
}

// load converts an lvalue (VSymbol/VIndirect) into an rvalue by
// emitting an OpLoad into a fresh temp, per spec.md §4.6's "lvalue to
// rvalue conversion performed at construction time". Values that are
// already rvalues (immediates, or a VSymbol produced by a prior
// computation) pass through unchanged -- isLvalue tracks which is which.
func (p *Parser) load(v ir.Var, lvalue bool) ir.Var {
	if !lvalue {
		return v
	}
	dst := p.newTemp(v.Type)
	p.emit(ir.Op{Opcode: ir.OpLoad, Dst: dst, Src1: v})
	return dst
}

// valExpr bundles an expression's IR value with whether it denotes an
// lvalue (needing a load before use as an operand) and, for lvalues,
// the location to store through for assignment.
type valExpr struct {
	v      ir.Var
	lvalue bool
}

func (p *Parser) rvalue(e valExpr) ir.Var { return p.load(e.v, e.lvalue) }

// withScratchDef runs fn with a throwaway *ir.Def installed as
// p.curDef whenever there is no enclosing function body (file-scope
// array lengths, bit-field widths, enumerator values, and initializers
// are all parsed through the same expression machinery a function
// body is, so newTemp/emit need somewhere to write even though nothing
// downstream ever reads the scratch def's blocks).
func (p *Parser) withScratchDef(fn func() ir.Var) ir.Var {
	if p.curDef != nil {
		return fn()
	}
	savedDef, savedBlock := p.curDef, p.curBlock
	scratchSym := &symtab.Symbol{Kind: symtab.KindStatic, Type: types.IntType}
	p.curDef = ir.NewDef(scratchSym, symtab.NewTempAlloc(p.strs, p.Idents))
	p.curBlock = 0
	v := fn()
	p.curDef, p.curBlock = savedDef, savedBlock
	return v
}

// constantExpression parses a conditional-expression and requires (for
// callers needing compile-time constants: array lengths, bit-field
// widths, enumerator values, case labels) that it fold to an integer
// immediate; the optimizer's algebraic pass does constant folding too,
// but these contexts need the value available immediately, so this
// evaluates eagerly.
func (p *Parser) constantExpression() ir.Var {
	v := p.withScratchDef(func() ir.Var { return p.rvalue(p.conditionalExpression()) })
	if v.Kind != ir.VImmediate {
		p.errorf("expected a constant expression")
		return ir.ImmediateInt(types.IntType, 0)
	}
	return v
}

// initializerExpression parses a file-scope initializer's scalar
// expression: unlike constantExpression, an address constant (`&x`,
// a bare array/function name) is accepted, not just an integer
// immediate, matching C's broader "constant expression" grammar for
// initializers.
func (p *Parser) initializerExpression() ir.Var {
	return p.withScratchDef(func() ir.Var { return p.rvalue(p.assignmentExpression()) })
}

func (p *Parser) expression() valExpr {
	e := p.assignmentExpression()
	for p.accept(",") {
		p.rvalue(e)
		e = p.assignmentExpression()
	}
	return e
}

var assignOps = map[string]ir.Opcode{
	"=": ir.OpNop, "+=": ir.OpAdd, "-=": ir.OpSub, "*=": ir.OpMul, "/=": ir.OpDiv,
	"%=": ir.OpMod, "&=": ir.OpAnd, "|=": ir.OpOr, "^=": ir.OpXor, "<<=": ir.OpShl, ">>=": ir.OpShr,
}

func (p *Parser) assignmentExpression() valExpr {
	lhs := p.conditionalExpression()
	if p.tok.Kind == token.Punct {
		if op, ok := assignOps[p.text(p.tok)]; ok {
			if !lhs.lvalue {
				p.errorf("left side of assignment is not assignable")
			}
			p.advance()
			rhs := p.rvalue(p.assignmentExpression())
			result := rhs
			if op != ir.OpNop {
				result = p.binOp(op, p.rvalue(lhs), rhs)
			} else {
				result = p.convertTo(rhs, lhs.v.Type)
			}
			p.emit(ir.Op{Opcode: ir.OpStore, Dst: lhs.v, Src1: result})
			return valExpr{v: result}
		}
	}
	return lhs
}

func (p *Parser) conditionalExpression() valExpr {
	cond := p.logicalOrExpression()
	if !p.accept("?") {
		return cond
	}
	cv := p.rvalue(cond)
	then := p.rvalue(p.expression())
	p.expect(":")
	els := p.rvalue(p.conditionalExpression())
	common, ca, cb := types.Convert(p.in, then.Type, els.Type)
	then = p.applyConv(then, ca, common)
	els = p.applyConv(els, cb, common)

	dst := p.newTemp(common)
	thenBlk := p.curDef.NewBlock()
	elseBlk := p.curDef.NewBlock()
	joinBlk := p.curDef.NewBlock()
	cur := p.curDef.Block(p.curBlock)
	cur.Term = cv
	cur.Then = thenBlk
	cur.Else = elseBlk

	p.curBlock = thenBlk
	p.emit(ir.Op{Opcode: ir.OpLoad, Dst: dst, Src1: then})
	p.curDef.Block(thenBlk).Then = joinBlk

	p.curBlock = elseBlk
	p.emit(ir.Op{Opcode: ir.OpLoad, Dst: dst, Src1: els})
	p.curDef.Block(elseBlk).Then = joinBlk

	p.curBlock = joinBlk
	return valExpr{v: dst}
}

func (p *Parser) logicalOrExpression() valExpr  { return p.shortCircuit("||", p.logicalAndExpression) }
func (p *Parser) logicalAndExpression() valExpr { return p.shortCircuit("&&", p.inclusiveOrExpression) }

// shortCircuit implements `a || b` / `a && b` with real control flow
// (the right operand is not evaluated unless necessary), per spec.md
// §4.6's statement translation rules extended to short-circuit operators.
func (p *Parser) shortCircuit(op string, next func() valExpr) valExpr {
	lhs := next()
	if !p.isPunct(op) {
		return lhs
	}
	dst := p.newTemp(types.IntType)
	lv := p.rvalue(lhs)
	evalBlk := p.curDef.NewBlock()
	joinBlk := p.curDef.NewBlock()
	cur := p.curDef.Block(p.curBlock)
	cur.Term = lv
	if op == "||" {
		cur.Then, cur.Else = joinBlk, evalBlk
		p.curBlock = joinBlk
		p.emit(ir.Op{Opcode: ir.OpLoad, Dst: dst, Src1: ir.ImmediateInt(types.IntType, 1)})
	} else {
		cur.Then, cur.Else = evalBlk, joinBlk
		p.curBlock = joinBlk
		p.emit(ir.Op{Opcode: ir.OpLoad, Dst: dst, Src1: ir.ImmediateInt(types.IntType, 0)})
	}
	joinAfterEval := p.curDef.NewBlock()
	p.curDef.Block(joinBlk).Then = joinAfterEval

	p.curBlock = evalBlk
	for p.accept(op) {
		lhs = next()
	}
	rv := p.rvalue(lhs)
	ne := ir.Var{}
	_ = ne
	dst2 := p.newTemp(types.IntType)
	p.emit(ir.Op{Opcode: ir.OpNe, Dst: dst2, Src1: rv, Src2: ir.ImmediateInt(rv.Type, 0)})
	p.emit(ir.Op{Opcode: ir.OpLoad, Dst: dst, Src1: dst2})
	p.curDef.Block(evalBlk).Then = joinAfterEval

	p.curBlock = joinAfterEval
	return valExpr{v: dst}
}

func (p *Parser) inclusiveOrExpression() valExpr {
	return p.binLevel([]string{"|"}, p.exclusiveOrExpression)
}
func (p *Parser) exclusiveOrExpression() valExpr { return p.binLevel([]string{"^"}, p.andExpression) }
func (p *Parser) andExpression() valExpr         { return p.binLevel([]string{"&"}, p.equalityExpression) }
func (p *Parser) equalityExpression() valExpr {
	return p.binLevel([]string{"==", "!="}, p.relationalExpression)
}
func (p *Parser) relationalExpression() valExpr {
	return p.binLevel([]string{"<", ">", "<=", ">="}, p.shiftExpression)
}
func (p *Parser) shiftExpression() valExpr {
	return p.binLevel([]string{"<<", ">>"}, p.additiveExpression)
}
func (p *Parser) additiveExpression() valExpr {
	return p.binLevel([]string{"+", "-"}, p.multiplicativeExpression)
}
func (p *Parser) multiplicativeExpression() valExpr {
	return p.binLevel([]string{"*", "/", "%"}, p.castExpression)
}

var punctOpcode = map[string]ir.Opcode{
	"|": ir.OpOr, "^": ir.OpXor, "&": ir.OpAnd,
	"==": ir.OpEq, "!=": ir.OpNe, "<": ir.OpLt, ">": ir.OpGt, "<=": ir.OpLe, ">=": ir.OpGe,
	"<<": ir.OpShl, ">>": ir.OpShr, "+": ir.OpAdd, "-": ir.OpSub,
	"*": ir.OpMul, "/": ir.OpDiv, "%": ir.OpMod,
}

// binLevel parses one precedence level of left-associative binary
// operators drawn from ops, per spec.md §4.6's expression grammar.
func (p *Parser) binLevel(ops []string, next func() valExpr) valExpr {
	lhs := next()
	for {
		matched := ""
		for _, o := range ops {
			if p.isPunct(o) {
				matched = o
				break
			}
		}
		if matched == "" {
			return lhs
		}
		p.advance()
		l := p.rvalue(lhs)
		r := p.rvalue(next())
		lhs = valExpr{v: p.binOp(punctOpcode[matched], l, r)}
	}
}

// binOp applies the usual arithmetic conversions and emits a single
// binary op, per spec.md §4.4/§4.6. Two integer immediates under + - *
// & | ^ fold to an immediate instead, with no op emitted; other
// operators are not folded.
func (p *Parser) binOp(op ir.Opcode, l, r ir.Var) ir.Var {
	if op == ir.OpAdd || op == ir.OpSub {
		if types.IsPointer(l.Type) && types.IsInteger(r.Type) {
			return p.pointerArith(op, l, r)
		}
		if op == ir.OpAdd && types.IsPointer(r.Type) && types.IsInteger(l.Type) {
			return p.pointerArith(op, r, l)
		}
	}
	common, cl, cr := types.Convert(p.in, l.Type, r.Type)
	l = p.applyConv(l, cl, common)
	r = p.applyConv(r, cr, common)
	resultType := common
	switch op {
	case ir.OpEq, ir.OpNe, ir.OpLt, ir.OpLe, ir.OpGt, ir.OpGe:
		resultType = types.IntType
	}
	if l.IsImmediate() && r.IsImmediate() && types.IsInteger(l.Type) && types.IsInteger(r.Type) {
		a, b := l.ImmInt, r.ImmInt
		folded := map[ir.Opcode]int64{ir.OpAdd: a + b, ir.OpSub: a - b, ir.OpMul: a * b, ir.OpAnd: a & b, ir.OpOr: a | b, ir.OpXor: a ^ b}
		if v, ok := folded[op]; ok {
			if sh := 64 - 8*uint(resultType.Size()); sh > 0 && sh < 64 { // wrap to the result width
				if bt, _ := types.Unqualify(resultType).(*types.Basic); bt != nil && bt.IsUnsigned() {
					v = int64(uint64(v<<sh) >> sh)
				} else {
					v = v << sh >> sh
				}
			}
			return ir.ImmediateInt(resultType, v)
		}
	}
	dst := p.newTemp(resultType)
	p.emit(ir.Op{Opcode: op, Dst: dst, Src1: l, Src2: r})
	return dst
}

// pointerArith scales an integer operand by the pointee size for `ptr
// +/- int`, per spec.md §4.4's pointer arithmetic rules.
func (p *Parser) pointerArith(op ir.Opcode, ptr, n ir.Var) ir.Var {
	elemSize := types.PointeeSize(ptr.Type)
	scaled := n
	if elemSize != 1 {
		scaled = p.newTemp(n.Type)
		p.emit(ir.Op{Opcode: ir.OpMul, Dst: scaled, Src1: n, Src2: ir.ImmediateInt(n.Type, elemSize)})
	}
	dst := p.newTemp(ptr.Type)
	p.emit(ir.Op{Opcode: op, Dst: dst, Src1: ptr, Src2: scaled})
	return dst
}

// applyConv emits the conversion op (if any) needed to bring v to to.
func (p *Parser) applyConv(v ir.Var, cv types.ConvOp, to types.Type) ir.Var {
	if cv == types.ConvNone {
		return v
	}
	dst := p.newTemp(to)
	p.emit(ir.Op{Opcode: ir.OpConv, Dst: dst, Src1: v, ConvOp: cv})
	return dst
}

func (p *Parser) convertTo(v ir.Var, to types.Type) ir.Var {
	_, _, cv := types.Convert(p.in, to, v.Type)
	return p.applyConv(v, cv, to)
}

func (p *Parser) castExpression() valExpr {
	if p.isPunct("(") && p.startsTypeName(p.peek2()) {
		p.advance()
		t := p.typeName()
		p.expect(")")
		if p.isPunct("{") {
			return p.compoundLiteral(t)
		}
		v := p.rvalue(p.castExpression())
		return valExpr{v: p.convertTo(v, t)}
	}
	return p.unaryExpression()
}

// startsTypeName reports whether tok can begin a type-name, used to
// disambiguate `(type)expr` casts from parenthesized expressions.
func (p *Parser) startsTypeName(tok token.Token) bool {
	if tok.Kind == token.Keyword {
		s := p.strs.Text(tok.Lit)
		return isBasicTypeKeyword(s) || s == "struct" || s == "union" || s == "enum" ||
			s == "const" || s == "volatile" || s == "restrict"
	}
	if tok.Kind == token.Ident {
		return p.isTypedefName(tok.Lit)
	}
	return false
}

// typeName parses a type-name (declaration-specifiers abstract-declarator?).
func (p *Parser) typeName() types.Type {
	spec, ok := p.declarationSpecifiers()
	if !ok {
		p.errorf("expected a type name")
		return types.IntType
	}
	_, t := p.declarator(spec.typ)
	return t
}

// compoundLiteral handles `(T){ ... }`; values are not tracked field
// by field (no aggregate locals are modeled beyond their address), so
// this allocates a fresh temp of the given type as a stand-in address.
func (p *Parser) compoundLiteral(t types.Type) valExpr {
	p.skipBalanced("{", "}")
	dst := p.newTemp(p.in.Pointer(t))
	p.emit(ir.Op{Opcode: ir.OpAlloca, Dst: dst})
	return valExpr{v: dst}
}

func (p *Parser) skipBalanced(open, close string) {
	p.expect(open)
	depth := 1
	for depth > 0 && p.tok.Kind != token.EOF {
		if p.isPunct(open) {
			depth++
		} else if p.isPunct(close) {
			depth--
			if depth == 0 {
				p.advance()
				return
			}
		}
		p.advance()
	}
}

var unaryOpcode = map[string]ir.Opcode{"-": ir.OpNeg, "~": ir.OpNot, "!": ir.OpLNot}

func (p *Parser) unaryExpression() valExpr {
	switch {
	case p.accept("++"), p.accept("--"):
		// prefix inc/dec: desugar to compound assignment by 1.
		e := p.unaryExpression()
		v := p.rvalue(e)
		one := ir.ImmediateInt(v.Type, 1)
		op := ir.OpAdd
		result := p.binOp(op, v, one)
		if e.lvalue {
			p.emit(ir.Op{Opcode: ir.OpStore, Dst: e.v, Src1: result})
		}
		return valExpr{v: result}
	case p.accept("&"):
		e := p.castExpression()
		if !e.lvalue || e.v.Sym == nil {
			p.errorf("cannot take the address of this expression")
			return valExpr{v: ir.ImmediateInt(types.IntType, 0)}
		}
		dst := p.newTemp(p.in.Pointer(e.v.Type))
		p.emit(ir.Op{Opcode: ir.OpAddrOf, Dst: dst, Src1: e.v})
		return valExpr{v: dst}
	case p.accept("*"):
		e := p.rvalue(p.castExpression())
		if !types.IsPointer(e.Type) {
			p.errorf("indirection requires a pointer operand")
			return valExpr{v: ir.ImmediateInt(types.IntType, 0)}
		}
		elemType := e.Type.(*types.Pointer).Elem
		dst := p.newTemp(elemType)
		p.emit(ir.Op{Opcode: ir.OpDeref, Dst: dst, Src1: e})
		return valExpr{v: dst, lvalue: true}
	case p.tok.Kind == token.Punct && (p.text(p.tok) == "-" || p.text(p.tok) == "~" || p.text(p.tok) == "!"):
		opStr := p.text(p.tok)
		p.advance()
		v := p.rvalue(p.castExpression())
		resultType := v.Type
		if opStr == "!" {
			resultType = types.IntType
		}
		dst := p.newTemp(resultType)
		p.emit(ir.Op{Opcode: unaryOpcode[opStr], Dst: dst, Src1: v})
		return valExpr{v: dst}
	case p.accept("+"):
		return p.castExpression()
	case p.isKeyword("sizeof"):
		return p.sizeofExpression()
	default:
		return p.postfixExpression()
	}
}

func (p *Parser) sizeofExpression() valExpr {
	p.advance()
	var t types.Type
	if p.isPunct("(") && p.startsTypeName(p.peek2()) {
		p.advance()
		t = p.typeName()
		p.expect(")")
	} else {
		e := p.unaryExpression()
		t = e.v.Type
	}
	return valExpr{v: ir.ImmediateInt(types.SizeType, t.Size())}
}

func (p *Parser) postfixExpression() valExpr {
	e := p.primaryExpression()
	for {
		switch {
		case p.accept("["):
			idx := p.rvalue(p.expression())
			p.expect("]")
			base := p.rvalue(e)
			ptr := p.arrayDecayOrSelf(base)
			addr := p.pointerArith(ir.OpAdd, ptr, idx)
			elemType := addr.Type.(*types.Pointer).Elem
			dst := p.newTemp(elemType)
			p.emit(ir.Op{Opcode: ir.OpDeref, Dst: dst, Src1: addr})
			e = valExpr{v: dst, lvalue: true}
		case p.accept("("):
			e = p.callExpression(e)
		case p.accept("."):
			e = p.memberAccess(e, false)
		case p.isPunct("->"):
			p.advance()
			e = p.memberAccess(e, true)
		case p.accept("++"):
			v := p.rvalue(e)
			one := ir.ImmediateInt(v.Type, 1)
			p.binOpStoreBack(e, ir.OpAdd, one)
			e = valExpr{v: v}
		case p.accept("--"):
			v := p.rvalue(e)
			one := ir.ImmediateInt(v.Type, 1)
			p.binOpStoreBack(e, ir.OpSub, one)
			e = valExpr{v: v}
		default:
			return e
		}
	}
}

func (p *Parser) binOpStoreBack(e valExpr, op ir.Opcode, operand ir.Var) {
	if !e.lvalue {
		return
	}
	v := p.rvalue(e)
	result := p.binOp(op, v, operand)
	p.emit(ir.Op{Opcode: ir.OpStore, Dst: e.v, Src1: result})
}

func (p *Parser) arrayDecayOrSelf(v ir.Var) ir.Var {
	if arr, ok := v.Type.(*types.Array); ok {
		dst := p.newTemp(p.in.Pointer(arr.Elem))
		if v.Sym != nil {
			p.emit(ir.Op{Opcode: ir.OpAddrOf, Dst: dst, Src1: v})
		}
		return dst
	}
	return v
}

func (p *Parser) callExpression(callee valExpr) valExpr {
	var args []ir.Var
	if !p.isPunct(")") {
		for {
			args = append(args, p.rvalue(p.assignmentExpression()))
			if !p.accept(",") {
				break
			}
		}
	}
	p.expect(")")
	ft, _ := underlyingFunc(callee.v.Type)
	retType := types.Type(types.IntType)
	if ft != nil {
		retType = ft.Ret
	}
	for _, a := range args {
		p.emit(ir.Op{Opcode: ir.OpParam, Src1: a})
	}
	dst := ir.Void
	if retType.Kind() != types.KVoid {
		dst = p.newTemp(retType)
	}
	op := ir.Op{Opcode: ir.OpCall, Dst: dst, Src1: callee.v, Extra: args}
	if callee.v.Sym != nil {
		op.Callee = callee.v.Sym
	}
	p.emit(op)
	return valExpr{v: dst}
}

func underlyingFunc(t types.Type) (*types.Func, bool) {
	switch tt := t.(type) {
	case *types.Func:
		return tt, true
	case *types.Pointer:
		if ft, ok := tt.Elem.(*types.Func); ok {
			return ft, true
		}
	}
	return nil, false
}

func (p *Parser) memberAccess(e valExpr, arrow bool) valExpr {
	if p.tok.Kind != token.Ident {
		p.errorf("expected a member name")
		return e
	}
	name := p.text(p.tok)
	p.advance()

	base := e.v
	rt, ok := recordOf(base.Type, arrow)
	if !ok {
		p.errorf("member reference requires a struct or union")
		return e
	}
	m := rt.Field(name)
	if m == nil {
		p.errorf("no member named %q", name)
		return e
	}
	var addr ir.Var
	if arrow {
		addr = p.rvalue(e)
	} else {
		if !e.lvalue || e.v.Sym == nil {
			p.errorf("member access requires an addressable struct or union")
			return e
		}
		tmp := p.newTemp(p.in.Pointer(e.v.Type))
		p.emit(ir.Op{Opcode: ir.OpAddrOf, Dst: tmp, Src1: e.v})
		addr = tmp
	}
	dst := p.newTemp(m.Type)
	p.emit(ir.Op{Opcode: ir.OpDeref, Dst: dst, Src1: addr, Extra: []ir.Var{{Kind: ir.VImmediate, Type: types.SizeType, ImmInt: m.Offset}}})
	return valExpr{v: dst, lvalue: true}
}

func recordOf(t types.Type, arrow bool) (*types.Record, bool) {
	if arrow {
		if ptr, ok := t.(*types.Pointer); ok {
			t = ptr.Elem
		} else {
			return nil, false
		}
	}
	rt, ok := types.Unqualify(t).(*types.Record)
	return rt, ok
}

func (p *Parser) primaryExpression() valExpr {
	switch {
	case p.tok.Kind == token.IntLit:
		v := ir.ImmediateInt(p.intLitType(), p.tok.Val.Int)
		p.advance()
		return valExpr{v: v}
	case p.tok.Kind == token.FloatLit:
		t := types.Type(types.DoubleType)
		if !p.tok.Val.IsDouble {
			t = types.FloatType
		}
		v := ir.ImmediateFloat(t, p.tok.Val.Float)
		p.advance()
		return valExpr{v: v}
	case p.tok.Kind == token.CharLit:
		v := ir.ImmediateInt(types.CharType, p.tok.Val.Int)
		p.advance()
		return valExpr{v: v}
	case p.tok.Kind == token.StringLit:
		id := p.tok.Lit
		arrType := p.in.Array(types.CharType, int64(len(p.strs.Text(id)))+1, true)
		v := ir.StringRef(id, arrType)
		p.advance()
		return valExpr{v: v}
	case p.tok.Kind == token.Ident:
		name := p.tok.Lit
		at := p.tok
		p.advance()
		sym := p.Idents.Lookup(name)
		if sym == nil {
			p.errorf("use of undeclared identifier %q", p.strs.Text(name))
			return valExpr{v: ir.ImmediateInt(types.IntType, 0)}
		}
		sym.Referenced = true
		_ = at
		if sym.Kind == symtab.KindEnumConst {
			return valExpr{v: ir.ImmediateInt(sym.Type, sym.Slot.(int64))}
		}
		if _, isFunc := sym.Type.(*types.Func); isFunc {
			return valExpr{v: ir.SymRef(sym)}
		}
		return valExpr{v: ir.SymRef(sym), lvalue: true}
	case p.accept("("):
		e := p.expression()
		p.expect(")")
		return e
	default:
		p.errorf("expected an expression")
		p.advance()
		return valExpr{v: ir.ImmediateInt(types.IntType, 0)}
	}
}

// intLitType picks the type of the current integer-literal token: the
// first type in the dialect's candidate list that represents the
// value. C89 admits the unsigned type at each width for hex/octal
// spellings, so 0x80000000 is an unsigned int there; C99 and later
// prefer the next wider signed type, making the same literal a long.
func (p *Parser) intLitType() types.Type {
	val := p.tok.Val
	u := uint64(val.Int)
	spelling := p.strs.Text(p.tok.Lit)
	hexOrOctal := len(spelling) > 1 && spelling[0] == '0'
	longSuffix := strings.ContainsAny(spelling, "lL")

	var t types.Type
	switch {
	case val.Unsigned:
		if u <= 0xffffffff {
			t = types.UIntType
		} else {
			t = types.ULongType
		}
	case u <= 0x7fffffff:
		t = types.IntType
	case p.std == C89 && hexOrOctal && u <= 0xffffffff:
		t = types.UIntType
	case u <= 0x7fffffffffffffff:
		t = types.LongType
	default:
		t = types.ULongType
	}
	if longSuffix {
		switch t {
		case types.IntType:
			t = types.LongType
		case types.UIntType:
			t = types.ULongType
		}
	}
	return t
}
