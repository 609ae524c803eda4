package parser

import (
	"github.com/jcorbin/cc0/internal/diag"
	"github.com/jcorbin/cc0/internal/ir"
	"github.com/jcorbin/cc0/internal/strtab"
	"github.com/jcorbin/cc0/internal/symtab"
	"github.com/jcorbin/cc0/internal/token"
	"github.com/jcorbin/cc0/internal/types"
)

// functionDefinition parses a function body and appends the completed
// ir.Def to p.defs, per spec.md §4.6's "per external definition".
func (p *Parser) functionDefinition(name strtab.ID, declType types.Type, spec declSpec) {
	ft, ok := declType.(*types.Func)
	if !ok {
		p.errorf("%q is not declared as a function", p.strs.Text(name))
		ft = &types.Func{Ret: types.IntType}
	}

	fsym := p.declareObjectOrFunc(name, declType, spec, &ir.Void)

	temps := symtab.NewTempAlloc(p.strs, p.Idents)
	def := ir.NewDef(fsym, temps)

	prevDef, prevBlock := p.curDef, p.curBlock
	prevLabels, prevGotos, prevLabelBlocks := p.Labels, p.pendingGotos, p.labelBlocks
	p.curDef, p.curBlock = def, 0
	p.Labels = symtab.NewNamespace()
	p.pendingGotos = nil
	p.labelBlocks = map[strtab.ID]int{}

	p.Idents.PushScope()
	names := p.lastParamNames
	p.lastParamNames = nil
	for i, pt := range ft.Params {
		var pname strtab.ID
		if i < len(names) {
			pname = names[i]
		}
		psym := &symtab.Symbol{Name: pname, AsmName: pname, Type: pt, Kind: symtab.KindParam, Defined: true}
		p.Idents.Add(psym)
		def.Locals = append(def.Locals, psym)
	}

	// __func__ is an implicit static array of the function's name,
	// visible throughout the body.
	fname := p.strs.Text(name)
	fnID := p.strs.Intern("__func__")
	funcSym := &symtab.Symbol{
		Name: fnID, AsmName: fnID,
		Type:    p.in.Array(types.CharType, int64(len(fname)+1), true),
		Kind:    symtab.KindStatic,
		Linkage: symtab.LinkInternal,
		Defined: true,
	}
	p.Idents.Add(funcSym)

	p.compoundStatement()
	p.resolveGotos()

	if last := def.Block(p.curBlock); last != nil && last.Then < 0 && !last.Conditional() {
		// implicit `return;` at the end of a function falling off its body.
		ret := ir.Void
		if ft.Ret.Kind() != types.KVoid {
			ret = ir.ImmediateInt(ft.Ret, 0)
		}
		last.Term = ret
	}

	p.Idents.PopScope()
	p.defs = append(p.defs, def)

	p.curDef, p.curBlock = prevDef, prevBlock
	p.Labels, p.pendingGotos, p.labelBlocks = prevLabels, prevGotos, prevLabelBlocks
}

// resolveGotos binds every forward (and backward) goto recorded during
// the function body to its label's block, reporting an error for any
// label that was never defined, per spec.md §4.6.
func (p *Parser) resolveGotos() {
	for _, g := range p.pendingGotos {
		target, ok := p.labelBlocks[g.label]
		if !ok {
			p.diag.Reportf(diag.Error, g.at.Pos, "use of undeclared label %q", p.strs.Text(g.label))
			continue
		}
		b := p.curDef.Block(g.block)
		if b.Conditional() {
			b.Else = target
		} else {
			b.Then = target
		}
	}
}

// compoundStatement parses `{ (declaration|statement)* }`, opening a
// new block scope, per spec.md §4.6.
func (p *Parser) compoundStatement() {
	p.expect("{")
	p.Idents.PushScope()
	p.Tags.PushScope()
	for !p.isPunct("}") && p.tok.Kind != token.EOF {
		p.blockItem()
	}
	p.Tags.PopScope()
	p.Idents.PopScope()
	p.expect("}")
}

func (p *Parser) blockItem() {
	if p.startsDeclaration() {
		p.declarationStatement()
		return
	}
	p.statement()
}

// startsDeclaration reports whether the current token can begin a
// declaration, so statement() can dispatch C99-style declarations
// interleaved with statements (spec.md §8/§11).
func (p *Parser) startsDeclaration() bool {
	switch {
	case p.isKeyword("typedef"), p.isKeyword("extern"), p.isKeyword("static"),
		p.isKeyword("auto"), p.isKeyword("register"), p.isKeyword("const"),
		p.isKeyword("volatile"), p.isKeyword("restrict"), p.isKeyword("inline"),
		p.isKeyword("struct"), p.isKeyword("union"), p.isKeyword("enum"):
		return true
	case p.tok.Kind == token.Keyword && isBasicTypeKeyword(p.text(p.tok)):
		return true
	case p.tok.Kind == token.Ident:
		return p.isTypedefName(p.tok.Lit)
	default:
		return false
	}
}

func (p *Parser) declarationStatement() {
	spec, ok := p.declarationSpecifiers()
	if !ok {
		p.errorf("expected a declaration")
		p.syncToStatement()
		return
	}
	if p.accept(";") {
		return
	}
	for {
		name, declType := p.declarator(spec.typ)
		if name == 0 {
			p.errorf("expected a declarator name")
			break
		}
		if spec.storage == symtab.StorageTypedef {
			p.defineTypedef(name, declType)
		} else {
			var initVal *ir.Var
			var iv ir.Var
			if p.accept("=") {
				rhs := p.rvalue(p.assignmentExpression())
				iv = p.convertTo(rhs, declType)
				initVal = &iv
			}
			sym := p.declareLocal(name, declType, spec)
			if initVal != nil {
				p.emit(ir.Op{Opcode: ir.OpStore, Dst: ir.SymRef(sym), Src1: *initVal})
				sym.Defined = true
			}
		}
		if !p.accept(",") {
			break
		}
	}
	p.expect(";")
}

func (p *Parser) declareLocal(name strtab.ID, declType types.Type, spec declSpec) *symtab.Symbol {
	kind := symtab.KindAuto
	linkage := symtab.LinkNone
	if spec.storage == symtab.StorageStatic {
		kind, linkage = symtab.KindStatic, symtab.LinkInternal
	} else if spec.storage == symtab.StorageExtern {
		kind, linkage = symtab.KindExtern, symtab.LinkExternal
	}
	sym := &symtab.Symbol{Name: name, AsmName: name, Type: declType, Kind: kind, Storage: spec.storage, Linkage: linkage}
	p.Idents.Add(sym)
	p.curDef.Locals = append(p.curDef.Locals, sym)
	return sym
}

// statement parses one statement, per spec.md §4.6's statement
// translation rules (building the CFG a block at a time).
func (p *Parser) statement() {
	if p.checkAbort() {
		p.syncToStatement()
		return
	}
	switch {
	case p.isPunct("{"):
		p.compoundStatement()
	case p.isKeyword("if"):
		p.ifStatement()
	case p.isKeyword("while"):
		p.whileStatement()
	case p.isKeyword("do"):
		p.doStatement()
	case p.isKeyword("for"):
		p.forStatement()
	case p.isKeyword("switch"):
		p.switchStatement()
	case p.isKeyword("break"):
		p.advance()
		p.expect(";")
		p.breakStatement()
	case p.isKeyword("continue"):
		p.advance()
		p.expect(";")
		p.continueStatement()
	case p.isKeyword("return"):
		p.returnStatement()
	case p.isKeyword("goto"):
		p.gotoStatement()
	case p.isKeyword("case"):
		p.caseStatement()
	case p.isKeyword("default"):
		p.defaultStatement()
	case p.tok.Kind == token.Ident && p.peek2().Kind == token.Punct && p.strs.Text(p.peek2().Lit) == ":":
		p.labeledStatement()
	case p.accept(";"):
		// empty statement
	default:
		p.rvalue(p.expression())
		p.expect(";")
	}
}

func (p *Parser) newBlock() int { return p.curDef.NewBlock() }

func (p *Parser) gotoBlock(target int) {
	cur := p.curDef.Block(p.curBlock)
	if cur.Then < 0 && !cur.Conditional() {
		cur.Then = target
	}
}

func (p *Parser) ifStatement() {
	p.advance()
	p.expect("(")
	cond := p.rvalue(p.expression())
	p.expect(")")

	thenBlk, elseBlk, joinBlk := p.newBlock(), p.newBlock(), -1
	cur := p.curDef.Block(p.curBlock)
	cur.Term = cond
	cur.Then, cur.Else = thenBlk, elseBlk

	p.curBlock = thenBlk
	p.statement()
	joinBlk = p.newBlock()
	p.gotoBlock(joinBlk)

	p.curBlock = elseBlk
	if p.accept("else") {
		p.statement()
	}
	p.gotoBlock(joinBlk)

	p.curBlock = joinBlk
}

func (p *Parser) whileStatement() {
	p.advance()
	p.expect("(")
	headBlk := p.newBlock()
	p.gotoBlock(headBlk)
	p.curBlock = headBlk
	cond := p.rvalue(p.expression())
	p.expect(")")

	bodyBlk, afterBlk := p.newBlock(), p.newBlock()
	p.curDef.Block(headBlk).Term = cond
	p.curDef.Block(headBlk).Then, p.curDef.Block(headBlk).Else = bodyBlk, afterBlk

	p.pushLoop(headBlk, afterBlk)
	p.curBlock = bodyBlk
	p.statement()
	p.gotoBlock(headBlk)
	p.popLoop()

	p.curBlock = afterBlk
}

func (p *Parser) pushLoop(continueTarget, breakTarget int) {
	p.loops = append(p.loops, loopCtx{continueTarget: continueTarget, breakTarget: breakTarget})
	p.continueStack = append(p.continueStack, continueTarget)
	p.breakStack = append(p.breakStack, breakTarget)
}

func (p *Parser) popLoop() {
	p.loops = p.loops[:len(p.loops)-1]
	p.continueStack = p.continueStack[:len(p.continueStack)-1]
	p.breakStack = p.breakStack[:len(p.breakStack)-1]
}

func (p *Parser) doStatement() {
	p.advance()
	bodyBlk := p.newBlock()
	p.gotoBlock(bodyBlk)

	// condBlk and afterBlk are allocated up front (though not yet
	// wired) so the body can push real continue/break targets despite
	// the condition being parsed after the body.
	condBlk := p.newBlock()
	afterBlk := p.newBlock()

	p.pushLoop(condBlk, afterBlk)
	p.curBlock = bodyBlk
	p.statement()
	p.gotoBlock(condBlk)
	p.popLoop()

	p.curBlock = condBlk
	p.expect("while")
	p.expect("(")
	cond := p.rvalue(p.expression())
	p.expect(")")
	p.expect(";")

	p.curDef.Block(condBlk).Term = cond
	p.curDef.Block(condBlk).Then, p.curDef.Block(condBlk).Else = bodyBlk, afterBlk

	p.curBlock = afterBlk
}

func (p *Parser) forStatement() {
	p.advance()
	p.expect("(")
	p.Idents.PushScope()
	if p.startsDeclaration() {
		p.declarationStatement()
	} else if !p.accept(";") {
		p.rvalue(p.expression())
		p.expect(";")
	}

	headBlk := p.newBlock()
	p.gotoBlock(headBlk)
	p.curBlock = headBlk
	var cond ir.Var
	hasCond := !p.isPunct(";")
	if hasCond {
		cond = p.rvalue(p.expression())
	}
	p.expect(";")

	postStart := -1
	if !p.isPunct(")") {
		postStart = p.newBlock()
		saveBlock := p.curBlock
		p.curBlock = postStart
		p.rvalue(p.expression())
		p.gotoBlock(headBlk)
		p.curBlock = saveBlock
	}
	p.expect(")")

	bodyBlk, afterBlk := p.newBlock(), p.newBlock()
	headB := p.curDef.Block(headBlk)
	if hasCond {
		headB.Term = cond
		headB.Then, headB.Else = bodyBlk, afterBlk
	} else {
		headB.Then = bodyBlk
	}

	continueTarget := headBlk
	if postStart >= 0 {
		continueTarget = postStart
	}
	p.pushLoop(continueTarget, afterBlk)
	p.curBlock = bodyBlk
	p.statement()
	p.gotoBlock(continueTarget)
	p.popLoop()

	p.Idents.PopScope()
	p.curBlock = afterBlk
}

func (p *Parser) breakStatement() {
	if len(p.breakStack) == 0 {
		p.errorf("break statement not within a loop or switch")
		return
	}
	p.gotoBlock(p.breakStack[len(p.breakStack)-1])
	p.curBlock = p.newBlock() // unreachable tail, kept so parsing can continue
}

func (p *Parser) continueStatement() {
	if len(p.continueStack) == 0 {
		p.errorf("continue statement not within a loop")
		return
	}
	p.gotoBlock(p.continueStack[len(p.continueStack)-1])
	p.curBlock = p.newBlock()
}

func (p *Parser) returnStatement() {
	p.advance()
	var v ir.Var
	if !p.isPunct(";") {
		v = p.rvalue(p.expression())
		v = p.convertTo(v, p.curDef.Sym.Type.(*types.Func).Ret)
	} else {
		v = ir.Void
	}
	p.expect(";")
	b := p.curDef.Block(p.curBlock)
	b.Term = v
	b.Then, b.Else = -1, -1
	p.curBlock = p.newBlock() // unreachable tail
}

func (p *Parser) gotoStatement() {
	p.advance()
	if p.tok.Kind != token.Ident {
		p.errorf("expected a label name after goto")
		p.syncToStatement()
		return
	}
	label := p.tok.Lit
	at := p.tok
	p.advance()
	p.expect(";")

	if target, ok := p.labelBlocks[label]; ok {
		p.gotoBlock(target)
	} else {
		p.pendingGotos = append(p.pendingGotos, pendingGoto{label: label, block: p.curBlock, at: at})
	}
	p.curBlock = p.newBlock() // unreachable tail
}

func (p *Parser) labeledStatement() {
	label := p.tok.Lit
	p.advance() // identifier
	p.advance() // ':'

	target := p.newBlock()
	p.gotoBlock(target)
	p.curBlock = target
	p.labelBlocks[label] = target

	sym := &symtab.Symbol{Name: label, Kind: symtab.KindLabel, Defined: true}
	p.Labels.Add(sym)

	p.statement()
}

func (p *Parser) caseStatement() {
	p.advance()
	v := p.constantExpression()
	p.expect(":")
	if len(p.switches) == 0 {
		p.errorf("case label not within a switch statement")
		p.statement()
		return
	}
	target := p.newBlock()
	p.gotoBlock(target)
	p.curBlock = target
	sw := &p.switches[len(p.switches)-1]
	sw.cases = append(sw.cases, caseEntry{value: v.ImmInt, target: target})
	p.statement()
}

func (p *Parser) defaultStatement() {
	p.advance()
	p.expect(":")
	if len(p.switches) == 0 {
		p.errorf("default label not within a switch statement")
		p.statement()
		return
	}
	target := p.newBlock()
	p.gotoBlock(target)
	p.curBlock = target
	sw := &p.switches[len(p.switches)-1]
	sw.defaultSeen = true
	sw.defaultTarget = target
	p.statement()
}

// switchStatement implements multi-way dispatch as a cascade of
// equality tests against the scrutinee, evaluated in the dispatch
// block inserted before the body, per spec.md §4.6 (no jump tables:
// those are a backend concern, out of scope per spec.md §2).
func (p *Parser) switchStatement() {
	p.advance()
	p.expect("(")
	scrutinee := p.rvalue(p.expression())
	p.expect(")")

	dispatchBlk := p.newBlock()
	p.gotoBlock(dispatchBlk)

	bodyBlk, afterBlk := p.newBlock(), p.newBlock()
	p.curBlock = dispatchBlk
	p.gotoBlock(bodyBlk) // placeholder; replaced once cases are known

	p.switches = append(p.switches, switchCtx{breakTarget: afterBlk, condType: scrutinee.Type, defaultTarget: -1})
	p.breakStack = append(p.breakStack, afterBlk)
	p.curBlock = bodyBlk
	p.statement()
	p.gotoBlock(afterBlk)

	sw := p.switches[len(p.switches)-1]
	p.switches = p.switches[:len(p.switches)-1]
	p.breakStack = p.breakStack[:len(p.breakStack)-1]

	p.wireSwitchDispatch(dispatchBlk, scrutinee, sw, afterBlk)
	p.curBlock = afterBlk
}

// wireSwitchDispatch rewrites the dispatch block into a chain of
// equality-test blocks, one per case, falling through to the default
// (or after-block, if none) when nothing matches.
func (p *Parser) wireSwitchDispatch(dispatchBlk int, scrutinee ir.Var, sw switchCtx, afterBlk int) {
	fallback := afterBlk
	if sw.defaultTarget >= 0 {
		fallback = sw.defaultTarget
	}
	cur := dispatchBlk
	for _, c := range sw.cases {
		nextBlk := p.curDef.NewBlock()
		b := p.curDef.Block(cur)
		tmp := p.curDef.Temps.New(types.IntType)
		p.curDef.Locals = append(p.curDef.Locals, tmp)
		testDst := ir.SymRef(tmp)
		p.curDef.Emit(cur, ir.Op{Opcode: ir.OpEq, Dst: testDst, Src1: scrutinee, Src2: ir.ImmediateInt(scrutinee.Type, c.value)})
		b.Term = testDst
		b.Then, b.Else = c.target, nextBlk
		cur = nextBlk
	}
	final := p.curDef.Block(cur)
	final.Then = fallback
}
