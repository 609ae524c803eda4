package parser

import (
	"github.com/jcorbin/cc0/internal/ir"
	"github.com/jcorbin/cc0/internal/strtab"
	"github.com/jcorbin/cc0/internal/symtab"
	"github.com/jcorbin/cc0/internal/token"
	"github.com/jcorbin/cc0/internal/types"
)

// declSpec is the result of parsing a declaration's specifiers: the
// base type plus the storage-class keyword seen, per spec.md §4.5/§4.6.
type declSpec struct {
	typ     types.Type
	storage symtab.Storage
	inline  bool
}

// externalDeclaration parses one top-level declaration or function
// definition (spec.md §4.6/§2's "per external declaration").
func (p *Parser) externalDeclaration() {
	if p.aborted {
		return
	}
	spec, ok := p.declarationSpecifiers()
	if !ok {
		p.errorf("expected a declaration")
		p.syncToStatement()
		return
	}
	if p.accept(";") {
		return // struct/union/enum/typedef-only declaration with no declarator
	}

	name, declType := p.declarator(spec.typ)
	if name == 0 {
		p.errorf("expected a declarator name")
		p.syncToStatement()
		return
	}

	if spec.storage == symtab.StorageTypedef {
		p.defineTypedef(name, declType)
		p.finishDeclaratorList(spec)
		return
	}

	if p.isPunct("{") {
		p.functionDefinition(name, declType, spec)
		return
	}

	p.declareObjectOrFunc(name, declType, spec, p.globalInitializer())
	p.finishDeclaratorList(spec)
}

// finishDeclaratorList handles the `, declarator...` continuations of
// a multi-declarator declaration, then the terminating `;`.
func (p *Parser) finishDeclaratorList(spec declSpec) {
	for p.accept(",") {
		name, declType := p.declarator(spec.typ)
		if name == 0 {
			p.errorf("expected a declarator name")
			break
		}
		if spec.storage == symtab.StorageTypedef {
			p.defineTypedef(name, declType)
			continue
		}
		p.declareObjectOrFunc(name, declType, spec, p.globalInitializer())
	}
	p.expect(";")
}

// globalInitializer consumes a file-scope `= initializer`, if present.
// A scalar constant initializer folds to an immediate, retained so the
// finish pass can lay the symbol's bytes into the static data image; a
// braced aggregate initializer is skipped balanced (like
// compoundLiteral's simplification for `(T){...}`) and marks the
// symbol defined without an image.
func (p *Parser) globalInitializer() *ir.Var {
	if !p.accept("=") {
		return nil
	}
	if p.isPunct("{") {
		p.skipBalanced("{", "}")
		v := ir.Void
		return &v
	}
	v := p.initializerExpression()
	return &v
}

// DeclareBuiltinTypedef installs a predeclared file-scope typedef --
// size_t, ptrdiff_t, and wchar_t, whose width the driver selects.
func (p *Parser) DeclareBuiltinTypedef(name string, t types.Type) {
	p.defineTypedef(p.strs.Intern(name), t)
}

func (p *Parser) defineTypedef(name strtab.ID, t types.Type) {
	sym := &symtab.Symbol{Name: name, AsmName: name, Type: t, Kind: symtab.KindTypedef, Storage: symtab.StorageTypedef}
	p.Idents.Add(sym)
}

// declareObjectOrFunc registers name:declType in Idents per spec.md
// §4.5's redeclaration rules, simplified: a same-scope redeclaration
// with a differing, incompatible type is an error; an identical
// redeclaration (e.g. `int a; int a;`, spec.md §8 scenario 4) is
// accepted, becoming a definition only when initVal/body is supplied.
func (p *Parser) declareObjectOrFunc(name strtab.ID, declType types.Type, spec declSpec, initVal *ir.Var) *symtab.Symbol {
	if existing := p.Idents.LookupCurrent(name); existing != nil {
		if existing.Type != declType && p.Idents.Depth() == 1 {
			// structurally different redeclaration at file scope.
			p.errorf("redefinition of %q with a different type", p.strs.Text(name))
		}
		if initVal != nil {
			if existing.Defined {
				p.errorf("redefinition of %q", p.strs.Text(name))
			}
			existing.Defined = true
			p.recordInit(existing, *initVal)
		}
		return existing
	}

	kind := symtab.KindAuto
	linkage := symtab.LinkNone
	switch spec.storage {
	case symtab.StorageExtern:
		kind, linkage = symtab.KindExtern, symtab.LinkExternal
	case symtab.StorageStatic:
		kind, linkage = symtab.KindStatic, symtab.LinkInternal
	default:
		if p.Idents.Depth() == 1 {
			kind, linkage = symtab.KindStatic, symtab.LinkExternal
		}
	}
	sym := &symtab.Symbol{Name: name, AsmName: name, Type: declType, Kind: kind, Linkage: linkage, Storage: spec.storage}
	if initVal != nil {
		sym.Defined = true
		p.recordInit(sym, *initVal)
	}
	p.Idents.Add(sym)
	return sym
}

// recordInit retains a folded scalar initializer for the static data
// image yielded through Result.Inits; non-immediate initializers
// (aggregates, address constants this evaluator doesn't fold) define
// the symbol without contributing image bytes.
func (p *Parser) recordInit(sym *symtab.Symbol, v ir.Var) {
	if v.IsImmediate() {
		p.inits = append(p.inits, GlobalInit{Sym: sym, Val: v})
	}
}

// declarationSpecifiers parses the type-specifier / type-qualifier /
// storage-class sequence of a declaration, per spec.md §4.4/§4.6.
func (p *Parser) declarationSpecifiers() (declSpec, bool) {
	var (
		storage     symtab.Storage
		sawStorage  bool
		sawConst    bool
		sawVolatile bool
		sawRestrict bool
		inline      bool
		basicKinds  []string
		typ         types.Type
		sawType     bool
	)

	for {
		switch {
		case p.isKeyword("typedef"):
			storage, sawStorage = symtab.StorageTypedef, true
			p.advance()
		case p.isKeyword("extern"):
			storage, sawStorage = symtab.StorageExtern, true
			p.advance()
		case p.isKeyword("static"):
			storage, sawStorage = symtab.StorageStatic, true
			p.advance()
		case p.isKeyword("auto"):
			storage, sawStorage = symtab.StorageAuto, true
			p.advance()
		case p.isKeyword("register"):
			storage, sawStorage = symtab.StorageRegister, true
			p.advance()
		case p.isKeyword("inline"):
			inline = true
			p.advance()
		case p.isKeyword("const"):
			sawConst = true
			p.advance()
		case p.isKeyword("volatile"):
			sawVolatile = true
			p.advance()
		case p.isKeyword("restrict"):
			sawRestrict = true
			p.advance()
		case p.isKeyword("struct"), p.isKeyword("union"):
			typ = p.structOrUnionSpecifier(p.isKeyword("union"))
			sawType = true
		case p.isKeyword("enum"):
			typ = p.enumSpecifier()
			sawType = true
		case isBasicTypeKeyword(p.text(p.tok)) && p.tok.Kind == token.Keyword:
			basicKinds = append(basicKinds, p.text(p.tok))
			sawType = true
			p.advance()
		case p.tok.Kind == token.Ident && p.isTypedefName(p.tok.Lit) && !sawType:
			sym := p.Idents.Lookup(p.tok.Lit)
			typ = sym.Type
			sawType = true
			p.advance()
		default:
			goto done
		}
	}
done:
	if len(basicKinds) > 0 {
		typ = basicTypeFromKeywords(basicKinds)
		sawType = true
	}
	if !sawType {
		return declSpec{}, false
	}
	if typ == nil {
		typ = types.IntType
	}
	if sawConst || sawVolatile || sawRestrict {
		typ = p.in.Qualified(typ, sawConst, sawVolatile, sawRestrict)
	}
	_ = sawStorage
	return declSpec{typ: typ, storage: storage, inline: inline}, true
}

func (p *Parser) isTypedefName(id strtab.ID) bool {
	sym := p.Idents.Lookup(id)
	return sym != nil && sym.Kind == symtab.KindTypedef
}

var basicTypeKeywords = map[string]bool{
	"void": true, "char": true, "short": true, "int": true, "long": true,
	"float": true, "double": true, "signed": true, "unsigned": true,
	"_Bool": true,
}

func isBasicTypeKeyword(s string) bool { return basicTypeKeywords[s] }

// basicTypeFromKeywords maps the multiset of basic-type keywords seen
// (e.g. {"unsigned","long","long"}) to the resulting types.Type, per
// spec.md §4.4/§6.
func basicTypeFromKeywords(kws []string) types.Type {
	var void, boolean, char, short, long, longlong, float, double, signed, unsigned int
	for _, k := range kws {
		switch k {
		case "void":
			void++
		case "_Bool":
			boolean++
		case "char":
			char++
		case "short":
			short++
		case "int":
			// plain int contributes nothing beyond being the default
		case "long":
			if long > 0 {
				longlong = 1
			}
			long++
		case "float":
			float++
		case "double":
			double++
		case "signed":
			signed++
		case "unsigned":
			unsigned++
		}
	}
	switch {
	case void > 0:
		return types.VoidType
	case boolean > 0:
		return types.BoolType
	case float > 0:
		return types.FloatType
	case double > 0:
		if longlong > 0 || long > 0 {
			return types.LongDoubleType
		}
		return types.DoubleType
	case char > 0:
		switch {
		case unsigned > 0:
			return types.UCharType
		case signed > 0:
			return types.SCharType
		default:
			return types.CharType
		}
	case short > 0:
		if unsigned > 0 {
			return types.UShortType
		}
		return types.ShortType
	case longlong > 0:
		if unsigned > 0 {
			return types.ULongLongType
		}
		return types.LongLongType
	case long > 0:
		if unsigned > 0 {
			return types.ULongType
		}
		return types.LongType
	case unsigned > 0:
		return types.UIntType
	default:
		return types.IntType
	}
}

func (p *Parser) typeQualifierList() (c, v, r bool) {
	for {
		switch {
		case p.isKeyword("const"):
			c = true
			p.advance()
		case p.isKeyword("volatile"):
			v = true
			p.advance()
		case p.isKeyword("restrict"):
			r = true
			p.advance()
		default:
			return
		}
	}
}

// ---- declarators ----

type declBuild func(types.Type) types.Type

func identityBuild(t types.Type) types.Type { return t }

// declarator parses a full declarator (pointer* direct-declarator)
// applied to base, per spec.md §4.6.
func (p *Parser) declarator(base types.Type) (strtab.ID, types.Type) {
	name, build := p.declaratorBuild()
	return name, build(base)
}

func (p *Parser) declaratorBuild() (strtab.ID, declBuild) {
	ptr := p.pointerBuild()
	name, direct := p.directDeclaratorBuild()
	return name, func(b types.Type) types.Type { return direct(ptr(b)) }
}

// pointerBuild parses a `pointer` (spec.md §4.4/grammar), returning a
// left-to-right-accumulating build function: each star wraps the
// result of the previous ones around base, and this star's own
// qualifiers (if any) qualify the pointer IT introduces, matching
// `T * const * p` => "p is pointer to const-pointer-to-T".
func (p *Parser) pointerBuild() declBuild {
	build := declBuild(identityBuild)
	for p.isPunct("*") {
		p.advance()
		c, v, r := p.typeQualifierList()
		prev := build
		cc, vv, rr := c, v, r
		in := p.in
		build = func(b types.Type) types.Type {
			t := in.Pointer(prev(b))
			if cc || vv || rr {
				t = in.Qualified(t, cc, vv, rr)
			}
			return t
		}
	}
	return build
}

// directDeclaratorBuild parses direct-declarator, resolving the
// `( declarator )` vs. `( parameter-list )` ambiguity by checking
// whether the token right after `(` can start a declarator.
func (p *Parser) directDeclaratorBuild() (strtab.ID, declBuild) {
	switch {
	case p.tok.Kind == token.Ident && !p.isTypedefName(p.tok.Lit):
		name := p.tok.Lit
		p.advance()
		return name, p.suffixChainBuild()

	case p.isPunct("("):
		if p.looksLikeNestedDeclarator() {
			p.advance()
			name, inner := p.declaratorBuild()
			p.expect(")")
			suffix := p.suffixChainBuild()
			return name, func(b types.Type) types.Type { return inner(suffix(b)) }
		}
		// abstract function suffix with no identifier at this level.
		return 0, p.suffixChainBuild()

	default:
		// abstract declarator: no identifier, possibly array suffixes.
		return 0, p.suffixChainBuild()
	}
}

// looksLikeNestedDeclarator peeks past the current `(` to decide
// whether it opens a nested declarator (`*`, another `(`, or a
// non-typedef identifier) rather than a parameter-type-list.
func (p *Parser) looksLikeNestedDeclarator() bool {
	nxt := p.peek2()
	switch {
	case nxt.Kind == token.Punct && p.strs.Text(nxt.Lit) == "*":
		return true
	case nxt.Kind == token.Punct && p.strs.Text(nxt.Lit) == "(":
		return true
	case nxt.Kind == token.Ident && !p.isTypedefName(nxt.Lit):
		return true
	default:
		return false
	}
}

// suffixChainBuild parses zero or more `[ ... ]` / `( ... )` suffixes,
// returning a build function applying them innermost-first (the
// rightmost suffix binds tightest to the base), per spec.md §4.4.
func (p *Parser) suffixChainBuild() declBuild {
	var chain []declBuild
	for {
		switch {
		case p.isPunct("["):
			chain = append(chain, p.arraySuffix())
		case p.isPunct("("):
			chain = append(chain, p.funcSuffix())
		default:
			return func(b types.Type) types.Type {
				t := b
				for i := len(chain) - 1; i >= 0; i-- {
					t = chain[i](t)
				}
				return t
			}
		}
	}
}

func (p *Parser) arraySuffix() declBuild {
	p.expect("[")
	var n int64
	hasLen := false
	if !p.isPunct("]") {
		v := p.constantExpression()
		n = v.ImmInt
		hasLen = true
	}
	p.expect("]")
	in := p.in
	return func(elem types.Type) types.Type { return in.Array(elem, n, hasLen) }
}

func (p *Parser) funcSuffix() declBuild {
	p.expect("(")
	names, params, variadic, noProto := p.parameterDeclarators()
	p.expect(")")
	p.lastParamNames = names
	in := p.in
	return func(ret types.Type) types.Type { return in.Func(ret, params, variadic, noProto) }
}

// parameterDeclarators parses a function declarator's parameter list,
// returning both the parameter types (for building a types.Func) and
// their names (for registering as symbols in a function body).
func (p *Parser) parameterDeclarators() (names []strtab.ID, types_ []types.Type, variadic, noProto bool) {
	if p.isPunct(")") {
		return nil, nil, false, true
	}
	if p.isKeyword("void") && p.peek2().Kind == token.Punct && p.text(p.peek2()) == ")" {
		p.advance()
		return nil, nil, false, false
	}
	for {
		if p.accept("...") {
			variadic = true
			break
		}
		spec, ok := p.declarationSpecifiers()
		if !ok {
			p.errorf("expected a parameter type")
			break
		}
		name, t := p.declarator(spec.typ)
		t = types.Decay(p.in, t)
		names = append(names, name)
		types_ = append(types_, t)
		if !p.accept(",") {
			break
		}
	}
	return names, types_, variadic, false
}

// structOrUnionSpecifier parses `struct|union tag? { member-decl* }?`,
// per spec.md §4.4.
func (p *Parser) structOrUnionSpecifier(union bool) types.Type {
	p.advance() // consume 'struct'/'union'
	tag := ""
	if p.tok.Kind == token.Ident {
		tag = p.text(p.tok)
		p.advance()
	}

	if !p.isPunct("{") {
		// reference to a (possibly forward-declared) tag.
		if tag == "" {
			p.errorf("expected a tag or { after struct/union")
			return types.NewRecord("", union)
		}
		if sym := p.Tags.Lookup(p.strs.Lookup(tag)); sym != nil {
			if rt, ok := sym.Type.(*types.Record); ok {
				return rt
			}
		}
		rt := types.NewRecord(tag, union)
		sym := &symtab.Symbol{Name: p.strs.Intern(tag), Kind: symtab.KindTag, Type: rt}
		p.Tags.Add(sym)
		return rt
	}

	p.advance() // consume '{'
	rt := types.NewRecord(tag, union)
	if tag != "" {
		sym := &symtab.Symbol{Name: p.strs.Intern(tag), Kind: symtab.KindTag, Type: rt}
		p.Tags.Add(sym)
	}
	var members []types.Member
	for !p.isPunct("}") && p.tok.Kind != token.EOF {
		spec, ok := p.declarationSpecifiers()
		if !ok {
			p.errorf("expected a member declaration")
			p.syncToStatement()
			continue
		}
		for {
			name, mt := p.declarator(spec.typ)
			bits := 0
			if p.accept(":") {
				v := p.constantExpression()
				bits = int(v.ImmInt)
			}
			members = append(members, types.Member{Name: p.strs.Text(name), Type: mt, Bits: bits})
			if !p.accept(",") {
				break
			}
		}
		p.expect(";")
	}
	p.expect("}")
	laid, size, align := types.Layout(union, members)
	rt.SetLayout(laid, size, align)
	return rt
}

// enumSpecifier parses `enum tag? { enumerator-list }?`, per spec.md §4.4.
func (p *Parser) enumSpecifier() types.Type {
	p.advance() // consume 'enum'
	tag := ""
	if p.tok.Kind == token.Ident {
		tag = p.text(p.tok)
		p.advance()
	}
	if !p.isPunct("{") {
		if tag != "" {
			if sym := p.Tags.Lookup(p.strs.Lookup(tag)); sym != nil {
				if et, ok := sym.Type.(*types.Enum); ok {
					return et
				}
			}
		}
		return types.NewEnum(tag)
	}
	p.advance() // consume '{'
	et := types.NewEnum(tag)
	if tag != "" {
		sym := &symtab.Symbol{Name: p.strs.Intern(tag), Kind: symtab.KindTag, Type: et}
		p.Tags.Add(sym)
	}
	var consts []types.EnumConst
	next := int64(0)
	for !p.isPunct("}") && p.tok.Kind != token.EOF {
		if p.tok.Kind != token.Ident {
			p.errorf("expected an enumerator name")
			break
		}
		name := p.text(p.tok)
		nameID := p.tok.Lit
		p.advance()
		if p.accept("=") {
			v := p.constantExpression()
			next = v.ImmInt
		}
		consts = append(consts, types.EnumConst{Name: name, Value: next})
		sym := &symtab.Symbol{Name: nameID, AsmName: nameID, Type: et, Kind: symtab.KindEnumConst, Defined: true}
		sym.Slot = next
		p.Idents.Add(sym)
		next++
		if !p.accept(",") {
			break
		}
	}
	p.expect("}")
	et.SetComplete(consts)
	return et
}
