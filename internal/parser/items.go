package parser

import (
	"github.com/naml-lang/naml/internal/ast"
	"github.com/naml-lang/naml/internal/lexer"
	"github.com/naml-lang/naml/internal/source"
)

func (p *Parser) itemBase(doc *ast.Doc, plats []string, pub bool, name string, start source.Span) ast.ItemBase {
	return ast.ItemBase{
		Base:         ast.Base{Sp: p.span(start)},
		Doc:          doc,
		NamePub:      name,
		Public:       pub,
		PlatformList: plats,
	}
}

func (p *Parser) parseGenerics() []ast.GenericParam {
	var gens []ast.GenericParam
	if !p.match(lexer.Lt) {
		return nil
	}
	for !p.check(lexer.Gt) && !p.atEnd() {
		g := ast.GenericParam{Name: p.ident()}
		if p.match(lexer.Colon) {
			g.Bounds = append(g.Bounds, p.ident())
			for p.match(lexer.Plus) {
				g.Bounds = append(g.Bounds, p.ident())
			}
		}
		gens = append(gens, g)
		if !p.match(lexer.Comma) {
			break
		}
	}
	p.expect(lexer.Gt, "'>'")
	return gens
}

func (p *Parser) parseParamList() []ast.Param {
	p.expect(lexer.LParen, "'('")
	var params []ast.Param
	for !p.check(lexer.RParen) && !p.atEnd() {
		start := p.cur().Span
		name := p.ident()
		p.expect(lexer.Colon, "':'")
		ty := p.parseTypeExpr()
		params = append(params, ast.Param{Name: name, Type: ty, Sp: p.span(start)})
		if !p.match(lexer.Comma) {
			break
		}
	}
	p.expect(lexer.RParen, "')'")
	return params
}

func (p *Parser) parseThrows() []string {
	var throws []string
	if p.match(lexer.KwThrows) {
		throws = append(throws, p.ident())
		for p.match(lexer.Comma) {
			throws = append(throws, p.ident())
		}
	}
	return throws
}

// fn (self: Type) method(...) -> Ret throws E { body }
func (p *Parser) parseFuncDecl(doc *ast.Doc, plats []string, pub bool, start source.Span) *ast.FuncDecl {
	p.advance() // fn
	fd := &ast.FuncDecl{}

	if p.check(lexer.LParen) {
		save := p.pos
		p.advance()
		if p.check(lexer.Ident) && p.intern.Lookup(p.cur().Ident) == "self" || p.check(lexer.KwSelf) {
			recvStart := p.cur().Span
			p.advance()
			p.expect(lexer.Colon, "':'")
			ty := p.parseTypeExpr()
			p.expect(lexer.RParen, "')'")
			fd.Recv = &ast.Param{Name: "self", Type: ty, Sp: p.span(recvStart)}
		} else {
			p.pos = save
		}
	}

	name := p.ident()
	fd.Generics = p.parseGenerics()
	fd.Params = p.parseParamList()
	if p.match(lexer.Arrow) {
		ret := p.parseTypeExpr()
		fd.Ret = ret
	}
	fd.Throws = p.parseThrows()

	if p.check(lexer.KwExtern) {
		p.advance()
		fd.Extern = true
		p.match(lexer.Semi)
	} else if p.check(lexer.LBrace) {
		fd.Body = p.parseBlock()
	} else {
		p.match(lexer.Semi)
	}

	fd.ItemBase = p.itemBase(doc, plats, pub, name, start)
	return fd
}

func (p *Parser) parseStructDecl(doc *ast.Doc, plats []string, pub bool, start source.Span) *ast.StructDecl {
	p.advance() // struct
	sd := &ast.StructDecl{}
	name := p.ident()
	sd.Generics = p.parseGenerics()
	p.expect(lexer.LBrace, "'{'")
	for !p.check(lexer.RBrace) && !p.atEnd() {
		fstart := p.cur().Span
		fname := p.ident()
		p.expect(lexer.Colon, "':'")
		ty := p.parseTypeExpr()
		sd.Fields = append(sd.Fields, ast.Param{Name: fname, Type: ty, Sp: p.span(fstart)})
		if !p.match(lexer.Comma) {
			p.match(lexer.Semi)
		}
	}
	p.expect(lexer.RBrace, "'}'")
	sd.ItemBase = p.itemBase(doc, plats, pub, name, start)
	return sd
}

func (p *Parser) parseEnumDecl(doc *ast.Doc, plats []string, pub bool, start source.Span) *ast.EnumDecl {
	p.advance() // enum
	ed := &ast.EnumDecl{}
	name := p.ident()
	ed.Generics = p.parseGenerics()
	p.expect(lexer.LBrace, "'{'")
	for !p.check(lexer.RBrace) && !p.atEnd() {
		v := ast.EnumVariant{Name: p.ident()}
		if p.match(lexer.LParen) {
			for !p.check(lexer.RParen) && !p.atEnd() {
				v.Fields = append(v.Fields, p.parseTypeExpr())
				if !p.match(lexer.Comma) {
					break
				}
			}
			p.expect(lexer.RParen, "')'")
		}
		ed.Variants = append(ed.Variants, v)
		if !p.match(lexer.Comma) {
			break
		}
	}
	p.expect(lexer.RBrace, "'}'")
	ed.ItemBase = p.itemBase(doc, plats, pub, name, start)
	return ed
}

func (p *Parser) parseInterfaceDecl(doc *ast.Doc, plats []string, pub bool, start source.Span) *ast.InterfaceDecl {
	p.advance() // interface
	id := &ast.InterfaceDecl{}
	name := p.ident()
	p.expect(lexer.LBrace, "'{'")
	for !p.check(lexer.RBrace) && !p.atEnd() {
		msigStart := p.cur().Span
		mname := p.ident()
		params := p.parseParamList()
		var ret ast.TypeExpr
		if p.match(lexer.Arrow) {
			ret = p.parseTypeExpr()
		}
		throws := p.parseThrows()
		p.match(lexer.Semi)
		id.Methods = append(id.Methods, ast.FuncSig{Name: mname, Params: params, Ret: ret, Throws: throws, Sp: p.span(msigStart)})
	}
	p.expect(lexer.RBrace, "'}'")
	id.ItemBase = p.itemBase(doc, plats, pub, name, start)
	return id
}

func (p *Parser) parseExceptionDecl(doc *ast.Doc, plats []string, pub bool, start source.Span) *ast.ExceptionDecl {
	p.advance() // exception
	ed := &ast.ExceptionDecl{}
	name := p.ident()
	p.expect(lexer.LBrace, "'{'")
	for !p.check(lexer.RBrace) && !p.atEnd() {
		fstart := p.cur().Span
		fname := p.ident()
		p.expect(lexer.Colon, "':'")
		ty := p.parseTypeExpr()
		ed.Fields = append(ed.Fields, ast.Param{Name: fname, Type: ty, Sp: p.span(fstart)})
		if !p.match(lexer.Comma) {
			p.match(lexer.Semi)
		}
	}
	p.expect(lexer.RBrace, "'}'")
	ed.ItemBase = p.itemBase(doc, plats, pub, name, start)
	return ed
}

func (p *Parser) parseConstDecl(doc *ast.Doc, plats []string, pub bool, start source.Span) *ast.ConstDecl {
	p.advance() // const
	name := p.ident()
	p.expect(lexer.Colon, "':'")
	ty := p.parseTypeExpr()
	p.expect(lexer.Assign, "'='")
	expr := p.parseExpr(precAssign)
	p.match(lexer.Semi)
	return &ast.ConstDecl{ItemBase: p.itemBase(doc, plats, pub, name, start), Type: ty, Expr: expr}
}

func (p *Parser) parseTypeAliasDecl(doc *ast.Doc, plats []string, pub bool, start source.Span) *ast.TypeAliasDecl {
	p.advance() // "type" (a contextual keyword, lexed as Ident)
	name := p.ident()
	p.expect(lexer.Assign, "'='")
	target := p.parseTypeExpr()
	p.match(lexer.Semi)
	return &ast.TypeAliasDecl{ItemBase: p.itemBase(doc, plats, pub, name, start), Target: target}
}

func (p *Parser) parseImplementsDecl(doc *ast.Doc, plats []string, pub bool, start source.Span) *ast.ImplementsDecl {
	p.advance() // implements
	iface := p.ident()
	p.expect(lexer.KwFor, "'for'") // reuse "for" keyword token for "implements X for Y"
	ty := p.parseTypeExpr()
	p.expect(lexer.LBrace, "'{'")
	id := &ast.ImplementsDecl{Interface: iface, Type: ty}
	for !p.check(lexer.RBrace) && !p.atEnd() {
		mstart := p.cur().Span
		m := p.parseFuncDecl(nil, nil, false, mstart)
		id.Methods = append(id.Methods, m)
	}
	p.expect(lexer.RBrace, "'}'")
	id.ItemBase = p.itemBase(doc, plats, pub, iface, start)
	return id
}

func (p *Parser) parseModDecl(doc *ast.Doc, plats []string, pub bool, start source.Span) *ast.ModDecl {
	p.advance() // mod
	name := p.ident()
	md := &ast.ModDecl{}
	if p.match(lexer.LBrace) {
		for !p.check(lexer.RBrace) && !p.atEnd() {
			if it := p.parseItem(); it != nil {
				md.Items = append(md.Items, it)
			} else {
				p.syncStmt()
			}
		}
		p.expect(lexer.RBrace, "'}'")
	} else {
		p.match(lexer.Semi)
	}
	md.ItemBase = p.itemBase(doc, plats, pub, name, start)
	return md
}

// ---- types ----

func (p *Parser) parseTypeExpr() ast.TypeExpr {
	start := p.cur().Span
	name := p.ident()
	te := ast.TypeExpr{Name: name}
	if p.match(lexer.Lt) {
		for !p.check(lexer.Gt) && !p.atEnd() {
			te.Args = append(te.Args, p.parseTypeExpr())
			if !p.match(lexer.Comma) {
				break
			}
		}
		p.expect(lexer.Gt, "'>'")
	}
	if p.match(lexer.Question) {
		te.Optional = true
	}
	te.Sp = p.span(start)
	return te
}
