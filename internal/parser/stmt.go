package parser

import (
	"github.com/naml-lang/naml/internal/ast"
	"github.com/naml-lang/naml/internal/lexer"
	"github.com/naml-lang/naml/internal/source"
)

func (p *Parser) parseBlock() *ast.Block {
	start := p.cur().Span
	p.expect(lexer.LBrace, "'{'")
	b := &ast.Block{}
	for !p.check(lexer.RBrace) && !p.atEnd() {
		if s := p.parseStmt(); s != nil {
			b.Stmts = append(b.Stmts, s)
		} else {
			p.syncStmt()
		}
	}
	p.expect(lexer.RBrace, "'}'")
	b.Sp = p.span(start)
	return b
}

func (p *Parser) parseStmt() ast.Stmt {
	start := p.cur().Span
	switch p.kind() {
	case lexer.KwVar:
		return p.parseVarDecl(start)
	case lexer.KwReturn:
		p.advance()
		var v ast.Expr
		if !p.check(lexer.Semi) && !p.check(lexer.RBrace) {
			v = p.parseExpr(precAssign)
		}
		p.match(lexer.Semi)
		return &ast.ReturnStmt{StmtBase: ast.StmtBase{Base: ast.Base{Sp: p.span(start)}}, Value: v}
	case lexer.KwBreak:
		p.advance()
		p.match(lexer.Semi)
		return &ast.BreakStmt{StmtBase: ast.StmtBase{Base: ast.Base{Sp: p.span(start)}}}
	case lexer.KwContinue:
		p.advance()
		p.match(lexer.Semi)
		return &ast.ContinueStmt{StmtBase: ast.StmtBase{Base: ast.Base{Sp: p.span(start)}}}
	case lexer.KwThrow:
		p.advance()
		v := p.parseExpr(precAssign)
		p.match(lexer.Semi)
		return &ast.ThrowStmt{StmtBase: ast.StmtBase{Base: ast.Base{Sp: p.span(start)}}, Value: v}
	case lexer.KwIf:
		return p.parseIf(start)
	case lexer.KwFor:
		return p.parseFor(start)
	case lexer.KwLocked, lexer.KwRlocked, lexer.KwWlocked:
		return p.parseLocked(start)
	case lexer.KwSpawn:
		p.advance()
		body := p.parseBlock()
		return &ast.SpawnStmt{StmtBase: ast.StmtBase{Base: ast.Base{Sp: p.span(start)}}, Body: body}
	case lexer.LBrace:
		b := p.parseBlock()
		return &ast.BlockStmt{StmtBase: ast.StmtBase{Base: ast.Base{Sp: b.Sp}}, Block: b}
	}
	return p.parseSimpleStmt(start)
}

func (p *Parser) parseVarDecl(start source.Span) ast.Stmt {
	p.advance() // var
	name := p.ident()
	p.expect(lexer.Colon, "':' (var bindings require an explicit type)")
	ty := p.parseTypeExpr()
	p.expect(lexer.Assign, "'='")
	expr := p.parseExpr(precAssign)
	p.match(lexer.Semi)
	return &ast.VarDecl{StmtBase: ast.StmtBase{Base: ast.Base{Sp: p.span(start)}}, Name: name, Type: ty, Expr: expr}
}

func (p *Parser) parseIf(start source.Span) ast.Stmt {
	p.advance() // if
	p.expect(lexer.LParen, "'('")
	cond := p.parseExpr(precAssign)
	p.expect(lexer.RParen, "')'")
	then := p.parseBlock()
	var els ast.Stmt
	if p.match(lexer.KwElse) {
		if p.check(lexer.KwIf) {
			els = p.parseIf(p.cur().Span)
		} else {
			b := p.parseBlock()
			els = &ast.BlockStmt{StmtBase: ast.StmtBase{Base: ast.Base{Sp: b.Sp}}, Block: b}
		}
	}
	return &ast.IfStmt{StmtBase: ast.StmtBase{Base: ast.Base{Sp: p.span(start)}}, Cond: cond, Then: then, Else: els}
}

func (p *Parser) parseFor(start source.Span) ast.Stmt {
	p.advance() // for
	if p.check(lexer.LBrace) {
		body := p.parseBlock()
		return &ast.ForStmt{StmtBase: ast.StmtBase{Base: ast.Base{Sp: p.span(start)}}, Body: body}
	}
	// try `for (v in iter) { }`
	if p.check(lexer.LParen) {
		save := p.pos
		p.advance()
		if p.check(lexer.Ident) {
			name := p.ident()
			if p.match(lexer.KwIn) {
				iter := p.parseExpr(precAssign)
				p.expect(lexer.RParen, "')'")
				body := p.parseBlock()
				return &ast.ForInStmt{StmtBase: ast.StmtBase{Base: ast.Base{Sp: p.span(start)}}, Var: name, Iter: iter, Body: body}
			}
		}
		p.pos = save
		p.expect(lexer.LParen, "'('")
		var initS ast.Stmt
		if !p.check(lexer.Semi) {
			initS = p.parseSimpleStmt(p.cur().Span)
		} else {
			p.advance()
		}
		var cond ast.Expr
		if !p.check(lexer.Semi) {
			cond = p.parseExpr(precAssign)
		}
		p.expect(lexer.Semi, "';'")
		var post ast.Stmt
		if !p.check(lexer.RParen) {
			post = p.parseSimpleStmt(p.cur().Span)
		}
		p.expect(lexer.RParen, "')'")
		body := p.parseBlock()
		return &ast.ForStmt{StmtBase: ast.StmtBase{Base: ast.Base{Sp: p.span(start)}}, Init: initS, Cond: cond, Post: post, Body: body}
	}
	cond := p.parseExpr(precAssign)
	body := p.parseBlock()
	return &ast.ForStmt{StmtBase: ast.StmtBase{Base: ast.Base{Sp: p.span(start)}}, Cond: cond, Body: body}
}

func (p *Parser) parseLocked(start source.Span) ast.Stmt {
	mode := ast.LockExclusive
	switch p.kind() {
	case lexer.KwRlocked:
		mode = ast.LockRead
	case lexer.KwWlocked:
		mode = ast.LockWrite
	}
	p.advance()
	p.expect(lexer.LParen, "'('")
	name := p.ident()
	p.expect(lexer.KwIn, "'in'")
	target := p.parseExpr(precAssign)
	p.expect(lexer.RParen, "')'")
	body := p.parseBlock()
	return &ast.LockedStmt{
		StmtBase: ast.StmtBase{Base: ast.Base{Sp: p.span(start)}},
		Mode:     mode, Var: name, Target: target, Body: body,
	}
}

// parseSimpleStmt handles an expression statement or an assignment, and
// consumes a trailing `;` when present.
func (p *Parser) parseSimpleStmt(start source.Span) ast.Stmt {
	e := p.parseExpr(precAssign)
	if p.match(lexer.Assign) {
		v := p.parseExpr(precAssign)
		p.match(lexer.Semi)
		return &ast.AssignStmt{StmtBase: ast.StmtBase{Base: ast.Base{Sp: p.span(start)}}, Target: e, Value: v}
	}
	p.match(lexer.Semi)
	return &ast.ExprStmt{StmtBase: ast.StmtBase{Base: ast.Base{Sp: p.span(start)}}, Expr: e}
}
