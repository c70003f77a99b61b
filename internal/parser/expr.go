package parser

import (
	"github.com/naml-lang/naml/internal/ast"
	"github.com/naml-lang/naml/internal/diag"
	"github.com/naml-lang/naml/internal/lexer"
	"github.com/naml-lang/naml/internal/source"
)

// parseExpr implements precedence climbing over spec.md §4.2's table:
// assignment (handled by callers, which check for '=' after parseExpr
// returns) → ternary/elvis/?? → or → and → comparison → bit-or →
// bit-xor → bit-and → shift → additive → multiplicative → unary/cast →
// postfix → atom. minPrec is not used: every call parses a full
// ternary-level expression.
func (p *Parser) parseExpr(minPrec int) ast.Expr {
	return p.parseTernary()
}

// parseBinaryRHS implements the climbing loop itself, covering every
// left-associative binary operator at or above precCompare (comparison
// through multiplicative). `or`/`and` are handled one level up in
// parseTernary's call chain so that ternary/elvis/coalesce can sit
// between them and assignment.
func (p *Parser) parseBinaryRHS(prec int) ast.Expr {
	left := p.parseUnary()
	for {
		nprec, ok := binPrec[p.kind()]
		if !ok || nprec < precCompare || nprec <= prec {
			return left
		}
		op := binOpText[p.kind()]
		p.advance()
		right := p.parseBinaryRHS(nprec)
		left = &ast.BinaryExpr{ExprBase: ast.ExprBase{Base: ast.Base{Sp: left.Span().Cover(right.Span())}}, Op: op, Left: left, Right: right}
	}
}

// parseTernary handles `cond ? then : else`, `a ?: b`, and `a ?? b`,
// which sit between assignment and `or` in the precedence table.
func (p *Parser) parseTernary() ast.Expr {
	left := p.parseOr()
	if p.match(lexer.Question) {
		then := p.parseExpr(precAssign)
		p.expect(lexer.Colon, "':'")
		els := p.parseExpr(precTernary)
		return &ast.TernaryExpr{ExprBase: ast.ExprBase{Base: ast.Base{Sp: left.Span().Cover(els.Span())}}, Cond: left, Then: then, Else: els}
	}
	if p.match(lexer.Elvis) {
		right := p.parseExpr(precTernary)
		return &ast.ElvisExpr{ExprBase: ast.ExprBase{Base: ast.Base{Sp: left.Span().Cover(right.Span())}}, Left: left, Right: right}
	}
	if p.match(lexer.QQ) {
		right := p.parseExpr(precTernary)
		return &ast.CoalesceExpr{ExprBase: ast.ExprBase{Base: ast.Base{Sp: left.Span().Cover(right.Span())}}, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseOr() ast.Expr {
	left := p.parseAnd()
	for p.check(lexer.KwOr) {
		p.advance()
		right := p.parseAnd()
		left = &ast.BinaryExpr{ExprBase: ast.ExprBase{Base: ast.Base{Sp: left.Span().Cover(right.Span())}}, Op: "or", Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseAnd() ast.Expr {
	left := p.parseBinaryRHS(precNone)
	for p.check(lexer.KwAnd) {
		p.advance()
		right := p.parseBinaryRHS(precNone)
		left = &ast.BinaryExpr{ExprBase: ast.ExprBase{Base: ast.Base{Sp: left.Span().Cover(right.Span())}}, Op: "and", Left: left, Right: right}
	}
	return left
}

// parseUnary handles unary +/-/!/~ and `as` casts, then falls through to
// postfix/atom.
func (p *Parser) parseUnary() ast.Expr {
	switch p.kind() {
	case lexer.Minus, lexer.Plus, lexer.Bang, lexer.Tilde:
		opTok := p.advance()
		opText := map[lexer.Kind]string{lexer.Minus: "-", lexer.Plus: "+", lexer.Bang: "!", lexer.Tilde: "~"}[opTok.Kind]
		v := p.parseUnary()
		return &ast.UnaryExpr{ExprBase: ast.ExprBase{Base: ast.Base{Sp: opTok.Span.Cover(v.Span())}}, Op: opText, Expr: v}
	case lexer.KwTry:
		start := p.cur().Span
		p.advance()
		v := p.parseUnary()
		return &ast.TryExpr{ExprBase: ast.ExprBase{Base: ast.Base{Sp: start.Cover(v.Span())}}, Value: v}
	}
	return p.parseCastOrPostfix()
}

func (p *Parser) parseCastOrPostfix() ast.Expr {
	e := p.parsePostfix()
	for p.check(lexer.KwAs) {
		p.advance()
		ty := p.parseTypeExpr()
		e = &ast.CastExpr{ExprBase: ast.ExprBase{Base: ast.Base{Sp: e.Span().Cover(ty.Span())}}, Type: ty, Value: e}
	}
	return e
}

// parsePostfix handles call, index, field, `!` (force-unwrap), and the
// expression-level `catch` construct.
func (p *Parser) parsePostfix() ast.Expr {
	e := p.parseAtom()
	for {
		switch p.kind() {
		case lexer.LParen:
			e = p.finishCall(e)
		case lexer.LBracket:
			p.advance()
			idx := p.parseExpr(precAssign)
			end := p.expect(lexer.RBracket, "']'")
			e = &ast.IndexExpr{ExprBase: ast.ExprBase{Base: ast.Base{Sp: e.Span().Cover(end.Span)}}, Target: e, Index: idx}
		case lexer.Dot:
			p.advance()
			name := p.ident()
			e = &ast.FieldExpr{ExprBase: ast.ExprBase{Base: ast.Base{Sp: p.span(e.Span())}}, Target: e, Name: name}
		case lexer.Bang:
			tok := p.advance()
			e = &ast.ForceUnwrapExpr{ExprBase: ast.ExprBase{Base: ast.Base{Sp: e.Span().Cover(tok.Span)}}, Value: e}
		case lexer.KwCatch:
			p.advance()
			binding := p.ident()
			body := p.parseBlock()
			e = &ast.CatchExpr{ExprBase: ast.ExprBase{Base: ast.Base{Sp: e.Span().Cover(body.Sp)}}, Value: e, Binding: binding, Body: body}
		default:
			return e
		}
	}
}

func (p *Parser) finishCall(callee ast.Expr) ast.Expr {
	p.advance() // (
	var args []ast.Expr
	for !p.check(lexer.RParen) && !p.atEnd() {
		args = append(args, p.parseExpr(precAssign))
		if !p.match(lexer.Comma) {
			break
		}
	}
	end := p.expect(lexer.RParen, "')'")
	return &ast.CallExpr{ExprBase: ast.ExprBase{Base: ast.Base{Sp: callee.Span().Cover(end.Span)}}, Callee: callee, Args: args}
}

func (p *Parser) parseAtom() ast.Expr {
	t := p.cur()
	switch t.Kind {
	case lexer.Int:
		p.advance()
		return &ast.IntLit{ExprBase: ast.ExprBase{Base: ast.Base{Sp: t.Span}}, Value: t.IVal}
	case lexer.Float:
		p.advance()
		return &ast.FloatLit{ExprBase: ast.ExprBase{Base: ast.Base{Sp: t.Span}}, Value: t.FVal}
	case lexer.String:
		p.advance()
		return &ast.StringLit{ExprBase: ast.ExprBase{Base: ast.Base{Sp: t.Span}}, Value: p.intern.Lookup(t.Ident)}
	case lexer.KwTrue:
		p.advance()
		return &ast.BoolLit{ExprBase: ast.ExprBase{Base: ast.Base{Sp: t.Span}}, Value: true}
	case lexer.KwFalse:
		p.advance()
		return &ast.BoolLit{ExprBase: ast.ExprBase{Base: ast.Base{Sp: t.Span}}, Value: false}
	case lexer.KwNone:
		p.advance()
		return &ast.NoneLit{ExprBase: ast.ExprBase{Base: ast.Base{Sp: t.Span}}}
	case lexer.KwSelf:
		p.advance()
		return &ast.Ident{ExprBase: ast.ExprBase{Base: ast.Base{Sp: t.Span}}, Name: "self"}
	case lexer.Ident:
		p.advance()
		return &ast.Ident{ExprBase: ast.ExprBase{Base: ast.Base{Sp: t.Span}}, Name: p.intern.Lookup(t.Ident)}
	case lexer.KwFn:
		return p.parseFuncLit(t.Span)
	case lexer.LParen:
		p.advance()
		e := p.parseExpr(precAssign)
		p.expect(lexer.RParen, "')'")
		return e
	case lexer.LBracket, lexer.LBrace:
		return p.parseCompositeLit(ast.TypeExpr{})
	}

	p.errorf(t.Span, diag.CodeParseUnexpected, "expected expression")
	// recovery: skip to a safe point without consuming the whole file
	if p.check(lexer.LParen) {
		p.syncParen()
	} else {
		p.advance()
	}
	return &ast.Ident{ExprBase: ast.ExprBase{Base: ast.Base{Sp: t.Span}}, Name: "<error>"}
}

func (p *Parser) parseFuncLit(start source.Span) ast.Expr {
	p.advance() // fn
	params := p.parseParamList()
	var ret ast.TypeExpr
	if p.match(lexer.Arrow) {
		ret = p.parseTypeExpr()
	}
	body := p.parseBlock()
	return &ast.FuncLit{ExprBase: ast.ExprBase{Base: ast.Base{Sp: start.Cover(body.Sp)}}, Params: params, Ret: ret, Body: body}
}

// parseCompositeLit parses an array literal `[a, b, c]` or a struct
// literal `{ field: v, ... }`, optionally preceded by an explicit type.
func (p *Parser) parseCompositeLit(ty ast.TypeExpr) ast.Expr {
	start := p.cur().Span
	if p.check(lexer.LBracket) {
		p.advance()
		var elems []ast.Expr
		for !p.check(lexer.RBracket) && !p.atEnd() {
			elems = append(elems, p.parseExpr(precAssign))
			if !p.match(lexer.Comma) {
				break
			}
		}
		end := p.expect(lexer.RBracket, "']'")
		return &ast.CompositeLit{ExprBase: ast.ExprBase{Base: ast.Base{Sp: start.Cover(end.Span)}}, Type: ty, Elems: elems}
	}
	p.expect(lexer.LBrace, "'{'")
	fields := map[string]ast.Expr{}
	var order []string
	for !p.check(lexer.RBrace) && !p.atEnd() {
		name := p.ident()
		p.expect(lexer.Colon, "':'")
		v := p.parseExpr(precAssign)
		fields[name] = v
		order = append(order, name)
		if !p.match(lexer.Comma) {
			break
		}
	}
	end := p.expect(lexer.RBrace, "'}'")
	return &ast.CompositeLit{ExprBase: ast.ExprBase{Base: ast.Base{Sp: start.Cover(end.Span)}}, Type: ty, Fields: fields, FieldOrd: order}
}
