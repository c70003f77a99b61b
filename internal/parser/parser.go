// Package parser turns a naml token stream into an *ast.File via
// recursive descent for statements/items and precedence climbing for
// expressions (spec.md §4.2). Error recovery skips to a statement
// synchronization point and emits exactly one diagnostic per sync point,
// the same "continue after reporting" posture yaegi's REPL takes toward
// go/scanner.ErrorList.
package parser

import (
	"fmt"

	"github.com/naml-lang/naml/internal/ast"
	"github.com/naml-lang/naml/internal/diag"
	"github.com/naml-lang/naml/internal/lexer"
	"github.com/naml-lang/naml/internal/source"
)

// precedence table, low to high, matching spec.md §4.2 exactly.
const (
	precNone = iota
	precAssign
	precTernary
	precOr
	precAnd
	precCompare
	precBitOr
	precBitXor
	precBitAnd
	precShift
	precAdditive
	precMultiplicative
	precUnary
	precPostfix
)

var binPrec = map[lexer.Kind]int{
	lexer.Eq:      precCompare,
	lexer.Ne:      precCompare,
	lexer.Lt:      precCompare,
	lexer.Le:      precCompare,
	lexer.Gt:      precCompare,
	lexer.Ge:      precCompare,
	lexer.Pipe:    precBitOr,
	lexer.Caret:   precBitXor,
	lexer.Amp:     precBitAnd,
	lexer.Shl:     precShift,
	lexer.Shr:     precShift,
	lexer.Plus:    precAdditive,
	lexer.Minus:   precAdditive,
	lexer.Star:    precMultiplicative,
	lexer.Slash:   precMultiplicative,
	lexer.Percent: precMultiplicative,
}

var binOpText = map[lexer.Kind]string{
	lexer.KwOr: "or", lexer.KwAnd: "and", lexer.Eq: "==", lexer.Ne: "!=",
	lexer.Lt: "<", lexer.Le: "<=", lexer.Gt: ">", lexer.Ge: ">=",
	lexer.Pipe: "|", lexer.Caret: "^", lexer.Amp: "&",
	lexer.Shl: "<<", lexer.Shr: ">>", lexer.Plus: "+", lexer.Minus: "-",
	lexer.Star: "*", lexer.Slash: "/", lexer.Percent: "%",
}

// Parser consumes a fixed token slice (produced by lexer.Tokenize) and
// builds an AST. It never re-invokes the lexer.
type Parser struct {
	toks   []lexer.Token
	pos    int
	intern *lexer.Interner
	file   source.FileID
	diags  []diag.Diagnostic
}

// Parse tokenizes and parses one file's source text.
func Parse(file source.FileID, text string, intern *lexer.Interner) (*ast.File, []diag.Diagnostic) {
	toks, lexDiags := lexer.Tokenize(file, text, intern)
	p := &Parser{toks: toks, intern: intern, file: file, diags: lexDiags}
	f := p.parseFile()
	return f, p.diags
}

func (p *Parser) cur() lexer.Token  { return p.toks[p.pos] }
func (p *Parser) kind() lexer.Kind  { return p.toks[p.pos].Kind }
func (p *Parser) atEnd() bool       { return p.kind() == lexer.EOF }

func (p *Parser) advance() lexer.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) check(k lexer.Kind) bool { return p.kind() == k }

func (p *Parser) match(k lexer.Kind) bool {
	if p.check(k) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) errorf(sp source.Span, code, format string, args ...interface{}) {
	p.diags = append(p.diags, diag.Diagnostic{
		Severity: diag.SeverityError, Code: code, Message: fmt.Sprintf(format, args...), Span: sp,
	})
}

// expect consumes and returns k, or emits one diagnostic at this
// synchronization point and returns the current token without
// consuming it.
func (p *Parser) expect(k lexer.Kind, what string) lexer.Token {
	if p.check(k) {
		return p.advance()
	}
	p.errorf(p.cur().Span, diag.CodeParseUnexpected, "expected %s", what)
	return p.cur()
}

func (p *Parser) ident() string {
	t := p.expect(lexer.Ident, "identifier")
	if t.Kind != lexer.Ident {
		return ""
	}
	return p.intern.Lookup(t.Ident)
}

// syncStmt skips tokens until the next `;` or `}` (or EOF), per spec.md
// §4.2's statement-list recovery rule. It consumes the terminator, if any.
func (p *Parser) syncStmt() {
	for !p.atEnd() {
		if p.check(lexer.Semi) {
			p.advance()
			return
		}
		if p.check(lexer.RBrace) {
			return
		}
		p.advance()
	}
}

// syncParen skips to the matching close paren, per spec.md §4.2's
// parenthesized-expression recovery rule.
func (p *Parser) syncParen() {
	depth := 1
	for !p.atEnd() && depth > 0 {
		switch p.kind() {
		case lexer.LParen:
			depth++
		case lexer.RParen:
			depth--
		}
		p.advance()
	}
}

func (p *Parser) span(start source.Span) source.Span {
	// end is the span of the token just consumed
	end := p.toks[max0(p.pos-1)].Span
	return start.Cover(end)
}

func max0(i int) int {
	if i < 0 {
		return 0
	}
	return i
}

// ---- file / items ----

func (p *Parser) parseFile() *ast.File {
	start := p.cur().Span
	f := &ast.File{}
	if p.check(lexer.KwMod) {
		p.advance()
		f.ModPath = p.ident()
		p.match(lexer.Semi)
	}
	for p.check(lexer.KwUse) {
		f.Uses = append(f.Uses, p.parseUse())
	}
	for !p.atEnd() {
		if it := p.parseItem(); it != nil {
			f.Items = append(f.Items, it)
		} else {
			p.syncStmt()
		}
	}
	f.Sp = p.span(start)
	return f
}

func (p *Parser) parseUse() *ast.Use {
	start := p.cur().Span
	p.advance() // use
	u := &ast.Use{}
	for {
		if p.check(lexer.Star) {
			p.advance()
			u.Wildcard = true
			break
		}
		if p.check(lexer.LBrace) {
			p.advance()
			for !p.check(lexer.RBrace) && !p.atEnd() {
				n := ast.UseName{Name: p.ident()}
				if p.match(lexer.KwAs) {
					n.Alias = p.ident()
				}
				u.Names = append(u.Names, n)
				if !p.match(lexer.Comma) {
					break
				}
			}
			p.expect(lexer.RBrace, "'}'")
			break
		}
		u.Path = append(u.Path, p.ident())
		if p.match(lexer.ColonColon) {
			continue
		}
		break
	}
	if p.match(lexer.KwAs) {
		u.Alias = p.ident()
	}
	p.match(lexer.Semi)
	u.Sp = p.span(start)
	return u
}

func (p *Parser) parsePlatforms() []string {
	var plats []string
	for p.check(lexer.Hash) {
		p.advance()
		p.expect(lexer.LBracket, "'['")
		name := p.ident()
		if name == "platforms" && p.match(lexer.LParen) {
			for !p.check(lexer.RParen) && !p.atEnd() {
				plats = append(plats, p.ident())
				if !p.match(lexer.Comma) {
					break
				}
			}
			p.expect(lexer.RParen, "')'")
		}
		p.expect(lexer.RBracket, "']'")
	}
	return plats
}

func (p *Parser) parseDoc() *ast.Doc {
	if !p.check(lexer.DocComment) {
		return nil
	}
	t := p.advance()
	return &ast.Doc{Text: p.intern.Lookup(t.Ident), Sp: t.Span}
}

func (p *Parser) parseItem() ast.Item {
	doc := p.parseDoc()
	plats := p.parsePlatforms()
	start := p.cur().Span
	pub := p.match(lexer.KwPub)

	switch p.kind() {
	case lexer.KwFn:
		return p.parseFuncDecl(doc, plats, pub, start)
	case lexer.KwStruct:
		return p.parseStructDecl(doc, plats, pub, start)
	case lexer.KwEnum:
		return p.parseEnumDecl(doc, plats, pub, start)
	case lexer.KwInterface:
		return p.parseInterfaceDecl(doc, plats, pub, start)
	case lexer.KwException:
		return p.parseExceptionDecl(doc, plats, pub, start)
	case lexer.KwConst:
		return p.parseConstDecl(doc, plats, pub, start)
	case lexer.KwImplements:
		return p.parseImplementsDecl(doc, plats, pub, start)
	case lexer.KwMod:
		return p.parseModDecl(doc, plats, pub, start)
	case lexer.Ident:
		if p.intern.Lookup(p.cur().Ident) == "type" {
			return p.parseTypeAliasDecl(doc, plats, pub, start)
		}
	}
	p.errorf(p.cur().Span, diag.CodeParseUnexpected, "expected item declaration")
	return nil
}
