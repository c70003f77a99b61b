package lexer

import "github.com/naml-lang/naml/internal/source"

// Kind identifies a lexical token category.
type Kind uint16

const (
	EOF Kind = iota
	Error

	Ident
	Int
	Float
	String
	DocComment

	// keywords
	KwFn
	KwVar
	KwConst
	KwStruct
	KwEnum
	KwInterface
	KwException
	KwMod
	KwUse
	KwPub
	KwIf
	KwElse
	KwFor
	KwReturn
	KwBreak
	KwContinue
	KwThrow
	KwThrows
	KwTry
	KwCatch
	KwSpawn
	KwLocked
	KwRlocked
	KwWlocked
	KwIn
	KwAs
	KwNone
	KwTrue
	KwFalse
	KwOr
	KwAnd
	KwImplements
	KwSelf
	KwExtern

	// punctuation/operators
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	Comma
	Semi
	Colon
	ColonColon
	Dot
	Arrow // ->
	FatArrow // =>
	Question // ?
	QQ       // ??
	Bang     // !
	Assign
	Eq
	Ne
	Lt
	Le
	Gt
	Ge
	Plus
	Minus
	Star
	Slash
	Percent
	Amp
	Pipe
	Caret
	Shl
	Shr
	Tilde
	Hash
	At
	Elvis // ?:
)

var keywords = map[string]Kind{
	"fn": KwFn, "var": KwVar, "const": KwConst, "struct": KwStruct,
	"enum": KwEnum, "interface": KwInterface, "exception": KwException,
	"mod": KwMod, "use": KwUse, "pub": KwPub, "if": KwIf, "else": KwElse,
	"for": KwFor, "return": KwReturn, "break": KwBreak, "continue": KwContinue,
	"throw": KwThrow, "throws": KwThrows, "try": KwTry, "catch": KwCatch,
	"spawn": KwSpawn, "locked": KwLocked, "rlocked": KwRlocked, "wlocked": KwWlocked,
	"in": KwIn, "as": KwAs, "none": KwNone, "true": KwTrue, "false": KwFalse,
	"or": KwOr, "and": KwAnd, "implements": KwImplements, "self": KwSelf,
	"extern": KwExtern,
}

// Token is one lexeme: a kind, its span, and an optional interned value.
// Trivia (whitespace, comments other than /// doc comments) never reaches
// this type — it is discarded in the scanner.
type Token struct {
	Kind  Kind
	Span  source.Span
	Ident int64  // interned-string id, valid for Ident/String/DocComment
	IVal  int64  // parsed integer value, valid for Int
	FVal  float64 // parsed float value, valid for Float
}

func (k Kind) IsKeyword() bool { return k >= KwFn && k <= KwExtern }
