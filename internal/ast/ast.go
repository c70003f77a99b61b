// Package ast defines naml's immutable, spanned syntax tree. Node shapes
// are grounded on yaegi's unified node struct (interp/interp.go: child,
// anc, pos, typ fields) but split into one Go type per syntactic
// category instead of one fused AST+CFG struct — the type checker and IR
// lowerer each produce their own artifact from this tree rather than
// annotating it destructively in place.
package ast

import "github.com/naml-lang/naml/internal/source"

// Node is implemented by every AST node. Span locates the node in source
// for diagnostics and debug metadata (source.Span, SPEC_FULL.md §3.5).
type Node interface {
	Span() source.Span
}

type Base struct {
	Sp source.Span
}

func (b Base) Span() source.Span { return b.Sp }

// Doc holds a preserved /// doc comment attached to the following item.
type Doc struct {
	Text string
	Sp   source.Span
}

// File is one parsed module file.
type File struct {
	Base
	ModPath string // from `mod foo;`, empty for the root/main file
	Uses    []*Use
	Items   []Item
}

// Use is a `use` import declaration.
type Use struct {
	Base
	Path    []string // path::segments
	Wildcard bool     // path::*
	Names   []UseName // path::{a, b as c}; empty + !Wildcard means "import Path itself"
	Alias   string    // path as alias
}

type UseName struct {
	Name  string
	Alias string
}

// Item is any top-level declaration: function, struct, enum, interface,
// exception, const, type alias, or nested module.
type Item interface {
	Node
	itemNode()
	Name() string
	IsPub() bool
	Platforms() []string
}

type ItemBase struct {
	Base
	Doc       *Doc
	NamePub   string
	Public    bool
	PlatformList []string // #[platforms(...)]
}

func (b ItemBase) itemNode()          {}
func (b ItemBase) Name() string       { return b.NamePub }
func (b ItemBase) IsPub() bool        { return b.Public }
func (b ItemBase) Platforms() []string { return b.PlatformList }

// Param is a function parameter or struct/enum field.
type Param struct {
	Name string
	Type TypeExpr
	Sp   source.Span
}

// FuncDecl is `fn name(params) -> ret throws E { body }`, optionally a
// method via Recv.
type FuncDecl struct {
	ItemBase
	Recv      *Param // nil unless `fn (self: Type) method(...)`
	Generics  []GenericParam
	Params    []Param
	Ret       TypeExpr // nil for unit return
	Throws    []string // declared exception type names
	Body      *Block   // nil for extern fn
	Extern    bool
}

// GenericParam is `T: Bound1 + Bound2`.
type GenericParam struct {
	Name   string
	Bounds []string
}

// StructDecl is `struct Name { fields }`.
type StructDecl struct {
	ItemBase
	Generics []GenericParam
	Fields   []Param
}

// EnumVariant is one `Name` or `Name(Type, ...)` arm of an enum.
type EnumVariant struct {
	Name   string
	Fields []TypeExpr
}

// EnumDecl is `enum Name { variants }`.
type EnumDecl struct {
	ItemBase
	Generics []GenericParam
	Variants []EnumVariant
}

// InterfaceDecl is `interface Name { method signatures }`.
type InterfaceDecl struct {
	ItemBase
	Methods []FuncSig
}

// FuncSig is a bare signature, used in interface method lists.
type FuncSig struct {
	Name   string
	Params []Param
	Ret    TypeExpr
	Throws []string
	Sp     source.Span
}

// ExceptionDecl is `exception Name { fields }` — a heap struct with a
// distinct kind marker (spec.md §4.9).
type ExceptionDecl struct {
	ItemBase
	Fields []Param
}

// ConstDecl is a module-level `const name: T = expr;` snapshot.
type ConstDecl struct {
	ItemBase
	Type TypeExpr
	Expr Expr
}

// TypeAliasDecl is `type Name = T;`.
type TypeAliasDecl struct {
	ItemBase
	Target TypeExpr
}

// ImplementsDecl is `implements Interface for Type { ... }`, recorded as
// its own item so the checker can search for it by (interface, type).
type ImplementsDecl struct {
	ItemBase
	Interface string
	Type      TypeExpr
	Methods   []*FuncDecl
}

// ModDecl is a nested `mod name;` or `mod name { ... }`.
type ModDecl struct {
	ItemBase
	Items []Item // nil for `mod name;` (resolved to a separate file)
}

// TypeExpr is a syntactic type reference, e.g. `option<array<int>>`.
type TypeExpr struct {
	Sp       source.Span
	Name     string     // "int", "MyStruct", "option", "array", "map", "mutex", ...
	Args     []TypeExpr // generic arguments
	Optional bool       // sugar: `T?` same as `option<T>`
}

func (t TypeExpr) Span() source.Span { return t.Sp }

// Block is `{ stmts }`.
type Block struct {
	Base
	Stmts []Stmt
}

// Stmt is any statement.
type Stmt interface {
	Node
	stmtNode()
}

type StmtBase struct{ Base }

func (StmtBase) stmtNode() {}

type VarDecl struct {
	StmtBase
	Name string
	Type TypeExpr // always explicit — spec.md §4.2 forbids inference in `var`
	Expr Expr
}

type ExprStmt struct {
	StmtBase
	Expr Expr
}

type AssignStmt struct {
	StmtBase
	Target Expr
	Value  Expr
}

type ReturnStmt struct {
	StmtBase
	Value Expr // nil for bare `return;`
}

type BreakStmt struct{ StmtBase }
type ContinueStmt struct{ StmtBase }

type ThrowStmt struct {
	StmtBase
	Value Expr
}

type IfStmt struct {
	StmtBase
	Cond Expr
	Then *Block
	Else Stmt // *Block or *IfStmt, nil if absent
}

type ForStmt struct {
	StmtBase
	Init Stmt // nil for `for cond { }` / `for { }`
	Cond Expr // nil for infinite `for { }`
	Post Stmt
	Body *Block
}

type ForInStmt struct {
	StmtBase
	Var  string
	Iter Expr
	Body *Block
}

// LockedStmt is `locked (v in m) { body }`, `rlocked`, or `wlocked`. Mode
// distinguishes the three forms (spec.md §4.8).
type LockedStmt struct {
	StmtBase
	Mode   LockMode
	Var    string
	Target Expr
	Body   *Block
}

type LockMode uint8

const (
	LockExclusive LockMode = iota // locked
	LockRead                       // rlocked
	LockWrite                      // wlocked
)

// SpawnStmt is `spawn { body }`.
type SpawnStmt struct {
	StmtBase
	Body *Block
}

// BlockStmt wraps a bare `{ ... }` used as a statement.
type BlockStmt struct {
	StmtBase
	Block *Block
}

// Expr is any expression.
type Expr interface {
	Node
	exprNode()
}

type ExprBase struct{ Base }

func (ExprBase) exprNode() {}

type Ident struct {
	ExprBase
	Name string
}

type IntLit struct {
	ExprBase
	Value int64
}

type FloatLit struct {
	ExprBase
	Value float64
}

type StringLit struct {
	ExprBase
	Value string
}

type BoolLit struct {
	ExprBase
	Value bool
}

type NoneLit struct{ ExprBase }

type BinaryExpr struct {
	ExprBase
	Op    string
	Left  Expr
	Right Expr
}

type UnaryExpr struct {
	ExprBase
	Op   string
	Expr Expr
}

// TernaryExpr is `cond ? then : else`.
type TernaryExpr struct {
	ExprBase
	Cond Expr
	Then Expr
	Else Expr
}

// ElvisExpr is `a ?: b`: a if non-none, else b.
type ElvisExpr struct {
	ExprBase
	Left  Expr
	Right Expr
}

// CoalesceExpr is `a ?? b`, the catch-block / option fallback operator.
type CoalesceExpr struct {
	ExprBase
	Left  Expr
	Right Expr
}

// ForceUnwrapExpr is `expr!`; a runtime fault on none (spec.md §4.3/§8 scenario G).
type ForceUnwrapExpr struct {
	ExprBase
	Value Expr
}

type CallExpr struct {
	ExprBase
	Callee Expr
	Args   []Expr
}

type IndexExpr struct {
	ExprBase
	Target Expr
	Index  Expr
}

type FieldExpr struct {
	ExprBase
	Target Expr
	Name   string
}

type CastExpr struct {
	ExprBase
	Type  TypeExpr
	Value Expr
}

// CompositeLit is a struct/array/map literal.
type CompositeLit struct {
	ExprBase
	Type     TypeExpr
	Elems    []Expr          // array elements
	Fields   map[string]Expr // struct field inits
	FieldOrd []string        // preserves declaration order for codegen
}

// FuncLit is a closure literal, captured values resolved by the checker.
type FuncLit struct {
	ExprBase
	Params []Param
	Ret    TypeExpr
	Body   *Block
}

// TryExpr is `try expr` (open question 5): evaluate expr; on throw,
// re-throw in the caller's throw set.
type TryExpr struct {
	ExprBase
	Value Expr
}

// CatchExpr is `expr catch e { block }`: expression-level exception
// handling (spec.md §4.9).
type CatchExpr struct {
	ExprBase
	Value   Expr
	Binding string
	Body    *Block
}

// Walk traverses n depth-first, matching yaegi's node.Walk shape.
func Walk(n Node, in func(Node) bool, out func(Node)) {
	if in != nil && !in(n) {
		return
	}
	for _, c := range children(n) {
		if c != nil {
			Walk(c, in, out)
		}
	}
	if out != nil {
		out(n)
	}
}

func children(n Node) []Node {
	switch v := n.(type) {
	case *File:
		cs := make([]Node, 0, len(v.Items))
		for _, it := range v.Items {
			cs = append(cs, it)
		}
		return cs
	case *Block:
		cs := make([]Node, 0, len(v.Stmts))
		for _, s := range v.Stmts {
			cs = append(cs, s)
		}
		return cs
	case *IfStmt:
		cs := []Node{v.Cond, v.Then}
		if v.Else != nil {
			cs = append(cs, v.Else)
		}
		return cs
	case *BinaryExpr:
		return []Node{v.Left, v.Right}
	case *CallExpr:
		cs := []Node{v.Callee}
		for _, a := range v.Args {
			cs = append(cs, a)
		}
		return cs
	default:
		return nil
	}
}
