// Package symtab implements module/symbol resolution (spec.md §3.3).
// Shape is grounded on yaegi's scope/symbol pair (interp/interp.go:
// `universe *scope`, `scopes map[string]*scope`, and the symbol kinds
// implied by initUniverse's {kind: typeSym|constSym|bltnSym}) — naml
// keeps one scope per module plus nested function scopes chained by an
// ancestor pointer, the same tree yaegi's scope.anc forms.
package symtab

import (
	"fmt"

	"github.com/naml-lang/naml/internal/types"
)

// Kind identifies what a symbol denotes (spec.md §3.3).
type Kind uint8

const (
	FnSym Kind = iota
	StructSym
	EnumSym
	InterfaceSym
	ExceptionSym
	ConstSym
	TypeAliasSym
	ModSym
	VarSym
	TypeSym // builtin/generic type parameter
)

// Symbol is one declared name: (module_path, name, kind) per spec.md §3.3.
type Symbol struct {
	Name       string
	ModulePath string
	Kind       Kind
	Public     bool
	Type       *types.Type // declared/inferred type
	FrameIndex int         // slot index within its owning frame, used by IR lowering
	Throws     []string    // for FnSym: declared throw set
	Platforms  []string    // #[platforms(...)]
	Bounds     []string    // for generic type parameters: required interface bounds
}

// Scope is one lexical level: a module's top level, or a function body,
// block, or generic instantiation frame nested inside it.
type Scope struct {
	Parent   *Scope
	Global   bool   // true for the universe / module top level
	PkgName  string // non-empty at a module top-level scope
	Def      *Symbol // the function/method symbol this scope belongs to, if any
	sym      map[string]*Symbol
}

// NewScope creates a scope chained to parent (nil for the universe).
func NewScope(parent *Scope) *Scope {
	return &Scope{Parent: parent, sym: map[string]*Symbol{}}
}

// Define adds sym to s, shadowing any same-named symbol in an ancestor
// scope without mutating it (redeclaration in an inner scope is legal;
// spec.md doesn't forbid shadowing).
func (s *Scope) Define(sym *Symbol) error {
	if _, exists := s.sym[sym.Name]; exists {
		return fmt.Errorf("symbol %q already declared in this scope", sym.Name)
	}
	s.sym[sym.Name] = sym
	return nil
}

// Lookup searches s and its ancestors for name.
func (s *Scope) Lookup(name string) (*Symbol, bool) {
	for cur := s; cur != nil; cur = cur.Parent {
		if sym, ok := cur.sym[name]; ok {
			return sym, true
		}
	}
	return nil, false
}

// LookupLocal searches only s, not its ancestors — used for Pass A
// (declaration registration) duplicate checks.
func (s *Scope) LookupLocal(name string) (*Symbol, bool) {
	sym, ok := s.sym[name]
	return sym, ok
}

// Table owns one Scope per module path plus the shared universe scope,
// the naml analogue of yaegi's `scopes map[string]*scope` indexed by
// import path, with `universe` as their common ancestor.
type Table struct {
	Universe *Scope
	modules  map[string]*Scope
}

// NewTable returns a table with an empty universe scope. Callers
// populate it with types.Universe()-derived TypeSym entries.
func NewTable() *Table {
	return &Table{Universe: NewScope(nil), modules: map[string]*Scope{}}
}

// Module returns the scope for modPath, creating a fresh one chained to
// the universe on first access.
func (t *Table) Module(modPath string) *Scope {
	if sc, ok := t.modules[modPath]; ok {
		return sc
	}
	sc := NewScope(t.Universe)
	sc.PkgName = modPath
	sc.Global = true
	t.modules[modPath] = sc
	return sc
}
