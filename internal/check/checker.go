// Package check implements naml's two-pass type checker (spec.md §4.3):
// Pass A registers every top-level declaration without checking bodies;
// Pass B checks each function body in isolation, propagating expression
// types bottom-up and unifying with expected types. The two-pass split
// mirrors yaegi's own gta (global type analysis) then cfg (control-flow
// graph / body walk) pipeline, named directly in interp.go's Eval flow.
package check

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/naml-lang/naml/internal/ast"
	"github.com/naml-lang/naml/internal/diag"
	"github.com/naml-lang/naml/internal/source"
	"github.com/naml-lang/naml/internal/symtab"
	"github.com/naml-lang/naml/internal/types"
)

// instanceKey identifies one monomorphization: a generic definition plus
// a concrete argument tuple (spec.md §3.2, testable property 7).
type instanceKey struct {
	def  symtab.Kind
	name string
	args string
}

// Checker holds the shared state threaded through both passes: the
// interned type store and the symbol table, following yaegi's single
// Interpreter object threading a shared universe scope and binPkg/srcPkg
// maps through gta and cfg alike.
type Checker struct {
	Store *types.Store
	Table *symtab.Table
	Univ  map[string]*types.Type

	diags List

	// instances memoizes monomorphized generic instantiations so that
	// two call sites with identical type arguments share one compiled
	// function (testable property 7). Bounded so a long-running JIT
	// session (a REPL) doesn't grow this without limit — the one place
	// in the checker an eviction policy is appropriate, unlike the
	// session-scoped type Store above.
	instances *lru.Cache[instanceKey, *symtab.Symbol]

	// platformCtx is the set of platforms the item currently being
	// checked is compiled for; nil means "all platforms" (spec.md §4.3
	// platform gating).
	platformCtx []string

	// Defs, Methods, and Impls are Pass A's output, consumed by Pass B
	// and by internal/ir's lowering pass: Defs maps a struct/enum/
	// interface/exception name to its DefID and declaration node (for
	// generic instantiation); Methods maps a receiver type name to every
	// `fn (self: T) ...` declared for it, whether free-standing or
	// inside an `implements` block; Impls maps "Interface/Type" to the
	// implements block satisfying it.
	Defs    map[string]*defEntry
	Methods map[string][]*ast.FuncDecl
	Impls   map[string]*ast.ImplementsDecl

	// Types caches every checked expression's inferred type, keyed by
	// node identity, so internal/ir can look up a node's type without
	// re-running inference.
	Types map[ast.Expr]*types.Type
}

// List is a local alias so callers can type-assert against diag.List
// without importing diag in every file of this package.
type List = diag.List

// New returns a Checker with a fresh universe populated from
// types.Universe.
func New(store *types.Store, table *symtab.Table) *Checker {
	univ := types.Universe(store)
	for name, t := range univ {
		table.Universe.Define(&symtab.Symbol{Name: name, Kind: symtab.TypeSym, Type: t})
	}
	cache, _ := lru.New[instanceKey, *symtab.Symbol](4096)
	return &Checker{Store: store, Table: table, Univ: univ, instances: cache}
}

func (c *Checker) errorf(sp source.Span, code, format string, args ...interface{}) {
	c.diags = append(c.diags, diag.Diagnostic{
		Severity: diag.SeverityError,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Span:     sp,
	})
}

// CheckModule runs both passes over one parsed file and returns every
// diagnostic collected, matching spec.md §4.3's "all type errors in a
// module body are reported in one pass" policy for Pass B, and the
// equivalent batching for Pass A.
func (c *Checker) CheckModule(f *ast.File) List {
	sc := c.Table.Module(f.ModPath)
	c.passADeclare(sc, f)
	if c.diags.HasErrors() {
		return c.diags
	}
	c.passBBodies(sc, f)
	return c.diags
}

func platformSubset(caller, callee []string) bool {
	if len(callee) == 0 {
		return true // unrestricted callee
	}
	if len(caller) == 0 {
		// caller has no platform restriction declared; spec.md §4.3 treats
		// an unrestricted caller calling a restricted item as a conflict
		// unless the caller is itself restricted to a subset.
		return false
	}
	set := map[string]bool{}
	for _, p := range callee {
		set[p] = true
	}
	for _, p := range caller {
		if !set[p] {
			return false
		}
	}
	return true
}

func throwsSubset(callee, caller []string) bool {
	callerSet := map[string]bool{}
	for _, e := range caller {
		callerSet[e] = true
	}
	for _, e := range callee {
		if !callerSet[e] {
			return false
		}
	}
	return true
}

func fmtTypeMismatch(want, got fmt.Stringer) string {
	return fmt.Sprintf("expected type %s, found %s", want.String(), got.String())
}
