package check

import (
	"fmt"

	"github.com/naml-lang/naml/internal/ast"
	"github.com/naml-lang/naml/internal/diag"
	"github.com/naml-lang/naml/internal/symtab"
	"github.com/naml-lang/naml/internal/types"
)

// defEntry is the Pass A record for one user-declared struct/enum/
// interface/exception: its DefID plus the declaration node, kept around
// so Pass A's second pass (field/method resolution) can look up a
// forward-referenced sibling declared later in the same file.
type defEntry struct {
	ID   types.DefID
	Kind symtab.Kind
	Decl ast.Item
}

// passADeclare registers every top-level name in f before any body is
// checked, matching yaegi's gta: a first walk that builds every
// package-level symbol so mutually-recursive declarations (two structs
// referencing each other) resolve regardless of file order.
func (c *Checker) passADeclare(sc *symtab.Scope, f *ast.File) {
	if c.Defs == nil {
		c.Defs = map[string]*defEntry{}
	}
	if c.Methods == nil {
		c.Methods = map[string][]*ast.FuncDecl{}
	}
	if c.Impls == nil {
		c.Impls = map[string]*ast.ImplementsDecl{}
	}

	// First walk: allocate a DefID + forward symbol for every named type
	// declaration so later field/signature resolution can reference any
	// sibling regardless of declaration order.
	for _, it := range f.Items {
		switch d := it.(type) {
		case *ast.StructDecl:
			c.forwardDecl(sc, d.Name(), symtab.StructSym, d)
		case *ast.EnumDecl:
			c.forwardDecl(sc, d.Name(), symtab.EnumSym, d)
		case *ast.InterfaceDecl:
			c.forwardDecl(sc, d.Name(), symtab.InterfaceSym, d)
		case *ast.ExceptionDecl:
			c.forwardDecl(sc, d.Name(), symtab.ExceptionSym, d)
		}
	}

	// Second walk: fill in bodies now that every name resolves.
	for _, it := range f.Items {
		switch d := it.(type) {
		case *ast.StructDecl:
			c.declareStruct(sc, d)
		case *ast.EnumDecl:
			c.declareEnum(sc, d)
		case *ast.InterfaceDecl:
			c.declareInterface(sc, d)
		case *ast.ExceptionDecl:
			c.declareException(sc, d)
		case *ast.ConstDecl:
			c.declareConst(sc, d)
		case *ast.TypeAliasDecl:
			c.declareTypeAlias(sc, d)
		case *ast.FuncDecl:
			c.declareFunc(sc, d)
		case *ast.ImplementsDecl:
			c.declareImplements(sc, d)
		case *ast.ModDecl:
			// nested modules get their own scope, chained to the universe
			// like any other module (spec.md §3.3); body items are
			// declared into it recursively.
			nsc := c.Table.Module(f.ModPath + "::" + d.Name())
			nf := &ast.File{ModPath: f.ModPath + "::" + d.Name(), Items: d.Items}
			c.passADeclare(nsc, nf)
		}
	}
}

func (c *Checker) forwardDecl(sc *symtab.Scope, name string, kind symtab.Kind, item ast.Item) {
	if _, exists := sc.LookupLocal(name); exists {
		c.errorf(item.Span(), diag.CodeUndeclaredSymbol, "%q already declared in this module", name)
		return
	}
	id := c.Store.NewDefID()
	t := c.Store.Named(name, id, nil)
	sym := &symtab.Symbol{Name: name, ModulePath: sc.PkgName, Kind: kind, Public: item.IsPub(), Type: t, Platforms: item.Platforms()}
	sc.Define(sym)
	c.Defs[name] = &defEntry{ID: id, Kind: kind, Decl: item}
}

// ResolveType turns a syntactic TypeExpr into an interned *types.Type,
// looking up named types (builtins or user declarations) in sc.
func (c *Checker) ResolveType(sc *symtab.Scope, te ast.TypeExpr) *types.Type {
	var base *types.Type
	switch te.Name {
	case "array":
		elem := c.elemOrErr(sc, te)
		base = c.Store.Array(elem)
	case "map":
		if len(te.Args) != 2 {
			c.errorf(te.Sp, diag.CodeGenericArityMismatch, "map requires 2 type arguments, found %d", len(te.Args))
			base = c.Store.Map(c.Univ["nil"], c.Univ["nil"])
		} else {
			base = c.Store.Map(c.ResolveType(sc, te.Args[0]), c.ResolveType(sc, te.Args[1]))
		}
	case "option":
		base = c.Store.Option(c.elemOrErr(sc, te))
	case "mutex":
		base = c.Store.Mutex(c.elemOrErr(sc, te))
	case "rwlock":
		base = c.Store.RwLock(c.elemOrErr(sc, te))
	case "atomic":
		base = c.Store.Atomic(c.elemOrErr(sc, te))
	case "channel":
		base = c.Store.Channel(c.elemOrErr(sc, te))
	case "decimal":
		base = c.Store.Decimal(38, 0) // precision/scale literals parsed at call site in full grammar
	default:
		sym, ok := sc.Lookup(te.Name)
		if !ok {
			c.errorf(te.Sp, diag.CodeUndeclaredSymbol, "undeclared type %q", te.Name)
			return c.Univ["nil"]
		}
		if len(te.Args) > 0 && sym.Kind != symtab.TypeSym {
			args := make([]*types.Type, len(te.Args))
			for i, a := range te.Args {
				args[i] = c.ResolveType(sc, a)
			}
			if e, ok := c.Defs[te.Name]; ok {
				base = c.instantiate(e, args)
			} else {
				base = sym.Type
			}
		} else {
			base = sym.Type
		}
	}
	if te.Optional {
		return c.Store.Option(base)
	}
	return base
}

func (c *Checker) elemOrErr(sc *symtab.Scope, te ast.TypeExpr) *types.Type {
	if len(te.Args) != 1 {
		c.errorf(te.Sp, diag.CodeGenericArityMismatch, "%s requires exactly 1 type argument, found %d", te.Name, len(te.Args))
		return c.Univ["nil"]
	}
	return c.ResolveType(sc, te.Args[0])
}

// instantiate monomorphizes a generic def against args, memoizing in the
// LRU instance cache (spec.md §3.2 testable property 7).
func (c *Checker) instantiate(e *defEntry, args []*types.Type) *types.Type {
	parts := ""
	for _, a := range args {
		parts += a.String() + ","
	}
	key := instanceKey{def: e.Kind, name: e.Decl.Name(), args: parts}
	if sym, ok := c.instances.Get(key); ok {
		return sym.Type
	}
	t := c.Store.Named(e.Decl.Name(), e.ID, args)
	c.instances.Add(key, &symtab.Symbol{Name: e.Decl.Name(), Type: t})
	return t
}

func (c *Checker) declareStruct(sc *symtab.Scope, d *ast.StructDecl) {
	sym, _ := sc.Lookup(d.Name())
	fields := make([]types.Field, len(d.Fields))
	for i, f := range d.Fields {
		fields[i] = types.Field{Name: f.Name, Type: c.ResolveType(sc, f.Type)}
	}
	sym.Type.Fields = fields
}

func (c *Checker) declareEnum(sc *symtab.Scope, d *ast.EnumDecl) {
	sym, _ := sc.Lookup(d.Name())
	fields := make([]types.Field, len(d.Variants))
	for i, v := range d.Variants {
		// variant payload recorded as a synthetic tuple-struct field type
		var elem *types.Type
		if len(v.Fields) == 1 {
			elem = c.ResolveType(sc, v.Fields[0])
		} else if len(v.Fields) > 1 {
			payload := make([]types.Field, len(v.Fields))
			for j, pf := range v.Fields {
				payload[j] = types.Field{Name: fmt.Sprintf("_%d", j), Type: c.ResolveType(sc, pf)}
			}
			elem = c.Store.Intern(&types.Type{Cat: types.StructCat, Str: d.Name() + "::" + v.Name + "#payload", Fields: payload})
		}
		fields[i] = types.Field{Name: v.Name, Type: elem}
	}
	sym.Type.Fields = fields
}

func (c *Checker) declareInterface(sc *symtab.Scope, d *ast.InterfaceDecl) {
	sym, _ := sc.Lookup(d.Name())
	fields := make([]types.Field, len(d.Methods))
	for i, m := range d.Methods {
		params := make([]*types.Type, len(m.Params))
		for j, p := range m.Params {
			params[j] = c.ResolveType(sc, p.Type)
		}
		var ret *types.Type
		if m.Ret.Name != "" {
			ret = c.ResolveType(sc, m.Ret)
		}
		fields[i] = types.Field{Name: m.Name, Type: c.Store.Func(params, ret, m.Throws)}
	}
	sym.Type.Fields = fields
}

func (c *Checker) declareException(sc *symtab.Scope, d *ast.ExceptionDecl) {
	sym, _ := sc.Lookup(d.Name())
	fields := make([]types.Field, len(d.Fields))
	for i, f := range d.Fields {
		fields[i] = types.Field{Name: f.Name, Type: c.ResolveType(sc, f.Type)}
	}
	sym.Type.Fields = fields
}

func (c *Checker) declareConst(sc *symtab.Scope, d *ast.ConstDecl) {
	var t *types.Type
	if d.Type.Name != "" {
		t = c.ResolveType(sc, d.Type)
	}
	sc.Define(&symtab.Symbol{Name: d.Name(), ModulePath: sc.PkgName, Kind: symtab.ConstSym, Public: d.IsPub(), Type: t, Platforms: d.Platforms()})
}

func (c *Checker) declareTypeAlias(sc *symtab.Scope, d *ast.TypeAliasDecl) {
	t := c.ResolveType(sc, d.Target)
	sc.Define(&symtab.Symbol{Name: d.Name(), ModulePath: sc.PkgName, Kind: symtab.TypeAliasSym, Public: d.IsPub(), Type: t, Platforms: d.Platforms()})
}

func (c *Checker) declareFunc(sc *symtab.Scope, d *ast.FuncDecl) {
	params := make([]*types.Type, len(d.Params))
	for i, p := range d.Params {
		params[i] = c.ResolveType(sc, p.Type)
	}
	var ret *types.Type
	if d.Ret.Name != "" {
		ret = c.ResolveType(sc, d.Ret)
	}
	ft := c.Store.Func(params, ret, d.Throws)
	if d.Recv != nil {
		c.Methods[d.Recv.Type.Name] = append(c.Methods[d.Recv.Type.Name], d)
		return // methods resolve under their receiver type, not the module scope
	}
	if _, exists := sc.LookupLocal(d.Name()); exists {
		c.errorf(d.Span(), diag.CodeUndeclaredSymbol, "%q already declared in this module", d.Name())
		return
	}
	sc.Define(&symtab.Symbol{Name: d.Name(), ModulePath: sc.PkgName, Kind: symtab.FnSym, Public: d.IsPub(), Type: ft, Throws: d.Throws, Platforms: d.Platforms()})
}

func (c *Checker) declareImplements(sc *symtab.Scope, d *ast.ImplementsDecl) {
	key := d.Interface + "/" + d.Type.Name
	c.Impls[key] = d
	for _, m := range d.Methods {
		c.Methods[d.Type.Name] = append(c.Methods[d.Type.Name], m)
	}
}
