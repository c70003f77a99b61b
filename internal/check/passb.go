package check

import (
	"fmt"

	"github.com/naml-lang/naml/internal/ast"
	"github.com/naml-lang/naml/internal/diag"
	"github.com/naml-lang/naml/internal/source"
	"github.com/naml-lang/naml/internal/symtab"
	"github.com/naml-lang/naml/internal/types"
)

// fnCtx carries the state that changes as Pass B descends into one
// function body: its declared return type, its declared throw set (for
// ThrowsNotDeclared / CodeThrowsNotDeclared checks), and how many
// enclosing loops the current statement is nested in (for break/continue
// validity).
type fnCtx struct {
	ret    *types.Type
	throws []string
	loop   int
}

// passBBodies checks every function and method body now that Pass A has
// populated every module-level and receiver-level symbol, the cfg half
// of yaegi's gta/cfg split.
func (c *Checker) passBBodies(sc *symtab.Scope, f *ast.File) {
	c.checkImplementsSatisfaction(sc)

	for _, it := range f.Items {
		switch d := it.(type) {
		case *ast.FuncDecl:
			c.checkFunc(sc, d)
		case *ast.ModDecl:
			nsc := c.Table.Module(f.ModPath + "::" + d.Name())
			nf := &ast.File{ModPath: f.ModPath + "::" + d.Name(), Items: d.Items}
			c.passBBodies(nsc, nf)
		}
	}
	for _, fds := range c.Methods {
		for _, m := range fds {
			c.checkFunc(sc, m)
		}
	}
}

func (c *Checker) checkImplementsSatisfaction(sc *symtab.Scope) {
	for key, d := range c.Impls {
		ifaceSym, ok := sc.Lookup(d.Interface)
		if !ok {
			continue // interface not visible from this module scope
		}
		have := map[string]bool{}
		for _, m := range d.Methods {
			have[m.Name()] = true
		}
		for _, m := range ifaceSym.Type.Fields {
			if !have[m.Name] {
				c.errorf(d.Span(), diag.CodeMissingMethod, "%s does not implement %s.%s", key, d.Interface, m.Name)
			}
		}
	}
}

func (c *Checker) checkFunc(modSc *symtab.Scope, fd *ast.FuncDecl) {
	if fd.Body == nil {
		return // extern fn: no naml body to check
	}
	fnSc := symtab.NewScope(modSc)
	if fd.Recv != nil {
		fnSc.Define(&symtab.Symbol{Name: fd.Recv.Name, Kind: symtab.VarSym, Type: c.ResolveType(modSc, fd.Recv.Type)})
	}
	for _, g := range fd.Generics {
		fnSc.Define(&symtab.Symbol{Name: g.Name, Kind: symtab.TypeSym, Bounds: g.Bounds,
			Type: c.Store.Intern(&types.Type{Cat: types.InterfaceCat, Str: g.Name})})
	}
	for _, p := range fd.Params {
		fnSc.Define(&symtab.Symbol{Name: p.Name, Kind: symtab.VarSym, Type: c.ResolveType(fnSc, p.Type)})
	}
	var ret *types.Type
	if fd.Ret.Name != "" {
		ret = c.ResolveType(fnSc, fd.Ret)
	}
	ctx := &fnCtx{ret: ret, throws: fd.Throws}
	c.checkBlock(fnSc, fd.Body, ctx)
}

func (c *Checker) checkBlock(parent *symtab.Scope, b *ast.Block, ctx *fnCtx) {
	sc := symtab.NewScope(parent)
	for _, s := range b.Stmts {
		c.checkStmt(sc, s, ctx)
	}
}

func (c *Checker) checkStmt(sc *symtab.Scope, s ast.Stmt, ctx *fnCtx) {
	switch st := s.(type) {
	case *ast.VarDecl:
		want := c.ResolveType(sc, st.Type)
		if st.Expr != nil {
			got := c.inferExpr(sc, ctx, st.Expr)
			c.requireAssignable(st.Span(), want, got)
		}
		sc.Define(&symtab.Symbol{Name: st.Name, Kind: symtab.VarSym, Type: want})
	case *ast.ExprStmt:
		c.inferExpr(sc, ctx, st.Expr)
	case *ast.AssignStmt:
		want := c.inferExpr(sc, ctx, st.Target)
		got := c.inferExpr(sc, ctx, st.Value)
		c.requireAssignable(st.Span(), want, got)
	case *ast.ReturnStmt:
		if st.Value == nil {
			if ctx.ret != nil {
				c.errorf(st.Span(), diag.CodeTypeMismatch, "missing return value, expected %s", ctx.ret)
			}
			return
		}
		got := c.inferExpr(sc, ctx, st.Value)
		if ctx.ret == nil {
			c.errorf(st.Span(), diag.CodeTypeMismatch, "function declares no return type but return has a value")
			return
		}
		c.requireAssignable(st.Span(), ctx.ret, got)
	case *ast.BreakStmt:
		if ctx.loop == 0 {
			c.errorf(st.Span(), diag.CodeParseUnexpected, "break outside of a loop")
		}
	case *ast.ContinueStmt:
		if ctx.loop == 0 {
			c.errorf(st.Span(), diag.CodeParseUnexpected, "continue outside of a loop")
		}
	case *ast.ThrowStmt:
		got := c.inferExpr(sc, ctx, st.Value)
		if !inStrings(got.Name, ctx.throws) {
			c.errorf(st.Span(), diag.CodeThrowsNotDeclared, "throw of %s not in declared throw set %v", got.Name, ctx.throws)
		}
	case *ast.IfStmt:
		cond := c.inferExpr(sc, ctx, st.Cond)
		c.requireBool(st.Cond.Span(), cond)
		c.checkBlock(sc, st.Then, ctx)
		if st.Else != nil {
			c.checkStmt(sc, st.Else, ctx)
		}
	case *ast.ForStmt:
		loopSc := symtab.NewScope(sc)
		if st.Init != nil {
			c.checkStmt(loopSc, st.Init, ctx)
		}
		if st.Cond != nil {
			cond := c.inferExpr(loopSc, ctx, st.Cond)
			c.requireBool(st.Cond.Span(), cond)
		}
		if st.Post != nil {
			c.checkStmt(loopSc, st.Post, ctx)
		}
		inner := *ctx
		inner.loop++
		c.checkBlock(loopSc, st.Body, &inner)
	case *ast.ForInStmt:
		iter := c.inferExpr(sc, ctx, st.Iter)
		loopSc := symtab.NewScope(sc)
		var elemT *types.Type
		switch iter.Cat {
		case types.ArrayCat:
			elemT = iter.Elem
		case types.ChannelCat:
			elemT = iter.Elem
		case types.MapCat:
			elemT = iter.Elem
		default:
			c.errorf(st.Iter.Span(), diag.CodeTypeMismatch, "cannot iterate over %s", iter)
			elemT = c.Univ["nil"]
		}
		loopSc.Define(&symtab.Symbol{Name: st.Var, Kind: symtab.VarSym, Type: elemT})
		inner := *ctx
		inner.loop++
		c.checkBlock(loopSc, st.Body, &inner)
	case *ast.LockedStmt:
		target := c.inferExpr(sc, ctx, st.Target)
		var elemT *types.Type
		switch st.Mode {
		case ast.LockExclusive:
			if target.Cat != types.MutexCat {
				c.errorf(st.Target.Span(), diag.CodeTypeMismatch, "locked requires a mutex<T>, found %s", target)
			} else {
				elemT = target.Elem
			}
		default: // LockRead / LockWrite both operate on rwlock<T>
			if target.Cat != types.RwLockCat {
				c.errorf(st.Target.Span(), diag.CodeTypeMismatch, "rlocked/wlocked requires a rwlock<T>, found %s", target)
			} else {
				elemT = target.Elem
			}
		}
		lockSc := symtab.NewScope(sc)
		if elemT != nil {
			lockSc.Define(&symtab.Symbol{Name: st.Var, Kind: symtab.VarSym, Type: elemT})
		}
		c.checkBlock(lockSc, st.Body, ctx)
	case *ast.SpawnStmt:
		// spawn bodies run on a fresh scheduler task (spec.md §4.8): they
		// may neither return a value nor see the enclosing loop context.
		inner := &fnCtx{ret: nil, throws: nil}
		c.checkBlock(sc, st.Body, inner)
	case *ast.BlockStmt:
		c.checkBlock(sc, st.Block, ctx)
	}
}

func inStrings(s string, list []string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

func (c *Checker) requireBool(sp source.Span, t *types.Type) {
	if t.Cat != types.BoolCat {
		c.errorf(sp, diag.CodeTypeMismatch, "expected bool, found %s", t)
	}
}

func (c *Checker) requireAssignable(sp source.Span, want, got *types.Type) {
	if want == nil || got == nil {
		return
	}
	if want == got {
		return
	}
	if got.Untyped && want.IsNumeric() && got.IsNumeric() {
		return
	}
	if want.Cat == types.OptionCat && (got.Cat == types.NilCat || got == want.Elem) {
		return
	}
	c.errorf(sp, diag.CodeTypeMismatch, "%s", fmtTypeMismatch(want, got))
}

// inferExpr computes e's type and caches it in c.Types so a later IR
// lowering pass can look up every expression's type without re-running
// inference.
func (c *Checker) inferExpr(sc *symtab.Scope, ctx *fnCtx, e ast.Expr) *types.Type {
	t := c.inferExprRaw(sc, ctx, e)
	if c.Types == nil {
		c.Types = map[ast.Expr]*types.Type{}
	}
	c.Types[e] = t
	return t
}

func (c *Checker) inferExprRaw(sc *symtab.Scope, ctx *fnCtx, e ast.Expr) *types.Type {
	switch ex := e.(type) {
	case *ast.IntLit:
		return c.Univ["untyped int"]
	case *ast.FloatLit:
		return c.Univ["untyped float"]
	case *ast.StringLit:
		return c.Univ["string"]
	case *ast.BoolLit:
		return c.Univ["untyped bool"]
	case *ast.NoneLit:
		return c.Store.Option(c.Univ["nil"])
	case *ast.Ident:
		sym, ok := sc.Lookup(ex.Name)
		if !ok {
			c.errorf(ex.Span(), diag.CodeUndeclaredSymbol, "undeclared name %q", ex.Name)
			return c.Univ["nil"]
		}
		return sym.Type
	case *ast.UnaryExpr:
		t := c.inferExpr(sc, ctx, ex.Expr)
		switch ex.Op {
		case "!":
			return c.Univ["untyped bool"]
		default:
			return t
		}
	case *ast.BinaryExpr:
		return c.inferBinary(sc, ctx, ex)
	case *ast.TernaryExpr:
		cond := c.inferExpr(sc, ctx, ex.Cond)
		c.requireAssignable(ex.Cond.Span(), c.Univ["untyped bool"], cond)
		then := c.inferExpr(sc, ctx, ex.Then)
		els := c.inferExpr(sc, ctx, ex.Else)
		c.requireAssignable(ex.Else.Span(), then, els)
		return then
	case *ast.ElvisExpr:
		left := c.inferExpr(sc, ctx, ex.Left)
		right := c.inferExpr(sc, ctx, ex.Right)
		if left.Cat != types.OptionCat {
			c.errorf(ex.Left.Span(), diag.CodeOptionMisuse, "?: requires an option on the left, found %s", left)
			return right
		}
		c.requireAssignable(ex.Right.Span(), left.Elem, right)
		return left.Elem
	case *ast.CoalesceExpr:
		left := c.inferExpr(sc, ctx, ex.Left)
		right := c.inferExpr(sc, ctx, ex.Right)
		if left.Cat == types.OptionCat {
			c.requireAssignable(ex.Right.Span(), left.Elem, right)
			return left.Elem
		}
		return left
	case *ast.ForceUnwrapExpr:
		t := c.inferExpr(sc, ctx, ex.Value)
		if t.Cat != types.OptionCat {
			c.errorf(ex.Span(), diag.CodeOptionMisuse, "! requires an option, found %s", t)
			return t
		}
		return t.Elem
	case *ast.CallExpr:
		return c.inferCall(sc, ctx, ex)
	case *ast.IndexExpr:
		target := c.inferExpr(sc, ctx, ex.Target)
		idx := c.inferExpr(sc, ctx, ex.Index)
		switch target.Cat {
		case types.ArrayCat:
			c.requireAssignable(ex.Index.Span(), c.Univ["int"], idx)
			return target.Elem
		case types.MapCat:
			c.requireAssignable(ex.Index.Span(), target.Key, idx)
			return c.Store.Option(target.Elem)
		default:
			c.errorf(ex.Target.Span(), diag.CodeTypeMismatch, "cannot index %s", target)
			return c.Univ["nil"]
		}
	case *ast.FieldExpr:
		target := c.inferExpr(sc, ctx, ex.Target)
		for _, fld := range target.Fields {
			if fld.Name == ex.Name {
				return fld.Type
			}
		}
		name := target.Name
		for _, m := range c.Methods[name] {
			if m.Name() == ex.Name {
				params := make([]*types.Type, len(m.Params))
				for i, p := range m.Params {
					params[i] = c.ResolveType(sc, p.Type)
				}
				var ret *types.Type
				if m.Ret.Name != "" {
					ret = c.ResolveType(sc, m.Ret)
				}
				return c.Store.Func(params, ret, m.Throws)
			}
		}
		c.errorf(ex.Span(), diag.CodeMissingMethod, "%s has no field or method %q", target, ex.Name)
		return c.Univ["nil"]
	case *ast.CastExpr:
		c.inferExpr(sc, ctx, ex.Value)
		return c.ResolveType(sc, ex.Type)
	case *ast.CompositeLit:
		t := c.ResolveType(sc, ex.Type)
		switch t.Cat {
		case types.ArrayCat:
			for _, el := range ex.Elems {
				got := c.inferExpr(sc, ctx, el)
				c.requireAssignable(el.Span(), t.Elem, got)
			}
		case types.NamedCat, types.StructCat:
			for _, fld := range t.Fields {
				if v, ok := ex.Fields[fld.Name]; ok {
					got := c.inferExpr(sc, ctx, v)
					c.requireAssignable(v.Span(), fld.Type, got)
				}
			}
		}
		return t
	case *ast.FuncLit:
		litSc := symtab.NewScope(sc)
		params := make([]*types.Type, len(ex.Params))
		for i, p := range ex.Params {
			pt := c.ResolveType(litSc, p.Type)
			params[i] = pt
			litSc.Define(&symtab.Symbol{Name: p.Name, Kind: symtab.VarSym, Type: pt})
		}
		var ret *types.Type
		if ex.Ret.Name != "" {
			ret = c.ResolveType(litSc, ex.Ret)
		}
		c.checkBlock(litSc, ex.Body, &fnCtx{ret: ret})
		return c.Store.Func(params, ret, nil)
	case *ast.TryExpr:
		return c.inferExpr(sc, ctx, ex.Value)
	case *ast.CatchExpr:
		t := c.inferExpr(sc, ctx, ex.Value)
		catchSc := symtab.NewScope(sc)
		catchSc.Define(&symtab.Symbol{Name: ex.Binding, Kind: symtab.VarSym, Type: c.Store.Intern(&types.Type{Cat: types.ExceptionCat, Str: "exception"})})
		c.checkBlock(catchSc, ex.Body, ctx)
		return t
	}
	return c.Univ["nil"]
}

func (c *Checker) inferBinary(sc *symtab.Scope, ctx *fnCtx, ex *ast.BinaryExpr) *types.Type {
	l := c.inferExpr(sc, ctx, ex.Left)
	r := c.inferExpr(sc, ctx, ex.Right)
	switch ex.Op {
	case "==", "!=", "<", "<=", ">", ">=":
		if !l.Untyped && !r.Untyped && l != r {
			c.errorf(ex.Span(), diag.CodeTypeMismatch, "cannot compare %s and %s", l, r)
		}
		return c.Univ["untyped bool"]
	case "|", "^", "&", "<<", ">>":
		if !l.IsNumeric() || !r.IsNumeric() {
			c.errorf(ex.Span(), diag.CodeTypeMismatch, "bitwise operator requires integer operands, found %s and %s", l, r)
		}
		return l
	default: // + - * / %
		if !l.IsNumeric() && l.Cat != types.StringCat {
			c.errorf(ex.Left.Span(), diag.CodeTypeMismatch, "operator %s requires a numeric or string operand, found %s", ex.Op, l)
		}
		if !l.Untyped && !r.Untyped && l != r {
			c.errorf(ex.Span(), diag.CodeTypeMismatch, "%s", fmt.Sprintf("mismatched operand types %s and %s", l, r))
		}
		if l.Untyped {
			return r
		}
		return l
	}
}

func (c *Checker) inferCall(sc *symtab.Scope, ctx *fnCtx, ex *ast.CallExpr) *types.Type {
	// join() is the one builtin free function naml exposes (spec.md
	// §4.7/§5): it takes no scope entry because it isn't user-definable,
	// so it's special-cased ahead of the normal callee lookup instead
	// of being pre-seeded into every symtab.Scope.
	if id, ok := ex.Callee.(*ast.Ident); ok && id.Name == "join" {
		if len(ex.Args) != 0 {
			c.errorf(ex.Span(), diag.CodeGenericArityMismatch, "join expects no arguments, found %d", len(ex.Args))
		}
		return c.Univ["nil"]
	}
	ft := c.inferExpr(sc, ctx, ex.Callee)
	argTypes := make([]*types.Type, len(ex.Args))
	for i, a := range ex.Args {
		argTypes[i] = c.inferExpr(sc, ctx, a)
	}
	if ft.Cat != types.FuncCat {
		c.errorf(ex.Callee.Span(), diag.CodeTypeMismatch, "cannot call non-function type %s", ft)
		return c.Univ["nil"]
	}
	if len(ft.Params) != len(ex.Args) {
		c.errorf(ex.Span(), diag.CodeGenericArityMismatch, "expected %d arguments, found %d", len(ft.Params), len(ex.Args))
	} else {
		for i, p := range ft.Params {
			c.requireAssignable(ex.Args[i].Span(), p, argTypes[i])
		}
	}
	if !throwsSubset(ft.Throws, ctx.throws) {
		c.errorf(ex.Span(), diag.CodeThrowsNotDeclared, "call may throw %v, not declared in enclosing function's throw set %v", ft.Throws, ctx.throws)
	}
	if ft.Ret == nil {
		return c.Univ["nil"]
	}
	return ft.Ret
}
