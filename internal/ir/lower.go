package ir

import (
	"fmt"
	"strconv"

	"github.com/naml-lang/naml/internal/ast"
	"github.com/naml-lang/naml/internal/check"
	"github.com/naml-lang/naml/internal/symtab"
	"github.com/naml-lang/naml/internal/types"
)

// Lowerer turns a type-checked *ast.File into ir.Func values, one per
// declared function and method. It reuses the Checker's Types cache
// instead of re-running inference, and its Methods table to find the
// method bodies it lowers.
type Lowerer struct {
	chk *check.Checker
	sc  *symtab.Scope
	mod *Module         // module under construction; spawn bodies append their own synthetic Func here
	fns map[string]*Func // every module-level func/method, by name, for direct-call resolution

	f         *Func
	block     *Block
	done      bool // true once the current block has a terminator
	slots     map[string]int
	slotTypes map[string]*types.Type
	nextSlot  int
	locals    []localSlot // declaration order, for scope-exit release

	loops []loopCtx
	pads  []LandingPad
}

type localSlot struct {
	name string
	slot int
	typ  *types.Type
}

type loopCtx struct {
	cont  *Block
	brk   *Block
}

// Lower builds one ir.Module from every function and method the checker
// registered for f's module. Every declaration's Func is allocated up
// front and registered in fns before any body is lowered, so a call
// site — including a self- or mutually-recursive one — always finds its
// callee's Func regardless of declaration order (spec.md §4.5 "direct
// calls resolve at lower time, not link time").
func Lower(chk *check.Checker, modPath string, f *ast.File) *Module {
	m := &Module{}
	sc := chk.Table.Module(modPath)

	var decls []*ast.FuncDecl
	for _, it := range f.Items {
		if fd, ok := it.(*ast.FuncDecl); ok && fd.Recv == nil {
			decls = append(decls, fd)
		}
	}
	for _, fds := range chk.Methods {
		decls = append(decls, fds...)
	}

	fns := map[string]*Func{}
	for _, fd := range decls {
		fns[fd.Name()] = NewFunc(fd.Name())
	}

	for _, fd := range decls {
		lw := &Lowerer{chk: chk, sc: sc, mod: m, fns: fns, f: fns[fd.Name()]}
		lw.lowerFunc(fd)
		m.Funcs = append(m.Funcs, lw.f)
	}
	return m
}

// isBoxed reports whether a value of type t lives on the reference-
// counted heap and therefore needs retain/release bookkeeping
// (spec.md §4.6).
func isBoxed(t *types.Type) bool {
	switch t.Cat {
	case types.StringCat, types.BytesCat, types.ArrayCat, types.MapCat,
		types.StructCat, types.NamedCat, types.EnumCat, types.InterfaceCat,
		types.MutexCat, types.RwLockCat, types.AtomicCat, types.ChannelCat,
		types.ClosureCat, types.ExceptionCat:
		return true
	case types.OptionCat:
		return isBoxed(t.Elem)
	}
	return false
}

func (lw *Lowerer) lowerFunc(fd *ast.FuncDecl) *Func {
	f := lw.f
	lw.slots = map[string]int{}
	lw.slotTypes = map[string]*types.Type{}
	lw.nextSlot = 0
	lw.locals = nil

	if fd.Extern {
		f.Extern = true
		f.ExternSym = fd.Name()
		return f
	}

	entry := f.NewBlock("entry")
	lw.block = entry
	lw.done = false

	if fd.Recv != nil {
		rt := lw.chk.ResolveType(lw.sc, fd.Recv.Type)
		f.Recv = rt
		lw.bindParam(fd.Recv.Name, rt, 0)
	}
	f.ParamNames = make([]string, len(fd.Params))
	f.ParamTypes = make([]*types.Type, len(fd.Params))
	off := 0
	if fd.Recv != nil {
		off = 1
	}
	for i, p := range fd.Params {
		pt := lw.chk.ResolveType(lw.sc, p.Type)
		f.ParamNames[i] = p.Name
		f.ParamTypes[i] = pt
		lw.bindParam(p.Name, pt, i+off)
	}
	if fd.Ret.Name != "" {
		f.Ret = lw.chk.ResolveType(lw.sc, fd.Ret)
	}
	f.Throws = fd.Throws

	lw.lowerBlock(fd.Body)
	if !lw.done {
		lw.releaseLiveLocals(nil)
		lw.block.Term = Terminator{Kind: TermReturn}
	}
	f.LinkPreds()
	f.LandingPads = lw.pads
	return f
}

func (lw *Lowerer) bindParam(name string, t *types.Type, index int) {
	slot := lw.newSlot(name, t)
	v := lw.block.Emit(Instr{Op: OpParam, Result: lw.f.NewValue(t), IntImm: int64(index)})
	lw.block.Emit(Instr{Op: OpStore, Index: slot, Args: []*Value{v}})
}

func (lw *Lowerer) newSlot(name string, t *types.Type) int {
	slot := lw.nextSlot
	lw.nextSlot++
	lw.slots[name] = slot
	lw.slotTypes[name] = t
	lw.locals = append(lw.locals, localSlot{name: name, slot: slot, typ: t})
	return slot
}

func (lw *Lowerer) lowerBlock(b *ast.Block) {
	for _, s := range b.Stmts {
		if lw.done {
			return
		}
		lw.lowerStmt(s)
	}
}

// releaseLiveLocals emits a release for every boxed local currently in
// scope, skipping skip if it names a local whose current value is being
// returned/thrown (spec.md §4.4 "return/scope exit inserts release for
// every boxed local still live and not returned").
func (lw *Lowerer) releaseLiveLocals(skip *Value) {
	skipSlot := -1
	for _, in := range lw.block.Instr {
		if skip != nil && in.Op == OpLoad && in.Result == skip {
			skipSlot = in.Index
		}
	}
	for _, l := range lw.locals {
		if !isBoxed(l.typ) || l.slot == skipSlot {
			continue
		}
		v := lw.block.Emit(Instr{Op: OpLoad, Result: lw.f.NewValue(l.typ), Index: l.slot})
		lw.block.Emit(Instr{Op: OpRelease, Args: []*Value{v}})
	}
}

func (lw *Lowerer) lowerStmt(s ast.Stmt) {
	switch st := s.(type) {
	case *ast.VarDecl:
		t := lw.chk.ResolveType(lw.sc, st.Type)
		var v *Value
		if st.Expr != nil {
			v = lw.lowerExpr(st.Expr)
		} else {
			v = lw.zeroValue(t)
		}
		if isBoxed(t) {
			lw.block.Emit(Instr{Op: OpRetain, Args: []*Value{v}})
		}
		slot := lw.newSlot(st.Name, t)
		lw.block.Emit(Instr{Op: OpStore, Index: slot, Args: []*Value{v}})

	case *ast.ExprStmt:
		lw.lowerExpr(st.Expr)

	case *ast.AssignStmt:
		val := lw.lowerExpr(st.Value)
		switch tgt := st.Target.(type) {
		case *ast.Ident:
			slot, ok := lw.slots[tgt.Name]
			if !ok {
				return
			}
			t := lw.slotTypes[tgt.Name]
			if isBoxed(t) {
				old := lw.block.Emit(Instr{Op: OpLoad, Result: lw.f.NewValue(t), Index: slot})
				lw.block.Emit(Instr{Op: OpRetain, Args: []*Value{val}})
				lw.block.Emit(Instr{Op: OpRelease, Args: []*Value{old}})
			}
			lw.block.Emit(Instr{Op: OpStore, Index: slot, Args: []*Value{val}})
		case *ast.FieldExpr:
			target := lw.lowerExpr(tgt.Target)
			lw.block.Emit(Instr{Op: OpFieldSet, Args: []*Value{target, val}, Field: tgt.Name})
		case *ast.IndexExpr:
			target := lw.lowerExpr(tgt.Target)
			idx := lw.lowerExpr(tgt.Index)
			lw.block.Emit(Instr{Op: OpIndexSet, Args: []*Value{target, idx, val}})
		}

	case *ast.ReturnStmt:
		var v *Value
		if st.Value != nil {
			v = lw.lowerExpr(st.Value)
		}
		lw.releaseLiveLocals(v)
		lw.block.Term = Terminator{Kind: TermReturn, Value: v, Sp: st.Span()}
		lw.done = true

	case *ast.ThrowStmt:
		v := lw.lowerExpr(st.Value)
		lw.releaseLiveLocals(v)
		lw.block.Term = Terminator{Kind: TermThrow, Value: v, Sp: st.Span()}
		lw.done = true

	case *ast.BreakStmt:
		if len(lw.loops) > 0 {
			top := lw.loops[len(lw.loops)-1]
			lw.block.Term = Terminator{Kind: TermJump, Then: top.brk}
			lw.done = true
		}

	case *ast.ContinueStmt:
		if len(lw.loops) > 0 {
			top := lw.loops[len(lw.loops)-1]
			lw.block.Term = Terminator{Kind: TermJump, Then: top.cont}
			lw.done = true
		}

	case *ast.IfStmt:
		lw.lowerIf(st)

	case *ast.ForStmt:
		lw.lowerFor(st)

	case *ast.ForInStmt:
		lw.lowerForIn(st)

	case *ast.LockedStmt:
		lw.lowerLocked(st)

	case *ast.SpawnStmt:
		lw.lowerSpawn(st)

	case *ast.BlockStmt:
		lw.lowerBlock(st.Block)
	}
}

func (lw *Lowerer) zeroValue(t *types.Type) *Value {
	switch t.Cat {
	case types.StringCat:
		return lw.block.Emit(Instr{Op: OpConstString, Result: lw.f.NewValue(t), StrImm: ""})
	case types.BoolCat:
		return lw.block.Emit(Instr{Op: OpConstBool, Result: lw.f.NewValue(t), BoolImm: false})
	case types.Float32Cat, types.Float64Cat:
		return lw.block.Emit(Instr{Op: OpConstFloat, Result: lw.f.NewValue(t), FltImm: 0})
	case types.OptionCat:
		return lw.block.Emit(Instr{Op: OpConstNone, Result: lw.f.NewValue(t)})
	default:
		return lw.block.Emit(Instr{Op: OpConstInt, Result: lw.f.NewValue(t), IntImm: 0})
	}
}

func (lw *Lowerer) lowerIf(st *ast.IfStmt) {
	cond := lw.lowerExpr(st.Cond)
	thenB := lw.f.NewBlock("if.then")
	var elseB *Block
	mergeB := lw.f.NewBlock("if.end")

	cur := lw.block
	if st.Else != nil {
		elseB = lw.f.NewBlock("if.else")
		cur.Term = Terminator{Kind: TermBranch, Cond: cond, Then: thenB, Else: elseB}
	} else {
		cur.Term = Terminator{Kind: TermBranch, Cond: cond, Then: thenB, Else: mergeB}
	}

	lw.block, lw.done = thenB, false
	lw.lowerBlock(st.Then)
	if !lw.done {
		lw.block.Term = Terminator{Kind: TermJump, Then: mergeB}
	}

	if st.Else != nil {
		lw.block, lw.done = elseB, false
		lw.lowerStmt(st.Else)
		if !lw.done {
			lw.block.Term = Terminator{Kind: TermJump, Then: mergeB}
		}
	}

	lw.block, lw.done = mergeB, false
}

func (lw *Lowerer) lowerFor(st *ast.ForStmt) {
	if st.Init != nil {
		lw.lowerStmt(st.Init)
	}
	condB := lw.f.NewBlock("for.cond")
	bodyB := lw.f.NewBlock("for.body")
	postB := lw.f.NewBlock("for.post")
	afterB := lw.f.NewBlock("for.end")

	lw.block.Term = Terminator{Kind: TermJump, Then: condB}
	lw.block, lw.done = condB, false
	if st.Cond != nil {
		cond := lw.lowerExpr(st.Cond)
		lw.block.Term = Terminator{Kind: TermBranch, Cond: cond, Then: bodyB, Else: afterB}
	} else {
		lw.block.Term = Terminator{Kind: TermJump, Then: bodyB}
	}

	lw.loops = append(lw.loops, loopCtx{cont: postB, brk: afterB})
	lw.block, lw.done = bodyB, false
	lw.lowerBlock(st.Body)
	if !lw.done {
		lw.block.Term = Terminator{Kind: TermJump, Then: postB}
	}
	lw.loops = lw.loops[:len(lw.loops)-1]

	lw.block, lw.done = postB, false
	if st.Post != nil {
		lw.lowerStmt(st.Post)
	}
	if !lw.done {
		lw.block.Term = Terminator{Kind: TermJump, Then: condB}
	}

	lw.block, lw.done = afterB, false
}

func (lw *Lowerer) lowerForIn(st *ast.ForInStmt) {
	iterT := lw.chk.Types[st.Iter]
	if iterT == nil {
		iterT = lw.chk.Univ["nil"]
	}
	iter := lw.lowerExpr(st.Iter)

	idxT := lw.chk.Univ["int"]
	idxSlot := lw.newSlot("$idx", idxT)
	zero := lw.block.Emit(Instr{Op: OpConstInt, Result: lw.f.NewValue(idxT), IntImm: 0})
	lw.block.Emit(Instr{Op: OpStore, Index: idxSlot, Args: []*Value{zero}})

	condB := lw.f.NewBlock("forin.cond")
	bodyB := lw.f.NewBlock("forin.body")
	postB := lw.f.NewBlock("forin.post")
	afterB := lw.f.NewBlock("forin.end")

	lw.block.Term = Terminator{Kind: TermJump, Then: condB}
	lw.block, lw.done = condB, false
	idx := lw.block.Emit(Instr{Op: OpLoad, Result: lw.f.NewValue(idxT), Index: idxSlot})
	length := lw.block.Emit(Instr{Op: OpArrayLen, Result: lw.f.NewValue(idxT), Args: []*Value{iter}})
	cond := lw.block.Emit(Instr{Op: OpCmpLt, Result: lw.f.NewValue(lw.chk.Univ["untyped bool"]), Args: []*Value{idx, length}})
	lw.block.Term = Terminator{Kind: TermBranch, Cond: cond, Then: bodyB, Else: afterB}

	elemT := iterT.Elem
	if elemT == nil {
		elemT = lw.chk.Univ["nil"]
	}
	lw.block, lw.done = bodyB, false
	idx2 := lw.block.Emit(Instr{Op: OpLoad, Result: lw.f.NewValue(idxT), Index: idxSlot})
	elem := lw.block.Emit(Instr{Op: OpIndexGet, Result: lw.f.NewValue(elemT), Args: []*Value{iter, idx2}})
	elemSlot := lw.newSlot(st.Var, elemT)
	lw.block.Emit(Instr{Op: OpStore, Index: elemSlot, Args: []*Value{elem}})

	lw.loops = append(lw.loops, loopCtx{cont: postB, brk: afterB})
	lw.lowerBlock(st.Body)
	if !lw.done {
		lw.block.Term = Terminator{Kind: TermJump, Then: postB}
	}
	lw.loops = lw.loops[:len(lw.loops)-1]

	lw.block, lw.done = postB, false
	idx3 := lw.block.Emit(Instr{Op: OpLoad, Result: lw.f.NewValue(idxT), Index: idxSlot})
	one := lw.block.Emit(Instr{Op: OpConstInt, Result: lw.f.NewValue(idxT), IntImm: 1})
	next := lw.block.Emit(Instr{Op: OpAdd, Result: lw.f.NewValue(idxT), Args: []*Value{idx3, one}})
	lw.block.Emit(Instr{Op: OpStore, Index: idxSlot, Args: []*Value{next}})
	lw.block.Term = Terminator{Kind: TermJump, Then: condB}

	lw.block, lw.done = afterB, false
}

// lowerLocked implements spec.md §4.4's fixed lowering for locked/
// rlocked/wlocked: acquire, bind a mutable snapshot, run the body with
// stores writing back to the snapshot, release on every exit path.
func (lw *Lowerer) lowerLocked(st *ast.LockedStmt) {
	target := lw.lowerExpr(st.Target)
	var lockOp, unlockOp, readOp Op
	switch st.Mode {
	case ast.LockExclusive:
		lockOp, unlockOp, readOp = OpMutexLock, OpMutexUnlock, OpMutexRead
	case ast.LockRead:
		lockOp, unlockOp, readOp = OpRwLockRLock, OpRwLockUnlock, OpMutexRead
	default:
		lockOp, unlockOp, readOp = OpRwLockWLock, OpRwLockUnlock, OpMutexRead
	}
	lw.block.Emit(Instr{Op: lockOp, Args: []*Value{target}})
	elemT := lw.chk.Univ["nil"]
	targetT := lw.chk.Types[st.Target]
	if targetT != nil && targetT.Elem != nil {
		elemT = targetT.Elem
	}
	snap := lw.block.Emit(Instr{Op: readOp, Result: lw.f.NewValue(elemT), Args: []*Value{target}})
	slot := lw.newSlot(st.Var, elemT)
	lw.block.Emit(Instr{Op: OpStore, Index: slot, Args: []*Value{snap}})

	lw.lowerBlock(st.Body)

	if !lw.done {
		final := lw.block.Emit(Instr{Op: OpLoad, Result: lw.f.NewValue(elemT), Index: slot})
		lw.block.Emit(Instr{Op: OpMutexWrite, Args: []*Value{target, final}})
		lw.block.Emit(Instr{Op: unlockOp, Args: []*Value{target}})
	}
}

// lowerSpawn lowers st.Body into its own ir.Func — a task entry point
// appended to the module alongside every declared function — then
// builds a closure over it and hands that closure to the scheduler's
// enqueue host function (spec.md §4.4/§4.7). The task needs to see
// every local live at the spawn site, so lowerSpawn packs them into a
// heap-allocated environment struct (retaining boxed ones before the
// closure can outlive this frame), one field per local keyed by its
// positional index, and the task's own prologue unpacks that same
// struct back into freshly bound locals of the same names, mirroring
// how bindParam seeds an ordinary function's parameters. A struct
// rather than an array: naml_alloc always produces a StructPayload
// (internal/runtime's hostAlloc), so FieldGet/FieldSet is the
// allocation kind that's actually backed end to end.
func (lw *Lowerer) lowerSpawn(st *ast.SpawnStmt) {
	envT := lw.chk.Store.Intern(&types.Type{Cat: types.StructCat, Str: "struct<spawn env>"})
	env := lw.block.Emit(Instr{Op: OpAlloc, Result: lw.f.NewValue(envT), Sp: st.Span()})
	for i, l := range lw.locals {
		v := lw.block.Emit(Instr{Op: OpLoad, Result: lw.f.NewValue(l.typ), Index: l.slot})
		if isBoxed(l.typ) {
			lw.block.Emit(Instr{Op: OpRetain, Args: []*Value{v}})
		}
		lw.block.Emit(Instr{Op: OpFieldSet, Args: []*Value{env, v}, Field: strconv.Itoa(i)})
	}

	task := lw.lowerSpawnTask(st)
	lw.mod.Funcs = append(lw.mod.Funcs, task)
	lw.fns[task.Name] = task

	closureT := lw.chk.Store.Intern(&types.Type{Cat: types.ClosureCat, Str: "closure<spawn>"})
	closure := lw.block.Emit(Instr{Op: OpMakeClosure, Result: lw.f.NewValue(closureT), Args: []*Value{env}, Callee: task, Sp: st.Span()})
	lw.block.Emit(Instr{Op: OpSchedEnqueue, Args: []*Value{closure}, Sp: st.Span()})
}

// lowerSpawnTask lowers st.Body as an independent nullary-return Func
// whose sole incoming argument is the environment struct lowerSpawn
// built; its prologue rebinds every captured name to env.<i> before
// running the body under a fresh Lowerer. generateFunc's prologue
// spills argRegs into ParamTypes-declared slots, so the task needs one
// declared parameter just like any ordinary naml function.
func (lw *Lowerer) lowerSpawnTask(st *ast.SpawnStmt) *Func {
	task := NewFunc(fmt.Sprintf("%s$spawn%d", lw.f.Name, len(lw.mod.Funcs)))
	anyT := lw.chk.Univ["nil"]
	task.ParamTypes = []*types.Type{anyT}
	task.ParamNames = []string{"$env"}

	sub := &Lowerer{chk: lw.chk, sc: lw.sc, mod: lw.mod, fns: lw.fns, f: task}
	sub.slots = map[string]int{}
	sub.slotTypes = map[string]*types.Type{}

	entry := task.NewBlock("entry")
	sub.block, sub.done = entry, false

	envParam := entry.Emit(Instr{Op: OpParam, Result: task.NewValue(anyT), IntImm: 0})
	for i, l := range lw.locals {
		v := entry.Emit(Instr{Op: OpFieldGet, Result: task.NewValue(l.typ), Args: []*Value{envParam}, Field: strconv.Itoa(i)})
		slot := sub.newSlot(l.name, l.typ)
		entry.Emit(Instr{Op: OpStore, Index: slot, Args: []*Value{v}})
	}

	sub.lowerBlock(st.Body)
	if !sub.done {
		sub.releaseLiveLocals(nil)
		sub.block.Term = Terminator{Kind: TermReturn}
	}
	task.LinkPreds()
	task.LandingPads = sub.pads
	return task
}

func (lw *Lowerer) lowerExpr(e ast.Expr) *Value {
	t := lw.chk.Types[e]
	if t == nil {
		t = lw.chk.Univ["nil"]
	}
	switch ex := e.(type) {
	case *ast.IntLit:
		return lw.block.Emit(Instr{Op: OpConstInt, Result: lw.f.NewValue(t), IntImm: ex.Value, Sp: ex.Span()})
	case *ast.FloatLit:
		return lw.block.Emit(Instr{Op: OpConstFloat, Result: lw.f.NewValue(t), FltImm: ex.Value, Sp: ex.Span()})
	case *ast.StringLit:
		return lw.block.Emit(Instr{Op: OpConstString, Result: lw.f.NewValue(t), StrImm: ex.Value, Sp: ex.Span()})
	case *ast.BoolLit:
		return lw.block.Emit(Instr{Op: OpConstBool, Result: lw.f.NewValue(t), BoolImm: ex.Value, Sp: ex.Span()})
	case *ast.NoneLit:
		return lw.block.Emit(Instr{Op: OpConstNone, Result: lw.f.NewValue(t), Sp: ex.Span()})
	case *ast.Ident:
		slot, ok := lw.slots[ex.Name]
		if !ok {
			return lw.block.Emit(Instr{Op: OpConstNone, Result: lw.f.NewValue(t)})
		}
		return lw.block.Emit(Instr{Op: OpLoad, Result: lw.f.NewValue(t), Index: slot, Sp: ex.Span()})
	case *ast.UnaryExpr:
		v := lw.lowerExpr(ex.Expr)
		op := OpNeg
		if ex.Op == "!" {
			op = OpNot
		}
		return lw.block.Emit(Instr{Op: op, Result: lw.f.NewValue(t), Args: []*Value{v}, Sp: ex.Span()})
	case *ast.BinaryExpr:
		l := lw.lowerExpr(ex.Left)
		r := lw.lowerExpr(ex.Right)
		return lw.block.Emit(Instr{Op: binOp(ex.Op), Result: lw.f.NewValue(t), Args: []*Value{l, r}, Sp: ex.Span()})
	case *ast.ForceUnwrapExpr:
		v := lw.lowerExpr(ex.Value)
		return lw.block.Emit(Instr{Op: OpOptionUnwrap, Result: lw.f.NewValue(t), Args: []*Value{v}, Sp: ex.Span()})
	case *ast.CallExpr:
		return lw.lowerCall(ex, t)
	case *ast.IndexExpr:
		target := lw.lowerExpr(ex.Target)
		idx := lw.lowerExpr(ex.Index)
		return lw.block.Emit(Instr{Op: OpIndexGet, Result: lw.f.NewValue(t), Args: []*Value{target, idx}, Sp: ex.Span()})
	case *ast.FieldExpr:
		target := lw.lowerExpr(ex.Target)
		return lw.block.Emit(Instr{Op: OpFieldGet, Result: lw.f.NewValue(t), Args: []*Value{target}, Field: ex.Name, Sp: ex.Span()})
	case *ast.CastExpr:
		v := lw.lowerExpr(ex.Value)
		return lw.block.Emit(Instr{Op: OpCast, Result: lw.f.NewValue(t), Args: []*Value{v}, Sp: ex.Span()})
	case *ast.CompositeLit:
		return lw.lowerComposite(ex, t)
	case *ast.FuncLit:
		closureT := t
		return lw.block.Emit(Instr{Op: OpMakeClosure, Result: lw.f.NewValue(closureT), Sp: ex.Span()})
	case *ast.TryExpr:
		return lw.lowerExpr(ex.Value)
	case *ast.CatchExpr:
		return lw.lowerCatch(ex, t)
	case *ast.TernaryExpr:
		return lw.lowerTernary(ex, t)
	case *ast.ElvisExpr, *ast.CoalesceExpr:
		return lw.lowerOptionalFallback(ex, t)
	}
	return lw.block.Emit(Instr{Op: OpConstNone, Result: lw.f.NewValue(t)})
}

func binOp(op string) Op {
	switch op {
	case "+":
		return OpAdd
	case "-":
		return OpSub
	case "*":
		return OpMul
	case "/":
		return OpDiv
	case "%":
		return OpMod
	case "&":
		return OpAnd
	case "|":
		return OpOr
	case "^":
		return OpXor
	case "<<":
		return OpShl
	case ">>":
		return OpShr
	case "==":
		return OpCmpEq
	case "!=":
		return OpCmpNe
	case "<":
		return OpCmpLt
	case "<=":
		return OpCmpLe
	case ">":
		return OpCmpGt
	case ">=":
		return OpCmpGe
	}
	return OpAdd
}

func (lw *Lowerer) lowerCall(ex *ast.CallExpr, t *types.Type) *Value {
	// join() lowers straight to the wait-all host call; it has no
	// checker-assigned scope entry to resolve a name against (see
	// inferCall's matching special case).
	if id, ok := ex.Callee.(*ast.Ident); ok && id.Name == "join" {
		return lw.block.Emit(Instr{Op: OpSchedWaitAll, Sp: ex.Span()})
	}

	args := make([]*Value, 0, len(ex.Args)+1)
	var name string
	switch callee := ex.Callee.(type) {
	case *ast.Ident:
		name = callee.Name
	case *ast.FieldExpr:
		recv := lw.lowerExpr(callee.Target)
		args = append(args, recv)
		name = callee.Name
	default:
		lw.lowerExpr(ex.Callee)
	}
	for _, a := range ex.Args {
		args = append(args, lw.lowerExpr(a))
	}
	// A name found in fns is a module-level func or method lowered in
	// this same Generate call, so codegen can call it by a rel32 offset
	// within the shared code buffer (encodeCallDirect); anything else
	// (an unresolved host/std-lib name) stays an indirect call.
	direct := lw.fns[name]
	return lw.block.Emit(Instr{Op: OpCall, Result: lw.f.NewValue(t), Args: args, StrImm: name, Callee: direct, Sp: ex.Span()})
}

func (lw *Lowerer) lowerComposite(ex *ast.CompositeLit, t *types.Type) *Value {
	alloc := lw.block.Emit(Instr{Op: OpAlloc, Result: lw.f.NewValue(t), Sp: ex.Span()})
	switch t.Cat {
	case types.ArrayCat:
		for _, el := range ex.Elems {
			v := lw.lowerExpr(el)
			lw.block.Emit(Instr{Op: OpIndexSet, Args: []*Value{alloc, v}})
		}
	default:
		for _, name := range ex.FieldOrd {
			v := lw.lowerExpr(ex.Fields[name])
			lw.block.Emit(Instr{Op: OpFieldSet, Args: []*Value{alloc, v}, Field: name})
		}
	}
	return alloc
}

func (lw *Lowerer) lowerCatch(ex *ast.CatchExpr, t *types.Type) *Value {
	handler := lw.f.NewBlock("catch.handler")
	lw.pads = append(lw.pads, LandingPad{Handler: handler})

	v := lw.lowerExpr(ex.Value)

	lw.pads = lw.pads[:len(lw.pads)-1]

	savedBlock, savedDone := lw.block, lw.done
	merge := lw.f.NewBlock("catch.end")
	if !savedDone {
		savedBlock.Term = Terminator{Kind: TermJump, Then: merge}
	}

	lw.block, lw.done = handler, false
	excT := lw.chk.Store.Intern(&types.Type{Cat: types.ExceptionCat, Str: "exception"})
	slot := lw.newSlot(ex.Binding, excT)
	caught := lw.block.Emit(Instr{Op: OpParam, Result: lw.f.NewValue(excT)})
	lw.block.Emit(Instr{Op: OpStore, Index: slot, Args: []*Value{caught}})
	lw.lowerBlock(ex.Body)
	if !lw.done {
		lw.block.Term = Terminator{Kind: TermJump, Then: merge}
	}

	lw.block, lw.done = merge, false
	return v
}

func (lw *Lowerer) lowerTernary(ex *ast.TernaryExpr, t *types.Type) *Value {
	cond := lw.lowerExpr(ex.Cond)
	thenB := lw.f.NewBlock("tern.then")
	elseB := lw.f.NewBlock("tern.else")
	merge := lw.f.NewBlock("tern.end")
	lw.block.Term = Terminator{Kind: TermBranch, Cond: cond, Then: thenB, Else: elseB}

	lw.block, lw.done = thenB, false
	thenV := lw.lowerExpr(ex.Then)
	thenEnd := lw.block
	thenEnd.Term = Terminator{Kind: TermJump, Then: merge}

	lw.block, lw.done = elseB, false
	elseV := lw.lowerExpr(ex.Else)
	elseEnd := lw.block
	elseEnd.Term = Terminator{Kind: TermJump, Then: merge}

	lw.block, lw.done = merge, false
	return merge.Emit(Instr{Op: OpPhi, Result: lw.f.NewValue(t), Args: []*Value{thenV, elseV}})
}

// lowerOptionalFallback lowers both `?:` (elvis) and `??` (coalesce):
// evaluate the option-typed left side, branch on whether it holds a
// value, and phi the unwrapped value with the right-hand fallback.
func (lw *Lowerer) lowerOptionalFallback(e ast.Expr, t *types.Type) *Value {
	var left, right ast.Expr
	switch ex := e.(type) {
	case *ast.ElvisExpr:
		left, right = ex.Left, ex.Right
	case *ast.CoalesceExpr:
		left, right = ex.Left, ex.Right
	}
	lv := lw.lowerExpr(left)
	hasVal := lw.block.Emit(Instr{Op: OpOptionLift, Result: lw.f.NewValue(lw.chk.Univ["untyped bool"]), Args: []*Value{lv}})

	someB := lw.f.NewBlock("opt.some")
	noneB := lw.f.NewBlock("opt.none")
	merge := lw.f.NewBlock("opt.end")
	lw.block.Term = Terminator{Kind: TermBranch, Cond: hasVal, Then: someB, Else: noneB}

	lw.block, lw.done = someB, false
	unwrapped := lw.block.Emit(Instr{Op: OpOptionUnwrap, Result: lw.f.NewValue(t), Args: []*Value{lv}})
	lw.block.Term = Terminator{Kind: TermJump, Then: merge}

	lw.block, lw.done = noneB, false
	fallback := lw.lowerExpr(right)
	lw.block.Term = Terminator{Kind: TermJump, Then: merge}

	lw.block, lw.done = merge, false
	return merge.Emit(Instr{Op: OpPhi, Result: lw.f.NewValue(t), Args: []*Value{unwrapped, fallback}})
}
