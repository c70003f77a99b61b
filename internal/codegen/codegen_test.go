package codegen

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/naml-lang/naml/internal/ir"
	"github.com/naml-lang/naml/internal/types"
)

func constFunc(name string, n int64) *ir.Func {
	f := ir.NewFunc(name)
	b := f.NewBlock("entry")
	v := b.Emit(ir.Instr{Op: ir.OpConstInt, Result: f.NewValue(nil), IntImm: n})
	b.Term = ir.Terminator{Kind: ir.TermReturn, Value: v}
	f.Ret = &types.Type{Cat: types.IntCat}
	return f
}

func TestGenerateSingleConstFunc(t *testing.T) {
	mod := &ir.Module{Funcs: []*ir.Func{constFunc("answer", 42)}}

	prog, err := Generate(mod)
	require.NoError(t, err)
	require.NotEmpty(t, prog.Code)
	require.Contains(t, prog.Entry, "answer")
	require.Equal(t, 0, prog.Entry["answer"])
}

func TestGenerateBranchingFunc(t *testing.T) {
	f := ir.NewFunc("pick")
	entry := f.NewBlock("entry")
	thenB := f.NewBlock("then")
	elseB := f.NewBlock("else")
	merge := f.NewBlock("merge")

	cond := entry.Emit(ir.Instr{Op: ir.OpConstBool, Result: f.NewValue(nil), BoolImm: true})
	entry.Term = ir.Terminator{Kind: ir.TermBranch, Cond: cond, Then: thenB, Else: elseB}

	thenV := thenB.Emit(ir.Instr{Op: ir.OpConstInt, Result: f.NewValue(nil), IntImm: 1})
	thenB.Term = ir.Terminator{Kind: ir.TermJump, Then: merge}

	elseV := elseB.Emit(ir.Instr{Op: ir.OpConstInt, Result: f.NewValue(nil), IntImm: 2})
	elseB.Term = ir.Terminator{Kind: ir.TermJump, Then: merge}

	phi := merge.Emit(ir.Instr{Op: ir.OpPhi, Result: f.NewValue(nil), Args: []*ir.Value{thenV, elseV}})
	merge.Term = ir.Terminator{Kind: ir.TermReturn, Value: phi}

	mod := &ir.Module{Funcs: []*ir.Func{f}}
	prog, err := Generate(mod)
	require.NoError(t, err)
	require.NotEmpty(t, prog.Code)
}

func TestGenerateHostCallAssignsStableSlots(t *testing.T) {
	f := ir.NewFunc("retain_one")
	b := f.NewBlock("entry")
	v := b.Emit(ir.Instr{Op: ir.OpConstInt, Result: f.NewValue(nil), IntImm: 7})
	b.Emit(ir.Instr{Op: ir.OpRetain, Args: []*ir.Value{v}})
	b.Term = ir.Terminator{Kind: ir.TermReturn, Value: v}

	mod := &ir.Module{Funcs: []*ir.Func{f}}
	prog, err := Generate(mod)
	require.NoError(t, err)
	require.Contains(t, prog.HostSymbols, "naml_retain")
}

func TestGenerateConstStringInternsPool(t *testing.T) {
	f := ir.NewFunc("greet")
	b := f.NewBlock("entry")
	v := b.Emit(ir.Instr{Op: ir.OpConstString, Result: f.NewValue(nil), StrImm: "hi"})
	b.Term = ir.Terminator{Kind: ir.TermReturn, Value: v}

	mod := &ir.Module{Funcs: []*ir.Func{f}}
	prog, err := Generate(mod)
	require.NoError(t, err)
	require.Equal(t, []string{"hi"}, prog.Strings)
}

func TestGenerateSkipsExternFuncs(t *testing.T) {
	mod := &ir.Module{Funcs: []*ir.Func{{Name: "puts", Extern: true, ExternSym: "puts"}}}
	prog, err := Generate(mod)
	require.NoError(t, err)
	require.NotContains(t, prog.Entry, "puts")
}
