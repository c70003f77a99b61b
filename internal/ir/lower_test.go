package ir_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/naml-lang/naml/internal/check"
	"github.com/naml-lang/naml/internal/diag"
	"github.com/naml-lang/naml/internal/ir"
	"github.com/naml-lang/naml/internal/lexer"
	"github.com/naml-lang/naml/internal/parser"
	"github.com/naml-lang/naml/internal/source"
	"github.com/naml-lang/naml/internal/symtab"
	"github.com/naml-lang/naml/internal/types"
)

func lowerSource(t *testing.T, path, src string) *ir.Module {
	t.Helper()
	set := source.NewSet()
	fid, _ := set.AddFile(path, src)
	f, diags := parser.Parse(fid, set.Text(fid), lexer.NewInterner())
	require.False(t, diag.List(diags).HasErrors(), "parse diagnostics: %v", diags)

	chk := check.New(types.NewStore(), symtab.NewTable())
	checkDiags := chk.CheckModule(f)
	require.False(t, checkDiags.HasErrors(), "check diagnostics: %v", checkDiags)

	return ir.Lower(chk, path, f)
}

func TestLowerProducesOneFuncWithEntryBlock(t *testing.T) {
	mod := lowerSource(t, "fib", `fn fib(n: int) -> int { if (n<=1){return n;} return fib(n-1)+fib(n-2); }`)
	require.Len(t, mod.Funcs, 1)

	fn := mod.Funcs[0]
	require.Equal(t, "fib", fn.Name)
	require.NotEmpty(t, fn.Blocks)
	require.NotNil(t, fn.Entry)
}

func TestLowerBranchingFunctionLinksPredecessors(t *testing.T) {
	mod := lowerSource(t, "branch", `fn abs(n: int) -> int { if (n<0){return 0-n;} return n; }`)
	require.Len(t, mod.Funcs, 1)

	fn := mod.Funcs[0]
	require.Greater(t, len(fn.Blocks), 1, "an if/else should lower to more than one block")

	fn.LinkPreds()
	for _, b := range fn.Blocks {
		if b != fn.Entry {
			require.NotEmpty(t, b.Preds(), "block %s has no linked predecessor", b.Name)
		}
	}
}

func TestLowerMultipleFunctionsInOneModule(t *testing.T) {
	mod := lowerSource(t, "two", `fn a() -> int { return 1; } fn b() -> int { return 2; }`)
	require.Len(t, mod.Funcs, 2)
	names := map[string]bool{mod.Funcs[0].Name: true, mod.Funcs[1].Name: true}
	require.True(t, names["a"])
	require.True(t, names["b"])
}
