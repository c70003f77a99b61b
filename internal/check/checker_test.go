package check_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/naml-lang/naml/internal/check"
	"github.com/naml-lang/naml/internal/diag"
	"github.com/naml-lang/naml/internal/lexer"
	"github.com/naml-lang/naml/internal/parser"
	"github.com/naml-lang/naml/internal/source"
	"github.com/naml-lang/naml/internal/symtab"
	"github.com/naml-lang/naml/internal/types"
)

func TestCheckModuleAcceptsWellTypedRecursiveFunction(t *testing.T) {
	set := source.NewSet()
	fid, _ := set.AddFile("fib.naml", `fn fib(n: int) -> int { if (n<=1){return n;} return fib(n-1)+fib(n-2); }`)
	f, diags := parser.Parse(fid, set.Text(fid), lexer.NewInterner())
	require.False(t, diag.List(diags).HasErrors(), "parse diagnostics: %v", diags)

	chk := check.New(types.NewStore(), symtab.NewTable())
	got := chk.CheckModule(f)
	require.False(t, got.HasErrors(), "check diagnostics: %v", got)
}

func TestCheckModuleRejectsReturnTypeMismatch(t *testing.T) {
	set := source.NewSet()
	fid, _ := set.AddFile("bad.naml", `fn f() -> int { return "hello"; }`)
	f, diags := parser.Parse(fid, set.Text(fid), lexer.NewInterner())
	require.False(t, diag.List(diags).HasErrors())

	chk := check.New(types.NewStore(), symtab.NewTable())
	got := chk.CheckModule(f)
	require.True(t, got.HasErrors())
}

func TestCheckModuleRejectsUnknownIdentifier(t *testing.T) {
	set := source.NewSet()
	fid, _ := set.AddFile("unknown.naml", `fn f() -> int { return undeclared_name; }`)
	f, diags := parser.Parse(fid, set.Text(fid), lexer.NewInterner())
	require.False(t, diag.List(diags).HasErrors())

	chk := check.New(types.NewStore(), symtab.NewTable())
	got := chk.CheckModule(f)
	require.True(t, got.HasErrors())
}
