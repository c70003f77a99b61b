package naml

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/naml-lang/naml/internal/diag"
)

func TestTypeCheckAcceptsRecursiveFunction(t *testing.T) {
	src := `fn fib(n: int) -> int { if (n<=1){return n;} return fib(n-1)+fib(n-2); }`
	diags := TypeCheck([]SourceFile{{Name: "fib.naml", Text: src}})
	require.False(t, diag.List(diags).HasErrors(), "diagnostics: %v", diags)
}

func TestTypeCheckRejectsReturnTypeMismatch(t *testing.T) {
	src := `fn f() -> int { return "hello"; }`
	diags := TypeCheck([]SourceFile{{Name: "bad.naml", Text: src}})
	require.True(t, diag.List(diags).HasErrors(), "expected a type error for returning a string from an int function")
}

func TestTypeCheckReportsParseErrorsWithoutPanicking(t *testing.T) {
	src := `fn f( { ` // deliberately malformed
	diags := TypeCheck([]SourceFile{{Name: "broken.naml", Text: src}})
	require.True(t, diag.List(diags).HasErrors())
}

func TestCompileExecuteRunsRecursiveFibonacci(t *testing.T) {
	src := `
fn fib(n: int) -> int {
	if (n <= 1) { return n; }
	return fib(n-1) + fib(n-2);
}

fn main() -> int {
	return fib(10);
}
`
	prog, diags := Compile([]SourceFile{{Name: "fib.naml", Text: src}}, nil)
	require.False(t, diag.List(diags).HasErrors(), "diagnostics: %v", diags)
	require.NotNil(t, prog)

	exitCode, err := Execute(prog)
	require.NoError(t, err)
	require.Equal(t, 55, exitCode)
}

func TestCompileExecuteRunsDirectFunctionCallChain(t *testing.T) {
	src := `
fn double(n: int) -> int { return n * 2; }
fn addOne(n: int) -> int { return n + 1; }

fn main() -> int {
	return addOne(double(20));
}
`
	prog, diags := Compile([]SourceFile{{Name: "chain.naml", Text: src}}, nil)
	require.False(t, diag.List(diags).HasErrors(), "diagnostics: %v", diags)
	require.NotNil(t, prog)

	exitCode, err := Execute(prog)
	require.NoError(t, err)
	require.Equal(t, 41, exitCode)
}

// TestCompileExecuteSpawnJoinDoesNotHang drives spawn/join end-to-end:
// main spawns a task that runs an expensive bounded recursion, then
// join()s before returning. Before the spawn/join fixes this would
// either no-op instantly (spawn never ran the body) or hang (join
// never released the barrier); either failure mode is caught by the
// timeout below, the same idiom internal/sched's own tests use for
// detecting a barrier that never unblocks.
func TestCompileExecuteSpawnJoinDoesNotHang(t *testing.T) {
	src := `
fn work(n: int) -> int {
	if (n <= 1) { return n; }
	return work(n-1) + work(n-2);
}

fn main() -> int {
	spawn {
		work(30);
	}
	join();
	return 9;
}
`
	prog, diags := Compile([]SourceFile{{Name: "spawnjoin.naml", Text: src}}, nil)
	require.False(t, diag.List(diags).HasErrors(), "diagnostics: %v", diags)
	require.NotNil(t, prog)

	type result struct {
		exitCode int
		err      error
	}
	done := make(chan result, 1)
	go func() {
		exitCode, err := Execute(prog)
		done <- result{exitCode, err}
	}()

	select {
	case r := <-done:
		require.NoError(t, r.err)
		require.Equal(t, 9, r.exitCode)
	case <-time.After(10 * time.Second):
		t.Fatal("Execute did not return — join() appears to hang on a spawned task")
	}
}
