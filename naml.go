// Package naml is the core compiler and JIT runtime (spec.md §6.4):
// three entry points, compile/execute/type_check, mirroring yaegi's own
// Eval/EvalPath/Execute trio in interp.go — a single source_set in,
// either a finalized in-memory Program or a diagnostic list out.
package naml

import (
	"fmt"
	"runtime"
	"unsafe"

	"go.uber.org/zap"

	"github.com/naml-lang/naml/internal/ast"
	"github.com/naml-lang/naml/internal/check"
	"github.com/naml-lang/naml/internal/codegen"
	"github.com/naml-lang/naml/internal/diag"
	"github.com/naml-lang/naml/internal/ir"
	"github.com/naml-lang/naml/internal/lexer"
	"github.com/naml-lang/naml/internal/parser"
	namlruntime "github.com/naml-lang/naml/internal/runtime"
	"github.com/naml-lang/naml/internal/source"
	"github.com/naml-lang/naml/internal/symtab"
	"github.com/naml-lang/naml/internal/types"
)

// Exit codes, spec.md §6.4.
const (
	ExitSuccess      = 0
	ExitCompileError = 1
	ExitRuntimeError = 2
	ExitIOError      = 3
)

// SourceFile is one named input to Compile/TypeCheck — a path (for
// diagnostics and debug spans) paired with its text.
type SourceFile struct {
	Name string
	Text string
}

// Program is one finalized, directly callable compilation result: the
// JIT'd executable page plus the runtime state (host table, scheduler)
// it was bound against. Created by Compile, consumed by Execute.
type Program struct {
	exe *codegen.Executable
	rt  *namlruntime.Runtime
}

var log = newLogger()

func newLogger() *zap.Logger {
	l, err := zap.NewProduction()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// Compile lexes, parses, type-checks, lowers, and JIT-compiles every
// file in sources into one Program. Every diagnostic from every phase
// is collected before returning — lex/parse errors stop the pipeline
// (spec.md §7: "compilation stops after parse"), but within parsing and
// within type-checking every file's errors are reported in one batch.
func Compile(sources []SourceFile, externLibs []string) (*Program, []diag.Diagnostic) {
	set := source.NewSet()
	intern := lexer.NewInterner()
	store := types.NewStore()
	table := symtab.NewTable()

	var files []*ast.File
	var diags diag.List
	for _, sf := range sources {
		fid, _ := set.AddFile(sf.Name, sf.Text)
		f, fDiags := parser.Parse(fid, sf.Text, intern)
		diags = append(diags, fDiags...)
		if f != nil {
			files = append(files, f)
		}
	}
	if diags.HasErrors() {
		logDiagnostics(diags, "parse")
		return nil, diags
	}

	chk := check.New(store, table)
	for _, f := range files {
		diags = append(diags, chk.CheckModule(f)...)
	}
	if diags.HasErrors() {
		logDiagnostics(diags, "check")
		return nil, diags
	}

	mod := &ir.Module{}
	for i, f := range files {
		m := ir.Lower(chk, sources[i].Name, f)
		mod.Funcs = append(mod.Funcs, m.Funcs...)
	}

	prog, err := codegen.Generate(mod)
	if err != nil {
		d := diag.Diagnostic{Severity: diag.SeverityError, Code: "E0301", Message: err.Error()}
		log.Error("codegen failed", zap.String("phase", "codegen"), zap.String("code", d.Code), zap.Error(err))
		return nil, diag.List{d}
	}

	rt := namlruntime.New(runtime.NumCPU(), prog.Strings)
	var externs *namlruntime.Externs
	if len(externLibs) > 0 {
		externs, err = namlruntime.NewExterns(externLibs)
		if err != nil {
			d := diag.Diagnostic{Severity: diag.SeverityError, Code: "E0302", Message: err.Error()}
			log.Error("extern library load failed", zap.String("phase", "link"), zap.Error(err))
			return nil, diag.List{d}
		}
		for _, sym := range prog.HostSymbols {
			if name, ok := namlruntime.ExternSymbol(sym); ok {
				if err := externs.Resolve(name); err != nil {
					d := diag.Diagnostic{Severity: diag.SeverityError, Code: "E0303", Message: err.Error()}
					log.Error("extern symbol resolution failed", zap.String("phase", "link"), zap.Error(err))
					return nil, diag.List{d}
				}
			}
		}
	}

	hostTable, err := namlruntime.BuildHostTable(rt, prog, externs)
	if err != nil {
		d := diag.Diagnostic{Severity: diag.SeverityError, Code: "E0304", Message: err.Error()}
		log.Error("host table build failed", zap.String("phase", "link"), zap.Error(err))
		return nil, diag.List{d}
	}

	exe, err := prog.Finalize(hostTableBase(hostTable))
	if err != nil {
		d := diag.Diagnostic{Severity: diag.SeverityError, Code: "E0305", Message: err.Error()}
		log.Error("finalize failed", zap.String("phase", "link"), zap.Error(err))
		return nil, diag.List{d}
	}
	rt.Call = exe.Call // lets hostSchedEnqueue dispatch a spawned task by name once the executable exists

	return &Program{exe: exe, rt: rt}, nil
}

// TypeCheck runs lex/parse/check but never lowers or generates code —
// the `naml check` entry point (spec.md §6.4).
func TypeCheck(sources []SourceFile) []diag.Diagnostic {
	set := source.NewSet()
	intern := lexer.NewInterner()
	store := types.NewStore()
	table := symtab.NewTable()

	var files []*ast.File
	var diags diag.List
	for _, sf := range sources {
		fid, _ := set.AddFile(sf.Name, sf.Text)
		f, fDiags := parser.Parse(fid, sf.Text, intern)
		diags = append(diags, fDiags...)
		if f != nil {
			files = append(files, f)
		}
	}
	if diags.HasErrors() {
		return diags
	}

	chk := check.New(store, table)
	for _, f := range files {
		diags = append(diags, chk.CheckModule(f)...)
	}
	return diags
}

// Execute invokes prog's `main` function and returns an exit code
// (spec.md §6.4). A runtime fault surfaces as ExitRuntimeError with the
// fault formatted into err, rather than propagating the Go-level panic
// recovered during the call — naml's own runtime faults are not
// Go errors until this boundary translates them.
func Execute(prog *Program, args ...uintptr) (exitCode int, err error) {
	defer func() {
		if prog.rt.Sched != nil {
			_ = prog.rt.Sched.Shutdown()
		}
		prog.exe.Close()
	}()
	defer func() {
		if r := recover(); r != nil {
			log.Error("runtime fault", zap.Any("panic", r))
			exitCode, err = ExitRuntimeError, fmt.Errorf("naml: runtime fault: %v", r)
		}
	}()

	result, callErr := prog.exe.Call("main", args...)
	if callErr != nil {
		log.Error("runtime fault", zap.Error(callErr))
		return ExitRuntimeError, callErr
	}
	return int(result), nil
}

func hostTableBase(table []uintptr) uintptr {
	if len(table) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&table[0]))
}

func logDiagnostics(diags diag.List, phase string) {
	for _, d := range diags {
		if d.Severity == diag.SeverityError {
			log.Error(fmt.Sprintf("%s error", phase), zap.String("phase", phase), zap.String("code", d.Code), zap.String("message", d.Message))
		} else {
			log.Warn(fmt.Sprintf("%s warning", phase), zap.String("phase", phase), zap.String("code", d.Code), zap.String("message", d.Message))
		}
	}
}
