// Package diag renders compiler and runtime diagnostics. Shape follows
// yaegi's Panic/FilterStack rendering (value, then a filtered stack) and
// go/scanner.ErrorList's "collect everything, report together" policy.
package diag

import (
	"fmt"
	"strings"

	"github.com/naml-lang/naml/internal/source"
)

// Severity classifies a diagnostic.
type Severity uint8

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// Code families, one prefix per compiler phase (spec.md §7 taxonomy).
const (
	CodeLexUnterminatedString = "E0001"
	CodeLexInvalidEscape      = "E0002"
	CodeLexInvalidNumber      = "E0003"

	CodeParseUnexpected = "E0100"
	CodeParseMissingType = "E0101"

	CodeUndeclaredSymbol     = "E0200"
	CodeTypeMismatch         = "E0201"
	CodeMissingMethod        = "E0202"
	CodeUnsatisfiedBound     = "E0203"
	CodeThrowsNotDeclared    = "E0204"
	CodeGenericArityMismatch = "E0205"
	CodePlatformConflict     = "E0206"
	CodeOptionMisuse         = "E0207"

	CodeOutOfMemory        = "E0300"
	CodeRelocationOverflow = "E0301"
	CodeUnknownHostSymbol  = "E0302"
)

// Diagnostic is one reported problem, with enough context to render a
// spanned source snippet.
type Diagnostic struct {
	Severity Severity
	Code     string
	Message  string
	Span     source.Span
}

// Render formats d as "severity[code]: message" followed by the spanned
// source line and a caret under the span start, matching the
// "single-line summary followed by spanned snippet" contract of spec.md §7.
func Render(files *source.Set, d Diagnostic) string {
	var b strings.Builder
	pos := files.Position(d.Span)
	fmt.Fprintf(&b, "%s[%s]: %s\n", d.Severity, d.Code, d.Message)
	fmt.Fprintf(&b, "  --> %s\n", pos)
	line := files.Line(d.Span)
	fmt.Fprintf(&b, "   | %s\n", line)
	caret := strings.Repeat(" ", pos.Column-1)
	fmt.Fprintf(&b, "   | %s^\n", caret)
	return b.String()
}

// List is a batch of diagnostics collected across one phase, following
// the "report everything in one pass" policy for lex/parse/type errors.
type List []Diagnostic

// HasErrors reports whether the list contains at least one error-level
// diagnostic (warnings alone do not stop compilation).
func (l List) HasErrors() bool {
	for _, d := range l {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

func (l List) Error() string {
	var b strings.Builder
	for _, d := range l {
		fmt.Fprintf(&b, "%s[%s]: %s\n", d.Severity, d.Code, d.Message)
	}
	return b.String()
}

// StackFrame is one entry in a rendered runtime-fault backtrace, derived
// from codegen debug metadata rather than the host process's own stack —
// the naml analogue of yaegi's FilterStack, which strips interpreter
// frames and substitutes interpreted-call frames.
type StackFrame struct {
	Func string
	Pos  source.Position
}

// Fault is an unrecoverable runtime error (spec.md §7's "Runtime
// faults" taxonomy): uncaught exception, force-unwrap of none, checked
// overflow/index fault, release underflow, stack overflow. Faults are
// never catchable via `catch`.
type Fault struct {
	Kind    string // e.g. "uncaught-exception", "force-unwrap", "index-out-of-bounds"
	Value   interface{}
	Stack   []StackFrame
}

func (f *Fault) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %v\n", f.Kind, f.Value)
	for _, fr := range f.Stack {
		fmt.Fprintf(&b, "\t%s (%s)\n", fr.Func, fr.Pos)
	}
	return b.String()
}
