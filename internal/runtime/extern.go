package runtime

import (
	"strings"

	"github.com/ebitengine/purego"
	"github.com/pkg/errors"
)

// externHostPrefix mirrors internal/codegen's constant of the same
// name: `extern fn` call sites are lowered to a host-table slot whose
// symbol name is "extern:<C symbol>", so BuildHostTable can route it
// to a dlsym'd address instead of a purego.NewCallback trampoline.
const externHostPrefix = "extern:"

// Externs resolves naml's `extern fn` declarations (spec.md §7.2) to
// real C ABI addresses by dlopen'ing each named shared library once
// and dlsym'ing every symbol a program actually calls. Grounded on
// purego's own sqlite3 binding pattern (_examples pack: purego is used
// there purely as a dlopen/dlsym/NewCallback bridge, never to emit
// machine code itself), which is exactly the role it plays here too.
type Externs struct {
	handles map[string]uintptr // library path -> dlopen handle
	symbols map[string]uintptr // C symbol name -> resolved address
}

// NewExterns opens every library in libs (e.g. "libm.so.6", "libc.so.6")
// and returns an Externs ready to resolve symbols out of them. A
// library that fails to load is a configuration error, not a runtime
// fault: naml.toml's `extern` manifest section is expected to name
// libraries that exist on the host the program will actually run on.
func NewExterns(libs []string) (*Externs, error) {
	e := &Externs{handles: map[string]uintptr{}, symbols: map[string]uintptr{}}
	for _, lib := range libs {
		h, err := purego.Dlopen(lib, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err != nil {
			return nil, errors.Wrapf(err, "runtime: dlopen %s", lib)
		}
		e.handles[lib] = h
	}
	return e, nil
}

// Resolve binds sym to the first already-open library that exports it.
// Call once per `extern fn` declaration before BuildHostTable.
func (e *Externs) Resolve(sym string) error {
	for _, h := range e.handles {
		addr, err := purego.Dlsym(h, sym)
		if err != nil {
			continue
		}
		e.symbols[sym] = addr
		return nil
	}
	return errors.Errorf("runtime: extern symbol %q not found in any loaded library", sym)
}

// lookup returns the address Resolve already obtained from Dlsym for a
// host-table name that carries the "extern:" prefix, which lookup
// strips via ExternSymbol; names without the prefix are never externs.
func (e *Externs) lookup(name string) (uintptr, bool) {
	sym, ok := ExternSymbol(name)
	if !ok {
		return 0, false
	}
	addr, ok := e.symbols[sym]
	return addr, ok
}

// ExternSymbol reports whether a host-table name is an `extern fn`
// entry and, if so, the bare C symbol name underneath its "extern:"
// prefix — the one place that prefix convention is spelled out so
// naml.Compile doesn't need to duplicate it when deciding which
// host-table slots need Resolve calls.
func ExternSymbol(hostTableName string) (string, bool) {
	return strings.CutPrefix(hostTableName, externHostPrefix)
}
