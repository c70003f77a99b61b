package codegen

import (
	"syscall"
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/pkg/errors"
)

// Finalize binds prog's host-table placeholder to hostTableAddr (the
// base of the []uintptr table internal/runtime builds with
// purego.NewCallback, one entry per prog.HostSymbols, in order),
// copies the code into an executable mapping, and returns a callable
// Executable.
//
// mmap/mprotect have no ecosystem equivalent in this codebase's
// dependency stack — purego bridges calls into and out of existing
// native code, it does not allocate fresh executable pages — so this
// is one of the few places naml reaches into the syscall package
// directly rather than through a third-party library (see DESIGN.md).
func (p *Program) Finalize(hostTableAddr uintptr) (*Executable, error) {
	for _, off := range p.hostPatchOffsets {
		patchImm64(p.Code, off+2, int64(hostTableAddr))
	}

	mem, err := syscall.Mmap(-1, 0, len(p.Code),
		syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_PRIVATE|syscall.MAP_ANON)
	if err != nil {
		return nil, errors.Wrap(err, "codegen: mmap executable page")
	}
	copy(mem, p.Code)
	if err := syscall.Mprotect(mem, syscall.PROT_READ|syscall.PROT_EXEC); err != nil {
		syscall.Munmap(mem)
		return nil, errors.Wrap(err, "codegen: mprotect executable page")
	}

	return &Executable{mem: mem, entry: p.Entry, debug: p.Debug}, nil
}

func patchImm64(buf []byte, off int, v int64) {
	for i := 0; i < 8; i++ {
		buf[off+i] = byte(v >> (8 * i))
	}
}

// Executable is one Finalize'd Program: an executable page plus the
// entry-offset table needed to call into it.
type Executable struct {
	mem   []byte
	entry map[string]int
	debug []DebugEntry
}

// Call invokes fn (by naml function name) with up to 6 register
// arguments, via purego.SyscallN — the same C-calling-convention
// bridge purego uses for dlopen'd libraries, equally valid for a
// locally mmap'd code page since both speak the System V ABI.
func (x *Executable) Call(fn string, args ...uintptr) (uintptr, error) {
	off, ok := x.entry[fn]
	if !ok {
		return 0, errors.Errorf("codegen: unknown entry point %q", fn)
	}
	addr := uintptr(unsafe.Pointer(&x.mem[0])) + uintptr(off)
	r1, _, errno := purego.SyscallN(addr, args...)
	if errno != 0 {
		return 0, errors.Wrapf(errno, "codegen: call %s", fn)
	}
	return r1, nil
}

// Close releases the executable mapping.
func (x *Executable) Close() error {
	if x.mem == nil {
		return nil
	}
	err := syscall.Munmap(x.mem)
	x.mem = nil
	return err
}
