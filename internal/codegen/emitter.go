package codegen

import (
	"github.com/naml-lang/naml/internal/ir"
	"github.com/naml-lang/naml/internal/source"
)

// branchReloc records a not-yet-resolvable rel32 branch target: codegen
// emits blocks in a single forward pass, so a jump to a block that
// hasn't been laid out yet (the common case for `if`/loop exits) is
// patched once every block in the function has an offset.
type branchReloc struct {
	patchOffset int // offset of the 4-byte rel32 field to patch
	target      *ir.Block
}

// callReloc is branchReloc's function-call counterpart: the target is
// a whole Func's true entry point (before its own prologue), not one
// of its internal blocks.
type callReloc struct {
	patchOffset int
	target      *ir.Func
}

// Emitter accumulates one Module's worth of machine code plus the
// bookkeeping codegen.Generate needs to resolve intra-function
// branches and the host-call table base pointer.
type Emitter struct {
	buf []byte

	hostSlot  map[string]int
	hostOrder []string

	strSlot  map[string]int
	strOrder []string

	blockOffset map[*ir.Block]int
	funcOffset  map[*ir.Func]int
	relocs      []branchReloc
	callRelocs  []callReloc

	// prologuePatches are movabs-r15 immediate offsets left as
	// placeholders until Program.Finalize learns the real host table
	// address (internal/runtime builds the table after Generate runs).
	prologuePatches []int

	debug []DebugEntry
}

func newEmitter() *Emitter {
	return &Emitter{
		hostSlot:    map[string]int{},
		strSlot:     map[string]int{},
		blockOffset: map[*ir.Block]int{},
		funcOffset:  map[*ir.Func]int{},
	}
}

// callRel32 emits a `call rel32` to fn's true entry point (the address
// Executable.Call itself would jump to), recording a relocation if fn
// hasn't been generated yet (mutual recursion, or simply a later
// entry in Module.Funcs).
func (e *Emitter) callRel32(fn *ir.Func) {
	e.emitByte(0xE8)
	if off, ok := e.funcOffset[fn]; ok {
		rel := int32(off - (e.pos() + 4))
		e.emitImm32(rel)
		return
	}
	e.callRelocs = append(e.callRelocs, callReloc{patchOffset: e.pos(), target: fn})
	e.emitImm32(0)
}

func (e *Emitter) resolveCallRelocs() {
	for _, r := range e.callRelocs {
		off, ok := e.funcOffset[r.target]
		if !ok {
			continue
		}
		rel := int32(off - (r.patchOffset + 4))
		e.buf[r.patchOffset+0] = byte(rel)
		e.buf[r.patchOffset+1] = byte(rel >> 8)
		e.buf[r.patchOffset+2] = byte(rel >> 16)
		e.buf[r.patchOffset+3] = byte(rel >> 24)
	}
	e.callRelocs = e.callRelocs[:0]
}

// stringIndex returns s's position in the module's constant string
// pool, interning it on first reference (see encodeConstString).
func (e *Emitter) stringIndex(s string) int {
	if i, ok := e.strSlot[s]; ok {
		return i
	}
	i := len(e.strOrder)
	e.strSlot[s] = i
	e.strOrder = append(e.strOrder, s)
	return i
}

// hostIndex returns name's slot in the host call table, assigning the
// next free index on first reference. Index assignment order only
// needs to be stable within one Generate call, matching how
// internal/runtime builds its parallel []uintptr table from the same
// Program.HostSymbols order.
func (e *Emitter) hostIndex(name string) int {
	if i, ok := e.hostSlot[name]; ok {
		return i
	}
	i := len(e.hostOrder)
	e.hostSlot[name] = i
	e.hostOrder = append(e.hostOrder, name)
	return i
}

func (e *Emitter) pos() int { return len(e.buf) }

// jmpRel32 emits `jmp rel32`, recording a relocation if target hasn't
// been laid out yet.
func (e *Emitter) jmpRel32(target *ir.Block) {
	e.emitByte(0xE9)
	e.relocAndPlaceholder(target)
}

// jccRel32 emits a conditional near jump (`0F 8x rel32`) for the
// SETcc-style condition nibble cond (e.g. setE's low nibble 0x4 -> 0x84).
func (e *Emitter) jccRel32(cond byte, target *ir.Block) {
	e.emitByte(0x0F)
	e.emitByte(0x80 | (cond & 0x0F))
	e.relocAndPlaceholder(target)
}

func (e *Emitter) relocAndPlaceholder(target *ir.Block) {
	if off, ok := e.blockOffset[target]; ok {
		rel := int32(off - (e.pos() + 4))
		e.emitImm32(rel)
		return
	}
	e.relocs = append(e.relocs, branchReloc{patchOffset: e.pos(), target: target})
	e.emitImm32(0)
}

// resolveRelocs patches every recorded branch once all of a function's
// blocks have known offsets.
func (e *Emitter) resolveRelocs() {
	for _, r := range e.relocs {
		targetOff, ok := e.blockOffset[r.target]
		if !ok {
			continue // unreachable block; the zero placeholder is left in place and not reported
		}
		rel := int32(targetOff - (r.patchOffset + 4))
		e.buf[r.patchOffset+0] = byte(rel)
		e.buf[r.patchOffset+1] = byte(rel >> 8)
		e.buf[r.patchOffset+2] = byte(rel >> 16)
		e.buf[r.patchOffset+3] = byte(rel >> 24)
	}
	e.relocs = e.relocs[:0]
}

// DebugEntry maps one emitted instruction's code offset back to the
// source span it was lowered from, the naml analogue of yaegi's
// `calls map[uintptr]*node` (interp/interp.go) PC->AST-node table used
// for stack traces and the debugger.
type DebugEntry struct {
	FuncName string
	Offset   int
	Sp       source.Span
}
