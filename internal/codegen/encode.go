package codegen

import (
	"math"

	"github.com/naml-lang/naml/internal/ir"
)

// Every EncodeFunc below follows the same shape: load operand slots
// into the two scratch registers (rax, rcx), compute, spill the
// result back to its own slot. See frame.go's doc comment for why
// codegen spills eagerly instead of keeping values live in registers.

func (fr *frame) load(e *Emitter, v *ir.Value, reg byte) {
	e.movRegMem(reg, rbp, slotOffset(fr.assign(v)))
}

func (fr *frame) store(e *Emitter, v *ir.Value, reg byte) {
	e.movMemReg(rbp, slotOffset(fr.assign(v)), reg)
}

func encodeConstInt(e *Emitter, fr *frame, in ir.Instr) {
	e.movRegImm64(rax, in.IntImm)
	fr.store(e, in.Result, rax)
}

func encodeConstBool(e *Emitter, fr *frame, in ir.Instr) {
	v := int64(0)
	if in.BoolImm {
		v = 1
	}
	e.movRegImm64(rax, v)
	fr.store(e, in.Result, rax)
}

func encodeConstNone(e *Emitter, fr *frame, in ir.Instr) {
	e.movRegImm64(rax, 0)
	fr.store(e, in.Result, rax)
}

// encodeBinArith returns an EncodeFunc for a two-register arithmetic
// op: load both args, apply op (dst=rax, src=rcx), store rax.
func encodeBinArith(op func(e *Emitter, dst, src byte)) EncodeFunc {
	return func(e *Emitter, fr *frame, in ir.Instr) {
		fr.load(e, in.Args[0], rax)
		fr.load(e, in.Args[1], rcx)
		op(e, rax, rcx)
		fr.store(e, in.Result, rax)
	}
}

// encodeShift returns an EncodeFunc for SHL/SHR reg, CL (ModRM /digit
// selects the shift-group member; digit mirrors wut4/asm's own use of
// small bitfield constants to distinguish members of one opcode family).
func encodeShift(digit byte) EncodeFunc {
	return func(e *Emitter, fr *frame, in ir.Instr) {
		fr.load(e, in.Args[0], rax)
		fr.load(e, in.Args[1], rcx) // shift count must be in CL
		e.emitByte(rex(true, false, false, false))
		e.emitByte(0xD3)
		e.emitByte(modrm(3, digit, rax))
		fr.store(e, in.Result, rax)
	}
}

func encodeNeg(e *Emitter, fr *frame, in ir.Instr) {
	fr.load(e, in.Args[0], rax)
	e.emitByte(rex(true, false, false, false))
	e.emitBytes(0xF7, modrm(3, 3, rax))
	fr.store(e, in.Result, rax)
}

func encodeNot(e *Emitter, fr *frame, in ir.Instr) {
	fr.load(e, in.Args[0], rax)
	e.emitByte(rex(true, false, false, false))
	e.emitBytes(0xF7, modrm(3, 2, rax))
	fr.store(e, in.Result, rax)
}

// encodeCmp returns an EncodeFunc for a comparison: CMP then SETcc
// then zero-extend into a full naml bool value.
func encodeCmp(cond byte) EncodeFunc {
	return func(e *Emitter, fr *frame, in ir.Instr) {
		fr.load(e, in.Args[0], rax)
		fr.load(e, in.Args[1], rcx)
		cmpRegReg(e, rax, rcx)
		e.setcc(cond, rax)
		e.movzxByte(rax)
		fr.store(e, in.Result, rax)
	}
}

// encodeLoadSlot/encodeStoreSlot implement OpLoad/OpStore, the IR's
// own explicit frame-slot locals (internal/ir's documented simplified
// lowering, spec.md §4.4): in.Index is the IR-level local slot number,
// which codegen maps through the same per-value frame as everything
// else by treating "local slot N" as a stable synthetic value id.
func encodeLoadSlot(e *Emitter, fr *frame, in ir.Instr) {
	off := fr.localSlot(in.Index)
	e.movRegMem(rax, rbp, off)
	fr.store(e, in.Result, rax)
}

func encodeStoreSlot(e *Emitter, fr *frame, in ir.Instr) {
	fr.load(e, in.Args[0], rax)
	off := fr.localSlot(in.Index)
	e.movMemReg(rbp, off, rax)
}

// externHostPrefix namespaces `extern fn` symbols within the same host
// table retain/release/sched use, so internal/runtime's BuildHostTable
// can tell "resolve via purego.NewCallback over a builtin" apart from
// "resolve via dlsym against a loaded library" just by the name.
const externHostPrefix = "extern:"

func encodeCallDirect(e *Emitter, fr *frame, in ir.Instr) {
	if in.Callee != nil && in.Callee.Extern {
		encodeHostCall(e, fr, in, externHostPrefix+in.Callee.ExternSym)
		return
	}
	for i, a := range in.Args {
		if i >= len(argRegs) {
			break // arguments beyond the six System V register args are not passed
		}
		fr.load(e, a, argRegs[i])
	}
	if in.Callee != nil {
		e.callRel32(in.Callee)
	} else {
		e.emitByte(0xE8)
		e.emitImm32(0) // unresolved indirect call target; internal/runtime patches via reflection table
	}
	if in.Result != nil {
		fr.store(e, in.Result, rax)
	}
}

// encodeCallHost and encodeCallHostNamed lower OpCallHost and every
// runtime-service op (retain/release/field access/sync primitives/
// scheduler) to an indirect call through the host table r15 holds
// (spec.md §4.5's "host-function indirect-call table"; see
// internal/runtime for how the table's entries are produced via
// purego.NewCallback).
func encodeCallHost(e *Emitter, fr *frame, in ir.Instr) {
	encodeHostCall(e, fr, in, in.StrImm)
}

func encodeCallHostNamed(name string) EncodeFunc {
	return func(e *Emitter, fr *frame, in ir.Instr) {
		encodeHostCall(e, fr, in, name)
	}
}

var argRegs = []byte{rdi, rsi, rdx, rcx, r8, r9}

func encodeHostCall(e *Emitter, fr *frame, in ir.Instr, symbol string) {
	for i, a := range in.Args {
		if i >= len(argRegs) {
			break
		}
		fr.load(e, a, argRegs[i])
	}
	idx := e.hostIndex(symbol)
	// call [r15 + idx*8]
	e.emitByte(rex(true, false, false, hostTableReg >= 8))
	e.emitByte(0xFF)
	e.emitByte(modrm(2, 2, hostTableReg&7))
	e.emitImm32(int32(idx * 8))
	if in.Result != nil {
		fr.store(e, in.Result, rax)
	}
}

func encodeConstFloat(e *Emitter, fr *frame, in ir.Instr) {
	e.movRegImm64(rax, int64(math.Float64bits(in.FltImm)))
	fr.store(e, in.Result, rax)
}

// encodeConstString boxes a compile-time string literal by asking
// internal/runtime to intern it: the actual bytes never live in the
// JIT'd code page, only an index into Program.Strings (the constant
// pool Emitter.stringIndex builds up during Generate), loaded as an
// immediate argument to the naml_const_string host call.
func encodeConstString(e *Emitter, fr *frame, in ir.Instr) {
	idx := e.stringIndex(in.StrImm)
	e.movRegImm64(rdi, int64(idx))
	hidx := e.hostIndex("naml_const_string")
	e.emitByte(rex(true, false, false, hostTableReg >= 8))
	e.emitByte(0xFF)
	e.emitByte(modrm(2, 2, hostTableReg&7))
	e.emitImm32(int32(hidx * 8))
	fr.store(e, in.Result, rax)
}

// encodeFieldGet and encodeFieldSet lower OpFieldGet/OpFieldSet,
// threading the field name through as an interned string-pool index
// the same way encodeConstString interns a literal — naml_field_get/
// naml_field_set resolve the actual struct slot by that index instead
// of internal/runtime guessing at the Go map's iteration order.
func encodeFieldGet(e *Emitter, fr *frame, in ir.Instr) {
	fr.load(e, in.Args[0], rdi)
	idx := e.stringIndex(in.Field)
	e.movRegImm64(rsi, int64(idx))
	encodeHostCallLoaded(e, fr, in, "naml_field_get")
}

func encodeFieldSet(e *Emitter, fr *frame, in ir.Instr) {
	fr.load(e, in.Args[0], rdi)
	idx := e.stringIndex(in.Field)
	e.movRegImm64(rsi, int64(idx))
	fr.load(e, in.Args[1], rdx)
	encodeHostCallLoaded(e, fr, in, "naml_field_set")
}

// encodeMakeClosure lowers OpMakeClosure: the spawned task's Func name
// (resolved by internal/ir's two-phase Lower into in.Callee, the same
// field encodeCallDirect uses for rel32 direct calls) is passed as an
// interned string-pool index so internal/runtime's hostMakeClosure can
// box a heap.ClosurePayload the scheduler later dispatches by name
// through codegen.Executable.Call, mirroring encodeConstString's
// "pass an index, not raw bytes, across the host-call ABI" idiom.
func encodeMakeClosure(e *Emitter, fr *frame, in ir.Instr) {
	nameIdx := int64(-1)
	if in.Callee != nil {
		nameIdx = int64(e.stringIndex(in.Callee.Name))
	}
	e.movRegImm64(rdi, nameIdx)
	if len(in.Args) > 0 {
		fr.load(e, in.Args[0], rsi)
	} else {
		e.movRegImm64(rsi, 0)
	}
	encodeHostCallLoaded(e, fr, in, "naml_make_closure")
}

// encodeHostCallLoaded issues the indirect call through r15 once the
// caller has already placed every argument register itself (unlike
// encodeHostCall, which loads in.Args into argRegs in order) — needed
// whenever a host call's ABI carries more than just in.Args verbatim.
func encodeHostCallLoaded(e *Emitter, fr *frame, in ir.Instr, symbol string) {
	idx := e.hostIndex(symbol)
	e.emitByte(rex(true, false, false, hostTableReg >= 8))
	e.emitByte(0xFF)
	e.emitByte(modrm(2, 2, hostTableReg&7))
	e.emitImm32(int32(idx * 8))
	if in.Result != nil {
		fr.store(e, in.Result, rax)
	}
}

// encodeParam reads the value a function's prologue spilled for
// parameter in.IntImm (see generateFunc's prologue loop) into this
// instruction's own fresh result slot.
func encodeParam(e *Emitter, fr *frame, in ir.Instr) {
	off := fr.localSlot(paramLocalKey(int(in.IntImm)))
	e.movRegMem(rax, rbp, off)
	fr.store(e, in.Result, rax)
}

// paramLocalKey maps a parameter index into the same synthetic-key
// space frame.localSlot uses for OpLoad/OpStore locals, offset well
// clear of any real local-slot index range a function body can name.
func paramLocalKey(i int) int { return -1_000_000 - i }

func encodeCast(e *Emitter, fr *frame, in ir.Instr) {
	// Numeric representations are uniform 64-bit naml values at this
	// layer (float reinterpretation happens in internal/runtime's
	// boxed payload, not in a JIT register); a cast is a plain move.
	fr.load(e, in.Args[0], rax)
	fr.store(e, in.Result, rax)
}
