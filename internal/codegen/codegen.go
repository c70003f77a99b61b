package codegen

import (
	"github.com/pkg/errors"

	"github.com/naml-lang/naml/internal/ir"
)

// Program is one Generate call's output: a position-independent code
// buffer plus everything internal/runtime needs to finish binding it
// (entry offsets, the host-symbol order Finalize's caller must supply
// addresses for, and a PC->span debug table for stack traces).
type Program struct {
	Code        []byte
	Entry       map[string]int // function name -> byte offset within Code
	HostSymbols []string       // host table order; internal/runtime builds a matching []uintptr
	Strings     []string       // constant string pool, indexed by naml_const_string's argument
	Debug       []DebugEntry

	hostPatchOffsets []int // movabs r15 immediates, one per function prologue
}

// Generate lowers every function in mod into one flat code buffer.
// Functions are emitted back to back so direct calls can use rel32
// offsets within the same buffer; extern functions are skipped here
// (internal/runtime resolves them straight to a C symbol address and
// naml call sites treat them as another host-table slot).
func Generate(mod *ir.Module) (*Program, error) {
	e := newEmitter()
	prog := &Program{Entry: map[string]int{}}

	for _, fn := range mod.Funcs {
		if fn.Extern {
			continue
		}
		fn.LinkPreds()
		if err := generateFunc(e, prog, fn); err != nil {
			return nil, errors.Wrapf(err, "codegen: function %s", fn.Name)
		}
	}
	// Resolved once every function has a known offset, not per-function,
	// so a direct call to a function defined later in mod.Funcs (mutual
	// recursion) still finds its target.
	e.resolveRelocs()
	e.resolveCallRelocs()

	prog.Code = e.buf
	prog.HostSymbols = e.hostOrder
	prog.Strings = e.strOrder
	prog.hostPatchOffsets = e.prologuePatches
	prog.Debug = e.debug
	return prog, nil
}

func generateFunc(e *Emitter, prog *Program, fn *ir.Func) error {
	fr := newFrame(fn)
	start := e.pos()
	prog.Entry[fn.Name] = start
	e.funcOffset[fn] = start

	// Prologue: standard frame pointer chain, then a placeholder
	// r15 load patched once internal/runtime hands Finalize a real
	// host table address.
	e.emitByte(0x55) // push rbp
	e.emitBytes(rex(true, false, false, false), 0x89, modrm(3, rsp, rbp)) // mov rbp, rsp
	e.prologuePatches = append(e.prologuePatches, e.pos())
	e.movRegImm64(hostTableReg, 0) // movabs r15, 0 (patched)

	subRspOffset := e.pos()
	e.emitBytes(rex(true, false, false, false), 0x81, modrm(3, 5, rsp))
	e.emitImm32(0) // sub rsp, imm32 (patched once frame size is known)

	// Spill incoming register args to their slots.
	for i := range fn.ParamTypes {
		if i >= len(argRegs) {
			break
		}
		off := fr.localSlot(paramLocalKey(i))
		e.movMemReg(rbp, off, argRegs[i])
	}

	for _, b := range fn.Blocks {
		e.blockOffset[b] = e.pos()
		for _, in := range b.Instr {
			if in.Op == ir.OpPhi {
				continue // resolved via emitPhiCopies in each predecessor
			}
			def := lookupISA(in.Op)
			if def == nil {
				return errors.Errorf("codegen: no ISA entry for op %s", in.Op)
			}
			def.Encode(e, fr, in)
			e.debug = append(e.debug, DebugEntry{FuncName: fn.Name, Offset: e.pos(), Sp: in.Sp})
		}
		emitPhiCopies(e, fr, b)
		emitTerminator(e, fr, b)
	}

	// Patch the sub rsp immediate now that every local/value in fn has
	// a slot.
	size := fr.size()
	e.buf[subRspOffset+3] = byte(size)
	e.buf[subRspOffset+4] = byte(size >> 8)
	e.buf[subRspOffset+5] = byte(size >> 16)
	e.buf[subRspOffset+6] = byte(size >> 24)
	return nil
}

func emitPhiCopies(e *Emitter, fr *frame, b *ir.Block) {
	var target *ir.Block
	switch b.Term.Kind {
	case ir.TermJump:
		target = b.Term.Then
	default:
		return
	}
	if target == nil {
		return
	}
	preds := target.Preds()
	idx := -1
	for i, p := range preds {
		if p == b {
			idx = i
			break
		}
	}
	if idx == -1 {
		return
	}
	for _, in := range target.Instr {
		if in.Op != ir.OpPhi || idx >= len(in.Args) {
			continue
		}
		fr.load(e, in.Args[idx], rax)
		fr.store(e, in.Result, rax)
	}
}

func emitTerminator(e *Emitter, fr *frame, b *ir.Block) {
	switch b.Term.Kind {
	case ir.TermJump:
		e.jmpRel32(b.Term.Then)
	case ir.TermBranch:
		fr.load(e, b.Term.Cond, rax)
		e.emitBytes(rex(true, false, false, false), 0x85, modrm(3, rax, rax)) // test rax, rax
		e.jccRel32(setE&0x0F, b.Term.Else) // jz: cond==0 (false) takes Else
		e.jmpRel32(b.Term.Then)
	case ir.TermReturn:
		if b.Term.Value != nil {
			fr.load(e, b.Term.Value, rax)
		}
		emitEpilogue(e)
	case ir.TermThrow:
		// Unwinding is a host call: naml_throw(exc) never returns to
		// this frame, it walks the landing-pad chain internal/runtime
		// tracks per naml stack (spec.md §4.9).
		fr.load(e, b.Term.Value, rdi)
		idx := e.hostIndex("naml_throw")
		e.emitByte(rex(true, false, false, hostTableReg >= 8))
		e.emitByte(0xFF)
		e.emitByte(modrm(2, 2, hostTableReg&7))
		e.emitImm32(int32(idx * 8))
		emitEpilogue(e)
	}
}

func emitEpilogue(e *Emitter) {
	e.emitBytes(rex(true, false, false, false), 0x89, modrm(3, rbp, rsp)) // mov rsp, rbp
	e.emitByte(0x5D)                                                      // pop rbp
	e.emitByte(0xC3)                                                      // ret
}
