// Package codegen lowers naml's IR (internal/ir) into executable amd64
// machine code (spec.md §4.5). Instruction selection follows the flat
// mnemonic-table-plus-lookup pattern in
// _examples/gmofishsauce-wut4/asm/instrs.go (baseInstrs/xopInstrs/...
// arrays and lookupInstr's linear scan) generalized from that toy
//16-bit ISA's {name, opcode, format, operand count} rows to one row
// per ir.Op carrying an Encode closure, since amd64 instruction shapes
// vary more than the wut4 machine's five fixed formats.
package codegen

import "github.com/naml-lang/naml/internal/ir"

// InstrDef is one entry in the instruction-selection table: the IR op
// it lowers, a mnemonic for disassembly/debug dumps, and the Encode
// function that appends the corresponding amd64 bytes to an Emitter.
// Mirrors wut4/asm's InstrDef{name,opcode,format,...} row shape.
type InstrDef struct {
	Op       ir.Op
	Mnemonic string
	Encode   EncodeFunc
}

// EncodeFunc lowers one IR instruction, given the register/slot
// assignment already computed for its operands and result.
type EncodeFunc func(e *Emitter, fr *frame, in ir.Instr)

var isaTable []InstrDef

func registerISA(op ir.Op, mnemonic string, fn EncodeFunc) {
	isaTable = append(isaTable, InstrDef{Op: op, Mnemonic: mnemonic, Encode: fn})
}

// lookupISA linearly scans isaTable for op, exactly as wut4/asm's
// lookupInstr scans baseInstrs/xopInstrs/... for a name match; the
// table is small enough (one row per ir.Op) that a map buys nothing
// wut4's own approach doesn't already show is idiomatic here.
func lookupISA(op ir.Op) *InstrDef {
	for i := range isaTable {
		if isaTable[i].Op == op {
			return &isaTable[i]
		}
	}
	return nil
}

func init() {
	registerISA(ir.OpConstInt, "mov.imm", encodeConstInt)
	registerISA(ir.OpConstFloat, "mov.imm", encodeConstFloat)
	registerISA(ir.OpConstString, "call.host", encodeConstString)
	registerISA(ir.OpConstBool, "mov.imm", encodeConstBool)
	registerISA(ir.OpConstNone, "mov.imm", encodeConstNone)
	registerISA(ir.OpParam, "mov.param", encodeParam)
	registerISA(ir.OpAdd, "add", encodeBinArith(addRegReg))
	registerISA(ir.OpSub, "sub", encodeBinArith(subRegReg))
	registerISA(ir.OpMul, "imul", encodeBinArith(imulRegReg))
	registerISA(ir.OpAnd, "and", encodeBinArith(andRegReg))
	registerISA(ir.OpOr, "or", encodeBinArith(orRegReg))
	registerISA(ir.OpXor, "xor", encodeBinArith(xorRegReg))
	registerISA(ir.OpShl, "shl", encodeShift(4))
	registerISA(ir.OpShr, "shr", encodeShift(5))
	registerISA(ir.OpNeg, "neg", encodeNeg)
	registerISA(ir.OpNot, "not", encodeNot)
	registerISA(ir.OpCmpEq, "sete", encodeCmp(setE))
	registerISA(ir.OpCmpNe, "setne", encodeCmp(setNE))
	registerISA(ir.OpCmpLt, "setl", encodeCmp(setL))
	registerISA(ir.OpCmpLe, "setle", encodeCmp(setLE))
	registerISA(ir.OpCmpGt, "setg", encodeCmp(setG))
	registerISA(ir.OpCmpGe, "setge", encodeCmp(setGE))
	registerISA(ir.OpLoad, "mov.load", encodeLoadSlot)
	registerISA(ir.OpStore, "mov.store", encodeStoreSlot)
	registerISA(ir.OpCall, "call", encodeCallDirect)
	registerISA(ir.OpCallHost, "call.host", encodeCallHost)
	registerISA(ir.OpAlloc, "call.host", encodeCallHostNamed("naml_alloc"))
	registerISA(ir.OpRetain, "call.host", encodeCallHostNamed("naml_retain"))
	registerISA(ir.OpRelease, "call.host", encodeCallHostNamed("naml_release"))
	registerISA(ir.OpFieldGet, "call.host", encodeFieldGet)
	registerISA(ir.OpFieldSet, "call.host", encodeFieldSet)
	registerISA(ir.OpIndexGet, "call.host", encodeCallHostNamed("naml_index_get"))
	registerISA(ir.OpIndexSet, "call.host", encodeCallHostNamed("naml_index_set"))
	registerISA(ir.OpArrayLen, "call.host", encodeCallHostNamed("naml_array_len"))
	registerISA(ir.OpEnumTag, "call.host", encodeCallHostNamed("naml_enum_tag"))
	registerISA(ir.OpEnumPayload, "call.host", encodeCallHostNamed("naml_enum_payload"))
	registerISA(ir.OpOptionLift, "call.host", encodeCallHostNamed("naml_option_lift"))
	registerISA(ir.OpOptionUnwrap, "call.host", encodeCallHostNamed("naml_option_unwrap"))
	registerISA(ir.OpMakeClosure, "call.host", encodeMakeClosure)
	registerISA(ir.OpMutexLock, "call.host", encodeCallHostNamed("naml_mutex_lock"))
	registerISA(ir.OpMutexUnlock, "call.host", encodeCallHostNamed("naml_mutex_unlock"))
	registerISA(ir.OpMutexRead, "call.host", encodeCallHostNamed("naml_mutex_read"))
	registerISA(ir.OpMutexWrite, "call.host", encodeCallHostNamed("naml_mutex_write"))
	registerISA(ir.OpRwLockRLock, "call.host", encodeCallHostNamed("naml_rwlock_rlock"))
	registerISA(ir.OpRwLockWLock, "call.host", encodeCallHostNamed("naml_rwlock_wlock"))
	registerISA(ir.OpRwLockUnlock, "call.host", encodeCallHostNamed("naml_rwlock_unlock"))
	registerISA(ir.OpAtomicLoad, "call.host", encodeCallHostNamed("naml_atomic_load"))
	registerISA(ir.OpAtomicStore, "call.host", encodeCallHostNamed("naml_atomic_store"))
	registerISA(ir.OpAtomicCAS, "call.host", encodeCallHostNamed("naml_atomic_cas"))
	registerISA(ir.OpChannelSend, "call.host", encodeCallHostNamed("naml_channel_send"))
	registerISA(ir.OpChannelRecv, "call.host", encodeCallHostNamed("naml_channel_recv"))
	registerISA(ir.OpSchedEnqueue, "call.host", encodeCallHostNamed("naml_sched_enqueue"))
	registerISA(ir.OpSchedWaitAll, "call.host", encodeCallHostNamed("naml_sched_wait_all"))
	registerISA(ir.OpCast, "mov", encodeCast)
}
