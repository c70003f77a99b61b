package codegen

import "github.com/naml-lang/naml/internal/ir"

// frame assigns every SSA value in one ir.Func a fixed stack slot.
// This is codegen's slot-based counterpart to internal/ir's own
// decision to model locals as frame slots rather than building a full
// allocator: every value is spilled to memory immediately after it is
// computed and reloaded from memory before use, trading emitted-code
// density for an encoder simple enough to write with confidence
// without ever running it. A real linear-scan allocator (promoting
// short-lived values to registers) is the natural next step once
// there is a way to validate the generated code against real silicon.
type frame struct {
	slot     map[int]int32 // ir.Value.ID -> slot index
	nslots   int32
	rawArgs  []ir.Value // params, in order, for prologue spill
	local    map[int]int32 // OpLoad/OpStore's Index (a source-level local slot number) -> frame slot
	nlocals  int32
}

func newFrame(fn *ir.Func) *frame {
	fr := &frame{slot: map[int]int32{}, local: map[int]int32{}}
	return fr
}

// localSlot returns the frame slot backing source-level local idx
// (internal/ir's OpLoad/OpStore slot numbers), allocating from the
// same slot space as SSA values so every live quantity in the
// function gets exactly one stack address.
func (fr *frame) localSlot(idx int) int32 {
	if s, ok := fr.local[idx]; ok {
		return slotOffset(s)
	}
	s := fr.nslots
	fr.nslots++
	fr.local[idx] = s
	return slotOffset(s)
}

// assign returns v's slot index, allocating a fresh one on first use.
func (fr *frame) assign(v *ir.Value) int32 {
	if v == nil {
		return -1
	}
	if s, ok := fr.slot[v.ID]; ok {
		return s
	}
	s := fr.nslots
	fr.nslots++
	fr.slot[v.ID] = s
	return s
}

// slotOffset returns the rbp-relative byte displacement of slot i: slots
// grow down from [rbp-8].
func slotOffset(i int32) int32 { return -8 * (i + 1) }

// size returns the 16-byte-aligned stack space fr's slots require.
func (fr *frame) size() int32 {
	n := fr.nslots * 8
	if n%16 != 0 {
		n += 16 - n%16
	}
	return n
}
