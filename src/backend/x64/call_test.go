package x64

import (
	"strings"
	"testing"

	"splc/src/ir"
	"splc/src/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFuncCtx(inst *ir.Instance, arity int) *funcCtx {
	fc := newFuncCtx(inst)
	fc.setupArgs(arity)
	return fc
}

// TestEmitRawCall_KeepsStackAlignedAtCallSite checks property 8: starting from the funcCtx's own
// tracked alignment convention (8, for the caller's own return address, per newVStack), the net
// effect of every push/sub/add emitted before the "call" line must bring the stack to a multiple
// of 16 so that CALL's own implicit return-address push leaves the callee at the same 8-mod-16
// convention its prologue expects.
func TestEmitRawCall_KeepsStackAlignedAtCallSite(t *testing.T) {
	callee := &ir.Instance{Name: "f", MangledID: "f_1", ArgTypes: []*types.Type{types.NewInt()}}
	caller := &ir.Instance{Name: "g", MangledID: "g_1"}

	fc := newTestFuncCtx(caller, 0)
	fc.v.push(slot{kind: slotConstant, k: 1})
	fc.emitCall(callee)

	running := 8
	var atCall int
	for _, l := range fc.b.lines {
		trimmed := strings.TrimSpace(l)
		switch {
		case strings.HasPrefix(trimmed, "call "):
			atCall = running
		case strings.HasPrefix(trimmed, "push "):
			running += 8
		case strings.HasPrefix(trimmed, "sub rsp, "):
			running += 8
		case strings.HasPrefix(trimmed, "add rsp, "):
			running -= 8
		case strings.HasPrefix(trimmed, "pop "):
			running -= 8
		}
	}
	assert.Equal(t, 0, atCall%16, "rsp must be 16-byte aligned at the instant CALL executes")
}

func TestEmitRawCall_SevenArgsPushesOverflowInReverseOrder(t *testing.T) {
	callee := &ir.Instance{Name: "f", MangledID: "f_1"}
	caller := &ir.Instance{Name: "g", MangledID: "g_1"}
	fc := newTestFuncCtx(caller, 0)

	args := make([]callArg, 7)
	for i := range args {
		args[i] = callArg{value: slot{kind: slotConstant, k: int64(i)}}
	}
	fc.emitRawCall("f_"+callee.MangledID, args)

	var pushes []string
	for _, l := range fc.b.lines {
		trimmed := strings.TrimSpace(l)
		if strings.HasPrefix(trimmed, "push ") && !strings.Contains(trimmed, "r") {
			pushes = append(pushes, trimmed)
		}
	}
	require.Len(t, pushes, 1, "exactly one argument overflows the six integer registers")
	assert.Equal(t, "push 6", pushes[0], "the 7th argument (index 6) is the sole overflow arg")
}

func TestArriveAt_ReconcilesLaterArrivalToFirstSnapshot(t *testing.T) {
	inst := &ir.Instance{Name: "f", MangledID: "f_1"}
	fc := newTestFuncCtx(inst, 1)

	fc.arriveAt("L")
	snap := fc.labelArgs["L"]
	require.Len(t, snap, 1)

	fc.v.args[0] = slot{kind: slotRegister, reg: R12}
	fc.arriveAt("L")

	assert.Equal(t, snap, fc.v.args, "args must be reconciled back to the first-arrival snapshot")
	assert.NotEmpty(t, fc.b.lines, "reconciliation must emit at least one mov")
}

func TestArriveAt_FirstArrivalFixesSnapshotRegardlessOfBranchOrLabel(t *testing.T) {
	inst := &ir.Instance{Name: "f", MangledID: "f_1"}
	fc := newTestFuncCtx(inst, 1)

	fc.v.args[0] = slot{kind: slotFrame, off: 3}
	fc.arriveAt("loop")
	require.Equal(t, []slot{{kind: slotFrame, off: 3}}, fc.labelArgs["loop"])
}
