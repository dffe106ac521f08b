package x64

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVStack(t *testing.T) (*vstack, *[]string) {
	t.Helper()
	lines := &[]string{}
	emit := func(format string, a ...interface{}) {
		*lines = append(*lines, fmt.Sprintf(format, a...))
	}
	return newVStack(emit), lines
}

func TestFindFreeRegister_FollowsCandidateOrder(t *testing.T) {
	v, _ := newTestVStack(t)
	r := v.findFreeRegister(nil)
	assert.Equal(t, R12, r, "first scan must return the first candidateOrder entry when nothing is live")
}

func TestFindFreeRegister_SkipsLiveAndReservedRegisters(t *testing.T) {
	v, _ := newTestVStack(t)
	v.push(slot{kind: slotRegister, reg: R12})
	v.reserve(R13)
	r := v.findFreeRegister(nil)
	assert.Equal(t, R14, r)
}

func TestFindFreeRegister_SpillsWhenEveryCandidateIsLive(t *testing.T) {
	v, lines := newTestVStack(t)
	for _, r := range candidateOrder {
		v.push(slot{kind: slotRegister, reg: r})
	}
	before := v.maxStackUsed
	got := v.findFreeRegister(nil)
	assert.True(t, v.maxStackUsed > before, "spilling must allocate a fresh frame slot")
	assert.NotEmpty(t, *lines, "spill must emit a mov instruction")

	var stillLive bool
	for _, s := range v.stack {
		if s.kind == slotRegister && s.reg == got {
			stillLive = true
		}
	}
	assert.False(t, stillLive, "the spilled register must no longer be named by any stack cell")
}

func TestCopyToRegister_ReusesInPlaceWhenOccursOnce(t *testing.T) {
	v, lines := newTestVStack(t)
	v.push(slot{kind: slotRegister, reg: R12})
	r := v.copyToRegister(0, nil)
	assert.Equal(t, R12, r)
	assert.Empty(t, *lines, "reusing an already-allocated single-occurrence register must not emit a mov")
	assert.Equal(t, R12, v.stack[0].reg, "copyToRegister must leave the original cell untouched")
}

func TestMoveToRegister_ReplacesCell(t *testing.T) {
	v, _ := newTestVStack(t)
	v.push(slot{kind: slotFrame, off: 0})
	r := v.moveToRegister(0, nil)
	require.Equal(t, slotRegister, v.stack[0].kind)
	assert.Equal(t, r, v.stack[0].reg)
}

func TestClearRegister_RewritesAllOccurrences(t *testing.T) {
	v, _ := newTestVStack(t)
	v.push(slot{kind: slotRegister, reg: RDI})
	v.args = append(v.args, slot{kind: slotRegister, reg: RDI})
	v.clearRegister(RDI)

	assert.NotEqual(t, RDI, v.stack[0].reg)
	assert.NotEqual(t, RDI, v.args[0].reg)
	assert.Equal(t, v.stack[0].reg, v.args[0].reg, "both occurrences must move to the same new register")
}

func TestAllocFrameSlot_TracksMaxStackUsed(t *testing.T) {
	v, _ := newTestVStack(t)
	a := v.allocFrameSlot()
	b := v.allocFrameSlot()
	assert.Equal(t, 0, a)
	assert.Equal(t, 1, b)
	assert.Equal(t, 2, v.maxStackUsed)
}

func TestRoundUp16(t *testing.T) {
	assert.Equal(t, 0, roundUp16(0))
	assert.Equal(t, 16, roundUp16(8))
	assert.Equal(t, 16, roundUp16(16))
	assert.Equal(t, 32, roundUp16(17))
}
