package ssm

import (
	"strings"
	"testing"

	"splc/src/ir"
	"splc/src/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_EmitsEntryJumpAndGlobalsPrelude(t *testing.T) {
	entry := &ir.Instance{
		Name: "init", Hidden: true, Entry: true, MangledID: "init",
		Body: []ir.Instr{
			{Op: ir.PushConst, Const: 1},
			{Op: ir.Pop},
			{Op: ir.RetNoValue},
		},
	}
	prog := &ir.Program{
		Globals:   []*ir.GlobalVar{{ID: 0, Offset: 0}},
		Instances: []*ir.Instance{entry},
		EntryID:   "init",
	}

	out, err := Generate(prog)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Equal(t, "    bra f_init", lines[0])
	assert.Equal(t, "f_init:", lines[1])
	assert.Contains(t, out, "    ldc 0\n    stmh 1\n")
}

func TestGenerate_RejectsZeroOrMultipleEntries(t *testing.T) {
	_, err := Generate(&ir.Program{Instances: nil})
	assert.Error(t, err)

	a := &ir.Instance{Name: "a", Entry: true, MangledID: "a"}
	b := &ir.Instance{Name: "b", Entry: true, MangledID: "b"}
	_, err = Generate(&ir.Program{Instances: []*ir.Instance{a, b}})
	assert.Error(t, err)
}

func TestEmitInstr_StFldInsertsSwapBeforeStore(t *testing.T) {
	e := &emitter{}
	err := e.emitInstr(ir.Instr{Op: ir.StFld, Sel: ir.Snd}, 0)
	require.NoError(t, err)
	assert.Equal(t, "    swp\n    sta 0\n", e.b.String())
}

func TestEmitInstr_LdFldUsesFstHdLowWordOffset(t *testing.T) {
	e := &emitter{}
	require.NoError(t, e.emitInstr(ir.Instr{Op: ir.LdFld, Sel: ir.Fst}, 0))
	assert.Equal(t, "    lda -1\n", e.b.String())

	e2 := &emitter{}
	require.NoError(t, e2.emitInstr(ir.Instr{Op: ir.LdFld, Sel: ir.Tl}, 0))
	assert.Equal(t, "    lda 0\n", e2.b.String())
}

func TestEmitInstr_CallEmitsBsrAjsAndLoadResult(t *testing.T) {
	callee := &ir.Instance{Name: "f", MangledID: "f_1", ArgTypes: []*types.Type{types.NewInt()}}
	e := &emitter{}
	require.NoError(t, e.emitInstr(ir.Instr{Op: ir.Call, Target: callee}, 0))
	assert.Equal(t, "    bsr f_f_1\n    ajs -1\n    ldr rr\n", e.b.String())
}

func TestEmitInstr_MarkLabelUsesTwoSpaceIndent(t *testing.T) {
	e := &emitter{}
	require.NoError(t, e.emitInstr(ir.Instr{Op: ir.MarkLabel, Label: "lbl_0"}, 0))
	assert.Equal(t, "  lbl_0:\n", e.b.String())
}
