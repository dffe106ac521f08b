// Package genir is the monomorphization worklist driver of §4.5: starting from main, it
// materializes one concrete IR instance per (function name, concrete argument types) pair reached
// by the program, synthesizing the hidden program-entry routine and every builtin instance along
// the way (§4.6). Grounded on the teacher's backend/asm.go instruction-buffer-and-label pattern,
// generalized from a single target-specific mnemonic writer into a target-independent ir.Instr
// emitter that both backends consume.
package genir

import (
	"fmt"

	"splc/src/ir"
)

// builder accumulates ir.Instr into one instance's body and mints fresh per-instance labels
// (§3: "distinct name at emission time is lbl_<function-instance-id>_<id>").
type builder struct {
	inst   *ir.Instance
	labels int
}

func (b *builder) emit(i ir.Instr) { b.inst.Body = append(b.inst.Body, i) }

func (b *builder) op(o ir.OpCode) { b.emit(ir.Instr{Op: o}) }

func (b *builder) pushConst(k int64) { b.emit(ir.Instr{Op: ir.PushConst, Const: k}) }

func (b *builder) ldLoc(off int) { b.emit(ir.Instr{Op: ir.LdLoc, Offset: off}) }
func (b *builder) stLoc(off int) { b.emit(ir.Instr{Op: ir.StLoc, Offset: off}) }
func (b *builder) ldGlob(off int) { b.emit(ir.Instr{Op: ir.LdGlob, Offset: off}) }
func (b *builder) stGlob(off int) { b.emit(ir.Instr{Op: ir.StGlob, Offset: off}) }

func (b *builder) ldFld(sel ir.Selector) { b.emit(ir.Instr{Op: ir.LdFld, Sel: sel}) }
func (b *builder) stFld(sel ir.Selector) { b.emit(ir.Instr{Op: ir.StFld, Sel: sel}) }

// ldArg loads the i-th formal argument (0-indexed) of a function of the given arity.
func (b *builder) ldArg(i, arity int) { b.ldLoc(ir.ArgOffset(i, arity)) }

// stArg stores into the i-th formal argument's slot, re-using it as a mutable loop cursor.
func (b *builder) stArg(i, arity int) { b.stLoc(ir.ArgOffset(i, arity)) }

func (b *builder) newLabel() string {
	b.labels++
	return fmt.Sprintf("lbl_%s_%d", b.inst.MangledID, b.labels)
}

func (b *builder) markLabel(l string) { b.emit(ir.Instr{Op: ir.MarkLabel, Label: l}) }
func (b *builder) br(l string)        { b.emit(ir.Instr{Op: ir.Br, Label: l}) }
func (b *builder) brTrue(l string)    { b.emit(ir.Instr{Op: ir.BrTrue, Label: l}) }
func (b *builder) brFalse(l string)   { b.emit(ir.Instr{Op: ir.BrFalse, Label: l}) }

func (b *builder) call(target *ir.Instance) { b.emit(ir.Instr{Op: ir.Call, Target: target}) }

// emitLiteralString pushes PrintChar for every rune of s, in order, with no trailing newline.
func (b *builder) emitLiteralString(s string) {
	for _, r := range s {
		b.pushConst(int64(r))
		b.op(ir.PrintChar)
	}
}

// endsInReturn reports whether a body's last instruction already leaves via Ret, RetNoValue or Halt.
func endsInReturn(body []ir.Instr) bool {
	if len(body) == 0 {
		return false
	}
	switch body[len(body)-1].Op {
	case ir.Ret, ir.RetNoValue, ir.Halt:
		return true
	default:
		return false
	}
}
