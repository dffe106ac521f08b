// Package ssm lowers generic IR (package ir) to the textual stack-machine assembly of §4.7: one
// mnemonic-per-opcode translation plus the globals-reservation prelude written ahead of the
// program-entry routine. Grounded on the teacher's backend/asm.go top-level driver shape
// (GenerateAssembler(opt) walking every function and burst-writing its listing) generalized from
// a register-allocating driver into a pure textual opcode transliteration, since a stack machine
// needs no register file.
package ssm

import (
	"fmt"
	"strings"

	"splc/src/errors"
	"splc/src/ir"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// emitter accumulates one program's worth of SSM listing text.
type emitter struct {
	b strings.Builder
}

// ---------------------
// ----- Constants -----
// ---------------------

// heapLocation is the fixed base offset added to every global slot's index (§4.7): the globals
// prelude's Stmh leaves the heap pointer one past the reserved block, but global access always
// addresses relative to this constant rather than tracking the live heap pointer.
const heapLocation = 2000

// ---------------------
// ----- functions -----
// ---------------------

// Generate lowers prog to a complete SSM assembly listing. Exactly one instance must carry the
// entry flag (§4.7: "only one function may carry the entry-point flag; duplicates are a driver
// error").
func Generate(prog *ir.Program) (string, error) {
	entry, err := findEntry(prog)
	if err != nil {
		return "", err
	}

	e := &emitter{}
	fmt.Fprintf(&e.b, "    bra f_%s\n", entry.MangledID)

	for _, inst := range prog.Instances {
		if err := e.emitInstance(inst, prog, inst == entry); err != nil {
			return "", err
		}
	}
	return e.b.String(), nil
}

func findEntry(prog *ir.Program) (*ir.Instance, error) {
	var entry *ir.Instance
	count := 0
	for _, inst := range prog.Instances {
		if inst.Entry {
			count++
			entry = inst
		}
	}
	if count != 1 {
		return nil, errors.NewCodeGenError(errors.CodeRange{}, "expected exactly one entry-point instance, found %d", count)
	}
	return entry, nil
}

// emitInstance writes MarkFunction(mangled_id), Link(local_count), the globals prelude when this
// is the entry instance, then every lowered instruction in the instance's body.
func (e *emitter) emitInstance(inst *ir.Instance, prog *ir.Program, isEntry bool) error {
	fmt.Fprintf(&e.b, "f_%s:\n", inst.MangledID)
	fmt.Fprintf(&e.b, "    link %d\n", inst.LocalCount)

	if isEntry {
		n := len(prog.Globals)
		for i := 0; i < n; i++ {
			e.b.WriteString("    ldc 0\n")
		}
		fmt.Fprintf(&e.b, "    stmh %d\n", n)
	}

	for _, instr := range inst.Body {
		if err := e.emitInstr(instr, len(inst.ArgTypes)); err != nil {
			return err
		}
	}
	return nil
}

var fixedMnemonic = map[ir.OpCode]string{
	ir.Add: "add", ir.Sub: "sub", ir.Mul: "mul", ir.Div: "div", ir.Mod: "mod",
	ir.Neg: "neg", ir.Not: "not", ir.And: "and", ir.Or: "or",
	ir.Eq: "eq", ir.Ne: "ne", ir.Lt: "lt", ir.Le: "le", ir.Gt: "gt", ir.Ge: "ge",
	ir.Swp: "swp",
}

// emitInstr lowers one generic-IR instruction to its SSM mnemonic(s) (§4.7's mapping table).
// arity is unused by the textual SSM lowering (unlike the x64 backend's calling convention, which
// needs it to know how many argument registers a call clobbers) but kept for signature symmetry
// between the two backends' per-instruction emitters.
func (e *emitter) emitInstr(instr ir.Instr, arity int) error {
	if m, ok := fixedMnemonic[instr.Op]; ok {
		fmt.Fprintf(&e.b, "    %s\n", m)
		return nil
	}

	switch instr.Op {
	case ir.PushConst:
		fmt.Fprintf(&e.b, "    ldc %d\n", instr.Const)
	case ir.CreateListNil:
		e.b.WriteString("    ldc 0\n")
	case ir.CreateListCons, ir.CreateTuple:
		e.b.WriteString("    stmh 2\n")
	case ir.Pop:
		e.b.WriteString("    ajs -1\n")
	case ir.LdLoc:
		off := instr.Offset
		if off < 0 {
			off--
		}
		fmt.Fprintf(&e.b, "    ldl %d\n", off)
	case ir.StLoc:
		fmt.Fprintf(&e.b, "    stl %d\n", instr.Offset)
	case ir.LdGlob:
		fmt.Fprintf(&e.b, "    ldc %d\n", heapLocation+instr.Offset)
		e.b.WriteString("    lda 0\n")
	case ir.StGlob:
		fmt.Fprintf(&e.b, "    ldc %d\n", heapLocation+instr.Offset)
		e.b.WriteString("    sta 0\n")
	case ir.LdFld:
		fmt.Fprintf(&e.b, "    lda %d\n", fieldOffset(instr.Sel))
	case ir.StFld:
		// StFld arrives with the address below the value to store (§4.5's RHS-then-address-then-Swp
		// sequence); Sta's native operand order wants the address on top, so an extra swp restores
		// it before the store (the reference implementation's bare Lda here was a defect — §9).
		e.b.WriteString("    swp\n")
		fmt.Fprintf(&e.b, "    sta %d\n", fieldOffset(instr.Sel))
	case ir.Br:
		fmt.Fprintf(&e.b, "    bra %s\n", instr.Label)
	case ir.BrTrue:
		fmt.Fprintf(&e.b, "    brt %s\n", instr.Label)
	case ir.BrFalse:
		fmt.Fprintf(&e.b, "    brf %s\n", instr.Label)
	case ir.MarkLabel:
		fmt.Fprintf(&e.b, "  %s:\n", instr.Label)
	case ir.Call:
		fmt.Fprintf(&e.b, "    bsr f_%s\n", instr.Target.MangledID)
		fmt.Fprintf(&e.b, "    ajs %d\n", -len(instr.Target.ArgTypes))
		e.b.WriteString("    ldr rr\n")
	case ir.Ret:
		e.b.WriteString("    str rr\n")
		e.b.WriteString("    unlink\n")
		e.b.WriteString("    ret\n")
	case ir.RetNoValue:
		e.b.WriteString("    unlink\n")
		e.b.WriteString("    ret\n")
	case ir.Halt:
		e.b.WriteString("    halt\n")
	case ir.PrintInt:
		e.b.WriteString("    trap 0\n")
	case ir.PrintChar:
		e.b.WriteString("    trap 1\n")
	default:
		return errors.NewCodeGenError(errors.CodeRange{}, "ssm: unsupported opcode %s", instr.Op)
	}
	return nil
}

func fieldOffset(sel ir.Selector) int {
	switch sel {
	case ir.Fst, ir.Hd:
		return -1
	default:
		return 0
	}
}
