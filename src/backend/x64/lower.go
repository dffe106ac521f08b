package x64

import (
	"fmt"
	"strconv"

	"splc/src/ir"
	"splc/src/util"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// asmBuf accumulates one function's instruction lines, deferring the prologue's frame-size
// subtraction until the function's max_stack_used is known (§4.8.2).
type asmBuf struct {
	lines []string
}

const stackSizePlaceholder = "##STACKSIZE##"

func (b *asmBuf) emitf(format string, a ...interface{}) {
	b.lines = append(b.lines, "    "+fmt.Sprintf(format, a...))
}

func (b *asmBuf) emitLabel(name string) {
	b.lines = append(b.lines, name+":")
}

func (b *asmBuf) markStackSizePlaceholder() {
	b.lines = append(b.lines, stackSizePlaceholder)
}

func (b *asmBuf) resolve(size int) string {
	var out string
	for _, l := range b.lines {
		if l == stackSizePlaceholder {
			out += "    sub rsp, " + strconv.Itoa(size) + "\n"
			continue
		}
		out += l + "\n"
	}
	return out
}

// arithMnemonic maps the two-operand integer opcodes directly onto their NASM mnemonic (§4.8.5).
var arithMnemonic = map[ir.OpCode]string{
	ir.Add: "add", ir.Sub: "sub", ir.Mul: "imul", ir.And: "and", ir.Or: "or",
}

// jccMnemonic and jccNegated implement the comparison lowering of §4.8.5: XOR the result register,
// CMP the operands, jump over a MOV result,-1 on the negated condition so the register ends up -1
// (true) or 0 (false) per the boolean encoding.
var jccMnemonic = map[ir.OpCode]string{
	ir.Eq: "je", ir.Ne: "jne", ir.Lt: "jl", ir.Le: "jle", ir.Gt: "jg", ir.Ge: "jge",
}
var jccNegated = map[ir.OpCode]string{
	ir.Eq: "jne", ir.Ne: "je", ir.Lt: "jge", ir.Le: "jg", ir.Gt: "jle", ir.Ge: "jl",
}

func fieldByteOffset(sel ir.Selector) int {
	switch sel {
	case ir.Fst, ir.Hd:
		return 0
	default:
		return 8
	}
}

// ---------------------
// ----- functions -----
// ---------------------

// lower dispatches one generic-IR instruction to its x86-64 expansion (§4.8.5), mutating the
// virtual stack and emitting into fc.b as it goes. label is an explicit switch over the opcode tag
// throughout (the REDESIGN FLAG's fix for the reference BrLe/BrLt dispatch bug) rather than any
// arithmetic-on-opcode-value shortcut.
func (fc *funcCtx) lower(instr ir.Instr) error {
	v := fc.v
	switch instr.Op {
	case ir.Add, ir.Sub, ir.And, ir.Or:
		rhs := v.pop()
		lhsReg := v.moveToRegister(0, nil)
		fc.b.emitf("%s %s, %s", arithMnemonic[instr.Op], lhsReg, rhs.operand())

	case ir.Mul:
		rhs := v.pop()
		lhsReg := v.moveToRegister(0, nil)
		fc.b.emitf("imul %s, %s", lhsReg, rhs.operand())

	case ir.Div, ir.Mod:
		rhs := v.pop()
		rhsReg := v.materializeOperand(rhs)
		v.reserve(rhsReg)
		v.reserve(RDX)
		v.clearRegister(RAX)
		v.clearRegister(RDX)
		lhs := v.pop()
		fc.b.emitf("mov rax, %s", lhs.operand())
		fc.b.emitf("xor rdx, rdx")
		fc.b.emitf("idiv %s", rhsReg)
		v.release(RDX)
		v.release(rhsReg)
		if instr.Op == ir.Div {
			v.push(slot{kind: slotRegister, reg: RAX})
		} else {
			v.push(slot{kind: slotRegister, reg: RDX})
		}

	case ir.Neg:
		top := v.peek()
		if top.kind == slotConstant {
			v.setTop(slot{kind: slotConstant, k: -top.k})
		} else {
			r := v.moveToRegister(0, nil)
			fc.b.emitf("neg %s", r)
		}

	case ir.Not:
		r := v.moveToRegister(0, nil)
		fc.b.emitf("not %s", r)

	case ir.Eq, ir.Ne, ir.Lt, ir.Le, ir.Gt, ir.Ge:
		rhs := v.pop()
		lhs := v.pop()
		lhsReg := v.materializeOperand(lhs)
		v.reserve(lhsReg)
		t := v.findFreeRegister(nil)
		v.release(lhsReg)
		fc.b.emitf("xor %s, %s", t, t)
		fc.b.emitf("cmp %s, %s", lhsReg, rhs.operand())
		lbl := fc.newInternalLabel()
		fc.b.emitf("%s %s", jccNegated[instr.Op], lbl)
		fc.b.emitf("mov %s, -1", t)
		fc.b.emitLabel(lbl)
		v.push(slot{kind: slotRegister, reg: t})

	case ir.PushConst:
		v.push(slot{kind: slotConstant, k: instr.Const})

	case ir.CreateListNil:
		v.push(slot{kind: slotConstant, k: 0})

	case ir.CreateListCons, ir.CreateTuple:
		snd := v.pop()
		fst := v.pop()
		r := fc.emitMalloc(16)
		v.reserve(r)
		fc.b.emitf("mov qword [%s+0], %s", r, fst.operand())
		fc.b.emitf("mov qword [%s+8], %s", r, snd.operand())
		v.release(r)
		v.push(slot{kind: slotRegister, reg: r})

	case ir.Pop:
		v.pop()

	case ir.Swp:
		n := len(v.stack)
		v.stack[n-1], v.stack[n-2] = v.stack[n-2], v.stack[n-1]

	case ir.LdLoc:
		if instr.Offset < 0 {
			idx := instr.Offset + len(v.args)
			v.push(v.args[idx])
		} else {
			v.push(slot{kind: slotFrame, off: instr.Offset})
		}

	case ir.StLoc:
		val := v.pop()
		if instr.Offset < 0 {
			idx := instr.Offset + len(v.args)
			dst := v.args[idx]
			if dst.kind == slotRegister {
				// LdLoc hands out dst.reg itself (not a copy) to any stack cell that reads this
				// parameter, so overwriting it in place would corrupt those aliases; materialize
				// the new value into a fresh register and rebind args[idx] to it instead.
				r := v.findFreeRegister(nil)
				if val.isMemory() {
					rv := v.materializeOperand(val)
					fc.b.emitf("mov %s, %s", r, rv)
				} else {
					fc.b.emitf("mov %s, %s", r, val.operand())
				}
				v.args[idx] = slot{kind: slotRegister, reg: r}
			} else if val.isMemory() {
				rv := v.materializeOperand(val)
				fc.b.emitf("mov %s, %s", dst.operand(), rv)
			} else {
				fc.b.emitf("mov %s, %s", dst.operand(), val.operand())
			}
			return nil
		}

		dst := slot{kind: slotFrame, off: instr.Offset}
		if instr.Offset >= v.nextFrameSlot {
			v.nextFrameSlot = instr.Offset + 1
			if v.nextFrameSlot > v.maxStackUsed {
				v.maxStackUsed = v.nextFrameSlot
			}
		}
		if val.isMemory() {
			r := v.materializeOperand(val)
			fc.b.emitf("mov %s, %s", dst.operand(), r)
		} else {
			fc.b.emitf("mov %s, %s", dst.operand(), val.operand())
		}

	case ir.LdGlob:
		v.push(slot{kind: slotGlobal, off: instr.Offset})

	case ir.StGlob:
		val := v.pop()
		r := v.materializeOperand(val)
		fc.b.emitf("mov qword [rel global_%d], %s", instr.Offset, r)

	case ir.LdFld:
		base := v.pop()
		r := v.materializeOperand(base)
		v.reserve(r)
		dst := v.findFreeRegister(nil)
		v.release(r)
		fc.b.emitf("mov %s, [%s+%d]", dst, r, fieldByteOffset(instr.Sel))
		v.push(slot{kind: slotRegister, reg: dst})

	case ir.StFld:
		val := v.pop()
		base := v.pop()
		r := v.materializeOperand(base)
		fc.b.emitf("mov qword [%s+%d], %s", r, fieldByteOffset(instr.Sel), val.operand())

	case ir.Br:
		fc.arriveAt(instr.Label)
		fc.b.emitf("jmp %s", instr.Label)

	case ir.BrTrue, ir.BrFalse:
		top := v.pop()
		r := v.materializeOperand(top)
		fc.b.emitf("cmp %s, 0", r)
		fc.arriveAt(instr.Label)
		if instr.Op == ir.BrTrue {
			fc.b.emitf("jne %s", instr.Label)
		} else {
			fc.b.emitf("je %s", instr.Label)
		}

	case ir.MarkLabel:
		fc.arriveAt(instr.Label)
		fc.b.emitLabel(instr.Label)

	case ir.Call:
		fc.emitCall(instr.Target)

	case ir.Ret:
		fc.emitEpilogue(true)

	case ir.RetNoValue, ir.Halt:
		fc.emitEpilogue(false)

	case ir.PrintInt:
		fc.emitPrintInt(v.pop())

	case ir.PrintChar:
		fc.emitPrintChar(v.pop())
	}
	return nil
}

// newInternalLabel mints a backend-private label for the comparison lowering's skip-the-MOV jump
// (§4.8.5) through the shared thread-safe label allocator; these never appear in the generic IR and
// so cannot collide with genir's lbl_* names.
func (fc *funcCtx) newInternalLabel() string {
	return util.NewLabel(util.LabelCmpTrue)
}
