package x64

import "splc/src/ir"

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// funcCtx is the per-instance lowering context: the virtual stack, the label-reconvergence table
// of §4.8.4, and the instance's own output buffer (kept separate from the package-level emitter so
// the prologue's SUB RSP placeholder can be patched once max_stack_used is known).
type funcCtx struct {
	inst *ir.Instance
	v    *vstack
	b    *asmBuf

	labelArgs map[string][]slot // §4.8.4: snapshot of args recorded at a label's first arrival.

	lastOperand string // scratch: operand text produced by the most recent emitCallArgOperand call.

	usesPrintf  bool
	usesPutchar bool
	usesMalloc  bool
}

// callArg is one actual argument to emitRawCall: either a virtual-stack value (loaded with mov) or
// the address of a data-section label (loaded with lea) — the two printf/putchar/malloc helpers
// need the latter for the format-string argument, which has no virtual-stack representation.
type callArg struct {
	value slot
	lea   string
}

// ---------------------
// ----- functions -----
// ---------------------

func newFuncCtx(inst *ir.Instance) *funcCtx {
	b := &asmBuf{}
	fc := &funcCtx{inst: inst, b: b, labelArgs: map[string][]slot{}}
	fc.v = newVStack(b.emitf)
	return fc
}

// setupArgs initializes the args array per the System V integer calling convention (§4.8.3): the
// first six in RDI..R9, the rest as incoming stack slots at rbp+16, rbp+24, ...
func (fc *funcCtx) setupArgs(arity int) {
	fc.v.args = make([]slot, arity)
	for i := 0; i < arity; i++ {
		if i < 6 {
			fc.v.args[i] = slot{kind: slotRegister, reg: argRegOrder[i]}
		} else {
			fc.v.args[i] = slot{kind: slotArgStack, off: i - 6}
		}
	}
}

// emitPrologue writes the fixed entry sequence of §4.8.2: push rbp, mov rbp,rsp, a placeholder
// frame-size subtraction (patched once the function's max_stack_used is known), then the
// callee-saved pushes.
func (fc *funcCtx) emitPrologue() {
	fc.b.emitf("push rbp")
	fc.b.emitf("mov rbp, rsp")
	fc.b.markStackSizePlaceholder()
	for _, r := range calleeSaved {
		fc.b.emitf("push %s", r)
	}
}

// emitEpilogue writes the fixed exit sequence: pop the callee-saved registers in reverse, restore
// rsp/rbp, ret. withValue additionally moves the top-of-stack value into rax first (§4.8.2).
func (fc *funcCtx) emitEpilogue(withValue bool) {
	if withValue {
		top := fc.v.pop()
		fc.b.emitf("mov rax, %s", top.operand())
	}
	for i := len(calleeSaved) - 1; i >= 0; i-- {
		fc.b.emitf("pop %s", calleeSaved[i])
	}
	fc.b.emitf("mov rsp, rbp")
	fc.b.emitf("pop rbp")
	fc.b.emitf("ret")
}

// finish patches the prologue's stack-size placeholder now that every local the function ever
// spilled or declared is accounted for (§4.8.2: "rounded up to a 16-byte multiple").
func (fc *funcCtx) finish() string {
	size := roundUp16(fc.v.maxStackUsed * 8)
	return fc.b.resolve(size)
}

func roundUp16(n int) int {
	if n%16 == 0 {
		return n
	}
	return n + (16 - n%16)
}

// clearCallerSaved spills every caller-saved register not named in keep (the registers this call's
// own argument shuffle just filled on purpose) so the callee is free to clobber the rest (§4.8.3
// step iii).
func (fc *funcCtx) clearCallerSaved(keep map[regID]bool) {
	for _, r := range callerSaved {
		if keep[r] {
			continue
		}
		fc.v.clearRegister(r)
	}
}

// emitRawCall implements the full calling-convention sequence of §4.8.3 for an arbitrary target
// symbol and argument list: reserve destination registers, push overflow args, move register args
// into place (clearing whatever previously lived there), clear the remaining caller-saved
// registers, bracket the call for 16-byte alignment if needed, call, and push the RAX result.
func (fc *funcCtx) emitRawCall(target string, args []callArg) {
	v := fc.v
	n := len(args)
	regN := n
	if regN > 6 {
		regN = 6
	}

	keep := map[regID]bool{}
	for i := 0; i < regN; i++ {
		keep[argRegOrder[i]] = true
		v.reserve(argRegOrder[i])
	}

	// Overflow arguments are pushed last-first so the first overflow argument ends up nearest the
	// return address, matching the [rbp+16], [rbp+24], ... layout a callee's prologue expects.
	overflow := 0
	for i := n - 1; i >= 6; i-- {
		fc.emitCallArgOperand(args[i], "")
		fc.b.emitf("push %s", fc.lastOperand)
		overflow++
		v.alignment += 8
	}

	for i := 0; i < regN; i++ {
		dst := argRegOrder[i]
		a := args[i]
		if a.lea == "" && a.value.kind == slotRegister && a.value.reg == dst {
			continue
		}
		v.clearRegister(dst)
		if a.lea != "" {
			fc.b.emitf("lea %s, [rel %s]", dst, a.lea)
		} else {
			fc.b.emitf("mov %s, %s", dst, a.value.operand())
		}
	}

	for i := 0; i < regN; i++ {
		v.release(argRegOrder[i])
	}
	fc.clearCallerSaved(keep)

	bracket := v.alignment%16 != 0
	if bracket {
		fc.b.emitf("sub rsp, 8")
	}
	if target == "_printf" {
		fc.b.emitf("xor rax, rax") // variadic convention: al = vector-register arg count, 0 here.
	}
	fc.b.emitf("call %s", target)
	if bracket {
		fc.b.emitf("add rsp, 8")
	}
	if overflow > 0 {
		fc.b.emitf("add rsp, %d", overflow*8)
		v.alignment -= overflow * 8
	}

	v.push(slot{kind: slotRegister, reg: RAX})
}

// emitCallArgOperand renders a's value into fc.lastOperand, materializing a lea'd address into a
// fresh register first since push cannot take a [rel label] address operand directly.
func (fc *funcCtx) emitCallArgOperand(a callArg, _ string) {
	if a.lea != "" {
		r := fc.v.findFreeRegister(nil)
		fc.b.emitf("lea %s, [rel %s]", r, a.lea)
		fc.lastOperand = r.String()
		return
	}
	fc.lastOperand = a.value.operand()
}

// emitCall lowers a generic-IR Call instruction: pop the target's arity worth of argument slots
// (restoring left-to-right source order) and run them through the shared calling convention.
func (fc *funcCtx) emitCall(target *ir.Instance) {
	n := len(target.ArgTypes)
	args := make([]callArg, n)
	for i := n - 1; i >= 0; i-- {
		args[i] = callArg{value: fc.v.pop()}
	}
	label := "f_" + target.MangledID
	if target.Entry {
		label = "_main"
	}
	fc.emitRawCall(label, args)
}

func (fc *funcCtx) emitPrintInt(val slot) {
	fc.usesPrintf = true
	fc.emitRawCall("_printf", []callArg{{lea: "int_format"}, {value: val}})
	fc.v.pop() // printf's own int return value is unused.
}

func (fc *funcCtx) emitPrintChar(val slot) {
	fc.usesPutchar = true
	fc.emitRawCall("_putchar", []callArg{{value: val}})
	fc.v.pop()
}

func (fc *funcCtx) emitMalloc(size int64) regID {
	fc.usesMalloc = true
	fc.emitRawCall("_malloc", []callArg{{value: slot{kind: slotConstant, k: size}}})
	return fc.v.pop().reg
}

// arriveAt implements the branch-argument reconvergence of §4.8.4: the first lowering step (branch
// or label mark, whichever the linear pass reaches first) to name a label fixes its args snapshot;
// every later step naming the same label reconciles the live args array to match it.
func (fc *funcCtx) arriveAt(label string) {
	if snap, ok := fc.labelArgs[label]; ok {
		fc.restoreArgs(snap)
		return
	}
	snap := make([]slot, len(fc.v.args))
	copy(snap, fc.v.args)
	fc.labelArgs[label] = snap
}

// restoreArgs emits the MOVs reconciling the live args array to target, routing memory-to-memory
// reconciliations through a scratch register (§4.8.4).
func (fc *funcCtx) restoreArgs(target []slot) {
	v := fc.v
	for i := range v.args {
		cur, want := v.args[i], target[i]
		if cur == want {
			continue
		}
		switch {
		case want.kind == slotRegister:
			fc.b.emitf("mov %s, %s", want.reg, cur.operand())
		case cur.kind == slotRegister:
			fc.b.emitf("mov %s, %s", want.operand(), cur.reg)
		default:
			tmp := v.findFreeRegister(nil)
			fc.b.emitf("mov %s, %s", tmp, cur.operand())
			fc.b.emitf("mov %s, %s", want.operand(), tmp)
		}
		v.args[i] = want
	}
}
