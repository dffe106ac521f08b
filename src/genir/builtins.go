package genir

import (
	"splc/src/errors"
	"splc/src/ir"
	"splc/src/types"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// builtinGenerators maps a builtin's surface name to the function that synthesizes one concrete
// instance's body for it (§4.6). Each generator is handed the already-allocated *ir.Instance,
// whose ArgTypes are the concrete types this particular monomorphization was reached with.
var builtinGenerators = map[string]func(*generator, *ir.Instance) error{
	"print":   genPrint,
	"println": genPrintln,
	"equals":  genEquals,
	"__refeq": genRefEq,
	"__add":   genAdd,
	"len":     genLen,
	"isEmpty": genIsEmpty,
}

// bctx accumulates a builtin body, allocating fresh local slots on demand (a builtin has no
// source-declared locals, only the ones its own structural recursion needs for cursors and
// scratch pointers).
type bctx struct {
	*builder
	g         *generator
	nextLocal int
}

// ---------------------
// ----- functions -----
// ---------------------

func (bc *bctx) newLocal() int {
	off := bc.nextLocal
	bc.nextLocal++
	return off
}

// ground reports whether t contains no unconstrained inference variable anywhere in its
// structure. A builtin instantiated against a non-ground type (e.g. `var xs = [];` never used in
// a way that pins its element type) cannot know how to recurse into its elements, so its body
// becomes a diagnostic-and-halt guard instead (§9's disposition for that Open Question).
func ground(t *types.Type) bool {
	switch t.Kind {
	case types.Var:
		return false
	case types.List:
		return ground(t.Elem)
	case types.Tuple:
		return ground(t.Fst) && ground(t.Snd)
	default:
		return true
	}
}

// emitPolymorphicGuard replaces a builtin instance's entire body with a diagnostic print followed
// by Halt, for the case where ArgTypes still contains an unconstrained variable.
func emitPolymorphicGuard(b *builder) {
	b.emitLiteralString("runtime error: operation attempted on a value of indeterminate type\n")
	b.op(ir.Halt)
}

// genPrint synthesizes print(T): push the single argument, print it without a trailing newline.
func genPrint(g *generator, inst *ir.Instance) error {
	t := inst.ArgTypes[0]
	b := &builder{inst: inst}
	if !ground(t) {
		emitPolymorphicGuard(b)
		return nil
	}
	bc := &bctx{builder: b, g: g}
	b.ldArg(0, 1)
	if err := emitPrintValue(bc, t); err != nil {
		return err
	}
	b.op(ir.RetNoValue)
	inst.LocalCount = bc.nextLocal
	return nil
}

// genPrintln synthesizes println(T): identical to print, plus a trailing newline.
func genPrintln(g *generator, inst *ir.Instance) error {
	t := inst.ArgTypes[0]
	b := &builder{inst: inst}
	if !ground(t) {
		emitPolymorphicGuard(b)
		return nil
	}
	bc := &bctx{builder: b, g: g}
	b.ldArg(0, 1)
	if err := emitPrintValue(bc, t); err != nil {
		return err
	}
	b.pushConst(int64('\n'))
	b.op(ir.PrintChar)
	b.op(ir.RetNoValue)
	inst.LocalCount = bc.nextLocal
	return nil
}

// emitPrintValue consumes a value of type t already on top of the stack and emits the code to
// print its textual representation (§8's `println(1:2:3:[])` -> "1 : 2 : 3 : []" scenario).
func emitPrintValue(bc *bctx, t *types.Type) error {
	switch t.Kind {
	case types.Int:
		bc.op(ir.PrintInt)
		return nil
	case types.Char:
		bc.op(ir.PrintChar)
		return nil
	case types.Bool:
		return emitPrintBool(bc)
	case types.List:
		return emitPrintList(bc, t)
	case types.Tuple:
		return emitPrintTuple(bc, t)
	default:
		return errors.NewCodeGenError(errors.CodeRange{}, "print is not defined for type %s", t)
	}
}

func emitPrintBool(bc *bctx) error {
	isFalse, done := bc.newLabel(), bc.newLabel()
	bc.brFalse(isFalse)
	bc.emitLiteralString("True")
	bc.br(done)
	bc.markLabel(isFalse)
	bc.emitLiteralString("False")
	bc.markLabel(done)
	return nil
}

// emitPrintList special-cases [Char] as raw text (a desugared string literal should print as
// `hello`, not as a cons chain), and otherwise prints the `hd : hd : ... : []` structural form.
func emitPrintList(bc *bctx, t *types.Type) error {
	if t.Elem.Kind == types.Char {
		return emitPrintString(bc)
	}
	cursor := bc.newLocal()
	bc.stLoc(cursor)
	loopStart, isNil, done := bc.newLabel(), bc.newLabel(), bc.newLabel()
	bc.markLabel(loopStart)
	bc.ldLoc(cursor)
	bc.pushConst(0)
	bc.op(ir.Eq)
	bc.brTrue(isNil)
	bc.ldLoc(cursor)
	bc.ldFld(ir.Hd)
	if err := emitPrintValue(bc, t.Elem); err != nil {
		return err
	}
	bc.emitLiteralString(" : ")
	bc.ldLoc(cursor)
	bc.ldFld(ir.Tl)
	bc.stLoc(cursor)
	bc.br(loopStart)
	bc.markLabel(isNil)
	bc.emitLiteralString("[]")
	bc.markLabel(done)
	return nil
}

func emitPrintString(bc *bctx) error {
	cursor := bc.newLocal()
	bc.stLoc(cursor)
	loopStart, done := bc.newLabel(), bc.newLabel()
	bc.markLabel(loopStart)
	bc.ldLoc(cursor)
	bc.pushConst(0)
	bc.op(ir.Eq)
	bc.brTrue(done)
	bc.ldLoc(cursor)
	bc.ldFld(ir.Hd)
	bc.op(ir.PrintChar)
	bc.ldLoc(cursor)
	bc.ldFld(ir.Tl)
	bc.stLoc(cursor)
	bc.br(loopStart)
	bc.markLabel(done)
	return nil
}

func emitPrintTuple(bc *bctx, t *types.Type) error {
	tmp := bc.newLocal()
	bc.stLoc(tmp)
	bc.emitLiteralString("(")
	bc.ldLoc(tmp)
	bc.ldFld(ir.Fst)
	if err := emitPrintValue(bc, t.Fst); err != nil {
		return err
	}
	bc.emitLiteralString(", ")
	bc.ldLoc(tmp)
	bc.ldFld(ir.Snd)
	if err := emitPrintValue(bc, t.Snd); err != nil {
		return err
	}
	bc.emitLiteralString(")")
	return nil
}

// genEquals synthesizes equals(T, T): structural equality, recursing into Tuple/List shape rather
// than comparing heap-cell addresses (§4.6 distinguishes this from __refeq).
func genEquals(g *generator, inst *ir.Instance) error {
	t := inst.ArgTypes[0]
	b := &builder{inst: inst}
	if !ground(t) {
		emitPolymorphicGuard(b)
		return nil
	}
	bc := &bctx{builder: b, g: g}
	b.ldArg(0, 2)
	b.ldArg(1, 2)
	if err := emitEqualsValue(bc, t); err != nil {
		return err
	}
	b.op(ir.Ret)
	inst.LocalCount = bc.nextLocal
	return nil
}

// emitEqualsValue consumes [lhs, rhs] (rhs on top) of type t and leaves a single Bool result.
func emitEqualsValue(bc *bctx, t *types.Type) error {
	switch t.Kind {
	case types.Int, types.Bool, types.Char:
		bc.op(ir.Eq)
		return nil
	case types.Tuple:
		return emitEqualsTuple(bc, t)
	case types.List:
		return emitEqualsList(bc, t)
	default:
		return errors.NewCodeGenError(errors.CodeRange{}, "equals is not defined for type %s", t)
	}
}

func emitEqualsTuple(bc *bctx, t *types.Type) error {
	rhsLoc, lhsLoc := bc.newLocal(), bc.newLocal()
	bc.stLoc(rhsLoc)
	bc.stLoc(lhsLoc)
	bc.ldLoc(lhsLoc)
	bc.ldFld(ir.Fst)
	bc.ldLoc(rhsLoc)
	bc.ldFld(ir.Fst)
	if err := emitEqualsValue(bc, t.Fst); err != nil {
		return err
	}
	bc.ldLoc(lhsLoc)
	bc.ldFld(ir.Snd)
	bc.ldLoc(rhsLoc)
	bc.ldFld(ir.Snd)
	if err := emitEqualsValue(bc, t.Snd); err != nil {
		return err
	}
	bc.op(ir.And)
	return nil
}

// emitEqualsList walks both lists in lockstep: unequal lengths or any differing element
// short-circuits to false, reaching nil on both sides simultaneously is true.
func emitEqualsList(bc *bctx, t *types.Type) error {
	rhsLoc, lhsLoc, resultLoc := bc.newLocal(), bc.newLocal(), bc.newLocal()
	bc.stLoc(rhsLoc)
	bc.stLoc(lhsLoc)
	loopStart := bc.newLabel()
	lhsNil := bc.newLabel()
	bothNil := bc.newLabel()
	mismatch := bc.newLabel()
	done := bc.newLabel()

	bc.markLabel(loopStart)
	bc.ldLoc(lhsLoc)
	bc.pushConst(0)
	bc.op(ir.Eq)
	bc.brTrue(lhsNil)

	bc.ldLoc(rhsLoc)
	bc.pushConst(0)
	bc.op(ir.Eq)
	bc.brTrue(mismatch)

	bc.ldLoc(lhsLoc)
	bc.ldFld(ir.Hd)
	bc.ldLoc(rhsLoc)
	bc.ldFld(ir.Hd)
	if err := emitEqualsValue(bc, t.Elem); err != nil {
		return err
	}
	bc.brFalse(mismatch)

	bc.ldLoc(lhsLoc)
	bc.ldFld(ir.Tl)
	bc.stLoc(lhsLoc)
	bc.ldLoc(rhsLoc)
	bc.ldFld(ir.Tl)
	bc.stLoc(rhsLoc)
	bc.br(loopStart)

	bc.markLabel(lhsNil)
	bc.ldLoc(rhsLoc)
	bc.pushConst(0)
	bc.op(ir.Eq)
	bc.brTrue(bothNil)
	bc.br(mismatch)

	bc.markLabel(bothNil)
	bc.pushConst(-1)
	bc.stLoc(resultLoc)
	bc.br(done)

	bc.markLabel(mismatch)
	bc.pushConst(0)
	bc.stLoc(resultLoc)

	bc.markLabel(done)
	bc.ldLoc(resultLoc)
	return nil
}

// genRefEq synthesizes __refeq(T, T): raw-word equality regardless of T, used for reference
// identity rather than structural comparison. Eq operates on the already-pushed words either way
// (a scalar value or a heap-cell address), so no ground check is needed here.
func genRefEq(g *generator, inst *ir.Instance) error {
	b := &builder{inst: inst}
	b.ldArg(0, 2)
	b.ldArg(1, 2)
	b.op(ir.Eq)
	b.op(ir.Ret)
	return nil
}

// genAdd synthesizes __add([T], [T]): list concatenation via the standard self-recursive
// append — if lhs is nil, return rhs; otherwise cons hd(lhs) onto __add(tl(lhs), rhs).
func genAdd(g *generator, inst *ir.Instance) error {
	t := inst.ArgTypes[0]
	b := &builder{inst: inst}
	if !ground(t) {
		emitPolymorphicGuard(b)
		return nil
	}
	notNil := b.newLabel()
	b.ldArg(0, 2)
	b.pushConst(0)
	b.op(ir.Eq)
	b.brFalse(notNil)
	b.ldArg(1, 2)
	b.op(ir.Ret)

	b.markLabel(notNil)
	b.ldArg(0, 2)
	b.ldFld(ir.Hd)
	b.ldArg(0, 2)
	b.ldFld(ir.Tl)
	b.ldArg(1, 2)
	b.call(inst)
	b.op(ir.CreateListCons)
	b.op(ir.Ret)
	return nil
}

// genLen synthesizes len([T]): iterate the spine counting cells. Element contents are never
// touched, so len needs no ground check, unlike print/equals/__add.
func genLen(g *generator, inst *ir.Instance) error {
	b := &builder{inst: inst}
	const cursor, count = 0, 1
	loopStart, done := b.newLabel(), b.newLabel()

	b.ldArg(0, 1)
	b.stLoc(cursor)
	b.pushConst(0)
	b.stLoc(count)

	b.markLabel(loopStart)
	b.ldLoc(cursor)
	b.pushConst(0)
	b.op(ir.Eq)
	b.brTrue(done)
	b.ldLoc(count)
	b.pushConst(1)
	b.op(ir.Add)
	b.stLoc(count)
	b.ldLoc(cursor)
	b.ldFld(ir.Tl)
	b.stLoc(cursor)
	b.br(loopStart)

	b.markLabel(done)
	b.ldLoc(count)
	b.op(ir.Ret)
	inst.LocalCount = 2
	return nil
}

// genIsEmpty synthesizes isEmpty([T]): the list is empty exactly when its cell pointer is the nil
// encoding (0).
func genIsEmpty(g *generator, inst *ir.Instance) error {
	b := &builder{inst: inst}
	b.ldArg(0, 1)
	b.pushConst(0)
	b.op(ir.Eq)
	b.op(ir.Ret)
	return nil
}
