package genir

import (
	"splc/src/ast"
	"splc/src/errors"
	"splc/src/ir"
	"splc/src/typing"
	"splc/src/types"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// ectx is the per-instance emission context: the builder accumulating this instance's body, the
// (already cloned-and-unified, for user functions) typing environment used to read back concrete
// expression types, and the local-slot allocation table.
type ectx struct {
	*builder
	env          *typing.Env
	g            *generator
	localOffsets map[int]int
	nextLocal    int
}

// ---------------------
// ----- functions -----
// ---------------------

func (ec *ectx) loadVar(id int) {
	if off, ok := ec.localOffsets[id]; ok {
		ec.ldLoc(off)
		return
	}
	ec.ldGlob(ec.g.globalOff[id])
}

func (ec *ectx) storeVar(id int) {
	if off, ok := ec.localOffsets[id]; ok {
		ec.stLoc(off)
		return
	}
	ec.stGlob(ec.g.globalOff[id])
}

func (ec *ectx) emitBlock(blk *ast.Block) error {
	for _, s := range blk.Stmts {
		if err := ec.emitStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (ec *ectx) emitStmt(s ast.Stmt) error {
	switch n := s.(type) {
	case *ast.LocalDecl:
		offset := ec.nextLocal
		ec.nextLocal++
		ec.localOffsets[n.ID] = offset
		if err := ec.emitExpr(n.Init); err != nil {
			return err
		}
		ec.stLoc(offset)
		return nil

	case *ast.AssignStmt:
		if err := ec.emitExpr(n.Value); err != nil {
			return err
		}
		switch tgt := n.Target.(type) {
		case *ast.VarLvalue:
			ec.storeVar(tgt.ID)
		case *ast.FieldLvalue:
			ec.emitLvalueAddr(tgt.Target)
			ec.op(ir.Swp)
			ec.stFld(tgt.Sel)
		}
		return nil

	case *ast.ReturnStmt:
		if n.Value != nil {
			if err := ec.emitExpr(n.Value); err != nil {
				return err
			}
			ec.op(ir.Ret)
		} else {
			ec.op(ir.RetNoValue)
		}
		return nil

	case *ast.IfStmt:
		if err := ec.emitExpr(n.Cond); err != nil {
			return err
		}
		if n.Else == nil {
			end := ec.newLabel()
			ec.brFalse(end)
			if err := ec.emitBlock(n.Then); err != nil {
				return err
			}
			ec.markLabel(end)
			return nil
		}
		elseL, end := ec.newLabel(), ec.newLabel()
		ec.brFalse(elseL)
		if err := ec.emitBlock(n.Then); err != nil {
			return err
		}
		ec.br(end)
		ec.markLabel(elseL)
		if err := ec.emitBlock(n.Else); err != nil {
			return err
		}
		ec.markLabel(end)
		return nil

	case *ast.WhileStmt:
		start, end := ec.newLabel(), ec.newLabel()
		ec.markLabel(start)
		if err := ec.emitExpr(n.Cond); err != nil {
			return err
		}
		ec.brFalse(end)
		if err := ec.emitBlock(n.Body); err != nil {
			return err
		}
		ec.br(start)
		ec.markLabel(end)
		return nil

	case *ast.ExprStmt:
		if err := ec.emitExpr(n.Call); err != nil {
			return err
		}
		if t, ok := ec.env.ExprType(n.Call); ok && t.Kind != types.Void {
			ec.op(ir.Pop)
		}
		return nil

	default:
		return errors.NewCodeGenError(s.Range(), "unsupported statement")
	}
}

// emitLvalueAddr pushes the address (for composite targets, the heap cell pointer; for a bare
// variable, its current value, which for List/Tuple is already the cell pointer) that a following
// StFld writes through — the "base address" half of §4.5's field-assignment sequence.
func (ec *ectx) emitLvalueAddr(lv ast.Lvalue) {
	switch n := lv.(type) {
	case *ast.VarLvalue:
		ec.loadVar(n.ID)
	case *ast.FieldLvalue:
		ec.emitLvalueAddr(n.Target)
		ec.ldFld(n.Sel)
	}
}

func (ec *ectx) emitExpr(e ast.Expr) error {
	switch n := e.(type) {
	case *ast.IntLit:
		v := n.Value
		if n.Negated {
			v = -v
		}
		ec.pushConst(v)
		return nil
	case *ast.BoolLit:
		if n.Value {
			ec.pushConst(-1)
		} else {
			ec.pushConst(0)
		}
		return nil
	case *ast.CharLit:
		ec.pushConst(int64(n.Value))
		return nil
	case *ast.ListNilLit:
		ec.op(ir.CreateListNil)
		return nil
	case *ast.VariableExpr:
		ec.loadVar(n.ID)
		return nil
	case *ast.FieldAccessExpr:
		if err := ec.emitExpr(n.Target); err != nil {
			return err
		}
		ec.ldFld(n.Sel)
		return nil
	case *ast.UnaryExpr:
		if err := ec.emitExpr(n.X); err != nil {
			return err
		}
		if n.Op == "!" {
			ec.op(ir.Not)
		} else {
			ec.op(ir.Neg)
		}
		return nil
	case *ast.TupleExpr:
		if err := ec.emitExpr(n.Fst); err != nil {
			return err
		}
		if err := ec.emitExpr(n.Snd); err != nil {
			return err
		}
		ec.op(ir.CreateTuple)
		return nil
	case *ast.BinaryExpr:
		return ec.emitBinary(n)
	case *ast.CallExpr:
		return ec.emitCall(n)
	default:
		return errors.NewCodeGenError(e.Range(), "unsupported expression")
	}
}

var fixedIntOp = map[string]ir.OpCode{
	"-": ir.Sub, "*": ir.Mul, "/": ir.Div, "%": ir.Mod,
	"<": ir.Lt, "<=": ir.Le, ">": ir.Gt, ">=": ir.Ge,
}

func (ec *ectx) emitBinary(n *ast.BinaryExpr) error {
	switch n.Op {
	case "-", "*", "/", "%", "<", "<=", ">", ">=":
		if err := ec.emitExpr(n.L); err != nil {
			return err
		}
		if err := ec.emitExpr(n.R); err != nil {
			return err
		}
		ec.op(fixedIntOp[n.Op])
		return nil
	case "&&":
		if err := ec.emitExpr(n.L); err != nil {
			return err
		}
		if err := ec.emitExpr(n.R); err != nil {
			return err
		}
		ec.op(ir.And)
		return nil
	case "||":
		if err := ec.emitExpr(n.L); err != nil {
			return err
		}
		if err := ec.emitExpr(n.R); err != nil {
			return err
		}
		ec.op(ir.Or)
		return nil
	case ":":
		if err := ec.emitExpr(n.L); err != nil {
			return err
		}
		if err := ec.emitExpr(n.R); err != nil {
			return err
		}
		ec.op(ir.CreateListCons)
		return nil
	case "==", "!=":
		return ec.emitEquality(n)
	case "+":
		return ec.emitPlus(n)
	default:
		return errors.NewCodeGenError(n.Range(), "unsupported operator %q", n.Op)
	}
}

// isScalar reports whether t's equality can be decided by a single raw-word Eq (§4.5: "on scalars
// Eq"); List and Tuple route `==`/`!=` through __refeq instead, comparing heap-cell addresses
// rather than structure — `equals` is a separate, explicitly user-callable structural builtin.
func isScalar(t *types.Type) bool {
	switch t.Kind {
	case types.Int, types.Bool, types.Char:
		return true
	default:
		return false
	}
}

func (ec *ectx) emitEquality(n *ast.BinaryExpr) error {
	lt, ok := ec.env.ExprType(n.L)
	if !ok {
		return errors.NewCodeGenError(n.Range(), "internal: %q has no resolved type", n.L.Range())
	}
	if err := ec.emitExpr(n.L); err != nil {
		return err
	}
	if err := ec.emitExpr(n.R); err != nil {
		return err
	}
	if isScalar(lt) {
		ec.op(ir.Eq)
	} else {
		ec.call(ec.g.callInstance("__refeq", []*types.Type{lt, lt}))
	}
	if n.Op == "!=" {
		ec.op(ir.Not)
	}
	return nil
}

func (ec *ectx) emitPlus(n *ast.BinaryExpr) error {
	lt, ok := ec.env.ExprType(n.L)
	if !ok {
		return errors.NewCodeGenError(n.Range(), "internal: %q has no resolved type", n.L.Range())
	}
	switch lt.Kind {
	case types.Int, types.Char:
		if err := ec.emitExpr(n.L); err != nil {
			return err
		}
		if err := ec.emitExpr(n.R); err != nil {
			return err
		}
		ec.op(ir.Add)
		return nil
	case types.List:
		if err := ec.emitExpr(n.L); err != nil {
			return err
		}
		if err := ec.emitExpr(n.R); err != nil {
			return err
		}
		ec.call(ec.g.callInstance("__add", []*types.Type{lt, lt}))
		return nil
	default:
		return errors.NewCodeGenError(n.Range(), "'+' is not defined for type %s", lt)
	}
}

func (ec *ectx) emitCall(n *ast.CallExpr) error {
	argTypes := make([]*types.Type, len(n.Args))
	for i, a := range n.Args {
		if err := ec.emitExpr(a); err != nil {
			return err
		}
		t, ok := ec.env.ExprType(a)
		if !ok {
			return errors.NewCodeGenError(a.Range(), "internal: argument has no resolved type")
		}
		argTypes[i] = t
	}
	ec.call(ec.g.callInstance(n.Name, argTypes))
	return nil
}
