package typing

import (
	"splc/src/ast"
	"splc/src/errors"
	"splc/src/types"
)

// inferExpr computes a substitution unifying e's inferred type with the target type sigma,
// per §4.3's expression-directed judgments. The returned substitution is not applied to the
// environment here; callers apply it after a successful inference. On success, e is annotated in the environment with
// its resolved type so later passes (genir) can read the type of any expression node.
func (inf *inferrer) inferExpr(e ast.Expr, sigma *types.Type) (types.Subst, error) {
	s, err := inf.inferExprUnannotated(e, sigma)
	if err != nil {
		return nil, err
	}
	inf.env.AnnotateExpr(e, types.Apply(s, sigma))
	return s, nil
}

func (inf *inferrer) inferExprUnannotated(e ast.Expr, sigma *types.Type) (types.Subst, error) {
	switch n := e.(type) {
	case *ast.IntLit:
		if err := checkIntBounds(n); err != nil {
			return nil, err
		}
		return unifyAndReport(sigma, types.NewInt(), n.Range())
	case *ast.BoolLit:
		return unifyAndReport(sigma, types.NewBool(), n.Range())
	case *ast.CharLit:
		return unifyAndReport(sigma, types.NewChar(), n.Range())
	case *ast.StringLit:
		return unifyAndReport(sigma, types.NewList(types.NewChar()), n.Range())
	case *ast.ListNilLit:
		return unifyAndReport(sigma, types.NewList(inf.env.FreshVar()), n.Range())
	case *ast.VariableExpr:
		return unifyAndReport(sigma, inf.env.GetVar(n.ID), n.Range())
	case *ast.FieldAccessExpr:
		baseT := inf.env.FreshVar()
		s1, err := inf.inferExpr(n.Target, baseT)
		if err != nil {
			return nil, err
		}
		inf.env.Apply(s1)
		ft, err := fieldType(types.Apply(s1, baseT), n.Sel, inf.env, n.Range())
		if err != nil {
			return nil, err
		}
		s2, err := unifyAndReport(sigma, ft, n.Range())
		if err != nil {
			return nil, err
		}
		return types.Compose(s2, s1), nil
	case *ast.UnaryExpr:
		return inf.inferUnary(n, sigma)
	case *ast.BinaryExpr:
		return inf.inferBinary(n, sigma)
	case *ast.TupleExpr:
		a, b := inf.env.FreshVar(), inf.env.FreshVar()
		s1, err := inf.inferExpr(n.Fst, a)
		if err != nil {
			return nil, err
		}
		inf.env.Apply(s1)
		s2, err := inf.inferExpr(n.Snd, types.Apply(s1, b))
		if err != nil {
			return nil, err
		}
		combined := types.Compose(s2, s1)
		inf.env.Apply(s2)
		s3, err := unifyAndReport(sigma, types.NewTuple(types.Apply(combined, a), types.Apply(combined, b)), n.Range())
		if err != nil {
			return nil, err
		}
		return types.Compose(s3, combined), nil
	case *ast.CallExpr:
		return inf.inferCall(n, sigma)
	default:
		return nil, errors.NewTypeError(e.Range(), "unsupported expression")
	}
}

func unifyAndReport(sigma, actual *types.Type, rng errors.CodeRange) (types.Subst, error) {
	s, err := types.Unify(sigma, actual)
	if err != nil {
		return nil, errors.NewTypeError(rng, "type mismatch: expected %s, got %s", sigma, actual)
	}
	return s, nil
}

func checkIntBounds(n *ast.IntLit) error {
	if n.Negated {
		if n.Value > maxNegatedLiteral {
			return errors.NewTypeError(n.Range(), "integer literal -%d underflows a 32-bit signed integer", n.Value)
		}
		return nil
	}
	if n.Value > maxPositiveLiteral {
		return errors.NewTypeError(n.Range(), "integer literal %d overflows a 32-bit signed integer", n.Value)
	}
	return nil
}

func (inf *inferrer) inferUnary(n *ast.UnaryExpr, sigma *types.Type) (types.Subst, error) {
	switch n.Op {
	case "!":
		s1, err := unifyAndReport(sigma, types.NewBool(), n.Range())
		if err != nil {
			return nil, err
		}
		s2, err := inf.inferExpr(n.X, types.NewBool())
		if err != nil {
			return nil, err
		}
		return types.Compose(s2, s1), nil
	case "-":
		s1, err := unifyAndReport(sigma, types.NewInt(), n.Range())
		if err != nil {
			return nil, err
		}
		if lit, ok := n.X.(*ast.IntLit); ok {
			lit.Negated = true
		}
		s2, err := inf.inferExpr(n.X, types.NewInt())
		if err != nil {
			return nil, err
		}
		return types.Compose(s2, s1), nil
	default:
		return nil, errors.NewTypeError(n.Range(), "unknown unary operator %q", n.Op)
	}
}

func (inf *inferrer) inferBinary(n *ast.BinaryExpr, sigma *types.Type) (types.Subst, error) {
	switch n.Op {
	case "-", "*", "/", "%":
		return inf.inferBinaryFixed(n, sigma, types.NewInt(), types.NewInt(), types.NewInt())
	case "&&", "||":
		return inf.inferBinaryFixed(n, sigma, types.NewBool(), types.NewBool(), types.NewBool())
	case "<", "<=", ">=", ">":
		alpha := inf.env.FreshVar()
		return inf.inferBinaryPoly(n, sigma, alpha, alpha, types.NewBool())
	case "==", "!=":
		alpha := inf.env.FreshVar()
		return inf.inferBinaryPoly(n, sigma, alpha, alpha, types.NewBool())
	case "+":
		alpha := inf.env.FreshVar()
		return inf.inferBinaryPoly(n, sigma, alpha, alpha, alpha)
	case ":":
		alpha := inf.env.FreshVar()
		return inf.inferBinaryPoly(n, sigma, alpha, types.NewList(alpha), types.NewList(alpha))
	default:
		return nil, errors.NewTypeError(n.Range(), "unknown binary operator %q", n.Op)
	}
}

// inferBinaryFixed types an operator whose operand and result types are all fixed ground types.
func (inf *inferrer) inferBinaryFixed(n *ast.BinaryExpr, sigma, lt, rt, rett *types.Type) (types.Subst, error) {
	s0, err := unifyAndReport(sigma, rett, n.Range())
	if err != nil {
		return nil, err
	}
	s1, err := inf.inferExpr(n.L, lt)
	if err != nil {
		return nil, err
	}
	inf.env.Apply(s1)
	s2, err := inf.inferExpr(n.R, rt)
	if err != nil {
		return nil, err
	}
	return types.Compose(s2, types.Compose(s1, s0)), nil
}

// inferBinaryPoly types an operator with a shared type variable alpha threaded through operand and
// result positions (the α→α→Bool / α→α→α / α→[α]→[α] schemes of §4.3).
func (inf *inferrer) inferBinaryPoly(n *ast.BinaryExpr, sigma, lt, rt, rett *types.Type) (types.Subst, error) {
	s0, err := unifyAndReport(sigma, rett, n.Range())
	if err != nil {
		return nil, err
	}
	inf.env.Apply(s0)
	s1, err := inf.inferExpr(n.L, types.Apply(s0, lt))
	if err != nil {
		return nil, err
	}
	combined := types.Compose(s1, s0)
	inf.env.Apply(s1)
	s2, err := inf.inferExpr(n.R, types.Apply(combined, rt))
	if err != nil {
		return nil, err
	}
	return types.Compose(s2, combined), nil
}

func (inf *inferrer) inferCall(n *ast.CallExpr, sigma *types.Type) (types.Subst, error) {
	argTypes := make([]*types.Type, len(n.Args))
	combined := types.Subst{}
	for i, a := range n.Args {
		argT := inf.env.FreshVar()
		s, err := inf.inferExpr(a, argT)
		if err != nil {
			return nil, err
		}
		inf.env.Apply(s)
		combined = types.Compose(s, combined)
		argTypes[i] = types.Apply(combined, argT)
	}

	scheme, ok := inf.env.Lookup(n.Name)
	if !ok {
		// Forward reference: queue the usage and let the call type as sigma for now (§4.3, §9).
		inf.env.RecordDeferredCall(n.Name, argTypes, sigma, n.Range())
		return combined, nil
	}

	instArgs, instRet := inf.env.Instantiate(scheme)
	if len(instArgs) != len(argTypes) {
		return nil, errors.NewTypeError(n.Range(), "call to %q expected %d arguments, got %d", n.Name, len(instArgs), len(argTypes))
	}
	for i, a := range instArgs {
		s, err := types.Unify(types.Apply(combined, a), argTypes[i])
		if err != nil {
			return nil, errors.NewTypeError(n.Args[i].Range(), "%s", err)
		}
		inf.env.Apply(s)
		combined = types.Compose(s, combined)
	}
	s, err := unifyAndReport(sigma, types.Apply(combined, instRet), n.Range())
	if err != nil {
		return nil, err
	}
	return types.Compose(s, combined), nil
}
