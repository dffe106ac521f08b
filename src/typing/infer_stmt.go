package typing

import (
	"splc/src/ast"
	"splc/src/errors"
	"splc/src/types"
)

func (inf *inferrer) inferBlock(b *ast.Block, retType *types.Type) {
	for _, s := range b.Stmts {
		inf.inferStmt(s, retType)
	}
}

func (inf *inferrer) inferStmt(s ast.Stmt, retType *types.Type) {
	switch n := s.(type) {
	case *ast.LocalDecl:
		target := inf.env.GetVar(n.ID)
		if n.Declared != nil {
			declared := resolveTypeExpr(n.Declared, nil, inf.env)
			if s, err := types.Unify(target, declared); err == nil {
				inf.env.Apply(s)
			} else {
				inf.fail(errors.NewTypeError(n.Range(), "%s", err))
			}
			target = inf.env.GetVar(n.ID)
		}
		if n.Init != nil {
			if s, err := inf.inferExpr(n.Init, target); err == nil {
				inf.env.Apply(s)
			} else {
				inf.fail(err)
			}
		}
	case *ast.AssignStmt:
		lt, err := inf.inferLvalue(n.Target)
		if err != nil {
			inf.fail(err)
			return
		}
		if s, err := inf.inferExpr(n.Value, lt); err == nil {
			inf.env.Apply(s)
		} else {
			inf.fail(err)
		}
	case *ast.ReturnStmt:
		if n.Value != nil {
			if s, err := inf.inferExpr(n.Value, retType); err == nil {
				inf.env.Apply(s)
			} else {
				inf.fail(err)
			}
		} else {
			if s, err := types.Unify(retType, types.NewVoid()); err == nil {
				inf.env.Apply(s)
			} else {
				inf.fail(errors.NewTypeError(n.Range(), "%s", err))
			}
		}
	case *ast.IfStmt:
		if s, err := inf.inferExpr(n.Cond, types.NewBool()); err == nil {
			inf.env.Apply(s)
		} else {
			inf.fail(err)
		}
		inf.inferBlock(n.Then, retType)
		if n.Else != nil {
			inf.inferBlock(n.Else, retType)
		}
	case *ast.WhileStmt:
		if s, err := inf.inferExpr(n.Cond, types.NewBool()); err == nil {
			inf.env.Apply(s)
		} else {
			inf.fail(err)
		}
		inf.inferBlock(n.Body, retType)
	case *ast.ExprStmt:
		if s, err := inf.inferExpr(n.Call, inf.env.FreshVar()); err == nil {
			inf.env.Apply(s)
		} else {
			inf.fail(err)
		}
	}
}

func (inf *inferrer) inferLvalue(l ast.Lvalue) (*types.Type, error) {
	switch n := l.(type) {
	case *ast.VarLvalue:
		return inf.env.GetVar(n.ID), nil
	case *ast.FieldLvalue:
		baseT, err := inf.inferLvalue(n.Target)
		if err != nil {
			return nil, err
		}
		return fieldType(baseT, n.Sel, inf.env, n.Range())
	default:
		return nil, errors.NewTypeError(l.Range(), "unsupported assignment target")
	}
}

func fieldType(baseT *types.Type, sel ast.Selector, env *Env, rng errors.CodeRange) (*types.Type, error) {
	switch sel {
	case ast.Fst, ast.Snd:
		a, b := env.FreshVar(), env.FreshVar()
		s, err := types.Unify(baseT, types.NewTuple(a, b))
		if err != nil {
			return nil, errors.NewTypeError(rng, "%s", err)
		}
		env.Apply(s)
		if sel == ast.Fst {
			return types.Apply(s, a), nil
		}
		return types.Apply(s, b), nil
	case ast.Hd, ast.Tl:
		elem := env.FreshVar()
		s, err := types.Unify(baseT, types.NewList(elem))
		if err != nil {
			return nil, errors.NewTypeError(rng, "%s", err)
		}
		env.Apply(s)
		if sel == ast.Hd {
			return types.Apply(s, elem), nil
		}
		return types.NewList(types.Apply(s, elem)), nil
	default:
		return nil, errors.NewTypeError(rng, "unknown field selector")
	}
}
