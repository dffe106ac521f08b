package typing

import (
	"splc/src/ast"
	"splc/src/errors"
	"splc/src/types"
)

// ----------------------------
// ----- Constants -----
// ----------------------------

// Asymmetric int32 literal bounds (§4.3): a bare literal's maximum magnitude is 0x7FFFFFFF, while a
// literal the parser flagged as negated (appeared directly under unary minus) may carry the extra
// magnitude needed to represent -0x80000000.
const (
	maxPositiveLiteral = 0x7FFFFFFF
	maxNegatedLiteral  = 0x80000000
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// inferrer holds the mutable state threaded through one InferProgram call: the environment being
// built and the diagnostics collected so far. Warnings (UnreachableCode, VariableHiding) are routed
// separately via warn.
type inferrer struct {
	env    *Env
	errs   []error
	warn   func(*errors.Diagnostic)
	curFn  string // name of the function currently being typed; "" at top level.
}

// ---------------------
// ----- functions -----
// ---------------------

// InferProgram runs the type-inference traversal over prog in source order (§4.3), seeding env
// with the built-in table first (§4.6). It returns the finished environment and the errors
// collected; warnings are not in that slice but are passed to warn.
func InferProgram(prog *ast.Program, warn func(*errors.Diagnostic)) (*Env, []error) {
	env := NewEnv()
	SeedBuiltins(env)
	inf := &inferrer{env: env, warn: warn}

	for _, g := range prog.Globals {
		inf.inferGlobal(g)
	}
	for _, f := range prog.Funcs {
		inf.inferFunc(f)
	}

	for _, g := range prog.Globals {
		t := env.GetVar(g.ID)
		hasVar := func(t *types.Type) bool {
			fv := map[int]bool{}
			types.FreeVars(t, fv)
			return len(fv) > 0
		}
		if hasVar(t) {
			inf.errs = append(inf.errs, errors.NewTypeError(g.Range(), "global %q has indeterminate type %s", g.Name, t))
		}
	}

	return env, inf.errs
}

func (inf *inferrer) fail(err error) {
	if err != nil {
		inf.errs = append(inf.errs, err)
	}
}

func (inf *inferrer) inferGlobal(g *ast.GlobalDecl) {
	target := inf.env.GetVar(g.ID)
	if g.Declared != nil {
		declared := resolveTypeExpr(g.Declared, nil, inf.env)
		if s, err := types.Unify(target, declared); err == nil {
			inf.env.Apply(s)
		} else {
			inf.fail(errors.NewTypeError(g.Range(), "%s", err))
		}
		target = inf.env.GetVar(g.ID)
	}
	if g.Init != nil {
		s, err := inf.inferExpr(g.Init, target)
		if err != nil {
			inf.fail(err)
			return
		}
		inf.env.Apply(s)
	}
}

// inferFunc types one function body per §4.3: seed env with the declared/inferred signature, type
// the body against a fresh return-type variable, generalize, then replay queued deferred usages.
func (inf *inferrer) inferFunc(f *ast.FuncDecl) {
	if f.Name == "main" && len(f.Params) != 0 {
		inf.fail(errors.NewTypeError(f.Range(), "main must take zero parameters"))
	}

	argIDs := make([]int, len(f.Params))
	for i, p := range f.Params {
		argIDs[i] = p.ID
	}

	scheme, existed := inf.env.Lookup(f.Name)
	if !existed {
		scheme = inf.env.AddFunction(f.Name, argIDs)
	}

	tvars := map[string]*types.Type{}
	if f.Ret != nil {
		retT := resolveTypeExpr(f.Ret, tvars, inf.env)
		if s, err := types.Unify(scheme.Ret, retT); err == nil {
			inf.env.Apply(s)
		} else {
			inf.fail(errors.NewTypeError(f.Range(), "%s", err))
		}
	}
	for i, p := range f.Params {
		_ = p
		if i < len(scheme.Args) {
			// Parameter types carried no explicit annotation in this grammar subset beyond the
			// signature arrow; nothing further to unify here — scheme.Args[i] already aliases
			// env.GetVar(p.ID) from AddFunction.
		}
	}

	prevFn := inf.curFn
	inf.curFn = f.Name
	inf.inferBlock(f.Body, scheme.Ret)
	inf.curFn = prevFn

	if err := CheckFunction(f, f.Ret != nil && !isVoidTypeExpr(f.Ret), inf.warn); err != nil {
		inf.fail(err)
	}

	// Generalize: quantify over every variable free in f's own scheme but not free elsewhere
	// (§4.2's generalization rule).
	keepOthers := func(name string) bool { return name == f.Name }
	freeElsewhere := inf.env.FreeTypeVars(keepOthers)
	ownFree := map[int]bool{}
	for _, a := range scheme.Args {
		types.FreeVars(a, ownFree)
	}
	types.FreeVars(scheme.Ret, ownFree)
	var quant []int
	for id := range ownFree {
		if !freeElsewhere[id] {
			quant = append(quant, id)
		}
	}
	inf.env.UpdateFunctionQuantifiers(f.Name, quant)

	// Discharge every deferred usage recorded against f while it was still being typed (§4.2
	// invariant iii, §9).
	for _, usage := range inf.env.TakeDeferred(f.Name) {
		args, ret := inf.env.Instantiate(scheme)
		if len(args) != len(usage.ArgTypes) {
			inf.fail(errors.NewTypeError(usage.Range, "call to %q expected %d arguments, got %d", f.Name, len(args), len(usage.ArgTypes)))
			continue
		}
		combined := types.Subst{}
		ok := true
		for i, a := range args {
			s, err := types.Unify(a, usage.ArgTypes[i])
			if err != nil {
				inf.fail(errors.NewTypeError(usage.Range, "%s", err))
				ok = false
				break
			}
			combined = types.Compose(s, combined)
		}
		if !ok {
			continue
		}
		if s, err := types.Unify(types.Apply(combined, ret), usage.Ret); err == nil {
			inf.env.Apply(types.Compose(s, combined))
		} else {
			inf.fail(errors.NewTypeError(usage.Range, "%s", err))
		}
	}
}

func isVoidTypeExpr(te *ast.TypeExpr) bool {
	return te != nil && te.Kind == types.Void
}

// resolveTypeExpr turns parsed type syntax into an inference Type. tvars maps a lower-case
// type-variable identifier to the same Var for the lifetime of one signature, so `id(x) :: a -> a`
// resolves both occurrences of `a` to the identical variable.
func resolveTypeExpr(te *ast.TypeExpr, tvars map[string]*types.Type, env *Env) *types.Type {
	if te == nil {
		return env.FreshVar()
	}
	switch te.Kind {
	case types.Int:
		return types.NewInt()
	case types.Bool:
		return types.NewBool()
	case types.Char:
		return types.NewChar()
	case types.Void:
		return types.NewVoid()
	case types.List:
		return types.NewList(resolveTypeExpr(te.Elem, tvars, env))
	case types.Tuple:
		return types.NewTuple(resolveTypeExpr(te.Fst, tvars, env), resolveTypeExpr(te.Snd, tvars, env))
	case types.Var:
		if tvars == nil {
			return env.FreshVar()
		}
		if t, ok := tvars[te.Name]; ok {
			return t
		}
		t := env.FreshVar()
		tvars[te.Name] = t
		return t
	default:
		return env.FreshVar()
	}
}
