// Package typing implements the typing environment (§4.2) and the type-inference traversal (§4.3)
// that drives Algorithm-W-style let-polymorphism over SPL's top-level functions. Grounded on the
// teacher's ir/symtab.go (a small, single-owner table keyed by declaration) generalized from a flat
// int/float tag table into a full scheme/substitution environment.
package typing

import (
	"splc/src/ast"
	"splc/src/errors"
	"splc/src/types"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Scheme is a function's type scheme: a list of quantified variable ids plus its usage (argument
// types and return type), per §3.
type Scheme struct {
	Quantifiers []int
	Args        []*types.Type
	Ret         *types.Type
}

// DeferredUsage records a call site against a not-yet-typed callee (§4.3, §9 "deferred forward-call
// constraints"): the argument types and return type the call site expects, plus where it occurred.
type DeferredUsage struct {
	ArgTypes []*types.Type
	Ret      *types.Type
	Range    errors.CodeRange
}

// Env is the typing environment: variable-id -> type, function-name -> scheme, plus postponed
// forward-call constraints per callee name (§4.2's environment invariants i-iii).
type Env struct {
	vars     map[int]*types.Type
	funcs    map[string]*Scheme
	deferred map[string][]DeferredUsage
	nextVar  int

	// nodeTypes annotates expression nodes with their inferred type, keyed by node identity, so
	// later passes (genir) can read the type of any expression, not just ones backed by a binding
	// id. Refreshed by Apply exactly like vars, so a node annotated before a later-discovered
	// substitution still resolves correctly after the fact.
	nodeTypes map[ast.Expr]*types.Type
}

// ---------------------
// ----- functions -----
// ---------------------

// NewEnv returns an empty typing environment.
func NewEnv() *Env {
	return &Env{
		vars:      make(map[int]*types.Type),
		funcs:     make(map[string]*Scheme),
		deferred:  make(map[string][]DeferredUsage),
		nodeTypes: make(map[ast.Expr]*types.Type),
	}
}

// Clone performs a deep-enough copy for monomorphization (§4.5 step 2): unifying a formal
// parameter's type variable against a concrete instance type must never pollute the environment
// later instances of the same polymorphic function will be typed against.
func (e *Env) Clone() *Env {
	c := &Env{
		vars:      make(map[int]*types.Type, len(e.vars)),
		funcs:     make(map[string]*Scheme, len(e.funcs)),
		deferred:  make(map[string][]DeferredUsage, len(e.deferred)),
		nodeTypes: make(map[ast.Expr]*types.Type, len(e.nodeTypes)),
		nextVar:   e.nextVar,
	}
	for id, t := range e.vars {
		c.vars[id] = t
	}
	for name, s := range e.funcs {
		cs := *s
		cs.Args = append([]*types.Type(nil), s.Args...)
		cs.Quantifiers = append([]int(nil), s.Quantifiers...)
		c.funcs[name] = &cs
	}
	for name, d := range e.deferred {
		c.deferred[name] = append([]DeferredUsage(nil), d...)
	}
	for n, t := range e.nodeTypes {
		c.nodeTypes[n] = t
	}
	return c
}

// FreshVar allocates the next type-variable id and returns Var(n).
func (e *Env) FreshVar() *types.Type {
	n := e.nextVar
	e.nextVar++
	return types.NewVar(n)
}

// GetVar looks up the inferred type of the binding id. If id has not been seen before, a fresh
// Var is recorded and returned (§4.2 invariant i: lazily filled on first lookup).
func (e *Env) GetVar(id int) *types.Type {
	if t, ok := e.vars[id]; ok {
		return t
	}
	t := e.FreshVar()
	e.vars[id] = t
	return t
}

// SetVar forcibly assigns a type to a binding id, used when seeding function parameters.
func (e *Env) SetVar(id int, t *types.Type) {
	e.vars[id] = t
}

// AddFunction registers a new, not-yet-generalized signature for name: its arguments are the
// current types of argIDs and its return is a fresh Var. The quantifier list starts empty.
func (e *Env) AddFunction(name string, argIDs []int) *Scheme {
	args := make([]*types.Type, len(argIDs))
	for i, id := range argIDs {
		args[i] = e.GetVar(id)
	}
	s := &Scheme{Args: args, Ret: e.FreshVar()}
	e.funcs[name] = s
	return s
}

// AddBuiltin seeds a polymorphic built-in's scheme directly (§4.6): quantifiers, argument types and
// return type are all supplied by the caller rather than derived from declared parameter ids.
func (e *Env) AddBuiltin(name string, quantifiers []int, args []*types.Type, ret *types.Type) {
	e.funcs[name] = &Scheme{Quantifiers: quantifiers, Args: args, Ret: ret}
}

// Lookup returns the scheme registered for name, if any.
func (e *Env) Lookup(name string) (*Scheme, bool) {
	s, ok := e.funcs[name]
	return s, ok
}

// UpdateFunctionQuantifiers sets name's scheme quantifier list after generalization.
func (e *Env) UpdateFunctionQuantifiers(name string, ids []int) {
	if s, ok := e.funcs[name]; ok {
		s.Quantifiers = ids
	}
}

// Instantiate replaces every quantified variable in scheme by a fresh id, returning the
// instantiated argument types and return type.
func (e *Env) Instantiate(s *Scheme) ([]*types.Type, *types.Type) {
	if len(s.Quantifiers) == 0 {
		return s.Args, s.Ret
	}
	sub := make(types.Subst, len(s.Quantifiers))
	for _, q := range s.Quantifiers {
		sub[q] = e.FreshVar()
	}
	args := make([]*types.Type, len(s.Args))
	for i, a := range s.Args {
		args[i] = types.Apply(sub, a)
	}
	return args, types.Apply(sub, s.Ret)
}

// RecordDeferredCall queues a usage constraint for callee name, which has not yet been declared in
// source order (§4.3 "if the callee has not yet been declared"; §9).
func (e *Env) RecordDeferredCall(name string, argTypes []*types.Type, ret *types.Type, rng errors.CodeRange) {
	e.deferred[name] = append(e.deferred[name], DeferredUsage{ArgTypes: argTypes, Ret: ret, Range: rng})
}

// TakeDeferred removes and returns every deferred usage queued against name (§4.2 invariant iii:
// discharged once the callee finishes typing).
func (e *Env) TakeDeferred(name string) []DeferredUsage {
	d := e.deferred[name]
	delete(e.deferred, name)
	return d
}

// FreeTypeVars collects every Var id appearing in any function scheme whose name does NOT satisfy
// keep, plus every global variable's type — i.e. the free variables of "the rest of the
// environment" used when generalizing (§4.2).
func (e *Env) FreeTypeVars(keep func(name string) bool) map[int]bool {
	out := make(map[int]bool)
	for name, s := range e.funcs {
		if keep(name) {
			continue
		}
		quant := make(map[int]bool, len(s.Quantifiers))
		for _, q := range s.Quantifiers {
			quant[q] = true
		}
		for _, a := range s.Args {
			collectNonQuantified(a, quant, out)
		}
		collectNonQuantified(s.Ret, quant, out)
	}
	for _, t := range e.vars {
		types.FreeVars(t, out)
	}
	return out
}

func collectNonQuantified(t *types.Type, quant, out map[int]bool) {
	all := make(map[int]bool)
	types.FreeVars(t, all)
	for id := range all {
		if !quant[id] {
			out[id] = true
		}
	}
}

// Apply pushes substitution s through every type stored in the environment: every variable's
// inferred type and every function scheme's argument/return types (§4.2's Apply operation).
func (e *Env) Apply(s types.Subst) {
	if len(s) == 0 {
		return
	}
	for id, t := range e.vars {
		e.vars[id] = types.Apply(s, t)
	}
	for _, scheme := range e.funcs {
		for i, a := range scheme.Args {
			scheme.Args[i] = types.Apply(s, a)
		}
		scheme.Ret = types.Apply(s, scheme.Ret)
	}
	for n, t := range e.nodeTypes {
		e.nodeTypes[n] = types.Apply(s, t)
	}
}

// AnnotateExpr records e's inferred type, overwriting any earlier annotation (§4.3 runs
// expression-directed judgments bottom-up, so the last write per node is the most refined one seen
// during the initial traversal; Apply keeps it current afterwards).
func (e *Env) AnnotateExpr(n ast.Expr, t *types.Type) {
	e.nodeTypes[n] = t
}

// ExprType returns the type annotated for n, if any.
func (e *Env) ExprType(n ast.Expr) (*types.Type, bool) {
	t, ok := e.nodeTypes[n]
	return t, ok
}
