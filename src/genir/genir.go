package genir

import (
	"splc/src/ast"
	"splc/src/errors"
	"splc/src/ir"
	"splc/src/typing"
	"splc/src/types"
	"splc/src/util"

	"github.com/samber/lo"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// generator holds the mutable state threaded through one Generate call: the emitted-instance
// registry (keyed by mangled id, guaranteeing property 4 of §8), the pending-body worklist, and the
// global-variable table built once up front.
type generator struct {
	funcsByName map[string]*ast.FuncDecl
	globalByID  map[int]*ast.GlobalDecl
	globalOff   map[int]int

	env     *typing.Env
	emitted map[string]*ir.Instance
	pending *util.Stack
	program *ir.Program
}

// builtinNames is the set of structurally-generated builtins of §4.6; their bodies have no AST and
// are synthesized per concrete instance rather than looked up in funcsByName.
var builtinNames = map[string]bool{
	"print": true, "println": true, "equals": true,
	"__refeq": true, "__add": true, "len": true, "isEmpty": true,
}

// ---------------------
// ----- functions -----
// ---------------------

// Generate runs the monomorphization worklist driver of §4.5 over a fully type-checked program,
// returning the complete set of emitted instances reachable from the synthesized entry routine.
func Generate(prog *ast.Program, env *typing.Env) (*ir.Program, error) {
	g := &generator{
		funcsByName: make(map[string]*ast.FuncDecl, len(prog.Funcs)),
		globalByID:  make(map[int]*ast.GlobalDecl, len(prog.Globals)),
		globalOff:   make(map[int]int, len(prog.Globals)),
		env:         env,
		emitted:     make(map[string]*ir.Instance),
		pending:     &util.Stack{},
		program:     &ir.Program{},
	}
	for _, f := range prog.Funcs {
		g.funcsByName[f.Name] = f
	}

	var globals []*ir.GlobalVar
	for offset, gd := range prog.Globals {
		g.globalByID[gd.ID] = gd
		g.globalOff[gd.ID] = offset
		globals = append(globals, &ir.GlobalVar{ID: gd.ID, Offset: offset, Type: env.GetVar(gd.ID)})
	}
	g.program.Globals = globals

	entry := g.instanceFor("init", nil, true)
	entry.Entry = true
	g.program.EntryID = entry.MangledID

	for g.pending.Size() > 0 {
		inst, ok := g.pending.Pop().(*ir.Instance)
		if !ok || inst == nil {
			continue
		}
		if len(inst.Body) > 0 {
			continue // Already emitted (defensive: pending never re-queues a finished instance).
		}
		if err := g.emitInstanceBody(inst); err != nil {
			return nil, err
		}
	}

	// instanceFor's emitted map is the real guard against re-emitting a mangled id; this is a
	// second, independent line of defense enforcing property 4 (§8: each mangled id appears at
	// most once) directly on the output slice, in case some future caller appends to
	// g.program.Instances outside instanceFor and skips that map.
	g.program.Instances = lo.UniqBy(g.program.Instances, func(inst *ir.Instance) string {
		return inst.MangledID
	})

	return g.program, nil
}

// instanceFor returns the registered *ir.Instance for (name, argTypes), creating and enqueuing it
// for body emission on first reference. Returning the same pointer for repeat requests is what
// makes self-recursive and mutually-recursive calls resolve correctly before their own bodies have
// finished emitting (§4.5 step 1: "if the instance id is already emitted, skip").
func (g *generator) instanceFor(name string, argTypes []*types.Type, hidden bool) *ir.Instance {
	id := ir.Mangle(name, argTypes, hidden)
	if inst, ok := g.emitted[id]; ok {
		return inst
	}
	inst := &ir.Instance{Name: name, ArgTypes: argTypes, Hidden: hidden, MangledID: id}
	g.emitted[id] = inst
	g.program.Instances = append(g.program.Instances, inst)
	g.pending.Push(inst)
	return inst
}

// callInstance resolves a call-site's target by name, routing builtins to their hidden,
// per-concrete-type instances rather than colliding with user-declared names.
func (g *generator) callInstance(name string, argTypes []*types.Type) *ir.Instance {
	return g.instanceFor(name, argTypes, builtinNames[name] || name == "init")
}

func (g *generator) emitInstanceBody(inst *ir.Instance) error {
	if inst.Name == "init" {
		return g.emitInit(inst)
	}
	if gen, ok := builtinGenerators[inst.Name]; ok {
		return gen(g, inst)
	}
	fn, ok := g.funcsByName[inst.Name]
	if !ok {
		return errors.NewCodeGenError(errors.CodeRange{}, "no definition found for function %q", inst.Name)
	}
	return g.emitUserFunc(inst, fn)
}

// emitInit synthesizes the hidden program-entry routine (§4.5): it runs every global's initializer
// in source order, stores it to its global slot, calls main, then halts.
func (g *generator) emitInit(inst *ir.Instance) error {
	b := &builder{inst: inst}
	ec := &ectx{builder: b, env: g.env, g: g, localOffsets: map[int]int{}}
	for offset, gv := range g.program.Globals {
		gd := g.globalByID[gv.ID]
		if err := ec.emitExpr(gd.Init); err != nil {
			return err
		}
		b.stGlob(offset)
	}
	mainInst := g.callInstance("main", nil)
	b.call(mainInst)
	b.op(ir.Halt)
	return nil
}

// emitUserFunc implements §4.5 step 2: deep-copy the typing environment, unify each formal
// parameter's type variable with its concrete instance type, reserve argument offsets, then emit
// the body under the refined environment.
func (g *generator) emitUserFunc(inst *ir.Instance, fn *ast.FuncDecl) error {
	cloned := g.env.Clone()
	for i, p := range fn.Params {
		s, err := types.Unify(cloned.GetVar(p.ID), inst.ArgTypes[i])
		if err != nil {
			return errors.NewCodeGenError(fn.Range(), "instantiating %s: %s", fn.Name, err)
		}
		cloned.Apply(s)
	}

	b := &builder{inst: inst}
	ec := &ectx{builder: b, env: cloned, g: g, localOffsets: map[int]int{}}
	arity := len(fn.Params)
	for i, p := range fn.Params {
		ec.localOffsets[p.ID] = ir.ArgOffset(i, arity)
	}

	if err := ec.emitBlock(fn.Body); err != nil {
		return err
	}
	if !endsInReturn(inst.Body) {
		b.op(ir.RetNoValue)
	}
	inst.LocalCount = ec.nextLocal
	return nil
}
