package typing

import "splc/src/types"

// SeedBuiltins registers the polymorphic built-in schemes of §4.6 so ordinary calls to
// print/println/equals/__refeq/__add/len/isEmpty type-check like any other function. Their
// monomorphized bodies are generated on demand by package genir; this file only supplies the
// schemes the inference pass unifies against.
func SeedBuiltins(env *Env) {
	a := env.FreshVar()
	env.AddBuiltin("print", []int{a.ID}, []*types.Type{a}, types.NewVoid())

	b := env.FreshVar()
	env.AddBuiltin("println", []int{b.ID}, []*types.Type{b}, types.NewVoid())

	c := env.FreshVar()
	env.AddBuiltin("equals", []int{c.ID}, []*types.Type{c, c}, types.NewBool())

	d := env.FreshVar()
	env.AddBuiltin("__refeq", []int{d.ID}, []*types.Type{d, d}, types.NewBool())

	e := env.FreshVar()
	env.AddBuiltin("__add", []int{e.ID}, []*types.Type{e, e}, e)

	f := env.FreshVar()
	env.AddBuiltin("len", []int{f.ID}, []*types.Type{types.NewList(f)}, types.NewInt())

	g := env.FreshVar()
	env.AddBuiltin("isEmpty", []int{g.ID}, []*types.Type{types.NewList(g)}, types.NewBool())
}
