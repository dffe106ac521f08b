package typing

import (
	"testing"

	"splc/src/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneralization_QuantifiesOnlyOwnFreeVars(t *testing.T) {
	// Property 3: after typing f, no variable in f's quantifier list is free in the env restricted
	// to names other than f.
	env := NewEnv()

	// g's scheme mentions a1, which must NOT be eligible for generalization inside f.
	shared := env.FreshVar()
	env.AddBuiltin("g", nil, []*types.Type{shared}, types.NewBool())

	// f(x) :: a -> a, with x's type unified to the same shared variable as g's argument (as if f
	// called g(x) before typing finished).
	fScheme := env.AddFunction("f", []int{100})
	s, err := types.Unify(env.GetVar(100), shared)
	require.NoError(t, err)
	env.Apply(s)
	_, err = types.Unify(fScheme.Ret, env.GetVar(100))
	require.NoError(t, err)

	freeElsewhere := env.FreeTypeVars(func(name string) bool { return name == "f" })
	assert.True(t, freeElsewhere[shared.ID], "shared var must be free in the rest of the env (g's scheme)")

	ownFree := map[int]bool{}
	types.FreeVars(fScheme.Args[0], ownFree)
	types.FreeVars(fScheme.Ret, ownFree)
	var quant []int
	for id := range ownFree {
		if !freeElsewhere[id] {
			quant = append(quant, id)
		}
	}
	assert.NotContains(t, quant, shared.ID, "shared var must not be generalized away from under g")
}

func TestInstantiate_FreshensEachCall(t *testing.T) {
	env := NewEnv()
	a := env.FreshVar()
	env.AddBuiltin("id", []int{a.ID}, []*types.Type{a}, a)
	scheme, ok := env.Lookup("id")
	require.True(t, ok)

	args1, ret1 := env.Instantiate(scheme)
	args2, ret2 := env.Instantiate(scheme)
	assert.NotEqual(t, args1[0].ID, args2[0].ID, "each instantiation should mint fresh variable ids")
	assert.Equal(t, args1[0].ID, ret1.ID)
	assert.Equal(t, args2[0].ID, ret2.ID)
}

func TestCloneIsolatesMonomorphization(t *testing.T) {
	env := NewEnv()
	env.SetVar(1, types.NewVar(0))
	clone := env.Clone()
	clone.SetVar(1, types.NewInt())
	assert.True(t, types.Equal(env.GetVar(1), types.NewVar(0)), "mutating the clone must not affect the original")
}
