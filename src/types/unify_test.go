package types

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnify_IdenticalGroundTypes(t *testing.T) {
	cases := []*Type{NewInt(), NewBool(), NewChar(), NewVoid(), NewList(NewInt()), NewTuple(NewInt(), NewBool())}
	for _, ty := range cases {
		s, err := Unify(ty, ty)
		require.NoError(t, err)
		assert.Empty(t, s)
	}
}

func TestUnify_Commutative(t *testing.T) {
	// Property 1: for closed ground types, if unify(a,b) succeeds with s then apply(s,a) == apply(s,b),
	// and the same holds for unify(b,a).
	a := NewTuple(NewVar(0), NewInt())
	b := NewTuple(NewBool(), NewVar(1))

	s1, err := Unify(a, b)
	require.NoError(t, err)
	if diff := cmp.Diff(Apply(s1, a), Apply(s1, b)); diff != "" {
		t.Errorf("apply(s,a) should equal apply(s,b): %s", diff)
	}

	s2, err := Unify(b, a)
	require.NoError(t, err)
	assert.True(t, Equal(Apply(s2, b), Apply(s2, a)))
}

func TestUnify_OccursCheck(t *testing.T) {
	// Property 2: unify(Var(n), t) raises RecursiveType whenever t contains Var(n) and t != Var(n).
	t1 := NewList(NewVar(5))
	_, err := Unify(NewVar(5), t1)
	require.Error(t, err)
	var rec *RecursiveType
	require.ErrorAs(t, err, &rec)
	assert.Equal(t, 5, rec.N)
}

func TestUnify_VarVsSelf(t *testing.T) {
	s, err := Unify(NewVar(3), NewVar(3))
	require.NoError(t, err)
	assert.Empty(t, s)
}

func TestUnify_Mismatch(t *testing.T) {
	_, err := Unify(NewInt(), NewBool())
	require.Error(t, err)
	var mismatch *UnificationFailure
	assert.ErrorAs(t, err, &mismatch)
}

func TestUnify_NestedTuple(t *testing.T) {
	a := NewTuple(NewVar(0), NewTuple(NewVar(1), NewInt()))
	b := NewTuple(NewBool(), NewTuple(NewChar(), NewVar(2)))
	s, err := Unify(a, b)
	require.NoError(t, err)
	assert.True(t, Equal(Apply(s, a), Apply(s, b)))
	assert.True(t, Equal(Apply(s, NewVar(0)), NewBool()))
	assert.True(t, Equal(Apply(s, NewVar(1)), NewChar()))
}

func TestComposeLeftBiased(t *testing.T) {
	s2 := Subst{0: NewVar(1)}
	s1 := Subst{1: NewInt()}
	composed := Compose(s1, s2)
	assert.True(t, Equal(composed[0], NewInt()))
	assert.True(t, Equal(composed[1], NewInt()))
}
