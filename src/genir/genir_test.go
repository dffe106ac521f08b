package genir

import (
	"testing"

	"splc/src/errors"
	"splc/src/frontend"
	"splc/src/typing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopWarn(d *errors.Diagnostic) {}

func TestMonomorphization_EachMangledIDEmittedAtMostOnce(t *testing.T) {
	src := `
id(n) { return n; }
main() {
	var a = id(1);
	var b = id(True);
	println(a);
	println(b);
}
`
	prog, warnings, err := frontend.Parse(src)
	require.NoError(t, err)
	require.Empty(t, warnings)

	env, errs := typing.InferProgram(prog, noopWarn)
	require.Empty(t, errs)

	irProg, err := Generate(prog, env)
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, inst := range irProg.Instances {
		assert.False(t, seen[inst.MangledID], "mangled id %q emitted more than once", inst.MangledID)
		seen[inst.MangledID] = true
	}

	// id is called at two distinct concrete types, so it must produce two distinct instances.
	var idInstances int
	for _, inst := range irProg.Instances {
		if inst.Name == "id" {
			idInstances++
		}
	}
	assert.Equal(t, 2, idInstances, "id(Int) and id(Bool) must monomorphize to separate instances")
}

func TestMonomorphization_RecursiveFunctionTerminates(t *testing.T) {
	src := `
len2(n) {
	if (n == 0) {
		return 0;
	} else {
		return 1 + len2(n - 1);
	}
}
main() {
	println(len2(5));
}
`
	prog, warnings, err := frontend.Parse(src)
	require.NoError(t, err)
	require.Empty(t, warnings)

	env, errs := typing.InferProgram(prog, noopWarn)
	require.Empty(t, errs)

	irProg, err := Generate(prog, env)
	require.NoError(t, err)

	var found bool
	for _, inst := range irProg.Instances {
		if inst.Name == "len2" {
			found = true
			assert.NotEmpty(t, inst.Body, "recursive instance must have a non-empty emitted body")
		}
	}
	assert.True(t, found)
}

func TestEntryInstance_IsUniqueAndHidden(t *testing.T) {
	src := `
main() {
	println(1);
}
`
	prog, warnings, err := frontend.Parse(src)
	require.NoError(t, err)
	require.Empty(t, warnings)

	env, errs := typing.InferProgram(prog, noopWarn)
	require.Empty(t, errs)

	irProg, err := Generate(prog, env)
	require.NoError(t, err)

	var entries int
	for _, inst := range irProg.Instances {
		if inst.Entry {
			entries++
			assert.True(t, inst.Hidden)
			assert.Equal(t, "init", inst.Name)
		}
	}
	assert.Equal(t, 1, entries)
}
