package ir

import (
	"strconv"
	"strings"

	"splc/src/types"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Instance is the identity and emitted body of one monomorphized function, §3's
// "FunctionInstance(name, arg_types, hidden, entry)".
type Instance struct {
	Name      string
	ArgTypes  []*types.Type
	Hidden    bool // True for compiler-synthesized helpers (init, builtins): prevents user-name collisions.
	Entry     bool // True only for the single synthesized program-entry instance.
	MangledID string

	LocalCount int // Number of non-argument frame slots reserved by StLoc targets >= 0.
	Body       []Instr
}

// GlobalVar is a program-global variable's slot in the per-program global table (§4.5 step (i)).
type GlobalVar struct {
	ID     int
	Offset int
	Type   *types.Type
}

// Program is the complete output of generic-IR emission: the global table and every monomorphized
// instance that was reachable from main, each MangledID appearing at most once in Instances
// (property 4, §8: "the emitted-instance set contains each mangled id at most once").
type Program struct {
	Globals   []*GlobalVar
	Instances []*Instance
	EntryID   string
}

// ---------------------
// ----- functions -----
// ---------------------

// Mangle computes the deterministic mangled id for (name, argTypes, hidden) per §3: name, arity,
// and each argument type's printed form with punctuation rewritten to alphanumeric-safe sequences.
// The hidden flag prefixes an underscore so synthesized helpers cannot collide with user functions.
func Mangle(name string, argTypes []*types.Type, hidden bool) string {
	var b strings.Builder
	if hidden {
		b.WriteByte('_')
	}
	b.WriteString(name)
	b.WriteByte('_')
	b.WriteString(strconv.Itoa(len(argTypes)))
	for _, a := range argTypes {
		b.WriteByte('_')
		b.WriteString(a.Mangle())
	}
	return b.String()
}
