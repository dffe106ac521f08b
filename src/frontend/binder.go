// binder.go assigns the process-unique integer binding id every declared name carries (§3 "Binding
// ids") and emits the VariableHiding warning (SPEC_FULL supplemental feature, from
// original_source/compiler/compiler_warnings.py). Binding analysis itself is an out-of-scope
// external collaborator (§1); this is the minimal version the core's invariants assume is already
// present on every ast.Variable node.
package frontend

import "splc/src/errors"

type scope struct {
	names map[string]int
}

// binder assigns ids to declared names using a stack of lexical scopes.
type binder struct {
	scopes []scope
	nextID int
	warn   func(*errors.Diagnostic)
}

func newBinder(warn func(*errors.Diagnostic)) *binder {
	b := &binder{warn: warn}
	b.push()
	return b
}

func (b *binder) push() {
	b.scopes = append(b.scopes, scope{names: map[string]int{}})
}

func (b *binder) pop() {
	b.scopes = b.scopes[:len(b.scopes)-1]
}

// declare assigns a fresh id to name in the current (innermost) scope, warning if name shadows a
// name visible in an enclosing scope.
func (b *binder) declare(name string, rng errors.CodeRange) int {
	for i := 0; i < len(b.scopes)-1; i++ {
		if _, ok := b.scopes[i].names[name]; ok {
			b.warn(errors.NewVariableHiding(rng, name))
			break
		}
	}
	id := b.nextID
	b.nextID++
	b.scopes[len(b.scopes)-1].names[name] = id
	return id
}

// resolve looks up name from the innermost scope outward.
func (b *binder) resolve(name string) (int, bool) {
	for i := len(b.scopes) - 1; i >= 0; i-- {
		if id, ok := b.scopes[i].names[name]; ok {
			return id, true
		}
	}
	return 0, false
}
