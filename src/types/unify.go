package types

import "fmt"

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// UnificationFailure reports that two ground types could not be made equal by any substitution.
type UnificationFailure struct {
	A, B *Type
}

func (e *UnificationFailure) Error() string {
	return fmt.Sprintf("cannot unify %s with %s", e.A, e.B)
}

// RecursiveType reports that unifying Var(n) with t would require an infinite type (occurs check).
type RecursiveType struct {
	N int
	T *Type
}

func (e *RecursiveType) Error() string {
	return fmt.Sprintf("recursive type: a%d occurs in %s", e.N, e.T)
}

// ---------------------
// ----- functions -----
// ---------------------

// Unify computes the most general substitution making a and b structurally equal, or fails with a
// *UnificationFailure or *RecursiveType (§4.1). The kernel is pure: it never mutates a or b, and it
// does not itself re-apply the result anywhere — callers do that across the whole environment.
func Unify(a, b *Type) (Subst, error) {
	switch {
	case a == nil || b == nil:
		return Subst{}, nil
	case a.Kind == Var:
		return unifyVar(a.ID, b)
	case b.Kind == Var:
		return unifyVar(b.ID, a)
	case a.Kind != b.Kind:
		return nil, &UnificationFailure{A: a, B: b}
	}

	switch a.Kind {
	case Int, Bool, Char, Void:
		return Subst{}, nil
	case Tuple:
		s1, err := Unify(a.Fst, b.Fst)
		if err != nil {
			return nil, err
		}
		s2, err := Unify(Apply(s1, a.Snd), Apply(s1, b.Snd))
		if err != nil {
			return nil, err
		}
		return Compose(s2, s1), nil
	case List:
		return Unify(a.Elem, b.Elem)
	default:
		return nil, &UnificationFailure{A: a, B: b}
	}
}

// unifyVar handles unification where one side is Var(n), implementing the symmetric Var-vs-t and
// t-vs-Var rules of §4.1 via a single helper.
func unifyVar(n int, t *Type) (Subst, error) {
	if t.Kind == Var && t.ID == n {
		return Subst{}, nil
	}
	if Contains(t, n) {
		return nil, &RecursiveType{N: n, T: t}
	}
	return Subst{n: t}, nil
}
