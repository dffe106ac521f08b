// returns.go implements the return-path checker (§4.4): a pure AST walk deciding whether every
// control path through a function body reaches a return. Grounded on the teacher's
// analysis-by-structural-recursion style (ir/validate.go walks the syntax tree top-down collecting
// per-node verdicts); generalized here to return a (contains, all-paths) pair per the spec.
package typing

import (
	"splc/src/ast"
	"splc/src/errors"
)

// ReturnPaths walks block b and returns (containsReturn, allPathsReturn) per §4.4's rules. warn
// receives an UnreachableCode diagnostic for every statement seen after all-paths-return became
// true; it is still folded into the traversal (spec: "is still folded in").
func ReturnPaths(b *ast.Block, warn func(*errors.Diagnostic)) (contains bool, allPaths bool) {
	seenAllPathsReturn := false
	for _, s := range b.Stmts {
		c, a := stmtReturnPaths(s, warn)
		if seenAllPathsReturn {
			warn(errors.NewUnreachableCode(s.Range()))
		}
		contains = contains || c
		if a {
			seenAllPathsReturn = true
		}
	}
	allPaths = seenAllPathsReturn
	return
}

func stmtReturnPaths(s ast.Stmt, warn func(*errors.Diagnostic)) (contains, allPaths bool) {
	switch n := s.(type) {
	case *ast.ReturnStmt:
		return true, true
	case *ast.IfStmt:
		thenC, thenA := ReturnPaths(n.Then, warn)
		if n.Else != nil {
			elseC, elseA := ReturnPaths(n.Else, warn)
			return thenC || elseC, thenA && elseA
		}
		return thenC, false
	case *ast.WhileStmt:
		bodyC, _ := ReturnPaths(n.Body, warn)
		// The loop body may never execute, so all-paths-return is always forced false (§4.4).
		return bodyC, false
	default:
		// LocalDecl, AssignStmt, ExprStmt and the implicit null statement never return.
		return false, false
	}
}

// CheckFunction runs the return-path analysis for f and returns a ReturnValueError-class
// diagnostic (NotAllPathsReturn) if it fails the rule in §4.4:
//   - a non-Void declared return type requires allPaths == true;
//   - no declared return type requires contains == allPaths (i.e. either the function never
//     returns a value on any path, or it always does).
func CheckFunction(f *ast.FuncDecl, hasNonVoidRet bool, warn func(*errors.Diagnostic)) error {
	contains, allPaths := ReturnPaths(f.Body, warn)
	if hasNonVoidRet {
		if !allPaths {
			return errors.NewReturnValueError(f.Range(), "not all control paths of %q return a value", f.Name)
		}
		return nil
	}
	if contains != allPaths {
		return errors.NewReturnValueError(f.Range(), "not all control paths of %q agree on returning a value", f.Name)
	}
	return nil
}
