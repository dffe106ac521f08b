package typing

import (
	"testing"

	"splc/src/ast"
	"splc/src/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rng() errors.CodeRange { return errors.CodeRange{} }

func block(stmts ...ast.Stmt) *ast.Block {
	return &ast.Block{Stmts: stmts}
}

func TestReturnPaths_IfWithoutElse(t *testing.T) {
	// f() :: -> Int { if(x) { return 1; } } must fail: not all paths return.
	body := block(&ast.IfStmt{
		Cond: &ast.VariableExpr{},
		Then: block(&ast.ReturnStmt{Value: &ast.IntLit{Value: 1}}),
	})
	f := &ast.FuncDecl{Name: "f", Body: body}
	err := CheckFunction(f, true, func(*errors.Diagnostic) {})
	require.Error(t, err)
}

func TestReturnPaths_IfWithElse(t *testing.T) {
	body := block(&ast.IfStmt{
		Cond: &ast.VariableExpr{},
		Then: block(&ast.ReturnStmt{Value: &ast.IntLit{Value: 1}}),
		Else: block(&ast.ReturnStmt{Value: &ast.IntLit{Value: 2}}),
	})
	f := &ast.FuncDecl{Name: "f", Body: body}
	err := CheckFunction(f, true, func(*errors.Diagnostic) {})
	assert.NoError(t, err)
}

func TestReturnPaths_WhileNeverForcesAllPaths(t *testing.T) {
	body := block(&ast.WhileStmt{
		Cond: &ast.VariableExpr{},
		Body: block(&ast.ReturnStmt{Value: &ast.IntLit{Value: 1}}),
	})
	f := &ast.FuncDecl{Name: "f", Body: body}
	err := CheckFunction(f, true, func(*errors.Diagnostic) {})
	require.Error(t, err, "a while loop body may never execute, so its return can't satisfy a non-Void return type")
}

func TestReturnPaths_UnreachableCodeWarning(t *testing.T) {
	var warnings []*errors.Diagnostic
	body := block(
		&ast.ReturnStmt{Value: &ast.IntLit{Value: 1}},
		&ast.LocalDecl{Name: "dead"},
	)
	contains, allPaths := ReturnPaths(body, func(d *errors.Diagnostic) { warnings = append(warnings, d) })
	assert.True(t, contains)
	assert.True(t, allPaths)
	require.Len(t, warnings, 1)
	assert.Equal(t, errors.UnreachableCode, warnings[0].Cat)
}
