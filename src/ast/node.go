// Package ast defines SPL's abstract syntax tree. Adapted from the teacher's single generic
// ir.Node (one NodeType tag plus untyped Children): SPL's grammar carries enough per-construct
// shape (typed declarations, field selectors, tuple/list type syntax, a target type threaded
// through every expression during inference) that a typed struct per construct, sharing the Expr
// and Stmt interfaces below, is the natural generalization of the teacher's tree for this
// language — every node still carries Line/Pos/Range exactly as ir.Node did.
package ast

import (
	"splc/src/errors"
	"splc/src/ir"
	"splc/src/types"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Node is implemented by every AST node and exposes its source range, mirroring ir.Node's
// Line/Pos fields from the teacher.
type Node interface {
	Range() errors.CodeRange
}

// Expr is any SPL expression node.
type Expr interface {
	Node
	exprNode()
}

// Stmt is any SPL statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Base is embedded by every concrete node to supply Range().
type Base struct {
	Rng errors.CodeRange
}

func (b Base) Range() errors.CodeRange { return b.Rng }

// TypeExpr is the parsed syntax for a declared type (Int, Bool, Char, Void, [T], (T,T), or a lower
// case type-variable identifier), before it has been resolved into a types.Type in inference.
type TypeExpr struct {
	Base
	Kind types.Kind // Var here means "declared type-variable name", not an inference variable.
	Name string     // Set when Kind == types.Var: the surface type-variable identifier.
	Elem *TypeExpr
	Fst  *TypeExpr
	Snd  *TypeExpr
}

// Program is the root of a parsed SPL compilation unit: global declarations then function
// declarations, each in source order (§4.3 "traverses declarations in source order").
type Program struct {
	Base
	Globals []*GlobalDecl
	Funcs   []*FuncDecl
}

// GlobalDecl is a top-level `var x = e;` or typed `T x = e;` declaration.
type GlobalDecl struct {
	Base
	Name     string
	ID       int
	Declared *TypeExpr // nil for untyped `var` declarations.
	Init     Expr
}

// Param is a single function formal parameter.
type Param struct {
	Base
	Name string
	ID   int
}

// FuncDecl is a top-level function declaration. Of an explicit `:: T1 T2 -> Tret` signature only the
// return type is kept (Ret); the argument types are parsed and dropped, and Params carry no type.
type FuncDecl struct {
	Base
	Name    string
	Params  []*Param
	Ret     *TypeExpr // nil when no return type was declared.
	HasSig  bool      // true when the `::` signature was present at all.
	Body    *Block
}

// Selector picks a field out of a tuple or list cell: .fst/.snd/.hd/.tl (§3).
type Selector = ir.Selector

const (
	Fst = ir.Fst
	Snd = ir.Snd
	Hd  = ir.Hd
	Tl  = ir.Tl
)
