// Package ir defines the generic, target-independent stack-machine opcode set (§3) that the
// monomorphization driver (package genir) emits into, and that both backends (ssm, x64) lower.
// Grounded on the teacher's ir/nodetype.go NodeType enum (a small tagged-constant set with a
// parallel array of print names) but shaped around opcodes with operands instead of AST node kinds.
package ir

import "fmt"

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// OpCode tags a single generic IR instruction (§3's opcode set).
type OpCode int

const (
	Add OpCode = iota
	Sub
	Mul
	Div
	Mod
	Neg
	Not
	And
	Or
	Eq
	Ne
	Lt
	Le
	Gt
	Ge
	PushConst
	CreateListNil
	CreateListCons
	CreateTuple
	LdLoc
	StLoc
	LdGlob
	StGlob
	LdFld
	StFld
	Br
	BrTrue
	BrFalse
	MarkLabel
	Call
	Ret
	RetNoValue
	Halt
	PrintInt
	PrintChar
	Swp
	Pop
)

var opNames = [...]string{
	"Add", "Sub", "Mul", "Div", "Mod", "Neg", "Not", "And", "Or",
	"Eq", "Ne", "Lt", "Le", "Gt", "Ge",
	"PushConst", "CreateListNil", "CreateListCons", "CreateTuple",
	"LdLoc", "StLoc", "LdGlob", "StGlob", "LdFld", "StFld",
	"Br", "BrTrue", "BrFalse", "MarkLabel", "Call", "Ret", "RetNoValue", "Halt",
	"PrintInt", "PrintChar", "Swp", "Pop",
}

func (o OpCode) String() string {
	if int(o) < 0 || int(o) >= len(opNames) {
		return "UnknownOp"
	}
	return opNames[o]
}

// Selector picks a field out of a tuple or list cell (§3): Fst/Hd live at the low word, Snd/Tl at
// the high word, in source-declaration order.
type Selector int

const (
	Fst Selector = iota
	Snd
	Hd
	Tl
)

func (s Selector) String() string {
	switch s {
	case Fst:
		return "Fst"
	case Snd:
		return "Snd"
	case Hd:
		return "Hd"
	case Tl:
		return "Tl"
	default:
		return "?"
	}
}

// Instr is one generic-IR instruction. Only the operand fields relevant to Op are meaningful.
type Instr struct {
	Op     OpCode
	Const  int64     // PushConst
	Offset int       // LdLoc/StLoc: frame slot, or argument offset (see ArgOffset); LdGlob/StGlob: global index.
	Sel    Selector  // LdFld/StFld
	Label  string    // Br/BrTrue/BrFalse/MarkLabel
	Target *Instance // Call
}

func (i Instr) String() string {
	switch i.Op {
	case PushConst:
		return fmt.Sprintf("PushConst %d", i.Const)
	case LdLoc, StLoc, LdGlob, StGlob:
		return fmt.Sprintf("%s %d", i.Op, i.Offset)
	case LdFld, StFld:
		return fmt.Sprintf("%s(%s)", i.Op, i.Sel)
	case Br, BrTrue, BrFalse, MarkLabel:
		return fmt.Sprintf("%s %s", i.Op, i.Label)
	case Call:
		if i.Target != nil {
			return fmt.Sprintf("Call %s", i.Target.MangledID)
		}
		return "Call <unresolved>"
	default:
		return i.Op.String()
	}
}

// ---------------------
// ----- functions -----
// ---------------------

// ArgOffset returns the Instr.Offset of the i-th (0-indexed) argument of a function of the given
// arity, per §3: negative offsets (-k..-1) denote function arguments; non-negative offsets denote
// frame slots.
func ArgOffset(i, arity int) int {
	return i - arity
}
