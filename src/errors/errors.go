// Package errors defines splc's diagnostic taxonomy (spec §7): one Diagnostic type tagged with a
// Category per reportable condition, each carrying a CodeRange, plus Render for the two-line source-context format the
// original Python reference (compiler/errors.py) prints. Modeled on the teacher's util.perror: a
// typed condition that flows through a util.Bag rather than being formatted ad hoc at the call site.
package errors

import (
	"fmt"
	"strings"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Pos is a single line/column location in source text. Columns are 1-indexed to match the teacher's
// lexer (util/lexer.go startOnLine field).
type Pos struct {
	Line int
	Col  int
}

// CodeRange spans from Start to End, inclusive of Start and exclusive of End, matching the ranges
// the frontend attaches to every AST node.
type CodeRange struct {
	Start Pos
	End   Pos
}

func (r CodeRange) String() string {
	return fmt.Sprintf("%d:%d-%d:%d", r.Start.Line, r.Start.Col, r.End.Line, r.End.Col)
}

// Category names one of the taxonomy's error or warning classes.
type Category int

const (
	LexError Category = iota
	SyntaxError
	BindingError
	ReturnValueError
	TypeError
	CodeGenError
	AssemblerError
	LinkerError
	// Warnings (non-fatal; collected separately by util.Bag.Warn).
	UnreachableCode
	VariableHiding
)

var categoryNames = [...]string{
	"LexError",
	"SyntaxError",
	"BindingError",
	"ReturnValueError",
	"TypeError",
	"CodeGenError",
	"AssemblerError",
	"LinkerError",
	"UnreachableCode",
	"VariableHiding",
}

func (c Category) String() string {
	if int(c) < 0 || int(c) >= len(categoryNames) {
		return "UnknownCategory"
	}
	return categoryNames[c]
}

// IsWarning reports whether c is a warning-class diagnostic rather than a fatal error.
func (c Category) IsWarning() bool {
	return c == UnreachableCode || c == VariableHiding
}

// Diagnostic is the concrete error type every taxonomy member implements. Category-specific
// constructors below attach the right Category and message.
type Diagnostic struct {
	Cat   Category
	Msg   string
	Range CodeRange
}

func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s (%s)", d.Cat, d.Msg, d.Range)
}

func new_(cat Category, rng CodeRange, format string, args ...interface{}) *Diagnostic {
	return &Diagnostic{Cat: cat, Msg: fmt.Sprintf(format, args...), Range: rng}
}

// NewLexError builds a LexError-class Diagnostic.
func NewLexError(rng CodeRange, format string, args ...interface{}) *Diagnostic {
	return new_(LexError, rng, format, args...)
}

// NewSyntaxError builds a SyntaxError-class Diagnostic.
func NewSyntaxError(rng CodeRange, format string, args ...interface{}) *Diagnostic {
	return new_(SyntaxError, rng, format, args...)
}

// NewBindingError builds a BindingError-class Diagnostic.
func NewBindingError(rng CodeRange, format string, args ...interface{}) *Diagnostic {
	return new_(BindingError, rng, format, args...)
}

// NewReturnValueError builds a ReturnValueError-class Diagnostic (NotAllPathsReturn).
func NewReturnValueError(rng CodeRange, format string, args ...interface{}) *Diagnostic {
	return new_(ReturnValueError, rng, format, args...)
}

// NewTypeError builds a TypeError-class Diagnostic.
func NewTypeError(rng CodeRange, format string, args ...interface{}) *Diagnostic {
	return new_(TypeError, rng, format, args...)
}

// NewCodeGenError builds a CodeGenError-class Diagnostic. Backend/IR-generation failures are always
// fatal (spec §7): the driver aborts on the first one.
func NewCodeGenError(rng CodeRange, format string, args ...interface{}) *Diagnostic {
	return new_(CodeGenError, rng, format, args...)
}

// NewAssemblerError wraps a failure reported by the external nasm subprocess.
func NewAssemblerError(format string, args ...interface{}) *Diagnostic {
	return new_(AssemblerError, CodeRange{}, format, args...)
}

// NewLinkerError wraps a failure reported by the external ld subprocess.
func NewLinkerError(format string, args ...interface{}) *Diagnostic {
	return new_(LinkerError, CodeRange{}, format, args...)
}

// NewUnreachableCode builds the UnreachableCode warning (spec §4.4, §7).
func NewUnreachableCode(rng CodeRange) *Diagnostic {
	return new_(UnreachableCode, rng, "statement is unreachable: all prior paths already return")
}

// NewVariableHiding builds the VariableHiding warning (original_source/compiler/compiler_warnings.py).
func NewVariableHiding(rng CodeRange, name string) *Diagnostic {
	return new_(VariableHiding, rng, "declaration of %q hides a name from an enclosing scope", name)
}

// Render prints "category: message" followed by the two-line source context: the offending source
// line and a caret underline sized to the CodeRange. Mirrors original_source/compiler/errors.py.
func Render(d *Diagnostic, src string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", d.Cat, d.Msg)

	lines := strings.Split(src, "\n")
	ln := d.Range.Start.Line
	if ln < 1 || ln > len(lines) {
		return b.String()
	}
	line := lines[ln-1]
	fmt.Fprintf(&b, "%s\n", line)

	start := d.Range.Start.Col
	end := d.Range.End.Col
	if d.Range.End.Line != d.Range.Start.Line || end <= start {
		end = start + 1
	}
	if start < 1 {
		start = 1
	}
	width := end - start
	if width < 1 {
		width = 1
	}
	b.WriteString(strings.Repeat(" ", start-1))
	b.WriteString(strings.Repeat("^", width))
	b.WriteString("\n")
	return b.String()
}
