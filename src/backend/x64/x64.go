// Package x64 lowers generic IR (package ir) to a complete NASM macho64 listing per §4.8: a
// virtual-stack register allocator (vstack.go), the System V calling convention and prologue/
// epilogue (call.go), per-opcode lowering and branch-argument reconvergence (lower.go), and this
// file's top-level driver plus output-file layout.
package x64

import (
	"fmt"
	"strings"

	"github.com/klauspost/asmfmt"

	"splc/src/errors"
	"splc/src/ir"
)

// ---------------------
// ----- functions -----
// ---------------------

// Generate lowers prog to a complete assembly listing ready for `nasm -f macho64` followed by
// linking against libSystem (§4.8.6).
func Generate(prog *ir.Program) (string, error) {
	entry, err := findEntry(prog)
	if err != nil {
		return "", err
	}

	var bodies []string
	var usesPrintf, usesPutchar, usesMalloc bool
	for _, inst := range prog.Instances {
		fc := newFuncCtx(inst)
		fc.setupArgs(len(inst.ArgTypes))

		label := "f_" + inst.MangledID
		if inst == entry {
			label = "_main"
		}
		fc.b.emitLabel(label)
		fc.emitPrologue()
		for _, instr := range inst.Body {
			if err := fc.lower(instr); err != nil {
				return "", err
			}
		}
		bodies = append(bodies, fc.finish())
		usesPrintf = usesPrintf || fc.usesPrintf
		usesPutchar = usesPutchar || fc.usesPutchar
		usesMalloc = usesMalloc || fc.usesMalloc
	}

	var out strings.Builder
	out.WriteString("default rel\n")
	out.WriteString("global _main\n")
	if usesPrintf {
		out.WriteString("extern _printf\n")
	}
	if usesPutchar {
		out.WriteString("extern _putchar\n")
	}
	if usesMalloc {
		out.WriteString("extern _malloc\n")
	}

	out.WriteString("\nsection .text\n")
	for _, b := range bodies {
		out.WriteString(b)
	}

	out.WriteString("\nsection .bss\n")
	for _, gv := range prog.Globals {
		fmt.Fprintf(&out, "global_%d: resq 1\n", gv.Offset)
	}

	if usesPrintf {
		out.WriteString("\nsection .data\n")
		out.WriteString("int_format: db \"%d\", 0\n")
	}

	return format(out.String()), nil
}

func findEntry(prog *ir.Program) (*ir.Instance, error) {
	var entry *ir.Instance
	count := 0
	for _, inst := range prog.Instances {
		if inst.Entry {
			count++
			entry = inst
		}
	}
	if count != 1 {
		return nil, errors.NewCodeGenError(errors.CodeRange{}, "expected exactly one entry-point instance, found %d", count)
	}
	return entry, nil
}

// format runs the listing through asmfmt's canonicalizer. asmfmt targets Go's Plan9 assembler
// dialect rather than NASM's Intel syntax, so a dialect it doesn't recognize is expected to fail
// its parse; in that case the unformatted listing (already laid out with this package's own fixed
// indentation convention) is returned as-is rather than treating the mismatch as a hard error.
func format(raw string) string {
	formatted, err := asmfmt.Format(strings.NewReader(raw))
	if err != nil {
		return raw
	}
	return string(formatted)
}
