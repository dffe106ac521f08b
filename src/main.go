package main

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"splc/src/backend/ssm"
	"splc/src/backend/x64"
	"splc/src/errors"
	"splc/src/frontend"
	"splc/src/genir"
	"splc/src/types"
	"splc/src/typing"
	"splc/src/util"
)

var log = logrus.New()

// ----------------------------
// ----- functions -----
// ----------------------------

func levelFor(v string) logrus.Level {
	switch v {
	case util.VerboseDebug:
		return logrus.DebugLevel
	case util.VerboseWarning:
		return logrus.WarnLevel
	case util.VerboseError:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// run drives the full pipeline of spec §5: lex+parse+bind, return-path checking, type inference,
// monomorphized IR generation, and backend lowering. Behaviour is governed by opt.
func run(opt util.Options, out *util.Writer) error {
	log.SetLevel(levelFor(opt.Verbose))

	src, err := util.ReadSource(opt)
	if err != nil {
		return fmt.Errorf("could not read source: %w", err)
	}

	log.Debug("parsing source")
	prog, warnings, err := frontend.Parse(src)
	for _, w := range warnings {
		log.Warn(errors.Render(w, src))
	}
	if err != nil {
		return fmt.Errorf("parse error: %w", err)
	}

	log.Debug("checking return paths")
	for _, f := range prog.Funcs {
		if err := typing.CheckFunction(f, f.Ret != nil && f.Ret.Kind != types.Void, func(d *errors.Diagnostic) {
			log.Warn(errors.Render(d, src))
		}); err != nil {
			return fmt.Errorf("return-path error: %w", err)
		}
	}

	log.Debug("running type inference")
	env, errs := typing.InferProgram(prog, func(d *errors.Diagnostic) {
		log.Warn(errors.Render(d, src))
	})
	if len(errs) > 0 {
		var b strings.Builder
		for _, e := range errs {
			if d, ok := e.(*errors.Diagnostic); ok {
				b.WriteString(errors.Render(d, src))
			} else {
				fmt.Fprintln(&b, e)
			}
		}
		return fmt.Errorf("type error(s):\n%s", b.String())
	}

	log.Debug("monomorphizing to generic IR")
	irProg, err := genir.Generate(prog, env)
	if err != nil {
		if d, ok := err.(*errors.Diagnostic); ok {
			return fmt.Errorf("code generation error: %s", errors.Render(d, src))
		}
		return fmt.Errorf("code generation error: %w", err)
	}

	log.Debugf("emitting %s assembly", opt.Target)
	var listing string
	switch opt.Target {
	case util.TargetSSM:
		listing, err = ssm.Generate(irProg)
	case util.TargetX64:
		listing, err = x64.Generate(irProg)
	default:
		return fmt.Errorf("unknown target %q", opt.Target)
	}
	if err != nil {
		return fmt.Errorf("backend error: %w", err)
	}

	out.WriteString(listing)
	out.Close()

	if opt.Assemble {
		if opt.Target != util.TargetX64 {
			return fmt.Errorf("-S/--assemble requires -t x64")
		}
		if err := assemble(opt); err != nil {
			return fmt.Errorf("assembler error: %w", err)
		}
	}
	return nil
}

// assemble shells out to nasm then ld, assembling the just-written listing at opt.Out into an
// object file at opt.Out+".o" and linking that into a standalone macho64 executable at
// opt.Out+".bin" (§4.8.6: "nasm -f macho64 ... | ld -lSystem ...").
func assemble(opt util.Options) error {
	obj := opt.Out + ".o"
	bin := opt.Out + ".bin"

	nasm := exec.Command("nasm", "-f", "macho64", opt.Out, "-o", obj)
	if out, err := nasm.CombinedOutput(); err != nil {
		return errors.NewAssemblerError("nasm: %s: %s", err, out)
	}

	ld := exec.Command("ld", "-lSystem", "-o", bin, obj, "-macos_version_min", "10.13")
	if out, err := ld.CombinedOutput(); err != nil {
		return errors.NewLinkerError("ld: %s: %s", err, out)
	}
	return nil
}

func main() {
	opt, err := util.ParseArgs()
	if err != nil {
		fmt.Fprintf(os.Stderr, "argument error: %s\n", err)
		os.Exit(1)
	}

	wg := sync.WaitGroup{}
	var f *os.File
	if opt.Out != "" && opt.Out != "-" {
		f, err = os.OpenFile(opt.Out, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer f.Close()
	}
	util.ListenWrite(opt, f, &wg)
	defer util.Close()

	if opt.Target == util.TargetX64 {
		go util.ListenLabel()
		defer util.CloseLabel()
	}

	w := util.NewWriter()
	if err := run(opt, &w); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		wg.Wait()
		os.Exit(1)
	}
	wg.Wait()
}
