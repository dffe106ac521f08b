package util

import (
	"github.com/spf13/cobra"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// argv collects the flag destinations cobra writes into before ParseArgs copies them into Options.
type argv struct {
	src      string
	out      string
	target   string
	verbose  string
	assemble bool
}

// ---------------------
// ----- functions -----
// ---------------------

// ParseArgs builds the splc root command, parses os.Args through it, and returns the resulting
// Options. The command's RunE copies the parsed flag values into Options; ParseArgs itself drives cobra.Execute and
// propagates any flag-parsing or RunE error to its caller, mirroring the teacher's single
// synchronous ParseArgs entry point (called once from main before any compiler phase starts).
func ParseArgs() (Options, error) {
	a := argv{}
	opt := DefaultOptions()

	root := &cobra.Command{
		Use:   "splc",
		Short: "splc compiles SPL source to SSM or x86-64 assembly",
		RunE: func(cmd *cobra.Command, args []string) error {
			opt.Src = a.src
			opt.Out = a.out
			opt.Target = a.target
			opt.Verbose = a.verbose
			opt.Assemble = a.assemble
			return nil
		},
		SilenceUsage: true,
	}

	flags := root.Flags()
	flags.StringVarP(&a.src, "input", "i", "", "path to source file (default: stdin)")
	flags.StringVarP(&a.out, "output", "o", opt.Out, "path to output file")
	flags.StringVarP(&a.target, "target", "t", opt.Target, "code generation target: x64 or ssm")
	flags.StringVarP(&a.verbose, "verbose", "v", opt.Verbose, "log level: debug, info, warning or error")
	flags.BoolVarP(&a.assemble, "assemble", "S", false, "shell out to nasm and ld after emitting the x64 listing")

	if err := root.Execute(); err != nil {
		return opt, err
	}
	return opt, nil
}
