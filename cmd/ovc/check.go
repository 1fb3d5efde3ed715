package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"go/types"
	"io"
	"log"
	"os"
	"regexp"

	"github.com/benbjohnson/ovc"
	"github.com/benbjohnson/ovc/frontend"
	"github.com/benbjohnson/ovc/smtlib"
	"github.com/fatih/color"
	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

var (
	// ErrMayOverflow is returned by a proving run when any obligation fails.
	ErrMayOverflow = errors.New("possible overflow found")

	// ErrUnproven is returned by a proving run when the solver could not
	// decide some obligation. Undecided obligations are never assumed safe.
	ErrUnproven = errors.New("obligation(s) not proven")
)

// newEmbeddedProver is set when the binary is built with the embedded solver.
var newEmbeddedProver func(config SolverConfig) (ovc.Prover, io.Closer)

var (
	safeColor    = color.New(color.FgGreen)
	unsafeColor  = color.New(color.FgRed, color.Bold)
	unknownColor = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
)

// CheckCommand represents a command for checking the arithmetic of packages.
type CheckCommand struct {
	// Working directory for loading packages.
	Dir string

	Stdout io.Writer
	Stderr io.Writer
}

// NewCheckCommand returns a new instance of CheckCommand.
func NewCheckCommand() *CheckCommand {
	return &CheckCommand{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// Run executes the "check" subcommand.
func (cmd *CheckCommand) Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("ovc-check", flag.ContinueOnError)
	verbose := fs.Bool("v", false, "verbose")
	configPath := fs.String("config", "", "config path")
	prove := fs.Bool("prove", false, "discharge obligations")
	format := fs.String("format", "text", "formula format")
	arch := fs.String("arch", "", "target architecture")
	filter := fs.String("run", "", "function filter")
	fs.SetOutput(cmd.Stderr)
	fs.Usage = cmd.usage
	if err := fs.Parse(args); err != nil {
		return err
	} else if fs.NArg() == 0 {
		return fmt.Errorf("package required")
	} else if *format != "text" && *format != "smt" {
		return fmt.Errorf("unknown format: %q", *format)
	}

	log.SetFlags(0)
	if *verbose {
		log.SetOutput(cmd.Stderr)
	} else {
		log.SetOutput(io.Discard)
	}

	// Read configuration and apply flag overrides.
	config := NewConfig()
	if *configPath != "" {
		var err error
		if config, err = ReadConfigFile(*configPath); err != nil {
			return err
		}
	}
	if *arch != "" {
		config.Arch = *arch
	}
	if *filter != "" {
		config.Functions = []string{*filter}
	}
	if err := config.Validate(); err != nil {
		return err
	}

	sizes := types.SizesFor("gc", config.Arch)
	if sizes == nil {
		return fmt.Errorf("unknown architecture: %q", config.Arch)
	}
	filters, err := config.FunctionFilters()
	if err != nil {
		return err
	}

	var prover ovc.Prover
	if *prove {
		p, closer, err := cmd.newProver(config.Solver)
		if err != nil {
			return err
		} else if closer != nil {
			defer closer.Close()
		}
		prover = p
	}

	// Load the initial set of packages.
	initial, err := packages.Load(&packages.Config{
		Mode:    packages.LoadAllSyntax,
		Context: ctx,
		Dir:     cmd.Dir,
		Env:     append(os.Environ(), "GOARCH="+config.Arch),
	}, fs.Args()...)
	if err != nil {
		return err
	} else if packages.PrintErrors(initial) > 0 {
		return fmt.Errorf("packages contain errors")
	}

	// Build program in SSA form.
	prog, pkgs := ssautil.AllPackages(initial, ssa.BuilderMode(0))
	for i, pkg := range pkgs {
		if pkg == nil {
			return fmt.Errorf("cannot build SSA for package %s", initial[i])
		}
	}
	prog.Build()

	var stats checkStats
	for _, fn := range frontend.Functions(prog, pkgs) {
		if !matchAny(filters, fn.String()) {
			continue
		}
		if err := cmd.checkFunction(ctx, fn, sizes, prover, *format, &stats); err != nil {
			return err
		}
	}

	fmt.Fprintln(cmd.Stdout, stats.String(prover != nil))
	if stats.failed > 0 {
		return fmt.Errorf("%d function(s) could not be checked", stats.failed)
	} else if stats.unsafe > 0 {
		return ErrMayOverflow
	} else if stats.unknown > 0 {
		return ErrUnproven
	}
	return nil
}

// checkFunction prints the obligations of fn and optionally proves them.
func (cmd *CheckCommand) checkFunction(ctx context.Context, fn *ssa.Function, sizes types.Sizes, prover ovc.Prover, format string, stats *checkStats) error {
	log.Printf("[begin] %s", fn)
	defer log.Printf("[end] %s", fn)

	report, err := frontend.Collect(ctx, fn, sizes)
	if err != nil {
		stats.failed++
		errorColor.Fprintf(cmd.Stderr, "%s\n", err)
		return nil
	} else if len(report.Obligations) == 0 {
		return nil
	}
	stats.funcs++

	fmt.Fprintln(cmd.Stdout, report.Func)
	for _, o := range report.Obligations {
		stats.obligations++
		fmt.Fprintf(cmd.Stdout, "\t%s", o)

		if prover != nil {
			valid, err := prover.Prove(ctx, o.Goal())
			switch {
			case errors.Is(err, ovc.ErrSolverTimeout), errors.Is(err, ovc.ErrSolverUnknown), errors.Is(err, ovc.ErrSolverResourceLimit):
				stats.unknown++
				unknownColor.Fprintf(cmd.Stdout, "\tUNKNOWN (%s)", err)
			case err != nil:
				fmt.Fprintln(cmd.Stdout)
				return err
			case valid:
				stats.safe++
				safeColor.Fprint(cmd.Stdout, "\tSAFE")
			default:
				stats.unsafe++
				unsafeColor.Fprint(cmd.Stdout, "\tMAY OVERFLOW")
			}
		}
		fmt.Fprintln(cmd.Stdout)

		text, err := formatExpr(o.Goal(), format)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.Stdout, "\t\t%s\n", text)
	}
	return nil
}

func (cmd *CheckCommand) newProver(config SolverConfig) (ovc.Prover, io.Closer, error) {
	switch config.Engine {
	case EngineEmbedded:
		if newEmbeddedProver == nil {
			return nil, nil, fmt.Errorf("embedded solver not available; rebuild with -tags z3")
		}
		p, closer := newEmbeddedProver(config)
		return p, closer, nil
	default:
		return &smtlib.Process{
			Command: config.Command,
			Args:    config.Args,
			Timeout: config.Timeout,
		}, nil, nil
	}
}

func formatExpr(expr ovc.Expr, format string) (string, error) {
	if format == "smt" {
		return smtlib.String(expr)
	}
	return expr.String(), nil
}

func matchAny(filters []*regexp.Regexp, name string) bool {
	if len(filters) == 0 {
		return true
	}
	for _, re := range filters {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

type checkStats struct {
	funcs       int
	obligations int
	failed      int
	safe        int
	unsafe      int
	unknown     int
}

func (s *checkStats) String(proved bool) string {
	str := fmt.Sprintf("%d function(s), %d obligation(s)", s.funcs, s.obligations)
	if proved {
		str += fmt.Sprintf(": %d safe, %d may overflow, %d unknown", s.safe, s.unsafe, s.unknown)
	}
	return str
}

func (cmd *CheckCommand) usage() {
	fmt.Fprintln(cmd.Stderr, `
usage: ovc check [arguments] package [package...]

Collects an overflow obligation for every integer add, subtract, multiply,
divide and remainder in the given packages and prints its safety condition.

Arguments:

	-v
	    Enable verbose logging.

	-config PATH
	    Read solver, architecture and function settings from a YAML file.

	-prove
	    Discharge each obligation with the configured solver.

	-format FORMAT
	    Formula format: text or smt. Defaults to text.

	-arch ARCH
	    Target architecture for int, uint and uintptr. Defaults to GOARCH.

	-run REGEXP
	    Only check functions whose full name matches REGEXP.
`[1:])
}
