package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/benbjohnson/ovc"
	"github.com/benbjohnson/ovc/smtlib"
	"github.com/davecgh/go-spew/spew"
)

// FormulaCommand represents a command for printing a single safety condition.
type FormulaCommand struct {
	Stdout io.Writer
	Stderr io.Writer
}

// NewFormulaCommand returns a new instance of FormulaCommand.
func NewFormulaCommand() *FormulaCommand {
	return &FormulaCommand{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// Run executes the "formula" subcommand.
func (cmd *FormulaCommand) Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("ovc-formula", flag.ContinueOnError)
	typ := fs.String("type", "", "operand type")
	op := fs.String("op", "", "operator")
	format := fs.String("format", "text", "output format")
	fs.SetOutput(cmd.Stderr)
	fs.Usage = cmd.usage
	if err := fs.Parse(args); err != nil {
		return err
	} else if fs.NArg() > 0 {
		return fmt.Errorf("too many arguments")
	} else if *typ == "" {
		return fmt.Errorf("type required")
	} else if *op == "" {
		return fmt.Errorf("operator required")
	}

	kind, err := ovc.ParseKind(*typ)
	if err != nil {
		return err
	}
	operator, err := ovc.ParseOperator(*op)
	if err != nil {
		return err
	}

	cond, err := ovc.SafetyCondition(kind, operator, ovc.NewVarExpr("l", kind), ovc.NewVarExpr("r", kind))
	if err != nil {
		return err
	}

	switch *format {
	case "text":
		fmt.Fprintln(cmd.Stdout, cond)
	case "smt":
		script, err := smtlib.Script(cond)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.Stdout, script)
	case "dump":
		cfg := spew.ConfigState{Indent: "\t", DisableMethods: true, DisablePointerAddresses: true, DisableCapacities: true}
		cfg.Fdump(cmd.Stdout, cond)
	default:
		return fmt.Errorf("unknown format: %q", *format)
	}
	return nil
}

func (cmd *FormulaCommand) usage() {
	fmt.Fprintln(cmd.Stderr, `
usage: ovc formula -type TYPE -op OP [arguments]

Prints the condition under which "l OP r" does not overflow for operands
of TYPE (int8..int64, uint8..uint64, or i8..u64).

Arguments:

	-type TYPE
	    Operand type.

	-op OP
	    Operator name or symbol, e.g. "add" or "+".

	-format FORMAT
	    Output format: text, smt or dump. Defaults to text.
`[1:])
}
