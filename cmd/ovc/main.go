package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:]); err == flag.ErrHelp {
		os.Exit(1)
	} else if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	var cmd string
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "", "-h", "--help", "help":
		usage()
		return flag.ErrHelp
	case "check":
		return NewCheckCommand().Run(ctx, args)
	case "formula":
		return NewFormulaCommand().Run(ctx, args)
	default:
		return fmt.Errorf(`ovc %s: unknown command`, cmd)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `
Ovc synthesizes overflow safety conditions for integer arithmetic.

Usage:

	ovc <command> [arguments]

The commands are:

	check       check the arithmetic of Go packages
	formula     print the safety condition of one operation
	help        this screen
`[1:])
}
