package main

import (
	"bytes"
	"context"
	"flag"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/ovc"
	"github.com/fatih/color"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	t.Run("Help", func(t *testing.T) {
		require.Equal(t, flag.ErrHelp, run(context.Background(), nil))
	})
	t.Run("ErrUnknownCommand", func(t *testing.T) {
		require.EqualError(t, run(context.Background(), []string{"nope"}), "ovc nope: unknown command")
	})
}

func TestFormulaCommand_Run(t *testing.T) {
	t.Run("Text", func(t *testing.T) {
		stdout := RunFormula(t, "-type", "u8", "-op", "+")
		require.Equal(t, "(uge (add l r) r)\n", stdout)
	})

	t.Run("SMT", func(t *testing.T) {
		stdout := RunFormula(t, "-type", "uint32", "-op", "mul", "-format", "smt")
		require.Equal(t, ""+
			"(set-logic QF_BV)\n"+
			"(declare-const l (_ BitVec 32))\n"+
			"(declare-const r (_ BitVec 32))\n"+
			"(assert (not (bvumul_noovfl l r)))\n"+
			"(check-sat)\n", stdout)
	})

	t.Run("Dump", func(t *testing.T) {
		stdout := RunFormula(t, "-type", "i64", "-op", "div", "-format", "dump")
		require.Contains(t, stdout, "ovc.NotExpr")
		require.Contains(t, stdout, `Name: (string) (len=1) "l"`)
	})

	t.Run("ErrUnsupportedType", func(t *testing.T) {
		cmd := NewFormulaCommand()
		cmd.Stdout, cmd.Stderr = &bytes.Buffer{}, &bytes.Buffer{}
		err := cmd.Run(context.Background(), []string{"-type", "i128", "-op", "add"})
		require.ErrorIs(t, err, ovc.ErrUnsupportedType)
	})

	t.Run("ErrUnsupportedOperator", func(t *testing.T) {
		cmd := NewFormulaCommand()
		cmd.Stdout, cmd.Stderr = &bytes.Buffer{}, &bytes.Buffer{}
		err := cmd.Run(context.Background(), []string{"-type", "i8", "-op", "<<"})
		require.ErrorIs(t, err, ovc.ErrUnsupportedOperator)
	})

	t.Run("ErrInvariantViolation", func(t *testing.T) {
		cmd := NewFormulaCommand()
		cmd.Stdout, cmd.Stderr = &bytes.Buffer{}, &bytes.Buffer{}
		err := cmd.Run(context.Background(), []string{"-type", "u16", "-op", "%"})
		require.ErrorIs(t, err, ovc.ErrInvariantViolation)
	})

	t.Run("ErrTypeRequired", func(t *testing.T) {
		cmd := NewFormulaCommand()
		cmd.Stdout, cmd.Stderr = &bytes.Buffer{}, &bytes.Buffer{}
		require.EqualError(t, cmd.Run(context.Background(), []string{"-op", "add"}), "type required")
	})
}

func TestCheckCommand_Run(t *testing.T) {
	if _, err := exec.LookPath("go"); err != nil {
		t.Skip("go command not available")
	}

	t.Run("Text", func(t *testing.T) {
		stdout, err := RunCheck(t, ".")
		require.NoError(t, err)
		require.Contains(t, stdout, "example.com/sample.Sum\n")
		require.Contains(t, stdout, "uint8 x + y\n")
		require.Contains(t, stdout, "(implies true (uge (add x y) y))")
		require.Contains(t, stdout, "(ult x (uconst 100 8))")
		require.NotContains(t, stdout, "Flags")
		require.True(t, strings.HasSuffix(stdout, "3 function(s), 3 obligation(s)\n"), stdout)
	})

	t.Run("SMT", func(t *testing.T) {
		stdout, err := RunCheck(t, "-format", "smt", "-run", `\.Half$`, ".")
		require.NoError(t, err)
		require.Contains(t, stdout, "(=> true (not (and (= x (_ bv2147483648 32)) (= (_ bv2 32) (_ bv4294967295 32)))))")
		require.True(t, strings.HasSuffix(stdout, "1 function(s), 1 obligation(s)\n"), stdout)
	})

	t.Run("ProveSafe", func(t *testing.T) {
		config := WriteConfig(t, "solver:\n  command: sh\n  args: [\"-c\", \"cat >/dev/null; echo unsat\"]\n")
		stdout, err := RunCheck(t, "-prove", "-config", config, ".")
		require.NoError(t, err)
		require.Equal(t, 3, strings.Count(stdout, "\tSAFE\n"))
		require.Contains(t, stdout, "3 safe, 0 may overflow, 0 unknown")
	})

	t.Run("ProveMayOverflow", func(t *testing.T) {
		config := WriteConfig(t, "solver:\n  command: sh\n  args: [\"-c\", \"cat >/dev/null; echo sat\"]\n")
		stdout, err := RunCheck(t, "-prove", "-config", config, "-run", "Sum", ".")
		require.ErrorIs(t, err, ErrMayOverflow)
		require.Contains(t, stdout, "\tMAY OVERFLOW\n")
	})

	t.Run("ProveUnknown", func(t *testing.T) {
		config := WriteConfig(t, "solver:\n  command: sh\n  args: [\"-c\", \"cat >/dev/null; echo unknown\"]\n")
		stdout, err := RunCheck(t, "-prove", "-config", config, "-run", "Sum", ".")
		require.ErrorIs(t, err, ErrUnproven)
		require.Contains(t, stdout, "\tUNKNOWN (")
		require.Contains(t, stdout, "0 safe, 0 may overflow, 1 unknown")
	})

	t.Run("ProveTimeout", func(t *testing.T) {
		config := WriteConfig(t, "solver:\n  command: sh\n  args: [\"-c\", \"exec sleep 5\"]\n  timeout: 50ms\n")
		stdout, err := RunCheck(t, "-prove", "-config", config, "-run", "Sum", ".")
		require.ErrorIs(t, err, ErrUnproven)
		require.Contains(t, stdout, "\tUNKNOWN (")
	})

	t.Run("ErrUnknownArch", func(t *testing.T) {
		_, err := RunCheck(t, "-arch", "pdp11", ".")
		require.EqualError(t, err, `unknown architecture: "pdp11"`)
	})

	t.Run("ErrPackageRequired", func(t *testing.T) {
		_, err := RunCheck(t)
		require.EqualError(t, err, "package required")
	})
}

// Runs against a real solver when one is installed.
func TestCheckCommand_Run_Z3(t *testing.T) {
	if _, err := exec.LookPath("go"); err != nil {
		t.Skip("go command not available")
	} else if _, err := exec.LookPath("z3"); err != nil {
		t.Skip("z3 not available")
	}

	stdout, err := RunCheck(t, "-prove", ".")
	require.ErrorIs(t, err, ErrMayOverflow)
	require.Contains(t, stdout, "2 safe, 1 may overflow, 0 unknown")
}

func TestParseConfig(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		config, err := ParseConfig(nil)
		require.NoError(t, err)
		require.Equal(t, NewConfig(), config)
	})

	t.Run("Override", func(t *testing.T) {
		config, err := ParseConfig([]byte(`
arch: "386"
functions: ["^main\\.", "Sum$"]
solver:
  command: cvc5
  args: ["--lang=smt2"]
  timeout: 5s
`))
		require.NoError(t, err)
		require.Equal(t, "386", config.Arch)
		require.Equal(t, []string{`^main\.`, "Sum$"}, config.Functions)
		require.Equal(t, SolverConfig{
			Engine:  EngineProcess,
			Command: "cvc5",
			Args:    []string{"--lang=smt2"},
			Timeout: 5 * time.Second,
		}, config.Solver)

		filters, err := config.FunctionFilters()
		require.NoError(t, err)
		require.Len(t, filters, 2)
		require.True(t, matchAny(filters, "pkg.Sum"))
		require.False(t, matchAny(filters, "pkg.Half"))
	})

	t.Run("ErrUnknownEngine", func(t *testing.T) {
		_, err := ParseConfig([]byte("solver:\n  engine: magic\n"))
		require.EqualError(t, err, `config: unknown solver engine: "magic"`)
	})

	t.Run("ErrBadFilter", func(t *testing.T) {
		_, err := ParseConfig([]byte("functions: [\"(\"]\n"))
		require.ErrorContains(t, err, "config: functions:")
	})

	t.Run("ErrSyntax", func(t *testing.T) {
		_, err := ParseConfig([]byte("arch: [\n"))
		require.ErrorContains(t, err, "config:")
	})
}

func RunFormula(tb testing.TB, args ...string) string {
	tb.Helper()
	var stdout bytes.Buffer
	cmd := NewFormulaCommand()
	cmd.Stdout, cmd.Stderr = &stdout, &bytes.Buffer{}
	require.NoError(tb, cmd.Run(context.Background(), args))
	return stdout.String()
}

func RunCheck(tb testing.TB, args ...string) (string, error) {
	tb.Helper()
	color.NoColor = true

	var stdout bytes.Buffer
	cmd := NewCheckCommand()
	cmd.Dir = filepath.Join("testdata", "sample")
	cmd.Stdout, cmd.Stderr = &stdout, &bytes.Buffer{}
	err := cmd.Run(context.Background(), args)
	return stdout.String(), err
}

func WriteConfig(tb testing.TB, s string) string {
	tb.Helper()
	path := filepath.Join(tb.TempDir(), "ovc.yaml")
	require.NoError(tb, os.WriteFile(path, []byte(s), 0o666))
	return path
}
