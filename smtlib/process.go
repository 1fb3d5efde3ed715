package smtlib

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os/exec"
	"strings"
	"time"

	"github.com/benbjohnson/ovc"
)

// Ensure process implements interface.
var _ ovc.Prover = (*Process)(nil)

// Result represents the answer to a check-sat query.
type Result int

const (
	Unknown Result = iota
	Sat
	Unsat
)

// String returns the SMT-LIB spelling of the result.
func (r Result) String() string {
	switch r {
	case Sat:
		return "sat"
	case Unsat:
		return "unsat"
	default:
		return "unknown"
	}
}

// ParseResult parses the first answer line of solver output.
func ParseResult(output []byte) (Result, error) {
	for _, line := range strings.Split(string(output), "\n") {
		switch line = strings.TrimSpace(line); line {
		case "":
			continue
		case "sat":
			return Sat, nil
		case "unsat":
			return Unsat, nil
		case "unknown":
			return Unknown, nil
		default:
			return Unknown, fmt.Errorf("smtlib: unexpected solver output: %q", line)
		}
	}
	return Unknown, errors.New("smtlib: empty solver output")
}

// Process runs SMT-LIB scripts through an external solver binary that reads
// the script from stdin.
type Process struct {
	Command string
	Args    []string

	// Maximum time allowed per query. Zero means no limit.
	Timeout time.Duration
}

// NewProcess returns a Process that runs "z3 -in".
func NewProcess() *Process {
	return &Process{
		Command: "z3",
		Args:    []string{"-in"},
		Timeout: 30 * time.Second,
	}
}

// Check runs script and returns the solver's answer.
func (p *Process) Check(ctx context.Context, script string) (Result, error) {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, p.Command, p.Args...)
	cmd.Stdin = strings.NewReader(script)
	cmd.Stdout, cmd.Stderr = &stdout, &stderr
	cmd.WaitDelay = time.Second

	t := time.Now()
	err := cmd.Run()
	log.Printf("[solve] %s: %s", p.Command, time.Since(t))

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return Unknown, ovc.ErrSolverTimeout
	} else if ctx.Err() != nil {
		return Unknown, ovc.ErrSolverCanceled
	}

	// Solvers may exit non-zero after printing a valid answer.
	result, parseErr := ParseResult(stdout.Bytes())
	if parseErr != nil {
		if err != nil {
			return Unknown, fmt.Errorf("smtlib: %s: %w: %s", p.Command, err, strings.TrimSpace(stderr.String()))
		}
		return Unknown, parseErr
	}
	return result, nil
}

// Prove reports whether expr is valid, i.e. its negation is unsatisfiable.
func (p *Process) Prove(ctx context.Context, expr ovc.Expr) (valid bool, err error) {
	script, err := Script(expr)
	if err != nil {
		return false, err
	}

	result, err := p.Check(ctx, script)
	if err != nil {
		return false, err
	}
	switch result {
	case Unsat:
		return true, nil
	case Sat:
		return false, nil
	default:
		return false, ovc.ErrSolverUnknown
	}
}
