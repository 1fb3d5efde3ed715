package ovc

import (
	"context"
	"errors"
	"fmt"
)

// Standard widths.
const (
	WidthBool = 1
	Width8    = 8
	Width16   = 16
	Width32   = 32
	Width64   = 64
)

var (
	ErrUnsupportedType     = errors.New("unsupported type")
	ErrUnsupportedOperator = errors.New("unsupported operator")
	ErrInvariantViolation  = errors.New("internal invariant violation")
	ErrOperandMismatch     = errors.New("operand does not match kind")
)

var (
	ErrSolverTimeout       = errors.New("Solver timeout")
	ErrSolverCanceled      = errors.New("Solver canceled")
	ErrSolverResourceLimit = errors.New("Solver resource limit")
	ErrSolverUnknown       = errors.New("Solver unknown error")
)

// Prover decides whether a formula holds for every assignment of its
// variables.
type Prover interface {
	Prove(ctx context.Context, expr Expr) (valid bool, err error)
}

// UnsupportedTypeError is returned when the destination type of an operation
// is not one of the fixed-width integer kinds.
type UnsupportedTypeError struct {
	Type string
}

// Error returns the error as a string.
func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("ovc: unsupported type: %s", e.Type)
}

// Unwrap returns ErrUnsupportedType.
func (e *UnsupportedTypeError) Unwrap() error { return ErrUnsupportedType }

// UnsupportedOperatorError is returned when no safety condition is modeled
// for an operator, e.g. shifts, bitwise operations and comparisons.
type UnsupportedOperatorError struct {
	Kind Kind
	Op   Operator
}

// Error returns the error as a string.
func (e *UnsupportedOperatorError) Error() string {
	return fmt.Sprintf("ovc: unsupported operator: %s %s", e.Kind, e.Op)
}

// Unwrap returns ErrUnsupportedOperator.
func (e *UnsupportedOperatorError) Unwrap() error { return ErrUnsupportedOperator }

// OperandError is returned when an operand's width or signedness disagrees
// with the kind of the operation it is guarded under.
type OperandError struct {
	Kind    Kind
	Operand Expr
}

// Error returns the error as a string.
func (e *OperandError) Error() string {
	return fmt.Sprintf("ovc: operand does not match kind: %s: %v", e.Kind, e.Operand)
}

// Unwrap returns ErrOperandMismatch.
func (e *OperandError) Unwrap() error { return ErrOperandMismatch }

// InvariantError is returned when an operator reaches a branch that the
// routing logic declares impossible.
type InvariantError struct {
	Kind   Kind
	Op     Operator
	Reason string
}

// Error returns the error as a string.
func (e *InvariantError) Error() string {
	return fmt.Sprintf("ovc: internal invariant violation: %s %s: %s", e.Kind, e.Op, e.Reason)
}

// Unwrap returns ErrInvariantViolation.
func (e *InvariantError) Unwrap() error { return ErrInvariantViolation }

// assert panics if condition is false.
func assert(condition bool, format string, args ...interface{}) {
	if !condition {
		panic(fmt.Sprintf("assert: "+format, args...))
	}
}
