//go:build z3

package z3

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
	"unsafe"

	"github.com/benbjohnson/ovc"
)

/*
#cgo LDFLAGS: -lz3
#include <z3.h>
#include <stdlib.h>
#include <stdio.h>
*/
import "C"

// Ensure prover implements interface.
var _ ovc.Prover = (*Prover)(nil)

// Prover represents a prover that uses an embedded Z3 solver.
//
// A Prover is not safe for concurrent use.
type Prover struct {
	ctx   *Context
	stats Stats

	// Maximum time allowed per query. Zero means no limit.
	Timeout time.Duration
}

// NewProver returns a new instance of Prover.
func NewProver() *Prover {
	return &Prover{
		ctx: NewContext(),
	}
}

// Close deletes the underlying Z3 context.
func (p *Prover) Close() error {
	return p.ctx.Close()
}

// Stats returns statistics for the prover.
func (p *Prover) Stats() Stats {
	return p.stats
}

// Prove reports whether expr holds for every assignment of its variables by
// checking that its negation is unsatisfiable.
func (p *Prover) Prove(ctx context.Context, expr ovc.Expr) (valid bool, err error) {
	if err := ctx.Err(); err != nil {
		return false, ovc.ErrSolverCanceled
	}

	t := time.Now()
	defer func() {
		p.stats.ProveN++
		p.stats.ProveTime += time.Since(t)
	}()

	solver := C.Z3_mk_solver(p.ctx.raw)
	if err := p.ctx.err("Z3_mk_solver"); err != nil {
		return false, err
	}
	C.Z3_solver_inc_ref(p.ctx.raw, solver)
	defer C.Z3_solver_dec_ref(p.ctx.raw, solver)

	if p.Timeout > 0 {
		if err := p.ctx.setTimeout(solver, p.Timeout); err != nil {
			return false, err
		}
	}

	// Assert the negated formula.
	ast, err := p.ctx.toAST(expr)
	if err != nil {
		return false, err
	}
	negated := C.Z3_mk_not(p.ctx.raw, ast)
	if err := p.ctx.err("Z3_mk_not"); err != nil {
		return false, err
	}
	C.Z3_solver_assert(p.ctx.raw, solver, negated)
	if err := p.ctx.err("Z3_solver_assert"); err != nil {
		return false, err
	}

	// Interrupt the solver if the caller gives up first. The interrupt only
	// reaches this solver and only while the check is running.
	var mu sync.Mutex
	checking := true
	stop := context.AfterFunc(ctx, func() {
		mu.Lock()
		defer mu.Unlock()
		if checking {
			C.Z3_solver_interrupt(p.ctx.raw, solver)
		}
	})
	defer stop()

	ret := C.Z3_solver_check(p.ctx.raw, solver)
	mu.Lock()
	checking = false
	mu.Unlock()
	log.Printf("[solve] z3: %s", time.Since(t))
	if err := p.ctx.err("Z3_solver_check"); err != nil {
		return false, err
	} else if ret == C.Z3_L_FALSE {
		return true, nil
	} else if ret == C.Z3_L_TRUE {
		return false, nil
	}

	reason := C.GoString(C.Z3_solver_get_reason_unknown(p.ctx.raw, solver))
	switch {
	case strings.Contains(reason, "timeout"):
		return false, ovc.ErrSolverTimeout
	case strings.Contains(reason, "canceled"):
		return false, ovc.ErrSolverCanceled
	case strings.Contains(reason, "(resource limits reached)"):
		return false, ovc.ErrSolverResourceLimit
	case strings.Contains(reason, "unknown"):
		return false, ovc.ErrSolverUnknown
	default:
		return false, fmt.Errorf("z3: %s", reason)
	}
}

// String returns the Z3 rendering of expr in SMT-LIB 2 syntax.
func (p *Prover) String(expr ovc.Expr) (string, error) {
	ast, err := p.ctx.toAST(expr)
	if err != nil {
		return "", err
	}
	return p.ctx.astToString(ast), nil
}

// Context represents a Z3 context object that is used for constructing expressions.
type Context struct {
	raw C.Z3_context
}

// NewContext returns a new instance of Context.
func NewContext() *Context {
	config := C.Z3_mk_config()
	defer C.Z3_del_config(config)

	raw := C.Z3_mk_context(config)
	C.Z3_set_error_handler(raw, nil)
	C.Z3_set_ast_print_mode(raw, C.Z3_PRINT_SMTLIB2_COMPLIANT)
	return &Context{raw: raw}
}

// Close deletes the underlying Z3 context.
func (ctx *Context) Close() error {
	C.Z3_del_context(ctx.raw)
	return nil
}

// err returns the error for the last API call. Returns nil if last call was successful.
func (ctx *Context) err(op string) error {
	if code := C.Z3_get_error_code(ctx.raw); code != C.Z3_OK {
		return &Error{Code: int(code), Op: op, Message: C.GoString(C.Z3_get_error_msg(ctx.raw, code))}
	}
	return nil
}

func (ctx *Context) setTimeout(solver C.Z3_solver, d time.Duration) error {
	params := C.Z3_mk_params(ctx.raw)
	if err := ctx.err("Z3_mk_params"); err != nil {
		return err
	}
	C.Z3_params_inc_ref(ctx.raw, params)
	defer C.Z3_params_dec_ref(ctx.raw, params)

	cname := C.CString("timeout")
	defer C.free(unsafe.Pointer(cname))
	C.Z3_params_set_uint(ctx.raw, params, C.Z3_mk_string_symbol(ctx.raw, cname), C.uint(d.Milliseconds()))
	if err := ctx.err("Z3_params_set_uint"); err != nil {
		return err
	}

	C.Z3_solver_set_params(ctx.raw, solver, params)
	return ctx.err("Z3_solver_set_params")
}

// toAST returns a new instance of Z3_ast from an ovc expression.
func (ctx *Context) toAST(expr ovc.Expr) (C.Z3_ast, error) {
	switch expr := expr.(type) {
	case *ovc.BoolExpr:
		if expr.Value {
			return ctx.makeTrue()
		}
		return ctx.makeFalse()
	case *ovc.ConstantExpr:
		return ctx.makeUint64(expr.Width, expr.Value)
	case *ovc.VarExpr:
		return ctx.toVarAST(expr)
	case *ovc.NotExpr:
		return ctx.toNotAST(expr)
	case *ovc.BinaryExpr:
		return ctx.toBinaryAST(expr)
	default:
		return nil, fmt.Errorf("z3.Context.toAST: invalid expression type: %T", expr)
	}
}

func (ctx *Context) toVarAST(expr *ovc.VarExpr) (C.Z3_ast, error) {
	if !expr.Kind.Valid() {
		return nil, &ovc.UnsupportedTypeError{Type: expr.Kind.String()}
	}
	t, err := ctx.makeBVSort(expr.Kind.Width())
	if err != nil {
		return nil, err
	}

	cname := C.CString(expr.Name)
	defer C.free(unsafe.Pointer(cname))
	nameSymbol := C.Z3_mk_string_symbol(ctx.raw, cname)

	return C.Z3_mk_const(ctx.raw, nameSymbol, t), ctx.err("Z3_mk_const")
}

func (ctx *Context) toNotAST(expr *ovc.NotExpr) (C.Z3_ast, error) {
	src, err := ctx.toAST(expr.Expr)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_not(ctx.raw, src), ctx.err("Z3_mk_not")
}

func (ctx *Context) toBinaryAST(expr *ovc.BinaryExpr) (C.Z3_ast, error) {
	lhs, err := ctx.toAST(expr.LHS)
	if err != nil {
		return nil, err
	}
	rhs, err := ctx.toAST(expr.RHS)
	if err != nil {
		return nil, err
	}

	signed := ovc.ExprSigned(expr.LHS)
	switch expr.Op {
	case ovc.AND:
		args := [2]C.Z3_ast{lhs, rhs}
		return C.Z3_mk_and(ctx.raw, 2, &args[0]), ctx.err("Z3_mk_and")
	case ovc.OR:
		args := [2]C.Z3_ast{lhs, rhs}
		return C.Z3_mk_or(ctx.raw, 2, &args[0]), ctx.err("Z3_mk_or")
	case ovc.IMPLIES:
		return C.Z3_mk_implies(ctx.raw, lhs, rhs), ctx.err("Z3_mk_implies")
	case ovc.EQ:
		if ovc.ExprWidth(expr.LHS) == ovc.WidthBool {
			return C.Z3_mk_iff(ctx.raw, lhs, rhs), ctx.err("Z3_mk_iff")
		}
		return C.Z3_mk_eq(ctx.raw, lhs, rhs), ctx.err("Z3_mk_eq")
	case ovc.NE:
		args := [2]C.Z3_ast{lhs, rhs}
		return C.Z3_mk_distinct(ctx.raw, 2, &args[0]), ctx.err("Z3_mk_distinct")
	case ovc.LT:
		if signed {
			return C.Z3_mk_bvslt(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvslt")
		}
		return C.Z3_mk_bvult(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvult")
	case ovc.LE:
		if signed {
			return C.Z3_mk_bvsle(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvsle")
		}
		return C.Z3_mk_bvule(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvule")
	case ovc.GT:
		if signed {
			return C.Z3_mk_bvsgt(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvsgt")
		}
		return C.Z3_mk_bvugt(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvugt")
	case ovc.GE:
		if signed {
			return C.Z3_mk_bvsge(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvsge")
		}
		return C.Z3_mk_bvuge(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvuge")
	case ovc.ADD:
		return C.Z3_mk_bvadd(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvadd")
	case ovc.SUB:
		return C.Z3_mk_bvsub(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvsub")
	case ovc.SMULNOOVFL:
		return C.Z3_mk_bvmul_no_overflow(ctx.raw, lhs, rhs, C.bool(true)), ctx.err("Z3_mk_bvmul_no_overflow")
	case ovc.SMULNOUDFL:
		return C.Z3_mk_bvmul_no_underflow(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvmul_no_underflow")
	case ovc.UMULNOOVFL:
		return C.Z3_mk_bvmul_no_overflow(ctx.raw, lhs, rhs, C.bool(false)), ctx.err("Z3_mk_bvmul_no_overflow")
	default:
		return nil, fmt.Errorf("z3.Context.toBinaryAST: unexpected operation: %s", expr.Op)
	}
}

func (ctx *Context) makeTrue() (C.Z3_ast, error) {
	return C.Z3_mk_true(ctx.raw), ctx.err("Z3_mk_true")
}

func (ctx *Context) makeFalse() (C.Z3_ast, error) {
	return C.Z3_mk_false(ctx.raw), ctx.err("Z3_mk_false")
}

func (ctx *Context) makeBVSort(width uint) (C.Z3_sort, error) {
	return C.Z3_mk_bv_sort(ctx.raw, C.uint(width)), ctx.err("Z3_mk_bv_sort")
}

func (ctx *Context) makeUint64(width uint, value uint64) (C.Z3_ast, error) {
	t, err := ctx.makeBVSort(width)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_unsigned_int64(ctx.raw, C.uint64_t(value), t), ctx.err("Z3_mk_unsigned_int64")
}

func (ctx *Context) astToString(ast C.Z3_ast) string {
	return C.GoString(C.Z3_ast_to_string(ctx.raw, ast))
}

// Error represents an error from the Z3 API.
type Error struct {
	Code    int
	Op      string
	Message string
}

// Error returns the error as a string.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s (%d)", e.Op, e.Message, e.Code)
}

// Stats holds cumulative prover statistics.
type Stats struct {
	ProveN    int
	ProveTime time.Duration
}
