package ovc

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Check describes a single arithmetic instruction to guard.
type Check struct {
	Kind Kind
	Op   Operator
	LHS  Expr
	RHS  Expr
}

// SynthesizeAll computes the safety condition of every check concurrently and
// conjoins them onto pre in the order given. The result is identical to
// folding OverflowCheck over checks sequentially.
//
// The first failure cancels the remaining work and is returned; no partial
// formula is returned with it.
func SynthesizeAll(ctx context.Context, pre Expr, checks []Check) (Expr, error) {
	conds := make([]Expr, len(checks))

	g, ctx := errgroup.WithContext(ctx)
	for i := range checks {
		i, c := i, checks[i]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			cond, err := SafetyCondition(c.Kind, c.Op, c.LHS, c.RHS)
			if err != nil {
				return fmt.Errorf("check %d: %w", i, err)
			}
			conds[i] = cond
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, cond := range conds {
		pre = NewBinaryExpr(AND, pre, cond)
	}
	return pre, nil
}
