package ovc_test

import (
	"context"
	"errors"
	"testing"

	"github.com/benbjohnson/ovc"
	"github.com/google/go-cmp/cmp"
)

func TestSynthesizeAll(t *testing.T) {
	x, y := ovc.NewVarExpr("x", ovc.Int32), ovc.NewVarExpr("y", ovc.Int32)
	u := ovc.NewVarExpr("u", ovc.Uint64)
	checks := []ovc.Check{
		{Kind: ovc.Int32, Op: ovc.OpAdd, LHS: x, RHS: y},
		{Kind: ovc.Uint64, Op: ovc.OpSub, LHS: u, RHS: u},
		{Kind: ovc.Int32, Op: ovc.OpRem, LHS: y, RHS: x},
		{Kind: ovc.Uint64, Op: ovc.OpMul, LHS: u, RHS: u},
	}

	t.Run("MatchesSequentialFold", func(t *testing.T) {
		var exp ovc.Expr = ovc.NewBoolExpr(true)
		for _, c := range checks {
			var err error
			if exp, err = ovc.OverflowCheck(exp, c.Kind, c.Op, c.LHS, c.RHS); err != nil {
				t.Fatal(err)
			}
		}

		got, err := ovc.SynthesizeAll(context.Background(), ovc.NewBoolExpr(true), checks)
		if err != nil {
			t.Fatal(err)
		} else if diff := cmp.Diff(exp, got); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("Empty", func(t *testing.T) {
		pre := ovc.NewBoolExpr(true)
		if got, err := ovc.SynthesizeAll(context.Background(), pre, nil); err != nil {
			t.Fatal(err)
		} else if got != ovc.Expr(pre) {
			t.Fatalf("unexpected formula: %s", got)
		}
	})

	t.Run("ErrUnsupportedOperator", func(t *testing.T) {
		other := append(append([]ovc.Check(nil), checks...), ovc.Check{Kind: ovc.Int32, Op: ovc.OpShl, LHS: x, RHS: y})
		got, err := ovc.SynthesizeAll(context.Background(), ovc.NewBoolExpr(true), other)
		if !errors.Is(err, ovc.ErrUnsupportedOperator) {
			t.Fatalf("unexpected error: %v", err)
		} else if got != nil {
			t.Fatalf("unexpected formula: %s", got)
		}
	})

	t.Run("ErrCanceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := ovc.SynthesizeAll(ctx, ovc.NewBoolExpr(true), checks); !errors.Is(err, context.Canceled) {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}
