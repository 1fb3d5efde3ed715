package ovc_test

import (
	"math"
	"testing"

	"github.com/benbjohnson/ovc"
	"github.com/google/go-cmp/cmp"
)

func TestAssignment(t *testing.T) {
	a := ovc.NewAssignment().Set("x", 1)
	b := a.SetInt("y", -1)

	if a.Len() != 1 {
		t.Fatalf("unexpected len: %d", a.Len())
	} else if _, ok := a.Get("y"); ok {
		t.Fatal("expected original assignment to be unchanged")
	} else if v, ok := b.Get("y"); !ok || v != math.MaxUint64 {
		t.Fatalf("unexpected value: %d", v)
	} else if s := b.String(); s != "{x=1 y=18446744073709551615}" {
		t.Fatalf("unexpected string: %s", s)
	}
}

func TestExprEvaluator_Evaluate(t *testing.T) {
	assignment := ovc.NewAssignment().
		SetInt("a", -1).
		Set("b", 200).
		Set("c", 3)
	ee := ovc.NewExprEvaluator(assignment)

	for _, tt := range []struct {
		name string
		expr ovc.Expr
		exp  ovc.Value
	}{
		{
			name: "SignedVarMasked",
			expr: ovc.NewVarExpr("a", ovc.Int8),
			exp:  ovc.Value{Bits: 0xFF, Width: 8, Signed: true},
		},
		{
			name: "AddWraps",
			expr: ovc.NewBinaryExpr(ovc.ADD, ovc.NewVarExpr("b", ovc.Uint8), ovc.NewUnsignedConstantExpr(8, 100)),
			exp:  ovc.Value{Bits: 44, Width: 8},
		},
		{
			name: "SubWraps",
			expr: ovc.NewBinaryExpr(ovc.SUB, ovc.NewVarExpr("c", ovc.Uint16), ovc.NewVarExpr("b", ovc.Uint16)),
			exp:  ovc.Value{Bits: 65339, Width: 16},
		},
		{
			name: "SignedLess",
			expr: ovc.NewBinaryExpr(ovc.LT, ovc.NewVarExpr("a", ovc.Int8), ovc.NewConstantExpr(8, 0)),
			exp:  ovc.Value{Bits: 1, Width: ovc.WidthBool},
		},
		{
			name: "UnsignedLess",
			expr: ovc.NewBinaryExpr(ovc.LT, ovc.NewVarExpr("a", ovc.Uint8), ovc.NewVarExpr("b", ovc.Uint8)),
			exp:  ovc.Value{Width: ovc.WidthBool},
		},
		{
			name: "NotEqual",
			expr: ovc.NewBinaryExpr(ovc.NE, ovc.NewVarExpr("b", ovc.Uint32), ovc.NewVarExpr("c", ovc.Uint32)),
			exp:  ovc.Value{Bits: 1, Width: ovc.WidthBool},
		},
		{
			name: "ImpliesFalseAntecedent",
			expr: ovc.NewBinaryExpr(ovc.IMPLIES, ovc.NewBoolExpr(false), ovc.NewBoolExpr(false)),
			exp:  ovc.Value{Bits: 1, Width: ovc.WidthBool},
		},
		{
			name: "Or",
			expr: ovc.NewBinaryExpr(ovc.OR, ovc.NewBoolExpr(false), ovc.NewNotExpr(ovc.NewBoolExpr(false))),
			exp:  ovc.Value{Bits: 1, Width: ovc.WidthBool},
		},
		{
			name: "SignedMulNoOverflow64",
			expr: ovc.NewBinaryExpr(ovc.SMULNOOVFL, ovc.NewConstantExpr(64, math.MinInt64), ovc.NewConstantExpr(64, -1)),
			exp:  ovc.Value{Width: ovc.WidthBool},
		},
		{
			name: "SignedMulNoUnderflow64",
			expr: ovc.NewBinaryExpr(ovc.SMULNOUDFL, ovc.NewConstantExpr(64, math.MinInt64), ovc.NewConstantExpr(64, 1)),
			exp:  ovc.Value{Bits: 1, Width: ovc.WidthBool},
		},
		{
			name: "UnsignedMulNoOverflow64",
			expr: ovc.NewBinaryExpr(ovc.UMULNOOVFL, ovc.NewUnsignedConstantExpr(64, 1<<32), ovc.NewUnsignedConstantExpr(64, 1<<32)),
			exp:  ovc.Value{Width: ovc.WidthBool},
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ee.Evaluate(tt.expr)
			if err != nil {
				t.Fatal(err)
			} else if diff := cmp.Diff(tt.exp, got); diff != "" {
				t.Fatal(diff)
			}
		})
	}

	t.Run("ErrUnboundVariable", func(t *testing.T) {
		if _, err := ee.Evaluate(ovc.NewVarExpr("z", ovc.Int8)); err == nil || err.Error() != `ovc: variable not bound: z` {
			t.Fatalf("unexpected error: %v", err)
		}
	})
	t.Run("ErrWidthMismatch", func(t *testing.T) {
		if _, err := ee.Evaluate(ovc.NewBinaryExpr(ovc.ADD, ovc.NewVarExpr("b", ovc.Int8), ovc.NewVarExpr("b", ovc.Int16))); err == nil {
			t.Fatal("expected error")
		}
	})
	t.Run("ErrNotBoolean", func(t *testing.T) {
		if _, err := ee.EvaluateBool(ovc.NewVarExpr("b", ovc.Int8)); err == nil {
			t.Fatal("expected error")
		}
	})
}
