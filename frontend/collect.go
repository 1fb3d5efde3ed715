package frontend

import (
	"context"
	"fmt"
	"go/token"
	"go/types"
	"log"
	"sort"

	"github.com/benbjohnson/ovc"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// Obligation is a single arithmetic instruction that must not overflow.
type Obligation struct {
	Func string
	Pos  token.Position
	Kind ovc.Kind
	Op   ovc.Operator
	LHS  ovc.Expr
	RHS  ovc.Expr

	// Facts known to hold on every path reaching the instruction.
	Pre ovc.Expr

	// Safety condition of the instruction alone.
	Formula ovc.Expr
}

// Goal returns the formula that must be valid for the instruction to be safe.
func (o *Obligation) Goal() ovc.Expr {
	return ovc.NewBinaryExpr(ovc.IMPLIES, o.Pre, o.Formula)
}

// String returns a one-line description of the obligation.
func (o *Obligation) String() string {
	return fmt.Sprintf("%s: %s %s %s %s", o.Pos, o.Kind, o.LHS, o.Op.Symbol(), o.RHS)
}

// Report holds the obligations collected from a single function.
type Report struct {
	Func        string
	Obligations []*Obligation

	// Conjunction of every obligation's safety condition.
	VC ovc.Expr
}

// Collect returns the overflow obligations of every integer arithmetic
// instruction in fn. Comparisons and bitwise and/or/xor never overflow and
// are skipped, as are unsigned quotients and remainders.
//
// Collection stops at the first instruction that cannot be checked.
func Collect(ctx context.Context, fn *ssa.Function, sizes types.Sizes) (*Report, error) {
	t := &Translator{Sizes: sizes}
	report := &Report{Func: fn.String()}

	for _, b := range fn.Blocks {
		var pre ovc.Expr
		for _, instr := range b.Instrs {
			binop, ok := instr.(*ssa.BinOp)
			if !ok || !isInteger(binop.Type()) {
				continue
			}

			op, ok := OperatorOf(binop.Op)
			if !ok || !checked(op) {
				continue
			}
			pos := fn.Prog.Fset.Position(binop.Pos())

			kind, err := KindOf(binop.Type(), sizes)
			if err != nil {
				return nil, fmt.Errorf("%s: %s: %w", fn, pos, err)
			} else if !kind.Signed() && (op == ovc.OpDiv || op == ovc.OpRem) {
				continue
			}

			lhs, err := t.Operand(binop.X)
			if err != nil {
				return nil, fmt.Errorf("%s: %s: %w", fn, pos, err)
			}
			rhs, err := t.Operand(binop.Y)
			if err != nil {
				return nil, fmt.Errorf("%s: %s: %w", fn, pos, err)
			}

			formula, err := ovc.SafetyCondition(kind, op, lhs, rhs)
			if err != nil {
				return nil, fmt.Errorf("%s: %s: %w", fn, pos, err)
			}
			log.Printf("[binop] %s: %s %s %s", pos, kind, op, binop.Name())

			if pre == nil {
				pre = t.PathFacts(b)
			}
			report.Obligations = append(report.Obligations, &Obligation{
				Func:    report.Func,
				Pos:     pos,
				Kind:    kind,
				Op:      op,
				LHS:     lhs,
				RHS:     rhs,
				Pre:     pre,
				Formula: formula,
			})
		}
	}

	// Thread the checks backward so the first instruction's condition is
	// conjoined last.
	checks := make([]ovc.Check, 0, len(report.Obligations))
	for i := len(report.Obligations) - 1; i >= 0; i-- {
		o := report.Obligations[i]
		checks = append(checks, ovc.Check{Kind: o.Kind, Op: o.Op, LHS: o.LHS, RHS: o.RHS})
	}
	vc, err := ovc.SynthesizeAll(ctx, ovc.NewBoolExpr(true), checks)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	report.VC = vc

	return report, nil
}

// checked returns true if op is an arithmetic operator that may overflow.
func checked(op ovc.Operator) bool {
	switch op {
	case ovc.OpAdd, ovc.OpSub, ovc.OpMul, ovc.OpDiv, ovc.OpRem, ovc.OpShl, ovc.OpShr:
		return true
	default:
		return false
	}
}

// PathFacts returns the conjunction of branch conditions that hold whenever
// b executes. A condition is used only when it dominates b through an edge
// that is the sole entry to the dominated block.
func (t *Translator) PathFacts(b *ssa.BasicBlock) ovc.Expr {
	var facts []ovc.Expr
	for c := b; c.Idom() != nil; c = c.Idom() {
		d := c.Idom()
		if len(c.Preds) != 1 || c.Preds[0] != d || len(d.Instrs) == 0 {
			continue
		}
		ifInstr, ok := d.Instrs[len(d.Instrs)-1].(*ssa.If)
		if !ok || d.Succs[0] == d.Succs[1] {
			continue
		}

		cond, ok := t.Condition(ifInstr.Cond)
		if !ok {
			continue
		}
		if c == d.Succs[1] {
			cond = ovc.NewNotExpr(cond)
		}
		facts = append(facts, cond)
	}

	// Outermost branch first.
	var pre ovc.Expr = ovc.NewBoolExpr(true)
	for i := len(facts) - 1; i >= 0; i-- {
		pre = ovc.NewBinaryExpr(ovc.AND, pre, facts[i])
	}
	return pre
}

// Functions returns the source functions of pkgs, including anonymous
// functions, sorted by position.
func Functions(prog *ssa.Program, pkgs []*ssa.Package) []*ssa.Function {
	m := make(map[*ssa.Package]bool, len(pkgs))
	for _, pkg := range pkgs {
		m[pkg] = true
	}

	var fns []*ssa.Function
	for fn := range ssautil.AllFunctions(prog) {
		if fn.Synthetic != "" || fn.Blocks == nil || !m[fn.Package()] {
			continue
		}
		fns = append(fns, fn)
	}
	sort.Slice(fns, func(i, j int) bool {
		if fns[i].Pos() != fns[j].Pos() {
			return fns[i].Pos() < fns[j].Pos()
		}
		return fns[i].String() < fns[j].String()
	})
	return fns
}
