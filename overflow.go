package ovc

// OverflowCheck conjoins the safety condition of "lhs op rhs" onto the
// precondition pre. kind is the declared type of the operation's destination.
//
// Every failure is fatal to the enclosing verification run: no formula is
// returned with an error, and there is no "assume safe" fallback.
func OverflowCheck(pre Expr, kind Kind, op Operator, lhs, rhs Expr) (Expr, error) {
	cond, err := SafetyCondition(kind, op, lhs, rhs)
	if err != nil {
		return nil, err
	}
	return NewBinaryExpr(AND, pre, cond), nil
}

// SafetyCondition returns a formula that is true exactly when "lhs op rhs"
// does not overflow or underflow the fixed-width kind.
//
// Both operands must be bit-vectors of kind's width and signedness, since
// the comparisons in the formula take their signedness from their operands.
//
// The result is a tree: operands appearing in several branches are copied,
// and no node of lhs or rhs is shared with the result.
func SafetyCondition(kind Kind, op Operator, lhs, rhs Expr) (Expr, error) {
	if !kind.Valid() {
		return nil, &UnsupportedTypeError{Type: kind.String()}
	}
	for _, operand := range []Expr{lhs, rhs} {
		if !operandOf(kind, operand) {
			return nil, &OperandError{Kind: kind, Operand: operand}
		}
	}

	var cond Expr
	var err error
	if kind.Signed() {
		cond, err = signedOverflow(kind, op, lhs, rhs)
	} else {
		cond, err = unsignedOverflow(kind, op, lhs, rhs)
	}
	if err != nil {
		return nil, err
	}
	return CloneExpr(cond), nil
}

// operandOf returns true if expr is a bit-vector of kind.
func operandOf(kind Kind, expr Expr) bool {
	switch expr := expr.(type) {
	case *ConstantExpr, *VarExpr:
	case *BinaryExpr:
		if !expr.Op.IsArithmetic() {
			return false
		}
	default:
		return false
	}
	return ExprWidth(expr) == kind.Width() && ExprSigned(expr) == kind.Signed()
}

func signedOverflow(kind Kind, op Operator, lhs, rhs Expr) (Expr, error) {
	w := kind.Width()
	switch op {
	case OpAdd:
		return signedAdd(w, lhs, rhs), nil
	case OpSub:
		return signedSub(w, lhs, rhs), nil
	case OpMul:
		return signedMul(lhs, rhs), nil
	case OpDiv, OpRem:
		return signedDiv(w, lhs, rhs), nil
	default:
		return nil, &UnsupportedOperatorError{Kind: kind, Op: op}
	}
}

func unsignedOverflow(kind Kind, op Operator, lhs, rhs Expr) (Expr, error) {
	switch op {
	case OpAdd:
		return unsignedAdd(lhs, rhs), nil
	case OpSub:
		return unsignedSub(lhs, rhs), nil
	case OpMul:
		return unsignedMul(lhs, rhs), nil
	case OpDiv, OpRem:
		return nil, &InvariantError{Kind: kind, Op: op, Reason: "unsigned division cannot overflow"}
	default:
		return nil, &UnsupportedOperatorError{Kind: kind, Op: op}
	}
}

// signedAdd guards l + r for signed operands of width w.
//
//	if l >= 0 && r >= 0: safe iff l + r >= 0
//	elif l < 0 && r < 0: safe iff l + r < 0
//	else:                safe
func signedAdd(w uint, l, r Expr) Expr {
	return and(
		implies(
			and(ge(l, zero(w)), ge(r, zero(w))),
			ge(add(l, r), zero(w)),
		),
		implies(
			or(lt(l, zero(w)), lt(r, zero(w))),
			implies(
				and(lt(l, zero(w)), lt(r, zero(w))),
				lt(add(l, r), zero(w)),
			),
		),
	)
}

// signedSub guards l - r for signed operands of width w.
//
//	if l >= 0 && r < 0:  safe iff l - r >= 0
//	elif l < 0 && r >= 0: safe iff l - r < 0
//	else:                 safe
func signedSub(w uint, l, r Expr) Expr {
	return and(
		implies(
			and(ge(l, zero(w)), lt(r, zero(w))),
			ge(sub(l, r), zero(w)),
		),
		implies(
			or(lt(l, zero(w)), ge(r, zero(w))),
			implies(
				and(lt(l, zero(w)), ge(r, zero(w))),
				lt(sub(l, r), zero(w)),
			),
		),
	)
}

// signedMul defers to the solver's native signed multiplication checks.
func signedMul(l, r Expr) Expr {
	return and(
		binary(SMULNOOVFL, l, r),
		binary(SMULNOUDFL, l, r),
	)
}

// signedDiv excludes the only trapping quotient, MIN(w) / -1.
// The remainder operator shares this condition.
func signedDiv(w uint, l, r Expr) Expr {
	return not(and(
		eq(l, NewConstantExpr(w, MinInt(w))),
		eq(r, NewConstantExpr(w, -1)),
	))
}

// unsignedAdd: the wrapped sum is smaller than r iff the addition overflowed.
func unsignedAdd(l, r Expr) Expr {
	return ge(add(l, r), r)
}

// unsignedSub: the wrapped difference exceeds l iff the subtraction underflowed.
func unsignedSub(l, r Expr) Expr {
	return le(sub(l, r), l)
}

func unsignedMul(l, r Expr) Expr {
	return binary(UMULNOOVFL, l, r)
}

// Formula combinators. Operands may be shared between branches here;
// SafetyCondition unshares the finished formula.

func binary(op BinaryOp, lhs, rhs Expr) Expr {
	return NewBinaryExpr(op, lhs, rhs)
}

func and(lhs, rhs Expr) Expr     { return binary(AND, lhs, rhs) }
func or(lhs, rhs Expr) Expr      { return binary(OR, lhs, rhs) }
func implies(lhs, rhs Expr) Expr { return binary(IMPLIES, lhs, rhs) }
func not(expr Expr) Expr         { return NewNotExpr(expr) }
func eq(lhs, rhs Expr) Expr      { return binary(EQ, lhs, rhs) }
func lt(lhs, rhs Expr) Expr      { return binary(LT, lhs, rhs) }
func le(lhs, rhs Expr) Expr      { return binary(LE, lhs, rhs) }
func ge(lhs, rhs Expr) Expr      { return binary(GE, lhs, rhs) }
func add(lhs, rhs Expr) Expr     { return binary(ADD, lhs, rhs) }
func sub(lhs, rhs Expr) Expr     { return binary(SUB, lhs, rhs) }

func zero(w uint) Expr { return NewConstantExpr(w, 0) }
