package ovc

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/benbjohnson/immutable"
)

// Assignment is a persistent mapping of variable names to raw bit-vector
// values. Set returns a new assignment and leaves the receiver unchanged.
type Assignment struct {
	m *immutable.SortedMap
}

// NewAssignment returns an empty assignment.
func NewAssignment() *Assignment {
	return &Assignment{m: immutable.NewSortedMap(&stringComparer{})}
}

// Set returns a new assignment with name bound to the bits of value.
func (a *Assignment) Set(name string, value uint64) *Assignment {
	return &Assignment{m: a.m.Set(name, value)}
}

// SetInt returns a new assignment with name bound to a signed value.
func (a *Assignment) SetInt(name string, value int64) *Assignment {
	return a.Set(name, uint64(value))
}

// Get returns the raw bits bound to name.
func (a *Assignment) Get(name string) (uint64, bool) {
	v, ok := a.m.Get(name)
	if !ok {
		return 0, false
	}
	return v.(uint64), true
}

// Len returns the number of bound variables.
func (a *Assignment) Len() int { return a.m.Len() }

// String returns the bindings in name order.
func (a *Assignment) String() string {
	var parts []string
	for itr := a.m.Iterator(); !itr.Done(); {
		k, v := itr.Next()
		parts = append(parts, fmt.Sprintf("%s=%d", k, v))
	}
	return "{" + strings.Join(parts, " ") + "}"
}

// stringComparer compares two strings. Implements immutable.Comparer.
type stringComparer struct{}

// Compare returns -1 if a is less than b, returns 1 if a is greater than b, and
// returns 0 if a is equal to b. Panic if a or b is not a string.
func (c *stringComparer) Compare(a, b interface{}) int {
	return strings.Compare(a.(string), b.(string))
}

// Value is the result of evaluating an expression. Boolean results have a
// width of WidthBool and a value of 0 or 1.
type Value struct {
	Bits   uint64
	Width  uint
	Signed bool
}

// Bool returns true if v is a true boolean.
func (v Value) Bool() bool {
	return v.Width == WidthBool && v.Bits != 0
}

// Int64 returns the sign-extended value.
func (v Value) Int64() int64 {
	return signExtend(v.Bits, v.Width)
}

func boolValue(b bool) Value {
	if b {
		return Value{Bits: 1, Width: WidthBool}
	}
	return Value{Width: WidthBool}
}

// ExprEvaluator evaluates expressions under fixed-width two's-complement
// semantics using known variable values.
type ExprEvaluator struct {
	assignment *Assignment
}

// NewExprEvaluator returns a new instance of ExprEvaluator.
func NewExprEvaluator(assignment *Assignment) *ExprEvaluator {
	if assignment == nil {
		assignment = NewAssignment()
	}
	return &ExprEvaluator{assignment: assignment}
}

// EvaluateBool evaluates a boolean-valued expression.
func (ee *ExprEvaluator) EvaluateBool(expr Expr) (bool, error) {
	v, err := ee.Evaluate(expr)
	if err != nil {
		return false, err
	} else if v.Width != WidthBool {
		return false, fmt.Errorf("ovc: expected boolean, got %d-bit value: %s", v.Width, expr)
	}
	return v.Bool(), nil
}

// Evaluate evaluates expr to a value.
// Returns an error if an unbound variable is encountered.
func (ee *ExprEvaluator) Evaluate(expr Expr) (Value, error) {
	switch expr := expr.(type) {
	case *BoolExpr:
		return boolValue(expr.Value), nil
	case *ConstantExpr:
		return Value{Bits: expr.Value, Width: expr.Width, Signed: expr.Signed}, nil
	case *VarExpr:
		bits, ok := ee.assignment.Get(expr.Name)
		if !ok {
			return Value{}, fmt.Errorf("ovc: variable not bound: %s", expr.Name)
		}
		w := expr.Kind.Width()
		return Value{Bits: bits & bitmask(w), Width: w, Signed: expr.Kind.Signed()}, nil
	case *NotExpr:
		v, err := ee.EvaluateBool(expr.Expr)
		if err != nil {
			return Value{}, err
		}
		return boolValue(!v), nil
	case *BinaryExpr:
		return ee.evaluateBinary(expr)
	default:
		return Value{}, fmt.Errorf("ovc: invalid expression type: %T", expr)
	}
}

func (ee *ExprEvaluator) evaluateBinary(expr *BinaryExpr) (Value, error) {
	if expr.Op.IsLogical() {
		return ee.evaluateLogical(expr)
	}

	lhs, err := ee.Evaluate(expr.LHS)
	if err != nil {
		return Value{}, err
	}
	rhs, err := ee.Evaluate(expr.RHS)
	if err != nil {
		return Value{}, err
	} else if lhs.Width != rhs.Width {
		return Value{}, fmt.Errorf("ovc: width mismatch: %s: %d != %d", expr.Op, lhs.Width, rhs.Width)
	}
	w := lhs.Width

	switch expr.Op {
	case ADD:
		return Value{Bits: (lhs.Bits + rhs.Bits) & bitmask(w), Width: w, Signed: lhs.Signed}, nil
	case SUB:
		return Value{Bits: (lhs.Bits - rhs.Bits) & bitmask(w), Width: w, Signed: lhs.Signed}, nil
	case EQ:
		return boolValue(lhs.Bits == rhs.Bits), nil
	case NE:
		return boolValue(lhs.Bits != rhs.Bits), nil
	case LT, LE, GT, GE:
		return boolValue(compareValues(expr.Op, lhs, rhs)), nil
	case SMULNOOVFL:
		return boolValue(signedProduct(lhs, rhs).Cmp(big.NewInt(MaxInt(w))) <= 0), nil
	case SMULNOUDFL:
		return boolValue(signedProduct(lhs, rhs).Cmp(big.NewInt(MinInt(w))) >= 0), nil
	case UMULNOOVFL:
		p := new(big.Int).Mul(new(big.Int).SetUint64(lhs.Bits), new(big.Int).SetUint64(rhs.Bits))
		return boolValue(p.Cmp(new(big.Int).SetUint64(bitmask(w))) <= 0), nil
	default:
		return Value{}, fmt.Errorf("ovc: unexpected operation: %s", expr.Op)
	}
}

func (ee *ExprEvaluator) evaluateLogical(expr *BinaryExpr) (Value, error) {
	lhs, err := ee.EvaluateBool(expr.LHS)
	if err != nil {
		return Value{}, err
	}
	rhs, err := ee.EvaluateBool(expr.RHS)
	if err != nil {
		return Value{}, err
	}

	switch expr.Op {
	case AND:
		return boolValue(lhs && rhs), nil
	case OR:
		return boolValue(lhs || rhs), nil
	case IMPLIES:
		return boolValue(!lhs || rhs), nil
	default:
		return Value{}, fmt.Errorf("ovc: unexpected logical operation: %s", expr.Op)
	}
}

// compareValues orders lhs and rhs as signed values if lhs is signed.
func compareValues(op BinaryOp, lhs, rhs Value) bool {
	var cmp int
	if lhs.Signed {
		if a, b := lhs.Int64(), rhs.Int64(); a < b {
			cmp = -1
		} else if a > b {
			cmp = 1
		}
	} else {
		if lhs.Bits < rhs.Bits {
			cmp = -1
		} else if lhs.Bits > rhs.Bits {
			cmp = 1
		}
	}

	switch op {
	case LT:
		return cmp < 0
	case LE:
		return cmp <= 0
	case GT:
		return cmp > 0
	case GE:
		return cmp >= 0
	default:
		panic("unreachable")
	}
}

// signedProduct returns the exact product of two signed values.
func signedProduct(lhs, rhs Value) *big.Int {
	return new(big.Int).Mul(big.NewInt(lhs.Int64()), big.NewInt(rhs.Int64()))
}
