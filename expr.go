package ovc

import (
	"fmt"
	"sort"
)

// Expr represents a node in a safety formula.
type Expr interface {
	fmt.Stringer
	expr()
}

func (*BinaryExpr) expr()   {}
func (*BoolExpr) expr()     {}
func (*ConstantExpr) expr() {}
func (*NotExpr) expr()      {}
func (*VarExpr) expr()      {}

// ExprWidth returns the bit width of the expression.
// Boolean-valued expressions have a width of WidthBool.
func ExprWidth(expr Expr) uint {
	switch expr := expr.(type) {
	case *BoolExpr:
		return WidthBool
	case *ConstantExpr:
		return expr.Width
	case *VarExpr:
		return expr.Kind.Width()
	case *NotExpr:
		return WidthBool
	case *BinaryExpr:
		if expr.Op.IsArithmetic() {
			return ExprWidth(expr.LHS)
		}
		return WidthBool
	default:
		panic("unreachable")
	}
}

// ExprSigned returns true if the expression is a signed bit-vector.
// Comparisons take their signedness from their left operand.
func ExprSigned(expr Expr) bool {
	switch expr := expr.(type) {
	case *ConstantExpr:
		return expr.Signed
	case *VarExpr:
		return expr.Kind.Signed()
	case *BinaryExpr:
		if expr.Op.IsArithmetic() {
			return ExprSigned(expr.LHS)
		}
		return false
	default:
		return false
	}
}

// BinaryOp represents a binary expression operation.
type BinaryOp int

// BinaryExpr operations.
const (
	logical_op_begin = BinaryOp(iota)
	AND
	OR
	IMPLIES
	logical_op_end

	compare_op_begin
	EQ
	NE
	LT
	LE
	GT
	GE
	compare_op_end

	arithmetic_op_begin
	ADD
	SUB
	arithmetic_op_end

	predicate_op_begin
	SMULNOOVFL
	SMULNOUDFL
	UMULNOOVFL
	predicate_op_end
)

var binaryOps = [...]string{
	AND:        "and",
	OR:         "or",
	IMPLIES:    "implies",
	EQ:         "eq",
	NE:         "ne",
	LT:         "lt",
	LE:         "le",
	GT:         "gt",
	GE:         "ge",
	ADD:        "add",
	SUB:        "sub",
	SMULNOOVFL: "smul_noovfl",
	SMULNOUDFL: "smul_noudfl",
	UMULNOOVFL: "umul_noovfl",
}

// String returns the string representation of the operation.
func (op BinaryOp) String() string {
	if op >= 0 && op < BinaryOp(len(binaryOps)) && binaryOps[op] != "" {
		return binaryOps[op]
	}
	return fmt.Sprintf("BinaryOp<%d>", op)
}

// IsLogical returns true if op is a logical connective.
func (op BinaryOp) IsLogical() bool {
	return op > logical_op_begin && op < logical_op_end
}

// IsCompare returns true if op is a comparison operator.
func (op BinaryOp) IsCompare() bool {
	return op > compare_op_begin && op < compare_op_end
}

// IsArithmetic returns true if op is an arithmetic operator.
func (op BinaryOp) IsArithmetic() bool {
	return op > arithmetic_op_begin && op < arithmetic_op_end
}

// IsPredicate returns true if op is an opaque multiplication predicate that
// the solver layer maps to a native bit-vector overflow check.
func (op BinaryOp) IsPredicate() bool {
	return op > predicate_op_begin && op < predicate_op_end
}

// BinaryExpr represents an operation on two expressions.
type BinaryExpr struct {
	Op  BinaryOp
	LHS Expr
	RHS Expr
}

// NewBinaryExpr returns a new instance of BinaryExpr.
// The tree is built as given; no folding is performed so the shape handed to
// the serializer is exactly the shape that was requested.
func NewBinaryExpr(op BinaryOp, lhs, rhs Expr) *BinaryExpr {
	assert(op.IsLogical() || op.IsCompare() || op.IsArithmetic() || op.IsPredicate(), "invalid binary op: %s", op)
	assert(lhs != nil && rhs != nil, "nil operand: op=%s", op)
	return &BinaryExpr{Op: op, LHS: lhs, RHS: rhs}
}

// String returns the string representation of the expression.
func (e *BinaryExpr) String() string {
	op := e.Op.String()
	if e.Op.IsCompare() && e.Op != EQ && e.Op != NE {
		if ExprSigned(e.LHS) {
			op = "s" + op
		} else {
			op = "u" + op
		}
	}
	return fmt.Sprintf("(%s %s %s)", op, e.LHS, e.RHS)
}

// NotExpr represents the logical negation of an expression.
type NotExpr struct {
	Expr Expr
}

// NewNotExpr returns a new instance of NotExpr.
func NewNotExpr(expr Expr) *NotExpr {
	assert(expr != nil, "nil operand: op=not")
	return &NotExpr{Expr: expr}
}

// String returns the string representation of the expression.
func (e *NotExpr) String() string {
	return fmt.Sprintf("(not %s)", e.Expr)
}

// BoolExpr represents a boolean literal.
type BoolExpr struct {
	Value bool
}

// NewBoolExpr returns a new boolean literal.
func NewBoolExpr(value bool) *BoolExpr {
	return &BoolExpr{Value: value}
}

// String returns the string representation of the expression.
func (e *BoolExpr) String() string {
	if e.Value {
		return "true"
	}
	return "false"
}

// ConstantExpr represents a fixed-width bit-vector literal.
// Value holds the raw bits masked to Width.
type ConstantExpr struct {
	Value  uint64
	Width  uint
	Signed bool
}

// NewConstantExpr returns a signed literal of the given width.
func NewConstantExpr(width uint, value int64) *ConstantExpr {
	assert(isStandardWidth(width), "non-standard width: %d", width)
	assert(value >= MinInt(width) && value <= MaxInt(width), "literal %d does not fit in %d bits", value, width)
	return &ConstantExpr{Value: uint64(value) & bitmask(width), Width: width, Signed: true}
}

// NewUnsignedConstantExpr returns an unsigned literal of the given width.
func NewUnsignedConstantExpr(width uint, value uint64) *ConstantExpr {
	assert(isStandardWidth(width), "non-standard width: %d", width)
	assert(value <= bitmask(width), "literal %d does not fit in %d bits", value, width)
	return &ConstantExpr{Value: value, Width: width}
}

// Int64 returns the sign-extended value of the literal.
func (e *ConstantExpr) Int64() int64 {
	return signExtend(e.Value, e.Width)
}

// String returns the string representation of the expression.
func (e *ConstantExpr) String() string {
	if e.Signed {
		return fmt.Sprintf("(const %d %d)", e.Int64(), e.Width)
	}
	return fmt.Sprintf("(uconst %d %d)", e.Value, e.Width)
}

// VarExpr represents an opaque operand standing for a program value.
type VarExpr struct {
	Name string
	Kind Kind
}

// NewVarExpr returns a new instance of VarExpr.
func NewVarExpr(name string, kind Kind) *VarExpr {
	return &VarExpr{Name: name, Kind: kind}
}

// String returns the string representation of the expression.
func (e *VarExpr) String() string {
	return e.Name
}

// CloneExpr returns a deep copy of expr. No node of the result is shared
// with the original.
func CloneExpr(expr Expr) Expr {
	switch expr := expr.(type) {
	case *BinaryExpr:
		return &BinaryExpr{Op: expr.Op, LHS: CloneExpr(expr.LHS), RHS: CloneExpr(expr.RHS)}
	case *NotExpr:
		return &NotExpr{Expr: CloneExpr(expr.Expr)}
	case *BoolExpr:
		other := *expr
		return &other
	case *ConstantExpr:
		other := *expr
		return &other
	case *VarExpr:
		other := *expr
		return &other
	default:
		panic("unreachable")
	}
}

// Inspect traverses expr in depth-first order. If fn returns false, the
// children of the node are skipped.
func Inspect(expr Expr, fn func(Expr) bool) {
	if !fn(expr) {
		return
	}

	switch expr := expr.(type) {
	case *BinaryExpr:
		Inspect(expr.LHS, fn)
		Inspect(expr.RHS, fn)
	case *NotExpr:
		Inspect(expr.Expr, fn)
	}
}

// FindVars returns the distinct variables in the expression trees, sorted
// by name.
func FindVars(exprs ...Expr) []*VarExpr {
	m := make(map[string]*VarExpr)
	for _, expr := range exprs {
		Inspect(expr, func(expr Expr) bool {
			if v, ok := expr.(*VarExpr); ok {
				if _, ok := m[v.Name]; !ok {
					m[v.Name] = v
				}
			}
			return true
		})
	}

	a := make([]*VarExpr, 0, len(m))
	for _, v := range m {
		a = append(a, v)
	}
	sort.Slice(a, func(i, j int) bool { return a[i].Name < a[j].Name })
	return a
}

// CompareExpr returns an integer comparing two expressions structurally.
// The result will be 0 if a==b, -1 if a < b, and +1 if a > b.
func CompareExpr(a, b Expr) int {
	if a == nil && b != nil {
		return -1
	} else if a != nil && b == nil {
		return 1
	} else if a == nil && b == nil {
		return 0
	}

	if ak, bk := exprKind(a), exprKind(b); ak < bk {
		return -1
	} else if ak > bk {
		return 1
	}

	switch a := a.(type) {
	case *BoolExpr:
		return compareBoolExpr(a, b.(*BoolExpr))
	case *ConstantExpr:
		return compareConstantExpr(a, b.(*ConstantExpr))
	case *VarExpr:
		return compareVarExpr(a, b.(*VarExpr))
	case *NotExpr:
		return CompareExpr(a.Expr, b.(*NotExpr).Expr)
	case *BinaryExpr:
		return compareBinaryExpr(a, b.(*BinaryExpr))
	default:
		panic("unreachable")
	}
}

func compareBoolExpr(a, b *BoolExpr) int {
	if !a.Value && b.Value {
		return -1
	} else if a.Value && !b.Value {
		return 1
	}
	return 0
}

func compareConstantExpr(a, b *ConstantExpr) int {
	if a.Width < b.Width {
		return -1
	} else if a.Width > b.Width {
		return 1
	}

	if !a.Signed && b.Signed {
		return -1
	} else if a.Signed && !b.Signed {
		return 1
	}

	if a.Value < b.Value {
		return -1
	} else if a.Value > b.Value {
		return 1
	}
	return 0
}

func compareVarExpr(a, b *VarExpr) int {
	if a.Name < b.Name {
		return -1
	} else if a.Name > b.Name {
		return 1
	}

	if a.Kind < b.Kind {
		return -1
	} else if a.Kind > b.Kind {
		return 1
	}
	return 0
}

func compareBinaryExpr(a, b *BinaryExpr) int {
	if a.Op < b.Op {
		return -1
	} else if a.Op > b.Op {
		return 1
	}
	if cmp := CompareExpr(a.LHS, b.LHS); cmp != 0 {
		return cmp
	}
	return CompareExpr(a.RHS, b.RHS)
}

// exprKind returns a numeric value for the type of expression.
// Only used internally for equality checks and sorting.
func exprKind(expr Expr) int {
	switch expr.(type) {
	case *BoolExpr:
		return 1
	case *ConstantExpr:
		return 2
	case *VarExpr:
		return 3
	case *NotExpr:
		return 4
	case *BinaryExpr:
		return 5
	default:
		panic("unreachable")
	}
}

func isStandardWidth(width uint) bool {
	switch width {
	case Width8, Width16, Width32, Width64:
		return true
	default:
		return false
	}
}

func bitmask(width uint) uint64 {
	return (1 << width) - 1
}

// signExtend interprets the low width bits of v as a two's-complement value.
func signExtend(v uint64, width uint) int64 {
	shift := 64 - width
	return int64(v<<shift) >> shift
}
