// Package frontend extracts overflow obligations from Go programs in SSA form.
package frontend

import (
	"go/token"
	"go/types"

	"github.com/benbjohnson/ovc"
	"golang.org/x/tools/go/ssa"
)

// KindOf returns the fixed-width integer kind of typ. The platform-sized
// int, uint and uintptr types are resolved through sizes.
func KindOf(typ types.Type, sizes types.Sizes) (ovc.Kind, error) {
	basic, ok := typ.Underlying().(*types.Basic)
	if !ok {
		return ovc.KindInvalid, &ovc.UnsupportedTypeError{Type: typ.String()}
	}

	switch basic.Kind() {
	case types.Int8:
		return ovc.Int8, nil
	case types.Int16:
		return ovc.Int16, nil
	case types.Int32:
		return ovc.Int32, nil
	case types.Int64:
		return ovc.Int64, nil
	case types.Uint8:
		return ovc.Uint8, nil
	case types.Uint16:
		return ovc.Uint16, nil
	case types.Uint32:
		return ovc.Uint32, nil
	case types.Uint64:
		return ovc.Uint64, nil
	case types.Int, types.Uint, types.Uintptr:
		if sizes == nil {
			break
		}
		signed := basic.Info()&types.IsUnsigned == 0
		switch sizes.Sizeof(basic) {
		case 4:
			return pickKind(signed, ovc.Int32, ovc.Uint32), nil
		case 8:
			return pickKind(signed, ovc.Int64, ovc.Uint64), nil
		}
	}
	return ovc.KindInvalid, &ovc.UnsupportedTypeError{Type: typ.String()}
}

func pickKind(signed bool, s, u ovc.Kind) ovc.Kind {
	if signed {
		return s
	}
	return u
}

// isInteger returns true if typ is an integer basic type.
func isInteger(typ types.Type) bool {
	basic, ok := typ.Underlying().(*types.Basic)
	return ok && basic.Info()&types.IsInteger != 0
}

// OperatorOf returns the operator for a Go binary operator token.
func OperatorOf(tok token.Token) (ovc.Operator, bool) {
	switch tok {
	case token.ADD:
		return ovc.OpAdd, true
	case token.SUB:
		return ovc.OpSub, true
	case token.MUL:
		return ovc.OpMul, true
	case token.QUO:
		return ovc.OpDiv, true
	case token.REM:
		return ovc.OpRem, true
	case token.SHL:
		return ovc.OpShl, true
	case token.SHR:
		return ovc.OpShr, true
	case token.OR:
		return ovc.OpBitOr, true
	case token.AND:
		return ovc.OpBitAnd, true
	case token.XOR:
		return ovc.OpBitXor, true
	case token.LSS:
		return ovc.OpLt, true
	case token.LEQ:
		return ovc.OpLe, true
	case token.GTR:
		return ovc.OpGt, true
	case token.GEQ:
		return ovc.OpGe, true
	case token.EQL:
		return ovc.OpEq, true
	case token.NEQ:
		return ovc.OpNe, true
	default:
		return ovc.OpInvalid, false
	}
}

// compareOps maps comparison tokens to IR comparison operations.
var compareOps = map[token.Token]ovc.BinaryOp{
	token.EQL: ovc.EQ,
	token.NEQ: ovc.NE,
	token.LSS: ovc.LT,
	token.LEQ: ovc.LE,
	token.GTR: ovc.GT,
	token.GEQ: ovc.GE,
}

// Translator converts SSA values into IR operands.
type Translator struct {
	Sizes types.Sizes
}

// Operand returns the IR operand for v. Constants become literals and every
// other value becomes a variable. Parameters and free variables keep their
// source name; registers are named "%tN", which no Go identifier can spell.
func (t *Translator) Operand(v ssa.Value) (ovc.Expr, error) {
	kind, err := KindOf(v.Type(), t.Sizes)
	if err != nil {
		return nil, err
	}

	if c, ok := v.(*ssa.Const); ok {
		if kind.Signed() {
			return ovc.NewConstantExpr(kind.Width(), c.Int64()), nil
		}
		return ovc.NewUnsignedConstantExpr(kind.Width(), c.Uint64()), nil
	}
	return ovc.NewVarExpr(VarName(v), kind), nil
}

// VarName returns the variable name of a non-constant SSA value.
func VarName(v ssa.Value) string {
	switch v.(type) {
	case *ssa.Parameter, *ssa.FreeVar:
		return v.Name()
	default:
		return "%" + v.Name()
	}
}

// Condition returns the IR formula for a boolean SSA value. Only integer
// comparisons are translated; ok is false for any other value.
func (t *Translator) Condition(v ssa.Value) (expr ovc.Expr, ok bool) {
	instr, isBinOp := v.(*ssa.BinOp)
	if !isBinOp {
		return nil, false
	}
	op, isCompare := compareOps[instr.Op]
	if !isCompare || !isInteger(instr.X.Type()) {
		return nil, false
	}

	lhs, err := t.Operand(instr.X)
	if err != nil {
		return nil, false
	}
	rhs, err := t.Operand(instr.Y)
	if err != nil {
		return nil, false
	}
	return ovc.NewBinaryExpr(op, lhs, rhs), true
}
