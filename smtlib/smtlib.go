// Package smtlib serializes safety formulas into SMT-LIB 2 scripts over the
// QF_BV logic and runs them through an external solver process.
package smtlib

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/benbjohnson/ovc"
)

// Solver-native names for the opaque multiplication predicates.
const (
	SignedMulNoOverflow   = "bvsmul_noovfl"
	SignedMulNoUnderflow  = "bvsmul_noudfl"
	UnsignedMulNoOverflow = "bvumul_noovfl"
)

// Encoder writes expressions as SMT-LIB 2 terms.
type Encoder struct {
	w *bufio.Writer
}

// NewEncoder returns a new instance of Encoder that writes to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: bufio.NewWriter(w)}
}

// Encode writes expr as a single term followed by a newline.
func (enc *Encoder) Encode(expr ovc.Expr) error {
	if err := enc.encode(expr); err != nil {
		return err
	}
	enc.w.WriteByte('\n')
	return enc.w.Flush()
}

// EncodeScript writes a validity query for expr. The formula is valid, and
// the guarded operations cannot overflow, iff the solver answers "unsat".
func (enc *Encoder) EncodeScript(expr ovc.Expr) error {
	enc.w.WriteString("(set-logic QF_BV)\n")
	for _, v := range ovc.FindVars(expr) {
		if !v.Kind.Valid() {
			return fmt.Errorf("smtlib: variable %s: %w", v.Name, &ovc.UnsupportedTypeError{Type: v.Kind.String()})
		}
		sym, err := Symbol(v.Name)
		if err != nil {
			return err
		}
		fmt.Fprintf(enc.w, "(declare-const %s (_ BitVec %d))\n", sym, v.Kind.Width())
	}

	enc.w.WriteString("(assert (not ")
	if err := enc.encode(expr); err != nil {
		return err
	}
	enc.w.WriteString("))\n(check-sat)\n")
	return enc.w.Flush()
}

func (enc *Encoder) encode(expr ovc.Expr) error {
	switch expr := expr.(type) {
	case *ovc.BoolExpr:
		if expr.Value {
			enc.w.WriteString("true")
		} else {
			enc.w.WriteString("false")
		}
		return nil
	case *ovc.ConstantExpr:
		fmt.Fprintf(enc.w, "(_ bv%d %d)", expr.Value, expr.Width)
		return nil
	case *ovc.VarExpr:
		sym, err := Symbol(expr.Name)
		if err != nil {
			return err
		}
		enc.w.WriteString(sym)
		return nil
	case *ovc.NotExpr:
		return enc.encodeApp("not", expr.Expr)
	case *ovc.BinaryExpr:
		verb, err := verbOf(expr)
		if err != nil {
			return err
		}
		return enc.encodeApp(verb, expr.LHS, expr.RHS)
	default:
		return fmt.Errorf("smtlib: invalid expression type: %T", expr)
	}
}

func (enc *Encoder) encodeApp(verb string, args ...ovc.Expr) error {
	enc.w.WriteByte('(')
	enc.w.WriteString(verb)
	for _, arg := range args {
		enc.w.WriteByte(' ')
		if err := enc.encode(arg); err != nil {
			return err
		}
	}
	enc.w.WriteByte(')')
	return nil
}

// verbOf returns the SMT-LIB function symbol for a binary expression.
// Comparisons are signed or unsigned according to their left operand.
func verbOf(expr *ovc.BinaryExpr) (string, error) {
	signed := ovc.ExprSigned(expr.LHS)
	switch expr.Op {
	case ovc.AND:
		return "and", nil
	case ovc.OR:
		return "or", nil
	case ovc.IMPLIES:
		return "=>", nil
	case ovc.EQ:
		return "=", nil
	case ovc.NE:
		return "distinct", nil
	case ovc.LT:
		return pick(signed, "bvslt", "bvult"), nil
	case ovc.LE:
		return pick(signed, "bvsle", "bvule"), nil
	case ovc.GT:
		return pick(signed, "bvsgt", "bvugt"), nil
	case ovc.GE:
		return pick(signed, "bvsge", "bvuge"), nil
	case ovc.ADD:
		return "bvadd", nil
	case ovc.SUB:
		return "bvsub", nil
	case ovc.SMULNOOVFL:
		return SignedMulNoOverflow, nil
	case ovc.SMULNOUDFL:
		return SignedMulNoUnderflow, nil
	case ovc.UMULNOOVFL:
		return UnsignedMulNoOverflow, nil
	default:
		return "", fmt.Errorf("smtlib: unexpected operation: %s", expr.Op)
	}
}

func pick(signed bool, s, u string) string {
	if signed {
		return s
	}
	return u
}

// String returns expr as an SMT-LIB term.
func String(expr ovc.Expr) (string, error) {
	var buf strings.Builder
	if err := NewEncoder(&buf).Encode(expr); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// Script returns the validity query for expr.
func Script(expr ovc.Expr) (string, error) {
	var buf strings.Builder
	if err := NewEncoder(&buf).EncodeScript(expr); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Symbol returns the SMT-LIB symbol for the variable name.
//
// Reserved words and symbols predefined by the Core and bit-vector theories
// cannot name a constant, even when quoted, so such names get a trailing "!".
// Names already ending in "!" get one too, which keeps the mapping one to
// one. The result is quoted with "|" when it is not a simple symbol. Names
// containing "|" or a backslash cannot be quoted and are rejected.
func Symbol(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `|\`) {
		return "", fmt.Errorf("smtlib: invalid symbol: %q", name)
	}

	if isPredefined(name) || strings.HasSuffix(name, "!") {
		name += "!"
	}
	if isSimpleSymbol(name) {
		return name, nil
	}
	return "|" + name + "|", nil
}

// predefined holds the reserved words of SMT-LIB 2.6 and the function and
// sort symbols of the Core theory. Bit-vector symbols share the "bv" prefix
// apart from the ones listed here.
var predefined = map[string]bool{
	"BINARY": true, "DECIMAL": true, "HEXADECIMAL": true, "NUMERAL": true, "STRING": true,
	"_": true, "!": true, "as": true, "let": true, "exists": true, "forall": true,
	"match": true, "par": true,

	"assert": true, "check-sat": true, "check-sat-assuming": true,
	"declare-const": true, "declare-datatype": true, "declare-datatypes": true,
	"declare-fun": true, "declare-sort": true, "define-fun": true,
	"define-fun-rec": true, "define-funs-rec": true, "define-sort": true,
	"echo": true, "exit": true, "get-assertions": true, "get-assignment": true,
	"get-info": true, "get-model": true, "get-option": true, "get-proof": true,
	"get-unsat-assumptions": true, "get-unsat-core": true, "get-value": true,
	"pop": true, "push": true, "reset": true, "reset-assertions": true,
	"set-info": true, "set-logic": true, "set-option": true,

	"Bool": true, "true": true, "false": true, "not": true, "=>": true,
	"and": true, "or": true, "xor": true, "=": true, "distinct": true, "ite": true,

	"BitVec": true, "concat": true, "extract": true, "repeat": true,
	"zero_extend": true, "sign_extend": true, "rotate_left": true, "rotate_right": true,
}

func isPredefined(name string) bool {
	return predefined[name] || strings.HasPrefix(name, "bv")
}

func isSimpleSymbol(s string) bool {
	if s == "" || (s[0] >= '0' && s[0] <= '9') {
		return false
	}
	for _, ch := range s {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
		case strings.ContainsRune("~!@$%^&*_-+=<>.?/", ch):
		default:
			return false
		}
	}
	return true
}
