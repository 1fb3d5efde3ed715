package ovc

import "fmt"

// Operator represents the source-level binary operator being checked.
type Operator int

// Source operators.
const (
	OpInvalid = Operator(iota)
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpRem
	OpShl
	OpShr
	OpBitOr
	OpBitAnd
	OpBitXor
	OpLt
	OpLe
	OpGt
	OpGe
	OpEq
	OpNe
)

var operators = [...]struct {
	name   string
	symbol string
}{
	OpAdd:    {"add", "+"},
	OpSub:    {"sub", "-"},
	OpMul:    {"mul", "*"},
	OpDiv:    {"div", "/"},
	OpRem:    {"rem", "%"},
	OpShl:    {"shl", "<<"},
	OpShr:    {"shr", ">>"},
	OpBitOr:  {"bitor", "|"},
	OpBitAnd: {"bitand", "&"},
	OpBitXor: {"bitxor", "^"},
	OpLt:     {"lt", "<"},
	OpLe:     {"le", "<="},
	OpGt:     {"gt", ">"},
	OpGe:     {"ge", ">="},
	OpEq:     {"eq", "=="},
	OpNe:     {"ne", "!="},
}

// ParseOperator returns the operator for a name ("add") or symbol ("+").
func ParseOperator(s string) (Operator, error) {
	for op, v := range operators {
		if v.name == "" {
			continue
		} else if s == v.name || s == v.symbol {
			return Operator(op), nil
		}
	}
	return OpInvalid, fmt.Errorf("ovc: unknown operator: %q", s)
}

// String returns the name of the operator.
func (op Operator) String() string {
	if op > OpInvalid && int(op) < len(operators) {
		return operators[op].name
	}
	return fmt.Sprintf("Operator<%d>", op)
}

// Symbol returns the Go symbol of the operator.
func (op Operator) Symbol() string {
	if op > OpInvalid && int(op) < len(operators) {
		return operators[op].symbol
	}
	return "?"
}
