package value

import (
	"fmt"
	"strings"
)

// Mutation is an in-place operator applied to a slot
type Mutation int

const (
	Assign Mutation = iota
	Decrement
	Increment
	Add
	Subtract
	Multiply
	Divide
	Remainder
	Minimum
	Maximum
	BitwiseAnd
	BitwiseOr
	BitwiseXor
	ShiftLeft
	ShiftRight
	ShiftRightUnsigned
	IfVoid
	IfNull
	IfFalse
	IfTrue
	Noop
)

var mutationInfo = [...]struct {
	name   string
	symbol string
}{
	Assign:             {"assign", "="},
	Decrement:          {"decrement", "--"},
	Increment:          {"increment", "++"},
	Add:                {"add", "+="},
	Subtract:           {"subtract", "-="},
	Multiply:           {"multiply", "*="},
	Divide:             {"divide", "/="},
	Remainder:          {"remainder", "%="},
	Minimum:            {"minimum", "<|="},
	Maximum:            {"maximum", ">|="},
	BitwiseAnd:         {"bitwise-and", "&="},
	BitwiseOr:          {"bitwise-or", "|="},
	BitwiseXor:         {"bitwise-xor", "^="},
	ShiftLeft:          {"shift-left", "<<="},
	ShiftRight:         {"shift-right", ">>="},
	ShiftRightUnsigned: {"shift-right-unsigned", ">>>="},
	IfVoid:             {"if-void", "!!="},
	IfNull:             {"if-null", "??="},
	IfFalse:            {"if-false", "||="},
	IfTrue:             {"if-true", "&&="},
	Noop:               {"noop", ""},
}

func (m Mutation) valid() bool {
	return m >= 0 && int(m) < len(mutationInfo)
}

// String returns the operator symbol
func (m Mutation) String() string {
	if !m.valid() {
		return fmt.Sprintf("Mutation(%d)", int(m))
	}
	if m == Noop {
		return "noop"
	}
	return mutationInfo[m].symbol
}

// Name returns the spelled-out operator name
func (m Mutation) Name() string {
	if !m.valid() {
		return m.String()
	}
	return mutationInfo[m].name
}

// Unary reports operators that take no operand
func (m Mutation) Unary() bool {
	return m == Increment || m == Decrement || m == Noop
}

// ParseMutation accepts either the symbol or the name of an operator
func ParseMutation(s string) (Mutation, error) {
	for m, info := range mutationInfo {
		if s == info.symbol && s != "" || strings.EqualFold(s, info.name) {
			return Mutation(m), nil
		}
	}
	return 0, fmt.Errorf("unknown mutation operator %q", s)
}

// Mutatability is the static verdict of computing whether a type can ever
// accept a mutation
type Mutatability int

const (
	MutatableAlways Mutatability = iota
	MutatableSometimes
	MutatableNeverLeft
	MutatableNeverRight
)

func (m Mutatability) String() string {
	switch m {
	case MutatableAlways:
		return "always"
	case MutatableSometimes:
		return "sometimes"
	case MutatableNeverLeft:
		return "never-left"
	case MutatableNeverRight:
		return "never-right"
	default:
		return fmt.Sprintf("Mutatability(%d)", int(m))
	}
}

// MutationError is a type-level refusal to mutate. It is returned to the
// caller unchanged by slots.
type MutationError struct {
	Op     Mutation
	Target Type
	Left   Kind
	Right  Kind
	Reason string
}

func (e *MutationError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "cannot apply '%s' to %s", e.Op, e.Target)
	if e.Left != 0 {
		fmt.Fprintf(&sb, " holding %s", e.Left)
	}
	if e.Right != 0 {
		fmt.Fprintf(&sb, " with %s", e.Right)
	}
	if e.Reason != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Reason)
	}
	return sb.String()
}
