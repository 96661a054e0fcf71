package value

import (
	"fmt"
	"math"
	"strings"

	"ovum_go/pkg/memory"
)

// Type is a set of kinds a slot may hold
type Type uint8

const (
	VoidType   = Type(KindVoid)
	NullType   = Type(KindNull)
	BoolType   = Type(KindBool)
	IntType    = Type(KindInt)
	FloatType  = Type(KindFloat)
	StringType = Type(KindString)
	ObjectType = Type(KindObject)

	ArithmeticType = IntType | FloatType
	AnyType        = BoolType | IntType | FloatType | StringType | ObjectType
	AnyQType       = AnyType | NullType
)

// Union combines types
func Union(types ...Type) Type {
	var out Type
	for _, t := range types {
		out |= t
	}
	return out
}

// TypeOf returns the singleton type of a value's kind
func TypeOf(v Value) Type {
	return Type(v.Kind())
}

// Has reports whether k is a member of t
func (t Type) Has(k Kind) bool {
	return t&Type(k) != 0
}

// Intersects reports a common kind
func (t Type) Intersects(u Type) bool {
	return t&u != 0
}

// String renders t as a union of kind names
func (t Type) String() string {
	if t == 0 {
		return "none"
	}
	switch t {
	case AnyType:
		return "any"
	case AnyQType:
		return "any?"
	}
	var parts []string
	for k := KindVoid; k != 0 && k <= KindObject; k <<= 1 {
		if t.Has(k) {
			parts = append(parts, k.String())
		}
	}
	return strings.Join(parts, "|")
}

// ParseType parses a '|' separated list of kind names (and "any")
func ParseType(s string) (Type, error) {
	var out Type
	for _, part := range strings.Split(s, "|") {
		part = strings.TrimSpace(part)
		switch part {
		case "any":
			out |= AnyType
			continue
		case "any?":
			out |= AnyQType
			continue
		}
		found := false
		for i, name := range kindNames {
			if part == name {
				out |= Type(Kind(1) << i)
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown type %q", part)
		}
	}
	return out, nil
}

// Mutatability decides statically whether op can ever succeed on a slot
// of type t with an operand of type rhs
func (t Type) Mutatability(op Mutation, rhs Type) Mutatability {
	var left, right Type
	switch op {
	case Noop:
		return MutatableAlways
	case Assign, IfVoid, IfNull:
		left, right = t|VoidType|NullType, t
	case Increment, Decrement:
		left, right = IntType, AnyQType|VoidType
	case Add:
		left, right = ArithmeticType|StringType, ArithmeticType|StringType
	case Subtract, Multiply, Divide, Remainder, Minimum, Maximum:
		left, right = ArithmeticType, ArithmeticType
	case BitwiseAnd, BitwiseOr, BitwiseXor:
		left, right = IntType|BoolType, IntType|BoolType
	case ShiftLeft, ShiftRight, ShiftRightUnsigned:
		left, right = IntType, IntType
	case IfFalse, IfTrue:
		left, right = BoolType, BoolType
	default:
		return MutatableNeverLeft
	}
	if !t.Intersects(left) {
		return MutatableNeverLeft
	}
	if !rhs.Intersects(right) {
		return MutatableNeverRight
	}
	if t&^left == 0 && rhs&^right == 0 {
		return MutatableAlways
	}
	return MutatableSometimes
}

// Apply computes the value a slot of type t holds after applying op to its
// current value. An unchanged result is current itself. Failures are
// *MutationError; nothing is modified either way.
func (t Type) Apply(alloc memory.Allocator, op Mutation, current, operand Value) (memory.HardPtr[Value], error) {
	if current == nil {
		current = Void
	}
	if operand == nil {
		operand = Void
	}
	rhs := TypeOf(operand)
	if op.Unary() {
		rhs = VoidType
	}
	fail := func(reason string) (memory.HardPtr[Value], error) {
		return memory.HardPtr[Value]{}, &MutationError{
			Op: op, Target: t, Left: current.Kind(), Right: operand.Kind(), Reason: reason,
		}
	}
	switch t.Mutatability(op, rhs) {
	case MutatableNeverLeft:
		return fail(fmt.Sprintf("'%s' is never valid for %s", op, t))
	case MutatableNeverRight:
		return fail(fmt.Sprintf("right-hand side must not be %s", rhs))
	}

	unchanged := func() (memory.HardPtr[Value], error) {
		return memory.NewHardPtr(current), nil
	}
	assign := func(v Value) (memory.HardPtr[Value], error) {
		if !t.Has(v.Kind()) {
			return fail(fmt.Sprintf("%s cannot hold %s", t, v.Kind()))
		}
		return memory.NewHardPtr(v), nil
	}
	result := func(p memory.HardPtr[Value]) (memory.HardPtr[Value], error) {
		if !t.Has(p.Get().Kind()) {
			kind := p.Get().Kind()
			p.Release()
			return fail(fmt.Sprintf("result %s does not fit %s", kind, t))
		}
		return p, nil
	}

	switch op {
	case Noop:
		return unchanged()
	case Assign:
		return assign(operand)
	case IfVoid:
		if current.Kind() == KindVoid {
			return assign(operand)
		}
		return unchanged()
	case IfNull:
		if current.Kind() == KindNull {
			return assign(operand)
		}
		return unchanged()
	case IfFalse, IfTrue:
		b, ok := AsBool(current)
		if !ok {
			return fail("left-hand side is not bool")
		}
		if _, ok := AsBool(operand); !ok {
			return fail("right-hand side is not bool")
		}
		if b == (op == IfTrue) {
			return assign(operand)
		}
		return unchanged()
	case Increment, Decrement:
		i, ok := AsInt(current)
		if !ok {
			return fail("left-hand side is not int")
		}
		if op == Increment {
			return result(NewInt(alloc, i+1))
		}
		return result(NewInt(alloc, i-1))
	}

	if op == Add && current.Kind() == KindString {
		a, _ := AsString(current)
		b, ok := AsString(operand)
		if !ok {
			return fail("right-hand side is not string")
		}
		return result(NewString(alloc, a+b))
	}

	switch op {
	case BitwiseAnd, BitwiseOr, BitwiseXor:
		if a, ok := AsBool(current); ok {
			b, ok := AsBool(operand)
			if !ok {
				return fail("right-hand side is not bool")
			}
			return result(NewBool(bitwiseBool(op, a, b)))
		}
		fallthrough
	case ShiftLeft, ShiftRight, ShiftRightUnsigned:
		a, ok := AsInt(current)
		if !ok {
			return fail("left-hand side is not int")
		}
		b, ok := AsInt(operand)
		if !ok {
			return fail("right-hand side is not int")
		}
		return result(NewInt(alloc, bitwiseInt(op, a, b)))
	}

	// arithmetic
	ai, aInt := AsInt(current)
	bi, bInt := AsInt(operand)
	if aInt && bInt {
		v, err := arithmeticInt(op, ai, bi)
		if err != "" {
			return fail(err)
		}
		return result(NewInt(alloc, v))
	}
	af, ok := AsFloat(current)
	if !ok {
		return fail("left-hand side is not numeric")
	}
	bf, ok := AsFloat(operand)
	if !ok {
		return fail("right-hand side is not numeric")
	}
	return result(NewFloat(alloc, arithmeticFloat(op, af, bf)))
}

func bitwiseBool(op Mutation, a, b bool) bool {
	switch op {
	case BitwiseAnd:
		return a && b
	case BitwiseOr:
		return a || b
	default:
		return a != b
	}
}

func bitwiseInt(op Mutation, a, b int64) int64 {
	switch op {
	case BitwiseAnd:
		return a & b
	case BitwiseOr:
		return a | b
	case BitwiseXor:
		return a ^ b
	case ShiftLeft:
		return shiftLeft(a, b)
	case ShiftRight:
		return shiftRight(a, b)
	default:
		return shiftRightUnsigned(a, b)
	}
}

// Negative shift counts shift the other way; counts of 64 or more shift
// every bit out.
func shiftLeft(a, b int64) int64 {
	switch {
	case b < 0:
		return shiftRight(a, negateCount(b))
	case b >= 64:
		return 0
	}
	return a << uint(b)
}

func shiftRight(a, b int64) int64 {
	switch {
	case b < 0:
		return shiftLeft(a, negateCount(b))
	case b >= 64:
		if a < 0 {
			return -1
		}
		return 0
	}
	return a >> uint(b)
}

func shiftRightUnsigned(a, b int64) int64 {
	switch {
	case b < 0:
		return shiftLeft(a, negateCount(b))
	case b >= 64:
		return 0
	}
	return int64(uint64(a) >> uint(b))
}

func negateCount(b int64) int64 {
	if b == math.MinInt64 {
		return math.MaxInt64
	}
	return -b
}

func arithmeticInt(op Mutation, a, b int64) (int64, string) {
	switch op {
	case Add:
		return a + b, ""
	case Subtract:
		return a - b, ""
	case Multiply:
		return a * b, ""
	case Divide:
		if b == 0 {
			return 0, "division by zero"
		}
		return a / b, ""
	case Remainder:
		if b == 0 {
			return 0, "division by zero"
		}
		return a % b, ""
	case Minimum:
		return min(a, b), ""
	case Maximum:
		return max(a, b), ""
	}
	return 0, fmt.Sprintf("'%s' is not arithmetic", op)
}

func arithmeticFloat(op Mutation, a, b float64) float64 {
	switch op {
	case Add:
		return a + b
	case Subtract:
		return a - b
	case Multiply:
		return a * b
	case Divide:
		return a / b
	case Remainder:
		return math.Mod(a, b)
	case Minimum:
		return math.Min(a, b)
	default:
		return math.Max(a, b)
	}
}
