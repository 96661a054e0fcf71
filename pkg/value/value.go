package value

import (
	"fmt"
	"math/bits"
	"strconv"
	"strings"
	"unsafe"

	"ovum_go/pkg/memory"
)

// Kind is a single runtime kind; kinds are bits so that a Type can be a set
type Kind uint8

const (
	KindVoid Kind = 1 << iota
	KindNull
	KindBool
	KindInt
	KindFloat
	KindString
	KindObject
)

var kindNames = [...]string{"void", "null", "bool", "int", "float", "string", "object"}

// String returns the name of a kind
func (k Kind) String() string {
	if bits.OnesCount8(uint8(k)) == 1 {
		return kindNames[bits.TrailingZeros8(uint8(k))]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Value is anything a slot can hold. Every value is a graph node: constants
// are uncounted, primitives hard-counted, objects basket-managed.
type Value interface {
	memory.Collectable
	Kind() Kind
	String() string
}

// ============ Constants ============

type constant struct {
	memory.Uncounted
	kind Kind
	text string
}

func newConstant(kind Kind, text string) *constant {
	c := &constant{kind: kind, text: text}
	c.Uncounted.Init(c)
	return c
}

func (c *constant) Kind() Kind { return c.kind }
func (c *constant) String() string { return c.text }

// Constant singletons
var (
	Void  Value = newConstant(KindVoid, "void")
	Null  Value = newConstant(KindNull, "null")
	True  Value = newConstant(KindBool, "true")
	False Value = newConstant(KindBool, "false")
)

// Constant returns an uncounted hard pointer to a singleton
func Constant(v Value) memory.HardPtr[Value] {
	return memory.NewHardPtr(v)
}

// NewBool returns the True or False singleton
func NewBool(b bool) memory.HardPtr[Value] {
	if b {
		return Constant(True)
	}
	return Constant(False)
}

// ============ Primitives ============

// Int is a hard-counted 64-bit integer
type Int struct {
	memory.HardCounted
	v int64
}

// NewInt creates an integer charged to alloc
func NewInt(alloc memory.Allocator, v int64) memory.HardPtr[Value] {
	i := &Int{v: v}
	i.HardCounted.Init(i, alloc, unsafe.Sizeof(*i))
	return memory.NewHardPtr[Value](i)
}

func (i *Int) Kind() Kind { return KindInt }
func (i *Int) Int() int64 { return i.v }
func (i *Int) String() string { return strconv.FormatInt(i.v, 10) }

// Float is a hard-counted float64
type Float struct {
	memory.HardCounted
	v float64
}

// NewFloat creates a float charged to alloc
func NewFloat(alloc memory.Allocator, v float64) memory.HardPtr[Value] {
	f := &Float{v: v}
	f.HardCounted.Init(f, alloc, unsafe.Sizeof(*f))
	return memory.NewHardPtr[Value](f)
}

func (f *Float) Kind() Kind { return KindFloat }
func (f *Float) Float() float64 { return f.v }
func (f *Float) String() string {
	s := strconv.FormatFloat(f.v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

// String is a hard-counted immutable string
type String struct {
	memory.HardCounted
	v string
}

// NewString creates a string charged to alloc, including its bytes
func NewString(alloc memory.Allocator, v string) memory.HardPtr[Value] {
	s := &String{v: v}
	s.HardCounted.Init(s, alloc, unsafe.Sizeof(*s)+uintptr(len(v)))
	return memory.NewHardPtr[Value](s)
}

func (s *String) Kind() Kind { return KindString }
func (s *String) Text() string { return s.v }
func (s *String) String() string { return s.v }

// ============ Accessors ============

// AsBool unwraps a boolean
func AsBool(v Value) (bool, bool) {
	switch v {
	case True:
		return true, true
	case False:
		return false, true
	}
	return false, false
}

// AsInt unwraps an integer
func AsInt(v Value) (int64, bool) {
	if i, ok := v.(*Int); ok {
		return i.v, true
	}
	return 0, false
}

// AsFloat unwraps a float; integers are promoted
func AsFloat(v Value) (float64, bool) {
	switch x := v.(type) {
	case *Float:
		return x.v, true
	case *Int:
		return float64(x.v), true
	}
	return 0, false
}

// AsString unwraps a string
func AsString(v Value) (string, bool) {
	if s, ok := v.(*String); ok {
		return s.v, true
	}
	return "", false
}

// Equal compares by kind and content; objects compare by identity
func Equal(a, b Value) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil || a.Kind() != b.Kind() {
		return false
	}
	switch a.Kind() {
	case KindInt:
		x, _ := AsInt(a)
		y, _ := AsInt(b)
		return x == y
	case KindFloat:
		x, _ := AsFloat(a)
		y, _ := AsFloat(b)
		return x == y
	case KindString:
		x, _ := AsString(a)
		y, _ := AsString(b)
		return x == y
	}
	return false
}
