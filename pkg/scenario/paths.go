package scenario

import (
	"fmt"
	"strconv"
	"strings"

	"ovum_go/pkg/memory"
	"ovum_go/pkg/object"
	"ovum_go/pkg/slot"
	"ovum_go/pkg/value"
)

// target is the last step of a path: a container and the key inside it,
// or a single variable when keyed is false
type target struct {
	base  memory.Collectable
	key   string
	keyed bool
}

func (in *Interpreter) target(path string) (target, error) {
	parts := strings.Split(path, ".")
	base, err := in.lookup(parts[0])
	if err != nil {
		return target{}, err
	}
	if len(parts) == 1 {
		return target{base: base}, nil
	}
	for _, seg := range parts[1 : len(parts)-1] {
		s, err := child(base, seg)
		if err != nil {
			return target{}, fmt.Errorf("%s: %w", path, err)
		}
		if base = s.Peek(); base == nil {
			return target{}, fmt.Errorf("%s: %s is absent", path, seg)
		}
	}
	return target{base: container(base), key: parts[len(parts)-1], keyed: true}, nil
}

// container looks through slots and pointers to the object they hold
func container(c memory.Collectable) memory.Collectable {
	for {
		switch v := c.(type) {
		case *slot.Slot:
			next := v.Peek()
			if next == nil {
				return c
			}
			c = next
		case *object.Pointer:
			s := v.Target()
			if s == nil {
				return c
			}
			c = s
		default:
			return c
		}
	}
}

// child returns the slot named by seg inside c
func child(c memory.Collectable, seg string) (*slot.Slot, error) {
	switch v := container(c).(type) {
	case *object.Dictionary:
		if s, ok := v.Slot(seg); ok {
			return s, nil
		}
		return nil, fmt.Errorf("no property %q", seg)
	case *object.Array:
		i, err := index(seg)
		if err != nil {
			return nil, err
		}
		if s, ok := v.Slot(i); ok {
			return s, nil
		}
		return nil, fmt.Errorf("index %d out of range", i)
	default:
		return nil, fmt.Errorf("%T has no element %q", v, seg)
	}
}

func index(seg string) (int, error) {
	i, err := strconv.Atoi(seg)
	if err != nil {
		return 0, fmt.Errorf("bad index %q", seg)
	}
	return i, nil
}

// slotAt resolves path to a slot
func (in *Interpreter) slotAt(path string) (*slot.Slot, error) {
	t, err := in.target(path)
	if err != nil {
		return nil, err
	}
	if !t.keyed {
		if s, ok := t.base.(*slot.Slot); ok {
			return s, nil
		}
		return nil, fmt.Errorf("%s is not a slot", path)
	}
	return child(t.base, t.key)
}

// valueAt resolves path to the value it names. A slot variable yields its
// occupant; nil means absent.
func (in *Interpreter) valueAt(path string) (value.Value, error) {
	t, err := in.target(path)
	if err != nil {
		return nil, err
	}
	if !t.keyed {
		switch c := t.base.(type) {
		case *slot.Slot:
			return c.Peek(), nil
		case value.Value:
			return c, nil
		default:
			return nil, fmt.Errorf("%s is not a value", path)
		}
	}
	s, err := child(t.base, t.key)
	if err != nil {
		return nil, err
	}
	return s.Peek(), nil
}

func (in *Interpreter) array(path string) (*object.Array, error) {
	v, err := in.valueAt(path)
	if err != nil {
		return nil, err
	}
	if a, ok := v.(*object.Array); ok {
		return a, nil
	}
	return nil, fmt.Errorf("%s is not an array", path)
}

// operand parses a value token into a new hard reference
func (in *Interpreter) operand(tok string) (memory.HardPtr[value.Value], error) {
	switch tok {
	case "void":
		return value.Constant(value.Void), nil
	case "null":
		return value.Constant(value.Null), nil
	case "true":
		return value.NewBool(true), nil
	case "false":
		return value.NewBool(false), nil
	}
	if path, ok := strings.CutPrefix(tok, "$"); ok {
		v, err := in.valueAt(path)
		if err != nil {
			return memory.HardPtr[value.Value]{}, err
		}
		if v == nil {
			return memory.HardPtr[value.Value]{}, fmt.Errorf("%s is absent", path)
		}
		return memory.NewHardPtr(v), nil
	}
	if i, err := strconv.ParseInt(tok, 10, 64); err == nil {
		return value.NewInt(in.alloc, i), nil
	}
	if strings.ContainsAny(tok, ".eE") {
		if f, err := strconv.ParseFloat(tok, 64); err == nil {
			return value.NewFloat(in.alloc, f), nil
		}
	}
	return value.NewString(in.alloc, tok), nil
}

func (in *Interpreter) render(p memory.HardPtr[value.Value]) string {
	if !p.Valid() {
		return "absent"
	}
	return object.Sprint(p.Get())
}
