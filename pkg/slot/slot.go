// Package slot implements the atomically mutable single-value container
// used for properties, elements and variables.
package slot

import (
	"errors"
	"fmt"
	"sync/atomic"
	"unsafe"

	"ovum_go/pkg/memory"
	"ovum_go/pkg/value"
)

var (
	// ErrUninitialized is returned when an operator needs a current value
	// and the slot is absent
	ErrUninitialized = errors.New("slot: uninitialized")
	// ErrForeignObject is returned when an object cannot be linked into
	// the slot's basket
	ErrForeignObject = errors.New("slot: object cannot be linked to this slot")
	// ErrDestroyed is returned when writing to a slot that has been
	// destroyed
	ErrDestroyed = errors.New("slot: destroyed")
)

// Outcome classifies the result of a mutation
type Outcome int

const (
	Succeeded Outcome = iota
	Uninitialized
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case Uninitialized:
		return "uninitialized"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// OutcomeOf maps a Mutate error to its outcome
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return Succeeded
	case errors.Is(err, ErrUninitialized):
		return Uninitialized
	default:
		return Failed
	}
}

// cell is an immutable installation of one value. Objects are held by a
// soft edge from the slot, everything else by a hard reference.
type cell struct {
	generation uint64
	target     value.Value
	edge       *memory.SoftPtr[value.Value]
}

func (c *cell) release() {
	if c.edge != nil {
		c.edge.Reset()
		return
	}
	c.target.HardRelease()
}

// Slot holds at most one value. Readers and writers never lock: every
// write installs a fresh cell by compare-and-swap.
type Slot struct {
	memory.SoftCounted
	allocator  memory.Allocator
	cell       atomic.Pointer[cell]
	generation atomic.Uint64
}

// New creates an absent slot. A non-nil basket takes the slot as a member.
func New(allocator memory.Allocator, basket *memory.Basket) memory.HardPtr[*Slot] {
	s := &Slot{allocator: allocator}
	s.SoftCounted.Init(s, allocator, unsafe.Sizeof(*s))
	p := memory.NewHardPtr(s)
	if basket != nil {
		basket.Take(s)
	}
	return p
}

// Get returns a hard reference to the current value, or false if absent
func (s *Slot) Get() (memory.HardPtr[value.Value], bool) {
	for {
		c := s.cell.Load()
		if c == nil {
			return memory.HardPtr[value.Value]{}, false
		}
		// the value may be released by a concurrent writer between the
		// load and the acquire; a failed acquire means the cell changed
		if p, ok := memory.TryHardPtr(c.target); ok {
			return p, true
		}
	}
}

// Peek returns the current value without acquiring it. The result is only
// valid while the caller otherwise keeps the value alive.
func (s *Slot) Peek() value.Value {
	if c := s.cell.Load(); c != nil {
		return c.target
	}
	return nil
}

// Present reports a non-absent slot
func (s *Slot) Present() bool {
	return s.cell.Load() != nil
}

// Generation returns the stamp of the installed cell (zero when absent)
func (s *Slot) Generation() uint64 {
	if c := s.cell.Load(); c != nil {
		return c.generation
	}
	return 0
}

// Set unconditionally installs v. A destroyed slot refuses the write.
func (s *Slot) Set(v value.Value) error {
	next, err := s.install(v)
	if err != nil {
		return err
	}
	if before := s.cell.Swap(next); before != nil {
		before.release()
	}
	return s.settle()
}

// settle empties a slot destroyed while a write was in flight
func (s *Slot) settle() error {
	if !s.Destroyed() {
		return nil
	}
	s.Clear()
	return ErrDestroyed
}

// Clear makes the slot absent
func (s *Slot) Clear() {
	if before := s.cell.Swap(nil); before != nil {
		before.release()
	}
}

// Mutate applies op with operand under type t. It returns the value held
// before the mutation (empty for an absent slot). Type-level failures are
// *value.MutationError and leave the slot unchanged.
func (s *Slot) Mutate(t value.Type, op value.Mutation, operand value.Value) (memory.HardPtr[value.Value], error) {
	if operand == nil {
		operand = value.Void
	}
	for {
		if s.Destroyed() {
			return memory.HardPtr[value.Value]{}, ErrDestroyed
		}
		c := s.cell.Load()
		if c == nil {
			switch op {
			case value.Assign, value.IfNull, value.IfVoid:
			default:
				return memory.HardPtr[value.Value]{}, ErrUninitialized
			}
			if !t.Has(operand.Kind()) {
				return memory.HardPtr[value.Value]{}, &value.MutationError{
					Op: op, Target: t, Right: operand.Kind(),
					Reason: fmt.Sprintf("%s cannot hold %s", t, operand.Kind()),
				}
			}
			next, err := s.install(operand)
			if err != nil {
				return memory.HardPtr[value.Value]{}, err
			}
			if s.cell.CompareAndSwap(nil, next) {
				return memory.HardPtr[value.Value]{}, s.settle()
			}
			next.release()
			continue
		}

		current, ok := memory.TryHardPtr(c.target)
		if !ok {
			continue
		}
		after, err := t.Apply(s.allocator, op, current.Get(), operand)
		if err != nil {
			current.Release()
			return memory.HardPtr[value.Value]{}, err
		}
		if after.Get() == current.Get() {
			after.Release()
			return current, nil
		}
		next, err := s.install(after.Get())
		after.Release()
		if err != nil {
			current.Release()
			return memory.HardPtr[value.Value]{}, err
		}
		if s.cell.CompareAndSwap(c, next) {
			c.release()
			if err := s.settle(); err != nil {
				current.Release()
				return memory.HardPtr[value.Value]{}, err
			}
			return current, nil
		}
		next.release()
		current.Release()
	}
}

// install builds a fresh cell holding its own reference to v
func (s *Slot) install(v value.Value) (*cell, error) {
	if s.Destroyed() {
		return nil, ErrDestroyed
	}
	next := &cell{generation: s.generation.Add(1), target: v}
	if v.Kind() == value.KindObject {
		edge := &memory.SoftPtr[value.Value]{}
		if !edge.Set(s, v) {
			return nil, ErrForeignObject
		}
		next.edge = edge
		return next, nil
	}
	v.HardAcquire()
	return next, nil
}

// SoftVisit visits an object occupant
func (s *Slot) SoftVisit(visitor memory.Visitor) {
	if c := s.cell.Load(); c != nil && c.edge != nil {
		visitor.Visit(c.target)
	}
}

// SoftBreakLinks empties the slot
func (s *Slot) SoftBreakLinks() {
	s.Clear()
}

// Destroy empties the slot when it is destroyed
func (s *Slot) Destroy() {
	s.Clear()
}

// Validate checks the slot and its occupant
func (s *Slot) Validate() bool {
	if !s.SoftCounted.Validate() {
		return false
	}
	// object occupants are members in their own right
	if c := s.cell.Load(); c != nil && c.edge == nil {
		return c.target.Validate()
	}
	return true
}

func (s *Slot) String() string {
	c := s.cell.Load()
	if c == nil {
		return "slot(absent)"
	}
	if c.edge != nil {
		return fmt.Sprintf("slot(%s)", c.target.Kind())
	}
	return fmt.Sprintf("slot(%s)", c.target)
}
