package object

import (
	"fmt"
	"sync"
	"unsafe"

	"ovum_go/pkg/memory"
	"ovum_go/pkg/slot"
	"ovum_go/pkg/value"
)

// Array is an indexed sequence of slots
type Array struct {
	memory.SoftCounted
	allocator memory.Allocator

	mu       sync.RWMutex
	elements []*edge
}

// NewArray creates an empty array in basket
func NewArray(alloc memory.Allocator, basket *memory.Basket) memory.HardPtr[*Array] {
	memory.Assert(basket != nil, "array needs a basket")
	a := &Array{allocator: alloc}
	a.SoftCounted.Init(a, alloc, unsafe.Sizeof(*a))
	p := memory.NewHardPtr(a)
	basket.Take(a)
	return p
}

func (a *Array) Kind() value.Kind { return value.KindObject }
func (a *Array) String() string { return Sprint(a) }

// Len returns the number of elements
func (a *Array) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.elements)
}

// Slot returns the slot of element i. The slot is not pinned.
func (a *Array) Slot(i int) (*slot.Slot, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if i < 0 || i >= len(a.elements) {
		return nil, false
	}
	s := a.elements[i].Get()
	return s, s != nil
}

// Get returns a hard reference to element i
func (a *Array) Get(i int) (memory.HardPtr[value.Value], bool) {
	s, err := a.pinned(i)
	if err != nil {
		return memory.HardPtr[value.Value]{}, false
	}
	defer s.Release()
	return s.Get().Get()
}

// Push appends v
func (a *Array) Push(v value.Value) error {
	a.mu.Lock()
	e := newSlot(a.allocator, a)
	a.elements = append(a.elements, e)
	s := pin(e)
	a.mu.Unlock()
	defer s.Release()
	return s.Get().Set(v)
}

// Set assigns element i
func (a *Array) Set(i int, v value.Value) error {
	s, err := a.pinned(i)
	if err != nil {
		return err
	}
	defer s.Release()
	return s.Get().Set(v)
}

// Mutate applies a mutation to element i
func (a *Array) Mutate(i int, t value.Type, op value.Mutation, operand value.Value) (memory.HardPtr[value.Value], error) {
	s, err := a.pinned(i)
	if err != nil {
		return memory.HardPtr[value.Value]{}, err
	}
	defer s.Release()
	return s.Get().Mutate(t, op, operand)
}

// pinned returns a hard reference to the slot of element i
func (a *Array) pinned(i int) (memory.HardPtr[*slot.Slot], error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if i < 0 || i >= len(a.elements) {
		return memory.HardPtr[*slot.Slot]{}, fmt.Errorf("array index %d out of range [0, %d)", i, len(a.elements))
	}
	return pin(a.elements[i]), nil
}

// Pop removes the last element and returns its value
func (a *Array) Pop() (memory.HardPtr[value.Value], bool) {
	a.mu.Lock()
	n := len(a.elements)
	if n == 0 {
		a.mu.Unlock()
		return memory.HardPtr[value.Value]{}, false
	}
	e := a.elements[n-1]
	a.elements = a.elements[:n-1]
	a.mu.Unlock()

	var out memory.HardPtr[value.Value]
	ok := false
	if s := e.Get(); s != nil {
		out, ok = s.Get()
	}
	e.Reset()
	return out, ok
}

// SoftVisit visits every element slot
func (a *Array) SoftVisit(visitor memory.Visitor) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, e := range a.elements {
		e.Visit(visitor)
	}
}

// SoftBreakLinks drops every element
func (a *Array) SoftBreakLinks() {
	a.mu.Lock()
	edges := a.elements
	a.elements = nil
	a.mu.Unlock()
	breakAll(edges)
}

// Destroy drops every element
func (a *Array) Destroy() {
	a.SoftBreakLinks()
}
