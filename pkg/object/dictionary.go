// Package object provides the composite values of the object graph. Every
// property or element lives in its own slot reached by a soft edge, so
// containers that reference each other form cycles a basket can reclaim.
package object

import (
	"sync"
	"unsafe"

	"ovum_go/pkg/memory"
	"ovum_go/pkg/slot"
	"ovum_go/pkg/value"
)

type edge = memory.SoftPtr[*slot.Slot]

// newSlot creates a slot in container's basket and links it
func newSlot(alloc memory.Allocator, container memory.Collectable) *edge {
	s := slot.New(alloc, container.SoftGetBasket())
	defer s.Release()
	e := &edge{}
	ok := e.Set(container, s.Get())
	memory.Assert(ok, "%T could not link a new slot", container)
	return e
}

// pin takes a hard reference to the slot behind e. Callers hold the
// container lock, so the edge keeps the slot alive until the pin is taken.
func pin(e *edge) memory.HardPtr[*slot.Slot] {
	s := e.Get()
	memory.Assert(s != nil, "container edge does not resolve")
	p, ok := memory.TryHardPtr(s)
	memory.Assert(ok, "%T destroyed while linked", s)
	return p
}

// breakAll resets edges outside of any container lock; resetting can
// destroy slots, which releases their occupants
func breakAll(edges []*edge) {
	for _, e := range edges {
		e.Reset()
	}
}

// Dictionary maps string keys to slots, preserving insertion order
type Dictionary struct {
	memory.SoftCounted
	allocator memory.Allocator

	mu    sync.RWMutex
	keys  []string
	props map[string]*edge
}

// NewDictionary creates an empty dictionary in basket
func NewDictionary(alloc memory.Allocator, basket *memory.Basket) memory.HardPtr[*Dictionary] {
	memory.Assert(basket != nil, "dictionary needs a basket")
	d := &Dictionary{allocator: alloc, props: make(map[string]*edge)}
	d.SoftCounted.Init(d, alloc, unsafe.Sizeof(*d))
	p := memory.NewHardPtr(d)
	basket.Take(d)
	return p
}

func (d *Dictionary) Kind() value.Kind { return value.KindObject }
func (d *Dictionary) String() string { return Sprint(d) }

// Len returns the number of properties
func (d *Dictionary) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.keys)
}

// Keys returns the property names in insertion order
func (d *Dictionary) Keys() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]string(nil), d.keys...)
}

// Slot returns the slot of a property. The slot is not pinned, so a
// concurrent Delete may destroy it.
func (d *Dictionary) Slot(key string) (*slot.Slot, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.props[key]
	if !ok {
		return nil, false
	}
	s := e.Get()
	return s, s != nil
}

// Get returns a hard reference to a property value
func (d *Dictionary) Get(key string) (memory.HardPtr[value.Value], bool) {
	d.mu.RLock()
	e, ok := d.props[key]
	if !ok {
		d.mu.RUnlock()
		return memory.HardPtr[value.Value]{}, false
	}
	s := pin(e)
	d.mu.RUnlock()
	defer s.Release()
	return s.Get().Get()
}

// Set assigns a property, creating it if needed
func (d *Dictionary) Set(key string, v value.Value) error {
	s := d.slotFor(key)
	defer s.Release()
	return s.Get().Set(v)
}

// Mutate applies a mutation to a property; a missing property is created
// absent first
func (d *Dictionary) Mutate(key string, t value.Type, op value.Mutation, operand value.Value) (memory.HardPtr[value.Value], error) {
	s := d.slotFor(key)
	defer s.Release()
	return s.Get().Mutate(t, op, operand)
}

// Delete removes a property
func (d *Dictionary) Delete(key string) bool {
	d.mu.Lock()
	e, ok := d.props[key]
	if ok {
		delete(d.props, key)
		for i, k := range d.keys {
			if k == key {
				d.keys = append(d.keys[:i], d.keys[i+1:]...)
				break
			}
		}
	}
	d.mu.Unlock()
	if ok {
		e.Reset()
	}
	return ok
}

// slotFor returns the pinned slot of key, creating it if needed. A
// concurrent Delete may detach the slot, but not destroy it, before the
// caller writes.
func (d *Dictionary) slotFor(key string) memory.HardPtr[*slot.Slot] {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.props[key]
	if !ok {
		e = newSlot(d.allocator, d)
		d.props[key] = e
		d.keys = append(d.keys, key)
	}
	return pin(e)
}

// SoftVisit visits every property slot
func (d *Dictionary) SoftVisit(visitor memory.Visitor) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, key := range d.keys {
		d.props[key].Visit(visitor)
	}
}

// SoftBreakLinks drops every property
func (d *Dictionary) SoftBreakLinks() {
	d.mu.Lock()
	edges := make([]*edge, 0, len(d.keys))
	for _, key := range d.keys {
		edges = append(edges, d.props[key])
	}
	d.keys = nil
	d.props = make(map[string]*edge)
	d.mu.Unlock()
	breakAll(edges)
}

// Destroy drops every property
func (d *Dictionary) Destroy() {
	d.SoftBreakLinks()
}
