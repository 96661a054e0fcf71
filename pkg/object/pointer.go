package object

import (
	"unsafe"

	"ovum_go/pkg/memory"
	"ovum_go/pkg/slot"
	"ovum_go/pkg/value"
)

// Pointer is an object referring to another slot
type Pointer struct {
	memory.SoftCounted
	target edge
}

// NewPointer creates a pointer to target. The pointer joins target's
// basket, or target joins basket if it has none.
func NewPointer(alloc memory.Allocator, basket *memory.Basket, target *slot.Slot) (memory.HardPtr[*Pointer], bool) {
	p := &Pointer{}
	p.SoftCounted.Init(p, alloc, unsafe.Sizeof(*p))
	hp := memory.NewHardPtr(p)
	if target.SoftGetBasket() == nil && basket != nil {
		basket.Take(p)
	}
	if !p.target.Set(p, target) {
		hp.Release()
		return memory.HardPtr[*Pointer]{}, false
	}
	return hp, true
}

func (p *Pointer) Kind() value.Kind { return value.KindObject }
func (p *Pointer) String() string { return Sprint(p) }

// Target returns the referenced slot, or nil once it has gone
func (p *Pointer) Target() *slot.Slot {
	return p.target.Get()
}

// Deref returns the value of the referenced slot
func (p *Pointer) Deref() (memory.HardPtr[value.Value], bool) {
	s := p.target.Get()
	if s == nil {
		return memory.HardPtr[value.Value]{}, false
	}
	return s.Get()
}

// SoftVisit visits the referenced slot
func (p *Pointer) SoftVisit(visitor memory.Visitor) {
	p.target.Visit(visitor)
}

// SoftBreakLinks drops the reference
func (p *Pointer) SoftBreakLinks() {
	p.target.Reset()
}

// Destroy drops the reference
func (p *Pointer) Destroy() {
	p.SoftBreakLinks()
}
