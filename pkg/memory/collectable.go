package memory

import (
	"fmt"
	"sync/atomic"
)

// HardReference is the owning half of the lifetime protocol. Every hard
// acquire must be paired with exactly one hard release.
type HardReference interface {
	// HardAcquire increments the hard count and returns the receiver
	HardAcquire() HardReference
	// HardRelease decrements the hard count, destroying at zero
	HardRelease()
	// TryHardAcquire acquires unless the object already reached zero
	TryHardAcquire() bool
}

// Visitor is invoked once per soft link target during traversal
type Visitor interface {
	Visit(target Collectable)
}

// VisitorFunc adapts a function to the Visitor interface
type VisitorFunc func(target Collectable)

// Visit calls f(target)
func (f VisitorFunc) Visit(target Collectable) {
	f(target)
}

// SetBasketResult is the outcome of SoftSetBasket
type SetBasketResult int

const (
	SetBasketExempt    SetBasketResult = iota // can never join a basket
	SetBasketUnaltered                        // desired equals current
	SetBasketAltered                          // none->some or some->none
	SetBasketFailed                           // some->some is refused
)

func (r SetBasketResult) String() string {
	switch r {
	case SetBasketExempt:
		return "Exempt"
	case SetBasketUnaltered:
		return "Unaltered"
	case SetBasketAltered:
		return "Altered"
	case SetBasketFailed:
		return "Failed"
	default:
		return fmt.Sprintf("SetBasketResult(%d)", int(r))
	}
}

// Collectable is the capability set of every node in the object graph
type Collectable interface {
	HardReference
	// SoftAcquire records an incoming soft edge
	SoftAcquire()
	// SoftRelease removes an incoming soft edge, destroying at zero
	SoftRelease()
	// SoftIsRoot reports a reference that is not a basket-internal edge
	SoftIsRoot() bool
	SoftGetBasket() *Basket
	SoftSetBasket(desired *Basket) SetBasketResult
	// SoftVisit calls visitor for every outgoing soft edge
	SoftVisit(visitor Visitor)
	// Validate is a debug self-check
	Validate() bool
}

// Destroyer is implemented by types that need to run code exactly once
// when their count reaches zero (resetting edges, releasing hard fields)
type Destroyer interface {
	Destroy()
}

// LinkBreaker is implemented by types whose outgoing soft edges can be
// reset in place. Baskets call it on garbage before releasing it.
type LinkBreaker interface {
	SoftBreakLinks()
}

// ============ Hard-counted variant ============

// HardCounted is the plain reference-counted variant. Embed it, then call
// Init with the embedding value. It never joins a basket.
type HardCounted struct {
	self      HardReference
	allocator Allocator
	block     []byte
	count     AtomicCount
	destroyed atomic.Bool
}

// Init wires the outer object and charges footprint bytes to allocator
// (which may be nil for uncharged objects). The count starts at zero;
// the first HardPtr takes it to one.
func (h *HardCounted) Init(self HardReference, allocator Allocator, footprint uintptr) {
	Assert(h.self == nil, "%T initialized twice", self)
	h.self = self
	h.allocator = allocator
	if allocator != nil {
		h.block = allocator.Allocate(footprint, 0)
	}
}

// HardAcquire increments the count
func (h *HardCounted) HardAcquire() HardReference {
	Assert(!h.destroyed.Load(), "%T acquired after destruction", h.self)
	n := h.count.Increment()
	Assert(n > 0, "%T hard count %d after acquire", h.self, n)
	return h.self
}

// HardRelease decrements the count and destroys at zero
func (h *HardCounted) HardRelease() {
	n := h.count.Decrement()
	Assert(n >= 0, "%T hard count underflow (%d)", h.self, n)
	if n == 0 {
		h.destroy()
	}
}

// TryHardAcquire refuses to resurrect an object whose count reached zero
func (h *HardCounted) TryHardAcquire() bool {
	return h.count.IncrementIfPositive()
}

// SoftAcquire on a plain object is an ordinary reference
func (h *HardCounted) SoftAcquire() {
	h.HardAcquire()
}

// SoftRelease on a plain object is an ordinary release
func (h *HardCounted) SoftRelease() {
	h.HardRelease()
}

// SoftIsRoot is always true; plain objects are never basket garbage
func (h *HardCounted) SoftIsRoot() bool {
	return true
}

// SoftGetBasket is always nil
func (h *HardCounted) SoftGetBasket() *Basket {
	return nil
}

// SoftSetBasket is always exempt
func (h *HardCounted) SoftSetBasket(*Basket) SetBasketResult {
	return SetBasketExempt
}

// SoftVisit has nothing to visit
func (h *HardCounted) SoftVisit(Visitor) {}

// Validate checks the count sign and liveness
func (h *HardCounted) Validate() bool {
	return h.count.Get() >= 0 && !h.destroyed.Load()
}

// HardCount returns the current count (debugging and tests)
func (h *HardCounted) HardCount() int64 {
	return h.count.Get()
}

// Destroyed reports whether the object has been destroyed
func (h *HardCounted) Destroyed() bool {
	return h.destroyed.Load()
}

// destroy runs the Destroyer hook and returns the footprint, exactly once
func (h *HardCounted) destroy() {
	if !h.destroyed.CompareAndSwap(false, true) {
		Assert(false, "%T destroyed twice", h.self)
		return
	}
	if d, ok := h.self.(Destroyer); ok {
		d.Destroy()
	}
	if h.allocator != nil {
		h.allocator.Deallocate(h.block, 0)
		h.block = nil
	}
}

// ============ Soft-counted (basket-managed) variant ============

// SoftCounted is the basket-managed variant. Its total count includes one
// unit per installed soft edge; the soft count tracks those edges alone,
// so total-soft is the number of hard references.
type SoftCounted struct {
	HardCounted
	soft   AtomicCount
	basket atomic.Pointer[Basket]
}

// Init wires the outer collectable
func (s *SoftCounted) Init(self Collectable, allocator Allocator, footprint uintptr) {
	s.HardCounted.Init(self, allocator, footprint)
}

// HardRelease decrements the total count, leaving the basket at zero
func (s *SoftCounted) HardRelease() {
	n := s.count.Decrement()
	Assert(n >= 0, "%T hard count underflow (%d)", s.self, n)
	if n == 0 {
		s.finalize()
	}
}

// SoftAcquire records an incoming edge
func (s *SoftCounted) SoftAcquire() {
	Assert(!s.destroyed.Load(), "%T linked after destruction", s.self)
	s.count.Increment()
	s.soft.Increment()
}

// SoftRelease removes an incoming edge
func (s *SoftCounted) SoftRelease() {
	m := s.soft.Decrement()
	Assert(m >= 0, "%T soft count underflow (%d)", s.self, m)
	n := s.count.Decrement()
	Assert(n >= m, "%T total count %d below soft count %d", s.self, n, m)
	if n == 0 {
		s.finalize()
	}
}

// SoftIsRoot is true when some reference is not a soft edge
func (s *SoftCounted) SoftIsRoot() bool {
	return s.count.Get() > s.soft.Get()
}

// SoftGetBasket returns the current basket, if any
func (s *SoftCounted) SoftGetBasket() *Basket {
	return s.basket.Load()
}

// SoftSetBasket refuses direct transfers between two baskets
func (s *SoftCounted) SoftSetBasket(desired *Basket) SetBasketResult {
	for {
		before := s.basket.Load()
		if desired == before {
			return SetBasketUnaltered
		}
		if desired != nil && before != nil {
			return SetBasketFailed
		}
		if s.basket.CompareAndSwap(before, desired) {
			return SetBasketAltered
		}
	}
}

// SoftVisit is overridden by types with outgoing edges
func (s *SoftCounted) SoftVisit(Visitor) {}

// SoftCount returns the number of incoming soft edges
func (s *SoftCounted) SoftCount() int64 {
	return s.soft.Get()
}

// Validate checks count signs and basket membership consistency
func (s *SoftCounted) Validate() bool {
	total, soft := s.count.Get(), s.soft.Get()
	if soft < 0 || total < soft || s.destroyed.Load() {
		return false
	}
	if b := s.basket.Load(); b != nil {
		return b.Contains(s.self.(Collectable))
	}
	return true
}

func (s *SoftCounted) finalize() {
	if b := s.basket.Load(); b != nil {
		b.forget(s.self.(Collectable))
	}
	s.destroy()
}

// ============ Uncounted variant ============

// Uncounted is the no-op variant for constant singletons: never destroyed,
// always a root, exempt from baskets.
type Uncounted struct {
	self Collectable
}

// Init wires the outer singleton
func (u *Uncounted) Init(self Collectable) {
	u.self = self
}

// HardAcquire returns the singleton without counting
func (u *Uncounted) HardAcquire() HardReference {
	return u.self
}

// HardRelease does nothing
func (u *Uncounted) HardRelease() {}

// TryHardAcquire always succeeds
func (u *Uncounted) TryHardAcquire() bool {
	return true
}

// SoftAcquire does nothing
func (u *Uncounted) SoftAcquire() {}

// SoftRelease does nothing
func (u *Uncounted) SoftRelease() {}

// SoftIsRoot is always true; singletons cannot be destroyed
func (u *Uncounted) SoftIsRoot() bool {
	return true
}

// SoftGetBasket is always nil
func (u *Uncounted) SoftGetBasket() *Basket {
	return nil
}

// SoftSetBasket is always exempt
func (u *Uncounted) SoftSetBasket(*Basket) SetBasketResult {
	return SetBasketExempt
}

// SoftVisit has nothing to visit
func (u *Uncounted) SoftVisit(Visitor) {}

// Validate has nothing to check
func (u *Uncounted) Validate() bool {
	return true
}
