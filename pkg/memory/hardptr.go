package memory

// HardPtr is an owning handle. The zero value holds nothing.
// Copying a HardPtr by value does not acquire; use Clone for a second owner
// and Move to hand ownership over.
type HardPtr[T HardReference] struct {
	target T
	held   bool
}

// NewHardPtr acquires target
func NewHardPtr[T HardReference](target T) HardPtr[T] {
	target.HardAcquire()
	return HardPtr[T]{target: target, held: true}
}

// TryHardPtr acquires target unless its count already reached zero
func TryHardPtr[T HardReference](target T) (HardPtr[T], bool) {
	if !target.TryHardAcquire() {
		return HardPtr[T]{}, false
	}
	return HardPtr[T]{target: target, held: true}, true
}

// Get returns the target, or the zero value if nothing is held
func (p HardPtr[T]) Get() T {
	return p.target
}

// Valid reports whether the pointer holds a target
func (p HardPtr[T]) Valid() bool {
	return p.held
}

// Clone acquires the target again
func (p HardPtr[T]) Clone() HardPtr[T] {
	if !p.held {
		return HardPtr[T]{}
	}
	return NewHardPtr(p.target)
}

// Move transfers ownership out of p without touching the count
func (p *HardPtr[T]) Move() HardPtr[T] {
	out := *p
	*p = HardPtr[T]{}
	return out
}

// Release drops the held reference, if any
func (p *HardPtr[T]) Release() {
	if !p.held {
		return
	}
	target := p.target
	*p = HardPtr[T]{}
	target.HardRelease()
}

// Set acquires target and releases whatever was held before
func (p *HardPtr[T]) Set(target T) {
	target.HardAcquire()
	old := *p
	*p = HardPtr[T]{target: target, held: true}
	old.Release()
}
