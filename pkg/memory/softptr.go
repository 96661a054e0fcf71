package memory

// noCopy may be embedded into structs which must not be copied after the
// first use. See https://golang.org/issues/8005#issuecomment-190753527
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// SoftPtr is a soft edge from a container to a target in the same basket.
// Installing it soft-acquires the target, resetting it soft-releases. It
// remembers the handle the target was issued by its basket, so a target
// that left the basket resolves to nothing. Exempt targets (primitives,
// constants) are held by an ordinary reference and always resolve.
type SoftPtr[T Collectable] struct {
	_      noCopy
	target T
	basket *Basket
	handle Handle
	linked bool
}

// Set links container to target, then releases any previous target. A
// target without a basket joins the container's; a container without a
// basket joins the target's. It fails when neither has a basket or when
// they belong to different baskets, leaving the previous edge in place.
func (p *SoftPtr[T]) Set(container Collectable, target T) bool {
	tb := target.SoftGetBasket()
	if tb == nil && target.SoftSetBasket(nil) == SetBasketExempt {
		target.SoftAcquire()
		p.replace(target, nil, Handle{})
		return true
	}
	cb := container.SoftGetBasket()
	switch {
	case tb == nil && cb == nil:
		return false
	case tb == nil:
		if _, r := cb.Take(target); r != SetBasketAltered && r != SetBasketUnaltered {
			return false
		}
		tb = cb
	case cb == nil:
		if _, r := tb.Take(container); r != SetBasketAltered && r != SetBasketUnaltered {
			return false
		}
	case tb != cb:
		return false
	}
	h, ok := tb.HandleOf(target)
	if !ok {
		return false
	}
	target.SoftAcquire()
	p.replace(target, tb, h)
	return true
}

// replace installs an already acquired target and releases the old one
func (p *SoftPtr[T]) replace(target T, basket *Basket, handle Handle) {
	old, wasLinked := p.target, p.linked
	p.target, p.basket, p.handle, p.linked = target, basket, handle, true
	if wasLinked {
		old.SoftRelease()
	}
}

// Get returns the target, or the zero value if unlinked or stale
func (p *SoftPtr[T]) Get() T {
	var zero T
	if !p.linked {
		return zero
	}
	if p.basket != nil && !p.basket.Resolves(p.handle, p.target) {
		return zero
	}
	return p.target
}

// Linked reports whether the edge is installed (stale or not)
func (p *SoftPtr[T]) Linked() bool {
	return p.linked
}

// Handle returns the remembered arena handle; exempt targets have none
func (p *SoftPtr[T]) Handle() Handle {
	return p.handle
}

// Visit calls visitor on the target of an installed edge
func (p *SoftPtr[T]) Visit(visitor Visitor) {
	if p.linked {
		visitor.Visit(p.target)
	}
}

// Reset removes the edge
func (p *SoftPtr[T]) Reset() {
	if !p.linked {
		return
	}
	target := p.target
	*p = SoftPtr[T]{}
	target.SoftRelease()
}

// Move transfers the edge into dst, which must be in the same basket as
// the container of p
func (p *SoftPtr[T]) Move(dst *SoftPtr[T]) {
	if p == dst {
		return
	}
	dst.Reset()
	dst.target, dst.basket, dst.handle, dst.linked = p.target, p.basket, p.handle, p.linked
	*p = SoftPtr[T]{}
}
