package memory

import "sync/atomic"

// AtomicCount is a lock-free signed counter. It is signed so that an
// underflow (a release without a matching acquire) is observable.
type AtomicCount struct {
	n atomic.Int64
}

// NewAtomicCount creates a counter with an initial value
func NewAtomicCount(initial int64) *AtomicCount {
	c := &AtomicCount{}
	c.n.Store(initial)
	return c
}

// Get returns the current value
func (c *AtomicCount) Get() int64 {
	return c.n.Load()
}

// Add adds delta and returns the previous value (fetch-and-add)
func (c *AtomicCount) Add(delta int64) int64 {
	return c.n.Add(delta) - delta
}

// Increment adds one and returns the new value
func (c *AtomicCount) Increment() int64 {
	return c.n.Add(1)
}

// Decrement subtracts one and returns the new value
func (c *AtomicCount) Decrement() int64 {
	return c.n.Add(-1)
}

// CompareAndSwap sets the counter to desired if it currently holds expected
func (c *AtomicCount) CompareAndSwap(expected, desired int64) bool {
	return c.n.CompareAndSwap(expected, desired)
}

// IncrementIfPositive increments the counter unless it is zero or negative.
// Once a count has reached zero the object is being destroyed and must not
// be resurrected.
func (c *AtomicCount) IncrementIfPositive() bool {
	for {
		last := c.n.Load()
		if last <= 0 {
			return false
		}
		if c.n.CompareAndSwap(last, last+1) {
			return true
		}
	}
}
