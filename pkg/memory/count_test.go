package memory

import (
	"sync"
	"sync/atomic"
	"testing"
	"unsafe"
)

func TestAtomicCountBasics(t *testing.T) {
	c := NewAtomicCount(5)
	if c.Get() != 5 {
		t.Errorf("expected 5, got %d", c.Get())
	}
	if prev := c.Add(3); prev != 5 {
		t.Errorf("Add should return previous value 5, got %d", prev)
	}
	if n := c.Increment(); n != 9 {
		t.Errorf("expected 9 after increment, got %d", n)
	}
	if n := c.Decrement(); n != 8 {
		t.Errorf("expected 8 after decrement, got %d", n)
	}
	if c.CompareAndSwap(7, 1) {
		t.Error("CAS with wrong expected value should fail")
	}
	if !c.CompareAndSwap(8, 1) || c.Get() != 1 {
		t.Errorf("CAS should succeed, got %d", c.Get())
	}
}

func TestAtomicCountIncrementIfPositive(t *testing.T) {
	c := NewAtomicCount(1)
	if !c.IncrementIfPositive() || c.Get() != 2 {
		t.Errorf("expected increment to 2, got %d", c.Get())
	}
	c = NewAtomicCount(0)
	if c.IncrementIfPositive() {
		t.Error("zero count must not be resurrected")
	}
	if c.Get() != 0 {
		t.Errorf("count should stay 0, got %d", c.Get())
	}
}

func TestAtomicCountConcurrent(t *testing.T) {
	c := NewAtomicCount(0)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				c.Increment()
				c.Decrement()
				c.Increment()
			}
		}()
	}
	wg.Wait()
	if c.Get() != 8000 {
		t.Errorf("expected 8000, got %d", c.Get())
	}
}

func TestDefaultAllocatorAlignment(t *testing.T) {
	a := NewDefaultAllocator()
	for _, align := range []uintptr{1, 8, 16, 64, 256} {
		block := a.Allocate(24, align)
		if len(block) != 24 {
			t.Errorf("expected 24 bytes, got %d", len(block))
		}
		if addr := uintptr(unsafe.Pointer(&block[0])); addr%align != 0 {
			t.Errorf("block %x not aligned to %d", addr, align)
		}
		a.Deallocate(block, align)
	}
	stats, ok := a.Statistics()
	if !ok {
		t.Fatal("default allocator should report statistics")
	}
	if stats.TotalBlocksAllocated != 5 || stats.CurrentBlocksAllocated != 0 {
		t.Errorf("unexpected statistics: %+v", stats)
	}
	if stats.TotalBytesAllocated != 5*24 || stats.CurrentBytesAllocated != 0 {
		t.Errorf("unexpected byte statistics: %+v", stats)
	}
}

func TestDefaultAllocatorScrubsBlocks(t *testing.T) {
	a := NewDefaultAllocator()
	block := a.Allocate(4, 0)
	copy(block, []byte{1, 2, 3, 4})
	a.Deallocate(block, 0)
	for i, b := range block {
		if b != 0 {
			t.Errorf("byte %d not scrubbed: %d", i, b)
		}
	}
}

func TestDefaultAllocatorRejectsBadAlignment(t *testing.T) {
	if !AssertionsEnabled() {
		t.Skip("assertions compiled out")
	}
	a := NewDefaultAllocator()
	if r := expectPanic(func() { a.Allocate(8, 3) }); r == nil {
		t.Error("expected panic for alignment 3")
	}
}

func TestAllocatorStatisticsString(t *testing.T) {
	s := AllocatorStatistics{TotalBlocksAllocated: 2, CurrentBlocksAllocated: 1, TotalBytesAllocated: 2048, CurrentBytesAllocated: 1024}
	if got := s.String(); got == "" {
		t.Error("expected a rendering")
	}
}

func TestHardCountedDestroyOnce(t *testing.T) {
	alloc := NewDefaultAllocator()
	var destroyed atomic.Int32
	p := newPlainObj(alloc, &destroyed)
	obj := p.Get()
	if obj.HardCount() != 1 {
		t.Errorf("expected count 1, got %d", obj.HardCount())
	}
	q := p.Clone()
	p.Release()
	if destroyed.Load() != 0 {
		t.Error("object destroyed while still referenced")
	}
	q.Release()
	if destroyed.Load() != 1 {
		t.Errorf("expected exactly one destruction, got %d", destroyed.Load())
	}
	if !obj.Destroyed() {
		t.Error("object should report destroyed")
	}
	if obj.TryHardAcquire() {
		t.Error("destroyed object must not be reacquired")
	}
	if stats, _ := alloc.Statistics(); stats.CurrentBlocksAllocated != 0 {
		t.Errorf("footprint not returned: %+v", stats)
	}
}

func TestHardCountedUnderflowPanics(t *testing.T) {
	if !AssertionsEnabled() {
		t.Skip("assertions compiled out")
	}
	p := newPlainObj(nil, nil)
	obj := p.Get()
	p.Release()
	r := expectPanic(func() { obj.HardRelease() })
	if _, ok := r.(*InvariantError); !ok {
		t.Errorf("expected *InvariantError, got %v", r)
	}
}

func TestAcquireAfterDestructionPanics(t *testing.T) {
	if !AssertionsEnabled() {
		t.Skip("assertions compiled out")
	}
	p := newPlainObj(nil, nil)
	obj := p.Get()
	p.Release()
	if r := expectPanic(func() { obj.HardAcquire() }); r == nil {
		t.Error("hard acquire of a destroyed object should panic")
	}

	n := newTestNode(nil, "n", nil)
	node := n.Get()
	n.Release()
	if r := expectPanic(func() { node.SoftAcquire() }); r == nil {
		t.Error("soft acquire of a destroyed object should panic")
	}
}

func TestHardCountedConcurrentAcquireRelease(t *testing.T) {
	var destroyed atomic.Int32
	p := newPlainObj(nil, &destroyed)
	obj := p.Get()
	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				q := NewHardPtr(obj)
				q.Release()
			}
		}()
	}
	wg.Wait()
	if obj.HardCount() != 1 {
		t.Errorf("expected count 1, got %d", obj.HardCount())
	}
	if destroyed.Load() != 0 {
		t.Error("object destroyed during balanced traffic")
	}
	p.Release()
	if destroyed.Load() != 1 {
		t.Errorf("expected one destruction, got %d", destroyed.Load())
	}
}

func TestVariantsBasketCapability(t *testing.T) {
	alloc := NewDefaultAllocator()
	b := CreateBasket(alloc)
	defer b.Release()

	plain := newPlainObj(alloc, nil)
	defer plain.Release()
	if _, r := b.Get().Take(plain.Get()); r != SetBasketExempt {
		t.Errorf("plain object should be exempt, got %v", r)
	}
	c := newConstObj()
	if _, r := b.Get().Take(c); r != SetBasketExempt {
		t.Errorf("constant should be exempt, got %v", r)
	}
	if !c.SoftIsRoot() || !plain.Get().SoftIsRoot() {
		t.Error("exempt variants are always roots")
	}
	if b.Get().Len() != 0 {
		t.Errorf("exempt objects must not join, got %d members", b.Get().Len())
	}
}

func TestUncountedIsNeverDestroyed(t *testing.T) {
	c := newConstObj()
	p := NewHardPtr[Collectable](c)
	p.Release()
	c.HardRelease()
	if !c.TryHardAcquire() || !c.Validate() {
		t.Error("uncounted object should stay valid")
	}
}

func TestSetBasketResultString(t *testing.T) {
	if SetBasketFailed.String() != "Failed" || SetBasketResult(9).String() != "SetBasketResult(9)" {
		t.Error("unexpected SetBasketResult rendering")
	}
}
