package memory

import (
	"bytes"
	"strings"
	"sync/atomic"
	"testing"
)

func TestSoftPtrCounts(t *testing.T) {
	b := CreateBasket(nil)
	defer b.Release()
	x := newTestNode(nil, "x", nil)
	defer x.Release()
	y := newTestNode(nil, "y", nil)
	defer y.Release()
	b.Get().Take(x.Get())

	var p SoftPtr[*testNode]
	if !p.Set(x.Get(), y.Get()) {
		t.Fatal("set should succeed")
	}
	if y.Get().HardCount() != 2 || y.Get().SoftCount() != 1 {
		t.Errorf("expected total 2 soft 1, got %d %d", y.Get().HardCount(), y.Get().SoftCount())
	}
	if y.Get().SoftGetBasket() != b.Get() {
		t.Error("target should join the container's basket")
	}
	if p.Get() != y.Get() {
		t.Error("edge should resolve to its target")
	}
	if !y.Get().SoftIsRoot() {
		t.Error("target with a hard reference is a root")
	}
	p.Reset()
	if y.Get().HardCount() != 1 || y.Get().SoftCount() != 0 {
		t.Errorf("expected total 1 soft 0, got %d %d", y.Get().HardCount(), y.Get().SoftCount())
	}
	if p.Get() != nil || p.Linked() {
		t.Error("reset edge should be empty")
	}
}

func TestSoftPtrContainerJoinsTargetBasket(t *testing.T) {
	b := CreateBasket(nil)
	defer b.Release()
	x := newTestNode(nil, "x", nil)
	defer x.Release()
	y := newTestNode(nil, "y", nil)
	defer y.Release()
	b.Get().Take(y.Get())

	if !x.Get().link(y.Get()) {
		t.Fatal("link should succeed")
	}
	if x.Get().SoftGetBasket() != b.Get() {
		t.Error("container should join the target's basket")
	}
}

func TestSoftPtrNeedsABasket(t *testing.T) {
	x := newTestNode(nil, "x", nil)
	defer x.Release()
	y := newTestNode(nil, "y", nil)
	defer y.Release()
	if x.Get().link(y.Get()) {
		t.Error("link without any basket should fail")
	}
	if y.Get().SoftCount() != 0 {
		t.Errorf("failed link must not count, got %d", y.Get().SoftCount())
	}
}

func TestSoftPtrAcrossBasketsFails(t *testing.T) {
	b1 := CreateBasket(nil)
	defer b1.Release()
	b2 := CreateBasket(nil)
	defer b2.Release()
	x := newTestNode(nil, "x", nil)
	defer x.Release()
	y := newTestNode(nil, "y", nil)
	defer y.Release()
	b1.Get().Take(x.Get())
	b2.Get().Take(y.Get())
	if x.Get().link(y.Get()) {
		t.Error("cross-basket link should fail")
	}
}

func TestSoftPtrExemptTarget(t *testing.T) {
	var destroyed atomic.Int32
	plain := newPlainObj(nil, &destroyed)
	x := newTestNode(nil, "x", nil)
	defer x.Release()

	var p SoftPtr[Collectable]
	if !p.Set(x.Get(), plain.Get()) {
		t.Fatal("exempt target needs no basket")
	}
	if p.Handle().Valid() {
		t.Error("exempt target has no arena handle")
	}
	plain.Release()
	if destroyed.Load() != 0 {
		t.Error("edge to a plain object keeps it alive")
	}
	visited := 0
	p.Visit(VisitorFunc(func(Collectable) { visited++ }))
	if visited != 1 {
		t.Errorf("expected 1 visit, got %d", visited)
	}
	p.Reset()
	if destroyed.Load() != 1 {
		t.Errorf("reset should release the plain object, got %d", destroyed.Load())
	}
}

func TestSoftPtrMove(t *testing.T) {
	b := CreateBasket(nil)
	defer b.Release()
	x := newTestNode(nil, "x", nil)
	defer x.Release()
	y := newTestNode(nil, "y", nil)
	defer y.Release()
	b.Get().Take(x.Get())

	var p, q SoftPtr[*testNode]
	p.Set(x.Get(), y.Get())
	p.Move(&q)
	if p.Linked() || q.Get() != y.Get() {
		t.Error("move should transfer the edge")
	}
	if y.Get().SoftCount() != 1 {
		t.Errorf("move must not touch counts, got soft %d", y.Get().SoftCount())
	}
	q.Reset()
}

func TestSoftPtrSetSameTarget(t *testing.T) {
	var destroyed atomic.Int32
	b := CreateBasket(nil)
	defer b.Release()
	x := newTestNode(nil, "x", nil)
	defer x.Release()
	y := newTestNode(nil, "y", &destroyed)
	b.Get().Take(x.Get())

	var p SoftPtr[*testNode]
	p.Set(x.Get(), y.Get())
	target := y.Get()
	y.Release()
	if !p.Set(x.Get(), target) {
		t.Fatal("re-setting the same target should succeed")
	}
	if destroyed.Load() != 0 {
		t.Fatal("target held only by the edge was destroyed by re-setting it")
	}
	if target.HardCount() != 1 || target.SoftCount() != 1 {
		t.Errorf("expected total 1 soft 1, got %d %d", target.HardCount(), target.SoftCount())
	}
	if p.Get() != target {
		t.Error("edge should still resolve")
	}
	p.Reset()
	if destroyed.Load() != 1 {
		t.Errorf("expected one destruction after reset, got %d", destroyed.Load())
	}
}

func TestSoftPtrFailedSetKeepsEdge(t *testing.T) {
	b1 := CreateBasket(nil)
	defer b1.Release()
	b2 := CreateBasket(nil)
	defer b2.Release()
	x := newTestNode(nil, "x", nil)
	defer x.Release()
	y := newTestNode(nil, "y", nil)
	defer y.Release()
	z := newTestNode(nil, "z", nil)
	defer z.Release()
	b1.Get().Take(x.Get())
	b2.Get().Take(z.Get())

	var p SoftPtr[*testNode]
	if !p.Set(x.Get(), y.Get()) {
		t.Fatal("set should succeed")
	}
	if p.Set(x.Get(), z.Get()) {
		t.Fatal("cross-basket set should fail")
	}
	if !p.Linked() || p.Get() != y.Get() {
		t.Error("failed set must leave the previous edge in place")
	}
	if y.Get().SoftCount() != 1 || z.Get().SoftCount() != 0 {
		t.Errorf("expected soft counts 1 and 0, got %d %d", y.Get().SoftCount(), z.Get().SoftCount())
	}
	p.Reset()
}

// ============ Arena ============

func TestArenaGenerations(t *testing.T) {
	var a arena
	x := newConstObj()
	h1 := a.insert(x)
	if got, ok := a.lookup(h1); !ok || got != x {
		t.Fatal("fresh handle should resolve")
	}
	if !a.remove(h1) {
		t.Fatal("remove should succeed")
	}
	if _, ok := a.lookup(h1); ok {
		t.Error("removed handle must be stale")
	}
	if a.remove(h1) {
		t.Error("double remove should fail")
	}

	h2 := a.insert(x)
	if h2.Index != h1.Index {
		t.Errorf("free slot should be reused, got %d want %d", h2.Index, h1.Index)
	}
	if h2.Generation == h1.Generation {
		t.Error("reused slot must carry a new generation")
	}
	if _, ok := a.lookup(h1); ok {
		t.Error("old handle must not resolve to the new occupant")
	}
	if a.live != 1 {
		t.Errorf("expected 1 live entry, got %d", a.live)
	}

	a.reset()
	if _, ok := a.lookup(h2); ok || a.live != 0 {
		t.Error("reset should invalidate every handle")
	}
	if _, ok := a.lookup(Handle{Index: 99, Generation: 1}); ok {
		t.Error("out of range handle should not resolve")
	}
}

func TestHandleZeroValue(t *testing.T) {
	var h Handle
	if h.Valid() {
		t.Error("zero handle should be invalid")
	}
	if randomGeneration() == 0 {
		t.Error("generations are never zero")
	}
	if nextGeneration(^Generation(0)) == 0 {
		t.Error("generation wrap should skip zero")
	}
}

// ============ Snapshot ============

func TestSnapshotCycles(t *testing.T) {
	b := CreateBasket(nil)
	defer b.Release()
	x := newTestNode(nil, "x", nil)
	defer x.Release()
	y := newTestNode(nil, "y", nil)
	defer y.Release()
	z := newTestNode(nil, "z", nil)
	defer z.Release()
	b.Get().Take(x.Get())
	x.Get().link(y.Get())
	y.Get().link(x.Get())
	y.Get().link(z.Get())

	snap := b.Get().Snapshot()
	if snap.NumNodes() != 3 {
		t.Fatalf("expected 3 nodes, got %d", snap.NumNodes())
	}
	cycles := snap.Cycles()
	if len(cycles) != 1 || len(cycles[0]) != 2 {
		t.Fatalf("expected one 2-node cycle, got %v", cycles)
	}
	marks := snap.InCycle()
	for i, n := range snap.Nodes {
		want := n != Collectable(z.Get())
		if marks[i] != want {
			t.Errorf("node %s: in cycle = %v, want %v", snap.Label(i), marks[i], want)
		}
	}

	var out bytes.Buffer
	snap.WriteDot(&out)
	if !strings.Contains(out.String(), "red") {
		t.Errorf("expected cycle highlighting in %q", out.String())
	}
	x.Get().SoftBreakLinks()
	y.Get().SoftBreakLinks()
}

// ============ Scopes ============

func TestHardScopeReleasesOnClose(t *testing.T) {
	var destroyed atomic.Int32
	stack := NewScopeStack()
	outer := Own(stack.Current(), newPlainObj(nil, &destroyed))

	stack.Enter()
	inner := Own(stack.Current(), newPlainObj(nil, &destroyed))
	stack.Current().Acquire(outer)
	if stack.Depth() != 1 || stack.Current().Len() != 2 {
		t.Errorf("unexpected scope state: depth %d len %d", stack.Depth(), stack.Current().Len())
	}
	if !stack.Exit() {
		t.Fatal("exit of a nested scope should succeed")
	}
	if !inner.Destroyed() || outer.Destroyed() {
		t.Error("inner scope should release only its own references")
	}
	if stack.Exit() {
		t.Error("root scope cannot be exited")
	}
	stack.Close()
	if destroyed.Load() != 2 {
		t.Errorf("expected 2 destroyed, got %d", destroyed.Load())
	}
}

func TestHardScopeReleaseOne(t *testing.T) {
	var destroyed atomic.Int32
	scope := NewHardScope(nil)
	a := Own(scope, newPlainObj(nil, &destroyed))
	b := Own(scope, newPlainObj(nil, &destroyed))
	if !scope.Release(a) {
		t.Fatal("scope should hold a")
	}
	if scope.Release(a) {
		t.Error("a was already released")
	}
	if !a.Destroyed() || b.Destroyed() || scope.Len() != 1 {
		t.Errorf("expected only a destroyed, scope len %d", scope.Len())
	}
	scope.Close()
	if destroyed.Load() != 2 {
		t.Errorf("expected 2 destroyed, got %d", destroyed.Load())
	}
}

// ============ HardPtr ============

func TestHardPtrCloneMoveSet(t *testing.T) {
	var destroyed atomic.Int32
	p := newPlainObj(nil, &destroyed)
	obj := p.Get()

	q := p.Clone()
	if obj.HardCount() != 2 {
		t.Errorf("clone should acquire, got %d", obj.HardCount())
	}
	r := q.Move()
	if q.Valid() || obj.HardCount() != 2 {
		t.Error("move should transfer without counting")
	}
	r.Release()
	r.Release()
	if obj.HardCount() != 1 {
		t.Errorf("double release of an empty pointer is a no-op, got %d", obj.HardCount())
	}

	other := newPlainObj(nil, &destroyed)
	p.Set(other.Get())
	if destroyed.Load() != 1 {
		t.Errorf("set should release the previous target, got %d", destroyed.Load())
	}
	other.Release()
	p.Release()
	if destroyed.Load() != 2 {
		t.Errorf("expected 2 destroyed, got %d", destroyed.Load())
	}

	if _, ok := TryHardPtr(obj); ok {
		t.Error("destroyed target must not be reacquired")
	}
}

// ============ Benchmarks ============

func BenchmarkHardAcquireRelease(b *testing.B) {
	p := newPlainObj(nil, nil)
	obj := p.Get()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		obj.HardAcquire()
		obj.HardRelease()
	}
}

func BenchmarkSoftPtrSetReset(b *testing.B) {
	basket := CreateBasket(nil)
	x := newTestNode(nil, "x", nil)
	y := newTestNode(nil, "y", nil)
	basket.Get().Take(x.Get())
	var p SoftPtr[*testNode]
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.Set(x.Get(), y.Get())
		p.Reset()
	}
}

func BenchmarkCollectCycle(b *testing.B) {
	basket := CreateBasket(nil)
	for i := 0; i < b.N; i++ {
		x := newTestNode(nil, "x", nil)
		y := newTestNode(nil, "y", nil)
		basket.Get().Take(x.Get())
		x.Get().link(y.Get())
		y.Get().link(x.Get())
		x.Release()
		y.Release()
		basket.Get().CollectGarbage()
	}
}
