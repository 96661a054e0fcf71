package memory

import (
	"sync/atomic"
	"unsafe"
)

// testNode is a basket-managed object with any number of outgoing edges
type testNode struct {
	SoftCounted
	name      string
	edges     []*SoftPtr[*testNode]
	destroyed *atomic.Int32
}

func newTestNode(alloc Allocator, name string, destroyed *atomic.Int32) HardPtr[*testNode] {
	n := &testNode{name: name, destroyed: destroyed}
	n.SoftCounted.Init(n, alloc, unsafe.Sizeof(*n))
	return NewHardPtr(n)
}

func (n *testNode) link(target *testNode) bool {
	p := &SoftPtr[*testNode]{}
	if !p.Set(n, target) {
		return false
	}
	n.edges = append(n.edges, p)
	return true
}

func (n *testNode) SoftVisit(v Visitor) {
	for _, e := range n.edges {
		e.Visit(v)
	}
}

func (n *testNode) SoftBreakLinks() {
	for _, e := range n.edges {
		e.Reset()
	}
}

func (n *testNode) Destroy() {
	n.SoftBreakLinks()
	if n.destroyed != nil {
		n.destroyed.Add(1)
	}
}

func (n *testNode) String() string {
	return n.name
}

// plainObj is a hard-counted object that never joins a basket
type plainObj struct {
	HardCounted
	destroyed *atomic.Int32
}

func newPlainObj(alloc Allocator, destroyed *atomic.Int32) HardPtr[*plainObj] {
	p := &plainObj{destroyed: destroyed}
	p.HardCounted.Init(p, alloc, unsafe.Sizeof(*p))
	return NewHardPtr(p)
}

func (p *plainObj) Destroy() {
	if p.destroyed != nil {
		p.destroyed.Add(1)
	}
}

// constObj is an uncounted singleton
type constObj struct {
	Uncounted
}

func newConstObj() *constObj {
	c := &constObj{}
	c.Uncounted.Init(c)
	return c
}

func expectPanic(fn func()) (recovered interface{}) {
	defer func() {
		recovered = recover()
	}()
	fn()
	return nil
}
