package memory

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"unsafe"
)

// Basket is a collection group: the set of soft-counted objects among
// which cycles are detected and reclaimed. Membership holds no reference;
// a member whose count reaches zero removes itself. The basket itself is
// hard-counted and purges all members when its last reference goes.
type Basket struct {
	HardCounted

	allocator Allocator
	logger    *slog.Logger
	strict    bool

	mu      sync.RWMutex
	members arena
	index   map[Collectable]Handle

	pass       sync.Mutex
	collecting atomic.Bool
}

// BasketStatistics extends the allocator view with the member count
type BasketStatistics struct {
	AllocatorStatistics
	CurrentBlocksOwned uint64
}

func (s BasketStatistics) String() string {
	return fmt.Sprintf("owned %d, %s", s.CurrentBlocksOwned, s.AllocatorStatistics)
}

// Option configures a basket
type Option func(*Basket)

// WithLogger sets the logger for collection passes
func WithLogger(logger *slog.Logger) Option {
	return func(b *Basket) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithStrict makes Validate panic on the first violation
func WithStrict(strict bool) Option {
	return func(b *Basket) {
		b.strict = strict
	}
}

// CreateBasket creates an empty basket charged to allocator
func CreateBasket(allocator Allocator, opts ...Option) HardPtr[*Basket] {
	b := &Basket{
		allocator: allocator,
		logger:    slog.New(slog.DiscardHandler),
		index:     make(map[Collectable]Handle),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.HardCounted.Init(b, allocator, unsafe.Sizeof(*b))
	return NewHardPtr(b)
}

// Allocator returns the allocator the basket was created with
func (b *Basket) Allocator() Allocator {
	return b.allocator
}

// Take adds c to the basket. A member of this basket is left alone
// (Unaltered), a member of another basket is refused (Failed), and objects
// that can never join a basket report Exempt.
func (b *Basket) Take(c Collectable) (Handle, SetBasketResult) {
	Assert(!b.collecting.Load(), "take of %T during a collection pass", c)
	b.mu.Lock()
	defer b.mu.Unlock()
	if h, ok := b.index[c]; ok {
		return h, SetBasketUnaltered
	}
	r := c.SoftSetBasket(b)
	switch r {
	case SetBasketAltered:
		h := b.members.insert(c)
		b.index[c] = h
		return h, r
	case SetBasketUnaltered:
		Assert(false, "%T claims basket membership it does not have", c)
	}
	return Handle{}, r
}

// Drop removes c from the basket without destroying it. Edges that
// remembered c's handle no longer resolve.
func (b *Basket) Drop(c Collectable) bool {
	Assert(!b.collecting.Load(), "drop of %T during a collection pass", c)
	b.mu.Lock()
	h, ok := b.index[c]
	if ok {
		b.members.remove(h)
		delete(b.index, c)
	}
	b.mu.Unlock()
	if ok {
		c.SoftSetBasket(nil)
	}
	return ok
}

// forget is called by a member that is being destroyed
func (b *Basket) forget(c Collectable) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if h, ok := b.index[c]; ok {
		b.members.remove(h)
		delete(b.index, c)
	}
}

// HandleOf returns the handle c was issued
func (b *Basket) HandleOf(c Collectable) (Handle, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	h, ok := b.index[c]
	return h, ok
}

// Resolves reports whether h still addresses c
func (b *Basket) Resolves(h Handle, c Collectable) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	item, ok := b.members.lookup(h)
	return ok && item == c
}

// Lookup returns the member addressed by h
func (b *Basket) Lookup(h Handle) (Collectable, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.members.lookup(h)
}

// Contains reports membership
func (b *Basket) Contains(c Collectable) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.index[c]
	return ok
}

// Len returns the number of members
func (b *Basket) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.members.live
}

// Members returns a snapshot of the members in arena order
func (b *Basket) Members() []Collectable {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Collectable, 0, b.members.live)
	b.members.each(func(_ Handle, c Collectable) {
		out = append(out, c)
	})
	return out
}

// CollectGarbage reclaims every member not reachable by soft edges from a
// root member. It returns the number of members destroyed. The caller must
// keep other goroutines from mutating this basket's graph during the pass.
func (b *Basket) CollectGarbage() int {
	b.pass.Lock()
	defer b.pass.Unlock()
	b.collecting.Store(true)
	defer b.collecting.Store(false)

	members := b.Members()
	marked := make(map[Collectable]struct{}, len(members))
	var stack []Collectable
	for _, m := range members {
		if m.SoftIsRoot() {
			marked[m] = struct{}{}
			stack = append(stack, m)
		}
	}
	roots := len(stack)

	visitor := VisitorFunc(func(target Collectable) {
		if target.SoftGetBasket() != b {
			return
		}
		if _, seen := marked[target]; !seen {
			marked[target] = struct{}{}
			stack = append(stack, target)
		}
	})
	for len(stack) > 0 {
		next := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		next.SoftVisit(visitor)
	}

	var garbage []Collectable
	for _, m := range members {
		if _, live := marked[m]; !live {
			garbage = append(garbage, m)
		}
	}
	_, destroyed := sweep(garbage)
	b.logger.Debug("basket collect",
		"members", len(members),
		"roots", roots,
		"reachable", len(marked),
		"destroyed", destroyed)
	return destroyed
}

// PurgeAll breaks every member's edges and releases each member exactly
// once, roots included. Members still referenced from outside are
// detached. Membership is empty afterwards. It returns the number of
// members released.
func (b *Basket) PurgeAll() int {
	b.pass.Lock()
	defer b.pass.Unlock()
	b.collecting.Store(true)
	defer b.collecting.Store(false)

	members := b.Members()
	released, destroyed := sweep(members)

	b.mu.Lock()
	var survivors []Collectable
	b.members.each(func(_ Handle, c Collectable) {
		survivors = append(survivors, c)
	})
	b.members.reset()
	clear(b.index)
	b.mu.Unlock()
	for _, c := range survivors {
		c.SoftSetBasket(nil)
	}

	b.logger.Debug("basket purge",
		"members", len(members),
		"released", released,
		"destroyed", destroyed,
		"detached", len(survivors))
	return released
}

// Destroy purges the basket when its last hard reference is released
func (b *Basket) Destroy() {
	b.PurgeAll()
}

// sweep pins each object, breaks all of their outgoing edges, then drops
// the pins. Objects kept alive only by edges among themselves reach zero.
// It returns how many objects were pinned and released, and how many of
// those were destroyed.
func sweep(objects []Collectable) (released, destroyed int) {
	pinned := objects[:0:0]
	for _, c := range objects {
		if c.TryHardAcquire() {
			pinned = append(pinned, c)
		}
	}
	for _, c := range pinned {
		if lb, ok := c.(LinkBreaker); ok {
			lb.SoftBreakLinks()
		}
	}
	for _, c := range pinned {
		c.HardRelease()
		if d, ok := c.(interface{ Destroyed() bool }); ok && d.Destroyed() {
			destroyed++
		}
	}
	return len(pinned), destroyed
}

// Validate checks every member and writes violations to w. A strict basket
// panics on the first violation instead.
func (b *Basket) Validate(w io.Writer) bool {
	report := &Violations{AssertOnError: b.strict}
	b.mu.RLock()
	type entry struct {
		h Handle
		c Collectable
	}
	var entries []entry
	b.members.each(func(h Handle, c Collectable) {
		entries = append(entries, entry{h, c})
	})
	indexed, live := len(b.index), b.members.live
	b.mu.RUnlock()

	if indexed != live {
		report.Record("index has %d entries, arena has %d", indexed, live)
	}

	for _, e := range entries {
		if got, ok := b.HandleOf(e.c); !ok || got != e.h {
			report.Record("member %s (%T) indexed as %s", e.h, e.c, got)
		}
		validateMember(b, e.h, e.c, report)
	}
	if w != nil {
		report.WriteTo(w)
	}
	return report.Len() == 0
}

// Verify collects garbage and checks that the remaining membership is
// within [minimum, maximum]. On failure it dumps the members and their
// cycles to w.
func (b *Basket) Verify(w io.Writer, minimum, maximum int) bool {
	b.CollectGarbage()
	ok := b.Validate(w)
	if n := b.Len(); n < minimum || n > maximum {
		fmt.Fprintf(w, "basket has %d members, expected between %d and %d\n", n, minimum, maximum)
		ok = false
	}
	if !ok {
		b.Dump(w)
		snap := b.Snapshot()
		for i, group := range snap.Cycles() {
			fmt.Fprintf(w, "cycle %d:", i)
			for _, node := range group {
				fmt.Fprintf(w, " %s", snap.Label(node))
			}
			fmt.Fprintln(w)
		}
	}
	return ok
}

// Statistics reports the allocator view plus the member count
func (b *Basket) Statistics() (BasketStatistics, bool) {
	var out BasketStatistics
	out.CurrentBlocksOwned = uint64(b.Len())
	if b.allocator == nil {
		return out, false
	}
	stats, ok := b.allocator.Statistics()
	out.AllocatorStatistics = stats
	return out, ok
}

// Dump writes one line per member and a statistics line
func (b *Basket) Dump(w io.Writer) {
	b.mu.RLock()
	var lines []string
	b.members.each(func(h Handle, c Collectable) {
		lines = append(lines, describeMember(h, c))
	})
	b.mu.RUnlock()
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
	if stats, ok := b.Statistics(); ok {
		fmt.Fprintf(w, "statistics: %s\n", stats)
	} else {
		fmt.Fprintf(w, "statistics: owned %d\n", stats.CurrentBlocksOwned)
	}
}

func describeMember(h Handle, c Collectable) string {
	line := fmt.Sprintf("%s %T", h, c)
	if s, ok := c.(fmt.Stringer); ok {
		line += " " + s.String()
	}
	if n, ok := c.(interface {
		HardCount() int64
		SoftCount() int64
	}); ok {
		line += fmt.Sprintf(" total=%d soft=%d", n.HardCount(), n.SoftCount())
	}
	if c.SoftIsRoot() {
		line += " root"
	}
	return line
}
