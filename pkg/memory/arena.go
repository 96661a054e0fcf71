package memory

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
)

// Generation tags an arena slot. A handle remembers the generation it was
// issued with; freeing a slot bumps it, so every older handle goes stale.
// Fresh slots start from a random generation so that handles issued by
// different baskets are unlikely to collide.
type Generation uint64

// Handle addresses one member entry of a basket
type Handle struct {
	Index      uint32
	Generation Generation
}

// Valid reports a handle that was ever issued
func (h Handle) Valid() bool {
	return h.Generation != 0
}

func (h Handle) String() string {
	return fmt.Sprintf("#%d@%x", h.Index, uint64(h.Generation))
}

// randomGeneration returns a non-zero random generation
func randomGeneration() Generation {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return Generation(0xDEADBEEF)
	}
	if g := Generation(binary.LittleEndian.Uint64(buf[:])); g != 0 {
		return g
	}
	return 1
}

func nextGeneration(g Generation) Generation {
	g++
	if g == 0 {
		g = 1
	}
	return g
}

type arenaEntry struct {
	item       Collectable
	generation Generation
	live       bool
}

// arena is a slab of member entries with a free list. Not safe for
// concurrent use; the basket serializes access.
type arena struct {
	entries []arenaEntry
	free    []uint32
	live    int
}

func (a *arena) insert(item Collectable) Handle {
	var index uint32
	if n := len(a.free); n > 0 {
		index = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		index = uint32(len(a.entries))
		a.entries = append(a.entries, arenaEntry{generation: randomGeneration()})
	}
	e := &a.entries[index]
	Assert(!e.live, "arena slot %d reused while live", index)
	e.item = item
	e.live = true
	a.live++
	return Handle{Index: index, Generation: e.generation}
}

func (a *arena) lookup(h Handle) (Collectable, bool) {
	if int(h.Index) >= len(a.entries) {
		return nil, false
	}
	e := &a.entries[h.Index]
	if !e.live || e.generation != h.Generation {
		return nil, false
	}
	return e.item, true
}

func (a *arena) remove(h Handle) bool {
	if _, ok := a.lookup(h); !ok {
		return false
	}
	e := &a.entries[h.Index]
	e.item = nil
	e.live = false
	e.generation = nextGeneration(e.generation)
	a.free = append(a.free, h.Index)
	a.live--
	return true
}

func (a *arena) each(fn func(Handle, Collectable)) {
	for i := range a.entries {
		e := &a.entries[i]
		if e.live {
			fn(Handle{Index: uint32(i), Generation: e.generation}, e.item)
		}
	}
}

// reset frees every slot, bumping generations so outstanding handles go stale
func (a *arena) reset() {
	for i := range a.entries {
		e := &a.entries[i]
		if e.live {
			e.item = nil
			e.live = false
			e.generation = nextGeneration(e.generation)
			a.free = append(a.free, uint32(i))
		}
	}
	a.live = 0
}
