package memory

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/inhies/go-bytesize"
	"golang.org/x/sys/cpu"
)

// Allocator is the raw memory source for everything in the object graph.
// Collectables charge their footprint to an allocator on creation and give
// it back on destruction, so live statistics reflect the graph.
type Allocator interface {
	Allocate(bytes, alignment uintptr) []byte
	Deallocate(block []byte, alignment uintptr)
	Statistics() (AllocatorStatistics, bool)
}

// AllocatorStatistics is a point-in-time view of an allocator
type AllocatorStatistics struct {
	TotalBlocksAllocated   uint64
	TotalBytesAllocated    uint64
	CurrentBlocksAllocated uint64
	CurrentBytesAllocated  uint64
}

// String renders the statistics with human-readable byte sizes
func (s AllocatorStatistics) String() string {
	return fmt.Sprintf("blocks %d/%d, bytes %s/%s",
		s.CurrentBlocksAllocated, s.TotalBlocksAllocated,
		bytesize.New(float64(s.CurrentBytesAllocated)),
		bytesize.New(float64(s.TotalBytesAllocated)))
}

// paddedCounter keeps each hot statistics counter on its own cache line;
// every allocation from every goroutine touches these.
type paddedCounter struct {
	_ cpu.CacheLinePad
	n atomic.Uint64
}

// DefaultAllocator hands out aligned, zeroed Go byte blocks and counts them
type DefaultAllocator struct {
	allocatedBlocks   paddedCounter
	allocatedBytes    paddedCounter
	deallocatedBlocks paddedCounter
	deallocatedBytes  paddedCounter
	_                 cpu.CacheLinePad
}

// NewDefaultAllocator creates an allocator with zeroed statistics
func NewDefaultAllocator() *DefaultAllocator {
	return &DefaultAllocator{}
}

// Allocate returns a block of exactly bytes length whose first byte is
// aligned to alignment (a power of two; zero means pointer alignment)
func (a *DefaultAllocator) Allocate(bytes, alignment uintptr) []byte {
	alignment = normalizeAlignment(alignment)
	raw := make([]byte, bytes+alignment)
	offset := uintptr(0)
	if len(raw) > 0 {
		if rem := uintptr(unsafe.Pointer(&raw[0])) & (alignment - 1); rem != 0 {
			offset = alignment - rem
		}
	}
	block := raw[offset : offset+bytes : offset+bytes]
	a.allocatedBlocks.n.Add(1)
	a.allocatedBytes.n.Add(uint64(bytes))
	return block
}

// Deallocate returns a block; its contents are scrubbed so stale readers
// see zeroes rather than plausible data
func (a *DefaultAllocator) Deallocate(block []byte, alignment uintptr) {
	Assert(block != nil, "deallocating a nil block")
	for i := range block {
		block[i] = 0
	}
	a.deallocatedBlocks.n.Add(1)
	a.deallocatedBytes.n.Add(uint64(len(block)))
}

// Statistics reports totals and the currently outstanding amounts
func (a *DefaultAllocator) Statistics() (AllocatorStatistics, bool) {
	var out AllocatorStatistics
	out.TotalBlocksAllocated = a.allocatedBlocks.n.Load()
	out.TotalBytesAllocated = a.allocatedBytes.n.Load()
	out.CurrentBlocksAllocated = statDiff(out.TotalBlocksAllocated, a.deallocatedBlocks.n.Load())
	out.CurrentBytesAllocated = statDiff(out.TotalBytesAllocated, a.deallocatedBytes.n.Load())
	return out, true
}

// Concurrent readers can observe a deallocation before its allocation
func statDiff(a, b uint64) uint64 {
	if a < b {
		return 0
	}
	return a - b
}

func normalizeAlignment(alignment uintptr) uintptr {
	if alignment == 0 {
		return unsafe.Alignof(uintptr(0))
	}
	Assert(alignment&(alignment-1) == 0, "alignment %d is not a power of two", alignment)
	return alignment
}
