package arena

import "io"

// CoalescingAllocator implements boundary-tagged immediate coalescing over
// an address-ordered doubly-linked free list. Freeing a block merges it
// with free neighbors on both sides, so no two adjacent free blocks ever
// survive an operation. Not safe for concurrent use.
type CoalescingAllocator struct {
	a     *Arena
	stats Stats
}

// NewCoalescing creates a coalescing allocator over a fresh region of
// poolSize bytes.
func NewCoalescing(poolSize int) (*CoalescingAllocator, error) {
	a, err := newArena(poolSize, true)
	if err != nil {
		return nil, err
	}
	return &CoalescingAllocator{a: a}, nil
}

// Allocate reserves size bytes at the default alignment.
func (c *CoalescingAllocator) Allocate(size int) (Ref, []byte, error) {
	return c.AllocateAligned(size, MaxAlign)
}

// AllocateAligned reserves size bytes on an align boundary.
func (c *CoalescingAllocator) AllocateAligned(size, align int) (Ref, []byte, error) {
	sz, al, err := normalizeRequest(size, align)
	if err != nil {
		return NilRef, nil, err
	}
	_, payload, err := c.a.allocate(sz, al, &c.stats)
	if err != nil {
		return NilRef, nil, err
	}
	return Ref(payload), c.a.data[payload : payload+sz : payload+sz], nil
}

// Deallocate releases a block and coalesces with free neighbors. NilRef,
// foreign handles, and double frees are ignored.
func (c *CoalescingAllocator) Deallocate(ref Ref) {
	if ref == NilRef {
		return
	}
	if ref>>32 != 0 {
		WARN("ignoring foreign reference %#x\n", uint64(ref))
		return
	}
	c.a.deallocate(uint32(ref), &c.stats)
}

// Stats returns a snapshot of the usage counters.
func (c *CoalescingAllocator) Stats() StatsSnapshot { return c.stats.Snapshot() }

// UsedBytes reports bytes reserved by live blocks, metadata included.
func (c *CoalescingAllocator) UsedBytes() uint64 { return c.a.UsedBytes() }

// FreeBlocks counts the free-list entries.
func (c *CoalescingAllocator) FreeBlocks() int { return c.a.FreeBlocks() }

// LargestFree reports the largest free block's total size.
func (c *CoalescingAllocator) LargestFree() int { return int(c.a.LargestFree()) }

// InternalStats returns the data-plane instrumentation counters.
func (c *CoalescingAllocator) InternalStats() InternalStats { return c.a.InternalStats() }

// DumpFreeList writes a human-readable free-list listing to w.
func (c *CoalescingAllocator) DumpFreeList(w io.Writer) error { return c.a.dumpFreeList(w) }

// Close releases the backing region.
func (c *CoalescingAllocator) Close() error { return c.a.close() }

var _ Allocator = (*CoalescingAllocator)(nil)
