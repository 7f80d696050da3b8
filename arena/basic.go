package arena

import "io"

// BasicAllocator is the simplest variant: first-fit over a singly linked
// free list with push-at-head insertion, no boundary tags, no coalescing.
// Freed neighbors are never merged, so long-running mixed workloads
// fragment; that is the point of the variant. Not safe for concurrent use.
type BasicAllocator struct {
	a     *Arena
	stats Stats
}

// NewBasic creates a basic allocator over a fresh region of poolSize bytes.
func NewBasic(poolSize int) (*BasicAllocator, error) {
	a, err := newArena(poolSize, false)
	if err != nil {
		return nil, err
	}
	return &BasicAllocator{a: a}, nil
}

// Allocate reserves size bytes at the default alignment.
func (b *BasicAllocator) Allocate(size int) (Ref, []byte, error) {
	return b.AllocateAligned(size, MaxAlign)
}

// AllocateAligned reserves size bytes on an align boundary.
func (b *BasicAllocator) AllocateAligned(size, align int) (Ref, []byte, error) {
	sz, al, err := normalizeRequest(size, align)
	if err != nil {
		return NilRef, nil, err
	}
	_, payload, err := b.a.allocate(sz, al, &b.stats)
	if err != nil {
		return NilRef, nil, err
	}
	return Ref(payload), b.a.data[payload : payload+sz : payload+sz], nil
}

// Deallocate releases a block. NilRef, foreign handles, and double frees
// are ignored.
func (b *BasicAllocator) Deallocate(ref Ref) {
	if ref == NilRef {
		return
	}
	if ref>>32 != 0 {
		WARN("ignoring foreign reference %#x\n", uint64(ref))
		return
	}
	b.a.deallocate(uint32(ref), &b.stats)
}

// Stats returns a snapshot of the usage counters.
func (b *BasicAllocator) Stats() StatsSnapshot { return b.stats.Snapshot() }

// UsedBytes reports bytes reserved by live blocks, metadata included.
func (b *BasicAllocator) UsedBytes() uint64 { return b.a.UsedBytes() }

// FreeBlocks counts the free-list entries.
func (b *BasicAllocator) FreeBlocks() int { return b.a.FreeBlocks() }

// LargestFree reports the largest free block's total size.
func (b *BasicAllocator) LargestFree() int { return int(b.a.LargestFree()) }

// InternalStats returns the data-plane instrumentation counters.
func (b *BasicAllocator) InternalStats() InternalStats { return b.a.InternalStats() }

// DumpFreeList writes a human-readable free-list listing to w.
func (b *BasicAllocator) DumpFreeList(w io.Writer) error { return b.a.dumpFreeList(w) }

// Close releases the backing region.
func (b *BasicAllocator) Close() error { return b.a.close() }

var _ Allocator = (*BasicAllocator)(nil)
