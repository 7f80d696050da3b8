package arena

import (
	"io"
	"sync"
)

// LockedAllocator wraps a single arena behind one coarse-grained mutex.
// Every public operation, stats updates included, runs under the lock, so
// operations appear in a total order consistent with each goroutine's
// program order.
type LockedAllocator struct {
	mu    sync.Mutex
	a     *Arena
	stats Stats
}

// NewLockedBasic creates a thread-safe allocator running the basic
// (non-coalescing) algorithm.
func NewLockedBasic(poolSize int) (*LockedAllocator, error) {
	a, err := newArena(poolSize, false)
	if err != nil {
		return nil, err
	}
	return &LockedAllocator{a: a}, nil
}

// NewLockedCoalescing creates a thread-safe allocator running the
// boundary-tagged coalescing algorithm.
func NewLockedCoalescing(poolSize int) (*LockedAllocator, error) {
	a, err := newArena(poolSize, true)
	if err != nil {
		return nil, err
	}
	return &LockedAllocator{a: a}, nil
}

// Allocate reserves size bytes at the default alignment.
func (l *LockedAllocator) Allocate(size int) (Ref, []byte, error) {
	return l.AllocateAligned(size, MaxAlign)
}

// AllocateAligned reserves size bytes on an align boundary.
func (l *LockedAllocator) AllocateAligned(size, align int) (Ref, []byte, error) {
	sz, al, err := normalizeRequest(size, align)
	if err != nil {
		return NilRef, nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, payload, err := l.a.allocate(sz, al, &l.stats)
	if err != nil {
		return NilRef, nil, err
	}
	return Ref(payload), l.a.data[payload : payload+sz : payload+sz], nil
}

// Deallocate releases a block. NilRef, foreign handles, and double frees
// are ignored.
func (l *LockedAllocator) Deallocate(ref Ref) {
	if ref == NilRef {
		return
	}
	if ref>>32 != 0 {
		WARN("ignoring foreign reference %#x\n", uint64(ref))
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.a.deallocate(uint32(ref), &l.stats)
}

// Stats returns a snapshot of the usage counters, taken under the lock.
func (l *LockedAllocator) Stats() StatsSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats.Snapshot()
}

// UsedBytes reports bytes reserved by live blocks, metadata included.
func (l *LockedAllocator) UsedBytes() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.UsedBytes()
}

// FreeBlocks counts the free-list entries.
func (l *LockedAllocator) FreeBlocks() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.FreeBlocks()
}

// InternalStats returns the data-plane instrumentation counters.
func (l *LockedAllocator) InternalStats() InternalStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.InternalStats()
}

// DumpFreeList writes a human-readable free-list listing to w.
func (l *LockedAllocator) DumpFreeList(w io.Writer) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.dumpFreeList(w)
}

// Close releases the backing region.
func (l *LockedAllocator) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.close()
}

var _ Allocator = (*LockedAllocator)(nil)
