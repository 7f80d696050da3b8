package arena

import "github.com/joshuapare/arenakit/internal/format"

// MaxAlign is the default payload alignment, the platform's maximum
// fundamental alignment.
const MaxAlign = 16

// maxAlignSupported bounds caller-chosen alignments at the page size the
// backing regions are mapped on.
const maxAlignSupported = 4096

// maxRequest caps a single allocation request.
const maxRequest = 1 << 30

// Ref is an opaque handle for an allocated block, returned by Allocate
// alongside the payload slice and consumed by Deallocate. For single-arena
// allocators it is the payload offset inside the region; PerThreadAllocator
// packs the owning arena's id into the upper 32 bits so frees route to the
// right arena no matter which goroutine performs them.
type Ref uint64

// NilRef is the zero handle. Deallocating it is a no-op.
const NilRef Ref = 0

// Allocator is the surface shared by all four variants.
//
// Implementations:
//   - BasicAllocator: first-fit, no coalescing, single-goroutine
//   - CoalescingAllocator: boundary-tagged coalescing, single-goroutine
//   - LockedAllocator: either algorithm behind one mutex
//   - PerThreadAllocator: per-goroutine arena + small cache
type Allocator interface {
	// Allocate reserves size bytes at the default alignment. A size of 0
	// is normalized to 1. Returns the handle and the payload slice.
	Allocate(size int) (Ref, []byte, error)

	// AllocateAligned reserves size bytes whose payload lands on an align
	// boundary. align must be a power of two.
	AllocateAligned(size, align int) (Ref, []byte, error)

	// Deallocate releases a previously allocated block. NilRef, foreign
	// handles, and double frees are ignored.
	Deallocate(ref Ref)

	// Stats returns a snapshot of the usage counters.
	Stats() StatsSnapshot

	// Close releases all backing storage. The allocator is unusable
	// afterwards.
	Close() error
}

// normalizeRequest applies the shared request rules: size >= 0 with 0
// promoted to 1, align a power of two no larger than a page.
func normalizeRequest(size, align int) (uint32, uint32, error) {
	if size < 0 || size > maxRequest {
		return 0, 0, ErrBadSize
	}
	if size == 0 {
		size = 1
	}
	if align <= 0 || align > maxAlignSupported || !format.IsPowerOfTwo(uint32(align)) {
		return 0, 0, ErrBadAlign
	}
	return uint32(size), uint32(align), nil
}
