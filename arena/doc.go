// Package arena provides in-process memory allocators built on contiguous
// byte regions acquired from the host.
//
// # Overview
//
// An Arena is a fixed-size byte region tiled end to end by blocks. Block
// metadata (header, optional boundary-tag footer) lives inside the region
// itself, addressed by uint32 byte offsets rather than raw pointers. Free
// blocks carry their free-list links inside the payload area that would
// otherwise be user space.
//
// # Allocator variants
//
// Four allocators share the same surface and form a progression:
//
//   - BasicAllocator: single-goroutine, first-fit, no coalescing
//   - CoalescingAllocator: single-goroutine, boundary-tagged immediate
//     coalescing with an address-ordered doubly-linked free list
//   - LockedAllocator: either algorithm behind one coarse mutex, with
//     usage statistics
//   - PerThreadAllocator: per-goroutine arena + small-object cache,
//     manager-owned arenas, optional background reclamation
//
// # Usage Example
//
//	al, err := arena.NewCoalescing(1 << 20)
//	if err != nil {
//	    return err
//	}
//	defer al.Close()
//
//	ref, buf, err := al.Allocate(128)
//	if err != nil {
//	    return err
//	}
//
//	// Write into buf...
//	copy(buf, payload)
//
//	// Later, release the block
//	al.Deallocate(ref)
//
// # References
//
// Allocate returns an opaque Ref alongside the payload slice. For the
// single-arena allocators the Ref is the payload offset inside the region.
// The per-goroutine allocator packs the owning arena's id into the upper
// half, so a block allocated on one goroutine can be released from any
// other: Deallocate resolves the owner through the arena manager instead of
// the caller's binding.
//
// # Small allocations
//
// PerThreadAllocator serves requests of at most 256 bytes from a
// per-binding cache with four size classes (32, 64, 128, 256 bytes).
// Cache chunks are individual host allocations and never come from an
// Arena; freed chunks return to the cache of the goroutine that freed
// them.
//
// # Failure semantics
//
// Allocation failure is a benign ErrNoSpace; callers may retry after
// freeing. Invalid frees (nil, foreign, double) are ignored; foreign and
// double frees are logged at warn level, nil frees silently. A free-list
// node that fails its magic check stops the walk at that node (its links
// are not followed, so blocks further down the list are not searched on
// that call) and is never repaired. Nothing in this package terminates the
// process.
//
// # Thread Safety
//
// BasicAllocator and CoalescingAllocator are not safe for concurrent use.
// LockedAllocator serializes every operation behind one mutex.
// PerThreadAllocator is safe for concurrent use; each managed arena has
// its own mutex and the statistics counters are atomic.
package arena
