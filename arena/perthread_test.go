package arena

import (
	"math/rand"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPerThreadDispatchBySize(t *testing.T) {
	p, err := NewPerThread(Config{ArenaSize: 1 << 20})
	require.NoError(t, err)
	defer p.Close()

	smallRef, smallBuf, err := p.Allocate(64)
	require.NoError(t, err)
	require.Len(t, smallBuf, 64)
	require.Equal(t, smallRefTag, uint32(smallRef>>32), "small requests go to the cache")

	largeRef, largeBuf, err := p.Allocate(1024)
	require.NoError(t, err)
	require.Len(t, largeBuf, 1024)
	require.NotEqual(t, smallRefTag, uint32(largeRef>>32))
	require.NotZero(t, uint32(largeRef>>32), "large requests carry an arena id")

	// Boundary: 256 is small, 257 is not.
	edge, _, err := p.Allocate(smallMax)
	require.NoError(t, err)
	require.Equal(t, smallRefTag, uint32(edge>>32))

	over, _, err := p.Allocate(smallMax + 1)
	require.NoError(t, err)
	require.NotEqual(t, smallRefTag, uint32(over>>32))

	for _, ref := range []Ref{smallRef, largeRef, edge, over} {
		p.Deallocate(ref)
	}
	require.Zero(t, p.Stats().CurrentUsedBytes)
}

func TestPerThreadStrictAlignmentBypassesCache(t *testing.T) {
	p, err := NewPerThread(Config{ArenaSize: 1 << 20})
	require.NoError(t, err)
	defer p.Close()

	ref, _, err := p.AllocateAligned(64, 64)
	require.NoError(t, err)
	require.NotEqual(t, smallRefTag, uint32(ref>>32),
		"alignment beyond the cache's 8 bytes must go to the arena")
	require.Zero(t, uint32(ref)%64)
	p.Deallocate(ref)
}

// A block allocated on one goroutine may be freed from any other: the
// handle routes to the owning arena, not the freeing binding.
func TestPerThreadCrossGoroutineFree(t *testing.T) {
	p, err := NewPerThread(Config{ArenaSize: 1 << 20})
	require.NoError(t, err)
	defer p.Close()

	refs := make(chan Ref, 128)
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 32; i++ {
				size := 16
				if i%2 == 0 {
					size = 1024 // force arena traffic alongside cache traffic
				}
				ref, _, err := p.Allocate(size)
				if err != nil {
					continue
				}
				refs <- ref
			}
		}()
	}
	go func() { wg.Wait(); close(refs) }()

	for ref := range refs {
		p.Deallocate(ref)
	}
	require.Zero(t, p.Stats().CurrentUsedBytes)
}

func TestPerThreadDefensiveFree(t *testing.T) {
	p, err := NewPerThread(Config{ArenaSize: 1 << 20})
	require.NoError(t, err)
	defer p.Close()

	ref, _, err := p.Allocate(64)
	require.NoError(t, err)
	p.Deallocate(ref)

	before := p.Stats()
	p.Deallocate(ref)    // double free of a small chunk
	p.Deallocate(NilRef) // nil
	p.Deallocate(Ref(uint64(9999)<<32 | 64)) // unknown arena
	after := p.Stats()
	require.Equal(t, before.FreeCalls, after.FreeCalls)
	require.Equal(t, before.CurrentUsedBytes, after.CurrentUsedBytes)

	// Still functional.
	ref2, _, err := p.Allocate(2048)
	require.NoError(t, err)
	p.Deallocate(ref2)
	require.Zero(t, p.Stats().CurrentUsedBytes)
}

// Mixed concurrent workload in the spirit of the 64-thread stress run,
// scaled for CI to 16 goroutines x 20000 ops; -short cuts it to 4 x 2000.
func TestPerThreadStress(t *testing.T) {
	p, err := NewPerThread(Config{ArenaSize: 8 << 20})
	require.NoError(t, err)
	defer p.Close()

	workers := 16
	ops := 20000
	if testing.Short() {
		workers = 4
		ops = 2000
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			var mine []Ref
			for i := 0; i < ops; i++ {
				if rng.Intn(100) < 60 || len(mine) == 0 {
					ref, _, err := p.Allocate(1 + rng.Intn(4096))
					if err != nil {
						continue // arena full: benign, keep going
					}
					mine = append(mine, ref)
				} else {
					idx := rng.Intn(len(mine))
					p.Deallocate(mine[idx])
					mine = append(mine[:idx], mine[idx+1:]...)
				}
			}
			for _, ref := range mine {
				p.Deallocate(ref)
			}
		}(int64(w + 1))
	}
	wg.Wait()

	st := p.Stats()
	require.Zero(t, st.CurrentUsedBytes)
	require.Equal(t, st.AllocCalls, st.FreeCalls)
	require.Positive(t, st.PeakUsedBytes)
}

// A synchronous sweep only reclaims arenas that are both empty and
// unreferenced.
func TestReclaimPassRespectsReferences(t *testing.T) {
	p, err := NewPerThread(Config{ArenaSize: 1 << 20})
	require.NoError(t, err)
	defer p.Close()

	ref, _, err := p.Allocate(1024)
	require.NoError(t, err)
	require.Equal(t, 1, p.LiveArenas())

	// Arena holds bytes: nothing to reclaim.
	require.Zero(t, p.ReclaimPass())

	p.Deallocate(ref)

	// Empty but still referenced by the pooled binding.
	require.Zero(t, p.ReclaimPass())
	require.Equal(t, 1, p.LiveArenas())
}

// With reclamation enabled, arenas drain away once their bindings are
// collected and all blocks are returned.
func TestBackgroundReclamation(t *testing.T) {
	p, err := NewPerThread(Config{
		ArenaSize:         1 << 20,
		EnableReclamation: true,
		ReclaimInterval:   20 * time.Millisecond,
	})
	require.NoError(t, err)
	defer p.Close()

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var refs []Ref
			for i := 0; i < 50; i++ {
				ref, _, err := p.Allocate(512 + i)
				if err != nil {
					continue
				}
				refs = append(refs, ref)
			}
			for _, ref := range refs {
				p.Deallocate(ref)
			}
		}()
	}
	wg.Wait()

	require.Zero(t, p.Stats().CurrentUsedBytes)

	// Bindings pin their arenas until the pool entries are collected; the
	// cleanup drops the reference and the background worker sweeps.
	require.Eventually(t, func() bool {
		runtime.GC()
		return p.LiveArenas() == 0
	}, 2*time.Second, 25*time.Millisecond)
}

func TestPerThreadClose(t *testing.T) {
	p, err := NewPerThread(Config{ArenaSize: 1 << 20})
	require.NoError(t, err)

	ref, _, err := p.Allocate(4096)
	require.NoError(t, err)
	_ = ref

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	_, _, err = p.Allocate(16)
	require.ErrorIs(t, err, ErrClosed)
	require.Zero(t, p.LiveArenas())
}

func TestPerThreadBadConfig(t *testing.T) {
	_, err := NewPerThread(Config{ArenaSize: 8})
	require.ErrorIs(t, err, ErrArenaSize)
}
