package arena

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLockedVariantsMatchAlgorithms(t *testing.T) {
	basic, err := NewLockedBasic(8192)
	require.NoError(t, err)
	defer basic.Close()

	coal, err := NewLockedCoalescing(8192)
	require.NoError(t, err)
	defer coal.Close()

	for _, al := range []*LockedAllocator{basic, coal} {
		var refs []Ref
		for i := 0; i < 4; i++ {
			ref, _, err := al.Allocate(128)
			require.NoError(t, err)
			refs = append(refs, ref)
		}
		for _, ref := range refs {
			al.Deallocate(ref)
		}
	}

	// Only the coalescing variant merges the freed neighbors.
	require.Equal(t, 5, basic.FreeBlocks())
	require.Equal(t, 1, coal.FreeBlocks())
}

// Invariant: under concurrent mixed traffic no handle is ever live twice,
// and returning every block drains the usage gauge to zero.
func TestLockedConcurrentStress(t *testing.T) {
	al, err := NewLockedCoalescing(4 << 20)
	require.NoError(t, err)
	defer al.Close()

	const workers = 8
	ops := 5000
	if testing.Short() {
		ops = 500
	}

	var liveMu sync.Mutex
	live := make(map[Ref]struct{})

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			var mine []Ref
			for i := 0; i < ops; i++ {
				if rng.Intn(100) < 60 || len(mine) == 0 {
					size := 1 + rng.Intn(2048)
					ref, _, err := al.Allocate(size)
					if err != nil {
						// Pool exhausted: benign, recycle instead.
						if len(mine) == 0 {
							continue
						}
						ref = mine[len(mine)-1]
						mine = mine[:len(mine)-1]
						liveMu.Lock()
						delete(live, ref)
						liveMu.Unlock()
						al.Deallocate(ref)
						continue
					}
					liveMu.Lock()
					_, dup := live[ref]
					live[ref] = struct{}{}
					liveMu.Unlock()
					if dup {
						t.Errorf("handle %#x live twice", uint64(ref))
						return
					}
					mine = append(mine, ref)
				} else {
					idx := rng.Intn(len(mine))
					ref := mine[idx]
					mine = append(mine[:idx], mine[idx+1:]...)
					liveMu.Lock()
					delete(live, ref)
					liveMu.Unlock()
					al.Deallocate(ref)
				}
			}
			for _, ref := range mine {
				liveMu.Lock()
				delete(live, ref)
				liveMu.Unlock()
				al.Deallocate(ref)
			}
		}(int64(w + 1))
	}
	wg.Wait()

	st := al.Stats()
	require.Zero(t, st.CurrentUsedBytes)
	require.Equal(t, st.AllocCalls, st.FreeCalls)
	require.Equal(t, 1, al.FreeBlocks(), "everything coalesces back")
}

// Pointers may cross goroutines freely under the global lock.
func TestLockedCrossGoroutineFree(t *testing.T) {
	al, err := NewLockedCoalescing(1 << 20)
	require.NoError(t, err)
	defer al.Close()

	refs := make(chan Ref, 64)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 64; i++ {
			ref, _, err := al.Allocate(512)
			if err != nil {
				continue
			}
			refs <- ref
		}
		close(refs)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for ref := range refs {
			al.Deallocate(ref)
		}
	}()

	wg.Wait()
	require.Zero(t, al.Stats().CurrentUsedBytes)
}
