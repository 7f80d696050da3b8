package arena

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatsSequential(t *testing.T) {
	var s Stats

	s.noteAlloc(100)
	s.noteAlloc(50)
	snap := s.Snapshot()
	require.Equal(t, uint64(2), snap.AllocCalls)
	require.Equal(t, uint64(150), snap.CurrentUsedBytes)
	require.Equal(t, uint64(150), snap.PeakUsedBytes)

	s.noteFree(100)
	snap = s.Snapshot()
	require.Equal(t, uint64(1), snap.FreeCalls)
	require.Equal(t, uint64(50), snap.CurrentUsedBytes)
	require.Equal(t, uint64(150), snap.PeakUsedBytes, "peak never regresses")

	s.noteAlloc(75)
	snap = s.Snapshot()
	require.Equal(t, uint64(125), snap.CurrentUsedBytes)
	require.Equal(t, uint64(150), snap.PeakUsedBytes)

	s.noteAlloc(100)
	snap = s.Snapshot()
	require.Equal(t, uint64(225), snap.PeakUsedBytes, "peak follows a new maximum")
}

func TestStatsConcurrent(t *testing.T) {
	var s Stats
	const workers = 8
	const rounds = 10000

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				s.noteAlloc(64)
				s.noteFree(64)
			}
		}()
	}
	wg.Wait()

	snap := s.Snapshot()
	require.Equal(t, uint64(workers*rounds), snap.AllocCalls)
	require.Equal(t, uint64(workers*rounds), snap.FreeCalls)
	require.Zero(t, snap.CurrentUsedBytes)
	require.LessOrEqual(t, snap.PeakUsedBytes, uint64(workers*64))
	require.GreaterOrEqual(t, snap.PeakUsedBytes, uint64(64))
}
