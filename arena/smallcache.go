package arena

import (
	"github.com/joshuapare/arenakit/internal/format"
)

// Small-object cache: a per-binding, unsynchronized set of size-classed
// chunk stacks serving requests of at most smallMax bytes. Chunks come
// straight from the host allocator, never from an Arena, and stay in the
// cache until it is dropped.
const (
	smallBinCount = 4

	// smallMax is the largest request the cache serves.
	smallMax = 256

	// smallHeaderSize precedes every chunk payload:
	//   0x00  binIndex  uint32
	//   0x04  userSize  uint32
	// The userSize word sits immediately before the payload and is at most
	// smallMax, so it can never collide with the arena Magic.
	smallHeaderSize = 8

	smallBinIndexOff = 0
	smallUserSizeOff = 4
)

// smallBinSizes are the chunk payload capacities per bin.
var smallBinSizes = [smallBinCount]uint32{32, 64, 128, 256}

// smallBinFor returns the smallest bin whose class size fits size, or -1
// when the request is not small.
func smallBinFor(size uint32) int {
	for i, s := range smallBinSizes {
		if size <= s {
			return i
		}
	}
	return -1
}

// smallChunk is one host allocation of smallHeaderSize + class bytes.
type smallChunk struct {
	buf []byte
}

func (c *smallChunk) binIndex() uint32 {
	return format.ReadU32(c.buf, smallBinIndexOff)
}

// footprint is the full host allocation size, counted against the stats.
func (c *smallChunk) footprint() uint32 {
	return smallHeaderSize + smallBinSizes[c.binIndex()]
}

// payload returns the user slice, capacity capped at the request.
func (c *smallChunk) payload(size uint32) []byte {
	return c.buf[smallHeaderSize : smallHeaderSize+size : smallHeaderSize+size]
}

// smallCache holds one chunk stack per size class.
type smallCache struct {
	bins [smallBinCount][]*smallChunk
}

func newSmallCache() *smallCache {
	return &smallCache{}
}

// alloc pops a cached chunk for the class covering size, or obtains a
// fresh one from the host on a miss.
func (sc *smallCache) alloc(size uint32, st *Stats) *smallChunk {
	bin := smallBinFor(size)
	if bin < 0 {
		BUG("small alloc of %d bytes exceeds the class table\n", size)
		return nil
	}
	var chunk *smallChunk
	if n := len(sc.bins[bin]); n > 0 {
		chunk = sc.bins[bin][n-1]
		sc.bins[bin] = sc.bins[bin][:n-1]
	} else {
		chunk = &smallChunk{buf: make([]byte, smallHeaderSize+smallBinSizes[bin])}
		format.PutU32(chunk.buf, smallBinIndexOff, uint32(bin))
	}
	format.PutU32(chunk.buf, smallUserSizeOff, size)
	st.noteAlloc(chunk.footprint())
	return chunk
}

// free pushes a chunk back onto its class stack. The chunk joins the cache
// performing the free, so chunks migrate on cross-goroutine frees.
func (sc *smallCache) free(chunk *smallChunk, st *Stats) {
	bin := chunk.binIndex()
	if bin >= smallBinCount {
		WARN("ignoring small free with bad bin index %d\n", bin)
		return
	}
	st.noteFree(chunk.footprint())
	sc.bins[bin] = append(sc.bins[bin], chunk)
}
