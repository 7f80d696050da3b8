package arena

import "sync/atomic"

// Stats accumulates usage counters for one allocator instance. All fields
// are individually atomic so concurrent updates never lock; a Snapshot is
// not guaranteed to be consistent across counters.
type Stats struct {
	allocCalls atomic.Uint64
	freeCalls  atomic.Uint64
	used       atomic.Uint64
	peak       atomic.Uint64
}

// StatsSnapshot is a point-in-time copy of the four usage counters.
type StatsSnapshot struct {
	AllocCalls       uint64
	FreeCalls        uint64
	CurrentUsedBytes uint64
	PeakUsedBytes    uint64
}

// noteAlloc records a successful allocation of n bytes (block footprint,
// not user size) and advances the peak watermark.
func (s *Stats) noteAlloc(n uint32) {
	s.allocCalls.Add(1)
	cur := s.used.Add(uint64(n))
	for {
		p := s.peak.Load()
		if cur <= p || s.peak.CompareAndSwap(p, cur) {
			return
		}
	}
}

// noteFree records a successful, validated deallocation of n bytes.
func (s *Stats) noteFree(n uint32) {
	s.freeCalls.Add(1)
	s.used.Add(^uint64(n) + 1)
}

// Snapshot reads each counter once. Counters may be skewed relative to one
// another under concurrent traffic.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		AllocCalls:       s.allocCalls.Load(),
		FreeCalls:        s.freeCalls.Load(),
		CurrentUsedBytes: s.used.Load(),
		PeakUsedBytes:    s.peak.Load(),
	}
}
