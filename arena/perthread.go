package arena

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultArenaSize backs each per-goroutine binding when the Config leaves
// ArenaSize zero.
const DefaultArenaSize = 1 << 20

// smallRefTag marks small-cache handles in a Ref's upper half. Arena ids
// are allocated counting up from 1 and never reach it.
const smallRefTag = ^uint32(0)

// Config parameterizes a PerThreadAllocator.
type Config struct {
	// ArenaSize is the backing region size for each binding's arena.
	// Defaults to DefaultArenaSize.
	ArenaSize int

	// EnableReclamation starts a background worker that periodically
	// releases fully-empty, unreferenced arenas back to the host.
	EnableReclamation bool

	// ReclaimInterval is the worker's wake period. Defaults to
	// DefaultReclaimInterval.
	ReclaimInterval time.Duration
}

// binding is the per-goroutine pair of arena and small cache. Bindings are
// leased from a sync.Pool around each operation, so the small cache is
// only ever touched by one goroutine at a time.
type binding struct {
	arena *managedArena
	cache *smallCache
}

// PerThreadAllocator routes small requests to a per-goroutine size-class
// cache and everything else to a per-goroutine arena. Blocks may be freed
// from any goroutine: the handle identifies the owning arena and the
// manager resolves it.
type PerThreadAllocator struct {
	cfg   Config
	mgr   *manager
	stats Stats

	pool sync.Pool

	// inflight tracks small chunks currently in user hands, keyed by the
	// chunk id packed into their handle.
	inflight sync.Map
	chunkSeq atomic.Uint32

	closed atomic.Bool
}

// NewPerThread creates a per-goroutine allocator. Arenas are created
// lazily, one per binding, as goroutines first allocate.
func NewPerThread(cfg Config) (*PerThreadAllocator, error) {
	if cfg.ArenaSize == 0 {
		cfg.ArenaSize = DefaultArenaSize
	}
	if cfg.ArenaSize < int(headerSize+linkSpace+footerSize) || cfg.ArenaSize > maxArenaBytes {
		return nil, ErrArenaSize
	}
	if cfg.ReclaimInterval <= 0 {
		cfg.ReclaimInterval = DefaultReclaimInterval
	}
	p := &PerThreadAllocator{
		cfg: cfg,
		mgr: newManager(cfg.EnableReclamation, cfg.ReclaimInterval),
	}
	p.pool.New = func() any { return &binding{} }
	return p, nil
}

// getBinding leases a binding, creating its arena and cache on first use.
// The arena reference is dropped when the binding is collected, so pooled
// bindings never pin a reclaimable arena forever.
func (p *PerThreadAllocator) getBinding() (*binding, error) {
	b := p.pool.Get().(*binding)
	if b.arena == nil {
		ma, err := p.mgr.create(p.cfg.ArenaSize)
		if err != nil {
			p.pool.Put(b)
			return nil, err
		}
		ma.refs.Add(1)
		b.arena = ma
		b.cache = newSmallCache()
		runtime.AddCleanup(b, func(ma *managedArena) { ma.refs.Add(-1) }, ma)
	}
	return b, nil
}

func (p *PerThreadAllocator) putBinding(b *binding) {
	p.pool.Put(b)
}

// Allocate reserves size bytes: small requests from the binding's cache
// (8-byte aligned payloads), larger ones from the binding's arena at the
// default alignment.
func (p *PerThreadAllocator) Allocate(size int) (Ref, []byte, error) {
	return p.allocate(size, MaxAlign, true)
}

// AllocateAligned reserves size bytes on an align boundary. The cache
// serves the request only when its natural 8-byte alignment satisfies
// align; everything else goes to the arena.
func (p *PerThreadAllocator) AllocateAligned(size, align int) (Ref, []byte, error) {
	return p.allocate(size, align, align <= 8)
}

func (p *PerThreadAllocator) allocate(size, align int, allowSmall bool) (Ref, []byte, error) {
	if p.closed.Load() {
		return NilRef, nil, ErrClosed
	}
	sz, al, err := normalizeRequest(size, align)
	if err != nil {
		return NilRef, nil, err
	}
	b, err := p.getBinding()
	if err != nil {
		return NilRef, nil, err
	}
	defer p.putBinding(b)

	if allowSmall && sz <= smallMax {
		chunk := b.cache.alloc(sz, &p.stats)
		if chunk == nil {
			return NilRef, nil, ErrNoSpace
		}
		id := p.chunkSeq.Add(1)
		p.inflight.Store(id, chunk)
		ref := Ref(uint64(smallRefTag)<<32 | uint64(id))
		return ref, chunk.payload(sz), nil
	}

	b.arena.mu.Lock()
	defer b.arena.mu.Unlock()
	_, payload, err := b.arena.a.allocate(sz, al, &p.stats)
	if err != nil {
		return NilRef, nil, err
	}
	ref := Ref(uint64(b.arena.id)<<32 | uint64(payload))
	return ref, b.arena.a.data[payload : payload+sz : payload+sz], nil
}

// Deallocate releases a block or small chunk from any goroutine. The
// handle's upper half picks the owner; the calling goroutine's binding is
// only used to restack small chunks.
func (p *PerThreadAllocator) Deallocate(ref Ref) {
	if ref == NilRef {
		return
	}
	if p.closed.Load() {
		WARN("ignoring free on closed allocator\n")
		return
	}
	tag := uint32(ref >> 32)
	low := uint32(ref)

	if tag == smallRefTag {
		b, err := p.getBinding()
		if err != nil {
			WARN("dropping small free: %v\n", err)
			return
		}
		defer p.putBinding(b)
		v, ok := p.inflight.LoadAndDelete(low)
		if !ok {
			WARN("ignoring unknown small handle %#x\n", uint64(ref))
			return
		}
		b.cache.free(v.(*smallChunk), &p.stats)
		return
	}

	ma := p.mgr.lookup(tag)
	if ma == nil {
		WARN("ignoring free for unknown arena %d\n", tag)
		return
	}
	ma.mu.Lock()
	defer ma.mu.Unlock()
	if ma.dead {
		WARN("ignoring free into reclaimed arena %d\n", tag)
		return
	}
	ma.a.deallocate(low, &p.stats)
}

// Stats returns a snapshot of the usage counters.
func (p *PerThreadAllocator) Stats() StatsSnapshot { return p.stats.Snapshot() }

// LiveArenas reports how many arenas the manager currently owns.
func (p *PerThreadAllocator) LiveArenas() int { return p.mgr.liveArenas() }

// ReclaimPass runs one synchronous reclamation sweep and reports how many
// arenas were released. Useful for tests and tooling; the background
// worker calls the same sweep when reclamation is enabled.
func (p *PerThreadAllocator) ReclaimPass() int { return p.mgr.reclaimPass() }

// Close stops the reclaimer and releases every arena. Outstanding small
// chunks become garbage for the host collector.
func (p *PerThreadAllocator) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	err := p.mgr.close()
	p.inflight.Range(func(k, _ any) bool {
		p.inflight.Delete(k)
		return true
	})
	return err
}

var _ Allocator = (*PerThreadAllocator)(nil)
