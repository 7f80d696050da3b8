package arena

import (
	"fmt"
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joshuapare/arenakit/internal/format"
	"github.com/joshuapare/arenakit/internal/region"
)

// maxArenaBytes keeps every offset and every offset sum inside uint32
// range with headroom.
const maxArenaBytes = 1 << 31

// InternalStats holds data-plane instrumentation counters, for tests and
// tooling rather than for capacity accounting (see Stats for that).
type InternalStats struct {
	Splits           uint64 // blocks split during placement
	CoalesceForward  uint64 // merges with the following block
	CoalesceBackward uint64 // merges into the preceding block
	WalkSkips        uint64 // free-list walks stopped at a bad node
	BadFrees         uint64 // frees ignored after validation
}

// Arena is a fixed-size byte region tiled by blocks. It implements the
// placement, splitting, and coalescing algorithms shared by every
// allocator variant. An Arena performs no locking of its own; callers
// serialize access.
type Arena struct {
	data       []byte
	release    func() error
	coalescing bool
	freeHead   uint32
	used       uint64
	istats     InternalStats
}

// newArena acquires a backing region of exactly size bytes and installs a
// single free block spanning it.
func newArena(size int, coalescing bool) (*Arena, error) {
	a := &Arena{coalescing: coalescing, freeHead: nilRef}
	if size < int(a.minBlock()) || size > maxArenaBytes {
		return nil, ErrArenaSize
	}
	data, release, err := region.Alloc(size)
	if err != nil {
		return nil, fmt.Errorf("arena: acquiring region: %w", err)
	}
	a.data = data
	a.release = release
	a.initFreeBlock(0, uint32(size))
	a.freeHead = 0
	return a, nil
}

func (a *Arena) footerOverhead() uint32 {
	if a.coalescing {
		return footerSize
	}
	return 0
}

// minBlock is the smallest block that can host a free-list node. Leftovers
// below this floor are absorbed by the block to their left as slack.
func (a *Arena) minBlock() uint32 {
	return headerSize + linkSpace + a.footerOverhead()
}

// initFreeBlock stamps a fresh free block with empty links.
func (a *Arena) initFreeBlock(off, total uint32) {
	writeHeader(a.data, off, total, 0, 0, true)
	setLinkNext(a.data, off, nilRef)
	if a.coalescing {
		setLinkPrev(a.data, off, nilRef)
		writeFooter(a.data, off, total, true)
	}
}

// allocate walks the free list first-fit and places a block of size bytes
// whose payload lands on an align boundary. It returns the block offset
// and the payload offset.
func (a *Arena) allocate(size, align uint32, st *Stats) (uint32, uint32, error) {
	if a.data == nil {
		return 0, 0, ErrClosed
	}
	prev := nilRef
	for off := a.freeHead; off != nilRef; {
		if uint64(off)+uint64(headerSize) > uint64(len(a.data)) ||
			blockMagic(a.data, off) != Magic || !blockIsFree(a.data, off) {
			// Bad node: stop the walk rather than chase links through
			// untrusted bytes. The heap is not repaired.
			a.istats.WalkSkips++
			WARN("free-list walk hit bad node at offset %d\n", off)
			break
		}
		total := blockTotal(a.data, off)
		payload := format.AlignUp(off+headerSize, align)
		padding := payload - (off + headerSize)
		needed := headerSize + padding + size + a.footerOverhead()
		// Floor at minBlock so a freed block can always host its links
		// without touching the footer.
		if needed < a.minBlock() {
			needed = a.minBlock()
		}
		needed = format.Align8(needed)
		if total >= needed {
			a.place(off, prev, total, needed, size, padding)
			st.noteAlloc(blockTotal(a.data, off))
			return off, payload, nil
		}
		prev = off
		off = linkNext(a.data, off)
	}
	return 0, 0, ErrNoSpace
}

// place carves needed bytes out of the free block at off, splitting when
// the leftover can host a future free-list node and absorbing it as slack
// otherwise.
func (a *Arena) place(off, prev, total, needed, user, padding uint32) {
	leftover := total - needed
	if leftover >= a.minBlock() {
		rest := off + needed
		a.initFreeBlock(rest, leftover)
		a.removeFree(off, prev)
		a.insertFree(rest)
		a.istats.Splits++
	} else {
		needed = total
		a.removeFree(off, prev)
	}
	writeHeader(a.data, off, needed, user, padding, false)
	putBacklink(a.data, off+headerSize+padding, padding)
	if a.coalescing {
		writeFooter(a.data, off, needed, false)
	}
	a.used += uint64(needed)
}

// deallocate releases the block whose payload starts at payloadOff.
// Invalid and double frees are caller bugs the allocator must survive,
// not conditions it can fix, so they are dropped after validation.
func (a *Arena) deallocate(payloadOff uint32, st *Stats) {
	if a.data == nil {
		WARN("ignoring free on closed arena\n")
		return
	}
	off, ok := a.blockForPayload(payloadOff)
	if !ok {
		a.istats.BadFrees++
		WARN("ignoring free of invalid payload offset %d\n", payloadOff)
		return
	}
	if blockIsFree(a.data, off) {
		a.istats.BadFrees++
		WARN("ignoring double free of block at offset %d\n", off)
		return
	}
	total := blockTotal(a.data, off)
	setBlockFree(a.data, off, true)
	if a.coalescing {
		writeFooter(a.data, off, total, true)
	}
	a.used -= uint64(total)
	st.noteFree(total)
	a.insertFree(off)
	if a.coalescing {
		a.coalesceForward(off)
		a.coalesceBackward(off)
	}
}

// blockForPayload recovers and validates the block offset for a payload
// offset via the backlink word. Anything inconsistent is rejected.
func (a *Arena) blockForPayload(payloadOff uint32) (uint32, bool) {
	size := uint32(len(a.data))
	if payloadOff < headerSize || payloadOff > size {
		return 0, false
	}
	back := readBacklink(a.data, payloadOff)
	if back > payloadOff-headerSize {
		return 0, false
	}
	off := payloadOff - headerSize - back
	if off+headerSize > size || blockMagic(a.data, off) != Magic {
		return 0, false
	}
	total := blockTotal(a.data, off)
	if total < headerSize || uint64(off)+uint64(total) > uint64(size) {
		return 0, false
	}
	if blockPadding(a.data, off) != back {
		return 0, false
	}
	return off, true
}

// insertFree links a free block into the list: push-at-head for the basic
// list, ascending-offset insertion for the ordered list.
func (a *Arena) insertFree(off uint32) {
	if !a.coalescing {
		setLinkNext(a.data, off, a.freeHead)
		a.freeHead = off
		return
	}
	if a.freeHead == nilRef || off < a.freeHead {
		setLinkPrev(a.data, off, nilRef)
		setLinkNext(a.data, off, a.freeHead)
		if a.freeHead != nilRef {
			setLinkPrev(a.data, a.freeHead, off)
		}
		a.freeHead = off
		return
	}
	cur := a.freeHead
	for {
		n := linkNext(a.data, cur)
		if n == nilRef || n > off {
			break
		}
		cur = n
	}
	n := linkNext(a.data, cur)
	setLinkNext(a.data, cur, off)
	setLinkPrev(a.data, off, cur)
	setLinkNext(a.data, off, n)
	if n != nilRef {
		setLinkPrev(a.data, n, off)
	}
}

// removeFree unlinks a free block. prev is consulted only by the basic
// singly-linked list; the ordered list unlinks through its own links.
func (a *Arena) removeFree(off, prev uint32) {
	if a.coalescing {
		p := linkPrev(a.data, off)
		n := linkNext(a.data, off)
		if p == nilRef {
			a.freeHead = n
		} else {
			setLinkNext(a.data, p, n)
		}
		if n != nilRef {
			setLinkPrev(a.data, n, p)
		}
		return
	}
	n := linkNext(a.data, off)
	if prev == nilRef {
		a.freeHead = n
	} else {
		setLinkNext(a.data, prev, n)
	}
}

// coalesceForward absorbs the block immediately after off when it is free.
func (a *Arena) coalesceForward(off uint32) {
	total := blockTotal(a.data, off)
	next := off + total
	if uint64(next)+uint64(headerSize) > uint64(len(a.data)) {
		return
	}
	if blockMagic(a.data, next) != Magic || !blockIsFree(a.data, next) {
		return
	}
	a.removeFree(next, nilRef)
	merged := total + blockTotal(a.data, next)
	setBlockTotal(a.data, off, merged)
	writeFooter(a.data, off, merged, true)
	a.istats.CoalesceForward++
}

// coalesceBackward extends the preceding block over off when it is free.
// The predecessor is found through its boundary-tag footer.
func (a *Arena) coalesceBackward(off uint32) {
	if off < footerSize {
		return
	}
	ftr := off - footerSize
	if footerMagic(a.data, ftr) != Magic || !footerIsFree(a.data, ftr) {
		return
	}
	prevTotal := footerTotal(a.data, ftr)
	if prevTotal < a.minBlock() || prevTotal > off {
		return
	}
	prevOff := off - prevTotal
	if blockMagic(a.data, prevOff) != Magic || !blockIsFree(a.data, prevOff) ||
		blockTotal(a.data, prevOff) != prevTotal {
		return
	}
	a.removeFree(off, nilRef)
	merged := prevTotal + blockTotal(a.data, off)
	setBlockTotal(a.data, prevOff, merged)
	writeFooter(a.data, prevOff, merged, true)
	a.istats.CoalesceBackward++
}

// UsedBytes reports the bytes currently reserved by allocated blocks,
// including metadata and padding.
func (a *Arena) UsedBytes() uint64 { return a.used }

// Size reports the backing region size, or 0 after close.
func (a *Arena) Size() int { return len(a.data) }

// FreeBlocks counts the entries on the free list.
func (a *Arena) FreeBlocks() int {
	n := 0
	for off := a.freeHead; off != nilRef; off = linkNext(a.data, off) {
		n++
	}
	return n
}

// LargestFree reports the largest free block's total size.
func (a *Arena) LargestFree() uint32 {
	var largest uint32
	for off := a.freeHead; off != nilRef; off = linkNext(a.data, off) {
		if t := blockTotal(a.data, off); t > largest {
			largest = t
		}
	}
	return largest
}

// InternalStats returns a copy of the instrumentation counters.
func (a *Arena) InternalStats() InternalStats { return a.istats }

func (a *Arena) modeName() string {
	if a.coalescing {
		return "coalescing"
	}
	return "basic"
}

// dumpFreeList writes a human-readable listing of the free list.
func (a *Arena) dumpFreeList(w io.Writer) error {
	if a.data == nil {
		return ErrClosed
	}
	p := message.NewPrinter(language.English)
	if _, err := p.Fprintf(w, "free list (%s arena, %d bytes):\n",
		a.modeName(), len(a.data)); err != nil {
		return err
	}
	var blocks int
	var freeBytes, largest uint32
	for off := a.freeHead; off != nilRef; off = linkNext(a.data, off) {
		total := blockTotal(a.data, off)
		if _, err := p.Fprintf(w, "  offset %10d  size %12d\n", off, total); err != nil {
			return err
		}
		blocks++
		freeBytes += total
		if total > largest {
			largest = total
		}
	}
	_, err := p.Fprintf(w, "  %d free blocks, %d bytes free, largest %d\n",
		blocks, freeBytes, largest)
	return err
}

// close releases the backing region. Safe to call twice.
func (a *Arena) close() error {
	if a.data == nil {
		return nil
	}
	a.data = nil
	a.freeHead = nilRef
	rel := a.release
	a.release = nil
	if rel != nil {
		return rel()
	}
	return nil
}
