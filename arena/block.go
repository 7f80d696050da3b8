package arena

import (
	"github.com/joshuapare/arenakit/internal/format"
)

// On-region block layout. A block is [header | padding | payload | footer],
// the footer present only in coalescing arenas. All fields little-endian.
//
// Header (24 bytes, 8-aligned):
//
//	0x00  magic      uint32
//	0x04  flags      uint32   bit0 = free
//	0x08  totalSize  uint32   whole block incl. header, padding, footer
//	0x0C  userSize   uint32   requested bytes
//	0x10  padding    uint32   bytes between header end and payload
//	0x14  backlink   uint32   see below
//
// The 4 bytes immediately preceding the payload always hold the padding
// distance back to the header (the "backlink"). With zero padding that slot
// is the header's own backlink field; with padding it is rewritten at the
// end of the padding gap. Deallocate uses it to recover the block offset
// from a payload offset without trusting the caller.
//
// Footer (12 bytes, coalescing arenas only):
//
//	0x00  magic      uint32
//	0x04  totalSize  uint32
//	0x08  flags      uint32
//
// Free blocks keep their list links inside the payload area:
// next at header end, prev (ordered list only) 4 bytes later.
const (
	// Magic is the sentinel stamped into every header and footer. Small
	// cache chunks are laid out so the word before their payload can never
	// equal it.
	Magic uint32 = 0xCAFEBABE

	headerSize uint32 = 24
	footerSize uint32 = 12

	flagFree uint32 = 1 << 0

	// nilRef terminates free lists.
	nilRef uint32 = ^uint32(0)

	hdrMagicOff    = 0
	hdrFlagsOff    = 4
	hdrTotalOff    = 8
	hdrUserOff     = 12
	hdrPaddingOff  = 16
	hdrBacklinkOff = 20

	ftrMagicOff = 0
	ftrTotalOff = 4
	ftrFlagsOff = 8

	// Free-list link offsets relative to the block start.
	linkNextOff = headerSize
	linkPrevOff = headerSize + 4

	// linkSpace is reserved in every free block so it can always be
	// threaded into a list.
	linkSpace uint32 = 8
)

func blockMagic(data []byte, off uint32) uint32 {
	return format.ReadU32(data, int(off+hdrMagicOff))
}

func blockTotal(data []byte, off uint32) uint32 {
	return format.ReadU32(data, int(off+hdrTotalOff))
}

func setBlockTotal(data []byte, off, total uint32) {
	format.PutU32(data, int(off+hdrTotalOff), total)
}

func blockUser(data []byte, off uint32) uint32 {
	return format.ReadU32(data, int(off+hdrUserOff))
}

func blockPadding(data []byte, off uint32) uint32 {
	return format.ReadU32(data, int(off+hdrPaddingOff))
}

func blockIsFree(data []byte, off uint32) bool {
	return format.ReadU32(data, int(off+hdrFlagsOff))&flagFree != 0
}

func setBlockFree(data []byte, off uint32, free bool) {
	var flags uint32
	if free {
		flags = flagFree
	}
	format.PutU32(data, int(off+hdrFlagsOff), flags)
}

// writeHeader stamps a complete header. The backlink field is initialized
// to the padding value so the slot before a zero-padding payload is valid
// from the start.
func writeHeader(data []byte, off, total, user, padding uint32, free bool) {
	format.PutU32(data, int(off+hdrMagicOff), Magic)
	setBlockFree(data, off, free)
	format.PutU32(data, int(off+hdrTotalOff), total)
	format.PutU32(data, int(off+hdrUserOff), user)
	format.PutU32(data, int(off+hdrPaddingOff), padding)
	format.PutU32(data, int(off+hdrBacklinkOff), padding)
}

// writeFooter stamps the boundary tag at the end of a block.
func writeFooter(data []byte, off, total uint32, free bool) {
	ftr := off + total - footerSize
	var flags uint32
	if free {
		flags = flagFree
	}
	format.PutU32(data, int(ftr+ftrMagicOff), Magic)
	format.PutU32(data, int(ftr+ftrTotalOff), total)
	format.PutU32(data, int(ftr+ftrFlagsOff), flags)
}

func footerMagic(data []byte, ftr uint32) uint32 {
	return format.ReadU32(data, int(ftr+ftrMagicOff))
}

func footerTotal(data []byte, ftr uint32) uint32 {
	return format.ReadU32(data, int(ftr+ftrTotalOff))
}

func footerIsFree(data []byte, ftr uint32) bool {
	return format.ReadU32(data, int(ftr+ftrFlagsOff))&flagFree != 0
}

// putBacklink records the padding distance in the word before the payload.
func putBacklink(data []byte, payloadOff, padding uint32) {
	format.PutU32(data, int(payloadOff-4), padding)
}

func readBacklink(data []byte, payloadOff uint32) uint32 {
	return format.ReadU32(data, int(payloadOff-4))
}

// Free-list link accessors. Links are valid only while a block is free.

func linkNext(data []byte, off uint32) uint32 {
	return format.ReadU32(data, int(off+linkNextOff))
}

func setLinkNext(data []byte, off, next uint32) {
	format.PutU32(data, int(off+linkNextOff), next)
}

func linkPrev(data []byte, off uint32) uint32 {
	return format.ReadU32(data, int(off+linkPrevOff))
}

func setLinkPrev(data []byte, off, prev uint32) {
	format.PutU32(data, int(off+linkPrevOff), prev)
}
