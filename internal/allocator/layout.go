package allocator

import "unsafe"

// Flag bits packed into the low bits of a block's header word. Sizes are
// multiples of the alignment (16 by default), so as long as Alignment is
// at least 4 these bits sit below the size's lowest set bit and never
// touch the size itself.
const (
	freeBit uintptr = 0x1
	mmapBit uintptr = 0x2

	flagBits = freeBit | mmapBit
)

func readWord(addr uintptr) uintptr {
	return *(*uintptr)(unsafe.Pointer(addr))
}

func writeWord(addr, value uintptr) {
	*(*uintptr)(unsafe.Pointer(addr)) = value
}

// geometry bundles the sizes derived from Config that every layout
// computation needs. Heap holds one as its g field, so block navigation
// reads as h.g.sizeOf(...), h.g.nextHeader(...) and so on.
type geometry struct {
	alignment  uintptr
	headerSize uintptr
	footerSize uintptr
	canarySize uintptr
	minPayload uintptr
	minBlock   uintptr
}

func newGeometry(cfg Config) geometry {
	word := alignUp(unsafe.Sizeof(uintptr(0)), cfg.Alignment)

	g := geometry{
		alignment:  cfg.Alignment,
		headerSize: word,
		footerSize: word,
		// Two intrusive list pointers (forward, backward) must fit in
		// the payload of a free block, each occupying one word-wide
		// slot; sized off the word, not the raw alignment, so this
		// holds even if Alignment is configured smaller than a machine
		// word.
		minPayload: 2 * word,
	}
	if cfg.EnableCanaries {
		g.canarySize = cfg.Alignment
	}

	g.minBlock = g.headerSize + g.canarySize + g.footerSize + g.minPayload

	return g
}

// blockSpan returns the total bytes a block of the given payload size
// occupies including its header, canary and footer.
func (g geometry) blockSpan(payloadSize uintptr) uintptr {
	return g.headerSize + g.canarySize + g.footerSize + payloadSize
}

// metadataSize is the fixed per-block overhead (everything but payload).
func (g geometry) metadataSize() uintptr {
	return g.headerSize + g.canarySize + g.footerSize
}

func (g geometry) sizeOf(header uintptr) uintptr {
	return readWord(header) &^ (g.alignment - 1)
}

func (g geometry) flagsOf(header uintptr) uintptr {
	return readWord(header) & flagBits
}

func (g geometry) isFree(header uintptr) bool {
	return g.flagsOf(header)&freeBit != 0
}

func (g geometry) isMMAP(header uintptr) bool {
	return g.flagsOf(header)&mmapBit != 0
}

// setHeader writes size (already aligned) and flags atomically as a
// single word. Footer, if any, must be written separately.
func (g geometry) setHeader(header, size, flags uintptr) {
	writeWord(header, size|flags)
}

func (g geometry) setFooter(header, size uintptr) {
	writeWord(g.footerPtr(header, size), size)
}

func (g geometry) payloadPtr(header uintptr) uintptr {
	return header + g.headerSize
}

func (g geometry) canaryPtr(header uintptr) uintptr {
	return g.payloadPtr(header) + g.sizeOf(header)
}

// footerPtr computes the footer location without relying on the
// header word already holding the final size, used while a header is
// mid-write.
func (g geometry) footerPtr(header, size uintptr) uintptr {
	return g.payloadPtr(header) + size + g.canarySize
}

func (g geometry) footerPtrOf(header uintptr) uintptr {
	return g.footerPtr(header, g.sizeOf(header))
}

func (g geometry) nextHeader(header uintptr) uintptr {
	return g.footerPtrOf(header) + g.footerSize
}

func (g geometry) prevFooterPtr(header uintptr) uintptr {
	return header - g.footerSize
}

// prevHeader resolves the previous block's header by reading its
// footer's stored size and stepping back over canary and header too.
func (g geometry) prevHeader(header uintptr) uintptr {
	prevFooter := g.prevFooterPtr(header)
	prevSize := readWord(prevFooter)

	return prevFooter - g.canarySize - prevSize - g.headerSize
}
