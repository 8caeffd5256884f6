package allocator

import "fmt"

// Heap is the process-wide block manager: one instance owns one brk
// arena, one free-list index and one large-block accounting ledger. The
// public API methods in api.go are thin wrappers over the engine
// methods defined here. Per the allocator's single-threaded contract,
// a Heap must never be shared across goroutines without external
// serialization.
type Heap struct {
	cfg      Config
	g        geometry
	platform Platform
	arena    *arena
	fl       *freeList
	mmapped  map[uintptr]uintptr // header addr -> total mapped region size
	stats    Stats
}

// New constructs a Heap backed by the real OS program break and mmap.
func New(opts ...Option) *Heap {
	return newHeap(NewRealPlatform(), opts...)
}

func newHeap(platform Platform, opts ...Option) *Heap {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	g := newGeometry(cfg)

	return &Heap{
		cfg:      cfg,
		g:        g,
		platform: platform,
		arena:    newArena(platform, g),
		fl:       newFreeList(g, cfg.BinCount),
		mmapped:  make(map[uintptr]uintptr),
	}
}

// coalescePrev merges header with its predecessor if the predecessor
// exists and is free, returning the (possibly new) header of the
// merged block. No-op if there is no free predecessor.
func (h *Heap) coalescePrev(header uintptr) uintptr {
	if header < h.arena.start+h.g.minBlock {
		return header
	}

	prev := h.g.prevHeader(header)
	if !h.g.isFree(prev) {
		return header
	}

	if !h.fl.remove(prev) {
		h.trap("block marked free is not present in its free list")
	}

	total := h.g.sizeOf(prev) + h.g.metadataSize() + h.g.sizeOf(header)
	h.g.setHeader(prev, total, freeBit)
	h.g.setFooter(prev, total)

	return prev
}

// coalesceNext merges header with its successor in place if the
// successor exists within the arena and is free.
func (h *Heap) coalesceNext(header uintptr) {
	next := h.g.nextHeader(header)
	if next+h.g.headerSize > h.arena.end || !h.g.isFree(next) {
		return
	}

	if !h.fl.remove(next) {
		h.trap("block marked free is not present in its free list")
	}

	total := h.g.sizeOf(header) + h.g.metadataSize() + h.g.sizeOf(next)
	h.g.setHeader(header, total, freeBit)
	h.g.setFooter(header, total)
}

// shrinkBlock carves header down to exactly s bytes of payload,
// leaving the tail as a new free block (coalesced with its own
// successor) when the leftover is large enough to host one; otherwise
// the block keeps its original size as internal slack.
func (h *Heap) shrinkBlock(header, s uintptr) {
	old := h.g.sizeOf(header)
	leftover := old - s

	if leftover < h.g.minBlock {
		return
	}

	h.g.setHeader(header, s, 0)
	h.g.setFooter(header, s)

	tail := header + h.g.blockSpan(s)
	tailPayload := leftover - h.g.metadataSize()
	h.g.setHeader(tail, tailPayload, freeBit)
	h.g.setFooter(tail, tailPayload)

	h.coalesceNext(tail)
	h.fl.add(tail)
}

// growInPlace attempts to satisfy a resize to s bytes by absorbing a
// free successor, without moving the block. Returns false, leaving the
// successor untouched, when the successor is absent, not free, or too
// small even fully absorbed.
//
// Absorbing a neighbor reclaims its header, canary and footer as usable
// bytes (the "with boundary metadata" reading of the ambiguous source);
// see DESIGN.md for why that choice was made and why, unlike the
// original, the split-vs-absorb-whole decision is compared against the
// full MIN_BLOCK_SIZE rather than MIN_PAYLOAD alone.
func (h *Heap) growInPlace(header, s uintptr) bool {
	next := h.g.nextHeader(header)
	if next+h.g.headerSize > h.arena.end || !h.g.isFree(next) {
		return false
	}

	old := h.g.sizeOf(header)
	nextSize := h.g.sizeOf(next)
	totalWithMetadata := old + h.g.metadataSize() + nextSize

	if totalWithMetadata < s {
		return false
	}

	if !h.fl.remove(next) {
		h.trap("block marked free is not present in its free list")
	}

	residual := totalWithMetadata - s
	if residual < h.g.minBlock {
		h.g.setHeader(header, totalWithMetadata, 0)
		h.g.setFooter(header, totalWithMetadata)

		return true
	}

	h.g.setHeader(header, s, 0)
	h.g.setFooter(header, s)

	tail := header + h.g.blockSpan(s)
	tailPayload := residual - h.g.metadataSize()
	h.g.setHeader(tail, tailPayload, freeBit)
	h.g.setFooter(tail, tailPayload)
	h.fl.add(tail)

	return true
}

// mallocBlock services an arena-path allocation request of s (already
// aligned) bytes, growing the heap as many times as necessary.
func (h *Heap) mallocBlock(s uintptr) (uintptr, error) {
	if !h.arena.initialized {
		if err := h.arena.init(h.cfg.InitialHeapSize, h.fl); err != nil {
			return 0, err
		}
	}

	for {
		block := h.fl.findFit(s)
		if block == 0 {
			if err := h.arena.grow(h.fl); err != nil {
				return 0, fmt.Errorf("allocator: out of memory: %w", err)
			}

			continue
		}

		freeSize := h.g.sizeOf(block)

		if freeSize-s >= h.g.minBlock {
			tail := block + h.g.blockSpan(s)
			tailPayload := freeSize - h.g.blockSpan(s)
			h.g.setHeader(tail, tailPayload, freeBit)
			h.g.setFooter(tail, tailPayload)
			h.fl.add(tail)

			h.g.setHeader(block, s, 0)
			h.g.setFooter(block, s)
		} else {
			h.g.setHeader(block, freeSize, 0)
			h.g.setFooter(block, freeSize)
		}

		return block, nil
	}
}
