package allocator

import "unsafe"

func (h *Heap) headerOf(p unsafe.Pointer) uintptr {
	return uintptr(p) - h.g.headerSize
}

// Alloc services a single allocation request of n bytes. Returns nil
// for a zero-size request or when the underlying OS primitive cannot
// supply more memory; never panics on caller input alone.
func (h *Heap) Alloc(n uintptr) unsafe.Pointer {
	if n == 0 {
		return nil
	}

	size := alignUp(max(n, h.g.minPayload), h.g.alignment)

	var (
		header uintptr
		err    error
		mmap   bool
	)

	if size >= h.cfg.MMAPThreshold {
		header, err = h.mmapAlloc(size)
		mmap = true
	} else {
		header, err = h.mallocBlock(size)
	}

	if err != nil {
		return nil
	}

	h.writeCanary(header)
	h.poisonAlloc(header)
	h.recordAlloc(size, mmap)
	h.postCallCheck()

	return unsafe.Pointer(h.g.payloadPtr(header))
}

// Release returns p to the allocator. A nil pointer is a no-op.
func (h *Heap) Release(p unsafe.Pointer) {
	if p == nil {
		return
	}

	header := h.headerOf(p)
	isMMAP := h.g.isMMAP(header)

	if !h.checkCanary(header) {
		h.trap("canary corrupted on release of %#x", header)
	}

	if h.cfg.Debug && !isMMAP && !h.arena.contains(header) {
		h.trap("release of pointer %#x outside the arena and not mmap-backed", header)
	}

	size := h.g.sizeOf(header)

	h.poisonFree(header)

	if isMMAP {
		if err := h.mmapFree(header); err == nil {
			h.recordFree(size, true)
		}

		return
	}

	if h.g.isFree(header) {
		h.trap("double free of %#x", header)

		return
	}

	h.g.setHeader(header, size, freeBit)
	h.recordFree(size, false)

	merged := h.coalescePrev(header)
	h.coalesceNext(merged)
	h.fl.add(merged)

	h.postCallCheck()
}

// Resize changes the size of the allocation at p to n bytes, preserving
// the shared prefix of old and new content. A zero n releases p and
// returns nil; a nil p behaves as Alloc(n).
func (h *Heap) Resize(p unsafe.Pointer, n uintptr) unsafe.Pointer {
	if n == 0 {
		h.Release(p)

		return nil
	}

	if p == nil {
		return h.Alloc(n)
	}

	// Clamped to MIN_PAYLOAD like Alloc: a resize that shrinks a block
	// below the space needed for its own free-list pointers would
	// corrupt the heap the moment that block is later released.
	size := alignUp(max(n, h.g.minPayload), h.g.alignment)

	header := h.headerOf(p)
	if h.g.isMMAP(header) {
		return h.resizeMMAP(p, header, size)
	}

	old := h.g.sizeOf(header)

	if size == old {
		return p
	}

	if size < old {
		h.shrinkBlock(header, size)
		h.writeCanary(header)
		h.postCallCheck()

		return p
	}

	if h.growInPlace(header, size) {
		h.recordAlloc(size-old, false)
		h.writeCanary(header)
		h.postCallCheck()

		return p
	}

	newPtr := h.Alloc(size)
	if newPtr == nil {
		return nil
	}

	copyMemory(newPtr, p, old)
	h.Release(p)

	return newPtr
}

// resizeMMAP handles resizing a large block: the mapped region itself
// is never grown or shrunk in place, so this always relocates.
func (h *Heap) resizeMMAP(p unsafe.Pointer, header, size uintptr) unsafe.Pointer {
	old := h.g.sizeOf(header)
	if size == old {
		return p
	}

	newPtr := h.Alloc(size)
	if newPtr == nil {
		return nil
	}

	copyMemory(newPtr, p, min(old, size))
	h.Release(p)

	return newPtr
}

// ZeroAlloc allocates space for n elements of sz bytes each, zeroed,
// with overflow checking on the sz*n product.
func (h *Heap) ZeroAlloc(sz, n uintptr) unsafe.Pointer {
	if sz == 0 || n == 0 {
		return nil
	}

	if sz > ^uintptr(0)/n {
		return nil
	}

	total := sz * n
	size := alignUp(max(total, h.g.minPayload), h.g.alignment)

	var (
		header uintptr
		err    error
		mmap   bool
	)

	if size >= h.cfg.MMAPThreshold {
		header, err = h.mmapAlloc(size)
		mmap = true
	} else {
		header, err = h.mallocBlock(size)
	}

	if err != nil {
		return nil
	}

	fillBytes(h.g.payloadPtr(header), size, 0)
	h.writeCanary(header)
	h.recordAlloc(size, mmap)
	h.postCallCheck()

	return unsafe.Pointer(h.g.payloadPtr(header))
}

func (h *Heap) postCallCheck() {
	if !h.cfg.EnableIntegrityChecks {
		return
	}

	if err := h.CheckHeap(); err != nil {
		h.trap("%v", err)
	}

	if err := h.CheckFreeList(); err != nil {
		h.trap("%v", err)
	}
}

func copyMemory(dst, src unsafe.Pointer, n uintptr) {
	if n == 0 {
		return
	}

	d := unsafe.Slice((*byte)(dst), int(n))
	s := unsafe.Slice((*byte)(src), int(n))
	copy(d, s)
}
