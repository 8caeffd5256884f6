package allocator

import "fmt"

// mmapAlloc services a request at or above MMAPThreshold with a
// dedicated mapped region carrying only a header (no footer — it is
// never coalesced, never enlisted, and lives exactly as long as the
// one alloc/release pair that owns it).
func (h *Heap) mmapAlloc(s uintptr) (uintptr, error) {
	total := h.g.headerSize + s + h.g.canarySize

	ptr, err := h.platform.MapAnon(total)
	if err != nil {
		return 0, fmt.Errorf("allocator: map large block of %d bytes: %w", s, err)
	}

	h.g.setHeader(ptr, s, mmapBit)
	h.mmapped[ptr] = total

	return ptr, nil
}

// mmapFree releases a large block back to the OS.
func (h *Heap) mmapFree(header uintptr) error {
	total, ok := h.mmapped[header]
	if !ok {
		total = h.g.headerSize + h.g.sizeOf(header) + h.g.canarySize
	}

	delete(h.mmapped, header)

	return h.platform.Unmap(header, total)
}
