package allocator

import (
	"fmt"
	"io"
	"os"
	"unsafe"
)

// fillBytes stamps n bytes starting at addr with value. Used for both
// canary writes and alloc/free poisoning.
func fillBytes(addr uintptr, n uintptr, value byte) {
	if n == 0 {
		return
	}

	dst := unsafe.Slice((*byte)(unsafe.Pointer(addr)), int(n))
	for i := range dst {
		dst[i] = value
	}
}

func bytesEqual(addr uintptr, n uintptr, value byte) bool {
	if n == 0 {
		return true
	}

	src := unsafe.Slice((*byte)(unsafe.Pointer(addr)), int(n))
	for _, b := range src {
		if b != value {
			return false
		}
	}

	return true
}

func (h *Heap) writeCanary(header uintptr) {
	if !h.cfg.EnableCanaries {
		return
	}

	fillBytes(h.g.canaryPtr(header), h.g.canarySize, canaryByte)
}

func (h *Heap) checkCanary(header uintptr) bool {
	if !h.cfg.EnableCanaries {
		return true
	}

	return bytesEqual(h.g.canaryPtr(header), h.g.canarySize, canaryByte)
}

func (h *Heap) poisonAlloc(header uintptr) {
	if !h.cfg.EnablePoisoning {
		return
	}

	fillBytes(h.g.payloadPtr(header), h.g.sizeOf(header), allocPoisonByte)
}

func (h *Heap) poisonFree(header uintptr) {
	if !h.cfg.EnablePoisoning {
		return
	}

	fillBytes(h.g.payloadPtr(header), h.g.sizeOf(header), freePoisonByte)
}

// trap is the debug-mode reaction to a detected invariant violation or
// caller misuse: panic with a short diagnostic. In a release
// configuration (cfg.Debug == false) it is a no-op and control returns
// to the caller, matching the spec's "undefined behavior" allowance.
func (h *Heap) trap(format string, args ...interface{}) {
	if !h.cfg.Debug {
		return
	}

	panic(fmt.Sprintf("allocator: "+format, args...))
}

// CheckHeap walks the arena from start to end verifying the universal
// invariants: aligned sizes, header/footer agreement, and no two
// adjacent free blocks. Returns the first violation found, or nil.
func (h *Heap) CheckHeap() error {
	if !h.arena.initialized {
		return nil
	}

	cur := h.arena.start
	prevFree := false

	for cur < h.arena.end {
		size := h.g.sizeOf(cur)
		if size%h.g.alignment != 0 {
			return fmt.Errorf("allocator: block at %#x has misaligned size %d", cur, size)
		}

		footerSize := readWord(h.g.footerPtrOf(cur))
		if footerSize != size {
			return fmt.Errorf("allocator: block at %#x header/footer size mismatch (%d vs %d)", cur, size, footerSize)
		}

		free := h.g.isFree(cur)
		if free && prevFree {
			return fmt.Errorf("allocator: adjacent free blocks at/around %#x", cur)
		}

		if !h.g.isMMAP(cur) && !h.checkCanary(cur) {
			return fmt.Errorf("allocator: canary corrupted at %#x", cur)
		}

		prevFree = free
		cur = h.g.nextHeader(cur)
	}

	if cur != h.arena.end {
		return fmt.Errorf("allocator: arena does not tile exactly, stopped at %#x (end %#x)", cur, h.arena.end)
	}

	return nil
}

// CheckFreeList verifies every block reachable from the free-list index
// is actually marked free and resides in the class its size implies,
// and that the presence bitmap agrees with list occupancy.
func (h *Heap) CheckFreeList() error {
	var walkErr error

	steps := 0

	h.fl.walk(func(class uint, block uintptr) {
		if walkErr != nil {
			return
		}

		steps++
		if steps > 1<<20 {
			walkErr = fmt.Errorf("allocator: free list class %d looks cyclic (over %d entries)", class, steps)

			return
		}

		if !h.g.isFree(block) {
			walkErr = fmt.Errorf("allocator: block %#x in free list is not marked free", block)

			return
		}

		if got := h.fl.classOf(h.g.sizeOf(block)); got != class {
			walkErr = fmt.Errorf("allocator: block %#x of size %d found in class %d, belongs in %d", block, h.g.sizeOf(block), class, got)
		}
	})

	if walkErr != nil {
		return walkErr
	}

	for class := 0; class < len(h.fl.heads); class++ {
		nonEmpty := h.fl.heads[class] != 0
		bitSet := h.fl.present&(1<<uint(class)) != 0

		if nonEmpty != bitSet {
			return fmt.Errorf("allocator: free_map bit %d disagrees with list occupancy", class)
		}
	}

	return nil
}

func formatSize(bytes uintptr) string {
	units := []string{"B", "KiB", "MiB", "GiB", "TiB"}
	s := float64(bytes)
	u := 0

	for s >= 1024 && u < len(units)-1 {
		s /= 1024
		u++
	}

	return fmt.Sprintf("%.2f%s", s, units[u])
}

// DumpArena prints every block in the arena, in address order, to w.
func (h *Heap) DumpArena(w io.Writer) {
	if !h.arena.initialized {
		fmt.Fprintln(w, "heap: not yet initialized")

		return
	}

	fmt.Fprintln(w, "Heap:")

	cur := h.arena.start
	for cur < h.arena.end {
		size := h.g.sizeOf(cur)

		state := "USED"
		if h.g.isFree(cur) {
			state = "FREE"
		}

		fmt.Fprintf(w, "%s | %#x | size=%s\n", state, cur, formatSize(size))

		cur = h.g.nextHeader(cur)
	}
}

// DumpFreeLists prints every size class and the blocks it holds.
func (h *Heap) DumpFreeLists(w io.Writer) {
	for class, head := range h.fl.heads {
		fmt.Fprintf(w, "Free List %d:\n", class)

		cur := head
		steps := 0

		for cur != 0 {
			steps++

			fmt.Fprintf(w, "prev=%#x | size=%s | next=%#x\n",
				prevPtr(h.g, cur), formatSize(h.g.sizeOf(cur)), nextPtr(h.g, cur))

			if steps >= 10000 {
				fmt.Fprintln(w, "  over 10000 entries, potential cycle")

				break
			}

			cur = nextPtr(h.g, cur)
		}
	}
}

// PrintStats prints a human-readable allocation summary.
func (h *Heap) PrintStats(w io.Writer) {
	fmt.Fprintln(w, "Stats:")
	fmt.Fprintln(w)

	s := h.Stats()

	fmt.Fprintf(w, "Heap size is %s\n", formatSize(s.HeapSize))
	fmt.Fprintf(w, "%d blocks allocated, %s total\n", s.AllocCount, formatSize(s.HeapBytes+s.MMAPBytes))
	fmt.Fprintf(w, "%d in the heap, %s\n", s.HeapAllocCount, formatSize(s.HeapBytes))
	fmt.Fprintf(w, "%d with mmap, %s\n", s.MMAPAllocCount, formatSize(s.MMAPBytes))
}

// dumpArenaToStderr and friends bind the dumps and stats to os.Stderr,
// so a caller need not thread an io.Writer through. Nothing else in the
// package calls them.
func (h *Heap) dumpArenaToStderr()     { h.DumpArena(os.Stderr) }
func (h *Heap) dumpFreeListsToStderr() { h.DumpFreeLists(os.Stderr) }
func (h *Heap) printStatsToStderr()    { h.PrintStats(os.Stderr) }
