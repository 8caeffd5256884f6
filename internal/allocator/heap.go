package allocator

import "fmt"

// arena owns the contiguous brk-backed region. It never shrinks and is
// created lazily on the first allocation.
type arena struct {
	platform    Platform
	g           geometry
	start       uintptr
	end         uintptr
	size        uintptr
	initialized bool
}

func newArena(platform Platform, g geometry) *arena {
	return &arena{platform: platform, g: g}
}

// init carves the very first block: align the break up, extend by the
// configured initial size, and synthesize one free block spanning the
// whole region.
func (a *arena) init(initialSize uintptr, fl *freeList) error {
	cur, err := a.platform.BrkCurrent()
	if err != nil {
		return fmt.Errorf("allocator: query program break: %w", err)
	}

	aligned := alignUp(cur, a.g.alignment)
	if aligned != cur {
		// Eat the slack between the raw break and the next aligned
		// address with a separate extension before the one below.
		if _, err := a.platform.BrkExtend(aligned - cur); err != nil {
			return fmt.Errorf("allocator: align program break: %w", err)
		}
	}

	start, err := a.platform.BrkExtend(initialSize)
	if err != nil {
		return fmt.Errorf("allocator: extend heap: %w", err)
	}

	a.start = start
	a.size = initialSize
	a.end = start + initialSize
	a.initialized = true

	payload := initialSize - a.g.metadataSize()
	a.g.setHeader(a.start, payload, freeBit)
	a.g.setFooter(a.start, payload)
	fillBytes(a.g.canaryPtr(a.start), a.g.canarySize, canaryByte)
	fl.add(a.start)

	return nil
}

// grow doubles the arena. If the arena's final block is free it is
// extended in place; otherwise a new free block covers exactly the
// fresh bytes. Returns an error if the break cannot be extended.
func (a *arena) grow(fl *freeList) error {
	if !a.initialized {
		return fmt.Errorf("allocator: grow called before init")
	}

	delta := a.size

	oldEnd := a.end

	_, err := a.platform.BrkExtend(delta)
	if err != nil {
		return fmt.Errorf("allocator: extend heap by %d: %w", delta, err)
	}

	lastFooter := oldEnd - a.g.footerSize
	lastSize := readWord(lastFooter)
	lastHeader := lastFooter - a.g.canarySize - lastSize - a.g.headerSize

	a.end = oldEnd + delta
	a.size += delta

	if a.g.isFree(lastHeader) {
		fl.remove(lastHeader)

		newPayload := lastSize + delta
		a.g.setHeader(lastHeader, newPayload, freeBit)
		a.g.setFooter(lastHeader, newPayload)
		fillBytes(a.g.canaryPtr(lastHeader), a.g.canarySize, canaryByte)
		fl.add(lastHeader)

		return nil
	}

	newPayload := delta - a.g.metadataSize()
	a.g.setHeader(oldEnd, newPayload, freeBit)
	a.g.setFooter(oldEnd, newPayload)
	fillBytes(a.g.canaryPtr(oldEnd), a.g.canarySize, canaryByte)
	fl.add(oldEnd)

	return nil
}

func (a *arena) contains(header uintptr) bool {
	return a.initialized && header >= a.start && header < a.end
}
