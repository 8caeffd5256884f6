package allocator

import "unsafe"

// uintptrOf returns the address of a Go-managed byte buffer's backing
// array, for tests that poke raw block layout without going through a
// real Heap/arena.
func uintptrOf(buf []byte) uintptr {
	return uintptr(unsafe.Pointer(&buf[0]))
}

// fakePlatform simulates brk/mmap entirely in Go-managed memory so tests
// are deterministic, fast, and never touch the real process break
// (which a real `Heap` sharing the process with the test binary's own Go
// runtime would have to fight over). The break region is a single
// pre-reserved buffer; addresses handed out only ever increase, exactly
// like the real primitive, and never relocate.
type fakePlatform struct {
	arena   []byte
	current uintptr

	mapped map[uintptr][]byte
}

func newFakePlatform(capacity uintptr) *fakePlatform {
	return &fakePlatform{
		arena:  make([]byte, capacity),
		mapped: make(map[uintptr][]byte),
	}
}

func (f *fakePlatform) base() uintptr {
	return uintptr(unsafe.Pointer(&f.arena[0]))
}

func (f *fakePlatform) BrkCurrent() (uintptr, error) {
	return f.base() + f.current, nil
}

func (f *fakePlatform) BrkExtend(delta uintptr) (uintptr, error) {
	if f.current+delta > uintptr(len(f.arena)) {
		return 0, ErrPlatformUnsupported
	}

	start := f.base() + f.current
	f.current += delta

	return start, nil
}

func (f *fakePlatform) MapAnon(size uintptr) (uintptr, error) {
	region := make([]byte, size)
	ptr := uintptr(unsafe.Pointer(&region[0]))
	f.mapped[ptr] = region

	return ptr, nil
}

func (f *fakePlatform) Unmap(ptr, _ uintptr) error {
	delete(f.mapped, ptr)

	return nil
}
