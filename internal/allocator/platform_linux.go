//go:build linux

package allocator

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// linuxPlatform services Platform with the real sbrk/mmap-equivalent
// primitives: a raw brk(2) syscall for the program break, and the
// mmap/munmap wrappers from golang.org/x/sys/unix for independent
// anonymous regions. Go's own runtime never uses brk to grow the Go
// heap (it maps its arenas with mmap), so the program break is ours to
// drive without colliding with anything the garbage collector owns.
type linuxPlatform struct{}

// NewRealPlatform returns the Platform backed by actual OS primitives.
func NewRealPlatform() Platform {
	return linuxPlatform{}
}

func (linuxPlatform) BrkCurrent() (uintptr, error) {
	r1, _, errno := unix.Syscall(unix.SYS_BRK, 0, 0, 0)
	if errno != 0 {
		return 0, errno
	}

	return r1, nil
}

func (p linuxPlatform) BrkExtend(delta uintptr) (uintptr, error) {
	cur, err := p.BrkCurrent()
	if err != nil {
		return 0, err
	}

	want := cur + delta

	got, _, errno := unix.Syscall(unix.SYS_BRK, want, 0, 0)
	if errno != 0 {
		return 0, errno
	}

	if got < want {
		return 0, fmt.Errorf("allocator: brk(%d) failed, break still at %d", want, got)
	}

	return cur, nil
}

func (linuxPlatform) MapAnon(size uintptr) (uintptr, error) {
	region, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return 0, fmt.Errorf("allocator: mmap %d bytes: %w", size, err)
	}

	return uintptr(unsafe.Pointer(&region[0])), nil
}

func (linuxPlatform) Unmap(ptr, size uintptr) error {
	region := unsafe.Slice((*byte)(unsafe.Pointer(ptr)), int(size))

	return unix.Munmap(region)
}
