package allocator

import (
	"math/rand"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

// TestStressRandomAllocFreeResize drives a deterministic-seed random mix
// of Alloc/Release/Resize against a fixed pool of slots, verifying full
// heap and free-list consistency throughout. It mirrors the shape of the
// allocator's own soak scenario: many slots, random sizes, random
// action selection, occasional resize, repeated until every slot has
// cycled several times over.
func TestStressRandomAllocFreeResize(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping stress test in short mode")
	}

	const (
		slotCount  = 256
		iterations = 100000
	)

	rng := rand.New(rand.NewSource(42))

	h := newAPITestHeap(t, WithInitialHeapSize(1<<16), WithMMAPThreshold(64*1024))

	type slot struct {
		ptr  unsafe.Pointer
		size uintptr
		seed byte
	}

	slots := make([]slot, slotCount)

	fill := func(s *slot) {
		if s.ptr == nil {
			return
		}

		buf := asBytes(s.ptr, s.size)
		for i := range buf {
			buf[i] = byte(int(s.seed) + i)
		}
	}

	verify := func(s *slot) {
		if s.ptr == nil {
			return
		}

		buf := asBytes(s.ptr, s.size)
		for i := range buf {
			require.Equal(t, byte(int(s.seed)+i), buf[i], "content corrupted in live slot")
		}
	}

	for iter := 0; iter < iterations; iter++ {
		idx := rng.Intn(slotCount)
		s := &slots[idx]

		switch {
		case s.ptr == nil:
			size := uintptr(1 + rng.Intn(2048))
			s.ptr = h.Alloc(size)
			if s.ptr == nil {
				continue
			}

			s.size = size
			s.seed = byte(rng.Intn(256))
			fill(s)

		case rng.Intn(4) == 0:
			verify(s)

			newSize := uintptr(1 + rng.Intn(2048))
			newPtr := h.Resize(s.ptr, newSize)

			if newPtr == nil {
				s.ptr = nil

				continue
			}

			s.ptr = newPtr
			s.size = newSize
			fill(s)

		default:
			verify(s)
			h.Release(s.ptr)
			s.ptr = nil
		}

		if iter%5000 == 0 {
			require.NoError(t, h.CheckHeap())
			require.NoError(t, h.CheckFreeList())
		}
	}

	for i := range slots {
		if slots[i].ptr != nil {
			verify(&slots[i])
			h.Release(slots[i].ptr)
		}
	}

	require.NoError(t, h.CheckHeap())
	require.NoError(t, h.CheckFreeList())
}
