package allocator

import (
	"bytes"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestCanaryWriteAndCheckRoundTrip(t *testing.T) {
	h := newAPITestHeap(t, WithCanaries(true))

	p := h.Alloc(48)
	require.NotNil(t, p)

	header := h.headerOf(p)
	require.True(t, h.checkCanary(header))
}

func TestCanaryCorruptionIsDetected(t *testing.T) {
	h := newAPITestHeap(t, WithCanaries(true))

	p := h.Alloc(48)
	require.NotNil(t, p)

	header := h.headerOf(p)
	canary := unsafe.Slice((*byte)(unsafe.Pointer(h.g.canaryPtr(header))), int(h.g.canarySize))
	canary[0] ^= 0xFF

	require.False(t, h.checkCanary(header))
}

func TestCanaryCorruptionTrapsOnRelease(t *testing.T) {
	h := newAPITestHeap(t, WithCanaries(true), WithDebug(true))

	p := h.Alloc(48)
	require.NotNil(t, p)

	header := h.headerOf(p)
	canary := unsafe.Slice((*byte)(unsafe.Pointer(h.g.canaryPtr(header))), int(h.g.canarySize))
	canary[0] ^= 0xFF

	require.Panics(t, func() { h.Release(p) })
}

func TestPoisonAllocFillsPayloadWithAllocPattern(t *testing.T) {
	h := newAPITestHeap(t, WithPoisoning(true))

	p := h.Alloc(64)
	require.NotNil(t, p)

	header := h.headerOf(p)
	require.True(t, bytesEqual(h.g.payloadPtr(header), h.g.sizeOf(header), allocPoisonByte))
}

func TestPoisonFreeFillsPayloadWithFreePattern(t *testing.T) {
	h := newAPITestHeap(t, WithPoisoning(true))

	p := h.Alloc(64)
	require.NotNil(t, p)

	header := h.headerOf(p)
	size := h.g.sizeOf(header)

	h.Release(p)

	require.True(t, bytesEqual(h.g.payloadPtr(header), size, freePoisonByte))
}

func TestCheckHeapDetectsAdjacentFreeBlocks(t *testing.T) {
	h := newAPITestHeap(t, WithIntegrityChecks(false))

	a, err := h.mallocBlock(64)
	require.NoError(t, err)
	b, err := h.mallocBlock(64)
	require.NoError(t, err)

	// Deliberately mark both free without coalescing, violating the
	// "no two adjacent free blocks" invariant so CheckHeap can catch it.
	h.g.setHeader(a, h.g.sizeOf(a), freeBit)
	h.g.setHeader(b, h.g.sizeOf(b), freeBit)

	require.Error(t, h.CheckHeap())
}

func TestCheckFreeListDetectsMisclassifiedBlock(t *testing.T) {
	h := newAPITestHeap(t)

	block, err := h.mallocBlock(64)
	require.NoError(t, err)

	h.g.setHeader(block, h.g.sizeOf(block), freeBit)

	// Insert it directly into the wrong class, bypassing add()'s own
	// classOf computation.
	wrongClass := uint(len(h.fl.heads) - 1)
	setPrevPtr(h.g, block, 0)
	setNextPtr(h.g, block, h.fl.heads[wrongClass])
	h.fl.heads[wrongClass] = block
	h.fl.present |= 1 << wrongClass

	require.Error(t, h.CheckFreeList())
}

func TestDumpArenaAndFreeListsAndStatsProduceOutput(t *testing.T) {
	h := newAPITestHeap(t)

	p := h.Alloc(64)
	require.NotNil(t, p)
	h.Release(h.Alloc(32))

	var arenaBuf, flBuf, statsBuf bytes.Buffer
	h.DumpArena(&arenaBuf)
	h.DumpFreeLists(&flBuf)
	h.PrintStats(&statsBuf)

	require.NotEmpty(t, arenaBuf.String())
	require.Contains(t, statsBuf.String(), "Stats:")
}

func TestFormatSizeScalesUnits(t *testing.T) {
	require.Equal(t, "512.00B", formatSize(512))
	require.Equal(t, "1.00KiB", formatSize(1024))
	require.Equal(t, "1.00MiB", formatSize(1024*1024))
}
