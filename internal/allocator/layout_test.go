package allocator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGeometryRoundTrip(t *testing.T) {
	g := newGeometry(DefaultConfig())

	buf := make([]byte, 4096)
	base := arenaBaseAddr(buf)

	payload := uintptr(64)
	g.setHeader(base, payload, 0)
	g.setFooter(base, payload)

	require.Equal(t, payload, g.sizeOf(base))
	require.False(t, g.isFree(base))
	require.False(t, g.isMMAP(base))

	g.setHeader(base, payload, freeBit)
	require.True(t, g.isFree(base))

	g.setHeader(base, payload, mmapBit)
	require.True(t, g.isMMAP(base))
	require.False(t, g.isFree(base))
}

func TestGeometryNavigation(t *testing.T) {
	g := newGeometry(DefaultConfig())
	buf := make([]byte, 4096)
	base := arenaBaseAddr(buf)

	firstPayload := uintptr(48)
	g.setHeader(base, firstPayload, 0)
	g.setFooter(base, firstPayload)

	next := g.nextHeader(base)
	require.Equal(t, base+g.blockSpan(firstPayload), next)

	secondPayload := uintptr(32)
	g.setHeader(next, secondPayload, freeBit)
	g.setFooter(next, secondPayload)

	require.Equal(t, base, g.prevHeader(next))
}

func TestAlignUp(t *testing.T) {
	require.EqualValues(t, 16, alignUp(1, 16))
	require.EqualValues(t, 16, alignUp(16, 16))
	require.EqualValues(t, 32, alignUp(17, 16))
	require.EqualValues(t, 0, alignUp(0, 16))
}

func arenaBaseAddr(buf []byte) uintptr {
	return uintptrOf(buf)
}
