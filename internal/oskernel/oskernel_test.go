package oskernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testProcRoot = "testdata/proc"

func TestRegionLength(t *testing.T) {
	regions, err := NewMapsRegions(testProcRoot, 4242)
	require.NoError(t, err)

	testCases := []struct {
		addr  uint64
		want  uint64
		found bool
	}{
		{0x40000000, 0x5000, true},
		{0x40006000, 0x9000, true},
		{0x6601a000, 0x1000, true},
		{0x40001000, 0, false},
		{0xdead0000, 0, false},
	}

	for _, tc := range testCases {
		got, ok, err := regions.RegionLength(tc.addr)
		require.NoError(t, err)
		assert.Equal(t, tc.found, ok, "%#x", tc.addr)
		assert.Equal(t, tc.want, got, "%#x", tc.addr)
	}
}

func TestRegionLengthMissingProcess(t *testing.T) {
	regions, err := NewMapsRegions(testProcRoot, 1)
	require.NoError(t, err)

	_, _, err = regions.RegionLength(0x40000000)
	assert.Error(t, err)
}

func TestProcMemory(t *testing.T) {
	mem, err := OpenProcMemory(testProcRoot, 4242)
	require.NoError(t, err)
	defer mem.Close()

	data, err := mem.ReadAt(10, 6)
	require.NoError(t, err)
	assert.Equal(t, []byte("abcdef"), data)

	_, err = mem.ReadAt(30, 64)
	assert.Error(t, err)
}
