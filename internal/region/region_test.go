package region

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocZeroed(t *testing.T) {
	data, release, err := Alloc(64 * 1024)
	require.NoError(t, err)
	require.Len(t, data, 64*1024)
	defer func() { require.NoError(t, release()) }()

	for i, b := range data {
		require.Zero(t, b, "byte %d not zeroed", i)
	}

	// Region is writable end to end.
	data[0] = 0xAA
	data[len(data)-1] = 0xBB
	require.Equal(t, byte(0xAA), data[0])
	require.Equal(t, byte(0xBB), data[len(data)-1])
}

func TestAllocBadSize(t *testing.T) {
	_, _, err := Alloc(0)
	require.ErrorIs(t, err, ErrSize)

	_, _, err = Alloc(-4096)
	require.ErrorIs(t, err, ErrSize)
}

func TestDoubleRelease(t *testing.T) {
	_, release, err := Alloc(4096)
	require.NoError(t, err)

	require.NoError(t, release())
	require.NoError(t, release())
}
