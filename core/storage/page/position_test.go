package page

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPosition_MapsPageIDToByteOffset(t *testing.T) {
	pos, err := Position(0)
	require.NoError(t, err)
	require.Equal(t, int64(0), pos)

	pos, err = Position(2)
	require.NoError(t, err)
	require.Equal(t, int64(16384), pos)

	pos, err = Position(1000)
	require.NoError(t, err)
	require.Equal(t, int64(1000*PageSize), pos)
}

// The product of any 32-bit page id and the page size fits an int64, so the
// overflow branch must never fire for valid inputs, the maximum included.
func TestPosition_MaxPageIDDoesNotOverflow(t *testing.T) {
	pos, err := Position(math.MaxUint32)
	require.NoError(t, err)
	require.Equal(t, int64(math.MaxUint32)*PageSize, pos)
}

func TestPositionInt_RejectsNegativePageIDs(t *testing.T) {
	for _, id := range []int32{-1, -42, math.MinInt32} {
		_, err := PositionInt(id)
		require.ErrorIs(t, err, ErrNegativePageID, "page id %d", id)
	}
}

func TestPositionInt_DelegatesToUnsignedForm(t *testing.T) {
	pos, err := PositionInt(2)
	require.NoError(t, err)
	require.Equal(t, int64(16384), pos)

	pos, err = PositionInt(math.MaxInt32)
	require.NoError(t, err)
	require.Equal(t, int64(math.MaxInt32)*PageSize, pos)
}
