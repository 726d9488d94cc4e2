package page

import (
	"fmt"
	"math"
)

// Position converts a page id to its absolute byte offset in the file.
// The multiplication is overflow-checked rather than wrapping; for 32-bit
// page ids the product never actually reaches the int64 boundary, but the
// check keeps the contract explicit.
func Position(pageID uint32) (int64, error) {
	if int64(pageID) > math.MaxInt64/PageSize {
		return 0, fmt.Errorf("%w: page id %d", ErrPositionOverflow, pageID)
	}
	return int64(pageID) * PageSize, nil
}

// PositionInt is the signed form of Position for callers holding page ids
// in signed integers. Negative ids are a caller error, not a valid offset.
func PositionInt(pageID int32) (int64, error) {
	if pageID < 0 {
		return 0, fmt.Errorf("%w: page id %d", ErrNegativePageID, pageID)
	}
	return Position(uint32(pageID))
}
