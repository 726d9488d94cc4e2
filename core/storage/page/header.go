package page

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Page header layout, per slot:
//
//	offset 0  size 4   page id
//	offset 4  size 1   page type tag
//	offset 5  size 4   prev page id (0xFFFFFFFF = none)
//	offset 9  size 4   next page id (0xFFFFFFFF = none)
//	offset 13 size 2   item count
//	offset 15 size 2   free bytes
//	offset 17 size 16  transaction id (all-zero = empty)
//	offset 33 size 31  reserved, zero-filled
//
// All integer fields are little-endian. In the first file slot the whole
// 64-byte prefix belongs to the file-level locked region and none of this
// layout applies.

// encodeHeader serializes the full 64-byte page header of p.
func encodeHeader(p Page) ([]byte, error) {
	b := p.Base()
	itemCount, err := narrowCounter("item count", b.itemCount)
	if err != nil {
		return nil, err
	}
	freeBytes, err := narrowCounter("free bytes", b.freeBytes)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, PageHeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(b.id))
	buf[4] = byte(p.Type())
	binary.LittleEndian.PutUint32(buf[5:9], uint32(b.prevPageID))
	binary.LittleEndian.PutUint32(buf[9:13], uint32(b.nextPageID))
	binary.LittleEndian.PutUint16(buf[13:15], itemCount)
	binary.LittleEndian.PutUint16(buf[15:17], freeBytes)
	copy(buf[17:33], b.transactionID[:])
	// buf[33:64] stays zero: reserved bytes.
	return buf, nil
}

// decodeHeaderTail fills in the header fields of b from r. The caller has
// already consumed the leading page id and type tag (they were needed to
// select the concrete variant), so r is positioned at offset 5 of the slot
// and exactly PageHeaderSize-5 bytes are consumed here, reserved tail
// included.
func decodeHeaderTail(r io.Reader, b *BasePage) error {
	buf := make([]byte, PageHeaderSize-5)
	if _, err := io.ReadFull(r, buf); err != nil {
		return fmt.Errorf("%w: reading page %d header: %v", ErrIO, b.id, err)
	}
	b.prevPageID = PageID(binary.LittleEndian.Uint32(buf[0:4]))
	b.nextPageID = PageID(binary.LittleEndian.Uint32(buf[4:8]))
	b.itemCount = int(binary.LittleEndian.Uint16(buf[8:10]))
	b.freeBytes = int(binary.LittleEndian.Uint16(buf[10:12]))
	copy(b.transactionID[:], buf[12:28])
	// buf[28:] is the reserved tail, discarded.
	return nil
}

// narrowCounter converts an in-memory counter to its persisted uint16 form,
// failing instead of wrapping when the value left the 16-bit range.
func narrowCounter(name string, v int) (uint16, error) {
	if v < 0 || v > maxCounterValue {
		return 0, fmt.Errorf("%w: %s %d", ErrCounterOverflow, name, v)
	}
	return uint16(v), nil
}
