package page

import (
	"encoding/binary"
	"fmt"
	"io"
)

// The framing protocol maps one logical page onto exactly one PageSize-byte
// slot of the stream, in either direction. Whatever a variant's content
// codec does, WritePage and ReadPage always advance the stream cursor by
// exactly PageSize bytes, which is what makes seeking by Position(pageID)
// valid.
//
// The utc flag is passed through to the variant content readers untouched;
// it controls time-value interpretation in content-specific fields and is
// opaque to the framing layer.

// WritePage frames p into the slot starting at the current stream offset.
func WritePage(ws io.WriteSeeker, p Page) error {
	start, err := ws.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("%w: locating slot start: %v", ErrIO, err)
	}

	if start == 0 {
		// File-format convention: the first 64 bytes of the file belong to
		// the file-level locked region (credentials/salt), not to this page.
		// Skip them without writing a header.
		if _, err := ws.Seek(PageHeaderSize, io.SeekCurrent); err != nil {
			return fmt.Errorf("%w: skipping locked region: %v", ErrIO, err)
		}
	} else {
		hdr, err := encodeHeader(p)
		if err != nil {
			return err
		}
		if err := writeFull(ws, hdr); err != nil {
			return fmt.Errorf("writing page %d header: %w", p.Base().id, err)
		}
	}

	if err := p.WriteContent(ws); err != nil {
		return fmt.Errorf("writing page %d content: %w", p.Base().id, err)
	}

	cur, err := ws.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("%w: locating slot end: %v", ErrIO, err)
	}
	used := cur - start
	if used > PageSize {
		return fmt.Errorf("%w: page %d wrote %d bytes into a %d byte slot", ErrContentOverflow, p.Base().id, used, PageSize)
	}
	if pad := PageSize - used; pad > 0 {
		if err := writeFull(ws, make([]byte, pad)); err != nil {
			return fmt.Errorf("padding page %d slot: %w", p.Base().id, err)
		}
	}
	return nil
}

// ReadPage decodes the slot starting at the current stream offset into a
// freshly constructed page of the persisted type.
func ReadPage(rs io.ReadSeeker, utc bool) (Page, error) {
	start, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("%w: locating slot start: %v", ErrIO, err)
	}

	var p Page
	if start == 0 {
		// The first slot of every valid file is the database header page by
		// convention, and its first 64 bytes are the locked region. Consume
		// them without interpreting anything.
		if err := discard(rs, PageHeaderSize); err != nil {
			return nil, fmt.Errorf("skipping locked region: %w", err)
		}
		p = NewHeaderPage(0)
	} else {
		var head [5]byte
		if _, err := io.ReadFull(rs, head[:]); err != nil {
			return nil, fmt.Errorf("%w: reading slot at offset %d: %v", ErrIO, start, err)
		}
		id := PageID(binary.LittleEndian.Uint32(head[0:4]))
		p = CreatePage(id, PageType(head[4]))
		if err := decodeHeaderTail(rs, p.Base()); err != nil {
			return nil, err
		}
	}

	if err := p.ReadContent(rs, utc); err != nil {
		return nil, err
	}

	cur, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("%w: locating slot end: %v", ErrIO, err)
	}
	used := cur - start
	if used > PageSize {
		return nil, fmt.Errorf("%w: page %d read %d bytes out of a %d byte slot", ErrContentOverflow, p.Base().id, used, PageSize)
	}
	if err := discard(rs, PageSize-used); err != nil {
		return nil, fmt.Errorf("draining page %d slot: %w", p.Base().id, err)
	}
	return p, nil
}

// discard consumes exactly n bytes, failing loudly when the stream ends
// mid-slot instead of returning a partially populated page.
func discard(r io.Reader, n int64) error {
	if n == 0 {
		return nil
	}
	copied, err := io.CopyN(io.Discard, r, n)
	if err != nil {
		return fmt.Errorf("%w: stream ends mid-slot, %d of %d padding bytes: %v", ErrIO, copied, n, err)
	}
	return nil
}
