// Package page implements the fixed-size page abstraction of the LumaDB
// single-file storage format: page identity and linkage, the 64-byte page
// header codec, the framing protocol that maps every page onto exactly one
// 8 KiB slot of the database file, and the page type factory.
package page

import (
	"io"

	"github.com/google/uuid"
)

// --- Page Layout Constants ---

const (
	// PageSize is the fixed slot size of every page in the database file.
	PageSize = 8192

	// PageHeaderSize is the fixed prefix of every slot reserved for the page
	// header (and, in the first slot only, for the file-level locked region).
	PageHeaderSize = 64

	// PageAvailableBytes is the content budget of a single page.
	PageAvailableBytes = PageSize - PageHeaderSize

	// reservedHeaderBytes is the zero-filled tail of the page header, kept
	// for future format revisions.
	reservedHeaderBytes = 31

	// maxCounterValue is the largest value the persisted uint16 counters
	// (item count, free bytes) can hold.
	maxCounterValue = 1<<16 - 1
)

// PageID identifies a page on disk. PageID 0 is reserved for the single
// database header page.
type PageID uint32

// EmptyPageID is the sentinel link value meaning "no page".
const EmptyPageID PageID = 0xFFFFFFFF

// PageType is the one-byte tag persisted at offset 4 of every page header.
type PageType byte

const (
	PageTypeEmpty          PageType = 0
	PageTypeHeader         PageType = 1
	PageTypeCollectionList PageType = 2
	PageTypeCollection     PageType = 3
	PageTypeIndex          PageType = 4
	PageTypeData           PageType = 5
	PageTypeExtend         PageType = 6
)

func (t PageType) String() string {
	switch t {
	case PageTypeEmpty:
		return "Empty"
	case PageTypeHeader:
		return "Header"
	case PageTypeCollectionList:
		return "CollectionList"
	case PageTypeCollection:
		return "Collection"
	case PageTypeIndex:
		return "Index"
	case PageTypeData:
		return "Data"
	case PageTypeExtend:
		return "Extend"
	}
	return "Unknown"
}

// Page is the contract every concrete page variant satisfies. The header
// fields live in the embedded BasePage; WriteContent/ReadContent cover the
// variant-specific content area only, and must consume or produce no more
// than PageAvailableBytes. The framing protocol enforces total slot size
// via padding, not the variant.
type Page interface {
	Base() *BasePage
	Type() PageType
	WriteContent(w io.Writer) error
	ReadContent(r io.Reader, utc bool) error
}

// BasePage holds the header fields shared by all page variants, plus the
// transient dirty flag. The dirty flag is never part of the serialized
// representation; it is observed and cleared only by the component that
// performs the actual flush.
type BasePage struct {
	id            PageID
	prevPageID    PageID
	nextPageID    PageID
	itemCount     int
	freeBytes     int
	transactionID uuid.UUID
	isDirty       bool
}

// newBasePage returns the default state of a freshly constructed page:
// no links, zero items, a full content area, no owning transaction, clean.
func newBasePage(id PageID) BasePage {
	return BasePage{
		id:            id,
		prevPageID:    EmptyPageID,
		nextPageID:    EmptyPageID,
		itemCount:     0,
		freeBytes:     PageAvailableBytes,
		transactionID: uuid.Nil,
		isDirty:       false,
	}
}

func (b *BasePage) GetPageID() PageID               { return b.id }
func (b *BasePage) GetPrevPageID() PageID           { return b.prevPageID }
func (b *BasePage) GetNextPageID() PageID           { return b.nextPageID }
func (b *BasePage) GetItemCount() int               { return b.itemCount }
func (b *BasePage) GetFreeBytes() int               { return b.freeBytes }
func (b *BasePage) GetTransactionID() uuid.UUID     { return b.transactionID }
func (b *BasePage) IsDirty() bool                   { return b.isDirty }
func (b *BasePage) SetDirty(dirty bool)             { b.isDirty = dirty }
func (b *BasePage) SetPrevPageID(id PageID)         { b.prevPageID = id }
func (b *BasePage) SetNextPageID(id PageID)         { b.nextPageID = id }
func (b *BasePage) SetTransactionID(txID uuid.UUID) { b.transactionID = txID }

// SetItemCount updates the logical item count. The value is held as an int
// in memory but persisted as uint16; the header codec rejects values outside
// [0, 65535] at the serialization boundary rather than silently wrapping.
func (b *BasePage) SetItemCount(n int) { b.itemCount = n }

// SetFreeBytes updates the remaining content budget. Same 16-bit persistence
// contract as SetItemCount.
func (b *BasePage) SetFreeBytes(n int) { b.freeBytes = n }

// ClonePage produces an independent deep copy of p by running it through the
// framing protocol against an in-memory slot. The copy carries the same
// persisted state as p and is always clean: the dirty flag lives outside the
// serialized representation, so it cannot survive the round trip.
func ClonePage(p Page) (Page, error) {
	// A two-slot buffer so the clone round-trips through a non-zero offset;
	// offset 0 is the locked-region special case and must not apply here.
	ms := newMemStream(2 * PageSize)
	if _, err := ms.Seek(PageSize, io.SeekStart); err != nil {
		return nil, err
	}
	if err := WritePage(ms, p); err != nil {
		return nil, err
	}
	if _, err := ms.Seek(PageSize, io.SeekStart); err != nil {
		return nil, err
	}
	return ReadPage(ms, false)
}
