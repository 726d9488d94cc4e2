package page

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"
)

// Content codecs for the concrete page variants. Every codec is
// self-delimiting and bounded by PageAvailableBytes; the framing protocol
// pads whatever is left of the slot with zeros, so a codec never needs to
// fill its whole content area.
//
// Content mutators keep the base page's item count and free byte
// accounting consistent and raise the dirty flag; readers restore state
// from the stream as-is.

const (
	// headerInfo is the magic string opening the header page content.
	// Any file whose first page does not start with it is not ours.
	headerInfo = "** This is a LumaDB file **"

	// fileVersion is the current on-disk format revision.
	fileVersion = 1
)

// --- Empty ---

// EmptyPage marks a slot that holds no content, typically one released to
// the free list and waiting to be reused.
type EmptyPage struct {
	BasePage
}

func NewEmptyPage(id PageID) *EmptyPage {
	return &EmptyPage{BasePage: newBasePage(id)}
}

func (p *EmptyPage) Base() *BasePage { return &p.BasePage }
func (p *EmptyPage) Type() PageType  { return PageTypeEmpty }

func (p *EmptyPage) WriteContent(w io.Writer) error { return nil }

func (p *EmptyPage) ReadContent(r io.Reader, utc bool) error { return nil }

// --- Header ---

// HeaderPage is the single page occupying slot 0 of every database file.
// Its first 64 bytes on disk belong to the file-level locked region, so
// unlike every other variant its identity is fixed by position, not by a
// persisted page header.
type HeaderPage struct {
	BasePage

	// ChangeID increments on every header flush; collaborators use it to
	// detect concurrent file mutation.
	ChangeID uint16

	// LastPageID is the highest page id ever allocated in the file.
	LastPageID PageID

	// FreeEmptyPageID heads the chain of Empty pages available for reuse,
	// EmptyPageID when the chain is empty.
	FreeEmptyPageID PageID

	// UserVersion is an application-defined schema cookie.
	UserVersion uint16
}

func NewHeaderPage(id PageID) *HeaderPage {
	return &HeaderPage{
		BasePage:        newBasePage(id),
		LastPageID:      0,
		FreeEmptyPageID: EmptyPageID,
	}
}

func (p *HeaderPage) Base() *BasePage { return &p.BasePage }
func (p *HeaderPage) Type() PageType  { return PageTypeHeader }

func (p *HeaderPage) WriteContent(w io.Writer) error {
	buf := make([]byte, len(headerInfo)+1+2+4+4+2)
	n := copy(buf, headerInfo)
	buf[n] = fileVersion
	binary.LittleEndian.PutUint16(buf[n+1:], p.ChangeID)
	binary.LittleEndian.PutUint32(buf[n+3:], uint32(p.LastPageID))
	binary.LittleEndian.PutUint32(buf[n+7:], uint32(p.FreeEmptyPageID))
	binary.LittleEndian.PutUint16(buf[n+11:], p.UserVersion)
	return writeFull(w, buf)
}

func (p *HeaderPage) ReadContent(r io.Reader, utc bool) error {
	buf := make([]byte, len(headerInfo)+1+2+4+4+2)
	if _, err := io.ReadFull(r, buf); err != nil {
		return fmt.Errorf("%w: reading header page content: %v", ErrIO, err)
	}
	n := len(headerInfo)
	if !bytes.Equal(buf[:n], []byte(headerInfo)) {
		return fmt.Errorf("%w: bad header info string", ErrInvalidFormat)
	}
	if buf[n] != fileVersion {
		return fmt.Errorf("%w: file version %d, supported %d", ErrInvalidFormat, buf[n], fileVersion)
	}
	p.ChangeID = binary.LittleEndian.Uint16(buf[n+1:])
	p.LastPageID = PageID(binary.LittleEndian.Uint32(buf[n+3:]))
	p.FreeEmptyPageID = PageID(binary.LittleEndian.Uint32(buf[n+7:]))
	p.UserVersion = binary.LittleEndian.Uint16(buf[n+11:])
	return nil
}

// --- CollectionList ---

// CollectionListPage is the directory mapping collection names to their
// collection page ids.
type CollectionListPage struct {
	BasePage

	slots map[string]PageID
}

func NewCollectionListPage(id PageID) *CollectionListPage {
	return &CollectionListPage{BasePage: newBasePage(id), slots: make(map[string]PageID)}
}

func (p *CollectionListPage) Base() *BasePage { return &p.BasePage }
func (p *CollectionListPage) Type() PageType  { return PageTypeCollectionList }

// Lookup returns the collection page id registered under name.
func (p *CollectionListPage) Lookup(name string) (PageID, bool) {
	id, ok := p.slots[name]
	return id, ok
}

// Add registers a collection. It fails when the name cannot be encoded or
// the directory would no longer fit the content area.
func (p *CollectionListPage) Add(name string, id PageID) error {
	if len(name) == 0 || len(name) > 255 {
		return fmt.Errorf("%w: collection name length %d", ErrContentOverflow, len(name))
	}
	if _, exists := p.slots[name]; !exists {
		needed := p.encodedSize() + 1 + len(name) + 4
		if needed > PageAvailableBytes {
			return fmt.Errorf("%w: collection list full", ErrContentOverflow)
		}
	}
	p.slots[name] = id
	p.recount()
	return nil
}

// Remove drops a collection from the directory.
func (p *CollectionListPage) Remove(name string) {
	if _, ok := p.slots[name]; !ok {
		return
	}
	delete(p.slots, name)
	p.recount()
}

func (p *CollectionListPage) encodedSize() int {
	size := 2
	for name := range p.slots {
		size += 1 + len(name) + 4
	}
	return size
}

func (p *CollectionListPage) recount() {
	p.itemCount = len(p.slots)
	p.freeBytes = PageAvailableBytes - p.encodedSize()
	p.isDirty = true
}

func (p *CollectionListPage) WriteContent(w io.Writer) error {
	names := make([]string, 0, len(p.slots))
	for name := range p.slots {
		names = append(names, name)
	}
	// Deterministic layout regardless of map iteration order.
	sort.Strings(names)

	buf := make([]byte, 0, p.encodedSize())
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(names)))
	for _, name := range names {
		buf = append(buf, byte(len(name)))
		buf = append(buf, name...)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(p.slots[name]))
	}
	return writeFull(w, buf)
}

func (p *CollectionListPage) ReadContent(r io.Reader, utc bool) error {
	count, err := readUint16(r)
	if err != nil {
		return fmt.Errorf("%w: reading collection list: %v", ErrIO, err)
	}
	p.slots = make(map[string]PageID, count)
	for i := 0; i < int(count); i++ {
		name, err := readShortString(r)
		if err != nil {
			return fmt.Errorf("%w: reading collection name: %v", ErrIO, err)
		}
		id, err := readUint32(r)
		if err != nil {
			return fmt.Errorf("%w: reading collection page id: %v", ErrIO, err)
		}
		p.slots[name] = PageID(id)
	}
	return nil
}

// --- Collection ---

// CollectionPage anchors one collection: its name and document accounting.
// Index roots and data chains hang off it through the linkage fields.
type CollectionPage struct {
	BasePage

	CollectionName string
	DocumentCount  uint64
	FirstDataPage  PageID
}

func NewCollectionPage(id PageID) *CollectionPage {
	return &CollectionPage{BasePage: newBasePage(id), FirstDataPage: EmptyPageID}
}

func (p *CollectionPage) Base() *BasePage { return &p.BasePage }
func (p *CollectionPage) Type() PageType  { return PageTypeCollection }

// Rename sets the collection name, enforcing the encodable length.
func (p *CollectionPage) Rename(name string) error {
	if len(name) == 0 || len(name) > 255 {
		return fmt.Errorf("%w: collection name length %d", ErrContentOverflow, len(name))
	}
	p.CollectionName = name
	p.freeBytes = PageAvailableBytes - (1 + len(name) + 8 + 4)
	p.isDirty = true
	return nil
}

// SetDocumentCount updates the document tally.
func (p *CollectionPage) SetDocumentCount(n uint64) {
	p.DocumentCount = n
	p.isDirty = true
}

func (p *CollectionPage) WriteContent(w io.Writer) error {
	if len(p.CollectionName) > 255 {
		return fmt.Errorf("%w: collection name length %d", ErrContentOverflow, len(p.CollectionName))
	}
	buf := make([]byte, 0, 1+len(p.CollectionName)+8+4)
	buf = append(buf, byte(len(p.CollectionName)))
	buf = append(buf, p.CollectionName...)
	buf = binary.LittleEndian.AppendUint64(buf, p.DocumentCount)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(p.FirstDataPage))
	return writeFull(w, buf)
}

func (p *CollectionPage) ReadContent(r io.Reader, utc bool) error {
	name, err := readShortString(r)
	if err != nil {
		return fmt.Errorf("%w: reading collection page: %v", ErrIO, err)
	}
	var tail [12]byte
	if _, err := io.ReadFull(r, tail[:]); err != nil {
		return fmt.Errorf("%w: reading collection page: %v", ErrIO, err)
	}
	p.CollectionName = name
	p.DocumentCount = binary.LittleEndian.Uint64(tail[0:8])
	p.FirstDataPage = PageID(binary.LittleEndian.Uint32(tail[8:12]))
	return nil
}

// --- Index ---

// IndexPage stores a packed run of index nodes. The node encoding belongs
// to the index layer; this page treats it as an opaque payload.
type IndexPage struct {
	BasePage

	nodes []byte
}

func NewIndexPage(id PageID) *IndexPage {
	return &IndexPage{BasePage: newBasePage(id)}
}

func (p *IndexPage) Base() *BasePage { return &p.BasePage }
func (p *IndexPage) Type() PageType  { return PageTypeIndex }

// Nodes returns the packed node payload.
func (p *IndexPage) Nodes() []byte { return p.nodes }

// SetNodes replaces the packed node payload; count is the number of nodes
// it contains.
func (p *IndexPage) SetNodes(payload []byte, count int) error {
	return setPayload(&p.BasePage, &p.nodes, payload, count)
}

func (p *IndexPage) WriteContent(w io.Writer) error { return writePayload(w, p.nodes) }

func (p *IndexPage) ReadContent(r io.Reader, utc bool) error {
	payload, err := readPayload(r)
	if err != nil {
		return fmt.Errorf("%w: reading index page: %v", ErrIO, err)
	}
	p.nodes = payload
	return nil
}

// --- Data ---

// DataPage stores a document data block. Blocks too large for one page
// continue through a chain of Extend pages.
type DataPage struct {
	BasePage

	block []byte
}

func NewDataPage(id PageID) *DataPage {
	return &DataPage{BasePage: newBasePage(id)}
}

func (p *DataPage) Base() *BasePage { return &p.BasePage }
func (p *DataPage) Type() PageType  { return PageTypeData }

// Block returns the stored data block.
func (p *DataPage) Block() []byte { return p.block }

// SetBlock replaces the data block.
func (p *DataPage) SetBlock(data []byte) error {
	count := 0
	if len(data) > 0 {
		count = 1
	}
	return setPayload(&p.BasePage, &p.block, data, count)
}

func (p *DataPage) WriteContent(w io.Writer) error { return writePayload(w, p.block) }

func (p *DataPage) ReadContent(r io.Reader, utc bool) error {
	payload, err := readPayload(r)
	if err != nil {
		return fmt.Errorf("%w: reading data page: %v", ErrIO, err)
	}
	p.block = payload
	return nil
}

// --- Extend ---

// ExtendPage carries one chunk of an oversized data block; chunks chain
// through the prev/next linkage of the page header.
type ExtendPage struct {
	BasePage

	chunk []byte
}

func NewExtendPage(id PageID) *ExtendPage {
	return &ExtendPage{BasePage: newBasePage(id)}
}

func (p *ExtendPage) Base() *BasePage { return &p.BasePage }
func (p *ExtendPage) Type() PageType  { return PageTypeExtend }

// Chunk returns the stored overflow chunk.
func (p *ExtendPage) Chunk() []byte { return p.chunk }

// SetChunk replaces the overflow chunk.
func (p *ExtendPage) SetChunk(data []byte) error {
	count := 0
	if len(data) > 0 {
		count = 1
	}
	return setPayload(&p.BasePage, &p.chunk, data, count)
}

func (p *ExtendPage) WriteContent(w io.Writer) error { return writePayload(w, p.chunk) }

func (p *ExtendPage) ReadContent(r io.Reader, utc bool) error {
	payload, err := readPayload(r)
	if err != nil {
		return fmt.Errorf("%w: reading extend page: %v", ErrIO, err)
	}
	p.chunk = payload
	return nil
}

// --- Shared codec helpers ---

// setPayload installs an opaque length-prefixed payload on a page, keeping
// the item/free accounting consistent and raising the dirty flag.
func setPayload(b *BasePage, dst *[]byte, payload []byte, count int) error {
	if len(payload) > PageAvailableBytes-2 {
		return fmt.Errorf("%w: payload %d bytes, budget %d", ErrContentOverflow, len(payload), PageAvailableBytes-2)
	}
	*dst = append((*dst)[:0], payload...)
	b.itemCount = count
	b.freeBytes = PageAvailableBytes - 2 - len(payload)
	b.isDirty = true
	return nil
}

func writePayload(w io.Writer, payload []byte) error {
	if len(payload) > PageAvailableBytes-2 {
		return fmt.Errorf("%w: payload %d bytes", ErrContentOverflow, len(payload))
	}
	var prefix [2]byte
	binary.LittleEndian.PutUint16(prefix[:], uint16(len(payload)))
	if err := writeFull(w, prefix[:]); err != nil {
		return err
	}
	return writeFull(w, payload)
}

func readPayload(r io.Reader) ([]byte, error) {
	size, err := readUint16(r)
	if err != nil {
		return nil, err
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func readShortString(r io.Reader) (string, error) {
	var size [1]byte
	if _, err := io.ReadFull(r, size[:]); err != nil {
		return "", err
	}
	buf := make([]byte, size[0])
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func readUint16(r io.Reader) (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf[:]), nil
}

func readUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func writeFull(w io.Writer, buf []byte) error {
	n, err := w.Write(buf)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	if n != len(buf) {
		return fmt.Errorf("%w: short write, %d of %d bytes", ErrIO, n, len(buf))
	}
	return nil
}
