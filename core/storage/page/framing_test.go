package page

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// --- Test Helpers ---

// openSlotFile creates an empty database-like file for framing tests.
func openSlotFile(t *testing.T) *os.File {
	t.Helper()
	f, err := os.Create(filepath.Join(t.TempDir(), "framing.db"))
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func seekTo(t *testing.T, f *os.File, offset int64) {
	t.Helper()
	_, err := f.Seek(offset, io.SeekStart)
	require.NoError(t, err)
}

func cursor(t *testing.T, f *os.File) int64 {
	t.Helper()
	pos, err := f.Seek(0, io.SeekCurrent)
	require.NoError(t, err)
	return pos
}

// --- Test Cases ---

func TestFraming_RoundTripPreservesHeaderFields(t *testing.T) {
	f := openSlotFile(t)

	orig := NewExtendPage(2)
	orig.SetPrevPageID(1)
	orig.SetNextPageID(17)
	orig.SetTransactionID(uuid.MustParse("0f0e0d0c-0b0a-0908-0706-050403020100"))
	require.NoError(t, orig.SetChunk([]byte("chained overflow bytes")))
	orig.SetItemCount(3)
	orig.SetFreeBytes(1234)

	seekTo(t, f, 2*PageSize)
	require.NoError(t, WritePage(f, orig))

	seekTo(t, f, 2*PageSize)
	got, err := ReadPage(f, false)
	require.NoError(t, err)

	read, ok := got.(*ExtendPage)
	require.True(t, ok)
	require.Equal(t, PageID(2), read.GetPageID())
	require.Equal(t, PageTypeExtend, read.Type())
	require.Equal(t, PageID(1), read.GetPrevPageID())
	require.Equal(t, PageID(17), read.GetNextPageID())
	require.Equal(t, 3, read.GetItemCount())
	require.Equal(t, 1234, read.GetFreeBytes())
	require.Equal(t, orig.GetTransactionID(), read.GetTransactionID())
	require.Equal(t, []byte("chained overflow bytes"), read.Chunk())
	require.False(t, read.IsDirty())
}

// Every Write and Read must advance the cursor by exactly one slot no
// matter how much of the content area the variant used; that is what makes
// seeking by Position(pageID) valid.
func TestFraming_CursorAdvancesExactlyOneSlot(t *testing.T) {
	f := openSlotFile(t)

	data := NewDataPage(1)
	require.NoError(t, data.SetBlock(make([]byte, 5000)))
	empty := NewEmptyPage(2)
	extend := NewExtendPage(3)
	require.NoError(t, extend.SetChunk([]byte{1}))

	for i, pg := range []Page{data, empty, extend} {
		seekTo(t, f, int64(i+1)*PageSize)
		require.NoError(t, WritePage(f, pg))
		require.Equal(t, int64(i+2)*PageSize, cursor(t, f), "write of page %d", i+1)
	}

	seekTo(t, f, PageSize)
	for i := 1; i <= 3; i++ {
		_, err := ReadPage(f, false)
		require.NoError(t, err)
		require.Equal(t, int64(i+1)*PageSize, cursor(t, f), "read of page %d", i)
	}
}

func TestFraming_FirstSlotNeverTouchesLockedRegion(t *testing.T) {
	f := openSlotFile(t)

	hdr := NewHeaderPage(0)
	hdr.ChangeID = 5
	hdr.LastPageID = 12
	hdr.UserVersion = 3
	seekTo(t, f, 0)
	require.NoError(t, WritePage(f, hdr))
	require.Equal(t, int64(PageSize), cursor(t, f))

	// The first 64 bytes belong to the file-level locked region and must
	// come out exactly as they were, zero here.
	region := make([]byte, PageHeaderSize)
	_, err := f.ReadAt(region, 0)
	require.NoError(t, err)
	require.Equal(t, make([]byte, PageHeaderSize), region)

	// Stamp the locked region with foreign bytes; reading the first slot
	// must skip them without interpreting anything.
	for i := range region {
		region[i] = 0xAB
	}
	_, err = f.WriteAt(region, 0)
	require.NoError(t, err)

	seekTo(t, f, 0)
	got, err := ReadPage(f, false)
	require.NoError(t, err)
	require.Equal(t, int64(PageSize), cursor(t, f))

	read, ok := got.(*HeaderPage)
	require.True(t, ok, "the first slot is always a header page")
	require.Equal(t, PageID(0), read.GetPageID())
	require.Equal(t, uint16(5), read.ChangeID)
	require.Equal(t, PageID(12), read.LastPageID)
	require.Equal(t, uint16(3), read.UserVersion)
}

func TestFraming_CounterBoundary(t *testing.T) {
	f := openSlotFile(t)

	// 65535 is the largest value the persisted uint16 fields can carry and
	// must round-trip exactly.
	pg := NewEmptyPage(1)
	pg.SetItemCount(65535)
	pg.SetFreeBytes(65535)
	seekTo(t, f, PageSize)
	require.NoError(t, WritePage(f, pg))

	seekTo(t, f, PageSize)
	got, err := ReadPage(f, false)
	require.NoError(t, err)
	require.Equal(t, 65535, got.Base().GetItemCount())
	require.Equal(t, 65535, got.Base().GetFreeBytes())

	// Above that the narrowing must fail, not wrap.
	pg.SetItemCount(65536)
	seekTo(t, f, PageSize)
	require.ErrorIs(t, WritePage(f, pg), ErrCounterOverflow)

	pg.SetItemCount(10)
	pg.SetFreeBytes(70000)
	seekTo(t, f, PageSize)
	require.ErrorIs(t, WritePage(f, pg), ErrCounterOverflow)
}

func TestFraming_TruncatedSlotFailsLoudly(t *testing.T) {
	f := openSlotFile(t)

	pg := NewExtendPage(1)
	require.NoError(t, pg.SetChunk([]byte("short-lived")))
	seekTo(t, f, PageSize)
	require.NoError(t, WritePage(f, pg))

	// Chop the file mid-slot: the read must fail instead of returning a
	// partially populated page.
	require.NoError(t, f.Truncate(PageSize+200))
	seekTo(t, f, PageSize)
	_, err := ReadPage(f, false)
	require.ErrorIs(t, err, ErrIO)

	// Chop inside the header itself.
	require.NoError(t, f.Truncate(PageSize+3))
	seekTo(t, f, PageSize)
	_, err = ReadPage(f, false)
	require.ErrorIs(t, err, ErrIO)
}

func TestFraming_VariantContentRoundTrips(t *testing.T) {
	f := openSlotFile(t)

	list := NewCollectionListPage(1)
	require.NoError(t, list.Add("accounts", 4))
	require.NoError(t, list.Add("events", 9))

	coll := NewCollectionPage(2)
	require.NoError(t, coll.Rename("accounts"))
	coll.SetDocumentCount(420)
	coll.FirstDataPage = 5

	idx := NewIndexPage(3)
	require.NoError(t, idx.SetNodes([]byte{0xDE, 0xAD, 0xBE, 0xEF}, 2))

	for i, pg := range []Page{list, coll, idx} {
		seekTo(t, f, int64(i+1)*PageSize)
		require.NoError(t, WritePage(f, pg))
	}

	seekTo(t, f, PageSize)
	got, err := ReadPage(f, false)
	require.NoError(t, err)
	gotList := got.(*CollectionListPage)
	id, ok := gotList.Lookup("accounts")
	require.True(t, ok)
	require.Equal(t, PageID(4), id)
	id, ok = gotList.Lookup("events")
	require.True(t, ok)
	require.Equal(t, PageID(9), id)
	_, ok = gotList.Lookup("missing")
	require.False(t, ok)

	got, err = ReadPage(f, false)
	require.NoError(t, err)
	gotColl := got.(*CollectionPage)
	require.Equal(t, "accounts", gotColl.CollectionName)
	require.Equal(t, uint64(420), gotColl.DocumentCount)
	require.Equal(t, PageID(5), gotColl.FirstDataPage)

	got, err = ReadPage(f, false)
	require.NoError(t, err)
	gotIdx := got.(*IndexPage)
	require.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, gotIdx.Nodes())
}

// A corrupt type tag is constructed as a Header page by the factory, so the
// corruption surfaces as a format error inside header validation.
func TestFraming_CorruptTagSurfacesAsFormatError(t *testing.T) {
	f := openSlotFile(t)

	pg := NewDataPage(1)
	require.NoError(t, pg.SetBlock([]byte("payload")))
	seekTo(t, f, PageSize)
	require.NoError(t, WritePage(f, pg))

	// Overwrite the type tag at offset 4 of the slot with garbage.
	_, err := f.WriteAt([]byte{0x7F}, PageSize+4)
	require.NoError(t, err)

	seekTo(t, f, PageSize)
	_, err = ReadPage(f, false)
	require.ErrorIs(t, err, ErrInvalidFormat)
}
