package pager

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lumadb/lumadb/core/storage/page"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// --- Test Helpers ---

func setupPager(t *testing.T) (*Pager, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	logger, err := zap.NewDevelopment()
	require.NoError(t, err)

	p, err := Open(Config{Path: path}, logger, nil)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p, path
}

// --- Test Cases ---

func TestOpen_CreatesFreshFileWithHeaderSlot(t *testing.T) {
	p, path := setupPager(t)

	hdr := p.Header()
	require.Equal(t, page.PageID(0), hdr.GetPageID())
	require.Equal(t, page.PageID(0), hdr.LastPageID)

	fi, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, int64(page.PageSize), fi.Size())
}

func TestPager_AllocateWriteReadRoundTrip(t *testing.T) {
	p, path := setupPager(t)

	pg, err := p.AllocatePage(page.PageTypeData)
	require.NoError(t, err)
	require.Equal(t, page.PageID(1), pg.Base().GetPageID())

	data := pg.(*page.DataPage)
	require.NoError(t, data.SetBlock([]byte("hello pages")))
	require.True(t, data.IsDirty())

	require.NoError(t, p.WritePage(data))
	require.False(t, data.IsDirty(), "flushing clears the dirty flag")
	require.NoError(t, p.Close())

	// A second pager over the same file must see the persisted state.
	p2, err := Open(Config{Path: path}, zap.NewNop(), nil)
	require.NoError(t, err)
	defer p2.Close()

	require.Equal(t, page.PageID(1), p2.Header().LastPageID)
	got, err := p2.ReadPage(1)
	require.NoError(t, err)
	require.Equal(t, []byte("hello pages"), got.(*page.DataPage).Block())
}

func TestPager_ReadBeyondAllocatedPagesFails(t *testing.T) {
	p, _ := setupPager(t)

	_, err := p.ReadPage(1)
	require.ErrorIs(t, err, ErrPageOutOfBounds)

	_, err = p.AllocatePage(page.PageTypeIndex)
	require.NoError(t, err)
	_, err = p.ReadPage(1)
	require.NoError(t, err)
	_, err = p.ReadPage(2)
	require.ErrorIs(t, err, ErrPageOutOfBounds)
}

func TestPager_WriteBeyondAllocatedPagesFails(t *testing.T) {
	p, _ := setupPager(t)

	stray := page.NewDataPage(9)
	require.ErrorIs(t, p.WritePage(stray), ErrPageOutOfBounds)
}

func TestPager_LockedRegionIsOpaque(t *testing.T) {
	p, path := setupPager(t)

	salt := []byte("credentials+salt")
	require.NoError(t, p.WriteLockedRegion(salt))
	require.NoError(t, p.Close())

	// The locked region must not disturb header validation, and must read
	// back byte for byte.
	p2, err := Open(Config{Path: path}, zap.NewNop(), nil)
	require.NoError(t, err)
	defer p2.Close()

	region, err := p2.ReadLockedRegion()
	require.NoError(t, err)
	require.Len(t, region, page.PageHeaderSize)
	require.Equal(t, salt, region[:len(salt)])

	require.ErrorIs(t, p2.WriteLockedRegion(make([]byte, page.PageHeaderSize+1)), ErrLockedRegion)
}

func TestOpen_RejectsForeignFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "foreign.db")

	// A page-sized file of zeros has no header magic.
	require.NoError(t, os.WriteFile(path, make([]byte, page.PageSize), 0666))
	_, err := Open(Config{Path: path}, zap.NewNop(), nil)
	require.ErrorIs(t, err, page.ErrInvalidFormat)

	// A file that is not slot-aligned is rejected before any decoding.
	require.NoError(t, os.WriteFile(path, make([]byte, page.PageSize+100), 0666))
	_, err = Open(Config{Path: path}, zap.NewNop(), nil)
	require.ErrorIs(t, err, ErrBadFileSize)
}

func TestPager_ClosedPagerRefusesWork(t *testing.T) {
	p, _ := setupPager(t)
	require.NoError(t, p.Close())

	_, err := p.ReadPage(0)
	require.ErrorIs(t, err, ErrPagerClosed)
	require.ErrorIs(t, p.WritePage(page.NewDataPage(1)), ErrPagerClosed)
	_, err = p.AllocatePage(page.PageTypeData)
	require.ErrorIs(t, err, ErrPagerClosed)
	require.ErrorIs(t, p.Sync(), ErrPagerClosed)
	require.NoError(t, p.Close(), "double close is a no-op")
}
