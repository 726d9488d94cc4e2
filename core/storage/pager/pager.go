// Package pager owns the single database file: it creates or validates the
// file, seeks slots by page position, and moves whole pages through the
// framing protocol. It provides no caching and no locking beyond the mutex
// that serializes access to the shared file cursor; buffer management and
// transaction isolation belong to the layers above.
package pager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/lumadb/lumadb/core/storage/page"
	internaltelemetry "github.com/lumadb/lumadb/internal/telemetry"
	"go.uber.org/zap"
)

var (
	ErrPagerClosed     = errors.New("pager is closed")
	ErrPageOutOfBounds = errors.New("page id beyond end of file")
	ErrBadFileSize     = errors.New("database file size is not a multiple of the page size")
	ErrLockedRegion    = errors.New("locked region payload exceeds its reserved bytes")
)

// Config holds the pager configuration.
type Config struct {
	// Path is the database file path. The file is created when it does not
	// exist yet.
	Path string `yaml:"path"`
	// UTC controls time-value interpretation in page content fields; it is
	// passed through to the page content readers untouched.
	UTC bool `yaml:"utc"`
}

// Pager is the file-backed page store. All methods are safe for use from a
// single goroutine at a time per page; the internal mutex only protects the
// shared file cursor.
type Pager struct {
	path    string
	utc     bool
	log     *zap.Logger
	metrics *internaltelemetry.PagerMetrics

	mu     sync.Mutex
	file   *os.File
	header *page.HeaderPage
}

// Open opens an existing database file or creates a fresh one. A fresh file
// gets a zeroed locked region and a header page in slot 0. metrics may be
// nil when telemetry is disabled.
func Open(cfg Config, log *zap.Logger, metrics *internaltelemetry.PagerMetrics) (*Pager, error) {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Pager{path: cfg.Path, utc: cfg.UTC, log: log, metrics: metrics}

	_, statErr := os.Stat(cfg.Path)
	switch {
	case os.IsNotExist(statErr):
		if err := p.create(); err != nil {
			return nil, err
		}
	case statErr == nil:
		if err := p.open(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: stating %s: %v", page.ErrIO, cfg.Path, statErr)
	}
	return p, nil
}

func (p *Pager) create() error {
	file, err := os.OpenFile(p.path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0666)
	if err != nil {
		return fmt.Errorf("%w: creating %s: %v", page.ErrIO, p.path, err)
	}
	p.file = file

	// Slot 0 holds a fresh header page; the framing protocol leaves the
	// locked region bytes untouched (zero) when writing it.
	p.header = page.NewHeaderPage(0)
	if err := p.writeHeaderLocked(); err != nil {
		p.file.Close()
		p.file = nil
		_ = os.Remove(p.path)
		return fmt.Errorf("initializing database file: %w", err)
	}
	if err := p.file.Sync(); err != nil {
		return fmt.Errorf("%w: syncing new file: %v", page.ErrIO, err)
	}
	p.log.Info("created database file", zap.String("path", p.path))
	return nil
}

func (p *Pager) open() error {
	file, err := os.OpenFile(p.path, os.O_RDWR, 0666)
	if err != nil {
		return fmt.Errorf("%w: opening %s: %v", page.ErrIO, p.path, err)
	}
	p.file = file

	fi, err := file.Stat()
	if err != nil {
		p.Close()
		return fmt.Errorf("%w: stating open file: %v", page.ErrIO, err)
	}
	if fi.Size() < page.PageSize || fi.Size()%page.PageSize != 0 {
		p.Close()
		return fmt.Errorf("%w: %d bytes", ErrBadFileSize, fi.Size())
	}

	// Slot 0 is the header page by file-format convention; its content
	// codec is also the format validator (magic string, file version).
	pg, err := p.readPageLocked(0)
	if err != nil {
		p.Close()
		return fmt.Errorf("reading database header: %w", err)
	}
	hdr, ok := pg.(*page.HeaderPage)
	if !ok {
		p.Close()
		return fmt.Errorf("%w: slot 0 is not a header page", page.ErrInvalidFormat)
	}
	p.header = hdr

	maxSlot := page.PageID(fi.Size()/page.PageSize - 1)
	if hdr.LastPageID > maxSlot {
		p.Close()
		return fmt.Errorf("%w: header claims %d pages, file holds %d", page.ErrInvalidFormat, hdr.LastPageID+1, maxSlot+1)
	}
	p.log.Info("opened database file",
		zap.String("path", p.path),
		zap.Uint32("lastPageID", uint32(hdr.LastPageID)),
		zap.Uint16("changeID", hdr.ChangeID))
	return nil
}

// Header returns the in-memory header page of the open file.
func (p *Pager) Header() *page.HeaderPage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.header
}

// ReadPage reads the page stored in the slot of id.
func (p *Pager) ReadPage(id page.PageID) (page.Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.file == nil {
		return nil, ErrPagerClosed
	}
	if id != 0 && id > p.header.LastPageID {
		return nil, fmt.Errorf("%w: page %d, last allocated %d", ErrPageOutOfBounds, id, p.header.LastPageID)
	}
	return p.readPageLocked(id)
}

func (p *Pager) readPageLocked(id page.PageID) (page.Page, error) {
	pos, err := page.Position(uint32(id))
	if err != nil {
		return nil, err
	}
	if _, err := p.file.Seek(pos, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: seeking page %d at offset %d: %v", page.ErrIO, id, pos, err)
	}
	pg, err := page.ReadPage(p.file, p.utc)
	if err != nil {
		return nil, fmt.Errorf("reading page %d: %w", id, err)
	}
	if p.metrics != nil {
		ctx := context.Background()
		p.metrics.PagesReadCounter.Add(ctx, 1)
		p.metrics.BytesReadCounter.Add(ctx, page.PageSize)
	}
	p.log.Debug("read page",
		zap.Uint32("pageID", uint32(id)),
		zap.Int64("offset", pos),
		zap.String("type", pg.Type().String()))
	return pg, nil
}

// WritePage flushes pg into its slot and clears its dirty flag. The page
// must already be allocated; growing the file goes through AllocatePage.
func (p *Pager) WritePage(pg page.Page) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.file == nil {
		return ErrPagerClosed
	}
	id := pg.Base().GetPageID()
	if id > p.header.LastPageID {
		return fmt.Errorf("%w: page %d, last allocated %d", ErrPageOutOfBounds, id, p.header.LastPageID)
	}
	return p.writePageLocked(pg)
}

func (p *Pager) writePageLocked(pg page.Page) error {
	id := pg.Base().GetPageID()
	pos, err := page.Position(uint32(id))
	if err != nil {
		return err
	}
	if _, err := p.file.Seek(pos, io.SeekStart); err != nil {
		return fmt.Errorf("%w: seeking page %d at offset %d: %v", page.ErrIO, id, pos, err)
	}
	if err := page.WritePage(p.file, pg); err != nil {
		return fmt.Errorf("writing page %d: %w", id, err)
	}
	// The pager is the component that performs the actual flush, so it is
	// the one that clears the dirty flag.
	pg.Base().SetDirty(false)
	if p.metrics != nil {
		ctx := context.Background()
		p.metrics.PagesWrittenCounter.Add(ctx, 1)
		p.metrics.BytesWrittenCounter.Add(ctx, page.PageSize)
	}
	p.log.Debug("wrote page",
		zap.Uint32("pageID", uint32(id)),
		zap.Int64("offset", pos),
		zap.String("type", pg.Type().String()))
	return nil
}

// AllocatePage extends the file by one slot holding a fresh page of type t
// and persists the updated header accounting.
func (p *Pager) AllocatePage(t page.PageType) (page.Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.file == nil {
		return nil, ErrPagerClosed
	}
	id := p.header.LastPageID + 1
	pg, err := page.NewPageOfType(id, t)
	if err != nil {
		return nil, err
	}
	if err := p.writePageLocked(pg); err != nil {
		return nil, fmt.Errorf("allocating page %d: %w", id, err)
	}
	p.header.LastPageID = id
	if err := p.writeHeaderLocked(); err != nil {
		return nil, err
	}
	if p.metrics != nil {
		p.metrics.PagesAllocatedCounter.Add(context.Background(), 1)
	}
	p.log.Debug("allocated page",
		zap.Uint32("pageID", uint32(id)),
		zap.String("type", t.String()))
	return pg, nil
}

// WriteHeader persists the header page, bumping its change counter.
func (p *Pager) WriteHeader() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.file == nil {
		return ErrPagerClosed
	}
	return p.writeHeaderLocked()
}

func (p *Pager) writeHeaderLocked() error {
	p.header.ChangeID++
	if err := p.writePageLocked(p.header); err != nil {
		return fmt.Errorf("writing header page: %w", err)
	}
	return nil
}

// ReadLockedRegion returns a copy of the first PageHeaderSize bytes of the
// file. The pager never interprets them; they belong to the file-level
// security metadata.
func (p *Pager) ReadLockedRegion() ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.file == nil {
		return nil, ErrPagerClosed
	}
	buf := make([]byte, page.PageHeaderSize)
	if _, err := p.file.ReadAt(buf, 0); err != nil {
		return nil, fmt.Errorf("%w: reading locked region: %v", page.ErrIO, err)
	}
	return buf, nil
}

// WriteLockedRegion overwrites the start of the locked region with data,
// again without interpreting it.
func (p *Pager) WriteLockedRegion(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.file == nil {
		return ErrPagerClosed
	}
	if len(data) > page.PageHeaderSize {
		return fmt.Errorf("%w: %d bytes", ErrLockedRegion, len(data))
	}
	if _, err := p.file.WriteAt(data, 0); err != nil {
		return fmt.Errorf("%w: writing locked region: %v", page.ErrIO, err)
	}
	return nil
}

// Sync flushes all buffered data to disk.
func (p *Pager) Sync() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.file == nil {
		return ErrPagerClosed
	}
	return p.file.Sync()
}

// Close syncs and closes the underlying file handle.
func (p *Pager) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.file == nil {
		return nil
	}
	if err := p.file.Sync(); err != nil {
		p.log.Warn("sync on close failed", zap.Error(err))
	}
	closeErr := p.file.Close()
	p.file = nil
	return closeErr
}
