// Package pager owns the database file: it reads and writes whole pages,
// grows the file, tracks reclaimed pages for reuse, and keeps the meta
// page current. It takes an exclusive lock on the file for its lifetime,
// so two processes cannot open the same database.
//
// Writes are synchronous: WritePage returns after the bytes have reached
// stable storage, unless NoSync is set. There is no write-ahead log; a
// crash between dependent page writes can leak pages but the meta page is
// always written after the data it points at.
package pager

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/shaledb/shale/core/storage/page"
	internaltelemetry "github.com/shaledb/shale/internal/telemetry"
	"github.com/shaledb/shale/pkg/logger"
)

var (
	// ErrInvalidPage reports a page number outside the file, or page 0,
	// which only the pager itself may touch.
	ErrInvalidPage = errors.New("invalid page number")

	// ErrNotADatabase reports a file that does not carry a valid meta
	// page: wrong magic, impossible geometry, or a truncated file.
	ErrNotADatabase = errors.New("file is not a shaledb database")

	// ErrFileLocked reports that another process holds the database.
	ErrFileLocked = errors.New("database file is locked")
)

// Config carries the optional pager collaborators.
type Config struct {
	Logger  *zap.Logger
	Metrics *internaltelemetry.EngineMetrics
	// NoSync skips the fsync after each page write. Meant for bulk loads
	// and tests; Close still syncs.
	NoSync bool
}

// Pager is the single handle on one database file.
type Pager struct {
	path    string
	file    *os.File
	meta    page.Meta
	noSync  bool
	logger  *zap.Logger
	metrics *internaltelemetry.EngineMetrics
}

// Open opens or creates the database file at path. A zero-length file is
// initialized with a meta page and an empty root leaf. An existing file
// must carry a valid meta page.
func Open(path string, cfg Config) (*Pager, error) {
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open database file %s: %w", path, err)
	}
	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		file.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("%w: %s", ErrFileLocked, path)
		}
		return nil, fmt.Errorf("failed to lock database file %s: %w", path, err)
	}

	p := &Pager{
		path:    path,
		file:    file,
		noSync:  cfg.NoSync,
		logger:  log,
		metrics: cfg.Metrics,
	}

	info, err := file.Stat()
	if err != nil {
		p.unlockAndClose()
		return nil, fmt.Errorf("failed to stat database file %s: %w", path, err)
	}

	if info.Size() == 0 {
		if err := p.initialize(); err != nil {
			p.unlockAndClose()
			return nil, err
		}
	} else {
		if err := p.loadMeta(info.Size()); err != nil {
			p.unlockAndClose()
			return nil, err
		}
	}

	log.Debug("pager opened",
		zap.String("path", path),
		zap.Uint32("root", p.meta.Root),
		zap.Uint32("pages", p.meta.PageCount),
	)
	return p, nil
}

// initialize lays out a fresh database: meta page plus an empty root leaf.
func (p *Pager) initialize() error {
	p.meta = page.Meta{Root: 1, PageCount: 2}

	root, err := page.NewLeaf().Encode()
	if err != nil {
		return err
	}
	if err := p.writeAt(1, root); err != nil {
		return err
	}
	return p.writeMeta()
}

func (p *Pager) loadMeta(size int64) error {
	buf := make([]byte, page.Size)
	if _, err := p.file.ReadAt(buf, 0); err != nil {
		return fmt.Errorf("%w: %v", ErrNotADatabase, err)
	}
	meta, err := page.DecodeMeta(buf)
	if err != nil {
		p.logger.Error("meta page rejected", zap.String("path", p.path), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrNotADatabase, err)
	}
	if int64(meta.PageCount)*page.Size > size {
		p.logger.Error("meta page rejected",
			zap.String("path", p.path),
			zap.Int64("file_size", size),
			zap.Uint32("page_count", meta.PageCount),
		)
		return fmt.Errorf("%w: file is %d bytes but the meta page records %d pages", ErrNotADatabase, size, meta.PageCount)
	}
	p.meta = meta
	return nil
}

// ReadPage returns the contents of page n in a fresh buffer.
func (p *Pager) ReadPage(n uint32) ([]byte, error) {
	if n >= p.meta.PageCount {
		return nil, fmt.Errorf("%w: page %d, file has %d pages", ErrInvalidPage, n, p.meta.PageCount)
	}
	buf := make([]byte, page.Size)
	if _, err := p.file.ReadAt(buf, int64(n)*page.Size); err != nil {
		return nil, fmt.Errorf("failed to read page %d: %w", n, err)
	}
	p.metrics.PageRead()
	return buf, nil
}

// WritePage durably writes buf as page n. Writing the page just past the
// end grows the file and the recorded page count; gaps are not allowed.
// Page 0 is the meta page and cannot be written directly.
func (p *Pager) WritePage(n uint32, buf []byte) error {
	if len(buf) != page.Size {
		return fmt.Errorf("%w: page buffer is %d bytes, want %d", ErrInvalidPage, len(buf), page.Size)
	}
	if n == 0 {
		return fmt.Errorf("%w: page 0 is the meta page", ErrInvalidPage)
	}
	if n > p.meta.PageCount {
		return fmt.Errorf("%w: page %d would leave a gap, file has %d pages", ErrInvalidPage, n, p.meta.PageCount)
	}
	if err := p.writeAt(n, buf); err != nil {
		return err
	}
	if n == p.meta.PageCount {
		p.meta.PageCount = n + 1
		return p.writeMeta()
	}
	return nil
}

// Allocate hands out a page number, preferring the free list over growing
// the file. The page's contents are undefined until written.
func (p *Pager) Allocate() (uint32, error) {
	n, ok, err := p.popFree()
	if err != nil {
		return 0, err
	}
	if ok {
		p.metrics.FreeListReuse()
		p.metrics.PageAllocated()
		p.logger.Debug("page reused from free list", zap.Uint32("page", n))
		return n, nil
	}

	n = p.meta.PageCount
	p.meta.PageCount = n + 1
	if err := p.writeMeta(); err != nil {
		return 0, err
	}
	p.metrics.PageAllocated()
	return n, nil
}

// FreePage returns page n to the free list for later reuse.
func (p *Pager) FreePage(n uint32) error {
	if n == 0 || n >= p.meta.PageCount {
		return fmt.Errorf("%w: cannot free page %d, file has %d pages", ErrInvalidPage, n, p.meta.PageCount)
	}
	if err := p.pushFree(n); err != nil {
		return err
	}
	p.metrics.PageFreed()
	p.logger.Debug("page freed", zap.Uint32("page", n))
	return nil
}

// Root returns the page number of the B-tree root.
func (p *Pager) Root() uint32 {
	return p.meta.Root
}

// SetRoot durably records a new root page.
func (p *Pager) SetRoot(n uint32) error {
	if n == 0 || n >= p.meta.PageCount {
		return fmt.Errorf("%w: root page %d, file has %d pages", ErrInvalidPage, n, p.meta.PageCount)
	}
	p.meta.Root = n
	return p.writeMeta()
}

// PageCount returns the file length in pages, meta page included.
func (p *Pager) PageCount() uint32 {
	return p.meta.PageCount
}

// Path returns the database file path.
func (p *Pager) Path() string {
	return p.path
}

// Sync flushes the file to stable storage.
func (p *Pager) Sync() error {
	if err := p.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync database file: %w", err)
	}
	return nil
}

// Close syncs, releases the file lock, and closes the file. The pager
// must not be used afterwards.
func (p *Pager) Close() error {
	if err := p.Sync(); err != nil {
		p.file.Close()
		return err
	}
	return p.unlockAndClose()
}

func (p *Pager) unlockAndClose() error {
	if err := unix.Flock(int(p.file.Fd()), unix.LOCK_UN); err != nil {
		p.file.Close()
		return fmt.Errorf("failed to unlock database file: %w", err)
	}
	if err := p.file.Close(); err != nil {
		return fmt.Errorf("failed to close database file: %w", err)
	}
	return nil
}

// writeAt writes one page of bytes and, unless NoSync is set, syncs.
func (p *Pager) writeAt(n uint32, buf []byte) error {
	if _, err := p.file.WriteAt(buf, int64(n)*page.Size); err != nil {
		return fmt.Errorf("failed to write page %d: %w", n, err)
	}
	if !p.noSync {
		if err := p.file.Sync(); err != nil {
			return fmt.Errorf("failed to sync page %d: %w", n, err)
		}
	}
	p.metrics.PageWritten()
	return nil
}

func (p *Pager) writeMeta() error {
	return p.writeAt(0, p.meta.Encode())
}
