// Package engine is the public face of a ShaleDB database: open a file,
// insert, look up, scan, and delete fixed-schema rows, close the file.
// One Engine owns one database exclusively. The handle is not safe for
// concurrent use; callers serialize access.
package engine

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shaledb/shale/core/indexing/btree"
	"github.com/shaledb/shale/core/storage/page"
	"github.com/shaledb/shale/core/storage/pager"
	"github.com/shaledb/shale/core/storage/record"
	internaltelemetry "github.com/shaledb/shale/internal/telemetry"
	"github.com/shaledb/shale/pkg/logger"
)

// The errors callers are expected to test for, re-exported so embedders
// need only this package.
var (
	ErrKeyNotFound  = btree.ErrKeyNotFound
	ErrDuplicateKey = btree.ErrDuplicateKey
	ErrFieldTooLong = record.ErrFieldTooLong
	ErrInvalidRowID = record.ErrInvalidRowID
	ErrNotADatabase = pager.ErrNotADatabase
	ErrFileLocked   = pager.ErrFileLocked
	ErrCorruptPage  = page.ErrCorruptPage
)

// Config carries the optional engine collaborators. The zero value works:
// no logging, no metrics, synchronous writes.
type Config struct {
	Logger  *zap.Logger
	Metrics *internaltelemetry.EngineMetrics
	// NoSync trades the durability of individual writes for speed.
	NoSync bool
}

// Engine is an open database.
type Engine struct {
	pager     *pager.Pager
	tree      *btree.Tree
	logger    *zap.Logger
	metrics   *internaltelemetry.EngineMetrics
	sessionID string
}

// Info is a snapshot of the database geometry.
type Info struct {
	Path      string
	Root      uint32
	PageCount uint32
	FreePages int
	Height    int
}

// Open opens or creates the database file at path and takes exclusive
// ownership of it until Close.
func Open(path string, cfg Config) (*Engine, error) {
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}
	sessionID := uuid.New().String()
	log = log.With(zap.String("session_id", sessionID))

	p, err := pager.Open(path, pager.Config{
		Logger:  log,
		Metrics: cfg.Metrics,
		NoSync:  cfg.NoSync,
	})
	if err != nil {
		return nil, err
	}

	e := &Engine{
		pager:     p,
		tree:      btree.New(p, btree.Config{Logger: log, Metrics: cfg.Metrics}),
		logger:    log,
		metrics:   cfg.Metrics,
		sessionID: sessionID,
	}
	log.Info("database opened",
		zap.String("path", path),
		zap.Uint32("root", p.Root()),
		zap.Uint32("pages", p.PageCount()),
	)
	return e, nil
}

// Insert stores a new row. The row is validated first; a row whose id is
// already present fails with ErrDuplicateKey and changes nothing.
func (e *Engine) Insert(row record.Row) error {
	payload, err := record.Encode(row)
	if err != nil {
		return err
	}
	if err := e.tree.Insert(row.Key(), payload); err != nil {
		return err
	}
	e.metrics.RowInserted()
	return nil
}

// Get returns the row stored under id, or ErrKeyNotFound.
func (e *Engine) Get(id int64) (record.Row, error) {
	if id <= 0 {
		return record.Row{}, fmt.Errorf("%w: key %d", ErrKeyNotFound, id)
	}
	payload, err := e.tree.Search(uint64(id))
	if err != nil {
		return record.Row{}, err
	}
	row, err := record.Decode(payload)
	if err != nil {
		return record.Row{}, fmt.Errorf("row %d: %w", id, err)
	}
	e.metrics.RowFetched()
	return row, nil
}

// Delete removes the row stored under id, or fails with ErrKeyNotFound.
func (e *Engine) Delete(id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: key %d", ErrKeyNotFound, id)
	}
	if err := e.tree.Delete(uint64(id)); err != nil {
		return err
	}
	e.metrics.RowDeleted()
	return nil
}

// Scan returns a cursor over every row in ascending id order. Each call
// starts an independent traversal.
func (e *Engine) Scan() *Cursor {
	return &Cursor{inner: e.tree.Scan()}
}

// Cursor iterates rows. Use it as:
//
//	cur := eng.Scan()
//	for cur.Next() {
//		row := cur.Row()
//		...
//	}
//	if err := cur.Err(); err != nil { ... }
type Cursor struct {
	inner *btree.Cursor
	row   record.Row
	err   error
}

// Next advances to the next row, reporting false at the end or on error.
func (c *Cursor) Next() bool {
	if c.err != nil {
		return false
	}
	if !c.inner.Next() {
		c.err = c.inner.Err()
		return false
	}
	row, err := record.Decode(c.inner.Payload())
	if err != nil {
		c.err = fmt.Errorf("row %d: %w", c.inner.Key(), err)
		return false
	}
	c.row = row
	return true
}

// Row returns the current row. Valid only after Next returned true.
func (c *Cursor) Row() record.Row {
	return c.row
}

// Err returns the error that stopped iteration, if any.
func (c *Cursor) Err() error {
	return c.err
}

// Info reports the current database geometry.
func (e *Engine) Info() (Info, error) {
	free, err := e.pager.FreePages()
	if err != nil {
		return Info{}, err
	}
	height, err := e.tree.Height()
	if err != nil {
		return Info{}, err
	}
	return Info{
		Path:      e.pager.Path(),
		Root:      e.pager.Root(),
		PageCount: e.pager.PageCount(),
		FreePages: free,
		Height:    height,
	}, nil
}

// Close flushes and closes the database file and releases the lock.
func (e *Engine) Close() error {
	if err := e.pager.Close(); err != nil {
		return err
	}
	e.logger.Info("database closed")
	return nil
}
