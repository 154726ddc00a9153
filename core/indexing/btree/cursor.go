package btree

import (
	"fmt"

	"github.com/shaledb/shale/core/storage/page"
)

// Cursor iterates every cell in key order: leftmost leaf first, then along
// the sibling chain. Each Scan call starts a fresh traversal and reads
// pages lazily as Next advances; no cursor state is shared between scans.
// A cursor observes the tree as of the pages it visits, so writes during
// iteration invalidate it.
type Cursor struct {
	tree    *Tree
	leaf    *page.Leaf
	idx     int
	hops    int
	started bool
	done    bool
	err     error
}

// Scan returns a cursor positioned before the first cell.
func (t *Tree) Scan() *Cursor {
	t.metrics.ScanStarted()
	return &Cursor{tree: t}
}

// Next advances to the next cell, reporting false at the end or on error.
func (c *Cursor) Next() bool {
	if c.done || c.err != nil {
		return false
	}

	if !c.started {
		c.started = true
		if err := c.seekFirst(); err != nil {
			c.fail(err)
			return false
		}
	} else {
		c.idx++
	}

	for c.idx >= len(c.leaf.Cells) {
		if c.leaf.Next == 0 {
			c.done = true
			return false
		}
		if c.hops++; c.hops > int(c.tree.pager.PageCount()) {
			c.fail(fmt.Errorf("%w: sibling chain is longer than the file", page.ErrCorruptPage))
			return false
		}
		leaf, err := c.tree.readLeaf(c.leaf.Next)
		if err != nil {
			c.fail(err)
			return false
		}
		c.leaf = leaf
		c.idx = 0
	}
	return true
}

// Key returns the key at the cursor. Valid only after Next returned true.
func (c *Cursor) Key() uint64 {
	return c.leaf.Cells[c.idx].Key
}

// Payload returns the payload at the cursor. Valid only after Next
// returned true.
func (c *Cursor) Payload() []byte {
	return c.leaf.Cells[c.idx].Payload
}

// Err returns the error that stopped iteration, if any.
func (c *Cursor) Err() error {
	return c.err
}

func (c *Cursor) fail(err error) {
	c.err = err
	c.done = true
}

func (c *Cursor) seekFirst() error {
	n, err := c.tree.leftmostLeaf()
	if err != nil {
		return err
	}
	leaf, err := c.tree.readLeaf(n)
	if err != nil {
		return err
	}
	c.leaf = leaf
	c.idx = 0
	return nil
}
