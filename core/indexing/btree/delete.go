package btree

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/shaledb/shale/core/storage/page"
)

// Delete removes key from its leaf, or fails with ErrKeyNotFound. A leaf
// left empty is unlinked from the sibling chain, freed, and removed from
// its parent, cascading upward through internal nodes that lose their last
// child. Underfull nodes are not rebalanced or merged; space comes back
// only when a page empties completely. An emptied root reverts to a blank
// leaf.
func (t *Tree) Delete(key uint64) error {
	path, leafNo, leaf, err := t.descend(key)
	if err != nil {
		return err
	}
	idx, found := leaf.Find(key)
	if !found {
		return fmt.Errorf("%w: key %d", ErrKeyNotFound, key)
	}

	leaf.Remove(idx)
	if len(leaf.Cells) > 0 || leafNo == t.pager.Root() {
		return t.writeLeaf(leafNo, leaf)
	}

	// The leaf is empty and not the root: take it out of the tree.
	if err := t.unlinkSibling(leafNo, leaf.Next); err != nil {
		return err
	}
	if err := t.pager.FreePage(leafNo); err != nil {
		return err
	}
	t.logger.Debug("empty leaf freed", zap.Uint32("page", leafNo))

	child := leafNo
	for len(path) > 0 {
		parentNo := path[len(path)-1]
		path = path[:len(path)-1]

		parent, err := t.readInternal(parentNo)
		if err != nil {
			return err
		}
		if !parent.RemoveChild(child) {
			return fmt.Errorf("%w: page %d is not a child of page %d", page.ErrCorruptPage, child, parentNo)
		}
		if !parent.Empty() {
			return t.writeInternal(parentNo, parent)
		}

		if parentNo == t.pager.Root() {
			// The whole tree emptied out: the root becomes a leaf again.
			empty := page.NewLeaf()
			t.logger.Debug("tree emptied, root reset", zap.Uint32("root", parentNo))
			return t.writeLeaf(parentNo, empty)
		}

		if err := t.pager.FreePage(parentNo); err != nil {
			return err
		}
		t.logger.Debug("empty internal node freed", zap.Uint32("page", parentNo))
		child = parentNo
	}
	return nil
}

// unlinkSibling repairs the leaf chain around a leaf about to be freed:
// the predecessor, found by walking from the leftmost leaf, points at the
// freed leaf's successor afterwards. The leftmost leaf has no predecessor.
func (t *Tree) unlinkSibling(target, next uint32) error {
	n, err := t.leftmostLeaf()
	if err != nil {
		return err
	}
	if n == target {
		return nil
	}

	for hops := 0; n != 0; hops++ {
		if hops > int(t.pager.PageCount()) {
			return fmt.Errorf("%w: sibling chain is longer than the file", page.ErrCorruptPage)
		}
		leaf, err := t.readLeaf(n)
		if err != nil {
			return err
		}
		if leaf.Next == target {
			leaf.Next = next
			return t.writeLeaf(n, leaf)
		}
		n = leaf.Next
	}
	return fmt.Errorf("%w: page %d is missing from the sibling chain", page.ErrCorruptPage, target)
}

// leftmostLeaf returns the page number of the first leaf.
func (t *Tree) leftmostLeaf() (uint32, error) {
	n := t.pager.Root()
	for depth := 0; depth <= maxDepth; depth++ {
		buf, err := t.pager.ReadPage(n)
		if err != nil {
			return 0, err
		}
		if page.KindOf(buf) == page.KindLeaf {
			return n, nil
		}
		node, err := t.readInternalBuf(n, buf)
		if err != nil {
			return 0, err
		}
		n = node.FirstChild()
		if n == 0 {
			return 0, fmt.Errorf("%w: internal page with no children on the leftmost path", page.ErrCorruptPage)
		}
	}
	return 0, fmt.Errorf("%w: tree deeper than %d levels", page.ErrCorruptPage, maxDepth)
}
