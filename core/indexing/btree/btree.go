// Package btree implements the clustered B-tree over the pager: search,
// insert, ordered scans, and delete, with rows living in the leaves and
// separator keys in the internal nodes.
//
// Descent is iterative. Operations that may restructure the tree remember
// the page numbers of the internal nodes they passed, and splits walk that
// path back up instead of recursing. Pages are borrowed from the pager by
// number for the duration of one operation only; nothing holds a decoded
// node across operations, so there are no stale aliases to invalidate.
package btree

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/shaledb/shale/core/storage/page"
	"github.com/shaledb/shale/core/storage/pager"
	internaltelemetry "github.com/shaledb/shale/internal/telemetry"
	"github.com/shaledb/shale/pkg/logger"
)

var (
	// ErrKeyNotFound reports a key absent from the tree.
	ErrKeyNotFound = errors.New("key not found")

	// ErrDuplicateKey reports an insert of a key already present. The
	// tree is left unchanged.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrPayloadTooLarge reports a payload over page.MaxCellPayload.
	ErrPayloadTooLarge = errors.New("payload too large")
)

// maxDepth bounds descent so a corrupt parent pointer cycling back into
// the tree fails instead of looping.
const maxDepth = 64

// Config carries the optional tree collaborators.
type Config struct {
	Logger  *zap.Logger
	Metrics *internaltelemetry.EngineMetrics
}

// Tree is a B-tree rooted at the pager's recorded root page.
type Tree struct {
	pager   *pager.Pager
	logger  *zap.Logger
	metrics *internaltelemetry.EngineMetrics
}

// New returns a tree over an opened pager.
func New(p *pager.Pager, cfg Config) *Tree {
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Tree{pager: p, logger: log, metrics: cfg.Metrics}
}

// Search returns the payload stored under key, or ErrKeyNotFound.
func (t *Tree) Search(key uint64) ([]byte, error) {
	_, _, leaf, err := t.descend(key)
	if err != nil {
		return nil, err
	}
	idx, found := leaf.Find(key)
	if !found {
		return nil, fmt.Errorf("%w: key %d", ErrKeyNotFound, key)
	}
	return leaf.Cells[idx].Payload, nil
}

// Insert stores payload under key. Fails with ErrDuplicateKey if the key
// is already present; the tree is not modified in that case. A full leaf
// splits, and splits propagate up the recorded path, growing the tree by
// one level when the root itself splits.
func (t *Tree) Insert(key uint64, payload []byte) error {
	if len(payload) > page.MaxCellPayload {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrPayloadTooLarge, len(payload), page.MaxCellPayload)
	}

	path, leafNo, leaf, err := t.descend(key)
	if err != nil {
		return err
	}
	idx, found := leaf.Find(key)
	if found {
		return fmt.Errorf("%w: key %d", ErrDuplicateKey, key)
	}

	cell := page.LeafCell{Key: key, Payload: payload}
	insertErr := leaf.Insert(cell)
	if insertErr == nil {
		return t.writeLeaf(leafNo, leaf)
	}
	if !errors.Is(insertErr, page.ErrPageFull) {
		return insertErr
	}

	// The leaf is full: split the would-be cell sequence into two leaves
	// and hand the separator up.
	merged := make([]page.LeafCell, 0, len(leaf.Cells)+1)
	merged = append(merged, leaf.Cells[:idx]...)
	merged = append(merged, cell)
	merged = append(merged, leaf.Cells[idx:]...)
	leftCells, rightCells := page.SplitCells(merged)

	left, err := page.LeafFromCells(leftCells)
	if err != nil {
		return err
	}
	right, err := page.LeafFromCells(rightCells)
	if err != nil {
		return err
	}

	rightNo, err := t.pager.Allocate()
	if err != nil {
		return err
	}
	right.Next = leaf.Next
	left.Next = rightNo

	if err := t.writeLeaf(rightNo, right); err != nil {
		return err
	}
	if err := t.writeLeaf(leafNo, left); err != nil {
		return err
	}

	sep := rightCells[0].Key
	t.metrics.NodeSplit()
	t.logger.Debug("leaf split",
		zap.Uint32("left", leafNo),
		zap.Uint32("right", rightNo),
		zap.Uint64("separator", sep),
	)
	return t.propagate(path, sep, leafNo, rightNo)
}

// propagate inserts a separator for a finished split into the parent at
// the top of path, splitting parents in turn as needed. An empty path
// means the split page was the root, so a new root is made and the tree
// gains a level.
func (t *Tree) propagate(path []uint32, sep uint64, left, right uint32) error {
	for {
		if len(path) == 0 {
			rootNo, err := t.pager.Allocate()
			if err != nil {
				return err
			}
			root := &page.Internal{
				Rightmost: right,
				Cells:     []page.InternalCell{{Separator: sep, Child: left}},
			}
			if err := t.writeInternal(rootNo, root); err != nil {
				return err
			}
			if err := t.pager.SetRoot(rootNo); err != nil {
				return err
			}
			t.logger.Debug("root split", zap.Uint32("root", rootNo))
			return nil
		}

		parentNo := path[len(path)-1]
		path = path[:len(path)-1]
		parent, err := t.readInternal(parentNo)
		if err != nil {
			return err
		}

		insertErr := parent.InsertSplit(sep, left, right)
		if insertErr == nil {
			return t.writeInternal(parentNo, parent)
		}
		if !errors.Is(insertErr, page.ErrPageFull) {
			return insertErr
		}

		rightNode, promoted := parent.Split()
		target := parent
		if sep > promoted {
			target = rightNode
		}
		if err := target.InsertSplit(sep, left, right); err != nil {
			return err
		}

		rightNodeNo, err := t.pager.Allocate()
		if err != nil {
			return err
		}
		if err := t.writeInternal(rightNodeNo, rightNode); err != nil {
			return err
		}
		if err := t.writeInternal(parentNo, parent); err != nil {
			return err
		}

		t.metrics.NodeSplit()
		t.logger.Debug("internal split",
			zap.Uint32("left", parentNo),
			zap.Uint32("right", rightNodeNo),
			zap.Uint64("separator", promoted),
		)
		sep, left, right = promoted, parentNo, rightNodeNo
	}
}

// Height returns the number of levels, 1 for a lone root leaf.
func (t *Tree) Height() (int, error) {
	n := t.pager.Root()
	for depth := 1; depth <= maxDepth; depth++ {
		buf, err := t.pager.ReadPage(n)
		if err != nil {
			return 0, err
		}
		if page.KindOf(buf) == page.KindLeaf {
			return depth, nil
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

// descend walks from the root to the leaf responsible for key, returning
// the internal pages passed on the way, root first.
func (t *Tree) descend(key uint64) ([]uint32, uint32, *page.Leaf, error) {
	n := t.pager.Root()
	var path []uint32
	for depth := 0; depth <= maxDepth; depth++ {
		buf, err := t.pager.ReadPage(n)
		if err != nil {
			return nil, 0, nil, err
		}
		switch page.KindOf(buf) {
		case page.KindLeaf:
			leaf, err := page.DecodeLeaf(buf)
			if err != nil {
				t.logger.Error("corrupt leaf page", zap.Uint32("page", n), zap.Error(err))
				return nil, 0, nil, fmt.Errorf("page %d: %w", n, err)
			}
			return path, n, leaf, nil
		case page.KindInternal:
			node, err := t.readInternalBuf(n, buf)
			if err != nil {
				t.logger.Error("corrupt internal page", zap.Uint32("page", n), zap.Error(err))
				return nil, 0, nil, err
			}
			path = append(path, n)
			n = node.ChildFor(key)
			if n == 0 {
				return nil, 0, nil, fmt.Errorf("%w: internal page routed to page 0", page.ErrCorruptPage)
			}
		default:
			t.logger.Error("page is not a tree node",
				zap.Uint32("page", n),
				zap.Uint8("kind", page.KindOf(buf)),
			)
			return nil, 0, nil, fmt.Errorf("%w: page %d is not a tree node (kind %d)", page.ErrCorruptPage, n, page.KindOf(buf))
		}
	}
	return nil, 0, nil, fmt.Errorf("%w: tree deeper than %d levels", page.ErrCorruptPage, maxDepth)
}

func (t *Tree) readLeaf(n uint32) (*page.Leaf, error) {
	buf, err := t.pager.ReadPage(n)
	if err != nil {
		return nil, err
	}
	leaf, err := page.DecodeLeaf(buf)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", n, err)
	}
	return leaf, nil
}

func (t *Tree) readInternal(n uint32) (*page.Internal, error) {
	buf, err := t.pager.ReadPage(n)
	if err != nil {
		return nil, err
	}
	return t.readInternalBuf(n, buf)
}

func (t *Tree) readInternalBuf(n uint32, buf []byte) (*page.Internal, error) {
	node, err := page.DecodeInternal(buf)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", n, err)
	}
	return node, nil
}

func (t *Tree) writeLeaf(n uint32, leaf *page.Leaf) error {
	buf, err := leaf.Encode()
	if err != nil {
		return err
	}
	return t.pager.WritePage(n, buf)
}

func (t *Tree) writeInternal(n uint32, node *page.Internal) error {
	buf, err := node.Encode()
	if err != nil {
		return err
	}
	return t.pager.WritePage(n, buf)
}
