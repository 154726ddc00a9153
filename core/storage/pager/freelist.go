package pager

import (
	"fmt"

	"github.com/shaledb/shale/core/storage/page"
)

// Reclaimed pages are tracked in a chain of free-list nodes, newest head
// first. Freeing never allocates: when the head node is missing or full,
// the page being freed becomes the new head node itself, so a delete-heavy
// workload cannot grow the file. Draining works the same way in reverse;
// once a head node runs out of entries, its own page is the next
// allocation. Meta is written after the node it points at, so a crash in
// between leaks a page at worst, it never corrupts the chain.

// popFree takes one page off the free list. ok is false when the list has
// nothing to give.
func (p *Pager) popFree() (n uint32, ok bool, err error) {
	head := p.meta.FreeListHead
	if head == 0 {
		return 0, false, nil
	}

	node, err := p.readFreeList(head)
	if err != nil {
		return 0, false, err
	}

	if n, ok = node.Pop(); ok {
		buf, err := node.Encode()
		if err != nil {
			return 0, false, err
		}
		if err := p.WritePage(head, buf); err != nil {
			return 0, false, err
		}
		return n, true, nil
	}

	// Drained head: hand its own page out and advance the chain.
	p.meta.FreeListHead = node.Next
	if err := p.writeMeta(); err != nil {
		return 0, false, err
	}
	return head, true, nil
}

// pushFree records page n as reclaimed.
func (p *Pager) pushFree(n uint32) error {
	head := p.meta.FreeListHead
	if head == 0 {
		return p.startFreeList(n, 0)
	}

	node, err := p.readFreeList(head)
	if err != nil {
		return err
	}
	if node.Full() {
		return p.startFreeList(n, head)
	}

	if err := node.Push(n); err != nil {
		return err
	}
	buf, err := node.Encode()
	if err != nil {
		return err
	}
	return p.WritePage(head, buf)
}

// startFreeList turns page n into a new, empty head node chained to next.
func (p *Pager) startFreeList(n, next uint32) error {
	node := &page.FreeList{Next: next}
	buf, err := node.Encode()
	if err != nil {
		return err
	}
	if err := p.WritePage(n, buf); err != nil {
		return err
	}
	p.meta.FreeListHead = n
	return p.writeMeta()
}

func (p *Pager) readFreeList(n uint32) (*page.FreeList, error) {
	buf, err := p.ReadPage(n)
	if err != nil {
		return nil, err
	}
	node, err := page.DecodeFreeList(buf)
	if err != nil {
		return nil, fmt.Errorf("free-list node at page %d: %w", n, err)
	}
	return node, nil
}

// FreePages reports how many pages the free list will eventually hand
// back: the recorded entries plus the pages holding the chain itself.
func (p *Pager) FreePages() (int, error) {
	total := 0
	seen := 0
	for n := p.meta.FreeListHead; n != 0; {
		if seen++; seen > int(p.meta.PageCount) {
			return 0, fmt.Errorf("%w: free-list chain is longer than the file", page.ErrCorruptPage)
		}
		node, err := p.readFreeList(n)
		if err != nil {
			return 0, err
		}
		total += len(node.Pages) + 1
		n = node.Next
	}
	return total, nil
}
