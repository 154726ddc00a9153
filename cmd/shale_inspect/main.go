// Command shale_inspect prints the page-level layout of a ShaleDB file.
// It opens the file read-only and without locking, decodes what it can,
// and keeps going past damage, so it also works on files a crashed
// process left behind.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/shaledb/shale/core/storage/page"
	"github.com/shaledb/shale/core/storage/record"
)

var (
	dbPath  = flag.String("db", "shale.db", "Path to the database file")
	pageNum = flag.Int("page", -1, "Dump a single page cell by cell")
)

// One style per page role so a damaged tree stands out at a glance.
var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4")).Padding(0, 1)
	metaStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#B4befe"))
	leafStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#04B575"))
	internalStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#3C82F6"))
	freeStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#D08770"))
	badStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#EF4444"))
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))
)

func main() {
	flag.Parse()

	f, err := os.Open(*dbPath)
	if err != nil {
		fatal("cannot open %s: %v", *dbPath, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		fatal("cannot stat %s: %v", *dbPath, err)
	}
	if st.Size() < page.Size {
		fatal("%s is %d bytes, smaller than a single page", *dbPath, st.Size())
	}
	filePages := uint32(st.Size() / page.Size)
	if st.Size()%page.Size != 0 {
		fmt.Println(badStyle.Render(fmt.Sprintf("warning: file size %d is not a multiple of the page size", st.Size())))
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("%s  (%d pages on disk)", *dbPath, filePages)))

	walk := filePages
	meta, err := page.DecodeMeta(readPage(f, 0))
	if err != nil {
		fmt.Println(badStyle.Render(fmt.Sprintf("page 0: %v", err)))
	} else {
		fmt.Printf("%s  root=%d  pages=%d  freelist=%d\n",
			metaStyle.Render("meta"), meta.Root, meta.PageCount, meta.FreeListHead)
		if meta.PageCount > filePages {
			fmt.Println(badStyle.Render(fmt.Sprintf("warning: header claims %d pages but the file holds %d", meta.PageCount, filePages)))
		} else {
			walk = meta.PageCount
		}
	}

	if *pageNum >= 0 {
		dumpPage(f, uint32(*pageNum), filePages)
		return
	}

	for n := uint32(1); n < walk; n++ {
		summarize(n, readPage(f, n))
	}
}

// summarize prints a one-line description of a page body.
func summarize(n uint32, buf []byte) {
	prefix := labelStyle.Render(fmt.Sprintf("page %4d", n))

	switch page.KindOf(buf) {
	case page.KindLeaf:
		leaf, err := page.DecodeLeaf(buf)
		if err != nil {
			fmt.Printf("%s  %s  %v\n", prefix, badStyle.Render("leaf?"), err)
			return
		}
		keys := "empty"
		if len(leaf.Cells) > 0 {
			keys = fmt.Sprintf("keys %d..%d", leaf.Cells[0].Key, leaf.Cells[len(leaf.Cells)-1].Key)
		}
		fmt.Printf("%s  %s  %3d cells  %-18s next=%d  used %d/%d\n",
			prefix, leafStyle.Render("leaf    "), len(leaf.Cells), keys,
			leaf.Next, page.Size-leaf.FreeSpace(), page.Size)
	case page.KindInternal:
		node, err := page.DecodeInternal(buf)
		if err != nil {
			fmt.Printf("%s  %s  %v\n", prefix, badStyle.Render("internal?"), err)
			return
		}
		seps := "no separators"
		if len(node.Cells) > 0 {
			seps = fmt.Sprintf("seps %d..%d", node.Cells[0].Separator, node.Cells[len(node.Cells)-1].Separator)
		}
		fmt.Printf("%s  %s  %3d cells  %-18s rightmost=%d\n",
			prefix, internalStyle.Render("internal"), len(node.Cells), seps, node.Rightmost)
	case page.KindFreeList:
		fl, err := page.DecodeFreeList(buf)
		if err != nil {
			fmt.Printf("%s  %s  %v\n", prefix, badStyle.Render("freelist?"), err)
			return
		}
		fmt.Printf("%s  %s  %3d entries %-18s next=%d\n",
			prefix, freeStyle.Render("freelist"), len(fl.Pages), "", fl.Next)
	default:
		fmt.Printf("%s  %s\n", prefix, badStyle.Render(fmt.Sprintf("unknown kind 0x%02x", buf[0])))
	}
}

// dumpPage prints every cell of one page, decoding leaf payloads as rows.
func dumpPage(f *os.File, n, filePages uint32) {
	if n >= filePages {
		fatal("page %d is past the end of the file (%d pages)", n, filePages)
	}
	buf := readPage(f, n)

	if n == 0 {
		meta, err := page.DecodeMeta(buf)
		if err != nil {
			fatal("page 0: %v", err)
		}
		fmt.Printf("%s\n", metaStyle.Render("meta page"))
		fmt.Printf("  root page:      %d\n", meta.Root)
		fmt.Printf("  page count:     %d\n", meta.PageCount)
		fmt.Printf("  freelist head:  %d\n", meta.FreeListHead)
		return
	}

	switch page.KindOf(buf) {
	case page.KindLeaf:
		leaf, err := page.DecodeLeaf(buf)
		if err != nil {
			fatal("page %d: %v", n, err)
		}
		fmt.Printf("%s  next=%d  used %d/%d\n",
			leafStyle.Render(fmt.Sprintf("leaf page %d", n)),
			leaf.Next, page.Size-leaf.FreeSpace(), page.Size)
		for i, cell := range leaf.Cells {
			row, err := record.Decode(cell.Payload)
			if err != nil {
				fmt.Printf("  [%3d] key %-12d %4d B  %s\n", i, cell.Key, len(cell.Payload),
					badStyle.Render(err.Error()))
				continue
			}
			fmt.Printf("  [%3d] key %-12d %4d B  (%d, %s, %s)\n",
				i, cell.Key, len(cell.Payload), row.ID, row.Username, row.Email)
		}
	case page.KindInternal:
		node, err := page.DecodeInternal(buf)
		if err != nil {
			fatal("page %d: %v", n, err)
		}
		fmt.Printf("%s  rightmost=%d\n",
			internalStyle.Render(fmt.Sprintf("internal page %d", n)), node.Rightmost)
		for i, cell := range node.Cells {
			fmt.Printf("  [%3d] child %-6d keys < %d\n", i, cell.Child, cell.Separator)
		}
	case page.KindFreeList:
		fl, err := page.DecodeFreeList(buf)
		if err != nil {
			fatal("page %d: %v", n, err)
		}
		fmt.Printf("%s  next=%d\n",
			freeStyle.Render(fmt.Sprintf("freelist page %d", n)), fl.Next)
		for i, free := range fl.Pages {
			fmt.Printf("  [%3d] page %d\n", i, free)
		}
	default:
		fatal("page %d: unknown kind 0x%02x", n, buf[0])
	}
}

func readPage(f *os.File, n uint32) []byte {
	buf := make([]byte, page.Size)
	if _, err := f.ReadAt(buf, int64(n)*page.Size); err != nil {
		fatal("cannot read page %d: %v", n, err)
	}
	return buf
}

func fatal(format string, args ...any) {
	fmt.Fprintln(os.Stderr, badStyle.Render(fmt.Sprintf(format, args...)))
	os.Exit(1)
}
