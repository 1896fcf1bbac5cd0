package heap

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/tuanpm/slotdb/internal/bufferpool"
	"github.com/tuanpm/slotdb/internal/catalog"
	"github.com/tuanpm/slotdb/internal/record"
	"github.com/tuanpm/slotdb/internal/storage"
)

// TableFile is the on-disk page collection of one table: a sparse map of
// loaded pages, the page count (loaded or not) and the lowest page known to
// have room. It implements the pool's Saver so evicted pages are persisted
// and dropped from the loaded map.
type TableFile struct {
	Name  string
	Table *catalog.Table
	Desc  record.TupleDesc

	file        *os.File
	sm          *storage.StorageManager
	loadedPages map[uint32]*FilePage

	PageSum       uint32
	FirstFreePage uint32
}

var _ bufferpool.Saver = (*TableFile)(nil)

// NewTableFile opens (creating if absent) the table's file and restores
// page_sum / first_free_page from the header page.
func NewTableFile(name string, table *catalog.Table, dir string, sm *storage.StorageManager) (*TableFile, error) {
	f, err := sm.OpenTableFile(dir, name)
	if err != nil {
		return nil, err
	}
	pageSum, firstFree, err := sm.ReadFileHeader(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("heap: read header of %s: %w", name, err)
	}
	return &TableFile{
		Name:          name,
		Table:         table,
		Desc:          record.GenTupleDesc(table),
		file:          f,
		sm:            sm,
		loadedPages:   make(map[uint32]*FilePage),
		PageSum:       pageSum,
		FirstFreePage: firstFree,
	}, nil
}

// FD identifies this file inside the buffer pool.
func (t *TableFile) FD() int32 {
	return int32(t.file.Fd())
}

func (t *TableFile) PageSlotSum() int {
	return SlotSum(t.Desc.TupleLen)
}

func (t *TableFile) IsLoaded(pageIndex uint32) bool {
	_, ok := t.loadedPages[pageIndex]
	return ok
}

func (t *TableFile) Page(pageIndex uint32) (*FilePage, bool) {
	p, ok := t.loadedPages[pageIndex]
	return p, ok
}

// AdoptPage wraps a pool buffer as page pageIndex. A brand-new page
// (pageIndex == PageSum) is formatted empty and grows the file. An existing
// page is refreshed from disk when the pool admitted a fresh buffer; a
// still-resident buffer already holds the current bytes and is adopted
// as-is.
func (t *TableFile) AdoptPage(buf []byte, pageIndex uint32, admitted bool) (*FilePage, error) {
	page := NewFilePage(buf, t.Desc, pageIndex)
	if pageIndex >= t.PageSum {
		if pageIndex != t.PageSum {
			panic("heap: page allocation out of order")
		}
		page.InitEmpty()
		t.PageSum++
	} else {
		if admitted {
			if err := t.sm.ReadPage(t.file, pageIndex, buf); err != nil {
				return nil, err
			}
		}
		if page.IsUninitialized() {
			// Allocated but evicted before its first save.
			page.InitEmpty()
		} else if err := page.InitFromBytes(); err != nil {
			return nil, err
		}
	}
	t.loadedPages[pageIndex] = page
	return page, nil
}

// Insert writes into the current first-free page, which the caller has
// ensured is loaded and not full (see Manager.Insert).
func (t *TableFile) Insert(values []record.Value) error {
	if t.FirstFreePage >= t.PageSum {
		panic("heap: insert without a free page")
	}
	page := t.loadedPages[t.FirstFreePage]
	if page.IsFull() {
		panic("heap: first free page is full")
	}
	return page.Insert(values)
}

// InsertInPage inserts into a specific loaded page regardless of the
// first-free tracking. Test hook.
func (t *TableFile) InsertInPage(pageIndex uint32, values []record.Value) error {
	if pageIndex >= t.PageSum {
		panic("heap: insert into unallocated page")
	}
	page, ok := t.loadedPages[pageIndex]
	if !ok {
		panic("heap: insert into unloaded page")
	}
	if page.IsFull() {
		panic("heap: insert into full page")
	}
	return page.Insert(values)
}

// DeleteAt frees the slot at a logical position and lowers FirstFreePage if
// the deletion reopened an earlier page.
func (t *TableFile) DeleteAt(position int) {
	slotSum := t.PageSlotSum()
	pageIndex := uint32(position / slotSum)
	page, ok := t.loadedPages[pageIndex]
	if !ok {
		panic("heap: delete in unloaded page")
	}
	page.DeleteAt(position % slotSum)
	if pageIndex < t.FirstFreePage {
		t.FirstFreePage = pageIndex
	}
}

// TupleData resolves a logical position to attribute views.
func (t *TableFile) TupleData(position int) record.TupleData {
	slotSum := t.PageSlotSum()
	page, ok := t.loadedPages[uint32(position/slotSum)]
	if !ok {
		panic("heap: tuple data in unloaded page")
	}
	return page.TupleData(position % slotSum)
}

// TupleValue reads one attribute at a logical position as a typed value.
func (t *TableFile) TupleValue(position, attrPos int) record.TupleValue {
	slotSum := t.PageSlotSum()
	page, ok := t.loadedPages[uint32(position/slotSum)]
	if !ok {
		panic("heap: tuple value in unloaded page")
	}
	return page.TupleValue(position%slotSum, attrPos)
}

// NextTupleIndex scans one loaded page for the next occupied slot >= from.
// ok is false when the page has no further occupied slot.
func (t *TableFile) NextTupleIndex(pageIndex uint32, from int) (int, bool) {
	page, okLoaded := t.loadedPages[pageIndex]
	if !okLoaded {
		panic("heap: scan of unloaded page")
	}
	next := page.NextTupleIndex(from)
	if next == page.SlotSum() {
		return 0, false
	}
	return next, true
}

func (t *TableFile) IsInuse(pageIndex uint32, slot int) bool {
	page, ok := t.loadedPages[pageIndex]
	if !ok {
		panic("heap: occupancy check of unloaded page")
	}
	return page.IsInuse(slot)
}

// SaveHeader persists page_sum and first_free_page.
func (t *TableFile) SaveHeader() error {
	return t.sm.WriteFileHeader(t.file, t.PageSum, t.FirstFreePage)
}

// SavePage persists one loaded page as its little-endian memory image.
func (t *TableFile) SavePage(pageIndex uint32) error {
	page, ok := t.loadedPages[pageIndex]
	if !ok {
		panic("heap: save of unloaded page")
	}
	return t.sm.WritePage(t.file, pageIndex, page.buf)
}

// Save implements the pool write-back contract: persist the evicted page and
// drop the loaded handle so future access re-fetches through the pool.
func (t *TableFile) Save(fd int32, pageIndex uint32, data []byte) error {
	if fd != t.FD() {
		panic("heap: write-back routed to wrong file")
	}
	if err := t.sm.WritePage(t.file, pageIndex, data); err != nil {
		return err
	}
	delete(t.loadedPages, pageIndex)
	slog.Debug("heap: page written back", "table", t.Name, "pageIndex", pageIndex)
	return nil
}

// Flush persists the header and every loaded page.
func (t *TableFile) Flush() error {
	if err := t.SaveHeader(); err != nil {
		return err
	}
	for idx := range t.loadedPages {
		if err := t.SavePage(idx); err != nil {
			return err
		}
	}
	return nil
}

func (t *TableFile) Close() error {
	if err := t.Flush(); err != nil {
		_ = t.file.Close()
		return err
	}
	return t.file.Close()
}
