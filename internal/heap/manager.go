package heap

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/tuanpm/slotdb/internal/bufferpool"
	"github.com/tuanpm/slotdb/internal/catalog"
	"github.com/tuanpm/slotdb/internal/record"
	"github.com/tuanpm/slotdb/internal/storage"
)

var ErrNoSuchFile = errors.New("heap: no file for table")

// Manager routes per-table operations to the right TableFile and drives the
// buffer pool: before any per-page operation it ensures the page is
// resident, admitting it through the pool if necessary.
type Manager struct {
	dir   string
	files map[string]*TableFile
	sm    *storage.StorageManager
	pool  *bufferpool.Pool
}

// NewManager creates the table-file directory if absent and sizes the pool
// to maxPoolPages page buffers.
func NewManager(dir string, maxPoolPages int) (*Manager, error) {
	if err := os.MkdirAll(dir, storage.FileMode0755); err != nil {
		return nil, fmt.Errorf("heap: create %s: %w", dir, err)
	}
	return &Manager{
		dir:   dir,
		files: make(map[string]*TableFile),
		sm:    storage.NewStorageManager(),
		pool:  bufferpool.NewPool(maxPoolPages, storage.PageSize),
	}, nil
}

// CreateFile opens the table's file on first reference and registers it as
// the pool's write-back owner for its descriptor.
func (m *Manager) CreateFile(name string, table *catalog.Table) error {
	if _, ok := m.files[name]; ok {
		return nil
	}
	f, err := NewTableFile(name, table, m.dir, m.sm)
	if err != nil {
		return err
	}
	m.pool.Register(f.FD(), f)
	m.files[name] = f
	slog.Debug("heap: table file opened", "table", name, "pageSum", f.PageSum)
	return nil
}

func (m *Manager) GetFile(table string) (*TableFile, error) {
	f, ok := m.files[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchFile, table)
	}
	return f, nil
}

// EnsurePageLoaded is a no-op for a resident page; otherwise it admits the
// page through the pool and hands the buffer to the file. The page is left
// unpinned; operations pin around their own access.
func (m *Manager) EnsurePageLoaded(f *TableFile, pageIndex uint32) error {
	if f.IsLoaded(pageIndex) {
		return nil
	}
	buf, admitted, err := m.pool.Acquire(f.FD(), pageIndex)
	if err != nil {
		return err
	}
	if _, err := f.AdoptPage(buf, pageIndex, admitted); err != nil {
		m.pool.Unpin(f.FD(), pageIndex)
		return err
	}
	m.pool.Unpin(f.FD(), pageIndex)
	return nil
}

// addPage allocates page f.PageSum through the pool and formats it empty.
func (m *Manager) addPage(f *TableFile) error {
	pageIndex := f.PageSum
	buf, _, err := m.pool.Acquire(f.FD(), pageIndex)
	if err != nil {
		return err
	}
	if _, err := f.AdoptPage(buf, pageIndex, true); err != nil {
		m.pool.Unpin(f.FD(), pageIndex)
		return err
	}
	m.pool.MarkDirty(f.FD(), pageIndex)
	m.pool.Unpin(f.FD(), pageIndex)
	return f.SaveHeader()
}

// Insert appends values to the table, allocating a fresh page when every
// existing page is full.
func (m *Manager) Insert(table string, values []record.Value) error {
	f, err := m.GetFile(table)
	if err != nil {
		return err
	}
	for f.FirstFreePage < f.PageSum {
		if err := m.EnsurePageLoaded(f, f.FirstFreePage); err != nil {
			return err
		}
		page, _ := f.Page(f.FirstFreePage)
		if !page.IsFull() {
			break
		}
		f.FirstFreePage++
	}
	if f.FirstFreePage == f.PageSum {
		if err := m.addPage(f); err != nil {
			return err
		}
	}

	pageIndex := f.FirstFreePage
	m.pool.Pin(f.FD(), pageIndex)
	defer m.pool.Unpin(f.FD(), pageIndex)
	if err := f.Insert(values); err != nil {
		return err
	}
	m.pool.MarkDirty(f.FD(), pageIndex)
	return nil
}

// InsertInPage inserts into an explicit page index, allocating intermediate
// pages as needed. Test hook mirroring TableFile.InsertInPage.
func (m *Manager) InsertInPage(table string, pageIndex uint32, values []record.Value) error {
	f, err := m.GetFile(table)
	if err != nil {
		return err
	}
	for f.PageSum <= pageIndex {
		if err := m.addPage(f); err != nil {
			return err
		}
	}
	if err := m.EnsurePageLoaded(f, pageIndex); err != nil {
		return err
	}
	m.pool.Pin(f.FD(), pageIndex)
	defer m.pool.Unpin(f.FD(), pageIndex)
	if err := f.InsertInPage(pageIndex, values); err != nil {
		return err
	}
	m.pool.MarkDirty(f.FD(), pageIndex)
	return nil
}

// Delete frees the slot at a logical position.
func (m *Manager) Delete(table string, position int) error {
	f, err := m.GetFile(table)
	if err != nil {
		return err
	}
	pageIndex := uint32(position / f.PageSlotSum())
	if err := m.EnsurePageLoaded(f, pageIndex); err != nil {
		return err
	}
	m.pool.Pin(f.FD(), pageIndex)
	defer m.pool.Unpin(f.FD(), pageIndex)
	f.DeleteAt(position)
	m.pool.MarkDirty(f.FD(), pageIndex)
	return nil
}

// TupleData resolves a logical position into per-attribute views. The views
// are valid only until the next manager operation.
func (m *Manager) TupleData(table string, position int) (record.TupleData, error) {
	f, err := m.GetFile(table)
	if err != nil {
		return nil, err
	}
	pageIndex := uint32(position / f.PageSlotSum())
	if err := m.EnsurePageLoaded(f, pageIndex); err != nil {
		return nil, err
	}
	m.pool.Pin(f.FD(), pageIndex)
	defer m.pool.Unpin(f.FD(), pageIndex)
	return f.TupleData(position), nil
}

// TupleValue reads one attribute at a logical position as a typed value.
func (m *Manager) TupleValue(table string, position, attrPos int) (record.TupleValue, error) {
	f, err := m.GetFile(table)
	if err != nil {
		return record.TupleValue{}, err
	}
	pageIndex := uint32(position / f.PageSlotSum())
	if err := m.EnsurePageLoaded(f, pageIndex); err != nil {
		return record.TupleValue{}, err
	}
	m.pool.Pin(f.FD(), pageIndex)
	defer m.pool.Unpin(f.FD(), pageIndex)
	return f.TupleValue(position, attrPos), nil
}

// NextPosition returns the smallest occupied logical position >= from, or
// ok=false at end of file. When a page runs out, the scan advances to the
// next page index from slot 0.
func (m *Manager) NextPosition(table string, from int) (int, bool, error) {
	f, err := m.GetFile(table)
	if err != nil {
		return 0, false, err
	}
	slotSum := f.PageSlotSum()
	pageIndex := uint32(from / slotSum)
	tupleIndex := from % slotSum
	for pageIndex < f.PageSum {
		if err := m.EnsurePageLoaded(f, pageIndex); err != nil {
			return 0, false, err
		}
		m.pool.Pin(f.FD(), pageIndex)
		next, ok := f.NextTupleIndex(pageIndex, tupleIndex)
		m.pool.Unpin(f.FD(), pageIndex)
		if ok {
			return int(pageIndex)*slotSum + next, true, nil
		}
		pageIndex++
		tupleIndex = 0
	}
	return 0, false, nil
}

// NextTupleData combines NextPosition and TupleData for scan convenience.
func (m *Manager) NextTupleData(table string, from int) (record.TupleData, int, bool, error) {
	position, ok, err := m.NextPosition(table, from)
	if err != nil || !ok {
		return nil, 0, false, err
	}
	td, err := m.TupleData(table, position)
	if err != nil {
		return nil, 0, false, err
	}
	return td, position, true, nil
}

// MarkDirty flags a page as modified after an in-place tuple update.
func (m *Manager) MarkDirty(table string, position int) error {
	f, err := m.GetFile(table)
	if err != nil {
		return err
	}
	m.pool.MarkDirty(f.FD(), uint32(position/f.PageSlotSum()))
	return nil
}

// PinPage / UnpinPage / UnpinnedNum expose the pool's pinning surface.
func (m *Manager) PinPage(fd int32, pageIndex uint32) { m.pool.Pin(fd, pageIndex) }

func (m *Manager) UnpinPage(fd int32, pageIndex uint32) { m.pool.Unpin(fd, pageIndex) }

func (m *Manager) UnpinnedNum() int { return m.pool.UnpinnedCount() }

// Close flushes and closes every table file.
func (m *Manager) Close() error {
	var firstErr error
	for name, f := range m.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("heap: close %s: %w", name, err)
		}
		delete(m.files, name)
	}
	return firstErr
}
