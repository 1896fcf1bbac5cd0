package server

import (
	"fmt"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/tuanpm/slotdb/internal/catalog"
	"github.com/tuanpm/slotdb/internal/heap"
	"github.com/tuanpm/slotdb/internal/record"
)

const catalogFile = "catalog.json"

// Result is a fully buffered statement outcome for transports that cannot
// stream page-resident tuples.
type Result struct {
	Columns []string   `json:"columns,omitempty"`
	Rows    [][]string `json:"rows,omitempty"`
}

// Engine owns the process-wide catalog, file manager and buffer pool. The
// core is single-threaded by contract, so Execute serializes statements.
type Engine struct {
	mu      sync.Mutex
	dir     string
	cat     *catalog.Catalog
	mgr     *heap.Manager
	nTables int
}

// NewEngine bootstraps the data directory: loads the persisted catalog and
// reopens the file of every known table.
func NewEngine(dir string, maxPoolPages int) (*Engine, error) {
	mgr, err := heap.NewManager(dir, maxPoolPages)
	if err != nil {
		return nil, err
	}
	cat, err := catalog.Load(filepath.Join(dir, catalogFile))
	if err != nil {
		_ = mgr.Close()
		return nil, err
	}
	for name, def := range cat.Tables {
		if err := mgr.CreateFile(name, def); err != nil {
			_ = mgr.Close()
			return nil, fmt.Errorf("reopen table %s: %w", name, err)
		}
	}
	return &Engine{dir: dir, cat: cat, mgr: mgr, nTables: len(cat.Tables)}, nil
}

// Execute runs one statement and buffers its outcome. The first error
// delivered by the handler wins; rows collected before it are dropped.
func (e *Engine) Execute(sql string) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rh := &bufferingHandler{}
	SQLHandler(sql, rh, e.cat, e.mgr)
	if rh.errMsg != "" {
		return nil, fmt.Errorf("%s", rh.errMsg)
	}

	// Persist the catalog when DDL grew it.
	if len(e.cat.Tables) != e.nTables {
		e.nTables = len(e.cat.Tables)
		if err := e.cat.Save(filepath.Join(e.dir, catalogFile)); err != nil {
			return nil, err
		}
	}
	return &Result{Columns: rh.columns, Rows: rh.rows}, nil
}

// Close flushes every table file and the catalog.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.cat.Save(filepath.Join(e.dir, catalogFile)); err != nil {
		return err
	}
	return e.mgr.Close()
}

// bufferingHandler adapts the streaming ResultHandler contract to a
// buffered Result: tuple views are decoded to strings inside the callback,
// before they can go stale.
type bufferingHandler struct {
	desc    record.TupleDesc
	columns []string
	rows    [][]string
	errMsg  string
}

var _ ResultHandler = (*bufferingHandler)(nil)
var _ SchemaAware = (*bufferingHandler)(nil)

func (b *bufferingHandler) HandleError(msg string) { b.errMsg = msg }

func (b *bufferingHandler) HandleSchema(def *catalog.Table) {
	b.desc = record.GenTupleDesc(def)
	b.columns = make([]string, 0, len(def.AttrList))
	for _, a := range def.AttrList {
		b.columns = append(b.columns, a.Name)
	}
}

func (b *bufferingHandler) HandleTupleData(td record.TupleData, ok bool) {
	if !ok {
		return
	}
	row := make([]string, len(td))
	for i, at := range b.desc.AttrDesc {
		v := record.ReadValue(at, td[i])
		switch at.Kind {
		case catalog.Int:
			row[i] = strconv.FormatInt(int64(v.Int), 10)
		case catalog.Float:
			row[i] = strconv.FormatFloat(float64(v.Float), 'g', -1, 32)
		default:
			row[i] = v.Str
		}
	}
	b.rows = append(b.rows, row)
}
