package exec

import (
	"github.com/tuanpm/slotdb/internal/catalog"
	"github.com/tuanpm/slotdb/internal/heap"
	"github.com/tuanpm/slotdb/internal/record"
)

// Insert is a single-shot operator: the first Next performs the insert and
// the stream ends. Value parse failures surface through Err.
type Insert struct {
	table  string
	values []record.Value
	mgr    *heap.Manager

	done bool
	err  *Error
}

var _ Iter = (*Insert)(nil)

func NewInsert(table string, values []record.Value, mgr *heap.Manager) *Insert {
	return &Insert{table: table, values: values, mgr: mgr}
}

func (i *Insert) Open() {
	i.done = false
	i.err = nil
}

func (i *Insert) Next() (record.TupleData, bool) {
	if i.done {
		return nil, false
	}
	i.done = true
	if err := i.mgr.Insert(i.table, i.values); err != nil {
		i.err = wrapErr(err)
	}
	return nil, false
}

func (i *Insert) Err() *Error { return i.err }
func (i *Insert) Close()      {}

// Assign is one resolved SET clause: the attribute's ordinal position, its
// type and the new value.
type Assign struct {
	Pos   int
	Type  catalog.AttrType
	Value record.Value
}

// Update overwrites the named attributes of every child tuple in place at
// their fixed offsets and emits the modified tuple, so callers observe one
// acknowledgement per affected row. There is no rollback on mid-stream
// failure.
type Update struct {
	child   Iter
	table   string
	assigns []Assign
	mgr     *heap.Manager

	err *Error
}

var _ Iter = (*Update)(nil)

func NewUpdate(child Iter, table string, assigns []Assign, mgr *heap.Manager) *Update {
	return &Update{child: child, table: table, assigns: assigns, mgr: mgr}
}

func (u *Update) Open() {
	u.err = nil
	u.child.Open()
}

func (u *Update) Next() (record.TupleData, bool) {
	td, ok := u.child.Next()
	if !ok {
		u.err = u.child.Err()
		return nil, false
	}
	for _, a := range u.assigns {
		if err := heap.WriteValue(td[a.Pos], a.Value, a.Type); err != nil {
			u.err = wrapErr(err)
			return nil, false
		}
	}
	pos := u.child.(positioner).LastPosition()
	if err := u.mgr.MarkDirty(u.table, pos); err != nil {
		u.err = wrapErr(err)
		return nil, false
	}
	return td, true
}

func (u *Update) Err() *Error { return u.err }
func (u *Update) Close()      { u.child.Close() }

// Delete frees the slot of every child tuple and emits the freed tuple as
// the acknowledgement. The tuple bytes are not zeroed, so the view stays
// readable for the duration of the call.
type Delete struct {
	child Iter
	table string
	mgr   *heap.Manager

	err *Error
}

var _ Iter = (*Delete)(nil)

func NewDelete(child Iter, table string, mgr *heap.Manager) *Delete {
	return &Delete{child: child, table: table, mgr: mgr}
}

func (d *Delete) Open() {
	d.err = nil
	d.child.Open()
}

func (d *Delete) Next() (record.TupleData, bool) {
	td, ok := d.child.Next()
	if !ok {
		d.err = d.child.Err()
		return nil, false
	}
	pos := d.child.(positioner).LastPosition()
	if err := d.mgr.Delete(d.table, pos); err != nil {
		d.err = wrapErr(err)
		return nil, false
	}
	return td, true
}

func (d *Delete) Err() *Error { return d.err }
func (d *Delete) Close()      { d.child.Close() }

// CreateTable is a single-shot DDL operator: it installs the definition in
// the catalog and opens the table file.
type CreateTable struct {
	def *catalog.Table
	cat *catalog.Catalog
	mgr *heap.Manager

	done bool
	err  *Error
}

var _ Iter = (*CreateTable)(nil)

func NewCreateTable(def *catalog.Table, cat *catalog.Catalog, mgr *heap.Manager) *CreateTable {
	return &CreateTable{def: def, cat: cat, mgr: mgr}
}

func (c *CreateTable) Open() {
	c.done = false
	c.err = nil
}

func (c *CreateTable) Next() (record.TupleData, bool) {
	if c.done {
		return nil, false
	}
	c.done = true
	if err := c.cat.AddTable(c.def); err != nil {
		c.err = wrapErr(err)
		return nil, false
	}
	if err := c.mgr.CreateFile(c.def.Name, c.def); err != nil {
		c.err = wrapErr(err)
	}
	return nil, false
}

func (c *CreateTable) Err() *Error { return c.err }
func (c *CreateTable) Close()      {}
