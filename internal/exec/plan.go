package exec

import (
	"github.com/tuanpm/slotdb/internal/catalog"
	"github.com/tuanpm/slotdb/internal/heap"
	"github.com/tuanpm/slotdb/internal/record"
	"github.com/tuanpm/slotdb/internal/sql/parser"
	"github.com/tuanpm/slotdb/internal/sql/sem"
)

// GenPlan builds the operator tree for a semantically valid statement.
// The table set is the schema snapshot taken at check time; execution reads
// layout information only from it.
func GenPlan(stmt parser.Statement, ts sem.TableSet, cat *catalog.Catalog, mgr *heap.Manager) Iter {
	switch s := stmt.(type) {
	case *parser.CreateTableStmt:
		return genCreateTable(s, cat, mgr)
	case *parser.InsertStmt:
		return genInsert(s, mgr)
	case *parser.SelectStmt:
		return genSelect(s, ts, mgr)
	case *parser.UpdateStmt:
		return genUpdate(s, ts, mgr)
	case *parser.DeleteStmt:
		return genDelete(s, ts, mgr)
	default:
		return &errIter{err: &Error{Kind: NotImplemented, Msg: "statement has no execution plan"}}
	}
}

func genCreateTable(s *parser.CreateTableStmt, cat *catalog.Catalog, mgr *heap.Manager) Iter {
	def := &catalog.Table{Name: s.Table}
	for _, a := range s.Attrs {
		def.AttrList = append(def.AttrList, catalog.Attr{
			Name:     a.Name,
			AttrType: a.Type,
			Primary:  a.Primary,
			Nullable: a.Nullable,
		})
	}
	return NewCreateTable(def, cat, mgr)
}

func genInsert(s *parser.InsertStmt, mgr *heap.Manager) Iter {
	values := make([]record.Value, 0, len(s.Values))
	for _, v := range s.Values {
		values = append(values, v.Value())
	}
	return NewInsert(s.Table, values, mgr)
}

// scanMaybeFiltered is the shared scan [+ filter] prefix of every reading
// plan.
func scanMaybeFiltered(table string, where parser.Expr, ts sem.TableSet, mgr *heap.Manager) Iter {
	var it Iter = NewFileScan(table, mgr)
	if where != nil {
		def := ts[table]
		it = NewFilter(it, where, record.GenIndexMap(def), record.GenTupleDesc(def))
	}
	return it
}

func genSelect(s *parser.SelectStmt, ts sem.TableSet, mgr *heap.Manager) Iter {
	for _, item := range s.Items {
		if item.Agg != "" {
			return &errIter{err: &Error{
				Kind: NotImplemented,
				Msg:  "aggregate " + string(item.Agg) + " is not executable",
			}}
		}
	}
	return scanMaybeFiltered(s.Table, s.Where, ts, mgr)
}

func genUpdate(s *parser.UpdateStmt, ts sem.TableSet, mgr *heap.Manager) Iter {
	def := ts[s.Table]
	imap := record.GenIndexMap(def)
	assigns := make([]Assign, 0, len(s.Assigns))
	for _, a := range s.Assigns {
		pos := imap[a.Column]
		assigns = append(assigns, Assign{
			Pos:   pos,
			Type:  def.AttrList[pos].AttrType,
			Value: a.Value.Value(),
		})
	}
	return NewUpdate(scanMaybeFiltered(s.Table, s.Where, ts, mgr), s.Table, assigns, mgr)
}

func genDelete(s *parser.DeleteStmt, ts sem.TableSet, mgr *heap.Manager) Iter {
	return NewDelete(scanMaybeFiltered(s.Table, s.Where, ts, mgr), s.Table, mgr)
}
