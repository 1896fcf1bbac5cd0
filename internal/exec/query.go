package exec

import (
	"bytes"
	"strconv"

	"github.com/tuanpm/slotdb/internal/catalog"
	"github.com/tuanpm/slotdb/internal/heap"
	"github.com/tuanpm/slotdb/internal/record"
	"github.com/tuanpm/slotdb/internal/sql/parser"
)

// FileScan produces every occupied tuple of a table in ascending logical
// position.
type FileScan struct {
	table string
	mgr   *heap.Manager

	cursor  int
	lastPos int
	err     *Error
}

var _ Iter = (*FileScan)(nil)
var _ positioner = (*FileScan)(nil)

func NewFileScan(table string, mgr *heap.Manager) *FileScan {
	return &FileScan{table: table, mgr: mgr}
}

func (s *FileScan) Open() {
	s.cursor = 0
	s.err = nil
}

func (s *FileScan) Next() (record.TupleData, bool) {
	td, pos, ok, err := s.mgr.NextTupleData(s.table, s.cursor)
	if err != nil {
		s.err = wrapErr(err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	s.lastPos = pos
	s.cursor = pos + 1
	return td, true
}

func (s *FileScan) Err() *Error { return s.err }

func (s *FileScan) Close() {}

func (s *FileScan) LastPosition() int { return s.lastPos }

// Filter emits the child's tuples for which the condition holds.
type Filter struct {
	child Iter
	cond  parser.Expr
	imap  record.IndexMap
	desc  record.TupleDesc

	err *Error
}

var _ Iter = (*Filter)(nil)
var _ positioner = (*Filter)(nil)

func NewFilter(child Iter, cond parser.Expr, imap record.IndexMap, desc record.TupleDesc) *Filter {
	return &Filter{child: child, cond: cond, imap: imap, desc: desc}
}

func (f *Filter) Open() {
	f.err = nil
	f.child.Open()
}

func (f *Filter) Next() (record.TupleData, bool) {
	for {
		td, ok := f.child.Next()
		if !ok {
			f.err = f.child.Err()
			return nil, false
		}
		match, err := f.eval(f.cond, td)
		if err != nil {
			f.err = err
			return nil, false
		}
		if match {
			return td, true
		}
	}
}

func (f *Filter) Err() *Error { return f.err }

func (f *Filter) Close() { f.child.Close() }

func (f *Filter) LastPosition() int {
	return f.child.(positioner).LastPosition()
}

// ----- condition evaluation -----

func (f *Filter) eval(e parser.Expr, td record.TupleData) (bool, *Error) {
	switch x := e.(type) {
	case *parser.LogicExpr:
		l, err := f.eval(x.L, td)
		if err != nil {
			return false, err
		}
		if x.Op == parser.LogicAnd && !l {
			return false, nil
		}
		if x.Op == parser.LogicOr && l {
			return true, nil
		}
		return f.eval(x.R, td)
	case *parser.NotExpr:
		v, err := f.eval(x.E, td)
		return !v, err
	case *parser.CmpExpr:
		return f.evalCmp(x, td)
	default:
		return false, &Error{Kind: TypeMismatch, Msg: "condition is not a predicate"}
	}
}

func (f *Filter) evalCmp(c *parser.CmpExpr, td record.TupleData) (bool, *Error) {
	l, err := f.operand(c.L, td)
	if err != nil {
		return false, err
	}
	r, err := f.operand(c.R, td)
	if err != nil {
		return false, err
	}

	if l.Kind == catalog.Char || r.Kind == catalog.Char {
		if l.Kind != catalog.Char || r.Kind != catalog.Char {
			return false, &Error{Kind: TypeMismatch, Msg: "cannot compare string and numeric values"}
		}
		return cmpOutcome(c.Op, bytes.Compare([]byte(l.Str), []byte(r.Str))), nil
	}

	// Numeric: comparing int to float promotes int to float.
	if l.Kind == catalog.Int && r.Kind == catalog.Int {
		return cmpOutcome(c.Op, cmpOrder(l.Int, r.Int)), nil
	}
	return cmpOutcome(c.Op, cmpOrder(promote(l), promote(r))), nil
}

func promote(v record.TupleValue) float32 {
	if v.Kind == catalog.Int {
		return float32(v.Int)
	}
	return v.Float
}

func cmpOrder[T int32 | float32](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpOutcome(op parser.CmpOp, ord int) bool {
	switch op {
	case parser.CmpEq:
		return ord == 0
	case parser.CmpNe:
		return ord != 0
	case parser.CmpLt:
		return ord < 0
	case parser.CmpLe:
		return ord <= 0
	case parser.CmpGt:
		return ord > 0
	default:
		return ord >= 0
	}
}

// operand resolves a comparison operand to a typed value: column references
// through the index map into the tuple bytes, literals by parsing.
func (f *Filter) operand(e parser.Expr, td record.TupleData) (record.TupleValue, *Error) {
	switch x := e.(type) {
	case *parser.ColumnRef:
		pos, ok := f.imap[x.Column]
		if !ok {
			return record.TupleValue{}, &Error{Kind: Internal, Msg: "unresolved column " + x.Column}
		}
		return record.ReadValue(f.desc.AttrDesc[pos], td[pos]), nil
	case *parser.ValueExpr:
		return literalValue(x)
	default:
		return record.TupleValue{}, &Error{Kind: TypeMismatch, Msg: "predicate operand is not a value"}
	}
}

func literalValue(v *parser.ValueExpr) (record.TupleValue, *Error) {
	switch v.Kind {
	case record.LitInteger:
		n, err := strconv.ParseInt(v.Raw, 10, 32)
		if err != nil {
			return record.TupleValue{}, &Error{Kind: ValueParse, Msg: "bad integer literal " + v.Raw}
		}
		return record.IntValue(int32(n)), nil
	case record.LitFloat:
		fv, err := strconv.ParseFloat(v.Raw, 32)
		if err != nil {
			return record.TupleValue{}, &Error{Kind: ValueParse, Msg: "bad float literal " + v.Raw}
		}
		return record.FloatValue(float32(fv)), nil
	case record.LitString:
		return record.CharValue(v.Raw), nil
	default:
		return record.TupleValue{}, &Error{Kind: TypeMismatch, Msg: "NULL literal in comparison"}
	}
}
