package parser

import (
	"github.com/tuanpm/slotdb/internal/catalog"
	"github.com/tuanpm/slotdb/internal/record"
	"github.com/tuanpm/slotdb/internal/sql/lexer"
)

// Statement is the root interface for all SQL statements.
type Statement interface {
	stmtNode()
}

// ----- CREATE TABLE -----

type AttrDef struct {
	Name     string
	Type     catalog.AttrType
	Primary  bool
	Nullable bool
}

type CreateTableStmt struct {
	Table string
	Attrs []AttrDef
}

func (*CreateTableStmt) stmtNode() {}

// ----- INSERT -----

type InsertStmt struct {
	Table  string
	Values []*ValueExpr
}

func (*InsertStmt) stmtNode() {}

// ----- DELETE -----

type DeleteStmt struct {
	Table string
	Where Expr // nil when absent
}

func (*DeleteStmt) stmtNode() {}

// ----- UPDATE -----

type Assignment struct {
	Column string
	Token  lexer.Token // column token, for error reporting
	Value  *ValueExpr
}

type UpdateStmt struct {
	Table   string
	Assigns []Assignment
	Where   Expr
}

func (*UpdateStmt) stmtNode() {}

// ----- SELECT -----

// AggFunc is a recognized aggregate name. Aggregates parse but do not
// execute.
type AggFunc string

const (
	AggSum   AggFunc = "sum"
	AggAvg   AggFunc = "avg"
	AggCount AggFunc = "count"
	AggMax   AggFunc = "max"
	AggMin   AggFunc = "min"
)

// SelectItem is one projection entry: `*`, a column reference, or an
// aggregate call over a column or `*`.
type SelectItem struct {
	Star   bool
	Agg    AggFunc // "" for plain items
	Column *ColumnRef
}

type SelectStmt struct {
	Table string
	Items []SelectItem
	Where Expr
}

func (*SelectStmt) stmtNode() {}

// ----- Expressions -----

type Expr interface {
	exprNode()
}

// ValueExpr is a literal: the raw token text plus its lexical kind.
type ValueExpr struct {
	Raw   string
	Kind  record.ValueKind
	Token lexer.Token
}

func (*ValueExpr) exprNode() {}

// Value converts the literal into its storage form.
func (v *ValueExpr) Value() record.Value {
	return record.Value{Raw: v.Raw, Kind: v.Kind}
}

// ColumnRef is `attr` or `table.attr`.
type ColumnRef struct {
	Table  string // "" when unqualified
	Column string
	Token  lexer.Token
}

func (*ColumnRef) exprNode() {}

// CmpOp is a comparison operator.
type CmpOp int

const (
	CmpEq CmpOp = iota
	CmpNe
	CmpLt
	CmpLe
	CmpGt
	CmpGe
)

func (op CmpOp) String() string {
	switch op {
	case CmpEq:
		return "="
	case CmpNe:
		return "!="
	case CmpLt:
		return "<"
	case CmpLe:
		return "<="
	case CmpGt:
		return ">"
	default:
		return ">="
	}
}

// CmpExpr compares two operands (column refs or literals).
type CmpExpr struct {
	Op   CmpOp
	L, R Expr
}

func (*CmpExpr) exprNode() {}

// LogicOp joins predicates.
type LogicOp int

const (
	LogicAnd LogicOp = iota
	LogicOr
)

// LogicExpr is `L AND R` / `L OR R`.
type LogicExpr struct {
	Op   LogicOp
	L, R Expr
}

func (*LogicExpr) exprNode() {}

// NotExpr negates a predicate.
type NotExpr struct {
	E Expr
}

func (*NotExpr) exprNode() {}
