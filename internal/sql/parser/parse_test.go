package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuanpm/slotdb/internal/catalog"
	"github.com/tuanpm/slotdb/internal/record"
	"github.com/tuanpm/slotdb/internal/sql/lexer"
)

func parse(t *testing.T, input string) Statement {
	t.Helper()
	line := lexer.Parse(input)
	require.Empty(t, line.Errors)
	stmt, errs := Parse(line.Tokens)
	require.Empty(t, errs)
	return stmt
}

func parseErrs(t *testing.T, input string) ErrorList {
	t.Helper()
	line := lexer.Parse(input)
	require.Empty(t, line.Errors)
	stmt, errs := Parse(line.Tokens)
	require.Nil(t, stmt)
	require.NotEmpty(t, errs)
	return errs
}

func TestParseCreateTable(t *testing.T) {
	stmt := parse(t, "create table message (id int not null primary, score float null, content char(16));")
	ct, ok := stmt.(*CreateTableStmt)
	require.True(t, ok)
	require.Equal(t, "message", ct.Table)
	require.Equal(t, []AttrDef{
		{Name: "id", Type: catalog.AttrType{Kind: catalog.Int}, Primary: true},
		{Name: "score", Type: catalog.AttrType{Kind: catalog.Float}, Nullable: true},
		{Name: "content", Type: catalog.AttrType{Kind: catalog.Char, Len: 16}, Nullable: true},
	}, ct.Attrs)
}

func TestParseInsert(t *testing.T) {
	stmt := parse(t, `insert into message values (233, 666.666, "abcdef")`)
	ins, ok := stmt.(*InsertStmt)
	require.True(t, ok)
	require.Equal(t, "message", ins.Table)
	require.Len(t, ins.Values, 3)
	require.Equal(t, record.Value{Raw: "233", Kind: record.LitInteger}, ins.Values[0].Value())
	require.Equal(t, record.Value{Raw: "666.666", Kind: record.LitFloat}, ins.Values[1].Value())
	require.Equal(t, record.Value{Raw: "abcdef", Kind: record.LitString}, ins.Values[2].Value())
}

func TestParseInsertNegativeAndNull(t *testing.T) {
	stmt := parse(t, "insert into t values (-42, null)")
	ins := stmt.(*InsertStmt)
	require.Equal(t, record.Value{Raw: "-42", Kind: record.LitInteger}, ins.Values[0].Value())
	require.Equal(t, record.Value{Kind: record.LitNull}, ins.Values[1].Value())
}

func TestParseSelectStar(t *testing.T) {
	stmt := parse(t, "select * from message where id = 1")
	sel := stmt.(*SelectStmt)
	require.Equal(t, "message", sel.Table)
	require.Len(t, sel.Items, 1)
	require.True(t, sel.Items[0].Star)

	cmp, ok := sel.Where.(*CmpExpr)
	require.True(t, ok)
	require.Equal(t, CmpEq, cmp.Op)
	require.Equal(t, "id", cmp.L.(*ColumnRef).Column)
	require.Equal(t, "1", cmp.R.(*ValueExpr).Raw)
}

func TestParseSelectQualifiedColumn(t *testing.T) {
	stmt := parse(t, "select message.id from message where message.score < 1000")
	sel := stmt.(*SelectStmt)
	ref := sel.Items[0].Column
	require.Equal(t, "message", ref.Table)
	require.Equal(t, "id", ref.Column)

	cmp := sel.Where.(*CmpExpr)
	l := cmp.L.(*ColumnRef)
	require.Equal(t, "message", l.Table)
	require.Equal(t, "score", l.Column)
}

func TestParseSelectAggregates(t *testing.T) {
	stmt := parse(t, "select count(*), sum(score), max(id) from message")
	sel := stmt.(*SelectStmt)
	require.Len(t, sel.Items, 3)
	require.Equal(t, AggCount, sel.Items[0].Agg)
	require.True(t, sel.Items[0].Star)
	require.Equal(t, AggSum, sel.Items[1].Agg)
	require.Equal(t, "score", sel.Items[1].Column.Column)
	require.Equal(t, AggMax, sel.Items[2].Agg)
}

func TestParseWherePrecedence(t *testing.T) {
	stmt := parse(t, "select * from t where a = 1 or b = 2 and not c = 3")
	sel := stmt.(*SelectStmt)

	or, ok := sel.Where.(*LogicExpr)
	require.True(t, ok)
	require.Equal(t, LogicOr, or.Op)

	and, ok := or.R.(*LogicExpr)
	require.True(t, ok)
	require.Equal(t, LogicAnd, and.Op)

	_, ok = and.R.(*NotExpr)
	require.True(t, ok)
}

func TestParseUpdate(t *testing.T) {
	stmt := parse(t, `update message set score = 86.86, content = "updated" where id = 777`)
	up := stmt.(*UpdateStmt)
	require.Equal(t, "message", up.Table)
	require.Len(t, up.Assigns, 2)
	require.Equal(t, "score", up.Assigns[0].Column)
	require.Equal(t, "86.86", up.Assigns[0].Value.Raw)
	require.Equal(t, "content", up.Assigns[1].Column)
	require.NotNil(t, up.Where)
}

func TestParseUpdateNoWhere(t *testing.T) {
	stmt := parse(t, "update message set score = 86.86")
	up := stmt.(*UpdateStmt)
	require.Nil(t, up.Where)
}

func TestParseDelete(t *testing.T) {
	stmt := parse(t, "delete from message where id = 233")
	del := stmt.(*DeleteStmt)
	require.Equal(t, "message", del.Table)
	require.NotNil(t, del.Where)

	stmt = parse(t, "delete from message")
	require.Nil(t, stmt.(*DeleteStmt).Where)
}

func TestParseErrorsCarryPosition(t *testing.T) {
	errs := parseErrs(t, "select from message")
	require.Equal(t, ParseUnexpectedToken, errs[0].Kind)
	require.Equal(t, "from", errs[0].Token.Text)
	require.Equal(t, 8, errs[0].Token.Column)
}

func TestParseMissingTokenAtEOF(t *testing.T) {
	errs := parseErrs(t, "insert into message")
	require.Equal(t, ParseMissingToken, errs[0].Kind)
	require.Equal(t, lexer.TokenUnknown, errs[0].Token.Type)
}

func TestParseUnknownStatement(t *testing.T) {
	errs := parseErrs(t, "frobnicate message")
	require.Equal(t, ParseUnexpectedToken, errs[0].Kind)
}
