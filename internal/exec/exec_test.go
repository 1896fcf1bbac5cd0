package exec

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuanpm/slotdb/internal/catalog"
	"github.com/tuanpm/slotdb/internal/heap"
	"github.com/tuanpm/slotdb/internal/record"
	"github.com/tuanpm/slotdb/internal/sql/lexer"
	"github.com/tuanpm/slotdb/internal/sql/parser"
	"github.com/tuanpm/slotdb/internal/sql/sem"
)

type testEnv struct {
	cat *catalog.Catalog
	mgr *heap.Manager
}

// newTestEnv opens a fresh engine over a temp dir and creates the canonical
// message table through the DDL path.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mgr, err := heap.NewManager(t.TempDir(), 5)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Close() })

	env := &testEnv{cat: catalog.New(), mgr: mgr}
	env.exec(t, "create table message (id int not null primary, score float null, content char(16))")
	return env
}

// plan compiles a statement through lex, parse, sem and plan generation.
func (e *testEnv) plan(t *testing.T, input string) Iter {
	t.Helper()
	line := lexer.Parse(input)
	require.Empty(t, line.Errors)
	stmt, perrs := parser.Parse(line.Tokens)
	require.Empty(t, perrs)
	ts := sem.GenTableSet(stmt, e.cat)
	require.Empty(t, sem.CheckSem(stmt, ts))
	return GenPlan(stmt, ts, e.cat, e.mgr)
}

type row struct {
	id      int32
	score   float32
	content string
}

func decodeRow(td record.TupleData) row {
	return row{
		id:      record.ReadValue(catalog.AttrType{Kind: catalog.Int}, td[0]).Int,
		score:   record.ReadValue(catalog.AttrType{Kind: catalog.Float}, td[1]).Float,
		content: record.ReadValue(catalog.AttrType{Kind: catalog.Char, Len: 16}, td[2]).Str,
	}
}

// exec drives a plan to exhaustion, decoding every produced tuple.
func (e *testEnv) exec(t *testing.T, input string) []row {
	t.Helper()
	it := e.plan(t, input)
	it.Open()
	defer it.Close()

	var rows []row
	for {
		td, ok := it.Next()
		if !ok {
			require.Nil(t, it.Err(), "query %q", input)
			return rows
		}
		rows = append(rows, decodeRow(td))
	}
}

// loadFixture inserts the canonical three rows: two in page 0, one forced
// into page 1.
func (e *testEnv) loadFixture(t *testing.T) {
	t.Helper()
	e.exec(t, `insert into message values (233, 666.666, "abcdef")`)
	e.exec(t, `insert into message values (777, 12345.777, "dyb")`)
	require.NoError(t, e.mgr.InsertInPage("message", 1, []record.Value{
		{Raw: "1", Kind: record.LitInteger},
		{Raw: "123.0", Kind: record.LitFloat},
		{Raw: "str", Kind: record.LitString},
	}))
}

var fixtureRows = []row{
	{233, 666.666, "abcdef"},
	{777, 12345.777, "dyb"},
	{1, 123.0, "str"},
}

func TestFileScanYieldsInsertedTuples(t *testing.T) {
	env := newTestEnv(t)
	env.loadFixture(t)

	require.Equal(t, fixtureRows, env.exec(t, "select * from message"))

	f, err := env.mgr.GetFile("message")
	require.NoError(t, err)
	require.True(t, f.IsInuse(0, 0))
	require.True(t, f.IsInuse(0, 1))
	require.False(t, f.IsInuse(0, 2))
	require.True(t, f.IsInuse(1, 0))
}

func TestSelectWhereIdEquals(t *testing.T) {
	env := newTestEnv(t)
	env.loadFixture(t)

	rows := env.exec(t, "select * from message where id = 1")
	require.Equal(t, []row{{1, 123.0, "str"}}, rows)
}

func TestSelectWhereScoreLess(t *testing.T) {
	env := newTestEnv(t)
	env.loadFixture(t)

	rows := env.exec(t, "select * from message where score < 1000")
	require.Equal(t, []row{{233, 666.666, "abcdef"}, {1, 123.0, "str"}}, rows)
}

func TestSelectAlwaysTruePredicate(t *testing.T) {
	env := newTestEnv(t)
	env.loadFixture(t)

	rows := env.exec(t, "select * from message where 0 < 1000")
	require.Equal(t, fixtureRows, rows)
}

func TestUpdateAllRows(t *testing.T) {
	env := newTestEnv(t)
	env.loadFixture(t)

	acks := env.exec(t, `update message set score = 86.86, content = "updated"`)
	require.Len(t, acks, 3)

	rows := env.exec(t, "select * from message")
	require.Equal(t, []row{
		{233, 86.86, "updated"},
		{777, 86.86, "updated"},
		{1, 86.86, "updated"},
	}, rows)
}

func TestUpdateWithWhere(t *testing.T) {
	env := newTestEnv(t)
	env.loadFixture(t)

	acks := env.exec(t, "update message set score = 86.86 where id = 777")
	require.Len(t, acks, 1)

	rows := env.exec(t, "select * from message")
	require.Equal(t, []row{
		{233, 666.666, "abcdef"},
		{777, 86.86, "dyb"},
		{1, 123.0, "str"},
	}, rows)
}

func TestDeleteWithWhere(t *testing.T) {
	env := newTestEnv(t)
	env.loadFixture(t)

	acks := env.exec(t, "delete from message where id = 777")
	require.Len(t, acks, 1)
	require.Equal(t, int32(777), acks[0].id)

	rows := env.exec(t, "select * from message")
	require.Equal(t, []row{{233, 666.666, "abcdef"}, {1, 123.0, "str"}}, rows)

	// The freed slot is reused by the next insert.
	env.exec(t, `insert into message values (888, 1.5, "re")`)
	rows = env.exec(t, "select * from message")
	require.Equal(t, []row{
		{233, 666.666, "abcdef"},
		{888, 1.5, "re"},
		{1, 123.0, "str"},
	}, rows)
}

func TestDeleteAll(t *testing.T) {
	env := newTestEnv(t)
	env.loadFixture(t)

	acks := env.exec(t, "delete from message")
	require.Len(t, acks, 3)
	require.Empty(t, env.exec(t, "select * from message"))
}

func TestCompoundPredicate(t *testing.T) {
	env := newTestEnv(t)
	env.loadFixture(t)

	rows := env.exec(t, "select * from message where score < 1000 and id > 100")
	require.Equal(t, []row{{233, 666.666, "abcdef"}}, rows)

	rows = env.exec(t, "select * from message where id = 233 or id = 777")
	require.Equal(t, []row{{233, 666.666, "abcdef"}, {777, 12345.777, "dyb"}}, rows)

	rows = env.exec(t, "select * from message where not id = 233")
	require.Equal(t, []row{{777, 12345.777, "dyb"}, {1, 123.0, "str"}}, rows)
}

func TestStringPredicate(t *testing.T) {
	env := newTestEnv(t)
	env.loadFixture(t)

	rows := env.exec(t, `select * from message where content = "dyb"`)
	require.Equal(t, []row{{777, 12345.777, "dyb"}}, rows)

	rows = env.exec(t, `select * from message where content < "b"`)
	require.Equal(t, []row{{233, 666.666, "abcdef"}}, rows)
}

func TestIntFloatPromotion(t *testing.T) {
	env := newTestEnv(t)
	env.loadFixture(t)

	// int column against float literal
	rows := env.exec(t, "select * from message where id < 1.5")
	require.Equal(t, []row{{1, 123.0, "str"}}, rows)
}

func TestAggregateNotImplemented(t *testing.T) {
	env := newTestEnv(t)
	env.loadFixture(t)

	it := env.plan(t, "select count(*) from message")
	it.Open()
	defer it.Close()
	_, ok := it.Next()
	require.False(t, ok)
	require.NotNil(t, it.Err())
	require.Equal(t, NotImplemented, it.Err().Kind)
}

func TestScanIsRestartable(t *testing.T) {
	env := newTestEnv(t)
	env.loadFixture(t)

	it := env.plan(t, "select * from message")
	it.Open()
	for {
		if _, ok := it.Next(); !ok {
			break
		}
	}
	// Re-open resets the cursor.
	it.Open()
	td, ok := it.Next()
	require.True(t, ok)
	require.Equal(t, fixtureRows[0], decodeRow(td))
	it.Close()
}
