package server

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEngineExecuteAndRestart(t *testing.T) {
	dir := t.TempDir()

	e, err := NewEngine(dir, 5)
	require.NoError(t, err)

	_, err = e.Execute("create table message (id int not null primary, score float null, content char(16))")
	require.NoError(t, err)
	_, err = e.Execute(`insert into message values (233, 666.666, "abcdef")`)
	require.NoError(t, err)
	_, err = e.Execute(`insert into message values (777, 12345.777, "dyb")`)
	require.NoError(t, err)

	res, err := e.Execute("select * from message where id = 777")
	require.NoError(t, err)
	require.Equal(t, []string{"id", "score", "content"}, res.Columns)
	require.Equal(t, [][]string{{"777", "12345.777", "dyb"}}, res.Rows)

	require.NoError(t, e.Close())

	// A fresh engine over the same directory sees the catalog and the rows.
	e2, err := NewEngine(dir, 5)
	require.NoError(t, err)
	defer func() { _ = e2.Close() }()

	res, err = e2.Execute("select * from message")
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
	require.Equal(t, "233", res.Rows[0][0])
}

func TestEngineSurfacesStatementErrors(t *testing.T) {
	e, err := NewEngine(t.TempDir(), 5)
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	_, err = e.Execute("select * from nope")
	require.Error(t, err)
	require.Contains(t, err.Error(), "SemUnknownTable")
}
