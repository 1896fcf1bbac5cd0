package heap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuanpm/slotdb/internal/record"
)

// newTestManager opens a manager over a temp directory with the message
// table created, mirroring the layout used across the exec tests.
func newTestManager(t *testing.T, poolPages int) (*Manager, string) {
	t.Helper()
	dir := t.TempDir()
	m, err := NewManager(dir, poolPages)
	require.NoError(t, err)
	require.NoError(t, m.CreateFile("message", messageTable()))
	t.Cleanup(func() { _ = m.Close() })
	return m, dir
}

// insertTestRows loads the canonical three-row fixture: two rows in page 0,
// one forced into page 1.
func insertTestRows(t *testing.T, m *Manager) {
	t.Helper()
	require.NoError(t, m.Insert("message", messageValues("233", "666.666", "abcdef")))
	require.NoError(t, m.Insert("message", messageValues("777", "12345.777", "dyb")))
	require.NoError(t, m.InsertInPage("message", 1, messageValues("1", "123.0", "str")))
}

func TestInsertOccupancy(t *testing.T) {
	m, _ := newTestManager(t, 5)
	insertTestRows(t, m)

	f, err := m.GetFile("message")
	require.NoError(t, err)
	require.True(t, f.IsInuse(0, 0))
	require.True(t, f.IsInuse(0, 1))
	require.False(t, f.IsInuse(0, 2))
	require.True(t, f.IsInuse(1, 0))
	require.Equal(t, uint32(2), f.PageSum)
}

func TestScanOrder(t *testing.T) {
	m, _ := newTestManager(t, 5)
	insertTestRows(t, m)

	f, err := m.GetFile("message")
	require.NoError(t, err)
	slotSum := f.PageSlotSum()

	var positions []int
	var ids []int32
	from := 0
	for {
		td, pos, ok, err := m.NextTupleData("message", from)
		require.NoError(t, err)
		if !ok {
			break
		}
		positions = append(positions, pos)
		ids = append(ids, record.ReadValue(f.Desc.AttrDesc[0], td[0]).Int)
		from = pos + 1
	}
	require.Equal(t, []int{0, 1, slotSum}, positions)
	require.Equal(t, []int32{233, 777, 1}, ids)
}

func TestTupleValueByPosition(t *testing.T) {
	m, _ := newTestManager(t, 5)
	insertTestRows(t, m)

	f, err := m.GetFile("message")
	require.NoError(t, err)
	slotSum := f.PageSlotSum()

	v, err := m.TupleValue("message", 1, 1)
	require.NoError(t, err)
	require.Equal(t, record.FloatValue(12345.777), v)

	v, err = m.TupleValue("message", slotSum, 2)
	require.NoError(t, err)
	require.Equal(t, record.CharValue("str"), v)
}

func TestDeleteLowersFirstFree(t *testing.T) {
	m, _ := newTestManager(t, 5)
	insertTestRows(t, m)

	require.NoError(t, m.Delete("message", 0))

	f, err := m.GetFile("message")
	require.NoError(t, err)
	require.False(t, f.IsInuse(0, 0))
	require.Zero(t, f.FirstFreePage)

	// The freed slot is the next insert target.
	require.NoError(t, m.Insert("message", messageValues("555", "1.0", "re")))
	require.True(t, f.IsInuse(0, 0))
	v, err := m.TupleValue("message", 0, 0)
	require.NoError(t, err)
	require.Equal(t, record.IntValue(555), v)
}

func TestInsertFillsPageThenAllocates(t *testing.T) {
	m, _ := newTestManager(t, 5)
	f, err := m.GetFile("message")
	require.NoError(t, err)
	slotSum := f.PageSlotSum()

	for i := 0; i < slotSum+1; i++ {
		require.NoError(t, m.Insert("message", messageValues("1", "2.0", "x")))
	}
	require.Equal(t, uint32(2), f.PageSum)
	require.Equal(t, uint32(1), f.FirstFreePage)
	require.True(t, f.IsInuse(1, 0))
}

func TestPersistenceRoundTrip(t *testing.T) {
	dir := ""
	{
		m, d := newTestManager(t, 5)
		dir = d
		insertTestRows(t, m)
		require.NoError(t, m.Close())
	}

	m, err := NewManager(dir, 5)
	require.NoError(t, err)
	defer func() { _ = m.Close() }()
	require.NoError(t, m.CreateFile("message", messageTable()))

	f, err := m.GetFile("message")
	require.NoError(t, err)
	require.Equal(t, uint32(2), f.PageSum)

	var ids []int32
	from := 0
	for {
		td, pos, ok, err := m.NextTupleData("message", from)
		require.NoError(t, err)
		if !ok {
			break
		}
		ids = append(ids, record.ReadValue(f.Desc.AttrDesc[0], td[0]).Int)
		from = pos + 1
	}
	require.Equal(t, []int32{233, 777, 1}, ids)

	v, err := m.TupleValue("message", 0, 2)
	require.NoError(t, err)
	require.Equal(t, record.CharValue("abcdef"), v)
}

// A one-frame pool forces eviction between the two data pages; the scan must
// transparently re-fetch through the pool.
func TestScanSurvivesEviction(t *testing.T) {
	m, _ := newTestManager(t, 1)
	insertTestRows(t, m)

	var ids []int32
	f, err := m.GetFile("message")
	require.NoError(t, err)
	from := 0
	for {
		td, pos, ok, err := m.NextTupleData("message", from)
		require.NoError(t, err)
		if !ok {
			break
		}
		ids = append(ids, record.ReadValue(f.Desc.AttrDesc[0], td[0]).Int)
		from = pos + 1
	}
	require.Equal(t, []int32{233, 777, 1}, ids)
	require.Equal(t, 1, m.UnpinnedNum())
}
