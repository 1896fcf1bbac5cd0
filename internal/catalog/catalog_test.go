package catalog

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAttrTypeJSON(t *testing.T) {
	{
		b, err := json.Marshal(AttrType{Kind: Int})
		require.NoError(t, err)
		require.Equal(t, `{"type":"Int"}`, string(b))

		var at AttrType
		require.NoError(t, json.Unmarshal(b, &at))
		require.Equal(t, AttrType{Kind: Int}, at)
	}
	{
		b, err := json.Marshal(AttrType{Kind: Float})
		require.NoError(t, err)
		require.Equal(t, `{"type":"Float"}`, string(b))

		var at AttrType
		require.NoError(t, json.Unmarshal(b, &at))
		require.Equal(t, AttrType{Kind: Float}, at)
	}
	{
		b, err := json.Marshal(AttrType{Kind: Char, Len: 233})
		require.NoError(t, err)
		require.Equal(t, `{"type":"Char","len":"233"}`, string(b))

		var at AttrType
		require.NoError(t, json.Unmarshal(b, &at))
		require.Equal(t, AttrType{Kind: Char, Len: 233}, at)
	}
}

// The char length may arrive as a bare number from other catalog writers.
func TestAttrTypeDecodeNumericLen(t *testing.T) {
	var at AttrType
	require.NoError(t, json.Unmarshal([]byte(`{"type":"Char","len":16}`), &at))
	require.Equal(t, AttrType{Kind: Char, Len: 16}, at)
}

func testTables() (*Table, *Table) {
	author := &Table{
		Name: "author",
		AttrList: []Attr{
			{Name: "id", AttrType: AttrType{Kind: Int}, Primary: true},
			{Name: "name", AttrType: AttrType{Kind: Char, Len: 10}},
		},
	}
	book := &Table{
		Name: "book",
		AttrList: []Attr{
			{Name: "id", AttrType: AttrType{Kind: Int}, Primary: true},
			{Name: "author_id", AttrType: AttrType{Kind: Int}, Primary: true, Nullable: true},
		},
	}
	return author, book
}

func TestCatalogJSONRoundTrip(t *testing.T) {
	c := New()
	author, book := testTables()
	require.NoError(t, c.AddTable(author))
	require.NoError(t, c.AddTable(book))

	s, err := c.ToJSON()
	require.NoError(t, err)

	decoded, err := FromJSON(s)
	require.NoError(t, err)
	require.Equal(t, c.Tables, decoded.Tables)

	// Encoding is deterministic: decode(encode(c)) re-encodes byte-equal.
	s2, err := decoded.ToJSON()
	require.NoError(t, err)
	require.Equal(t, s, s2)
}

func TestCatalogGetTable(t *testing.T) {
	c := New()
	author, book := testTables()
	require.NoError(t, c.AddTable(author))
	require.NoError(t, c.AddTable(book))

	got, ok := c.GetTable("book")
	require.True(t, ok)
	require.Equal(t, "book", got.Name)
	require.Len(t, got.AttrList, 2)

	_, ok = c.GetTable("missing")
	require.False(t, ok)
}

func TestCatalogDuplicateTable(t *testing.T) {
	c := New()
	author, _ := testTables()
	require.NoError(t, c.AddTable(author))
	require.ErrorIs(t, c.AddTable(author), ErrDuplicateTable)
}

func TestCatalogSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")

	c := New()
	author, book := testTables()
	require.NoError(t, c.AddTable(author))
	require.NoError(t, c.AddTable(book))
	require.NoError(t, c.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, c.Tables, loaded.Tables)

	// Missing file bootstraps an empty catalog.
	empty, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	require.Empty(t, empty.Tables)
}

func TestAttrWidth(t *testing.T) {
	require.Equal(t, 4, AttrType{Kind: Int}.Width())
	require.Equal(t, 4, AttrType{Kind: Float}.Width())
	require.Equal(t, 16, AttrType{Kind: Char, Len: 16}.Width())
	require.Equal(t, 8, AttrType{Kind: Char, Len: 6}.Width())
	require.Equal(t, 4, AttrType{Kind: Char, Len: 3}.Width())
}
