// Package catalog holds the in-memory table definitions and their JSON
// persistence. The catalog is the source of truth for tuple layout: attribute
// order is significant and immutable once a table is created.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

var (
	ErrDuplicateTable = errors.New("catalog: table already exists")
	ErrUnknownKind    = errors.New("catalog: unknown attribute type")
)

// AttrKind enumerates the storable attribute types.
type AttrKind uint8

const (
	Int AttrKind = iota
	Float
	Char
)

func (k AttrKind) String() string {
	switch k {
	case Int:
		return "Int"
	case Float:
		return "Float"
	case Char:
		return "Char"
	}
	return fmt.Sprintf("AttrKind(%d)", uint8(k))
}

// AttrType is an attribute type. Len is only meaningful for Char and is the
// declared character length, not the padded storage width.
type AttrType struct {
	Kind AttrKind
	Len  int
}

// Width is the storage width in bytes: numerics take 4, char(L) is padded to
// the next multiple of 4.
func (a AttrType) Width() int {
	if a.Kind == Char {
		return (a.Len + 3) / 4 * 4
	}
	return 4
}

func (a AttrType) String() string {
	if a.Kind == Char {
		return fmt.Sprintf("Char(%d)", a.Len)
	}
	return a.Kind.String()
}

// MarshalJSON encodes Int/Float as {"type":"Int"} and Char as
// {"type":"Char","len":"16"}. The char length is a string for
// parser-neutrality across catalog consumers.
func (a AttrType) MarshalJSON() ([]byte, error) {
	if a.Kind == Char {
		return json.Marshal(struct {
			Type string `json:"type"`
			Len  string `json:"len"`
		}{Type: "Char", Len: strconv.Itoa(a.Len)})
	}
	return json.Marshal(struct {
		Type string `json:"type"`
	}{Type: a.Kind.String()})
}

// UnmarshalJSON accepts the char length as either a JSON string or a number.
func (a *AttrType) UnmarshalJSON(data []byte) error {
	var aux struct {
		Type string          `json:"type"`
		Len  json.RawMessage `json:"len"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	switch aux.Type {
	case "Int":
		*a = AttrType{Kind: Int}
	case "Float":
		*a = AttrType{Kind: Float}
	case "Char":
		s := strings.Trim(strings.TrimSpace(string(aux.Len)), `"`)
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("catalog: bad char len %q: %w", s, err)
		}
		*a = AttrType{Kind: Char, Len: n}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, aux.Type)
	}
	return nil
}

// Attr is one column of a table.
type Attr struct {
	Name     string   `json:"name"`
	AttrType AttrType `json:"attr_type"`
	Primary  bool     `json:"primary"`
	Nullable bool     `json:"nullable"`
}

// Table is a named, ordered attribute list. The order determines tuple
// layout and must never change after creation.
type Table struct {
	Name     string `json:"name"`
	AttrList []Attr `json:"attr_list"`
}

// Attr returns the attribute with the given name.
func (t *Table) Attr(name string) (Attr, bool) {
	for _, a := range t.AttrList {
		if a.Name == name {
			return a, true
		}
	}
	return Attr{}, false
}

// Clone deep-copies the table definition so planned statements keep a stable
// schema snapshot even if the catalog is later mutated by DDL.
func (t *Table) Clone() *Table {
	cp := &Table{Name: t.Name, AttrList: make([]Attr, len(t.AttrList))}
	copy(cp.AttrList, t.AttrList)
	return cp
}

// Catalog maps table names to definitions.
type Catalog struct {
	Tables map[string]*Table
}

func New() *Catalog {
	return &Catalog{Tables: make(map[string]*Table)}
}

func (c *Catalog) AddTable(t *Table) error {
	if _, ok := c.Tables[t.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateTable, t.Name)
	}
	c.Tables[t.Name] = t
	return nil
}

func (c *Catalog) GetTable(name string) (*Table, bool) {
	t, ok := c.Tables[name]
	return t, ok
}

// ToJSON encodes the catalog deterministically: encoding/json sorts map keys,
// so repeated encode/decode cycles are byte-stable.
func (c *Catalog) ToJSON() (string, error) {
	b, err := json.Marshal(c.Tables)
	if err != nil {
		return "", fmt.Errorf("catalog: encode: %w", err)
	}
	return string(b), nil
}

func FromJSON(s string) (*Catalog, error) {
	c := New()
	if err := json.Unmarshal([]byte(s), &c.Tables); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	return c, nil
}

// Save writes the catalog JSON next to the table files.
func (c *Catalog) Save(path string) error {
	s, err := c.ToJSON()
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(s), 0o644)
}

// Load reads a catalog from disk. A missing file yields an empty catalog so
// a fresh data directory bootstraps cleanly.
func Load(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return FromJSON(string(b))
}
