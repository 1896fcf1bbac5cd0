// Package record derives the fixed-stride tuple layout from a catalog table
// and exposes typed views over raw tuple bytes.
package record

import (
	"bytes"
	"math"

	"github.com/tuanpm/slotdb/internal/catalog"
	"github.com/tuanpm/slotdb/pkg/bx"
)

// TupleDesc is the layout plan for one table: the ordered attribute types and
// the total tuple width. All tuples of a table share this width.
type TupleDesc struct {
	AttrDesc []catalog.AttrType
	TupleLen int
}

// GenTupleDesc computes the descriptor from a table definition.
func GenTupleDesc(t *catalog.Table) TupleDesc {
	d := TupleDesc{AttrDesc: make([]catalog.AttrType, 0, len(t.AttrList))}
	for _, a := range t.AttrList {
		d.AttrDesc = append(d.AttrDesc, a.AttrType)
		d.TupleLen += a.AttrType.Width()
	}
	return d
}

// AttrOffset is the byte offset of attribute pos inside a slot: the prefix
// sum of the widths before it. Readers and writers must agree on this.
func (d TupleDesc) AttrOffset(pos int) int {
	off := 0
	for i := 0; i < pos && i < len(d.AttrDesc); i++ {
		off += d.AttrDesc[i].Width()
	}
	return off
}

// IndexMap resolves attribute names to ordinal positions.
type IndexMap map[string]int

func GenIndexMap(t *catalog.Table) IndexMap {
	m := make(IndexMap, len(t.AttrList))
	for i, a := range t.AttrList {
		m[a.Name] = i
	}
	return m
}

// TupleData is the per-attribute view of one stored tuple: one subslice of
// the page buffer per attribute. It is valid only until the Next call that
// produced it returns; holders must not retain it.
type TupleData [][]byte

// TupleValue is a typed copy of one stored attribute.
type TupleValue struct {
	Kind  catalog.AttrKind
	Int   int32
	Float float32
	Str   string
}

func IntValue(v int32) TupleValue { return TupleValue{Kind: catalog.Int, Int: v} }

func FloatValue(v float32) TupleValue { return TupleValue{Kind: catalog.Float, Float: v} }

func CharValue(s string) TupleValue { return TupleValue{Kind: catalog.Char, Str: s} }

// ReadValue decodes the attribute bytes at their fixed width. Char values
// are returned with trailing NUL padding trimmed.
func ReadValue(at catalog.AttrType, b []byte) TupleValue {
	switch at.Kind {
	case catalog.Int:
		return IntValue(bx.I32(b))
	case catalog.Float:
		return FloatValue(math.Float32frombits(bx.U32(b)))
	default:
		return CharValue(string(bytes.TrimRight(b[:at.Width()], "\x00")))
	}
}

// ValueKind classifies a literal value on its way into the engine.
type ValueKind uint8

const (
	LitInteger ValueKind = iota
	LitFloat
	LitString
	LitNull
)

func (k ValueKind) String() string {
	switch k {
	case LitInteger:
		return "Integer"
	case LitFloat:
		return "Float"
	case LitString:
		return "String"
	case LitNull:
		return "Null"
	}
	return "Unknown"
}

// Value is a literal heading for storage: the raw token text plus its lexical
// kind. Parsing to the attribute's binary form happens at insert time.
type Value struct {
	Raw  string
	Kind ValueKind
}
