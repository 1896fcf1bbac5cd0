// Package heap implements the slotted table files: fixed-stride tuple pages
// with an occupancy bitmap, per-table files of such pages, and the manager
// that routes operations by table name and drives the buffer pool.
package heap

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/tuanpm/slotdb/internal/catalog"
	"github.com/tuanpm/slotdb/internal/record"
	"github.com/tuanpm/slotdb/internal/storage"
	"github.com/tuanpm/slotdb/pkg/bx"
)

const pageHeaderSize = 8 // slot_sum + first_free_slot, u32 LE each

var (
	ErrTypeMismatch = errors.New("heap: value type does not match attribute type")
	ErrValueParse   = errors.New("heap: cannot parse value for attribute")
	ErrArity        = errors.New("heap: value count does not match attribute count")
)

// SlotSum is the page capacity for a tuple width: the largest n with
// ceil(n/8) + tupleLen*n <= PageSize - header.
func SlotSum(tupleLen int) int {
	avail := storage.PageSize - pageHeaderSize
	n := (8*avail - 7) / (8*tupleLen + 1)
	// The closed form can fall a slot short when the bitmap's last byte has
	// spare bits; take every further slot that still fits.
	for (n+8)/8+tupleLen*(n+1) <= avail {
		n++
	}
	return n
}

// FilePage overlays one page buffer with the header, the occupancy bitmap
// and the fixed-stride slot region.
//
//	+--------------------------+ 0
//	| slot_sum | first_free    |
//	+--------------------------+ 8
//	| occupancy bitmap         | ceil(slot_sum/8) bytes, bit i = slot i used
//	+--------------------------+
//	| slot 0 | slot 1 | ...    | slot_sum slots of tuple_len bytes
//	+--------------------------+
type FilePage struct {
	buf       []byte
	desc      record.TupleDesc
	pageIndex uint32

	slotSum       int
	firstFreeSlot int
	tupleOff      int // start of the slot region
}

// NewFilePage wraps buf without touching its contents; follow with
// InitEmpty or InitFromBytes.
func NewFilePage(buf []byte, desc record.TupleDesc, pageIndex uint32) *FilePage {
	slotSum := SlotSum(desc.TupleLen)
	return &FilePage{
		buf:       buf,
		desc:      desc,
		pageIndex: pageIndex,
		slotSum:   slotSum,
		tupleOff:  pageHeaderSize + (slotSum+7)/8,
	}
}

func (p *FilePage) PageIndex() uint32 { return p.pageIndex }

func (p *FilePage) SlotSum() int { return p.slotSum }

func (p *FilePage) bitmap() []byte {
	return p.buf[pageHeaderSize : pageHeaderSize+(p.slotSum+7)/8]
}

func (p *FilePage) saveHeader() {
	bx.PutU32At(p.buf, 0, uint32(p.slotSum))
	bx.PutU32At(p.buf, 4, uint32(p.firstFreeSlot))
}

// InitEmpty formats the page: first_free_slot = 0, bitmap zeroed.
func (p *FilePage) InitEmpty() {
	p.firstFreeSlot = 0
	p.saveHeader()
	bm := p.bitmap()
	for i := range bm {
		bm[i] = 0
	}
}

// InitFromBytes adopts an already-formatted page. The stored slot_sum must
// match the value derived from this table's tuple width.
func (p *FilePage) InitFromBytes() error {
	stored := int(bx.U32At(p.buf, 0))
	if stored != p.slotSum {
		return fmt.Errorf("heap: page %d slot_sum %d, want %d", p.pageIndex, stored, p.slotSum)
	}
	p.firstFreeSlot = int(bx.U32At(p.buf, 4))
	return nil
}

// IsUninitialized reports whether the buffer holds a never-formatted page
// (all-zero header is impossible for a formatted page since slot_sum > 0).
func (p *FilePage) IsUninitialized() bool {
	return bx.U32At(p.buf, 0) == 0
}

func (p *FilePage) IsInuse(index int) bool {
	if index >= p.slotSum {
		panic("heap: slot index out of range")
	}
	return p.bitmap()[index/8]&(1<<(index%8)) != 0
}

func (p *FilePage) setInuse(index int, inuse bool) {
	if index >= p.slotSum {
		panic("heap: slot index out of range")
	}
	bm := p.bitmap()
	mask := byte(1 << (index % 8))
	if inuse {
		bm[index/8] |= mask
	} else {
		bm[index/8] &^= mask
	}
}

// NextTupleIndex returns the smallest occupied slot index >= from, or
// slot_sum if none. All-zero bytes are skipped whole; bits beyond slot_sum
// in the trailing byte are guaranteed zero, so no masking is needed.
func (p *FilePage) NextTupleIndex(from int) int {
	if from >= p.slotSum {
		return p.slotSum
	}
	bm := p.bitmap()
	count := from / 8
	bit := from % 8
	for count < len(bm) {
		n := bm[count]
		mask := byte(1 << bit)
		// n < mask means no bit at or above bit is set in this byte.
		if n < mask {
			count++
			bit = 0
			continue
		}
		for {
			if n&mask != 0 {
				return count*8 + bit
			}
			mask <<= 1
			bit++
		}
	}
	return p.slotSum
}

// firstFree returns the smallest free slot index, or slot_sum if full.
// All-ones bytes are skipped whole.
func (p *FilePage) firstFree() int {
	bm := p.bitmap()
	for count := 0; count < len(bm); count++ {
		n := bm[count]
		if n == 0xFF {
			continue
		}
		bit := 0
		mask := byte(1)
		for {
			if n&mask == 0 {
				return count*8 + bit
			}
			mask <<= 1
			bit++
		}
	}
	return p.slotSum
}

func (p *FilePage) IsFull() bool {
	return p.firstFreeSlot == p.slotSum
}

func (p *FilePage) slotStart(index int) int {
	return p.tupleOff + index*p.desc.TupleLen
}

// Insert writes values into the first free slot, marks it occupied,
// recomputes first_free_slot from the bitmap and flushes the header.
// Precondition: the page is not full.
func (p *FilePage) Insert(values []record.Value) error {
	if len(values) != len(p.desc.AttrDesc) {
		return fmt.Errorf("%w: got %d, want %d", ErrArity, len(values), len(p.desc.AttrDesc))
	}
	slot := p.firstFreeSlot
	if slot >= p.slotSum {
		panic("heap: insert into full page")
	}
	if p.IsInuse(slot) {
		panic("heap: first free slot already occupied")
	}

	off := p.slotStart(slot)
	for i, v := range values {
		at := p.desc.AttrDesc[i]
		if err := WriteValue(p.buf[off:off+at.Width()], v, at); err != nil {
			return err
		}
		off += at.Width()
	}

	p.setInuse(slot, true)
	p.firstFreeSlot = p.firstFree()
	p.saveHeader()
	return nil
}

// WriteValue encodes one literal at its attribute's fixed width. Null
// numerics become four zero bytes, null chars a zeroed region.
func WriteValue(dst []byte, v record.Value, at catalog.AttrType) error {
	for i := range dst {
		dst[i] = 0
	}
	switch {
	case v.Kind == record.LitNull:
		return nil
	case at.Kind == catalog.Int && v.Kind == record.LitInteger:
		n, err := strconv.ParseInt(v.Raw, 10, 32)
		if err != nil {
			return fmt.Errorf("%w: %q as Int: %v", ErrValueParse, v.Raw, err)
		}
		bx.PutI32(dst, int32(n))
		return nil
	case at.Kind == catalog.Float && (v.Kind == record.LitFloat || v.Kind == record.LitInteger):
		f, err := strconv.ParseFloat(v.Raw, 32)
		if err != nil {
			return fmt.Errorf("%w: %q as Float: %v", ErrValueParse, v.Raw, err)
		}
		bx.PutU32(dst, math.Float32bits(float32(f)))
		return nil
	case at.Kind == catalog.Char && v.Kind == record.LitString:
		s := v.Raw
		if len(s) > at.Len {
			s = s[:at.Len]
		}
		copy(dst, s)
		return nil
	default:
		return fmt.Errorf("%w: %s literal %q for %s attribute", ErrTypeMismatch, v.Kind, v.Raw, at)
	}
}

// Delete frees the slot containing the given byte offset into the slot
// region. The offset must fall on a slot boundary and the slot must be
// occupied; both are programming errors otherwise.
func (p *FilePage) Delete(regionOff int) {
	if regionOff%p.desc.TupleLen != 0 {
		panic("heap: delete offset not on a slot boundary")
	}
	index := regionOff / p.desc.TupleLen
	if !p.IsInuse(index) {
		panic("heap: delete of free slot")
	}
	p.DeleteAt(index)
}

// DeleteAt frees an occupied slot. The tuple bytes are not zeroed; the
// header is reflushed so first_free_slot stays the lowest free index.
func (p *FilePage) DeleteAt(index int) {
	if !p.IsInuse(index) {
		panic("heap: delete of free slot")
	}
	p.setInuse(index, false)
	if index < p.firstFreeSlot {
		p.firstFreeSlot = index
	}
	p.saveHeader()
}

// TupleData returns the per-attribute views of an occupied slot, or nil if
// index >= slot_sum. The slices alias the page buffer and are valid only for
// the duration of the current operation.
func (p *FilePage) TupleData(index int) record.TupleData {
	if index >= p.slotSum {
		return nil
	}
	if !p.IsInuse(index) {
		panic("heap: tuple data of free slot")
	}
	start := p.slotStart(index)
	td := make(record.TupleData, len(p.desc.AttrDesc))
	off := 0
	for i, at := range p.desc.AttrDesc {
		td[i] = p.buf[start+off : start+off+at.Width()]
		off += at.Width()
	}
	return td
}

// TupleValue reads one attribute of an occupied slot as a typed value.
func (p *FilePage) TupleValue(index, attrPos int) record.TupleValue {
	if !p.IsInuse(index) {
		panic("heap: tuple value of free slot")
	}
	at := p.desc.AttrDesc[attrPos]
	off := p.slotStart(index) + p.desc.AttrOffset(attrPos)
	return record.ReadValue(at, p.buf[off:off+at.Width()])
}
