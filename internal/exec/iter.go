// Package exec implements the pull-based operator pipeline: every operator
// exposes Open/Next/Err/Close, composes by holding a child, and hands tuple
// views upward without copying. A tuple view is only valid inside the Next
// call that produced it.
package exec

import (
	"errors"
	"fmt"

	"github.com/tuanpm/slotdb/internal/bufferpool"
	"github.com/tuanpm/slotdb/internal/heap"
	"github.com/tuanpm/slotdb/internal/record"
	"github.com/tuanpm/slotdb/internal/storage"
)

// ErrorKind classifies execution and resource errors.
type ErrorKind int

const (
	ValueParse ErrorKind = iota
	TypeMismatch
	PoolExhausted
	FileOpen
	NotImplemented
	Internal
)

func (k ErrorKind) String() string {
	switch k {
	case ValueParse:
		return "ValueParse"
	case TypeMismatch:
		return "TypeMismatch"
	case PoolExhausted:
		return "PoolExhausted"
	case FileOpen:
		return "FileOpen"
	case NotImplemented:
		return "NotImplemented"
	}
	return "Internal"
}

// Error is the terminating error an operator may carry after Next returns
// false.
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// wrapErr classifies a lower-layer error into an exec Error.
func wrapErr(err error) *Error {
	kind := Internal
	switch {
	case errors.Is(err, heap.ErrValueParse):
		kind = ValueParse
	case errors.Is(err, heap.ErrTypeMismatch):
		kind = TypeMismatch
	case errors.Is(err, bufferpool.ErrPoolExhausted):
		kind = PoolExhausted
	case errors.Is(err, storage.ErrFileOpen):
		kind = FileOpen
	}
	return &Error{Kind: kind, Msg: err.Error()}
}

// Iter is the operator contract. After Next returns ok=false, Err may carry
// the terminating error; a nil Err means normal completion.
type Iter interface {
	Open()
	Next() (record.TupleData, bool)
	Err() *Error
	Close()
}

// positioner is implemented by operators that can report the logical
// position of the tuple last returned by Next. Delete routes through it.
type positioner interface {
	LastPosition() int
}

// errIter is a plan that fails on first pull; used for statements that are
// recognized but not executable.
type errIter struct {
	err *Error
}

func (e *errIter) Open() {}

func (e *errIter) Next() (record.TupleData, bool) { return nil, false }

func (e *errIter) Err() *Error { return e.err }

func (e *errIter) Close() {}
