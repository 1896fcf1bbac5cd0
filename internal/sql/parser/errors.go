package parser

import (
	"fmt"

	"github.com/tuanpm/slotdb/internal/sql/lexer"
)

// ErrorKind classifies compile errors raised after lexing: parse errors and
// the semantic errors the checker reports through the same list shape.
type ErrorKind int

const (
	ParseUnexpectedToken ErrorKind = iota
	ParseMissingToken
	ParseIllFormed
	SemUnknownTable
	SemUnknownColumn
	SemTypeMismatch
	SemAmbiguousColumn
	SemDuplicateTable
	SemDuplicateColumn
	SemNotNullable
	SemArityMismatch
)

func (k ErrorKind) String() string {
	switch k {
	case ParseUnexpectedToken:
		return "ParseUnexpectedToken"
	case ParseMissingToken:
		return "ParseMissingToken"
	case ParseIllFormed:
		return "ParseIllFormed"
	case SemUnknownTable:
		return "SemUnknownTable"
	case SemUnknownColumn:
		return "SemUnknownColumn"
	case SemTypeMismatch:
		return "SemTypeMismatch"
	case SemAmbiguousColumn:
		return "SemAmbiguousColumn"
	case SemDuplicateTable:
		return "SemDuplicateTable"
	case SemDuplicateColumn:
		return "SemDuplicateColumn"
	case SemNotNullable:
		return "SemNotNullable"
	case SemArityMismatch:
		return "SemArityMismatch"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// CompileError is one positioned compile error. A Token of type
// lexer.TokenUnknown with column 0 is synthetic (e.g. unexpected end of
// statement) and is reported without position.
type CompileError struct {
	Kind  ErrorKind
	Token lexer.Token
	Msg   string
}

// ErrorList collects compile errors for multi-error reporting.
type ErrorList []CompileError

func (l ErrorList) Error() string {
	if len(l) == 0 {
		return "no errors"
	}
	return l[0].Msg
}
