package storage

import (
	"errors"
	"os"
)

// PageSize is the OS page size; every page buffer, on-disk data page and
// slot-sum computation uses this value.
var PageSize = os.Getpagesize()

const (
	// FileHeaderSize is the used prefix of the reserved header page:
	// [page_sum: u32 LE, first_free_page: u32 LE]. The remainder of page 0
	// is reserved so data pages stay page-aligned.
	FileHeaderSize = 8

	// TableFileSuffix is appended to a table name to form its file name.
	TableFileSuffix = ".table"
)

const (
	FileMode0644 = 0o644
	FileMode0755 = 0o755
)

var (
	ErrShortPage  = errors.New("storage: buffer is not exactly one page")
	ErrFileOpen   = errors.New("storage: file open failure")
)
