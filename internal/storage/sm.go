package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tuanpm/slotdb/pkg/bx"
)

// StorageManager maps a logical page index onto a byte range of a table
// file and performs the raw page IO. Data page i lives at offset
// PageSize*(i+1); page 0 is the reserved header page.
type StorageManager struct{}

func NewStorageManager() *StorageManager {
	return &StorageManager{}
}

// OpenTableFile opens (creating if absent) "<dir>/<name>.table".
func (sm *StorageManager) OpenTableFile(dir, name string) (*os.File, error) {
	if err := os.MkdirAll(dir, FileMode0755); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFileOpen, dir, err)
	}
	path := filepath.Join(dir, name+TableFileSuffix)
	// RDWR | CREATE (no truncate)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, FileMode0644)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFileOpen, path, err)
	}
	return f, nil
}

func (sm *StorageManager) dataOffset(pageIndex uint32) int64 {
	return int64(PageSize) * int64(pageIndex+1)
}

// ReadPage reads exactly one data page into dst. Reads past EOF are
// zero-filled so pages allocated but never flushed come back empty and are
// lazily initialized by higher layers.
func (sm *StorageManager) ReadPage(f *os.File, pageIndex uint32, dst []byte) error {
	if len(dst) != PageSize {
		return ErrShortPage
	}
	n, err := f.ReadAt(dst, sm.dataOffset(pageIndex))
	if err != nil && err != io.EOF {
		return err
	}
	for i := n; i < PageSize; i++ {
		dst[i] = 0
	}
	return nil
}

// WritePage writes exactly one data page from src.
func (sm *StorageManager) WritePage(f *os.File, pageIndex uint32, src []byte) error {
	if len(src) != PageSize {
		return ErrShortPage
	}
	n, err := f.WriteAt(src, sm.dataOffset(pageIndex))
	if err != nil {
		return err
	}
	if n != PageSize {
		return io.ErrShortWrite
	}
	return nil
}

// ReadFileHeader reads [page_sum, first_free_page] from page 0. A file
// shorter than the header (freshly created) reads as an empty table.
func (sm *StorageManager) ReadFileHeader(f *os.File) (pageSum, firstFreePage uint32, err error) {
	var hdr [FileHeaderSize]byte
	n, err := f.ReadAt(hdr[:], 0)
	if err != nil && err != io.EOF {
		return 0, 0, err
	}
	if n < FileHeaderSize {
		return 0, 0, nil
	}
	return bx.U32At(hdr[:], 0), bx.U32At(hdr[:], 4), nil
}

// WriteFileHeader persists [page_sum, first_free_page] at offset 0.
func (sm *StorageManager) WriteFileHeader(f *os.File, pageSum, firstFreePage uint32) error {
	var hdr [FileHeaderSize]byte
	bx.PutU32At(hdr[:], 0, pageSum)
	bx.PutU32At(hdr[:], 4, firstFreePage)
	_, err := f.WriteAt(hdr[:], 0)
	return err
}
