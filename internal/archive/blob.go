package archive

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Blob is a packed archive backed by a temporary file. It is read once by
// the upload and must be closed, which removes the file. Close is safe to
// call more than once.
type Blob struct {
	file   *os.File
	path   string
	size   int64
	closed bool
}

var _ io.ReadSeekCloser = (*Blob)(nil)

// OpenBlob takes ownership of the file at path: the returned Blob removes it
// on Close. If opening fails the file is removed immediately.
func OpenBlob(path string) (*Blob, error) {
	f, err := os.Open(path)
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("opening archive %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("stat archive %s: %w", path, err)
	}
	return &Blob{file: f, path: path, size: info.Size()}, nil
}

func (b *Blob) Read(p []byte) (int, error) {
	return b.file.Read(p)
}

func (b *Blob) Seek(offset int64, whence int) (int64, error) {
	return b.file.Seek(offset, whence)
}

// Size returns the archive size in bytes.
func (b *Blob) Size() int64 { return b.size }

// Path returns the location of the temporary file.
func (b *Blob) Path() string { return b.path }

// Close releases the file handle and deletes the temporary file.
func (b *Blob) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true

	closeErr := b.file.Close()
	removeErr := os.Remove(b.path)
	if errors.Is(removeErr, os.ErrNotExist) {
		removeErr = nil
	}
	return errors.Join(closeErr, removeErr)
}
