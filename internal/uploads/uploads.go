// Package uploads stores files attached to records. Each stored file gets
// a generated name so client-supplied filenames never touch the
// filesystem; the original extension is kept so served files keep their
// type.
package uploads

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Storage persists uploaded files and removes the ones a record no longer
// references.
type Storage interface {
	// Save writes the file and returns the stored filename.
	Save(header *multipart.FileHeader) (string, error)
	// Remove deletes a stored file. Removing a file that does not exist
	// is not an error.
	Remove(filename string) error
}

// DiskStorage stores uploads under a single directory.
type DiskStorage struct {
	dir     string
	maxSize int64
}

// NewDiskStorage creates the upload directory if needed.
func NewDiskStorage(dir string, maxSize int64) (*DiskStorage, error) {
	if maxSize <= 0 {
		maxSize = 10 << 20
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &DiskStorage{dir: dir, maxSize: maxSize}, nil
}

// Dir returns the directory files are stored in.
func (s *DiskStorage) Dir() string { return s.dir }

func (s *DiskStorage) Save(header *multipart.FileHeader) (string, error) {
	if header.Size > s.maxSize {
		return "", fmt.Errorf("file %s exceeds maximum size of %d bytes", header.Filename, s.maxSize)
	}

	src, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	filename := uuid.NewString() + filepath.Ext(header.Filename)
	dst, err := os.Create(filepath.Join(s.dir, filename))
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("write upload: %w", err)
	}

	return filename, nil
}

func (s *DiskStorage) Remove(filename string) error {
	// Stored names are generated, so a path separator means the name did
	// not come from Save.
	if filename == "" || filepath.Base(filename) != filename {
		return fmt.Errorf("invalid stored filename %q", filename)
	}
	err := os.Remove(filepath.Join(s.dir, filename))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
