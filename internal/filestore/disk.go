// Package filestore persists uploaded image blobs under opaque
// filenames. The rest of the system treats the returned reference as an
// opaque string.
package filestore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

var ErrUnsupportedType = errors.New("unsupported content type")
var ErrTooLarge = errors.New("file exceeds size limit")

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

type Store interface {
	Save(contentType string, r io.Reader) (string, error)
	Open(filename string) (io.ReadCloser, string, error)
	Remove(filename string) error
}

type Disk struct {
	dir      string
	maxBytes int64
}

func NewDisk(dir string, maxBytes int64) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir upload dir: %w", err)
	}
	return &Disk{dir: dir, maxBytes: maxBytes}, nil
}

// Save streams the upload to disk and returns the opaque filename.
func (d *Disk) Save(contentType string, r io.Reader) (string, error) {
	ext, ok := extensions[contentType]
	if !ok {
		return "", ErrUnsupportedType
	}
	name := uuid.NewString() + ext
	path := filepath.Join(d.dir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", err
	}
	n, err := io.Copy(f, io.LimitReader(r, d.maxBytes+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", err
	}
	if n > d.maxBytes {
		_ = os.Remove(path)
		return "", ErrTooLarge
	}
	return name, nil
}

// Open returns the blob and its content type, derived from the stored
// extension.
func (d *Disk) Open(filename string) (io.ReadCloser, string, error) {
	clean := filepath.Base(filename)
	f, err := os.Open(filepath.Join(d.dir, clean))
	if err != nil {
		return nil, "", err
	}
	contentType := "application/octet-stream"
	for ct, ext := range extensions {
		if filepath.Ext(clean) == ext {
			contentType = ct
			break
		}
	}
	return f, contentType, nil
}

func (d *Disk) Remove(filename string) error {
	return os.Remove(filepath.Join(d.dir, filepath.Base(filename)))
}
