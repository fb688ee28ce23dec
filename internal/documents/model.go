package documents

import (
	"bytes"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"time"
)

// File is a named, re-readable binary document.
type File interface {
	Name() string
	ContentType() string
	Open() (io.ReadCloser, error)
}

// Stored describes one object written by Upload.
type Stored struct {
	Path       string
	FileName   string
	MimeType   string
	SizeBytes  int64
	UploadedAt time.Time
}

// Upload is the result of a successful upload call. Path is the first file's path.
type Upload struct {
	Path  string
	Files []Stored
}

// Blob is the content read back from storage.
type Blob struct {
	Path        string
	ContentType string
	Data        []byte
}

type memFile struct {
	name        string
	contentType string
	data        []byte
}

// NewFile wraps in-memory bytes as a File.
func NewFile(name, contentType string, data []byte) File {
	return &memFile{name: name, contentType: contentType, data: data}
}

func (f *memFile) Name() string        { return f.name }
func (f *memFile) ContentType() string { return f.contentType }
func (f *memFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

type diskFile struct {
	path        string
	contentType string
}

// DiskFile exposes a file on the local filesystem as a File.
func DiskFile(path, contentType string) File {
	return &diskFile{path: path, contentType: contentType}
}

func (f *diskFile) Name() string                 { return filepath.Base(f.path) }
func (f *diskFile) ContentType() string          { return f.contentType }
func (f *diskFile) Open() (io.ReadCloser, error) { return os.Open(f.path) }

type formFile struct {
	header *multipart.FileHeader
}

// FormFile adapts a multipart upload to a File.
func FormFile(header *multipart.FileHeader) File {
	return &formFile{header: header}
}

func (f *formFile) Name() string                 { return f.header.Filename }
func (f *formFile) ContentType() string          { return f.header.Header.Get("Content-Type") }
func (f *formFile) Open() (io.ReadCloser, error) { return f.header.Open() }
