package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"resume-review/internal/shared/auth"
	"resume-review/internal/shared/storage/object"
)

// Service is the blob storage collaborator: it uploads files into the
// caller's namespace and reads them back by path.
type Service struct {
	Store object.ObjectStore
	// MaxBytes caps a single read; zero means unlimited.
	MaxBytes int64
}

// Upload stores every file and returns their paths. An empty file is rejected.
func (s *Service) Upload(ctx context.Context, files ...File) (*Upload, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	owner := auth.OwnerFromContext(ctx)

	out := &Upload{Files: make([]Stored, 0, len(files))}
	for _, f := range files {
		if f == nil || strings.TrimSpace(f.Name()) == "" {
			return nil, ErrNoFiles
		}
		stored, err := s.save(ctx, owner, f)
		if err != nil {
			return nil, err
		}
		out.Files = append(out.Files, stored)
	}
	out.Path = out.Files[0].Path
	return out, nil
}

func (s *Service) save(ctx context.Context, owner string, f File) (Stored, error) {
	rc, err := f.Open()
	if err != nil {
		return Stored{}, fmt.Errorf("open %s: %w", f.Name(), err)
	}
	defer rc.Close()

	key, size, mimeType, err := s.Store.Save(ctx, owner, f.Name(), rc)
	if err != nil {
		return Stored{}, fmt.Errorf("save %s: %w", f.Name(), err)
	}
	if size == 0 {
		return Stored{}, fmt.Errorf("save %s: %w", f.Name(), ErrEmpty)
	}
	if ct := strings.TrimSpace(f.ContentType()); ct != "" && mimeType == "application/octet-stream" {
		mimeType = ct
	}
	return Stored{
		Path:       key,
		FileName:   f.Name(),
		MimeType:   mimeType,
		SizeBytes:  size,
		UploadedAt: time.Now().UTC(),
	}, nil
}

// Read returns the full content stored at path.
func (s *Service) Read(ctx context.Context, path string) (*Blob, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrInvalidPath
	}
	rc, err := s.Store.Open(ctx, path)
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer rc.Close()

	var r io.Reader = rc
	if s.MaxBytes > 0 {
		r = io.LimitReader(rc, s.MaxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if s.MaxBytes > 0 && int64(len(data)) > s.MaxBytes {
		return nil, fmt.Errorf("read %s: exceeds %d bytes", path, s.MaxBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("read %s: %w", path, ErrEmpty)
	}
	return &Blob{Path: path, ContentType: contentTypeFor(path, data), Data: data}, nil
}

func contentTypeFor(path string, data []byte) string {
	_, mimeType, err := object.Sniff(bytes.NewReader(data), path)
	if err != nil {
		return "application/octet-stream"
	}
	return mimeType
}
