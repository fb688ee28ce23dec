package records

import (
	"context"
	"errors"
	"net/url"
	"time"

	"resume-review/internal/documents"
	"resume-review/internal/shared/telemetry"
)

// DefaultSettleDelay is waited before the first read of a record.
const DefaultSettleDelay = 200 * time.Millisecond

// Authenticator answers whether the caller is signed in.
type Authenticator interface {
	IsAuthenticated(ctx context.Context) bool
}

// BlobReader reads stored documents by path.
type BlobReader interface {
	Read(ctx context.Context, path string) (*documents.Blob, error)
}

// Part names a piece of a View that may fail to load.
type Part string

const (
	PartResume Part = "resume"
	PartImage  Part = "image"
)

// View is a loaded record with its stored artifacts. Missing lists the parts
// that could not be read; loading stops at the first missing part.
type View struct {
	Record  Record
	Resume  *documents.Blob
	Image   *documents.Blob
	Missing []Part
}

// Complete reports whether both artifacts were loaded.
func (v View) Complete() bool { return len(v.Missing) == 0 }

// Loader is the read path for a single review.
type Loader struct {
	Auth        Authenticator
	Repo        *Repo
	Blobs       BlobReader
	SettleDelay time.Duration
}

// ReviewPath returns the review location for id.
func ReviewPath(id string) string {
	return "/resume/" + url.PathEscape(id)
}

// Load fetches the record for id, then its résumé and image blobs in order.
// Blob failures are logged and yield a partial View without an error.
func (l *Loader) Load(ctx context.Context, id string) (View, error) {
	if l.Auth == nil || !l.Auth.IsAuthenticated(ctx) {
		return View{}, &LoginRequiredError{Next: ReviewPath(id)}
	}
	if err := sleep(ctx, l.SettleDelay); err != nil {
		return View{}, err
	}

	rec, err := l.Repo.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			telemetry.Error("records.load_failed", map[string]any{"id": id, "error": err})
		}
		return View{}, err
	}

	view := View{Record: rec}
	resume, err := l.Blobs.Read(ctx, rec.ResumePath)
	if err != nil {
		telemetry.Error("records.load_resume_failed", map[string]any{"id": id, "path": rec.ResumePath, "error": err})
		view.Missing = []Part{PartResume, PartImage}
		return view, nil
	}
	view.Resume = resume

	image, err := l.Blobs.Read(ctx, rec.ImagePath)
	if err != nil {
		telemetry.Error("records.load_image_failed", map[string]any{"id": id, "path": rec.ImagePath, "error": err})
		view.Missing = []Part{PartImage}
		return view, nil
	}
	view.Image = image

	telemetry.Info("records.load_complete", map[string]any{"id": id, "pending": rec.Pending()})
	return view, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
