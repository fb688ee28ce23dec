package analyses

import (
	"context"
	"errors"
	"sync"

	"resume-review/internal/documents"
	"resume-review/internal/pipeline"
	"resume-review/internal/records"
	"resume-review/internal/shared/auth"
)

// ErrArtifactMissing is returned when a record exists but one of its stored
// artifacts cannot be read.
var ErrArtifactMissing = errors.New("artifact missing")

// Service runs submissions through the pipeline and serves stored reviews.
// Each principal has its own processing gate, so one caller cannot block
// another.
type Service struct {
	Pipeline *pipeline.Controller
	Loader   *records.Loader
	Repo     *records.Repo

	mu    sync.Mutex
	gates map[string]*ownerGate
}

// ownerGate is dropped once no submission references it.
type ownerGate struct {
	gate *pipeline.Gate
	refs int
}

// NewService constructs a Service around a configured base controller. The
// base controller's Status, Navigator and Gate are ignored.
func NewService(base *pipeline.Controller, loader *records.Loader, repo *records.Repo) *Service {
	return &Service{Pipeline: base, Loader: loader, Repo: repo, gates: map[string]*ownerGate{}}
}

// Submit runs one submission for the principal in ctx. The run is detached
// from ctx cancellation: once started it finishes or fails at a stage.
func (s *Service) Submit(ctx context.Context, sub pipeline.Submission, status pipeline.StatusSink, nav pipeline.Navigator) pipeline.Outcome {
	ctrl := *s.Pipeline
	ctrl.Status = status
	ctrl.Navigator = nav
	owner := auth.OwnerFromContext(ctx)
	ctrl.Gate = s.acquire(owner)
	defer s.release(owner)
	return ctrl.Run(context.WithoutCancel(ctx), sub)
}

// Processing reports whether the principal in ctx has a run in progress.
func (s *Service) Processing(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.gates[auth.OwnerFromContext(ctx)]
	return ok && e.gate.Processing()
}

func (s *Service) acquire(owner string) *pipeline.Gate {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gates == nil {
		s.gates = map[string]*ownerGate{}
	}
	e, ok := s.gates[owner]
	if !ok {
		e = &ownerGate{gate: &pipeline.Gate{}}
		s.gates[owner] = e
	}
	e.refs++
	return e.gate
}

func (s *Service) release(owner string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.gates[owner]
	if !ok {
		return
	}
	if e.refs--; e.refs <= 0 {
		delete(s.gates, owner)
	}
}

// Get loads the review for id.
func (s *Service) Get(ctx context.Context, id string) (records.View, error) {
	return s.Loader.Load(ctx, id)
}

// List returns the caller's records.
func (s *Service) List(ctx context.Context) ([]records.Record, error) {
	return s.Repo.List(ctx)
}

// Document returns the stored résumé for id.
func (s *Service) Document(ctx context.Context, id string) (*documents.Blob, error) {
	view, err := s.Loader.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if view.Resume == nil {
		return nil, ErrArtifactMissing
	}
	return view.Resume, nil
}

// Image returns the stored preview image for id.
func (s *Service) Image(ctx context.Context, id string) (*documents.Blob, error) {
	view, err := s.Loader.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if view.Image == nil {
		return nil, ErrArtifactMissing
	}
	return view.Image, nil
}
