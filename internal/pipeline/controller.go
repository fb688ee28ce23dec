package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync/atomic"
	"time"

	"resume-review/internal/documents"
	"resume-review/internal/ident"
	"resume-review/internal/llm"
	"resume-review/internal/queue"
	"resume-review/internal/rasterize"
	"resume-review/internal/records"
	"resume-review/internal/shared/metrics"
	"resume-review/internal/shared/telemetry"
)

const (
	DefaultVerifyDelay   = 200 * time.Millisecond
	DefaultNavigateDelay = 500 * time.Millisecond

	publishTimeout = 5 * time.Second
)

// Uploader stores files and returns the path of the first one.
type Uploader interface {
	Upload(ctx context.Context, files ...documents.File) (*documents.Upload, error)
}

// Rasterizer renders the first page of a PDF.
type Rasterizer interface {
	Rasterize(ctx context.Context, file documents.File) rasterize.Result
}

// RecordStore writes records and re-reads them for verification.
type RecordStore interface {
	Save(ctx context.Context, rec records.Record) error
	Exists(ctx context.Context, id string) (bool, error)
}

// Update is one status change. Err is set on the failure update.
type Update struct {
	Stage   Stage
	Message string
	Err     error
}

// StatusSink observes status changes in order.
type StatusSink interface {
	Status(u Update)
}

// StatusFunc adapts a function to StatusSink.
type StatusFunc func(Update)

func (f StatusFunc) Status(u Update) { f(u) }

// Navigator sends the caller to a location once the run has completed.
type Navigator interface {
	Navigate(ctx context.Context, location string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, location string)

func (f NavigatorFunc) Navigate(ctx context.Context, location string) { f(ctx, location) }

// Submission is the input of one run. A nil File makes Run a no-op.
type Submission struct {
	File           documents.File
	CompanyName    string
	JobTitle       string
	JobDescription string
}

// Outcome is the result of one run.
type Outcome struct {
	// ID is set once a record id has been generated.
	ID       string
	Location string
	// Stage is the last stage entered: Navigating on success, the failing
	// stage otherwise, Idle for a no-op.
	Stage   Stage
	Message string
	Err     error
}

// Completed reports whether the run reached navigation.
func (o Outcome) Completed() bool { return o.Err == nil && o.Stage == Navigating }

// Gate is the processing flag. Controllers sharing a Gate never run at the
// same time.
type Gate struct {
	busy atomic.Bool
}

// Processing reports whether a run currently holds the gate.
func (g *Gate) Processing() bool { return g.busy.Load() }

// Controller drives a submission through every stage in order. Stages are
// never retried and nothing written is rolled back.
type Controller struct {
	Uploader   Uploader
	Rasterizer Rasterizer
	Records    RecordStore
	LLM        llm.Client
	Events     queue.Client

	Status    StatusSink
	Navigator Navigator
	Gate      *Gate

	NewID         func() string
	VerifyDelay   time.Duration
	NavigateDelay time.Duration
}

// NewController returns a Controller with its own gate and default delays.
func NewController(up Uploader, rz Rasterizer, recs RecordStore, client llm.Client) *Controller {
	return &Controller{
		Uploader:      up,
		Rasterizer:    rz,
		Records:       recs,
		LLM:           client,
		Gate:          &Gate{},
		NewID:         ident.NewID,
		VerifyDelay:   DefaultVerifyDelay,
		NavigateDelay: DefaultNavigateDelay,
	}
}

// Processing reports whether a run is in progress.
func (c *Controller) Processing() bool {
	return c.Gate != nil && c.Gate.Processing()
}

// Run executes the pipeline for sub. It returns ErrBusy in Outcome.Err when
// another run holds the gate.
func (c *Controller) Run(ctx context.Context, sub Submission) Outcome {
	if sub.File == nil {
		return Outcome{Stage: Idle}
	}
	if c.Gate == nil {
		c.Gate = &Gate{}
	}
	if !c.Gate.busy.CompareAndSwap(false, true) {
		return Outcome{Stage: Idle, Err: ErrBusy}
	}
	defer c.Gate.busy.Store(false)

	start := time.Now()
	metrics.IncPipelineStarted()

	r := &run{c: c, ctx: ctx, sub: sub}
	defer r.releaseImage()
	out := r.exec()

	metrics.ObservePipelineDurationMs(time.Since(start).Milliseconds())
	if out.Err != nil {
		metrics.IncPipelineFailed(out.Stage.String())
		telemetry.Error("pipeline.failed", map[string]any{
			"stage":      out.Stage.String(),
			"resume_id":  out.ID,
			"error":      out.Err,
			"request_id": telemetry.RequestID(ctx),
		})
	} else {
		metrics.IncPipelineCompleted()
		telemetry.Info("pipeline.completed", map[string]any{
			"resume_id":   out.ID,
			"duration_ms": time.Since(start).Milliseconds(),
			"request_id":  telemetry.RequestID(ctx),
		})
	}
	c.publish(ctx, out)
	return out
}

func (c *Controller) emit(u Update) {
	fields := map[string]any{"stage": u.Stage.String(), "message": u.Message}
	if u.Err != nil {
		fields["error"] = u.Err
	}
	telemetry.Info("pipeline.status", fields)
	if c.Status != nil {
		c.Status.Status(u)
	}
}

func (c *Controller) publish(ctx context.Context, out Outcome) {
	if c.Events == nil {
		return
	}
	outcome := queue.OutcomeCompleted
	if out.Err != nil {
		outcome = queue.OutcomeFailed
	}
	evt := queue.NewEvent(out.ID, out.Stage.String(), outcome)
	if out.Err != nil {
		evt.Error = out.Message
	}
	evt.RequestID = telemetry.RequestID(ctx)

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := c.Events.Send(pubCtx, evt); err != nil {
		telemetry.Error("events.publish_failed", map[string]any{"resume_id": out.ID, "error": err})
	}
}

// run carries the state of one execution.
type run struct {
	c   *Controller
	ctx context.Context
	sub Submission

	resumePath string
	image      *rasterize.Image
	imageFile  documents.File
	imagePath  string
	record     records.Record
	response   *llm.Response
	feedback   *records.Feedback
}

type stageFunc func(r *run) (kind error, err error)

var stageFuncs = map[Stage]stageFunc{
	UploadingFile:       (*run).uploadFile,
	ConvertingImage:     (*run).convertImage,
	UploadingImage:      (*run).uploadImage,
	PreparingRecord:     (*run).prepareRecord,
	SavingInitialRecord: (*run).saveInitialRecord,
	RequestingAnalysis:  (*run).requestAnalysis,
	ParsingFeedback:     (*run).parseFeedback,
	SavingFinalRecord:   (*run).saveFinalRecord,
	VerifyingRecord:     (*run).verifyRecord,
	Navigating:          (*run).navigate,
}

func (r *run) exec() Outcome {
	for stage := Next(Idle); stage != Idle; stage = Next(stage) {
		// The id is checked before announcing completion.
		if stage == Navigating && !ident.Valid(r.record.ID) {
			return r.fail(stage, ErrInvalidIdentifier, errors.New("empty or malformed id"))
		}
		r.c.emit(Update{Stage: stage, Message: stage.Status()})
		if kind, err := r.call(stage); kind != nil {
			return r.fail(stage, kind, err)
		}
	}
	return Outcome{ID: r.record.ID, Location: records.ReviewPath(r.record.ID), Stage: Navigating}
}

// call runs one stage. A panicking collaborator fails the stage with the
// stage's own kind.
func (r *run) call(stage Stage) (kind error, err error) {
	defer func() {
		if p := recover(); p != nil {
			kind = stage.Kind()
			err = fmt.Errorf("panic: %v", p)
			telemetry.Error("panic", map[string]any{
				"stage": stage.String(),
				"error": err,
				"stack": string(debug.Stack()),
			})
		}
	}()
	return stageFuncs[stage](r)
}

func (r *run) fail(stage Stage, kind, cause error) Outcome {
	msg := stage.FailureStatus(cause)
	err := &Error{Kind: kind, Stage: stage, Err: cause}
	r.c.emit(Update{Stage: stage, Message: msg, Err: err})
	return Outcome{ID: r.record.ID, Stage: stage, Message: msg, Err: err}
}

func (r *run) uploadFile() (error, error) {
	up, err := r.c.Uploader.Upload(r.ctx, r.sub.File)
	if err != nil {
		return ErrUpload, err
	}
	if up == nil || up.Path == "" {
		return ErrUpload, errors.New("upload returned no path")
	}
	r.resumePath = up.Path
	return nil, nil
}

func (r *run) convertImage() (error, error) {
	res := r.c.Rasterizer.Rasterize(r.ctx, r.sub.File)
	if res.Err != nil || res.File == nil {
		if errors.Is(res.Err, rasterize.ErrEnvironmentUnavailable) {
			return ErrEnvironmentUnavailable, res.Err
		}
		return ErrRasterization, res.Err
	}
	r.image = res.Image
	r.imageFile = res.File
	return nil, nil
}

func (r *run) uploadImage() (error, error) {
	defer r.releaseImage()
	up, err := r.c.Uploader.Upload(r.ctx, r.imageFile)
	if err != nil {
		return ErrUpload, err
	}
	if up == nil || up.Path == "" {
		return ErrUpload, errors.New("upload returned no path")
	}
	r.imagePath = up.Path
	return nil, nil
}

func (r *run) prepareRecord() (error, error) {
	newID := r.c.NewID
	if newID == nil {
		newID = ident.NewID
	}
	id := newID()
	if strings.TrimSpace(id) == "" {
		return ErrInvalidIdentifier, errors.New("generated id is empty")
	}
	// Caller text is stored as given.
	r.record = records.Record{
		ID:             id,
		ResumePath:     r.resumePath,
		ImagePath:      r.imagePath,
		CompanyName:    r.sub.CompanyName,
		JobTitle:       r.sub.JobTitle,
		JobDescription: r.sub.JobDescription,
	}
	if _, err := records.Encode(r.record); err != nil {
		return ErrPersistenceWrite, err
	}
	return nil, nil
}

func (r *run) saveInitialRecord() (error, error) {
	if err := r.c.Records.Save(r.ctx, r.record); err != nil {
		return ErrPersistenceWrite, err
	}
	return nil, nil
}

func (r *run) requestAnalysis() (error, error) {
	instructions := llm.PrepareInstructions(r.record.JobTitle, r.record.JobDescription)
	resp, err := r.c.LLM.Feedback(r.ctx, r.resumePath, instructions)
	if err != nil {
		return ErrInference, err
	}
	if resp == nil {
		return ErrInference, llm.ErrEmptyResponse
	}
	r.response = resp
	return nil, nil
}

func (r *run) parseFeedback() (error, error) {
	fb, err := records.ParseFeedback(r.response.Message.Content.Text())
	if err != nil {
		return ErrFeedbackParse, err
	}
	r.feedback = fb
	return nil, nil
}

func (r *run) saveFinalRecord() (error, error) {
	if err := r.c.Records.Save(r.ctx, r.record.WithFeedback(r.feedback)); err != nil {
		return ErrPersistenceWrite, err
	}
	return nil, nil
}

func (r *run) verifyRecord() (error, error) {
	if err := sleep(r.ctx, r.c.VerifyDelay); err != nil {
		return ErrPersistenceVerification, err
	}
	ok, err := r.c.Records.Exists(r.ctx, r.record.ID)
	if err != nil {
		return ErrPersistenceVerification, err
	}
	if !ok {
		return ErrPersistenceVerification, errors.New("record not readable after save")
	}
	return nil, nil
}

func (r *run) navigate() (error, error) {
	// The record is complete; a cancelled caller only shortens the delay.
	_ = sleep(r.ctx, r.c.NavigateDelay)
	if r.c.Navigator != nil {
		r.c.Navigator.Navigate(r.ctx, records.ReviewPath(r.record.ID))
	}
	return nil, nil
}

func (r *run) releaseImage() {
	if r.image != nil {
		r.image.Release()
		r.image = nil
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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
