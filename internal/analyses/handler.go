package analyses

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-review/internal/documents"
	"resume-review/internal/pipeline"
	"resume-review/internal/records"
	"resume-review/internal/shared/server/middleware"
	"resume-review/internal/shared/server/respond"
	"resume-review/internal/shared/telemetry"
)

// DefaultLoginPath is where unauthenticated readers are sent.
const DefaultLoginPath = "/api/v1/auth/google/start"

// Handler wires HTTP handlers to the analyses service.
type Handler struct {
	Svc            *Service
	MaxUploadBytes int64
	LoginPath      string
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, maxUploadBytes int64) *Handler {
	return &Handler{Svc: svc, MaxUploadBytes: maxUploadBytes, LoginPath: DefaultLoginPath}
}

// RegisterRoutes attaches résumé routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/resumes", middleware.RequireIdentity(), h.submit)
	rg.GET("/resumes", middleware.RequireIdentity(), h.list)
	rg.GET("/resumes/:id", h.get)
	rg.GET("/resumes/:id/document", h.document)
	rg.GET("/resumes/:id/image", h.image)
}

type statusEvent struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

type navigateEvent struct {
	ID       string `json:"id"`
	Location string `json:"location"`
}

type errorEvent struct {
	Kind    string `json:"kind"`
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// eventStream turns pipeline updates into server-sent events. Headers are
// written on the first event so a rejected run can still answer with a
// plain error status.
type eventStream struct {
	c        *gin.Context
	opened   bool
	location string
}

func (s *eventStream) Status(u pipeline.Update) {
	if u.Err != nil {
		// The failure is sent as an error event once the run returns.
		return
	}
	s.send("status", statusEvent{Stage: u.Stage.String(), Message: u.Message})
}

func (s *eventStream) Navigate(_ context.Context, location string) {
	s.location = location
}

func (s *eventStream) send(event string, data any) {
	if !s.opened {
		s.opened = true
		h := s.c.Writer.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		h.Set("X-Accel-Buffering", "no")
		s.c.Status(http.StatusOK)
	}
	s.c.SSEvent(event, data)
	s.c.Writer.Flush()
}

func (h *Handler) submit(c *gin.Context) {
	if h.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)
	}
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, http.ErrMissingFile):
			// Nothing to analyze.
			c.Status(http.StatusNoContent)
		case errors.As(err, &tooLarge):
			respond.Error(c, http.StatusRequestEntityTooLarge, respond.CodeValidation, "file is too large", nil)
		default:
			respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "multipart form with a file field is required", nil)
		}
		return
	}

	sub := pipeline.Submission{
		File:           documents.FormFile(header),
		CompanyName:    c.PostForm("company-name"),
		JobTitle:       c.PostForm("job-title"),
		JobDescription: c.PostForm("job-description"),
	}
	stream := &eventStream{c: c}
	out := h.Svc.Submit(c.Request.Context(), sub, stream, stream)
	if errors.Is(out.Err, pipeline.ErrBusy) {
		respond.Error(c, http.StatusConflict, respond.CodeConflict, "an analysis is already in progress", nil)
		return
	}

	c.Set("resumeId", out.ID)
	c.Set("pipelineStage", out.Stage.String())
	if out.Err != nil {
		stream.send("error", errorEvent{Kind: KindName(out.Err), Stage: out.Stage.String(), Message: out.Message})
		return
	}
	location := stream.location
	if location == "" {
		location = out.Location
	}
	stream.send("navigate", navigateEvent{ID: out.ID, Location: location})
}

type listItem struct {
	ID           string `json:"id"`
	CompanyName  string `json:"companyName,omitempty"`
	JobTitle     string `json:"jobTitle,omitempty"`
	Pending      bool   `json:"pending"`
	OverallScore *int   `json:"overallScore,omitempty"`
	Location     string `json:"location"`
}

func (h *Handler) list(c *gin.Context) {
	recs, err := h.Svc.List(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, respond.CodeStorage, "failed to list resumes", nil)
		return
	}
	out := make([]listItem, 0, len(recs))
	for _, rec := range recs {
		item := listItem{
			ID:          rec.ID,
			CompanyName: rec.CompanyName,
			JobTitle:    rec.JobTitle,
			Pending:     rec.Pending(),
			Location:    records.ReviewPath(rec.ID),
		}
		if rec.Feedback != nil {
			score := rec.Feedback.OverallScore
			item.OverallScore = &score
		}
		out = append(out, item)
	}
	respond.OK(c, gin.H{"resumes": out})
}

func (h *Handler) get(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	c.Set("resumeId", id)
	view, err := h.Svc.Get(c.Request.Context(), id)
	if err != nil {
		h.loadError(c, err)
		return
	}

	resp := gin.H{
		"record":  view.Record,
		"pending": view.Record.Pending(),
		"missing": partNames(view.Missing),
	}
	base := "/api/v1/resumes/" + id
	if view.Resume != nil {
		resp["resumeUrl"] = base + "/document"
	}
	if view.Image != nil {
		resp["imageUrl"] = base + "/image"
	}
	respond.OK(c, resp)
}

func (h *Handler) document(c *gin.Context) {
	h.serveBlob(c, h.Svc.Document, "application/pdf")
}

func (h *Handler) image(c *gin.Context) {
	h.serveBlob(c, h.Svc.Image, "image/png")
}

func (h *Handler) serveBlob(c *gin.Context, read func(context.Context, string) (*documents.Blob, error), fallbackType string) {
	id := strings.TrimSpace(c.Param("id"))
	c.Set("resumeId", id)
	blob, err := read(c.Request.Context(), id)
	if err != nil {
		h.loadError(c, err)
		return
	}
	respond.Blob(c, blob.ContentType, fallbackType, blob.Data)
}

func (h *Handler) loadError(c *gin.Context, err error) {
	var login *records.LoginRequiredError
	switch {
	case errors.As(err, &login):
		loginPath := h.LoginPath
		if loginPath == "" {
			loginPath = DefaultLoginPath
		}
		respond.Error(c, http.StatusUnauthorized, respond.CodeLoginRequired, "login required", gin.H{
			"login": loginPath + "?next=" + login.Next,
			"next":  login.Next,
		})
	case errors.Is(err, records.ErrNotFound):
		respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "resume not found", nil)
	case errors.Is(err, ErrArtifactMissing):
		respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "file not available", nil)
	default:
		telemetry.Error("analyses.load_failed", map[string]any{"error": err})
		respond.Error(c, http.StatusInternalServerError, respond.CodeStorage, "failed to load resume", nil)
	}
}

func partNames(parts []records.Part) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, string(p))
	}
	return out
}

var kindNames = []struct {
	err  error
	name string
}{
	{pipeline.ErrEnvironmentUnavailable, "environment_unavailable"},
	{pipeline.ErrRasterization, "rasterization"},
	{pipeline.ErrUpload, "upload"},
	{pipeline.ErrPersistenceWrite, "persistence_write"},
	{pipeline.ErrInference, "inference"},
	{pipeline.ErrFeedbackParse, "feedback_parse"},
	{pipeline.ErrPersistenceVerification, "persistence_verification"},
	{pipeline.ErrInvalidIdentifier, "invalid_identifier"},
}

// KindName returns the wire name of a pipeline failure kind.
func KindName(err error) string {
	for _, k := range kindNames {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "unknown"
}
