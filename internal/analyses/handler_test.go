package analyses

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"resume-review/internal/documents"
	"resume-review/internal/llm"
	"resume-review/internal/pipeline"
	"resume-review/internal/rasterize"
	"resume-review/internal/records"
	"resume-review/internal/shared/auth"
	"resume-review/internal/shared/server/middleware"
	"resume-review/internal/shared/storage/kv"
	local "resume-review/internal/shared/storage/object/local"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDRpreview")

type stubRasterizer struct {
	err error
}

func (s stubRasterizer) Rasterize(_ context.Context, f documents.File) rasterize.Result {
	if s.err != nil {
		return rasterize.Result{Err: s.err}
	}
	return rasterize.Result{File: documents.NewFile(rasterize.PNGName(f.Name()), "image/png", pngBytes)}
}

type blockingLLM struct {
	release chan struct{}
}

func (b blockingLLM) Feedback(ctx context.Context, path, instructions string) (*llm.Response, error) {
	<-b.release
	return llm.PlaceholderClient{}.Feedback(ctx, path, instructions)
}

func (s *Service) gateCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.gates)
}

type testEnv struct {
	router *gin.Engine
	svc    *Service
}

func setup(t *testing.T, rz pipeline.Rasterizer, client llm.Client, allowGuests bool) testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	docs := &documents.Service{Store: local.New(t.TempDir())}
	repo := records.NewRepo(kv.NewMemoryStore())
	ctrl := pipeline.NewController(docs, rz, repo, client)
	ctrl.VerifyDelay = 0
	ctrl.NavigateDelay = 0
	loader := &records.Loader{Auth: auth.Gate{AllowGuests: allowGuests}, Repo: repo, Blobs: docs}
	svc := NewService(ctrl, loader, repo)

	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Auth("dev"))
	NewHandler(svc, 1<<20).RegisterRoutes(router.Group("/api/v1"))
	return testEnv{router: router, svc: svc}
}

func multipartBody(t *testing.T, withFile bool) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := map[string]string{
		"company-name":    "Acme",
		"job-title":       "Backend Engineer",
		"job-description": "Go services",
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if withFile {
		part, err := w.CreateFormFile("file", "cv.pdf")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write([]byte("%PDF-1.4\nresume body\n%%EOF")); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func submitRequest(t *testing.T, guest string, withFile bool) *http.Request {
	t.Helper()
	body, contentType := multipartBody(t, withFile)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/resumes", body)
	req.Header.Set("Content-Type", contentType)
	if guest != "" {
		req.Header.Set("X-Guest-Id", guest)
	}
	return req
}

type sseEvent struct {
	Name string
	Data map[string]any
}

func parseEvents(t *testing.T, body string) []sseEvent {
	t.Helper()
	var out []sseEvent
	for _, block := range strings.Split(body, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		var evt sseEvent
		for _, line := range strings.Split(block, "\n") {
			switch {
			case strings.HasPrefix(line, "event:"):
				evt.Name = strings.TrimPrefix(line, "event:")
			case strings.HasPrefix(line, "data:"):
				if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data:")), &evt.Data); err != nil {
					t.Fatalf("decode event data %q: %v", line, err)
				}
			}
		}
		out = append(out, evt)
	}
	return out
}

func get(env testEnv, path, guest string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if guest != "" {
		req.Header.Set("X-Guest-Id", guest)
	}
	resp := httptest.NewRecorder()
	env.router.ServeHTTP(resp, req)
	return resp
}

func TestSubmitStreamsStatusesAndNavigates(t *testing.T) {
	env := setup(t, stubRasterizer{}, llm.PlaceholderClient{}, true)

	resp := httptest.NewRecorder()
	env.router.ServeHTTP(resp, submitRequest(t, "g1", true))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if ct := resp.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("expected event stream, got %q", ct)
	}
	events := parseEvents(t, resp.Body.String())
	if len(events) != 11 {
		t.Fatalf("expected 10 status events and a navigate event, got %d: %s", len(events), resp.Body.String())
	}
	if events[0].Name != "status" || events[0].Data["message"] != "Uploading the file..." {
		t.Fatalf("unexpected first event: %+v", events[0])
	}
	if events[9].Data["message"] != "Analysis complete, redirecting..." {
		t.Fatalf("unexpected last status: %+v", events[9])
	}
	nav := events[10]
	if nav.Name != "navigate" {
		t.Fatalf("expected navigate event, got %+v", nav)
	}
	id, _ := nav.Data["id"].(string)
	if id == "" || nav.Data["location"] != "/resume/"+id {
		t.Fatalf("unexpected navigate payload: %+v", nav.Data)
	}

	view := get(env, "/api/v1/resumes/"+id, "g1")
	if view.Code != http.StatusOK {
		t.Fatalf("expected 200 from read path, got %d: %s", view.Code, view.Body.String())
	}
	var payload struct {
		Record    records.Record `json:"record"`
		Pending   bool           `json:"pending"`
		Missing   []string       `json:"missing"`
		ResumeURL string         `json:"resumeUrl"`
		ImageURL  string         `json:"imageUrl"`
	}
	if err := json.Unmarshal(view.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if payload.Record.CompanyName != "Acme" || payload.Record.Feedback == nil || payload.Pending {
		t.Fatalf("unexpected record: %+v", payload.Record)
	}
	if len(payload.Missing) != 0 || payload.ImageURL == "" || payload.ResumeURL == "" {
		t.Fatalf("expected both artifacts: %+v", payload)
	}

	img := get(env, payload.ImageURL, "g1")
	if img.Code != http.StatusOK || !bytes.Equal(img.Body.Bytes(), pngBytes) {
		t.Fatalf("unexpected image response: %d", img.Code)
	}
	doc := get(env, payload.ResumeURL, "g1")
	if doc.Code != http.StatusOK || !strings.HasPrefix(doc.Body.String(), "%PDF-") {
		t.Fatalf("unexpected document response: %d", doc.Code)
	}

	list := get(env, "/api/v1/resumes", "g1")
	if list.Code != http.StatusOK || !strings.Contains(list.Body.String(), id) {
		t.Fatalf("expected record in list: %d %s", list.Code, list.Body.String())
	}
	other := get(env, "/api/v1/resumes", "g2")
	if strings.Contains(other.Body.String(), id) {
		t.Fatalf("records leaked across principals: %s", other.Body.String())
	}
}

func TestSubmitWithoutFileIsNoop(t *testing.T) {
	env := setup(t, stubRasterizer{}, llm.PlaceholderClient{}, true)

	resp := httptest.NewRecorder()
	env.router.ServeHTTP(resp, submitRequest(t, "g1", false))

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
	if resp.Body.Len() != 0 {
		t.Fatalf("expected empty body, got %q", resp.Body.String())
	}
}

func TestSubmitRequiresIdentity(t *testing.T) {
	env := setup(t, stubRasterizer{}, llm.PlaceholderClient{}, true)

	resp := httptest.NewRecorder()
	env.router.ServeHTTP(resp, submitRequest(t, "", true))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestSubmitReportsStageFailure(t *testing.T) {
	cause := &rasterize.StepError{Step: rasterize.StepParse, Err: errors.New("malformed xref")}
	env := setup(t, stubRasterizer{err: cause}, llm.PlaceholderClient{}, true)

	resp := httptest.NewRecorder()
	env.router.ServeHTTP(resp, submitRequest(t, "g1", true))

	events := parseEvents(t, resp.Body.String())
	if len(events) != 3 {
		t.Fatalf("expected two statuses and an error, got %d: %s", len(events), resp.Body.String())
	}
	last := events[2]
	if last.Name != "error" || last.Data["kind"] != "rasterization" || last.Data["stage"] != "ConvertingImage" {
		t.Fatalf("unexpected error event: %+v", last)
	}
	want := "Error: failed to convert PDF to image - failed to load PDF document: malformed xref"
	if last.Data["message"] != want {
		t.Fatalf("expected %q, got %v", want, last.Data["message"])
	}
	if env.svc.Processing(auth.WithIdentity(context.Background(), auth.Identity{UserID: "guest:g1", Guest: true})) {
		t.Fatalf("processing flag left set after failure")
	}
}

func TestSubmitRejectsConcurrentRunForSamePrincipal(t *testing.T) {
	release := make(chan struct{})
	env := setup(t, stubRasterizer{}, blockingLLM{release: release}, true)
	g1 := auth.WithIdentity(context.Background(), auth.Identity{UserID: "guest:g1", Guest: true})

	firstReq := submitRequest(t, "g1", true)
	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		resp := httptest.NewRecorder()
		env.router.ServeHTTP(resp, firstReq)
		done <- resp
	}()

	deadline := time.Now().Add(2 * time.Second)
	for !env.svc.Processing(g1) {
		if time.Now().After(deadline) {
			t.Fatalf("first run never started")
		}
		time.Sleep(5 * time.Millisecond)
	}

	second := httptest.NewRecorder()
	env.router.ServeHTTP(second, submitRequest(t, "g1", true))
	if second.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", second.Code)
	}

	close(release)
	first := <-done
	events := parseEvents(t, first.Body.String())
	if events[len(events)-1].Name != "navigate" {
		t.Fatalf("expected first run to complete, got %s", first.Body.String())
	}
	if n := env.svc.gateCount(); n != 0 {
		t.Fatalf("expected gate entries released after both runs, %d left", n)
	}
}

func TestSubmitDropsGateEntriesForFinishedPrincipals(t *testing.T) {
	env := setup(t, stubRasterizer{}, llm.PlaceholderClient{}, true)

	for i := 0; i < 5; i++ {
		resp := httptest.NewRecorder()
		env.router.ServeHTTP(resp, submitRequest(t, fmt.Sprintf("g%d", i), true))
		if resp.Code != http.StatusOK {
			t.Fatalf("submit %d: expected 200, got %d", i, resp.Code)
		}
	}
	failing := setup(t, stubRasterizer{err: errors.New("bad pdf")}, llm.PlaceholderClient{}, true)
	resp := httptest.NewRecorder()
	failing.router.ServeHTTP(resp, submitRequest(t, "g9", true))

	if n := env.svc.gateCount(); n != 0 {
		t.Fatalf("expected no gate entries after completed runs, %d left", n)
	}
	if n := failing.svc.gateCount(); n != 0 {
		t.Fatalf("expected no gate entries after a failed run, %d left", n)
	}
	g0 := auth.WithIdentity(context.Background(), auth.Identity{UserID: "guest:g0", Guest: true})
	if env.svc.Processing(g0) {
		t.Fatalf("idle principal reported as processing")
	}
	if n := env.svc.gateCount(); n != 0 {
		t.Fatalf("Processing must not create gate entries, %d present", n)
	}
}

func TestGetRequiresLogin(t *testing.T) {
	env := setup(t, stubRasterizer{}, llm.PlaceholderClient{}, false)

	for _, guest := range []string{"", "g1"} {
		resp := get(env, "/api/v1/resumes/abc-123", guest)
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("guest=%q: expected 401, got %d", guest, resp.Code)
		}
		var body struct {
			Error struct {
				Code    string            `json:"code"`
				Details map[string]string `json:"details"`
			} `json:"error"`
		}
		if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Error.Code != "LOGIN_REQUIRED" {
			t.Fatalf("expected LOGIN_REQUIRED, got %q", body.Error.Code)
		}
		if got := body.Error.Details["login"]; got != "/api/v1/auth/google/start?next=/resume/abc-123" {
			t.Fatalf("unexpected login location %q", got)
		}
	}
}

func TestGetUnknownRecord(t *testing.T) {
	env := setup(t, stubRasterizer{}, llm.PlaceholderClient{}, true)

	if resp := get(env, "/api/v1/resumes/missing", "g1"); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
	if resp := get(env, "/api/v1/resumes/missing/image", "g1"); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for image, got %d", resp.Code)
	}
}

func TestKindName(t *testing.T) {
	t.Parallel()

	cases := map[error]string{
		&pipeline.Error{Kind: pipeline.ErrUpload}:                 "upload",
		&pipeline.Error{Kind: pipeline.ErrFeedbackParse}:          "feedback_parse",
		&pipeline.Error{Kind: pipeline.ErrEnvironmentUnavailable}: "environment_unavailable",
		errors.New("other"): "unknown",
	}
	for err, want := range cases {
		if got := KindName(err); got != want {
			t.Fatalf("KindName(%v) = %q, want %q", err, got, want)
		}
	}
}
