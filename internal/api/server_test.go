package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"interview-mailer/internal/audit"
	"interview-mailer/internal/config"
	"interview-mailer/internal/ingest"
	"interview-mailer/internal/jobs"
	"interview-mailer/internal/models"
	"interview-mailer/internal/rowstore"
	"interview-mailer/internal/worker"
)

type fakeStarter struct {
	mu      sync.Mutex
	started []string
	opts    worker.Options
}

func (f *fakeStarter) Start(jobID string, opts worker.Options) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, jobID)
	f.opts = opts
}

func newTestServer(t *testing.T) (*Server, *jobs.Registry, *fakeStarter) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rows := rowstore.NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	registry := jobs.NewRegistry()
	starter := &fakeStarter{}
	auditLog := audit.NewLog(nil, audit.NewMirror(t.TempDir()))

	srv := New(config.Config{}, ingest.New(rows, registry), registry, starter, auditLog)
	return srv, registry, starter
}

func multipartUpload(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

const validCSV = "Full Name,Last,E-mail,Notes,Status\n" +
	"Thandi,Mokoena,thandi@example.com,Strong,Proceed\n" +
	"Sipho,Dlamini,sipho@example.com,Average,Hold\n"

func TestUploadCreatesJob(t *testing.T) {
	srv, registry, _ := newTestServer(t)
	router := srv.Router()

	body, contentType := multipartUpload(t, "candidates.csv", validCSV)
	req := httptest.NewRequest(http.MethodPost, "/api/uploads", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		JobID       string                `json:"job_id"`
		PreviewRows []models.CandidateRow `json:"preview_rows"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.JobID == "" || !registry.Exists(resp.JobID) {
		t.Fatalf("job not registered: %q", resp.JobID)
	}
	if len(resp.PreviewRows) != 2 || resp.PreviewRows[0].Email != "thandi@example.com" {
		t.Fatalf("unexpected preview rows: %+v", resp.PreviewRows)
	}
}

func TestUploadMissingColumn(t *testing.T) {
	srv, _, _ := newTestServer(t)
	router := srv.Router()

	csv := "Full Name,Last,Notes,Status\nThandi,Mokoena,Strong,Proceed\n"
	body, contentType := multipartUpload(t, "candidates.csv", csv)
	req := httptest.NewRequest(http.MethodPost, "/api/uploads", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var resp struct {
		Error   string   `json:"error"`
		Missing []string `json:"missing"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error == "" || len(resp.Missing) != 1 || resp.Missing[0] != "email" {
		t.Fatalf("unexpected validation payload: %+v", resp)
	}
}

func TestUploadUnsupportedExtension(t *testing.T) {
	srv, _, _ := newTestServer(t)
	router := srv.Router()

	body, contentType := multipartUpload(t, "candidates.pdf", "not a spreadsheet")
	req := httptest.NewRequest(http.MethodPost, "/api/uploads", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestUploadWithoutFilePart(t *testing.T) {
	srv, _, _ := newTestServer(t)
	router := srv.Router()

	req := httptest.NewRequest(http.MethodPost, "/api/uploads", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestStartUnknownJob(t *testing.T) {
	srv, _, starter := newTestServer(t)
	router := srv.Router()

	req := httptest.NewRequest(http.MethodPost, "/api/jobs/nope/start", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if len(starter.started) != 0 {
		t.Fatalf("starter invoked for unknown job")
	}
}

func TestStartDefaultsToSend(t *testing.T) {
	srv, registry, starter := newTestServer(t)
	router := srv.Router()
	registry.Create("j1", 1)

	req := httptest.NewRequest(http.MethodPost, "/api/jobs/j1/start", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(starter.started) != 1 || starter.started[0] != "j1" {
		t.Fatalf("starter not invoked: %+v", starter.started)
	}
	if !starter.opts.Send {
		t.Fatalf("send should default to true")
	}
}

func TestStartForwardsOptions(t *testing.T) {
	srv, registry, starter := newTestServer(t)
	router := srv.Router()
	registry.Create("j1", 1)

	payload := `{"send": false, "preview_only": true, "filter_decisions": ["Proceed"], "html_template": "<p>{{.body}}</p>"}`
	req := httptest.NewRequest(http.MethodPost, "/api/jobs/j1/start", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	opts := starter.opts
	if opts.Send || !opts.PreviewOnly || len(opts.FilterDecisions) != 1 || opts.HTMLTemplate == "" {
		t.Fatalf("options not forwarded: %+v", opts)
	}
}

func TestStatusReportsProgress(t *testing.T) {
	srv, registry, _ := newTestServer(t)
	router := srv.Router()
	registry.Create("j1", 2)
	registry.RecordRow("j1", 0, models.RowResult{Status: models.RowSent, Message: "Sent"})

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/j1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var view models.JobView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.Total != 2 || view.Processed != 1 || view.Succeeded != 1 || view.Finished {
		t.Fatalf("unexpected view: %+v", view)
	}
	if view.Rows["0"].Status != models.RowSent {
		t.Fatalf("row state missing: %+v", view.Rows)
	}
}

func TestStatusUnknownJob(t *testing.T) {
	srv, _, _ := newTestServer(t)
	router := srv.Router()

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/nope", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestLogsDownload(t *testing.T) {
	mirror := audit.NewMirror(t.TempDir())
	log := audit.NewLog(nil, mirror)
	log.Append(context.Background(), models.AuditEntry{
		ID:        "a-1",
		Name:      "Thandi",
		Email:     "thandi@example.com",
		Timestamp: time.Now().UTC(),
		Status:    models.RowSent,
	})
	srv := New(config.Config{}, nil, jobs.NewRegistry(), &fakeStarter{}, log)
	router := srv.Router()

	req := httptest.NewRequest(http.MethodGet, "/api/logs", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "a-1") {
		t.Fatalf("csv missing entry: %s", rec.Body.String())
	}
}

func TestLogsEmpty(t *testing.T) {
	srv, _, _ := newTestServer(t)
	router := srv.Router()

	req := httptest.NewRequest(http.MethodGet, "/api/logs", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	srv, _, _ := newTestServer(t)
	router := srv.Router()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
