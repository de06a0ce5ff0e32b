package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"interview-mailer/internal/audit"
	"interview-mailer/internal/config"
	"interview-mailer/internal/ingest"
	"interview-mailer/internal/jobs"
	"interview-mailer/internal/logging"
	"interview-mailer/internal/models"
	"interview-mailer/internal/telemetry"
	"interview-mailer/internal/worker"
)

const maxUploadBytes = 32 << 20

// JobStarter launches the background worker for a job.
type JobStarter interface {
	Start(jobID string, opts worker.Options)
}

// Server wires HTTP handlers for the bulk-mail API.
type Server struct {
	cfg      config.Config
	ingest   *ingest.Service
	registry *jobs.Registry
	runner   JobStarter
	auditLog *audit.Log
}

// New constructs the API server.
func New(cfg config.Config, ing *ingest.Service, registry *jobs.Registry, runner JobStarter, auditLog *audit.Log) *Server {
	return &Server{
		cfg:      cfg,
		ingest:   ing,
		registry: registry,
		runner:   runner,
		auditLog: auditLog,
	}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/metrics", telemetry.Handler())

	r.Post("/api/uploads", s.handleUpload)
	r.Post("/api/jobs/{id}/start", s.handleStart)
	r.Get("/api/jobs/{id}", s.handleStatus)
	r.Get("/api/logs", s.handleLogs)
	return r
}

type uploadResponse struct {
	JobID       string                `json:"job_id"`
	PreviewRows []models.CandidateRow `json:"preview_rows"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "No file part in request")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file part in request")
		return
	}
	defer file.Close()
	if header.Filename == "" {
		writeError(w, http.StatusBadRequest, "No selected file")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read file")
		return
	}

	jobID, rows, err := s.ingest.Ingest(r.Context(), data, header.Filename)
	if err != nil {
		var vErr *ingest.ValidationError
		if errors.As(err, &vErr) {
			writeJSON(w, http.StatusBadRequest, vErr)
			return
		}
		logging.WithError(err).Error("upload failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{JobID: jobID, PreviewRows: rows})
}

type startRequest struct {
	Send            *bool    `json:"send"`
	PreviewOnly     bool     `json:"preview_only"`
	FilterDecisions []string `json:"filter_decisions"`
	HTMLTemplate    string   `json:"html_template"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.registry.Exists(id) {
		writeError(w, http.StatusNotFound, "Job not found")
		return
	}

	var req startRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}
	}

	send := true
	if req.Send != nil {
		send = *req.Send
	}

	s.runner.Start(id, worker.Options{
		Send:            send,
		PreviewOnly:     req.PreviewOnly,
		FilterDecisions: req.FilterDecisions,
		HTMLTemplate:    req.HTMLTemplate,
	})

	writeJSON(w, http.StatusOK, map[string]string{"job_id": id, "status": "started"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	view, ok := s.registry.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Job not found")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	data, err := s.auditLog.ExportCSV(r.Context())
	if err != nil {
		if errors.Is(err, audit.ErrNoLogs) {
			writeError(w, http.StatusNotFound, "No logs available")
			return
		}
		logging.WithError(err).Error("failed to export audit logs")
		writeError(w, http.StatusInternalServerError, "failed to export logs")
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="email_log.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
