package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"interview-mailer/internal/jobs"
	"interview-mailer/internal/logging"
	"interview-mailer/internal/models"
	"interview-mailer/internal/telemetry"
)

// Generator produces the final message text for one row.
type Generator interface {
	Generate(ctx context.Context, row models.CandidateRow, htmlTemplate string) (string, error)
}

// Deliverer sends a finished message to one recipient.
type Deliverer interface {
	Deliver(recipient, body string) error
}

// RowLoader reads a job's standardized rows back from persistence.
type RowLoader interface {
	Load(ctx context.Context, jobID string) ([]models.CandidateRow, error)
}

// Auditor records one attempt; it must never fail the caller.
type Auditor interface {
	Append(ctx context.Context, e models.AuditEntry)
}

// Options select how one job run behaves.
type Options struct {
	Send            bool
	PreviewOnly     bool
	FilterDecisions []string
	HTMLTemplate    string
}

// Runner processes jobs row by row. One goroutine per started job, rows
// strictly sequential within it; concurrent jobs only ever touch their own
// registry entry, and the audit log handles concurrent appends itself.
type Runner struct {
	rows            RowLoader
	registry        *jobs.Registry
	generator       Generator
	mailer          Deliverer
	auditor         Auditor
	defaultTemplate string
}

func NewRunner(rows RowLoader, registry *jobs.Registry, gen Generator, mail Deliverer, auditor Auditor, defaultTemplate string) *Runner {
	return &Runner{
		rows:            rows,
		registry:        registry,
		generator:       gen,
		mailer:          mail,
		auditor:         auditor,
		defaultTemplate: defaultTemplate,
	}
}

// Start spawns the background worker for a job and returns immediately.
// There is no cancellation and no cap on concurrent workers: a started job
// runs to completion or process exit, and admission control is left to the
// provider's own rate limits.
func (r *Runner) Start(jobID string, opts Options) {
	telemetry.JobsStarted.Inc()
	go r.run(jobID, opts)
}

func (r *Runner) run(jobID string, opts Options) {
	ctx := context.Background()
	log := logging.WithField("job_id", jobID)

	telemetry.JobsInFlight.Inc()
	defer telemetry.JobsInFlight.Dec()
	defer telemetry.JobsFinished.Inc()

	rows, err := r.rows.Load(ctx, jobID)
	if err != nil {
		log.WithError(err).Error("failed to load job rows")
		r.registry.Fail(jobID, fmt.Sprintf("Failed to open job rows: %v", err))
		return
	}

	htmlTemplate := opts.HTMLTemplate
	if htmlTemplate == "" {
		htmlTemplate = r.defaultTemplate
	}

	for _, row := range rows {
		r.processRow(ctx, jobID, row, opts, htmlTemplate)
	}

	r.registry.Finish(jobID)
	log.Info("job finished")
}

// processRow runs one row to a terminal state. Anything unexpected is caught
// here so a single bad row can never kill the worker or leave the job
// permanently unfinished.
func (r *Runner) processRow(ctx context.Context, jobID string, row models.CandidateRow, opts Options, htmlTemplate string) {
	defer func() {
		if rec := recover(); rec != nil {
			msg := fmt.Sprintf("Unhandled: %v", rec)
			logging.WithFields(map[string]interface{}{"job_id": jobID, "row": row.Index}).Error(msg)
			r.recordFailure(ctx, jobID, row, "", msg)
		}
	}()

	if len(opts.FilterDecisions) > 0 && !contains(opts.FilterDecisions, row.Decision) {
		r.registry.RecordRow(jobID, row.Index, models.RowResult{Status: models.RowSkipped, Message: "Filtered out"})
		telemetry.RowsSkipped.Inc()
		return
	}

	if row.Email == "" {
		r.recordFailure(ctx, jobID, row, "", "Missing email address")
		return
	}

	generated, err := r.generator.Generate(ctx, row, htmlTemplate)
	if err != nil {
		r.recordFailure(ctx, jobID, row, "", err.Error())
		return
	}

	if opts.PreviewOnly || !opts.Send {
		r.registry.RecordRow(jobID, row.Index, models.RowResult{
			Status:    models.RowGenerated,
			Message:   "Generated (not sent)",
			Generated: generated,
		})
		telemetry.RowsGenerated.Inc()
		r.appendAudit(ctx, row, generated, models.RowGenerated, "")
		return
	}

	if err := r.mailer.Deliver(row.Email, generated); err != nil {
		r.recordFailure(ctx, jobID, row, generated, err.Error())
		return
	}

	r.registry.RecordRow(jobID, row.Index, models.RowResult{
		Status:    models.RowSent,
		Message:   "Sent",
		Generated: generated,
	})
	telemetry.RowsSent.Inc()
	r.appendAudit(ctx, row, generated, models.RowSent, "")
}

func (r *Runner) recordFailure(ctx context.Context, jobID string, row models.CandidateRow, emailText, msg string) {
	r.registry.RecordRow(jobID, row.Index, models.RowResult{Status: models.RowFailed, Message: msg})
	telemetry.RowsFailed.Inc()
	r.appendAudit(ctx, row, emailText, models.RowFailed, msg)
}

func (r *Runner) appendAudit(ctx context.Context, row models.CandidateRow, emailText, status, errMsg string) {
	r.auditor.Append(ctx, models.AuditEntry{
		ID:           uuid.New().String(),
		Name:         row.Name,
		Surname:      row.Surname,
		Email:        row.Email,
		Decision:     row.Decision,
		EmailText:    emailText,
		Timestamp:    time.Now().UTC(),
		Status:       status,
		ErrorMessage: errMsg,
	})
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
