// Package jobs tracks in-flight bulk-mail jobs for the lifetime of the
// process. State is deliberately not persisted: a restart forgets every job,
// and pollers are expected to re-upload. Durable history lives in the audit
// log instead.
package jobs

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"interview-mailer/internal/models"
)

var ErrNotFound = errors.New("job not found")

type job struct {
	id        string
	total     int
	processed int
	succeeded int
	failed    int
	skipped   int
	rows      map[string]models.RowResult
	createdAt time.Time
	finished  bool
	errMsg    string
}

// Registry is the process-wide job table. Each job has exactly one writer
// (its worker goroutine) but any number of concurrent readers; all access
// goes through the registry lock, so readers see individually consistent
// fields without requiring a whole-record snapshot.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*job
}

func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*job)}
}

// Create registers a job with every row pending.
func (r *Registry) Create(id string, total int) {
	rows := make(map[string]models.RowResult, total)
	for i := 0; i < total; i++ {
		rows[strconv.Itoa(i)] = models.RowResult{Status: models.RowPending}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[id] = &job{
		id:        id,
		total:     total,
		rows:      rows,
		createdAt: time.Now().UTC(),
	}
}

// Exists reports whether the id is known.
func (r *Registry) Exists(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.jobs[id]
	return ok
}

// Get returns a snapshot view for pollers.
func (r *Registry) Get(id string) (models.JobView, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[id]
	if !ok {
		return models.JobView{}, false
	}
	rows := make(map[string]models.RowResult, len(j.rows))
	for k, v := range j.rows {
		rows[k] = v
	}
	return models.JobView{
		ID:        j.id,
		Total:     j.total,
		Processed: j.processed,
		Succeeded: j.succeeded,
		Failed:    j.failed,
		Skipped:   j.skipped,
		Rows:      rows,
		CreatedAt: j.createdAt,
		Finished:  j.finished,
		Error:     j.errMsg,
	}, true
}

// RecordRow stores a terminal row result and bumps exactly one of
// succeeded/failed/skipped plus processed. Results arriving after the job
// finished or beyond the row count are dropped.
func (r *Registry) RecordRow(id string, index int, res models.RowResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok || j.finished || j.processed >= j.total {
		return
	}
	j.rows[strconv.Itoa(index)] = res
	j.processed++
	switch res.Status {
	case models.RowFailed:
		j.failed++
	case models.RowSkipped:
		j.skipped++
	default:
		j.succeeded++
	}
}

// Finish marks the job done. Idempotent; no mutation is accepted afterwards.
func (r *Registry) Finish(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if j, ok := r.jobs[id]; ok {
		j.finished = true
	}
}

// Fail finishes the job with a job-level error, used when its persisted rows
// cannot be loaded at all.
func (r *Registry) Fail(id, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if j, ok := r.jobs[id]; ok {
		j.finished = true
		j.errMsg = msg
	}
}
