package models

import (
	"time"
)

// Row statuses. A row leaves "pending" exactly once and is never reprocessed
// within the same job run.
const (
	RowPending   = "pending"
	RowSkipped   = "skipped"
	RowGenerated = "generated"
	RowSent      = "sent"
	RowFailed    = "failed"
)

// CandidateRow is one standardized spreadsheet row, immutable once ingested.
type CandidateRow struct {
	Index    int    `json:"index"`
	Name     string `json:"name"`
	Surname  string `json:"surname"`
	Email    string `json:"email"`
	Feedback string `json:"feedback"`
	Decision string `json:"decision"`
}

// RowResult records the terminal outcome for a single row.
type RowResult struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Generated string `json:"generated,omitempty"`
}

// JobView is the snapshot returned to polling clients. Keys of Rows are row
// indexes formatted as decimal strings.
type JobView struct {
	ID        string               `json:"id"`
	Total     int                  `json:"total"`
	Processed int                  `json:"processed"`
	Succeeded int                  `json:"succeeded"`
	Failed    int                  `json:"failed"`
	Skipped   int                  `json:"skipped"`
	Rows      map[string]RowResult `json:"rows"`
	CreatedAt time.Time            `json:"created_at"`
	Finished  bool                 `json:"finished"`
	Error     string               `json:"error,omitempty"`
}

// AuditEntry is the permanent record of one generation/send attempt. Keyed by
// a per-attempt UUID so retried attempts stay visible as separate rows.
type AuditEntry struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Surname      string    `json:"surname"`
	Email        string    `json:"email"`
	Decision     string    `json:"decision"`
	EmailText    string    `json:"email_text"`
	Timestamp    time.Time `json:"timestamp"`
	Status       string    `json:"status"`
	ErrorMessage string    `json:"error_message"`
}
