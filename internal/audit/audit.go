// Package audit keeps the permanent record of every generation/send attempt.
// Job state is ephemeral; this trail is not.
package audit

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"

	"interview-mailer/internal/logging"
	"interview-mailer/internal/models"
	"interview-mailer/internal/telemetry"
)

var ErrNoLogs = errors.New("no logs available")

// Log fans each entry out to the structured store and the flat mirror.
type Log struct {
	store  *Store
	mirror *Mirror
}

func NewLog(store *Store, mirror *Mirror) *Log {
	return &Log{store: store, mirror: mirror}
}

// Append records one attempt in both sinks. A failed write must never abort
// row processing: errors are logged and counted, then swallowed.
func (l *Log) Append(ctx context.Context, e models.AuditEntry) {
	if l.store != nil {
		if err := l.store.Insert(ctx, e); err != nil {
			telemetry.AuditWriteFailures.Inc()
			logging.WithField("attempt_id", e.ID).WithError(err).Error("failed to write audit entry to store")
		}
	}
	if l.mirror != nil {
		if err := l.mirror.Append(e); err != nil {
			telemetry.AuditWriteFailures.Inc()
			logging.WithField("attempt_id", e.ID).WithError(err).Error("failed to append audit entry to csv")
		}
	}
}

// ExportCSV returns the audit trail as a flat file: the mirror when present,
// otherwise a CSV generated from the store.
func (l *Log) ExportCSV(ctx context.Context) ([]byte, error) {
	if l.mirror != nil {
		data, err := l.mirror.Read()
		if err != nil {
			return nil, err
		}
		if len(data) > 0 {
			return data, nil
		}
	}

	if l.store == nil {
		return nil, ErrNoLogs
	}
	entries, err := l.store.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrNoLogs
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, e := range entries {
		if err := w.Write(entryRecord(e)); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
