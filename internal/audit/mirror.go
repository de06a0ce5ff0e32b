package audit

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"interview-mailer/internal/models"
)

var csvHeader = []string{"id", "name", "surname", "email", "decision", "email_text", "timestamp", "status", "error_message"}

// Mirror is the flat append-only side of the audit trail, a CSV file for
// operator inspection. Appends are serialized through a lock so concurrent
// job workers never interleave records.
type Mirror struct {
	mu   sync.Mutex
	path string
}

func NewMirror(dataDir string) *Mirror {
	return &Mirror{path: filepath.Join(dataDir, "email_log.csv")}
}

func (m *Mirror) Path() string { return m.path }

// Append writes one record, creating the file with a header row first.
func (m *Mirror) Append(e models.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	_, statErr := os.Stat(m.path)
	writeHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(m.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(csvHeader); err != nil {
			return fmt.Errorf("write csv header: %w", err)
		}
	}
	if err := w.Write(entryRecord(e)); err != nil {
		return fmt.Errorf("write csv record: %w", err)
	}
	w.Flush()
	return w.Error()
}

// Read returns the raw mirror file, or nil when it does not exist yet.
func (m *Mirror) Read() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	return data, err
}

func entryRecord(e models.AuditEntry) []string {
	return []string{
		e.ID,
		e.Name,
		e.Surname,
		e.Email,
		e.Decision,
		e.EmailText,
		e.Timestamp.UTC().Format(time.RFC3339),
		e.Status,
		e.ErrorMessage,
	}
}
