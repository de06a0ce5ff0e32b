package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"interview-mailer/internal/columns"
	"interview-mailer/internal/jobs"
	"interview-mailer/internal/models"
	"interview-mailer/internal/rowstore"
)

// Service turns an uploaded spreadsheet into a tracked job.
type Service struct {
	rows     *rowstore.Store
	registry *jobs.Registry
}

func New(rows *rowstore.Store, registry *jobs.Registry) *Service {
	return &Service{rows: rows, registry: registry}
}

// Ingest parses the upload, resolves the logical columns, persists the
// standardized rows under a fresh job id and registers the job with every row
// pending. A *ValidationError means no job was created.
func (s *Service) Ingest(ctx context.Context, data []byte, filename string) (string, []models.CandidateRow, error) {
	tbl, err := parseUpload(data, filename)
	if err != nil {
		return "", nil, err
	}

	mapped, missing := columns.ResolveAll(tbl.headers)
	if len(missing) > 0 {
		return "", nil, &ValidationError{Reason: "Missing required columns", Missing: missing}
	}

	index := make(map[string]int, len(tbl.headers))
	for i, h := range tbl.headers {
		index[h] = i
	}

	rows := make([]models.CandidateRow, 0, len(tbl.records))
	for i, record := range tbl.records {
		rows = append(rows, models.CandidateRow{
			Index:    i,
			Name:     cell(record, index, mapped[columns.FieldName]),
			Surname:  cell(record, index, mapped[columns.FieldSurname]),
			Email:    cell(record, index, mapped[columns.FieldEmail]),
			Feedback: cell(record, index, mapped[columns.FieldFeedback]),
			Decision: cell(record, index, mapped[columns.FieldDecision]),
		})
	}

	jobID := uuid.New().String()
	if err := s.rows.Save(ctx, jobID, rows); err != nil {
		return "", nil, fmt.Errorf("persist rows: %w", err)
	}
	s.registry.Create(jobID, len(rows))

	return jobID, rows, nil
}

func parseUpload(data []byte, filename string) (*table, error) {
	name := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(name, ".csv"):
		return parseCSV(data)
	case strings.HasSuffix(name, ".xlsx"):
		return parseXLSX(data)
	default:
		return nil, &ValidationError{Reason: "Only .csv or .xlsx files are supported"}
	}
}

func cell(record []string, index map[string]int, header string) string {
	i, ok := index[header]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}
