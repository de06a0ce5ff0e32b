package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/xuri/excelize/v2"

	"interview-mailer/internal/jobs"
	"interview-mailer/internal/rowstore"
)

func newService(t *testing.T) (*Service, *jobs.Registry, *rowstore.Store) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rows := rowstore.NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	registry := jobs.NewRegistry()
	return New(rows, registry), registry, rows
}

func TestIngestCommaCSV(t *testing.T) {
	svc, registry, store := newService(t)

	csv := "Full Name,Last,E-mail,Notes,Status\n" +
		" Thandi ,Mokoena, thandi@example.com ,Strong,Proceed\n" +
		"Sipho,Dlamini,sipho@example.com,Average,Hold\n"
	jobID, rows, err := svc.Ingest(context.Background(), []byte(csv), "candidates.csv")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Name != "Thandi" || rows[0].Email != "thandi@example.com" {
		t.Fatalf("cells not trimmed: %+v", rows[0])
	}
	if rows[1].Surname != "Dlamini" || rows[1].Decision != "Hold" {
		t.Fatalf("columns mis-mapped: %+v", rows[1])
	}
	if !registry.Exists(jobID) {
		t.Fatalf("job %q not registered", jobID)
	}

	persisted, err := store.Load(context.Background(), jobID)
	if err != nil || len(persisted) != 2 {
		t.Fatalf("rows not persisted: %v, %+v", err, persisted)
	}

	view, _ := registry.Get(jobID)
	if view.Total != 2 || view.Processed != 0 {
		t.Fatalf("job should start with all rows pending: %+v", view)
	}
}

func TestIngestSemicolonCSV(t *testing.T) {
	svc, _, _ := newService(t)

	csv := "Name;Surname;Email;Feedback;Decision\n" +
		"Thandi;Mokoena;thandi@example.com;Strong;Proceed\n"
	_, rows, err := svc.Ingest(context.Background(), []byte(csv), "candidates.csv")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(rows) != 1 || rows[0].Email != "thandi@example.com" {
		t.Fatalf("semicolon file mis-parsed: %+v", rows)
	}
}

func TestIngestTabDelimited(t *testing.T) {
	svc, _, _ := newService(t)

	csv := "Name\tSurname\tEmail\tFeedback\tDecision\n" +
		"Thandi\tMokoena\tthandi@example.com\tStrong\tProceed\n"
	_, rows, err := svc.Ingest(context.Background(), []byte(csv), "candidates.csv")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(rows) != 1 || rows[0].Surname != "Mokoena" {
		t.Fatalf("tab file mis-parsed: %+v", rows)
	}
}

func TestIngestBOMPrefix(t *testing.T) {
	svc, _, _ := newService(t)

	csv := "\ufeffName,Surname,Email,Feedback,Decision\n" +
		"Thandi,Mokoena,thandi@example.com,Strong,Proceed\n"
	_, rows, err := svc.Ingest(context.Background(), []byte(csv), "candidates.csv")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if rows[0].Name != "Thandi" {
		t.Fatalf("BOM broke header mapping: %+v", rows[0])
	}
}

func TestIngestRaggedRows(t *testing.T) {
	svc, _, _ := newService(t)

	csv := "Name,Surname,Email,Feedback,Decision\n" +
		"Thandi,Mokoena,thandi@example.com\n"
	_, rows, err := svc.Ingest(context.Background(), []byte(csv), "candidates.csv")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if rows[0].Email != "thandi@example.com" || rows[0].Decision != "" {
		t.Fatalf("short record mishandled: %+v", rows[0])
	}
}

func TestIngestMissingColumns(t *testing.T) {
	svc, _, _ := newService(t)

	csv := "Full Name,Last,Notes,Status\nThandi,Mokoena,Strong,Proceed\n"
	_, _, err := svc.Ingest(context.Background(), []byte(csv), "candidates.csv")

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(vErr.Missing) != 1 || vErr.Missing[0] != "email" {
		t.Fatalf("missing list should name the email field: %+v", vErr.Missing)
	}
}

func TestIngestUnsupportedExtension(t *testing.T) {
	svc, _, _ := newService(t)

	_, _, err := svc.Ingest(context.Background(), []byte("whatever"), "candidates.pdf")
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestIngestXLSX(t *testing.T) {
	svc, registry, _ := newService(t)

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	headers := []interface{}{"Candidate Name", "Surname", "Email Address", "Interview Feedback", "Decision"}
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		t.Fatalf("set header row: %v", err)
	}
	row := []interface{}{"Thandi", "Mokoena", "thandi@example.com", "Strong", "Proceed"}
	if err := f.SetSheetRow(sheet, "A2", &row); err != nil {
		t.Fatalf("set data row: %v", err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write xlsx: %v", err)
	}

	jobID, rows, err := svc.Ingest(context.Background(), buf.Bytes(), "candidates.xlsx")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(rows) != 1 || rows[0].Email != "thandi@example.com" {
		t.Fatalf("xlsx mis-parsed: %+v", rows)
	}
	if !registry.Exists(jobID) {
		t.Fatalf("job not registered")
	}
}
