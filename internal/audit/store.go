package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"interview-mailer/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS email_logs (
	id TEXT PRIMARY KEY,
	name TEXT,
	surname TEXT,
	email TEXT,
	decision TEXT,
	email_text TEXT,
	timestamp TIMESTAMPTZ,
	status TEXT,
	error_message TEXT
)`

// Store is the durable, queryable side of the audit trail, backed by
// Postgres. Each append is a single atomic insert-or-replace keyed by attempt
// id, safe under concurrent job workers.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a pooled connection and ensures the schema exists.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create email_logs table: %w", err)
	}
	return nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Insert writes one attempt record, replacing any previous record with the
// same attempt id.
func (s *Store) Insert(ctx context.Context, e models.AuditEntry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO email_logs (id, name, surname, email, decision, email_text, timestamp, status, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			surname = EXCLUDED.surname,
			email = EXCLUDED.email,
			decision = EXCLUDED.decision,
			email_text = EXCLUDED.email_text,
			timestamp = EXCLUDED.timestamp,
			status = EXCLUDED.status,
			error_message = EXCLUDED.error_message
	`, e.ID, e.Name, e.Surname, e.Email, e.Decision, e.EmailText, e.Timestamp, e.Status, e.ErrorMessage)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// List returns the full audit trail ordered by timestamp.
func (s *Store) List(ctx context.Context) ([]models.AuditEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, surname, email, decision, email_text, timestamp, status, error_message
		FROM email_logs ORDER BY timestamp
	`)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		if err := rows.Scan(&e.ID, &e.Name, &e.Surname, &e.Email, &e.Decision, &e.EmailText, &e.Timestamp, &e.Status, &e.ErrorMessage); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
