package rowstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"interview-mailer/internal/config"
	"interview-mailer/internal/models"
)

var ErrNotFound = errors.New("rows not found")

// Store persists the standardized row set of each job in Redis, keyed by job
// id. Rows are written once at upload time and only read back by the worker.
type Store struct {
	client    *redis.Client
	keyPrefix string
}

// New builds a row store client from config.
func New(cfg config.Config) *Store {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return &Store{client: client, keyPrefix: "job:rows:"}
}

// NewWithClient wires an existing client, used by tests.
func NewWithClient(client *redis.Client) *Store {
	return &Store{client: client, keyPrefix: "job:rows:"}
}

func (s *Store) key(jobID string) string {
	return s.keyPrefix + jobID
}

// Save writes the whole standardized row set atomically.
func (s *Store) Save(ctx context.Context, jobID string, rows []models.CandidateRow) error {
	payload, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("marshal rows: %w", err)
	}
	if err := s.client.Set(ctx, s.key(jobID), payload, 0).Err(); err != nil {
		return fmt.Errorf("save rows: %w", err)
	}
	return nil
}

// Load reads the row set back for processing.
func (s *Store) Load(ctx context.Context, jobID string) ([]models.CandidateRow, error) {
	payload, err := s.client.Get(ctx, s.key(jobID)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load rows: %w", err)
	}
	var rows []models.CandidateRow
	if err := json.Unmarshal(payload, &rows); err != nil {
		return nil, fmt.Errorf("unmarshal rows: %w", err)
	}
	return rows, nil
}

// Delete drops the row set once a job no longer needs it.
func (s *Store) Delete(ctx context.Context, jobID string) error {
	return s.client.Del(ctx, s.key(jobID)).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}
