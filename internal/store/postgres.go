// Package store provides storage backends for flowkit.
//
// This file implements the PostgreSQL-backed store, used by server-side
// deployments that centralize SDK state.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "embed"

	_ "github.com/lib/pq"

	"github.com/launchpath/flowkit/internal/models"
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore persists SDK state in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store with the given DSN.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewPostgresStore invoked", "DSN_set", cfg.DSN != "")

	if cfg.DSN == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) SaveScreenGraph(key string, raw []byte) error {
	_, err := s.db.Exec(
		`INSERT INTO screen_graphs (key, raw, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET raw = EXCLUDED.raw, updated_at = EXCLUDED.updated_at`,
		key, raw, now())
	if err != nil {
		slog.Error("PostgresStore SaveScreenGraph failed", "error", err, "key", key)
		return fmt.Errorf("failed to save screen graph %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) GetScreenGraph(key string) ([]byte, error) {
	var raw []byte
	err := s.db.QueryRow(`SELECT raw FROM screen_graphs WHERE key = $1`, key).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetScreenGraph failed", "error", err, "key", key)
		return nil, fmt.Errorf("failed to get screen graph %s: %w", key, err)
	}
	return raw, nil
}

func (s *PostgresStore) SaveReceiptBlob(key string, blob []byte) error {
	_, err := s.db.Exec(
		`INSERT INTO receipt_blobs (key, blob, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET blob = EXCLUDED.blob, updated_at = EXCLUDED.updated_at`,
		key, blob, now())
	if err != nil {
		slog.Error("PostgresStore SaveReceiptBlob failed", "error", err, "key", key)
		return fmt.Errorf("failed to save receipt blob %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) GetReceiptBlob(key string) ([]byte, error) {
	var blob []byte
	err := s.db.QueryRow(`SELECT blob FROM receipt_blobs WHERE key = $1`, key).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetReceiptBlob failed", "error", err, "key", key)
		return nil, fmt.Errorf("failed to get receipt blob %s: %w", key, err)
	}
	return blob, nil
}

func (s *PostgresStore) SaveRunRecord(rec models.RunRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO run_records (session_id, launch, last_screen, completed, started_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (session_id) DO UPDATE SET
		   last_screen = EXCLUDED.last_screen,
		   completed = EXCLUDED.completed,
		   finished_at = EXCLUDED.finished_at`,
		rec.SessionID, rec.Launch, rec.LastScreen, rec.Completed, rec.StartedAt, rec.FinishedAt)
	if err != nil {
		slog.Error("PostgresStore SaveRunRecord failed", "error", err, "session", rec.SessionID)
		return fmt.Errorf("failed to save run record %s: %w", rec.SessionID, err)
	}
	return nil
}

func (s *PostgresStore) GetRunRecord(sessionID string) (*models.RunRecord, error) {
	var rec models.RunRecord
	err := s.db.QueryRow(
		`SELECT session_id, launch, last_screen, completed, started_at, finished_at
		 FROM run_records WHERE session_id = $1`, sessionID).
		Scan(&rec.SessionID, &rec.Launch, &rec.LastScreen, &rec.Completed, &rec.StartedAt, &rec.FinishedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetRunRecord failed", "error", err, "session", sessionID)
		return nil, fmt.Errorf("failed to get run record %s: %w", sessionID, err)
	}
	return &rec, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
