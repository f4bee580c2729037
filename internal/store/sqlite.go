// Package store provides storage backends for flowkit.
//
// This file implements the SQLite-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"

	"github.com/launchpath/flowkit/internal/models"
)

// DefaultDirPermissions defines the default permissions for database
// directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore persists SDK state in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN is a file path to the database file; missing directories are
// created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	if cfg.DSN == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(cfg.DSN)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.DSN)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) SaveScreenGraph(key string, raw []byte) error {
	_, err := s.db.Exec(
		`INSERT INTO screen_graphs (key, raw, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET raw = excluded.raw, updated_at = excluded.updated_at`,
		key, raw, now())
	if err != nil {
		slog.Error("SQLiteStore SaveScreenGraph failed", "error", err, "key", key)
		return fmt.Errorf("failed to save screen graph %s: %w", key, err)
	}
	slog.Debug("SQLiteStore SaveScreenGraph succeeded", "key", key, "bytes", len(raw))
	return nil
}

func (s *SQLiteStore) GetScreenGraph(key string) ([]byte, error) {
	var raw []byte
	err := s.db.QueryRow(`SELECT raw FROM screen_graphs WHERE key = ?`, key).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetScreenGraph failed", "error", err, "key", key)
		return nil, fmt.Errorf("failed to get screen graph %s: %w", key, err)
	}
	return raw, nil
}

func (s *SQLiteStore) SaveReceiptBlob(key string, blob []byte) error {
	_, err := s.db.Exec(
		`INSERT INTO receipt_blobs (key, blob, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET blob = excluded.blob, updated_at = excluded.updated_at`,
		key, blob, now())
	if err != nil {
		slog.Error("SQLiteStore SaveReceiptBlob failed", "error", err, "key", key)
		return fmt.Errorf("failed to save receipt blob %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) GetReceiptBlob(key string) ([]byte, error) {
	var blob []byte
	err := s.db.QueryRow(`SELECT blob FROM receipt_blobs WHERE key = ?`, key).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetReceiptBlob failed", "error", err, "key", key)
		return nil, fmt.Errorf("failed to get receipt blob %s: %w", key, err)
	}
	return blob, nil
}

func (s *SQLiteStore) SaveRunRecord(rec models.RunRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO run_records (session_id, launch, last_screen, completed, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET
		   last_screen = excluded.last_screen,
		   completed = excluded.completed,
		   finished_at = excluded.finished_at`,
		rec.SessionID, rec.Launch, rec.LastScreen, rec.Completed, rec.StartedAt, rec.FinishedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveRunRecord failed", "error", err, "session", rec.SessionID)
		return fmt.Errorf("failed to save run record %s: %w", rec.SessionID, err)
	}
	return nil
}

func (s *SQLiteStore) GetRunRecord(sessionID string) (*models.RunRecord, error) {
	var rec models.RunRecord
	err := s.db.QueryRow(
		`SELECT session_id, launch, last_screen, completed, started_at, finished_at
		 FROM run_records WHERE session_id = ?`, sessionID).
		Scan(&rec.SessionID, &rec.Launch, &rec.LastScreen, &rec.Completed, &rec.StartedAt, &rec.FinishedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetRunRecord failed", "error", err, "session", sessionID)
		return nil, fmt.Errorf("failed to get run record %s: %w", sessionID, err)
	}
	return &rec, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
