// Package store provides storage backends for flowkit.
//
// The surrounding SDK persists a screen-graph cache, raw receipt blobs,
// and onboarding run records; the flow core itself owns no persisted
// state. SQLite, Postgres, and in-memory backends are provided.
package store

import (
	"sync"
	"time"

	"github.com/launchpath/flowkit/internal/models"
)

// Store is the persistence surface used by the surrounding SDK.
type Store interface {
	// SaveScreenGraph caches the raw screen-graph JSON under a key
	// (typically the flow id), replacing any previous blob.
	SaveScreenGraph(key string, raw []byte) error
	// GetScreenGraph returns the cached blob, or nil when absent.
	GetScreenGraph(key string) ([]byte, error)

	// SaveReceiptBlob persists a raw App Store receipt for
	// revalidation after restart.
	SaveReceiptBlob(key string, blob []byte) error
	// GetReceiptBlob returns the persisted receipt, or nil when absent.
	GetReceiptBlob(key string) ([]byte, error)

	// SaveRunRecord inserts or updates one onboarding run record.
	SaveRunRecord(rec models.RunRecord) error
	// GetRunRecord returns the record for a session, or nil when absent.
	GetRunRecord(sessionID string) (*models.RunRecord, error)

	Close() error
}

// Opts holds store configuration options.
type Opts struct {
	DSN string
}

// Option configures store constructors.
type Option func(*Opts)

// WithDSN sets the database DSN (a file path for SQLite, a connection
// string for Postgres).
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// InMemoryStore is a simple in-memory store, used in tests and as the
// default when no DSN is configured.
type InMemoryStore struct {
	mu       sync.RWMutex
	graphs   map[string][]byte
	receipts map[string][]byte
	runs     map[string]models.RunRecord
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		graphs:   make(map[string][]byte),
		receipts: make(map[string][]byte),
		runs:     make(map[string]models.RunRecord),
	}
}

func (s *InMemoryStore) SaveScreenGraph(key string, raw []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graphs[key] = append([]byte(nil), raw...)
	return nil
}

func (s *InMemoryStore) GetScreenGraph(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graphs[key], nil
}

func (s *InMemoryStore) SaveReceiptBlob(key string, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receipts[key] = append([]byte(nil), blob...)
	return nil
}

func (s *InMemoryStore) GetReceiptBlob(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.receipts[key], nil
}

func (s *InMemoryStore) SaveRunRecord(rec models.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[rec.SessionID] = rec
	return nil
}

func (s *InMemoryStore) GetRunRecord(sessionID string) (*models.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rec, ok := s.runs[sessionID]; ok {
		out := rec
		return &out, nil
	}
	return nil, nil
}

func (s *InMemoryStore) Close() error { return nil }

// now is indirected for tests.
var now = time.Now
