package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/launchpath/flowkit/internal/models"
)

// Both backends under test share one behavioral suite.
func runStoreSuite(t *testing.T, s Store) {
	t.Helper()

	// Screen graph cache round-trip and overwrite.
	if raw, err := s.GetScreenGraph("main"); err != nil || raw != nil {
		t.Fatalf("GetScreenGraph on empty store = %v, %v", raw, err)
	}
	if err := s.SaveScreenGraph("main", []byte(`{"v":1}`)); err != nil {
		t.Fatalf("SaveScreenGraph failed: %v", err)
	}
	if err := s.SaveScreenGraph("main", []byte(`{"v":2}`)); err != nil {
		t.Fatalf("SaveScreenGraph overwrite failed: %v", err)
	}
	raw, err := s.GetScreenGraph("main")
	if err != nil || string(raw) != `{"v":2}` {
		t.Fatalf("GetScreenGraph = %q, %v, want latest blob", raw, err)
	}

	// Receipt blob round-trip.
	if err := s.SaveReceiptBlob("default", []byte("receipt-bytes")); err != nil {
		t.Fatalf("SaveReceiptBlob failed: %v", err)
	}
	blob, err := s.GetReceiptBlob("default")
	if err != nil || string(blob) != "receipt-bytes" {
		t.Fatalf("GetReceiptBlob = %q, %v", blob, err)
	}

	// Run record insert then completion update.
	started := time.Now().UTC().Truncate(time.Second)
	rec := models.RunRecord{SessionID: "sess-1", Launch: "welcome", StartedAt: started}
	if err := s.SaveRunRecord(rec); err != nil {
		t.Fatalf("SaveRunRecord failed: %v", err)
	}
	finished := started.Add(time.Minute)
	rec.LastScreen = "paywall"
	rec.Completed = true
	rec.FinishedAt = &finished
	if err := s.SaveRunRecord(rec); err != nil {
		t.Fatalf("SaveRunRecord update failed: %v", err)
	}
	got, err := s.GetRunRecord("sess-1")
	if err != nil || got == nil {
		t.Fatalf("GetRunRecord = %v, %v", got, err)
	}
	if !got.Completed || got.LastScreen != "paywall" || got.FinishedAt == nil {
		t.Fatalf("run record not updated: %+v", got)
	}
	if missing, err := s.GetRunRecord("nope"); err != nil || missing != nil {
		t.Fatalf("GetRunRecord for unknown session = %v, %v", missing, err)
	}
}

func TestInMemoryStore(t *testing.T) {
	runStoreSuite(t, NewInMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(WithDSN(filepath.Join(t.TempDir(), "flowkit.db")))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer s.Close()
	runStoreSuite(t, s)
}

func TestNewSQLiteStore_RequiresDSN(t *testing.T) {
	if _, err := NewSQLiteStore(); err == nil {
		t.Fatal("NewSQLiteStore without DSN should fail")
	}
}
