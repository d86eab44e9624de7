package store

import (
	"path/filepath"
	"testing"
)

// createTestStore opens a fresh database in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trace.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// pragma reads the current value of a SQLite pragma.
func pragma(t *testing.T, s *Store, name string) string {
	t.Helper()
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		t.Fatalf("PRAGMA %s: %v", name, err)
	}
	return value
}

// createTestEntry creates an entry with minimal required fields.
func createTestEntry(session string, seq int64, actionType, featureKey string) Entry {
	return Entry{
		Session:       session,
		Seq:           seq,
		ActionID:      actionType + "-id",
		ActionType:    actionType,
		FeatureKey:    featureKey,
		Action:        []byte(`{"type":"` + actionType + `"}`),
		State:         []byte(`{}`),
		StateHash:     "hash",
		EngineVersion: "0.1.0",
		RecordVersion: "1",
	}
}
