package store

import (
	"context"
	"path/filepath"
	"testing"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun creates a run covering [0, 1] with step 0.5.
func createTestRun(t *testing.T, s *Store, scenario string) Run {
	t.Helper()
	run, err := s.CreateRun(context.Background(), scenario, 0, 1, 0.5)
	if err != nil {
		t.Fatalf("CreateRun() failed: %v", err)
	}
	return run
}
