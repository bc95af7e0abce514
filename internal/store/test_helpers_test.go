package store

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/roach88/msglog/internal/ir"
)

// createTestStore creates a new file-backed store in a temp dir.
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

// createTestInvocation creates a test invocation with minimal required fields.
func createTestInvocation(id, method string, seq int64) ir.Invocation {
	return ir.Invocation{
		ID:            id,
		Method:        method,
		Args:          ir.IRObject{},
		Seq:           seq,
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
	}
}

// createTestCompletion creates a test completion with minimal required fields.
func createTestCompletion(id, invocationID string, outcome ir.Outcome, seq int64) ir.Completion {
	return ir.Completion{
		ID:           id,
		InvocationID: invocationID,
		Outcome:      outcome,
		Result:       ir.IRObject{},
		Seq:          seq,
	}
}

// verifyPragma checks that a pragma is set to the expected value.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return fmt.Errorf("query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
