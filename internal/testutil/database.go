package testutil

import (
	"testing"

	"roster-go/internal/database"
	"roster-go/internal/roster"
)

// NewTestStore creates an in-memory session store with the full schema
// applied. The store is automatically closed when the test completes.
func NewTestStore(t *testing.T) roster.Store {
	t.Helper()

	store, err := database.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	t.Cleanup(func() {
		store.Close()
	})

	return store
}
