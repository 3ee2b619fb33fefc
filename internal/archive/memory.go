package archive

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"roster-go/internal/roster"
)

// MemoryArchive keeps objects in a map. Used by tests.
type MemoryArchive struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryArchive creates an empty in-memory archive.
func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{
		objects: make(map[string][]byte),
	}
}

// Put stores an object under name.
func (a *MemoryArchive) Put(name string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading object: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.objects[name] = data
	return nil
}

// Get retrieves the object stored under name and writes it to w.
func (a *MemoryArchive) Get(name string, w io.Writer) error {
	a.mu.RLock()
	data, ok := a.objects[name]
	a.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: archived object %s", roster.ErrNotFound, name)
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("writing object: %w", err)
	}
	return nil
}

// ValidateSetup always succeeds for the in-memory archive.
func (a *MemoryArchive) ValidateSetup() error {
	return nil
}

// Len reports the number of stored objects.
func (a *MemoryArchive) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.objects)
}

// Compile-time check that MemoryArchive implements roster.Archive.
var _ roster.Archive = (*MemoryArchive)(nil)
