package testutil

import (
	"fmt"
	"sync"

	"roster-go/internal/roster"
)

// MemWorkspace is an in-memory stand-in for the filesystem and the
// spreadsheet codec together, so service tests can observe mirror-file
// behavior without touching disk. Spreadsheet contents are kept as decoded
// rows; anything copied from a non-spreadsheet path is tracked as an
// opaque blob.
type MemWorkspace struct {
	mu   sync.Mutex
	rows map[string][]*roster.Row
	raw  map[string][]byte
}

// NewMemWorkspace creates an empty workspace.
func NewMemWorkspace() *MemWorkspace {
	return &MemWorkspace{
		rows: make(map[string][]*roster.Row),
		raw:  make(map[string][]byte),
	}
}

// SetRows places a spreadsheet with the given rows at path.
func (w *MemWorkspace) SetRows(path string, rows []*roster.Row) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rows[path] = cloneRows(rows)
}

// SetRaw places an opaque file at path.
func (w *MemWorkspace) SetRaw(path string, content []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.raw[path] = append([]byte(nil), content...)
}

// Rows returns the spreadsheet rows stored at path, or nil.
func (w *MemWorkspace) Rows(path string) []*roster.Row {
	w.mu.Lock()
	defer w.mu.Unlock()
	return cloneRows(w.rows[path])
}

// Copy duplicates whatever lives at src to dst.
func (w *MemWorkspace) Copy(src, dst string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if rows, ok := w.rows[src]; ok {
		w.rows[dst] = cloneRows(rows)
		return nil
	}
	if blob, ok := w.raw[src]; ok {
		w.raw[dst] = append([]byte(nil), blob...)
		return nil
	}
	return fmt.Errorf("%w: copying %s: no such file", roster.ErrIO, src)
}

// Remove deletes the file at path.
func (w *MemWorkspace) Remove(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.rows[path]; ok {
		delete(w.rows, path)
		return nil
	}
	if _, ok := w.raw[path]; ok {
		delete(w.raw, path)
		return nil
	}
	return fmt.Errorf("%w: removing %s: no such file", roster.ErrIO, path)
}

// Exists reports whether any file lives at path.
func (w *MemWorkspace) Exists(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, hasRows := w.rows[path]
	_, hasRaw := w.raw[path]
	return hasRows || hasRaw
}

// Decode returns the spreadsheet rows stored at path.
func (w *MemWorkspace) Decode(path string) ([]*roster.Row, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	rows, ok := w.rows[path]
	if !ok {
		return nil, fmt.Errorf("%w: opening %s: no such file", roster.ErrIO, path)
	}
	return cloneRows(rows), nil
}

// Encode overwrites the spreadsheet at path with rows.
func (w *MemWorkspace) Encode(rows []*roster.Row, path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rows[path] = cloneRows(rows)
	return nil
}

func cloneRows(rows []*roster.Row) []*roster.Row {
	if rows == nil {
		return nil
	}
	out := make([]*roster.Row, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	return out
}

// Compile-time interface checks.
var (
	_ roster.Files = (*MemWorkspace)(nil)
	_ roster.Codec = (*MemWorkspace)(nil)
)
