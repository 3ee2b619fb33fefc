// Package fs provides the real-filesystem implementation of roster.Files.
package fs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"roster-go/internal/roster"
)

// OSFiles implements roster.Files against the host filesystem.
type OSFiles struct{}

// NewOSFiles returns a filesystem-backed Files implementation.
func NewOSFiles() *OSFiles {
	return &OSFiles{}
}

// Copy duplicates src to dst, overwriting dst. The destination directory
// is created if absent.
func (*OSFiles) Copy(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("%w: opening %s: %v", roster.ErrIO, src, err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("%w: creating directory for %s: %v", roster.ErrIO, dst, err)
	}

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("%w: creating %s: %v", roster.ErrIO, dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("%w: copying to %s: %v", roster.ErrIO, dst, err)
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("%w: closing %s: %v", roster.ErrIO, dst, err)
	}
	return nil
}

// Remove deletes the file at path.
func (*OSFiles) Remove(path string) error {
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("%w: removing %s: %v", roster.ErrIO, path, err)
	}
	return nil
}

// Exists reports whether a regular file exists at path.
func (*OSFiles) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Compile-time check that OSFiles implements roster.Files.
var _ roster.Files = (*OSFiles)(nil)
