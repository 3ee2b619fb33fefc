package archive

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"roster-go/internal/config"
	"roster-go/internal/roster"
)

// backends under test share one behavioral contract; the S3 backend is
// excluded because it needs a live bucket.
func testBackends(t *testing.T) map[string]roster.Archive {
	t.Helper()
	fsArch, err := NewFileSystemArchive(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileSystemArchive() error = %v", err)
	}
	return map[string]roster.Archive{
		"filesystem": fsArch,
		"memory":     NewMemoryArchive(),
	}
}

func TestArchive_PutGet(t *testing.T) {
	for name, arch := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			content := []byte("workbook bytes")
			if err := arch.Put("sessions/1_juin.xlsx", bytes.NewReader(content), int64(len(content))); err != nil {
				t.Fatalf("Put() error = %v", err)
			}

			var out bytes.Buffer
			if err := arch.Get("sessions/1_juin.xlsx", &out); err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if !bytes.Equal(out.Bytes(), content) {
				t.Errorf("Get() = %q, want %q", out.Bytes(), content)
			}
		})
	}
}

func TestArchive_GetMissing(t *testing.T) {
	for name, arch := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			var out bytes.Buffer
			err := arch.Get("sessions/absent.xlsx", &out)
			if !errors.Is(err, roster.ErrNotFound) {
				t.Errorf("Get(absent) error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestArchive_SizeMismatch(t *testing.T) {
	for name, arch := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			err := arch.Put("obj", strings.NewReader("abc"), 99)
			if err == nil {
				t.Error("Put() with wrong size succeeded, want error")
			}
		})
	}
}

func TestArchive_Overwrite(t *testing.T) {
	for name, arch := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			if err := arch.Put("obj", strings.NewReader("old"), 3); err != nil {
				t.Fatalf("Put() error = %v", err)
			}
			if err := arch.Put("obj", strings.NewReader("newer"), 5); err != nil {
				t.Fatalf("Put() overwrite error = %v", err)
			}
			var out bytes.Buffer
			if err := arch.Get("obj", &out); err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if out.String() != "newer" {
				t.Errorf("Get() = %q, want newer", out.String())
			}
		})
	}
}

func TestFileSystemArchive_NoPartialFiles(t *testing.T) {
	root := t.TempDir()
	arch, err := NewFileSystemArchive(root)
	if err != nil {
		t.Fatalf("NewFileSystemArchive() error = %v", err)
	}

	// A size mismatch must not leave the destination or a temp file behind.
	if err := arch.Put("snapshots/x.db", strings.NewReader("short"), 100); err == nil {
		t.Fatal("Put() with wrong size succeeded, want error")
	}
	if _, err := os.Stat(filepath.Join(root, "snapshots", "x.db")); !os.IsNotExist(err) {
		t.Error("destination exists after failed Put")
	}
	entries, err := os.ReadDir(filepath.Join(root, "snapshots"))
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("leftover files after failed Put: %v", entries)
	}
}

func TestFileSystemArchive_ValidateSetup(t *testing.T) {
	arch, err := NewFileSystemArchive(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileSystemArchive() error = %v", err)
	}
	if err := arch.ValidateSetup(); err != nil {
		t.Errorf("ValidateSetup() error = %v", err)
	}
}

func TestNewArchiveFromConfig(t *testing.T) {
	ctx := context.Background()

	t.Run("filesystem", func(t *testing.T) {
		arch, err := NewArchiveFromConfig(ctx, config.ArchiveConfig{
			Type:   "filesystem",
			FSRoot: t.TempDir(),
		})
		if err != nil {
			t.Fatalf("NewArchiveFromConfig() error = %v", err)
		}
		if _, ok := arch.(*FileSystemArchive); !ok {
			t.Errorf("got %T, want *FileSystemArchive", arch)
		}
	})

	t.Run("memory", func(t *testing.T) {
		arch, err := NewArchiveFromConfig(ctx, config.ArchiveConfig{Type: "memory"})
		if err != nil {
			t.Fatalf("NewArchiveFromConfig() error = %v", err)
		}
		if _, ok := arch.(*MemoryArchive); !ok {
			t.Errorf("got %T, want *MemoryArchive", arch)
		}
	})

	t.Run("filesystem requires root", func(t *testing.T) {
		if _, err := NewArchiveFromConfig(ctx, config.ArchiveConfig{Type: "filesystem"}); err == nil {
			t.Error("missing fs_root accepted, want error")
		}
	})

	t.Run("s3 requires bucket", func(t *testing.T) {
		if _, err := NewArchiveFromConfig(ctx, config.ArchiveConfig{Type: "s3"}); err == nil {
			t.Error("missing s3_bucket accepted, want error")
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		if _, err := NewArchiveFromConfig(ctx, config.ArchiveConfig{Type: "tape"}); err == nil {
			t.Error("unknown type accepted, want error")
		}
	})
}
