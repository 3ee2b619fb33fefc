// Package app is the application layer between the CLI and the core
// services. It constructs every dependency from config, exposes
// high-level operations that accept raw strings and paths, and owns the
// store lifecycle via Close.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"roster-go/internal/archive"
	"roster-go/internal/config"
	"roster-go/internal/database"
	"roster-go/internal/encryption"
	"roster-go/internal/fs"
	"roster-go/internal/roster"
	"roster-go/internal/solver"
	"roster-go/internal/xlsx"
)

// App wires the store, codec, archive, encryptor, solver runner, and
// session service together for one CLI invocation.
type App struct {
	cfg       *config.Config
	store     roster.Store
	codec     roster.Codec
	files     roster.Files
	arch      roster.Archive
	encryptor roster.Encryptor
	service   *roster.Service
	runner    *solver.Runner
	logger    roster.Logger
	logFile   *os.File
	opID      string
}

// NewApp creates a fully wired App from the given config. operation
// identifies the CLI command being run and correlates log lines. The
// caller must call Close when done.
func NewApp(cfg *config.Config, operation string) (*App, error) {
	opID := uuid.NewString()

	slogger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	store, err := database.NewStoreFromConfig(cfg.Database)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("opening session store: %w", err)
	}

	arch, err := archive.NewArchiveFromConfig(context.Background(), cfg.Archive)
	if err != nil {
		store.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating archive: %w", err)
	}

	files := fs.NewOSFiles()
	codec := xlsx.NewCodec()
	enc := encryption.NewAgeEncryptor(cfg.Encryption)

	svc := roster.NewService(store, codec, files, logger, roster.RealClock{},
		cfg.ResultPath(), cfg.SavedPlanningsDir())

	runner := solver.NewRunner(cfg.Solver, files, logger,
		cfg.ResultPath(), cfg.UploadsDir(), os.Stdout)

	logger.Info("starting", "operation", operation)

	return &App{
		cfg:       cfg,
		store:     store,
		codec:     codec,
		files:     files,
		arch:      arch,
		encryptor: enc,
		service:   svc,
		runner:    runner,
		logger:    logger,
		logFile:   logFile,
		opID:      opID,
	}, nil
}

// SaveSession reads the roster spreadsheet at sourcePath (the active
// solver result when empty) and persists it as a new named session.
func (a *App) SaveSession(ctx context.Context, name, typ, semester, sourcePath string) (int64, error) {
	if sourcePath == "" {
		sourcePath = a.cfg.ResultPath()
	}
	rows, err := a.codec.Decode(sourcePath)
	if err != nil {
		return 0, fmt.Errorf("reading roster %s: %w", sourcePath, err)
	}
	return a.service.CreateSession(ctx, name, roster.SessionType(typ), roster.Semester(semester), rows)
}

// ListSessions returns all saved sessions, newest first.
func (a *App) ListSessions(ctx context.Context) ([]*roster.Session, error) {
	return a.service.ListSessions(ctx)
}

// SessionDetails returns one session with its assignments.
func (a *App) SessionDetails(ctx context.Context, id int64) (*roster.SessionDetails, error) {
	return a.service.SessionDetails(ctx, id)
}

// DeleteSession removes a session, its assignments, and its mirror file.
func (a *App) DeleteSession(ctx context.Context, id int64) error {
	return a.service.DeleteSession(ctx, id)
}

// ExportSession copies a session's mirrored spreadsheet to destPath.
func (a *App) ExportSession(ctx context.Context, id int64, destPath string) error {
	return a.service.ExportSession(ctx, id, destPath)
}

// DashboardStats derives the dashboard aggregates for the latest session.
func (a *App) DashboardStats(ctx context.Context) (*roster.DashboardStats, error) {
	return a.service.DashboardStats(ctx)
}

// SwapTeachers exchanges two teachers between two slots of the latest
// session.
func (a *App) SwapTeachers(ctx context.Context, t1, t2 roster.TeacherSlot) error {
	return a.service.SwapTeachers(ctx, t1, t2)
}

// MoveTeacher relocates a teacher to a different slot of the latest
// session.
func (a *App) MoveTeacher(ctx context.Context, teacherID string, from, to roster.SlotRef) error {
	return a.service.MoveTeacher(ctx, teacherID, from, to)
}

// Upload copies a user-supplied input spreadsheet into the managed
// uploads directory, keeping its base name, and returns the stored path.
func (a *App) Upload(sourcePath string) (string, error) {
	if !a.files.Exists(sourcePath) {
		return "", fmt.Errorf("%w: %s", roster.ErrNotFound, sourcePath)
	}
	dest := filepath.Join(a.cfg.UploadsDir(), filepath.Base(sourcePath))
	if err := a.files.Copy(sourcePath, dest); err != nil {
		return "", fmt.Errorf("storing upload: %w", err)
	}
	a.logger.Info("upload stored", "path", dest)
	return dest, nil
}

// Solve runs the external optimization executable over the three input
// spreadsheets and publishes the produced solution.
func (a *App) Solve(ctx context.Context, in solver.SolveInput) error {
	return a.runner.Solve(ctx, in)
}

// GenerateGlobalDocs produces the per-slot sheets and all convocations.
func (a *App) GenerateGlobalDocs(ctx context.Context) (any, error) {
	return a.runner.GenerateGlobalDocs(ctx)
}

// GenerateTeacherDoc produces a single teacher's convocation.
func (a *App) GenerateTeacherDoc(ctx context.Context, teacherID int) (any, error) {
	return a.runner.GenerateTeacherDoc(ctx, teacherID)
}

// ArchiveSession pushes a session's mirrored spreadsheet to the archive
// and returns the object name.
func (a *App) ArchiveSession(ctx context.Context, id int64) (string, error) {
	sess, err := a.store.GetSession(ctx, id)
	if err != nil {
		return "", err
	}
	if sess.FilePath == "" || !a.files.Exists(sess.FilePath) {
		return "", fmt.Errorf("%w: session %d has no mirror file", roster.ErrNotFound, id)
	}

	f, err := os.Open(sess.FilePath)
	if err != nil {
		return "", fmt.Errorf("%w: opening mirror: %v", roster.ErrIO, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("%w: stat mirror: %v", roster.ErrIO, err)
	}

	name := fmt.Sprintf("sessions/%d_%s", sess.ID, filepath.Base(sess.FilePath))
	if err := a.arch.Put(name, f, info.Size()); err != nil {
		return "", fmt.Errorf("archiving session %d: %w", id, err)
	}

	a.logger.Info("session archived", "id", id, "object", name)
	return name, nil
}

// SetupEncryption generates the snapshot key pair, protecting the private
// half with the passphrase.
func (a *App) SetupEncryption(passphrase string) error {
	if a.encryptor.IsConfigured() {
		return fmt.Errorf("encryption keys already exist")
	}
	return a.encryptor.Setup(passphrase)
}

// EncryptionConfigured reports whether snapshot key material is present.
func (a *App) EncryptionConfigured() bool {
	return a.encryptor.IsConfigured()
}

// BackupDatabase snapshots the store, encrypts the snapshot, stores it in
// the archive, and returns the object name.
func (a *App) BackupDatabase() (string, error) {
	if !a.encryptor.IsConfigured() {
		return "", fmt.Errorf("encryption keys not set up; run roster db setup first")
	}

	tmp, err := os.CreateTemp("", "roster-snapshot-*.db")
	if err != nil {
		return "", fmt.Errorf("creating snapshot file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := a.store.BackupTo(tmpPath); err != nil {
		return "", fmt.Errorf("snapshotting store: %w", err)
	}

	encTmp, err := os.CreateTemp("", "roster-snapshot-*.db.age")
	if err != nil {
		return "", fmt.Errorf("creating encrypted snapshot file: %w", err)
	}
	encPath := encTmp.Name()
	defer os.Remove(encPath)

	plain, err := os.Open(tmpPath)
	if err != nil {
		encTmp.Close()
		return "", fmt.Errorf("opening snapshot: %w", err)
	}
	err = a.encryptor.Encrypt(plain, encTmp)
	plain.Close()
	if cerr := encTmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("encrypting snapshot: %w", err)
	}

	f, err := os.Open(encPath)
	if err != nil {
		return "", fmt.Errorf("opening encrypted snapshot: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat encrypted snapshot: %w", err)
	}

	name := fmt.Sprintf("snapshots/%s_%s.db.age",
		time.Now().UTC().Format("20060102T150405Z"), a.opID)
	if err := a.arch.Put(name, f, info.Size()); err != nil {
		return "", fmt.Errorf("storing snapshot: %w", err)
	}

	a.logger.Info("database backed up", "object", name)
	return name, nil
}

// RestoreDatabase retrieves an encrypted snapshot from the archive,
// decrypts it with the passphrase-unlocked key, and writes it to destPath.
// It refuses to overwrite an existing file.
func (a *App) RestoreDatabase(objectName, passphrase, destPath string) error {
	if a.files.Exists(destPath) {
		return fmt.Errorf("refusing to overwrite %s", destPath)
	}

	decCtx, err := a.encryptor.Unlock(passphrase)
	if err != nil {
		return fmt.Errorf("unlocking key: %w", err)
	}

	encTmp, err := os.CreateTemp("", "roster-restore-*.db.age")
	if err != nil {
		return fmt.Errorf("creating download file: %w", err)
	}
	encPath := encTmp.Name()
	defer os.Remove(encPath)

	err = a.arch.Get(objectName, encTmp)
	if cerr := encTmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("retrieving snapshot %s: %w", objectName, err)
	}

	ciphertext, err := os.Open(encPath)
	if err != nil {
		return fmt.Errorf("opening downloaded snapshot: %w", err)
	}
	defer ciphertext.Close()

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("creating destination directory: %w", err)
	}
	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("creating destination: %w", err)
	}

	err = decCtx.Decrypt(ciphertext, out)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(destPath)
		return fmt.Errorf("decrypting snapshot: %w", err)
	}

	a.logger.Info("database restored", "object", objectName, "dest", destPath)
	return nil
}

// ValidateArchive verifies that the configured archive backend is
// reachable.
func (a *App) ValidateArchive() error {
	return a.arch.ValidateSetup()
}

// Close releases the store and the log file.
func (a *App) Close() error {
	var firstErr error
	if err := a.store.Close(); err != nil {
		firstErr = fmt.Errorf("closing store: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
