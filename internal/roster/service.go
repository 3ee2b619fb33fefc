package roster

import (
	"context"
	"fmt"
	"path/filepath"
)

// Service is the session lifecycle layer: saving solver output as named
// sessions, browsing and deleting history, and exporting mirrored files.
// All state lives in the injected Store; the Service itself is stateless.
type Service struct {
	store  Store
	codec  Codec
	files  Files
	logger Logger
	clock  Clock

	// resultPath is the single most-recent solver result spreadsheet,
	// maintained by the solver runner. savedDir holds per-session mirrors.
	resultPath string
	savedDir   string
}

// NewService creates a Service with the provided dependencies.
func NewService(store Store, codec Codec, files Files, logger Logger, clock Clock, resultPath, savedDir string) *Service {
	return &Service{
		store:      store,
		codec:      codec,
		files:      files,
		logger:     logger,
		clock:      clock,
		resultPath: resultPath,
		savedDir:   savedDir,
	}
}

// CreateSession persists rows as a new named session. The year is stamped
// from the current calendar year, aggregate counts are computed from the
// rows, and the active result spreadsheet (if present) is copied into a
// session-named mirror file. Returns the new session id.
func (s *Service) CreateSession(ctx context.Context, name string, typ SessionType, semester Semester, rows []*Row) (int64, error) {
	if name == "" {
		return 0, fmt.Errorf("session name is required")
	}
	switch typ {
	case SessionPrincipale, SessionRattrapage:
	default:
		return 0, fmt.Errorf("unknown session type: %s", typ)
	}
	switch semester {
	case SemesterS1, SemesterS2:
	default:
		return 0, fmt.Errorf("unknown semester: %s", semester)
	}

	now := s.clock.Now()
	year := now.Year()

	teachers := make(map[string]struct{})
	examTotal := 0
	for _, row := range rows {
		teachers[row.String(ColTeacherID)] = struct{}{}
		examTotal += row.Int(ColExamCount)
	}

	// Capture the active result file as this session's mirror. A missing
	// result file is fine: the session is then stored without a mirror.
	mirrorPath := ""
	if s.files.Exists(s.resultPath) {
		fileName := fmt.Sprintf("%s_%s_%s_%d.xlsx", name, typ, semester, year)
		mirrorPath = filepath.Join(s.savedDir, fileName)
		if err := s.files.Copy(s.resultPath, mirrorPath); err != nil {
			return 0, fmt.Errorf("copying result file: %w", err)
		}
	}

	session := &Session{
		Name:             name,
		Type:             typ,
		Semester:         semester,
		Year:             year,
		CreatedAt:        now,
		FilePath:         mirrorPath,
		TotalAssignments: len(rows),
		TeacherCount:     len(teachers),
		ExamCount:        examTotal,
	}

	assignments := make([]*Assignment, 0, len(rows))
	for _, row := range rows {
		assignments = append(assignments, &Assignment{
			Date:        row.String(ColDate),
			DayNumber:   row.Int(ColDay),
			Slot:        row.String(ColSlot),
			TimeStart:   row.String(ColTimeStart),
			TimeEnd:     row.String(ColTimeEnd),
			ExamCount:   row.Int(ColExamCount),
			TeacherID:   row.String(ColTeacherID),
			Grade:       row.String(ColGrade),
			Responsible: row.String(ColResponsible),
			FirstName:   row.StringAlias(ColFirstName),
			LastName:    row.StringAlias(ColLastName),
			Email:       row.StringAlias(ColEmail),
		})
	}

	id, err := s.store.CreateSession(ctx, session, assignments)
	if err != nil {
		// The mirror was copied before the insert; do not leave it
		// orphaned in the saved dir.
		if mirrorPath != "" {
			s.files.Remove(mirrorPath)
		}
		return 0, fmt.Errorf("creating session: %w", err)
	}

	s.logger.Info("session saved", "id", id, "name", name, "assignments", len(assignments))
	return id, nil
}

// ListSessions returns all saved sessions, newest first.
func (s *Service) ListSessions(ctx context.Context) ([]*Session, error) {
	return s.store.ListSessions(ctx)
}

// SessionDetails returns the session and its assignments ordered by
// (date, slot, exam count). Fails with ErrNotFound for an unknown id.
func (s *Service) SessionDetails(ctx context.Context, id int64) (*SessionDetails, error) {
	sess, err := s.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	assignments, err := s.store.ListAssignments(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("listing assignments: %w", err)
	}
	return &SessionDetails{Session: sess, Assignments: assignments}, nil
}

// DeleteSession removes a session, its assignments (by cascade), and its
// mirrored spreadsheet file. A missing mirror file is not an error.
func (s *Service) DeleteSession(ctx context.Context, id int64) error {
	sess, err := s.store.GetSession(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.DeleteSession(ctx, id); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}

	if sess.FilePath != "" && s.files.Exists(sess.FilePath) {
		if err := s.files.Remove(sess.FilePath); err != nil {
			return fmt.Errorf("%w: removing mirror file: %v", ErrIO, err)
		}
	}

	s.logger.Info("session deleted", "id", id, "name", sess.Name)
	return nil
}

// ExportSession copies a session's mirrored file to destPath. Unlike
// DeleteSession, a session without a mirror (or with a missing file) is
// an error here: there is nothing to export.
func (s *Service) ExportSession(ctx context.Context, id int64, destPath string) error {
	sess, err := s.store.GetSession(ctx, id)
	if err != nil {
		return err
	}
	if sess.FilePath == "" || !s.files.Exists(sess.FilePath) {
		return fmt.Errorf("%w: session %d has no mirror file", ErrNotFound, id)
	}
	if err := s.files.Copy(sess.FilePath, destPath); err != nil {
		return fmt.Errorf("%w: exporting session file: %v", ErrIO, err)
	}
	s.logger.Info("session exported", "id", id, "dest", destPath)
	return nil
}
