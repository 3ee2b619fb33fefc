package roster

import "context"

// Store is the durable session-history storage. It is opened once at
// startup, injected into every caller, and owns the on-disk database file
// exclusively: no other component writes to it.
//
// The multi-step mutation methods (CreateSession, SwapAssignments,
// MoveAssignment, DeleteSession) each run in a single transaction; a
// failure of any step rolls the whole operation back.
type Store interface {
	// CreateSession inserts the session row and all its assignments in one
	// transaction and returns the new session id.
	CreateSession(ctx context.Context, s *Session, assignments []*Assignment) (int64, error)

	// ListSessions returns all sessions, newest creation timestamp first.
	ListSessions(ctx context.Context) ([]*Session, error)

	// GetSession returns the session with the given id.
	// Fails with ErrNotFound if no such session exists.
	GetSession(ctx context.Context, id int64) (*Session, error)

	// LatestSession returns the session with the newest creation timestamp,
	// ties broken by highest id. Fails with ErrNotFound when the store is empty.
	LatestSession(ctx context.Context) (*Session, error)

	// DeleteSession removes the session and, by cascade, all its assignments.
	DeleteSession(ctx context.Context, id int64) error

	// ListAssignments returns a session's assignments ordered by
	// (date, slot, exam count).
	ListAssignments(ctx context.Context, sessionID int64) ([]*Assignment, error)

	// FindAssignment looks up the row addressed by the natural
	// (teacher id, day, slot) tuple within a session.
	// Fails with ErrNotFound when no row matches.
	FindAssignment(ctx context.Context, sessionID int64, teacherID string, day int, slot string) (*Assignment, error)

	// FindSlotTimes returns the scheduling metadata of any one existing row
	// at (day, slot) within a session. Fails with ErrNotFound when the slot
	// does not exist for anyone.
	FindSlotTimes(ctx context.Context, sessionID int64, day int, slot string) (*SlotTimes, error)

	// SwapAssignments exchanges the teacher identity fields (teacher id,
	// names, email, grade) between the two rows, addressed by their
	// immutable row ids, in one transaction. All scheduling columns stay
	// with their rows.
	SwapAssignments(ctx context.Context, aID, bID int64) error

	// MoveAssignment deletes the row and reinserts it at (day, slot) with
	// the destination's scheduling metadata, preserving the teacher
	// identity, grade, and responsibility fields, in one transaction.
	MoveAssignment(ctx context.Context, rowID int64, day int, slot string, dest *SlotTimes) error

	// Aggregations for the dashboard, all scoped to one session and
	// computed by grouped queries on every call.
	GradeStats(ctx context.Context, sessionID int64) ([]*GradeStat, error)
	TopTeachers(ctx context.Context, sessionID int64, limit int) ([]*TeacherLoad, error)
	AssignmentsByDay(ctx context.Context, sessionID int64) ([]*DayStat, error)
	AssignmentsBySlot(ctx context.Context, sessionID int64) ([]*SlotStat, error)
	ExamCountHistogram(ctx context.Context, sessionID int64, limit int) ([]*ExamBucket, error)
	ResponsibleTeacherCount(ctx context.Context, sessionID int64) (int, error)

	// BackupTo writes a complete snapshot of the store to destPath.
	BackupTo(destPath string) error

	// Close releases the underlying database handle.
	Close() error
}
