package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"roster-go/internal/database/migrations"
	"roster-go/internal/roster"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore implements the roster.Store interface using SQLite.
// It is the single writer of the database file; all multi-step mutations
// run inside one transaction.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (creating if absent) the store at path, applies
// the base schema, evolves any missing columns, and creates the secondary
// indexes. path can be ":memory:" for tests.
//
// Any schema-evolution failure aborts initialization entirely: a
// partially-migrated store is unsafe to use.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying base schema: %w", err)
	}

	if err := evolveSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("evolving schema: %w", err)
	}

	if err := createIndexes(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating indexes: %w", err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// OpenConnection opens and configures a SQLite connection with the
// appropriate PRAGMAs. Exported for tools and tests that need a properly
// configured connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign key constraints (SQLite default is OFF for backward
	// compatibility); session deletion relies on cascade delete.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// Path returns the database file path (or ":memory:").
func (s *SQLiteStore) Path() string {
	return s.path
}

// Session operations

const sessionColumns = `id, name, session_type, semester, year, created_at, file_path,
	stats_total_assignments, stats_teachers_count, stats_exams_count`

func (s *SQLiteStore) CreateSession(ctx context.Context, sess *roster.Session, assignments []*roster.Assignment) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO planning_sessions
		(name, session_type, semester, year, created_at, file_path,
		 stats_total_assignments, stats_teachers_count, stats_exams_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.Name, string(sess.Type), string(sess.Semester), sess.Year,
		sess.CreatedAt.UTC(), nullString(sess.FilePath),
		sess.TotalAssignments, sess.TeacherCount, sess.ExamCount,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting session: %w", err)
	}

	sessionID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading session id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO planning_assignments
		(session_id, date, day_number, session, time_start, time_end, exam_count,
		 teacher_id, grade, is_responsible, teacher_first_name, teacher_last_name, teacher_email)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing assignment insert: %w", err)
	}
	defer stmt.Close()

	for _, a := range assignments {
		_, err := stmt.ExecContext(ctx,
			sessionID, a.Date, a.DayNumber, a.Slot, a.TimeStart, a.TimeEnd, a.ExamCount,
			a.TeacherID, a.Grade, a.Responsible, a.FirstName, a.LastName, a.Email,
		)
		if err != nil {
			return 0, fmt.Errorf("inserting assignment for %s: %w", a.TeacherID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}

	return sessionID, nil
}

func (s *SQLiteStore) ListSessions(ctx context.Context) ([]*roster.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sessionColumns+` FROM planning_sessions
		ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*roster.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

func (s *SQLiteStore) GetSession(ctx context.Context, id int64) (*roster.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+` FROM planning_sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: session %d", roster.ErrNotFound, id)
		}
		return nil, err
	}
	return sess, nil
}

func (s *SQLiteStore) LatestSession(ctx context.Context) (*roster.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+` FROM planning_sessions
		ORDER BY created_at DESC, id DESC
		LIMIT 1`)
	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: no session", roster.ErrNotFound)
		}
		return nil, err
	}
	return sess, nil
}

func (s *SQLiteStore) DeleteSession(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM planning_sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: session %d", roster.ErrNotFound, id)
	}
	return nil
}

// Assignment operations

const assignmentColumns = `id, session_id, date, day_number, session, time_start, time_end,
	COALESCE(exam_count, 0), teacher_id, grade, is_responsible,
	COALESCE(teacher_first_name, ''), COALESCE(teacher_last_name, ''), COALESCE(teacher_email, '')`

func (s *SQLiteStore) ListAssignments(ctx context.Context, sessionID int64) ([]*roster.Assignment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+assignmentColumns+` FROM planning_assignments
		WHERE session_id = ?
		ORDER BY date, session, exam_count`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("listing assignments: %w", err)
	}
	defer rows.Close()

	var assignments []*roster.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

func (s *SQLiteStore) FindAssignment(ctx context.Context, sessionID int64, teacherID string, day int, slot string) (*roster.Assignment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+assignmentColumns+` FROM planning_assignments
		WHERE session_id = ? AND teacher_id = ? AND day_number = ? AND session = ?`,
		sessionID, teacherID, day, slot)
	a, err := scanAssignment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: assignment not found", roster.ErrNotFound)
		}
		return nil, err
	}
	return a, nil
}

func (s *SQLiteStore) FindSlotTimes(ctx context.Context, sessionID int64, day int, slot string) (*roster.SlotTimes, error) {
	var st roster.SlotTimes
	err := s.db.QueryRowContext(ctx, `
		SELECT date, time_start, time_end, COALESCE(exam_count, 0)
		FROM planning_assignments
		WHERE session_id = ? AND day_number = ? AND session = ?
		LIMIT 1`,
		sessionID, day, slot,
	).Scan(&st.Date, &st.TimeStart, &st.TimeEnd, &st.ExamCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: target slot not found", roster.ErrNotFound)
		}
		return nil, fmt.Errorf("finding slot times: %w", err)
	}
	return &st, nil
}

// SwapAssignments exchanges teacher identity fields between two rows.
// Both updates address rows by their immutable id, so the natural
// (teacher id, day, slot) key can collide mid-swap without ambiguity and
// no staging sentinel is needed.
func (s *SQLiteStore) SwapAssignments(ctx context.Context, aID, bID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	a, err := getAssignmentTx(ctx, tx, aID)
	if err != nil {
		return err
	}
	b, err := getAssignmentTx(ctx, tx, bID)
	if err != nil {
		return err
	}

	for _, pair := range []struct {
		rowID    int64
		identity *roster.Assignment
	}{{a.ID, b}, {b.ID, a}} {
		_, err := tx.ExecContext(ctx, `
			UPDATE planning_assignments
			SET teacher_id = ?, teacher_first_name = ?, teacher_last_name = ?,
			    teacher_email = ?, grade = ?
			WHERE id = ?`,
			pair.identity.TeacherID, pair.identity.FirstName, pair.identity.LastName,
			pair.identity.Email, pair.identity.Grade, pair.rowID,
		)
		if err != nil {
			return fmt.Errorf("updating assignment %d: %w", pair.rowID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// MoveAssignment deletes the row and reinserts it at the destination slot
// with the destination's scheduling metadata and the teacher's preserved
// identity, grade, and responsibility fields.
func (s *SQLiteStore) MoveAssignment(ctx context.Context, rowID int64, day int, slot string, dest *roster.SlotTimes) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	cur, err := getAssignmentTx(ctx, tx, rowID)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM planning_assignments WHERE id = ?`, rowID); err != nil {
		return fmt.Errorf("deleting assignment: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO planning_assignments
		(session_id, date, day_number, session, time_start, time_end, exam_count,
		 teacher_id, grade, is_responsible, teacher_first_name, teacher_last_name, teacher_email)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cur.SessionID, dest.Date, day, slot, dest.TimeStart, dest.TimeEnd, dest.ExamCount,
		cur.TeacherID, cur.Grade, cur.Responsible, cur.FirstName, cur.LastName, cur.Email,
	)
	if err != nil {
		return fmt.Errorf("inserting moved assignment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Dashboard aggregations

func (s *SQLiteStore) GradeStats(ctx context.Context, sessionID int64) ([]*roster.GradeStat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT grade,
		       COUNT(DISTINCT teacher_id),
		       COUNT(*),
		       SUM(CASE WHEN is_responsible = 'Oui' COLLATE NOCASE THEN 1 ELSE 0 END)
		FROM planning_assignments
		WHERE session_id = ?
		GROUP BY grade
		ORDER BY grade`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying grade stats: %w", err)
	}
	defer rows.Close()

	var stats []*roster.GradeStat
	for rows.Next() {
		g := &roster.GradeStat{}
		if err := rows.Scan(&g.Grade, &g.TeacherCount, &g.TotalAssignments, &g.ResponsibleCount); err != nil {
			return nil, fmt.Errorf("scanning grade stat: %w", err)
		}
		stats = append(stats, g)
	}
	return stats, rows.Err()
}

func (s *SQLiteStore) TopTeachers(ctx context.Context, sessionID int64, limit int) ([]*roster.TeacherLoad, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT teacher_id,
		       COALESCE(teacher_first_name, ''),
		       COALESCE(teacher_last_name, ''),
		       COALESCE(teacher_email, ''),
		       grade,
		       COUNT(*) AS assignment_count
		FROM planning_assignments
		WHERE session_id = ?
		GROUP BY teacher_id
		ORDER BY assignment_count DESC
		LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying top teachers: %w", err)
	}
	defer rows.Close()

	var loads []*roster.TeacherLoad
	for rows.Next() {
		t := &roster.TeacherLoad{}
		if err := rows.Scan(&t.TeacherID, &t.FirstName, &t.LastName, &t.Email, &t.Grade, &t.AssignmentCount); err != nil {
			return nil, fmt.Errorf("scanning teacher load: %w", err)
		}
		loads = append(loads, t)
	}
	return loads, rows.Err()
}

func (s *SQLiteStore) AssignmentsByDay(ctx context.Context, sessionID int64) ([]*roster.DayStat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, day_number, COUNT(DISTINCT teacher_id), COUNT(*)
		FROM planning_assignments
		WHERE session_id = ?
		GROUP BY date, day_number
		ORDER BY day_number`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying assignments by day: %w", err)
	}
	defer rows.Close()

	var stats []*roster.DayStat
	for rows.Next() {
		d := &roster.DayStat{}
		if err := rows.Scan(&d.Date, &d.DayNumber, &d.TeacherCount, &d.AssignmentCount); err != nil {
			return nil, fmt.Errorf("scanning day stat: %w", err)
		}
		stats = append(stats, d)
	}
	return stats, rows.Err()
}

func (s *SQLiteStore) AssignmentsBySlot(ctx context.Context, sessionID int64) ([]*roster.SlotStat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session, COUNT(*), COUNT(DISTINCT teacher_id)
		FROM planning_assignments
		WHERE session_id = ?
		GROUP BY session
		ORDER BY session`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying assignments by slot: %w", err)
	}
	defer rows.Close()

	var stats []*roster.SlotStat
	for rows.Next() {
		sl := &roster.SlotStat{}
		if err := rows.Scan(&sl.Slot, &sl.Count, &sl.UniqueTeachers); err != nil {
			return nil, fmt.Errorf("scanning slot stat: %w", err)
		}
		stats = append(stats, sl)
	}
	return stats, rows.Err()
}

func (s *SQLiteStore) ExamCountHistogram(ctx context.Context, sessionID int64, limit int) ([]*roster.ExamBucket, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(exam_count, 0) AS exams, COUNT(*) AS usage_count, COUNT(DISTINCT date)
		FROM planning_assignments
		WHERE session_id = ?
		GROUP BY exams
		ORDER BY usage_count DESC
		LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying exam histogram: %w", err)
	}
	defer rows.Close()

	var buckets []*roster.ExamBucket
	for rows.Next() {
		b := &roster.ExamBucket{}
		if err := rows.Scan(&b.ExamCount, &b.UsageCount, &b.DaysUsed); err != nil {
			return nil, fmt.Errorf("scanning exam bucket: %w", err)
		}
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}

func (s *SQLiteStore) ResponsibleTeacherCount(ctx context.Context, sessionID int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT teacher_id)
		FROM planning_assignments
		WHERE session_id = ? AND is_responsible = 'Oui' COLLATE NOCASE`, sessionID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting responsible teachers: %w", err)
	}
	return count, nil
}

// BackupTo creates a complete copy of the database at destPath using VACUUM INTO.
func (s *SQLiteStore) BackupTo(destPath string) error {
	if _, err := s.db.Exec("VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// scanning helpers

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(r rowScanner) (*roster.Session, error) {
	var (
		sess     roster.Session
		typ, sem string
		filePath sql.NullString
		total    sql.NullInt64
		teachers sql.NullInt64
		exams    sql.NullInt64
	)
	err := r.Scan(&sess.ID, &sess.Name, &typ, &sem, &sess.Year, &sess.CreatedAt,
		&filePath, &total, &teachers, &exams)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning session: %w", err)
	}
	sess.Type = roster.SessionType(typ)
	sess.Semester = roster.Semester(sem)
	sess.FilePath = filePath.String
	sess.TotalAssignments = int(total.Int64)
	sess.TeacherCount = int(teachers.Int64)
	sess.ExamCount = int(exams.Int64)
	return &sess, nil
}

func scanAssignment(r rowScanner) (*roster.Assignment, error) {
	var a roster.Assignment
	err := r.Scan(&a.ID, &a.SessionID, &a.Date, &a.DayNumber, &a.Slot,
		&a.TimeStart, &a.TimeEnd, &a.ExamCount, &a.TeacherID, &a.Grade,
		&a.Responsible, &a.FirstName, &a.LastName, &a.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning assignment: %w", err)
	}
	return &a, nil
}

func getAssignmentTx(ctx context.Context, tx *sql.Tx, id int64) (*roster.Assignment, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT `+assignmentColumns+` FROM planning_assignments WHERE id = ?`, id)
	a, err := scanAssignment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: assignment %d", roster.ErrNotFound, id)
		}
		return nil, err
	}
	return a, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Compile-time check that SQLiteStore implements roster.Store.
var _ roster.Store = (*SQLiteStore)(nil)
