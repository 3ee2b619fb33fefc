package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"roster-go/internal/roster"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testAssignment(teacherID string, day int, slot string) *roster.Assignment {
	return &roster.Assignment{
		Date:        "2025-06-1" + slot[len(slot)-1:],
		DayNumber:   day,
		Slot:        slot,
		TimeStart:   "08:30",
		TimeEnd:     "10:00",
		ExamCount:   2,
		TeacherID:   teacherID,
		Grade:       "MCA",
		Responsible: "Non",
		FirstName:   "First-" + teacherID,
		LastName:    "Last-" + teacherID,
		Email:       teacherID + "@univ.dz",
	}
}

func seedSession(t *testing.T, s *SQLiteStore, name string, created time.Time, assignments []*roster.Assignment) int64 {
	t.Helper()
	id, err := s.CreateSession(context.Background(), &roster.Session{
		Name:             name,
		Type:             roster.SessionPrincipale,
		Semester:         roster.SemesterS1,
		Year:             created.Year(),
		CreatedAt:        created,
		TotalAssignments: len(assignments),
	}, assignments)
	if err != nil {
		t.Fatalf("CreateSession(%s) error = %v", name, err)
	}
	return id
}

func TestCreateAndGetSession(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	created := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

	id, err := store.CreateSession(ctx, &roster.Session{
		Name:             "session juin",
		Type:             roster.SessionRattrapage,
		Semester:         roster.SemesterS2,
		Year:             2025,
		CreatedAt:        created,
		FilePath:         "/data/saved/session_juin.xlsx",
		TotalAssignments: 2,
		TeacherCount:     2,
		ExamCount:        5,
	}, []*roster.Assignment{
		testAssignment("T1", 1, "S1"),
		testAssignment("T2", 1, "S2"),
	})
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	sess, err := store.GetSession(ctx, id)
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if sess.Name != "session juin" {
		t.Errorf("Name = %q, want %q", sess.Name, "session juin")
	}
	if sess.Type != roster.SessionRattrapage {
		t.Errorf("Type = %q, want rattrapage", sess.Type)
	}
	if sess.Semester != roster.SemesterS2 {
		t.Errorf("Semester = %q, want S2", sess.Semester)
	}
	if sess.FilePath != "/data/saved/session_juin.xlsx" {
		t.Errorf("FilePath = %q", sess.FilePath)
	}
	if sess.TotalAssignments != 2 || sess.TeacherCount != 2 || sess.ExamCount != 5 {
		t.Errorf("cached counts = (%d, %d, %d), want (2, 2, 5)",
			sess.TotalAssignments, sess.TeacherCount, sess.ExamCount)
	}

	assignments, err := store.ListAssignments(ctx, id)
	if err != nil {
		t.Fatalf("ListAssignments() error = %v", err)
	}
	if len(assignments) != 2 {
		t.Fatalf("got %d assignments, want 2", len(assignments))
	}

	t.Run("unknown id", func(t *testing.T) {
		_, err := store.GetSession(ctx, 9999)
		if !errors.Is(err, roster.ErrNotFound) {
			t.Errorf("GetSession(9999) error = %v, want ErrNotFound", err)
		}
	})
}

func TestLatestSession(t *testing.T) {
	ctx := context.Background()

	t.Run("empty store", func(t *testing.T) {
		store := newTestStore(t)
		_, err := store.LatestSession(ctx)
		if !errors.Is(err, roster.ErrNotFound) {
			t.Errorf("LatestSession() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("newest timestamp wins", func(t *testing.T) {
		store := newTestStore(t)
		seedSession(t, store, "old", time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC), nil)
		newID := seedSession(t, store, "new", time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC), nil)

		latest, err := store.LatestSession(ctx)
		if err != nil {
			t.Fatalf("LatestSession() error = %v", err)
		}
		if latest.ID != newID {
			t.Errorf("latest id = %d, want %d", latest.ID, newID)
		}
	})

	t.Run("timestamp tie broken by highest id", func(t *testing.T) {
		store := newTestStore(t)
		created := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
		seedSession(t, store, "first", created, nil)
		secondID := seedSession(t, store, "second", created, nil)

		latest, err := store.LatestSession(ctx)
		if err != nil {
			t.Fatalf("LatestSession() error = %v", err)
		}
		if latest.ID != secondID {
			t.Errorf("latest id = %d, want %d", latest.ID, secondID)
		}
	})
}

func TestListSessions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedSession(t, store, "older", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), nil)
	seedSession(t, store, "newer", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), nil)

	sessions, err := store.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions() error = %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("got %d sessions, want 2", len(sessions))
	}
	if sessions[0].Name != "newer" || sessions[1].Name != "older" {
		t.Errorf("order = [%s, %s], want [newer, older]", sessions[0].Name, sessions[1].Name)
	}
}

func TestDeleteSession(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	id := seedSession(t, store, "doomed", time.Now().UTC(), []*roster.Assignment{
		testAssignment("T1", 1, "S1"),
		testAssignment("T2", 2, "S3"),
	})

	if err := store.DeleteSession(ctx, id); err != nil {
		t.Fatalf("DeleteSession() error = %v", err)
	}

	if _, err := store.GetSession(ctx, id); !errors.Is(err, roster.ErrNotFound) {
		t.Errorf("GetSession after delete error = %v, want ErrNotFound", err)
	}

	// Cascade must have removed the assignments too.
	assignments, err := store.ListAssignments(ctx, id)
	if err != nil {
		t.Fatalf("ListAssignments() error = %v", err)
	}
	if len(assignments) != 0 {
		t.Errorf("got %d assignments after cascade delete, want 0", len(assignments))
	}

	t.Run("unknown id", func(t *testing.T) {
		if err := store.DeleteSession(ctx, id); !errors.Is(err, roster.ErrNotFound) {
			t.Errorf("DeleteSession() error = %v, want ErrNotFound", err)
		}
	})
}

func TestFindAssignment(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	id := seedSession(t, store, "s", time.Now().UTC(), []*roster.Assignment{
		testAssignment("T1", 1, "S1"),
		testAssignment("T1", 2, "S2"),
	})

	a, err := store.FindAssignment(ctx, id, "T1", 2, "S2")
	if err != nil {
		t.Fatalf("FindAssignment() error = %v", err)
	}
	if a.TeacherID != "T1" || a.DayNumber != 2 || a.Slot != "S2" {
		t.Errorf("got (%s, %d, %s), want (T1, 2, S2)", a.TeacherID, a.DayNumber, a.Slot)
	}
	if a.ID == 0 {
		t.Error("assignment row id not populated")
	}

	_, err = store.FindAssignment(ctx, id, "T1", 3, "S1")
	if !errors.Is(err, roster.ErrNotFound) {
		t.Errorf("FindAssignment(missing) error = %v, want ErrNotFound", err)
	}
}

func TestFindSlotTimes(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	occupant := testAssignment("T9", 3, "S4")
	occupant.Date = "2025-06-18"
	occupant.TimeStart = "14:00"
	occupant.TimeEnd = "15:30"
	occupant.ExamCount = 4
	id := seedSession(t, store, "s", time.Now().UTC(), []*roster.Assignment{occupant})

	st, err := store.FindSlotTimes(ctx, id, 3, "S4")
	if err != nil {
		t.Fatalf("FindSlotTimes() error = %v", err)
	}
	if st.Date != "2025-06-18" || st.TimeStart != "14:00" || st.TimeEnd != "15:30" || st.ExamCount != 4 {
		t.Errorf("got %+v, want occupant metadata", st)
	}

	_, err = store.FindSlotTimes(ctx, id, 4, "S1")
	if !errors.Is(err, roster.ErrNotFound) {
		t.Errorf("FindSlotTimes(empty slot) error = %v, want ErrNotFound", err)
	}
}

func TestSwapAssignments(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a1 := testAssignment("T1", 1, "S1")
	a1.Grade = "PR"
	a1.Responsible = "Oui"
	a2 := testAssignment("T2", 2, "S3")
	a2.Grade = "MAA"
	id := seedSession(t, store, "s", time.Now().UTC(), []*roster.Assignment{a1, a2})

	rowA, _ := store.FindAssignment(ctx, id, "T1", 1, "S1")
	rowB, _ := store.FindAssignment(ctx, id, "T2", 2, "S3")

	if err := store.SwapAssignments(ctx, rowA.ID, rowB.ID); err != nil {
		t.Fatalf("SwapAssignments() error = %v", err)
	}

	// T2 now occupies the first row's slot with its own identity and grade.
	got, err := store.FindAssignment(ctx, id, "T2", 1, "S1")
	if err != nil {
		t.Fatalf("FindAssignment(T2 at slot1) error = %v", err)
	}
	if got.ID != rowA.ID {
		t.Errorf("row id = %d, want %d (row ids must not change)", got.ID, rowA.ID)
	}
	if got.Grade != "MAA" {
		t.Errorf("grade = %q, want MAA (grade travels with the teacher)", got.Grade)
	}
	if got.FirstName != "First-T2" || got.Email != "T2@univ.dz" {
		t.Errorf("identity fields not swapped: %+v", got)
	}
	if got.TimeStart != "08:30" || got.DayNumber != 1 {
		t.Errorf("scheduling fields moved with the teacher: %+v", got)
	}
	// Responsibility stays with the slot.
	if got.Responsible != "Oui" {
		t.Errorf("responsible = %q, want Oui (stays with the row)", got.Responsible)
	}

	other, err := store.FindAssignment(ctx, id, "T1", 2, "S3")
	if err != nil {
		t.Fatalf("FindAssignment(T1 at slot2) error = %v", err)
	}
	if other.Grade != "PR" {
		t.Errorf("grade = %q, want PR", other.Grade)
	}

	t.Run("swap back restores the original roster", func(t *testing.T) {
		if err := store.SwapAssignments(ctx, rowA.ID, rowB.ID); err != nil {
			t.Fatalf("SwapAssignments() error = %v", err)
		}
		restored, err := store.FindAssignment(ctx, id, "T1", 1, "S1")
		if err != nil {
			t.Fatalf("FindAssignment() error = %v", err)
		}
		if restored.Grade != "PR" || restored.Email != "T1@univ.dz" {
			t.Errorf("swap is not self-inverse: %+v", restored)
		}
	})

	t.Run("unknown row id rolls back", func(t *testing.T) {
		if err := store.SwapAssignments(ctx, rowA.ID, 9999); !errors.Is(err, roster.ErrNotFound) {
			t.Errorf("SwapAssignments(bad id) error = %v, want ErrNotFound", err)
		}
	})
}

func TestMoveAssignment(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	moving := testAssignment("T1", 1, "S1")
	moving.Responsible = "Oui"
	occupant := testAssignment("T2", 2, "S3")
	occupant.Date = "2025-06-17"
	occupant.TimeStart = "10:15"
	occupant.TimeEnd = "11:45"
	occupant.ExamCount = 6
	id := seedSession(t, store, "s", time.Now().UTC(), []*roster.Assignment{moving, occupant})

	cur, _ := store.FindAssignment(ctx, id, "T1", 1, "S1")
	dest, err := store.FindSlotTimes(ctx, id, 2, "S3")
	if err != nil {
		t.Fatalf("FindSlotTimes() error = %v", err)
	}

	if err := store.MoveAssignment(ctx, cur.ID, 2, "S3", dest); err != nil {
		t.Fatalf("MoveAssignment() error = %v", err)
	}

	// Old position is vacated.
	if _, err := store.FindAssignment(ctx, id, "T1", 1, "S1"); !errors.Is(err, roster.ErrNotFound) {
		t.Errorf("old position still occupied, error = %v", err)
	}

	// New row carries the destination's scheduling metadata and the
	// teacher's preserved fields.
	got, err := store.FindAssignment(ctx, id, "T1", 2, "S3")
	if err != nil {
		t.Fatalf("FindAssignment(moved) error = %v", err)
	}
	if got.Date != "2025-06-17" || got.TimeStart != "10:15" || got.TimeEnd != "11:45" || got.ExamCount != 6 {
		t.Errorf("scheduling metadata not adopted: %+v", got)
	}
	if got.Grade != "MCA" || got.Responsible != "Oui" || got.Email != "T1@univ.dz" {
		t.Errorf("teacher fields not preserved: %+v", got)
	}
	if got.ID == cur.ID {
		t.Errorf("move must reinsert: row id unchanged (%d)", got.ID)
	}

	// Both teachers now share the slot.
	if _, err := store.FindAssignment(ctx, id, "T2", 2, "S3"); err != nil {
		t.Errorf("occupant displaced: %v", err)
	}
}

func TestGradeStats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a1 := testAssignment("T1", 1, "S1")
	a1.Grade = "PR"
	a1.Responsible = "OUI" // casing varies across producers
	a2 := testAssignment("T1", 2, "S1")
	a2.Grade = "PR"
	a3 := testAssignment("T2", 1, "S2")
	a3.Grade = "MCA"
	id := seedSession(t, store, "s", time.Now().UTC(), []*roster.Assignment{a1, a2, a3})

	stats, err := store.GradeStats(ctx, id)
	if err != nil {
		t.Fatalf("GradeStats() error = %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("got %d grades, want 2", len(stats))
	}

	// Ordered by grade: MCA before PR.
	if stats[0].Grade != "MCA" || stats[0].TeacherCount != 1 || stats[0].TotalAssignments != 1 {
		t.Errorf("MCA stat = %+v", stats[0])
	}
	if stats[1].Grade != "PR" || stats[1].TeacherCount != 1 || stats[1].TotalAssignments != 2 {
		t.Errorf("PR stat = %+v", stats[1])
	}
	if stats[1].ResponsibleCount != 1 {
		t.Errorf("PR responsible count = %d, want 1 (case-insensitive Oui)", stats[1].ResponsibleCount)
	}
}

func TestTopTeachers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var assignments []*roster.Assignment
	for day := 1; day <= 3; day++ {
		assignments = append(assignments, testAssignment("T1", day, "S1"))
	}
	assignments = append(assignments, testAssignment("T2", 1, "S2"))
	assignments = append(assignments, testAssignment("T3", 1, "S3"))
	id := seedSession(t, store, "s", time.Now().UTC(), assignments)

	top, err := store.TopTeachers(ctx, id, 2)
	if err != nil {
		t.Fatalf("TopTeachers() error = %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("got %d teachers, want 2 (limit)", len(top))
	}
	if top[0].TeacherID != "T1" || top[0].AssignmentCount != 3 {
		t.Errorf("top teacher = %+v, want T1 with 3", top[0])
	}
	if top[0].FirstName != "First-T1" || top[0].Email != "T1@univ.dz" {
		t.Errorf("denormalized identity missing: %+v", top[0])
	}
}

func TestAssignmentsByDayAndSlot(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a1 := testAssignment("T1", 1, "S1")
	a1.Date = "2025-06-11"
	a2 := testAssignment("T2", 1, "S1")
	a2.Date = "2025-06-11"
	a3 := testAssignment("T1", 2, "S2")
	a3.Date = "2025-06-12"
	id := seedSession(t, store, "s", time.Now().UTC(), []*roster.Assignment{a1, a2, a3})

	byDay, err := store.AssignmentsByDay(ctx, id)
	if err != nil {
		t.Fatalf("AssignmentsByDay() error = %v", err)
	}
	if len(byDay) != 2 {
		t.Fatalf("got %d days, want 2", len(byDay))
	}
	if byDay[0].DayNumber != 1 || byDay[0].AssignmentCount != 2 || byDay[0].TeacherCount != 2 {
		t.Errorf("day 1 stat = %+v", byDay[0])
	}

	bySlot, err := store.AssignmentsBySlot(ctx, id)
	if err != nil {
		t.Fatalf("AssignmentsBySlot() error = %v", err)
	}
	if len(bySlot) != 2 {
		t.Fatalf("got %d slots, want 2", len(bySlot))
	}
	if bySlot[0].Slot != "S1" || bySlot[0].Count != 2 || bySlot[0].UniqueTeachers != 2 {
		t.Errorf("S1 stat = %+v", bySlot[0])
	}
}

func TestExamCountHistogram(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mk := func(teacher string, day int, slot string, date string, exams int) *roster.Assignment {
		a := testAssignment(teacher, day, slot)
		a.Date = date
		a.ExamCount = exams
		return a
	}
	id := seedSession(t, store, "s", time.Now().UTC(), []*roster.Assignment{
		mk("T1", 1, "S1", "2025-06-11", 3),
		mk("T2", 1, "S2", "2025-06-11", 3),
		mk("T3", 2, "S1", "2025-06-12", 3),
		mk("T4", 2, "S2", "2025-06-12", 5),
	})

	buckets, err := store.ExamCountHistogram(ctx, id, 10)
	if err != nil {
		t.Fatalf("ExamCountHistogram() error = %v", err)
	}
	if len(buckets) != 2 {
		t.Fatalf("got %d buckets, want 2", len(buckets))
	}
	if buckets[0].ExamCount != 3 || buckets[0].UsageCount != 3 || buckets[0].DaysUsed != 2 {
		t.Errorf("top bucket = %+v, want 3 exams used 3 times over 2 days", buckets[0])
	}
}

func TestResponsibleTeacherCount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a1 := testAssignment("T1", 1, "S1")
	a1.Responsible = "Oui"
	a2 := testAssignment("T1", 2, "S1")
	a2.Responsible = "OUI" // same teacher twice, counted once
	a3 := testAssignment("T2", 1, "S2")
	a3.Responsible = "Non"
	id := seedSession(t, store, "s", time.Now().UTC(), []*roster.Assignment{a1, a2, a3})

	count, err := store.ResponsibleTeacherCount(ctx, id)
	if err != nil {
		t.Fatalf("ResponsibleTeacherCount() error = %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestBackupTo(t *testing.T) {
	store := newTestStore(t)
	id := seedSession(t, store, "snapshotted", time.Now().UTC(), []*roster.Assignment{
		testAssignment("T1", 1, "S1"),
	})

	dest := filepath.Join(t.TempDir(), "snapshot.db")
	if err := store.BackupTo(dest); err != nil {
		t.Fatalf("BackupTo() error = %v", err)
	}

	snap, err := NewSQLiteStore(dest)
	if err != nil {
		t.Fatalf("opening snapshot: %v", err)
	}
	defer snap.Close()

	sess, err := snap.GetSession(context.Background(), id)
	if err != nil {
		t.Fatalf("GetSession(snapshot) error = %v", err)
	}
	if sess.Name != "snapshotted" {
		t.Errorf("snapshot session name = %q, want snapshotted", sess.Name)
	}
}
