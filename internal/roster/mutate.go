package roster

import (
	"context"
	"fmt"
)

// TeacherSlot addresses one teacher's assignment within the latest session
// by the natural (teacher id, day, slot) tuple.
type TeacherSlot struct {
	TeacherID string
	Day       int
	Slot      string
}

// SlotRef addresses a slot within the latest session.
type SlotRef struct {
	Day  int
	Slot string
}

// SwapTeachers exchanges two teachers' full slot identities (teacher id,
// names, email, grade) between two distinct slots of the latest session.
// The store writes happen in one transaction addressed by the rows'
// immutable ids; the mirrored spreadsheet is patched afterwards. A failure
// during the spreadsheet rewrite leaves store and file inconsistent; the
// mirror is best-effort and regenerated on the next save.
func (s *Service) SwapTeachers(ctx context.Context, t1, t2 TeacherSlot) error {
	sess, err := s.store.LatestSession(ctx)
	if err != nil {
		return err
	}

	a, err := s.store.FindAssignment(ctx, sess.ID, t1.TeacherID, t1.Day, t1.Slot)
	if err != nil {
		return err
	}
	b, err := s.store.FindAssignment(ctx, sess.ID, t2.TeacherID, t2.Day, t2.Slot)
	if err != nil {
		return err
	}
	if a.ID == b.ID {
		return fmt.Errorf("swap targets address the same assignment")
	}

	if err := s.store.SwapAssignments(ctx, a.ID, b.ID); err != nil {
		return fmt.Errorf("swapping assignments: %w", err)
	}

	s.logger.Info("teachers swapped",
		"session", sess.ID,
		"teacher1", t1.TeacherID, "day1", t1.Day, "slot1", t1.Slot,
		"teacher2", t2.TeacherID, "day2", t2.Day, "slot2", t2.Slot)

	for _, path := range s.mirrorPaths(sess) {
		if err := s.rewriteSwap(path, t1, t2, a, b); err != nil {
			return err
		}
	}
	return nil
}

// MoveTeacher relocates one teacher from one slot of the latest session to
// a different slot, adopting the destination slot's date, time range, and
// exam count. The destination must already exist for someone.
func (s *Service) MoveTeacher(ctx context.Context, teacherID string, from, to SlotRef) error {
	sess, err := s.store.LatestSession(ctx)
	if err != nil {
		return err
	}

	cur, err := s.store.FindAssignment(ctx, sess.ID, teacherID, from.Day, from.Slot)
	if err != nil {
		return err
	}
	dest, err := s.store.FindSlotTimes(ctx, sess.ID, to.Day, to.Slot)
	if err != nil {
		return err
	}

	if err := s.store.MoveAssignment(ctx, cur.ID, to.Day, to.Slot, dest); err != nil {
		return fmt.Errorf("moving assignment: %w", err)
	}

	s.logger.Info("teacher moved",
		"session", sess.ID, "teacher", teacherID,
		"fromDay", from.Day, "fromSlot", from.Slot,
		"toDay", to.Day, "toSlot", to.Slot)

	for _, path := range s.mirrorPaths(sess) {
		if err := s.rewriteMove(path, cur, from, to); err != nil {
			return err
		}
	}
	return nil
}

// mirrorPaths returns the spreadsheet files that must track the latest
// session's store state: the session's own mirror and, when distinct, the
// active result file the document generator consumes.
func (s *Service) mirrorPaths(sess *Session) []string {
	var paths []string
	if sess.FilePath != "" && s.files.Exists(sess.FilePath) {
		paths = append(paths, sess.FilePath)
	}
	if s.resultPath != sess.FilePath && s.files.Exists(s.resultPath) {
		paths = append(paths, s.resultPath)
	}
	return paths
}

// rewriteSwap patches one spreadsheet file: rows matching teacher1's slot
// get teacher2's identity fields and vice versa; everything else passes
// through unchanged.
func (s *Service) rewriteSwap(path string, t1, t2 TeacherSlot, a, b *Assignment) error {
	rows, err := s.codec.Decode(path)
	if err != nil {
		return fmt.Errorf("reading mirror %s: %w", path, err)
	}

	for _, row := range rows {
		switch {
		case rowMatches(row, t1.TeacherID, t1.Day, t1.Slot):
			setIdentity(row, b)
		case rowMatches(row, t2.TeacherID, t2.Day, t2.Slot):
			setIdentity(row, a)
		}
	}

	if err := s.codec.Encode(rows, path); err != nil {
		return fmt.Errorf("rewriting mirror %s: %w", path, err)
	}
	return nil
}

// rewriteMove patches one spreadsheet file: the moved teacher's old row is
// dropped and a new row is appended, built from any existing row of the
// destination slot plus the teacher's preserved personal fields.
func (s *Service) rewriteMove(path string, cur *Assignment, from, to SlotRef) error {
	rows, err := s.codec.Decode(path)
	if err != nil {
		return fmt.Errorf("reading mirror %s: %w", path, err)
	}

	kept := rows[:0]
	var target *Row
	for _, row := range rows {
		if rowMatches(row, cur.TeacherID, from.Day, from.Slot) {
			continue
		}
		if target == nil && row.Int(ColDay) == to.Day && row.String(ColSlot) == to.Slot {
			target = row
		}
		kept = append(kept, row)
	}

	if target != nil {
		moved := NewRow()
		moved.Set(ColDate, target.String(ColDate))
		moved.Set(ColDay, to.Day)
		moved.Set(ColSlot, to.Slot)
		moved.Set(ColTimeStart, target.String(ColTimeStart))
		moved.Set(ColTimeEnd, target.String(ColTimeEnd))
		moved.Set(ColExamCount, target.Int(ColExamCount))
		moved.Set(ColTeacherID, cur.TeacherID)
		moved.Set(ColLastName, cur.LastName)
		moved.Set(ColFirstName, cur.FirstName)
		moved.Set(ColEmail, cur.Email)
		moved.Set(ColGrade, cur.Grade)
		moved.Set(ColResponsible, cur.Responsible)
		kept = append(kept, moved)
	}

	if err := s.codec.Encode(kept, path); err != nil {
		return fmt.Errorf("rewriting mirror %s: %w", path, err)
	}
	return nil
}

// rowMatches reports whether a spreadsheet row addresses the given
// (teacher id, day, slot) tuple. Day cells may decode as numbers or text.
func rowMatches(row *Row, teacherID string, day int, slot string) bool {
	return row.String(ColTeacherID) == teacherID &&
		row.Int(ColDay) == day &&
		row.String(ColSlot) == slot
}

// setIdentity overwrites a row's teacher identity fields from an
// assignment, leaving the scheduling columns untouched. Grade travels with
// the teacher, not the slot.
func setIdentity(row *Row, a *Assignment) {
	row.Set(ColTeacherID, a.TeacherID)
	row.Set(ColLastName, a.LastName)
	row.Set(ColFirstName, a.FirstName)
	row.Set(ColEmail, a.Email)
	row.Set(ColGrade, a.Grade)
}
