package roster

import "time"

// SessionType distinguishes the two exam periods a roster can cover.
type SessionType string

const (
	SessionPrincipale SessionType = "principale"
	SessionRattrapage SessionType = "rattrapage"
)

// Semester identifies the academic half-year of a session.
type Semester string

const (
	SemesterS1 Semester = "S1"
	SemesterS2 Semester = "S2"
)

// Session is a named snapshot of one full surveillance roster.
// The cached stats_* counts are computed once at save time and are not
// kept in sync with later swap/move edits.
type Session struct {
	ID        int64
	Name      string
	Type      SessionType
	Semester  Semester
	Year      int
	CreatedAt time.Time
	FilePath  string // mirrored spreadsheet, empty if none was captured

	TotalAssignments int
	TeacherCount     int
	ExamCount        int
}

// Assignment is one teacher's presence at one date/slot within a session.
// Teacher name and email are denormalized copies captured at insert time so
// a session stays self-contained if the source teacher list changes later.
type Assignment struct {
	ID        int64
	SessionID int64

	Date      string // calendar date as given by the solver, not parsed
	DayNumber int
	Slot      string // slot label within the day (S1..S4)
	TimeStart string // "HH:MM"
	TimeEnd   string // "HH:MM"
	ExamCount int

	TeacherID   string
	Grade       string
	Responsible string // literal "Oui"/"Non"/"OUI", preserved as given
	FirstName   string
	LastName    string
	Email       string
}

// SlotTimes carries the scheduling metadata a teacher adopts when moved
// into an existing slot.
type SlotTimes struct {
	Date      string
	TimeStart string
	TimeEnd   string
	ExamCount int
}

// SessionDetails bundles a session with its full assignment list.
type SessionDetails struct {
	Session     *Session
	Assignments []*Assignment
}
