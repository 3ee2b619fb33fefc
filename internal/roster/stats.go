package roster

import (
	"context"
	"fmt"
)

// HoursPerAssignment is the assumed duration of one surveillance slot,
// used for the dashboard's workload estimate.
const HoursPerAssignment = 3

// GradeStat aggregates one academic grade's workload within a session.
type GradeStat struct {
	Grade            string
	TeacherCount     int
	TotalAssignments int
	ResponsibleCount int
	TotalHours       int
}

// TeacherLoad is one teacher's assignment count within a session.
type TeacherLoad struct {
	TeacherID       string
	FirstName       string
	LastName        string
	Email           string
	Grade           string
	AssignmentCount int
	TotalHours      int
}

// DayStat aggregates assignments for one calendar day of a session.
type DayStat struct {
	Date            string
	DayNumber       int
	TeacherCount    int
	AssignmentCount int
}

// SlotStat aggregates assignments for one slot label across all days.
type SlotStat struct {
	Slot           string
	Count          int
	UniqueTeachers int
}

// ExamBucket is one bar of the exam-count histogram: how many assignments
// carry a given exam count, and on how many distinct days it occurs.
type ExamBucket struct {
	ExamCount  int
	UsageCount int
	DaysUsed   int
}

// Overview summarizes the latest session for the dashboard header.
type Overview struct {
	TotalAssignments           int
	UniqueTeachers             int
	TotalDays                  int
	TeachersWithResponsibility int
	TotalHours                 int
}

// DashboardStats is everything the dashboard shows about the latest
// session. Nothing here is cached; each call recomputes from the store.
type DashboardStats struct {
	Session           *Session
	Overview          Overview
	StatsByGrade      []*GradeStat
	TopTeachers       []*TeacherLoad
	AssignmentsByDay  []*DayStat
	AssignmentsBySlot []*SlotStat
	ExamStats         []*ExamBucket
}

// DashboardStats derives the dashboard aggregates for the latest session.
// Fails with ErrNotFound when no session has been saved yet.
func (s *Service) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	sess, err := s.store.LatestSession(ctx)
	if err != nil {
		return nil, err
	}

	assignments, err := s.store.ListAssignments(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("listing assignments: %w", err)
	}

	grades, err := s.store.GradeStats(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("grade stats: %w", err)
	}
	for _, g := range grades {
		g.TotalHours = g.TotalAssignments * HoursPerAssignment
	}

	top, err := s.store.TopTeachers(ctx, sess.ID, 5)
	if err != nil {
		return nil, fmt.Errorf("top teachers: %w", err)
	}
	for _, t := range top {
		t.TotalHours = t.AssignmentCount * HoursPerAssignment
	}

	byDay, err := s.store.AssignmentsByDay(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("assignments by day: %w", err)
	}

	bySlot, err := s.store.AssignmentsBySlot(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("assignments by slot: %w", err)
	}

	examStats, err := s.store.ExamCountHistogram(ctx, sess.ID, 10)
	if err != nil {
		return nil, fmt.Errorf("exam histogram: %w", err)
	}

	respCount, err := s.store.ResponsibleTeacherCount(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("responsible teacher count: %w", err)
	}

	teachers := make(map[string]struct{})
	days := make(map[string]struct{})
	for _, a := range assignments {
		teachers[a.TeacherID] = struct{}{}
		days[a.Date] = struct{}{}
	}

	return &DashboardStats{
		Session: sess,
		Overview: Overview{
			TotalAssignments:           len(assignments),
			UniqueTeachers:             len(teachers),
			TotalDays:                  len(days),
			TeachersWithResponsibility: respCount,
			TotalHours:                 len(assignments) * HoursPerAssignment,
		},
		StatsByGrade:      grades,
		TopTeachers:       top,
		AssignmentsByDay:  byDay,
		AssignmentsBySlot: bySlot,
		ExamStats:         examStats,
	}, nil
}
