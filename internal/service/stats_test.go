package service

import (
	"context"
	"testing"
	"time"

	"github.com/Freeeeeet/tutoring_hub/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statsSession(subject string, status model.SessionStatus, start time.Time, duration time.Duration, rating *int) *model.Session {
	return &model.Session{
		Subject:   subject,
		Status:    status,
		StartTime: start,
		EndTime:   start.Add(duration),
		Rating:    rating,
	}
}

func intPtr(v int) *int { return &v }

func TestBuildSessionStats(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	sessions := []*model.Session{
		statsSession("Math", model.SessionStatusCompleted, time.Date(2026, 1, 10, 10, 0, 0, 0, time.UTC), 90*time.Minute, intPtr(5)),
		statsSession("Math", model.SessionStatusCompleted, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), time.Hour, intPtr(4)),
		statsSession("Math", model.SessionStatusConfirmed, time.Date(2026, 3, 20, 10, 0, 0, 0, time.UTC), time.Hour, nil),
		statsSession("Physics", model.SessionStatusCompleted, time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC), 30*time.Minute, nil),
		statsSession("Physics", model.SessionStatusPending, time.Date(2026, 3, 25, 10, 0, 0, 0, time.UTC), time.Hour, nil),
		statsSession("Physics", model.SessionStatusCancelled, time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC), time.Hour, nil),
		// вне окна месяцев, но учитывается в итогах
		statsSession("Chemistry", model.SessionStatusCompleted, time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC), time.Hour, nil),
	}

	var stats model.ProfileStats
	BuildSessionStats(&stats, sessions, now, 3, time.UTC)

	assert.Equal(t, 7, stats.TotalSessions)
	assert.Equal(t, 4, stats.CompletedSessions)
	assert.Equal(t, 2, stats.UpcomingSessions)
	assert.Equal(t, 1, stats.CancelledSessions)
	assert.Equal(t, 1, stats.PendingSessions)
	assert.Equal(t, 4.0, stats.TotalHours)
	assert.Equal(t, 2, stats.RatedSessions)
	require.NotNil(t, stats.AverageRating)
	assert.Equal(t, 4.5, *stats.AverageRating)

	assert.Equal(t, []model.SubjectStats{
		{Subject: "Math", Sessions: 3, Completed: 2, Hours: 2.5},
		{Subject: "Physics", Sessions: 2, Completed: 1, Hours: 0.5},
		{Subject: "Chemistry", Sessions: 1, Completed: 1, Hours: 1},
	}, stats.BySubject)

	assert.Equal(t, []model.MonthStats{
		{Month: "2026-01", Sessions: 1, Completed: 1, Hours: 1.5},
		{Month: "2026-02"},
		{Month: "2026-03", Sessions: 4, Completed: 2, Hours: 1.5},
	}, stats.ByMonth)
}

func TestBuildSessionStats_Empty(t *testing.T) {
	var stats model.ProfileStats
	BuildSessionStats(&stats, nil, time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC), 0, time.UTC)

	assert.Nil(t, stats.AverageRating)
	assert.Empty(t, stats.BySubject)
	require.Len(t, stats.ByMonth, DefaultStatsMonths)
	assert.Equal(t, "2025-08", stats.ByMonth[0].Month)
	assert.Equal(t, "2026-01", stats.ByMonth[DefaultStatsMonths-1].Month)
}

func TestBuildPlanStats(t *testing.T) {
	plans := []*model.StudyPlan{
		{Status: model.StudyPlanStatusActive, ProgressPercentage: 20},
		{Status: model.StudyPlanStatusActive, ProgressPercentage: 50},
		{Status: model.StudyPlanStatusCompleted, ProgressPercentage: 100},
		{Status: model.StudyPlanStatusArchived, ProgressPercentage: 0},
	}

	var stats model.ProfileStats
	BuildPlanStats(&stats, plans)

	assert.Equal(t, 2, stats.ActiveStudyPlans)
	assert.Equal(t, 56.67, stats.AveragePlanProgress)
}

func TestStatsService_ProfileStats(t *testing.T) {
	ctx := context.Background()
	users := newFakeUserRepo()
	sessions := newFakeSessionRepo()
	connections := newFakeConnectionRepo()
	plans := newFakePlanRepo()

	tutor := users.addTutor("Math")
	student := users.addStudent()

	require.NoError(t, sessions.Create(ctx, &model.Session{
		StudentID: student.ID,
		TutorID:   tutor.ID,
		Subject:   "Math",
		StartTime: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Status:    model.SessionStatusCompleted,
		Rating:    intPtr(5),
	}))
	require.NoError(t, connections.Create(ctx, &model.Connection{
		RequesterID: student.ID,
		AddresseeID: tutor.ID,
		Status:      model.ConnectionStatusAccepted,
	}))
	require.NoError(t, plans.Create(ctx, &model.StudyPlan{
		TutorID:            tutor.ID,
		StudentID:          student.ID,
		Title:              "Algebra",
		Status:             model.StudyPlanStatusActive,
		ProgressPercentage: 40,
	}))

	svc := NewStatsService(users, sessions, connections, plans, time.UTC)
	svc.now = func() time.Time { return time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC) }

	stats, err := svc.ProfileStats(ctx, tutor.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, model.RoleTutor, stats.Role)
	assert.Equal(t, 1, stats.CompletedSessions)
	assert.Equal(t, 2.0, stats.TotalHours)
	assert.Equal(t, 1, stats.Connections)
	assert.Equal(t, 1, stats.ActiveStudyPlans)
	assert.Equal(t, 40.0, stats.AveragePlanProgress)
	assert.Len(t, stats.ByMonth, DefaultStatsMonths)

	_, err = svc.ProfileStats(ctx, 999, 6)
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = svc.ProfileStats(ctx, tutor.ID, 100)
	assert.ErrorIs(t, err, ErrValidation)
}
