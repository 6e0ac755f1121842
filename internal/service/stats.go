package service

import (
	"math"
	"sort"
	"time"

	"github.com/Freeeeeet/tutoring_hub/internal/model"
)

const DefaultStatsMonths = 6

// BuildSessionStats агрегирует сессии за один проход: итоги, разбивку по предметам
// и по последним months месяцам (включая пустые).
// Часы считаются только по завершённым сессиям, отменённые не попадают в разбивки.
func BuildSessionStats(stats *model.ProfileStats, sessions []*model.Session, now time.Time, months int, loc *time.Location) {
	if months <= 0 {
		months = DefaultStatsMonths
	}

	local := now.In(loc)
	firstMonth := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc).AddDate(0, -(months - 1), 0)

	stats.ByMonth = make([]model.MonthStats, months)
	monthIndex := make(map[string]int, months)
	for i := 0; i < months; i++ {
		key := firstMonth.AddDate(0, i, 0).Format("2006-01")
		stats.ByMonth[i] = model.MonthStats{Month: key}
		monthIndex[key] = i
	}

	bySubject := make(map[string]*model.SubjectStats)
	var (
		ratingSum float64
		hours     float64
	)

	for _, s := range sessions {
		stats.TotalSessions++

		switch s.Status {
		case model.SessionStatusCancelled:
			stats.CancelledSessions++
			continue
		case model.SessionStatusPending:
			stats.PendingSessions++
		}

		if s.IsActive() && s.StartTime.After(now) {
			stats.UpcomingSessions++
		}

		completed := s.Status == model.SessionStatusCompleted
		sessionHours := 0.0
		if completed {
			stats.CompletedSessions++
			sessionHours = s.Duration().Hours()
			hours += sessionHours

			if s.Rating != nil {
				stats.RatedSessions++
				ratingSum += float64(*s.Rating)
			}
		}

		subject, ok := bySubject[s.Subject]
		if !ok {
			subject = &model.SubjectStats{Subject: s.Subject}
			bySubject[s.Subject] = subject
		}
		subject.Sessions++
		subject.Hours += sessionHours
		if completed {
			subject.Completed++
		}

		if i, ok := monthIndex[s.StartTime.In(loc).Format("2006-01")]; ok {
			stats.ByMonth[i].Sessions++
			stats.ByMonth[i].Hours += sessionHours
			if completed {
				stats.ByMonth[i].Completed++
			}
		}
	}

	stats.TotalHours = round2(hours)
	if stats.RatedSessions > 0 {
		avg := round2(ratingSum / float64(stats.RatedSessions))
		stats.AverageRating = &avg
	}

	stats.BySubject = make([]model.SubjectStats, 0, len(bySubject))
	for _, subject := range bySubject {
		subject.Hours = round2(subject.Hours)
		stats.BySubject = append(stats.BySubject, *subject)
	}
	sort.Slice(stats.BySubject, func(i, j int) bool {
		if stats.BySubject[i].Sessions != stats.BySubject[j].Sessions {
			return stats.BySubject[i].Sessions > stats.BySubject[j].Sessions
		}
		return stats.BySubject[i].Subject < stats.BySubject[j].Subject
	})

	for i := range stats.ByMonth {
		stats.ByMonth[i].Hours = round2(stats.ByMonth[i].Hours)
	}
}

// BuildPlanStats считает активные планы и средний прогресс неархивных планов
func BuildPlanStats(stats *model.ProfileStats, plans []*model.StudyPlan) {
	var (
		sum   int
		count int
	)
	for _, p := range plans {
		if p.Status == model.StudyPlanStatusArchived {
			continue
		}
		if p.Status == model.StudyPlanStatusActive {
			stats.ActiveStudyPlans++
		}
		sum += p.ProgressPercentage
		count++
	}

	if count > 0 {
		stats.AveragePlanProgress = round2(float64(sum) / float64(count))
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
