package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/tutoring_hub/internal/model"
	"github.com/Freeeeeet/tutoring_hub/internal/repository"
)

const maxStatsMonths = 24

type StatsService struct {
	userRepo       UserRepository
	sessionRepo    SessionRepository
	connectionRepo ConnectionRepository
	planRepo       StudyPlanRepository
	loc            *time.Location
	now            func() time.Time
}

func NewStatsService(
	userRepo UserRepository,
	sessionRepo SessionRepository,
	connectionRepo ConnectionRepository,
	planRepo StudyPlanRepository,
	loc *time.Location,
) *StatsService {
	return &StatsService{
		userRepo:       userRepo,
		sessionRepo:    sessionRepo,
		connectionRepo: connectionRepo,
		planRepo:       planRepo,
		loc:            loc,
		now:            time.Now,
	}
}

// ProfileStats собирает аналитику профиля пользователя за последние months месяцев
func (s *StatsService) ProfileStats(ctx context.Context, userID int64, months int) (*model.ProfileStats, error) {
	if months <= 0 {
		months = DefaultStatsMonths
	}
	if months > maxStatsMonths {
		return nil, invalid("months must be at most %d", maxStatsMonths)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	sessions, err := s.sessionRepo.ListForUser(ctx, userID, repository.SessionFilter{})
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	connections, err := s.connectionRepo.CountAccepted(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count connections: %w", err)
	}

	plans, err := s.planRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list study plans: %w", err)
	}

	stats := &model.ProfileStats{
		UserID:      userID,
		Role:        user.Role,
		Connections: connections,
	}
	BuildSessionStats(stats, sessions, s.now(), months, s.loc)
	BuildPlanStats(stats, plans)

	return stats, nil
}
