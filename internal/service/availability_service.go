package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/tutoring_hub/internal/model"
	"github.com/Freeeeeet/tutoring_hub/internal/repository"
	"go.uber.org/zap"
)

// TutorSchedule недельные окна и ближайшие заблокированные дни тьютора
type TutorSchedule struct {
	TutorID      int64                 `json:"tutor_id"`
	Windows      []*model.Availability `json:"windows"`
	BlockedDates []*model.BlockedDate  `json:"blocked_dates"`
}

type AvailabilityService struct {
	tx               TxManager
	userRepo         UserRepository
	availabilityRepo AvailabilityRepository
	sessionRepo      SessionRepository
	loc              *time.Location
	now              func() time.Time
	logger           *zap.Logger
}

func NewAvailabilityService(
	tx TxManager,
	userRepo UserRepository,
	availabilityRepo AvailabilityRepository,
	sessionRepo SessionRepository,
	loc *time.Location,
	logger *zap.Logger,
) *AvailabilityService {
	return &AvailabilityService{
		tx:               tx,
		userRepo:         userRepo,
		availabilityRepo: availabilityRepo,
		sessionRepo:      sessionRepo,
		loc:              loc,
		now:              time.Now,
		logger:           logger,
	}
}

func (s *AvailabilityService) requireTutor(ctx context.Context, tutorID int64) (*model.Tutor, error) {
	tutor, err := s.userRepo.GetTutor(ctx, tutorID)
	if err != nil {
		return nil, fmt.Errorf("get tutor: %w", err)
	}
	if tutor == nil {
		return nil, ErrNotATutor
	}
	return tutor, nil
}

// today полночь текущего дня в часовом поясе приложения
func (s *AvailabilityService) today() time.Time {
	now := s.now().In(s.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
}

// GetSchedule получает недельные окна и предстоящие заблокированные дни
func (s *AvailabilityService) GetSchedule(ctx context.Context, tutorID int64) (*TutorSchedule, error) {
	if _, err := s.requireTutor(ctx, tutorID); err != nil {
		return nil, err
	}

	windows, err := s.availabilityRepo.ListByTutor(ctx, tutorID)
	if err != nil {
		return nil, fmt.Errorf("list availability: %w", err)
	}

	blocked, err := s.availabilityRepo.ListBlockedDates(ctx, tutorID, s.today())
	if err != nil {
		return nil, fmt.Errorf("list blocked dates: %w", err)
	}

	if windows == nil {
		windows = []*model.Availability{}
	}
	if blocked == nil {
		blocked = []*model.BlockedDate{}
	}

	return &TutorSchedule{TutorID: tutorID, Windows: windows, BlockedDates: blocked}, nil
}

// SetWeekly атомарно заменяет недельные окна тьютора
func (s *AvailabilityService) SetWeekly(ctx context.Context, tutorID int64, windows []*model.Availability) ([]*model.Availability, error) {
	if _, err := s.requireTutor(ctx, tutorID); err != nil {
		return nil, err
	}
	if err := ValidateWindows(windows); err != nil {
		return nil, err
	}

	for _, w := range windows {
		w.TutorID = tutorID
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		return s.availabilityRepo.ReplaceForTutor(ctx, tutorID, windows)
	})
	if err != nil {
		return nil, fmt.Errorf("replace availability: %w", err)
	}

	s.logger.Info("Availability updated",
		zap.Int64("tutor_id", tutorID),
		zap.Int("windows", len(windows)),
	)

	return windows, nil
}

// BlockDate закрывает день для бронирования
func (s *AvailabilityService) BlockDate(ctx context.Context, tutorID int64, date time.Time, reason string) (*model.BlockedDate, error) {
	if _, err := s.requireTutor(ctx, tutorID); err != nil {
		return nil, err
	}

	// DATE хранится без часового пояса
	today := s.today()
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	if day.Before(time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)) {
		return nil, invalid("date must not be in the past")
	}

	blocked := &model.BlockedDate{
		TutorID: tutorID,
		Date:    day,
		Reason:  strings.TrimSpace(reason),
	}

	if err := s.availabilityRepo.AddBlockedDate(ctx, blocked); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDateAlreadyBlocked
		}
		return nil, fmt.Errorf("add blocked date: %w", err)
	}

	s.logger.Info("Date blocked",
		zap.Int64("tutor_id", tutorID),
		zap.String("date", day.Format("2006-01-02")),
	)

	return blocked, nil
}

// UnblockDate удаляет заблокированный день
func (s *AvailabilityService) UnblockDate(ctx context.Context, tutorID, id int64) error {
	err := s.availabilityRepo.DeleteBlockedDate(ctx, tutorID, id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrBlockedDateNotFound
	case err != nil:
		return fmt.Errorf("delete blocked date: %w", err)
	}

	s.logger.Info("Date unblocked", zap.Int64("tutor_id", tutorID), zap.Int64("blocked_date_id", id))
	return nil
}

// OpenSlots получает свободные начала сессий длительностью duration на дату date
func (s *AvailabilityService) OpenSlots(ctx context.Context, tutorID int64, date time.Time, duration time.Duration) ([]time.Time, error) {
	if duration < MinSessionDuration || duration > MaxSessionDuration {
		return nil, invalid("duration must be between %s and %s", MinSessionDuration, MaxSessionDuration)
	}
	if _, err := s.requireTutor(ctx, tutorID); err != nil {
		return nil, err
	}

	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, s.loc)

	windows, err := s.availabilityRepo.ListByTutor(ctx, tutorID)
	if err != nil {
		return nil, fmt.Errorf("list availability: %w", err)
	}

	blocked, err := s.availabilityRepo.ListBlockedDates(ctx, tutorID, day)
	if err != nil {
		return nil, fmt.Errorf("list blocked dates: %w", err)
	}

	sessions, err := s.sessionRepo.ListActiveByTutor(ctx, tutorID, day, day.AddDate(0, 0, 1), 0)
	if err != nil {
		return nil, fmt.Errorf("list tutor sessions: %w", err)
	}

	return OpenSlots(day, duration, s.now(), s.loc, windows, blocked, sessions), nil
}
