package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/tutoring_hub/internal/model"
	"github.com/Freeeeeet/tutoring_hub/internal/repository"
	"go.uber.org/zap"
)

const (
	maxNotesLength    = 2000
	maxFeedbackLength = 2000
	expiredReason     = "expired"
)

// SessionScope фильтр списка сессий по времени
type SessionScope string

const (
	ScopeAll      SessionScope = "all"
	ScopeUpcoming SessionScope = "upcoming"
	ScopePast     SessionScope = "past"
)

type BookInput struct {
	TutorID int64
	Subject string
	Start   time.Time
	End     time.Time
	Notes   string
}

type SessionService struct {
	tx               TxManager
	sessionRepo      SessionRepository
	availabilityRepo AvailabilityRepository
	userRepo         UserRepository
	notifier         Notifier
	loc              *time.Location
	now              func() time.Time
	logger           *zap.Logger
}

func NewSessionService(
	tx TxManager,
	sessionRepo SessionRepository,
	availabilityRepo AvailabilityRepository,
	userRepo UserRepository,
	notifier Notifier,
	loc *time.Location,
	logger *zap.Logger,
) *SessionService {
	return &SessionService{
		tx:               tx,
		sessionRepo:      sessionRepo,
		availabilityRepo: availabilityRepo,
		userRepo:         userRepo,
		notifier:         notifier,
		loc:              loc,
		now:              time.Now,
		logger:           logger,
	}
}

// Book бронирует сессию студента у тьютора
func (s *SessionService) Book(ctx context.Context, studentID int64, in BookInput) (*model.Session, error) {
	if err := ValidateSessionTimes(in.Start, in.End, s.now()); err != nil {
		return nil, err
	}
	if in.TutorID == studentID {
		return nil, invalid("you cannot book a session with yourself")
	}

	subject := strings.TrimSpace(in.Subject)
	if subject == "" {
		return nil, invalid("subject is required")
	}
	if len(in.Notes) > maxNotesLength {
		return nil, invalid("notes must be at most %d characters", maxNotesLength)
	}

	tutor, err := s.userRepo.GetTutor(ctx, in.TutorID)
	if err != nil {
		return nil, fmt.Errorf("get tutor: %w", err)
	}
	if tutor == nil {
		return nil, invalid("requested user is not a tutor")
	}
	if !tutor.IsAcceptingStudents {
		return nil, ErrTutorUnavailable
	}
	if len(tutor.Subjects) > 0 && !tutor.TeachesSubject(subject) {
		return nil, invalid("tutor does not teach %q", subject)
	}

	if err := s.checkAvailability(ctx, in.TutorID, in.Start, in.End); err != nil {
		return nil, err
	}

	session := &model.Session{
		StudentID: studentID,
		TutorID:   in.TutorID,
		Subject:   subject,
		StartTime: in.Start,
		EndTime:   in.End,
		Status:    model.SessionStatusPending,
		Notes:     strings.TrimSpace(in.Notes),
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.ensureFree(ctx, in.TutorID, in.Start, in.End, 0); err != nil {
			return err
		}
		return s.sessionRepo.Create(ctx, session)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Session booked",
		zap.Int64("session_id", session.ID),
		zap.Int64("student_id", studentID),
		zap.Int64("tutor_id", in.TutorID),
		zap.String("subject", subject),
		zap.Time("start", in.Start),
	)

	s.notifier.Notify(ctx, in.TutorID, fmt.Sprintf("New session request: %s, %s", subject, s.formatRange(session)))

	return session, nil
}

// checkAvailability проверяет недельные окна и заблокированные дни тьютора
func (s *SessionService) checkAvailability(ctx context.Context, tutorID int64, start, end time.Time) error {
	windows, err := s.availabilityRepo.ListByTutor(ctx, tutorID)
	if err != nil {
		return fmt.Errorf("list availability: %w", err)
	}

	local := start.In(s.loc)
	blocked, err := s.availabilityRepo.ListBlockedDates(ctx, tutorID, time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc))
	if err != nil {
		return fmt.Errorf("list blocked dates: %w", err)
	}

	return CheckAvailability(start, end, s.loc, windows, blocked)
}

// ensureFree блокирует расписание тьютора до конца транзакции и проверяет пересечения
func (s *SessionService) ensureFree(ctx context.Context, tutorID int64, start, end time.Time, excludeID int64) error {
	if err := s.sessionRepo.LockTutor(ctx, tutorID); err != nil {
		return err
	}

	active, err := s.sessionRepo.ListActiveByTutor(ctx, tutorID, start, end, excludeID)
	if err != nil {
		return err
	}

	if FindOverlap(active, start, end, excludeID) != nil {
		return ErrSlotOverlap
	}

	return nil
}

// List получает сессии пользователя
func (s *SessionService) List(ctx context.Context, userID int64, status *model.SessionStatus, scope SessionScope) ([]*model.Session, error) {
	filter := repository.SessionFilter{Status: status}

	now := s.now()
	switch scope {
	case ScopeUpcoming:
		filter.From = &now
	case ScopePast:
		filter.To = &now
		filter.Desc = true
	case ScopeAll, "":
	default:
		return nil, invalid("scope must be one of upcoming, past, all")
	}

	if status != nil {
		switch *status {
		case model.SessionStatusPending, model.SessionStatusConfirmed, model.SessionStatusCompleted, model.SessionStatusCancelled:
		default:
			return nil, invalid("unknown session status %q", *status)
		}
	}

	sessions, err := s.sessionRepo.ListForUser(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	if err := s.attachUsers(ctx, sessions); err != nil {
		return nil, err
	}

	return sessions, nil
}

// Get получает сессию; доступна только её участникам
func (s *SessionService) Get(ctx context.Context, userID, sessionID int64) (*model.Session, error) {
	session, err := s.getForParticipant(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	if err := s.attachUsers(ctx, []*model.Session{session}); err != nil {
		return nil, err
	}

	return session, nil
}

// Confirm подтверждает pending сессию (только тьютор)
func (s *SessionService) Confirm(ctx context.Context, tutorID, sessionID int64, meetingLink string) (*model.Session, error) {
	session, err := s.getForParticipant(ctx, tutorID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.TutorID != tutorID {
		return nil, ErrForbidden
	}
	if session.Status != model.SessionStatusPending {
		return nil, ErrInvalidTransition
	}

	session.Status = model.SessionStatusConfirmed
	if link := strings.TrimSpace(meetingLink); link != "" {
		session.MeetingLink = link
	}

	if err := s.save(ctx, session, model.SessionStatusPending); err != nil {
		return nil, err
	}

	s.logger.Info("Session confirmed", zap.Int64("session_id", sessionID), zap.Int64("tutor_id", tutorID))
	s.notifier.Notify(ctx, session.StudentID, fmt.Sprintf("Session confirmed: %s, %s", session.Subject, s.formatRange(session)))

	return session, nil
}

// Cancel отменяет активную сессию (любой участник)
func (s *SessionService) Cancel(ctx context.Context, userID, sessionID int64, reason string) (*model.Session, error) {
	session, err := s.getForParticipant(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsActive() {
		return nil, ErrSessionNotActive
	}

	previous := session.Status
	session.Status = model.SessionStatusCancelled
	session.CancelReason = strings.TrimSpace(reason)

	if err := s.save(ctx, session, previous); err != nil {
		return nil, err
	}

	s.logger.Info("Session cancelled",
		zap.Int64("session_id", sessionID),
		zap.Int64("cancelled_by", userID),
		zap.String("reason", session.CancelReason),
	)

	s.notifier.Notify(ctx, otherSide(session, userID), fmt.Sprintf("Session cancelled: %s, %s", session.Subject, s.formatRange(session)))

	return session, nil
}

// Reschedule переносит активную сессию; статус возвращается в pending
func (s *SessionService) Reschedule(ctx context.Context, userID, sessionID int64, start, end time.Time) (*model.Session, error) {
	if err := ValidateSessionTimes(start, end, s.now()); err != nil {
		return nil, err
	}

	session, err := s.getForParticipant(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsActive() {
		return nil, ErrSessionNotActive
	}

	if err := s.checkAvailability(ctx, session.TutorID, start, end); err != nil {
		return nil, err
	}

	previous := session.Status
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.ensureFree(ctx, session.TutorID, start, end, session.ID); err != nil {
			return err
		}

		session.StartTime = start
		session.EndTime = end
		session.Status = model.SessionStatusPending

		return s.save(ctx, session, previous)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Session rescheduled",
		zap.Int64("session_id", sessionID),
		zap.Int64("rescheduled_by", userID),
		zap.Time("start", start),
	)

	s.notifier.Notify(ctx, otherSide(session, userID), fmt.Sprintf("Session rescheduled: %s, %s", session.Subject, s.formatRange(session)))

	return session, nil
}

// Complete отмечает проведённую сессию (только тьютор, после начала)
func (s *SessionService) Complete(ctx context.Context, tutorID, sessionID int64) (*model.Session, error) {
	session, err := s.getForParticipant(ctx, tutorID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.TutorID != tutorID {
		return nil, ErrForbidden
	}
	if session.Status != model.SessionStatusConfirmed {
		return nil, ErrInvalidTransition
	}
	if s.now().Before(session.StartTime) {
		return nil, invalid("session has not started yet")
	}

	session.Status = model.SessionStatusCompleted
	if err := s.save(ctx, session, model.SessionStatusConfirmed); err != nil {
		return nil, err
	}

	s.logger.Info("Session completed", zap.Int64("session_id", sessionID))
	s.notifier.Notify(ctx, session.StudentID, fmt.Sprintf("Session completed: %s. You can rate it now.", session.Subject))

	return session, nil
}

// Rate оценивает завершённую сессию (только студент, один раз)
func (s *SessionService) Rate(ctx context.Context, studentID, sessionID int64, rating int, feedback string) (*model.Session, error) {
	if rating < 1 || rating > 5 {
		return nil, invalid("rating must be between 1 and 5")
	}
	if len(feedback) > maxFeedbackLength {
		return nil, invalid("feedback must be at most %d characters", maxFeedbackLength)
	}

	session, err := s.getForParticipant(ctx, studentID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.StudentID != studentID {
		return nil, ErrForbidden
	}
	if session.Status != model.SessionStatusCompleted {
		return nil, ErrInvalidTransition
	}
	if session.Rating != nil {
		return nil, ErrAlreadyRated
	}

	session.Rating = &rating
	session.Feedback = strings.TrimSpace(feedback)

	if err := s.save(ctx, session, model.SessionStatusCompleted); err != nil {
		return nil, err
	}

	s.logger.Info("Session rated", zap.Int64("session_id", sessionID), zap.Int("rating", rating))

	return session, nil
}

// Week получает активные и завершённые сессии пользователя за неделю, начинающуюся в weekStart
func (s *SessionService) Week(ctx context.Context, userID int64, weekStart time.Time) ([]*model.Session, error) {
	local := weekStart.In(s.loc)
	from := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	to := from.AddDate(0, 0, 7)

	sessions, err := s.sessionRepo.ListForUser(ctx, userID, repository.SessionFilter{From: &from, To: &to})
	if err != nil {
		return nil, fmt.Errorf("list week sessions: %w", err)
	}

	week := make([]*model.Session, 0, len(sessions))
	for _, session := range sessions {
		if session.Status != model.SessionStatusCancelled {
			week = append(week, session)
		}
	}

	if err := s.attachUsers(ctx, week); err != nil {
		return nil, err
	}

	return week, nil
}

// SweepPastSessions завершает прошедшие подтверждённые сессии и отменяет просроченные заявки
func (s *SessionService) SweepPastSessions(ctx context.Context, now time.Time) (int64, int64, error) {
	completed, expired, err := s.sessionRepo.SweepPast(ctx, now)
	if err != nil {
		return 0, 0, fmt.Errorf("sweep sessions: %w", err)
	}
	return completed, expired, nil
}

func (s *SessionService) getForParticipant(ctx context.Context, userID, sessionID int64) (*model.Session, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	if !session.HasParticipant(userID) {
		return nil, ErrNotParticipant
	}
	return session, nil
}

func (s *SessionService) save(ctx context.Context, session *model.Session, expected model.SessionStatus) error {
	ok, err := s.sessionRepo.UpdateIfStatus(ctx, session, expected)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	if !ok {
		return ErrConcurrentUpdate
	}
	return nil
}

// attachUsers заполняет Student и Tutor одним запросом
func (s *SessionService) attachUsers(ctx context.Context, sessions []*model.Session) error {
	if len(sessions) == 0 {
		return nil
	}

	seen := make(map[int64]bool)
	var ids []int64
	for _, session := range sessions {
		for _, id := range []int64{session.StudentID, session.TutorID} {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}

	users, err := s.userRepo.GetByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("get session users: %w", err)
	}

	byID := make(map[int64]*model.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	for _, session := range sessions {
		session.Student = byID[session.StudentID]
		session.Tutor = byID[session.TutorID]
	}

	return nil
}

func (s *SessionService) formatRange(session *model.Session) string {
	start := session.StartTime.In(s.loc)
	end := session.EndTime.In(s.loc)
	return fmt.Sprintf("%s %s-%s", start.Format("02.01.2006"), start.Format("15:04"), end.Format("15:04"))
}

func otherSide(session *model.Session, userID int64) int64 {
	if session.StudentID == userID {
		return session.TutorID
	}
	return session.StudentID
}
