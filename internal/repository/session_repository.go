package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/tutoring_hub/internal/model"
	"github.com/Freeeeeet/tutoring_hub/internal/repository/base"
)

const sessionColumns = `id, student_id, tutor_id, subject, start_time, end_time, status, notes, meeting_link, cancel_reason, rating, feedback, created_at, updated_at`

// SessionFilter фильтр списка сессий пользователя
type SessionFilter struct {
	Status *model.SessionStatus
	From   *time.Time // start_time >= From
	To     *time.Time // start_time < To
	Desc   bool
}

type SessionRepository struct {
	*base.Repository
}

func NewSessionRepository(b *base.Repository) *SessionRepository {
	return &SessionRepository{Repository: b}
}

func scanSession(row rowScanner, s *model.Session) error {
	return row.Scan(
		&s.ID,
		&s.StudentID,
		&s.TutorID,
		&s.Subject,
		&s.StartTime,
		&s.EndTime,
		&s.Status,
		&s.Notes,
		&s.MeetingLink,
		&s.CancelReason,
		&s.Rating,
		&s.Feedback,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
}

// LockTutor берёт транзакционную advisory-блокировку на расписание тьютора.
// Работает только внутри транзакции.
func (r *SessionRepository) LockTutor(ctx context.Context, tutorID int64) error {
	if _, err := r.ExecAffected(ctx, `SELECT pg_advisory_xact_lock($1)`, tutorID); err != nil {
		return fmt.Errorf("lock tutor schedule: %w", err)
	}
	return nil
}

// Create создаёт новую сессию
func (r *SessionRepository) Create(ctx context.Context, s *model.Session) error {
	query := `
		INSERT INTO sessions (student_id, tutor_id, subject, start_time, end_time, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err := r.QueryRow(
		ctx, query,
		s.StudentID,
		s.TutorID,
		s.Subject,
		s.StartTime,
		s.EndTime,
		s.Status,
		s.Notes,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	return nil
}

// GetByID получает сессию по ID
func (r *SessionRepository) GetByID(ctx context.Context, id int64) (*model.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`

	var s model.Session
	if err := scanSession(r.QueryRow(ctx, query, id), &s); err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session by id: %w", err)
	}

	return &s, nil
}

// ListActiveByTutor получает pending/confirmed сессии тьютора, пересекающие [from, to).
// excludeID позволяет не учитывать переносимую сессию (0 - не исключать).
func (r *SessionRepository) ListActiveByTutor(ctx context.Context, tutorID int64, from, to time.Time, excludeID int64) ([]*model.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE tutor_id = $1
		  AND status IN ('pending', 'confirmed')
		  AND start_time < $3
		  AND end_time > $2
		  AND id <> $4
		ORDER BY start_time
	`

	return r.list(ctx, "list active tutor sessions", query, tutorID, from, to, excludeID)
}

// ListForUser получает сессии, где пользователь студент или тьютор
func (r *SessionRepository) ListForUser(ctx context.Context, userID int64, filter SessionFilter) ([]*model.Session, error) {
	order := "ASC"
	if filter.Desc {
		order = "DESC"
	}

	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE (student_id = $1 OR tutor_id = $1)
		  AND ($2::text IS NULL OR status = $2)
		  AND ($3::timestamptz IS NULL OR start_time >= $3)
		  AND ($4::timestamptz IS NULL OR start_time < $4)
		ORDER BY start_time ` + order

	var status *string
	if filter.Status != nil {
		s := string(*filter.Status)
		status = &s
	}

	return r.list(ctx, "list user sessions", query, userID, status, filter.From, filter.To)
}

// UpdateIfStatus сохраняет изменяемые поля сессии, если её статус всё ещё expected.
// Возвращает false, если сессию успели изменить.
func (r *SessionRepository) UpdateIfStatus(ctx context.Context, s *model.Session, expected model.SessionStatus) (bool, error) {
	query := `
		UPDATE sessions
		SET start_time = $1, end_time = $2, status = $3, meeting_link = $4,
		    cancel_reason = $5, rating = $6, feedback = $7, updated_at = NOW()
		WHERE id = $8 AND status = $9
		RETURNING updated_at
	`

	err := r.QueryRow(
		ctx, query,
		s.StartTime,
		s.EndTime,
		s.Status,
		s.MeetingLink,
		s.CancelReason,
		s.Rating,
		s.Feedback,
		s.ID,
		expected,
	).Scan(&s.UpdatedAt)

	if err != nil {
		if base.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("update session: %w", err)
	}

	return true, nil
}

// SweepPast завершает прошедшие confirmed сессии и отменяет просроченные pending
func (r *SessionRepository) SweepPast(ctx context.Context, now time.Time) (int64, int64, error) {
	completed, err := r.ExecAffected(ctx, `
		UPDATE sessions
		SET status = 'completed', updated_at = NOW()
		WHERE status = 'confirmed' AND end_time <= $1
	`, now)
	if err != nil {
		return 0, 0, fmt.Errorf("complete past sessions: %w", err)
	}

	expired, err := r.ExecAffected(ctx, `
		UPDATE sessions
		SET status = 'cancelled', cancel_reason = 'expired', updated_at = NOW()
		WHERE status = 'pending' AND start_time <= $1
	`, now)
	if err != nil {
		return 0, 0, fmt.Errorf("expire pending sessions: %w", err)
	}

	return completed, expired, nil
}

func (r *SessionRepository) list(ctx context.Context, op, query string, args ...interface{}) ([]*model.Session, error) {
	rows, err := r.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	sessions := []*model.Session{}
	for rows.Next() {
		var s model.Session
		if err := scanSession(rows, &s); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, nil
}
