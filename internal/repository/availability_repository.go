package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/tutoring_hub/internal/model"
	"github.com/Freeeeeet/tutoring_hub/internal/repository/base"
)

type AvailabilityRepository struct {
	*base.Repository
}

func NewAvailabilityRepository(b *base.Repository) *AvailabilityRepository {
	return &AvailabilityRepository{Repository: b}
}

// ListByTutor получает недельное расписание доступности тьютора
func (r *AvailabilityRepository) ListByTutor(ctx context.Context, tutorID int64) ([]*model.Availability, error) {
	query := `
		SELECT id, tutor_id, weekday, start_minute, end_minute
		FROM availability
		WHERE tutor_id = $1
		ORDER BY weekday, start_minute
	`

	rows, err := r.Query(ctx, query, tutorID)
	if err != nil {
		return nil, fmt.Errorf("list availability: %w", err)
	}
	defer rows.Close()

	windows := []*model.Availability{}
	for rows.Next() {
		var a model.Availability
		if err := rows.Scan(&a.ID, &a.TutorID, &a.Weekday, &a.StartMinute, &a.EndMinute); err != nil {
			return nil, fmt.Errorf("scan availability: %w", err)
		}
		windows = append(windows, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate availability: %w", err)
	}

	return windows, nil
}

// ReplaceForTutor заменяет всё недельное расписание тьютора.
// Вызывается внутри транзакции.
func (r *AvailabilityRepository) ReplaceForTutor(ctx context.Context, tutorID int64, windows []*model.Availability) error {
	if _, err := r.ExecAffected(ctx, `DELETE FROM availability WHERE tutor_id = $1`, tutorID); err != nil {
		return fmt.Errorf("clear availability: %w", err)
	}

	query := `
		INSERT INTO availability (tutor_id, weekday, start_minute, end_minute)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	for _, w := range windows {
		w.TutorID = tutorID
		if err := r.QueryRow(ctx, query, tutorID, w.Weekday, w.StartMinute, w.EndMinute).Scan(&w.ID); err != nil {
			return fmt.Errorf("insert availability: %w", err)
		}
	}

	return nil
}

// ListBlockedDates получает заблокированные даты начиная с from
func (r *AvailabilityRepository) ListBlockedDates(ctx context.Context, tutorID int64, from time.Time) ([]*model.BlockedDate, error) {
	query := `
		SELECT id, tutor_id, date, reason
		FROM blocked_dates
		WHERE tutor_id = $1 AND date >= $2::date
		ORDER BY date
	`

	rows, err := r.Query(ctx, query, tutorID, from)
	if err != nil {
		return nil, fmt.Errorf("list blocked dates: %w", err)
	}
	defer rows.Close()

	dates := []*model.BlockedDate{}
	for rows.Next() {
		var d model.BlockedDate
		if err := rows.Scan(&d.ID, &d.TutorID, &d.Date, &d.Reason); err != nil {
			return nil, fmt.Errorf("scan blocked date: %w", err)
		}
		dates = append(dates, &d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate blocked dates: %w", err)
	}

	return dates, nil
}

// AddBlockedDate блокирует день
func (r *AvailabilityRepository) AddBlockedDate(ctx context.Context, blocked *model.BlockedDate) error {
	query := `
		INSERT INTO blocked_dates (tutor_id, date, reason)
		VALUES ($1, $2::date, $3)
		RETURNING id
	`

	err := r.QueryRow(ctx, query, blocked.TutorID, blocked.Date, blocked.Reason).Scan(&blocked.ID)
	if err != nil {
		if base.IsUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("add blocked date: %w", err)
	}

	return nil
}

// DeleteBlockedDate снимает блокировку дня
func (r *AvailabilityRepository) DeleteBlockedDate(ctx context.Context, tutorID, id int64) error {
	affected, err := r.ExecAffected(ctx, `DELETE FROM blocked_dates WHERE id = $1 AND tutor_id = $2`, id, tutorID)
	if err != nil {
		return fmt.Errorf("delete blocked date: %w", err)
	}

	if affected == 0 {
		return ErrNotFound
	}

	return nil
}
