package model

import "time"

type SessionStatus string

const (
	SessionStatusPending   SessionStatus = "pending"   // Ожидает подтверждения тьютора
	SessionStatusConfirmed SessionStatus = "confirmed" // Подтверждено
	SessionStatusCompleted SessionStatus = "completed" // Завершено
	SessionStatusCancelled SessionStatus = "cancelled" // Отменено
)

type Session struct {
	ID           int64         `json:"id"`
	StudentID    int64         `json:"student_id"`
	TutorID      int64         `json:"tutor_id"`
	Subject      string        `json:"subject"`
	StartTime    time.Time     `json:"start_time"`
	EndTime      time.Time     `json:"end_time"`
	Status       SessionStatus `json:"status"`
	Notes        string        `json:"notes"`
	MeetingLink  string        `json:"meeting_link"`
	CancelReason string        `json:"cancel_reason,omitempty"`
	Rating       *int          `json:"rating,omitempty"`
	Feedback     string        `json:"feedback,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`

	// Дополнительные поля для удобства (не из БД)
	Student *User `json:"student,omitempty"`
	Tutor   *User `json:"tutor,omitempty"`
}

// IsActive reports whether the session still occupies the tutor's time
func (s *Session) IsActive() bool {
	return s.Status == SessionStatusPending || s.Status == SessionStatusConfirmed
}

// Overlaps uses half-open intervals: back-to-back sessions do not overlap
func (s *Session) Overlaps(start, end time.Time) bool {
	return s.StartTime.Before(end) && start.Before(s.EndTime)
}

// HasParticipant checks if user is the student or the tutor of the session
func (s *Session) HasParticipant(userID int64) bool {
	return s.StudentID == userID || s.TutorID == userID
}

// Duration of the session
func (s *Session) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}
