package model

import (
	"strings"
	"time"
)

type Role string

const (
	RoleStudent Role = "student"
	RoleTutor   Role = "tutor"
)

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Role         Role      `json:"role"`
	Bio          string    `json:"bio"`
	AvatarURL    string    `json:"avatar_url"`
	TelegramID   *int64    `json:"telegram_id,omitempty"` // nil - уведомления в Telegram не подключены
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Заполняется только при запросе профиля
	Student *Student `json:"student,omitempty"`
	Tutor   *Tutor   `json:"tutor,omitempty"`
}

// IsTutor checks if user has the tutor role
func (u *User) IsTutor() bool {
	return u.Role == RoleTutor
}

// FullName returns "First Last" without dangling spaces
func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}

type Student struct {
	UserID        int64  `json:"user_id"`
	GradeLevel    string `json:"grade_level"`
	School        string `json:"school"`
	LearningGoals string `json:"learning_goals"`
}

type Tutor struct {
	UserID              int64    `json:"user_id"`
	Subjects            []string `json:"subjects"`
	HourlyRate          int      `json:"hourly_rate"` // в центах
	ExperienceYears     int      `json:"experience_years"`
	IsAcceptingStudents bool     `json:"is_accepting_students"`
}

// TeachesSubject reports whether the subject is in the tutor's list (case-insensitive)
func (t *Tutor) TeachesSubject(subject string) bool {
	for _, s := range t.Subjects {
		if strings.EqualFold(strings.TrimSpace(s), strings.TrimSpace(subject)) {
			return true
		}
	}
	return false
}
