package model

import (
	"math"
	"time"
)

type StudyPlanStatus string

const (
	StudyPlanStatusActive    StudyPlanStatus = "active"
	StudyPlanStatusCompleted StudyPlanStatus = "completed"
	StudyPlanStatusArchived  StudyPlanStatus = "archived"
)

// StudyPlan is a tutor-authored curriculum assigned to a student
type StudyPlan struct {
	ID                 int64           `json:"id"`
	TutorID            int64           `json:"tutor_id"`
	StudentID          int64           `json:"student_id"`
	Title              string          `json:"title"`
	Description        string          `json:"description"`
	Subject            string          `json:"subject"`
	Status             StudyPlanStatus `json:"status"`
	ProgressPercentage int             `json:"progress_percentage"`
	StartDate          *time.Time      `json:"start_date"`
	EndDate            *time.Time      `json:"end_date"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`

	Modules []*Module `json:"modules,omitempty"`
}

// HasParticipant checks if user is the plan's tutor or student
func (p *StudyPlan) HasParticipant(userID int64) bool {
	return p.TutorID == userID || p.StudentID == userID
}

type Module struct {
	ID          int64     `json:"id"`
	PlanID      int64     `json:"plan_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Position    int       `json:"position"`
	CreatedAt   time.Time `json:"created_at"`

	Tasks []*Task `json:"tasks"`
}

type Task struct {
	ID          int64      `json:"id"`
	ModuleID    int64      `json:"module_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"due_date"`
	IsCompleted bool       `json:"is_completed"`
	CompletedAt *time.Time `json:"completed_at"`
	Position    int        `json:"position"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Progress returns round(completed / total * 100); a plan without tasks is at 0
func Progress(completed, total int) int {
	if total <= 0 {
		return 0
	}
	if completed > total {
		completed = total
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}

// StatusForProgress derives plan status after a progress change.
// Archived plans keep their status.
func StatusForProgress(current StudyPlanStatus, progress int) StudyPlanStatus {
	if current == StudyPlanStatusArchived {
		return current
	}
	if progress >= 100 {
		return StudyPlanStatusCompleted
	}
	return StudyPlanStatusActive
}
